package tax

import (
	"errors"
	"fmt"
)

// DomesticCountry is the only country whose orders are taxed as domestic.
const DomesticCountry = "india"

var (
	ErrMissingCountry = errors.New("country is required")
	ErrMissingState   = errors.New("state is required for domestic addresses")
	ErrUnknownState   = errors.New("state is not a recognised Indian state or union territory")
)

// Destination is where an order ships to. It is either a DomesticState or a
// ForeignRegion.
type Destination interface {
	// Category classifies the destination relative to the home state.
	Category(home StateCode) Category
	String() string
	isDestination()
}

// DomesticState is a shipping destination inside India.
type DomesticState struct {
	Code StateCode
}

func (d DomesticState) Category(home StateCode) Category {
	if d.Code == home {
		return CategoryLocal
	}
	return CategoryInterstate
}

func (d DomesticState) String() string {
	return fmt.Sprintf("%s, India", d.Code.Name())
}

func (DomesticState) isDestination() {}

// ForeignRegion is any shipping destination outside India. Region is kept
// verbatim for display only.
type ForeignRegion struct {
	Country string
	Region  string
}

func (ForeignRegion) Category(StateCode) Category {
	return CategoryInternational
}

func (f ForeignRegion) String() string {
	if f.Region == "" {
		return f.Country
	}
	return f.Region + ", " + f.Country
}

func (ForeignRegion) isDestination() {}

// ParseDestination turns customer-entered state and country text into a
// Destination. Domestic addresses must name a recognised state or union
// territory; foreign addresses accept any region.
func ParseDestination(state, country string, home StateCode) (Destination, error) {
	c := normalize(country)
	if c == "" {
		return nil, ErrMissingCountry
	}
	if c != DomesticCountry {
		return ForeignRegion{Country: country, Region: state}, nil
	}

	if normalize(state) == "" {
		return nil, ErrMissingState
	}
	code, ok := LookupState(state, home)
	if !ok {
		return nil, fmt.Errorf("%w: %q", ErrUnknownState, state)
	}
	return DomesticState{Code: code}, nil
}
