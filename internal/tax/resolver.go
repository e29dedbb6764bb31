package tax

import "github.com/shopspring/decimal"

// Resolution is the outcome of resolving a destination against a rate table.
// Configured is false when the table had no entry for Category and the
// percentage fell back to zero.
type Resolution struct {
	Category   Category        `json:"category"`
	Percentage decimal.Decimal `json:"percentage"`
	Label      string          `json:"gst_label"`
	Configured bool            `json:"configured"`
}

// Resolver maps shipping geography to the applicable GST rate. It holds no
// rate state of its own; every call takes the snapshot to resolve against.
type Resolver struct {
	classifier Classifier
}

// NewResolver returns a resolver for a store whose home state is home.
func NewResolver(home StateCode) *Resolver {
	if !home.Valid() {
		home = StateAndhraPradesh
	}
	return &Resolver{classifier: Classifier{Home: home}}
}

// Home is the state treated as local.
func (r *Resolver) Home() StateCode {
	return r.classifier.Home
}

// Resolve classifies free-text state and country and looks the category up
// in table. It is total over its inputs.
func (r *Resolver) Resolve(table RateTable, state, country string) Resolution {
	return r.forCategory(table, r.classifier.Classify(state, country))
}

// ResolveDestination looks up the rate for an already parsed destination.
func (r *Resolver) ResolveDestination(table RateTable, dest Destination) Resolution {
	return r.forCategory(table, dest.Category(r.classifier.Home))
}

// ParseDestination parses address text relative to the resolver's home state.
func (r *Resolver) ParseDestination(state, country string) (Destination, error) {
	return ParseDestination(state, country, r.classifier.Home)
}

func (r *Resolver) forCategory(table RateTable, c Category) Resolution {
	rate, ok := table.Lookup(c)
	res := Resolution{
		Category:   c,
		Percentage: decimal.Zero,
		Label:      c.Label(),
		Configured: ok,
	}
	if ok {
		res.Percentage = rate.Percentage
	}
	return res
}
