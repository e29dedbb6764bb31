package tax

import (
	"time"

	"github.com/shopspring/decimal"
)

var (
	minPercentage = decimal.Zero
	maxPercentage = decimal.NewFromInt(100)
)

// ValidPercentage reports whether p lies in [0, 100].
func ValidPercentage(p decimal.Decimal) bool {
	return !p.LessThan(minPercentage) && !p.GreaterThan(maxPercentage)
}

// Rate is the configured percentage for one category.
type Rate struct {
	Category    Category
	Name        string
	Percentage  decimal.Decimal
	Description string
	UpdatedAt   time.Time
}

// RateTable is an immutable snapshot of the configured rates, taken once per
// request. A category may be absent.
type RateTable struct {
	rates map[Category]Rate
}

// NewRateTable builds a snapshot. When a category appears more than once the
// last entry wins.
func NewRateTable(rates ...Rate) RateTable {
	m := make(map[Category]Rate, len(rates))
	for _, r := range rates {
		if !r.Category.Valid() {
			continue
		}
		if r.Name == "" {
			r.Name = r.Category.SettingName()
		}
		m[r.Category] = r
	}
	return RateTable{rates: m}
}

// Lookup returns the rate for c, if configured.
func (t RateTable) Lookup(c Category) (Rate, bool) {
	r, ok := t.rates[c]
	return r, ok
}

// Percentage returns the rate for c, or zero when it is not configured.
func (t RateTable) Percentage(c Category) decimal.Decimal {
	if r, ok := t.rates[c]; ok {
		return r.Percentage
	}
	return decimal.Zero
}

// Rates lists configured rates in classification priority order.
func (t RateTable) Rates() []Rate {
	out := make([]Rate, 0, len(t.rates))
	for _, c := range Categories() {
		if r, ok := t.rates[c]; ok {
			out = append(out, r)
		}
	}
	return out
}

// Missing lists categories with no configured rate.
func (t RateTable) Missing() []Category {
	var out []Category
	for _, c := range Categories() {
		if _, ok := t.rates[c]; !ok {
			out = append(out, c)
		}
	}
	return out
}

// Len is the number of configured categories.
func (t RateTable) Len() int {
	return len(t.rates)
}
