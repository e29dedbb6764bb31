package tax

import (
	"context"
	"fmt"

	"github.com/menswear-india/storefront-service/internal/logging"
	"github.com/menswear-india/storefront-service/internal/models"
)

// SettingsReader is the read side of the rate-table store.
type SettingsReader interface {
	ListTaxSettings(ctx context.Context) ([]*models.TaxSetting, error)
}

// Loader reads the rate table from storage into a RateTable snapshot.
type Loader struct {
	reader SettingsReader
	logger *logging.Logger
}

// NewLoader creates a loader over reader.
func NewLoader(reader SettingsReader, logger *logging.Logger) *Loader {
	return &Loader{
		reader: reader,
		logger: logger,
	}
}

// Load takes a fresh snapshot. Rows with unknown names or out-of-range
// percentages are skipped, leaving their category unconfigured.
func (l *Loader) Load(ctx context.Context) (RateTable, error) {
	settings, err := l.reader.ListTaxSettings(ctx)
	if err != nil {
		l.logger.Error("Failed to read tax settings", logging.Fields{"error": err.Error()})
		return RateTable{}, fmt.Errorf("load rate table: %w", err)
	}

	table, skipped := TableFromSettings(settings)
	for _, name := range skipped {
		l.logger.Warn("Ignoring tax setting", logging.Fields{"name": name})
	}

	if missing := table.Missing(); len(missing) > 0 {
		l.logger.Warn("Rate table incomplete, missing categories resolve to 0%", logging.Fields{
			"missing": missing,
		})
	}

	return table, nil
}

// TableFromSettings converts stored rows into a snapshot. A canonical name
// takes precedence over a legacy alias for the same category. It returns the
// names of rows it could not use.
func TableFromSettings(settings []*models.TaxSetting) (RateTable, []string) {
	byCategory := make(map[Category]Rate, len(settings))
	var skipped []string

	for _, s := range settings {
		if s == nil {
			continue
		}
		c, ok := CategoryForSetting(s.Name)
		if !ok || !ValidPercentage(s.Percentage) {
			skipped = append(skipped, s.Name)
			continue
		}
		if existing, seen := byCategory[c]; seen && !IsLegacySetting(existing.Name) && IsLegacySetting(s.Name) {
			continue
		}
		byCategory[c] = Rate{
			Category:    c,
			Name:        s.Name,
			Percentage:  s.Percentage,
			Description: s.Description,
			UpdatedAt:   s.UpdatedAt,
		}
	}

	rates := make([]Rate, 0, len(byCategory))
	for _, c := range Categories() {
		if r, ok := byCategory[c]; ok {
			rates = append(rates, r)
		}
	}
	return NewRateTable(rates...), skipped
}
