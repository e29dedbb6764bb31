package service

import (
	"context"
	"errors"
	"strings"
	"time"

	"github.com/shopspring/decimal"

	"github.com/menswear-india/storefront-service/internal/apperrors"
	"github.com/menswear-india/storefront-service/internal/logging"
	"github.com/menswear-india/storefront-service/internal/models"
	"github.com/menswear-india/storefront-service/internal/repository"
	"github.com/menswear-india/storefront-service/internal/tax"
)

// TaxSettingView is a stored rate together with the category it drives.
type TaxSettingView struct {
	Name        string          `json:"name"`
	Category    tax.Category    `json:"category"`
	Label       string          `json:"gst_label"`
	Percentage  decimal.Decimal `json:"percentage"`
	Description string          `json:"description"`
	UpdatedAt   time.Time       `json:"updated_at"`
}

// TaxSettingsService administers the GST rate table. Edits apply to
// calculations that start after the write commits.
type TaxSettingsService struct {
	repo   repository.TaxSettingsRepository
	logger *logging.Logger
}

// NewTaxSettingsService creates a tax settings service.
func NewTaxSettingsService(repo repository.TaxSettingsRepository, logger *logging.Logger) *TaxSettingsService {
	return &TaxSettingsService{
		repo:   repo,
		logger: logger,
	}
}

// ListSettings returns every stored rate. Rows whose name maps to no
// category are still listed, with an empty category.
func (s *TaxSettingsService) ListSettings(ctx context.Context) ([]TaxSettingView, error) {
	settings, err := s.repo.ListTaxSettings(ctx)
	if err != nil {
		s.logger.Error("Failed to list tax settings", logging.Fields{"error": err.Error()})
		return nil, err
	}

	views := make([]TaxSettingView, 0, len(settings))
	for _, setting := range settings {
		views = append(views, toView(setting))
	}
	return views, nil
}

// Bootstrap prepares the rate table at startup. Legacy rows are copied to
// their canonical names first so the seed cannot shadow an edited rate; the
// seed then inserts whatever is still missing.
func (s *TaxSettingsService) Bootstrap(ctx context.Context, seed []*models.TaxSetting) error {
	migrated, err := s.repo.MigrateLegacyTaxSettings(ctx)
	if err != nil {
		return err
	}
	if migrated > 0 {
		s.logger.Info("Copied legacy tax settings to canonical names", logging.Fields{"count": migrated})
	}

	if len(seed) == 0 {
		return nil
	}
	return s.repo.SeedTaxSettings(ctx, seed)
}

// UpdateSetting changes one rate. name may be a canonical setting name or a
// legacy alias. The canonical row is updated when it exists, otherwise the
// category's legacy row.
func (s *TaxSettingsService) UpdateSetting(ctx context.Context, name string, req *models.UpdateTaxSettingRequest) (*TaxSettingView, error) {
	if err := ValidateTaxPercentage(req.Percentage); err != nil {
		return nil, err
	}

	name = strings.ToLower(strings.TrimSpace(name))
	category, ok := tax.CategoryForSetting(name)
	if !ok {
		return nil, apperrors.ErrNotFound
	}

	s.logger.Info("Updating tax setting", logging.Fields{
		"name":       name,
		"category":   category,
		"percentage": req.Percentage.String(),
	})

	updated, err := s.repo.UpdateTaxSetting(ctx, category.SettingName(), req)
	for _, legacy := range category.LegacySettingNames() {
		if !errors.Is(err, apperrors.ErrNotFound) {
			break
		}
		updated, err = s.repo.UpdateTaxSetting(ctx, legacy, req)
	}
	if err != nil {
		return nil, err
	}

	view := toView(updated)
	return &view, nil
}

func toView(setting *models.TaxSetting) TaxSettingView {
	view := TaxSettingView{
		Name:        setting.Name,
		Percentage:  setting.Percentage,
		Description: setting.Description,
		UpdatedAt:   setting.UpdatedAt,
	}
	if c, ok := tax.CategoryForSetting(setting.Name); ok {
		view.Category = c
		view.Label = c.Label()
	}
	return view
}
