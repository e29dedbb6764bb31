package repository

import (
	"context"
	"database/sql"
	_ "embed"
	"errors"
	"time"

	"github.com/menswear-india/storefront-service/internal/apperrors"
	"github.com/menswear-india/storefront-service/internal/logging"
	"github.com/menswear-india/storefront-service/internal/models"
	"github.com/menswear-india/storefront-service/internal/tax"
)

//go:embed schema.sql
var schemaSQL string

// EnsureSchema creates the tables used by the service if they are missing.
func EnsureSchema(ctx context.Context, db *sql.DB) error {
	_, err := db.ExecContext(ctx, schemaSQL)
	return err
}

// PostgresTaxSettingsRepository stores the GST rate table in gst_settings.
type PostgresTaxSettingsRepository struct {
	db     *sql.DB
	logger *logging.Logger
}

// NewPostgresTaxSettingsRepository creates a settings repository over db.
func NewPostgresTaxSettingsRepository(db *sql.DB, logger *logging.Logger) *PostgresTaxSettingsRepository {
	return &PostgresTaxSettingsRepository{
		db:     db,
		logger: logger,
	}
}

// ListTaxSettings returns every stored rate, ordered by name.
func (r *PostgresTaxSettingsRepository) ListTaxSettings(ctx context.Context) ([]*models.TaxSetting, error) {
	rows, err := r.db.QueryContext(ctx, `
		SELECT name, percentage, description, updated_at
		FROM gst_settings
		ORDER BY name
	`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	settings := make([]*models.TaxSetting, 0, 3)
	for rows.Next() {
		var s models.TaxSetting
		if err := rows.Scan(&s.Name, &s.Percentage, &s.Description, &s.UpdatedAt); err != nil {
			return nil, err
		}
		settings = append(settings, &s)
	}
	return settings, rows.Err()
}

// GetTaxSetting returns one stored rate.
func (r *PostgresTaxSettingsRepository) GetTaxSetting(ctx context.Context, name string) (*models.TaxSetting, error) {
	var s models.TaxSetting
	err := r.db.QueryRowContext(ctx, `
		SELECT name, percentage, description, updated_at
		FROM gst_settings
		WHERE name = $1
	`, name).Scan(&s.Name, &s.Percentage, &s.Description, &s.UpdatedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, apperrors.ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	return &s, nil
}

// UpdateTaxSetting changes the percentage, and optionally the description, of
// an existing row.
func (r *PostgresTaxSettingsRepository) UpdateTaxSetting(ctx context.Context, name string, update *models.UpdateTaxSettingRequest) (*models.TaxSetting, error) {
	var description sql.NullString
	if update.Description != nil {
		description = sql.NullString{String: *update.Description, Valid: true}
	}

	var s models.TaxSetting
	err := r.db.QueryRowContext(ctx, `
		UPDATE gst_settings
		SET percentage = $2, description = COALESCE($3, description), updated_at = $4
		WHERE name = $1
		RETURNING name, percentage, description, updated_at
	`, name, *update.Percentage, description, time.Now().UTC()).Scan(&s.Name, &s.Percentage, &s.Description, &s.UpdatedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, apperrors.ErrNotFound
	}
	if err != nil {
		r.logger.Error("Failed to update tax setting", logging.Fields{
			"name":  name,
			"error": err.Error(),
		})
		return nil, err
	}

	r.logger.Info("Tax setting updated", logging.Fields{
		"name":       s.Name,
		"percentage": s.Percentage.String(),
	})
	return &s, nil
}

// SeedTaxSettings inserts rows that do not exist yet. Existing rows keep
// their admin-edited values.
func (r *PostgresTaxSettingsRepository) SeedTaxSettings(ctx context.Context, settings []*models.TaxSetting) error {
	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	defer tx.Rollback()

	for _, s := range settings {
		if _, err := tx.ExecContext(ctx, `
			INSERT INTO gst_settings (name, percentage, description, updated_at)
			VALUES ($1, $2, $3, $4)
			ON CONFLICT (name) DO NOTHING
		`, s.Name, s.Percentage, s.Description, time.Now().UTC()); err != nil {
			return err
		}
	}

	return tx.Commit()
}

// MigrateLegacyTaxSettings copies each legacy row to its canonical name,
// keeping percentage, description and timestamp. Canonical rows that already
// exist are left alone. It returns the number of rows copied.
func (r *PostgresTaxSettingsRepository) MigrateLegacyTaxSettings(ctx context.Context) (int, error) {
	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return 0, err
	}
	defer tx.Rollback()

	migrated := 0
	for _, c := range tax.Categories() {
		for _, legacy := range c.LegacySettingNames() {
			result, err := tx.ExecContext(ctx, `
				INSERT INTO gst_settings (name, percentage, description, updated_at)
				SELECT $1, percentage, description, updated_at
				FROM gst_settings
				WHERE name = $2
				ON CONFLICT (name) DO NOTHING
			`, c.SettingName(), legacy)
			if err != nil {
				return 0, err
			}
			if n, err := result.RowsAffected(); err == nil {
				migrated += int(n)
			}
		}
	}

	if err := tx.Commit(); err != nil {
		return 0, err
	}
	return migrated, nil
}
