package repository

import (
	"context"
	"fmt"
	"os"
	"sort"
	"sync"
	"time"

	"github.com/shopspring/decimal"
	"gopkg.in/yaml.v3"

	"github.com/menswear-india/storefront-service/internal/apperrors"
	"github.com/menswear-india/storefront-service/internal/models"
	"github.com/menswear-india/storefront-service/internal/tax"
)

type settingsFile struct {
	Settings []struct {
		Name        string  `yaml:"name"`
		Percentage  float64 `yaml:"percentage"`
		Description string  `yaml:"description"`
	} `yaml:"gst_settings"`
}

// ParseTaxSettings decodes a YAML rate-table seed.
func ParseTaxSettings(data []byte) ([]*models.TaxSetting, error) {
	var f settingsFile
	if err := yaml.Unmarshal(data, &f); err != nil {
		return nil, fmt.Errorf("parse tax settings: %w", err)
	}

	out := make([]*models.TaxSetting, 0, len(f.Settings))
	for _, s := range f.Settings {
		if s.Name == "" {
			return nil, fmt.Errorf("parse tax settings: entry without name")
		}
		out = append(out, &models.TaxSetting{
			Name:        s.Name,
			Percentage:  decimal.NewFromFloat(s.Percentage),
			Description: s.Description,
		})
	}
	return out, nil
}

// LoadTaxSettingsFile reads and decodes a YAML rate-table seed from disk.
func LoadTaxSettingsFile(path string) ([]*models.TaxSetting, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	return ParseTaxSettings(data)
}

// MemoryTaxSettingsRepository keeps the rate table in process memory. It backs
// local development and tests.
type MemoryTaxSettingsRepository struct {
	mu       sync.RWMutex
	settings map[string]models.TaxSetting
	now      func() time.Time
}

// NewMemoryTaxSettingsRepository creates an empty in-memory store.
func NewMemoryTaxSettingsRepository() *MemoryTaxSettingsRepository {
	return &MemoryTaxSettingsRepository{
		settings: make(map[string]models.TaxSetting),
		now:      func() time.Time { return time.Now().UTC() },
	}
}

func (m *MemoryTaxSettingsRepository) ListTaxSettings(ctx context.Context) ([]*models.TaxSetting, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	out := make([]*models.TaxSetting, 0, len(m.settings))
	for _, s := range m.settings {
		s := s
		out = append(out, &s)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Name < out[j].Name })
	return out, nil
}

func (m *MemoryTaxSettingsRepository) GetTaxSetting(ctx context.Context, name string) (*models.TaxSetting, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	s, ok := m.settings[name]
	if !ok {
		return nil, apperrors.ErrNotFound
	}
	return &s, nil
}

func (m *MemoryTaxSettingsRepository) UpdateTaxSetting(ctx context.Context, name string, update *models.UpdateTaxSettingRequest) (*models.TaxSetting, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	s, ok := m.settings[name]
	if !ok {
		return nil, apperrors.ErrNotFound
	}
	s.Percentage = *update.Percentage
	if update.Description != nil {
		s.Description = *update.Description
	}
	s.UpdatedAt = m.now()
	m.settings[name] = s
	return &s, nil
}

func (m *MemoryTaxSettingsRepository) SeedTaxSettings(ctx context.Context, settings []*models.TaxSetting) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	for _, s := range settings {
		if _, exists := m.settings[s.Name]; exists {
			continue
		}
		seeded := *s
		seeded.UpdatedAt = m.now()
		m.settings[s.Name] = seeded
	}
	return nil
}

// MigrateLegacyTaxSettings copies each legacy row to its canonical name when
// the canonical row is missing. It returns the number of rows copied.
func (m *MemoryTaxSettingsRepository) MigrateLegacyTaxSettings(ctx context.Context) (int, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	migrated := 0
	for _, c := range tax.Categories() {
		canonical := c.SettingName()
		if _, exists := m.settings[canonical]; exists {
			continue
		}
		for _, legacy := range c.LegacySettingNames() {
			s, ok := m.settings[legacy]
			if !ok {
				continue
			}
			s.Name = canonical
			m.settings[canonical] = s
			migrated++
			break
		}
	}
	return migrated, nil
}

// Delete removes a row. Used to simulate a partially configured table.
func (m *MemoryTaxSettingsRepository) Delete(name string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.settings, name)
}
