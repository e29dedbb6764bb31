package models

import (
	"time"

	"github.com/shopspring/decimal"
)

// TaxSetting is one row of the GST rate table as stored.
type TaxSetting struct {
	Name        string          `json:"name"`
	Percentage  decimal.Decimal `json:"percentage"`
	Description string          `json:"description"`
	UpdatedAt   time.Time       `json:"updated_at"`
}

// UpdateTaxSettingRequest changes the percentage of one setting.
type UpdateTaxSettingRequest struct {
	Percentage  *decimal.Decimal `json:"percentage" binding:"required"`
	Description *string          `json:"description"`
}
