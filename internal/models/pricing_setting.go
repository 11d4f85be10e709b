package models

import (
	"time"

	"github.com/shopspring/decimal"
)

// PricingSetting overrides a pricing constant from configuration.
type PricingSetting struct {
	ID          uint            `json:"id" gorm:"primaryKey"`
	SettingName string          `json:"setting_name" gorm:"uniqueIndex;not null"` // admin_margin, gst_rate
	Rate        decimal.Decimal `json:"rate" gorm:"type:decimal(10,4);not null"`
	IsActive    bool            `json:"is_active" gorm:"not null"`
	CreatedBy   uint            `json:"created_by" gorm:"not null"`
	CreatedAt   time.Time       `json:"created_at"`
	UpdatedAt   time.Time       `json:"updated_at"`
}

const (
	SettingAdminMargin = "admin_margin"
	SettingGSTRate     = "gst_rate"
)
