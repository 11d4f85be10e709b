package repository

import (
	"context"
	"time"

	"materials_market/internal/models"

	"github.com/shopspring/decimal"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

type PricingSettingsRepository interface {
	Upsert(ctx context.Context, name string, rate decimal.Decimal, createdBy uint) error
	GetActive(ctx context.Context) ([]models.PricingSetting, error)
}

type pricingSettingsRepository struct {
	db *gorm.DB
}

func NewPricingSettingsRepository(db *gorm.DB) PricingSettingsRepository {
	return &pricingSettingsRepository{db: db}
}

func (r *pricingSettingsRepository) Upsert(ctx context.Context, name string, rate decimal.Decimal, createdBy uint) error {
	setting := models.PricingSetting{
		SettingName: name,
		Rate:        rate,
		IsActive:    true,
		CreatedBy:   createdBy,
		UpdatedAt:   time.Now(),
	}
	err := r.db.WithContext(ctx).Clauses(clause.OnConflict{
		Columns:   []clause.Column{{Name: "setting_name"}},
		DoUpdates: clause.AssignmentColumns([]string{"rate", "is_active", "updated_at"}),
	}).Create(&setting).Error
	return translate("pricing_settings.upsert", err)
}

func (r *pricingSettingsRepository) GetActive(ctx context.Context) ([]models.PricingSetting, error) {
	var settings []models.PricingSetting
	err := r.db.WithContext(ctx).Where("is_active = ?", true).Order("setting_name").Find(&settings).Error
	return settings, translate("pricing_settings.list", err)
}
