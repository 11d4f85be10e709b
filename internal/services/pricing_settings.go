package services

import (
	"context"

	"materials_market/internal/errs"
	"materials_market/internal/models"
	"materials_market/internal/pricing"
	"materials_market/internal/repository"

	"github.com/shopspring/decimal"
	"github.com/sirupsen/logrus"
)

// LoadPricingConfig applies active persisted settings on top of base.
func LoadPricingConfig(ctx context.Context, settings repository.PricingSettingsRepository, base pricing.Config, log logrus.FieldLogger) (pricing.Config, error) {
	rows, err := settings.GetActive(ctx)
	if err != nil {
		return base, err
	}
	cfg := base
	for _, row := range rows {
		switch row.SettingName {
		case models.SettingAdminMargin:
			cfg.AdminMargin = row.Rate
		case models.SettingGSTRate:
			cfg.GSTRate = row.Rate
		default:
			log.WithField("setting", row.SettingName).Warn("ignoring unknown pricing setting")
		}
	}
	if err := cfg.Validate(); err != nil {
		return base, err
	}
	return cfg, nil
}

// SavePricingRate persists a known pricing rate. The change applies to
// calculators built after it, not to running ones.
func SavePricingRate(ctx context.Context, settings repository.PricingSettingsRepository, actor Actor, name string, rate decimal.Decimal) error {
	const op = "pricing.save_rate"
	if err := requireActor(op, actor); err != nil {
		return err
	}
	if name != models.SettingAdminMargin && name != models.SettingGSTRate {
		return errs.Validation(op, "unknown pricing setting %q", name)
	}
	if err := requireNonNegative(op, name, rate); err != nil {
		return err
	}
	return settings.Upsert(ctx, name, rate, actor.ID)
}
