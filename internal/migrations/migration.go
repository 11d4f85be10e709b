package migrations

import (
	"context"

	"materials_market/internal/models"
	"materials_market/internal/pricing"
	"materials_market/internal/repository"

	"github.com/shopspring/decimal"
	"github.com/sirupsen/logrus"
	"gorm.io/gorm"
)

// RunMigrations creates or updates every table. Existing data is kept.
func RunMigrations(db *gorm.DB, log logrus.FieldLogger) error {
	log.Info("Running database migrations...")
	err := db.AutoMigrate(
		&models.Order{},
		&models.OrderItem{},
		&models.Delivery{},
		&models.Invoice{},
		&models.InvoiceLine{},
		&models.NumberSequence{},
		&models.Supplier{},
		&models.DeliveryZone{},
		&models.SupplierOffer{},
		&models.PricingSetting{},
	)
	if err != nil {
		return err
	}
	log.Info("Database migrations completed successfully!")
	return nil
}

// SeedPricingSettings writes the calculator constants unless a row already exists.
func SeedPricingSettings(ctx context.Context, settings repository.PricingSettingsRepository, cfg pricing.Config, createdBy uint, log logrus.FieldLogger) error {
	existing, err := settings.GetActive(ctx)
	if err != nil {
		return err
	}
	have := make(map[string]bool, len(existing))
	for _, s := range existing {
		have[s.SettingName] = true
	}

	defaults := map[string]decimal.Decimal{
		models.SettingAdminMargin: cfg.AdminMargin,
		models.SettingGSTRate:     cfg.GSTRate,
	}
	for name, rate := range defaults {
		if have[name] {
			continue
		}
		if err := settings.Upsert(ctx, name, rate, createdBy); err != nil {
			return err
		}
		log.WithFields(logrus.Fields{"setting": name, "rate": rate.String()}).Info("pricing setting seeded")
	}
	return nil
}

// SeedDemoSuppliers adds a small directory around Sydney when no supplier exists.
func SeedDemoSuppliers(ctx context.Context, db *gorm.DB, suppliers repository.SupplierRepository, log logrus.FieldLogger) error {
	var count int64
	if err := db.WithContext(ctx).Model(&models.Supplier{}).Count(&count).Error; err != nil {
		return err
	}
	if count > 0 {
		log.Info("Suppliers already present, skipping demo directory")
		return nil
	}
	for _, s := range DemoSuppliers() {
		s := s
		if err := suppliers.Create(ctx, &s); err != nil {
			return err
		}
		log.WithField("supplier", s.Name).Info("demo supplier created")
	}
	return nil
}

// DemoSuppliers lists two suppliers offering products 1 and 2 around Sydney.
func DemoSuppliers() []models.Supplier {
	d := decimal.RequireFromString
	return []models.Supplier{
		{
			Name:     "Harbour Concrete",
			IsActive: true,
			Zones: []models.DeliveryZone{
				{CenterLat: -33.8688, CenterLng: 151.2093, RadiusKm: 40, BaseFee: d("60"), PerKmFee: d("2.5")},
			},
			Offers: []models.SupplierOffer{
				{ProductID: 1, UnitCost: d("180"), IsActive: true},
				{ProductID: 2, UnitCost: d("12.5"), IsActive: true},
			},
		},
		{
			Name:     "Western Sands & Aggregates",
			IsActive: true,
			Zones: []models.DeliveryZone{
				{CenterLat: -33.8150, CenterLng: 151.0011, RadiusKm: 60, BaseFee: d("45"), PerKmFee: d("1.8")},
			},
			Offers: []models.SupplierOffer{
				{ProductID: 2, UnitCost: d("11.9"), IsActive: true},
			},
		},
	}
}
