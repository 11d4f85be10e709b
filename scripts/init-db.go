package main

import (
	"context"
	"fmt"

	"materials_market/internal/config"
	"materials_market/internal/database"
	"materials_market/internal/logger"
	"materials_market/internal/migrations"
	"materials_market/internal/repository"
)

func main() {
	fmt.Println("Initializing database...")

	// Load configuration
	cfg := config.Load()
	log := logger.New(cfg.LogLevel, cfg.LogFormat)
	ctx := context.Background()

	// Initialize database
	db, err := database.Initialize(cfg.DatabaseURL, cfg.LogLevel)
	if err != nil {
		log.WithError(err).Fatal("Failed to connect to database")
	}

	fmt.Println("Creating tables...")
	if err := migrations.RunMigrations(db, log); err != nil {
		log.WithError(err).Fatal("Failed to migrate database")
	}

	fmt.Println("Creating default pricing settings...")
	settingsRepo := repository.NewPricingSettingsRepository(db)
	if err := migrations.SeedPricingSettings(ctx, settingsRepo, cfg.Pricing(), 1, log); err != nil {
		log.WithError(err).Fatal("Failed to seed pricing settings")
	}

	fmt.Println("Creating demo suppliers...")
	supplierRepo := repository.NewSupplierRepository(db)
	if err := migrations.SeedDemoSuppliers(ctx, db, supplierRepo, log); err != nil {
		log.WithError(err).Fatal("Failed to seed suppliers")
	}

	fmt.Println("Database initialization completed successfully!")
}
