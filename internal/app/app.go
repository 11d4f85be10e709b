// Package app assembles storage, coordination and services from configuration.
package app

import (
	"context"
	"fmt"

	"materials_market/internal/config"
	"materials_market/internal/database"
	"materials_market/internal/memstore"
	"materials_market/internal/migrations"
	"materials_market/internal/pricing"
	"materials_market/internal/redis"
	"materials_market/internal/repository"
	"materials_market/internal/services"

	"github.com/sirupsen/logrus"
	"gorm.io/gorm"
)

type Repositories struct {
	Orders    repository.OrderRepository
	Invoices  repository.InvoiceRepository
	Suppliers repository.SupplierRepository
	Settings  repository.PricingSettingsRepository
}

type App struct {
	Config *config.Config
	Log    logrus.FieldLogger
	DB     *gorm.DB
	Repos  Repositories

	Orders    services.OrderService
	Workflow  services.WorkflowService
	Suppliers services.SupplierResolver
	Ledger    services.DeliveryLedger
	Invoices  services.InvoiceService

	closers []func() error
}

// New opens the configured storage and wires every service on top of it.
func New(ctx context.Context, cfg *config.Config, log logrus.FieldLogger) (*App, error) {
	a := &App{Config: cfg, Log: log}
	orderFormat := repository.NumberFormat{Prefix: cfg.OrderPrefix, Width: cfg.InvoiceNumberWidth}
	invoiceFormat := repository.NumberFormat{Prefix: cfg.InvoicePrefix, Width: cfg.InvoiceNumberWidth}

	switch cfg.StorageDriver {
	case config.DriverMemory:
		store := memstore.New(orderFormat, invoiceFormat)
		a.Repos = Repositories{Orders: store.Orders(), Invoices: store.Invoices(), Suppliers: store.Suppliers(), Settings: store.PricingSettings()}
		for _, s := range migrations.DemoSuppliers() {
			s := s
			if err := a.Repos.Suppliers.Create(ctx, &s); err != nil {
				return nil, err
			}
		}
		log.Info("Using in-memory storage with demo suppliers")
	case config.DriverPostgres:
		db, err := database.Initialize(cfg.DatabaseURL, cfg.LogLevel)
		if err != nil {
			return nil, fmt.Errorf("failed to connect to database: %w", err)
		}
		if err := migrations.RunMigrations(db, log); err != nil {
			return nil, fmt.Errorf("failed to migrate database: %w", err)
		}
		a.DB = db
		a.Repos = Repositories{
			Orders:    repository.NewOrderRepository(db, orderFormat),
			Invoices:  repository.NewInvoiceRepository(db, invoiceFormat),
			Suppliers: repository.NewSupplierRepository(db),
			Settings:  repository.NewPricingSettingsRepository(db),
		}
		if sqlDB, err := db.DB(); err == nil {
			a.closers = append(a.closers, sqlDB.Close)
		}
	default:
		return nil, fmt.Errorf("unknown storage driver %q", cfg.StorageDriver)
	}

	var (
		locker    services.Locker
		proposals services.ProposalStore
	)
	if cfg.RedisURL != "" {
		rc, err := redis.Initialize(cfg.RedisURL, cfg.OrderLockTTL)
		if err != nil {
			return nil, err
		}
		locker, proposals = rc, rc
		a.closers = append(a.closers, rc.Close)
	} else {
		log.Warn("REDIS_URL not set, order locks and payment proposals are process local")
		locker = memstore.NewLocalLocker()
		proposals = memstore.NewProposalStore(nil)
	}

	pricingCfg, err := services.LoadPricingConfig(ctx, a.Repos.Settings, cfg.Pricing(), log)
	if err != nil {
		return nil, err
	}
	calc := pricing.NewCalculator(pricingCfg)

	a.Orders = services.NewOrderService(a.Repos.Orders, calc, locker, log, nil)
	a.Workflow = services.NewWorkflowService(a.Repos.Orders, proposals, locker, cfg.PaymentProposalTTL, log, nil)
	a.Suppliers = services.NewSupplierResolver(a.Repos.Orders, a.Repos.Suppliers, calc, locker, log)
	a.Ledger = services.NewDeliveryLedger(a.Repos.Orders, locker, log)
	a.Invoices = services.NewInvoiceService(a.Repos.Orders, a.Repos.Invoices, calc, log, nil)
	return a, nil
}

func (a *App) Close() {
	for i := len(a.closers) - 1; i >= 0; i-- {
		if err := a.closers[i](); err != nil {
			a.Log.WithError(err).Warn("close failed")
		}
	}
}
