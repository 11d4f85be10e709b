package repository_test

import (
	"context"
	"errors"
	"fmt"
	"os"
	"strings"
	"sync"
	"testing"
	"time"

	"materials_market/internal/errs"
	"materials_market/internal/logger"
	"materials_market/internal/migrations"
	"materials_market/internal/models"
	"materials_market/internal/repository"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/driver/postgres"
	"gorm.io/gorm"
	gormlogger "gorm.io/gorm/logger"
)

// setupTestDB opens TEST_DATABASE_URL in a throwaway schema dropped after the test.
func setupTestDB(t *testing.T) *gorm.DB {
	t.Helper()
	dsn := os.Getenv("TEST_DATABASE_URL")
	if dsn == "" {
		t.Skip("TEST_DATABASE_URL not set")
	}

	schema := fmt.Sprintf("test_market_%d", time.Now().UnixNano()%1000000)
	cfg := &gorm.Config{Logger: gormlogger.Default.LogMode(gormlogger.Silent), TranslateError: true}

	setupDB, err := gorm.Open(postgres.Open(dsn), cfg)
	require.NoError(t, err)
	require.NoError(t, setupDB.Exec(fmt.Sprintf("CREATE SCHEMA IF NOT EXISTS %s", schema)).Error)

	db, err := gorm.Open(postgres.Open(withSearchPath(dsn, schema)), cfg)
	if err != nil {
		t.Fatalf("Failed to connect to test database: %v", err)
	}
	require.NoError(t, migrations.RunMigrations(db, logger.Discard()))

	t.Cleanup(func() {
		if sqlDB, _ := db.DB(); sqlDB != nil {
			sqlDB.Close()
		}
		setupDB.Exec(fmt.Sprintf("DROP SCHEMA IF EXISTS %s CASCADE", schema))
		if sqlSetup, _ := setupDB.DB(); sqlSetup != nil {
			sqlSetup.Close()
		}
	})
	return db
}

func withSearchPath(dsn, schema string) string {
	if !strings.HasPrefix(dsn, "postgres://") && !strings.HasPrefix(dsn, "postgresql://") {
		return dsn + " search_path=" + schema
	}
	sep := "?"
	if strings.Contains(dsn, "?") {
		sep = "&"
	}
	return dsn + sep + "search_path=" + schema
}

func d(s string) decimal.Decimal { return decimal.RequireFromString(s) }

func newOrder(supplierID uint) *models.Order {
	day := time.Date(2026, 3, 2, 9, 0, 0, 0, time.UTC)
	return &models.Order{
		ClientID:        7,
		DeliveryAddress: "1 George St, Sydney",
		Workflow:        models.WorkflowSupplierAssigned,
		PaymentStatus:   models.PaymentPending,
		CreatedBy:       1,
		Items: []models.OrderItem{{
			ProductID:        1,
			Quantity:         d("5"),
			SupplierID:       &supplierID,
			SupplierUnitCost: decimal.NewNullDecimal(d("10")),
			Confirmation:     models.ConfirmationAwaiting,
			Deliveries: []models.Delivery{
				{ScheduledAt: day, Quantity: d("3"), Confirmation: models.DeliveryPending},
				{ScheduledAt: day.AddDate(0, 0, 1), Quantity: d("2"), Confirmation: models.DeliveryPending},
			},
		}},
	}
}

func buildFor(ids []uint) repository.BuildInvoiceFunc {
	return func(order *models.Order) (*models.Invoice, error) {
		inv := &models.Invoice{Status: models.InvoiceDraft, IssuedDate: time.Now(), CreatedBy: 1}
		for i, id := range ids {
			item, del := order.Delivery(id)
			if del == nil {
				return nil, errs.NotFound("test.build", "delivery %d", id)
			}
			inv.Lines = append(inv.Lines, models.InvoiceLine{
				Position: i + 1, DeliveryID: id, ItemID: item.ID, ProductID: item.ProductID,
				SupplierID: *item.SupplierID, ScheduledAt: del.ScheduledAt, Quantity: del.Quantity,
			})
		}
		return inv, nil
	}
}

func TestPostgresOrderAndInvoiceClaims(t *testing.T) {
	db := setupTestDB(t)
	ctx := context.Background()
	orders := repository.NewOrderRepository(db, repository.NumberFormat{Prefix: "ORD-", Width: 5})
	invoices := repository.NewInvoiceRepository(db, repository.NumberFormat{Prefix: "INV-", Width: 5})
	suppliers := repository.NewSupplierRepository(db)

	sup := migrations.DemoSuppliers()[0]
	require.NoError(t, suppliers.Create(ctx, &sup))
	listed, err := suppliers.ListForProduct(ctx, 1)
	require.NoError(t, err)
	require.Len(t, listed, 1)

	order := newOrder(sup.ID)
	require.NoError(t, orders.Create(ctx, order))
	assert.Equal(t, "ORD-00001", order.OrderNumber)

	loaded, err := orders.GetByID(ctx, order.ID)
	require.NoError(t, err)
	require.Len(t, loaded.Items[0].Deliveries, 2)
	first := loaded.Items[0].Deliveries[0].ID

	inv, err := invoices.CreateForDeliveries(ctx, order.ID, []uint{first}, buildFor([]uint{first}))
	require.NoError(t, err)
	assert.Equal(t, "INV-00001", inv.InvoiceNumber)
	require.Len(t, inv.Lines, 1)

	_, err = invoices.CreateForDeliveries(ctx, order.ID, []uint{first}, buildFor([]uint{first}))
	assert.True(t, errors.Is(err, errs.ErrConflict), "got %v", err)

	_, err = orders.Mutate(ctx, order.ID, func(o *models.Order) error {
		o.Items[0].Deliveries = o.Items[0].Deliveries[1:]
		return nil
	})
	assert.True(t, errors.Is(err, errs.ErrState), "removing an invoiced delivery: %v", err)

	_, err = orders.GetByID(ctx, 9999)
	assert.True(t, errors.Is(err, errs.ErrNotFound))
}

func TestPostgresConcurrentClaimHasOneWinner(t *testing.T) {
	db := setupTestDB(t)
	ctx := context.Background()
	orders := repository.NewOrderRepository(db, repository.NumberFormat{Prefix: "ORD-", Width: 5})
	invoices := repository.NewInvoiceRepository(db, repository.NumberFormat{Prefix: "INV-", Width: 5})

	order := newOrder(1)
	require.NoError(t, orders.Create(ctx, order))
	loaded, err := orders.GetByID(ctx, order.ID)
	require.NoError(t, err)
	ids := []uint{loaded.Items[0].Deliveries[0].ID, loaded.Items[0].Deliveries[1].ID}

	const workers = 5
	var (
		wg        sync.WaitGroup
		mu        sync.Mutex
		wins      int
		conflicts int
	)
	for i := 0; i < workers; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, err := invoices.CreateForDeliveries(ctx, order.ID, ids, buildFor(ids))
			mu.Lock()
			defer mu.Unlock()
			if err == nil {
				wins++
			} else if errors.Is(err, errs.ErrConflict) {
				conflicts++
			}
		}()
	}
	wg.Wait()
	assert.Equal(t, 1, wins)
	assert.Equal(t, workers-1, conflicts)
}

func TestPostgresPricingSettingsUpsert(t *testing.T) {
	db := setupTestDB(t)
	ctx := context.Background()
	settings := repository.NewPricingSettingsRepository(db)

	require.NoError(t, settings.Upsert(ctx, models.SettingGSTRate, d("0.1"), 1))
	require.NoError(t, settings.Upsert(ctx, models.SettingGSTRate, d("0.15"), 2))
	rows, err := settings.GetActive(ctx)
	require.NoError(t, err)
	require.Len(t, rows, 1)
	assert.True(t, d("0.15").Equal(rows[0].Rate))
}

func TestPostgresInactiveSupplierStaysInactive(t *testing.T) {
	db := setupTestDB(t)
	ctx := context.Background()
	suppliers := repository.NewSupplierRepository(db)

	inactive := &models.Supplier{
		Name:     "Closed Yard",
		IsActive: false,
		Offers:   []models.SupplierOffer{{ProductID: 1, UnitCost: d("9"), IsActive: true}},
	}
	require.NoError(t, suppliers.Create(ctx, inactive))
	withdrawn := &models.Supplier{
		Name:     "Withdrawn Offer",
		IsActive: true,
		Offers:   []models.SupplierOffer{{ProductID: 1, UnitCost: d("8"), IsActive: false}},
	}
	require.NoError(t, suppliers.Create(ctx, withdrawn))

	stored, err := suppliers.GetByID(ctx, inactive.ID)
	require.NoError(t, err)
	assert.False(t, stored.IsActive)
	stored, err = suppliers.GetByID(ctx, withdrawn.ID)
	require.NoError(t, err)
	require.Len(t, stored.Offers, 1)
	assert.False(t, stored.Offers[0].IsActive)

	listed, err := suppliers.ListForProduct(ctx, 1)
	require.NoError(t, err)
	assert.Empty(t, listed)
}
