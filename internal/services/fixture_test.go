package services

import (
	"context"
	"errors"
	"testing"
	"time"

	"materials_market/internal/errs"
	"materials_market/internal/logger"
	"materials_market/internal/memstore"
	"materials_market/internal/models"
	"materials_market/internal/pricing"
	"materials_market/internal/repository"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var (
	admin  = Actor{ID: 1, Role: "admin"}
	sydney = struct{ lat, lng float64 }{-33.8688, 151.2093}
)

type fixture struct {
	t         *testing.T
	now       time.Time
	store     *memstore.Store
	proposals *memstore.ProposalStore

	orders    OrderService
	workflow  WorkflowService
	suppliers SupplierResolver
	ledger    DeliveryLedger
	invoices  InvoiceService

	nearID, farID uint
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	f := &fixture{t: t, now: time.Date(2026, 3, 1, 9, 0, 0, 0, time.UTC)}
	clock := Clock(func() time.Time { return f.now })
	log := logger.Discard()

	f.store = memstore.New(repository.NumberFormat{Prefix: "ORD-", Width: 5}, repository.NumberFormat{Prefix: "INV-", Width: 5})
	f.proposals = memstore.NewProposalStore(clock)
	locker := memstore.NewLocalLocker()
	calc := pricing.NewCalculator(pricing.DefaultConfig())

	f.orders = NewOrderService(f.store.Orders(), calc, locker, log, clock)
	f.workflow = NewWorkflowService(f.store.Orders(), f.proposals, locker, 10*time.Minute, log, clock)
	f.suppliers = NewSupplierResolver(f.store.Orders(), f.store.Suppliers(), calc, locker, log)
	f.ledger = NewDeliveryLedger(f.store.Orders(), locker, log)
	f.invoices = NewInvoiceService(f.store.Orders(), f.store.Invoices(), calc, log, clock)

	f.nearID = f.addSupplier("Harbour", sydney.lat, sydney.lng, 10, "20", "0", "10")
	f.farID = f.addSupplier("Parramatta", -33.8150, 151.0011, 30, "5", "1", "8")
	f.addSupplier("Too Far", -33.8150, 151.0011, 5, "0", "0", "1")
	return f
}

func (f *fixture) ctx() context.Context { return context.Background() }

func (f *fixture) addSupplier(name string, lat, lng, radius float64, baseFee, perKm, unitCost string) uint {
	f.t.Helper()
	sup := &models.Supplier{
		Name:     name,
		IsActive: true,
		Zones: []models.DeliveryZone{{
			CenterLat: lat, CenterLng: lng, RadiusKm: radius,
			BaseFee: dec(baseFee), PerKmFee: dec(perKm),
		}},
		Offers: []models.SupplierOffer{{ProductID: 1, UnitCost: dec(unitCost), IsActive: true}},
	}
	require.NoError(f.t, f.store.Suppliers().Create(f.ctx(), sup))
	return sup.ID
}

// placeOrder creates an order delivering to Sydney with one item of product 1.
func (f *fixture) placeOrder(quantity string) *models.Order {
	f.t.Helper()
	order, err := f.orders.PlaceOrder(f.ctx(), admin, PlaceOrderInput{
		ClientID:        7,
		ProjectID:       3,
		DeliveryAddress: "1 George St, Sydney",
		DeliveryLat:     sydney.lat,
		DeliveryLng:     sydney.lng,
		Items:           []PlaceOrderItem{{ProductID: 1, Quantity: dec(quantity)}},
	})
	require.NoError(f.t, err)
	return order
}

func (f *fixture) assign(order *models.Order, supplierID uint) *Assignment {
	f.t.Helper()
	res, err := f.suppliers.AssignSupplier(f.ctx(), admin, order.ID, order.Items[0].ID, AssignSupplierInput{SupplierID: supplierID})
	require.NoError(f.t, err)
	return res
}

// scheduled returns an assigned order whose only item is split into deliveries
// of the given quantities on consecutive days.
func (f *fixture) scheduled(quantities ...string) *models.Order {
	f.t.Helper()
	total := decimal.Zero
	entries := make([]DeliveryInput, 0, len(quantities))
	for i, q := range quantities {
		total = total.Add(dec(q))
		entries = append(entries, DeliveryInput{ScheduledAt: f.now.AddDate(0, 0, i+1), Quantity: dec(q)})
	}
	order := f.placeOrder(total.String())
	f.assign(order, f.nearID)
	order, err := f.ledger.ReplaceSchedule(f.ctx(), admin, order.ID, order.Items[0].ID, ScheduleInput{Entries: entries})
	require.NoError(f.t, err)
	return order
}

func dec(s string) decimal.Decimal {
	return decimal.RequireFromString(s)
}

func assertMoney(t *testing.T, want string, got decimal.Decimal) {
	t.Helper()
	assert.Truef(t, dec(want).Equal(got), "want %s got %s", want, got.String())
}

func assertKind(t *testing.T, err error, target *errs.Error) {
	t.Helper()
	require.Error(t, err)
	assert.True(t, errors.Is(err, target), "want %s error, got %v", target.Kind, err)
}
