package services

import (
	"testing"

	"materials_market/internal/errs"
	"materials_market/internal/models"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestScheduleDeliveryWithinQuantity(t *testing.T) {
	f := newFixture(t)
	order := f.placeOrder("5")
	itemID := order.Items[0].ID

	updated, err := f.ledger.ScheduleDelivery(f.ctx(), admin, order.ID, itemID, DeliveryInput{ScheduledAt: f.now.AddDate(0, 0, 2), Quantity: dec("3")})
	require.NoError(t, err)
	require.Len(t, updated.Items[0].Deliveries, 1)
	assert.Equal(t, models.DeliveryPending, updated.Items[0].Deliveries[0].Confirmation)

	_, err = f.ledger.ScheduleDelivery(f.ctx(), admin, order.ID, itemID, DeliveryInput{ScheduledAt: f.now, Quantity: dec("2.5")})
	assertKind(t, err, errs.ErrValidation)
	_, err = f.ledger.ScheduleDelivery(f.ctx(), admin, order.ID, itemID, DeliveryInput{Quantity: dec("1")})
	assertKind(t, err, errs.ErrValidation)
	_, err = f.ledger.ScheduleDelivery(f.ctx(), admin, order.ID, itemID, DeliveryInput{ScheduledAt: f.now, Quantity: dec("0")})
	assertKind(t, err, errs.ErrValidation)

	updated, err = f.ledger.ScheduleDelivery(f.ctx(), admin, order.ID, itemID, DeliveryInput{ScheduledAt: f.now.AddDate(0, 0, 1), Quantity: dec("2")})
	require.NoError(t, err)
	ds := updated.Items[0].Deliveries
	require.Len(t, ds, 2)
	assert.True(t, ds[0].ScheduledAt.Before(ds[1].ScheduledAt), "deliveries come back in schedule order")
	assert.True(t, updated.Items[0].UnscheduledQuantity().IsZero())
}

func TestRescheduleAndRemove(t *testing.T) {
	f := newFixture(t)
	order := f.scheduled("3", "2")
	first := order.Items[0].Deliveries[0]

	_, err := f.ledger.ConfirmDelivery(f.ctx(), admin, order.ID, first.ID)
	require.NoError(t, err)

	moved, err := f.ledger.RescheduleDelivery(f.ctx(), admin, order.ID, first.ID, DeliveryInput{ScheduledAt: f.now.AddDate(0, 0, 5), Quantity: dec("3")})
	require.NoError(t, err)
	_, d := moved.Delivery(first.ID)
	require.NotNil(t, d)
	assert.Equal(t, models.DeliveryPending, d.Confirmation, "moving a delivery needs reconfirmation")

	_, err = f.ledger.RescheduleDelivery(f.ctx(), admin, order.ID, first.ID, DeliveryInput{ScheduledAt: f.now, Quantity: dec("4")})
	assertKind(t, err, errs.ErrValidation)

	removed, err := f.ledger.RemoveDelivery(f.ctx(), admin, order.ID, first.ID)
	require.NoError(t, err)
	require.Len(t, removed.Items[0].Deliveries, 1)
	assertMoney(t, "3", removed.Items[0].UnscheduledQuantity())

	_, err = f.ledger.RemoveDelivery(f.ctx(), admin, order.ID, first.ID)
	assertKind(t, err, errs.ErrNotFound)
}

func TestConfirmDeliveryNeedsSupplier(t *testing.T) {
	f := newFixture(t)
	order := f.placeOrder("2")
	order, err := f.ledger.ScheduleDelivery(f.ctx(), admin, order.ID, order.Items[0].ID, DeliveryInput{ScheduledAt: f.now, Quantity: dec("2")})
	require.NoError(t, err)

	_, err = f.ledger.ConfirmDelivery(f.ctx(), admin, order.ID, order.Items[0].Deliveries[0].ID)
	assertKind(t, err, errs.ErrState)
}

func TestReplaceScheduleMustMatchQuantity(t *testing.T) {
	f := newFixture(t)
	order := f.scheduled("3", "2")
	itemID := order.Items[0].ID

	_, err := f.ledger.ReplaceSchedule(f.ctx(), admin, order.ID, itemID, ScheduleInput{Entries: []DeliveryInput{
		{ScheduledAt: f.now, Quantity: dec("4")},
	}})
	assertKind(t, err, errs.ErrValidation)
	_, err = f.ledger.ReplaceSchedule(f.ctx(), admin, order.ID, itemID, ScheduleInput{})
	assertKind(t, err, errs.ErrValidation)

	invoiced := order.Items[0].Deliveries[0].ID
	_, err = f.invoices.Create(f.ctx(), admin, order.ID, CreateInvoiceInput{DeliveryIDs: []uint{invoiced}})
	require.NoError(t, err)

	replaced, err := f.ledger.ReplaceSchedule(f.ctx(), admin, order.ID, itemID, ScheduleInput{Entries: []DeliveryInput{
		{ScheduledAt: f.now.AddDate(0, 0, 3), Quantity: dec("1")},
		{ScheduledAt: f.now.AddDate(0, 0, 4), Quantity: dec("1")},
	}})
	require.NoError(t, err)
	ds := replaced.Items[0].Deliveries
	require.Len(t, ds, 3)
	_, kept := replaced.Delivery(invoiced)
	require.NotNil(t, kept)
	assert.True(t, kept.IsInvoiced())
	assertMoney(t, "3", kept.Quantity)
	assert.True(t, replaced.Items[0].UnscheduledQuantity().IsZero())
}

func TestInvoicedDeliveriesAreFrozen(t *testing.T) {
	f := newFixture(t)
	order := f.scheduled("3", "2")
	target := order.Items[0].Deliveries[0].ID

	_, err := f.invoices.Create(f.ctx(), admin, order.ID, CreateInvoiceInput{DeliveryIDs: []uint{target}})
	require.NoError(t, err)

	_, err = f.ledger.RescheduleDelivery(f.ctx(), admin, order.ID, target, DeliveryInput{ScheduledAt: f.now, Quantity: dec("3")})
	assertKind(t, err, errs.ErrState)
	_, err = f.ledger.RemoveDelivery(f.ctx(), admin, order.ID, target)
	assertKind(t, err, errs.ErrState)
	_, err = f.ledger.ConfirmDelivery(f.ctx(), admin, order.ID, target)
	assertKind(t, err, errs.ErrState)
}
