package services

import (
	"context"
	"time"

	"materials_market/internal/errs"
	"materials_market/internal/models"
	"materials_market/internal/repository"

	"github.com/shopspring/decimal"
	"github.com/sirupsen/logrus"
)

type DeliveryInput struct {
	ScheduledAt time.Time       `json:"scheduled_at" validate:"required"`
	Quantity    decimal.Decimal `json:"quantity"`
}

type ScheduleInput struct {
	Entries []DeliveryInput `json:"entries" validate:"required,min=1,dive"`
}

// DeliveryLedger maintains the scheduled deliveries of each item. Invoiced
// deliveries are frozen.
type DeliveryLedger interface {
	ScheduleDelivery(ctx context.Context, actor Actor, orderID, itemID uint, input DeliveryInput) (*models.Order, error)
	RescheduleDelivery(ctx context.Context, actor Actor, orderID, deliveryID uint, input DeliveryInput) (*models.Order, error)
	RemoveDelivery(ctx context.Context, actor Actor, orderID, deliveryID uint) (*models.Order, error)
	ConfirmDelivery(ctx context.Context, actor Actor, orderID, deliveryID uint) (*models.Order, error)
	// ReplaceSchedule swaps every uninvoiced delivery of the item for entries.
	// Invoiced deliveries plus entries must add up to the item quantity.
	ReplaceSchedule(ctx context.Context, actor Actor, orderID, itemID uint, input ScheduleInput) (*models.Order, error)
}

type deliveryLedger struct {
	orders repository.OrderRepository
	locker Locker
	log    logrus.FieldLogger
}

func NewDeliveryLedger(orders repository.OrderRepository, locker Locker, log logrus.FieldLogger) DeliveryLedger {
	return &deliveryLedger{orders: orders, locker: locker, log: log.WithField("module", "deliveries")}
}

func validateDelivery(op string, input DeliveryInput) error {
	if err := validateInput(op, input); err != nil {
		return err
	}
	return requirePositive(op, "delivery quantity", input.Quantity)
}

func (s *deliveryLedger) ScheduleDelivery(ctx context.Context, actor Actor, orderID, itemID uint, input DeliveryInput) (*models.Order, error) {
	const op = "deliveries.schedule"
	if err := requireActor(op, actor); err != nil {
		return nil, err
	}
	if err := validateDelivery(op, input); err != nil {
		return nil, err
	}
	return s.mutate(ctx, op, actor, orderID, func(order *models.Order) error {
		item, err := findItem(op, order, itemID)
		if err != nil {
			return err
		}
		if open := item.UnscheduledQuantity(); input.Quantity.GreaterThan(open) {
			return errs.Validation(op, "quantity %s exceeds the unscheduled %s of item %d", input.Quantity, open, itemID)
		}
		item.Deliveries = append(item.Deliveries, models.Delivery{
			ItemID:       item.ID,
			ScheduledAt:  input.ScheduledAt,
			Quantity:     input.Quantity,
			Confirmation: models.DeliveryPending,
		})
		return nil
	})
}

func (s *deliveryLedger) RescheduleDelivery(ctx context.Context, actor Actor, orderID, deliveryID uint, input DeliveryInput) (*models.Order, error) {
	const op = "deliveries.reschedule"
	if err := requireActor(op, actor); err != nil {
		return nil, err
	}
	if err := validateDelivery(op, input); err != nil {
		return nil, err
	}
	return s.mutate(ctx, op, actor, orderID, func(order *models.Order) error {
		item, d, err := openDelivery(op, order, deliveryID)
		if err != nil {
			return err
		}
		open := item.UnscheduledQuantity().Add(d.Quantity)
		if input.Quantity.GreaterThan(open) {
			return errs.Validation(op, "quantity %s exceeds the unscheduled %s of item %d", input.Quantity, open, item.ID)
		}
		if !d.ScheduledAt.Equal(input.ScheduledAt) || !d.Quantity.Equal(input.Quantity) {
			d.Confirmation = models.DeliveryPending
		}
		d.ScheduledAt = input.ScheduledAt
		d.Quantity = input.Quantity
		return nil
	})
}

func (s *deliveryLedger) RemoveDelivery(ctx context.Context, actor Actor, orderID, deliveryID uint) (*models.Order, error) {
	const op = "deliveries.remove"
	if err := requireActor(op, actor); err != nil {
		return nil, err
	}
	return s.mutate(ctx, op, actor, orderID, func(order *models.Order) error {
		item, _, err := openDelivery(op, order, deliveryID)
		if err != nil {
			return err
		}
		kept := item.Deliveries[:0]
		for _, d := range item.Deliveries {
			if d.ID != deliveryID {
				kept = append(kept, d)
			}
		}
		item.Deliveries = kept
		return nil
	})
}

func (s *deliveryLedger) ConfirmDelivery(ctx context.Context, actor Actor, orderID, deliveryID uint) (*models.Order, error) {
	const op = "deliveries.confirm"
	if err := requireActor(op, actor); err != nil {
		return nil, err
	}
	return s.mutate(ctx, op, actor, orderID, func(order *models.Order) error {
		item, d, err := openDelivery(op, order, deliveryID)
		if err != nil {
			return err
		}
		if !item.HasSupplier() {
			return errs.State(op, "item %d has no supplier to confirm the delivery", item.ID)
		}
		d.Confirmation = models.DeliveryConfirmed
		return nil
	})
}

func (s *deliveryLedger) ReplaceSchedule(ctx context.Context, actor Actor, orderID, itemID uint, input ScheduleInput) (*models.Order, error) {
	const op = "deliveries.replace"
	if err := requireActor(op, actor); err != nil {
		return nil, err
	}
	if err := validateInput(op, input); err != nil {
		return nil, err
	}
	for _, e := range input.Entries {
		if err := requirePositive(op, "delivery quantity", e.Quantity); err != nil {
			return nil, err
		}
	}
	return s.mutate(ctx, op, actor, orderID, func(order *models.Order) error {
		item, err := findItem(op, order, itemID)
		if err != nil {
			return err
		}

		next := make([]models.Delivery, 0, len(item.Deliveries)+len(input.Entries))
		total := decimal.Zero
		for _, d := range item.Deliveries {
			if d.IsInvoiced() {
				next = append(next, d)
				total = total.Add(d.Quantity)
			}
		}
		for _, e := range input.Entries {
			next = append(next, models.Delivery{
				ItemID:       item.ID,
				ScheduledAt:  e.ScheduledAt,
				Quantity:     e.Quantity,
				Confirmation: models.DeliveryPending,
			})
			total = total.Add(e.Quantity)
		}
		if !total.Equal(item.Quantity) {
			return errs.Validation(op, "schedule totals %s but item %d needs %s", total, itemID, item.Quantity)
		}
		item.Deliveries = next
		return nil
	})
}

// openDelivery finds a delivery that may still change.
func openDelivery(op string, order *models.Order, deliveryID uint) (*models.OrderItem, *models.Delivery, error) {
	item, d := order.Delivery(deliveryID)
	if d == nil {
		return nil, nil, errs.NotFound(op, "delivery %d not found on order %d", deliveryID, order.ID)
	}
	if d.IsInvoiced() {
		return nil, nil, errs.State(op, "delivery %d is invoiced and frozen", deliveryID)
	}
	return item, d, nil
}

func (s *deliveryLedger) mutate(ctx context.Context, op string, actor Actor, orderID uint, fn func(*models.Order) error) (*models.Order, error) {
	order, err := mutateOrder(ctx, s.locker, s.orders, orderID, func(order *models.Order) error {
		if err := requireEditable(op, order); err != nil {
			return err
		}
		return fn(order)
	})
	if err != nil {
		return nil, err
	}
	s.log.WithFields(logrus.Fields{"op": op, "order_id": orderID, "actor_id": actor.ID}).Info("delivery ledger updated")
	return order, nil
}
