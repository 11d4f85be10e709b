package services

import (
	"context"

	"materials_market/internal/errs"
	"materials_market/internal/geo"
	"materials_market/internal/models"
	"materials_market/internal/pricing"
	"materials_market/internal/repository"

	"github.com/shopspring/decimal"
	"github.com/sirupsen/logrus"
)

type PlaceOrderInput struct {
	ClientID        uint             `json:"client_id" validate:"required"`
	ProjectID       uint             `json:"project_id"`
	DeliveryAddress string           `json:"delivery_address" validate:"required"`
	DeliveryLat     float64          `json:"delivery_lat"`
	DeliveryLng     float64          `json:"delivery_lng"`
	Items           []PlaceOrderItem `json:"items" validate:"required,min=1,dive"`
}

type PlaceOrderItem struct {
	ProductID uint            `json:"product_id" validate:"required"`
	Quantity  decimal.Decimal `json:"quantity"`
}

type SupplierPricingInput struct {
	UnitCost     decimal.Decimal `json:"unit_cost"`
	Discount     decimal.Decimal `json:"discount"`
	DeliveryCost decimal.Decimal `json:"delivery_cost"`
}

type OrderService interface {
	PlaceOrder(ctx context.Context, actor Actor, input PlaceOrderInput) (*models.Order, error)
	GetOrder(ctx context.Context, id uint) (*models.Order, error)
	ListOrders(ctx context.Context, filter repository.OrderFilter) ([]models.Order, error)
	ArchiveOrder(ctx context.Context, actor Actor, id uint) error
	QuoteOrder(ctx context.Context, id uint) (*pricing.OrderBreakdown, error)

	// Pricing edits
	SetDiscount(ctx context.Context, actor Actor, orderID uint, discount decimal.Decimal) (*models.Order, error)
	SetOtherCharges(ctx context.Context, actor Actor, orderID uint, amount decimal.Decimal) (*models.Order, error)
	SetQuotedPrice(ctx context.Context, actor Actor, orderID, itemID uint, price *decimal.Decimal) (*models.Order, error)
	SetSupplierPricing(ctx context.Context, actor Actor, orderID, itemID uint, input SupplierPricingInput) (*models.Order, error)
	SetItemConfirmation(ctx context.Context, actor Actor, orderID, itemID uint, confirmed bool) (*models.Order, error)
}

type orderService struct {
	orders repository.OrderRepository
	calc   *pricing.Calculator
	locker Locker
	log    logrus.FieldLogger
	clock  Clock
}

func NewOrderService(orders repository.OrderRepository, calc *pricing.Calculator, locker Locker, log logrus.FieldLogger, clock Clock) OrderService {
	return &orderService{orders: orders, calc: calc, locker: locker, log: log.WithField("module", "orders"), clock: clock}
}

func (s *orderService) PlaceOrder(ctx context.Context, actor Actor, input PlaceOrderInput) (*models.Order, error) {
	const op = "orders.place"
	if err := requireActor(op, actor); err != nil {
		return nil, err
	}
	if err := validateInput(op, input); err != nil {
		return nil, err
	}
	point := geo.Point{Lat: input.DeliveryLat, Lng: input.DeliveryLng}
	if !point.Valid() {
		return nil, errs.Validation(op, "delivery coordinates are out of range")
	}

	order := &models.Order{
		ClientID:        input.ClientID,
		ProjectID:       input.ProjectID,
		DeliveryAddress: input.DeliveryAddress,
		DeliveryLat:     input.DeliveryLat,
		DeliveryLng:     input.DeliveryLng,
		Workflow:        models.WorkflowRequested,
		PaymentStatus:   models.PaymentPending,
		Discount:        decimal.Zero,
		OtherCharges:    decimal.Zero,
		CreatedBy:       actor.ID,
	}
	for _, in := range input.Items {
		if err := requirePositive(op, "item quantity", in.Quantity); err != nil {
			return nil, err
		}
		order.Items = append(order.Items, models.OrderItem{
			ProductID:            in.ProductID,
			Quantity:             in.Quantity,
			SupplierDiscount:     decimal.Zero,
			SupplierDeliveryCost: decimal.Zero,
			Confirmation:         models.ConfirmationUnassigned,
		})
	}

	if err := s.orders.Create(ctx, order); err != nil {
		return nil, err
	}
	s.log.WithFields(logrus.Fields{"op": op, "order_id": order.ID, "actor_id": actor.ID}).
		Infof("order %s placed with %d items", order.OrderNumber, len(order.Items))
	return s.orders.GetByID(ctx, order.ID)
}

func (s *orderService) GetOrder(ctx context.Context, id uint) (*models.Order, error) {
	return s.orders.GetByID(ctx, id)
}

func (s *orderService) ListOrders(ctx context.Context, filter repository.OrderFilter) ([]models.Order, error) {
	if filter.Workflow != "" && !filter.Workflow.IsValid() {
		return nil, errs.Validation("orders.list", "unknown workflow %q", filter.Workflow)
	}
	return s.orders.List(ctx, filter)
}

func (s *orderService) ArchiveOrder(ctx context.Context, actor Actor, id uint) error {
	const op = "orders.archive"
	if err := requireActor(op, actor); err != nil {
		return err
	}
	if err := s.orders.Archive(ctx, id, s.clock.now()); err != nil {
		return err
	}
	s.log.WithFields(logrus.Fields{"op": op, "order_id": id, "actor_id": actor.ID}).Info("order archived")
	return nil
}

func (s *orderService) QuoteOrder(ctx context.Context, id uint) (*pricing.OrderBreakdown, error) {
	order, err := s.orders.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}
	b := s.calc.OrderTotals(order)
	return &b, nil
}

func (s *orderService) SetDiscount(ctx context.Context, actor Actor, orderID uint, discount decimal.Decimal) (*models.Order, error) {
	const op = "orders.set_discount"
	if err := requireActor(op, actor); err != nil {
		return nil, err
	}
	if err := requireNonNegative(op, "discount", discount); err != nil {
		return nil, err
	}
	return s.edit(ctx, op, actor, orderID, func(order *models.Order) error {
		order.Discount = discount
		return nil
	})
}

func (s *orderService) SetOtherCharges(ctx context.Context, actor Actor, orderID uint, amount decimal.Decimal) (*models.Order, error) {
	const op = "orders.set_other_charges"
	if err := requireActor(op, actor); err != nil {
		return nil, err
	}
	return s.edit(ctx, op, actor, orderID, func(order *models.Order) error {
		order.OtherCharges = amount
		return nil
	})
}

func (s *orderService) SetQuotedPrice(ctx context.Context, actor Actor, orderID, itemID uint, price *decimal.Decimal) (*models.Order, error) {
	const op = "orders.set_quoted_price"
	if err := requireActor(op, actor); err != nil {
		return nil, err
	}
	if price != nil {
		if err := requireNonNegative(op, "quoted price", *price); err != nil {
			return nil, err
		}
	}
	return s.edit(ctx, op, actor, orderID, func(order *models.Order) error {
		item, err := findItem(op, order, itemID)
		if err != nil {
			return err
		}
		if !item.HasSupplier() {
			return errs.State(op, "item %d has no supplier and cannot be priced", itemID)
		}
		if price == nil {
			item.QuotedPrice = decimal.NullDecimal{}
		} else {
			item.QuotedPrice = decimal.NewNullDecimal(*price)
		}
		return nil
	})
}

func (s *orderService) SetSupplierPricing(ctx context.Context, actor Actor, orderID, itemID uint, input SupplierPricingInput) (*models.Order, error) {
	const op = "orders.set_supplier_pricing"
	if err := requireActor(op, actor); err != nil {
		return nil, err
	}
	for field, v := range map[string]decimal.Decimal{
		"unit cost":     input.UnitCost,
		"discount":      input.Discount,
		"delivery cost": input.DeliveryCost,
	} {
		if err := requireNonNegative(op, field, v); err != nil {
			return nil, err
		}
	}
	return s.edit(ctx, op, actor, orderID, func(order *models.Order) error {
		item, err := findItem(op, order, itemID)
		if err != nil {
			return err
		}
		if !item.HasSupplier() {
			return errs.State(op, "item %d has no supplier and cannot be priced", itemID)
		}
		item.SupplierUnitCost = decimal.NewNullDecimal(input.UnitCost)
		item.SupplierDiscount = input.Discount
		item.SupplierDeliveryCost = input.DeliveryCost
		return nil
	})
}

// SetItemConfirmation records the supplier's acceptance. Confirmation is
// monotonic: withdrawing it is refused, repeating it is a no-op.
func (s *orderService) SetItemConfirmation(ctx context.Context, actor Actor, orderID, itemID uint, confirmed bool) (*models.Order, error) {
	const op = "orders.confirm_item"
	if err := requireActor(op, actor); err != nil {
		return nil, err
	}
	return s.edit(ctx, op, actor, orderID, func(order *models.Order) error {
		item, err := findItem(op, order, itemID)
		if err != nil {
			return err
		}
		if !item.HasSupplier() {
			return errs.State(op, "item %d has no supplier to confirm", itemID)
		}
		if !confirmed {
			if item.SupplierConfirms() {
				return errs.State(op, "item %d is confirmed; only a supplier reassignment clears it", itemID)
			}
			return nil
		}
		item.Confirmation = models.ConfirmationConfirmed
		return nil
	})
}

// edit applies fn under the per-order lock, refusing delivered orders and
// totals that would end up negative.
func (s *orderService) edit(ctx context.Context, op string, actor Actor, orderID uint, fn func(*models.Order) error) (*models.Order, error) {
	order, err := mutateOrder(ctx, s.locker, s.orders, orderID, func(order *models.Order) error {
		if err := requireEditable(op, order); err != nil {
			return err
		}
		if err := fn(order); err != nil {
			return err
		}
		return rejectNegativeTotal(op, s.calc, order)
	})
	if err != nil {
		s.log.WithFields(logrus.Fields{"op": op, "order_id": orderID, "actor_id": actor.ID}).WithError(err).Warn("order edit rejected")
		return nil, err
	}
	s.log.WithFields(logrus.Fields{"op": op, "order_id": orderID, "actor_id": actor.ID}).Info("order updated")
	return order, nil
}
