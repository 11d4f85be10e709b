package services

import (
	"context"
	"sort"

	"materials_market/internal/errs"
	"materials_market/internal/geo"
	"materials_market/internal/models"
	"materials_market/internal/pricing"
	"materials_market/internal/repository"

	"github.com/shopspring/decimal"
	"github.com/sirupsen/logrus"
)

type AssignSupplierInput struct {
	SupplierID uint `json:"supplier_id" validate:"required"`
	OfferID    uint `json:"offer_id"`
}

// Assignment reports the order after a supplier change. ReconfirmationRequired
// is set when existing deliveries lost their confirmation.
type Assignment struct {
	Order                  *models.Order           `json:"order"`
	Supplier               models.EligibleSupplier `json:"supplier"`
	ReconfirmationRequired bool                    `json:"reconfirmation_required"`
}

type SupplierResolver interface {
	EligibleSuppliers(ctx context.Context, orderID, itemID uint) ([]models.EligibleSupplier, error)
	AssignSupplier(ctx context.Context, actor Actor, orderID, itemID uint, input AssignSupplierInput) (*Assignment, error)
}

type supplierResolver struct {
	orders    repository.OrderRepository
	suppliers repository.SupplierRepository
	calc      *pricing.Calculator
	locker    Locker
	log       logrus.FieldLogger
}

func NewSupplierResolver(orders repository.OrderRepository, suppliers repository.SupplierRepository, calc *pricing.Calculator, locker Locker, log logrus.FieldLogger) SupplierResolver {
	return &supplierResolver{orders: orders, suppliers: suppliers, calc: calc, locker: locker, log: log.WithField("module", "suppliers")}
}

func (s *supplierResolver) EligibleSuppliers(ctx context.Context, orderID, itemID uint) ([]models.EligibleSupplier, error) {
	const op = "suppliers.eligible"
	order, err := s.orders.GetByID(ctx, orderID)
	if err != nil {
		return nil, err
	}
	item, err := findItem(op, order, itemID)
	if err != nil {
		return nil, err
	}
	directory, err := s.suppliers.ListForProduct(ctx, item.ProductID)
	if err != nil {
		return nil, err
	}
	return rankEligible(op, order, directory)
}

// rankEligible keeps suppliers with a zone covering the delivery point, each at
// its nearest covering zone and cheapest offer, ordered by distance.
func rankEligible(op string, order *models.Order, directory []models.Supplier) ([]models.EligibleSupplier, error) {
	point := geo.Point{Lat: order.DeliveryLat, Lng: order.DeliveryLng}
	if !point.Valid() {
		return nil, errs.Validation(op, "order %d has no valid delivery coordinates", order.ID)
	}

	out := make([]models.EligibleSupplier, 0, len(directory))
	for _, sup := range directory {
		if !sup.IsActive || len(sup.Offers) == 0 {
			continue
		}
		var zone *models.DeliveryZone
		best := 0.0
		for i := range sup.Zones {
			z := &sup.Zones[i]
			dist, ok := geo.Within(point, geo.Point{Lat: z.CenterLat, Lng: z.CenterLng}, z.RadiusKm)
			if ok && (zone == nil || dist < best) {
				zone, best = z, dist
			}
		}
		if zone == nil {
			continue
		}
		offer := sup.Offers[0]
		for _, o := range sup.Offers[1:] {
			if o.UnitCost.LessThan(offer.UnitCost) {
				offer = o
			}
		}
		out = append(out, models.EligibleSupplier{
			SupplierID:   sup.ID,
			SupplierName: sup.Name,
			OfferID:      offer.ID,
			ZoneID:       zone.ID,
			DistanceKm:   best,
			UnitCost:     offer.UnitCost,
			DeliveryCost: zone.BaseFee.Add(zone.PerKmFee.Mul(decimal.NewFromFloat(best))).Round(2),
		})
	}

	sort.SliceStable(out, func(i, j int) bool {
		if out[i].DistanceKm != out[j].DistanceKm {
			return out[i].DistanceKm < out[j].DistanceKm
		}
		if !out[i].UnitCost.Equal(out[j].UnitCost) {
			return out[i].UnitCost.LessThan(out[j].UnitCost)
		}
		return out[i].SupplierID < out[j].SupplierID
	})
	return out, nil
}

func (s *supplierResolver) AssignSupplier(ctx context.Context, actor Actor, orderID, itemID uint, input AssignSupplierInput) (*Assignment, error) {
	const op = "suppliers.assign"
	if err := requireActor(op, actor); err != nil {
		return nil, err
	}
	if err := validateInput(op, input); err != nil {
		return nil, err
	}

	current, err := s.orders.GetByID(ctx, orderID)
	if err != nil {
		return nil, err
	}
	item, err := findItem(op, current, itemID)
	if err != nil {
		return nil, err
	}
	directory, err := s.suppliers.ListForProduct(ctx, item.ProductID)
	if err != nil {
		return nil, err
	}

	var chosen models.EligibleSupplier
	reconfirm := false
	order, err := mutateOrder(ctx, s.locker, s.orders, orderID, func(order *models.Order) error {
		if err := requireEditable(op, order); err != nil {
			return err
		}
		if order.PaymentStatus != models.PaymentPending {
			return errs.State(op, "payment is %s; suppliers can no longer change", order.PaymentStatus)
		}
		item, err := findItem(op, order, itemID)
		if err != nil {
			return err
		}

		eligible, err := rankEligible(op, order, filterOffer(directory, input))
		if err != nil {
			return err
		}
		found := false
		for _, e := range eligible {
			if e.SupplierID == input.SupplierID {
				chosen, found = e, true
				break
			}
		}
		if !found {
			return errs.Validation(op, "supplier %d is not eligible for item %d", input.SupplierID, itemID)
		}

		reconfirm = resetForSupplier(item, chosen)
		if order.AllSuppliersAssigned() &&
			(order.Workflow == models.WorkflowRequested || order.Workflow == models.WorkflowSupplierMissing) {
			order.Workflow = models.WorkflowSupplierAssigned
		}
		return rejectNegativeTotal(op, s.calc, order)
	})
	if err != nil {
		return nil, err
	}

	entry := s.log.WithFields(logrus.Fields{"op": op, "order_id": orderID, "actor_id": actor.ID, "item_id": itemID, "supplier_id": chosen.SupplierID})
	if reconfirm {
		entry.Warn("supplier reassigned; deliveries need reconfirmation")
	} else {
		entry.Info("supplier assigned")
	}
	return &Assignment{Order: order, Supplier: chosen, ReconfirmationRequired: reconfirm}, nil
}

// filterOffer narrows the directory to the requested supplier and offer.
func filterOffer(directory []models.Supplier, input AssignSupplierInput) []models.Supplier {
	out := make([]models.Supplier, 0, 1)
	for _, sup := range directory {
		if sup.ID != input.SupplierID {
			continue
		}
		if input.OfferID != 0 {
			offers := make([]models.SupplierOffer, 0, 1)
			for _, o := range sup.Offers {
				if o.ID == input.OfferID {
					offers = append(offers, o)
				}
			}
			sup.Offers = offers
		}
		out = append(out, sup)
	}
	return out
}

// resetForSupplier points the item at the new supplier and clears everything
// that depended on the previous one. Delivery dates and quantities stay.
func resetForSupplier(item *models.OrderItem, e models.EligibleSupplier) bool {
	supplierID, offerID := e.SupplierID, e.OfferID
	item.SupplierID = &supplierID
	item.ChosenOfferID = &offerID
	item.SupplierUnitCost = decimal.NewNullDecimal(e.UnitCost)
	item.SupplierDiscount = decimal.Zero
	item.SupplierDeliveryCost = e.DeliveryCost
	item.QuotedPrice = decimal.NullDecimal{}
	item.Confirmation = models.ConfirmationAwaiting

	reconfirm := false
	for k := range item.Deliveries {
		d := &item.Deliveries[k]
		if d.IsInvoiced() {
			continue
		}
		reconfirm = true
		d.Confirmation = models.DeliveryPending
	}
	return reconfirm
}
