package models

import (
	"time"

	"github.com/shopspring/decimal"
)

type OrderItem struct {
	ID                   uint                `json:"id" gorm:"primaryKey"`
	OrderID              uint                `json:"order_id" gorm:"not null;index"`
	ProductID            uint                `json:"product_id" gorm:"not null"`
	Quantity             decimal.Decimal     `json:"quantity" gorm:"type:decimal(20,4);not null"`
	SupplierID           *uint               `json:"supplier_id"`
	ChosenOfferID        *uint               `json:"chosen_offer_id"`
	SupplierUnitCost     decimal.NullDecimal `json:"supplier_unit_cost" gorm:"type:decimal(20,4)"`
	SupplierDiscount     decimal.Decimal     `json:"supplier_discount" gorm:"type:decimal(20,4);default:0"`
	SupplierDeliveryCost decimal.Decimal     `json:"supplier_delivery_cost" gorm:"type:decimal(20,4);default:0"`
	QuotedPrice          decimal.NullDecimal `json:"quoted_price" gorm:"type:decimal(20,4)"`
	Confirmation         ConfirmationStatus  `json:"confirmation" gorm:"type:varchar(32);default:'unassigned'"`
	IsPaid               bool                `json:"is_paid" gorm:"default:false"`
	Deliveries           []Delivery          `json:"deliveries" gorm:"foreignKey:ItemID"`
	CreatedAt            time.Time           `json:"created_at"`
	UpdatedAt            time.Time           `json:"updated_at"`
}

func (i *OrderItem) HasSupplier() bool {
	return i.SupplierID != nil
}

// IsQuoted is true when an operator price overrides the margin formula.
func (i *OrderItem) IsQuoted() bool {
	return i.QuotedPrice.Valid
}

// SupplierConfirms reports the monotonic supplier confirmation.
func (i *OrderItem) SupplierConfirms() bool {
	return i.Confirmation == ConfirmationConfirmed
}

func (i *OrderItem) Delivery(deliveryID uint) *Delivery {
	for k := range i.Deliveries {
		if i.Deliveries[k].ID == deliveryID {
			return &i.Deliveries[k]
		}
	}
	return nil
}

// ScheduledQuantity sums every delivery, invoiced or not.
func (i *OrderItem) ScheduledQuantity() decimal.Decimal {
	total := decimal.Zero
	for _, d := range i.Deliveries {
		total = total.Add(d.Quantity)
	}
	return total
}

// UnscheduledQuantity is what may still be assigned to new deliveries.
func (i *OrderItem) UnscheduledQuantity() decimal.Decimal {
	return i.Quantity.Sub(i.ScheduledQuantity())
}

// UninvoicedDeliveries filters out deliveries already claimed by an invoice.
func (i *OrderItem) UninvoicedDeliveries() []Delivery {
	out := make([]Delivery, 0, len(i.Deliveries))
	for _, d := range i.Deliveries {
		if !d.IsInvoiced() {
			out = append(out, d)
		}
	}
	return out
}

// ConfirmationStatus tracks a supplier's acceptance of an item assignment.
type ConfirmationStatus string

const (
	ConfirmationUnassigned ConfirmationStatus = "unassigned"
	ConfirmationAwaiting   ConfirmationStatus = "awaiting_confirmation"
	ConfirmationConfirmed  ConfirmationStatus = "confirmed"
)

func (s ConfirmationStatus) IsValid() bool {
	switch s {
	case ConfirmationUnassigned, ConfirmationAwaiting, ConfirmationConfirmed:
		return true
	}
	return false
}
