package models

import (
	"time"

	"github.com/shopspring/decimal"
)

type Order struct {
	ID              uint            `json:"id" gorm:"primaryKey"`
	OrderNumber     string          `json:"order_number" gorm:"unique;not null"`
	ClientID        uint            `json:"client_id" gorm:"not null;index"`
	ProjectID       uint            `json:"project_id" gorm:"index"`
	DeliveryAddress string          `json:"delivery_address" gorm:"type:text"`
	DeliveryLat     float64         `json:"delivery_lat"`
	DeliveryLng     float64         `json:"delivery_lng"`
	Workflow        WorkflowStatus  `json:"workflow" gorm:"type:varchar(32);default:'requested'"`
	HeldFrom        WorkflowStatus  `json:"held_from,omitempty" gorm:"type:varchar(32)"`
	PaymentStatus   PaymentStatus   `json:"payment_status" gorm:"type:varchar(32);default:'pending'"`
	Discount        decimal.Decimal `json:"discount" gorm:"type:decimal(20,4);default:0"`
	OtherCharges    decimal.Decimal `json:"other_charges" gorm:"type:decimal(20,4);default:0"`
	Items           []OrderItem     `json:"items" gorm:"foreignKey:OrderID"`
	CreatedBy       uint            `json:"created_by" gorm:"not null"`
	ArchivedAt      *time.Time      `json:"archived_at" gorm:"index"`
	CreatedAt       time.Time       `json:"created_at"`
	UpdatedAt       time.Time       `json:"updated_at"`
}

// CanEdit reports whether items, discount and suppliers may still change.
func (o *Order) CanEdit() bool {
	return o.Workflow != WorkflowDelivered
}

// Item returns the item with the given id, or nil.
func (o *Order) Item(itemID uint) *OrderItem {
	for i := range o.Items {
		if o.Items[i].ID == itemID {
			return &o.Items[i]
		}
	}
	return nil
}

// Delivery returns the delivery with the given id together with its parent item.
func (o *Order) Delivery(deliveryID uint) (*OrderItem, *Delivery) {
	for i := range o.Items {
		if d := o.Items[i].Delivery(deliveryID); d != nil {
			return &o.Items[i], d
		}
	}
	return nil, nil
}

// AllSuppliersAssigned is true when every item has a supplier.
func (o *Order) AllSuppliersAssigned() bool {
	if len(o.Items) == 0 {
		return false
	}
	for i := range o.Items {
		if !o.Items[i].HasSupplier() {
			return false
		}
	}
	return true
}

// WorkflowStatus is the coarse order lifecycle stage.
//
//	requested ──> supplier_missing ──> supplier_assigned ──> payment_requested ──> delivered
//	    │                ▲   │                 │  ▲
//	    └────────────────┼───┼─────────────────┘  │
//	                     └───┘ (reassignment)     │
//	any non-terminal stage <──> on_hold ──────────┘ (resumes where it was held)
type WorkflowStatus string

const (
	WorkflowRequested        WorkflowStatus = "requested"
	WorkflowSupplierMissing  WorkflowStatus = "supplier_missing"
	WorkflowSupplierAssigned WorkflowStatus = "supplier_assigned"
	WorkflowPaymentRequested WorkflowStatus = "payment_requested"
	WorkflowOnHold           WorkflowStatus = "on_hold"
	WorkflowDelivered        WorkflowStatus = "delivered"
)

func (s WorkflowStatus) IsValid() bool {
	switch s {
	case WorkflowRequested, WorkflowSupplierMissing, WorkflowSupplierAssigned,
		WorkflowPaymentRequested, WorkflowOnHold, WorkflowDelivered:
		return true
	}
	return false
}

// IsTerminal is true for delivered orders.
func (s WorkflowStatus) IsTerminal() bool {
	return s == WorkflowDelivered
}

// CanTransitionTo checks the forward edges of the workflow. Leaving on_hold is
// resolved by the caller against HeldFrom.
func (s WorkflowStatus) CanTransitionTo(target WorkflowStatus) bool {
	if target == WorkflowOnHold {
		return s != WorkflowOnHold && !s.IsTerminal()
	}
	switch s {
	case WorkflowRequested:
		return target == WorkflowSupplierMissing || target == WorkflowSupplierAssigned
	case WorkflowSupplierMissing:
		return target == WorkflowSupplierAssigned
	case WorkflowSupplierAssigned:
		return target == WorkflowPaymentRequested || target == WorkflowSupplierMissing
	case WorkflowPaymentRequested:
		return target == WorkflowDelivered
	}
	return false
}

// PaymentStatus evolves independently of the workflow.
type PaymentStatus string

const (
	PaymentPending         PaymentStatus = "pending"
	PaymentRequested       PaymentStatus = "requested"
	PaymentPaid            PaymentStatus = "paid"
	PaymentPartiallyPaid   PaymentStatus = "partially_paid"
	PaymentPartialRefunded PaymentStatus = "partial_refunded"
	PaymentRefunded        PaymentStatus = "refunded"
)

func (s PaymentStatus) IsValid() bool {
	switch s {
	case PaymentPending, PaymentRequested, PaymentPaid, PaymentPartiallyPaid,
		PaymentPartialRefunded, PaymentRefunded:
		return true
	}
	return false
}

// IsSensitive marks targets that trigger refunds and need operator confirmation.
func (s PaymentStatus) IsSensitive() bool {
	return s == PaymentRefunded || s == PaymentPartialRefunded
}

func (s PaymentStatus) CanTransitionTo(target PaymentStatus) bool {
	switch s {
	case PaymentPending:
		return target == PaymentRequested
	case PaymentRequested:
		return target == PaymentPaid || target == PaymentPartiallyPaid
	case PaymentPartiallyPaid:
		return target == PaymentPaid || target == PaymentPartialRefunded || target == PaymentRefunded
	case PaymentPaid:
		return target == PaymentPartialRefunded || target == PaymentRefunded
	case PaymentPartialRefunded:
		return target == PaymentRefunded
	case PaymentRefunded:
		return false
	}
	return false
}
