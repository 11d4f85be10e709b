package models

import (
	"time"

	"github.com/shopspring/decimal"
)

// Invoice is an immutable snapshot of priced deliveries; only Status changes after creation.
type Invoice struct {
	ID            uint            `json:"id" gorm:"primaryKey"`
	OrderID       uint            `json:"order_id" gorm:"not null;index"`
	InvoiceNumber string          `json:"invoice_number" gorm:"unique;not null"`
	Status        InvoiceStatus   `json:"status" gorm:"type:varchar(32);default:'draft'"`
	Subtotal      decimal.Decimal `json:"subtotal" gorm:"type:decimal(20,2)"`
	DeliveryTotal decimal.Decimal `json:"delivery_total" gorm:"type:decimal(20,2)"`
	GSTTax        decimal.Decimal `json:"gst_tax" gorm:"type:decimal(20,2)"`
	Discount      decimal.Decimal `json:"discount" gorm:"type:decimal(20,2)"`
	TotalAmount   decimal.Decimal `json:"total_amount" gorm:"type:decimal(20,2)"`
	AdminMargin   decimal.Decimal `json:"admin_margin" gorm:"type:decimal(10,4)"`
	GSTRate       decimal.Decimal `json:"gst_rate" gorm:"type:decimal(10,4)"`
	IssuedDate    time.Time       `json:"issued_date" gorm:"not null"`
	DueDate       *time.Time      `json:"due_date"`
	Notes         string          `json:"notes" gorm:"type:text"`
	CreatedBy     uint            `json:"created_by" gorm:"not null"`
	Lines         []InvoiceLine   `json:"lines" gorm:"foreignKey:InvoiceID"`
	CreatedAt     time.Time       `json:"created_at"`
	UpdatedAt     time.Time       `json:"updated_at"`
}

// DeliveryIDs lists the deliveries referenced by the invoice lines, in line order.
func (inv *Invoice) DeliveryIDs() []uint {
	ids := make([]uint, 0, len(inv.Lines))
	for _, l := range inv.Lines {
		ids = append(ids, l.DeliveryID)
	}
	return ids
}

// InvoiceLine prices exactly one delivery. The unique index on delivery_id keeps
// invoices of an order pairwise disjoint at the storage layer.
type InvoiceLine struct {
	ID             uint            `json:"id" gorm:"primaryKey"`
	InvoiceID      uint            `json:"invoice_id" gorm:"not null;index"`
	Position       int             `json:"position" gorm:"not null"`
	DeliveryID     uint            `json:"delivery_id" gorm:"not null;uniqueIndex"`
	ItemID         uint            `json:"item_id" gorm:"not null"`
	ProductID      uint            `json:"product_id" gorm:"not null"`
	SupplierID     uint            `json:"supplier_id" gorm:"not null"`
	ScheduledAt    time.Time       `json:"scheduled_at"`
	Quantity       decimal.Decimal `json:"quantity" gorm:"type:decimal(20,4)"`
	UnitPrice      decimal.Decimal `json:"unit_price" gorm:"type:decimal(20,4)"`
	MaterialAmount decimal.Decimal `json:"material_amount" gorm:"type:decimal(20,2)"`
	DeliveryAmount decimal.Decimal `json:"delivery_amount" gorm:"type:decimal(20,2)"`
	LineTotal      decimal.Decimal `json:"line_total" gorm:"type:decimal(20,2)"`
}

// NumberSequence backs order and invoice numbering; one row per prefix.
type NumberSequence struct {
	Prefix    string    `json:"prefix" gorm:"primaryKey;type:varchar(16)"`
	LastValue int64     `json:"last_value" gorm:"not null;default:0"`
	UpdatedAt time.Time `json:"updated_at"`
}

type InvoiceStatus string

const (
	InvoiceDraft         InvoiceStatus = "draft"
	InvoiceSent          InvoiceStatus = "sent"
	InvoicePaid          InvoiceStatus = "paid"
	InvoicePartiallyPaid InvoiceStatus = "partially_paid"
	InvoiceOverdue       InvoiceStatus = "overdue"
	InvoiceCancelled     InvoiceStatus = "cancelled"
	InvoiceVoid          InvoiceStatus = "void"
)

func (s InvoiceStatus) IsValid() bool {
	switch s {
	case InvoiceDraft, InvoiceSent, InvoicePaid, InvoicePartiallyPaid,
		InvoiceOverdue, InvoiceCancelled, InvoiceVoid:
		return true
	}
	return false
}

// IsTerminal is true for cancelled and void invoices.
func (s InvoiceStatus) IsTerminal() bool {
	return s == InvoiceCancelled || s == InvoiceVoid
}

func (s InvoiceStatus) CanTransitionTo(target InvoiceStatus) bool {
	if s == target || s.IsTerminal() {
		return false
	}
	switch s {
	case InvoiceDraft:
		return target == InvoiceSent || target == InvoiceCancelled || target == InvoiceVoid
	case InvoiceSent:
		return target == InvoicePaid || target == InvoicePartiallyPaid || target == InvoiceOverdue ||
			target == InvoiceCancelled || target == InvoiceVoid
	case InvoicePartiallyPaid:
		return target == InvoicePaid || target == InvoiceOverdue || target == InvoiceVoid
	case InvoiceOverdue:
		return target == InvoicePaid || target == InvoicePartiallyPaid ||
			target == InvoiceCancelled || target == InvoiceVoid
	case InvoicePaid:
		return target == InvoiceVoid
	}
	return false
}

// CanBecomeOverdue lists the statuses the overdue sweep moves.
func (s InvoiceStatus) CanBecomeOverdue() bool {
	return s == InvoiceSent || s == InvoicePartiallyPaid
}
