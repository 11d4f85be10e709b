package models

import (
	"time"

	"github.com/shopspring/decimal"
)

// Delivery is one scheduled fulfillment event and the unit of invoicing.
// InvoiceID is set exactly once, by invoice creation.
type Delivery struct {
	ID           uint                 `json:"id" gorm:"primaryKey"`
	ItemID       uint                 `json:"item_id" gorm:"not null;index"`
	ScheduledAt  time.Time            `json:"scheduled_at" gorm:"not null"`
	Quantity     decimal.Decimal      `json:"quantity" gorm:"type:decimal(20,4);not null"`
	Confirmation DeliveryConfirmation `json:"confirmation" gorm:"type:varchar(32);default:'pending'"`
	InvoiceID    *uint                `json:"invoice_id" gorm:"index"`
	CreatedAt    time.Time            `json:"created_at"`
	UpdatedAt    time.Time            `json:"updated_at"`
}

func (d *Delivery) IsInvoiced() bool {
	return d.InvoiceID != nil
}

type DeliveryConfirmation string

const (
	DeliveryPending   DeliveryConfirmation = "pending"
	DeliveryConfirmed DeliveryConfirmation = "confirmed"
)
