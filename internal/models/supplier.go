package models

import (
	"time"

	"github.com/shopspring/decimal"
)

type Supplier struct {
	ID        uint            `json:"id" gorm:"primaryKey"`
	Name      string          `json:"name" gorm:"not null"`
	IsActive  bool            `json:"is_active" gorm:"not null"`
	Zones     []DeliveryZone  `json:"zones" gorm:"foreignKey:SupplierID"`
	Offers    []SupplierOffer `json:"offers" gorm:"foreignKey:SupplierID"`
	CreatedAt time.Time       `json:"created_at"`
	UpdatedAt time.Time       `json:"updated_at"`
}

// DeliveryZone is a circle the supplier delivers into. Delivery cost for a point
// inside it is BaseFee + PerKmFee * distance to the center.
type DeliveryZone struct {
	ID         uint            `json:"id" gorm:"primaryKey"`
	SupplierID uint            `json:"supplier_id" gorm:"not null;index"`
	CenterLat  float64         `json:"center_lat" gorm:"not null"`
	CenterLng  float64         `json:"center_lng" gorm:"not null"`
	RadiusKm   float64         `json:"radius_km" gorm:"not null"`
	BaseFee    decimal.Decimal `json:"base_fee" gorm:"type:decimal(20,4);default:0"`
	PerKmFee   decimal.Decimal `json:"per_km_fee" gorm:"type:decimal(20,4);default:0"`
}

type SupplierOffer struct {
	ID         uint            `json:"id" gorm:"primaryKey"`
	SupplierID uint            `json:"supplier_id" gorm:"not null;index"`
	ProductID  uint            `json:"product_id" gorm:"not null;index"`
	UnitCost   decimal.Decimal `json:"unit_cost" gorm:"type:decimal(20,4);not null"`
	IsActive   bool            `json:"is_active" gorm:"not null"`
}

// EligibleSupplier is computed per item on demand and never persisted.
type EligibleSupplier struct {
	SupplierID   uint            `json:"supplier_id"`
	SupplierName string          `json:"supplier_name"`
	OfferID      uint            `json:"offer_id"`
	ZoneID       uint            `json:"zone_id"`
	DistanceKm   float64         `json:"distance_km"`
	UnitCost     decimal.Decimal `json:"unit_cost"`
	DeliveryCost decimal.Decimal `json:"delivery_cost"`
}
