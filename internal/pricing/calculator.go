// Package pricing computes supplier cost, customer price, margin, GST and totals.
// Every function is a pure function of its inputs; the same order yields the
// same figures on every call.
package pricing

import (
	"materials_market/internal/errs"
	"materials_market/internal/models"

	"github.com/shopspring/decimal"
)

// Config carries the rates applied on top of supplier cost.
type Config struct {
	AdminMargin decimal.Decimal `json:"admin_margin"`
	GSTRate     decimal.Decimal `json:"gst_rate"`
}

// DefaultConfig is the 50% admin margin and 10% GST.
func DefaultConfig() Config {
	return Config{
		AdminMargin: decimal.RequireFromString("0.50"),
		GSTRate:     decimal.RequireFromString("0.10"),
	}
}

// Validate rejects negative rates.
func (c Config) Validate() error {
	if c.AdminMargin.IsNegative() {
		return errs.Validation("pricing.config", "admin margin must not be negative")
	}
	if c.GSTRate.IsNegative() {
		return errs.Validation("pricing.config", "gst rate must not be negative")
	}
	return nil
}

var hundred = decimal.NewFromInt(100)

// RoundMoney rounds to the cent, halves away from zero.
func RoundMoney(d decimal.Decimal) decimal.Decimal {
	return d.Round(2)
}

type Calculator struct {
	cfg Config
}

func NewCalculator(cfg Config) *Calculator {
	return &Calculator{cfg: cfg}
}

func (c *Calculator) Config() Config {
	return c.cfg
}

func (c *Calculator) markup() decimal.Decimal {
	return decimal.NewFromInt(1).Add(c.cfg.AdminMargin)
}

// IsPriced reports whether the item contributes to customer totals. Items
// without a supplier, or without a supplier cost and no quote, are unpriced.
func (c *Calculator) IsPriced(item *models.OrderItem) bool {
	if !item.HasSupplier() {
		return false
	}
	return item.IsQuoted() || item.SupplierUnitCost.Valid
}

// BaseMaterialCost is the supplier's list cost for the item quantity.
func (c *Calculator) BaseMaterialCost(item *models.OrderItem) decimal.Decimal {
	if !item.SupplierUnitCost.Valid {
		return decimal.Zero
	}
	return item.SupplierUnitCost.Decimal.Mul(item.Quantity)
}

// UnitPrice is the per-unit customer price: the quote when present, otherwise
// supplier unit cost marked up by the admin margin.
func (c *Calculator) UnitPrice(item *models.OrderItem) decimal.Decimal {
	if item.IsQuoted() {
		return item.QuotedPrice.Decimal
	}
	if !item.SupplierUnitCost.Valid {
		return decimal.Zero
	}
	return item.SupplierUnitCost.Decimal.Mul(c.markup())
}

// ItemCustomerPrice returns quoted_price * quantity for quoted items and
// BaseMaterialCost * (1 + margin) otherwise.
func (c *Calculator) ItemCustomerPrice(item *models.OrderItem) decimal.Decimal {
	if item.IsQuoted() {
		return item.QuotedPrice.Decimal.Mul(item.Quantity)
	}
	return c.BaseMaterialCost(item).Mul(c.markup())
}

// ItemSupplierCost is what the platform owes the supplier for material.
func (c *Calculator) ItemSupplierCost(item *models.OrderItem) decimal.Decimal {
	return c.BaseMaterialCost(item).Sub(item.SupplierDiscount)
}

// DeliveryCustomerCost is the supplier delivery cost marked up by the admin margin.
func (c *Calculator) DeliveryCustomerCost(item *models.OrderItem) decimal.Decimal {
	return item.SupplierDeliveryCost.Mul(c.markup())
}

// OrderBreakdown holds order level figures rounded to the cent.
type OrderBreakdown struct {
	ItemTotal       decimal.Decimal `json:"item_total"`
	DeliveryTotal   decimal.Decimal `json:"delivery_total"`
	SupplierTotal   decimal.Decimal `json:"supplier_total"`
	GST             decimal.Decimal `json:"gst"`
	OtherCharges    decimal.Decimal `json:"other_charges"`
	Discount        decimal.Decimal `json:"discount"`
	CustomerTotal   decimal.Decimal `json:"customer_total"`
	Profit          decimal.Decimal `json:"profit"`
	MarginPercent   decimal.Decimal `json:"margin_percent"`
	UnpricedItemIDs []uint          `json:"unpriced_item_ids"`
}

// Negative reports a discount large enough to push the customer total below zero.
func (b OrderBreakdown) Negative() bool {
	return b.CustomerTotal.IsNegative()
}

// OrderTotals aggregates every priced item. Intermediate sums keep full
// precision; rounding happens once per reported figure.
func (c *Calculator) OrderTotals(order *models.Order) OrderBreakdown {
	itemTotal := decimal.Zero
	deliveryTotal := decimal.Zero
	supplierTotal := decimal.Zero
	unpriced := make([]uint, 0)

	for i := range order.Items {
		item := &order.Items[i]
		if !c.IsPriced(item) {
			unpriced = append(unpriced, item.ID)
			continue
		}
		itemTotal = itemTotal.Add(c.ItemCustomerPrice(item))
		deliveryTotal = deliveryTotal.Add(c.DeliveryCustomerCost(item))
		supplierTotal = supplierTotal.Add(c.ItemSupplierCost(item)).Add(item.SupplierDeliveryCost)
	}

	gst := itemTotal.Add(deliveryTotal).Mul(c.cfg.GSTRate)
	customerTotal := itemTotal.Add(deliveryTotal).Add(gst).Add(order.OtherCharges).Sub(order.Discount)
	profit := customerTotal.Sub(supplierTotal).Sub(gst)

	margin := decimal.Zero
	if !supplierTotal.IsZero() {
		margin = profit.Div(supplierTotal).Mul(hundred)
	}

	return OrderBreakdown{
		ItemTotal:       RoundMoney(itemTotal),
		DeliveryTotal:   RoundMoney(deliveryTotal),
		SupplierTotal:   RoundMoney(supplierTotal),
		GST:             RoundMoney(gst),
		OtherCharges:    RoundMoney(order.OtherCharges),
		Discount:        RoundMoney(order.Discount),
		CustomerTotal:   RoundMoney(customerTotal),
		Profit:          RoundMoney(profit),
		MarginPercent:   margin.Round(2),
		UnpricedItemIDs: unpriced,
	}
}
