package pricing

import (
	"time"

	"materials_market/internal/errs"
	"materials_market/internal/models"

	"github.com/shopspring/decimal"
)

// DeliveryLine is the priced share of one delivery. Amounts are unrounded;
// TotalInvoice and InvoiceLines round each line to the cent.
type DeliveryLine struct {
	DeliveryID     uint            `json:"delivery_id"`
	ItemID         uint            `json:"item_id"`
	ProductID      uint            `json:"product_id"`
	SupplierID     uint            `json:"supplier_id"`
	ScheduledAt    time.Time       `json:"scheduled_at"`
	Quantity       decimal.Decimal `json:"quantity"`
	UnitPrice      decimal.Decimal `json:"unit_price"`
	MaterialAmount decimal.Decimal `json:"material_amount"`
	DeliveryAmount decimal.Decimal `json:"delivery_amount"`
}

// PriceDelivery prices a delivery as unit price * delivery quantity plus the
// delivery's pro-rated share of the item's marked-up delivery cost.
func (c *Calculator) PriceDelivery(item *models.OrderItem, d *models.Delivery) (DeliveryLine, error) {
	const op = "pricing.price_delivery"
	if !c.IsPriced(item) {
		return DeliveryLine{}, errs.State(op, "item %d is not priced", item.ID)
	}
	if !item.Quantity.IsPositive() {
		return DeliveryLine{}, errs.Validation(op, "item %d has no quantity", item.ID)
	}
	if !d.Quantity.IsPositive() {
		return DeliveryLine{}, errs.Validation(op, "delivery %d has no quantity", d.ID)
	}

	unit := c.UnitPrice(item)
	share := c.DeliveryCustomerCost(item).Mul(d.Quantity).Div(item.Quantity)

	return DeliveryLine{
		DeliveryID:     d.ID,
		ItemID:         item.ID,
		ProductID:      item.ProductID,
		SupplierID:     *item.SupplierID,
		ScheduledAt:    d.ScheduledAt,
		Quantity:       d.Quantity,
		UnitPrice:      unit,
		MaterialAmount: unit.Mul(d.Quantity),
		DeliveryAmount: share,
	}, nil
}

// InvoiceTotals is the rounded aggregate of a set of delivery lines.
type InvoiceTotals struct {
	Subtotal      decimal.Decimal `json:"subtotal"`
	DeliveryTotal decimal.Decimal `json:"delivery_total"`
	GST           decimal.Decimal `json:"gst_tax"`
	Discount      decimal.Decimal `json:"discount"`
	Total         decimal.Decimal `json:"total_amount"`
}

// TotalInvoice sums the cent-rounded line amounts, applies GST on that sum,
// then subtracts the discount. The printed lines always add up to
// Subtotal + DeliveryTotal.
func (c *Calculator) TotalInvoice(lines []DeliveryLine, discount decimal.Decimal) InvoiceTotals {
	subtotal := decimal.Zero
	delivery := decimal.Zero
	for _, l := range lines {
		subtotal = subtotal.Add(RoundMoney(l.MaterialAmount))
		delivery = delivery.Add(RoundMoney(l.DeliveryAmount))
	}
	gst := RoundMoney(subtotal.Add(delivery).Mul(c.cfg.GSTRate))
	discount = RoundMoney(discount)

	return InvoiceTotals{
		Subtotal:      subtotal,
		DeliveryTotal: delivery,
		GST:           gst,
		Discount:      discount,
		Total:         subtotal.Add(delivery).Add(gst).Sub(discount),
	}
}

// InvoiceLines converts priced delivery lines into invoice line snapshots.
func InvoiceLines(lines []DeliveryLine) []models.InvoiceLine {
	out := make([]models.InvoiceLine, 0, len(lines))
	for i, l := range lines {
		material := RoundMoney(l.MaterialAmount)
		delivery := RoundMoney(l.DeliveryAmount)
		out = append(out, models.InvoiceLine{
			Position:       i + 1,
			DeliveryID:     l.DeliveryID,
			ItemID:         l.ItemID,
			ProductID:      l.ProductID,
			SupplierID:     l.SupplierID,
			ScheduledAt:    l.ScheduledAt,
			Quantity:       l.Quantity,
			UnitPrice:      l.UnitPrice.Round(4),
			MaterialAmount: material,
			DeliveryAmount: delivery,
			LineTotal:      material.Add(delivery),
		})
	}
	return out
}
