package pricing

import (
	"testing"
	"time"

	"materials_market/internal/errs"
	"materials_market/internal/models"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func dec(s string) decimal.Decimal {
	return decimal.RequireFromString(s)
}

func assertMoney(t *testing.T, want string, got decimal.Decimal) {
	t.Helper()
	assert.Truef(t, dec(want).Equal(got), "expected %s, got %s", want, got.String())
}

func uintPtr(v uint) *uint {
	return &v
}

func pricedItem(id uint, unitCost, qty string) models.OrderItem {
	return models.OrderItem{
		ID:               id,
		ProductID:        100 + id,
		Quantity:         dec(qty),
		SupplierID:       uintPtr(9),
		SupplierUnitCost: decimal.NewNullDecimal(dec(unitCost)),
	}
}

func TestItemScenarioWithoutQuote(t *testing.T) {
	calc := NewCalculator(DefaultConfig())
	item := pricedItem(1, "10", "5")

	assertMoney(t, "50", calc.ItemSupplierCost(&item))
	assertMoney(t, "75", calc.ItemCustomerPrice(&item))
}

func TestQuotedPriceOverridesMargin(t *testing.T) {
	calc := NewCalculator(DefaultConfig())
	item := pricedItem(1, "999", "3")
	item.QuotedPrice = decimal.NewNullDecimal(dec("100"))

	assertMoney(t, "300", calc.ItemCustomerPrice(&item))
	assertMoney(t, "100", calc.UnitPrice(&item))
}

func TestSupplierDiscountReducesCostNotPrice(t *testing.T) {
	calc := NewCalculator(DefaultConfig())
	item := pricedItem(1, "10", "5")
	item.SupplierDiscount = dec("4")

	assertMoney(t, "46", calc.ItemSupplierCost(&item))
	assertMoney(t, "75", calc.ItemCustomerPrice(&item))
}

func TestOrderTotals(t *testing.T) {
	calc := NewCalculator(DefaultConfig())
	item := pricedItem(1, "10", "5")
	item.SupplierDeliveryCost = dec("20")
	order := &models.Order{
		Discount:     dec("5"),
		OtherCharges: dec("2"),
		Items:        []models.OrderItem{item},
	}

	b := calc.OrderTotals(order)

	assertMoney(t, "75", b.ItemTotal)
	assertMoney(t, "30", b.DeliveryTotal)
	assertMoney(t, "10.5", b.GST)
	assertMoney(t, "112.5", b.CustomerTotal)
	assertMoney(t, "70", b.SupplierTotal)
	assertMoney(t, "32", b.Profit)
	assertMoney(t, "45.71", b.MarginPercent)
	assert.Empty(t, b.UnpricedItemIDs)
	assert.False(t, b.Negative())
}

func TestOrderTotalsRoundTrip(t *testing.T) {
	calc := NewCalculator(DefaultConfig())
	a := pricedItem(1, "13.37", "7.5")
	a.SupplierDeliveryCost = dec("41.10")
	b := pricedItem(2, "2.99", "120")
	b.QuotedPrice = decimal.NewNullDecimal(dec("4.45"))
	c := pricedItem(3, "0.333", "3")
	order := &models.Order{
		Discount:     dec("12.34"),
		OtherCharges: dec("8.80"),
		Items:        []models.OrderItem{a, b, c},
	}

	got := calc.OrderTotals(order)
	residual := got.CustomerTotal.
		Add(got.Discount).
		Sub(got.OtherCharges).
		Sub(got.GST).
		Sub(got.DeliveryTotal).
		Sub(got.ItemTotal)

	assert.True(t, residual.Abs().LessThanOrEqual(dec("0.02")), "residual %s", residual)
}

func TestOrderTotalsSkipsUnpricedItems(t *testing.T) {
	calc := NewCalculator(DefaultConfig())
	priced := pricedItem(1, "10", "5")
	noSupplier := models.OrderItem{ID: 2, Quantity: dec("4")}
	noCost := models.OrderItem{ID: 3, Quantity: dec("4"), SupplierID: uintPtr(4)}
	order := &models.Order{Items: []models.OrderItem{priced, noSupplier, noCost}}

	b := calc.OrderTotals(order)

	assertMoney(t, "75", b.ItemTotal)
	assert.Equal(t, []uint{2, 3}, b.UnpricedItemIDs)
}

func TestMarginIsZeroWithoutSupplierCost(t *testing.T) {
	calc := NewCalculator(DefaultConfig())
	item := models.OrderItem{
		ID:          1,
		Quantity:    dec("2"),
		SupplierID:  uintPtr(3),
		QuotedPrice: decimal.NewNullDecimal(dec("10")),
	}
	b := calc.OrderTotals(&models.Order{Items: []models.OrderItem{item}})

	assert.True(t, b.SupplierTotal.IsZero())
	assert.True(t, b.MarginPercent.IsZero())
	assertMoney(t, "20", b.Profit)
}

func TestOrderTotalsReportsNegativeTotal(t *testing.T) {
	calc := NewCalculator(DefaultConfig())
	order := &models.Order{Discount: dec("1000"), Items: []models.OrderItem{pricedItem(1, "10", "5")}}

	b := calc.OrderTotals(order)

	assert.True(t, b.Negative())
	assertMoney(t, "-917.5", b.CustomerTotal)
}

func TestCustomConfig(t *testing.T) {
	calc := NewCalculator(Config{AdminMargin: dec("0.2"), GSTRate: dec("0.15")})
	item := pricedItem(1, "10", "5")

	b := calc.OrderTotals(&models.Order{Items: []models.OrderItem{item}})

	assertMoney(t, "60", b.ItemTotal)
	assertMoney(t, "9", b.GST)
	assertMoney(t, "69", b.CustomerTotal)
}

func TestConfigValidate(t *testing.T) {
	require.NoError(t, DefaultConfig().Validate())
	err := Config{AdminMargin: dec("-0.1"), GSTRate: dec("0.1")}.Validate()
	assert.ErrorIs(t, err, errs.ErrValidation)
}

func TestPriceDeliveryProRatesDeliveryCost(t *testing.T) {
	calc := NewCalculator(DefaultConfig())
	item := pricedItem(1, "10", "5")
	item.SupplierDeliveryCost = dec("10")
	first := models.Delivery{ID: 11, ItemID: 1, Quantity: dec("3"), ScheduledAt: time.Date(2026, 3, 1, 8, 0, 0, 0, time.UTC)}
	second := models.Delivery{ID: 12, ItemID: 1, Quantity: dec("2")}

	l1, err := calc.PriceDelivery(&item, &first)
	require.NoError(t, err)
	l2, err := calc.PriceDelivery(&item, &second)
	require.NoError(t, err)

	assertMoney(t, "45", l1.MaterialAmount)
	assertMoney(t, "9", l1.DeliveryAmount)
	assertMoney(t, "30", l2.MaterialAmount)
	assertMoney(t, "6", l2.DeliveryAmount)
	assert.Equal(t, uint(9), l1.SupplierID)

	totals := calc.TotalInvoice([]DeliveryLine{l1}, decimal.Zero)
	assertMoney(t, "45", totals.Subtotal)
	assertMoney(t, "9", totals.DeliveryTotal)
	assertMoney(t, "5.4", totals.GST)
	assertMoney(t, "59.4", totals.Total)
}

func TestInvoiceTotalsMatchRoundedLinesOnThirdShares(t *testing.T) {
	calc := NewCalculator(Config{AdminMargin: decimal.Zero, GSTRate: dec("0.1")})
	item := pricedItem(1, "1", "3")
	item.SupplierDeliveryCost = dec("10")

	var priced []DeliveryLine
	for id := uint(1); id <= 3; id++ {
		l, err := calc.PriceDelivery(&item, &models.Delivery{ID: id, ItemID: 1, Quantity: dec("1")})
		require.NoError(t, err)
		priced = append(priced, l)
	}
	totals := calc.TotalInvoice(priced, decimal.Zero)
	lines := InvoiceLines(priced)

	material, delivery, sum := decimal.Zero, decimal.Zero, decimal.Zero
	for _, l := range lines {
		assertMoney(t, "3.33", l.DeliveryAmount)
		material = material.Add(l.MaterialAmount)
		delivery = delivery.Add(l.DeliveryAmount)
		sum = sum.Add(l.LineTotal)
	}
	assertMoney(t, "3", totals.Subtotal)
	assertMoney(t, "9.99", totals.DeliveryTotal)
	assert.True(t, material.Equal(totals.Subtotal))
	assert.True(t, delivery.Equal(totals.DeliveryTotal))
	assert.True(t, sum.Equal(totals.Subtotal.Add(totals.DeliveryTotal)))
	assertMoney(t, "1.3", totals.GST)
	assertMoney(t, "14.29", totals.Total)
}

func TestPriceDeliveryRejectsUnpricedItem(t *testing.T) {
	calc := NewCalculator(DefaultConfig())
	item := models.OrderItem{ID: 1, Quantity: dec("5")}

	_, err := calc.PriceDelivery(&item, &models.Delivery{ID: 1, Quantity: dec("1")})

	assert.ErrorIs(t, err, errs.ErrState)
}

func TestTotalInvoiceIsDeterministic(t *testing.T) {
	calc := NewCalculator(DefaultConfig())
	item := pricedItem(1, "3.333", "7")
	item.SupplierDeliveryCost = dec("17.77")
	d := models.Delivery{ID: 1, Quantity: dec("3")}
	line, err := calc.PriceDelivery(&item, &d)
	require.NoError(t, err)

	first := calc.TotalInvoice([]DeliveryLine{line}, dec("1.11"))
	second := calc.TotalInvoice([]DeliveryLine{line}, dec("1.11"))

	assert.Equal(t, first.Total.String(), second.Total.String())
	assert.Equal(t, first.GST.String(), second.GST.String())
}

func TestInvoiceLinesSnapshot(t *testing.T) {
	lines := InvoiceLines([]DeliveryLine{
		{DeliveryID: 5, ItemID: 1, MaterialAmount: dec("10.005"), DeliveryAmount: dec("1.004"), UnitPrice: dec("3.33333")},
	})

	require.Len(t, lines, 1)
	assert.Equal(t, 1, lines[0].Position)
	assertMoney(t, "10.01", lines[0].MaterialAmount)
	assertMoney(t, "1", lines[0].DeliveryAmount)
	assertMoney(t, "11.01", lines[0].LineTotal)
	assertMoney(t, "3.3333", lines[0].UnitPrice)
}
