package pricing

import (
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func dec(s string) decimal.Decimal {
	return decimal.RequireFromString(s)
}

func TestComputeLineItem_BasePrice(t *testing.T) {
	itemPrice, lineTotal, err := ComputeLineItem(dec("200"), nil, nil, 2)

	require.NoError(t, err)
	assert.True(t, dec("200").Equal(itemPrice))
	assert.True(t, dec("400").Equal(lineTotal))
}

func TestComputeLineItem_DiscountedPriceWins(t *testing.T) {
	discounted := dec("150")
	itemPrice, lineTotal, err := ComputeLineItem(dec("200"), &discounted, nil, 3)

	require.NoError(t, err)
	assert.True(t, dec("150").Equal(itemPrice))
	assert.True(t, dec("450").Equal(lineTotal))
}

func TestComputeLineItem_CustomizationSurcharge(t *testing.T) {
	customizations := []Customization{
		{
			GroupName: "size",
			Options:   []Option{{Name: "large", AdditionalPrice: dec("40")}},
		},
		{
			GroupName: "toppings",
			Options: []Option{
				{Name: "cheese", AdditionalPrice: dec("25")},
				{Name: "olives", AdditionalPrice: dec("15")},
			},
		},
	}

	itemPrice, lineTotal, err := ComputeLineItem(dec("200"), nil, customizations, 2)

	require.NoError(t, err)
	assert.True(t, dec("280").Equal(itemPrice))
	assert.True(t, dec("560").Equal(lineTotal))
}

func TestComputeLineItem_OptionOrderInvariant(t *testing.T) {
	opts := []Option{
		{Name: "a", AdditionalPrice: dec("10.50")},
		{Name: "b", AdditionalPrice: dec("5.25")},
		{Name: "c", AdditionalPrice: dec("0.75")},
	}
	forward := []Customization{{GroupName: "extras", Options: opts}}
	reversed := []Customization{{GroupName: "extras", Options: []Option{opts[2], opts[1], opts[0]}}}

	p1, t1, err := ComputeLineItem(dec("100"), nil, forward, 2)
	require.NoError(t, err)
	p2, t2, err := ComputeLineItem(dec("100"), nil, reversed, 2)
	require.NoError(t, err)

	assert.True(t, p1.Equal(p2))
	assert.True(t, t1.Equal(t2))
}

func TestComputeLineItem_RejectsNonPositiveQuantity(t *testing.T) {
	for _, qty := range []int{0, -1, -100} {
		_, _, err := ComputeLineItem(dec("100"), nil, nil, qty)
		require.ErrorIs(t, err, ErrInvalidQuantity, "quantity %d", qty)
	}
}

func TestComputeCartTotals_SpecExample(t *testing.T) {
	// One item: basePrice=200, quantity=2, no discount, no customizations.
	// deliveryFee=30, tax=5%, packaging=2%.
	itemPrice, lineTotal, err := ComputeLineItem(dec("200"), nil, nil, 2)
	require.NoError(t, err)

	items := []LineItem{{
		ItemID:    "i1",
		UnitPrice: dec("200"),
		Quantity:  2,
		ItemPrice: itemPrice,
		LineTotal: lineTotal,
	}}
	rates := Rates{TaxPercent: dec("5"), PackagingPercent: dec("2")}

	totals := ComputeCartTotals(items, dec("30"), rates, decimal.Zero)

	assert.Equal(t, 2, totals.ItemCount)
	assert.True(t, dec("400").Equal(totals.Subtotal))
	assert.True(t, dec("20").Equal(totals.TaxAmount))
	assert.True(t, dec("8").Equal(totals.PackagingCharge))
	assert.True(t, dec("30").Equal(totals.DeliveryFee))
	assert.True(t, dec("458").Equal(totals.FinalAmount))
}

func TestComputeCartTotals_FlatDiscount(t *testing.T) {
	items := []LineItem{{
		ItemID:    "i1",
		UnitPrice: dec("200"),
		Quantity:  2,
		ItemPrice: dec("200"),
		LineTotal: dec("400"),
	}}
	rates := Rates{TaxPercent: dec("5"), PackagingPercent: dec("2")}

	totals := ComputeCartTotals(items, dec("30"), rates, dec("100"))

	assert.True(t, dec("100").Equal(totals.DiscountAmount))
	assert.True(t, dec("358").Equal(totals.FinalAmount))
}

func TestComputeCartTotals_DiscountClampedToSubtotal(t *testing.T) {
	items := []LineItem{{
		ItemID:    "i1",
		UnitPrice: dec("300"),
		Quantity:  1,
		ItemPrice: dec("300"),
		LineTotal: dec("300"),
	}}

	totals := ComputeCartTotals(items, decimal.Zero, Rates{}, dec("500"))

	assert.True(t, dec("300").Equal(totals.DiscountAmount))
	assert.True(t, decimal.Zero.Equal(totals.FinalAmount))
}

func TestComputeCartTotals_EmptyCartAllZero(t *testing.T) {
	rates := Rates{TaxPercent: dec("5"), PackagingPercent: dec("2")}

	totals := ComputeCartTotals(nil, dec("30"), rates, decimal.Zero)

	assert.Equal(t, 0, totals.ItemCount)
	assert.True(t, decimal.Zero.Equal(totals.Subtotal))
	assert.True(t, decimal.Zero.Equal(totals.TaxAmount))
	assert.True(t, decimal.Zero.Equal(totals.DeliveryFee), "delivery fee must be zeroed for empty carts")
	assert.True(t, decimal.Zero.Equal(totals.PackagingCharge))
	assert.True(t, decimal.Zero.Equal(totals.FinalAmount))
}

func TestComputeCartTotals_TotalsIdentity(t *testing.T) {
	items := []LineItem{
		{ItemID: "i1", UnitPrice: dec("123.45"), Quantity: 3, ItemPrice: dec("123.45"), LineTotal: dec("370.35")},
		{ItemID: "i2", UnitPrice: dec("79.99"), Quantity: 1, ItemPrice: dec("89.99"), LineTotal: dec("89.99")},
	}
	rates := Rates{TaxPercent: dec("12"), PackagingPercent: dec("3")}

	totals := ComputeCartTotals(items, dec("45"), rates, dec("50"))

	sum := totals.Subtotal.
		Add(totals.TaxAmount).
		Add(totals.DeliveryFee).
		Add(totals.PackagingCharge).
		Sub(totals.DiscountAmount)
	assert.True(t, sum.Equal(totals.FinalAmount))
	assert.True(t, totals.DiscountAmount.LessThanOrEqual(totals.Subtotal))
}

func TestComputeCartTotals_Idempotent(t *testing.T) {
	items := []LineItem{
		{ItemID: "i1", UnitPrice: dec("99.99"), Quantity: 2, ItemPrice: dec("99.99"), LineTotal: dec("199.98")},
	}
	rates := Rates{TaxPercent: dec("5"), PackagingPercent: dec("2")}

	first := ComputeCartTotals(items, dec("30"), rates, dec("10"))
	second := ComputeCartTotals(items, dec("30"), rates, dec("10"))

	assert.Equal(t, first, second)
}
