package cart

import (
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/chowline/chowline/internal/domain/catalog"
	"github.com/chowline/chowline/internal/domain/coupon"
	"github.com/chowline/chowline/internal/domain/pricing"
)

func dec(s string) decimal.Decimal {
	return decimal.RequireFromString(s)
}

var taxPercent = dec("5")

func testRestaurant() catalog.Restaurant {
	return catalog.Restaurant{
		ID:                 "r1",
		Name:               "Spice Route",
		DeliveryFee:        dec("30"),
		PackagingPercent:   dec("2"),
		AvgDeliveryMinutes: 35,
	}
}

func testItem(id string, price string) catalog.Item {
	return catalog.Item{
		ID:           id,
		RestaurantID: "r1",
		Name:         "Item " + id,
		BasePrice:    dec(price),
		Available:    true,
	}
}

func TestUpsert_BindsRestaurantOnFirstAdd(t *testing.T) {
	c := New("u1")

	err := c.Upsert(testItem("i1", "200"), testRestaurant(), 2, nil, taxPercent)

	require.NoError(t, err)
	assert.Equal(t, "r1", c.RestaurantID)
	assert.True(t, dec("30").Equal(c.DeliveryFee))
	assert.True(t, dec("400").Equal(c.Totals.Subtotal))
	assert.True(t, dec("458").Equal(c.Totals.FinalAmount))
}

func TestUpsert_UnavailableItem(t *testing.T) {
	c := New("u1")
	item := testItem("i1", "200")
	item.Available = false

	err := c.Upsert(item, testRestaurant(), 1, nil, taxPercent)

	require.ErrorIs(t, err, ErrItemUnavailable)
	assert.Empty(t, c.Items)
}

func TestUpsert_CrossRestaurantConflict(t *testing.T) {
	c := New("u1")
	require.NoError(t, c.Upsert(testItem("i1", "200"), testRestaurant(), 1, nil, taxPercent))

	other := testItem("i2", "100")
	other.RestaurantID = "r2"
	err := c.Upsert(other, catalog.Restaurant{ID: "r2"}, 1, nil, taxPercent)

	var crossErr *CrossRestaurantError
	require.ErrorAs(t, err, &crossErr)
	assert.Equal(t, "r1", crossErr.CartRestaurantID)
	assert.Equal(t, "r2", crossErr.ItemRestaurantID)
}

func TestUpsert_ReplacesExistingItem(t *testing.T) {
	c := New("u1")
	require.NoError(t, c.Upsert(testItem("i1", "200"), testRestaurant(), 2, nil, taxPercent))
	require.NoError(t, c.Upsert(testItem("i1", "200"), testRestaurant(), 5, nil, taxPercent))

	require.Len(t, c.Items, 1)
	assert.Equal(t, 5, c.Items[0].Quantity)
	assert.True(t, dec("1000").Equal(c.Totals.Subtotal))
}

func TestUpsert_Idempotent(t *testing.T) {
	build := func(times int) *Cart {
		c := New("u1")
		for range times {
			require.NoError(t, c.Upsert(testItem("i1", "200"), testRestaurant(), 2, nil, taxPercent))
		}
		return c
	}

	once := build(1)
	twice := build(2)

	assert.Equal(t, once.Items, twice.Items)
	assert.Equal(t, once.Totals, twice.Totals)
}

func TestUpsert_InvalidQuantity(t *testing.T) {
	c := New("u1")

	err := c.Upsert(testItem("i1", "200"), testRestaurant(), 0, nil, taxPercent)

	require.ErrorIs(t, err, pricing.ErrInvalidQuantity)
}

func TestUpsert_DiscountedPriceAndCustomizations(t *testing.T) {
	c := New("u1")
	item := testItem("i1", "250")
	discounted := dec("200")
	item.DiscountedPrice = &discounted
	customizations := []pricing.Customization{{
		GroupName: "size",
		Options:   []pricing.Option{{Name: "large", AdditionalPrice: dec("50")}},
	}}

	require.NoError(t, c.Upsert(item, testRestaurant(), 2, customizations, taxPercent))

	line := c.Items[0]
	assert.True(t, dec("200").Equal(line.UnitPrice))
	assert.True(t, dec("250").Equal(line.ItemPrice))
	assert.True(t, dec("500").Equal(line.LineTotal))
}

func TestRemove_ItemNotFound(t *testing.T) {
	c := New("u1")

	err := c.Remove("ghost", taxPercent)

	var nfErr *ItemNotFoundError
	require.ErrorAs(t, err, &nfErr)
	assert.Equal(t, "ghost", nfErr.ItemID)
}

func TestRemove_LastItemResetsBindings(t *testing.T) {
	c := New("u1")
	require.NoError(t, c.Upsert(testItem("i1", "200"), testRestaurant(), 2, nil, taxPercent))
	require.NoError(t, c.ApplyCoupon(
		&coupon.Coupon{ID: "c1", Code: "SAVE", Kind: coupon.KindFlat, Value: dec("50")},
		dec("50"), taxPercent))

	require.NoError(t, c.Remove("i1", taxPercent))

	assert.Empty(t, c.Items)
	assert.Empty(t, c.RestaurantID)
	assert.Empty(t, c.CouponID)
	assert.True(t, decimal.Zero.Equal(c.DeliveryFee))
	assert.True(t, decimal.Zero.Equal(c.DiscountAmount))
	assert.True(t, decimal.Zero.Equal(c.Totals.Subtotal))
	assert.True(t, decimal.Zero.Equal(c.Totals.PackagingCharge))
	assert.True(t, decimal.Zero.Equal(c.Totals.FinalAmount))
}

func TestRemove_KeepsOtherItems(t *testing.T) {
	c := New("u1")
	require.NoError(t, c.Upsert(testItem("i1", "200"), testRestaurant(), 1, nil, taxPercent))
	require.NoError(t, c.Upsert(testItem("i2", "100"), testRestaurant(), 1, nil, taxPercent))

	require.NoError(t, c.Remove("i1", taxPercent))

	require.Len(t, c.Items, 1)
	assert.Equal(t, "i2", c.Items[0].ItemID)
	assert.Equal(t, "r1", c.RestaurantID)
	assert.True(t, dec("100").Equal(c.Totals.Subtotal))
}

func TestClear_ResetsEverything(t *testing.T) {
	c := New("u1")
	require.NoError(t, c.Upsert(testItem("i1", "200"), testRestaurant(), 2, nil, taxPercent))

	c.Clear()

	assert.Empty(t, c.Items)
	assert.Empty(t, c.RestaurantID)
	assert.True(t, decimal.Zero.Equal(c.Totals.FinalAmount))
}

func TestApplyCoupon_EmptyCart(t *testing.T) {
	c := New("u1")

	err := c.ApplyCoupon(&coupon.Coupon{ID: "c1"}, dec("10"), taxPercent)

	require.ErrorIs(t, err, ErrEmpty)
}

func TestApplyCoupon_SecondCouponRejected(t *testing.T) {
	c := New("u1")
	require.NoError(t, c.Upsert(testItem("i1", "400"), testRestaurant(), 1, nil, taxPercent))
	require.NoError(t, c.ApplyCoupon(&coupon.Coupon{ID: "c1"}, dec("50"), taxPercent))

	err := c.ApplyCoupon(&coupon.Coupon{ID: "c2"}, dec("60"), taxPercent)

	require.ErrorIs(t, err, coupon.ErrAlreadyApplied)
	assert.Equal(t, "c1", c.CouponID)
}

func TestRemoveCoupon_RestoresFinalAmount(t *testing.T) {
	c := New("u1")
	require.NoError(t, c.Upsert(testItem("i1", "200"), testRestaurant(), 2, nil, taxPercent))
	before := c.Totals.FinalAmount

	require.NoError(t, c.ApplyCoupon(&coupon.Coupon{ID: "c1"}, dec("100"), taxPercent))
	assert.True(t, dec("358").Equal(c.Totals.FinalAmount))

	c.RemoveCoupon(taxPercent)
	assert.Empty(t, c.CouponID)
	assert.True(t, before.Equal(c.Totals.FinalAmount))
}

func TestReconcile_DropsUnavailableItems(t *testing.T) {
	c := New("u1")
	require.NoError(t, c.Upsert(testItem("i1", "200"), testRestaurant(), 1, nil, taxPercent))
	require.NoError(t, c.Upsert(testItem("i2", "100"), testRestaurant(), 1, nil, taxPercent))

	gone := testItem("i2", "100")
	gone.Available = false
	dropped := c.Reconcile(map[string]catalog.Item{
		"i1": testItem("i1", "200"),
		"i2": gone,
	}, taxPercent)

	assert.Equal(t, []string{"i2"}, dropped)
	require.Len(t, c.Items, 1)
	assert.True(t, dec("200").Equal(c.Totals.Subtotal))
}

func TestReconcile_AllItemsGoneResetsCart(t *testing.T) {
	c := New("u1")
	require.NoError(t, c.Upsert(testItem("i1", "200"), testRestaurant(), 1, nil, taxPercent))

	dropped := c.Reconcile(map[string]catalog.Item{}, taxPercent)

	assert.Equal(t, []string{"i1"}, dropped)
	assert.Empty(t, c.RestaurantID)
	assert.True(t, decimal.Zero.Equal(c.Totals.FinalAmount))
}

func TestReconcile_NoChangesReturnsNil(t *testing.T) {
	c := New("u1")
	require.NoError(t, c.Upsert(testItem("i1", "200"), testRestaurant(), 1, nil, taxPercent))
	before := c.Totals

	dropped := c.Reconcile(map[string]catalog.Item{"i1": testItem("i1", "200")}, taxPercent)

	assert.Nil(t, dropped)
	assert.Equal(t, before, c.Totals)
}

func TestTotalsIdentityAfterEveryMutation(t *testing.T) {
	check := func(c *Cart) {
		t.Helper()
		sum := c.Totals.Subtotal.
			Add(c.Totals.TaxAmount).
			Add(c.Totals.DeliveryFee).
			Add(c.Totals.PackagingCharge).
			Sub(c.Totals.DiscountAmount)
		assert.True(t, sum.Equal(c.Totals.FinalAmount))
		assert.True(t, c.Totals.DiscountAmount.LessThanOrEqual(c.Totals.Subtotal))
	}

	c := New("u1")
	require.NoError(t, c.Upsert(testItem("i1", "200"), testRestaurant(), 2, nil, taxPercent))
	check(c)
	require.NoError(t, c.Upsert(testItem("i2", "150"), testRestaurant(), 1, nil, taxPercent))
	check(c)
	require.NoError(t, c.ApplyCoupon(&coupon.Coupon{ID: "c1"}, dec("100"), taxPercent))
	check(c)
	require.NoError(t, c.Remove("i2", taxPercent))
	check(c)
	c.RemoveCoupon(taxPercent)
	check(c)
	require.NoError(t, c.Remove("i1", taxPercent))
	check(c)
}
