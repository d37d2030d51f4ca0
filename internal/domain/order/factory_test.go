package order

import (
	"strings"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/chowline/chowline/internal/domain/cart"
	"github.com/chowline/chowline/internal/domain/catalog"
	"github.com/chowline/chowline/internal/domain/pricing"
)

func dec(s string) decimal.Decimal {
	return decimal.RequireFromString(s)
}

func checkoutCart(t *testing.T) *cart.Cart {
	t.Helper()
	c := cart.New("u1")
	item := catalog.Item{
		ID: "i1", RestaurantID: "r1", Name: "Paneer Tikka",
		BasePrice: dec("200"), Available: true,
	}
	rest := catalog.Restaurant{
		ID: "r1", DeliveryFee: dec("30"), PackagingPercent: dec("2"), AvgDeliveryMinutes: 40,
	}
	require.NoError(t, c.Upsert(item, rest, 2, nil, dec("5")))
	return c
}

func TestNewFromCart(t *testing.T) {
	c := checkoutCart(t)
	rest := &catalog.Restaurant{ID: "r1", AvgDeliveryMinutes: 40}

	o, err := NewFromCart(c, rest, "addr-1", PaymentCOD, "no onions", testNow)

	require.NoError(t, err)
	assert.NotEmpty(t, o.ID)
	assert.True(t, strings.HasPrefix(o.Number, "ORD-"))
	assert.Equal(t, "u1", o.UserID)
	assert.Equal(t, "r1", o.RestaurantID)
	assert.Equal(t, "addr-1", o.DeliveryAddressID)
	assert.Equal(t, "no onions", o.SpecialInstructions)
	assert.Equal(t, StatusPlaced, o.Status)
	assert.Equal(t, PaymentPending, o.PaymentStatus)
	assert.Equal(t, c.Totals, o.Totals)
	require.Len(t, o.Timeline, 1)
	assert.Equal(t, StatusPlaced, o.Timeline[0].Status)
	assert.Equal(t, testNow.Add(40*time.Minute), o.EstimatedDeliveryTime)
}

func TestNewFromCart_EmptyCart(t *testing.T) {
	c := cart.New("u1")

	_, err := NewFromCart(c, &catalog.Restaurant{ID: "r1"}, "addr-1", PaymentCOD, "", testNow)

	require.ErrorIs(t, err, ErrEmptyCart)
}

func TestNewFromCart_SnapshotIsolation(t *testing.T) {
	c := checkoutCart(t)
	rest := &catalog.Restaurant{ID: "r1", AvgDeliveryMinutes: 40}

	o, err := NewFromCart(c, rest, "addr-1", PaymentCOD, "", testNow)
	require.NoError(t, err)

	frozenTotal := o.Totals.FinalAmount

	// Mutating the cart after checkout must not leak into the order.
	c.Items[0].Quantity = 99
	c.Items[0].LineTotal = dec("99999")
	c.Clear()

	assert.Equal(t, 2, o.Items[0].Quantity)
	assert.True(t, frozenTotal.Equal(o.Totals.FinalAmount))
}

func TestNewFromCart_UniqueNumbers(t *testing.T) {
	c := checkoutCart(t)
	rest := &catalog.Restaurant{ID: "r1"}

	seen := make(map[string]struct{})
	for range 100 {
		o, err := NewFromCart(c, rest, "addr-1", PaymentCOD, "", testNow)
		require.NoError(t, err)
		_, dup := seen[o.Number]
		require.False(t, dup, "duplicate order number %s", o.Number)
		seen[o.Number] = struct{}{}
	}
}

func TestWalletAmount(t *testing.T) {
	o := &Order{PaymentMethod: PaymentWallet, Totals: pricing.Totals{FinalAmount: dec("458")}}
	assert.True(t, dec("458").Equal(o.WalletAmount()))

	o.PaymentMethod = PaymentCOD
	assert.True(t, decimal.Zero.Equal(o.WalletAmount()))
}
