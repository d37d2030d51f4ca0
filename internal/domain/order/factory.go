package order

import (
	"fmt"
	"time"

	"github.com/go-faster/errors"
	"github.com/google/uuid"

	"github.com/chowline/chowline/internal/domain/cart"
	"github.com/chowline/chowline/internal/domain/catalog"
	"github.com/chowline/chowline/internal/domain/pricing"
)

// ErrEmptyCart is returned when checking out a cart with no items.
var ErrEmptyCart = errors.New("cart is empty")

// NewFromCart snapshots a finalized cart into an immutable order: items and
// totals are copied by value so later cart mutations cannot leak into the
// order. The order starts PLACED with a single timeline entry; the
// estimated delivery time comes from the restaurant's average delivery
// duration.
func NewFromCart(
	c *cart.Cart,
	rest *catalog.Restaurant,
	deliveryAddressID string,
	method PaymentMethod,
	specialInstructions string,
	now time.Time,
) (*Order, error) {
	if len(c.Items) == 0 {
		return nil, ErrEmptyCart
	}

	items := make([]pricing.LineItem, len(c.Items))
	copy(items, c.Items)

	return &Order{
		ID:                  uuid.New().String(),
		Number:              NewNumber(now),
		UserID:              c.UserID,
		RestaurantID:        c.RestaurantID,
		Items:               items,
		Totals:              c.Totals,
		CouponID:            c.CouponID,
		PaymentMethod:       method,
		PaymentStatus:       PaymentPending,
		DeliveryAddressID:   deliveryAddressID,
		Status:              StatusPlaced,
		SpecialInstructions: specialInstructions,
		Timeline: []TimelineEntry{{
			Status:    StatusPlaced,
			Timestamp: now,
			Note:      "Order placed successfully",
		}},
		EstimatedDeliveryTime: now.Add(time.Duration(rest.AvgDeliveryMinutes) * time.Minute),
		CreatedAt:             now,
	}, nil
}

// NewNumber builds a human-readable order number from the millisecond
// timestamp and a random disambiguator. Uniqueness is ultimately enforced
// by the orders.number constraint in the database; the storage layer
// regenerates on conflict.
func NewNumber(now time.Time) string {
	ts := fmt.Sprintf("%d", now.UnixMilli())
	if len(ts) > 8 {
		ts = ts[len(ts)-8:]
	}
	return fmt.Sprintf("ORD-%s-%s", ts, uuid.New().String()[:8])
}
