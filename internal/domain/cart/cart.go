// Package cart implements the per-user shopping cart aggregate. A cart
// holds line items for exactly one restaurant; totals are recomputed on
// every mutation so they are never stale.
package cart

import (
	"fmt"
	"time"

	"github.com/go-faster/errors"
	"github.com/shopspring/decimal"

	"github.com/chowline/chowline/internal/domain/catalog"
	"github.com/chowline/chowline/internal/domain/coupon"
	"github.com/chowline/chowline/internal/domain/pricing"
)

var (
	// ErrNotFound is returned when a user has no cart.
	ErrNotFound = errors.New("cart not found")
	// ErrItemUnavailable is returned when adding an item that is not
	// currently available.
	ErrItemUnavailable = errors.New("menu item unavailable")
	// ErrEmpty is returned when an operation requires a non-empty cart.
	ErrEmpty = errors.New("cart is empty")
	// ErrInvalidSubtotal is returned when a coupon is applied to a cart
	// whose subtotal is not positive.
	ErrInvalidSubtotal = errors.New("invalid subtotal")
	// ErrConflict is returned when a concurrent mutation changed the cart
	// between load and save. The client retries with fresh state.
	ErrConflict = errors.New("cart modified concurrently")
)

// ItemNotFoundError indicates the referenced line item is not in the cart.
type ItemNotFoundError struct {
	ItemID string
}

func (e *ItemNotFoundError) Error() string {
	return fmt.Sprintf("item %s not in cart", e.ItemID)
}

// CrossRestaurantError indicates an attempt to add an item from a different
// restaurant than the one the cart is bound to. The cart must be cleared
// first.
type CrossRestaurantError struct {
	CartRestaurantID string
	ItemRestaurantID string
}

func (e *CrossRestaurantError) Error() string {
	return fmt.Sprintf("cart is bound to restaurant %s, item belongs to %s: clear cart to order from a different restaurant",
		e.CartRestaurantID, e.ItemRestaurantID)
}

// Cart is the aggregate state. It is pure data: every mutation happens
// through methods that take already-resolved catalog values, so the
// aggregate itself performs no I/O.
type Cart struct {
	UserID           string
	RestaurantID     string // empty until the first item binds one
	Items            []pricing.LineItem
	DeliveryFee      decimal.Decimal
	PackagingPercent decimal.Decimal
	CouponID         string
	DiscountAmount   decimal.Decimal
	Totals           pricing.Totals
	UpdatedAt        time.Time

	// Version is the optimistic concurrency token. Zero means the cart has
	// never been persisted; the storage layer bumps it on every save.
	Version int64
}

// New returns an empty cart for the given user.
func New(userID string) *Cart {
	return &Cart{UserID: userID}
}

// Upsert adds a line item, or replaces it entirely when the item is already
// present (last write wins for quantity and customizations). The first item
// added to an empty cart binds the cart to the item's restaurant.
func (c *Cart) Upsert(
	item catalog.Item,
	rest catalog.Restaurant,
	quantity int,
	customizations []pricing.Customization,
	taxPercent decimal.Decimal,
) error {
	if !item.Available {
		return ErrItemUnavailable
	}

	if c.RestaurantID == "" {
		c.RestaurantID = rest.ID
		c.DeliveryFee = rest.DeliveryFee
		c.PackagingPercent = rest.PackagingPercent
	} else if c.RestaurantID != item.RestaurantID {
		return &CrossRestaurantError{
			CartRestaurantID: c.RestaurantID,
			ItemRestaurantID: item.RestaurantID,
		}
	}

	itemPrice, lineTotal, err := pricing.ComputeLineItem(
		item.BasePrice, item.DiscountedPrice, customizations, quantity)
	if err != nil {
		return err
	}

	unitPrice := item.BasePrice
	if item.DiscountedPrice != nil {
		unitPrice = *item.DiscountedPrice
	}

	line := pricing.LineItem{
		ItemID:         item.ID,
		Name:           item.Name,
		UnitPrice:      unitPrice,
		Quantity:       quantity,
		Customizations: customizations,
		ItemPrice:      itemPrice,
		LineTotal:      lineTotal,
	}

	replaced := false
	for i := range c.Items {
		if c.Items[i].ItemID == item.ID {
			c.Items[i] = line
			replaced = true
			break
		}
	}
	if !replaced {
		c.Items = append(c.Items, line)
	}

	c.recompute(taxPercent)
	return nil
}

// Remove deletes a line item. Removing the last item resets the restaurant
// binding, the fees, and any applied coupon: a coupon evaluated against a
// specific subtotal is meaningless on an empty cart.
func (c *Cart) Remove(itemID string, taxPercent decimal.Decimal) error {
	idx := -1
	for i := range c.Items {
		if c.Items[i].ItemID == itemID {
			idx = i
			break
		}
	}
	if idx < 0 {
		return &ItemNotFoundError{ItemID: itemID}
	}

	c.Items = append(c.Items[:idx], c.Items[idx+1:]...)
	if len(c.Items) == 0 {
		c.resetBindings()
	}

	c.recompute(taxPercent)
	return nil
}

// Clear unconditionally resets the cart to its pristine empty state.
func (c *Cart) Clear() {
	c.Items = nil
	c.resetBindings()
	c.Totals = pricing.Totals{
		Subtotal:        decimal.Zero,
		TaxAmount:       decimal.Zero,
		DeliveryFee:     decimal.Zero,
		PackagingCharge: decimal.Zero,
		DiscountAmount:  decimal.Zero,
		FinalAmount:     decimal.Zero,
	}
}

// ApplyCoupon records an evaluated coupon on the cart. At most one coupon
// may be active; callers remove the current one first.
func (c *Cart) ApplyCoupon(cpn *coupon.Coupon, discount decimal.Decimal, taxPercent decimal.Decimal) error {
	if len(c.Items) == 0 {
		return ErrEmpty
	}
	if !c.Totals.Subtotal.IsPositive() {
		return ErrInvalidSubtotal
	}
	if c.CouponID != "" {
		return coupon.ErrAlreadyApplied
	}

	c.CouponID = cpn.ID
	c.DiscountAmount = discount
	c.recompute(taxPercent)
	return nil
}

// RemoveCoupon drops the applied coupon and its discount, restoring the
// undiscounted final amount.
func (c *Cart) RemoveCoupon(taxPercent decimal.Decimal) {
	c.CouponID = ""
	c.DiscountAmount = decimal.Zero
	c.recompute(taxPercent)
}

// Reconcile drops every line item whose backing catalog entry is missing or
// no longer available, recomputes totals, and returns the dropped item IDs.
// This is the self-healing read path: it never fails.
func (c *Cart) Reconcile(current map[string]catalog.Item, taxPercent decimal.Decimal) (dropped []string) {
	kept := c.Items[:0]
	for _, line := range c.Items {
		item, ok := current[line.ItemID]
		if !ok || !item.Available {
			dropped = append(dropped, line.ItemID)
			continue
		}
		kept = append(kept, line)
	}
	if len(dropped) == 0 {
		return nil
	}

	c.Items = kept
	if len(c.Items) == 0 {
		c.resetBindings()
	}
	c.recompute(taxPercent)
	return dropped
}

func (c *Cart) resetBindings() {
	c.RestaurantID = ""
	c.DeliveryFee = decimal.Zero
	c.PackagingPercent = decimal.Zero
	c.CouponID = ""
	c.DiscountAmount = decimal.Zero
}

func (c *Cart) recompute(taxPercent decimal.Decimal) {
	rates := pricing.Rates{
		TaxPercent:       taxPercent,
		PackagingPercent: c.PackagingPercent,
	}
	c.Totals = pricing.ComputeCartTotals(c.Items, c.DeliveryFee, rates, c.DiscountAmount)
	c.DiscountAmount = c.Totals.DiscountAmount
}
