// Package pricing computes line-item and cart-level monetary totals.
// All functions are pure: inputs are already-resolved values, there is no
// I/O, and re-running a computation over its own output is idempotent.
package pricing

import (
	"github.com/go-faster/errors"
	"github.com/shopspring/decimal"
)

// ErrInvalidQuantity is returned when a line item quantity is not a
// positive integer.
var ErrInvalidQuantity = errors.New("quantity must be greater than 0")

var hundred = decimal.NewFromInt(100)

// Option is a single selectable choice inside a customization group.
type Option struct {
	Name            string          `json:"name"`
	AdditionalPrice decimal.Decimal `json:"additionalPrice"`
}

// Customization is a named option group on a menu item (e.g. "size") with
// the options the customer selected.
type Customization struct {
	GroupName string   `json:"groupName"`
	Options   []Option `json:"options"`
}

// LineItem is one menu item plus quantity and customizations, with its
// computed prices. ItemPrice and LineTotal are always recomputed on
// mutation, never stored stale.
type LineItem struct {
	ItemID         string          `json:"itemId"`
	Name           string          `json:"name"`
	UnitPrice      decimal.Decimal `json:"unitPrice"`
	Quantity       int             `json:"quantity"`
	Customizations []Customization `json:"customizations,omitempty"`
	ItemPrice      decimal.Decimal `json:"itemPrice"`
	LineTotal      decimal.Decimal `json:"lineTotal"`
}

// Totals holds every monetary aggregate of a cart or order.
type Totals struct {
	ItemCount       int             `json:"itemCount"`
	Subtotal        decimal.Decimal `json:"subtotal"`
	TaxAmount       decimal.Decimal `json:"taxAmount"`
	DeliveryFee     decimal.Decimal `json:"deliveryFee"`
	PackagingCharge decimal.Decimal `json:"packagingCharge"`
	DiscountAmount  decimal.Decimal `json:"discountAmount"`
	FinalAmount     decimal.Decimal `json:"finalAmount"`
}

// Rates holds the percentage rates applied on top of a cart subtotal.
// Both are expressed in percent (5 means 5%).
type Rates struct {
	TaxPercent       decimal.Decimal
	PackagingPercent decimal.Decimal
}

// ComputeLineItem calculates the effective per-unit price and the line total
// for one item. The effective price is the discounted price when present,
// the base price otherwise, plus the sum of every selected option's
// additional price across all customization groups.
func ComputeLineItem(
	basePrice decimal.Decimal,
	discountedPrice *decimal.Decimal,
	customizations []Customization,
	quantity int,
) (itemPrice, lineTotal decimal.Decimal, err error) {
	if quantity <= 0 {
		return decimal.Zero, decimal.Zero, ErrInvalidQuantity
	}

	effective := basePrice
	if discountedPrice != nil {
		effective = *discountedPrice
	}

	surcharge := decimal.Zero
	for _, c := range customizations {
		for _, opt := range c.Options {
			surcharge = surcharge.Add(opt.AdditionalPrice)
		}
	}

	itemPrice = effective.Add(surcharge)
	lineTotal = itemPrice.Mul(decimal.NewFromInt(int64(quantity)))
	return itemPrice, lineTotal, nil
}

// ComputeCartTotals aggregates line items into cart totals.
//
// Delivery fee and packaging charge apply only to non-empty carts. The
// discount is clamped so it never exceeds the subtotal, keeping
// finalAmount = subtotal + tax + deliveryFee + packaging - discount
// non-negative in the discount term. All monetary results are rounded
// half-up to 2 decimal places.
func ComputeCartTotals(
	items []LineItem,
	deliveryFee decimal.Decimal,
	rates Rates,
	discount decimal.Decimal,
) Totals {
	itemCount := 0
	subtotal := decimal.Zero
	for _, item := range items {
		itemCount += item.Quantity
		subtotal = subtotal.Add(item.LineTotal)
	}
	subtotal = subtotal.Round(2)

	tax := subtotal.Mul(rates.TaxPercent).Div(hundred).Round(2)

	packaging := decimal.Zero
	fee := decimal.Zero
	if len(items) > 0 {
		packaging = subtotal.Mul(rates.PackagingPercent).Div(hundred).Round(2)
		fee = deliveryFee.Round(2)
	}

	discount = decimal.Min(discount, subtotal).Round(2)
	if discount.IsNegative() {
		discount = decimal.Zero
	}

	final := subtotal.Add(tax).Add(fee).Add(packaging).Sub(discount).Round(2)

	return Totals{
		ItemCount:       itemCount,
		Subtotal:        subtotal,
		TaxAmount:       tax,
		DeliveryFee:     fee,
		PackagingCharge: packaging,
		DiscountAmount:  discount,
		FinalAmount:     final,
	}
}
