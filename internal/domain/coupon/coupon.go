// Package coupon defines discount coupons and their evaluation against a
// cart subtotal.
package coupon

import (
	"context"
	"fmt"
	"time"

	"github.com/go-faster/errors"
	"github.com/shopspring/decimal"
)

// Kind enumerates the supported coupon discount strategies.
type Kind string

const (
	// KindFlat subtracts a fixed monetary amount, capped at the subtotal.
	KindFlat Kind = "FLAT"
	// KindPercent subtracts a percentage of the subtotal.
	KindPercent Kind = "PERCENT"
)

var (
	// ErrNotFound is returned when a coupon code does not exist.
	ErrNotFound = errors.New("coupon not found")
	// ErrExpired is returned when a coupon is inactive or past its expiry.
	ErrExpired = errors.New("coupon expired")
	// ErrAlreadyApplied is returned when a cart already holds a coupon.
	// The caller must remove the active coupon first.
	ErrAlreadyApplied = errors.New("coupon already applied")
)

// MinimumNotMetError indicates the cart subtotal is below the coupon's
// minimum order amount.
type MinimumNotMetError struct {
	Code     string
	Minimum  decimal.Decimal
	Subtotal decimal.Decimal
}

func (e *MinimumNotMetError) Error() string {
	return fmt.Sprintf("coupon %s requires a minimum cart amount of %s, cart subtotal is %s",
		e.Code, e.Minimum, e.Subtotal)
}

// Coupon is a discount rule. Once referenced by a placed order it is
// treated as immutable for historical accuracy.
type Coupon struct {
	ID                string
	Code              string
	Kind              Kind
	Value             decimal.Decimal
	MinimumCartAmount decimal.Decimal
	ExpiresAt         *time.Time
	Active            bool
}

// Repository provides lookup of coupons by their unique code.
type Repository interface {
	FindByCode(ctx context.Context, code string) (*Coupon, error)
	FindByID(ctx context.Context, id string) (*Coupon, error)
}
