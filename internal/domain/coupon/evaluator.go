package coupon

import (
	"context"
	"time"

	"github.com/go-faster/errors"
	"github.com/shopspring/decimal"
)

var hundred = decimal.NewFromInt(100)

// Evaluator validates a coupon code against a cart subtotal and computes
// the resulting discount.
type Evaluator struct {
	repo Repository
	now  func() time.Time
}

// NewEvaluator creates an Evaluator backed by the given Repository.
func NewEvaluator(repo Repository) *Evaluator {
	return &Evaluator{repo: repo, now: time.Now}
}

// Evaluate looks up the coupon for code, checks that it is active, within
// its validity window, and that the subtotal meets its minimum, then
// returns the coupon together with its computed discount.
func (e *Evaluator) Evaluate(ctx context.Context, code string, subtotal decimal.Decimal) (*Coupon, decimal.Decimal, error) {
	c, err := e.repo.FindByCode(ctx, code)
	if err != nil {
		if errors.Is(err, ErrNotFound) {
			return nil, decimal.Zero, ErrNotFound
		}
		return nil, decimal.Zero, errors.Wrap(err, "lookup coupon")
	}

	if !c.Active {
		return nil, decimal.Zero, ErrExpired
	}
	if c.ExpiresAt != nil && e.now().After(*c.ExpiresAt) {
		return nil, decimal.Zero, ErrExpired
	}

	if subtotal.LessThan(c.MinimumCartAmount) {
		return nil, decimal.Zero, &MinimumNotMetError{
			Code:     c.Code,
			Minimum:  c.MinimumCartAmount,
			Subtotal: subtotal,
		}
	}

	return c, Discount(c, subtotal), nil
}

// Discount computes the discount amount for a coupon applied to subtotal,
// clamped so it never exceeds the subtotal. Pure function.
func Discount(c *Coupon, subtotal decimal.Decimal) decimal.Decimal {
	var amount decimal.Decimal
	switch c.Kind {
	case KindPercent:
		amount = subtotal.Mul(c.Value).Div(hundred)
	default:
		amount = c.Value
	}

	amount = decimal.Min(amount, subtotal)
	if amount.IsNegative() {
		amount = decimal.Zero
	}
	return amount.Round(2)
}
