package cart

import (
	"context"
	"time"

	"github.com/go-faster/errors"
	"github.com/shopspring/decimal"

	"github.com/chowline/chowline/internal/domain/catalog"
	"github.com/chowline/chowline/internal/domain/coupon"
	"github.com/chowline/chowline/internal/domain/pricing"
)

// Repository defines persistence operations for carts. Implementations must
// serialize concurrent mutations to the same user's cart (the service
// assumes every mutation starts from a freshly-read state).
type Repository interface {
	FindByUser(ctx context.Context, userID string) (*Cart, error)
	Save(ctx context.Context, c *Cart) error
	Delete(ctx context.Context, userID string) error
}

// GetResult is the outcome of a cart read: the (possibly self-healed) cart
// and the IDs of any items dropped because their catalog entry went away.
type GetResult struct {
	Cart         *Cart
	DroppedItems []string
}

// Service orchestrates cart mutations: it resolves catalog and coupon state
// up front and hands fully-resolved values to the aggregate, which performs
// the pure computation.
type Service struct {
	carts       Repository
	items       catalog.ItemRepository
	restaurants catalog.RestaurantRepository
	coupons     *coupon.Evaluator
	taxPercent  decimal.Decimal
	now         func() time.Time
}

// NewService creates a cart Service with the required dependencies.
// taxPercent is the service-wide tax rate applied to cart subtotals.
func NewService(
	carts Repository,
	items catalog.ItemRepository,
	restaurants catalog.RestaurantRepository,
	coupons *coupon.Evaluator,
	taxPercent decimal.Decimal,
) *Service {
	return &Service{
		carts:       carts,
		items:       items,
		restaurants: restaurants,
		coupons:     coupons,
		taxPercent:  taxPercent,
		now:         time.Now,
	}
}

// Get returns the user's cart, lazily creating an empty one on first
// access. Items whose catalog entries are gone or unavailable are silently
// dropped and reported in the result.
func (s *Service) Get(ctx context.Context, userID string) (*GetResult, error) {
	c, err := s.load(ctx, userID)
	if err != nil {
		return nil, err
	}

	if len(c.Items) == 0 {
		return &GetResult{Cart: c}, nil
	}

	ids := make([]string, len(c.Items))
	for i, line := range c.Items {
		ids[i] = line.ItemID
	}
	fetched, err := s.items.GetByIDs(ctx, ids)
	if err != nil {
		return nil, errors.Wrap(err, "get cart items")
	}

	current := make(map[string]catalog.Item, len(fetched))
	for _, item := range fetched {
		current[item.ID] = item
	}

	dropped := c.Reconcile(current, s.taxPercent)
	if len(dropped) > 0 {
		c.UpdatedAt = s.now()
		if err := s.carts.Save(ctx, c); err != nil {
			return nil, errors.Wrap(err, "save reconciled cart")
		}
	}

	return &GetResult{Cart: c, DroppedItems: dropped}, nil
}

// AddItem adds or replaces a line item in the user's cart.
func (s *Service) AddItem(
	ctx context.Context,
	userID, itemID string,
	quantity int,
	customizations []pricing.Customization,
) (*Cart, error) {
	item, err := s.items.GetByID(ctx, itemID)
	if err != nil {
		return nil, err
	}

	rest, err := s.restaurants.GetByID(ctx, item.RestaurantID)
	if err != nil {
		return nil, err
	}

	c, err := s.load(ctx, userID)
	if err != nil {
		return nil, err
	}

	if err := c.Upsert(*item, *rest, quantity, customizations, s.taxPercent); err != nil {
		return nil, err
	}

	return c, s.save(ctx, c)
}

// RemoveItem removes a line item from the user's cart.
func (s *Service) RemoveItem(ctx context.Context, userID, itemID string) (*Cart, error) {
	c, err := s.carts.FindByUser(ctx, userID)
	if err != nil {
		return nil, err
	}

	if err := c.Remove(itemID, s.taxPercent); err != nil {
		return nil, err
	}

	return c, s.save(ctx, c)
}

// Clear resets the user's cart to the empty state.
func (s *Service) Clear(ctx context.Context, userID string) (*Cart, error) {
	c, err := s.carts.FindByUser(ctx, userID)
	if err != nil {
		return nil, err
	}

	c.Clear()
	return c, s.save(ctx, c)
}

// ApplyCoupon evaluates a coupon code against the cart subtotal and records
// the resulting discount on the cart.
func (s *Service) ApplyCoupon(ctx context.Context, userID, code string) (*Cart, error) {
	c, err := s.carts.FindByUser(ctx, userID)
	if err != nil {
		return nil, err
	}

	if len(c.Items) == 0 {
		return nil, ErrEmpty
	}
	if !c.Totals.Subtotal.IsPositive() {
		return nil, ErrInvalidSubtotal
	}
	if c.CouponID != "" {
		return nil, coupon.ErrAlreadyApplied
	}

	cpn, discount, err := s.coupons.Evaluate(ctx, code, c.Totals.Subtotal)
	if err != nil {
		return nil, err
	}

	if err := c.ApplyCoupon(cpn, discount, s.taxPercent); err != nil {
		return nil, err
	}

	return c, s.save(ctx, c)
}

// RemoveCoupon clears the applied coupon, restoring the undiscounted total.
func (s *Service) RemoveCoupon(ctx context.Context, userID string) (*Cart, error) {
	c, err := s.carts.FindByUser(ctx, userID)
	if err != nil {
		return nil, err
	}

	c.RemoveCoupon(s.taxPercent)
	return c, s.save(ctx, c)
}

// load fetches the user's cart, creating an empty one on first access.
func (s *Service) load(ctx context.Context, userID string) (*Cart, error) {
	c, err := s.carts.FindByUser(ctx, userID)
	if err == nil {
		return c, nil
	}
	if errors.Is(err, ErrNotFound) {
		return New(userID), nil
	}
	return nil, errors.Wrap(err, "find cart")
}

func (s *Service) save(ctx context.Context, c *Cart) error {
	c.UpdatedAt = s.now()
	if err := s.carts.Save(ctx, c); err != nil {
		return errors.Wrap(err, "save cart")
	}
	return nil
}
