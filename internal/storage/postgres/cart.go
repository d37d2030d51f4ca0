package postgres

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/go-faster/errors"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/chowline/chowline/internal/domain/cart"
)

const (
	getCartByUserSQL = `SELECT user_id, restaurant_id, items, delivery_fee, packaging_percent,
		coupon_id, discount_amount, totals, version, updated_at
		FROM carts WHERE user_id = $1`

	insertCartSQL = `INSERT INTO carts (user_id, restaurant_id, items, delivery_fee, packaging_percent,
			coupon_id, discount_amount, totals, version, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, 1, $9)
		ON CONFLICT (user_id) DO NOTHING`

	updateCartSQL = `UPDATE carts SET
			restaurant_id = $2,
			items = $3,
			delivery_fee = $4,
			packaging_percent = $5,
			coupon_id = $6,
			discount_amount = $7,
			totals = $8,
			version = version + 1,
			updated_at = $9
		WHERE user_id = $1 AND version = $10`

	deleteCartSQL = `DELETE FROM carts WHERE user_id = $1`
)

var _ cart.Repository = (*CartRepository)(nil)

// CartRepository implements cart.Repository backed by PostgreSQL. A cart is
// stored as one row per user; line items and totals are JSONB snapshots of
// the aggregate.
type CartRepository struct {
	pool *pgxpool.Pool
}

// NewCartRepository returns a CartRepository that uses the given pool.
func NewCartRepository(pool *pgxpool.Pool) *CartRepository {
	return &CartRepository{pool: pool}
}

// FindByUser returns the user's cart. Returns cart.ErrNotFound when the
// user has no cart row.
func (r *CartRepository) FindByUser(ctx context.Context, userID string) (*cart.Cart, error) {
	rows, err := r.pool.Query(ctx, getCartByUserSQL, userID)
	if err != nil {
		return nil, fmt.Errorf("finding cart for user %q: %w", userID, err)
	}

	c, err := pgx.CollectExactlyOneRow(rows, scanCart)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, cart.ErrNotFound
		}
		return nil, fmt.Errorf("finding cart for user %q: %w", userID, err)
	}
	return &c, nil
}

// Save persists the full cart snapshot using the version column as a
// compare-and-swap token: a snapshot loaded at version N only writes if the
// row is still at version N, so concurrent mutations of the same cart
// cannot overwrite each other. A losing writer gets cart.ErrConflict and
// must reload.
func (r *CartRepository) Save(ctx context.Context, c *cart.Cart) error {
	itemsJSON, err := json.Marshal(c.Items)
	if err != nil {
		return fmt.Errorf("marshaling cart items: %w", err)
	}
	totalsJSON, err := json.Marshal(c.Totals)
	if err != nil {
		return fmt.Errorf("marshaling cart totals: %w", err)
	}

	if c.Version == 0 {
		tag, err := r.pool.Exec(ctx, insertCartSQL,
			c.UserID, c.RestaurantID, itemsJSON, c.DeliveryFee, c.PackagingPercent,
			c.CouponID, c.DiscountAmount, totalsJSON, c.UpdatedAt,
		)
		if err != nil {
			return fmt.Errorf("saving cart for user %q: %w", c.UserID, err)
		}
		if tag.RowsAffected() == 0 {
			// Another request created the row first.
			return cart.ErrConflict
		}
		c.Version = 1
		return nil
	}

	tag, err := r.pool.Exec(ctx, updateCartSQL,
		c.UserID, c.RestaurantID, itemsJSON, c.DeliveryFee, c.PackagingPercent,
		c.CouponID, c.DiscountAmount, totalsJSON, c.UpdatedAt, c.Version,
	)
	if err != nil {
		return fmt.Errorf("saving cart for user %q: %w", c.UserID, err)
	}
	if tag.RowsAffected() == 0 {
		return cart.ErrConflict
	}
	c.Version++
	return nil
}

// Delete removes the user's cart row. Deleting an absent cart is not an
// error.
func (r *CartRepository) Delete(ctx context.Context, userID string) error {
	_, err := r.pool.Exec(ctx, deleteCartSQL, userID)
	if err != nil {
		return fmt.Errorf("deleting cart for user %q: %w", userID, err)
	}
	return nil
}

func scanCart(row pgx.CollectableRow) (cart.Cart, error) {
	var (
		c          cart.Cart
		itemsJSON  []byte
		totalsJSON []byte
	)
	err := row.Scan(
		&c.UserID, &c.RestaurantID, &itemsJSON, &c.DeliveryFee, &c.PackagingPercent,
		&c.CouponID, &c.DiscountAmount, &totalsJSON, &c.Version, &c.UpdatedAt,
	)
	if err != nil {
		return c, err
	}
	if err := json.Unmarshal(itemsJSON, &c.Items); err != nil {
		return c, fmt.Errorf("unmarshaling cart items: %w", err)
	}
	if err := json.Unmarshal(totalsJSON, &c.Totals); err != nil {
		return c, fmt.Errorf("unmarshaling cart totals: %w", err)
	}
	return c, nil
}
