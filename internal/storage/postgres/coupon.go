package postgres

import (
	"context"
	"fmt"

	"github.com/go-faster/errors"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/chowline/chowline/internal/domain/coupon"
)

const (
	getCouponByCodeSQL = `SELECT id, code, kind, value, minimum_cart_amount, expires_at, active
		FROM coupons WHERE UPPER(code) = UPPER($1)`

	getCouponByIDSQL = `SELECT id, code, kind, value, minimum_cart_amount, expires_at, active
		FROM coupons WHERE id = $1`
)

var _ coupon.Repository = (*CouponRepository)(nil)

// CouponRepository implements coupon.Repository backed by PostgreSQL.
type CouponRepository struct {
	pool *pgxpool.Pool
}

// NewCouponRepository returns a CouponRepository that uses the given pool.
func NewCouponRepository(pool *pgxpool.Pool) *CouponRepository {
	return &CouponRepository{pool: pool}
}

// FindByCode looks up a coupon by its code (case-insensitive). Returns
// coupon.ErrNotFound when no such coupon exists; activity and expiry are
// evaluated by the caller.
func (r *CouponRepository) FindByCode(ctx context.Context, code string) (*coupon.Coupon, error) {
	return r.findOne(ctx, getCouponByCodeSQL, code)
}

// FindByID looks up a coupon by its identifier.
func (r *CouponRepository) FindByID(ctx context.Context, id string) (*coupon.Coupon, error) {
	return r.findOne(ctx, getCouponByIDSQL, id)
}

func (r *CouponRepository) findOne(ctx context.Context, sql, arg string) (*coupon.Coupon, error) {
	rows, err := r.pool.Query(ctx, sql, arg)
	if err != nil {
		return nil, fmt.Errorf("finding coupon %q: %w", arg, err)
	}

	c, err := pgx.CollectExactlyOneRow(rows, scanCoupon)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, coupon.ErrNotFound
		}
		return nil, fmt.Errorf("finding coupon %q: %w", arg, err)
	}
	return &c, nil
}

func scanCoupon(row pgx.CollectableRow) (coupon.Coupon, error) {
	var (
		c    coupon.Coupon
		kind string
	)
	err := row.Scan(
		&c.ID, &c.Code, &kind, &c.Value,
		&c.MinimumCartAmount, &c.ExpiresAt, &c.Active,
	)
	c.Kind = coupon.Kind(kind)
	return c, err
}
