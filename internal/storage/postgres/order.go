package postgres

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/go-faster/errors"
	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/shopspring/decimal"

	"github.com/chowline/chowline/internal/domain/order"
	"github.com/chowline/chowline/internal/domain/wallet"
)

const (
	insertOrderSQL = `INSERT INTO orders (id, number, user_id, restaurant_id, items,
			subtotal, tax_amount, delivery_fee, packaging_charge, discount_amount, final_amount, item_count,
			coupon_id, payment_method, payment_status, status,
			delivery_address_id, delivery_partner_id, timeline, special_instructions,
			estimated_delivery_time, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12,
			$13, $14, $15, $16, $17, $18, $19, $20, $21, $22, $22)`

	orderColumns = `id, number, user_id, restaurant_id, items,
		subtotal, tax_amount, delivery_fee, packaging_charge, discount_amount, final_amount, item_count,
		coupon_id, payment_method, payment_status, status,
		delivery_address_id, delivery_partner_id, timeline, special_instructions,
		cancel_reason, cancelled_by, estimated_delivery_time, actual_delivery_time, created_at`

	getOrderByIDSQL = `SELECT ` + orderColumns + ` FROM orders WHERE id = $1`

	updateOrderSQL = `UPDATE orders SET
			payment_status = $2, status = $3, delivery_partner_id = $4, timeline = $5,
			cancel_reason = $6, cancelled_by = $7, actual_delivery_time = $8, updated_at = NOW()
		WHERE id = $1`

	listOrdersByUserSQL = `SELECT ` + orderColumns + ` FROM orders
		WHERE user_id = $1 AND ($2::TEXT = '' OR status = $2)
		ORDER BY created_at DESC LIMIT $3 OFFSET $4`

	listOrdersByRestaurantSQL = `SELECT ` + orderColumns + ` FROM orders
		WHERE restaurant_id = $1 AND ($2::TEXT = '' OR status = $2)
		ORDER BY created_at DESC LIMIT $3 OFFSET $4`

	listOrdersByPartnerSQL = `SELECT ` + orderColumns + ` FROM orders
		WHERE delivery_partner_id = $1 AND ($2::TEXT = '' OR status = $2)
		ORDER BY created_at DESC LIMIT $3 OFFSET $4`

	listAllOrdersSQL = `SELECT ` + orderColumns + ` FROM orders
		WHERE ($1::TEXT = '' OR status = $1)
		ORDER BY created_at DESC LIMIT $2 OFFSET $3`

	lockWalletSQL = `SELECT pg_advisory_xact_lock(hashtext($1))`

	walletBalanceSQL = `SELECT COALESCE(SUM(CASE WHEN type = 'CREDIT' THEN amount ELSE -amount END), 0)
		FROM wallet_transactions WHERE user_id = $1`

	insertWalletDebitSQL = `INSERT INTO wallet_transactions (id, user_id, type, amount, description, reference, created_at)
		VALUES ($1, $2, 'DEBIT', $3, $4, $5, $6)`
)

const defaultListLimit = 50

var _ order.Repository = (*OrderRepository)(nil)

// OrderRepository implements order.Repository backed by PostgreSQL.
type OrderRepository struct {
	pool *pgxpool.Pool
}

// NewOrderRepository returns an OrderRepository that uses the given pool.
func NewOrderRepository(pool *pgxpool.Pool) *OrderRepository {
	return &OrderRepository{pool: pool}
}

// CreateFromCheckout persists the order, debits the wallet for WALLET
// payments, and deletes the originating cart in a single transaction. The
// wallet check runs under a per-user advisory lock so concurrent checkouts
// cannot overdraw. A collision on the order number regenerates it and
// retries once.
func (r *OrderRepository) CreateFromCheckout(ctx context.Context, o *order.Order) error {
	itemsJSON, err := json.Marshal(o.Items)
	if err != nil {
		return fmt.Errorf("marshaling order items: %w", err)
	}
	timelineJSON, err := json.Marshal(o.Timeline)
	if err != nil {
		return fmt.Errorf("marshaling order timeline: %w", err)
	}

	for attempt := 0; ; attempt++ {
		err := r.createOnce(ctx, o, itemsJSON, timelineJSON)
		if err == nil {
			return nil
		}

		var pgErr *pgconn.PgError
		if attempt == 0 && errors.As(err, &pgErr) &&
			pgErr.Code == "23505" && pgErr.ConstraintName == "orders_number_key" {
			o.Number = order.NewNumber(time.Now())
			continue
		}
		if errors.Is(err, wallet.ErrInsufficientBalance) {
			return wallet.ErrInsufficientBalance
		}
		return fmt.Errorf("creating order %q: %w", o.ID, err)
	}
}

func (r *OrderRepository) createOnce(ctx context.Context, o *order.Order, itemsJSON, timelineJSON []byte) error {
	return pgx.BeginFunc(ctx, r.pool, func(tx pgx.Tx) error {
		if debit := o.WalletAmount(); debit.IsPositive() {
			if _, err := tx.Exec(ctx, lockWalletSQL, o.UserID); err != nil {
				return fmt.Errorf("locking wallet: %w", err)
			}

			var balance decimal.Decimal
			if err := tx.QueryRow(ctx, walletBalanceSQL, o.UserID).Scan(&balance); err != nil {
				return fmt.Errorf("reading wallet balance: %w", err)
			}
			if balance.LessThan(debit) {
				return wallet.ErrInsufficientBalance
			}

			_, err := tx.Exec(ctx, insertWalletDebitSQL,
				uuid.New().String(), o.UserID, debit,
				"Payment for order", o.Number, o.CreatedAt,
			)
			if err != nil {
				return fmt.Errorf("debiting wallet: %w", err)
			}
		}

		_, err := tx.Exec(ctx, insertOrderSQL,
			o.ID, o.Number, o.UserID, o.RestaurantID, itemsJSON,
			o.Totals.Subtotal, o.Totals.TaxAmount, o.Totals.DeliveryFee,
			o.Totals.PackagingCharge, o.Totals.DiscountAmount, o.Totals.FinalAmount, o.Totals.ItemCount,
			o.CouponID, o.PaymentMethod, o.PaymentStatus, o.Status,
			o.DeliveryAddressID, o.DeliveryPartnerID, timelineJSON, o.SpecialInstructions,
			o.EstimatedDeliveryTime, o.CreatedAt,
		)
		if err != nil {
			return err
		}

		if _, err := tx.Exec(ctx, deleteCartSQL, o.UserID); err != nil {
			return fmt.Errorf("deleting cart: %w", err)
		}
		return nil
	})
}

// GetByID returns a single order by its identifier.
// Returns order.ErrNotFound when no such order exists.
func (r *OrderRepository) GetByID(ctx context.Context, id string) (*order.Order, error) {
	rows, err := r.pool.Query(ctx, getOrderByIDSQL, id)
	if err != nil {
		return nil, fmt.Errorf("getting order %q: %w", id, err)
	}

	o, err := pgx.CollectExactlyOneRow(rows, scanOrder)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, order.ErrNotFound
		}
		return nil, fmt.Errorf("getting order %q: %w", id, err)
	}
	return &o, nil
}

// Update persists the mutable lifecycle fields of an order. The item
// snapshot and totals are immutable and never updated.
func (r *OrderRepository) Update(ctx context.Context, o *order.Order) error {
	timelineJSON, err := json.Marshal(o.Timeline)
	if err != nil {
		return fmt.Errorf("marshaling order timeline: %w", err)
	}

	tag, err := r.pool.Exec(ctx, updateOrderSQL,
		o.ID, o.PaymentStatus, o.Status, o.DeliveryPartnerID, timelineJSON,
		o.CancelReason, o.CancelledBy, o.ActualDeliveryTime,
	)
	if err != nil {
		return fmt.Errorf("updating order %q: %w", o.ID, err)
	}
	if tag.RowsAffected() == 0 {
		return order.ErrNotFound
	}
	return nil
}

// ListByUser returns the user's orders, newest first.
func (r *OrderRepository) ListByUser(ctx context.Context, userID string, f order.ListFilter) ([]order.Order, error) {
	return r.list(ctx, listOrdersByUserSQL, userID, f)
}

// ListByRestaurant returns the restaurant's orders, newest first.
func (r *OrderRepository) ListByRestaurant(ctx context.Context, restaurantID string, f order.ListFilter) ([]order.Order, error) {
	return r.list(ctx, listOrdersByRestaurantSQL, restaurantID, f)
}

// ListByDeliveryPartner returns the orders assigned to the partner,
// newest first.
func (r *OrderRepository) ListByDeliveryPartner(ctx context.Context, partnerID string, f order.ListFilter) ([]order.Order, error) {
	return r.list(ctx, listOrdersByPartnerSQL, partnerID, f)
}

// ListAll returns all orders, newest first.
func (r *OrderRepository) ListAll(ctx context.Context, f order.ListFilter) ([]order.Order, error) {
	rows, err := r.pool.Query(ctx, listAllOrdersSQL, filterStatus(f), filterLimit(f), f.Offset)
	if err != nil {
		return nil, fmt.Errorf("listing orders: %w", err)
	}
	return pgx.CollectRows(rows, scanOrder)
}

func (r *OrderRepository) list(ctx context.Context, sql, key string, f order.ListFilter) ([]order.Order, error) {
	rows, err := r.pool.Query(ctx, sql, key, filterStatus(f), filterLimit(f), f.Offset)
	if err != nil {
		return nil, fmt.Errorf("listing orders: %w", err)
	}
	return pgx.CollectRows(rows, scanOrder)
}

func filterStatus(f order.ListFilter) string {
	if f.Status == nil {
		return ""
	}
	return string(*f.Status)
}

func filterLimit(f order.ListFilter) int {
	if f.Limit <= 0 {
		return defaultListLimit
	}
	return f.Limit
}

func scanOrder(row pgx.CollectableRow) (order.Order, error) {
	var (
		o             order.Order
		itemsJSON     []byte
		timelineJSON  []byte
		paymentMethod string
		paymentStatus string
		status        string
		cancelledBy   string
	)
	err := row.Scan(
		&o.ID, &o.Number, &o.UserID, &o.RestaurantID, &itemsJSON,
		&o.Totals.Subtotal, &o.Totals.TaxAmount, &o.Totals.DeliveryFee,
		&o.Totals.PackagingCharge, &o.Totals.DiscountAmount, &o.Totals.FinalAmount, &o.Totals.ItemCount,
		&o.CouponID, &paymentMethod, &paymentStatus, &status,
		&o.DeliveryAddressID, &o.DeliveryPartnerID, &timelineJSON, &o.SpecialInstructions,
		&o.CancelReason, &cancelledBy, &o.EstimatedDeliveryTime, &o.ActualDeliveryTime, &o.CreatedAt,
	)
	if err != nil {
		return o, err
	}

	o.PaymentMethod = order.PaymentMethod(paymentMethod)
	o.PaymentStatus = order.PaymentStatus(paymentStatus)
	o.Status = order.Status(status)
	o.CancelledBy = order.Role(cancelledBy)

	if err := json.Unmarshal(itemsJSON, &o.Items); err != nil {
		return o, fmt.Errorf("unmarshaling items for order %q: %w", o.ID, err)
	}
	if err := json.Unmarshal(timelineJSON, &o.Timeline); err != nil {
		return o, fmt.Errorf("unmarshaling timeline for order %q: %w", o.ID, err)
	}
	return o, nil
}
