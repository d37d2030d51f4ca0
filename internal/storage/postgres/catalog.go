package postgres

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/go-faster/errors"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/chowline/chowline/internal/domain/catalog"
)

const (
	getMenuItemByIDSQL = `SELECT id, restaurant_id, name, base_price, discounted_price, available, customizations
		FROM menu_items WHERE id = $1`

	getMenuItemsByIDsSQL = `SELECT id, restaurant_id, name, base_price, discounted_price, available, customizations
		FROM menu_items WHERE id = ANY($1)`

	getRestaurantByIDSQL = `SELECT id, name, delivery_fee, packaging_percent, avg_delivery_minutes
		FROM restaurants WHERE id = $1`
)

var _ catalog.ItemRepository = (*ItemRepository)(nil)

// ItemRepository implements catalog.ItemRepository backed by PostgreSQL.
type ItemRepository struct {
	pool *pgxpool.Pool
}

// NewItemRepository returns an ItemRepository that uses the given pool.
func NewItemRepository(pool *pgxpool.Pool) *ItemRepository {
	return &ItemRepository{pool: pool}
}

// GetByID returns a single menu item by its identifier.
// Returns catalog.ErrItemNotFound when no such item exists.
func (r *ItemRepository) GetByID(ctx context.Context, id string) (*catalog.Item, error) {
	rows, err := r.pool.Query(ctx, getMenuItemByIDSQL, id)
	if err != nil {
		return nil, fmt.Errorf("getting menu item %q: %w", id, err)
	}

	item, err := pgx.CollectExactlyOneRow(rows, scanMenuItem)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, catalog.ErrItemNotFound
		}
		return nil, fmt.Errorf("getting menu item %q: %w", id, err)
	}
	return &item, nil
}

// GetByIDs returns the menu items matching any of the given IDs. Missing
// IDs are simply absent from the result.
func (r *ItemRepository) GetByIDs(ctx context.Context, ids []string) ([]catalog.Item, error) {
	rows, err := r.pool.Query(ctx, getMenuItemsByIDsSQL, ids)
	if err != nil {
		return nil, fmt.Errorf("getting menu items by ids: %w", err)
	}
	return pgx.CollectRows(rows, scanMenuItem)
}

func scanMenuItem(row pgx.CollectableRow) (catalog.Item, error) {
	var (
		item               catalog.Item
		customizationsJSON []byte
	)
	err := row.Scan(
		&item.ID, &item.RestaurantID, &item.Name,
		&item.BasePrice, &item.DiscountedPrice, &item.Available,
		&customizationsJSON,
	)
	if err != nil {
		return item, err
	}
	if len(customizationsJSON) > 0 {
		if err := json.Unmarshal(customizationsJSON, &item.Customizations); err != nil {
			return item, fmt.Errorf("unmarshaling customizations for item %q: %w", item.ID, err)
		}
	}
	return item, nil
}

var _ catalog.RestaurantRepository = (*RestaurantRepository)(nil)

// RestaurantRepository implements catalog.RestaurantRepository backed by
// PostgreSQL.
type RestaurantRepository struct {
	pool *pgxpool.Pool
}

// NewRestaurantRepository returns a RestaurantRepository that uses the
// given pool.
func NewRestaurantRepository(pool *pgxpool.Pool) *RestaurantRepository {
	return &RestaurantRepository{pool: pool}
}

// GetByID returns a single restaurant by its identifier.
// Returns catalog.ErrRestaurantNotFound when no such restaurant exists.
func (r *RestaurantRepository) GetByID(ctx context.Context, id string) (*catalog.Restaurant, error) {
	rows, err := r.pool.Query(ctx, getRestaurantByIDSQL, id)
	if err != nil {
		return nil, fmt.Errorf("getting restaurant %q: %w", id, err)
	}

	rest, err := pgx.CollectExactlyOneRow(rows, scanRestaurant)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, catalog.ErrRestaurantNotFound
		}
		return nil, fmt.Errorf("getting restaurant %q: %w", id, err)
	}
	return &rest, nil
}

func scanRestaurant(row pgx.CollectableRow) (catalog.Restaurant, error) {
	var rest catalog.Restaurant
	err := row.Scan(
		&rest.ID, &rest.Name, &rest.DeliveryFee,
		&rest.PackagingPercent, &rest.AvgDeliveryMinutes,
	)
	return rest, err
}
