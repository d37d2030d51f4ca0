// Package catalog exposes the menu item and restaurant read models consumed
// by the cart and order services. The catalog itself is an external
// collaborator; these types carry only what pricing and checkout need.
package catalog

import (
	"context"

	"github.com/go-faster/errors"
	"github.com/shopspring/decimal"

	"github.com/chowline/chowline/internal/domain/pricing"
)

var (
	// ErrItemNotFound is returned when a menu item does not exist.
	ErrItemNotFound = errors.New("menu item not found")
	// ErrRestaurantNotFound is returned when a restaurant does not exist.
	ErrRestaurantNotFound = errors.New("restaurant not found")
)

// Item is a menu item as the cart sees it: pricing inputs plus availability
// and the restaurant it belongs to.
type Item struct {
	ID              string
	RestaurantID    string
	Name            string
	BasePrice       decimal.Decimal
	DiscountedPrice *decimal.Decimal
	Available       bool
	Customizations  []pricing.Customization
}

// Restaurant carries the fee inputs a cart binds to on the first item add.
type Restaurant struct {
	ID                 string
	Name               string
	DeliveryFee        decimal.Decimal
	PackagingPercent   decimal.Decimal
	AvgDeliveryMinutes int
}

// ItemRepository provides menu item lookups.
type ItemRepository interface {
	GetByID(ctx context.Context, id string) (*Item, error)
	GetByIDs(ctx context.Context, ids []string) ([]Item, error)
}

// RestaurantRepository provides restaurant lookups.
type RestaurantRepository interface {
	GetByID(ctx context.Context, id string) (*Restaurant, error)
}
