// Command seed-db loads demo restaurants, menu items, coupons, and riders
// into the database. It is idempotent: rows are upserted by ID.
package main

import (
	"context"
	"encoding/json"
	"flag"
	"log/slog"
	"os"
	"os/signal"

	"github.com/go-faster/errors"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/shopspring/decimal"
	"golang.org/x/sync/errgroup"

	"github.com/chowline/chowline/internal/storage/postgres"
)

type menuItemJSON struct {
	ID              string           `json:"id"`
	Name            string           `json:"name"`
	BasePrice       decimal.Decimal  `json:"basePrice"`
	DiscountedPrice *decimal.Decimal `json:"discountedPrice,omitempty"`
	Available       bool             `json:"available"`
	Customizations  json.RawMessage  `json:"customizations,omitempty"`
}

type restaurantJSON struct {
	ID                 string          `json:"id"`
	Name               string          `json:"name"`
	DeliveryFee        decimal.Decimal `json:"deliveryFee"`
	PackagingPercent   decimal.Decimal `json:"packagingPercent"`
	AvgDeliveryMinutes int             `json:"avgDeliveryMinutes"`
	Menu               []menuItemJSON  `json:"menu"`
}

func main() {
	var (
		databaseURL     string
		restaurantsFile string
	)

	flag.StringVar(&databaseURL, "database-url", "", "PostgreSQL connection URL (or DATABASE_URL env)")
	flag.StringVar(&restaurantsFile, "restaurants-file", "db/seed/restaurants.json", "path to restaurants JSON file")
	flag.Parse()

	if databaseURL == "" {
		databaseURL = os.Getenv("DATABASE_URL")
	}
	if databaseURL == "" {
		slog.Error("database URL is required: set --database-url or DATABASE_URL")
		os.Exit(1)
	}

	ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt)
	defer cancel()

	if err := run(ctx, databaseURL, restaurantsFile); err != nil {
		slog.Error("seed failed", slog.String("error", err.Error()))
		os.Exit(1)
	}

	slog.Info("seed completed successfully")
}

func run(ctx context.Context, databaseURL, restaurantsFile string) error {
	slog.Info("connecting to database")

	pool, err := postgres.NewPool(ctx, databaseURL)
	if err != nil {
		return errors.Wrap(err, "connect to database")
	}
	defer pool.Close()

	slog.Info("running migrations")

	if err := postgres.RunMigrations(ctx, pool); err != nil {
		return errors.Wrap(err, "run migrations")
	}

	if err := seedRestaurants(ctx, pool, restaurantsFile); err != nil {
		return errors.Wrap(err, "seed restaurants")
	}

	if err := seedCoupons(ctx, pool); err != nil {
		return errors.Wrap(err, "seed coupons")
	}

	if err := seedRiders(ctx, pool); err != nil {
		return errors.Wrap(err, "seed riders")
	}

	return nil
}

const (
	upsertRestaurantSQL = `INSERT INTO restaurants (id, name, delivery_fee, packaging_percent, avg_delivery_minutes)
		VALUES ($1, $2, $3, $4, $5)
		ON CONFLICT (id) DO UPDATE SET
			name = EXCLUDED.name,
			delivery_fee = EXCLUDED.delivery_fee,
			packaging_percent = EXCLUDED.packaging_percent,
			avg_delivery_minutes = EXCLUDED.avg_delivery_minutes`

	upsertMenuItemSQL = `INSERT INTO menu_items (id, restaurant_id, name, base_price, discounted_price, available, customizations)
		VALUES ($1, $2, $3, $4, $5, $6, $7)
		ON CONFLICT (id) DO UPDATE SET
			restaurant_id = EXCLUDED.restaurant_id,
			name = EXCLUDED.name,
			base_price = EXCLUDED.base_price,
			discounted_price = EXCLUDED.discounted_price,
			available = EXCLUDED.available,
			customizations = EXCLUDED.customizations`

	upsertCouponSQL = `INSERT INTO coupons (id, code, kind, value, minimum_cart_amount, expires_at, active)
		VALUES ($1, $2, $3, $4, $5, NULL, $6)
		ON CONFLICT (id) DO UPDATE SET
			code = EXCLUDED.code,
			kind = EXCLUDED.kind,
			value = EXCLUDED.value,
			minimum_cart_amount = EXCLUDED.minimum_cart_amount,
			active = EXCLUDED.active`

	upsertRiderSQL = `INSERT INTO riders (id, name, phone, active)
		VALUES ($1, $2, $3, $4)
		ON CONFLICT (id) DO UPDATE SET
			name = EXCLUDED.name,
			phone = EXCLUDED.phone,
			active = EXCLUDED.active`
)

func seedRestaurants(ctx context.Context, pool *pgxpool.Pool, restaurantsFile string) error {
	slog.Info("reading restaurants file", slog.String("path", restaurantsFile))

	data, err := os.ReadFile(restaurantsFile)
	if err != nil {
		return errors.Wrap(err, "read restaurants file")
	}

	var restaurants []restaurantJSON
	if err := json.Unmarshal(data, &restaurants); err != nil {
		return errors.Wrap(err, "parse restaurants JSON")
	}

	slog.Info("upserting restaurants", slog.Int("count", len(restaurants)))

	g, ctx := errgroup.WithContext(ctx)
	g.SetLimit(4)

	for _, rest := range restaurants {
		g.Go(func() error {
			_, err := pool.Exec(ctx, upsertRestaurantSQL,
				rest.ID, rest.Name, rest.DeliveryFee, rest.PackagingPercent, rest.AvgDeliveryMinutes,
			)
			if err != nil {
				return errors.Wrapf(err, "upsert restaurant %s", rest.ID)
			}

			for _, item := range rest.Menu {
				customizations := item.Customizations
				if len(customizations) == 0 {
					customizations = json.RawMessage("[]")
				}
				_, err := pool.Exec(ctx, upsertMenuItemSQL,
					item.ID, rest.ID, item.Name, item.BasePrice, item.DiscountedPrice,
					item.Available, []byte(customizations),
				)
				if err != nil {
					return errors.Wrapf(err, "upsert menu item %s", item.ID)
				}
			}

			slog.Info("upserted restaurant",
				slog.String("id", rest.ID),
				slog.String("name", rest.Name),
				slog.Int("menu_items", len(rest.Menu)))
			return nil
		})
	}

	return g.Wait()
}

type seedCoupon struct {
	ID      string
	Code    string
	Kind    string
	Value   decimal.Decimal
	Minimum decimal.Decimal
	Active  bool
}

func seedCoupons(ctx context.Context, pool *pgxpool.Pool) error {
	slog.Info("seeding demo coupons")

	coupons := []seedCoupon{
		{
			ID:      "coupon-welcome50",
			Code:    "WELCOME50",
			Kind:    "FLAT",
			Value:   decimal.NewFromInt(50),
			Minimum: decimal.NewFromInt(200),
			Active:  true,
		},
		{
			ID:      "coupon-save20",
			Code:    "SAVE20",
			Kind:    "PERCENT",
			Value:   decimal.NewFromInt(20),
			Minimum: decimal.NewFromInt(300),
			Active:  true,
		},
	}

	for _, c := range coupons {
		_, err := pool.Exec(ctx, upsertCouponSQL, c.ID, c.Code, c.Kind, c.Value, c.Minimum, c.Active)
		if err != nil {
			return errors.Wrapf(err, "upsert coupon %s", c.Code)
		}

		slog.Info("upserted coupon", slog.String("code", c.Code), slog.String("kind", c.Kind))
	}

	return nil
}

func seedRiders(ctx context.Context, pool *pgxpool.Pool) error {
	slog.Info("seeding demo riders")

	riders := [][4]any{
		{"rider-alex", "Alex Kumar", "+91-9800000001", true},
		{"rider-sam", "Sam Fernandes", "+91-9800000002", true},
	}

	for _, r := range riders {
		if _, err := pool.Exec(ctx, upsertRiderSQL, r[0], r[1], r[2], r[3]); err != nil {
			return errors.Wrapf(err, "upsert rider %v", r[0])
		}

		slog.Info("upserted rider", slog.Any("id", r[0]))
	}

	return nil
}
