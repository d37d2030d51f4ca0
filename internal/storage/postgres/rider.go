package postgres

import (
	"context"
	"fmt"

	"github.com/go-faster/errors"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/chowline/chowline/internal/domain/rider"
)

const getRiderByIDSQL = `SELECT id, name, phone, active FROM riders WHERE id = $1`

var _ rider.Repository = (*RiderRepository)(nil)

// RiderRepository implements rider.Repository backed by PostgreSQL.
type RiderRepository struct {
	pool *pgxpool.Pool
}

// NewRiderRepository returns a RiderRepository that uses the given pool.
func NewRiderRepository(pool *pgxpool.Pool) *RiderRepository {
	return &RiderRepository{pool: pool}
}

// GetByID returns a single rider by their identifier.
// Returns rider.ErrInvalidDeliveryPartner when no such rider exists.
func (r *RiderRepository) GetByID(ctx context.Context, id string) (*rider.Rider, error) {
	rows, err := r.pool.Query(ctx, getRiderByIDSQL, id)
	if err != nil {
		return nil, fmt.Errorf("getting rider %q: %w", id, err)
	}

	rd, err := pgx.CollectExactlyOneRow(rows, scanRider)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, rider.ErrInvalidDeliveryPartner
		}
		return nil, fmt.Errorf("getting rider %q: %w", id, err)
	}
	return &rd, nil
}

func scanRider(row pgx.CollectableRow) (rider.Rider, error) {
	var rd rider.Rider
	err := row.Scan(&rd.ID, &rd.Name, &rd.Phone, &rd.Active)
	return rd, err
}
