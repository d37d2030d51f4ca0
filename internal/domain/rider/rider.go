// Package rider exposes the delivery-partner read model used when
// assigning riders to orders.
package rider

import (
	"context"

	"github.com/go-faster/errors"
)

// ErrInvalidDeliveryPartner is returned when a partner reference does not
// resolve to an active rider.
var ErrInvalidDeliveryPartner = errors.New("invalid delivery partner")

// Rider is a delivery partner.
type Rider struct {
	ID     string
	Name   string
	Phone  string
	Active bool
}

// Repository provides rider lookups.
type Repository interface {
	GetByID(ctx context.Context, id string) (*Rider, error)
}
