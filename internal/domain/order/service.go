package order

import (
	"context"
	"time"

	"github.com/go-faster/errors"

	"github.com/chowline/chowline/internal/domain/cart"
	"github.com/chowline/chowline/internal/domain/catalog"
	"github.com/chowline/chowline/internal/domain/rider"
	"github.com/chowline/chowline/internal/domain/wallet"
)

// ErrUnauthorized is returned when the acting role may not perform the
// requested order operation.
var ErrUnauthorized = errors.New("not authorized for this order")

// Actor identifies who is driving an order operation. RestaurantID is set
// by the gateway for restaurant-owner actors.
type Actor struct {
	ID           string
	Role         Role
	RestaurantID string
}

// CheckoutRequest holds the input for converting a cart into an order.
type CheckoutRequest struct {
	UserID              string
	DeliveryAddressID   string
	PaymentMethod       PaymentMethod
	SpecialInstructions string
}

// Service owns checkout and the role-gated lifecycle operations. Role
// checks happen here, before the transition-table-driven aggregate methods
// are invoked.
type Service struct {
	carts       cart.Repository
	restaurants catalog.RestaurantRepository
	riders      rider.Repository
	orders      Repository
	ledger      wallet.Ledger
	now         func() time.Time
}

// NewService creates an order Service with the required dependencies.
func NewService(
	carts cart.Repository,
	restaurants catalog.RestaurantRepository,
	riders rider.Repository,
	orders Repository,
	ledger wallet.Ledger,
) *Service {
	return &Service{
		carts:       carts,
		restaurants: restaurants,
		riders:      riders,
		orders:      orders,
		ledger:      ledger,
		now:         time.Now,
	}
}

// Checkout snapshots the user's cart into a new order. Order persistence,
// the wallet debit for WALLET payments, and cart deletion are one atomic
// unit in the repository; on failure nothing persists.
func (s *Service) Checkout(ctx context.Context, req CheckoutRequest) (*Order, error) {
	c, err := s.carts.FindByUser(ctx, req.UserID)
	if err != nil {
		if errors.Is(err, cart.ErrNotFound) {
			return nil, ErrEmptyCart
		}
		return nil, errors.Wrap(err, "find cart")
	}
	// An emptied cart persists as a row with no items and no restaurant
	// binding, so this must precede the restaurant lookup.
	if len(c.Items) == 0 {
		return nil, ErrEmptyCart
	}

	rest, err := s.restaurants.GetByID(ctx, c.RestaurantID)
	if err != nil {
		return nil, errors.Wrap(err, "get restaurant")
	}

	o, err := NewFromCart(c, rest, req.DeliveryAddressID, req.PaymentMethod, req.SpecialInstructions, s.now())
	if err != nil {
		return nil, err
	}
	if o.PaymentMethod == PaymentWallet {
		// Wallet orders are settled immediately inside the checkout
		// transaction.
		o.PaymentStatus = PaymentPaid
	}

	if err := s.orders.CreateFromCheckout(ctx, o); err != nil {
		if errors.Is(err, wallet.ErrInsufficientBalance) {
			return nil, wallet.ErrInsufficientBalance
		}
		return nil, errors.Wrap(err, "create order")
	}

	return o, nil
}

// Get returns an order if the actor is allowed to see it: the owning
// customer, the restaurant it belongs to, the assigned delivery partner,
// or an admin.
func (s *Service) Get(ctx context.Context, orderID string, actor Actor) (*Order, error) {
	o, err := s.orders.GetByID(ctx, orderID)
	if err != nil {
		return nil, err
	}
	if !mayView(o, actor) {
		return nil, ErrUnauthorized
	}
	return o, nil
}

// List returns the orders visible to the actor's role.
func (s *Service) List(ctx context.Context, actor Actor, f ListFilter) ([]Order, error) {
	switch actor.Role {
	case RoleAdmin:
		return s.orders.ListAll(ctx, f)
	case RoleRestaurant:
		return s.orders.ListByRestaurant(ctx, actor.RestaurantID, f)
	case RoleDeliveryPartner:
		return s.orders.ListByDeliveryPartner(ctx, actor.ID, f)
	default:
		return s.orders.ListByUser(ctx, actor.ID, f)
	}
}

// UpdateStatus advances an order along the forward chain. Only the
// restaurant that owns the order, an admin, or the assigned delivery
// partner may drive forward transitions.
func (s *Service) UpdateStatus(ctx context.Context, orderID string, target Status, actor Actor, note string) (*Order, error) {
	o, err := s.orders.GetByID(ctx, orderID)
	if err != nil {
		return nil, err
	}

	if !mayDriveStatus(o, actor) {
		return nil, ErrUnauthorized
	}

	if err := o.Transition(target, note, s.now()); err != nil {
		return nil, err
	}

	if err := s.orders.Update(ctx, o); err != nil {
		return nil, errors.Wrap(err, "update order")
	}
	return o, nil
}

// Cancel cancels an order subject to the cancellation policy. When a
// WALLET-paid order flips to REFUNDED, a compensating ledger credit is
// written.
func (s *Service) Cancel(ctx context.Context, orderID string, actor Actor, reason string) (*Order, error) {
	o, err := s.orders.GetByID(ctx, orderID)
	if err != nil {
		return nil, err
	}

	if !mayView(o, actor) {
		return nil, ErrUnauthorized
	}

	wasPaid := o.PaymentStatus == PaymentPaid

	if err := o.Cancel(actor.Role, reason, s.now()); err != nil {
		return nil, err
	}

	if err := s.orders.Update(ctx, o); err != nil {
		return nil, errors.Wrap(err, "update order")
	}

	if wasPaid && o.PaymentMethod == PaymentWallet {
		err := s.ledger.Credit(ctx, o.UserID, o.Totals.FinalAmount,
			"Refund for cancelled order", o.Number)
		if err != nil {
			return nil, errors.Wrap(err, "refund wallet")
		}
	}

	return o, nil
}

// AssignDeliveryPartner validates and records the rider on the order. It
// performs no status transition: dispatch explicitly PATCHes the status to
// OUT_FOR_DELIVERY afterwards.
func (s *Service) AssignDeliveryPartner(ctx context.Context, orderID, partnerID string, actor Actor) (*Order, error) {
	o, err := s.orders.GetByID(ctx, orderID)
	if err != nil {
		return nil, err
	}

	if actor.Role != RoleAdmin && !(actor.Role == RoleRestaurant && actor.RestaurantID == o.RestaurantID) {
		return nil, ErrUnauthorized
	}

	r, err := s.riders.GetByID(ctx, partnerID)
	if err != nil {
		return nil, err
	}
	if !r.Active {
		return nil, rider.ErrInvalidDeliveryPartner
	}

	if err := o.AssignDeliveryPartner(r.ID); err != nil {
		return nil, err
	}

	if err := s.orders.Update(ctx, o); err != nil {
		return nil, errors.Wrap(err, "update order")
	}
	return o, nil
}

func mayView(o *Order, actor Actor) bool {
	switch actor.Role {
	case RoleAdmin:
		return true
	case RoleRestaurant:
		return actor.RestaurantID == o.RestaurantID
	case RoleDeliveryPartner:
		return o.DeliveryPartnerID != "" && actor.ID == o.DeliveryPartnerID
	default:
		return actor.ID == o.UserID
	}
}

func mayDriveStatus(o *Order, actor Actor) bool {
	switch actor.Role {
	case RoleAdmin:
		return true
	case RoleRestaurant:
		return actor.RestaurantID == o.RestaurantID
	case RoleDeliveryPartner:
		return o.DeliveryPartnerID != "" && actor.ID == o.DeliveryPartnerID
	default:
		return false
	}
}
