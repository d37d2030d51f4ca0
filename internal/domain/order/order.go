// Package order implements the order aggregate: an immutable snapshot of a
// checked-out cart plus the status lifecycle that governs it afterwards.
package order

import (
	"context"
	"time"

	"github.com/shopspring/decimal"

	"github.com/chowline/chowline/internal/domain/pricing"
)

// Status is an order's position in the delivery lifecycle.
type Status string

const (
	StatusPlaced         Status = "PLACED"
	StatusConfirmed      Status = "CONFIRMED"
	StatusPreparing      Status = "PREPARING"
	StatusReadyForPickup Status = "READY_FOR_PICKUP"
	StatusOutForDelivery Status = "OUT_FOR_DELIVERY"
	StatusDelivered      Status = "DELIVERED"
	StatusCancelled      Status = "CANCELLED"
)

// Terminal reports whether no further transitions are permitted.
func (s Status) Terminal() bool {
	return s == StatusDelivered || s == StatusCancelled
}

// Valid reports whether s is a known status value.
func (s Status) Valid() bool {
	switch s {
	case StatusPlaced, StatusConfirmed, StatusPreparing, StatusReadyForPickup,
		StatusOutForDelivery, StatusDelivered, StatusCancelled:
		return true
	}
	return false
}

// Role identifies the kind of actor driving an order operation.
type Role string

const (
	RoleUser            Role = "USER"
	RoleRestaurant      Role = "RESTAURANT"
	RoleDeliveryPartner Role = "DELIVERY_PARTNER"
	RoleAdmin           Role = "ADMIN"
)

// PaymentMethod enumerates how an order is paid.
type PaymentMethod string

const (
	PaymentCOD    PaymentMethod = "COD"
	PaymentCard   PaymentMethod = "CARD"
	PaymentUPI    PaymentMethod = "UPI"
	PaymentWallet PaymentMethod = "WALLET"
)

// Valid reports whether m is a known payment method.
func (m PaymentMethod) Valid() bool {
	switch m {
	case PaymentCOD, PaymentCard, PaymentUPI, PaymentWallet:
		return true
	}
	return false
}

// PaymentStatus tracks the money side of an order.
type PaymentStatus string

const (
	PaymentPending  PaymentStatus = "PENDING"
	PaymentPaid     PaymentStatus = "PAID"
	PaymentFailed   PaymentStatus = "FAILED"
	PaymentRefunded PaymentStatus = "REFUNDED"
)

// TimelineEntry is one append-only audit record of a status change.
type TimelineEntry struct {
	Status    Status    `json:"status"`
	Timestamp time.Time `json:"timestamp"`
	Note      string    `json:"note,omitempty"`
}

// Order is created once at checkout. The item snapshot and totals are
// frozen; only status- and payment-related fields mutate afterwards, and
// the timeline never shrinks.
type Order struct {
	ID                    string
	Number                string
	UserID                string
	RestaurantID          string
	Items                 []pricing.LineItem
	Totals                pricing.Totals
	CouponID              string
	PaymentMethod         PaymentMethod
	PaymentStatus         PaymentStatus
	DeliveryAddressID     string
	DeliveryPartnerID     string
	Status                Status
	Timeline              []TimelineEntry
	CancelReason          string
	CancelledBy           Role
	SpecialInstructions   string
	EstimatedDeliveryTime time.Time
	ActualDeliveryTime    *time.Time
	CreatedAt             time.Time
}

// WalletAmount returns the amount to debit at checkout for WALLET-paid
// orders, zero otherwise.
func (o *Order) WalletAmount() decimal.Decimal {
	if o.PaymentMethod == PaymentWallet {
		return o.Totals.FinalAmount
	}
	return decimal.Zero
}

// ListFilter narrows order listings.
type ListFilter struct {
	Status *Status
	Limit  int
	Offset int
}

// Repository defines persistence operations for orders. CreateFromCheckout
// must atomically persist the order, debit the wallet for WALLET payments,
// and delete the originating cart; partial application is a correctness
// violation.
type Repository interface {
	CreateFromCheckout(ctx context.Context, o *Order) error
	GetByID(ctx context.Context, id string) (*Order, error)
	Update(ctx context.Context, o *Order) error
	ListByUser(ctx context.Context, userID string, f ListFilter) ([]Order, error)
	ListByRestaurant(ctx context.Context, restaurantID string, f ListFilter) ([]Order, error)
	ListByDeliveryPartner(ctx context.Context, partnerID string, f ListFilter) ([]Order, error)
	ListAll(ctx context.Context, f ListFilter) ([]Order, error)
}
