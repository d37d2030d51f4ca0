package order

import (
	"fmt"
	"time"

	"github.com/go-faster/errors"
)

var (
	// ErrTerminal is returned when mutating an order that is already
	// DELIVERED or CANCELLED.
	ErrTerminal = errors.New("order is in a terminal state")
	// ErrCancellationWindowClosed is returned when a customer tries to
	// cancel after preparation has started.
	ErrCancellationWindowClosed = errors.New("order can no longer be cancelled by the customer")
	// ErrNotFound is returned when the referenced order does not exist.
	ErrNotFound = errors.New("order not found")
)

// InvalidTransitionError indicates a status change that is not the next
// step in the forward chain.
type InvalidTransitionError struct {
	From Status
	To   Status
}

func (e *InvalidTransitionError) Error() string {
	return fmt.Sprintf("cannot transition order from %s to %s", e.From, e.To)
}

// next maps each status to its single permitted forward successor. The
// chain is strict: no skipping, no going back. Cancellation is handled
// separately by Cancel.
var next = map[Status]Status{
	StatusPlaced:         StatusConfirmed,
	StatusConfirmed:      StatusPreparing,
	StatusPreparing:      StatusReadyForPickup,
	StatusReadyForPickup: StatusOutForDelivery,
	StatusOutForDelivery: StatusDelivered,
}

// CanTransition reports whether target is the permitted forward successor
// of from.
func CanTransition(from, target Status) bool {
	return next[from] == target
}

// Transition advances the order to target, appending a timeline entry.
// Role authorization is the caller's precondition; the lifecycle itself is
// transition-table driven. ActualDeliveryTime is set when the order
// reaches DELIVERED.
func (o *Order) Transition(target Status, note string, now time.Time) error {
	if o.Status.Terminal() {
		return ErrTerminal
	}
	if !CanTransition(o.Status, target) {
		return &InvalidTransitionError{From: o.Status, To: target}
	}

	if note == "" {
		note = fmt.Sprintf("Order status updated to %s", target)
	}

	o.Status = target
	o.Timeline = append(o.Timeline, TimelineEntry{
		Status:    target,
		Timestamp: now,
		Note:      note,
	})

	if target == StatusDelivered {
		t := now
		o.ActualDeliveryTime = &t
	}
	return nil
}

// cancellable-by-customer is limited to the pre-preparation window.
func customerMayCancel(s Status) bool {
	return s == StatusPlaced || s == StatusConfirmed
}

// Cancel moves the order to CANCELLED, recording who cancelled and why.
// Customers may only cancel before preparation starts; restaurant,
// delivery-partner, and admin actors may cancel any non-terminal order.
// A PAID order is marked REFUNDED; moving the actual funds is the payment
// collaborator's job.
func (o *Order) Cancel(actor Role, reason string, now time.Time) error {
	if o.Status.Terminal() {
		return ErrTerminal
	}
	if actor == RoleUser && !customerMayCancel(o.Status) {
		return ErrCancellationWindowClosed
	}

	note := reason
	if note == "" {
		note = "Order cancelled"
	}

	o.Status = StatusCancelled
	o.CancelReason = reason
	o.CancelledBy = actor
	o.Timeline = append(o.Timeline, TimelineEntry{
		Status:    StatusCancelled,
		Timestamp: now,
		Note:      note,
	})

	if o.PaymentStatus == PaymentPaid {
		o.PaymentStatus = PaymentRefunded
	}
	return nil
}

// AssignDeliveryPartner records the rider on the order. It deliberately
// does not touch the status: the dispatcher drives the OUT_FOR_DELIVERY
// transition as a separate, auditable step.
func (o *Order) AssignDeliveryPartner(partnerID string) error {
	if o.Status.Terminal() {
		return ErrTerminal
	}
	o.DeliveryPartnerID = partnerID
	return nil
}
