package handler

import (
	"net/http"
	"strconv"
	"time"

	"github.com/go-faster/errors"

	"github.com/chowline/chowline/internal/domain/order"
	"github.com/chowline/chowline/internal/domain/pricing"
	"github.com/chowline/chowline/internal/domain/rider"
	"github.com/chowline/chowline/internal/domain/wallet"
)

// orderResponse is the wire representation of an order.
type orderResponse struct {
	ID                    string                `json:"id"`
	Number                string                `json:"orderNumber"`
	UserID                string                `json:"userId"`
	RestaurantID          string                `json:"restaurantId"`
	Items                 []pricing.LineItem    `json:"items"`
	Totals                pricing.Totals        `json:"totals"`
	CouponID              string                `json:"couponId,omitempty"`
	PaymentMethod         order.PaymentMethod   `json:"paymentMethod"`
	PaymentStatus         order.PaymentStatus   `json:"paymentStatus"`
	DeliveryAddressID     string                `json:"deliveryAddressId,omitempty"`
	DeliveryPartnerID     string                `json:"deliveryPartnerId,omitempty"`
	Status                order.Status          `json:"status"`
	Timeline              []order.TimelineEntry `json:"timeline"`
	CancelReason          string                `json:"cancelReason,omitempty"`
	CancelledBy           order.Role            `json:"cancelledBy,omitempty"`
	SpecialInstructions   string                `json:"specialInstructions,omitempty"`
	EstimatedDeliveryTime time.Time             `json:"estimatedDeliveryTime"`
	ActualDeliveryTime    *time.Time            `json:"actualDeliveryTime,omitempty"`
	CreatedAt             time.Time             `json:"createdAt"`
}

func domainToOrderResponse(o *order.Order) orderResponse {
	return orderResponse{
		ID:                    o.ID,
		Number:                o.Number,
		UserID:                o.UserID,
		RestaurantID:          o.RestaurantID,
		Items:                 o.Items,
		Totals:                o.Totals,
		CouponID:              o.CouponID,
		PaymentMethod:         o.PaymentMethod,
		PaymentStatus:         o.PaymentStatus,
		DeliveryAddressID:     o.DeliveryAddressID,
		DeliveryPartnerID:     o.DeliveryPartnerID,
		Status:                o.Status,
		Timeline:              o.Timeline,
		CancelReason:          o.CancelReason,
		CancelledBy:           o.CancelledBy,
		SpecialInstructions:   o.SpecialInstructions,
		EstimatedDeliveryTime: o.EstimatedDeliveryTime,
		ActualDeliveryTime:    o.ActualDeliveryTime,
		CreatedAt:             o.CreatedAt,
	}
}

type checkoutRequest struct {
	DeliveryAddressID   string `json:"deliveryAddressId"`
	PaymentMethod       string `json:"paymentMethod"`
	SpecialInstructions string `json:"specialInstructions,omitempty"`
}

// Checkout converts the user's cart into a placed order.
func (h *Handler) Checkout(w http.ResponseWriter, r *http.Request) {
	userID, ok := requireUser(w, r)
	if !ok {
		return
	}

	var req checkoutRequest
	if !decodeJSON(w, r, &req) {
		return
	}
	method := order.PaymentMethod(req.PaymentMethod)
	if !method.Valid() {
		respondError(w, r, http.StatusBadRequest, "invalid payment method")
		return
	}

	o, err := h.orders.Checkout(r.Context(), order.CheckoutRequest{
		UserID:              userID,
		DeliveryAddressID:   req.DeliveryAddressID,
		PaymentMethod:       method,
		SpecialInstructions: req.SpecialInstructions,
	})
	if err != nil {
		h.orderError(w, r, err)
		return
	}
	respondJSON(w, r, http.StatusCreated, domainToOrderResponse(o))
}

// ListOrders returns the orders visible to the caller's role. Supports
// status, limit, and offset query parameters.
func (h *Handler) ListOrders(w http.ResponseWriter, r *http.Request) {
	if _, ok := requireUser(w, r); !ok {
		return
	}

	f, ok := parseListFilter(w, r)
	if !ok {
		return
	}

	list, err := h.orders.List(r.Context(), actor(r), f)
	if err != nil {
		h.orderError(w, r, err)
		return
	}

	out := make([]orderResponse, len(list))
	for i := range list {
		out[i] = domainToOrderResponse(&list[i])
	}
	respondJSON(w, r, http.StatusOK, out)
}

// GetOrder returns a single order if the caller may see it.
func (h *Handler) GetOrder(w http.ResponseWriter, r *http.Request) {
	if _, ok := requireUser(w, r); !ok {
		return
	}

	o, err := h.orders.Get(r.Context(), r.PathValue("orderID"), actor(r))
	if err != nil {
		h.orderError(w, r, err)
		return
	}
	respondJSON(w, r, http.StatusOK, domainToOrderResponse(o))
}

type updateStatusRequest struct {
	Status string `json:"status"`
	Note   string `json:"note,omitempty"`
}

// UpdateOrderStatus advances the order one step along its lifecycle.
func (h *Handler) UpdateOrderStatus(w http.ResponseWriter, r *http.Request) {
	if _, ok := requireUser(w, r); !ok {
		return
	}

	var req updateStatusRequest
	if !decodeJSON(w, r, &req) {
		return
	}
	target := order.Status(req.Status)
	if !target.Valid() {
		respondError(w, r, http.StatusBadRequest, "invalid status")
		return
	}

	o, err := h.orders.UpdateStatus(r.Context(), r.PathValue("orderID"), target, actor(r), req.Note)
	if err != nil {
		h.orderError(w, r, err)
		return
	}
	respondJSON(w, r, http.StatusOK, domainToOrderResponse(o))
}

type cancelOrderRequest struct {
	Reason string `json:"reason,omitempty"`
}

// CancelOrder cancels the order subject to the cancellation policy.
func (h *Handler) CancelOrder(w http.ResponseWriter, r *http.Request) {
	if _, ok := requireUser(w, r); !ok {
		return
	}

	var req cancelOrderRequest
	if !decodeJSON(w, r, &req) {
		return
	}

	o, err := h.orders.Cancel(r.Context(), r.PathValue("orderID"), actor(r), req.Reason)
	if err != nil {
		h.orderError(w, r, err)
		return
	}
	respondJSON(w, r, http.StatusOK, domainToOrderResponse(o))
}

type assignDeliveryRequest struct {
	DeliveryPartnerID string `json:"deliveryPartnerId"`
}

// AssignDelivery records the delivery partner on the order.
func (h *Handler) AssignDelivery(w http.ResponseWriter, r *http.Request) {
	if _, ok := requireUser(w, r); !ok {
		return
	}

	var req assignDeliveryRequest
	if !decodeJSON(w, r, &req) {
		return
	}
	if req.DeliveryPartnerID == "" {
		respondError(w, r, http.StatusBadRequest, "deliveryPartnerId is required")
		return
	}

	o, err := h.orders.AssignDeliveryPartner(r.Context(), r.PathValue("orderID"), req.DeliveryPartnerID, actor(r))
	if err != nil {
		h.orderError(w, r, err)
		return
	}
	respondJSON(w, r, http.StatusOK, domainToOrderResponse(o))
}

func parseListFilter(w http.ResponseWriter, r *http.Request) (order.ListFilter, bool) {
	var f order.ListFilter

	if s := r.URL.Query().Get("status"); s != "" {
		status := order.Status(s)
		if !status.Valid() {
			respondError(w, r, http.StatusBadRequest, "invalid status filter")
			return f, false
		}
		f.Status = &status
	}
	if s := r.URL.Query().Get("limit"); s != "" {
		n, err := strconv.Atoi(s)
		if err != nil || n < 0 {
			respondError(w, r, http.StatusBadRequest, "invalid limit")
			return f, false
		}
		f.Limit = n
	}
	if s := r.URL.Query().Get("offset"); s != "" {
		n, err := strconv.Atoi(s)
		if err != nil || n < 0 {
			respondError(w, r, http.StatusBadRequest, "invalid offset")
			return f, false
		}
		f.Offset = n
	}
	return f, true
}

// orderError maps order domain errors to HTTP responses.
func (h *Handler) orderError(w http.ResponseWriter, r *http.Request, err error) {
	switch {
	case errors.Is(err, order.ErrNotFound):
		respondError(w, r, http.StatusNotFound, err.Error())
	case errors.Is(err, order.ErrUnauthorized):
		respondError(w, r, http.StatusForbidden, err.Error())
	case errors.Is(err, order.ErrEmptyCart):
		respondError(w, r, http.StatusBadRequest, err.Error())
	case errors.Is(err, order.ErrTerminal):
		respondError(w, r, http.StatusConflict, err.Error())
	case errors.Is(err, wallet.ErrInsufficientBalance),
		errors.Is(err, order.ErrCancellationWindowClosed):
		respondError(w, r, http.StatusUnprocessableEntity, err.Error())
	case errors.Is(err, rider.ErrInvalidDeliveryPartner):
		respondError(w, r, http.StatusUnprocessableEntity, err.Error())
	default:
		var invErr *order.InvalidTransitionError
		if errors.As(err, &invErr) {
			respondError(w, r, http.StatusConflict, err.Error())
			return
		}
		internalError(w, r, err)
	}
}
