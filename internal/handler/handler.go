// Package handler exposes the cart, order, and wallet services over HTTP.
// Requests are authenticated upstream; the gateway forwards the caller's
// identity in X-User-ID, X-User-Role, and X-Restaurant-ID headers.
package handler

import (
	"encoding/json"
	"net/http"

	"github.com/go-faster/sdk/zctx"
	"go.uber.org/zap"

	"github.com/chowline/chowline/internal/domain/cart"
	"github.com/chowline/chowline/internal/domain/order"
	"github.com/chowline/chowline/internal/domain/wallet"
)

// Handler holds the domain services behind the HTTP API.
type Handler struct {
	carts  *cart.Service
	orders *order.Service
	ledger wallet.Ledger
}

// NewHandler constructs a Handler with the required domain dependencies.
func NewHandler(carts *cart.Service, orders *order.Service, ledger wallet.Ledger) *Handler {
	return &Handler{
		carts:  carts,
		orders: orders,
		ledger: ledger,
	}
}

// Register attaches all API routes to the mux.
func (h *Handler) Register(mux *http.ServeMux) {
	mux.HandleFunc("GET /api/cart", h.GetCart)
	mux.HandleFunc("POST /api/cart/items", h.AddCartItem)
	mux.HandleFunc("DELETE /api/cart/items/{itemID}", h.RemoveCartItem)
	mux.HandleFunc("DELETE /api/cart", h.ClearCart)
	mux.HandleFunc("POST /api/cart/coupon", h.ApplyCoupon)
	mux.HandleFunc("DELETE /api/cart/coupon", h.RemoveCoupon)

	mux.HandleFunc("POST /api/orders", h.Checkout)
	mux.HandleFunc("GET /api/orders", h.ListOrders)
	mux.HandleFunc("GET /api/orders/{orderID}", h.GetOrder)
	mux.HandleFunc("PATCH /api/orders/{orderID}/status", h.UpdateOrderStatus)
	mux.HandleFunc("PATCH /api/orders/{orderID}/cancel", h.CancelOrder)
	mux.HandleFunc("PATCH /api/orders/{orderID}/assign-delivery", h.AssignDelivery)

	mux.HandleFunc("GET /api/wallet", h.GetWallet)
}

// actor extracts the caller identity from the forwarded headers. The role
// defaults to USER when absent or unknown.
func actor(r *http.Request) order.Actor {
	a := order.Actor{
		ID:           r.Header.Get("X-User-ID"),
		Role:         order.Role(r.Header.Get("X-User-Role")),
		RestaurantID: r.Header.Get("X-Restaurant-ID"),
	}
	switch a.Role {
	case order.RoleUser, order.RoleRestaurant, order.RoleDeliveryPartner, order.RoleAdmin:
	default:
		a.Role = order.RoleUser
	}
	return a
}

// errorResponse is the error body for all non-2xx responses.
type errorResponse struct {
	Code    int    `json:"code"`
	Message string `json:"message"`
}

func respondJSON(w http.ResponseWriter, r *http.Request, status int, body any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(body); err != nil {
		zctx.From(r.Context()).Error("Encode response", zap.Error(err))
	}
}

func respondError(w http.ResponseWriter, r *http.Request, status int, message string) {
	respondJSON(w, r, status, errorResponse{Code: status, Message: message})
}

func decodeJSON(w http.ResponseWriter, r *http.Request, dst any) bool {
	dec := json.NewDecoder(r.Body)
	dec.DisallowUnknownFields()
	if err := dec.Decode(dst); err != nil {
		respondError(w, r, http.StatusBadRequest, "invalid request body")
		return false
	}
	return true
}

// requireUser rejects requests without a forwarded user identity.
func requireUser(w http.ResponseWriter, r *http.Request) (string, bool) {
	userID := r.Header.Get("X-User-ID")
	if userID == "" {
		respondError(w, r, http.StatusUnauthorized, "missing X-User-ID header")
		return "", false
	}
	return userID, true
}

func internalError(w http.ResponseWriter, r *http.Request, err error) {
	zctx.From(r.Context()).Error("Internal error", zap.Error(err))
	respondError(w, r, http.StatusInternalServerError, "internal server error")
}
