package handler

import (
	"net/http"
	"time"

	"github.com/go-faster/errors"

	"github.com/chowline/chowline/internal/domain/cart"
	"github.com/chowline/chowline/internal/domain/catalog"
	"github.com/chowline/chowline/internal/domain/coupon"
	"github.com/chowline/chowline/internal/domain/pricing"
)

// cartResponse is the wire representation of a cart.
type cartResponse struct {
	UserID       string             `json:"userId"`
	RestaurantID string             `json:"restaurantId,omitempty"`
	Items        []pricing.LineItem `json:"items"`
	CouponID     string             `json:"couponId,omitempty"`
	Totals       pricing.Totals     `json:"totals"`
	UpdatedAt    time.Time          `json:"updatedAt"`
	DroppedItems []string           `json:"droppedItems,omitempty"`
}

func domainToCartResponse(c *cart.Cart, dropped []string) cartResponse {
	items := c.Items
	if items == nil {
		items = []pricing.LineItem{}
	}
	return cartResponse{
		UserID:       c.UserID,
		RestaurantID: c.RestaurantID,
		Items:        items,
		CouponID:     c.CouponID,
		Totals:       c.Totals,
		UpdatedAt:    c.UpdatedAt,
		DroppedItems: dropped,
	}
}

// GetCart returns the user's cart, reconciled against the current catalog.
// Items no longer available are dropped and reported in droppedItems.
func (h *Handler) GetCart(w http.ResponseWriter, r *http.Request) {
	userID, ok := requireUser(w, r)
	if !ok {
		return
	}

	res, err := h.carts.Get(r.Context(), userID)
	if err != nil {
		h.cartError(w, r, err)
		return
	}
	respondJSON(w, r, http.StatusOK, domainToCartResponse(res.Cart, res.DroppedItems))
}

type addCartItemRequest struct {
	ItemID         string                  `json:"itemId"`
	Quantity       int                     `json:"quantity"`
	Customizations []pricing.Customization `json:"customizations,omitempty"`
}

// AddCartItem adds a menu item to the cart or replaces the existing line
// for that item.
func (h *Handler) AddCartItem(w http.ResponseWriter, r *http.Request) {
	userID, ok := requireUser(w, r)
	if !ok {
		return
	}

	var req addCartItemRequest
	if !decodeJSON(w, r, &req) {
		return
	}
	if req.ItemID == "" {
		respondError(w, r, http.StatusBadRequest, "itemId is required")
		return
	}

	c, err := h.carts.AddItem(r.Context(), userID, req.ItemID, req.Quantity, req.Customizations)
	if err != nil {
		h.cartError(w, r, err)
		return
	}
	respondJSON(w, r, http.StatusOK, domainToCartResponse(c, nil))
}

// RemoveCartItem deletes one line item from the cart.
func (h *Handler) RemoveCartItem(w http.ResponseWriter, r *http.Request) {
	userID, ok := requireUser(w, r)
	if !ok {
		return
	}

	c, err := h.carts.RemoveItem(r.Context(), userID, r.PathValue("itemID"))
	if err != nil {
		h.cartError(w, r, err)
		return
	}
	respondJSON(w, r, http.StatusOK, domainToCartResponse(c, nil))
}

// ClearCart empties the cart and unbinds its restaurant and coupon.
func (h *Handler) ClearCart(w http.ResponseWriter, r *http.Request) {
	userID, ok := requireUser(w, r)
	if !ok {
		return
	}

	c, err := h.carts.Clear(r.Context(), userID)
	if err != nil {
		h.cartError(w, r, err)
		return
	}
	respondJSON(w, r, http.StatusOK, domainToCartResponse(c, nil))
}

type applyCouponRequest struct {
	Code string `json:"code"`
}

// ApplyCoupon validates a coupon code against the cart and applies its
// discount.
func (h *Handler) ApplyCoupon(w http.ResponseWriter, r *http.Request) {
	userID, ok := requireUser(w, r)
	if !ok {
		return
	}

	var req applyCouponRequest
	if !decodeJSON(w, r, &req) {
		return
	}
	if req.Code == "" {
		respondError(w, r, http.StatusBadRequest, "code is required")
		return
	}

	c, err := h.carts.ApplyCoupon(r.Context(), userID, req.Code)
	if err != nil {
		h.cartError(w, r, err)
		return
	}
	respondJSON(w, r, http.StatusOK, domainToCartResponse(c, nil))
}

// RemoveCoupon drops the applied coupon and recomputes totals.
func (h *Handler) RemoveCoupon(w http.ResponseWriter, r *http.Request) {
	userID, ok := requireUser(w, r)
	if !ok {
		return
	}

	c, err := h.carts.RemoveCoupon(r.Context(), userID)
	if err != nil {
		h.cartError(w, r, err)
		return
	}
	respondJSON(w, r, http.StatusOK, domainToCartResponse(c, nil))
}

// cartError maps cart and coupon domain errors to HTTP responses.
func (h *Handler) cartError(w http.ResponseWriter, r *http.Request, err error) {
	switch {
	case errors.Is(err, cart.ErrNotFound),
		errors.Is(err, catalog.ErrItemNotFound),
		errors.Is(err, catalog.ErrRestaurantNotFound),
		errors.Is(err, coupon.ErrNotFound):
		respondError(w, r, http.StatusNotFound, err.Error())
	case errors.Is(err, cart.ErrEmpty),
		errors.Is(err, cart.ErrInvalidSubtotal):
		respondError(w, r, http.StatusBadRequest, err.Error())
	case errors.Is(err, coupon.ErrAlreadyApplied),
		errors.Is(err, cart.ErrConflict):
		respondError(w, r, http.StatusConflict, err.Error())
	case errors.Is(err, cart.ErrItemUnavailable),
		errors.Is(err, pricing.ErrInvalidQuantity),
		errors.Is(err, coupon.ErrExpired):
		respondError(w, r, http.StatusUnprocessableEntity, err.Error())
	default:
		var (
			notFoundErr *cart.ItemNotFoundError
			crossErr    *cart.CrossRestaurantError
			minErr      *coupon.MinimumNotMetError
		)
		switch {
		case errors.As(err, &notFoundErr):
			respondError(w, r, http.StatusNotFound, err.Error())
		case errors.As(err, &crossErr):
			respondError(w, r, http.StatusConflict, err.Error())
		case errors.As(err, &minErr):
			respondError(w, r, http.StatusUnprocessableEntity, err.Error())
		default:
			internalError(w, r, err)
		}
	}
}
