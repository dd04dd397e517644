package handler

import (
	"net/http"

	"shopfront/internal/model"
	"shopfront/internal/service"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
)

// CartHandler handles requests on the caller's cart.
type CartHandler struct {
	carts   service.CartService
	coupons service.CouponService
	logger  zerolog.Logger
}

// NewCartHandler creates a new cart handler.
func NewCartHandler(carts service.CartService, coupons service.CouponService, logger zerolog.Logger) *CartHandler {
	return &CartHandler{
		carts:   carts,
		coupons: coupons,
		logger:  logger.With().Str("handler", "cart").Logger(),
	}
}

// Get handles GET /cart.
func (h *CartHandler) Get(w http.ResponseWriter, r *http.Request) {
	id, err := caller(r)
	if err != nil {
		WriteError(w, err, h.logger)
		return
	}

	cart, err := h.carts.GetCart(r.Context(), id.UserID)
	if err != nil {
		WriteError(w, err, h.logger)
		return
	}

	writeData(w, http.StatusOK, cart)
}

// AddItem handles POST /cart.
func (h *CartHandler) AddItem(w http.ResponseWriter, r *http.Request) {
	id, err := caller(r)
	if err != nil {
		WriteError(w, err, h.logger)
		return
	}

	var req model.AddToCartRequest
	if err := decodeJSON(r, &req); err != nil {
		WriteError(w, err, h.logger)
		return
	}

	productID, err := uuid.Parse(req.ProductID)
	if err != nil {
		WriteError(w, model.NewValidationError("productId must be a valid UUID"), h.logger)
		return
	}

	quantity := 1
	if req.Quantity != nil {
		quantity = *req.Quantity
	}

	cart, err := h.carts.AddItem(r.Context(), id.UserID, productID, quantity)
	if err != nil {
		WriteError(w, err, h.logger)
		return
	}

	writeData(w, http.StatusOK, cart)
}

// SetQuantity handles PUT /cart/{productId}.
func (h *CartHandler) SetQuantity(w http.ResponseWriter, r *http.Request) {
	id, err := caller(r)
	if err != nil {
		WriteError(w, err, h.logger)
		return
	}

	productID, err := pathUUID(r, "productId")
	if err != nil {
		WriteError(w, err, h.logger)
		return
	}

	var req model.UpdateQuantityRequest
	if err := decodeJSON(r, &req); err != nil {
		WriteError(w, err, h.logger)
		return
	}
	if req.Quantity == nil {
		WriteError(w, model.NewValidationError("quantity is required"), h.logger)
		return
	}

	cart, err := h.carts.SetQuantity(r.Context(), id.UserID, productID, *req.Quantity)
	if err != nil {
		WriteError(w, err, h.logger)
		return
	}

	h.writeCart(w, cart)
}

// RemoveItem handles DELETE /cart/{productId}.
func (h *CartHandler) RemoveItem(w http.ResponseWriter, r *http.Request) {
	id, err := caller(r)
	if err != nil {
		WriteError(w, err, h.logger)
		return
	}

	productID, err := pathUUID(r, "productId")
	if err != nil {
		WriteError(w, err, h.logger)
		return
	}

	cart, err := h.carts.RemoveItem(r.Context(), id.UserID, productID)
	if err != nil {
		WriteError(w, err, h.logger)
		return
	}

	h.writeCart(w, cart)
}

// Clear handles DELETE /cart.
func (h *CartHandler) Clear(w http.ResponseWriter, r *http.Request) {
	id, err := caller(r)
	if err != nil {
		WriteError(w, err, h.logger)
		return
	}

	if err := h.carts.Clear(r.Context(), id.UserID); err != nil {
		WriteError(w, err, h.logger)
		return
	}

	w.WriteHeader(http.StatusNoContent)
}

// ApplyCoupon handles POST /cart/apply-coupon.
func (h *CartHandler) ApplyCoupon(w http.ResponseWriter, r *http.Request) {
	id, err := caller(r)
	if err != nil {
		WriteError(w, err, h.logger)
		return
	}

	var req model.ApplyCouponRequest
	if err := decodeJSON(r, &req); err != nil {
		WriteError(w, err, h.logger)
		return
	}

	cart, err := h.coupons.Apply(r.Context(), id.UserID, req.Coupon)
	if err != nil {
		WriteError(w, err, h.logger)
		return
	}

	writeData(w, http.StatusOK, cart)
}

// writeCart responds 204 when the mutation deleted the cart.
func (h *CartHandler) writeCart(w http.ResponseWriter, cart *model.CartResponse) {
	if cart == nil {
		w.WriteHeader(http.StatusNoContent)
		return
	}
	writeData(w, http.StatusOK, cart)
}
