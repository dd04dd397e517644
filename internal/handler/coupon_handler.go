package handler

import (
	"net/http"

	"shopfront/internal/model"
	"shopfront/internal/service"

	"github.com/rs/zerolog"
)

// CouponHandler handles coupon administration.
type CouponHandler struct {
	service service.CouponService
	logger  zerolog.Logger
}

// NewCouponHandler creates a new coupon handler.
func NewCouponHandler(service service.CouponService, logger zerolog.Logger) *CouponHandler {
	return &CouponHandler{
		service: service,
		logger:  logger.With().Str("handler", "coupon").Logger(),
	}
}

func (h *CouponHandler) List(w http.ResponseWriter, r *http.Request) {
	q, err := parseListQuery(r)
	if err != nil {
		WriteError(w, err, h.logger)
		return
	}

	coupons, err := h.service.List(r.Context(), q)
	if err != nil {
		WriteError(w, err, h.logger)
		return
	}

	writeList(w, coupons)
}

func (h *CouponHandler) Get(w http.ResponseWriter, r *http.Request) {
	id, err := pathUUID(r, "id")
	if err != nil {
		WriteError(w, err, h.logger)
		return
	}

	coupon, err := h.service.Get(r.Context(), id)
	if err != nil {
		WriteError(w, err, h.logger)
		return
	}

	writeData(w, http.StatusOK, coupon)
}

func (h *CouponHandler) Create(w http.ResponseWriter, r *http.Request) {
	var req model.CouponRequest
	if err := decodeJSON(r, &req); err != nil {
		WriteError(w, err, h.logger)
		return
	}

	coupon, err := h.service.Create(r.Context(), &req)
	if err != nil {
		WriteError(w, err, h.logger)
		return
	}

	writeData(w, http.StatusCreated, coupon)
}

func (h *CouponHandler) Update(w http.ResponseWriter, r *http.Request) {
	id, err := pathUUID(r, "id")
	if err != nil {
		WriteError(w, err, h.logger)
		return
	}

	var req model.CouponRequest
	if err := decodeJSON(r, &req); err != nil {
		WriteError(w, err, h.logger)
		return
	}

	coupon, err := h.service.Update(r.Context(), id, &req)
	if err != nil {
		WriteError(w, err, h.logger)
		return
	}

	writeData(w, http.StatusOK, coupon)
}

func (h *CouponHandler) Delete(w http.ResponseWriter, r *http.Request) {
	id, err := pathUUID(r, "id")
	if err != nil {
		WriteError(w, err, h.logger)
		return
	}

	if err := h.service.Delete(r.Context(), id); err != nil {
		WriteError(w, err, h.logger)
		return
	}

	w.WriteHeader(http.StatusNoContent)
}
