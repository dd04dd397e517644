package handler

import (
	"context"
	"net/http"

	"shopfront/internal/model"
	"shopfront/internal/service"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
)

// OrderHandler handles order-related HTTP requests.
type OrderHandler struct {
	service service.OrderService
	logger  zerolog.Logger
}

// NewOrderHandler creates a new order handler.
func NewOrderHandler(service service.OrderService, logger zerolog.Logger) *OrderHandler {
	return &OrderHandler{
		service: service,
		logger:  logger.With().Str("handler", "order").Logger(),
	}
}

type createOrderFunc func(ctx context.Context, userID uuid.UUID, req *model.CreateOrderRequest) (*model.OrderResponse, error)

// CreateCashOrder handles POST /orders/createCashOrder.
func (h *OrderHandler) CreateCashOrder(w http.ResponseWriter, r *http.Request) {
	h.create(w, r, h.service.CreateCashOrder)
}

// CreateOnlineOrder handles POST /orders/createOnlineOrder.
func (h *OrderHandler) CreateOnlineOrder(w http.ResponseWriter, r *http.Request) {
	h.create(w, r, h.service.CreateOnlineOrder)
}

func (h *OrderHandler) create(w http.ResponseWriter, r *http.Request, create createOrderFunc) {
	id, err := caller(r)
	if err != nil {
		WriteError(w, err, h.logger)
		return
	}

	var req model.CreateOrderRequest
	if err := decodeJSON(r, &req); err != nil {
		WriteError(w, err, h.logger)
		return
	}

	order, err := create(r.Context(), id.UserID, &req)
	if err != nil {
		WriteError(w, err, h.logger)
		return
	}

	writeData(w, http.StatusCreated, order)
}

// List handles GET /orders.
func (h *OrderHandler) List(w http.ResponseWriter, r *http.Request) {
	id, err := caller(r)
	if err != nil {
		WriteError(w, err, h.logger)
		return
	}

	q, err := parseListQuery(r)
	if err != nil {
		WriteError(w, err, h.logger)
		return
	}

	orders, err := h.service.ListOrders(r.Context(), id, q)
	if err != nil {
		WriteError(w, err, h.logger)
		return
	}

	writeList(w, orders)
}

// GetByID handles GET /orders/{id}.
func (h *OrderHandler) GetByID(w http.ResponseWriter, r *http.Request) {
	id, err := caller(r)
	if err != nil {
		WriteError(w, err, h.logger)
		return
	}

	orderID, err := pathUUID(r, "id")
	if err != nil {
		WriteError(w, err, h.logger)
		return
	}

	order, err := h.service.GetOrder(r.Context(), id, orderID)
	if err != nil {
		WriteError(w, err, h.logger)
		return
	}

	writeData(w, http.StatusOK, order)
}

// UpdateStatus handles PUT /orders/{id}.
func (h *OrderHandler) UpdateStatus(w http.ResponseWriter, r *http.Request) {
	orderID, err := pathUUID(r, "id")
	if err != nil {
		WriteError(w, err, h.logger)
		return
	}

	var req model.OrderStatusUpdate
	if err := decodeJSON(r, &req); err != nil {
		WriteError(w, err, h.logger)
		return
	}

	order, err := h.service.UpdateStatus(r.Context(), orderID, &req)
	if err != nil {
		WriteError(w, err, h.logger)
		return
	}

	writeData(w, http.StatusOK, order)
}

// CreateInvoice handles POST /orders/{id}/invoice.
func (h *OrderHandler) CreateInvoice(w http.ResponseWriter, r *http.Request) {
	id, err := caller(r)
	if err != nil {
		WriteError(w, err, h.logger)
		return
	}

	orderID, err := pathUUID(r, "id")
	if err != nil {
		WriteError(w, err, h.logger)
		return
	}

	order, err := h.service.CreateInvoice(r.Context(), id, orderID)
	if err != nil {
		WriteError(w, err, h.logger)
		return
	}

	writeData(w, http.StatusCreated, order)
}

// Webhook handles POST /orders/webhook from the payment gateway.
func (h *OrderHandler) Webhook(w http.ResponseWriter, r *http.Request) {
	var req model.PaymentWebhook
	if err := decodeJSON(r, &req); err != nil {
		WriteError(w, err, h.logger)
		return
	}

	order, err := h.service.ConfirmPayment(r.Context(), &req)
	if err != nil {
		WriteError(w, err, h.logger)
		return
	}

	if order == nil {
		writeJSON(w, http.StatusOK, model.Envelope{Status: model.StatusSuccess, Message: "webhook received"})
		return
	}

	writeData(w, http.StatusOK, order)
}
