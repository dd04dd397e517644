package service

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"shopfront/internal/auth"
	"shopfront/internal/cache"
	"shopfront/internal/model"
	"shopfront/internal/repository"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/rs/zerolog"
)

// PaymentStatusPaid is the webhook status that settles an order.
const PaymentStatusPaid = "paid"

// orderService implements OrderService.
type orderService struct {
	orderRepo  repository.OrderRepository
	cartRepo   repository.CartRepository
	outboxRepo repository.OutboxRepository
	gateway    PaymentGateway
	cache      cache.CartCache
	logger     zerolog.Logger
}

// NewOrderService creates a new order service. gateway may be nil when online payments are disabled.
func NewOrderService(
	orderRepo repository.OrderRepository,
	cartRepo repository.CartRepository,
	outboxRepo repository.OutboxRepository,
	gateway PaymentGateway,
	cartCache cache.CartCache,
	logger zerolog.Logger,
) OrderService {
	return &orderService{
		orderRepo:  orderRepo,
		cartRepo:   cartRepo,
		outboxRepo: outboxRepo,
		gateway:    gateway,
		cache:      cartCache,
		logger:     logger.With().Str("service", "order").Logger(),
	}
}

// CreateCashOrder converts the user's cart into an order paid on delivery.
func (s *orderService) CreateCashOrder(ctx context.Context, userID uuid.UUID, req *model.CreateOrderRequest) (*model.OrderResponse, error) {
	order, items, err := s.createOrder(ctx, userID, req, model.PaymentCash)
	if err != nil {
		return nil, err
	}
	return &model.OrderResponse{Order: *order, Items: items}, nil
}

// CreateOnlineOrder converts the user's cart into a card order and issues its invoice.
// When invoicing fails the order is kept and the invoice can be requested again.
func (s *orderService) CreateOnlineOrder(ctx context.Context, userID uuid.UUID, req *model.CreateOrderRequest) (*model.OrderResponse, error) {
	if s.gateway == nil {
		return nil, model.ErrPaymentsDisabled
	}

	order, items, err := s.createOrder(ctx, userID, req, model.PaymentCard)
	if err != nil {
		return nil, err
	}

	invoice, err := s.issueInvoice(ctx, order)
	if err != nil {
		s.logger.Error().Err(err).Str("order_id", order.ID.String()).Msg("order created without invoice")
		return nil, model.NewExternalServiceError(
			fmt.Sprintf("order %s was created but its invoice could not be issued", order.ID), err)
	}

	return &model.OrderResponse{Order: *order, Items: items, Invoice: invoice}, nil
}

// createOrder locks the cart, copies it into an order with its items and deletes the cart, in one transaction.
func (s *orderService) createOrder(
	ctx context.Context,
	userID uuid.UUID,
	req *model.CreateOrderRequest,
	method model.PaymentMethod,
) (order *model.Order, orderItems []model.OrderItem, err error) {
	if err = validateShippingAddress(req); err != nil {
		return nil, nil, err
	}

	tx, err := s.orderRepo.BeginTx(ctx)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to create order: %w", err)
	}
	defer func() {
		if err != nil {
			if rbErr := tx.Rollback(ctx); rbErr != nil {
				s.logger.Error().Err(rbErr).Msg("failed to rollback transaction")
			}
		}
	}()

	cart, err := s.cartRepo.GetForUpdate(ctx, tx, userID)
	if err != nil {
		return nil, nil, err
	}
	if cart == nil {
		return nil, nil, model.ErrCartNotFound
	}

	total := cart.PayableTotal()
	if !total.IsPositive() {
		s.logger.Warn().Str("cart_id", cart.ID.String()).Msg("zero-value cart rejected")
		return nil, nil, model.ErrZeroValueCart
	}

	cartItems, err := s.cartRepo.GetItems(ctx, tx, cart.ID)
	if err != nil {
		return nil, nil, err
	}
	if len(cartItems) == 0 {
		return nil, nil, model.ErrZeroValueCart
	}

	now := time.Now().UTC()
	order = &model.Order{
		ID:                uuid.New(),
		UserID:            userID,
		ShippingAddress:   req.ShippingAddress,
		PaymentMethodType: method,
		TotalOrderPrice:   total,
		CouponName:        cart.CouponName,
		CreatedAt:         now,
		UpdatedAt:         now,
	}

	if err = s.orderRepo.CreateOrder(ctx, tx, order); err != nil {
		return nil, nil, err
	}

	orderItems = make([]model.OrderItem, len(cartItems))
	for i, item := range cartItems {
		orderItems[i] = model.OrderItem{
			ID:        uuid.New(),
			OrderID:   order.ID,
			ProductID: item.ProductID,
			Quantity:  item.Quantity,
		}
	}

	if err = s.orderRepo.CreateOrderItems(ctx, tx, orderItems); err != nil {
		return nil, nil, err
	}

	if err = s.appendEvent(ctx, tx, order, model.EventOrderCreated, model.OrderResponse{Order: *order, Items: orderItems}); err != nil {
		return nil, nil, err
	}

	if err = s.cartRepo.Delete(ctx, tx, cart.ID); err != nil {
		return nil, nil, err
	}

	if err = tx.Commit(ctx); err != nil {
		return nil, nil, fmt.Errorf("failed to create order: %w", err)
	}

	if cacheErr := s.cache.Delete(ctx, userID); cacheErr != nil {
		s.logger.Warn().Err(cacheErr).Str("user_id", userID.String()).Msg("cart cache invalidation failed")
	}

	s.logger.Info().
		Str("order_id", order.ID.String()).
		Str("payment_method", string(method)).
		Str("total", total.String()).
		Int("item_count", len(orderItems)).
		Msg("order created successfully")

	return order, orderItems, nil
}

// GetOrder retrieves an order with its items.
func (s *orderService) GetOrder(ctx context.Context, caller auth.Identity, id uuid.UUID) (*model.OrderResponse, error) {
	order, items, err := s.orderRepo.GetByID(ctx, id)
	if err != nil {
		return nil, fmt.Errorf("failed to get order: %w", err)
	}
	if order == nil || !canSee(caller, order) {
		return nil, model.ErrOrderNotFound
	}
	return &model.OrderResponse{Order: *order, Items: items}, nil
}

// ListOrders returns a page of the caller's orders, or of all orders for admins.
func (s *orderService) ListOrders(ctx context.Context, caller auth.Identity, q model.ListQuery) ([]model.Order, error) {
	var owner *uuid.UUID
	if !caller.IsAdmin() {
		owner = &caller.UserID
	}

	orders, err := s.orderRepo.List(ctx, owner, q.Normalise())
	if err != nil {
		return nil, fmt.Errorf("failed to list orders: %w", err)
	}
	return orders, nil
}

// UpdateStatus advances the paid and delivered flags of an order.
func (s *orderService) UpdateStatus(ctx context.Context, id uuid.UUID, update *model.OrderStatusUpdate) (order *model.Order, err error) {
	if update == nil || (update.IsPaid == nil && update.IsDelivered == nil) {
		return nil, model.NewValidationError("isPaid or isDelivered is required")
	}

	tx, err := s.orderRepo.BeginTx(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to update order: %w", err)
	}
	defer func() {
		if err != nil {
			if rbErr := tx.Rollback(ctx); rbErr != nil {
				s.logger.Error().Err(rbErr).Msg("failed to rollback transaction")
			}
		}
	}()

	order, err = s.orderRepo.GetForUpdate(ctx, tx, id)
	if err != nil {
		return nil, err
	}
	if order == nil {
		return nil, model.ErrOrderNotFound
	}

	now := time.Now().UTC()
	events, err := advanceStatus(order, update, now)
	if err != nil {
		return nil, err
	}

	if len(events) > 0 {
		order.UpdatedAt = now
		if err = s.orderRepo.UpdateStatus(ctx, tx, order); err != nil {
			return nil, err
		}
		for _, typ := range events {
			if err = s.appendEvent(ctx, tx, order, typ, order); err != nil {
				return nil, err
			}
		}
	}

	if err = tx.Commit(ctx); err != nil {
		return nil, fmt.Errorf("failed to update order: %w", err)
	}

	s.logger.Info().
		Str("order_id", order.ID.String()).
		Bool("is_paid", order.IsPaid).
		Bool("is_delivered", order.IsDelivered).
		Strs("events", events).
		Msg("order status updated")

	return order, nil
}

// advanceStatus applies an admin status update. Flags only move from false to true;
// card orders are paid by payment confirmation and must be paid before delivery.
func advanceStatus(order *model.Order, update *model.OrderStatusUpdate, now time.Time) ([]string, error) {
	var events []string

	if update.IsPaid != nil {
		switch {
		case !*update.IsPaid && order.IsPaid:
			return nil, model.ErrPaidIrreversible
		case *update.IsPaid && !order.IsPaid:
			if order.PaymentMethodType == model.PaymentCard {
				return nil, model.ErrCardPaidByGateway
			}
			order.IsPaid = true
			order.PaidAt = &now
			events = append(events, model.EventOrderPaid)
		}
	}

	if update.IsDelivered != nil {
		switch {
		case !*update.IsDelivered && order.IsDelivered:
			return nil, model.ErrDeliveredFinal
		case *update.IsDelivered && !order.IsDelivered:
			if order.PaymentMethodType == model.PaymentCard && !order.IsPaid {
				return nil, model.ErrDeliverUnpaid
			}
			order.IsDelivered = true
			order.DeliveredAt = &now
			events = append(events, model.EventOrderDelivered)
		}
	}

	return events, nil
}

// CreateInvoice issues a fresh invoice for an unpaid card order.
func (s *orderService) CreateInvoice(ctx context.Context, caller auth.Identity, id uuid.UUID) (*model.OrderResponse, error) {
	if s.gateway == nil {
		return nil, model.ErrPaymentsDisabled
	}

	order, items, err := s.orderRepo.GetByID(ctx, id)
	if err != nil {
		return nil, fmt.Errorf("failed to get order: %w", err)
	}
	if order == nil || !canSee(caller, order) {
		return nil, model.ErrOrderNotFound
	}
	if order.PaymentMethodType != model.PaymentCard {
		return nil, model.ErrNotCardOrder
	}
	if order.IsPaid {
		return nil, model.ErrAlreadyPaid
	}

	invoice, err := s.issueInvoice(ctx, order)
	if err != nil {
		return nil, err
	}

	return &model.OrderResponse{Order: *order, Items: items, Invoice: invoice}, nil
}

func (s *orderService) issueInvoice(ctx context.Context, order *model.Order) (*model.Invoice, error) {
	invoice, err := s.gateway.CreateInvoice(ctx, order)
	if err != nil {
		return nil, err
	}

	if err := s.orderRepo.SetInvoiceID(ctx, order.ID, invoice.ID); err != nil {
		return nil, err
	}
	order.InvoiceID = &invoice.ID

	return invoice, nil
}

// ConfirmPayment marks the referenced order paid when the webhook reports it paid.
func (s *orderService) ConfirmPayment(ctx context.Context, webhook *model.PaymentWebhook) (order *model.Order, err error) {
	if webhook == nil {
		return nil, model.NewValidationError("webhook payload is required")
	}
	if webhook.Status != PaymentStatusPaid {
		s.logger.Info().Str("invoice_id", webhook.ID).Str("status", webhook.Status).Msg("ignoring payment webhook")
		return nil, nil
	}

	orderID, err := uuid.Parse(webhook.Metadata.OrderID)
	if err != nil {
		return nil, model.NewValidationError("metadata.orderId must be a valid UUID")
	}

	tx, err := s.orderRepo.BeginTx(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to confirm payment: %w", err)
	}
	defer func() {
		if err != nil {
			if rbErr := tx.Rollback(ctx); rbErr != nil {
				s.logger.Error().Err(rbErr).Msg("failed to rollback transaction")
			}
		}
	}()

	order, err = s.orderRepo.GetForUpdate(ctx, tx, orderID)
	if err != nil {
		return nil, err
	}
	if order == nil {
		return nil, model.ErrOrderNotFound
	}

	if order.InvoiceID != nil && webhook.ID != "" && *order.InvoiceID != webhook.ID {
		s.logger.Warn().
			Str("order_id", order.ID.String()).
			Str("invoice_id", webhook.ID).
			Str("current_invoice_id", *order.InvoiceID).
			Msg("payment confirmed for a superseded invoice")
	}

	if !order.IsPaid {
		now := time.Now().UTC()
		order.IsPaid = true
		order.PaidAt = &now
		order.UpdatedAt = now

		if err = s.orderRepo.UpdateStatus(ctx, tx, order); err != nil {
			return nil, err
		}
		if err = s.appendEvent(ctx, tx, order, model.EventOrderPaid, order); err != nil {
			return nil, err
		}
	}

	if err = tx.Commit(ctx); err != nil {
		return nil, fmt.Errorf("failed to confirm payment: %w", err)
	}

	s.logger.Info().Str("order_id", order.ID.String()).Str("invoice_id", webhook.ID).Msg("payment confirmed")
	return order, nil
}

func (s *orderService) appendEvent(ctx context.Context, tx pgx.Tx, order *model.Order, typ string, payload any) error {
	data, err := json.Marshal(payload)
	if err != nil {
		return fmt.Errorf("failed to encode %s event: %w", typ, err)
	}

	return s.outboxRepo.Append(ctx, tx, &model.OrderEvent{
		ID:        uuid.New(),
		OrderID:   order.ID,
		Type:      typ,
		Payload:   data,
		CreatedAt: time.Now().UTC(),
	})
}

func canSee(caller auth.Identity, order *model.Order) bool {
	return caller.IsAdmin() || order.UserID == caller.UserID
}

func validateShippingAddress(req *model.CreateOrderRequest) error {
	if req == nil || len(req.ShippingAddress) == 0 || string(req.ShippingAddress) == "null" {
		return model.NewValidationError("shippingAddress is required")
	}

	var address map[string]any
	if err := json.Unmarshal(req.ShippingAddress, &address); err != nil {
		return model.NewValidationError("shippingAddress must be a JSON object")
	}
	return nil
}
