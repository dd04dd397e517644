package model

import (
	"encoding/json"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// PaymentMethod is how an order is settled.
type PaymentMethod string

const (
	PaymentCash PaymentMethod = "cash"
	PaymentCard PaymentMethod = "card"
)

// Order is an immutable record created from a cart at checkout time.
type Order struct {
	ID                uuid.UUID       `json:"id" db:"id"`
	UserID            uuid.UUID       `json:"userId" db:"user_id"`
	ShippingAddress   json.RawMessage `json:"shippingAddress" db:"shipping_address"`
	PaymentMethodType PaymentMethod   `json:"paymentMethodType" db:"payment_method_type"`
	TotalOrderPrice   decimal.Decimal `json:"totalOrderPrice" db:"total_order_price"`
	CouponName        *string         `json:"couponName,omitempty" db:"coupon_name"`
	IsPaid            bool            `json:"isPaid" db:"is_paid"`
	PaidAt            *time.Time      `json:"paidAt,omitempty" db:"paid_at"`
	IsDelivered       bool            `json:"isDelivered" db:"is_delivered"`
	DeliveredAt       *time.Time      `json:"deliveredAt,omitempty" db:"delivered_at"`
	InvoiceID         *string         `json:"invoiceId,omitempty" db:"invoice_id"`
	CreatedAt         time.Time       `json:"createdAt" db:"created_at"`
	UpdatedAt         time.Time       `json:"updatedAt" db:"updated_at"`
}

// OrderItem represents a line item in an order.
type OrderItem struct {
	ID        uuid.UUID `json:"id" db:"id"`
	OrderID   uuid.UUID `json:"-" db:"order_id"`
	ProductID uuid.UUID `json:"productId" db:"product_id"`
	Quantity  int       `json:"quantity" db:"quantity"`
}

// CreateOrderRequest is the body of the cash and online order endpoints.
type CreateOrderRequest struct {
	ShippingAddress json.RawMessage `json:"shippingAddress"`
}

// OrderStatusUpdate is the admin body of PUT /orders/{id}.
type OrderStatusUpdate struct {
	IsPaid      *bool `json:"isPaid"`
	IsDelivered *bool `json:"isDelivered"`
}

// OrderResponse represents the response payload for an order.
type OrderResponse struct {
	Order
	Items   []OrderItem `json:"items"`
	Invoice *Invoice    `json:"invoice,omitempty"`
}

// Invoice is the payment gateway's invoice for a card order.
type Invoice struct {
	ID          string            `json:"id"`
	Status      string            `json:"status"`
	Amount      int64             `json:"amount"`
	Currency    string            `json:"currency"`
	Description string            `json:"description"`
	URL         string            `json:"url"`
	CallbackURL string            `json:"callback_url,omitempty"`
	Metadata    map[string]string `json:"metadata,omitempty"`
}

// PaymentWebhook is the gateway callback confirming an invoice payment.
type PaymentWebhook struct {
	ID       string `json:"id"`
	Status   string `json:"status"`
	Metadata struct {
		OrderID string `json:"orderId"`
	} `json:"metadata"`
}

// Order event types written to the outbox.
const (
	EventOrderCreated   = "order.created"
	EventOrderPaid      = "order.paid"
	EventOrderDelivered = "order.delivered"
)

// OrderEvent is an outbox row published to the message broker.
type OrderEvent struct {
	ID          uuid.UUID       `json:"id" db:"id"`
	OrderID     uuid.UUID       `json:"orderId" db:"order_id"`
	Type        string          `json:"type" db:"type"`
	Payload     json.RawMessage `json:"payload" db:"payload"`
	CreatedAt   time.Time       `json:"createdAt" db:"created_at"`
	PublishedAt *time.Time      `json:"publishedAt,omitempty" db:"published_at"`
}
