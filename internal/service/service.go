package service

import (
	"context"

	"shopfront/internal/auth"
	"shopfront/internal/model"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/shopspring/decimal"
)

// PriceResolver resolves current catalogue prices. Prices are never cached.
type PriceResolver interface {
	// UnitPrice returns the current price of the product or ErrProductNotFound.
	UnitPrice(ctx context.Context, productID uuid.UUID) (decimal.Decimal, error)

	// UnitPrices returns the price of every product, failing with ErrProductNotFound if any is missing.
	UnitPrices(ctx context.Context, productIDs []uuid.UUID) (map[uuid.UUID]decimal.Decimal, error)

	// UnitPricesTx is UnitPrices read on tx.
	UnitPricesTx(ctx context.Context, tx pgx.Tx, productIDs []uuid.UUID) (map[uuid.UUID]decimal.Decimal, error)
}

// ProductService defines operations for product management.
type ProductService interface {
	PriceResolver

	List(ctx context.Context, q model.ListQuery) ([]model.Product, error)
	GetByID(ctx context.Context, id uuid.UUID) (*model.Product, error)
	Create(ctx context.Context, req *model.ProductRequest) (*model.Product, error)
}

// CartService maintains the single cart of each user.
// Mutations return nil when they leave the user without a cart.
type CartService interface {
	GetCart(ctx context.Context, userID uuid.UUID) (*model.CartResponse, error)
	AddItem(ctx context.Context, userID, productID uuid.UUID, quantity int) (*model.CartResponse, error)
	SetQuantity(ctx context.Context, userID, productID uuid.UUID, quantity int) (*model.CartResponse, error)
	RemoveItem(ctx context.Context, userID, productID uuid.UUID) (*model.CartResponse, error)
	Clear(ctx context.Context, userID uuid.UUID) error
}

// CouponService administers coupons and applies them to carts.
type CouponService interface {
	List(ctx context.Context, q model.ListQuery) ([]model.Coupon, error)
	Get(ctx context.Context, id uuid.UUID) (*model.Coupon, error)
	Create(ctx context.Context, req *model.CouponRequest) (*model.Coupon, error)
	Update(ctx context.Context, id uuid.UUID, req *model.CouponRequest) (*model.Coupon, error)
	Delete(ctx context.Context, id uuid.UUID) error

	// Apply discounts the user's cart once with the named coupon.
	Apply(ctx context.Context, userID uuid.UUID, couponName string) (*model.CartResponse, error)

	// Import validates and upserts coupons, skipping invalid rows. It returns the number stored.
	Import(ctx context.Context, reqs []model.CouponRequest) (int, error)
}

// PaymentGateway issues invoices for card orders.
type PaymentGateway interface {
	CreateInvoice(ctx context.Context, order *model.Order) (*model.Invoice, error)
}

// OrderService converts carts into orders and tracks their payment and delivery.
type OrderService interface {
	CreateCashOrder(ctx context.Context, userID uuid.UUID, req *model.CreateOrderRequest) (*model.OrderResponse, error)
	CreateOnlineOrder(ctx context.Context, userID uuid.UUID, req *model.CreateOrderRequest) (*model.OrderResponse, error)

	// GetOrder and ListOrders restrict non-admin callers to their own orders.
	GetOrder(ctx context.Context, caller auth.Identity, id uuid.UUID) (*model.OrderResponse, error)
	ListOrders(ctx context.Context, caller auth.Identity, q model.ListQuery) ([]model.Order, error)

	// UpdateStatus advances paid and delivered flags; they never go back to false.
	UpdateStatus(ctx context.Context, id uuid.UUID, update *model.OrderStatusUpdate) (*model.Order, error)

	// CreateInvoice issues a new invoice for an unpaid card order owned by the caller.
	CreateInvoice(ctx context.Context, caller auth.Identity, id uuid.UUID) (*model.OrderResponse, error)

	// ConfirmPayment marks the order paid when the gateway reports it paid.
	// It returns nil when the webhook status is not "paid".
	ConfirmPayment(ctx context.Context, webhook *model.PaymentWebhook) (*model.Order, error)
}
