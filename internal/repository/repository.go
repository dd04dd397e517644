package repository

import (
	"context"

	"shopfront/internal/model"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/shopspring/decimal"
)

// ProductRepository defines the interface for product data access operations.
type ProductRepository interface {
	// List retrieves a page of products.
	List(ctx context.Context, q model.ListQuery) ([]model.Product, error)

	// GetByID retrieves a single product by its ID, or nil when it does not exist.
	GetByID(ctx context.Context, id uuid.UUID) (*model.Product, error)

	// GetPrices returns the current price of each product that exists.
	GetPrices(ctx context.Context, ids []uuid.UUID) (map[uuid.UUID]decimal.Decimal, error)

	// GetPricesTx is GetPrices read on tx.
	GetPricesTx(ctx context.Context, tx pgx.Tx, ids []uuid.UUID) (map[uuid.UUID]decimal.Decimal, error)

	// Create inserts a new product.
	Create(ctx context.Context, product *model.Product) error
}

// CartRepository defines the interface for cart data access operations.
// Every write takes the transaction holding the cart row lock.
type CartRepository interface {
	BeginTx(ctx context.Context) (pgx.Tx, error)

	// EnsureCart creates an empty cart for the user unless one already exists.
	EnsureCart(ctx context.Context, tx pgx.Tx, userID uuid.UUID) error

	// GetForUpdate locks and returns the user's cart, or nil when there is none.
	GetForUpdate(ctx context.Context, tx pgx.Tx, userID uuid.UUID) (*model.Cart, error)

	// GetByUserID returns the user's cart and items without locking, or nil when there is none.
	GetByUserID(ctx context.Context, userID uuid.UUID) (*model.Cart, []model.CartItem, error)

	GetItems(ctx context.Context, tx pgx.Tx, cartID uuid.UUID) ([]model.CartItem, error)

	// AddItem inserts the line or increments the quantity of an existing one.
	AddItem(ctx context.Context, tx pgx.Tx, cartID, productID uuid.UUID, quantity int) error

	// SetItemQuantity reports false when the product is not in the cart.
	SetItemQuantity(ctx context.Context, tx pgx.Tx, cartID, productID uuid.UUID, quantity int) (bool, error)

	// DeleteItem reports false when the product is not in the cart.
	DeleteItem(ctx context.Context, tx pgx.Tx, cartID, productID uuid.UUID) (bool, error)

	// UpdateTotals persists the totals and coupon name of the cart.
	UpdateTotals(ctx context.Context, tx pgx.Tx, cart *model.Cart) error

	// Delete removes the cart and, by cascade, its items.
	Delete(ctx context.Context, tx pgx.Tx, cartID uuid.UUID) error
}

// CouponRepository defines the interface for coupon data access operations.
type CouponRepository interface {
	List(ctx context.Context, q model.ListQuery) ([]model.Coupon, error)

	// GetByID and GetByName return nil when the coupon does not exist.
	GetByID(ctx context.Context, id uuid.UUID) (*model.Coupon, error)
	GetByName(ctx context.Context, name string) (*model.Coupon, error)

	Create(ctx context.Context, coupon *model.Coupon) error
	Update(ctx context.Context, coupon *model.Coupon) error
	Delete(ctx context.Context, id uuid.UUID) error

	// Upsert inserts the coupons or replaces expire and discount of existing names.
	Upsert(ctx context.Context, coupons []model.Coupon) error
}

// OrderRepository defines the interface for order data access operations.
type OrderRepository interface {
	// BeginTx starts a new database transaction.
	BeginTx(ctx context.Context) (pgx.Tx, error)

	// CreateOrder inserts a new order within the provided transaction.
	CreateOrder(ctx context.Context, tx pgx.Tx, order *model.Order) error

	// CreateOrderItems inserts multiple order items within the provided transaction.
	CreateOrderItems(ctx context.Context, tx pgx.Tx, items []model.OrderItem) error

	// GetByID retrieves an order by its ID along with its items.
	GetByID(ctx context.Context, id uuid.UUID) (*model.Order, []model.OrderItem, error)

	// GetForUpdate locks and returns the order, or nil when it does not exist.
	GetForUpdate(ctx context.Context, tx pgx.Tx, id uuid.UUID) (*model.Order, error)

	// List returns a page of orders, restricted to userID when it is not nil.
	List(ctx context.Context, userID *uuid.UUID, q model.ListQuery) ([]model.Order, error)

	// UpdateStatus persists the paid and delivered flags of the order.
	UpdateStatus(ctx context.Context, tx pgx.Tx, order *model.Order) error

	SetInvoiceID(ctx context.Context, id uuid.UUID, invoiceID string) error
}

// OutboxRepository stores order events until they are published.
type OutboxRepository interface {
	BeginTx(ctx context.Context) (pgx.Tx, error)

	// Append writes the event in the caller's transaction.
	Append(ctx context.Context, tx pgx.Tx, event *model.OrderEvent) error

	// FetchUnpublished locks up to limit unpublished events, oldest first.
	FetchUnpublished(ctx context.Context, tx pgx.Tx, limit int) ([]model.OrderEvent, error)

	MarkPublished(ctx context.Context, tx pgx.Tx, ids []uuid.UUID) error
}
