package repository

import (
	"context"
	"errors"
	"fmt"

	"shopfront/internal/model"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/rs/zerolog"
)

const orderSelect = `
	SELECT id, user_id, shipping_address, payment_method_type, total_order_price, coupon_name,
	       is_paid, paid_at, is_delivered, delivered_at, invoice_id, created_at, updated_at
	FROM orders
`

var orderColumns = listColumns{
	sortable: map[string]string{
		"createdAt":       "created_at",
		"totalOrderPrice": "total_order_price",
		"isPaid":          "is_paid",
		"isDelivered":     "is_delivered",
	},
	searchable: map[string]string{
		"paymentMethodType": "payment_method_type",
		"couponName":        "coupon_name",
	},
	defaultSort:      "created_at DESC",
	defaultSearchCol: "paymentMethodType",
}

// orderRepository implements the OrderRepository interface using PostgreSQL.
type orderRepository struct {
	pool   *pgxpool.Pool
	logger zerolog.Logger
}

// NewOrderRepository creates a new PostgreSQL-backed order repository.
func NewOrderRepository(pool *pgxpool.Pool, logger zerolog.Logger) OrderRepository {
	return &orderRepository{
		pool:   pool,
		logger: logger.With().Str("repository", "order").Logger(),
	}
}

// BeginTx starts a new database transaction.
func (r *orderRepository) BeginTx(ctx context.Context) (pgx.Tx, error) {
	return beginTx(ctx, r.pool, r.logger)
}

// CreateOrder inserts a new order within the provided transaction.
func (r *orderRepository) CreateOrder(ctx context.Context, tx pgx.Tx, order *model.Order) error {
	query := `
		INSERT INTO orders (id, user_id, shipping_address, payment_method_type, total_order_price,
		                    coupon_name, is_paid, is_delivered, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10)
	`

	_, err := tx.Exec(ctx, query,
		order.ID,
		order.UserID,
		order.ShippingAddress,
		string(order.PaymentMethodType),
		order.TotalOrderPrice,
		order.CouponName,
		order.IsPaid,
		order.IsDelivered,
		order.CreatedAt,
		order.UpdatedAt,
	)
	if err != nil {
		r.logger.Error().
			Err(err).
			Str("order_id", order.ID.String()).
			Msg("failed to create order")
		return fmt.Errorf("failed to create order: %w", err)
	}

	r.logger.Debug().
		Str("order_id", order.ID.String()).
		Msg("order created successfully")

	return nil
}

// CreateOrderItems inserts multiple order items within the provided transaction.
func (r *orderRepository) CreateOrderItems(ctx context.Context, tx pgx.Tx, items []model.OrderItem) error {
	if len(items) == 0 {
		return nil
	}

	query := `
		INSERT INTO order_items (id, order_id, product_id, quantity)
		VALUES ($1, $2, $3, $4)
	`

	batch := &pgx.Batch{}
	for _, item := range items {
		batch.Queue(query, item.ID, item.OrderID, item.ProductID, item.Quantity)
	}

	results := tx.SendBatch(ctx, batch)
	defer results.Close()

	for i := range items {
		if _, err := results.Exec(); err != nil {
			r.logger.Error().
				Err(err).
				Str("order_id", items[i].OrderID.String()).
				Str("product_id", items[i].ProductID.String()).
				Msg("failed to create order item")
			return fmt.Errorf("failed to create order item: %w", err)
		}
	}

	return nil
}

// GetByID retrieves an order by its ID along with its items.
func (r *orderRepository) GetByID(ctx context.Context, id uuid.UUID) (*model.Order, []model.OrderItem, error) {
	order, err := scanOrder(r.pool.QueryRow(ctx, orderSelect+` WHERE id = $1`, id))
	if err != nil {
		r.logger.Error().Err(err).Str("order_id", id.String()).Msg("failed to query order")
		return nil, nil, fmt.Errorf("failed to query order: %w", err)
	}
	if order == nil {
		r.logger.Debug().Str("order_id", id.String()).Msg("order not found")
		return nil, nil, nil
	}

	itemsQuery := `
		SELECT id, order_id, product_id, quantity
		FROM order_items
		WHERE order_id = $1
		ORDER BY id
	`

	rows, err := r.pool.Query(ctx, itemsQuery, id)
	if err != nil {
		r.logger.Error().
			Err(err).
			Str("order_id", id.String()).
			Msg("failed to query order items")
		return nil, nil, fmt.Errorf("failed to query order items: %w", err)
	}
	defer rows.Close()

	items := []model.OrderItem{}
	for rows.Next() {
		var item model.OrderItem
		if err := rows.Scan(&item.ID, &item.OrderID, &item.ProductID, &item.Quantity); err != nil {
			r.logger.Error().Err(err).Msg("failed to scan order item row")
			return nil, nil, fmt.Errorf("failed to scan order item: %w", err)
		}
		items = append(items, item)
	}

	if err := rows.Err(); err != nil {
		return nil, nil, fmt.Errorf("error iterating order items: %w", err)
	}

	return order, items, nil
}

// GetForUpdate locks and returns the order.
func (r *orderRepository) GetForUpdate(ctx context.Context, tx pgx.Tx, id uuid.UUID) (*model.Order, error) {
	order, err := scanOrder(tx.QueryRow(ctx, orderSelect+` WHERE id = $1 FOR UPDATE`, id))
	if err != nil {
		r.logger.Error().Err(err).Str("order_id", id.String()).Msg("failed to lock order")
		return nil, fmt.Errorf("failed to lock order: %w", err)
	}
	return order, nil
}

// List returns a page of orders, restricted to userID when it is not nil.
func (r *orderRepository) List(ctx context.Context, userID *uuid.UUID, q model.ListQuery) ([]model.Order, error) {
	var (
		where []string
		args  []any
	)
	if userID != nil {
		args = append(args, *userID)
		where = append(where, "user_id = $1")
	}
	tail, args := listClause(orderColumns, q, where, args)

	rows, err := r.pool.Query(ctx, orderSelect+tail, args...)
	if err != nil {
		r.logger.Error().Err(err).Msg("failed to query orders")
		return nil, fmt.Errorf("failed to query orders: %w", err)
	}
	defer rows.Close()

	orders := []model.Order{}
	for rows.Next() {
		order, err := scanOrder(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan order: %w", err)
		}
		orders = append(orders, *order)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating orders: %w", err)
	}
	return orders, nil
}

// UpdateStatus persists the paid and delivered flags of the order.
func (r *orderRepository) UpdateStatus(ctx context.Context, tx pgx.Tx, order *model.Order) error {
	query := `
		UPDATE orders
		SET is_paid = $2, paid_at = $3, is_delivered = $4, delivered_at = $5, updated_at = $6
		WHERE id = $1
	`

	_, err := tx.Exec(ctx, query,
		order.ID,
		order.IsPaid,
		order.PaidAt,
		order.IsDelivered,
		order.DeliveredAt,
		order.UpdatedAt,
	)
	if err != nil {
		r.logger.Error().Err(err).Str("order_id", order.ID.String()).Msg("failed to update order status")
		return fmt.Errorf("failed to update order status: %w", err)
	}
	return nil
}

func (r *orderRepository) SetInvoiceID(ctx context.Context, id uuid.UUID, invoiceID string) error {
	tag, err := r.pool.Exec(ctx,
		`UPDATE orders SET invoice_id = $2, updated_at = NOW() WHERE id = $1`,
		id, invoiceID)
	if err != nil {
		r.logger.Error().Err(err).Str("order_id", id.String()).Msg("failed to store invoice id")
		return fmt.Errorf("failed to store invoice id: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return model.ErrOrderNotFound
	}
	return nil
}

// scanOrder returns nil without error when the row does not exist.
func scanOrder(row pgx.Row) (*model.Order, error) {
	var (
		o      model.Order
		method string
	)
	err := row.Scan(
		&o.ID,
		&o.UserID,
		&o.ShippingAddress,
		&method,
		&o.TotalOrderPrice,
		&o.CouponName,
		&o.IsPaid,
		&o.PaidAt,
		&o.IsDelivered,
		&o.DeliveredAt,
		&o.InvoiceID,
		&o.CreatedAt,
		&o.UpdatedAt,
	)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	o.PaymentMethodType = model.PaymentMethod(method)
	return &o, nil
}
