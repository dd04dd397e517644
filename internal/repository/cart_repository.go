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

const cartSelect = `
	SELECT id, user_id, total_cart_price, total_price_after_discount, coupon_name, created_at, updated_at
	FROM carts
`

// cartRepository implements the CartRepository interface using PostgreSQL.
type cartRepository struct {
	pool   *pgxpool.Pool
	logger zerolog.Logger
}

// NewCartRepository creates a new PostgreSQL-backed cart repository.
func NewCartRepository(pool *pgxpool.Pool, logger zerolog.Logger) CartRepository {
	return &cartRepository{
		pool:   pool,
		logger: logger.With().Str("repository", "cart").Logger(),
	}
}

func (r *cartRepository) BeginTx(ctx context.Context) (pgx.Tx, error) {
	return beginTx(ctx, r.pool, r.logger)
}

// EnsureCart creates an empty cart for the user unless one already exists.
func (r *cartRepository) EnsureCart(ctx context.Context, tx pgx.Tx, userID uuid.UUID) error {
	query := `
		INSERT INTO carts (id, user_id, total_cart_price)
		VALUES ($1, $2, 0)
		ON CONFLICT (user_id) DO NOTHING
	`

	if _, err := tx.Exec(ctx, query, uuid.New(), userID); err != nil {
		r.logger.Error().Err(err).Str("user_id", userID.String()).Msg("failed to ensure cart")
		return fmt.Errorf("failed to ensure cart: %w", err)
	}
	return nil
}

// GetForUpdate locks and returns the user's cart.
func (r *cartRepository) GetForUpdate(ctx context.Context, tx pgx.Tx, userID uuid.UUID) (*model.Cart, error) {
	cart, err := scanCart(tx.QueryRow(ctx, cartSelect+` WHERE user_id = $1 FOR UPDATE`, userID))
	if err != nil {
		r.logger.Error().Err(err).Str("user_id", userID.String()).Msg("failed to lock cart")
		return nil, fmt.Errorf("failed to lock cart: %w", err)
	}
	return cart, nil
}

// GetByUserID returns the user's cart and items without locking.
func (r *cartRepository) GetByUserID(ctx context.Context, userID uuid.UUID) (*model.Cart, []model.CartItem, error) {
	cart, err := scanCart(r.pool.QueryRow(ctx, cartSelect+` WHERE user_id = $1`, userID))
	if err != nil {
		r.logger.Error().Err(err).Str("user_id", userID.String()).Msg("failed to query cart")
		return nil, nil, fmt.Errorf("failed to query cart: %w", err)
	}
	if cart == nil {
		return nil, nil, nil
	}

	items, err := queryItems(ctx, r.pool, cart.ID)
	if err != nil {
		r.logger.Error().Err(err).Str("cart_id", cart.ID.String()).Msg("failed to query cart items")
		return nil, nil, err
	}

	return cart, items, nil
}

func (r *cartRepository) GetItems(ctx context.Context, tx pgx.Tx, cartID uuid.UUID) ([]model.CartItem, error) {
	items, err := queryItems(ctx, tx, cartID)
	if err != nil {
		r.logger.Error().Err(err).Str("cart_id", cartID.String()).Msg("failed to query cart items")
		return nil, err
	}
	return items, nil
}

// AddItem inserts the line or increments the quantity of an existing one.
func (r *cartRepository) AddItem(ctx context.Context, tx pgx.Tx, cartID, productID uuid.UUID, quantity int) error {
	query := `
		INSERT INTO cart_items (id, cart_id, product_id, quantity)
		VALUES ($1, $2, $3, $4)
		ON CONFLICT (cart_id, product_id)
		DO UPDATE SET quantity = cart_items.quantity + EXCLUDED.quantity
	`

	if _, err := tx.Exec(ctx, query, uuid.New(), cartID, productID, quantity); err != nil {
		r.logger.Error().
			Err(err).
			Str("cart_id", cartID.String()).
			Str("product_id", productID.String()).
			Msg("failed to add cart item")
		return fmt.Errorf("failed to add cart item: %w", err)
	}
	return nil
}

// SetItemQuantity reports false when the product is not in the cart.
func (r *cartRepository) SetItemQuantity(ctx context.Context, tx pgx.Tx, cartID, productID uuid.UUID, quantity int) (bool, error) {
	tag, err := tx.Exec(ctx,
		`UPDATE cart_items SET quantity = $3 WHERE cart_id = $1 AND product_id = $2`,
		cartID, productID, quantity)
	if err != nil {
		r.logger.Error().Err(err).Str("cart_id", cartID.String()).Msg("failed to update cart item")
		return false, fmt.Errorf("failed to update cart item: %w", err)
	}
	return tag.RowsAffected() > 0, nil
}

// DeleteItem reports false when the product is not in the cart.
func (r *cartRepository) DeleteItem(ctx context.Context, tx pgx.Tx, cartID, productID uuid.UUID) (bool, error) {
	tag, err := tx.Exec(ctx, `DELETE FROM cart_items WHERE cart_id = $1 AND product_id = $2`, cartID, productID)
	if err != nil {
		r.logger.Error().Err(err).Str("cart_id", cartID.String()).Msg("failed to delete cart item")
		return false, fmt.Errorf("failed to delete cart item: %w", err)
	}
	return tag.RowsAffected() > 0, nil
}

// UpdateTotals persists the totals and coupon name of the cart.
func (r *cartRepository) UpdateTotals(ctx context.Context, tx pgx.Tx, cart *model.Cart) error {
	query := `
		UPDATE carts
		SET total_cart_price = $2,
		    total_price_after_discount = $3,
		    coupon_name = $4,
		    updated_at = $5
		WHERE id = $1
	`

	_, err := tx.Exec(ctx, query,
		cart.ID,
		cart.TotalCartPrice,
		cart.TotalPriceAfterDiscount,
		cart.CouponName,
		cart.UpdatedAt,
	)
	if err != nil {
		r.logger.Error().Err(err).Str("cart_id", cart.ID.String()).Msg("failed to update cart totals")
		return fmt.Errorf("failed to update cart totals: %w", err)
	}
	return nil
}

// Delete removes the cart and its items.
func (r *cartRepository) Delete(ctx context.Context, tx pgx.Tx, cartID uuid.UUID) error {
	if _, err := tx.Exec(ctx, `DELETE FROM carts WHERE id = $1`, cartID); err != nil {
		r.logger.Error().Err(err).Str("cart_id", cartID.String()).Msg("failed to delete cart")
		return fmt.Errorf("failed to delete cart: %w", err)
	}

	r.logger.Debug().Str("cart_id", cartID.String()).Msg("cart deleted")
	return nil
}

// scanCart returns nil without error when the row does not exist.
func scanCart(row pgx.Row) (*model.Cart, error) {
	var c model.Cart
	err := row.Scan(
		&c.ID,
		&c.UserID,
		&c.TotalCartPrice,
		&c.TotalPriceAfterDiscount,
		&c.CouponName,
		&c.CreatedAt,
		&c.UpdatedAt,
	)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &c, nil
}

type queryer interface {
	Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error)
}

func queryItems(ctx context.Context, q queryer, cartID uuid.UUID) ([]model.CartItem, error) {
	rows, err := q.Query(ctx,
		`SELECT id, cart_id, product_id, quantity FROM cart_items WHERE cart_id = $1 ORDER BY id`,
		cartID)
	if err != nil {
		return nil, fmt.Errorf("failed to query cart items: %w", err)
	}
	defer rows.Close()

	items := []model.CartItem{}
	for rows.Next() {
		var item model.CartItem
		if err := rows.Scan(&item.ID, &item.CartID, &item.ProductID, &item.Quantity); err != nil {
			return nil, fmt.Errorf("failed to scan cart item: %w", err)
		}
		items = append(items, item)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating cart items: %w", err)
	}
	return items, nil
}
