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

const couponSelect = `SELECT id, name, expire, discount, created_at, updated_at FROM coupons`

var couponColumns = listColumns{
	sortable: map[string]string{
		"name":      "name",
		"expire":    "expire",
		"discount":  "discount",
		"createdAt": "created_at",
	},
	searchable: map[string]string{
		"name": "name",
	},
	defaultSort:      "created_at DESC",
	defaultSearchCol: "name",
}

// couponRepository implements the CouponRepository interface using PostgreSQL.
type couponRepository struct {
	pool   *pgxpool.Pool
	logger zerolog.Logger
}

// NewCouponRepository creates a new PostgreSQL-backed coupon repository.
func NewCouponRepository(pool *pgxpool.Pool, logger zerolog.Logger) CouponRepository {
	return &couponRepository{
		pool:   pool,
		logger: logger.With().Str("repository", "coupon").Logger(),
	}
}

func (r *couponRepository) List(ctx context.Context, q model.ListQuery) ([]model.Coupon, error) {
	tail, args := listClause(couponColumns, q, nil, nil)

	rows, err := r.pool.Query(ctx, couponSelect+tail, args...)
	if err != nil {
		r.logger.Error().Err(err).Msg("failed to query coupons")
		return nil, fmt.Errorf("failed to query coupons: %w", err)
	}
	defer rows.Close()

	coupons := []model.Coupon{}
	for rows.Next() {
		var c model.Coupon
		if err := rows.Scan(&c.ID, &c.Name, &c.Expire, &c.Discount, &c.CreatedAt, &c.UpdatedAt); err != nil {
			return nil, fmt.Errorf("failed to scan coupon: %w", err)
		}
		coupons = append(coupons, c)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating coupons: %w", err)
	}
	return coupons, nil
}

func (r *couponRepository) GetByID(ctx context.Context, id uuid.UUID) (*model.Coupon, error) {
	return r.getOne(ctx, couponSelect+` WHERE id = $1`, id)
}

func (r *couponRepository) GetByName(ctx context.Context, name string) (*model.Coupon, error) {
	return r.getOne(ctx, couponSelect+` WHERE name = $1`, name)
}

func (r *couponRepository) getOne(ctx context.Context, query string, arg any) (*model.Coupon, error) {
	var c model.Coupon
	err := r.pool.QueryRow(ctx, query, arg).Scan(&c.ID, &c.Name, &c.Expire, &c.Discount, &c.CreatedAt, &c.UpdatedAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, nil
		}
		r.logger.Error().Err(err).Interface("key", arg).Msg("failed to query coupon")
		return nil, fmt.Errorf("failed to query coupon: %w", err)
	}
	return &c, nil
}

// Create inserts a coupon, returning ErrCouponExists when the name is taken.
func (r *couponRepository) Create(ctx context.Context, c *model.Coupon) error {
	query := `
		INSERT INTO coupons (id, name, expire, discount, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6)
	`

	_, err := r.pool.Exec(ctx, query, c.ID, c.Name, c.Expire, c.Discount, c.CreatedAt, c.UpdatedAt)
	if err != nil {
		if isUniqueViolation(err) {
			return model.ErrCouponExists
		}
		r.logger.Error().Err(err).Str("coupon", c.Name).Msg("failed to create coupon")
		return fmt.Errorf("failed to create coupon: %w", err)
	}
	return nil
}

// Update replaces the coupon's fields, returning ErrCouponNotFound when it does not exist.
func (r *couponRepository) Update(ctx context.Context, c *model.Coupon) error {
	query := `
		UPDATE coupons
		SET name = $2, expire = $3, discount = $4, updated_at = $5
		WHERE id = $1
	`

	tag, err := r.pool.Exec(ctx, query, c.ID, c.Name, c.Expire, c.Discount, c.UpdatedAt)
	if err != nil {
		if isUniqueViolation(err) {
			return model.ErrCouponExists
		}
		r.logger.Error().Err(err).Str("coupon_id", c.ID.String()).Msg("failed to update coupon")
		return fmt.Errorf("failed to update coupon: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return model.ErrCouponNotFound
	}
	return nil
}

func (r *couponRepository) Delete(ctx context.Context, id uuid.UUID) error {
	tag, err := r.pool.Exec(ctx, `DELETE FROM coupons WHERE id = $1`, id)
	if err != nil {
		r.logger.Error().Err(err).Str("coupon_id", id.String()).Msg("failed to delete coupon")
		return fmt.Errorf("failed to delete coupon: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return model.ErrCouponNotFound
	}
	return nil
}

// Upsert inserts the coupons in one batch, updating expire and discount of existing names.
func (r *couponRepository) Upsert(ctx context.Context, coupons []model.Coupon) error {
	if len(coupons) == 0 {
		return nil
	}

	query := `
		INSERT INTO coupons (id, name, expire, discount, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $5)
		ON CONFLICT (name)
		DO UPDATE SET expire = EXCLUDED.expire, discount = EXCLUDED.discount, updated_at = EXCLUDED.updated_at
	`

	batch := &pgx.Batch{}
	for _, c := range coupons {
		batch.Queue(query, c.ID, c.Name, c.Expire, c.Discount, c.UpdatedAt)
	}

	results := r.pool.SendBatch(ctx, batch)
	defer results.Close()

	for i := range coupons {
		if _, err := results.Exec(); err != nil {
			r.logger.Error().Err(err).Str("coupon", coupons[i].Name).Msg("failed to upsert coupon")
			return fmt.Errorf("failed to upsert coupon %q: %w", coupons[i].Name, err)
		}
	}

	r.logger.Debug().Int("count", len(coupons)).Msg("coupons upserted")
	return nil
}
