package repository

import (
	"context"
	"fmt"

	"shopfront/internal/model"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/rs/zerolog"
)

// outboxRepository implements the OutboxRepository interface using PostgreSQL.
type outboxRepository struct {
	pool   *pgxpool.Pool
	logger zerolog.Logger
}

// NewOutboxRepository creates a new PostgreSQL-backed outbox repository.
func NewOutboxRepository(pool *pgxpool.Pool, logger zerolog.Logger) OutboxRepository {
	return &outboxRepository{
		pool:   pool,
		logger: logger.With().Str("repository", "outbox").Logger(),
	}
}

func (r *outboxRepository) BeginTx(ctx context.Context) (pgx.Tx, error) {
	return beginTx(ctx, r.pool, r.logger)
}

// Append writes the event in the caller's transaction.
func (r *outboxRepository) Append(ctx context.Context, tx pgx.Tx, event *model.OrderEvent) error {
	query := `
		INSERT INTO order_events (id, order_id, type, payload, created_at)
		VALUES ($1, $2, $3, $4, $5)
	`

	_, err := tx.Exec(ctx, query, event.ID, event.OrderID, event.Type, event.Payload, event.CreatedAt)
	if err != nil {
		r.logger.Error().
			Err(err).
			Str("order_id", event.OrderID.String()).
			Str("type", event.Type).
			Msg("failed to append order event")
		return fmt.Errorf("failed to append order event: %w", err)
	}
	return nil
}

// FetchUnpublished locks up to limit unpublished events, skipping rows held by another poller.
func (r *outboxRepository) FetchUnpublished(ctx context.Context, tx pgx.Tx, limit int) ([]model.OrderEvent, error) {
	query := `
		SELECT id, order_id, type, payload, created_at
		FROM order_events
		WHERE published_at IS NULL
		ORDER BY created_at
		LIMIT $1
		FOR UPDATE SKIP LOCKED
	`

	rows, err := tx.Query(ctx, query, limit)
	if err != nil {
		return nil, fmt.Errorf("failed to query order events: %w", err)
	}
	defer rows.Close()

	var events []model.OrderEvent
	for rows.Next() {
		var e model.OrderEvent
		if err := rows.Scan(&e.ID, &e.OrderID, &e.Type, &e.Payload, &e.CreatedAt); err != nil {
			return nil, fmt.Errorf("failed to scan order event: %w", err)
		}
		events = append(events, e)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating order events: %w", err)
	}
	return events, nil
}

func (r *outboxRepository) MarkPublished(ctx context.Context, tx pgx.Tx, ids []uuid.UUID) error {
	if len(ids) == 0 {
		return nil
	}

	if _, err := tx.Exec(ctx, `UPDATE order_events SET published_at = NOW() WHERE id = ANY($1)`, ids); err != nil {
		r.logger.Error().Err(err).Int("count", len(ids)).Msg("failed to mark order events published")
		return fmt.Errorf("failed to mark order events published: %w", err)
	}
	return nil
}
