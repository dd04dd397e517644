package events

import (
	"context"
	"fmt"
	"time"

	"shopfront/internal/repository"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
)

const defaultBatchSize = 100

// OutboxPoller moves committed order events from the outbox table to a Publisher.
type OutboxPoller struct {
	repo      repository.OutboxRepository
	publisher Publisher
	interval  time.Duration
	batchSize int
	logger    zerolog.Logger
}

// NewOutboxPoller creates a poller that drains the outbox every interval.
func NewOutboxPoller(repo repository.OutboxRepository, publisher Publisher, interval time.Duration, logger zerolog.Logger) *OutboxPoller {
	return &OutboxPoller{
		repo:      repo,
		publisher: publisher,
		interval:  interval,
		batchSize: defaultBatchSize,
		logger:    logger.With().Str("component", "outbox-poller").Logger(),
	}
}

// Run polls until ctx is cancelled.
func (p *OutboxPoller) Run(ctx context.Context) {
	ticker := time.NewTicker(p.interval)
	defer ticker.Stop()

	p.logger.Info().Dur("interval", p.interval).Msg("outbox poller started")

	for {
		select {
		case <-ctx.Done():
			p.logger.Info().Msg("outbox poller stopped")
			return
		case <-ticker.C:
			// Drain backlog before waiting for the next tick.
			for {
				n, err := p.ProcessOnce(ctx)
				if err != nil {
					p.logger.Error().Err(err).Msg("failed to process outbox")
					break
				}
				if n < p.batchSize {
					break
				}
			}
		}
	}
}

// ProcessOnce publishes one batch of events and marks them published.
// Events stay in the outbox when publishing fails.
func (p *OutboxPoller) ProcessOnce(ctx context.Context) (n int, err error) {
	tx, err := p.repo.BeginTx(ctx)
	if err != nil {
		return 0, err
	}
	defer func() {
		if err != nil {
			if rbErr := tx.Rollback(ctx); rbErr != nil {
				p.logger.Error().Err(rbErr).Msg("failed to rollback transaction")
			}
		}
	}()

	events, err := p.repo.FetchUnpublished(ctx, tx, p.batchSize)
	if err != nil {
		return 0, err
	}
	if len(events) == 0 {
		return 0, tx.Commit(ctx)
	}

	if err = p.publisher.Publish(ctx, events); err != nil {
		return 0, fmt.Errorf("failed to publish order events: %w", err)
	}

	ids := make([]uuid.UUID, len(events))
	for i, e := range events {
		ids[i] = e.ID
	}
	if err = p.repo.MarkPublished(ctx, tx, ids); err != nil {
		return 0, err
	}

	if err = tx.Commit(ctx); err != nil {
		return 0, fmt.Errorf("failed to commit outbox batch: %w", err)
	}

	p.logger.Debug().Int("count", len(events)).Msg("order events published")
	return len(events), nil
}
