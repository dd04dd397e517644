package cache

import (
	"context"
	"errors"

	"shopfront/internal/model"

	"github.com/google/uuid"
)

// CartCache stores the priced view of a user's cart.
type CartCache interface {
	Get(ctx context.Context, userID uuid.UUID) (*model.CartResponse, error)
	Set(ctx context.Context, userID uuid.UUID, cart *model.CartResponse) error
	Delete(ctx context.Context, userID uuid.UUID) error
}

// ErrCacheMiss is returned by Get when no entry exists for the user.
var ErrCacheMiss = errors.New("cache miss")

// NoopCache never stores anything; every Get is a miss.
type NoopCache struct{}

func (NoopCache) Get(context.Context, uuid.UUID) (*model.CartResponse, error) {
	return nil, ErrCacheMiss
}

func (NoopCache) Set(context.Context, uuid.UUID, *model.CartResponse) error { return nil }

func (NoopCache) Delete(context.Context, uuid.UUID) error { return nil }
