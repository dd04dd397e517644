package service

import (
	"context"
	"errors"
	"fmt"
	"time"

	"shopfront/internal/cache"
	"shopfront/internal/model"
	"shopfront/internal/repository"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/rs/zerolog"
	"golang.org/x/sync/singleflight"
)

var errQuantityLimit = model.NewValidationError(fmt.Sprintf("quantity must not exceed %d", model.MaxItemQuantity))

// cartService implements CartService.
type cartService struct {
	cartRepo repository.CartRepository
	pricing  PriceResolver
	cache    cache.CartCache
	group    singleflight.Group
	logger   zerolog.Logger
}

// NewCartService creates a new cart service.
func NewCartService(
	cartRepo repository.CartRepository,
	pricing PriceResolver,
	cartCache cache.CartCache,
	logger zerolog.Logger,
) CartService {
	return &cartService{
		cartRepo: cartRepo,
		pricing:  pricing,
		cache:    cartCache,
		logger:   logger.With().Str("service", "cart").Logger(),
	}
}

// GetCart returns the user's cart, served from the cache when possible.
func (s *cartService) GetCart(ctx context.Context, userID uuid.UUID) (*model.CartResponse, error) {
	cached, err := s.cache.Get(ctx, userID)
	if err == nil {
		return cached, nil
	}
	if !errors.Is(err, cache.ErrCacheMiss) {
		s.logger.Warn().Err(err).Str("user_id", userID.String()).Msg("cart cache read failed")
	}

	// The flight is shared, so one caller's cancellation must not fail the others.
	v, err, _ := s.group.Do(userID.String(), func() (any, error) {
		return s.loadCart(context.WithoutCancel(ctx), userID)
	})
	if err != nil {
		return nil, err
	}
	return v.(*model.CartResponse), nil
}

func (s *cartService) loadCart(ctx context.Context, userID uuid.UUID) (*model.CartResponse, error) {
	cart, items, err := s.cartRepo.GetByUserID(ctx, userID)
	if err != nil {
		return nil, fmt.Errorf("failed to get cart: %w", err)
	}
	if cart == nil {
		return nil, model.ErrCartNotFound
	}

	// Totals are the ones stored by the last write; items only show current prices.
	if len(items) > 0 {
		prices, err := s.pricing.UnitPrices(ctx, productIDs(items))
		if err != nil {
			return nil, err
		}
		if err := stampPrices(items, prices); err != nil {
			return nil, err
		}
	}

	resp := model.NewCartResponse(cart, items)
	if err := s.cache.Set(ctx, userID, resp); err != nil {
		s.logger.Warn().Err(err).Str("user_id", userID.String()).Msg("cart cache write failed")
	}
	return resp, nil
}

// AddItem adds quantity of the product, creating the cart on first use.
func (s *cartService) AddItem(ctx context.Context, userID, productID uuid.UUID, quantity int) (*model.CartResponse, error) {
	if quantity < 1 {
		return nil, model.NewValidationError("quantity must be at least 1")
	}
	if quantity > model.MaxItemQuantity {
		return nil, errQuantityLimit
	}

	// Fail before opening a transaction when the product does not exist.
	if _, err := s.pricing.UnitPrice(ctx, productID); err != nil {
		return nil, err
	}

	return s.mutate(ctx, userID, cartMutation{
		createCart: true,
		apply: func(ctx context.Context, tx pgx.Tx, cart *model.Cart) error {
			return s.cartRepo.AddItem(ctx, tx, cart.ID, productID, quantity)
		},
	})
}

// SetQuantity replaces the quantity of a cart line; quantity <= 0 removes it.
func (s *cartService) SetQuantity(ctx context.Context, userID, productID uuid.UUID, quantity int) (*model.CartResponse, error) {
	if quantity <= 0 {
		return s.RemoveItem(ctx, userID, productID)
	}
	if quantity > model.MaxItemQuantity {
		return nil, errQuantityLimit
	}

	return s.mutate(ctx, userID, cartMutation{
		apply: func(ctx context.Context, tx pgx.Tx, cart *model.Cart) error {
			found, err := s.cartRepo.SetItemQuantity(ctx, tx, cart.ID, productID, quantity)
			if err != nil {
				return err
			}
			if !found {
				return model.ErrCartItemNotFound
			}
			return nil
		},
	})
}

// RemoveItem deletes a cart line, deleting the cart when nothing of value remains.
func (s *cartService) RemoveItem(ctx context.Context, userID, productID uuid.UUID) (*model.CartResponse, error) {
	return s.mutate(ctx, userID, cartMutation{
		deleteWhenEmpty: true,
		apply: func(ctx context.Context, tx pgx.Tx, cart *model.Cart) error {
			found, err := s.cartRepo.DeleteItem(ctx, tx, cart.ID, productID)
			if err != nil {
				return err
			}
			if !found {
				return model.ErrCartItemNotFound
			}
			return nil
		},
	})
}

// Clear deletes the user's cart. Clearing a missing cart succeeds.
func (s *cartService) Clear(ctx context.Context, userID uuid.UUID) (err error) {
	tx, err := s.cartRepo.BeginTx(ctx)
	if err != nil {
		return fmt.Errorf("failed to clear cart: %w", err)
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
		return err
	}
	if cart != nil {
		if err = s.cartRepo.Delete(ctx, tx, cart.ID); err != nil {
			return err
		}
	}

	if err = tx.Commit(ctx); err != nil {
		return fmt.Errorf("failed to clear cart: %w", err)
	}

	s.invalidate(ctx, userID)
	s.logger.Info().Str("user_id", userID.String()).Bool("existed", cart != nil).Msg("cart cleared")
	return nil
}

type cartMutation struct {
	createCart      bool
	deleteWhenEmpty bool
	apply           func(ctx context.Context, tx pgx.Tx, cart *model.Cart) error
}

// mutate runs m against the locked cart, reprices it and drops any discount, all in one transaction.
func (s *cartService) mutate(ctx context.Context, userID uuid.UUID, m cartMutation) (resp *model.CartResponse, err error) {
	tx, err := s.cartRepo.BeginTx(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to update cart: %w", err)
	}
	defer func() {
		if err != nil {
			if rbErr := tx.Rollback(ctx); rbErr != nil {
				s.logger.Error().Err(rbErr).Msg("failed to rollback transaction")
			}
		}
	}()

	if m.createCart {
		if err = s.cartRepo.EnsureCart(ctx, tx, userID); err != nil {
			return nil, err
		}
	}

	cart, err := s.cartRepo.GetForUpdate(ctx, tx, userID)
	if err != nil {
		return nil, err
	}
	if cart == nil {
		return nil, model.ErrCartNotFound
	}

	if err = m.apply(ctx, tx, cart); err != nil {
		return nil, err
	}

	items, err := s.cartRepo.GetItems(ctx, tx, cart.ID)
	if err != nil {
		return nil, err
	}

	for _, item := range items {
		if item.Quantity > model.MaxItemQuantity {
			return nil, errQuantityLimit
		}
	}

	total, err := resolveTotal(ctx, s.pricing, tx, items)
	if err != nil {
		return nil, err
	}

	if m.deleteWhenEmpty && (len(items) == 0 || total.IsZero()) {
		if err = s.cartRepo.Delete(ctx, tx, cart.ID); err != nil {
			return nil, err
		}
		if err = tx.Commit(ctx); err != nil {
			return nil, fmt.Errorf("failed to update cart: %w", err)
		}
		s.invalidate(ctx, userID)
		s.logger.Info().Str("cart_id", cart.ID.String()).Msg("cart emptied and deleted")
		return nil, nil
	}

	cart.TotalCartPrice = total
	cart.ClearDiscount()
	cart.UpdatedAt = time.Now().UTC()

	if err = s.cartRepo.UpdateTotals(ctx, tx, cart); err != nil {
		return nil, err
	}

	if err = tx.Commit(ctx); err != nil {
		return nil, fmt.Errorf("failed to update cart: %w", err)
	}

	s.invalidate(ctx, userID)
	s.logger.Debug().
		Str("cart_id", cart.ID.String()).
		Str("total", total.String()).
		Int("items", len(items)).
		Msg("cart updated")

	return model.NewCartResponse(cart, items), nil
}

func (s *cartService) invalidate(ctx context.Context, userID uuid.UUID) {
	if err := s.cache.Delete(ctx, userID); err != nil {
		s.logger.Warn().Err(err).Str("user_id", userID.String()).Msg("cart cache invalidation failed")
	}
}
