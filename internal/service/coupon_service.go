package service

import (
	"context"
	"fmt"
	"strings"
	"time"

	"shopfront/internal/cache"
	"shopfront/internal/model"
	"shopfront/internal/repository"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
	"github.com/shopspring/decimal"
)

const minCouponNameLength = 3

// couponService implements CouponService.
type couponService struct {
	couponRepo repository.CouponRepository
	cartRepo   repository.CartRepository
	pricing    PriceResolver
	cache      cache.CartCache
	logger     zerolog.Logger
}

// NewCouponService creates a new coupon service.
func NewCouponService(
	couponRepo repository.CouponRepository,
	cartRepo repository.CartRepository,
	pricing PriceResolver,
	cartCache cache.CartCache,
	logger zerolog.Logger,
) CouponService {
	return &couponService{
		couponRepo: couponRepo,
		cartRepo:   cartRepo,
		pricing:    pricing,
		cache:      cartCache,
		logger:     logger.With().Str("service", "coupon").Logger(),
	}
}

func (s *couponService) List(ctx context.Context, q model.ListQuery) ([]model.Coupon, error) {
	coupons, err := s.couponRepo.List(ctx, q.Normalise())
	if err != nil {
		return nil, fmt.Errorf("failed to list coupons: %w", err)
	}
	return coupons, nil
}

func (s *couponService) Get(ctx context.Context, id uuid.UUID) (*model.Coupon, error) {
	coupon, err := s.couponRepo.GetByID(ctx, id)
	if err != nil {
		return nil, fmt.Errorf("failed to get coupon: %w", err)
	}
	if coupon == nil {
		return nil, model.ErrCouponNotFound
	}
	return coupon, nil
}

// Create stores a new coupon. Expired coupons are accepted; expiry is checked when applied.
func (s *couponService) Create(ctx context.Context, req *model.CouponRequest) (*model.Coupon, error) {
	coupon, err := couponFromRequest(req)
	if err != nil {
		return nil, err
	}

	now := time.Now().UTC()
	coupon.ID = uuid.New()
	coupon.CreatedAt = now
	coupon.UpdatedAt = now

	if err := s.couponRepo.Create(ctx, coupon); err != nil {
		return nil, err
	}

	s.logger.Info().Str("coupon", coupon.Name).Str("discount", coupon.Discount.String()).Msg("coupon created")
	return coupon, nil
}

func (s *couponService) Update(ctx context.Context, id uuid.UUID, req *model.CouponRequest) (*model.Coupon, error) {
	existing, err := s.Get(ctx, id)
	if err != nil {
		return nil, err
	}

	coupon, err := couponFromRequest(req)
	if err != nil {
		return nil, err
	}
	coupon.ID = existing.ID
	coupon.CreatedAt = existing.CreatedAt
	coupon.UpdatedAt = time.Now().UTC()

	if err := s.couponRepo.Update(ctx, coupon); err != nil {
		return nil, err
	}
	return coupon, nil
}

func (s *couponService) Delete(ctx context.Context, id uuid.UUID) error {
	if err := s.couponRepo.Delete(ctx, id); err != nil {
		return err
	}
	s.logger.Info().Str("coupon_id", id.String()).Msg("coupon deleted")
	return nil
}

// Apply discounts the user's cart with the named coupon.
func (s *couponService) Apply(ctx context.Context, userID uuid.UUID, couponName string) (resp *model.CartResponse, err error) {
	couponName = strings.TrimSpace(couponName)
	if couponName == "" {
		return nil, model.NewValidationError("coupon is required")
	}

	coupon, err := s.couponRepo.GetByName(ctx, couponName)
	if err != nil {
		return nil, fmt.Errorf("failed to get coupon: %w", err)
	}
	if coupon == nil {
		return nil, model.ErrCouponNotFound
	}
	if coupon.IsExpired(time.Now()) {
		s.logger.Debug().Str("coupon", coupon.Name).Time("expire", coupon.Expire).Msg("expired coupon rejected")
		return nil, model.ErrCouponExpired
	}

	tx, err := s.cartRepo.BeginTx(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to apply coupon: %w", err)
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
		return nil, err
	}
	if cart == nil {
		return nil, model.ErrCartNotFound
	}
	if cart.HasDiscount() {
		return nil, model.ErrDiscountApplied
	}

	items, err := s.cartRepo.GetItems(ctx, tx, cart.ID)
	if err != nil {
		return nil, err
	}
	total, err := resolveTotal(ctx, s.pricing, tx, items)
	if err != nil {
		return nil, err
	}

	name := coupon.Name
	cart.TotalCartPrice = total
	cart.TotalPriceAfterDiscount = decimal.NewNullDecimal(discountedTotal(total, coupon.Discount))
	cart.CouponName = &name
	cart.UpdatedAt = time.Now().UTC()

	if err = s.cartRepo.UpdateTotals(ctx, tx, cart); err != nil {
		return nil, err
	}
	if err = tx.Commit(ctx); err != nil {
		return nil, fmt.Errorf("failed to apply coupon: %w", err)
	}

	if err := s.cache.Delete(ctx, userID); err != nil {
		s.logger.Warn().Err(err).Str("user_id", userID.String()).Msg("cart cache invalidation failed")
	}

	s.logger.Info().
		Str("cart_id", cart.ID.String()).
		Str("coupon", coupon.Name).
		Str("total", cart.TotalCartPrice.String()).
		Str("after_discount", cart.TotalPriceAfterDiscount.Decimal.String()).
		Msg("coupon applied")

	return model.NewCartResponse(cart, items), nil
}

// Import validates each request and upserts the valid ones in one batch.
func (s *couponService) Import(ctx context.Context, reqs []model.CouponRequest) (int, error) {
	now := time.Now().UTC()
	coupons := make([]model.Coupon, 0, len(reqs))
	seen := make(map[string]int, len(reqs))

	for i := range reqs {
		coupon, err := couponFromRequest(&reqs[i])
		if err != nil {
			s.logger.Warn().Err(err).Int("row", i+1).Str("coupon", reqs[i].Name).Msg("skipping invalid coupon")
			continue
		}
		coupon.ID = uuid.New()
		coupon.CreatedAt = now
		coupon.UpdatedAt = now

		// Later rows win when a name repeats.
		if idx, ok := seen[coupon.Name]; ok {
			coupons[idx] = *coupon
			continue
		}
		seen[coupon.Name] = len(coupons)
		coupons = append(coupons, *coupon)
	}

	if err := s.couponRepo.Upsert(ctx, coupons); err != nil {
		return 0, fmt.Errorf("failed to import coupons: %w", err)
	}

	s.logger.Info().Int("rows", len(reqs)).Int("imported", len(coupons)).Msg("coupons imported")
	return len(coupons), nil
}

// couponFromRequest validates the request and converts it to a coupon without identity.
func couponFromRequest(req *model.CouponRequest) (*model.Coupon, error) {
	if req == nil {
		return nil, model.NewValidationError("request body is required")
	}

	name := strings.TrimSpace(req.Name)
	if name == "" {
		return nil, model.NewValidationError("name required")
	}
	if len([]rune(name)) < minCouponNameLength {
		return nil, model.NewValidationError("name length is too short")
	}

	if strings.TrimSpace(req.Expire) == "" {
		return nil, model.NewValidationError("expire is required")
	}
	expire, err := parseExpire(req.Expire)
	if err != nil {
		return nil, model.NewValidationError("this date format is not supported")
	}

	if req.Discount == nil {
		return nil, model.NewValidationError("discount is required")
	}
	if req.Discount.IsNegative() || req.Discount.GreaterThan(hundred) {
		return nil, model.NewValidationError("discount must be between 0 and 100")
	}

	return &model.Coupon{
		Name:     name,
		Expire:   expire,
		Discount: req.Discount.Round(2),
	}, nil
}

// parseExpire accepts RFC 3339 timestamps or plain dates, which expire at the end of that day UTC.
func parseExpire(s string) (time.Time, error) {
	s = strings.TrimSpace(s)
	if t, err := time.Parse(time.RFC3339, s); err == nil {
		return t.UTC(), nil
	}
	d, err := time.Parse(time.DateOnly, s)
	if err != nil {
		return time.Time{}, err
	}
	return d.Add(24*time.Hour - time.Second).UTC(), nil
}
