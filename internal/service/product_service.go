package service

import (
	"context"
	"fmt"
	"strings"
	"time"

	"shopfront/internal/model"
	"shopfront/internal/repository"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/rs/zerolog"
	"github.com/shopspring/decimal"
)

// productService implements ProductService.
type productService struct {
	productRepo repository.ProductRepository
	logger      zerolog.Logger
}

// NewProductService creates a new product service.
func NewProductService(productRepo repository.ProductRepository, logger zerolog.Logger) ProductService {
	return &productService{
		productRepo: productRepo,
		logger:      logger.With().Str("service", "product").Logger(),
	}
}

// List retrieves a page of products.
func (s *productService) List(ctx context.Context, q model.ListQuery) ([]model.Product, error) {
	products, err := s.productRepo.List(ctx, q.Normalise())
	if err != nil {
		s.logger.Error().Err(err).Msg("failed to list products")
		return nil, fmt.Errorf("failed to get products: %w", err)
	}

	s.logger.Debug().Int("count", len(products)).Msg("retrieved products")
	return products, nil
}

// GetByID retrieves a single product by ID.
func (s *productService) GetByID(ctx context.Context, id uuid.UUID) (*model.Product, error) {
	product, err := s.productRepo.GetByID(ctx, id)
	if err != nil {
		s.logger.Error().Err(err).Str("product_id", id.String()).Msg("failed to get product by ID")
		return nil, fmt.Errorf("failed to get product: %w", err)
	}

	if product == nil {
		s.logger.Debug().Str("product_id", id.String()).Msg("product not found")
		return nil, model.ErrProductNotFound
	}

	return product, nil
}

// Create adds a product to the catalogue.
func (s *productService) Create(ctx context.Context, req *model.ProductRequest) (*model.Product, error) {
	name := strings.TrimSpace(req.Name)
	if name == "" {
		return nil, model.NewValidationError("product name is required")
	}
	if req.Price == nil {
		return nil, model.NewValidationError("product price is required")
	}
	if req.Price.IsNegative() {
		return nil, model.NewValidationError("product price must not be negative")
	}

	product := &model.Product{
		ID:        uuid.New(),
		Name:      name,
		Price:     req.Price.Round(2),
		Category:  strings.TrimSpace(req.Category),
		CreatedAt: time.Now().UTC(),
	}

	if err := s.productRepo.Create(ctx, product); err != nil {
		return nil, fmt.Errorf("failed to create product: %w", err)
	}

	s.logger.Info().Str("product_id", product.ID.String()).Str("name", product.Name).Msg("product created")
	return product, nil
}

// UnitPrice returns the current price of the product.
func (s *productService) UnitPrice(ctx context.Context, productID uuid.UUID) (decimal.Decimal, error) {
	product, err := s.GetByID(ctx, productID)
	if err != nil {
		return decimal.Zero, err
	}
	return product.Price, nil
}

// UnitPrices returns the current price of every product.
func (s *productService) UnitPrices(ctx context.Context, productIDs []uuid.UUID) (map[uuid.UUID]decimal.Decimal, error) {
	prices, err := s.productRepo.GetPrices(ctx, productIDs)
	return s.checkPrices(productIDs, prices, err)
}

// UnitPricesTx returns the current price of every product as seen by tx.
func (s *productService) UnitPricesTx(ctx context.Context, tx pgx.Tx, productIDs []uuid.UUID) (map[uuid.UUID]decimal.Decimal, error) {
	prices, err := s.productRepo.GetPricesTx(ctx, tx, productIDs)
	return s.checkPrices(productIDs, prices, err)
}

func (s *productService) checkPrices(productIDs []uuid.UUID, prices map[uuid.UUID]decimal.Decimal, err error) (map[uuid.UUID]decimal.Decimal, error) {
	if err != nil {
		s.logger.Error().Err(err).Int("count", len(productIDs)).Msg("failed to resolve prices")
		return nil, fmt.Errorf("failed to resolve prices: %w", err)
	}

	for _, id := range productIDs {
		if _, ok := prices[id]; !ok {
			s.logger.Warn().Str("product_id", id.String()).Msg("price requested for unknown product")
			return nil, model.ErrProductNotFound
		}
	}

	return prices, nil
}
