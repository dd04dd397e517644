package coupon

import (
	"context"
	"fmt"

	"shopfront/internal/model"

	"github.com/rs/zerolog"
)

// Loader reads a gzipped coupon CSV file into coupon requests.
type Loader interface {
	// Load returns the rows of the file at path. Malformed rows are skipped.
	Load(ctx context.Context, path string) ([]model.CouponRequest, error)
}

// Store persists imported coupons. service.CouponService satisfies it.
type Store interface {
	Import(ctx context.Context, reqs []model.CouponRequest) (int, error)
}

// Importer loads coupon files and upserts their rows.
type Importer struct {
	loader Loader
	store  Store
	logger zerolog.Logger
}

// NewImporter creates a new coupon importer.
func NewImporter(loader Loader, store Store, logger zerolog.Logger) *Importer {
	return &Importer{
		loader: loader,
		store:  store,
		logger: logger.With().Str("component", "coupon-importer").Logger(),
	}
}

// ImportFiles loads every file and stores their rows in one batch.
// A name repeated across files keeps the row from the last file.
func (i *Importer) ImportFiles(ctx context.Context, paths []string) (int, error) {
	if len(paths) == 0 {
		return 0, nil
	}

	var rows []model.CouponRequest
	for _, path := range paths {
		reqs, err := i.loader.Load(ctx, path)
		if err != nil {
			return 0, fmt.Errorf("failed to load coupon file %s: %w", path, err)
		}
		rows = append(rows, reqs...)
	}

	n, err := i.store.Import(ctx, rows)
	if err != nil {
		return 0, err
	}

	i.logger.Info().Int("files", len(paths)).Int("rows", len(rows)).Int("imported", n).Msg("coupon import finished")
	return n, nil
}
