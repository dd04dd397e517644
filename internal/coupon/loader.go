package coupon

import (
	"context"
	"fmt"
	"os"

	"shopfront/internal/model"

	"github.com/rs/zerolog"
)

// fileLoader implements Loader for gzipped coupon files on the local file system.
type fileLoader struct {
	logger zerolog.Logger
}

// NewFileLoader creates a new file-based coupon loader.
func NewFileLoader(logger zerolog.Logger) Loader {
	return &fileLoader{
		logger: logger.With().Str("component", "coupon-loader").Logger(),
	}
}

func (l *fileLoader) Load(ctx context.Context, path string) ([]model.CouponRequest, error) {
	l.logger.Info().Str("file", path).Msg("loading coupon file")

	file, err := os.Open(path)
	if err != nil {
		l.logger.Error().Err(err).Str("file", path).Msg("failed to open coupon file")
		return nil, fmt.Errorf("failed to open coupon file %s: %w", path, err)
	}
	defer file.Close()

	return readCoupons(ctx, file, path, l.logger)
}
