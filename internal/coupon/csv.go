package coupon

import (
	"compress/gzip"
	"context"
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"strings"

	"shopfront/internal/model"

	"github.com/rs/zerolog"
	"github.com/shopspring/decimal"
)

// checkEvery is how many rows are read between context checks.
const checkEvery = 10_000

// readCoupons decodes a gzipped CSV stream of name,expire,discount rows.
// An optional header row is skipped, as are rows that cannot be decoded.
func readCoupons(ctx context.Context, r io.Reader, source string, logger zerolog.Logger) ([]model.CouponRequest, error) {
	gzipReader, err := gzip.NewReader(r)
	if err != nil {
		return nil, fmt.Errorf("failed to create gzip reader for %s: %w", source, err)
	}
	defer gzipReader.Close()

	reader := csv.NewReader(gzipReader)
	reader.FieldsPerRecord = -1
	reader.TrimLeadingSpace = true
	reader.ReuseRecord = true

	var (
		reqs    []model.CouponRequest
		line    int
		skipped int
	)
	for {
		record, err := reader.Read()
		if errors.Is(err, io.EOF) {
			break
		}
		line++

		if line%checkEvery == 0 {
			if err := ctx.Err(); err != nil {
				logger.Warn().Str("source", source).Msg("coupon loading cancelled")
				return nil, err
			}
		}

		if err != nil {
			var parseErr *csv.ParseError
			if errors.As(err, &parseErr) {
				logger.Warn().Err(err).Str("source", source).Int("line", line).Msg("skipping unreadable row")
				skipped++
				continue
			}
			return nil, fmt.Errorf("error reading coupon file %s: %w", source, err)
		}

		if line == 1 && isHeader(record) {
			continue
		}
		if len(record) == 1 && strings.TrimSpace(record[0]) == "" {
			continue
		}

		req, err := decodeRow(record)
		if err != nil {
			logger.Warn().Err(err).Str("source", source).Int("line", line).Msg("skipping malformed row")
			skipped++
			continue
		}
		reqs = append(reqs, req)
	}

	logger.Info().
		Str("source", source).
		Int("rows", len(reqs)).
		Int("skipped", skipped).
		Msg("coupon file loaded")

	return reqs, nil
}

func isHeader(record []string) bool {
	return len(record) > 0 && strings.EqualFold(strings.TrimSpace(record[0]), "name")
}

func decodeRow(record []string) (model.CouponRequest, error) {
	if len(record) != 3 {
		return model.CouponRequest{}, fmt.Errorf("expected 3 fields, got %d", len(record))
	}

	discount, err := decimal.NewFromString(strings.TrimSpace(record[2]))
	if err != nil {
		return model.CouponRequest{}, fmt.Errorf("invalid discount %q", record[2])
	}

	return model.CouponRequest{
		Name:     strings.TrimSpace(record[0]),
		Expire:   strings.TrimSpace(record[1]),
		Discount: &discount,
	}, nil
}
