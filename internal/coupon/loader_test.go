package coupon

import (
	"bytes"
	"compress/gzip"
	"context"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/rs/zerolog"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// gzipLines returns the gzipped form of the given CSV lines.
func gzipLines(t *testing.T, lines []string) []byte {
	t.Helper()

	var buf bytes.Buffer
	gzipWriter := gzip.NewWriter(&buf)
	_, err := gzipWriter.Write([]byte(strings.Join(lines, "\n") + "\n"))
	require.NoError(t, err)
	require.NoError(t, gzipWriter.Close())

	return buf.Bytes()
}

// createTestCouponFile writes a gzipped coupon CSV file into a temp dir.
func createTestCouponFile(t *testing.T, filename string, lines []string) string {
	t.Helper()

	filePath := filepath.Join(t.TempDir(), filename)
	require.NoError(t, os.WriteFile(filePath, gzipLines(t, lines), 0o600))

	return filePath
}

func TestFileLoader_Load_Success(t *testing.T) {
	loader := NewFileLoader(zerolog.Nop())

	filePath := createTestCouponFile(t, "coupons.csv.gz", []string{
		"name,expire,discount",
		"SAVE10,2030-12-31,10",
		"HALFOFF, 2030-06-30T12:00:00Z, 50",
	})

	reqs, err := loader.Load(context.Background(), filePath)

	require.NoError(t, err)
	require.Len(t, reqs, 2)

	assert.Equal(t, "SAVE10", reqs[0].Name)
	assert.Equal(t, "2030-12-31", reqs[0].Expire)
	require.NotNil(t, reqs[0].Discount)
	assert.True(t, decimal.NewFromInt(10).Equal(*reqs[0].Discount))

	assert.Equal(t, "HALFOFF", reqs[1].Name)
	assert.Equal(t, "2030-06-30T12:00:00Z", reqs[1].Expire)
	assert.True(t, decimal.NewFromInt(50).Equal(*reqs[1].Discount))
}

func TestFileLoader_Load_WithoutHeader(t *testing.T) {
	loader := NewFileLoader(zerolog.Nop())

	filePath := createTestCouponFile(t, "coupons.csv.gz", []string{
		"SAVE10,2030-12-31,10",
		"SAVE15,2030-12-31,15.5",
	})

	reqs, err := loader.Load(context.Background(), filePath)

	require.NoError(t, err)
	require.Len(t, reqs, 2)
	assert.True(t, decimal.RequireFromString("15.5").Equal(*reqs[1].Discount))
}

func TestFileLoader_Load_SkipsMalformedRows(t *testing.T) {
	loader := NewFileLoader(zerolog.Nop())

	filePath := createTestCouponFile(t, "coupons.csv.gz", []string{
		"name,expire,discount",
		"SAVE10,2030-12-31,10",
		"",
		"MISSINGFIELD,2030-12-31",
		"BADDISCOUNT,2030-12-31,ten",
		"TOO,MANY,FIELDS,HERE",
		"SAVE20,2030-12-31,20",
	})

	reqs, err := loader.Load(context.Background(), filePath)

	require.NoError(t, err)
	require.Len(t, reqs, 2)
	assert.Equal(t, "SAVE10", reqs[0].Name)
	assert.Equal(t, "SAVE20", reqs[1].Name)
}

func TestFileLoader_Load_EmptyFile(t *testing.T) {
	loader := NewFileLoader(zerolog.Nop())

	filePath := createTestCouponFile(t, "empty.csv.gz", nil)

	reqs, err := loader.Load(context.Background(), filePath)

	require.NoError(t, err)
	assert.Empty(t, reqs)
}

func TestFileLoader_Load_FileNotFound(t *testing.T) {
	loader := NewFileLoader(zerolog.Nop())

	reqs, err := loader.Load(context.Background(), "/nonexistent/coupons.csv.gz")

	require.Error(t, err)
	assert.Nil(t, reqs)
	assert.Contains(t, err.Error(), "failed to open coupon file")
}

func TestFileLoader_Load_NotGzipped(t *testing.T) {
	loader := NewFileLoader(zerolog.Nop())

	filePath := filepath.Join(t.TempDir(), "plain.csv")
	require.NoError(t, os.WriteFile(filePath, []byte("SAVE10,2030-12-31,10\n"), 0o600))

	reqs, err := loader.Load(context.Background(), filePath)

	require.Error(t, err)
	assert.Nil(t, reqs)
	assert.Contains(t, err.Error(), "gzip reader")
}

func TestFileLoader_Load_ContextCancelled(t *testing.T) {
	loader := NewFileLoader(zerolog.Nop())

	lines := make([]string, checkEvery+10)
	for i := range lines {
		lines[i] = "CODE,2030-12-31,5"
	}
	filePath := createTestCouponFile(t, "large.csv.gz", lines)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	reqs, err := loader.Load(ctx, filePath)

	require.ErrorIs(t, err, context.Canceled)
	assert.Nil(t, reqs)
}

func TestDecodeRow(t *testing.T) {
	tests := []struct {
		name        string
		record      []string
		expectError bool
	}{
		{name: "valid row", record: []string{"SAVE10", "2030-12-31", "10"}},
		{name: "padded discount", record: []string{"SAVE10", "2030-12-31", " 12.50 "}},
		{name: "too few fields", record: []string{"SAVE10", "2030-12-31"}, expectError: true},
		{name: "non-numeric discount", record: []string{"SAVE10", "2030-12-31", "abc"}, expectError: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req, err := decodeRow(tt.record)
			if tt.expectError {
				assert.Error(t, err)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, "SAVE10", req.Name)
			assert.NotNil(t, req.Discount)
		})
	}
}
