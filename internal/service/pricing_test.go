package service

import (
	"testing"

	"shopfront/internal/model"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDiscountedTotal(t *testing.T) {
	tests := []struct {
		name     string
		total    string
		percent  string
		expected string
	}{
		{name: "Ten percent", total: "25", percent: "10", expected: "22.5"},
		{name: "Zero percent", total: "25", percent: "0", expected: "25"},
		{name: "Full discount", total: "25", percent: "100", expected: "0"},
		{name: "Rounded to cents", total: "9.99", percent: "15", expected: "8.49"},
		{name: "Fractional percent", total: "100", percent: "12.5", expected: "87.5"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := discountedTotal(dec(tt.total), dec(tt.percent))
			assert.True(t, dec(tt.expected).Equal(got), "expected %s, got %s", tt.expected, got)
		})
	}
}

func TestStampPrices(t *testing.T) {
	a, b := uuid.New(), uuid.New()

	t.Run("Sums price times quantity", func(t *testing.T) {
		items := []model.CartItem{
			{ProductID: a, Quantity: 2},
			{ProductID: b, Quantity: 1},
		}
		prices := map[uuid.UUID]decimal.Decimal{a: dec("10"), b: dec("5")}

		require.NoError(t, stampPrices(items, prices))
		assert.True(t, dec("10").Equal(items[0].UnitPrice))
		assert.True(t, dec("5").Equal(items[1].UnitPrice))
		assert.True(t, dec("25").Equal(itemsTotal(items)))
	})

	t.Run("Empty cart totals zero", func(t *testing.T) {
		require.NoError(t, stampPrices(nil, nil))
		assert.True(t, itemsTotal(nil).IsZero())
	})

	t.Run("Unknown product", func(t *testing.T) {
		items := []model.CartItem{{ProductID: a, Quantity: 1}}

		err := stampPrices(items, map[uuid.UUID]decimal.Decimal{b: dec("1")})

		assert.ErrorIs(t, err, model.ErrProductNotFound)
	})
}
