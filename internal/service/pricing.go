package service

import (
	"context"

	"shopfront/internal/model"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/shopspring/decimal"
)

var hundred = decimal.NewFromInt(100)

func productIDs(items []model.CartItem) []uuid.UUID {
	ids := make([]uuid.UUID, len(items))
	for i, item := range items {
		ids[i] = item.ProductID
	}
	return ids
}

// stampPrices sets the unit price of each item from prices.
func stampPrices(items []model.CartItem, prices map[uuid.UUID]decimal.Decimal) error {
	for i := range items {
		price, ok := prices[items[i].ProductID]
		if !ok {
			return model.ErrProductNotFound
		}
		items[i].UnitPrice = price
	}
	return nil
}

// itemsTotal sums unit price x quantity over already stamped items.
func itemsTotal(items []model.CartItem) decimal.Decimal {
	total := decimal.Zero
	for _, item := range items {
		total = total.Add(item.UnitPrice.Mul(decimal.NewFromInt(int64(item.Quantity))))
	}
	return total
}

// resolveTotal prices the items on tx and totals them.
func resolveTotal(ctx context.Context, pricing PriceResolver, tx pgx.Tx, items []model.CartItem) (decimal.Decimal, error) {
	if len(items) == 0 {
		return decimal.Zero, nil
	}

	prices, err := pricing.UnitPricesTx(ctx, tx, productIDs(items))
	if err != nil {
		return decimal.Zero, err
	}
	if err := stampPrices(items, prices); err != nil {
		return decimal.Zero, err
	}
	return itemsTotal(items), nil
}

// discountedTotal reduces total by percent, rounded to cents.
func discountedTotal(total, percent decimal.Decimal) decimal.Decimal {
	discount := total.Mul(percent).Div(hundred)
	return total.Sub(discount).Round(2)
}
