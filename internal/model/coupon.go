package model

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// Coupon is a named, time-limited percentage discount.
type Coupon struct {
	ID        uuid.UUID       `json:"id" db:"id"`
	Name      string          `json:"name" db:"name"`
	Expire    time.Time       `json:"expire" db:"expire"`
	Discount  decimal.Decimal `json:"discount" db:"discount"`
	CreatedAt time.Time       `json:"createdAt" db:"created_at"`
	UpdatedAt time.Time       `json:"updatedAt" db:"updated_at"`
}

// IsExpired reports whether the coupon expired before now.
func (c *Coupon) IsExpired(now time.Time) bool {
	return c.Expire.Before(now)
}

// CouponRequest is the body of coupon create and update calls.
// Expire accepts RFC 3339 timestamps or YYYY-MM-DD dates.
type CouponRequest struct {
	Name     string           `json:"name"`
	Expire   string           `json:"expire"`
	Discount *decimal.Decimal `json:"discount"`
}
