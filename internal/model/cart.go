package model

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// Cart is a user's in-progress collection of intended purchases.
// TotalPriceAfterDiscount is null while no coupon is applied.
type Cart struct {
	ID                      uuid.UUID           `db:"id"`
	UserID                  uuid.UUID           `db:"user_id"`
	TotalCartPrice          decimal.Decimal     `db:"total_cart_price"`
	TotalPriceAfterDiscount decimal.NullDecimal `db:"total_price_after_discount"`
	CouponName              *string             `db:"coupon_name"`
	CreatedAt               time.Time           `db:"created_at"`
	UpdatedAt               time.Time           `db:"updated_at"`
}

// HasDiscount reports whether a coupon has reduced the cart total.
func (c *Cart) HasDiscount() bool {
	return c.TotalPriceAfterDiscount.Valid && c.TotalPriceAfterDiscount.Decimal.IsPositive()
}

// PayableTotal is the discounted total when a discount is applied, otherwise the cart total.
func (c *Cart) PayableTotal() decimal.Decimal {
	if c.TotalPriceAfterDiscount.Valid {
		return c.TotalPriceAfterDiscount.Decimal
	}
	return c.TotalCartPrice
}

// ClearDiscount drops any applied coupon.
func (c *Cart) ClearDiscount() {
	c.TotalPriceAfterDiscount = decimal.NullDecimal{}
	c.CouponName = nil
}

// MaxItemQuantity bounds the quantity of a single cart line.
const MaxItemQuantity = 10_000

// CartItem is a (product, quantity) line in a cart.
// UnitPrice is resolved from the catalogue when the cart is priced and is not stored.
type CartItem struct {
	ID        uuid.UUID       `json:"id" db:"id"`
	CartID    uuid.UUID       `json:"-" db:"cart_id"`
	ProductID uuid.UUID       `json:"productId" db:"product_id"`
	Quantity  int             `json:"quantity" db:"quantity"`
	UnitPrice decimal.Decimal `json:"price" db:"-"`
}

// AddToCartRequest is the body of POST /cart.
type AddToCartRequest struct {
	ProductID string `json:"productId"`
	Quantity  *int   `json:"quantity"`
}

// UpdateQuantityRequest is the body of PUT /cart/{productId}.
type UpdateQuantityRequest struct {
	Quantity *int `json:"quantity"`
}

// ApplyCouponRequest is the body of POST /cart/apply-coupon.
type ApplyCouponRequest struct {
	Coupon string `json:"coupon"`
}

// CartResponse is the representation of a cart returned to clients and cached.
type CartResponse struct {
	ID                      uuid.UUID       `json:"id"`
	UserID                  uuid.UUID       `json:"userId"`
	TotalCartPrice          decimal.Decimal `json:"totalCartPrice"`
	TotalPriceAfterDiscount decimal.Decimal `json:"totalPriceAfterDiscount"`
	DiscountApplied         bool            `json:"discountApplied"`
	CouponName              *string         `json:"couponName,omitempty"`
	Items                   []CartItem      `json:"items"`
	UpdatedAt               time.Time       `json:"updatedAt"`
}

// NewCartResponse builds the client view of a cart and its items.
func NewCartResponse(cart *Cart, items []CartItem) *CartResponse {
	if items == nil {
		items = []CartItem{}
	}
	return &CartResponse{
		ID:                      cart.ID,
		UserID:                  cart.UserID,
		TotalCartPrice:          cart.TotalCartPrice,
		TotalPriceAfterDiscount: cart.PayableTotal(),
		DiscountApplied:         cart.HasDiscount(),
		CouponName:              cart.CouponName,
		Items:                   items,
		UpdatedAt:               cart.UpdatedAt,
	}
}
