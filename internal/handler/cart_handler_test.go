package handler

import (
	"net/http"
	"net/http/httptest"
	"testing"

	"shopfront/internal/auth"
	"shopfront/internal/model"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
)

func newCartHandler() (*CartHandler, *MockCartService, *MockCouponService) {
	carts := new(MockCartService)
	coupons := new(MockCouponService)
	return NewCartHandler(carts, coupons, zerolog.Nop()), carts, coupons
}

func TestCartHandler_AddItem(t *testing.T) {
	user := &auth.Identity{UserID: uuid.New(), Role: auth.RoleUser}
	productID := uuid.New()

	tests := []struct {
		name             string
		body             string
		expectedQuantity int
		mockError        error
		expectedStatus   int
		expectService    bool
	}{
		{
			name:             "Adds the requested quantity",
			body:             `{"productId":"` + productID.String() + `","quantity":3}`,
			expectedQuantity: 3,
			expectedStatus:   http.StatusOK,
			expectService:    true,
		},
		{
			name:             "Quantity defaults to one",
			body:             `{"productId":"` + productID.String() + `"}`,
			expectedQuantity: 1,
			expectedStatus:   http.StatusOK,
			expectService:    true,
		},
		{
			name:           "Malformed product id",
			body:           `{"productId":"abc","quantity":1}`,
			expectedStatus: http.StatusBadRequest,
		},
		{
			name:             "Unknown product",
			body:             `{"productId":"` + productID.String() + `","quantity":1}`,
			expectedQuantity: 1,
			mockError:        model.ErrProductNotFound,
			expectedStatus:   http.StatusNotFound,
			expectService:    true,
		},
		{
			name:             "Invalid quantity",
			body:             `{"productId":"` + productID.String() + `","quantity":0}`,
			expectedQuantity: 0,
			mockError:        model.NewValidationError("quantity must be at least 1"),
			expectedStatus:   http.StatusBadRequest,
			expectService:    true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			handler, carts, _ := newCartHandler()

			if tt.expectService {
				var resp *model.CartResponse
				if tt.mockError == nil {
					resp = &model.CartResponse{ID: uuid.New(), UserID: user.UserID, TotalCartPrice: decimal.NewFromInt(30)}
				}
				carts.On("AddItem", mock.Anything, user.UserID, productID, tt.expectedQuantity).Return(resp, tt.mockError)
			}

			req := newRequest(http.MethodPost, "/api/v1/cart", tt.body, user, nil)
			w := httptest.NewRecorder()

			handler.AddItem(w, req)

			assert.Equal(t, tt.expectedStatus, w.Code)
			if tt.expectService {
				carts.AssertExpectations(t)
			} else {
				carts.AssertNotCalled(t, "AddItem", mock.Anything, mock.Anything, mock.Anything, mock.Anything)
			}
		})
	}
}

func TestCartHandler_RequiresIdentity(t *testing.T) {
	handler, carts, _ := newCartHandler()

	req := newRequest(http.MethodGet, "/api/v1/cart", "", nil, nil)
	w := httptest.NewRecorder()

	handler.Get(w, req)

	assert.Equal(t, http.StatusUnauthorized, w.Code)
	carts.AssertNotCalled(t, "GetCart", mock.Anything, mock.Anything)
}

func TestCartHandler_Get(t *testing.T) {
	user := &auth.Identity{UserID: uuid.New(), Role: auth.RoleUser}

	t.Run("Returns the cart", func(t *testing.T) {
		handler, carts, _ := newCartHandler()
		cart := &model.CartResponse{
			ID:                      uuid.New(),
			UserID:                  user.UserID,
			TotalCartPrice:          decimal.NewFromInt(25),
			TotalPriceAfterDiscount: decimal.NewFromInt(25),
			Items:                   []model.CartItem{},
		}
		carts.On("GetCart", mock.Anything, user.UserID).Return(cart, nil)

		w := httptest.NewRecorder()
		handler.Get(w, newRequest(http.MethodGet, "/api/v1/cart", "", user, nil))

		assert.Equal(t, http.StatusOK, w.Code)
		var got model.CartResponse
		decodeEnvelope(t, w, &got)
		assert.Equal(t, cart.ID, got.ID)
		assert.True(t, got.TotalPriceAfterDiscount.Equal(decimal.NewFromInt(25)))
	})

	t.Run("No cart", func(t *testing.T) {
		handler, carts, _ := newCartHandler()
		carts.On("GetCart", mock.Anything, user.UserID).Return(nil, model.ErrCartNotFound)

		w := httptest.NewRecorder()
		handler.Get(w, newRequest(http.MethodGet, "/api/v1/cart", "", user, nil))

		assert.Equal(t, http.StatusNotFound, w.Code)
		env := decodeEnvelope(t, w, nil)
		assert.Equal(t, model.StatusFail, env.Status)
	})
}

func TestCartHandler_SetQuantity(t *testing.T) {
	user := &auth.Identity{UserID: uuid.New(), Role: auth.RoleUser}
	productID := uuid.New()
	params := map[string]string{"productId": productID.String()}

	t.Run("Updated", func(t *testing.T) {
		handler, carts, _ := newCartHandler()
		carts.On("SetQuantity", mock.Anything, user.UserID, productID, 4).Return(&model.CartResponse{ID: uuid.New()}, nil)

		w := httptest.NewRecorder()
		handler.SetQuantity(w, newRequest(http.MethodPut, "/api/v1/cart/"+productID.String(), `{"quantity":4}`, user, params))

		assert.Equal(t, http.StatusOK, w.Code)
	})

	t.Run("Cart deleted", func(t *testing.T) {
		handler, carts, _ := newCartHandler()
		carts.On("SetQuantity", mock.Anything, user.UserID, productID, 0).Return(nil, nil)

		w := httptest.NewRecorder()
		handler.SetQuantity(w, newRequest(http.MethodPut, "/api/v1/cart/"+productID.String(), `{"quantity":0}`, user, params))

		assert.Equal(t, http.StatusNoContent, w.Code)
	})

	t.Run("Missing quantity", func(t *testing.T) {
		handler, carts, _ := newCartHandler()

		w := httptest.NewRecorder()
		handler.SetQuantity(w, newRequest(http.MethodPut, "/api/v1/cart/"+productID.String(), `{}`, user, params))

		assert.Equal(t, http.StatusBadRequest, w.Code)
		carts.AssertNotCalled(t, "SetQuantity", mock.Anything, mock.Anything, mock.Anything, mock.Anything)
	})

	t.Run("Item not in cart", func(t *testing.T) {
		handler, carts, _ := newCartHandler()
		carts.On("SetQuantity", mock.Anything, user.UserID, productID, 2).Return(nil, model.ErrCartItemNotFound)

		w := httptest.NewRecorder()
		handler.SetQuantity(w, newRequest(http.MethodPut, "/api/v1/cart/"+productID.String(), `{"quantity":2}`, user, params))

		assert.Equal(t, http.StatusNotFound, w.Code)
	})
}

func TestCartHandler_RemoveAndClear(t *testing.T) {
	user := &auth.Identity{UserID: uuid.New(), Role: auth.RoleUser}
	productID := uuid.New()

	t.Run("Remove keeps a non-empty cart", func(t *testing.T) {
		handler, carts, _ := newCartHandler()
		carts.On("RemoveItem", mock.Anything, user.UserID, productID).Return(&model.CartResponse{ID: uuid.New()}, nil)

		w := httptest.NewRecorder()
		handler.RemoveItem(w, newRequest(http.MethodDelete, "/api/v1/cart/"+productID.String(), "", user,
			map[string]string{"productId": productID.String()}))

		assert.Equal(t, http.StatusOK, w.Code)
	})

	t.Run("Clear", func(t *testing.T) {
		handler, carts, _ := newCartHandler()
		carts.On("Clear", mock.Anything, user.UserID).Return(nil)

		w := httptest.NewRecorder()
		handler.Clear(w, newRequest(http.MethodDelete, "/api/v1/cart", "", user, nil))

		assert.Equal(t, http.StatusNoContent, w.Code)
		carts.AssertExpectations(t)
	})
}

func TestCartHandler_ApplyCoupon(t *testing.T) {
	user := &auth.Identity{UserID: uuid.New(), Role: auth.RoleUser}
	coupon := "SAVE10"

	tests := []struct {
		name           string
		mockReturn     *model.CartResponse
		mockError      error
		expectedStatus int
	}{
		{
			name: "Applied",
			mockReturn: &model.CartResponse{
				TotalCartPrice:          decimal.NewFromInt(25),
				TotalPriceAfterDiscount: decimal.RequireFromString("22.5"),
				DiscountApplied:         true,
				CouponName:              &coupon,
			},
			expectedStatus: http.StatusOK,
		},
		{name: "Unknown coupon", mockError: model.ErrCouponNotFound, expectedStatus: http.StatusNotFound},
		{name: "Expired coupon", mockError: model.ErrCouponExpired, expectedStatus: http.StatusUnprocessableEntity},
		{name: "Already discounted", mockError: model.ErrDiscountApplied, expectedStatus: http.StatusConflict},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			handler, _, coupons := newCartHandler()
			coupons.On("Apply", mock.Anything, user.UserID, coupon).Return(tt.mockReturn, tt.mockError)

			w := httptest.NewRecorder()
			handler.ApplyCoupon(w, newRequest(http.MethodPost, "/api/v1/cart/apply-coupon", `{"coupon":"SAVE10"}`, user, nil))

			assert.Equal(t, tt.expectedStatus, w.Code)
			if tt.mockReturn != nil {
				var got model.CartResponse
				decodeEnvelope(t, w, &got)
				require.NotNil(t, got.CouponName)
				assert.True(t, got.TotalPriceAfterDiscount.Equal(decimal.RequireFromString("22.5")))
				assert.True(t, got.DiscountApplied)
			}
		})
	}
}
