package handler

import (
	"errors"
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

func TestOrderHandler_CreateCashOrder(t *testing.T) {
	logger := zerolog.Nop()
	user := &auth.Identity{UserID: uuid.New(), Role: auth.RoleUser}
	validBody := `{"shippingAddress":{"details":"12 Market St","city":"Riyadh"}}`

	tests := []struct {
		name           string
		body           string
		mockError      error
		expectedStatus int
		expectService  bool
	}{
		{name: "Created", body: validBody, expectedStatus: http.StatusCreated, expectService: true},
		{name: "Invalid JSON", body: `{"shippingAddress":`, expectedStatus: http.StatusBadRequest},
		{name: "No cart", body: validBody, mockError: model.ErrCartNotFound, expectedStatus: http.StatusNotFound, expectService: true},
		{name: "Zero value cart", body: validBody, mockError: model.ErrZeroValueCart, expectedStatus: http.StatusUnprocessableEntity, expectService: true},
		{name: "Database failure", body: validBody, mockError: errors.New("deadlock detected"), expectedStatus: http.StatusInternalServerError, expectService: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			mockService := new(MockOrderService)
			handler := NewOrderHandler(mockService, logger)

			if tt.expectService {
				var resp *model.OrderResponse
				if tt.mockError == nil {
					resp = &model.OrderResponse{Order: model.Order{
						ID:                uuid.New(),
						UserID:            user.UserID,
						PaymentMethodType: model.PaymentCash,
						TotalOrderPrice:   decimal.RequireFromString("22.5"),
					}}
				}
				mockService.On("CreateCashOrder", mock.Anything, user.UserID, mock.MatchedBy(func(req *model.CreateOrderRequest) bool {
					return len(req.ShippingAddress) > 0
				})).Return(resp, tt.mockError)
			}

			req := newRequest(http.MethodPost, "/api/v1/orders/createCashOrder", tt.body, user, nil)
			w := httptest.NewRecorder()

			handler.CreateCashOrder(w, req)

			assert.Equal(t, tt.expectedStatus, w.Code)
			if tt.expectedStatus == http.StatusCreated {
				var got model.OrderResponse
				env := decodeEnvelope(t, w, &got)
				assert.Equal(t, model.StatusSuccess, env.Status)
				assert.Equal(t, model.PaymentCash, got.PaymentMethodType)
				assert.True(t, got.TotalOrderPrice.Equal(decimal.RequireFromString("22.5")))
			}
			if tt.expectedStatus == http.StatusInternalServerError {
				env := decodeEnvelope(t, w, nil)
				assert.Equal(t, model.StatusError, env.Status)
				assert.NotContains(t, env.Message, "deadlock")
			}
		})
	}
}

func TestOrderHandler_CreateOnlineOrder(t *testing.T) {
	logger := zerolog.Nop()
	user := &auth.Identity{UserID: uuid.New(), Role: auth.RoleUser}
	body := `{"shippingAddress":{"details":"12 Market St"}}`

	t.Run("Returns the invoice", func(t *testing.T) {
		mockService := new(MockOrderService)
		invoiceID := "inv_1"
		resp := &model.OrderResponse{
			Order:   model.Order{ID: uuid.New(), PaymentMethodType: model.PaymentCard, InvoiceID: &invoiceID},
			Invoice: &model.Invoice{ID: invoiceID, URL: "https://pay.example.com/inv_1", Amount: 2250},
		}
		mockService.On("CreateOnlineOrder", mock.Anything, user.UserID, mock.Anything).Return(resp, nil)

		w := httptest.NewRecorder()
		NewOrderHandler(mockService, logger).CreateOnlineOrder(w, newRequest(http.MethodPost, "/api/v1/orders/createOnlineOrder", body, user, nil))

		assert.Equal(t, http.StatusCreated, w.Code)
		var got model.OrderResponse
		decodeEnvelope(t, w, &got)
		require.NotNil(t, got.Invoice)
		assert.Equal(t, "https://pay.example.com/inv_1", got.Invoice.URL)
	})

	t.Run("Gateway failure", func(t *testing.T) {
		mockService := new(MockOrderService)
		mockService.On("CreateOnlineOrder", mock.Anything, user.UserID, mock.Anything).
			Return(nil, model.NewExternalServiceError("payment gateway is unavailable", errors.New("open")))

		w := httptest.NewRecorder()
		NewOrderHandler(mockService, logger).CreateOnlineOrder(w, newRequest(http.MethodPost, "/api/v1/orders/createOnlineOrder", body, user, nil))

		assert.Equal(t, http.StatusBadGateway, w.Code)
		env := decodeEnvelope(t, w, nil)
		assert.Equal(t, model.StatusError, env.Status)
		assert.Equal(t, model.ErrCodePaymentGateway, env.Code)
	})
}

func TestOrderHandler_GetByID(t *testing.T) {
	logger := zerolog.Nop()
	user := &auth.Identity{UserID: uuid.New(), Role: auth.RoleUser}
	orderID := uuid.New()

	t.Run("Found", func(t *testing.T) {
		mockService := new(MockOrderService)
		mockService.On("GetOrder", mock.Anything, *user, orderID).Return(&model.OrderResponse{Order: model.Order{ID: orderID}}, nil)

		w := httptest.NewRecorder()
		NewOrderHandler(mockService, logger).GetByID(w, newRequest(http.MethodGet, "/api/v1/orders/"+orderID.String(), "", user,
			map[string]string{"id": orderID.String()}))

		assert.Equal(t, http.StatusOK, w.Code)
	})

	t.Run("Invalid id", func(t *testing.T) {
		mockService := new(MockOrderService)

		w := httptest.NewRecorder()
		NewOrderHandler(mockService, logger).GetByID(w, newRequest(http.MethodGet, "/api/v1/orders/invalid-uuid", "", user,
			map[string]string{"id": "invalid-uuid"}))

		assert.Equal(t, http.StatusBadRequest, w.Code)
		mockService.AssertNotCalled(t, "GetOrder", mock.Anything, mock.Anything, mock.Anything)
	})

	t.Run("Not found", func(t *testing.T) {
		mockService := new(MockOrderService)
		mockService.On("GetOrder", mock.Anything, *user, orderID).Return(nil, model.ErrOrderNotFound)

		w := httptest.NewRecorder()
		NewOrderHandler(mockService, logger).GetByID(w, newRequest(http.MethodGet, "/api/v1/orders/"+orderID.String(), "", user,
			map[string]string{"id": orderID.String()}))

		assert.Equal(t, http.StatusNotFound, w.Code)
	})
}

func TestOrderHandler_List(t *testing.T) {
	mockService := new(MockOrderService)
	admin := &auth.Identity{UserID: uuid.New(), Role: auth.RoleAdmin}
	orders := []model.Order{{ID: uuid.New()}, {ID: uuid.New()}}
	mockService.On("ListOrders", mock.Anything, *admin, model.ListQuery{Page: 1, Limit: 10, Sort: "-createdAt"}).Return(orders, nil)

	w := httptest.NewRecorder()
	NewOrderHandler(mockService, zerolog.Nop()).List(w, newRequest(http.MethodGet, "/api/v1/orders?limit=10&sort=-createdAt", "", admin, nil))

	assert.Equal(t, http.StatusOK, w.Code)
	env := decodeEnvelope(t, w, nil)
	require.NotNil(t, env.Results)
	assert.Equal(t, 2, *env.Results)
}

func TestOrderHandler_UpdateStatus(t *testing.T) {
	logger := zerolog.Nop()
	orderID := uuid.New()
	params := map[string]string{"id": orderID.String()}

	tests := []struct {
		name           string
		body           string
		mockError      error
		expectedStatus int
	}{
		{name: "Delivered", body: `{"isDelivered":true}`, expectedStatus: http.StatusOK},
		{name: "Reverting paid", body: `{"isPaid":false}`, mockError: model.ErrPaidIrreversible, expectedStatus: http.StatusUnprocessableEntity},
		{name: "Unknown order", body: `{"isPaid":true}`, mockError: model.ErrOrderNotFound, expectedStatus: http.StatusNotFound},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			mockService := new(MockOrderService)
			var resp *model.Order
			if tt.mockError == nil {
				resp = &model.Order{ID: orderID, IsDelivered: true}
			}
			mockService.On("UpdateStatus", mock.Anything, orderID, mock.AnythingOfType("*model.OrderStatusUpdate")).Return(resp, tt.mockError)

			w := httptest.NewRecorder()
			NewOrderHandler(mockService, logger).UpdateStatus(w, newRequest(http.MethodPut, "/api/v1/orders/"+orderID.String(), tt.body, nil, params))

			assert.Equal(t, tt.expectedStatus, w.Code)
			mockService.AssertExpectations(t)
		})
	}
}

func TestOrderHandler_Webhook(t *testing.T) {
	logger := zerolog.Nop()
	orderID := uuid.New()

	t.Run("Paid", func(t *testing.T) {
		mockService := new(MockOrderService)
		mockService.On("ConfirmPayment", mock.Anything, mock.MatchedBy(func(w *model.PaymentWebhook) bool {
			return w.Status == "paid" && w.Metadata.OrderID == orderID.String()
		})).Return(&model.Order{ID: orderID, IsPaid: true}, nil)

		body := `{"id":"inv_1","status":"paid","metadata":{"orderId":"` + orderID.String() + `"}}`
		w := httptest.NewRecorder()
		NewOrderHandler(mockService, logger).Webhook(w, newRequest(http.MethodPost, "/api/v1/orders/webhook", body, nil, nil))

		assert.Equal(t, http.StatusOK, w.Code)
		var got model.Order
		decodeEnvelope(t, w, &got)
		assert.True(t, got.IsPaid)
	})

	t.Run("Ignored status is acknowledged", func(t *testing.T) {
		mockService := new(MockOrderService)
		mockService.On("ConfirmPayment", mock.Anything, mock.Anything).Return(nil, nil)

		body := `{"id":"inv_1","status":"failed","metadata":{"orderId":"` + orderID.String() + `"}}`
		w := httptest.NewRecorder()
		NewOrderHandler(mockService, logger).Webhook(w, newRequest(http.MethodPost, "/api/v1/orders/webhook", body, nil, nil))

		assert.Equal(t, http.StatusOK, w.Code)
		env := decodeEnvelope(t, w, nil)
		assert.Equal(t, "webhook received", env.Message)
	})
}

func TestOrderHandler_CreateInvoice(t *testing.T) {
	user := &auth.Identity{UserID: uuid.New(), Role: auth.RoleUser}
	orderID := uuid.New()
	mockService := new(MockOrderService)
	mockService.On("CreateInvoice", mock.Anything, *user, orderID).Return(nil, model.ErrAlreadyPaid)

	w := httptest.NewRecorder()
	NewOrderHandler(mockService, zerolog.Nop()).CreateInvoice(w, newRequest(http.MethodPost, "/api/v1/orders/"+orderID.String()+"/invoice", "", user,
		map[string]string{"id": orderID.String()}))

	assert.Equal(t, http.StatusUnprocessableEntity, w.Code)
}
