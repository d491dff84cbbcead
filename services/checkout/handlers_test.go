package main

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
)

type MockCartService struct {
	mock.Mock
}

func (m *MockCartService) AddToCart(ctx context.Context, userID, sku string, quantity int) (*CartView, error) {
	args := m.Called(ctx, userID, sku, quantity)
	view, _ := args.Get(0).(*CartView)
	return view, args.Error(1)
}

func (m *MockCartService) UpdateLineItemQuantity(ctx context.Context, userID, sku string, quantity int) (*CartView, error) {
	args := m.Called(ctx, userID, sku, quantity)
	view, _ := args.Get(0).(*CartView)
	return view, args.Error(1)
}

func (m *MockCartService) RemoveLineItem(ctx context.Context, userID, sku string) (*CartView, error) {
	args := m.Called(ctx, userID, sku)
	view, _ := args.Get(0).(*CartView)
	return view, args.Error(1)
}

func (m *MockCartService) ClearCart(ctx context.Context, userID string) error {
	return m.Called(ctx, userID).Error(0)
}

func (m *MockCartService) GetCart(ctx context.Context, userID string) (*CartView, error) {
	args := m.Called(ctx, userID)
	view, _ := args.Get(0).(*CartView)
	return view, args.Error(1)
}

func (m *MockCartService) CartQuantity(ctx context.Context, userID string) (int, error) {
	args := m.Called(ctx, userID)
	return args.Int(0), args.Error(1)
}

type MockCheckoutService struct {
	mock.Mock
}

func (m *MockCheckoutService) PlaceOrder(ctx context.Context, userID string, shipping ShippingInfo, paymentMethod string) (*Order, error) {
	args := m.Called(ctx, userID, shipping, paymentMethod)
	order, _ := args.Get(0).(*Order)
	return order, args.Error(1)
}

func (m *MockCheckoutService) ProcessPayment(ctx context.Context, userID, orderNumber string) (*Payment, error) {
	args := m.Called(ctx, userID, orderNumber)
	payment, _ := args.Get(0).(*Payment)
	return payment, args.Error(1)
}

func (m *MockCheckoutService) FinalizeOrder(ctx context.Context, userID, orderNumber string) (*PlacedOrder, error) {
	args := m.Called(ctx, userID, orderNumber)
	placed, _ := args.Get(0).(*PlacedOrder)
	return placed, args.Error(1)
}

func (m *MockCheckoutService) CancelOrder(ctx context.Context, userID, orderNumber string) (*Order, error) {
	args := m.Called(ctx, userID, orderNumber)
	order, _ := args.Get(0).(*Order)
	return order, args.Error(1)
}

func (m *MockCheckoutService) GetOrder(ctx context.Context, userID, orderNumber string) (*Order, error) {
	args := m.Called(ctx, userID, orderNumber)
	order, _ := args.Get(0).(*Order)
	return order, args.Error(1)
}

func (m *MockCheckoutService) GetPlacedOrder(ctx context.Context, userID, orderNumber string) (*PlacedOrder, error) {
	args := m.Called(ctx, userID, orderNumber)
	placed, _ := args.Get(0).(*PlacedOrder)
	return placed, args.Error(1)
}

func (m *MockCheckoutService) ListPlacedOrders(ctx context.Context, userID string) ([]*PlacedOrder, error) {
	args := m.Called(ctx, userID)
	placed, _ := args.Get(0).([]*PlacedOrder)
	return placed, args.Error(1)
}

type MockCatalogService struct {
	mock.Mock
}

func (m *MockCatalogService) GetVariant(ctx context.Context, sku string) (*VariantDetail, error) {
	args := m.Called(ctx, sku)
	detail, _ := args.Get(0).(*VariantDetail)
	return detail, args.Error(1)
}

func (m *MockCatalogService) ListOnSale(ctx context.Context) ([]*ProductVariant, error) {
	args := m.Called(ctx)
	variants, _ := args.Get(0).([]*ProductVariant)
	return variants, args.Error(1)
}

func setupRouter(carts *MockCartService, checkout *MockCheckoutService) *gin.Engine {
	return setupRouterWithCatalog(new(MockCatalogService), carts, checkout)
}

func setupRouterWithCatalog(catalog *MockCatalogService, carts *MockCartService, checkout *MockCheckoutService) *gin.Engine {
	gin.SetMode(gin.TestMode)
	r := gin.New()
	NewCheckoutHandler(catalog, carts, checkout).RegisterRoutes(r)
	return r
}

func doRequest(r *gin.Engine, method, path, body string) *httptest.ResponseRecorder {
	var req *http.Request
	if body == "" {
		req = httptest.NewRequest(method, path, nil)
	} else {
		req = httptest.NewRequest(method, path, strings.NewReader(body))
		req.Header.Set("Content-Type", "application/json")
	}
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)
	return w
}

func TestCheckoutHandler_AddItem_DefaultsQuantityToOne(t *testing.T) {
	// Arrange
	carts := new(MockCartService)
	router := setupRouter(carts, new(MockCheckoutService))
	carts.On("AddToCart", mock.Anything, "user-1", "A1", 1).
		Return(&CartView{Cart: &Cart{UserID: "user-1", Quantity: 1}}, nil).Once()

	// Act
	w := doRequest(router, http.MethodPost, "/api/carts/user-1/items", `{"sku":"A1"}`)

	// Assert
	assert.Equal(t, http.StatusOK, w.Code)
	carts.AssertExpectations(t)
}

func TestCheckoutHandler_AddItem_BadRequest(t *testing.T) {
	carts := new(MockCartService)
	router := setupRouter(carts, new(MockCheckoutService))

	for _, body := range []string{`{"sku":`, `{"quantity":2}`} {
		w := doRequest(router, http.MethodPost, "/api/carts/user-1/items", body)
		assert.Equal(t, http.StatusBadRequest, w.Code, body)
	}
	carts.AssertNotCalled(t, "AddToCart", mock.Anything, mock.Anything, mock.Anything, mock.Anything)
}

func TestCheckoutHandler_ErrorStatusMapping(t *testing.T) {
	tests := []struct {
		name string
		err  error
		want int
	}{
		{"not found", newError(KindNotFound, "cart not found"), http.StatusNotFound},
		{"empty cart", newError(KindEmptyCart, "empty"), http.StatusUnprocessableEntity},
		{"insufficient stock", newError(KindInsufficientStock, "no stock"), http.StatusConflict},
		{"conflict", newError(KindConflict, "state"), http.StatusConflict},
		{"payment failed", newError(KindPaymentFailed, "declined"), http.StatusPaymentRequired},
		{"validation", newError(KindValidation, "bad email"), http.StatusBadRequest},
		{"unknown", assert.AnError, http.StatusInternalServerError},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			checkout := new(MockCheckoutService)
			router := setupRouter(new(MockCartService), checkout)
			checkout.On("FinalizeOrder", mock.Anything, "user-1", "N-1").Return(nil, tt.err)

			w := doRequest(router, http.MethodPost, "/api/orders/N-1/finalize", `{"user_id":"user-1"}`)

			assert.Equal(t, tt.want, w.Code)
			var body map[string]any
			require.NoError(t, json.Unmarshal(w.Body.Bytes(), &body))
			assert.NotEmpty(t, body["error"])
		})
	}
}

func TestCheckoutHandler_PlaceOrder(t *testing.T) {
	checkout := new(MockCheckoutService)
	router := setupRouter(new(MockCartService), checkout)

	checkout.On("PlaceOrder", mock.Anything, "user-1", validShipping(), PaymentMethodPayPal).
		Return(&Order{OrderNumber: "N-1", Status: OrderStatusNew, Total: money("21.60")}, nil).Once()

	payload := `{
		"user_id": "user-1",
		"payment_method": "PayPal",
		"shipping": {
			"first_name": "Ada", "last_name": "Lovelace", "phone": "5550100",
			"email": "ada@example.com", "address": "12 Analytical Engine Rd",
			"country": "UK", "state": "London", "city": "London", "pin_code": "NW1 6XE"
		}
	}`
	w := doRequest(router, http.MethodPost, "/api/orders", payload)

	assert.Equal(t, http.StatusCreated, w.Code)
	var order map[string]any
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &order))
	assert.Equal(t, "N-1", order["order_number"])
	assert.Equal(t, "New", order["status"])
	checkout.AssertExpectations(t)
}

func TestCheckoutHandler_CartQuantityAndClear(t *testing.T) {
	carts := new(MockCartService)
	router := setupRouter(carts, new(MockCheckoutService))
	carts.On("CartQuantity", mock.Anything, "user-1").Return(4, nil).Once()
	carts.On("ClearCart", mock.Anything, "user-1").Return(nil).Once()

	w := doRequest(router, http.MethodGet, "/api/carts/user-1/quantity", "")
	assert.Equal(t, http.StatusOK, w.Code)
	assert.JSONEq(t, `{"quantity":4}`, w.Body.String())

	w = doRequest(router, http.MethodDelete, "/api/carts/user-1", "")
	assert.Equal(t, http.StatusNoContent, w.Code)
	carts.AssertExpectations(t)
}

func TestCheckoutHandler_ListPlacedOrders(t *testing.T) {
	checkout := new(MockCheckoutService)
	router := setupRouter(new(MockCartService), checkout)
	checkout.On("ListPlacedOrders", mock.Anything, "user-1").Return([]*PlacedOrder{}, nil).Once()

	w := doRequest(router, http.MethodGet, "/api/users/user-1/placed-orders", "")

	assert.Equal(t, http.StatusOK, w.Code)
	assert.JSONEq(t, `{"placed_orders":[]}`, w.Body.String())
}

func TestCheckoutHandler_OrderReadsRequireOwner(t *testing.T) {
	checkout := new(MockCheckoutService)
	router := setupRouter(new(MockCartService), checkout)

	checkout.On("GetOrder", mock.Anything, "user-1", "N-1").
		Return(&Order{OrderNumber: "N-1", UserID: "user-1", Status: OrderStatusAccepted}, nil).Once()
	checkout.On("GetOrder", mock.Anything, "intruder", "N-1").
		Return(nil, newError(KindNotFound, "order N-1 not found")).Once()
	checkout.On("GetPlacedOrder", mock.Anything, "user-1", "N-1").
		Return(&PlacedOrder{OrderNumber: "N-1", UserID: "user-1"}, nil).Once()

	w := doRequest(router, http.MethodGet, "/api/orders/N-1?user_id=user-1", "")
	assert.Equal(t, http.StatusOK, w.Code)

	w = doRequest(router, http.MethodGet, "/api/orders/N-1?user_id=intruder", "")
	assert.Equal(t, http.StatusNotFound, w.Code)

	w = doRequest(router, http.MethodGet, "/api/placed-orders/N-1?user_id=user-1", "")
	assert.Equal(t, http.StatusOK, w.Code)

	for _, path := range []string{"/api/orders/N-1", "/api/placed-orders/N-1"} {
		w = doRequest(router, http.MethodGet, path, "")
		assert.Equal(t, http.StatusBadRequest, w.Code, path)
	}
	checkout.AssertExpectations(t)
}

func TestCheckoutHandler_Catalog(t *testing.T) {
	catalog := new(MockCatalogService)
	router := setupRouterWithCatalog(catalog, new(MockCartService), new(MockCheckoutService))

	catalog.On("GetVariant", mock.Anything, "TSHIRT-M").Return(&VariantDetail{
		Variant:        &ProductVariant{SKU: "TSHIRT-M", IsOnSale: true, IsActive: true},
		UnitPrice:      money("15.00"),
		Attributes:     map[string][]string{"color": {"blue", "white"}},
		UnitsAvailable: 50,
	}, nil).Once()
	catalog.On("GetVariant", mock.Anything, "OLD").Return(nil, newError(KindNotFound, "variant OLD not found")).Once()
	catalog.On("ListOnSale", mock.Anything).Return([]*ProductVariant{{SKU: "TSHIRT-M"}}, nil).Once()

	w := doRequest(router, http.MethodGet, "/api/catalog/variants/TSHIRT-M", "")
	require.Equal(t, http.StatusOK, w.Code)
	var detail map[string]any
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &detail))
	assert.Equal(t, map[string]any{"color": []any{"blue", "white"}}, detail["attributes"])
	assert.Equal(t, float64(50), detail["units_available"])

	w = doRequest(router, http.MethodGet, "/api/catalog/variants/OLD", "")
	assert.Equal(t, http.StatusNotFound, w.Code)

	w = doRequest(router, http.MethodGet, "/api/catalog/on-sale", "")
	require.Equal(t, http.StatusOK, w.Code)
	var body struct {
		Variants []ProductVariant `json:"variants"`
	}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &body))
	require.Len(t, body.Variants, 1)
	assert.Equal(t, "TSHIRT-M", body.Variants[0].SKU)
	catalog.AssertExpectations(t)
}

func TestCheckoutHandler_HealthCheck(t *testing.T) {
	router := setupRouter(new(MockCartService), new(MockCheckoutService))

	w := doRequest(router, http.MethodGet, "/health", "")

	assert.Equal(t, http.StatusOK, w.Code)
	assert.JSONEq(t, `{"status":"healthy","service":"checkout-service"}`, w.Body.String())
}
