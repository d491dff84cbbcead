package main

import (
	"context"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
	sdkmetric "go.opentelemetry.io/otel/sdk/metric"
	"go.opentelemetry.io/otel/sdk/metric/metricdata"
	"go.opentelemetry.io/otel/trace/noop"
	"go.uber.org/zap/zaptest"
)

// MockPaymentGateway simula o gateway de pagamento
type MockPaymentGateway struct {
	mock.Mock
}

func (m *MockPaymentGateway) Charge(ctx context.Context, req ChargeRequest) (*ChargeResult, error) {
	args := m.Called(ctx, req)
	result, _ := args.Get(0).(*ChargeResult)
	return result, args.Error(1)
}

// MockNotifier simula o Notification Gateway
type MockNotifier struct {
	mock.Mock
}

func (m *MockNotifier) Send(ctx context.Context, templateKey string, recipients []string, data map[string]any) error {
	args := m.Called(ctx, templateKey, recipients, data)
	return args.Error(0)
}

// sequenceGenerator devolve os order_numbers na ordem informada
type sequenceGenerator struct {
	numbers []string
	next    int
}

func (g *sequenceGenerator) Next(time.Time) (string, error) {
	n := g.numbers[g.next%len(g.numbers)]
	g.next++
	return n, nil
}

var testRetry = RetryPolicy{MaxTries: 3, InitialInterval: time.Millisecond}

func money(s string) decimal.Decimal {
	return decimal.RequireFromString(s)
}

func validShipping() ShippingInfo {
	return ShippingInfo{
		FirstName: "Ada",
		LastName:  "Lovelace",
		Phone:     "5550100",
		Email:     "ada@example.com",
		Address:   "12 Analytical Engine Rd",
		Country:   "UK",
		State:     "London",
		City:      "London",
		PinCode:   "NW1 6XE",
	}
}

type testEnv struct {
	store    *memoryStore
	carts    *CartUseCase
	checkout *CheckoutUseCase
	payments *MockPaymentGateway
	notifier *MockNotifier
	reader   *sdkmetric.ManualReader
}

// newTestEnv monta os casos de uso sobre o store em memória com o catálogo:
//
//	A1        accessories  10.00         GST 8%
//	TSHIRT-M  apparel      20.00 (sale 15.00)  GST 8%
//	TSHIRT-L  apparel      20.00 (sale 22.00)  GST 8%
//	LAST      electronics  100.00        GST 8% + Luxury 10%, 1 unidade
//	OLD       accessories  5.00          inativo
func newTestEnv(t *testing.T, orderNumbers OrderNumberGenerator, opts ...func(*CheckoutOptions)) *testEnv {
	t.Helper()

	store := newMemoryStore()
	store.addVariant(ProductVariant{SKU: "A1", ProductName: "Canvas Tote", ProductType: "accessories", StorePrice: money("10.00"), SalePrice: money("8.00"), IsActive: true}, 10)
	store.addVariant(ProductVariant{SKU: "TSHIRT-M", ProductName: "T-Shirt M", ProductType: "apparel", StorePrice: money("20.00"), SalePrice: money("15.00"), IsOnSale: true, IsActive: true}, 50)
	store.addVariant(ProductVariant{SKU: "TSHIRT-L", ProductName: "T-Shirt L", ProductType: "apparel", StorePrice: money("20.00"), SalePrice: money("22.00"), IsOnSale: true, IsActive: true}, 50)
	store.addVariant(ProductVariant{SKU: "LAST", ProductName: "Headphones", ProductType: "electronics", StorePrice: money("100.00"), SalePrice: money("90.00"), IsActive: true}, 1)
	store.addVariant(ProductVariant{SKU: "OLD", ProductName: "Old Mug", ProductType: "accessories", StorePrice: money("5.00"), IsActive: false}, 5)
	store.addTaxRule(TaxRule{ID: "gst", TaxType: "GST", Percentage: 8, ProductTypes: []string{"accessories", "apparel", "electronics"}, IsActive: true})
	store.addTaxRule(TaxRule{ID: "lux", TaxType: "Luxury", Percentage: 10, ProductTypes: []string{"electronics"}, IsActive: true})
	store.addTaxRule(TaxRule{ID: "legacy", TaxType: "Legacy", Percentage: 3, ProductTypes: []string{"accessories"}, IsActive: false})

	logger := zaptest.NewLogger(t)
	tracer := noop.NewTracerProvider().Tracer("test")
	reader := sdkmetric.NewManualReader()
	meter := sdkmetric.NewMeterProvider(sdkmetric.WithReader(reader)).Meter("test")

	if orderNumbers == nil {
		orderNumbers = UUIDOrderNumberGenerator{}
	}

	options := CheckoutOptions{
		PaymentTimeout:    200 * time.Millisecond,
		PaymentMaxRetries: 3,
		Retry:             testRetry,
	}
	for _, opt := range opts {
		opt(&options)
	}

	payments := new(MockPaymentGateway)
	notifier := new(MockNotifier)

	carts := NewCartUseCase(store, PricePolicySaleWins, testRetry, tracer, logger)
	checkout, err := NewCheckoutUseCase(store, carts, orderNumbers, payments, notifier, options, meter, tracer, logger)
	require.NoError(t, err)

	return &testEnv{
		store:    store,
		carts:    carts,
		checkout: checkout,
		payments: payments,
		notifier: notifier,
		reader:   reader,
	}
}

// paidOrder coloca sku/quantity no carrinho, cria o pedido e paga com sucesso
func (e *testEnv) paidOrder(t *testing.T, userID, sku string, quantity int) *Order {
	t.Helper()
	ctx := context.Background()

	_, err := e.carts.AddToCart(ctx, userID, sku, quantity)
	require.NoError(t, err)

	order, err := e.checkout.PlaceOrder(ctx, userID, validShipping(), PaymentMethodPayPal)
	require.NoError(t, err)

	e.payments.On("Charge", mock.Anything, mock.MatchedBy(func(req ChargeRequest) bool {
		return req.OrderNumber == order.OrderNumber
	})).Return(&ChargeResult{TransactionID: "tx-" + order.OrderNumber}, nil).Once()

	_, err = e.checkout.ProcessPayment(ctx, userID, order.OrderNumber)
	require.NoError(t, err)

	return order
}

func (e *testEnv) counter(t *testing.T, name string) int64 {
	t.Helper()

	var rm metricdata.ResourceMetrics
	require.NoError(t, e.reader.Collect(context.Background(), &rm))

	for _, sm := range rm.ScopeMetrics {
		for _, m := range sm.Metrics {
			if m.Name != name {
				continue
			}
			sum, ok := m.Data.(metricdata.Sum[int64])
			require.True(t, ok, "metric %s is not an int64 sum", name)
			var total int64
			for _, dp := range sum.DataPoints {
				total += dp.Value
			}
			return total
		}
	}
	return 0
}
