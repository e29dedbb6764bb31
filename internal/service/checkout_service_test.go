package service

import (
	"context"
	"errors"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/menswear-india/storefront-service/internal/apperrors"
	"github.com/menswear-india/storefront-service/internal/clients"
	"github.com/menswear-india/storefront-service/internal/config"
	"github.com/menswear-india/storefront-service/internal/events"
	"github.com/menswear-india/storefront-service/internal/logging"
	"github.com/menswear-india/storefront-service/internal/metrics"
	"github.com/menswear-india/storefront-service/internal/models"
	"github.com/menswear-india/storefront-service/internal/repository"
	"github.com/menswear-india/storefront-service/internal/tax"
)

type refundRecorder struct {
	*clients.MockPaymentClient
	mu      sync.Mutex
	refunds []string
}

func (r *refundRecorder) Refund(ctx context.Context, req *clients.RefundRequest) (*clients.RefundResponse, error) {
	r.mu.Lock()
	r.refunds = append(r.refunds, req.PaymentID)
	r.mu.Unlock()
	return r.MockPaymentClient.Refund(ctx, req)
}

type checkoutHarness struct {
	svc           *CheckoutService
	settings      *repository.MemoryTaxSettingsRepository
	orders        *fakeOrderRepo
	cache         *fakeOrderCache
	carts         *fakeCartStore
	payments      *refundRecorder
	notifications *clients.MockNotificationClient
	publisher     *events.MockEventPublisher
	metrics       *metrics.Metrics
	cfg           *config.Config
}

func testConfig() *config.Config {
	return &config.Config{
		Features: config.FeatureFlags{
			EnableOrderCaching: true,
			EnableOrderEvents:  true,
		},
	}
}

func seedRates(t *testing.T, repo repository.TaxSettingsRepository) {
	t.Helper()
	require.NoError(t, repo.SeedTaxSettings(context.Background(), []*models.TaxSetting{
		{Name: tax.SettingLocal, Percentage: dec("5")},
		{Name: tax.SettingInterstate, Percentage: dec("12")},
		{Name: tax.SettingInternational, Percentage: dec("18")},
	}))
}

func newCheckoutHarness(t *testing.T) *checkoutHarness {
	t.Helper()

	h := &checkoutHarness{
		settings:      repository.NewMemoryTaxSettingsRepository(),
		orders:        newFakeOrderRepo(),
		cache:         newFakeOrderCache(),
		carts:         newFakeCartStore(),
		payments:      &refundRecorder{MockPaymentClient: clients.NewMockPaymentClient()},
		notifications: clients.NewMockNotificationClient(),
		publisher:     events.NewMockEventPublisher(),
		metrics:       metrics.New(),
		cfg:           testConfig(),
	}
	seedRates(t, h.settings)

	h.svc = newCheckoutService(h, h.settings)
	return h
}

func newCheckoutService(h *checkoutHarness, settings tax.SettingsReader) *CheckoutService {
	return NewCheckoutService(
		tax.NewLoader(settings, logging.NewNopLogger()),
		tax.NewResolver(tax.StateAndhraPradesh),
		NewOrderAmountCalculator(DefaultShippingPolicy()),
		h.orders,
		h.cache,
		h.carts,
		h.payments,
		h.notifications,
		h.publisher,
		h.metrics,
		h.cfg,
	)
}

func counterValue(t *testing.T, m *metrics.Metrics, name string, labels map[string]string) float64 {
	t.Helper()

	families, err := m.Registry().Gather()
	require.NoError(t, err)

	for _, mf := range families {
		if mf.GetName() != name {
			continue
		}
	metricLoop:
		for _, metric := range mf.GetMetric() {
			for _, pair := range metric.GetLabel() {
				if want, ok := labels[pair.GetName()]; ok && want != pair.GetValue() {
					continue metricLoop
				}
			}
			return metric.GetCounter().GetValue()
		}
	}
	return 0
}

func karnatakaAddress() models.Address {
	return models.Address{
		Name:    "Ravi Kumar",
		Phone:   "+919876543210",
		Email:   "ravi@example.com",
		Address: "12 MG Road",
		City:    "Bengaluru",
		State:   "Karnataka",
		Country: "India",
		Pincode: "560001",
	}
}

func kurta(qty int, price string) models.OrderItem {
	return models.OrderItem{
		ProductID:   "prod-kurta",
		ProductName: "Linen Kurta",
		Quantity:    qty,
		Price:       dec(price),
		Size:        "L",
	}
}

func placeOrderRequest(items ...models.OrderItem) *PlaceOrderRequest {
	return &PlaceOrderRequest{
		UserID:          "user_42",
		Items:           items,
		ShippingAddress: karnatakaAddress(),
		PaymentMethod:   "upi",
	}
}

func TestCheckoutService_QuoteScenarios(t *testing.T) {
	h := newCheckoutHarness(t)

	tests := []struct {
		name     string
		subtotal string
		state    string
		country  string
		category tax.Category
		label    string
		tax      string
		total    string
	}{
		{"home state", "1000", "Andhra Pradesh", "India", tax.CategoryLocal, "GST (local)", "50.00", "1050.00"},
		{"other state", "1000", "Karnataka", "India", tax.CategoryInterstate, "IGST", "120.00", "1120.00"},
		{"abroad", "2000", "California", "United States", tax.CategoryInternational, "International GST", "360.00", "2360.00"},
		{"short code lower case", "500", "AP", "india", tax.CategoryLocal, "GST (local)", "25.00", "525.00"},
		{"zero subtotal", "0", "Karnataka", "India", tax.CategoryInterstate, "IGST", "0.00", "0.00"},
		{"padded input", "1000", "  andhra   PRADESH ", " INDIA ", tax.CategoryLocal, "GST (local)", "50.00", "1050.00"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			subtotal := dec(tt.subtotal)
			quote, err := h.svc.Quote(context.Background(), &QuoteRequest{
				Subtotal: &subtotal,
				State:    tt.state,
				Country:  tt.country,
			})
			require.NoError(t, err)

			assert.Equal(t, tt.category, quote.Category)
			assert.Equal(t, tt.label, quote.GSTLabel)
			assert.True(t, quote.Configured)
			assert.Equal(t, tt.tax, quote.TaxAmount.StringFixed(2))
			assert.Equal(t, tt.total, quote.Total.StringFixed(2))
			assert.True(t, quote.GrandTotal.Equal(quote.Total.Add(quote.ShippingFee)))
			assert.True(t, quote.CartTotal.Equal(quote.Subtotal.Add(quote.ShippingFee)))
		})
	}

	assert.Equal(t, float64(3), counterValue(t, h.metrics, "storefront_tax_resolutions_total", map[string]string{"category": "LOCAL"}))
}

func TestCheckoutService_QuoteFromItems(t *testing.T) {
	h := newCheckoutHarness(t)

	quote, err := h.svc.Quote(context.Background(), &QuoteRequest{
		Items:   []models.OrderItem{kurta(2, "999.50"), kurta(1, "1.00")},
		State:   "Karnataka",
		Country: "India",
	})
	require.NoError(t, err)

	assert.Equal(t, "2000.00", quote.Subtotal.StringFixed(2))
	assert.True(t, quote.ShippingFee.IsZero())
	assert.Equal(t, "240.00", quote.TaxAmount.StringFixed(2))
	assert.Equal(t, "2240.00", quote.GrandTotal.StringFixed(2))
}

func TestCheckoutService_QuoteMissingRateFallsBackToZero(t *testing.T) {
	h := newCheckoutHarness(t)
	h.settings.Delete(tax.SettingInterstate)

	subtotal := dec("1000")
	quote, err := h.svc.Quote(context.Background(), &QuoteRequest{
		Subtotal: &subtotal,
		State:    "Karnataka",
		Country:  "India",
	})
	require.NoError(t, err)

	assert.False(t, quote.Configured)
	assert.Equal(t, "0.00", quote.TaxAmount.StringFixed(2))
	assert.Equal(t, "1000.00", quote.Total.StringFixed(2))
	assert.Equal(t, float64(1), counterValue(t, h.metrics, "storefront_tax_missing_rate_total", map[string]string{"category": "INTERSTATE"}))
}

func TestCheckoutService_QuoteErrors(t *testing.T) {
	h := newCheckoutHarness(t)
	subtotal := dec("1000")

	_, err := h.svc.Quote(context.Background(), &QuoteRequest{Subtotal: &subtotal, State: "Karnataka"})
	assert.True(t, apperrors.IsValidation(err))

	negative := dec("-1")
	_, err = h.svc.Quote(context.Background(), &QuoteRequest{Subtotal: &negative, Country: "India"})
	assert.True(t, apperrors.IsValidation(err))

	_, err = h.svc.Quote(context.Background(), &QuoteRequest{Country: "India"})
	assert.True(t, apperrors.IsValidation(err))

	h.svc = newCheckoutService(h, failingSettings{})
	_, err = h.svc.Quote(context.Background(), &QuoteRequest{Subtotal: &subtotal, Country: "India", State: "Goa"})
	assert.True(t, apperrors.IsPersistence(err))
	assert.True(t, errors.Is(err, errStoreDown))
}

func TestCheckoutService_PlaceOrder(t *testing.T) {
	h := newCheckoutHarness(t)

	order, err := h.svc.PlaceOrder(context.Background(), placeOrderRequest(kurta(1, "1000")))
	require.NoError(t, err)

	assert.True(t, strings.HasPrefix(order.OrderNumber, "ORD-"))
	assert.Equal(t, models.OrderStatusConfirmed, order.Status)
	assert.Equal(t, models.PaymentStatusPaid, order.PaymentStatus)
	assert.NotEmpty(t, order.PaymentID)
	assert.Equal(t, "INTERSTATE", order.TaxCategory)
	assert.Equal(t, "IGST", order.GSTLabel)
	assert.Equal(t, "1000.00", order.Subtotal.StringFixed(2))
	assert.Equal(t, "12", order.GSTRate.String())
	assert.Equal(t, "120.00", order.GSTAmount.StringFixed(2))
	assert.Equal(t, "99.00", order.ShippingAmount.StringFixed(2))
	assert.Equal(t, "1120.00", order.TotalAmount.StringFixed(2))

	stored, err := h.orders.GetByID(context.Background(), order.ID)
	require.NoError(t, err)
	assert.True(t, stored.TotalAmount.Equal(order.TotalAmount))
	assert.Equal(t, "Linen Kurta", stored.Items[0].ProductName)

	assert.True(t, h.cache.cached(order.ID))
	assert.Equal(t, []events.EventType{events.EventTypeOrderCreated}, h.publisher.Types())
	assert.Equal(t, float64(1), counterValue(t, h.metrics, "storefront_orders_created_total", map[string]string{"category": "INTERSTATE"}))

	assert.Eventually(t, func() bool {
		return len(h.notifications.Notifications()) == 1 && len(h.notifications.Emails()) == 1
	}, time.Second, 10*time.Millisecond)
	assert.Equal(t, []string{clients.NotificationOrderConfirmed}, h.notifications.Notifications())
}

func TestCheckoutService_PlaceOrderChargesShippingWhenEnabled(t *testing.T) {
	h := newCheckoutHarness(t)
	h.cfg.Features.ChargeShippingAtCheckout = true

	order, err := h.svc.PlaceOrder(context.Background(), placeOrderRequest(kurta(1, "1000")))
	require.NoError(t, err)

	assert.Equal(t, "1219.00", order.TotalAmount.StringFixed(2))

	payment, err := h.payments.GetPaymentStatus(context.Background(), order.PaymentID)
	require.NoError(t, err)
	assert.Equal(t, "1219.00", payment.Amount.StringFixed(2))
}

func TestCheckoutService_RateChangeDoesNotAlterPersistedOrder(t *testing.T) {
	h := newCheckoutHarness(t)
	ctx := context.Background()

	order, err := h.svc.PlaceOrder(ctx, placeOrderRequest(kurta(1, "1000")))
	require.NoError(t, err)

	settings := NewTaxSettingsService(h.settings, logging.NewNopLogger())
	eighteen := dec("18")
	_, err = settings.UpdateSetting(ctx, tax.SettingInterstate, &models.UpdateTaxSettingRequest{Percentage: &eighteen})
	require.NoError(t, err)

	stored, err := h.orders.GetByID(ctx, order.ID)
	require.NoError(t, err)
	assert.Equal(t, "120.00", stored.GSTAmount.StringFixed(2))
	assert.Equal(t, "1120.00", stored.TotalAmount.StringFixed(2))

	subtotal := dec("1000")
	quote, err := h.svc.Quote(ctx, &QuoteRequest{Subtotal: &subtotal, State: "Karnataka", Country: "India"})
	require.NoError(t, err)
	assert.Equal(t, "180.00", quote.TaxAmount.StringFixed(2))
}

func TestCheckoutService_PlaceOrderInvalidAddress(t *testing.T) {
	h := newCheckoutHarness(t)

	req := placeOrderRequest(kurta(1, "1000"))
	req.ShippingAddress.State = "Atlantis"

	_, err := h.svc.PlaceOrder(context.Background(), req)
	require.Error(t, err)

	var addrErr *apperrors.InvalidAddressError
	require.True(t, errors.As(err, &addrErr))
	assert.Equal(t, "shipping_address.state", addrErr.Field)

	assert.Equal(t, 0, h.payments.Charges())
	assert.Empty(t, h.publisher.Types())
	assert.Equal(t, float64(1), counterValue(t, h.metrics, "storefront_checkout_failures_total", map[string]string{"reason": "invalid_address"}))
}

func TestCheckoutService_PlaceOrderValidation(t *testing.T) {
	h := newCheckoutHarness(t)

	tests := []struct {
		name   string
		mutate func(r *PlaceOrderRequest)
	}{
		{"missing user", func(r *PlaceOrderRequest) { r.UserID = "" }},
		{"bad quantity", func(r *PlaceOrderRequest) { r.Items[0].Quantity = 0 }},
		{"unknown payment method", func(r *PlaceOrderRequest) { r.PaymentMethod = "cheque" }},
		{"missing country", func(r *PlaceOrderRequest) { r.ShippingAddress.Country = "" }},
		{"bad pincode", func(r *PlaceOrderRequest) { r.ShippingAddress.Pincode = "0123" }},
		{"empty cart", func(r *PlaceOrderRequest) { r.Items = nil }},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req := placeOrderRequest(kurta(1, "1000"))
			tt.mutate(req)

			_, err := h.svc.PlaceOrder(context.Background(), req)
			assert.True(t, apperrors.IsValidation(err), "got %v", err)
		})
	}

	assert.Equal(t, 0, h.payments.Charges())
}

func TestCheckoutService_PlaceOrderPaymentDeclined(t *testing.T) {
	h := newCheckoutHarness(t)
	h.payments.DeclineAbove = dec("500")

	_, err := h.svc.PlaceOrder(context.Background(), placeOrderRequest(kurta(1, "1000")))
	assert.ErrorIs(t, err, apperrors.ErrPaymentDeclined)

	orders, total, err := h.orders.List(context.Background(), &models.OrderListFilter{Limit: 10})
	require.NoError(t, err)
	assert.Zero(t, total)
	assert.Empty(t, orders)
	assert.Equal(t, float64(1), counterValue(t, h.metrics, "storefront_checkout_failures_total", map[string]string{"reason": "payment_declined"}))
}

func TestCheckoutService_PlaceOrderPersistenceFailure(t *testing.T) {
	h := newCheckoutHarness(t)
	h.orders.createErr = errors.New("database is closed")

	order, err := h.svc.PlaceOrder(context.Background(), placeOrderRequest(kurta(1, "1000")))
	assert.Nil(t, order)
	require.Error(t, err)
	assert.True(t, apperrors.IsPersistence(err))

	require.Len(t, h.payments.refunds, 1)
	payment, err := h.payments.GetPaymentStatus(context.Background(), h.payments.refunds[0])
	require.NoError(t, err)
	assert.Equal(t, clients.GatewayStatusRefunded, payment.Status)

	assert.Empty(t, h.publisher.Types())
	assert.Equal(t, float64(1), counterValue(t, h.metrics, "storefront_checkout_failures_total", map[string]string{"reason": "persistence"}))
}

func TestCheckoutService_PlaceOrderRateTableUnavailable(t *testing.T) {
	h := newCheckoutHarness(t)
	h.svc = newCheckoutService(h, failingSettings{})

	_, err := h.svc.PlaceOrder(context.Background(), placeOrderRequest(kurta(1, "1000")))
	assert.True(t, apperrors.IsPersistence(err))
	assert.Equal(t, 0, h.payments.Charges())
}

func TestCheckoutService_PlaceOrderWithoutConfiguredRate(t *testing.T) {
	h := newCheckoutHarness(t)
	h.settings.Delete(tax.SettingInterstate)

	order, err := h.svc.PlaceOrder(context.Background(), placeOrderRequest(kurta(1, "1000")))
	require.NoError(t, err)

	assert.True(t, order.GSTAmount.IsZero())
	assert.Equal(t, "1000.00", order.TotalAmount.StringFixed(2))
}

func TestCheckoutService_PlaceOrderFromCart(t *testing.T) {
	h := newCheckoutHarness(t)
	ctx := context.Background()

	_, err := h.carts.Update(ctx, "user_42", func(cart *models.Cart) error {
		cart.Add(models.CartItem{ProductID: "prod-shirt", ProductName: "Oxford Shirt", Price: dec("1499"), Quantity: 2, Size: "M"})
		return nil
	})
	require.NoError(t, err)

	order, err := h.svc.PlaceOrder(ctx, placeOrderRequest())
	require.NoError(t, err)

	require.Len(t, order.Items, 1)
	assert.Equal(t, "Oxford Shirt", order.Items[0].ProductName)
	assert.Equal(t, "2998.00", order.Subtotal.StringFixed(2))
	assert.True(t, order.ShippingAmount.IsZero())
	assert.Equal(t, "359.76", order.GSTAmount.StringFixed(2))

	cart, err := h.carts.Get(ctx, "user_42")
	require.NoError(t, err)
	assert.Empty(t, cart.Items)
}

func TestCheckoutService_ExplicitItemsLeaveCartAlone(t *testing.T) {
	h := newCheckoutHarness(t)
	ctx := context.Background()

	_, err := h.carts.Update(ctx, "user_42", func(cart *models.Cart) error {
		cart.Add(models.CartItem{ProductID: "prod-shirt", Price: dec("1499"), Quantity: 1})
		return nil
	})
	require.NoError(t, err)

	_, err = h.svc.PlaceOrder(ctx, placeOrderRequest(kurta(1, "1000")))
	require.NoError(t, err)

	cart, err := h.carts.Get(ctx, "user_42")
	require.NoError(t, err)
	assert.Len(t, cart.Items, 1)
}
