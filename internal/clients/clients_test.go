package clients

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/menswear-india/storefront-service/internal/apperrors"
	"github.com/menswear-india/storefront-service/internal/config"
	"github.com/menswear-india/storefront-service/internal/logging"
)

func newPaymentClient(t *testing.T, handler http.HandlerFunc) *HTTPPaymentClient {
	t.Helper()
	srv := httptest.NewServer(handler)
	t.Cleanup(srv.Close)
	return NewHTTPPaymentClient(config.ServiceConfig{
		BaseURL: srv.URL,
		APIKey:  "secret",
		Timeout: 5 * time.Second,
	}, logging.NewNopLogger())
}

func TestHTTPPaymentClient_Charge(t *testing.T) {
	client := newPaymentClient(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, http.MethodPost, r.Method)
		assert.Equal(t, "/api/v1/payments", r.URL.Path)
		assert.Equal(t, "Bearer secret", r.Header.Get("Authorization"))

		var req ChargeRequest
		require.NoError(t, json.NewDecoder(r.Body).Decode(&req))
		assert.True(t, req.Amount.Equal(decimal.RequireFromString("1120.00")))
		assert.Equal(t, Currency, req.Currency)

		w.WriteHeader(http.StatusCreated)
		json.NewEncoder(w).Encode(ChargeResponse{PaymentID: "pay_1", Status: GatewayStatusCompleted})
	})

	resp, err := client.Charge(context.Background(), &ChargeRequest{
		OrderNumber: "ORD-1",
		UserID:      "user_42",
		Amount:      decimal.RequireFromString("1120.00"),
		Method:      "upi",
	})
	require.NoError(t, err)
	assert.Equal(t, "pay_1", resp.PaymentID)
}

func TestHTTPPaymentClient_ChargeDeclined(t *testing.T) {
	client := newPaymentClient(t, func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusPaymentRequired)
	})

	_, err := client.Charge(context.Background(), &ChargeRequest{Amount: decimal.NewFromInt(10)})
	assert.ErrorIs(t, err, apperrors.ErrPaymentDeclined)
}

func TestHTTPPaymentClient_ChargeFailedStatus(t *testing.T) {
	client := newPaymentClient(t, func(w http.ResponseWriter, r *http.Request) {
		json.NewEncoder(w).Encode(ChargeResponse{Status: GatewayStatusFailed, Message: "insufficient funds"})
	})

	_, err := client.Charge(context.Background(), &ChargeRequest{Amount: decimal.NewFromInt(10)})
	assert.ErrorIs(t, err, apperrors.ErrPaymentDeclined)
}

func TestHTTPPaymentClient_ChargeServerError(t *testing.T) {
	client := newPaymentClient(t, func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusBadGateway)
	})

	_, err := client.Charge(context.Background(), &ChargeRequest{Amount: decimal.NewFromInt(10)})
	require.Error(t, err)
	assert.NotErrorIs(t, err, apperrors.ErrPaymentDeclined)
}

func TestHTTPPaymentClient_GetPaymentStatusNotFound(t *testing.T) {
	client := newPaymentClient(t, func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusNotFound)
	})

	payment, err := client.GetPaymentStatus(context.Background(), "pay_missing")
	require.NoError(t, err)
	assert.Nil(t, payment)
}

func TestHTTPPaymentClient_Refund(t *testing.T) {
	client := newPaymentClient(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/api/v1/payments/pay_1/refund", r.URL.Path)
		json.NewEncoder(w).Encode(RefundResponse{RefundID: "ref_1", PaymentID: "pay_1", Status: GatewayStatusRefunded})
	})

	resp, err := client.Refund(context.Background(), &RefundRequest{PaymentID: "pay_1", Amount: decimal.NewFromInt(500)})
	require.NoError(t, err)
	assert.Equal(t, "ref_1", resp.RefundID)
}

func TestMockPaymentClient(t *testing.T) {
	m := NewMockPaymentClient()
	m.DeclineAbove = decimal.NewFromInt(10000)
	ctx := context.Background()

	resp, err := m.Charge(ctx, &ChargeRequest{Amount: decimal.NewFromInt(1050)})
	require.NoError(t, err)

	payment, err := m.GetPaymentStatus(ctx, resp.PaymentID)
	require.NoError(t, err)
	assert.Equal(t, GatewayStatusCompleted, payment.Status)

	_, err = m.Charge(ctx, &ChargeRequest{Amount: decimal.NewFromInt(12000)})
	assert.ErrorIs(t, err, apperrors.ErrPaymentDeclined)
	assert.Equal(t, 1, m.Charges())
}

func TestHTTPNotificationClient(t *testing.T) {
	var paths []string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		paths = append(paths, r.URL.Path)
		w.WriteHeader(http.StatusAccepted)
	}))
	defer srv.Close()

	client := NewHTTPNotificationClient(config.ServiceConfig{BaseURL: srv.URL, Timeout: time.Second}, logging.NewNopLogger())
	ctx := context.Background()

	require.NoError(t, client.SendNotification(ctx, &Notification{UserID: "user_42", Type: NotificationOrderConfirmed}))
	require.NoError(t, client.SendEmail(ctx, &SendEmailRequest{To: "ravi@example.in", Template: NotificationOrderConfirmed}))
	require.NoError(t, client.SendSMS(ctx, &SendSMSRequest{To: "+919800000000", Template: NotificationOrderShipped}))

	assert.Equal(t, []string{
		"/api/v1/notifications",
		"/api/v1/notifications/email",
		"/api/v1/notifications/sms",
	}, paths)
}

func TestHTTPNotificationClient_Error(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusInternalServerError)
	}))
	defer srv.Close()

	client := NewHTTPNotificationClient(config.ServiceConfig{BaseURL: srv.URL, Timeout: time.Second}, logging.NewNopLogger())
	err := client.SendNotification(context.Background(), &Notification{UserID: "user_42"})
	assert.Error(t, err)
}
