package clients

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/menswear-india/storefront-service/internal/apperrors"
	"github.com/menswear-india/storefront-service/internal/config"
	"github.com/menswear-india/storefront-service/internal/logging"
)

// Currency is the only currency the storefront charges in.
const Currency = "INR"

// Payment statuses reported by the gateway.
const (
	GatewayStatusCompleted = "completed"
	GatewayStatusPending   = "pending"
	GatewayStatusFailed    = "failed"
	GatewayStatusRefunded  = "refunded"
	GatewayStatusCancelled = "cancelled"
)

// PaymentClient is the payment gateway collaborator. Capture and settlement
// happen on the gateway side.
type PaymentClient interface {
	Charge(ctx context.Context, req *ChargeRequest) (*ChargeResponse, error)
	GetPaymentStatus(ctx context.Context, paymentID string) (*Payment, error)
	Refund(ctx context.Context, req *RefundRequest) (*RefundResponse, error)
	CancelPayment(ctx context.Context, paymentID string) error
}

// ChargeRequest asks the gateway to collect Amount for an order.
type ChargeRequest struct {
	OrderNumber string          `json:"order_number"`
	UserID      string          `json:"user_id"`
	Amount      decimal.Decimal `json:"amount"`
	Currency    string          `json:"currency"`
	Method      string          `json:"method"`
}

type ChargeResponse struct {
	PaymentID string `json:"payment_id"`
	Status    string `json:"status"`
	Message   string `json:"message,omitempty"`
}

type Payment struct {
	ID          string          `json:"id"`
	OrderNumber string          `json:"order_number"`
	Amount      decimal.Decimal `json:"amount"`
	Currency    string          `json:"currency"`
	Method      string          `json:"method"`
	Status      string          `json:"status"`
	CreatedAt   time.Time       `json:"created_at"`
}

type RefundRequest struct {
	PaymentID string          `json:"payment_id"`
	Amount    decimal.Decimal `json:"amount"`
	Reason    string          `json:"reason"`
}

type RefundResponse struct {
	RefundID  string          `json:"refund_id"`
	PaymentID string          `json:"payment_id"`
	Amount    decimal.Decimal `json:"amount"`
	Status    string          `json:"status"`
}

// Ensure HTTPPaymentClient implements PaymentClient
var _ PaymentClient = (*HTTPPaymentClient)(nil)

// HTTPPaymentClient implements PaymentClient using HTTP.
type HTTPPaymentClient struct {
	baseURL    string
	httpClient *http.Client
	apiKey     string
	logger     *logging.Logger
}

// NewHTTPPaymentClient creates a new HTTP-based payment client.
func NewHTTPPaymentClient(cfg config.ServiceConfig, logger *logging.Logger) *HTTPPaymentClient {
	return &HTTPPaymentClient{
		baseURL: cfg.BaseURL,
		httpClient: &http.Client{
			Timeout: cfg.Timeout,
		},
		apiKey: cfg.APIKey,
		logger: logger,
	}
}

// Charge collects payment for an order. A gateway refusal is reported as
// apperrors.ErrPaymentDeclined.
func (c *HTTPPaymentClient) Charge(ctx context.Context, req *ChargeRequest) (*ChargeResponse, error) {
	c.logger.Debug("Charging payment", logging.Fields{
		"order_number": req.OrderNumber,
		"amount":       req.Amount.StringFixed(2),
		"method":       req.Method,
	})

	if req.Currency == "" {
		req.Currency = Currency
	}

	body, err := json.Marshal(req)
	if err != nil {
		return nil, err
	}

	url := fmt.Sprintf("%s/api/v1/payments", c.baseURL)
	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(body))
	if err != nil {
		return nil, err
	}

	c.setHeaders(httpReq)

	resp, err := c.httpClient.Do(httpReq)
	if err != nil {
		c.logger.Error("Payment request failed", logging.Fields{
			"order_number": req.OrderNumber,
			"error":        err.Error(),
		})
		return nil, err
	}
	defer resp.Body.Close()

	if resp.StatusCode == http.StatusPaymentRequired {
		return nil, apperrors.ErrPaymentDeclined
	}
	if resp.StatusCode != http.StatusOK && resp.StatusCode != http.StatusCreated {
		c.logger.Error("Payment request returned error", logging.Fields{
			"order_number": req.OrderNumber,
			"status_code":  resp.StatusCode,
		})
		return nil, fmt.Errorf("payment service returned status %d", resp.StatusCode)
	}

	var result ChargeResponse
	if err := json.NewDecoder(resp.Body).Decode(&result); err != nil {
		return nil, err
	}
	if result.Status == GatewayStatusFailed {
		return nil, fmt.Errorf("%w: %s", apperrors.ErrPaymentDeclined, result.Message)
	}

	c.logger.Info("Payment charged", logging.Fields{
		"order_number": req.OrderNumber,
		"payment_id":   result.PaymentID,
		"status":       result.Status,
	})

	return &result, nil
}

// GetPaymentStatus retrieves the current status of a payment. An unknown
// payment returns nil, nil.
func (c *HTTPPaymentClient) GetPaymentStatus(ctx context.Context, paymentID string) (*Payment, error) {
	c.logger.Debug("Getting payment status", logging.Fields{"payment_id": paymentID})

	url := fmt.Sprintf("%s/api/v1/payments/%s", c.baseURL, paymentID)
	httpReq, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return nil, err
	}

	c.setHeaders(httpReq)

	resp, err := c.httpClient.Do(httpReq)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	if resp.StatusCode == http.StatusNotFound {
		return nil, nil
	}

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("payment service returned status %d", resp.StatusCode)
	}

	var payment Payment
	if err := json.NewDecoder(resp.Body).Decode(&payment); err != nil {
		return nil, err
	}

	return &payment, nil
}

// Refund returns money for a captured payment.
func (c *HTTPPaymentClient) Refund(ctx context.Context, req *RefundRequest) (*RefundResponse, error) {
	c.logger.Debug("Processing refund", logging.Fields{
		"payment_id": req.PaymentID,
		"amount":     req.Amount.StringFixed(2),
		"reason":     req.Reason,
	})

	body, err := json.Marshal(req)
	if err != nil {
		return nil, err
	}

	url := fmt.Sprintf("%s/api/v1/payments/%s/refund", c.baseURL, req.PaymentID)
	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(body))
	if err != nil {
		return nil, err
	}

	c.setHeaders(httpReq)

	resp, err := c.httpClient.Do(httpReq)
	if err != nil {
		c.logger.Error("Refund request failed", logging.Fields{
			"payment_id": req.PaymentID,
			"error":      err.Error(),
		})
		return nil, err
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("refund service returned status %d", resp.StatusCode)
	}

	var result RefundResponse
	if err := json.NewDecoder(resp.Body).Decode(&result); err != nil {
		return nil, err
	}

	c.logger.Info("Refund processed", logging.Fields{
		"payment_id": req.PaymentID,
		"refund_id":  result.RefundID,
		"status":     result.Status,
	})

	return &result, nil
}

// CancelPayment cancels a pending payment.
func (c *HTTPPaymentClient) CancelPayment(ctx context.Context, paymentID string) error {
	c.logger.Debug("Cancelling payment", logging.Fields{"payment_id": paymentID})

	url := fmt.Sprintf("%s/api/v1/payments/%s/cancel", c.baseURL, paymentID)
	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, url, nil)
	if err != nil {
		return err
	}

	c.setHeaders(httpReq)

	resp, err := c.httpClient.Do(httpReq)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK && resp.StatusCode != http.StatusNoContent {
		return fmt.Errorf("cancel payment returned status %d", resp.StatusCode)
	}

	c.logger.Info("Payment cancelled", logging.Fields{"payment_id": paymentID})
	return nil
}

func (c *HTTPPaymentClient) setHeaders(req *http.Request) {
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Accept", "application/json")

	if c.apiKey != "" {
		req.Header.Set("Authorization", "Bearer "+c.apiKey)
	}
}

// MockPaymentClient is an in-memory gateway for tests and local runs.
// Charges at or above DeclineAbove (when set) are declined.
type MockPaymentClient struct {
	mu           sync.Mutex
	payments     map[string]*Payment
	DeclineAbove decimal.Decimal
	Err          error
}

// NewMockPaymentClient creates a mock payment client.
func NewMockPaymentClient() *MockPaymentClient {
	return &MockPaymentClient{
		payments: make(map[string]*Payment),
	}
}

func (m *MockPaymentClient) Charge(ctx context.Context, req *ChargeRequest) (*ChargeResponse, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.Err != nil {
		return nil, m.Err
	}
	if m.DeclineAbove.IsPositive() && req.Amount.GreaterThanOrEqual(m.DeclineAbove) {
		return nil, apperrors.ErrPaymentDeclined
	}

	paymentID := "pay_" + uuid.NewString()
	m.payments[paymentID] = &Payment{
		ID:          paymentID,
		OrderNumber: req.OrderNumber,
		Amount:      req.Amount,
		Currency:    Currency,
		Method:      req.Method,
		Status:      GatewayStatusCompleted,
		CreatedAt:   time.Now(),
	}

	return &ChargeResponse{
		PaymentID: paymentID,
		Status:    GatewayStatusCompleted,
	}, nil
}

func (m *MockPaymentClient) GetPaymentStatus(ctx context.Context, paymentID string) (*Payment, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	if payment, ok := m.payments[paymentID]; ok {
		p := *payment
		return &p, nil
	}
	return nil, nil
}

func (m *MockPaymentClient) Refund(ctx context.Context, req *RefundRequest) (*RefundResponse, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	if payment, ok := m.payments[req.PaymentID]; ok {
		payment.Status = GatewayStatusRefunded
	}
	return &RefundResponse{
		RefundID:  "ref_" + uuid.NewString(),
		PaymentID: req.PaymentID,
		Amount:    req.Amount,
		Status:    GatewayStatusRefunded,
	}, nil
}

func (m *MockPaymentClient) CancelPayment(ctx context.Context, paymentID string) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if payment, ok := m.payments[paymentID]; ok {
		payment.Status = GatewayStatusCancelled
	}
	return nil
}

// Charges returns the number of successful charges.
func (m *MockPaymentClient) Charges() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.payments)
}
