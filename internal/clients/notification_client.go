package clients

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"sync"

	"github.com/menswear-india/storefront-service/internal/config"
	"github.com/menswear-india/storefront-service/internal/logging"
)

// Notification types sent for order lifecycle events.
const (
	NotificationOrderConfirmed = "order_confirmed"
	NotificationOrderShipped   = "order_shipped"
	NotificationOrderCancelled = "order_cancelled"
)

// NotificationSender delivers customer notifications.
type NotificationSender interface {
	SendNotification(ctx context.Context, notification *Notification) error
	SendEmail(ctx context.Context, req *SendEmailRequest) error
	SendSMS(ctx context.Context, req *SendSMSRequest) error
}

// Notification is an in-app notification for a user.
type Notification struct {
	UserID  string                 `json:"user_id"`
	Type    string                 `json:"type"`
	Channel string                 `json:"channel"`
	Title   string                 `json:"title"`
	Message string                 `json:"message"`
	Data    map[string]interface{} `json:"data,omitempty"`
}

type SendEmailRequest struct {
	To       string                 `json:"to"`
	Template string                 `json:"template"`
	Data     map[string]interface{} `json:"data,omitempty"`
}

type SendSMSRequest struct {
	To       string                 `json:"to"`
	Template string                 `json:"template"`
	Data     map[string]interface{} `json:"data,omitempty"`
}

// Ensure HTTPNotificationClient implements NotificationSender
var _ NotificationSender = (*HTTPNotificationClient)(nil)

// HTTPNotificationClient implements NotificationSender using HTTP.
type HTTPNotificationClient struct {
	baseURL    string
	httpClient *http.Client
	apiKey     string
	logger     *logging.Logger
}

// NewHTTPNotificationClient creates a new HTTP-based notification client.
func NewHTTPNotificationClient(cfg config.ServiceConfig, logger *logging.Logger) *HTTPNotificationClient {
	return &HTTPNotificationClient{
		baseURL: cfg.BaseURL,
		httpClient: &http.Client{
			Timeout: cfg.Timeout,
		},
		apiKey: cfg.APIKey,
		logger: logger,
	}
}

// SendNotification sends a notification to a user.
func (c *HTTPNotificationClient) SendNotification(ctx context.Context, notification *Notification) error {
	c.logger.Debug("Sending notification", logging.Fields{
		"user_id": notification.UserID,
		"type":    notification.Type,
		"channel": notification.Channel,
	})

	if err := c.post(ctx, "/api/v1/notifications", notification); err != nil {
		c.logger.Error("Failed to send notification", logging.Fields{
			"user_id": notification.UserID,
			"error":   err.Error(),
		})
		return err
	}

	c.logger.Info("Notification sent", logging.Fields{
		"user_id": notification.UserID,
		"type":    notification.Type,
	})
	return nil
}

// SendEmail sends an email notification.
func (c *HTTPNotificationClient) SendEmail(ctx context.Context, req *SendEmailRequest) error {
	c.logger.Debug("Sending email", logging.Fields{
		"to":       req.To,
		"template": req.Template,
	})

	if err := c.post(ctx, "/api/v1/notifications/email", req); err != nil {
		return err
	}

	c.logger.Info("Email sent", logging.Fields{"to": req.To})
	return nil
}

// SendSMS sends an SMS notification.
func (c *HTTPNotificationClient) SendSMS(ctx context.Context, req *SendSMSRequest) error {
	c.logger.Debug("Sending SMS", logging.Fields{
		"to":       req.To,
		"template": req.Template,
	})

	if err := c.post(ctx, "/api/v1/notifications/sms", req); err != nil {
		return err
	}

	c.logger.Info("SMS sent", logging.Fields{"to": req.To})
	return nil
}

func (c *HTTPNotificationClient) post(ctx context.Context, path string, payload interface{}) error {
	body, err := json.Marshal(payload)
	if err != nil {
		return err
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+path, bytes.NewReader(body))
	if err != nil {
		return err
	}

	c.setHeaders(req)

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK && resp.StatusCode != http.StatusAccepted {
		return fmt.Errorf("notification service returned status %d", resp.StatusCode)
	}
	return nil
}

func (c *HTTPNotificationClient) setHeaders(req *http.Request) {
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Accept", "application/json")

	if c.apiKey != "" {
		req.Header.Set("Authorization", "Bearer "+c.apiKey)
	}
}

// MockNotificationClient records everything it is asked to send.
type MockNotificationClient struct {
	mu            sync.Mutex
	notifications []*Notification
	emails        []*SendEmailRequest
	sms           []*SendSMSRequest
}

// NewMockNotificationClient creates a mock notification client.
func NewMockNotificationClient() *MockNotificationClient {
	return &MockNotificationClient{}
}

func (m *MockNotificationClient) SendNotification(ctx context.Context, notification *Notification) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.notifications = append(m.notifications, notification)
	return nil
}

func (m *MockNotificationClient) SendEmail(ctx context.Context, req *SendEmailRequest) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.emails = append(m.emails, req)
	return nil
}

func (m *MockNotificationClient) SendSMS(ctx context.Context, req *SendSMSRequest) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.sms = append(m.sms, req)
	return nil
}

// Notifications returns the types of notifications sent so far, in order.
func (m *MockNotificationClient) Notifications() []string {
	m.mu.Lock()
	defer m.mu.Unlock()

	types := make([]string, len(m.notifications))
	for i, n := range m.notifications {
		types[i] = n.Type
	}
	return types
}

// Emails returns the recipients of emails sent so far.
func (m *MockNotificationClient) Emails() []string {
	m.mu.Lock()
	defer m.mu.Unlock()

	to := make([]string, len(m.emails))
	for i, e := range m.emails {
		to[i] = e.To
	}
	return to
}
