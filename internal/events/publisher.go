package events

import (
	"context"
	"encoding/json"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/segmentio/kafka-go"

	"github.com/menswear-india/storefront-service/internal/config"
	"github.com/menswear-india/storefront-service/internal/logging"
	"github.com/menswear-india/storefront-service/internal/models"
)

// EventType represents the type of order event.
type EventType string

const (
	EventTypeOrderCreated       EventType = "order.created"
	EventTypeOrderStatusChanged EventType = "order.status_changed"
	EventTypeOrderCancelled     EventType = "order.cancelled"
	EventTypeOrderShipped       EventType = "order.shipped"
)

// Publisher emits order lifecycle events.
type Publisher interface {
	PublishOrderCreated(ctx context.Context, order *models.Order) error
	PublishOrderStatusChanged(ctx context.Context, order *models.Order, previousStatus models.OrderStatus) error
	PublishOrderCancelled(ctx context.Context, order *models.Order, reason string) error
	PublishOrderShipped(ctx context.Context, order *models.Order) error
}

// OrderEvent represents an order-related event.
type OrderEvent struct {
	ID          string          `json:"id"`
	Type        EventType       `json:"type"`
	OrderID     string          `json:"order_id"`
	OrderNumber string          `json:"order_number"`
	UserID      string          `json:"user_id"`
	Data        json.RawMessage `json:"data"`
	Timestamp   time.Time       `json:"timestamp"`
}

type messageWriter interface {
	WriteMessages(ctx context.Context, msgs ...kafka.Message) error
	Close() error
}

// Ensure KafkaPublisher implements Publisher
var _ Publisher = (*KafkaPublisher)(nil)

// KafkaPublisher publishes order events to Kafka, keyed by order ID so
// events for one order stay on one partition.
type KafkaPublisher struct {
	writer messageWriter
	topic  string
	logger *logging.Logger
}

// NewKafkaPublisher creates a new Kafka-based event publisher.
func NewKafkaPublisher(cfg config.KafkaConfig, logger *logging.Logger) *KafkaPublisher {
	writer := &kafka.Writer{
		Addr:         kafka.TCP(cfg.Brokers...),
		Topic:        cfg.OrdersTopic,
		Balancer:     &kafka.LeastBytes{},
		WriteTimeout: 10 * time.Second,
		RequiredAcks: kafka.RequireOne,
	}

	return &KafkaPublisher{
		writer: writer,
		topic:  cfg.OrdersTopic,
		logger: logger,
	}
}

// PublishOrderCreated publishes an order created event carrying the full
// amount snapshot.
func (p *KafkaPublisher) PublishOrderCreated(ctx context.Context, order *models.Order) error {
	p.logger.Debug("Publishing order created event", logging.Fields{
		"order_id": order.ID,
	})

	data, err := json.Marshal(order)
	if err != nil {
		return err
	}

	return p.publish(ctx, newEvent(EventTypeOrderCreated, order, data))
}

// PublishOrderStatusChanged publishes an order status change event.
func (p *KafkaPublisher) PublishOrderStatusChanged(ctx context.Context, order *models.Order, previousStatus models.OrderStatus) error {
	p.logger.Debug("Publishing order status changed event", logging.Fields{
		"order_id":        order.ID,
		"previous_status": previousStatus,
		"new_status":      order.Status,
	})

	payload := struct {
		PreviousStatus models.OrderStatus   `json:"previous_status"`
		NewStatus      models.OrderStatus   `json:"new_status"`
		PaymentStatus  models.PaymentStatus `json:"payment_status"`
	}{
		PreviousStatus: previousStatus,
		NewStatus:      order.Status,
		PaymentStatus:  order.PaymentStatus,
	}

	data, err := json.Marshal(payload)
	if err != nil {
		return err
	}

	return p.publish(ctx, newEvent(EventTypeOrderStatusChanged, order, data))
}

// PublishOrderCancelled publishes an order cancellation event.
func (p *KafkaPublisher) PublishOrderCancelled(ctx context.Context, order *models.Order, reason string) error {
	p.logger.Debug("Publishing order cancelled event", logging.Fields{
		"order_id": order.ID,
		"reason":   reason,
	})

	payload := struct {
		Reason      string `json:"reason"`
		TotalAmount string `json:"total_amount"`
	}{
		Reason:      reason,
		TotalAmount: order.TotalAmount.StringFixed(2),
	}

	data, err := json.Marshal(payload)
	if err != nil {
		return err
	}

	return p.publish(ctx, newEvent(EventTypeOrderCancelled, order, data))
}

// PublishOrderShipped publishes the carrier tracking number of a shipped order.
func (p *KafkaPublisher) PublishOrderShipped(ctx context.Context, order *models.Order) error {
	payload := struct {
		TrackingNumber string     `json:"tracking_number"`
		ShippedAt      *time.Time `json:"shipped_at,omitempty"`
	}{
		TrackingNumber: order.TrackingNumber,
		ShippedAt:      order.ShippedAt,
	}

	data, err := json.Marshal(payload)
	if err != nil {
		return err
	}

	return p.publish(ctx, newEvent(EventTypeOrderShipped, order, data))
}

func newEvent(eventType EventType, order *models.Order, data []byte) *OrderEvent {
	return &OrderEvent{
		ID:          uuid.NewString(),
		Type:        eventType,
		OrderID:     order.ID,
		OrderNumber: order.OrderNumber,
		UserID:      order.UserID,
		Data:        data,
		Timestamp:   time.Now().UTC(),
	}
}

func (p *KafkaPublisher) publish(ctx context.Context, event *OrderEvent) error {
	eventData, err := json.Marshal(event)
	if err != nil {
		return err
	}

	msg := kafka.Message{
		Key:   []byte(event.OrderID),
		Value: eventData,
		Headers: []kafka.Header{
			{Key: "event_type", Value: []byte(event.Type)},
			{Key: "event_id", Value: []byte(event.ID)},
		},
	}

	if err := p.writer.WriteMessages(ctx, msg); err != nil {
		p.logger.Error("Failed to publish event", logging.Fields{
			"event_id":   event.ID,
			"event_type": event.Type,
			"order_id":   event.OrderID,
			"error":      err.Error(),
		})
		return err
	}

	p.logger.Info("Event published", logging.Fields{
		"event_id":   event.ID,
		"event_type": event.Type,
		"order_id":   event.OrderID,
	})

	return nil
}

// Close closes the Kafka writer.
func (p *KafkaPublisher) Close() error {
	p.logger.Info("Closing Kafka publisher")
	return p.writer.Close()
}

// MockEventPublisher records published events in memory.
type MockEventPublisher struct {
	mu     sync.Mutex
	Events []*OrderEvent
}

func NewMockEventPublisher() *MockEventPublisher {
	return &MockEventPublisher{
		Events: make([]*OrderEvent, 0),
	}
}

func (m *MockEventPublisher) record(eventType EventType, order *models.Order) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.Events = append(m.Events, newEvent(eventType, order, nil))
	return nil
}

func (m *MockEventPublisher) PublishOrderCreated(ctx context.Context, order *models.Order) error {
	return m.record(EventTypeOrderCreated, order)
}

func (m *MockEventPublisher) PublishOrderStatusChanged(ctx context.Context, order *models.Order, previousStatus models.OrderStatus) error {
	return m.record(EventTypeOrderStatusChanged, order)
}

func (m *MockEventPublisher) PublishOrderCancelled(ctx context.Context, order *models.Order, reason string) error {
	return m.record(EventTypeOrderCancelled, order)
}

func (m *MockEventPublisher) PublishOrderShipped(ctx context.Context, order *models.Order) error {
	return m.record(EventTypeOrderShipped, order)
}

// Types returns the recorded event types in publish order.
func (m *MockEventPublisher) Types() []EventType {
	m.mu.Lock()
	defer m.mu.Unlock()

	types := make([]EventType, len(m.Events))
	for i, e := range m.Events {
		types[i] = e.Type
	}
	return types
}
