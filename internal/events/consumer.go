package events

import (
	"context"
	"encoding/json"
	"sync"
	"time"

	"github.com/segmentio/kafka-go"

	"github.com/menswear-india/storefront-service/internal/config"
	"github.com/menswear-india/storefront-service/internal/logging"
)

// PaymentEventType represents the type of payment event.
type PaymentEventType string

const (
	PaymentEventCompleted PaymentEventType = "payment.completed"
	PaymentEventFailed    PaymentEventType = "payment.failed"
	PaymentEventRefunded  PaymentEventType = "payment.refunded"
)

// PaymentEvent is emitted by the payment gateway. OrderNumber is set when the
// gateway does not know the internal order ID.
type PaymentEvent struct {
	ID          string           `json:"id"`
	Type        PaymentEventType `json:"type"`
	PaymentID   string           `json:"payment_id"`
	OrderID     string           `json:"order_id"`
	OrderNumber string           `json:"order_number"`
	Status      string           `json:"status"`
	Reason      string           `json:"reason,omitempty"`
	Timestamp   time.Time        `json:"timestamp"`
}

// PaymentEventHandler applies a payment event to the order it references.
type PaymentEventHandler interface {
	HandlePaymentEvent(ctx context.Context, event *PaymentEvent) error
}

type messageReader interface {
	ReadMessage(ctx context.Context) (kafka.Message, error)
	Close() error
}

// KafkaConsumer consumes payment events from Kafka.
type KafkaConsumer struct {
	reader   messageReader
	handler  PaymentEventHandler
	logger   *logging.Logger
	stopCh   chan struct{}
	stopOnce sync.Once
}

// NewKafkaConsumer creates a new Kafka-based event consumer.
func NewKafkaConsumer(cfg config.KafkaConfig, handler PaymentEventHandler, logger *logging.Logger) *KafkaConsumer {
	reader := kafka.NewReader(kafka.ReaderConfig{
		Brokers:  cfg.Brokers,
		Topic:    cfg.PaymentsTopic,
		GroupID:  cfg.ConsumerGroup,
		MinBytes: 1,
		MaxBytes: 10e6,
		MaxWait:  time.Second,
	})

	return newConsumer(reader, handler, logger)
}

func newConsumer(reader messageReader, handler PaymentEventHandler, logger *logging.Logger) *KafkaConsumer {
	return &KafkaConsumer{
		reader:  reader,
		handler: handler,
		logger:  logger,
		stopCh:  make(chan struct{}),
	}
}

// Start consumes until ctx is cancelled or Stop is called. A stop returns nil.
func (c *KafkaConsumer) Start(ctx context.Context) error {
	c.logger.Info("Starting Kafka consumer")

	for {
		select {
		case <-ctx.Done():
			return nil
		case <-c.stopCh:
			c.logger.Info("Kafka consumer stopped")
			return nil
		default:
			msg, err := c.reader.ReadMessage(ctx)
			if err != nil {
				if ctx.Err() != nil {
					return nil
				}
				select {
				case <-c.stopCh:
					c.logger.Info("Kafka consumer stopped")
					return nil
				default:
				}
				c.logger.Error("Failed to read message", logging.Fields{"error": err.Error()})
				continue
			}

			c.handleMessage(ctx, msg)
		}
	}
}

// Stop stops the consumer. It is safe to call more than once.
func (c *KafkaConsumer) Stop() {
	c.stopOnce.Do(func() {
		close(c.stopCh)
		if err := c.reader.Close(); err != nil {
			c.logger.Warn("Failed to close Kafka reader", logging.Fields{"error": err.Error()})
		}
	})
}

func (c *KafkaConsumer) handleMessage(ctx context.Context, msg kafka.Message) {
	c.logger.Debug("Received message", logging.Fields{
		"topic":     msg.Topic,
		"partition": msg.Partition,
		"offset":    msg.Offset,
	})

	var event PaymentEvent
	if err := json.Unmarshal(msg.Value, &event); err != nil {
		c.logger.Error("Failed to unmarshal event", logging.Fields{"error": err.Error()})
		return
	}

	switch event.Type {
	case PaymentEventCompleted, PaymentEventFailed, PaymentEventRefunded:
	default:
		c.logger.Debug("Ignoring unknown event type", logging.Fields{"type": event.Type})
		return
	}

	if err := c.handler.HandlePaymentEvent(ctx, &event); err != nil {
		c.logger.Error("Failed to handle payment event", logging.Fields{
			"event_id":   event.ID,
			"type":       event.Type,
			"payment_id": event.PaymentID,
			"order_id":   event.OrderID,
			"error":      err.Error(),
		})
		return
	}

	c.logger.Info("Payment event handled", logging.Fields{
		"event_id":   event.ID,
		"type":       event.Type,
		"payment_id": event.PaymentID,
	})
}
