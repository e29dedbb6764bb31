package service

import (
	"context"
	"errors"
	"fmt"

	"github.com/menswear-india/storefront-service/internal/apperrors"
	"github.com/menswear-india/storefront-service/internal/clients"
	"github.com/menswear-india/storefront-service/internal/config"
	"github.com/menswear-india/storefront-service/internal/events"
	"github.com/menswear-india/storefront-service/internal/logging"
	"github.com/menswear-india/storefront-service/internal/metrics"
	"github.com/menswear-india/storefront-service/internal/models"
	"github.com/menswear-india/storefront-service/internal/repository"
)

// OrderService handles order business logic after checkout. Nothing here
// writes amount fields; they stay as priced at creation.
type OrderService struct {
	orderRepo     repository.OrderRepository
	orderCache    repository.OrderCache
	paymentClient clients.PaymentClient
	notifier      *orderNotifier
	publisher     events.Publisher
	metrics       *metrics.Metrics
	config        *config.Config
	logger        *logging.Logger
}

// Ensure OrderService consumes payment events
var _ events.PaymentEventHandler = (*OrderService)(nil)

// NewOrderService creates a new order service.
func NewOrderService(
	orderRepo repository.OrderRepository,
	orderCache repository.OrderCache,
	paymentClient clients.PaymentClient,
	notificationClient clients.NotificationSender,
	publisher events.Publisher,
	m *metrics.Metrics,
	cfg *config.Config,
) *OrderService {
	logger := logging.NewLogger("order-service")
	return &OrderService{
		orderRepo:     orderRepo,
		orderCache:    orderCache,
		paymentClient: paymentClient,
		notifier:      &orderNotifier{client: notificationClient, logger: logger},
		publisher:     publisher,
		metrics:       m,
		config:        cfg,
		logger:        logger,
	}
}

// GetOrder retrieves an order by ID.
func (s *OrderService) GetOrder(ctx context.Context, id string) (*models.Order, error) {
	s.logger.Debug("Getting order", logging.Fields{"order_id": id})

	// Check cache first
	if s.config.Features.EnableOrderCaching {
		if order, err := s.orderCache.Get(ctx, id); err == nil && order != nil {
			s.logger.Debug("Order found in cache", logging.Fields{"order_id": id})
			return order, nil
		}
	}

	// Get from database
	order, err := s.orderRepo.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}

	// Cache for next time
	if s.config.Features.EnableOrderCaching {
		s.orderCache.Set(ctx, order)
	}

	return order, nil
}

// ListOrders retrieves orders based on filter criteria.
func (s *OrderService) ListOrders(ctx context.Context, filter *models.OrderListFilter) ([]*models.Order, int, error) {
	if err := ValidateOrderListFilter(filter); err != nil {
		return nil, 0, err
	}

	s.logger.Debug("Listing orders", logging.Fields{
		"user_id": filter.UserID,
		"status":  filter.Status,
	})

	return s.orderRepo.List(ctx, filter)
}

// GetUserOrders retrieves orders for a specific user, newest first.
func (s *OrderService) GetUserOrders(ctx context.Context, userID string, limit, offset int) ([]*models.Order, int, error) {
	if userID == "" {
		return nil, 0, apperrors.NewValidationError("user_id", "user ID is required")
	}

	filter := &models.OrderListFilter{UserID: userID, Limit: limit, Offset: offset}
	if err := ValidateOrderListFilter(filter); err != nil {
		return nil, 0, err
	}

	s.logger.Debug("Getting user orders", logging.Fields{
		"user_id": userID,
		"limit":   filter.Limit,
		"offset":  filter.Offset,
	})

	// Check cache first
	if s.config.Features.EnableOrderCaching && filter.Offset == 0 {
		if orders, err := s.orderCache.GetByUserID(ctx, userID); err == nil && orders != nil && len(orders) <= filter.Limit {
			s.logger.Debug("User orders found in cache", logging.Fields{"user_id": userID})
			return orders, len(orders), nil
		}
	}

	orders, total, err := s.orderRepo.GetByUserID(ctx, userID, filter.Limit, filter.Offset)
	if err != nil {
		return nil, 0, err
	}

	// Cache if the first page holds every order
	if s.config.Features.EnableOrderCaching && filter.Offset == 0 && total == len(orders) {
		s.orderCache.SetByUserID(ctx, userID, orders)
	}

	return orders, total, nil
}

// UpdateOrderStatus moves an order along the status state machine.
// Cancellations and refunds go through CancelOrder and RefundOrder so the
// payment side follows.
func (s *OrderService) UpdateOrderStatus(ctx context.Context, id string, req *models.UpdateOrderStatusRequest) (*models.Order, error) {
	if err := ValidateUpdateOrderStatusRequest(req); err != nil {
		return nil, err
	}

	switch req.Status {
	case models.OrderStatusCancelled:
		reason := req.Notes
		if reason == "" {
			reason = "cancelled by store"
		}
		return s.CancelOrder(ctx, id, reason)
	case models.OrderStatusRefunded:
		reason := req.Notes
		if reason == "" {
			reason = "refunded by store"
		}
		return s.RefundOrder(ctx, id, reason)
	}

	s.logger.Info("Updating order status", logging.Fields{
		"order_id":   id,
		"new_status": req.Status,
	})

	// Get current order to check status transition
	current, err := s.orderRepo.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}

	if err := checkTransition(current.Status, req.Status); err != nil {
		return nil, err
	}

	order, err := s.orderRepo.UpdateStatus(ctx, id, req.Status, SanitizeOrderNotes(req.Notes))
	if err != nil {
		return nil, err
	}

	s.invalidate(ctx, order)
	s.publishStatusChanged(ctx, order, current.Status)

	if order.Status == models.OrderStatusShipped {
		go s.notifier.orderShipped(context.Background(), order)
	}

	return order, nil
}

// CancelOrder cancels an order. A pending payment is cancelled at the
// gateway and a captured one is refunded in full.
func (s *OrderService) CancelOrder(ctx context.Context, id string, reason string) (*models.Order, error) {
	if err := ValidateCancellationReason(reason); err != nil {
		return nil, err
	}

	s.logger.Info("Cancelling order", logging.Fields{
		"order_id": id,
		"reason":   reason,
	})

	order, err := s.orderRepo.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}

	// Check if cancellation is allowed
	if !order.CanCancel() {
		return nil, apperrors.NewValidationError("status", "order cannot be cancelled in current state")
	}

	paymentStatus := order.PaymentStatus
	if order.PaymentID != "" {
		switch order.PaymentStatus {
		case models.PaymentStatusPaid:
			if err := s.refund(ctx, order, reason); err != nil {
				return nil, err
			}
			paymentStatus = models.PaymentStatusRefunded
		case models.PaymentStatusPending:
			s.cancelPendingPayment(ctx, order)
		}
	}

	previousStatus := order.Status
	order, err = s.orderRepo.UpdateStatus(ctx, id, models.OrderStatusCancelled, SanitizeOrderNotes(reason))
	if err != nil {
		return nil, err
	}

	if paymentStatus != order.PaymentStatus {
		if err := s.orderRepo.UpdatePaymentStatus(ctx, id, paymentStatus); err != nil {
			s.logger.Error("Failed to record payment status", logging.Fields{
				"order_id": id,
				"status":   paymentStatus,
				"error":    err.Error(),
			})
		} else {
			order.PaymentStatus = paymentStatus
		}
	}

	s.invalidate(ctx, order)

	// Publish event
	if s.config.Features.EnableOrderEvents {
		if err := s.publisher.PublishOrderCancelled(ctx, order, reason); err != nil {
			s.logger.Error("Failed to publish order cancelled event", logging.Fields{
				"order_id": order.ID,
				"error":    err.Error(),
			})
		}
	}

	s.logger.Info("Order cancelled", logging.Fields{
		"order_id":        order.ID,
		"previous_status": previousStatus,
	})

	go s.notifier.orderCancelled(context.Background(), order, reason)

	return order, nil
}

// RefundOrder refunds the full amount charged for an order.
func (s *OrderService) RefundOrder(ctx context.Context, id string, reason string) (*models.Order, error) {
	if err := ValidateCancellationReason(reason); err != nil {
		return nil, err
	}

	s.logger.Info("Processing order refund", logging.Fields{
		"order_id": id,
		"reason":   reason,
	})

	order, err := s.orderRepo.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}

	// Check if refund is allowed
	if !order.CanRefund() {
		if order.Status.CanTransitionTo(models.OrderStatusRefunded) && order.PaymentStatus != models.PaymentStatusPaid {
			return nil, apperrors.NewValidationError("payment_status", "order has no captured payment to refund")
		}
		return nil, apperrors.NewValidationError("status", "order cannot be refunded")
	}

	if err := s.refund(ctx, order, reason); err != nil {
		return nil, err
	}

	previousStatus := order.Status
	updated, err := s.orderRepo.UpdateStatus(ctx, id, models.OrderStatusRefunded, SanitizeOrderNotes("Refund processed: "+reason))
	if err != nil {
		return nil, err
	}

	if err := s.orderRepo.UpdatePaymentStatus(ctx, id, models.PaymentStatusRefunded); err != nil {
		s.logger.Error("Failed to record payment status", logging.Fields{
			"order_id": id,
			"error":    err.Error(),
		})
	} else {
		updated.PaymentStatus = models.PaymentStatusRefunded
	}

	s.invalidate(ctx, updated)
	s.publishStatusChanged(ctx, updated, previousStatus)

	return updated, nil
}

// AddTrackingNumber records the carrier tracking number and marks the order shipped.
func (s *OrderService) AddTrackingNumber(ctx context.Context, id, trackingNumber string) (*models.Order, error) {
	if err := ValidateTrackingNumber(trackingNumber); err != nil {
		return nil, err
	}

	current, err := s.orderRepo.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}

	if err := checkTransition(current.Status, models.OrderStatusShipped); err != nil {
		return nil, err
	}

	order, err := s.orderRepo.SetTrackingNumber(ctx, id, trackingNumber)
	if err != nil {
		return nil, err
	}

	s.invalidate(ctx, order)
	s.publishStatusChanged(ctx, order, current.Status)

	if s.config.Features.EnableOrderEvents {
		if err := s.publisher.PublishOrderShipped(ctx, order); err != nil {
			s.logger.Error("Failed to publish order shipped event", logging.Fields{
				"order_id": order.ID,
				"error":    err.Error(),
			})
		}
	}

	go s.notifier.orderShipped(context.Background(), order)

	return order, nil
}

// HandlePaymentEvent applies a gateway payment event to its order. Events
// that would not change the order are acknowledged without writes.
func (s *OrderService) HandlePaymentEvent(ctx context.Context, event *events.PaymentEvent) error {
	order, err := s.findPaymentOrder(ctx, event)
	if err != nil {
		outcome := "error"
		if errors.Is(err, apperrors.ErrNotFound) {
			outcome = "not_found"
		}
		s.metrics.PaymentEventHandled(string(event.Type), outcome)
		return err
	}

	var (
		paymentStatus models.PaymentStatus
		nextStatus    models.OrderStatus
		notes         string
	)

	switch event.Type {
	case events.PaymentEventCompleted:
		paymentStatus = models.PaymentStatusPaid
		if order.Status == models.OrderStatusPending {
			nextStatus = models.OrderStatusConfirmed
			notes = "Payment completed"
		}
	case events.PaymentEventFailed:
		if order.PaymentStatus == models.PaymentStatusPaid {
			s.metrics.PaymentEventHandled(string(event.Type), "ignored")
			return nil
		}
		paymentStatus = models.PaymentStatusFailed
		if order.Status == models.OrderStatusPending {
			nextStatus = models.OrderStatusCancelled
			notes = "Payment failed"
			if event.Reason != "" {
				notes += ": " + event.Reason
			}
		}
	case events.PaymentEventRefunded:
		paymentStatus = models.PaymentStatusRefunded
		if order.Status.CanTransitionTo(models.OrderStatusRefunded) {
			nextStatus = models.OrderStatusRefunded
			notes = "Refunded by payment gateway"
		}
	default:
		s.metrics.PaymentEventHandled(string(event.Type), "ignored")
		return nil
	}

	if order.PaymentStatus == paymentStatus && nextStatus == "" {
		s.metrics.PaymentEventHandled(string(event.Type), "duplicate")
		return nil
	}

	if event.PaymentID != "" && order.PaymentID == "" {
		if err := s.orderRepo.SetPaymentID(ctx, order.ID, event.PaymentID); err != nil {
			s.metrics.PaymentEventHandled(string(event.Type), "error")
			return err
		}
	}

	if err := s.orderRepo.UpdatePaymentStatus(ctx, order.ID, paymentStatus); err != nil {
		s.metrics.PaymentEventHandled(string(event.Type), "error")
		return err
	}

	previousStatus := order.Status
	updated := order
	if nextStatus != "" {
		updated, err = s.orderRepo.UpdateStatus(ctx, order.ID, nextStatus, notes)
		if err != nil {
			s.metrics.PaymentEventHandled(string(event.Type), "error")
			return err
		}
	}
	updated.PaymentStatus = paymentStatus

	s.invalidate(ctx, updated)
	if nextStatus != "" {
		s.publishStatusChanged(ctx, updated, previousStatus)
	}
	if nextStatus == models.OrderStatusCancelled {
		go s.notifier.orderCancelled(context.Background(), updated, notes)
	}

	s.metrics.PaymentEventHandled(string(event.Type), "applied")
	s.logger.Info("Payment event applied", logging.Fields{
		"order_id":       updated.ID,
		"payment_status": paymentStatus,
		"status":         updated.Status,
	})

	return nil
}

func (s *OrderService) findPaymentOrder(ctx context.Context, event *events.PaymentEvent) (*models.Order, error) {
	if event.OrderID != "" {
		order, err := s.orderRepo.GetByID(ctx, event.OrderID)
		if err == nil || !errors.Is(err, apperrors.ErrNotFound) || event.OrderNumber == "" {
			return order, err
		}
	}
	if event.OrderNumber != "" {
		return s.orderRepo.GetByOrderNumber(ctx, event.OrderNumber)
	}
	return nil, apperrors.ErrNotFound
}

func (s *OrderService) refund(ctx context.Context, order *models.Order, reason string) error {
	resp, err := s.paymentClient.Refund(ctx, &clients.RefundRequest{
		PaymentID: order.PaymentID,
		Amount:    order.TotalAmount,
		Reason:    reason,
	})
	if err != nil {
		s.logger.Error("Refund processing failed", logging.Fields{
			"order_id":   order.ID,
			"payment_id": order.PaymentID,
			"error":      err.Error(),
		})
		return err
	}

	s.logger.Info("Refund issued", logging.Fields{
		"order_id":  order.ID,
		"refund_id": resp.RefundID,
		"amount":    resp.Amount.StringFixed(2),
	})
	return nil
}

func (s *OrderService) cancelPendingPayment(ctx context.Context, order *models.Order) {
	payment, err := s.paymentClient.GetPaymentStatus(ctx, order.PaymentID)
	if err != nil {
		s.logger.Error("Failed to get payment status", logging.Fields{
			"payment_id": order.PaymentID,
			"error":      err.Error(),
		})
		return
	}
	if payment == nil || payment.Status != clients.GatewayStatusPending {
		return
	}
	if err := s.paymentClient.CancelPayment(ctx, order.PaymentID); err != nil {
		s.logger.Error("Failed to cancel payment", logging.Fields{
			"payment_id": order.PaymentID,
			"error":      err.Error(),
		})
	}
}

// Invalidate cache
func (s *OrderService) invalidate(ctx context.Context, order *models.Order) {
	if !s.config.Features.EnableOrderCaching {
		return
	}
	s.orderCache.Delete(ctx, order.ID)
	s.orderCache.InvalidateByUserID(ctx, order.UserID)
}

func (s *OrderService) publishStatusChanged(ctx context.Context, order *models.Order, previous models.OrderStatus) {
	if !s.config.Features.EnableOrderEvents {
		return
	}
	if err := s.publisher.PublishOrderStatusChanged(ctx, order, previous); err != nil {
		s.logger.Error("Failed to publish status change event", logging.Fields{
			"order_id": order.ID,
			"error":    err.Error(),
		})
	}
}

func checkTransition(from, to models.OrderStatus) error {
	if !from.CanTransitionTo(to) {
		return apperrors.NewValidationError("status", fmt.Sprintf(
			"invalid status transition from %s to %s",
			from,
			to,
		))
	}
	return nil
}
