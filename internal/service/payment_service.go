package service

import (
	"context"

	"github.com/menswear-india/storefront-service/internal/apperrors"
	"github.com/menswear-india/storefront-service/internal/clients"
	"github.com/menswear-india/storefront-service/internal/logging"
	"github.com/menswear-india/storefront-service/internal/repository"
)

// PaymentService exposes gateway payment state for orders.
type PaymentService struct {
	paymentClient clients.PaymentClient
	orderRepo     repository.OrderRepository
	logger        *logging.Logger
}

// NewPaymentService creates a new payment service.
func NewPaymentService(paymentClient clients.PaymentClient, orderRepo repository.OrderRepository) *PaymentService {
	return &PaymentService{
		paymentClient: paymentClient,
		orderRepo:     orderRepo,
		logger:        logging.NewLogger("payment-service"),
	}
}

// GetPaymentStatus retrieves the status of a payment.
func (s *PaymentService) GetPaymentStatus(ctx context.Context, paymentID string) (*clients.Payment, error) {
	s.logger.Debug("Getting payment status", logging.Fields{"payment_id": paymentID})

	payment, err := s.paymentClient.GetPaymentStatus(ctx, paymentID)
	if err != nil {
		s.logger.Error("Failed to get payment status", logging.Fields{
			"payment_id": paymentID,
			"error":      err.Error(),
		})
		return nil, err
	}

	if payment == nil {
		return nil, apperrors.ErrNotFound
	}

	return payment, nil
}

// GetPaymentByOrderID retrieves the payment associated with an order.
func (s *PaymentService) GetPaymentByOrderID(ctx context.Context, orderID string) (*clients.Payment, error) {
	s.logger.Debug("Getting payment for order", logging.Fields{"order_id": orderID})

	order, err := s.orderRepo.GetByID(ctx, orderID)
	if err != nil {
		return nil, err
	}

	if order.PaymentID == "" {
		return nil, apperrors.ErrNotFound
	}

	return s.GetPaymentStatus(ctx, order.PaymentID)
}
