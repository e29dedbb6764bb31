package service

import (
	"context"
	"errors"

	"github.com/shopspring/decimal"

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

// QuoteRequest prices a subtotal, or a list of items, for a destination.
type QuoteRequest struct {
	Subtotal *decimal.Decimal  `json:"subtotal"`
	Items    []models.OrderItem `json:"items"`
	State    string             `json:"state"`
	Country  string             `json:"country"`
}

// QuoteResponse is the rounded breakdown shown on the checkout form.
// Total excludes shipping; GrandTotal includes it.
type QuoteResponse struct {
	Category    tax.Category    `json:"category"`
	GSTLabel    string          `json:"gst_label"`
	Configured  bool            `json:"configured"`
	Subtotal    decimal.Decimal `json:"subtotal"`
	TaxRate     decimal.Decimal `json:"tax_rate"`
	TaxAmount   decimal.Decimal `json:"tax_amount"`
	Total       decimal.Decimal `json:"total"`
	ShippingFee decimal.Decimal `json:"shipping_fee"`
	GrandTotal  decimal.Decimal `json:"grand_total"`
	CartTotal   decimal.Decimal `json:"cart_total"`
}

// PlaceOrderRequest submits a checkout. When Items is empty the user's
// cart is checked out instead.
type PlaceOrderRequest struct {
	UserID          string             `json:"user_id"`
	Items           []models.OrderItem `json:"items"`
	ShippingAddress models.Address     `json:"shipping_address"`
	PaymentMethod   string             `json:"payment_method"`
	Notes           string             `json:"notes"`
}

// CheckoutService prices carts and turns them into paid orders. Every call
// reads a fresh rate table; nothing is cached between calls.
type CheckoutService struct {
	loader        *tax.Loader
	resolver      *tax.Resolver
	calculator    *OrderAmountCalculator
	orderRepo     repository.OrderRepository
	orderCache    repository.OrderCache
	carts         repository.CartStore
	paymentClient clients.PaymentClient
	notifier      *orderNotifier
	publisher     events.Publisher
	metrics       *metrics.Metrics
	config        *config.Config
	logger        *logging.Logger
}

// NewCheckoutService creates a new checkout service.
func NewCheckoutService(
	loader *tax.Loader,
	resolver *tax.Resolver,
	calculator *OrderAmountCalculator,
	orderRepo repository.OrderRepository,
	orderCache repository.OrderCache,
	carts repository.CartStore,
	paymentClient clients.PaymentClient,
	notificationClient clients.NotificationSender,
	publisher events.Publisher,
	m *metrics.Metrics,
	cfg *config.Config,
) *CheckoutService {
	logger := logging.NewLogger("checkout-service")
	return &CheckoutService{
		loader:        loader,
		resolver:      resolver,
		calculator:    calculator,
		orderRepo:     orderRepo,
		orderCache:    orderCache,
		carts:         carts,
		paymentClient: paymentClient,
		notifier:      &orderNotifier{client: notificationClient, logger: logger},
		publisher:     publisher,
		metrics:       m,
		config:        cfg,
		logger:        logger,
	}
}

// Quote resolves the GST rate for a destination and composes the amounts.
// It never fails on a missing rate; the category resolves to 0% instead.
func (s *CheckoutService) Quote(ctx context.Context, req *QuoteRequest) (*QuoteResponse, error) {
	if err := ValidateQuoteRequest(req); err != nil {
		return nil, err
	}

	subtotal := Subtotal(req.Items)
	if req.Subtotal != nil {
		subtotal = *req.Subtotal
	}

	table, err := s.loader.Load(ctx)
	if err != nil {
		return nil, apperrors.NewPersistenceError("load rate table", err)
	}

	resolution := s.resolver.Resolve(table, req.State, req.Country)
	s.recordResolution(resolution)

	amounts := s.calculator.Compose(subtotal, resolution.Percentage).Rounded()

	return &QuoteResponse{
		Category:    resolution.Category,
		GSTLabel:    resolution.Label,
		Configured:  resolution.Configured,
		Subtotal:    amounts.Subtotal,
		TaxRate:     amounts.TaxRate,
		TaxAmount:   amounts.TaxAmount,
		Total:       amounts.Total,
		ShippingFee: amounts.ShippingFee,
		GrandTotal:  amounts.GrandTotal,
		CartTotal:   amounts.CartTotal,
	}, nil
}

// PlaceOrder validates the submission, prices it against the current rate
// table, charges the buyer and persists the order with the computed amounts.
// A failed write after a successful charge is reported as a persistence
// error and the charge is refunded; the write is not retried.
func (s *CheckoutService) PlaceOrder(ctx context.Context, req *PlaceOrderRequest) (*models.Order, error) {
	s.logger.Info("Placing order", logging.Fields{
		"user_id":    req.UserID,
		"item_count": len(req.Items),
	})

	if err := ValidatePlaceOrderRequest(req); err != nil {
		s.failed(err)
		return nil, err
	}

	items := req.Items
	fromCart := len(items) == 0
	if fromCart {
		cartItems, err := s.cartItems(ctx, req.UserID)
		if err != nil {
			s.failed(err)
			return nil, err
		}
		items = cartItems
	}

	dest, err := ParseShippingDestination(s.resolver, &req.ShippingAddress)
	if err != nil {
		s.failed(err)
		return nil, err
	}

	// Snapshot the rate table before anything is written
	table, err := s.loader.Load(ctx)
	if err != nil {
		s.metrics.CheckoutFailed("rate_table")
		return nil, apperrors.NewPersistenceError("load rate table", err)
	}

	resolution := s.resolver.ResolveDestination(table, dest)
	s.recordResolution(resolution)

	amounts := s.calculator.Compose(Subtotal(items), resolution.Percentage).Rounded()
	charge := amounts.Total
	if s.config.Features.ChargeShippingAtCheckout {
		charge = amounts.GrandTotal
	}

	order := &models.Order{
		OrderNumber:     repository.NewOrderNumber(),
		UserID:          req.UserID,
		Status:          models.OrderStatusPending,
		PaymentStatus:   models.PaymentStatusPending,
		PaymentMethod:   req.PaymentMethod,
		TaxCategory:     string(resolution.Category),
		GSTLabel:        resolution.Label,
		Subtotal:        amounts.Subtotal,
		GSTRate:         amounts.TaxRate,
		GSTAmount:       amounts.TaxAmount,
		ShippingAmount:  amounts.ShippingFee,
		TotalAmount:     charge,
		Items:           items,
		ShippingAddress: req.ShippingAddress,
		Notes:           SanitizeOrderNotes(req.Notes),
	}

	// Collect payment
	payment, err := s.paymentClient.Charge(ctx, &clients.ChargeRequest{
		OrderNumber: order.OrderNumber,
		UserID:      order.UserID,
		Amount:      charge,
		Currency:    clients.Currency,
		Method:      req.PaymentMethod,
	})
	if err != nil {
		reason := "payment_error"
		if errors.Is(err, apperrors.ErrPaymentDeclined) {
			reason = "payment_declined"
		}
		s.metrics.CheckoutFailed(reason)
		s.logger.Error("Payment failed", logging.Fields{
			"order_number": order.OrderNumber,
			"amount":       charge.StringFixed(2),
			"error":        err.Error(),
		})
		return nil, err
	}

	order.PaymentID = payment.PaymentID
	if payment.Status == clients.GatewayStatusCompleted {
		order.Status = models.OrderStatusConfirmed
		order.PaymentStatus = models.PaymentStatusPaid
	}

	if err := s.orderRepo.Create(ctx, order); err != nil {
		s.metrics.CheckoutFailed("persistence")
		s.logger.Error("Failed to persist order", logging.Fields{
			"order_number": order.OrderNumber,
			"payment_id":   order.PaymentID,
			"error":        err.Error(),
		})
		s.releasePayment(ctx, order)
		return nil, apperrors.NewPersistenceError("create order", err)
	}

	s.metrics.OrderCreated(order.TaxCategory)

	// Cache the order
	if s.config.Features.EnableOrderCaching {
		if err := s.orderCache.Set(ctx, order); err != nil {
			s.logger.Error("Failed to cache order", logging.Fields{
				"order_id": order.ID,
				"error":    err.Error(),
			})
		}
		s.orderCache.InvalidateByUserID(ctx, order.UserID)
	}

	// Publish event
	if s.config.Features.EnableOrderEvents {
		if err := s.publisher.PublishOrderCreated(ctx, order); err != nil {
			s.logger.Error("Failed to publish order created event", logging.Fields{
				"order_id": order.ID,
				"error":    err.Error(),
			})
		}
	}

	if fromCart {
		if err := s.carts.Delete(ctx, order.UserID); err != nil {
			s.logger.Warn("Failed to clear cart after checkout", logging.Fields{
				"user_id": order.UserID,
				"error":   err.Error(),
			})
		}
	}

	// Send notification
	go s.notifier.orderConfirmed(context.Background(), order)

	s.logger.Info("Order placed", logging.Fields{
		"order_id":     order.ID,
		"order_number": order.OrderNumber,
		"tax_category": order.TaxCategory,
		"total":        order.TotalAmount.StringFixed(2),
	})

	return order, nil
}

func (s *CheckoutService) cartItems(ctx context.Context, userID string) ([]models.OrderItem, error) {
	cart, err := s.carts.Get(ctx, userID)
	if err != nil {
		return nil, err
	}
	if len(cart.Items) == 0 {
		return nil, apperrors.NewValidationError("items", "order must contain at least one item")
	}

	items := make([]models.OrderItem, 0, len(cart.Items))
	for _, item := range cart.Items {
		items = append(items, item.ToOrderItem())
	}
	return items, nil
}

// releasePayment gives the money back for an order that could not be stored.
func (s *CheckoutService) releasePayment(ctx context.Context, order *models.Order) {
	if order.PaymentID == "" {
		return
	}

	if order.PaymentStatus != models.PaymentStatusPaid {
		if err := s.paymentClient.CancelPayment(ctx, order.PaymentID); err != nil {
			s.logger.Error("Failed to cancel payment for unsaved order", logging.Fields{
				"payment_id": order.PaymentID,
				"error":      err.Error(),
			})
		}
		return
	}

	_, err := s.paymentClient.Refund(ctx, &clients.RefundRequest{
		PaymentID: order.PaymentID,
		Amount:    order.TotalAmount,
		Reason:    "order could not be saved",
	})
	if err != nil {
		s.logger.Error("Failed to refund payment for unsaved order", logging.Fields{
			"payment_id": order.PaymentID,
			"error":      err.Error(),
		})
	}
}

func (s *CheckoutService) recordResolution(res tax.Resolution) {
	s.metrics.TaxResolved(string(res.Category), res.Configured)
	if !res.Configured {
		s.logger.Warn("No rate configured for tax category, using 0%", logging.Fields{
			"category": res.Category,
		})
	}
}

func (s *CheckoutService) failed(err error) {
	var addrErr *apperrors.InvalidAddressError
	switch {
	case errors.As(err, &addrErr):
		s.metrics.CheckoutFailed("invalid_address")
	case apperrors.IsValidation(err):
		s.metrics.CheckoutFailed("validation")
	default:
		s.metrics.CheckoutFailed("internal")
	}
}
