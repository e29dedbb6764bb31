package handlers

import (
	"context"

	"github.com/menswear-india/storefront-service/internal/config"
	"github.com/menswear-india/storefront-service/internal/logging"
	"github.com/menswear-india/storefront-service/internal/service"
)

// ReadinessCheck is a dependency that must answer before the service takes traffic.
type ReadinessCheck struct {
	Name string
	Ping func(ctx context.Context) error
}

// Handlers holds all HTTP handlers for the storefront service.
type Handlers struct {
	checkoutService    *service.CheckoutService
	orderService       *service.OrderService
	cartService        *service.CartService
	taxSettingsService *service.TaxSettingsService
	paymentService     *service.PaymentService
	readiness          []ReadinessCheck
	config             *config.Config
	logger             *logging.Logger
}

// NewHandlers creates a new handlers instance.
func NewHandlers(
	checkoutService *service.CheckoutService,
	orderService *service.OrderService,
	cartService *service.CartService,
	taxSettingsService *service.TaxSettingsService,
	paymentService *service.PaymentService,
	cfg *config.Config,
	readiness ...ReadinessCheck,
) *Handlers {
	return &Handlers{
		checkoutService:    checkoutService,
		orderService:       orderService,
		cartService:        cartService,
		taxSettingsService: taxSettingsService,
		paymentService:     paymentService,
		readiness:          readiness,
		config:             cfg,
		logger:             logging.NewLogger("handlers"),
	}
}
