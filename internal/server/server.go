package server

import (
	"context"
	"fmt"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/menswear-india/storefront-service/internal/config"
	"github.com/menswear-india/storefront-service/internal/handlers"
	"github.com/menswear-india/storefront-service/internal/logging"
	"github.com/menswear-india/storefront-service/internal/metrics"
)

type Server struct {
	config   *config.Config
	router   *gin.Engine
	handlers *handlers.Handlers
	metrics  *metrics.Metrics
	http     *http.Server
	logger   *logging.Logger
}

func New(h *handlers.Handlers, m *metrics.Metrics, cfg *config.Config) *Server {
	router := gin.New()
	router.Use(gin.Recovery(), m.Middleware())

	s := &Server{
		config:   cfg,
		router:   router,
		handlers: h,
		metrics:  m,
		logger:   logging.NewLogger("server"),
	}

	s.setupRoutes()

	s.http = &http.Server{
		Addr:         fmt.Sprintf(":%d", cfg.Server.Port),
		Handler:      router,
		ReadTimeout:  cfg.Server.ReadTimeout,
		WriteTimeout: cfg.Server.WriteTimeout,
	}

	return s
}

func (s *Server) setupRoutes() {
	s.router.GET("/health", s.handlers.Health)
	s.router.GET("/ready", s.handlers.Ready)
	s.router.GET("/live", s.handlers.Live)
	s.router.GET("/version", s.handlers.Version)
	s.router.GET("/metrics", gin.WrapH(s.metrics.Handler()))

	v1 := s.router.Group("/api/v1")
	{
		v1.POST("/checkout/quote", s.handlers.QuoteCheckout)
		v1.POST("/checkout/orders", s.handlers.PlaceOrder)

		v1.GET("/orders", s.handlers.ListOrders)
		v1.GET("/orders/:id", s.handlers.GetOrder)
		v1.PATCH("/orders/:id/status", s.handlers.UpdateOrderStatus)
		v1.POST("/orders/:id/cancel", s.handlers.CancelOrder)
		v1.POST("/orders/:id/refund", s.handlers.RefundOrder)
		v1.POST("/orders/:id/tracking", s.handlers.AddTrackingNumber)
		v1.GET("/orders/:id/payment", s.handlers.GetOrderPayment)

		v1.GET("/payments/:id", s.handlers.GetPaymentStatus)

		v1.GET("/tax/settings", s.handlers.ListTaxSettings)
		v1.PUT("/tax/settings/:name", s.handlers.UpdateTaxSetting)

		users := v1.Group("/users/:user_id")
		users.GET("/orders", s.handlers.GetUserOrders)
		users.GET("/cart", s.handlers.GetCart)
		users.DELETE("/cart", s.handlers.ClearCart)
		users.GET("/cart/summary", s.handlers.GetCartSummary)
		users.POST("/cart/items", s.handlers.AddCartItem)
		users.PUT("/cart/items", s.handlers.UpdateCartItem)
		users.DELETE("/cart/items", s.handlers.RemoveCartItem)
	}
}

// Router exposes the engine, mainly for tests.
func (s *Server) Router() http.Handler {
	return s.router
}

// Start blocks serving HTTP until Shutdown is called.
func (s *Server) Start() error {
	s.logger.Info("Starting server", logging.Fields{"addr": s.http.Addr})
	return s.http.ListenAndServe()
}

// Shutdown drains in-flight requests.
func (s *Server) Shutdown(ctx context.Context) error {
	return s.http.Shutdown(ctx)
}
