package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/menswear-india/storefront-service/internal/logging"
	"github.com/menswear-india/storefront-service/internal/service"
)

// QuoteCheckout handles POST /api/v1/checkout/quote
func (h *Handlers) QuoteCheckout(c *gin.Context) {
	var req service.QuoteRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid request body"})
		return
	}

	quote, err := h.checkoutService.Quote(c.Request.Context(), &req)
	if err != nil {
		handleError(c, err)
		return
	}

	c.JSON(http.StatusOK, quote)
}

// PlaceOrder handles POST /api/v1/checkout/orders
func (h *Handlers) PlaceOrder(c *gin.Context) {
	var req service.PlaceOrderRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		h.logger.Error("Failed to bind request", logging.Fields{"error": err.Error()})
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid request body"})
		return
	}

	// Get user ID from context if not provided
	if req.UserID == "" {
		if userID, exists := c.Get("user_id"); exists {
			req.UserID, _ = userID.(string)
		}
	}

	order, err := h.checkoutService.PlaceOrder(c.Request.Context(), &req)
	if err != nil {
		handleError(c, err)
		return
	}

	c.JSON(http.StatusCreated, order)
}
