package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"
)

// GetPaymentStatus handles GET /api/v1/payments/:id
func (h *Handlers) GetPaymentStatus(c *gin.Context) {
	paymentID := c.Param("id")

	payment, err := h.paymentService.GetPaymentStatus(c.Request.Context(), paymentID)
	if err != nil {
		handleError(c, err)
		return
	}

	c.JSON(http.StatusOK, payment)
}

// GetOrderPayment handles GET /api/v1/orders/:id/payment
func (h *Handlers) GetOrderPayment(c *gin.Context) {
	orderID := c.Param("id")

	payment, err := h.paymentService.GetPaymentByOrderID(c.Request.Context(), orderID)
	if err != nil {
		handleError(c, err)
		return
	}

	c.JSON(http.StatusOK, payment)
}
