package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/menswear-india/storefront-service/internal/models"
)

type cartQuantityRequest struct {
	models.CartItemKey
	Quantity int `json:"quantity"`
}

// GetCart handles GET /api/v1/users/:user_id/cart
func (h *Handlers) GetCart(c *gin.Context) {
	cart, err := h.cartService.GetCart(c.Request.Context(), c.Param("user_id"))
	if err != nil {
		handleError(c, err)
		return
	}

	c.JSON(http.StatusOK, cart)
}

// GetCartSummary handles GET /api/v1/users/:user_id/cart/summary
func (h *Handlers) GetCartSummary(c *gin.Context) {
	summary, err := h.cartService.Summary(c.Request.Context(), c.Param("user_id"))
	if err != nil {
		handleError(c, err)
		return
	}

	c.JSON(http.StatusOK, summary)
}

// AddCartItem handles POST /api/v1/users/:user_id/cart/items
func (h *Handlers) AddCartItem(c *gin.Context) {
	var item models.CartItem
	if err := c.ShouldBindJSON(&item); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid request body"})
		return
	}

	cart, err := h.cartService.AddItem(c.Request.Context(), c.Param("user_id"), item)
	if err != nil {
		handleError(c, err)
		return
	}

	c.JSON(http.StatusOK, cart)
}

// UpdateCartItem handles PUT /api/v1/users/:user_id/cart/items
func (h *Handlers) UpdateCartItem(c *gin.Context) {
	var req cartQuantityRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid request body"})
		return
	}

	cart, err := h.cartService.UpdateQuantity(c.Request.Context(), c.Param("user_id"), req.CartItemKey, req.Quantity)
	if err != nil {
		handleError(c, err)
		return
	}

	c.JSON(http.StatusOK, cart)
}

// RemoveCartItem handles DELETE /api/v1/users/:user_id/cart/items
func (h *Handlers) RemoveCartItem(c *gin.Context) {
	var key models.CartItemKey
	if err := c.ShouldBindJSON(&key); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid request body"})
		return
	}

	cart, err := h.cartService.RemoveItem(c.Request.Context(), c.Param("user_id"), key)
	if err != nil {
		handleError(c, err)
		return
	}

	c.JSON(http.StatusOK, cart)
}

// ClearCart handles DELETE /api/v1/users/:user_id/cart
func (h *Handlers) ClearCart(c *gin.Context) {
	if err := h.cartService.ClearCart(c.Request.Context(), c.Param("user_id")); err != nil {
		handleError(c, err)
		return
	}

	c.Status(http.StatusNoContent)
}
