package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/menswear-india/storefront-service/internal/logging"
	"github.com/menswear-india/storefront-service/internal/models"
)

// ListTaxSettings handles GET /api/v1/tax/settings
func (h *Handlers) ListTaxSettings(c *gin.Context) {
	settings, err := h.taxSettingsService.ListSettings(c.Request.Context())
	if err != nil {
		handleError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"settings": settings})
}

// UpdateTaxSetting handles PUT /api/v1/tax/settings/:name
func (h *Handlers) UpdateTaxSetting(c *gin.Context) {
	name := c.Param("name")

	var req models.UpdateTaxSettingRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		h.logger.Error("Failed to bind tax setting request", logging.Fields{"error": err.Error()})
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid request body"})
		return
	}

	setting, err := h.taxSettingsService.UpdateSetting(c.Request.Context(), name, &req)
	if err != nil {
		handleError(c, err)
		return
	}

	c.JSON(http.StatusOK, setting)
}
