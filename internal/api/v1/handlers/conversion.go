package handlers

import (
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"

	"video-conversion/internal/api/middleware"
	"video-conversion/internal/api/v1/dto"
	"video-conversion/internal/api/v1/services"
)

// ConversionHandler handles conversion-related API endpoints
type ConversionHandler struct {
	service services.ConversionService
}

// NewConversionHandler creates a new conversion handler
func NewConversionHandler(service services.ConversionService) *ConversionHandler {
	return &ConversionHandler{service: service}
}

// Create handles POST /api/v1/conversions.
// Registering a hash that already exists returns the existing job with 200.
func (h *ConversionHandler) Create(c *gin.Context) {
	var req dto.CreateConversionRequest
	if err := middleware.ValidateRequest(c, &req); err != nil {
		middleware.HandleError(c, err)
		return
	}

	response, err := h.service.CreateConversion(c.Request.Context(), &req)
	if err != nil {
		middleware.HandleError(c, err)
		return
	}

	status := http.StatusOK
	if response.Status == "accepted" {
		status = http.StatusCreated
	}
	c.JSON(status, response)
}

// Get handles GET /api/v1/conversions/:hash
func (h *ConversionHandler) Get(c *gin.Context) {
	response, err := h.service.GetConversion(c.Request.Context(), hashParam(c))
	if err != nil {
		middleware.HandleError(c, err)
		return
	}
	c.JSON(http.StatusOK, response)
}

// RequestSubtitles handles POST /api/v1/conversions/:hash/subtitles
func (h *ConversionHandler) RequestSubtitles(c *gin.Context) {
	var req dto.CreateSubtitleRequest
	if err := middleware.ValidateRequest(c, &req); err != nil {
		middleware.HandleError(c, err)
		return
	}

	response, err := h.service.RequestSubtitles(c.Request.Context(), hashParam(c), &req)
	if err != nil {
		middleware.HandleError(c, err)
		return
	}
	c.JSON(http.StatusAccepted, response)
}

// Delete handles DELETE /api/v1/conversions/:hash
func (h *ConversionHandler) Delete(c *gin.Context) {
	if err := h.service.DeleteConversion(c.Request.Context(), hashParam(c)); err != nil {
		middleware.HandleError(c, err)
		return
	}
	c.Status(http.StatusNoContent)
}

func hashParam(c *gin.Context) string {
	return strings.ToLower(strings.TrimSpace(c.Param("hash")))
}
