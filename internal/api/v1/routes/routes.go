package routes

import (
	"github.com/gin-gonic/gin"

	"video-conversion/internal/api/v1/handlers"
	"video-conversion/internal/api/v1/services"
)

// ServiceContainer holds all services needed by handlers
type ServiceContainer struct {
	ConversionService services.ConversionService
}

// RegisterRoutes registers all v1 API routes
func RegisterRoutes(router *gin.RouterGroup, container *ServiceContainer) {
	conversionHandler := handlers.NewConversionHandler(container.ConversionService)
	conversions := router.Group("/conversions")
	{
		conversions.POST("", conversionHandler.Create)
		conversions.GET("/:hash", conversionHandler.Get)
		conversions.DELETE("/:hash", conversionHandler.Delete)
		conversions.POST("/:hash/subtitles", conversionHandler.RequestSubtitles)
	}
}
