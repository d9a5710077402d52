package http

import (
	"github.com/gin-gonic/gin"
	"github.com/humidor/backend/config"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/rs/zerolog"
)

// SetupRouter creates and configures the Gin router
func SetupRouter(cfg *config.Config, handler *Handler, logger zerolog.Logger) *gin.Engine {
	if cfg.Server.Environment == "production" {
		gin.SetMode(gin.ReleaseMode)
	}

	router := gin.New()

	router.Use(RequestIDMiddleware())
	router.Use(LoggerMiddleware(logger))
	router.Use(RecoveryMiddleware(logger))
	router.Use(CORSMiddleware(cfg.Server.AllowedOrigins))

	router.GET("/health", handler.HealthCheck)
	router.GET("/metrics", gin.WrapH(promhttp.Handler()))

	v1 := router.Group("/api/v1")
	v1.Use(RateLimitMiddleware(cfg.RateLimit.PerIP))
	{
		v1.POST("/chat", handler.Chat)
		v1.POST("/scan", handler.Scan)

		inventory := v1.Group("/inventory")
		{
			inventory.GET("", handler.ListInventory)
			inventory.GET("/:id", handler.GetInventory)

			admin := inventory.Group("")
			admin.Use(AdminAuthMiddleware(cfg.Server.AdminToken))
			admin.POST("", handler.CreateInventory)
			admin.PUT("/:id", handler.UpdateInventory)
			admin.DELETE("/:id", handler.DeleteInventory)
		}
	}

	return router
}
