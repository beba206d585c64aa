package main

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"marketplace-backend/internal/shared/middleware"
	"marketplace-backend/pkg/container"
)

// SetupRouter wires middleware and every domain's routes.
func SetupRouter(c *container.Container) *gin.Engine {
	router := gin.New()

	router.Use(middleware.Recovery())
	router.Use(middleware.Logger())

	router.GET("/health", func(ctx *gin.Context) {
		if err := c.DB.HealthCheck(ctx.Request.Context()); err != nil {
			ctx.JSON(http.StatusServiceUnavailable, gin.H{"status": "unhealthy", "error": err.Error()})
			return
		}
		ctx.JSON(http.StatusOK, gin.H{
			"status":  "healthy",
			"version": c.Config.App.Version,
		})
	})

	v1 := router.Group("/v1")
	v1.Use(middleware.AuthMiddleware(c.JWTManager))
	{
		c.OrderHandler.RegisterRoutes(v1)
		c.CouponHandler.RegisterRoutes(v1)
		c.NotificationHandler.RegisterRoutes(v1)
		c.MediaHandler.RegisterRoutes(v1)

		// Real-time notification channel
		v1.GET("/ws/notifications", c.Hub.HandleWS)
	}

	return router
}
