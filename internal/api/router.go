package api

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"push-service/internal/config"
	"push-service/internal/logging"
)

func NewRouter(logger *logging.Logger, cfg config.Config, h *Handler) *gin.Engine {
	r := gin.New()
	r.Use(gin.Recovery())
	r.Use(RequestLoggingMiddleware(logger))

	api := r.Group(cfg.API.BasePath)
	{
		// Subscriptions
		api.POST("/subscriptions", h.RegisterSubscription)
		api.GET("/subscriptions/user/:user_id", h.GetSubscriptionsByUserID)
		api.DELETE("/subscriptions/:id", h.DeleteSubscription)

		// Dispatch trigger
		api.POST("/notifications/dispatch", h.DispatchNotification)

		// Scheduled job triggers
		api.POST("/jobs/retry-run", h.RunRetries)
		api.POST("/jobs/sweep", h.RunSweep)

		// Analytics + click tracking
		api.GET("/analytics", h.GetAnalytics)
		api.POST("/delivery-logs/:id/click", h.ClickDeliveryLog)

		// Live delivery status
		api.GET("/ws/:user_id", h.LiveStatus)
	}

	r.GET("/health", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"status": "ok"})
	})

	return r
}
