package middleware

import (
	"context"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"

	"github.com/misaops/misacard-server/internal/pkg/logger"
)

// MaintenanceMiddleware checks if the system is in maintenance mode
func MaintenanceMiddleware(redisClient *redis.Client) gin.HandlerFunc {
	return func(c *gin.Context) {
		// Health and metrics must stay reachable during maintenance
		path := c.Request.URL.Path
		if path == "/health" || path == "/ready" || path == "/metrics" || path == "/" {
			c.Next()
			return
		}

		// Short timeout so a slow redis cannot stall every request
		ctx, cancel := context.WithTimeout(context.Background(), 100*time.Millisecond)
		defer cancel()

		val, err := redisClient.Get(ctx, "misacard:maintenance").Result()
		if err != nil && err != redis.Nil {
			// Fail open to avoid an outage when redis is down
			logger.Error("Failed to check maintenance mode", zap.Error(err))
			c.Next()
			return
		}

		if val == "true" {
			c.JSON(http.StatusServiceUnavailable, gin.H{
				"error":   "Service under maintenance",
				"message": "We are currently upgrading our systems. Please try again later.",
			})
			c.Abort()
			return
		}

		c.Next()
	}
}
