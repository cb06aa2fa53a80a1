package middleware

import (
	"time"

	"github.com/gin-gonic/gin"

	"github.com/misaops/misacard-server/internal/pkg/metrics"
)

// MetricsMiddleware records HTTP metrics for each request
func MetricsMiddleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		path := c.FullPath()
		if path == "" {
			path = c.Request.URL.Path
		}

		c.Next()

		duration := time.Since(start).Seconds()
		metrics.RecordHTTPRequest(c.Request.Method, path, c.Writer.Status(), duration)
	}
}
