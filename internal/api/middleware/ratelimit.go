package middleware

import (
	"context"
	"fmt"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"github.com/misaops/misacard-server/internal/pkg/logger"
	"github.com/misaops/misacard-server/internal/pkg/ratelimit"
)

// RateLimitMiddleware throttles requests per client IP and endpoint. The
// anonymous public channel gets the strictest window.
func RateLimitMiddleware(limiter *ratelimit.RateLimiter) gin.HandlerFunc {
	return func(c *gin.Context) {
		ctx := context.Background()

		clientIP := c.ClientIP()
		cfg := configForPath(c.FullPath())
		key := fmt.Sprintf("misacard:ratelimit:%s:%s", clientIP, c.FullPath())

		blocked, err := limiter.IsBlocked(ctx, clientIP)
		if err != nil {
			logger.Error("Failed to check block status", zap.Error(err))
		}
		if blocked {
			c.JSON(http.StatusTooManyRequests, gin.H{
				"error":       "Too many requests. Your IP has been temporarily blocked.",
				"retry_after": "5 minutes",
			})
			c.Abort()
			return
		}

		info, err := limiter.Check(ctx, key, cfg)
		if err != nil {
			// Fail open: the limiter protects the issuer quota, it must not
			// take the service down with it.
			logger.Error("Rate limit check failed", zap.Error(err))
			c.Next()
			return
		}

		c.Header("X-RateLimit-Limit", fmt.Sprintf("%d", info.Limit))
		c.Header("X-RateLimit-Remaining", fmt.Sprintf("%d", info.Remaining))
		c.Header("X-RateLimit-Reset", fmt.Sprintf("%d", info.Reset.Unix()))

		if !info.Allowed {
			c.Header("Retry-After", fmt.Sprintf("%d", int(info.RetryAfter.Seconds())))

			logger.Warn("Rate limit exceeded",
				zap.String("ip", clientIP),
				zap.String("path", c.FullPath()),
				zap.Int("limit", info.Limit),
			)

			c.JSON(http.StatusTooManyRequests, gin.H{
				"error":       "Rate limit exceeded",
				"limit":       info.Limit,
				"retry_after": fmt.Sprintf("%d seconds", int(info.RetryAfter.Seconds())),
			})
			c.Abort()
			return
		}

		c.Next()
	}
}

func configForPath(path string) ratelimit.Config {
	switch {
	case strings.HasPrefix(path, "/public/"):
		return ratelimit.PublicSyncLimit
	case strings.HasPrefix(path, "/api/auth/"):
		return ratelimit.LoginLimit
	default:
		return ratelimit.AdminLimit
	}
}
