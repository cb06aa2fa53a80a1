package middleware

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/gin-gonic/gin"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"

	"github.com/misaops/misacard-server/internal/pkg/logger"
	"github.com/misaops/misacard-server/internal/pkg/ratelimit"
)

func setupRateLimitTest(t *testing.T) (*miniredis.Miniredis, *ratelimit.RateLimiter) {
	logger.Init("test")
	mr, err := miniredis.Run()
	assert.NoError(t, err)

	redisClient := redis.NewClient(&redis.Options{
		Addr: mr.Addr(),
	})

	limiter := ratelimit.NewRateLimiter(redisClient)
	return mr, limiter
}

func TestRateLimitMiddleware_AllowsUnderLimit(t *testing.T) {
	mr, limiter := setupRateLimitTest(t)
	defer mr.Close()

	gin.SetMode(gin.TestMode)
	router := gin.New()
	router.Use(RateLimitMiddleware(limiter))
	router.GET("/api/cards", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"message": "success"})
	})

	req, _ := http.NewRequest("GET", "/api/cards", nil)
	req.RemoteAddr = "127.0.0.1:12345"
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)

	assert.Equal(t, http.StatusOK, w.Code)
	assert.NotEmpty(t, w.Header().Get("X-RateLimit-Limit"))
	assert.NotEmpty(t, w.Header().Get("X-RateLimit-Remaining"))
	assert.NotEmpty(t, w.Header().Get("X-RateLimit-Reset"))
}

func TestRateLimitMiddleware_PublicChannelIsStrict(t *testing.T) {
	mr, limiter := setupRateLimitTest(t)
	defer mr.Close()

	gin.SetMode(gin.TestMode)
	router := gin.New()
	router.Use(RateLimitMiddleware(limiter))
	router.POST("/public/cards/:card_id/sync", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"synced": false})
	})

	var lastCode int
	for i := 0; i < ratelimit.PublicSyncLimit.Requests+1; i++ {
		req, _ := http.NewRequest("POST", "/public/cards/mio-x/sync", nil)
		req.RemoteAddr = "10.0.0.1:12345"
		w := httptest.NewRecorder()
		router.ServeHTTP(w, req)
		lastCode = w.Code
	}

	assert.Equal(t, http.StatusTooManyRequests, lastCode)
}

func TestRateLimitMiddleware_BlockedIP(t *testing.T) {
	mr, limiter := setupRateLimitTest(t)
	defer mr.Close()

	err := limiter.Block(context.Background(), "10.0.0.2", 5*time.Minute)
	assert.NoError(t, err)

	gin.SetMode(gin.TestMode)
	router := gin.New()
	router.Use(RateLimitMiddleware(limiter))
	router.GET("/api/cards", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"message": "success"})
	})

	req, _ := http.NewRequest("GET", "/api/cards", nil)
	req.RemoteAddr = "10.0.0.2:12345"
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)

	assert.Equal(t, http.StatusTooManyRequests, w.Code)
	assert.Contains(t, w.Body.String(), "temporarily blocked")
}

func TestRateLimitMiddleware_FailsOpenWhenRedisDown(t *testing.T) {
	mr, limiter := setupRateLimitTest(t)
	mr.Close() // redis gone before the first request

	gin.SetMode(gin.TestMode)
	router := gin.New()
	router.Use(RateLimitMiddleware(limiter))
	router.GET("/api/cards", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"message": "success"})
	})

	req, _ := http.NewRequest("GET", "/api/cards", nil)
	req.RemoteAddr = "127.0.0.1:12345"
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)

	assert.Equal(t, http.StatusOK, w.Code)
}

func TestMaintenanceMiddleware_BlocksDuringMaintenance(t *testing.T) {
	logger.Init("test")
	mr, err := miniredis.Run()
	assert.NoError(t, err)
	defer mr.Close()

	redisClient := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	assert.NoError(t, mr.Set("misacard:maintenance", "true"))

	gin.SetMode(gin.TestMode)
	router := gin.New()
	router.Use(MaintenanceMiddleware(redisClient))
	router.GET("/api/cards", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"message": "success"})
	})
	router.GET("/health", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"status": "healthy"})
	})

	req, _ := http.NewRequest("GET", "/api/cards", nil)
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)
	assert.Equal(t, http.StatusServiceUnavailable, w.Code)

	// Health stays reachable.
	req, _ = http.NewRequest("GET", "/health", nil)
	w = httptest.NewRecorder()
	router.ServeHTTP(w, req)
	assert.Equal(t, http.StatusOK, w.Code)
}

func TestMaintenanceMiddleware_FailsOpenWhenRedisDown(t *testing.T) {
	logger.Init("test")
	mr, err := miniredis.Run()
	assert.NoError(t, err)
	addr := mr.Addr()
	mr.Close()

	redisClient := redis.NewClient(&redis.Options{Addr: addr})

	gin.SetMode(gin.TestMode)
	router := gin.New()
	router.Use(MaintenanceMiddleware(redisClient))
	router.GET("/api/cards", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"message": "success"})
	})

	req, _ := http.NewRequest("GET", "/api/cards", nil)
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)
	assert.Equal(t, http.StatusOK, w.Code)
}
