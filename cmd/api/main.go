package main

import (
	"context"
	"database/sql"
	"fmt"
	"log"
	"net/http"
	"os"
	"os/signal"
	"runtime"
	"syscall"
	"time"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
	"github.com/joho/godotenv"
	_ "github.com/lib/pq"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/redis/go-redis/v9"

	"github.com/misaops/misacard-server/internal/api/handlers"
	"github.com/misaops/misacard-server/internal/api/middleware"
	"github.com/misaops/misacard-server/internal/config"
	"github.com/misaops/misacard-server/internal/issuer"
	"github.com/misaops/misacard-server/internal/pkg/crypto"
	"github.com/misaops/misacard-server/internal/pkg/jwt"
	"github.com/misaops/misacard-server/internal/pkg/logger"
	"github.com/misaops/misacard-server/internal/pkg/metrics"
	"github.com/misaops/misacard-server/internal/pkg/ratelimit"
	"github.com/misaops/misacard-server/internal/repository"
	"github.com/misaops/misacard-server/internal/service"
)

const version = "1.0.0"

func main() {
	// Load environment variables
	if err := godotenv.Load(); err != nil {
		log.Println("No .env file found, using system environment variables")
	}

	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("Invalid configuration: %v", err)
	}

	logger.Init(cfg.Env)
	defer logger.Sync()

	if cfg.Env == "production" {
		gin.SetMode(gin.ReleaseMode)
	}

	db, err := sql.Open("postgres", cfg.DatabaseURL)
	if err != nil {
		log.Fatalf("Failed to open database: %v", err)
	}
	defer func() {
		_ = db.Close()
	}()

	if err := db.Ping(); err != nil {
		log.Fatalf("Failed to connect to database: %v", err)
	}

	redisClient := redis.NewClient(&redis.Options{Addr: cfg.RedisAddr})

	encryptor, err := crypto.NewEncryptor(cfg.EncryptionKey)
	if err != nil {
		log.Fatalf("Failed to create encryptor: %v", err)
	}

	// Repositories
	cardRepo := repository.NewCardRepository(db)
	logRepo := repository.NewActivationLogRepository(db)

	// Collaborators
	issuerClient := issuer.NewClient(cfg)
	jwtService := jwt.NewJWTService(cfg.JWTSecret, cfg.JWTExpiryHours)
	limiter := ratelimit.NewRateLimiter(redisClient)

	// Services
	cardService := service.NewCardService(cardRepo, logRepo, issuerClient, encryptor)
	reconcileService := service.NewReconcileService(cardRepo, logRepo, issuerClient, encryptor)
	syncService := service.NewSyncService(cardRepo, logRepo, encryptor, cfg.SyncSecret)
	importService := service.NewImportService(cardRepo)
	authService := service.NewAuthService(cfg.AdminPasswordHash, jwtService)

	// Handlers
	cardHandler := handlers.NewCardHandler(cardService, reconcileService)
	importHandler := handlers.NewImportHandler(importService)
	syncHandler := handlers.NewSyncHandler(syncService, limiter)
	authHandler := handlers.NewAuthHandler(authService)

	router := gin.New()
	router.Use(gin.Recovery())
	router.Use(cors.Default())
	router.Use(middleware.MetricsMiddleware())
	router.Use(middleware.MaintenanceMiddleware(redisClient))
	router.Use(middleware.RateLimitMiddleware(limiter))

	metrics.SetSystemInfo(version, runtime.Version())

	router.GET("/health", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{
			"status":    "healthy",
			"timestamp": time.Now().Unix(),
		})
	})

	router.GET("/ready", func(c *gin.Context) {
		if err := db.Ping(); err != nil {
			c.JSON(http.StatusServiceUnavailable, gin.H{"status": "not ready"})
			return
		}
		c.JSON(http.StatusOK, gin.H{"status": "ready"})
	})

	router.GET("/", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{
			"service": "MisaCard Admin API",
			"version": version,
			"status":  "operational",
		})
	})

	router.GET("/metrics", gin.WrapH(promhttp.Handler()))

	// Public channel: signed sync submissions from the card-query page
	public := router.Group("/public")
	{
		public.POST("/cards/:card_id/sync", syncHandler.SyncCard)
	}

	api := router.Group("/api")
	{
		api.POST("/auth/login", authHandler.Login)

		admin := api.Group("")
		admin.Use(middleware.AuthMiddleware(jwtService))
		{
			admin.POST("/cards", cardHandler.CreateCard)
			admin.GET("/cards", cardHandler.ListCards)
			admin.GET("/cards/batch/unreturned-card-numbers", cardHandler.UnreturnedCardNumbers)
			admin.GET("/cards/:card_id", cardHandler.GetCard)
			admin.PUT("/cards/:card_id", cardHandler.UpdateCard)
			admin.DELETE("/cards/:card_id", cardHandler.DeleteCard)
			admin.POST("/cards/:card_id/activate", cardHandler.ActivateCard)
			admin.POST("/cards/:card_id/query", cardHandler.QueryCard)
			admin.GET("/cards/:card_id/logs", cardHandler.ActivationLogs)
			admin.GET("/cards/:card_id/transactions", cardHandler.Transactions)
			admin.POST("/cards/:card_id/refund", cardHandler.ToggleRefund)

			admin.POST("/import/text", importHandler.ImportText)
			admin.POST("/import/json", importHandler.ImportJSON)
		}
	}

	srv := &http.Server{
		Addr:    fmt.Sprintf(":%s", cfg.Port),
		Handler: router,
	}

	// Graceful shutdown
	go func() {
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatalf("Failed to start server: %v", err)
		}
	}()

	log.Printf("Server started on port %s", cfg.Port)

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	log.Println("Shutting down server...")

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	if err := srv.Shutdown(ctx); err != nil {
		log.Fatal("Server forced to shutdown:", err)
	}

	log.Println("Server exited")
}
