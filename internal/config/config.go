package config

import (
	"fmt"
	"net/url"
	"os"
	"strconv"
	"time"
)

// Config holds all runtime configuration. It is built once in main and passed
// by injection; core packages never read the environment themselves.
type Config struct {
	Port string
	Env  string

	DatabaseURL string
	RedisAddr   string

	IssuerBaseURL         string
	IssuerCardInfoBaseURL string
	IssuerToken           string
	IssuerTimeout         time.Duration
	IssuerConnectTimeout  time.Duration

	AdminPasswordHash string
	JWTSecret         string
	JWTExpiryHours    int

	// SyncSecret keys the HMAC over public sync submissions. Never sent to clients.
	SyncSecret string

	EncryptionKey string
}

// Load builds a Config from environment variables.
func Load() (*Config, error) {
	cfg := &Config{
		Port:                  getEnv("PORT", "8080"),
		Env:                   getEnv("ENV", "development"),
		DatabaseURL:           os.Getenv("DATABASE_URL"),
		RedisAddr:             getEnv("REDIS_ADDR", "localhost:6379"),
		IssuerBaseURL:         getEnv("ISSUER_API_BASE_URL", "https://api.misacard.com/api/card"),
		IssuerCardInfoBaseURL: getEnv("ISSUER_CARD_INFO_BASE_URL", "https://api.misacard.com/api/m/get_card_info"),
		IssuerToken:           os.Getenv("ISSUER_API_TOKEN"),
		IssuerTimeout:         time.Duration(getEnvInt("ISSUER_TIMEOUT_SECONDS", 30)) * time.Second,
		IssuerConnectTimeout:  time.Duration(getEnvInt("ISSUER_CONNECT_TIMEOUT_SECONDS", 10)) * time.Second,
		AdminPasswordHash:     os.Getenv("ADMIN_PASSWORD_HASH"),
		JWTSecret:             os.Getenv("JWT_SECRET"),
		JWTExpiryHours:        getEnvInt("JWT_EXPIRY_HOURS", 24),
		SyncSecret:            os.Getenv("SYNC_SECRET"),
		EncryptionKey:         os.Getenv("ENCRYPTION_KEY"),
	}

	if cfg.DatabaseURL == "" {
		cfg.DatabaseURL = databaseURLFromParts()
	}
	if cfg.DatabaseURL == "" {
		return nil, fmt.Errorf("DATABASE_URL is required")
	}
	if cfg.IssuerToken == "" {
		return nil, fmt.Errorf("ISSUER_API_TOKEN is required")
	}
	if cfg.AdminPasswordHash == "" {
		return nil, fmt.Errorf("ADMIN_PASSWORD_HASH is required")
	}
	if cfg.JWTSecret == "" {
		return nil, fmt.Errorf("JWT_SECRET is required")
	}
	if cfg.SyncSecret == "" {
		return nil, fmt.Errorf("SYNC_SECRET is required")
	}
	if len(cfg.EncryptionKey) != 32 {
		return nil, fmt.Errorf("ENCRYPTION_KEY must be exactly 32 bytes")
	}

	return cfg, nil
}

func databaseURLFromParts() string {
	host := os.Getenv("DB_HOST")
	port := os.Getenv("DB_PORT")
	user := os.Getenv("DB_USER")
	name := os.Getenv("DB_NAME")
	password := os.Getenv("DB_PASSWORD")

	if host == "" || port == "" || user == "" || name == "" {
		return ""
	}
	return fmt.Sprintf("postgres://%s:%s@%s:%s/%s?sslmode=disable",
		user, url.QueryEscape(password), host, port, name)
}

func getEnv(key, defaultVal string) string {
	if value, exists := os.LookupEnv(key); exists {
		return value
	}
	return defaultVal
}

func getEnvInt(key string, defaultVal int) int {
	value, exists := os.LookupEnv(key)
	if !exists {
		return defaultVal
	}
	n, err := strconv.Atoi(value)
	if err != nil {
		return defaultVal
	}
	return n
}
