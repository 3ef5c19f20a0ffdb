package config

import (
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

type Config struct {
	Port               string
	DatabaseDSN        string
	JWTSecret          string
	GoogleClientID     string
	GoogleClientSecret string

	SyncWindowDays   int
	SyncInterval     time.Duration
	SyncPageSize     int64
	SyncMaxWorkers   int
	SyncMaxRetries   int
	SyncRetryBackoff time.Duration
	ProviderTimeout  time.Duration

	IMAPHost     string
	IMAPPort     int
	IMAPUsername string
	IMAPPassword string

	FeedURLs []string
	LogLevel string
}

func Load() *Config {
	// Load .env file if it exists
	_ = godotenv.Load()

	return &Config{
		Port:               getEnv("PORT", "8080"),
		DatabaseDSN:        getEnv("DATABASE_DSN", "host=localhost user=postgres password=postgres dbname=traction port=5432 sslmode=disable"),
		JWTSecret:          getEnv("JWT_SECRET", "your-secret-key-change-in-production"),
		GoogleClientID:     getEnv("GOOGLE_CLIENT_ID", ""),
		GoogleClientSecret: getEnv("GOOGLE_CLIENT_SECRET", ""),

		SyncWindowDays:   getEnvInt("SYNC_WINDOW_DAYS", 30),
		SyncInterval:     getEnvDuration("SYNC_INTERVAL", time.Hour),
		SyncPageSize:     int64(getEnvInt("SYNC_PAGE_SIZE", 100)),
		SyncMaxWorkers:   getEnvInt("SYNC_MAX_WORKERS", 4),
		SyncMaxRetries:   getEnvInt("SYNC_MAX_RETRIES", 3),
		SyncRetryBackoff: getEnvDuration("SYNC_RETRY_BACKOFF", 500*time.Millisecond),
		ProviderTimeout:  getEnvDuration("PROVIDER_TIMEOUT", 30*time.Second),

		IMAPHost:     getEnv("IMAP_HOST", ""),
		IMAPPort:     getEnvInt("IMAP_PORT", 993),
		IMAPUsername: getEnv("IMAP_USERNAME", ""),
		IMAPPassword: getEnv("IMAP_PASSWORD", ""),

		FeedURLs: getEnvList("FEED_URLS"),
		LogLevel: getEnv("LOG_LEVEL", "info"),
	}
}

func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getEnvInt(key string, defaultValue int) int {
	if value := os.Getenv(key); value != "" {
		if parsed, err := strconv.Atoi(value); err == nil {
			return parsed
		}
	}
	return defaultValue
}

func getEnvDuration(key string, defaultValue time.Duration) time.Duration {
	if value := os.Getenv(key); value != "" {
		if parsed, err := time.ParseDuration(value); err == nil {
			return parsed
		}
	}
	return defaultValue
}

func getEnvList(key string) []string {
	value := os.Getenv(key)
	if value == "" {
		return nil
	}
	var items []string
	for _, part := range strings.Split(value, ",") {
		if trimmed := strings.TrimSpace(part); trimmed != "" {
			items = append(items, trimmed)
		}
	}
	return items
}
