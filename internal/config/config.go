package config

import (
	"fmt"
	"os"
	"strconv"
	"time"
)

// Config holds all runtime configuration loaded from environment variables.
// Every field has a sensible default; only DATABASE_URL is required.
type Config struct {
	// Server
	HTTPPort        string
	BaseURL         string
	ReadTimeout     time.Duration
	WriteTimeout    time.Duration
	ShutdownTimeout time.Duration

	// Database
	DatabaseURL string
	DBMaxConns  int32
	DBMinConns  int32

	// Email transport
	EmailBaseURL      string
	EmailSender       string
	EmailAuthToken    string
	EmailSendTimeout  time.Duration
	SendRatePerSecond int

	// Delivery workers
	DeliveryWorkers int
	PollInterval    time.Duration
	ErrorBackoff    time.Duration
	DepthInterval   time.Duration

	// Admin credentials for the newsletter publish endpoint.
	// The owner ID scopes idempotency keys to this principal.
	AdminUsername string
	AdminPassword string
	AdminOwnerID  string
}

func Load() (*Config, error) {
	dbURL := os.Getenv("DATABASE_URL")
	if dbURL == "" {
		return nil, fmt.Errorf("DATABASE_URL is required")
	}

	return &Config{
		HTTPPort:        getEnv("HTTP_PORT", "8080"),
		BaseURL:         getEnv("BASE_URL", "http://localhost:8080"),
		ReadTimeout:     getDuration("READ_TIMEOUT", 5*time.Second),
		WriteTimeout:    getDuration("WRITE_TIMEOUT", 10*time.Second),
		ShutdownTimeout: getDuration("SHUTDOWN_TIMEOUT", 30*time.Second),

		DatabaseURL: dbURL,
		DBMaxConns:  int32(getInt("DB_MAX_CONNS", 25)),
		DBMinConns:  int32(getInt("DB_MIN_CONNS", 5)),

		EmailBaseURL:      getEnv("EMAIL_BASE_URL", "https://api.postmarkapp.com"),
		EmailSender:       getEnv("EMAIL_SENDER", "newsletter@example.com"),
		EmailAuthToken:    getEnv("EMAIL_AUTH_TOKEN", ""),
		EmailSendTimeout:  getDuration("EMAIL_SEND_TIMEOUT", 10*time.Second),
		SendRatePerSecond: getInt("SEND_RATE_PER_SECOND", 50),

		DeliveryWorkers: getInt("DELIVERY_WORKERS", 4),
		PollInterval:    getDuration("POLL_INTERVAL", 1*time.Second),
		ErrorBackoff:    getDuration("ERROR_BACKOFF", 5*time.Second),
		DepthInterval:   getDuration("DEPTH_INTERVAL", 10*time.Second),

		AdminUsername: getEnv("ADMIN_USERNAME", "admin"),
		AdminPassword: getEnv("ADMIN_PASSWORD", "everythinghastostartsomewhere"),
		AdminOwnerID:  getEnv("ADMIN_OWNER_ID", "6f4a5ab0-1f8e-4b2b-9c7e-000000000001"),
	}, nil
}

func getEnv(key, defaultVal string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return defaultVal
}

func getInt(key string, defaultVal int) int {
	if v := os.Getenv(key); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			return n
		}
	}
	return defaultVal
}

func getDuration(key string, defaultVal time.Duration) time.Duration {
	if v := os.Getenv(key); v != "" {
		if d, err := time.ParseDuration(v); err == nil {
			return d
		}
	}
	return defaultVal
}
