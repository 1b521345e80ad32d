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
	ReadTimeout     time.Duration
	WriteTimeout    time.Duration
	ShutdownTimeout time.Duration

	// Database
	DatabaseURL string
	DBMaxConns  int32
	DBMinConns  int32

	// Push channel
	WSPath         string
	WSWriteTimeout time.Duration
	WSPingInterval time.Duration
	WSSendBuffer   int

	// Client reconnect policy (exposed here so server and client binaries
	// read the same knobs)
	ReconnectMinDelay    time.Duration
	ReconnectMaxDelay    time.Duration
	ReconnectMaxAttempts int

	// Pagination
	DefaultPageSize int
	MaxPageSize     int

	// Rate limiting: max dispatch triggers per second per notification type
	RateLimit int
}

func Load() (*Config, error) {
	dbURL := os.Getenv("DATABASE_URL")
	if dbURL == "" {
		return nil, fmt.Errorf("DATABASE_URL is required")
	}

	return &Config{
		HTTPPort:        getEnv("HTTP_PORT", "8080"),
		ReadTimeout:     getDuration("READ_TIMEOUT", 5*time.Second),
		WriteTimeout:    getDuration("WRITE_TIMEOUT", 10*time.Second),
		ShutdownTimeout: getDuration("SHUTDOWN_TIMEOUT", 30*time.Second),

		DatabaseURL: dbURL,
		DBMaxConns:  int32(getInt("DB_MAX_CONNS", 25)),
		DBMinConns:  int32(getInt("DB_MIN_CONNS", 5)),

		WSPath:         getEnv("WS_PATH", "/ws"),
		WSWriteTimeout: getDuration("WS_WRITE_TIMEOUT", 5*time.Second),
		WSPingInterval: getDuration("WS_PING_INTERVAL", 30*time.Second),
		WSSendBuffer:   getInt("WS_SEND_BUFFER", 32),

		ReconnectMinDelay:    getDuration("RECONNECT_MIN_DELAY", time.Second),
		ReconnectMaxDelay:    getDuration("RECONNECT_MAX_DELAY", 30*time.Second),
		ReconnectMaxAttempts: getInt("RECONNECT_MAX_ATTEMPTS", 10),

		DefaultPageSize: getInt("DEFAULT_PAGE_SIZE", 10),
		MaxPageSize:     getInt("MAX_PAGE_SIZE", 100),

		RateLimit: getInt("RATE_LIMIT_PER_TYPE", 50),
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
