package config

import (
	"fmt"
	"log"
	"os"
	"strconv"
	"time"

	"github.com/joho/godotenv"
)

// Session storage backends.
const (
	BackendSQLite = "sqlite"
	BackendRedis  = "redis"
	BackendMySQL  = "mysql"
	BackendMemory = "memory"
)

type AppConfig struct {
	// APIBaseURL is the root of the remote auth and weather API.
	APIBaseURL string

	// HTTPTimeout bounds every outbound request.
	HTTPTimeout time.Duration

	// Retry policy for remote calls.
	FetchMaxRetries    int
	FetchRetryInterval time.Duration

	// Durable session storage.
	SessionBackend string
	SessionDBPath  string // sqlite
	RedisAddr      string
	RedisPassword  string
	RedisDB        int
	MySQLDSN       string

	Port string
}

// Load reads configuration from environment with sensible defaults.
func Load() (*AppConfig, error) {
	if err := godotenv.Load(); err != nil {
		log.Printf("INFO: No .env file found or error loading it: %v", err)
	}
	cfg := &AppConfig{}

	cfg.APIBaseURL = getenvDefault("WEATHER_API_BASE_URL", "http://localhost:8000/api/v1")

	var err error
	if cfg.HTTPTimeout, err = getenvDuration("HTTP_TIMEOUT", "10s"); err != nil {
		return nil, err
	}
	if cfg.FetchRetryInterval, err = getenvDuration("FETCH_RETRY_INTERVAL", "500ms"); err != nil {
		return nil, err
	}

	// One retry per request, matching the web client.
	cfg.FetchMaxRetries = getenvInt("FETCH_MAX_RETRIES", 1)
	if cfg.FetchMaxRetries < 0 {
		return nil, fmt.Errorf("invalid FETCH_MAX_RETRIES: must not be negative")
	}

	cfg.SessionBackend = getenvDefault("SESSION_BACKEND", BackendSQLite)
	switch cfg.SessionBackend {
	case BackendSQLite, BackendRedis, BackendMySQL, BackendMemory:
	default:
		return nil, fmt.Errorf("invalid SESSION_BACKEND %q", cfg.SessionBackend)
	}
	cfg.SessionDBPath = getenvDefault("SESSION_DB_PATH", "weather-dashboard.db")
	cfg.RedisAddr = getenvDefault("REDIS_ADDR", "localhost:6379")
	cfg.RedisPassword = os.Getenv("REDIS_PASSWORD")
	cfg.RedisDB = getenvInt("REDIS_DB", 0)
	cfg.MySQLDSN = os.Getenv("MYSQL_DSN")
	if cfg.SessionBackend == BackendMySQL && cfg.MySQLDSN == "" {
		return nil, fmt.Errorf("MYSQL_DSN is required when SESSION_BACKEND=mysql")
	}

	cfg.Port = getenvDefault("PORT", "8080")

	return cfg, nil
}

func getenvDefault(key, def string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return def
}

func getenvInt(key string, def int) int {
	if v := os.Getenv(key); v != "" {
		n, err := strconv.Atoi(v)
		if err == nil {
			return n
		}
	}
	return def
}

func getenvDuration(key, def string) (time.Duration, error) {
	d, err := time.ParseDuration(getenvDefault(key, def))
	if err != nil {
		return 0, fmt.Errorf("invalid %s: %w", key, err)
	}
	return d, nil
}
