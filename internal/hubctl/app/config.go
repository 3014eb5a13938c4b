package app

import (
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"
)

// Store backends.
const (
	StoreSQLite = "sqlite"
	StoreMemory = "memory"
	StoreRedis  = "redis"
)

type Config struct {
	BaseURL string // API origin (default: http://localhost:8000)

	Store         string        // Credential backend: sqlite, memory, redis (default: sqlite)
	DatabaseFile  string        // SQLite file for the sqlite backend (default: ~/.hubctl/credentials.db)
	RedisAddr     string        // Redis address for the redis backend (default: localhost:6379)
	RedisPassword string        // Optional
	RedisDB       int           // Redis logical database (default: 0)
	SessionTTL    time.Duration // Lifetime of the session scope in Redis (default: 24h)
	Profile       string        // Credential profile, one per account or environment (default: default)
	MasterKeyPath string        // Optional: file holding the key that seals stored tokens
	MasterKey     string        // Optional: the sealing key itself, when no file is given

	CoalesceRefresh bool          // Share one refresh between concurrent 401s (default: false)
	SessionSync     bool          // Push refreshed tokens to the server session (default: true)
	CSRFToken       string        // Optional: fixed X-CSRFToken instead of the csrftoken cookie
	Timeout         time.Duration // Per-request timeout (default: 30s)

	Env       string // Environment (dev, staging, prod) (default: prod)
	LogLevel  string // Log level (debug, info, warn, error) (default: warn)
	LogFormat string // Log format (json, text) (default: text)
}

func LoadConfig() Config {
	return Config{
		BaseURL: getEnvOrDefault("HUB_BASE_URL", "http://localhost:8000"),

		Store:         strings.ToLower(getEnvOrDefault("HUB_STORE", StoreSQLite)),
		DatabaseFile:  getEnvOrDefault("HUB_DATABASE_FILE", defaultDatabaseFile()),
		RedisAddr:     getEnvOrDefault("HUB_REDIS_ADDR", "localhost:6379"),
		RedisPassword: os.Getenv("HUB_REDIS_PASSWORD"),
		RedisDB:       getEnvIntOrDefault("HUB_REDIS_DB", 0),
		SessionTTL:    getEnvDurationOrDefault("HUB_SESSION_TTL", 24*time.Hour),
		Profile:       getEnvOrDefault("HUB_PROFILE", "default"),
		MasterKeyPath: os.Getenv("HUB_MASTER_KEY_PATH"),
		MasterKey:     os.Getenv("HUB_MASTER_KEY"),

		CoalesceRefresh: getEnvBoolOrDefault("HUB_COALESCE_REFRESH", false),
		SessionSync:     getEnvBoolOrDefault("HUB_SESSION_SYNC", true),
		CSRFToken:       os.Getenv("HUB_CSRF_TOKEN"),
		Timeout:         getEnvDurationOrDefault("HUB_TIMEOUT", 30*time.Second),

		// A CLI is quiet by default; logs go to stderr.
		Env:       getEnvOrDefault("ENV", "prod"),
		LogLevel:  getEnvOrDefault("LOG_LEVEL", "warn"),
		LogFormat: getEnvOrDefault("LOG_FORMAT", "text"),
	}
}

func defaultDatabaseFile() string {
	home, err := os.UserHomeDir()
	if err != nil {
		return "hubctl-credentials.db"
	}
	return filepath.Join(home, ".hubctl", "credentials.db")
}

func getEnvOrDefault(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getEnvIntOrDefault(key string, defaultValue int) int {
	value := os.Getenv(key)
	if value == "" {
		return defaultValue
	}

	if intValue, err := strconv.Atoi(value); err == nil {
		return intValue
	}

	return defaultValue
}

func getEnvDurationOrDefault(key string, defaultValue time.Duration) time.Duration {
	value := os.Getenv(key)
	if value == "" {
		return defaultValue
	}

	// Try parsing as duration (e.g., "1h", "30m", "90s")
	if duration, err := time.ParseDuration(value); err == nil {
		return duration
	}

	// Plain integers are seconds
	if seconds, err := strconv.Atoi(value); err == nil {
		return time.Duration(seconds) * time.Second
	}

	return defaultValue
}

func getEnvBoolOrDefault(key string, defaultValue bool) bool {
	value := os.Getenv(key)
	if value == "" {
		return defaultValue
	}

	if b, err := strconv.ParseBool(value); err == nil {
		return b
	}

	return defaultValue
}
