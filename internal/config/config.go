package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

// Config holds all configuration for the client process
type Config struct {
	// API Configuration
	API APIConfig

	// Storage Configuration
	Storage StorageConfig

	// Shell Configuration
	Shell ShellConfig

	// Logging Configuration
	Logging LoggingConfig
}

// APIConfig holds the external API configuration
type APIConfig struct {
	URL            string        // API root, e.g. http://localhost:8080
	VersionPrefix  string        // Fixed path segment appended to URL
	RequestTimeout time.Duration // Timeout for every request sent by the HTTP client
	RefreshTimeout time.Duration // Timeout for the refresh round-trip
}

// BaseURL returns the API root joined with the version prefix
func (a APIConfig) BaseURL() string {
	return strings.TrimRight(a.URL, "/") + "/" + strings.Trim(a.VersionPrefix, "/")
}

// StorageConfig selects the durable client storage backend
type StorageConfig struct {
	Backend      string // keyring, file, sqlite, redis, memory
	Dir          string // Directory for file and sqlite backends
	DatabaseURL  string // SQLite path
	RedisAddress string // Redis address (host:port)
}

// ShellConfig holds the web shell configuration
type ShellConfig struct {
	Address           string
	AllowOrigins      []string
	KeepaliveSchedule string // Cron expression, empty = no keepalive
}

// LoggingConfig holds logging-related configuration
type LoggingConfig struct {
	Level  string
	Format string // json, console
}

// Load loads configuration from environment variables
func Load() (*Config, error) {
	// Load .env files (fails silently if files don't exist)
	_ = godotenv.Load(".env")
	_ = godotenv.Load(".env.local")

	stateDir := os.Getenv("AUTHFRONT_STATE_DIR")
	if stateDir == "" {
		homeDir, err := os.UserHomeDir()
		if err != nil {
			return nil, fmt.Errorf("failed to get user home directory: %w", err)
		}
		stateDir = filepath.Join(homeDir, ".config", "authfront")
	}

	dbURL := os.Getenv("DATABASE_URL")
	if dbURL == "" {
		dbURL = filepath.Join(stateDir, "authfront.sqlite")
	}

	requestTimeout, err := durationEnv("REQUEST_TIMEOUT", 30*time.Second)
	if err != nil {
		return nil, err
	}

	refreshTimeout, err := durationEnv("REFRESH_TIMEOUT", 10*time.Second)
	if err != nil {
		return nil, err
	}

	var origins []string
	for _, origin := range strings.Split(getEnv("SHELL_ALLOW_ORIGINS", "http://localhost:5173"), ",") {
		if origin = strings.TrimSpace(origin); origin != "" {
			origins = append(origins, origin)
		}
	}

	return &Config{
		API: APIConfig{
			URL:            getEnv("API_URL", "http://localhost:8080"),
			VersionPrefix:  getEnv("API_VERSION_PREFIX", "/api/v1"),
			RequestTimeout: requestTimeout,
			RefreshTimeout: refreshTimeout,
		},
		Storage: StorageConfig{
			Backend:      getEnv("AUTHFRONT_STORAGE", "file"),
			Dir:          stateDir,
			DatabaseURL:  dbURL,
			RedisAddress: getEnv("REDIS_ADDRESS", "localhost:6379"),
		},
		Shell: ShellConfig{
			Address:           getEnv("SHELL_ADDRESS", ":5173"),
			AllowOrigins:      origins,
			KeepaliveSchedule: os.Getenv("KEEPALIVE_SCHEDULE"),
		},
		Logging: LoggingConfig{
			Level:  getEnv("LOG_LEVEL", "info"),
			Format: getEnv("LOG_FORMAT", "console"),
		},
	}, nil
}

func getEnv(key, fallback string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return fallback
}

func durationEnv(key string, fallback time.Duration) (time.Duration, error) {
	value := os.Getenv(key)
	if value == "" {
		return fallback, nil
	}
	d, err := time.ParseDuration(value)
	if err != nil {
		return 0, fmt.Errorf("invalid %s %q: %w", key, value, err)
	}
	return d, nil
}
