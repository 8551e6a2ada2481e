// ABOUTME: Configuration management for the application with environment variable support
// ABOUTME: Defines configuration structures for server, cache, storage and external services

package config

import (
	"errors"
	"os"
	"strconv"
	"strings"
	"time"
)

// Config holds all application configuration
type Config struct {
	// Server contains HTTP server configuration
	Server ServerConfig

	// Cache contains cache configuration
	Cache CacheConfig

	// Storage contains the scan and profile system of record configuration
	Storage StorageConfig

	// Inference contains the model server configuration
	Inference InferenceConfig

	// Translate contains machine translation configuration
	Translate TranslateConfig

	// Speech contains speech synthesis configuration
	Speech SpeechConfig

	// Alerts contains community alert configuration
	Alerts AlertsConfig

	// ReadAloud contains read-aloud session configuration
	ReadAloud ReadAloudConfig

	// Log contains logging configuration
	Log LogConfig
}

// ServerConfig holds HTTP server configuration
type ServerConfig struct {
	// Port is the HTTP server port
	Port string

	// PublicURL is the externally visible base URL, used for audio links
	PublicURL string

	// RateLimit is the number of requests allowed per RateWindow per client
	RateLimit int

	// RateWindow is the rate limit window
	RateWindow time.Duration

	// MaxUploadBytes bounds the size of uploaded leaf photos
	MaxUploadBytes int64
}

// CacheConfig holds cache backend configuration
type CacheConfig struct {
	// Type specifies the cache backend (redis/memory)
	Type string

	// Redis contains Redis-specific configuration
	Redis RedisConfig

	// Memory contains in-memory cache configuration
	Memory MemoryConfig
}

// RedisConfig holds Redis-specific configuration
type RedisConfig struct {
	// Address is the Redis server address
	Address string

	// Password is the Redis authentication password
	Password string

	// DB is the Redis database number
	DB int
}

// MemoryConfig holds in-memory cache configuration
type MemoryConfig struct {
	// DefaultExpiration is the default TTL for cache entries in seconds
	DefaultExpiration int
}

// StorageConfig holds record storage configuration
type StorageConfig struct {
	// Type specifies the storage backend (memory/sqlite/redis)
	Type string

	// SQLitePath is the database file when Type is sqlite
	SQLitePath string

	// Redis is used when Type is redis
	Redis RedisConfig
}

// InferenceConfig holds model server configuration
type InferenceConfig struct {
	// URL is the base URL of the model server; /predict is appended
	URL string

	// Timeout bounds a single prediction request
	Timeout time.Duration

	// MaxEdge is the longest image edge in pixels sent for inference
	MaxEdge int
}

// TranslateConfig holds machine translation configuration
type TranslateConfig struct {
	// APIKey is the Google Translate API key; empty disables fetching
	APIKey string

	// Endpoint is the Google Translate v2 endpoint
	Endpoint string

	// CacheTTL is how long fetched translations are kept; 0 keeps them forever
	CacheTTL time.Duration
}

// SpeechConfig holds speech synthesis configuration
type SpeechConfig struct {
	// Enabled turns on the Google Cloud text-to-speech client
	Enabled bool

	// AudioCacheTTL is how long synthesized audio is cached
	AudioCacheTTL time.Duration
}

// AlertsConfig holds community alert configuration
type AlertsConfig struct {
	// WindowDays is the default number of days of scans considered
	WindowDays int

	// AdvisoryFeeds are RSS/Atom feed URLs merged into alerts
	AdvisoryFeeds []string

	// FeedCacheTTL is how long parsed advisory feeds are cached
	FeedCacheTTL time.Duration
}

// ReadAloudConfig holds read-aloud session configuration
type ReadAloudConfig struct {
	// IdleTimeout closes per-device controllers that saw no activity
	IdleTimeout time.Duration
}

// LogConfig holds logging configuration
type LogConfig struct {
	// Level is the minimum log level (debug/info/warn/error)
	Level string

	// File enables rotated file output when set
	File string

	// MaxSizeMB is the size at which the log file is rotated
	MaxSizeMB int

	// MaxBackups is the number of rotated files kept
	MaxBackups int

	// MaxAgeDays is the number of days rotated files are kept
	MaxAgeDays int
}

// LoadFromEnv loads configuration from environment variables
func LoadFromEnv() (*Config, error) {
	cfg := &Config{
		Server: ServerConfig{
			Port:           getEnvOrDefault("PORT", "8000"),
			PublicURL:      strings.TrimRight(getEnvOrDefault("PUBLIC_URL", ""), "/"),
			RateLimit:      getEnvAsIntOrDefault("RATE_LIMIT", 100),
			RateWindow:     getEnvAsDurationOrDefault("RATE_WINDOW", time.Minute),
			MaxUploadBytes: int64(getEnvAsIntOrDefault("MAX_UPLOAD_BYTES", 10<<20)),
		},
		Cache: CacheConfig{
			Type: getEnvOrDefault("CACHE_TYPE", "memory"),
			Redis: RedisConfig{
				Address:  getEnvOrDefault("REDIS_ADDRESS", "localhost:6379"),
				Password: getEnvOrDefault("REDIS_PASSWORD", ""),
				DB:       getEnvAsIntOrDefault("REDIS_DB", 0),
			},
			Memory: MemoryConfig{
				DefaultExpiration: getEnvAsIntOrDefault("MEMORY_CACHE_EXPIRATION", 3600),
			},
		},
		Storage: StorageConfig{
			Type:       getEnvOrDefault("STORAGE_TYPE", "sqlite"),
			SQLitePath: getEnvOrDefault("STORAGE_SQLITE_PATH", "cropguard.db"),
			Redis: RedisConfig{
				Address:  getEnvOrDefault("STORAGE_REDIS_ADDRESS", getEnvOrDefault("REDIS_ADDRESS", "localhost:6379")),
				Password: getEnvOrDefault("STORAGE_REDIS_PASSWORD", getEnvOrDefault("REDIS_PASSWORD", "")),
				DB:       getEnvAsIntOrDefault("STORAGE_REDIS_DB", 1),
			},
		},
		Inference: InferenceConfig{
			URL:     strings.TrimRight(getEnvOrDefault("INFERENCE_URL", "http://localhost:8001"), "/"),
			Timeout: getEnvAsDurationOrDefault("INFERENCE_TIMEOUT", 30*time.Second),
			MaxEdge: getEnvAsIntOrDefault("INFERENCE_MAX_EDGE", 1024),
		},
		Translate: TranslateConfig{
			APIKey:   getEnvOrDefault("GOOGLE_TRANSLATE_API_KEY", ""),
			Endpoint: getEnvOrDefault("GOOGLE_TRANSLATE_ENDPOINT", "https://translation.googleapis.com/language/translate/v2"),
			CacheTTL: getEnvAsDurationOrDefault("TRANSLATE_CACHE_TTL", 0),
		},
		Speech: SpeechConfig{
			Enabled:       getEnvAsBoolOrDefault("SPEECH_ENABLED", false),
			AudioCacheTTL: getEnvAsDurationOrDefault("SPEECH_CACHE_TTL", 7*24*time.Hour),
		},
		Alerts: AlertsConfig{
			WindowDays:    getEnvAsIntOrDefault("ALERTS_WINDOW_DAYS", 7),
			AdvisoryFeeds: getEnvAsListOrDefault("ADVISORY_FEEDS", nil),
			FeedCacheTTL:  getEnvAsDurationOrDefault("ADVISORY_FEED_TTL", 30*time.Minute),
		},
		ReadAloud: ReadAloudConfig{
			IdleTimeout: getEnvAsDurationOrDefault("READALOUD_IDLE_TIMEOUT", 15*time.Minute),
		},
		Log: LogConfig{
			Level:      getEnvOrDefault("LOG_LEVEL", "info"),
			File:       getEnvOrDefault("LOG_FILE", ""),
			MaxSizeMB:  getEnvAsIntOrDefault("LOG_MAX_SIZE_MB", 500),
			MaxBackups: getEnvAsIntOrDefault("LOG_MAX_BACKUPS", 3),
			MaxAgeDays: getEnvAsIntOrDefault("LOG_MAX_AGE_DAYS", 28),
		},
	}

	return cfg, nil
}

// getEnvOrDefault returns the environment variable value or a default
func getEnvOrDefault(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

// getEnvAsIntOrDefault returns the environment variable as int or a default
func getEnvAsIntOrDefault(key string, defaultValue int) int {
	if value := os.Getenv(key); value != "" {
		if intValue, err := strconv.Atoi(value); err == nil {
			return intValue
		}
	}
	return defaultValue
}

// getEnvAsBoolOrDefault returns the environment variable as bool or a default
func getEnvAsBoolOrDefault(key string, defaultValue bool) bool {
	if value := os.Getenv(key); value != "" {
		if boolValue, err := strconv.ParseBool(value); err == nil {
			return boolValue
		}
	}
	return defaultValue
}

// getEnvAsDurationOrDefault accepts Go durations ("90s") or plain seconds
func getEnvAsDurationOrDefault(key string, defaultValue time.Duration) time.Duration {
	value := os.Getenv(key)
	if value == "" {
		return defaultValue
	}
	if d, err := time.ParseDuration(value); err == nil {
		return d
	}
	if seconds, err := strconv.Atoi(value); err == nil {
		return time.Duration(seconds) * time.Second
	}
	return defaultValue
}

// getEnvAsListOrDefault splits a comma separated variable, dropping blanks
func getEnvAsListOrDefault(key string, defaultValue []string) []string {
	value := os.Getenv(key)
	if value == "" {
		return defaultValue
	}
	var items []string
	for _, item := range strings.Split(value, ",") {
		if item = strings.TrimSpace(item); item != "" {
			items = append(items, item)
		}
	}
	return items
}

// Validate checks if the configuration is valid
func (c *Config) Validate() error {
	if c.Server.Port == "" {
		return errors.New("port cannot be empty")
	}

	if c.Server.MaxUploadBytes < 1 {
		return errors.New("max upload size must be positive")
	}

	if c.Cache.Type != "redis" && c.Cache.Type != "memory" {
		return errors.New("cache type must be 'redis' or 'memory'")
	}

	if c.Cache.Type == "redis" && c.Cache.Redis.Address == "" {
		return errors.New("redis address cannot be empty when using redis cache")
	}

	switch c.Storage.Type {
	case "memory", "sqlite", "redis":
	default:
		return errors.New("storage type must be 'memory', 'sqlite' or 'redis'")
	}

	if c.Storage.Type == "sqlite" && c.Storage.SQLitePath == "" {
		return errors.New("sqlite path cannot be empty when using sqlite storage")
	}

	if c.Inference.MaxEdge < 32 {
		return errors.New("inference max edge must be at least 32 pixels")
	}

	if c.Alerts.WindowDays < 1 {
		return errors.New("alerts window must be at least 1 day")
	}

	return nil
}
