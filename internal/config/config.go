package config

import (
	"errors"
	"fmt"
	"log"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

// Config holds all application configuration
type Config struct {
	// Realtime gateway configuration
	Realtime RealtimeConfig

	// REST API configuration
	API APIConfig

	// Auth configuration
	Auth AuthConfig

	// Local status server configuration
	Status StatusConfig

	// Typing indicator configuration
	Typing TypingConfig

	// Rate limiting configuration
	RateLimit RateLimitConfig

	// Logging configuration
	Logging LoggingConfig

	// Application metadata
	App AppConfig
}

// RealtimeConfig holds realtime gateway connection configuration
type RealtimeConfig struct {
	URL              string
	MaxRetryAttempts int
	RetryBaseDelay   time.Duration
}

// APIConfig holds REST API client configuration
type APIConfig struct {
	BaseURL string
}

// AuthConfig holds authentication configuration
type AuthConfig struct {
	Token string
}

// StatusConfig holds local status server configuration
type StatusConfig struct {
	Port            string
	ReadTimeout     time.Duration
	WriteTimeout    time.Duration
	IdleTimeout     time.Duration
	ShutdownTimeout time.Duration
	AllowedOrigins  []string
}

// TypingConfig holds typing indicator configuration
type TypingConfig struct {
	QuietPeriod time.Duration
}

// RateLimitConfig holds rate limiting configuration
type RateLimitConfig struct {
	Enabled           bool
	RequestsPerSecond float64
	BurstSize         int
}

// LoggingConfig holds logging configuration
type LoggingConfig struct {
	Level  string // debug, info, warn, error
	Format string // json, text
}

// AppConfig holds application metadata
type AppConfig struct {
	Name        string
	Version     string
	Environment string
}

// Load loads configuration from environment variables
func Load() (*Config, error) {
	// Load .env file if it exists (for local development)
	if err := godotenv.Load(); err != nil {
		log.Println("No .env file found, using system environment variables")
	}

	cfg := &Config{
		Realtime: RealtimeConfig{
			URL:              os.Getenv("REALTIME_URL"),
			MaxRetryAttempts: getIntOrDefault("REALTIME_MAX_RETRY_ATTEMPTS", 5),
			RetryBaseDelay:   getDurationOrDefault("REALTIME_RETRY_BASE_DELAY", 1*time.Second),
		},
		API: APIConfig{
			BaseURL: os.Getenv("API_BASE_URL"),
		},
		Auth: AuthConfig{
			Token: os.Getenv("AUTH_TOKEN"),
		},
		Status: StatusConfig{
			Port:            getEnvOrDefault("STATUS_PORT", ":8090"),
			ReadTimeout:     getDurationOrDefault("STATUS_READ_TIMEOUT", 15*time.Second),
			WriteTimeout:    getDurationOrDefault("STATUS_WRITE_TIMEOUT", 15*time.Second),
			IdleTimeout:     getDurationOrDefault("STATUS_IDLE_TIMEOUT", 60*time.Second),
			ShutdownTimeout: getDurationOrDefault("STATUS_SHUTDOWN_TIMEOUT", 30*time.Second),
			AllowedOrigins:  getStringSliceOrDefault("STATUS_ALLOWED_ORIGINS", []string{"http://localhost:3000"}),
		},
		Typing: TypingConfig{
			QuietPeriod: getDurationOrDefault("TYPING_QUIET_PERIOD", 1*time.Second),
		},
		RateLimit: RateLimitConfig{
			Enabled:           getBoolOrDefault("RATE_LIMIT_ENABLED", true),
			RequestsPerSecond: getFloatOrDefault("RATE_LIMIT_RPS", 10),
			BurstSize:         getIntOrDefault("RATE_LIMIT_BURST", 20),
		},
		Logging: LoggingConfig{
			Level:  getEnvOrDefault("LOG_LEVEL", "info"),
			Format: getEnvOrDefault("LOG_FORMAT", "json"),
		},
		App: AppConfig{
			Name:        getEnvOrDefault("APP_NAME", "dashboard-sync"),
			Version:     getEnvOrDefault("APP_VERSION", "dev"),
			Environment: getEnvOrDefault("APP_ENV", "development"),
		},
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	return cfg, nil
}

// Validate validates the configuration
func (c *Config) Validate() error {
	var errs []string

	// Required fields
	if c.Realtime.URL == "" {
		errs = append(errs, "REALTIME_URL is required")
	}

	if c.API.BaseURL == "" {
		errs = append(errs, "API_BASE_URL is required")
	}

	// Logical validations
	if c.Realtime.MaxRetryAttempts < 1 {
		errs = append(errs, "REALTIME_MAX_RETRY_ATTEMPTS must be at least 1")
	}

	if c.Realtime.RetryBaseDelay <= 0 {
		errs = append(errs, "REALTIME_RETRY_BASE_DELAY must be positive")
	}

	if c.Typing.QuietPeriod <= 0 {
		errs = append(errs, "TYPING_QUIET_PERIOD must be positive")
	}

	if c.App.Environment == "production" && len(c.Status.AllowedOrigins) == 0 {
		errs = append(errs, "STATUS_ALLOWED_ORIGINS must be set in production")
	}

	if len(errs) > 0 {
		return errors.New("configuration errors:\n  - " + strings.Join(errs, "\n  - "))
	}

	return nil
}

// IsDevelopment returns true if running in development environment
func (c *Config) IsDevelopment() bool {
	return c.App.Environment == "development"
}

// IsProduction returns true if running in production environment
func (c *Config) IsProduction() bool {
	return c.App.Environment == "production"
}

// Helper functions

func getEnvOrDefault(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getIntOrDefault(key string, defaultValue int) int {
	if value := os.Getenv(key); value != "" {
		if intValue, err := strconv.Atoi(value); err == nil {
			return intValue
		}
	}
	return defaultValue
}

func getFloatOrDefault(key string, defaultValue float64) float64 {
	if value := os.Getenv(key); value != "" {
		if floatValue, err := strconv.ParseFloat(value, 64); err == nil {
			return floatValue
		}
	}
	return defaultValue
}

func getBoolOrDefault(key string, defaultValue bool) bool {
	if value := os.Getenv(key); value != "" {
		if boolValue, err := strconv.ParseBool(value); err == nil {
			return boolValue
		}
	}
	return defaultValue
}

func getDurationOrDefault(key string, defaultValue time.Duration) time.Duration {
	if value := os.Getenv(key); value != "" {
		if duration, err := time.ParseDuration(value); err == nil {
			return duration
		}
	}
	return defaultValue
}

func getStringSliceOrDefault(key string, defaultValue []string) []string {
	if value := os.Getenv(key); value != "" {
		parts := strings.Split(value, ",")
		result := make([]string, 0, len(parts))
		for _, part := range parts {
			trimmed := strings.TrimSpace(part)
			if trimmed != "" {
				result = append(result, trimmed)
			}
		}
		if len(result) > 0 {
			return result
		}
	}
	return defaultValue
}

// String returns a redacted string representation of the config (safe for logging)
func (c *Config) String() string {
	return fmt.Sprintf(
		"Config{Realtime: %s, API: %s, Auth: [REDACTED], Status: %s, Environment: %s}",
		c.Realtime.URL,
		c.API.BaseURL,
		c.Status.Port,
		c.App.Environment,
	)
}
