// Package config provides configuration management for the docstore host.
// It loads settings from environment variables (optionally seeded from a
// .env file) with sensible defaults and validates them before startup.
//
// Environment Variables:
//
// Application Settings:
//   - PORT: HTTP port for the status server (default: 8080)
//   - LOG_LEVEL: Logging level (default: info)
//   - HEALTH_SCHEDULE: cron spec for the connection health probe (default: @every 30s)
//   - RESET_RATE_LIMIT_RPS: epoch resets per second per client, 0 disables (default: 1)
//   - RESET_RATE_LIMIT_BURST: epoch resets allowed in a burst (default: 3)
//
// Document Store:
//   - DOCSTORE_DRIVER: memory, mongo, redis, postgres or sqlite (default: memory)
//   - DOCSTORE_URI: driver connection URI (default: driver specific)
//   - DOCSTORE_PASSWORD: password, when not part of the URI
//   - DOCSTORE_DEFAULT_NAMESPACE: namespace used when none is named (default: test)
//   - DOCSTORE_CONNECT_TIMEOUT: connection timeout (default: 10s)
//   - DOCSTORE_POOL_SIZE: connection pool size, 0 for the driver default (default: 0)
//   - DOCSTORE_APP_NAME: application name reported to the server (default: docstore-handles)
//   - DOCSTORE_BREAKER_FAILURES: consecutive connect failures before failing fast, 0 disables (default: 5)
//   - DOCSTORE_BREAKER_TIMEOUT: how long connects fail fast before retrying (default: 30s)
//
// Example usage:
//
//	_ = config.LoadEnvFile(".env")
//	cfg := config.Load()
//	if err := cfg.Validate(); err != nil {
//		log.Fatalf("Invalid configuration: %v", err)
//	}
package config

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"strconv"

	"github.com/joho/godotenv"

	"docstore-handles/internal/common/ratelimit"
	"docstore-handles/internal/common/validation"
	"docstore-handles/internal/driver"
)

// Config holds all configuration values for the docstore host.
type Config struct {
	// Application settings
	Port           string `env:"PORT" validate:"required,port"`                       // Status server port number
	LogLevel       string `env:"LOG_LEVEL"`                                           // Logging level (debug, info, warn, error)
	HealthSchedule string `env:"HEALTH_SCHEDULE" validate:"required,cron_expression"` // Cron spec for the health probe

	// Document store settings
	Driver           string `env:"DOCSTORE_DRIVER" validate:"required"`                   // Registered driver type
	URI              string `env:"DOCSTORE_URI"`                                          // Driver connection URI
	Password         string `env:"DOCSTORE_PASSWORD"`                                     // Password kept out of the URI
	DefaultNamespace string `env:"DOCSTORE_DEFAULT_NAMESPACE" validate:"required"`        // Namespace used when none is named
	ConnectTimeout   string `env:"DOCSTORE_CONNECT_TIMEOUT" validate:"required,duration"` // Connection timeout (e.g., "10s")
	PoolSize         string `env:"DOCSTORE_POOL_SIZE" validate:"non_negative_int"`        // Connection pool size
	AppName          string `env:"DOCSTORE_APP_NAME"`                                     // Application name reported to the server

	// Connect circuit breaker
	BreakerFailures string `env:"DOCSTORE_BREAKER_FAILURES" validate:"non_negative_int"` // Consecutive connect failures that open the breaker, 0 disables it
	BreakerTimeout  string `env:"DOCSTORE_BREAKER_TIMEOUT" validate:"required,duration"` // How long the breaker stays open

	// Epoch reset rate limit
	ResetRPS   string `env:"RESET_RATE_LIMIT_RPS" validate:"non_negative_int"`   // Resets per second per client, 0 disables the limit
	ResetBurst string `env:"RESET_RATE_LIMIT_BURST" validate:"non_negative_int"` // Resets allowed in a burst
}

// LoadEnvFile seeds the environment from the named .env files. Missing
// files are ignored; variables already set in the environment win.
func LoadEnvFile(filenames ...string) error {
	if len(filenames) == 0 {
		filenames = []string{".env"}
	}
	for _, name := range filenames {
		if err := godotenv.Load(name); err != nil && !errors.Is(err, fs.ErrNotExist) {
			return fmt.Errorf("failed to load %s: %w", name, err)
		}
	}
	return nil
}

// Load creates a new Config instance with values loaded from environment variables.
// It does not validate; call Validate on the result.
func Load() *Config {
	return &Config{
		Port:           getEnv("PORT", "8080"),
		LogLevel:       getEnv("LOG_LEVEL", "info"),
		HealthSchedule: getEnv("HEALTH_SCHEDULE", "@every 30s"),

		Driver:           getEnv("DOCSTORE_DRIVER", "memory"),
		URI:              getEnv("DOCSTORE_URI", ""),
		Password:         getEnv("DOCSTORE_PASSWORD", ""),
		DefaultNamespace: getEnv("DOCSTORE_DEFAULT_NAMESPACE", "test"),
		ConnectTimeout:   getEnv("DOCSTORE_CONNECT_TIMEOUT", "10s"),
		PoolSize:         getEnv("DOCSTORE_POOL_SIZE", "0"),
		AppName:          getEnv("DOCSTORE_APP_NAME", "docstore-handles"),

		BreakerFailures: getEnv("DOCSTORE_BREAKER_FAILURES", "5"),
		BreakerTimeout:  getEnv("DOCSTORE_BREAKER_TIMEOUT", "30s"),

		ResetRPS:   getEnv("RESET_RATE_LIMIT_RPS", "1"),
		ResetBurst: getEnv("RESET_RATE_LIMIT_BURST", "3"),
	}
}

// getEnv retrieves an environment variable value or returns a default value if not set.
func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

// Validate checks required fields, formats and ranges.
func (c *Config) Validate() error {
	return validation.ValidateStruct(c)
}

// ResetRateLimit returns the limiter settings for the epoch reset endpoint.
func (c *Config) ResetRateLimit() ratelimit.Config {
	rps, _ := strconv.Atoi(c.ResetRPS)
	burst, _ := strconv.Atoi(c.ResetBurst)
	return ratelimit.Config{
		RequestsPerSecond: rps,
		BurstSize:         burst,
		Enabled:           rps > 0,
	}
}

// ClientOptions maps the document store settings onto the option keys
// drivers read. Empty settings are left out so drivers apply their defaults.
func (c *Config) ClientOptions() driver.Options {
	opts := driver.Options{
		driver.OptionConnectTimeout: c.ConnectTimeout,
		driver.OptionAppName:        c.AppName,
	}
	if c.URI != "" {
		opts[driver.OptionURI] = c.URI
	}
	if c.Password != "" {
		opts[driver.OptionPassword] = c.Password
	}
	if c.PoolSize != "" && c.PoolSize != "0" {
		opts[driver.OptionPoolSize] = c.PoolSize
	}
	return opts
}
