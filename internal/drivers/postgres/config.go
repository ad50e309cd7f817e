package postgres

import (
	"fmt"
	"net/url"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"

	"docstore-handles/internal/driver"
)

// Config holds the options the PostgreSQL driver understands.
type Config struct {
	URI            string
	Password       string
	MaxConns       int
	ConnectTimeout time.Duration
	AppName        string
}

// DefaultConfig returns the settings used for options that are not set.
func DefaultConfig() *Config {
	return &Config{
		URI:            "postgres://postgres@localhost:5432/postgres?sslmode=prefer",
		ConnectTimeout: 10 * time.Second,
	}
}

// NewConfig reads a Config from an opaque option set.
func NewConfig(opts driver.Options) (*Config, error) {
	config := DefaultConfig()
	config.URI = opts.GetString(driver.OptionURI, config.URI)
	config.AppName = opts.GetString(driver.OptionAppName, "")
	config.Password = opts.GetString(driver.OptionPassword, "")

	maxConns, err := opts.GetInt(driver.OptionPoolSize, 0)
	if err != nil {
		return nil, err
	}
	if maxConns < 0 {
		return nil, fmt.Errorf("PostgreSQL pool size must not be negative")
	}
	config.MaxConns = maxConns

	timeout, err := opts.GetDuration(driver.OptionConnectTimeout, config.ConnectTimeout)
	if err != nil {
		return nil, err
	}
	config.ConnectTimeout = timeout

	return config, nil
}

// PoolConfig parses the URI and applies the remaining settings. An explicit
// password overrides one embedded in the URI.
func (c *Config) PoolConfig() (*pgxpool.Config, error) {
	poolConfig, err := pgxpool.ParseConfig(c.URI)
	if err != nil {
		return nil, fmt.Errorf("invalid PostgreSQL uri: %w", err)
	}
	if c.MaxConns > 0 {
		poolConfig.MaxConns = int32(c.MaxConns)
	}
	if c.ConnectTimeout > 0 {
		poolConfig.ConnConfig.ConnectTimeout = c.ConnectTimeout
	}
	if c.Password != "" {
		poolConfig.ConnConfig.Password = c.Password
	}
	if c.AppName != "" {
		poolConfig.ConnConfig.RuntimeParams["application_name"] = c.AppName
	}
	return poolConfig, nil
}

// Redacted returns the URI with any password masked, for logs.
func (c *Config) Redacted() string {
	u, err := url.Parse(c.URI)
	if err != nil || u.User == nil {
		return c.URI
	}
	return u.Redacted()
}
