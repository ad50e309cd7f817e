package ratelimit

import (
	"fmt"
	"time"
)

// Config represents rate limiter configuration
type Config struct {
	RequestsPerSecond int  `json:"requests_per_second"`
	BurstSize         int  `json:"burst_size"`
	Enabled           bool `json:"enabled"`

	// Cleanup settings for per-key limiters
	MaxKeys       int           `json:"max_keys,omitempty"`
	CleanupPeriod time.Duration `json:"cleanup_period,omitempty"`
}

// Validate checks the configuration and fills in defaults for unset fields
func (c *Config) Validate() error {
	if !c.Enabled {
		return nil
	}

	if c.RequestsPerSecond < 0 {
		return fmt.Errorf("requests per second must not be negative, got %d", c.RequestsPerSecond)
	}
	if c.RequestsPerSecond == 0 {
		c.RequestsPerSecond = 10
	}
	if c.BurstSize <= 0 {
		c.BurstSize = c.RequestsPerSecond
	}
	if c.MaxKeys <= 0 {
		c.MaxKeys = 10000
	}
	if c.CleanupPeriod <= 0 {
		c.CleanupPeriod = 5 * time.Minute
	}
	return nil
}
