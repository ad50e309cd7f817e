package handles

import (
	"docstore-handles/internal/common/logging"
	"docstore-handles/internal/driver"
)

// Option customizes a Cache.
type Option func(*Cache)

// WithEpochSource replaces the process-id identity check.
func WithEpochSource(source EpochSource) Option {
	return func(c *Cache) {
		if source != nil {
			c.guard = NewGuard(source)
		}
	}
}

// WithLogger sets the logger used for lifecycle debug entries.
// If not provided, nothing is logged.
func WithLogger(logger logging.Logger) Option {
	return func(c *Cache) {
		if logger != nil {
			c.logger = logger
		}
	}
}

// WithInvalidateHook registers fn to receive the connection dropped when an
// epoch ends. Stale connections are abandoned otherwise. fn runs while the
// cache is locked and must not call back into it.
func WithInvalidateHook(fn func(driver.Connection)) Option {
	return func(c *Cache) {
		c.onInvalidate = fn
	}
}
