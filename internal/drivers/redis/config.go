package redis

import (
	"fmt"
	"strings"
	"time"

	"github.com/go-redis/redis/v8"

	"docstore-handles/internal/driver"
)

// Config holds the options the Redis driver understands.
type Config struct {
	Address        string
	URL            string
	Password       string
	PoolSize       int
	ConnectTimeout time.Duration
}

// NewConfig reads a Config from an opaque option set. The "uri" option
// may be a redis:// URL or a bare host:port address.
func NewConfig(opts driver.Options) (*Config, error) {
	config := &Config{
		Address:        "localhost:6379",
		PoolSize:       10,
		ConnectTimeout: 5 * time.Second,
	}

	uri := opts.GetString(driver.OptionURI, "")
	if strings.HasPrefix(uri, "redis://") || strings.HasPrefix(uri, "rediss://") {
		config.URL = uri
	} else if uri != "" {
		config.Address = uri
	}
	config.Password = opts.GetString(driver.OptionPassword, "")

	poolSize, err := opts.GetInt(driver.OptionPoolSize, config.PoolSize)
	if err != nil {
		return nil, err
	}
	if poolSize < 1 {
		return nil, fmt.Errorf("redis pool size must be positive")
	}
	config.PoolSize = poolSize

	timeout, err := opts.GetDuration(driver.OptionConnectTimeout, config.ConnectTimeout)
	if err != nil {
		return nil, err
	}
	config.ConnectTimeout = timeout

	return config, nil
}

// RedisOptions converts the config to go-redis client options.
func (c *Config) RedisOptions() (*redis.Options, error) {
	opts := &redis.Options{Addr: c.Address}
	if c.URL != "" {
		parsed, err := redis.ParseURL(c.URL)
		if err != nil {
			return nil, fmt.Errorf("invalid redis url: %w", err)
		}
		opts = parsed
	}
	if c.Password != "" {
		opts.Password = c.Password
	}
	opts.PoolSize = c.PoolSize
	opts.DialTimeout = c.ConnectTimeout
	return opts, nil
}
