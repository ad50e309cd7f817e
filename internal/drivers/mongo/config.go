package mongo

import (
	"fmt"
	"time"

	"go.mongodb.org/mongo-driver/mongo/options"

	"docstore-handles/internal/driver"
)

// Config holds the options the MongoDB driver understands.
type Config struct {
	URI            string
	Password       string
	AppName        string
	ConnectTimeout time.Duration
	MaxPoolSize    int
}

// DefaultConfig returns the settings used for options that are not set.
func DefaultConfig() *Config {
	return &Config{
		URI:            "mongodb://localhost:27017",
		ConnectTimeout: 10 * time.Second,
	}
}

// NewConfig reads a Config from an opaque option set.
func NewConfig(opts driver.Options) (*Config, error) {
	config := DefaultConfig()
	config.URI = opts.GetString(driver.OptionURI, config.URI)
	config.AppName = opts.GetString(driver.OptionAppName, "")
	config.Password = opts.GetString(driver.OptionPassword, "")

	timeout, err := opts.GetDuration(driver.OptionConnectTimeout, config.ConnectTimeout)
	if err != nil {
		return nil, err
	}
	config.ConnectTimeout = timeout

	poolSize, err := opts.GetInt(driver.OptionPoolSize, 0)
	if err != nil {
		return nil, err
	}
	config.MaxPoolSize = poolSize

	return config, config.Validate()
}

// Validate checks the configuration before any client is built.
func (c *Config) Validate() error {
	if c.URI == "" {
		return fmt.Errorf("MongoDB uri is required")
	}
	if c.ConnectTimeout <= 0 {
		return fmt.Errorf("MongoDB connect timeout must be positive")
	}
	if c.MaxPoolSize < 0 {
		return fmt.Errorf("MongoDB pool size must not be negative")
	}
	return nil
}

// ClientOptions converts the config to mongo-driver client options. An
// explicit password is paired with the username from the URI, which must
// name one.
func (c *Config) ClientOptions() (*options.ClientOptions, error) {
	clientOpts := options.Client().
		ApplyURI(c.URI).
		SetConnectTimeout(c.ConnectTimeout).
		SetServerSelectionTimeout(c.ConnectTimeout)

	if c.AppName != "" {
		clientOpts.SetAppName(c.AppName)
	}
	if c.MaxPoolSize > 0 {
		clientOpts.SetMaxPoolSize(uint64(c.MaxPoolSize))
	}

	if c.Password != "" {
		if clientOpts.Auth == nil || clientOpts.Auth.Username == "" {
			return nil, fmt.Errorf("MongoDB password requires a username in the uri")
		}
		credential := *clientOpts.Auth
		credential.Password = c.Password
		credential.PasswordSet = true
		clientOpts.SetAuth(credential)
	}
	return clientOpts, nil
}
