package driver

import (
	"fmt"
	"math"
	"time"

	"github.com/spf13/cast"
)

// Well-known option keys. Adapters read the ones they understand and
// ignore the rest.
const (
	OptionURI            = "uri"
	OptionConnectTimeout = "connect_timeout"
	OptionPoolSize       = "pool_size"
	OptionAppName        = "app_name"
	OptionPassword       = "password"
)

// Options is the opaque set of connection parameters handed to a driver unchanged.
type Options map[string]interface{}

// Clone returns a shallow copy so callers can't mutate a cached option set.
func (o Options) Clone() Options {
	out := make(Options, len(o))
	for k, v := range o {
		out[k] = v
	}
	return out
}

// GetString returns the option as a string, or def when unset, empty or
// not convertible.
func (o Options) GetString(key, def string) string {
	v, ok := o[key]
	if !ok || v == nil {
		return def
	}
	s, err := cast.ToStringE(v)
	if err != nil || s == "" {
		return def
	}
	return s
}

// GetInt returns the option as an int, or def when unset.
// Numeric strings are parsed; fractional numbers are an error.
func (o Options) GetInt(key string, def int) (int, error) {
	v, ok := o[key]
	if !ok || v == nil {
		return def, nil
	}
	if s, ok := v.(string); ok && s == "" {
		return def, nil
	}

	switch f := v.(type) {
	case float32:
		if float64(f) != math.Trunc(float64(f)) {
			return 0, fmt.Errorf("option %s: %v is not a whole number", key, v)
		}
	case float64:
		if f != math.Trunc(f) {
			return 0, fmt.Errorf("option %s: %v is not a whole number", key, v)
		}
	}

	n, err := cast.ToIntE(v)
	if err != nil {
		return 0, fmt.Errorf("option %s: %w", key, err)
	}
	return n, nil
}

// GetDuration returns the option as a time.Duration, or def when unset.
// Strings use time.ParseDuration syntax; bare numbers are nanoseconds.
func (o Options) GetDuration(key string, def time.Duration) (time.Duration, error) {
	v, ok := o[key]
	if !ok || v == nil {
		return def, nil
	}
	if s, ok := v.(string); ok && s == "" {
		return def, nil
	}

	d, err := cast.ToDurationE(v)
	if err != nil {
		return 0, fmt.Errorf("option %s: %w", key, err)
	}
	return d, nil
}
