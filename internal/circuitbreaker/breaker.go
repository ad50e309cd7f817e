// Package circuitbreaker guards driver connects with Sony's gobreaker so a
// store that keeps refusing connections fails fast instead of stalling every
// caller for the full connect timeout.
package circuitbreaker

import (
	"context"
	stderrors "errors"
	"fmt"
	"time"

	"github.com/sony/gobreaker"

	"docstore-handles/internal/common/errors"
	"docstore-handles/internal/common/logging"
)

// Config holds the configuration for a circuit breaker
type Config struct {
	// MaxFailures is the number of consecutive failures that opens the breaker
	MaxFailures int
	// Timeout is how long the breaker stays open before transitioning to half-open
	Timeout time.Duration
	// MaxConcurrentRequests is the maximum number of requests allowed in half-open state
	MaxConcurrentRequests int
}

// DefaultConfig returns a sensible default configuration
func DefaultConfig() Config {
	return Config{
		MaxFailures:           5,
		Timeout:               30 * time.Second,
		MaxConcurrentRequests: 1,
	}
}

// Validate checks if the configuration is valid
func (c Config) Validate() error {
	if c.MaxFailures <= 0 {
		return fmt.Errorf("MaxFailures must be positive, got %d", c.MaxFailures)
	}
	if c.Timeout <= 0 {
		return fmt.Errorf("Timeout must be positive, got %v", c.Timeout)
	}
	if c.MaxConcurrentRequests <= 0 {
		return fmt.Errorf("MaxConcurrentRequests must be positive, got %d", c.MaxConcurrentRequests)
	}
	return nil
}

// State represents the current state of the circuit breaker
type State int

const (
	// StateClosed means the breaker lets requests through
	StateClosed State = iota
	// StateOpen means the breaker rejects requests
	StateOpen
	// StateHalfOpen means the breaker is testing if the store has recovered
	StateHalfOpen
)

func (s State) String() string {
	switch s {
	case StateClosed:
		return "closed"
	case StateOpen:
		return "open"
	case StateHalfOpen:
		return "half-open"
	default:
		return "unknown"
	}
}

// Stats returns statistics about the circuit breaker
type Stats struct {
	Name                string `json:"name"`
	State               string `json:"state"`
	Failures            int    `json:"failures"`
	Successes           int    `json:"successes"`
	ConsecutiveFailures int    `json:"consecutive_failures"`
}

// Breaker wraps gobreaker with the service's logging and error types.
type Breaker struct {
	name    string
	breaker *gobreaker.CircuitBreaker
	logger  logging.Logger
}

// New creates a circuit breaker. An invalid config falls back to DefaultConfig.
func New(name string, config Config, logger logging.Logger) *Breaker {
	if logger == nil {
		logger = logging.NewNopLogger()
	}
	if err := config.Validate(); err != nil {
		logger.Warn("Invalid circuit breaker config, using defaults",
			logging.Err(err),
			logging.String("name", name),
		)
		config = DefaultConfig()
	}

	settings := gobreaker.Settings{
		Name:        name,
		MaxRequests: uint32(config.MaxConcurrentRequests),
		Interval:    time.Minute,
		Timeout:     config.Timeout,
		ReadyToTrip: func(counts gobreaker.Counts) bool {
			return counts.ConsecutiveFailures >= uint32(config.MaxFailures)
		},
		OnStateChange: func(name string, from gobreaker.State, to gobreaker.State) {
			logger.Info("Circuit breaker state changed",
				logging.String("breaker", name),
				logging.String("from", from.String()),
				logging.String("to", to.String()),
			)
		},
		IsSuccessful: isSuccessful,
	}

	return &Breaker{
		name:    name,
		breaker: gobreaker.NewCircuitBreaker(settings),
		logger:  logger,
	}
}

// isSuccessful decides what counts against the store. Caller mistakes and
// cancelled contexts say nothing about its health.
func isSuccessful(err error) bool {
	if err == nil {
		return true
	}
	if stderrors.Is(err, context.Canceled) {
		return true
	}
	switch errors.GetType(err) {
	case errors.ErrTypeInvalidArgument, errors.ErrTypeNotFound, errors.ErrTypeConfig:
		return true
	}
	return false
}

// Execute runs fn within the circuit breaker. While the breaker is open fn
// is not called and a connection error wrapping gobreaker.ErrOpenState is
// returned.
func (b *Breaker) Execute(ctx context.Context, fn func() error) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	_, err := b.breaker.Execute(func() (interface{}, error) {
		return nil, fn()
	})

	if err == gobreaker.ErrOpenState {
		return errors.ConnectionError(fmt.Sprintf("circuit breaker '%s' is open", b.name), err)
	}
	if err == gobreaker.ErrTooManyRequests {
		return errors.ConnectionError(fmt.Sprintf("circuit breaker '%s' has too many requests", b.name), err)
	}

	return err
}

// State returns the current state of the circuit breaker
func (b *Breaker) State() State {
	switch b.breaker.State() {
	case gobreaker.StateOpen:
		return StateOpen
	case gobreaker.StateHalfOpen:
		return StateHalfOpen
	default:
		return StateClosed
	}
}

// Stats returns current statistics
func (b *Breaker) Stats() Stats {
	counts := b.breaker.Counts()

	return Stats{
		Name:                b.name,
		State:               b.State().String(),
		Failures:            int(counts.TotalFailures),
		Successes:           int(counts.TotalSuccesses),
		ConsecutiveFailures: int(counts.ConsecutiveFailures),
	}
}

// IsOpen returns true if the circuit breaker is open
func (b *Breaker) IsOpen() bool {
	return b.breaker.State() == gobreaker.StateOpen
}
