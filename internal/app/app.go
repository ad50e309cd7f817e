package app

import (
	"context"
	"strconv"
	"time"

	"docstore-handles/internal/circuitbreaker"
	"docstore-handles/internal/common/errors"
	"docstore-handles/internal/common/logging"
	"docstore-handles/internal/common/ratelimit"
	"docstore-handles/internal/config"
	"docstore-handles/internal/driver"
	"docstore-handles/internal/handles"

	// Register the bundled drivers.
	_ "docstore-handles/internal/drivers/all"
)

// releaseTimeout bounds closing a connection dropped by an epoch change.
const releaseTimeout = 5 * time.Second

// App holds all the application dependencies
type App struct {
	Config       *config.Config
	Driver       driver.Driver
	Breaker      *circuitbreaker.Breaker
	Cache        *handles.Cache
	Health       *HealthProbe
	ResetLimiter *ratelimit.Limiter
	Logger       logging.Logger
}

// New creates a new application instance with all dependencies
func New(cfg *config.Config, logger logging.Logger) (*App, error) {
	if logger == nil {
		logger = logging.GetGlobalLogger()
	}

	app := &App{
		Config: cfg,
		Logger: logger.WithFields(logging.String("component", "app")),
	}

	d, err := driver.Get(cfg.Driver)
	if err != nil {
		return nil, errors.ConfigError("unknown document store driver").
			WithContext("driver", cfg.Driver).
			WithContext("available", driver.GetAvailableTypes())
	}
	app.Driver = d

	timeout, err := time.ParseDuration(cfg.ConnectTimeout)
	if err != nil {
		return nil, errors.ConfigError("invalid connect timeout").WithContext("value", cfg.ConnectTimeout)
	}

	// Guard connects unless disabled
	if failures, _ := strconv.Atoi(cfg.BreakerFailures); failures > 0 {
		breakerTimeout, err := time.ParseDuration(cfg.BreakerTimeout)
		if err != nil {
			return nil, errors.ConfigError("invalid circuit breaker timeout").WithContext("value", cfg.BreakerTimeout)
		}
		guarded := circuitbreaker.WrapDriver(d, circuitbreaker.Config{
			MaxFailures:           failures,
			Timeout:               breakerTimeout,
			MaxConcurrentRequests: 1,
		}, logger)
		app.Breaker = guarded.Breaker()
		d = guarded
	}

	provider := &handles.Provider{
		Options:   cfg.ClientOptions(),
		Namespace: cfg.DefaultNamespace,
	}
	app.Cache = handles.New(d, provider,
		handles.WithLogger(logger.WithFields(logging.String("component", "handles"))),
		handles.WithInvalidateHook(app.releaseConnection),
	)

	probe, err := NewHealthProbe(app.Cache, cfg.HealthSchedule, timeout, logger)
	if err != nil {
		return nil, err
	}
	app.Health = probe

	if limit := cfg.ResetRateLimit(); limit.Enabled {
		limiter, err := ratelimit.New(limit)
		if err != nil {
			return nil, errors.ConfigError("invalid reset rate limit").WithContext("value", cfg.ResetRPS)
		}
		app.ResetLimiter = limiter
	}

	app.Logger.Info("Application initialized",
		logging.String("driver", d.GetType()),
		logging.String("default_namespace", cfg.DefaultNamespace),
	)
	return app, nil
}

// releaseConnection closes a connection the cache dropped at an epoch
// change. It runs under the cache lock, so the close happens elsewhere.
func (app *App) releaseConnection(conn driver.Connection) {
	go func() {
		ctx, cancel := context.WithTimeout(context.Background(), releaseTimeout)
		defer cancel()

		if err := conn.Close(ctx); err != nil {
			app.Logger.Warn("Failed to close stale connection", logging.Err(err))
			return
		}
		app.Logger.Debug("Closed stale connection")
	}()
}

// Cleanup stops background work and closes the cached connection.
func (app *App) Cleanup(ctx context.Context) {
	if app.Health != nil {
		<-app.Health.Stop().Done()
	}
	if app.Cache != nil {
		if err := app.Cache.Close(ctx); err != nil {
			app.Logger.Warn("Error closing document store connection", logging.Err(err))
		}
	}
}
