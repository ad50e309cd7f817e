package app

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/robfig/cron/v3"

	"docstore-handles/internal/common/errors"
	"docstore-handles/internal/common/logging"
	"docstore-handles/internal/handles"
)

// resetAfterFailures is how many consecutive failed probes end the epoch so
// the next access reconnects.
const resetAfterFailures = 3

// ProbeStatus is the outcome of the latest health probe.
type ProbeStatus struct {
	LastRun             time.Time `json:"last_run"`
	Healthy             bool      `json:"healthy"`
	Error               string    `json:"error,omitempty"`
	ConsecutiveFailures int       `json:"consecutive_failures"`
	Resets              int       `json:"resets"`
}

// HealthProbe pings the cached connection on a cron schedule.
type HealthProbe struct {
	cache   *handles.Cache
	timeout time.Duration
	logger  logging.Logger
	cron    *cron.Cron

	mu     sync.Mutex
	status ProbeStatus
}

// NewHealthProbe schedules a ping of cache's connection. The schedule is a
// five-field cron spec or a descriptor such as "@every 30s".
func NewHealthProbe(cache *handles.Cache, schedule string, timeout time.Duration, logger logging.Logger) (*HealthProbe, error) {
	if logger == nil {
		logger = logging.NewNopLogger()
	}
	logger = logger.WithFields(logging.String("component", "health"))

	cl := cronLogger{logger: logger}
	p := &HealthProbe{
		cache:   cache,
		timeout: timeout,
		logger:  logger,
		cron:    cron.New(cron.WithLogger(cl), cron.WithChain(cron.Recover(cl), cron.SkipIfStillRunning(cl))),
	}

	if _, err := p.cron.AddFunc(schedule, func() { p.Check(context.Background()) }); err != nil {
		return nil, errors.ConfigError("invalid health schedule").WithContext("schedule", schedule)
	}
	return p, nil
}

// Start runs the schedule in the background.
func (p *HealthProbe) Start() {
	p.cron.Start()
}

// Stop halts the schedule. The returned context is done once a running
// probe has finished.
func (p *HealthProbe) Stop() context.Context {
	return p.cron.Stop()
}

// Check pings the cached connection once, connecting first if needed.
func (p *HealthProbe) Check(ctx context.Context) error {
	if p.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, p.timeout)
		defer cancel()
	}

	conn, err := p.cache.Connection(ctx)
	if err == nil {
		err = conn.Ping(ctx)
	}

	p.mu.Lock()
	defer p.mu.Unlock()

	p.status.LastRun = time.Now().UTC()
	if err == nil {
		if p.status.ConsecutiveFailures > 0 {
			p.logger.Info("Document store healthy again",
				logging.Int("failures", p.status.ConsecutiveFailures))
		}
		p.status.Healthy = true
		p.status.Error = ""
		p.status.ConsecutiveFailures = 0
		return nil
	}

	p.status.Healthy = false
	p.status.Error = err.Error()
	p.status.ConsecutiveFailures++
	p.logger.Warn("Document store health check failed",
		logging.Err(err),
		logging.Int("consecutive_failures", p.status.ConsecutiveFailures))

	if p.status.ConsecutiveFailures%resetAfterFailures == 0 {
		p.cache.Reset()
		p.status.Resets++
		p.logger.Warn("Reset handle cache after repeated health check failures",
			logging.Int64("epoch", int64(p.cache.Epoch())))
	}
	return err
}

// Status returns the latest probe outcome.
func (p *HealthProbe) Status() ProbeStatus {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.status
}

// cronLogger adapts logging.Logger to cron.Logger.
type cronLogger struct {
	logger logging.Logger
}

func (l cronLogger) Info(msg string, keysAndValues ...interface{}) {
	l.logger.Debug(msg, kvFields(keysAndValues)...)
}

func (l cronLogger) Error(err error, msg string, keysAndValues ...interface{}) {
	l.logger.Error(msg, err, kvFields(keysAndValues)...)
}

func kvFields(keysAndValues []interface{}) []logging.Field {
	fields := make([]logging.Field, 0, len(keysAndValues)/2)
	for i := 0; i+1 < len(keysAndValues); i += 2 {
		fields = append(fields, logging.Field{Key: fmt.Sprint(keysAndValues[i]), Value: keysAndValues[i+1]})
	}
	return fields
}
