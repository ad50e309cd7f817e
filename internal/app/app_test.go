package app

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"docstore-handles/internal/common/errors"
	"docstore-handles/internal/common/logging"
	"docstore-handles/internal/config"
	"docstore-handles/internal/drivers/memory"
)

func testConfig(uri string) *config.Config {
	return &config.Config{
		Port:             "0",
		LogLevel:         "debug",
		HealthSchedule:   "@every 1h",
		Driver:           memory.DriverType,
		URI:              uri,
		DefaultNamespace: "orders",
		ConnectTimeout:   "2s",
		PoolSize:         "0",
		AppName:          "app-test",
		BreakerFailures:  "3",
		BreakerTimeout:   "1m",
		ResetRPS:         "1",
		ResetBurst:       "1",
	}
}

func TestNew(t *testing.T) {
	app, err := New(testConfig("memory://app-new"), logging.NewNopLogger())
	require.NoError(t, err)
	defer app.Cleanup(context.Background())

	assert.Equal(t, memory.DriverType, app.Driver.GetType())
	assert.Equal(t, "orders", app.Cache.Provider().DefaultNamespace())
	assert.Equal(t, "memory://app-new", app.Cache.Provider().ClientOptions().GetString("uri", ""))

	coll, err := app.Cache.Collection(context.Background(), "items")
	require.NoError(t, err)
	assert.Equal(t, "orders.items", coll.FullName())
}

func TestNewBreaker(t *testing.T) {
	cfg := testConfig("memory://app-breaker")
	app, err := New(cfg, logging.NewNopLogger())
	require.NoError(t, err)
	defer app.Cleanup(context.Background())
	require.NotNil(t, app.Breaker)
	assert.Equal(t, "memory-connect", app.Breaker.Stats().Name)

	_, err = app.Cache.Connection(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 1, app.Breaker.Stats().Successes)

	cfg = testConfig("memory://app-no-breaker")
	cfg.BreakerFailures = "0"
	app, err = New(cfg, logging.NewNopLogger())
	require.NoError(t, err)
	defer app.Cleanup(context.Background())
	assert.Nil(t, app.Breaker)

	rec := httptest.NewRecorder()
	app.Router().ServeHTTP(rec, httptest.NewRequest("GET", "/health/breaker", nil))
	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func TestNewUnknownDriver(t *testing.T) {
	cfg := testConfig("")
	cfg.Driver = "cassandra"

	_, err := New(cfg, logging.NewNopLogger())
	require.Error(t, err)
	assert.True(t, errors.IsType(err, errors.ErrTypeConfig))
	assert.Contains(t, err.Error(), "driver=cassandra")
}

func TestNewInvalidSchedule(t *testing.T) {
	cfg := testConfig("memory://app-schedule")
	cfg.HealthSchedule = "not a schedule"

	_, err := New(cfg, logging.NewNopLogger())
	require.Error(t, err)
	assert.True(t, errors.IsType(err, errors.ErrTypeConfig))
}

func TestResetReleasesStaleConnection(t *testing.T) {
	app, err := New(testConfig("memory://app-release"), logging.NewNopLogger())
	require.NoError(t, err)
	defer app.Cleanup(context.Background())

	ctx := context.Background()
	conn, err := app.Cache.Connection(ctx)
	require.NoError(t, err)
	require.NoError(t, conn.Ping(ctx))

	app.Cache.Reset()

	require.Eventually(t, func() bool {
		return conn.Ping(ctx) == memory.ErrClosed
	}, 2*time.Second, 10*time.Millisecond)

	fresh, err := app.Cache.Connection(ctx)
	require.NoError(t, err)
	assert.NotSame(t, conn, fresh)
	assert.NoError(t, fresh.Ping(ctx))
}

func TestCleanupClosesConnection(t *testing.T) {
	app, err := New(testConfig("memory://app-cleanup"), logging.NewNopLogger())
	require.NoError(t, err)

	conn, err := app.Cache.Connection(context.Background())
	require.NoError(t, err)

	app.Cleanup(context.Background())

	assert.ErrorIs(t, conn.Ping(context.Background()), memory.ErrClosed)
	assert.False(t, app.Cache.Stats().Connected)
}

func TestRouter(t *testing.T) {
	app, err := New(testConfig("memory://app-router"), logging.NewNopLogger())
	require.NoError(t, err)
	defer app.Cleanup(context.Background())

	router := app.Router()

	tests := []struct {
		method string
		path   string
		status int
	}{
		{"GET", "/health", http.StatusOK},
		{"GET", "/health/probe", http.StatusOK},
		{"GET", "/health/breaker", http.StatusOK},
		{"GET", "/health/ratelimit", http.StatusOK},
		{"GET", "/stats", http.StatusOK},
		{"GET", "/config", http.StatusOK},
		{"GET", "/namespace", http.StatusOK},
		{"GET", "/namespaces/orders", http.StatusOK},
		{"GET", "/namespaces/orders/collections/items", http.StatusOK},
		{"GET", "/collections/items", http.StatusOK},
		{"POST", "/epoch/reset", http.StatusOK},
		{"DELETE", "/stats", http.StatusMethodNotAllowed},
		{"GET", "/unknown", http.StatusNotFound},
	}

	for _, tt := range tests {
		t.Run(tt.method+" "+tt.path, func(t *testing.T) {
			rec := httptest.NewRecorder()
			router.ServeHTTP(rec, httptest.NewRequest(tt.method, tt.path, nil))

			assert.Equal(t, tt.status, rec.Code, rec.Body.String())
			if tt.status == http.StatusOK {
				assert.NotEmpty(t, rec.Header().Get("X-Request-ID"))
			}
		})
	}
}

func TestRouterProbeStatus(t *testing.T) {
	app, err := New(testConfig("memory://app-probe"), logging.NewNopLogger())
	require.NoError(t, err)
	defer app.Cleanup(context.Background())

	require.NoError(t, app.Health.Check(context.Background()))

	rec := httptest.NewRecorder()
	app.Router().ServeHTTP(rec, httptest.NewRequest("GET", "/health/probe", nil))

	var status ProbeStatus
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &status))
	assert.True(t, status.Healthy)
	assert.False(t, status.LastRun.IsZero())
}

func TestRunServer(t *testing.T) {
	app, err := New(testConfig("memory://app-server"), logging.NewNopLogger())
	require.NoError(t, err)
	defer app.Cleanup(context.Background())

	srv := app.RunServer()
	require.NoError(t, srv.Start())
	defer srv.Shutdown(context.Background())

	resp, err := http.Get("http://" + srv.Addr() + "/namespaces/orders/collections/items")
	require.NoError(t, err)
	defer resp.Body.Close()

	var body map[string]interface{}
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&body))
	assert.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Equal(t, "orders.items", body["full_name"])
}

func TestResetIsRateLimited(t *testing.T) {
	app, err := New(testConfig("memory://app-reset-limit"), logging.NewNopLogger())
	require.NoError(t, err)
	defer app.Cleanup(context.Background())
	require.NotNil(t, app.ResetLimiter)

	router := app.Router()
	reset := func() int {
		req := httptest.NewRequest("POST", "/epoch/reset", nil)
		req.RemoteAddr = "192.0.2.10:4000"
		rec := httptest.NewRecorder()
		router.ServeHTTP(rec, req)
		return rec.Code
	}

	assert.Equal(t, http.StatusOK, reset())
	assert.Equal(t, http.StatusTooManyRequests, reset())
	assert.Equal(t, uint64(2), app.Cache.Epoch())

	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, httptest.NewRequest("GET", "/health/ratelimit", nil))
	require.Equal(t, http.StatusOK, rec.Code)

	var stats map[string]interface{}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &stats))
	assert.Equal(t, true, stats["enabled"])
	assert.Equal(t, float64(1), stats["active_keys"])
	assert.Equal(t, float64(1), stats["burst_size"])
}

func TestRateLimitStatusDisabled(t *testing.T) {
	cfg := testConfig("memory://app-no-limit")
	cfg.ResetRPS = "0"
	app, err := New(cfg, logging.NewNopLogger())
	require.NoError(t, err)
	defer app.Cleanup(context.Background())
	assert.Nil(t, app.ResetLimiter)

	rec := httptest.NewRecorder()
	app.Router().ServeHTTP(rec, httptest.NewRequest("GET", "/health/ratelimit", nil))
	assert.Equal(t, http.StatusNotFound, rec.Code)
}
