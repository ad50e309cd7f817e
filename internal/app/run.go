package app

import (
	"context"
	"os"
	"os/signal"
	"runtime"
	"syscall"
	"time"

	"docstore-handles/internal/common/logging"
	"docstore-handles/internal/config"
	"docstore-handles/internal/driver"
)

// Run is the main entry point for the application
func Run() error {
	// Load environment variables
	if err := config.LoadEnvFile(); err != nil {
		return err
	}

	cfg := config.Load()

	// Initialize logging
	if err := logging.InitGlobalLogger(cfg.LogLevel); err != nil {
		return err
	}
	defer logging.MustSync()

	logging.Info("Starting docstore handle service",
		logging.Int("cpus", runtime.NumCPU()),
		logging.Field{Key: "drivers", Value: driver.GetAvailableTypes()},
	)

	if err := cfg.Validate(); err != nil {
		logging.Error("Configuration validation failed", err)
		return err
	}

	app, err := New(cfg, logging.GetGlobalLogger())
	if err != nil {
		logging.Error("Failed to initialize application", err)
		return err
	}

	// Connect eagerly so a bad URI shows up at startup; the service keeps
	// running and the probe retries on schedule.
	if err := app.Health.Check(context.Background()); err != nil {
		logging.Warn("Initial document store health check failed", logging.Err(err))
	}
	app.Health.Start()

	srv := app.RunServer()
	if err := srv.Start(); err != nil {
		logging.Error("Server failed to start", err)
		app.Cleanup(context.Background())
		return err
	}

	// Wait for interrupt signal or a serve failure
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, os.Interrupt, syscall.SIGTERM)

	var serveErr error
	select {
	case <-quit:
	case serveErr = <-srv.Errors():
		logging.Error("Server stopped unexpectedly", serveErr)
	}

	logging.Info("Shutting down server...")

	// Graceful shutdown
	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	if err := srv.Shutdown(ctx); err != nil {
		logging.Error("Server forced to shutdown", err)
		serveErr = err
	}

	app.Cleanup(ctx)

	logging.Info("Server exited")
	return serveErr
}
