// Package logging provides structured logging using zap
package logging

import (
	"fmt"
	"os"
)

// NewDefaultLogger creates a logger with default configuration using zap
func NewDefaultLogger() Logger {
	logger, err := NewZapLogger(DefaultLogConfig())
	if err != nil {
		panic(fmt.Sprintf("failed to initialize default zap logger: %v", err))
	}
	return logger
}

// InitGlobalLogger initializes the global logger from LOG_LEVEL and an optional LOG_FILE.
// Without LOG_FILE entries go to stderr.
func InitGlobalLogger(level string) error {
	config := LogConfig{
		Level: ParseLevel(level),
		Name:  "docstore",
	}

	if logFileName := os.Getenv("LOG_FILE"); logFileName != "" {
		file, err := os.OpenFile(logFileName, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0666)
		if err != nil {
			return fmt.Errorf("failed to open log file %s: %w", logFileName, err)
		}
		config.Output = file
	}

	logger, err := NewZapLogger(config)
	if err != nil {
		return fmt.Errorf("failed to initialize logger: %w", err)
	}

	SetGlobalLogger(logger)
	logger.Debug("Logger initialized", String("level", config.Level.String()))
	return nil
}

// MustSync flushes any buffered log entries for zap loggers.
// Call it before the process exits.
func MustSync() {
	if zapLogger, ok := GetGlobalLogger().(*ZapAdapter); ok {
		_ = zapLogger.Sync()
	}
}

// Err creates an error field with key "error"
func Err(err error) Field {
	return Field{Key: "error", Value: err}
}
