package middleware

import (
	"context"
	"net/http"
	"time"

	"github.com/google/uuid"

	"docstore-handles/internal/common/logging"
)

// RequestIDHeader carries the request identifier in and out of the service.
const RequestIDHeader = "X-Request-ID"

// responseWriter wraps http.ResponseWriter to capture status code
type responseWriter struct {
	http.ResponseWriter
	statusCode int
}

func (rw *responseWriter) WriteHeader(code int) {
	rw.statusCode = code
	rw.ResponseWriter.WriteHeader(code)
}

// RequestID makes sure every request has an identifier. An incoming
// X-Request-ID is kept, otherwise a new one is generated. The id is echoed in
// the response and stored in the request context for logging.WithContext.
func RequestID(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		id := r.Header.Get(RequestIDHeader)
		if id == "" {
			id = uuid.NewString()
		}
		w.Header().Set(RequestIDHeader, id)

		ctx := context.WithValue(r.Context(), logging.RequestIDKey, id)
		next.ServeHTTP(w, r.WithContext(ctx))
	})
}

// Logging returns middleware that logs all HTTP requests with method, path, status, and duration
func Logging(logger logging.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			start := time.Now()

			wrapped := &responseWriter{
				ResponseWriter: w,
				statusCode:     http.StatusOK,
			}

			next.ServeHTTP(wrapped, r)

			fields := []logging.Field{
				logging.String("method", r.Method),
				logging.String("path", r.URL.Path),
				logging.Int("status", wrapped.statusCode),
				logging.Int64("duration_ms", time.Since(start).Milliseconds()),
				logging.String("remote_addr", r.RemoteAddr),
			}

			if r.URL.RawQuery != "" {
				fields = append(fields, logging.String("query", r.URL.RawQuery))
			}

			if ua := r.Header.Get("User-Agent"); ua != "" {
				fields = append(fields, logging.String("user_agent", ua))
			}

			reqLogger := logger.WithContext(r.Context())
			if wrapped.statusCode >= 500 {
				reqLogger.Error("HTTP request completed", nil, fields...)
			} else if wrapped.statusCode >= 400 {
				reqLogger.Warn("HTTP request completed", fields...)
			} else {
				reqLogger.Info("HTTP request completed", fields...)
			}
		})
	}
}
