package app

import (
	"encoding/json"
	"net/http"

	"github.com/gorilla/mux"

	"docstore-handles/internal/common/ratelimit"
	"docstore-handles/internal/handlers"
	"docstore-handles/internal/middleware"
)

// SetupRoutes configures all HTTP routes for the application
func (app *App) SetupRoutes(router *mux.Router, h *handlers.Handlers) {
	router.Use(middleware.RequestID)
	router.Use(middleware.Logging(app.Logger))

	// Health and status
	router.HandleFunc("/health", h.HealthCheck).Methods("GET")
	if app.Health != nil {
		router.HandleFunc("/health/probe", statusHandler(func() interface{} { return app.Health.Status() })).Methods("GET")
	}
	if app.Breaker != nil {
		router.HandleFunc("/health/breaker", statusHandler(func() interface{} { return app.Breaker.Stats() })).Methods("GET")
	}
	if app.ResetLimiter != nil {
		router.HandleFunc("/health/ratelimit", statusHandler(func() interface{} { return app.ResetLimiter.Stats() })).Methods("GET")
	}
	router.HandleFunc("/stats", h.GetStats).Methods("GET")
	router.HandleFunc("/config", h.GetConfig).Methods("GET")

	// Handle lookup
	router.HandleFunc("/namespace", h.GetDefaultNamespace).Methods("GET")
	router.HandleFunc("/namespaces/{namespace}", h.GetNamespace).Methods("GET")
	router.HandleFunc("/namespaces/{namespace}/collections/{collection}", h.GetCollection).Methods("GET")
	router.HandleFunc("/collections/{collection}", h.GetCollection).Methods("GET")

	// Epoch control, rate limited per client
	var reset http.Handler = http.HandlerFunc(h.ResetEpoch)
	if app.ResetLimiter != nil {
		reset = ratelimit.HTTPMiddleware(app.ResetLimiter, ratelimit.IPKey)(reset)
	}
	router.Handle("/epoch/reset", reset).Methods("POST")
}

func statusHandler(status func() interface{}) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		json.NewEncoder(w).Encode(status())
	}
}
