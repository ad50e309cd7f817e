// Package handlers exposes a handle cache over HTTP: health, activity
// statistics, handle lookup and explicit epoch resets.
package handlers

import (
	"encoding/json"
	"net/http"

	"docstore-handles/internal/common/errors"
	"docstore-handles/internal/common/logging"
	"docstore-handles/internal/handles"
)

// Handlers serves requests against one handle cache.
type Handlers struct {
	cache      *handles.Cache
	driverType string
	logger     logging.Logger
}

// New creates handlers for cache. driverType is reported by the health endpoint.
func New(cache *handles.Cache, driverType string, logger logging.Logger) *Handlers {
	if logger == nil {
		logger = logging.NewNopLogger()
	}
	return &Handlers{
		cache:      cache,
		driverType: driverType,
		logger:     logger.WithFields(logging.String("component", "handlers")),
	}
}

// errorResponse is the JSON body written for failed requests.
type errorResponse struct {
	Error   string                 `json:"error"`
	Type    errors.ErrorType       `json:"type"`
	Cause   string                 `json:"cause,omitempty"`
	Context map[string]interface{} `json:"context,omitempty"`
}

func writeJSON(w http.ResponseWriter, status int, v interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(v)
}

// writeError maps the error type onto an HTTP status. The driver error
// behind an AppError is passed through verbatim as "cause".
func (h *Handlers) writeError(w http.ResponseWriter, r *http.Request, err error) {
	status := statusFor(err)
	resp := errorResponse{Error: err.Error(), Type: errors.GetType(err)}

	if appErr, ok := errors.AsAppError(err); ok {
		resp.Error = appErr.Message
		resp.Context = appErr.Context
		if appErr.Cause != nil {
			resp.Cause = appErr.Cause.Error()
		}
	}

	if status >= http.StatusInternalServerError {
		h.logger.WithContext(r.Context()).Error("Handle request failed", err,
			logging.String("path", r.URL.Path))
	}
	writeJSON(w, status, resp)
}

func statusFor(err error) int {
	switch errors.GetType(err) {
	case errors.ErrTypeInvalidArgument:
		return http.StatusBadRequest
	case errors.ErrTypeNotFound:
		return http.StatusNotFound
	case errors.ErrTypeConstruction:
		return http.StatusBadGateway
	case errors.ErrTypeConnection:
		return http.StatusServiceUnavailable
	default:
		return http.StatusInternalServerError
	}
}
