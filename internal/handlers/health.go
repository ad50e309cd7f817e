package handlers

import (
	"net/http"
	"time"
)

type healthResponse struct {
	Status    string    `json:"status"`
	Driver    string    `json:"driver"`
	Epoch     uint64    `json:"epoch"`
	Error     string    `json:"error,omitempty"`
	Timestamp time.Time `json:"timestamp"`
}

// HealthCheck pings the cached connection, connecting first if needed.
func (h *Handlers) HealthCheck(w http.ResponseWriter, r *http.Request) {
	resp := healthResponse{
		Status:    "healthy",
		Driver:    h.driverType,
		Timestamp: time.Now().UTC(),
	}

	conn, err := h.cache.Connection(r.Context())
	if err == nil {
		err = conn.Ping(r.Context())
	}
	resp.Epoch = h.cache.Epoch()

	if err != nil {
		resp.Status = "unhealthy"
		resp.Error = err.Error()
		writeJSON(w, http.StatusServiceUnavailable, resp)
		return
	}
	writeJSON(w, http.StatusOK, resp)
}
