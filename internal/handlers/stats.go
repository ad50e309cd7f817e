package handlers

import (
	"net/http"

	"docstore-handles/internal/common/logging"
)

// GetStats returns the cache activity counters.
func (h *Handlers) GetStats(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, h.cache.Stats())
}

// ResetEpoch ends the current epoch so every handle is rebuilt on next use.
func (h *Handlers) ResetEpoch(w http.ResponseWriter, r *http.Request) {
	h.cache.Reset()
	epoch := h.cache.Epoch()

	h.logger.WithContext(r.Context()).Info("Handle cache reset", logging.Int64("epoch", int64(epoch)))
	writeJSON(w, http.StatusOK, map[string]uint64{"epoch": epoch})
}
