package handlers

import (
	"fmt"
	"net/http"
	"net/url"
	"strings"

	"docstore-handles/internal/driver"
)

const redacted = "[REDACTED]"

// sensitiveFieldPatterns marks option keys whose values are never returned.
var sensitiveFieldPatterns = []string{
	"password",
	"passwd",
	"secret",
	"token",
	"credential",
	"api_key",
	"private_key",
}

type configResponse struct {
	Driver           string                 `json:"driver"`
	DefaultNamespace string                 `json:"default_namespace"`
	Options          map[string]interface{} `json:"options"`
}

// GetConfig returns the options the cache connects with, with credentials
// removed.
func (h *Handlers) GetConfig(w http.ResponseWriter, r *http.Request) {
	provider := h.cache.Provider()
	writeJSON(w, http.StatusOK, configResponse{
		Driver:           h.driverType,
		DefaultNamespace: provider.DefaultNamespace(),
		Options:          FilterSensitiveOptions(provider.ClientOptions()),
	})
}

// FilterSensitiveOptions returns a copy of opts safe to expose: sensitive
// values are replaced and passwords embedded in URIs are masked.
func FilterSensitiveOptions(opts driver.Options) map[string]interface{} {
	if opts == nil {
		return nil
	}

	filtered := make(map[string]interface{}, len(opts))
	for key, value := range opts {
		switch {
		case isSensitiveField(key):
			filtered[key] = redacted
		case key == driver.OptionURI:
			filtered[key] = redactURI(fmt.Sprint(value))
		default:
			filtered[key] = value
		}
	}
	return filtered
}

func isSensitiveField(key string) bool {
	lower := strings.ToLower(key)
	for _, pattern := range sensitiveFieldPatterns {
		if strings.Contains(lower, pattern) {
			return true
		}
	}
	return false
}

// redactURI masks the password of a URI with user info. Anything that does
// not parse as a URL is returned unchanged.
func redactURI(raw string) string {
	u, err := url.Parse(raw)
	if err != nil || u.User == nil {
		return raw
	}
	if _, ok := u.User.Password(); !ok {
		return raw
	}
	return u.Redacted()
}
