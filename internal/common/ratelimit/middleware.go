package ratelimit

import (
	"fmt"
	"net"
	"net/http"
)

// HTTPMiddleware rejects requests over the limit with 429. An empty key
// from keyFunc uses the global bucket.
func HTTPMiddleware(limiter *Limiter, keyFunc func(*http.Request) string) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			var allowed bool
			if key := keyFunc(r); key == "" {
				allowed = limiter.TryAcquire()
			} else {
				allowed = limiter.TryAcquireForKey(key)
			}

			if !allowed {
				w.Header().Set("X-RateLimit-Limit", fmt.Sprintf("%d", limiter.config.RequestsPerSecond))
				w.Header().Set("X-RateLimit-Remaining", "0")
				w.Header().Set("Retry-After", "1")
				http.Error(w, "Rate limit exceeded", http.StatusTooManyRequests)
				return
			}

			next.ServeHTTP(w, r)
		})
	}
}

// IPKey extracts the client address from request for rate limiting
func IPKey(r *http.Request) string {
	ip := r.Header.Get("X-Forwarded-For")
	if ip == "" {
		ip = r.Header.Get("X-Real-IP")
	}
	if ip == "" {
		ip = r.RemoteAddr
	}
	if host, _, err := net.SplitHostPort(ip); err == nil {
		return host
	}
	return ip
}

// GlobalKey puts every request in the same bucket.
func GlobalKey(r *http.Request) string {
	return ""
}
