package middleware

import (
	"encoding/json"
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/httprate"
)

// RateLimit rejects requests beyond limit per window for each client IP
// with 429. Every call keeps its own counters, so a route can stack a
// tighter budget under the global one.
func RateLimit(limit int, per time.Duration) func(http.Handler) http.Handler {
	return httprate.Limit(limit, per,
		httprate.WithKeyFuncs(clientKey),
		httprate.WithLimitHandler(func(w http.ResponseWriter, r *http.Request) {
			w.Header().Set("Retry-After", strconv.Itoa(int(per.Seconds())))
			w.Header().Set("Content-Type", "application/json")
			w.WriteHeader(http.StatusTooManyRequests)
			json.NewEncoder(w).Encode(map[string]string{
				"error":   "rate limit exceeded",
				"message": "Too many requests",
				"action":  "Please wait a moment before trying again",
				"code":    "RATE001",
			})
		}),
	)
}

// clientKey keys counters on the address resolved by TrustedRealIP.
func clientKey(r *http.Request) (string, error) {
	return ClientIP(r), nil
}
