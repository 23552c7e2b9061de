package middleware

import (
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/cors"
)

// HTTPRecorder receives one observation per request.
type HTTPRecorder interface {
	RecordHTTPRequest(route, method string, status int, d time.Duration)
}

// Metrics reports each request to rec, labelled by the matched chi route
// pattern so path parameters do not explode label cardinality.
func Metrics(rec HTTPRecorder) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			start := time.Now()
			ww := wrap(w)

			next.ServeHTTP(ww, r)

			route := "unmatched"
			if rctx := chi.RouteContext(r.Context()); rctx != nil {
				if p := rctx.RoutePattern(); p != "" {
					route = p
				}
			}
			rec.RecordHTTPRequest(route, r.Method, ww.status, time.Since(start))
		})
	}
}

// CORS allows cross-origin reads from the origins in allowed ("*" allows
// all).
func CORS(allowed []string) func(http.Handler) http.Handler {
	return cors.Handler(cors.Options{
		AllowedOrigins: allowed,
		AllowedMethods: []string{http.MethodGet, http.MethodPost, http.MethodOptions},
		AllowedHeaders: []string{"Origin", "Content-Type", "Accept", "X-Request-Id"},
		ExposedHeaders: []string{"Content-Disposition", "Retry-After"},
		MaxAge:         300,
	})
}
