package middleware

import (
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"

	"agora/internal/platform/metrics"
)

// Latency observes request duration against the chi route template, so
// /v1/requests/{id} aggregates as one series instead of one per entity.
func Latency(m *metrics.Metrics) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			start := time.Now()
			rec := &statusRecorder{ResponseWriter: w, status: http.StatusOK}

			next.ServeHTTP(rec, r)

			route := chi.RouteContext(r.Context()).RoutePattern()
			if route == "" {
				route = "unmatched"
			}
			m.ObserveHTTPDuration(r.Method, route, rec.status, time.Since(start))
		})
	}
}
