package middleware

import (
	"net/http"

	"github.com/JonMunkholm/ElementGrid/internal/observability/metrics"
	"github.com/go-chi/chi/v5"
)

// Metrics records request counts and latencies labelled by chi route pattern,
// so /api/grid/{gridID}/view is one series regardless of the session id.
func Metrics(m *metrics.HTTPMetrics) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			done := m.Begin()
			ww := &responseWriter{ResponseWriter: w, status: http.StatusOK}

			next.ServeHTTP(ww, r)

			var route string
			if rctx := chi.RouteContext(r.Context()); rctx != nil {
				route = rctx.RoutePattern()
			}
			done(r.Method, route, ww.status)
		})
	}
}
