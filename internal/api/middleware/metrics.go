package middleware

import (
	"net/http"
	"time"

	"github.com/aistats/statshub/internal/observability"
)

// otherRoute labels requests for paths that are not registered routes.
const otherRoute = "other"

// Metrics returns middleware that records HTTP request count and duration.
// Paths outside routes are recorded as "other" to bound cardinality.
// When metrics is nil, recording is skipped. Put Metrics outermost so duration is full request time.
func Metrics(metrics observability.HTTPMetrics, routes ...string) func(http.Handler) http.Handler {
	known := make(map[string]bool, len(routes))
	for _, route := range routes {
		known[route] = true
	}

	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if metrics == nil {
				next.ServeHTTP(w, r)
				return
			}

			start := time.Now()
			rw := newStatusRecorder(w)
			next.ServeHTTP(rw, r)

			metrics.RecordRequest(r.Context(), r.Method, normalizeRoute(known, r.URL.Path), statusToClass(rw.status), time.Since(start))
		})
	}
}

func normalizeRoute(known map[string]bool, path string) string {
	if known[path] {
		return path
	}
	return otherRoute
}

// statusToClass maps HTTP status code to 1xx, 2xx, 4xx, 5xx.
func statusToClass(status int) string {
	if status >= 500 {
		return "5xx"
	}
	if status >= 400 {
		return "4xx"
	}
	if status >= 300 {
		return "3xx"
	}
	if status >= 200 {
		return "2xx"
	}
	if status >= 100 {
		return "1xx"
	}
	return "unknown"
}
