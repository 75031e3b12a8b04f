package server

import (
	"net/http"
	"time"

	"github.com/cypherlabs/cypher-indexer/service/metrics"
)

// statusRecorder captures the status code written by a handler.
type statusRecorder struct {
	http.ResponseWriter
	status int
}

func (r *statusRecorder) WriteHeader(code int) {
	r.status = code
	r.ResponseWriter.WriteHeader(code)
}

// metricsMiddleware records request counts and latencies per handler.
// A nil metrics passes the handler through untouched.
func metricsMiddleware(handler string, m *metrics.Metrics, next http.Handler) http.Handler {
	if m == nil {
		return next
	}
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		rec := &statusRecorder{ResponseWriter: w, status: http.StatusOK}
		start := time.Now()
		next.ServeHTTP(rec, r)
		m.RecordHTTPRequest(handler, r.Method, rec.status, time.Since(start).Seconds())
	})
}
