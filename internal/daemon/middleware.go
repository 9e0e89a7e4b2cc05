package daemon

import (
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/etherlink/etherlink/pkg/engine"
)

// statusRecorder wraps http.ResponseWriter to capture the status code.
type statusRecorder struct {
	http.ResponseWriter
	status int
}

func (sr *statusRecorder) WriteHeader(code int) {
	sr.status = code
	sr.ResponseWriter.WriteHeader(code)
}

// InstrumentHandler wraps an HTTP handler with Prometheus request metrics.
// If metrics is nil, the handler is returned unchanged (zero overhead,
// matching the engine's opt-in telemetry posture).
func InstrumentHandler(next http.Handler, metrics *engine.Metrics) http.Handler {
	if metrics == nil {
		return next
	}
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		rec := &statusRecorder{ResponseWriter: w, status: http.StatusOK}

		next.ServeHTTP(rec, r)

		duration := time.Since(start).Seconds()
		path := sanitizePath(r.URL.Path)
		status := strconv.Itoa(rec.status)

		metrics.DaemonRequestsTotal.WithLabelValues(r.Method, path, status).Inc()
		metrics.DaemonRequestDurationSeconds.WithLabelValues(r.Method, path, status).Observe(duration)
	})
}

// sanitizePath replaces dynamic path segments with fixed labels to prevent
// high cardinality in Prometheus metrics. For example:
//
//	/v1/transfers/9f2e...  -> /v1/transfers/:id
func sanitizePath(path string) string {
	parts := strings.Split(strings.TrimRight(path, "/"), "/")
	if len(parts) == 4 && parts[1] == "v1" {
		switch parts[2] {
		case "transfers":
			return "/v1/" + parts[2] + "/:id"
		}
	}
	return path
}
