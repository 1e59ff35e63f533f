package api

import (
	"net/http"
	"strconv"
	"time"

	"github.com/okian/focusengine/pkg/metrics"
)

// failureClass describes how an error status is counted.
type failureClass struct {
	kind     string
	severity string
}

// failureClasses maps the statuses the API emits on purpose.
var failureClasses = map[int]failureClass{
	http.StatusBadRequest:            {"client_error", "medium"},
	http.StatusNotFound:              {"not_found", "low"},
	http.StatusMethodNotAllowed:      {"client_error", "medium"},
	http.StatusConflict:              {"conflict", "low"},
	http.StatusRequestEntityTooLarge: {"too_large", "medium"},
	http.StatusUnprocessableEntity:   {"insufficient_data", "low"},
}

func classifyStatus(code int) failureClass {
	if c, ok := failureClasses[code]; ok {
		return c
	}
	if code >= http.StatusInternalServerError {
		return failureClass{"server_error", "high"}
	}
	return failureClass{"client_error", "medium"}
}

// MetricsMiddleware records request count and latency for endpoint, plus
// error breakdowns for 4xx and 5xx responses.
func MetricsMiddleware(next http.HandlerFunc, endpoint string) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		rec := &statusRecorder{ResponseWriter: w, status: http.StatusOK}
		next(rec, r)

		ms := float64(time.Since(start).Microseconds()) / 1000
		status := strconv.Itoa(rec.status)
		metrics.RecordHTTPRequest(endpoint, r.Method, status)
		metrics.RecordHTTPRequestDuration(endpoint, r.Method, status, ms)

		if rec.status < http.StatusBadRequest {
			return
		}
		fc := classifyStatus(rec.status)
		metrics.RecordErrorByEndpoint(endpoint, r.Method, fc.kind)
		metrics.RecordErrorByType(fc.kind, fc.severity)
		metrics.RecordErrorLatency("http", fc.kind, ms)
	}
}

// statusRecorder remembers the status code written through it.
type statusRecorder struct {
	http.ResponseWriter
	status      int
	wroteHeader bool
}

func (s *statusRecorder) WriteHeader(code int) {
	if !s.wroteHeader {
		s.status = code
		s.wroteHeader = true
	}
	s.ResponseWriter.WriteHeader(code)
}

func (s *statusRecorder) Write(b []byte) (int, error) {
	s.wroteHeader = true
	return s.ResponseWriter.Write(b)
}
