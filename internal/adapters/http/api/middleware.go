package api

import (
	"net/http"
	"strconv"
	"time"

	"github.com/okian/hotboard/pkg/metrics"
)

// instrument records request count and latency for endpoint, and an error
// class for every 4xx and 5xx answer.
func instrument(endpoint string, next http.HandlerFunc) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		rec := &statusRecorder{ResponseWriter: w, status: http.StatusOK}
		next(rec, r)

		status := strconv.Itoa(rec.status)
		metrics.RecordHTTPRequest(endpoint, r.Method, status)
		metrics.RecordHTTPRequestDuration(endpoint, r.Method, status, float64(time.Since(start).Milliseconds()))

		if class, ok := errorClass(rec.status); ok {
			metrics.RecordErrorByEndpoint(endpoint, r.Method, class)
			metrics.RecordErrorByComponent("http", class)
		}
	}
}

// errorClass names the failure behind an HTTP status, matching the codes
// written by writeDomainError.
func errorClass(status int) (string, bool) {
	switch {
	case status < http.StatusBadRequest:
		return "", false
	case status == http.StatusBadRequest:
		return "bad_request", true
	case status == http.StatusNotFound:
		return "not_found", true
	case status == http.StatusRequestEntityTooLarge:
		return "too_large", true
	case status == http.StatusTooManyRequests:
		return "backpressure", true
	case status == http.StatusServiceUnavailable:
		return "unavailable", true
	case status >= http.StatusInternalServerError:
		return "internal_error", true
	default:
		return "client_error", true
	}
}

type statusRecorder struct {
	http.ResponseWriter
	status      int
	wroteHeader bool
}

func (rw *statusRecorder) WriteHeader(code int) {
	if !rw.wroteHeader {
		rw.status, rw.wroteHeader = code, true
	}
	rw.ResponseWriter.WriteHeader(code)
}
