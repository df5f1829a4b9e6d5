package api

import (
	"fmt"
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/cors"

	"github.com/okian/standings/pkg/metrics"
)

// HTTP status code constants.
const (
	statusBadRequest      = 400
	statusNotFound        = 404
	statusConflict        = 409
	statusTooManyRequests = 429
	statusInternalError   = 500
)

// MetricsMiddleware wraps HTTP handlers to record Prometheus metrics.
func MetricsMiddleware(next http.HandlerFunc, endpoint string) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()

		wrapped := &responseWriter{ResponseWriter: w, statusCode: http.StatusOK}
		next.ServeHTTP(wrapped, r)

		durationMs := float64(time.Since(start).Milliseconds())
		statusCodeStr := strconv.Itoa(wrapped.statusCode)

		metrics.RecordHTTPRequest(endpoint, r.Method, statusCodeStr)
		metrics.RecordHTTPRequestDuration(endpoint, r.Method, statusCodeStr, durationMs)

		if wrapped.statusCode >= statusBadRequest {
			errorType := getErrorType(wrapped.statusCode)
			severity := getErrorSeverity(wrapped.statusCode)
			metrics.RecordErrorByEndpoint(endpoint, r.Method, errorType)
			metrics.RecordErrorByType(errorType, severity)
			metrics.RecordErrorLatency("http", errorType, durationMs)
		}
	}
}

// CORS allows browser clients on origins to call the JSON API.
func CORS(origins []string) func(http.Handler) http.Handler {
	return cors.Handler(cors.Options{
		AllowedOrigins: origins,
		AllowedMethods: []string{http.MethodGet, http.MethodPost, http.MethodOptions},
		AllowedHeaders: []string{"Accept", "Content-Type", "X-Request-ID"},
		ExposedHeaders: []string{"X-Request-ID"},
		MaxAge:         300,
	})
}

// getErrorType returns a standardized error type based on HTTP status code.
func getErrorType(statusCode int) string {
	switch {
	case statusCode >= statusInternalError:
		return "server_error"
	case statusCode == statusTooManyRequests:
		return "rate_limit"
	case statusCode == statusConflict:
		return "conflict"
	case statusCode == statusNotFound:
		return "not_found"
	case statusCode >= statusBadRequest:
		return "client_error"
	default:
		return "unknown"
	}
}

// getErrorSeverity returns error severity based on HTTP status code.
func getErrorSeverity(statusCode int) string {
	switch {
	case statusCode >= statusInternalError:
		return "high"
	case statusCode >= statusBadRequest:
		return "medium"
	default:
		return "low"
	}
}

// responseWriter wraps http.ResponseWriter to capture status code.
type responseWriter struct {
	http.ResponseWriter
	statusCode int
}

func (rw *responseWriter) WriteHeader(code int) {
	rw.statusCode = code
	rw.ResponseWriter.WriteHeader(code)
}

func (rw *responseWriter) Write(b []byte) (int, error) {
	n, err := rw.ResponseWriter.Write(b)
	if err != nil {
		return n, fmt.Errorf("failed to write response: %w", err)
	}
	return n, nil
}
