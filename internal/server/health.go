package server

import (
	"log/slog"
	"net/http"
	"strconv"
	"time"

	"github.com/jittakal/eventbuffer/pkg/buffer"
)

// HealthResponse represents the health check response.
type HealthResponse struct {
	Status    string            `json:"status"`
	Timestamp string            `json:"timestamp"`
	Checks    map[string]string `json:"checks,omitempty"`
}

// LivenessHandler returns a handler for Kubernetes liveness probes.
// Liveness probes should only fail if the process needs to be restarted,
// so an overloaded buffer still reports alive.
func LivenessHandler(logger *slog.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, http.StatusOK, HealthResponse{
			Status:    "alive",
			Timestamp: time.Now().UTC().Format(time.RFC3339),
		}, logger)
	}
}

// ReadinessHandler returns a handler for Kubernetes readiness probes.
// The instance is ready while the buffer reports itself healthy.
func ReadinessHandler(ingestor buffer.Ingestor, logger *slog.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		status := "ready"
		statusCode := http.StatusOK

		if !ingestor.HealthCheck() {
			status = "not ready"
			statusCode = http.StatusServiceUnavailable
		}

		writeJSON(w, statusCode, HealthResponse{
			Status:    status,
			Timestamp: time.Now().UTC().Format(time.RFC3339),
			Checks:    checks(ingestor.Stats()),
		}, logger)
	}
}

func checks(s buffer.Stats) map[string]string {
	breaker := "closed"
	if s.CircuitBreakerOpen {
		breaker = "open"
	}
	return map[string]string{
		"circuit_breaker":      breaker,
		"current_buffer_size":  strconv.FormatInt(s.CurrentBufferSize, 10),
		"current_memory_bytes": strconv.FormatInt(s.CurrentMemoryBytes, 10),
	}
}

// StatsHandler returns the buffer counters as JSON.
func StatsHandler(ingestor buffer.Ingestor, logger *slog.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, http.StatusOK, ingestor.Stats(), logger)
	}
}
