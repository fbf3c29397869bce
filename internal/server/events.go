package server

import (
	"errors"
	"io"
	"log/slog"
	"net/http"
	"time"

	json "github.com/goccy/go-json"
	"github.com/google/uuid"

	apperrors "github.com/jittakal/eventbuffer/internal/errors"
	"github.com/jittakal/eventbuffer/pkg/buffer"
	"github.com/jittakal/eventbuffer/pkg/event"
)

// MaxBodyBytes caps the size of an ingest request body.
const MaxBodyBytes = 4 << 20

// Per-event result statuses.
const (
	StatusAccepted = "accepted"
	StatusRejected = "rejected"
)

// EventResult is the outcome for one submitted event.
type EventResult struct {
	Index  int    `json:"index"`
	ID     string `json:"id,omitempty"`
	Status string `json:"status"`
	Reason string `json:"reason,omitempty"`
	Error  string `json:"error,omitempty"`
}

// IngestResponse summarises an ingest request.
type IngestResponse struct {
	Accepted int           `json:"accepted"`
	Rejected int           `json:"rejected"`
	Results  []EventResult `json:"results"`
}

// ErrorResponse is returned when the request as a whole is unusable.
type ErrorResponse struct {
	Error string `json:"error"`
}

// IngestHandler admits a single envelope or an array of envelopes.
//
// Every event gets its own result. The response code reflects the worst
// rejection: 503 when the buffer is open or closed, 429 on backpressure,
// 400 when events were invalid and 202 when all were accepted.
func IngestHandler(ingestor buffer.Ingestor, validator event.Validator, logger *slog.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		body, err := io.ReadAll(http.MaxBytesReader(w, r.Body, MaxBodyBytes))
		if err != nil {
			var tooLarge *http.MaxBytesError
			if errors.As(err, &tooLarge) {
				writeJSON(w, http.StatusRequestEntityTooLarge, ErrorResponse{Error: "request body too large"}, logger)
				return
			}
			writeJSON(w, http.StatusBadRequest, ErrorResponse{Error: "failed to read request body"}, logger)
			return
		}

		events, failures, err := event.UnmarshalBatch(body)
		if err != nil {
			writeJSON(w, http.StatusBadRequest, ErrorResponse{Error: err.Error()}, logger)
			return
		}
		if len(events) == 0 {
			writeJSON(w, http.StatusBadRequest, ErrorResponse{Error: "no events in request"}, logger)
			return
		}

		resp := IngestResponse{Results: make([]EventResult, len(events))}
		statusCode := http.StatusAccepted
		now := time.Now().UTC()

		for i, e := range events {
			result := EventResult{Index: i, Status: StatusRejected}

			if decodeErr, ok := failures[i]; ok {
				result.Reason = "invalid"
				result.Error = decodeErr.Error()
				statusCode = worse(statusCode, http.StatusBadRequest)
				resp.Results[i] = result
				resp.Rejected++
				continue
			}

			if e.ID == "" {
				e.ID = uuid.NewString()
			}
			if e.Time.IsZero() {
				e.Time = now
			}
			result.ID = e.ID

			if validator != nil {
				if err := validator.Validate(e); err != nil {
					result.Reason = "invalid"
					result.Error = err.Error()
					statusCode = worse(statusCode, http.StatusBadRequest)
					resp.Results[i] = result
					resp.Rejected++
					continue
				}
			}

			if err := ingestor.AddEvent(r.Context(), e); err != nil {
				result.Reason = apperrors.Reason(err)
				result.Error = err.Error()
				statusCode = worse(statusCode, admissionStatus(err))
				resp.Results[i] = result
				resp.Rejected++
				continue
			}

			result.Status = StatusAccepted
			resp.Results[i] = result
			resp.Accepted++
		}

		if resp.Rejected > 0 {
			logger.Debug("ingest request had rejections",
				"accepted", resp.Accepted,
				"rejected", resp.Rejected,
				"status", statusCode,
			)
		}
		if statusCode == http.StatusTooManyRequests || statusCode == http.StatusServiceUnavailable {
			w.Header().Set("Retry-After", "1")
		}
		writeJSON(w, statusCode, resp, logger)
	}
}

// admissionStatus maps an admission rejection to an HTTP status.
func admissionStatus(err error) int {
	switch {
	case errors.Is(err, apperrors.ErrCircuitOpen), errors.Is(err, apperrors.ErrChannelClosed):
		return http.StatusServiceUnavailable
	case apperrors.IsBackpressure(err), errors.Is(err, apperrors.ErrMemoryLimitExceeded):
		return http.StatusTooManyRequests
	default:
		return http.StatusInternalServerError
	}
}

// severity orders response codes from best to worst.
var severity = map[int]int{
	http.StatusAccepted:            0,
	http.StatusBadRequest:          1,
	http.StatusTooManyRequests:     2,
	http.StatusServiceUnavailable:  3,
	http.StatusInternalServerError: 4,
}

func worse(current, candidate int) int {
	if severity[candidate] > severity[current] {
		return candidate
	}
	return current
}

func writeJSON(w http.ResponseWriter, statusCode int, v any, logger *slog.Logger) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(statusCode)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		logger.Error("failed to encode response", "error", err)
	}
}
