// Package errors defines application-specific error types and sentinel errors.
package errors

import (
	"errors"
	"fmt"
)

// Admission sentinels. Every rejection returned by the buffer wraps exactly one.
var (
	ErrCircuitOpen         = errors.New("circuit breaker is open")
	ErrMemoryLimitExceeded = errors.New("memory limit exceeded")
	ErrBackpressureFull    = errors.New("backpressure: no admission tokens available")
	ErrBackpressureRace    = errors.New("backpressure: admission token taken concurrently")
	ErrBackpressureTimeout = errors.New("backpressure: timed out waiting for admission token")
	ErrChannelClosed       = errors.New("buffer channel is closed")
	ErrSendTimeout         = errors.New("timed out sending event to buffer channel")
)

// Other sentinel errors.
var (
	ErrInvalidEvent   = errors.New("invalid event")
	ErrWriterClosed   = errors.New("storage writer is closed")
	ErrPublisherClose = errors.New("publisher is closed")
	ErrConnectionLost = errors.New("connection lost")
)

// AdmissionError is returned when the buffer rejects an event.
type AdmissionError struct {
	Reason  string
	EventID string
	Err     error
}

func (e *AdmissionError) Error() string {
	return fmt.Sprintf("admission rejected: reason=%s event_id=%s: %v", e.Reason, e.EventID, e.Err)
}

func (e *AdmissionError) Unwrap() error {
	return e.Err
}

// IsRetryable reports whether the producer may retry the same event later.
// Only a closed buffer is permanent.
func (e *AdmissionError) IsRetryable() bool {
	return !errors.Is(e.Err, ErrChannelClosed)
}

// NewAdmissionError wraps an admission sentinel with the rejection reason.
func NewAdmissionError(reason, eventID string, err error) *AdmissionError {
	return &AdmissionError{Reason: reason, EventID: eventID, Err: err}
}

// ValidationError represents an event validation failure.
type ValidationError struct {
	EventID string
	Field   string
	Reason  string
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("validation error: event_id=%s field=%s: %s",
		e.EventID, e.Field, e.Reason)
}

func (e *ValidationError) Unwrap() error {
	return ErrInvalidEvent
}

// StorageError represents a storage operation failure.
type StorageError struct {
	Operation string
	Path      string
	Err       error
}

func (e *StorageError) Error() string {
	return fmt.Sprintf("storage error: operation=%s path=%s: %v",
		e.Operation, e.Path, e.Err)
}

func (e *StorageError) Unwrap() error {
	return e.Err
}

// IsRetryable determines if a StorageError is retryable based on the operation type.
func (e *StorageError) IsRetryable() bool {
	// Write and upload operations are generally retryable
	return e.Operation == "write" || e.Operation == "upload" || e.Operation == "create" || e.Operation == "insert"
}

// PublishError represents a failed bus publish.
type PublishError struct {
	Subject string
	Err     error
}

func (e *PublishError) Error() string {
	return fmt.Sprintf("publish error: subject=%s: %v", e.Subject, e.Err)
}

func (e *PublishError) Unwrap() error {
	return e.Err
}

// Retryable defines an interface for errors that can indicate if they are retryable.
type Retryable interface {
	error
	IsRetryable() bool
}

// IsRetryable checks if an error is retryable.
// It first checks if the error implements the Retryable interface,
// then falls back to checking sentinel errors.
func IsRetryable(err error) bool {
	if err == nil {
		return false
	}

	var retryable Retryable
	if errors.As(err, &retryable) {
		return retryable.IsRetryable()
	}

	if errors.Is(err, ErrConnectionLost) {
		return true
	}

	return false
}

// IsBackpressure reports whether err is one of the capacity-related rejections.
func IsBackpressure(err error) bool {
	return errors.Is(err, ErrBackpressureFull) ||
		errors.Is(err, ErrBackpressureRace) ||
		errors.Is(err, ErrBackpressureTimeout) ||
		errors.Is(err, ErrSendTimeout)
}

// Reason returns the metric/log label for an admission sentinel.
func Reason(err error) string {
	switch {
	case errors.Is(err, ErrCircuitOpen):
		return "circuit_open"
	case errors.Is(err, ErrMemoryLimitExceeded):
		return "memory_limit"
	case errors.Is(err, ErrBackpressureFull):
		return "backpressure_full"
	case errors.Is(err, ErrBackpressureRace):
		return "backpressure_race"
	case errors.Is(err, ErrBackpressureTimeout):
		return "backpressure_timeout"
	case errors.Is(err, ErrChannelClosed):
		return "channel_closed"
	case errors.Is(err, ErrSendTimeout):
		return "send_timeout"
	default:
		return "unknown"
	}
}
