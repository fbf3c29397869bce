package errors

import (
	"errors"
	"fmt"
	"testing"
)

func TestSentinelErrors(t *testing.T) {
	tests := []struct {
		name string
		err  error
	}{
		{"ErrCircuitOpen", ErrCircuitOpen},
		{"ErrMemoryLimitExceeded", ErrMemoryLimitExceeded},
		{"ErrBackpressureFull", ErrBackpressureFull},
		{"ErrBackpressureRace", ErrBackpressureRace},
		{"ErrBackpressureTimeout", ErrBackpressureTimeout},
		{"ErrChannelClosed", ErrChannelClosed},
		{"ErrSendTimeout", ErrSendTimeout},
		{"ErrInvalidEvent", ErrInvalidEvent},
		{"ErrWriterClosed", ErrWriterClosed},
		{"ErrConnectionLost", ErrConnectionLost},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if tt.err == nil {
				t.Errorf("%s should not be nil", tt.name)
			}
			if tt.err.Error() == "" {
				t.Errorf("%s should have an error message", tt.name)
			}
		})
	}
}

func TestAdmissionError(t *testing.T) {
	err := NewAdmissionError("memory_limit", "evt-1", ErrMemoryLimitExceeded)

	if !errors.Is(err, ErrMemoryLimitExceeded) {
		t.Error("AdmissionError should wrap its sentinel")
	}
	if !err.IsRetryable() {
		t.Error("memory limit rejection should be retryable")
	}

	closed := NewAdmissionError("channel_closed", "evt-2", ErrChannelClosed)
	if closed.IsRetryable() {
		t.Error("closed channel rejection should not be retryable")
	}
}

func TestValidationError(t *testing.T) {
	err := &ValidationError{
		EventID: "test-123",
		Field:   "source",
		Reason:  "required field missing",
	}

	if err.Error() == "" {
		t.Error("ValidationError should have an error message")
	}
	if !errors.Is(err, ErrInvalidEvent) {
		t.Error("ValidationError should wrap ErrInvalidEvent")
	}
}

func TestStorageError(t *testing.T) {
	baseErr := errors.New("disk full")
	storageErr := &StorageError{
		Operation: "write",
		Path:      "/data/file.parquet",
		Err:       baseErr,
	}

	if storageErr.Error() == "" {
		t.Error("StorageError should have an error message")
	}

	if !errors.Is(storageErr, baseErr) {
		t.Error("StorageError should wrap base error")
	}
}

func TestPublishError(t *testing.T) {
	baseErr := errors.New("no responders")
	pubErr := &PublishError{Subject: "ingest.events.user.login", Err: baseErr}

	if !errors.Is(pubErr, baseErr) {
		t.Error("PublishError should wrap base error")
	}
}

func TestIsRetryable(t *testing.T) {
	tests := []struct {
		name string
		err  error
		want bool
	}{
		{
			name: "nil error",
			err:  nil,
			want: false,
		},
		{
			name: "storage error is retryable",
			err:  &StorageError{Operation: "write", Path: "/tmp/file", Err: errors.New("failed")},
			want: true,
		},
		{
			name: "connection lost is retryable",
			err:  ErrConnectionLost,
			want: true,
		},
		{
			name: "wrapped backpressure rejection is retryable",
			err:  fmt.Errorf("add: %w", NewAdmissionError("backpressure_full", "x", ErrBackpressureFull)),
			want: true,
		},
		{
			name: "closed channel is not retryable",
			err:  NewAdmissionError("channel_closed", "x", ErrChannelClosed),
			want: false,
		},
		{
			name: "validation error is not retryable",
			err:  &ValidationError{EventID: "123", Field: "source", Reason: "missing"},
			want: false,
		},
		{
			name: "generic error is not retryable",
			err:  errors.New("generic error"),
			want: false,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := IsRetryable(tt.err); got != tt.want {
				t.Errorf("IsRetryable() = %v, want %v", got, tt.want)
			}
		})
	}
}

func TestIsBackpressure(t *testing.T) {
	tests := []struct {
		err  error
		want bool
	}{
		{ErrBackpressureFull, true},
		{ErrBackpressureRace, true},
		{ErrBackpressureTimeout, true},
		{ErrSendTimeout, true},
		{ErrCircuitOpen, false},
		{ErrMemoryLimitExceeded, false},
		{ErrChannelClosed, false},
	}

	for _, tt := range tests {
		t.Run(tt.err.Error(), func(t *testing.T) {
			if got := IsBackpressure(tt.err); got != tt.want {
				t.Errorf("IsBackpressure() = %v, want %v", got, tt.want)
			}
		})
	}
}

func TestReason(t *testing.T) {
	tests := []struct {
		err  error
		want string
	}{
		{ErrCircuitOpen, "circuit_open"},
		{ErrMemoryLimitExceeded, "memory_limit"},
		{ErrBackpressureFull, "backpressure_full"},
		{ErrBackpressureRace, "backpressure_race"},
		{ErrBackpressureTimeout, "backpressure_timeout"},
		{ErrChannelClosed, "channel_closed"},
		{ErrSendTimeout, "send_timeout"},
		{errors.New("other"), "unknown"},
	}

	for _, tt := range tests {
		t.Run(tt.want, func(t *testing.T) {
			if got := Reason(tt.err); got != tt.want {
				t.Errorf("Reason() = %q, want %q", got, tt.want)
			}
		})
	}
}
