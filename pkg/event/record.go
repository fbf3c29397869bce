package event

import (
	"fmt"
	"time"

	json "github.com/goccy/go-json"
)

// Record is the flattened row written to storage for a single event.
type Record struct {
	ID         string
	Category   Category
	Variant    string
	Source     string
	EventTime  time.Time
	Attributes map[string]string
	Data       []byte
	SizeBytes  int
	IngestedAt time.Time
}

// NewRecord flattens an event into a storage record. Data holds the payload as JSON.
func NewRecord(e *Event, ingestedAt time.Time) (Record, error) {
	if e.Payload == nil {
		return Record{}, fmt.Errorf("event %q has no payload", e.ID)
	}
	data, err := json.Marshal(e.Payload)
	if err != nil {
		return Record{}, fmt.Errorf("failed to marshal payload for event %q: %w", e.ID, err)
	}
	return Record{
		ID:         e.ID,
		Category:   e.Category(),
		Variant:    e.Variant(),
		Source:     e.Source,
		EventTime:  e.Time,
		Attributes: e.Attributes,
		Data:       data,
		SizeBytes:  EstimateSize(e),
		IngestedAt: ingestedAt,
	}, nil
}

// GetEventTime returns the event time, falling back to the ingestion time
// when the producer did not set one.
func (r *Record) GetEventTime() time.Time {
	if !r.EventTime.IsZero() {
		return r.EventTime
	}
	return r.IngestedAt
}

// GetEventTimeUnix returns the event's timestamp as Unix seconds.
func (r *Record) GetEventTimeUnix() int64 {
	return r.GetEventTime().Unix()
}
