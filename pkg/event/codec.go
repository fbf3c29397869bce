package event

import (
	"errors"
	"fmt"
	"time"

	json "github.com/goccy/go-json"
)

// ErrUnknownVariant is returned when decoding an envelope whose
// category/variant pair has no registered payload type.
var ErrUnknownVariant = errors.New("unknown event variant")

// Envelope is the wire representation of an Event.
type Envelope struct {
	ID         string            `json:"id"`
	Source     string            `json:"source"`
	Time       time.Time         `json:"time"`
	Attributes map[string]string `json:"attributes,omitempty"`
	Category   Category          `json:"category"`
	Variant    string            `json:"variant"`
	Data       json.RawMessage   `json:"data"`
}

type payloadKey struct {
	category Category
	variant  string
}

type decodeFunc func(data []byte) (Payload, error)

var decoders = map[payloadKey]decodeFunc{
	{CategoryUser, VariantSignup}:   decodeAs[UserSignup],
	{CategoryUser, VariantLogin}:    decodeAs[UserLogin],
	{CategoryUser, VariantPurchase}: decodeAs[UserPurchase],
	{CategorySystem, VariantLog}:    decodeAs[SystemLog],
	{CategorySystem, VariantMetric}: decodeAs[SystemMetric],
	{CategorySystem, VariantAlert}:  decodeAs[SystemAlert],
}

func decodeAs[T Payload](data []byte) (Payload, error) {
	var p T
	if len(data) == 0 {
		return p, nil
	}
	if err := json.Unmarshal(data, &p); err != nil {
		return nil, err
	}
	return p, nil
}

// Known reports whether the category/variant pair is a registered payload type.
func Known(category Category, variant string) bool {
	_, ok := decoders[payloadKey{category, variant}]
	return ok
}

// ToEnvelope converts an event to its wire envelope.
func ToEnvelope(e *Event) (*Envelope, error) {
	if e.Payload == nil {
		return nil, fmt.Errorf("event %q has no payload", e.ID)
	}
	data, err := json.Marshal(e.Payload)
	if err != nil {
		return nil, fmt.Errorf("failed to marshal payload: %w", err)
	}
	return &Envelope{
		ID:         e.ID,
		Source:     e.Source,
		Time:       e.Time,
		Attributes: e.Attributes,
		Category:   e.Category(),
		Variant:    e.Variant(),
		Data:       data,
	}, nil
}

// Event converts the envelope back to an Event, decoding the payload by
// category and variant.
func (env *Envelope) Event() (*Event, error) {
	decode, ok := decoders[payloadKey{env.Category, env.Variant}]
	if !ok {
		return nil, fmt.Errorf("%w: %s.%s", ErrUnknownVariant, env.Category, env.Variant)
	}
	payload, err := decode(env.Data)
	if err != nil {
		return nil, fmt.Errorf("failed to decode %s.%s payload: %w", env.Category, env.Variant, err)
	}
	return &Event{
		ID:         env.ID,
		Source:     env.Source,
		Time:       env.Time,
		Attributes: env.Attributes,
		Payload:    payload,
	}, nil
}

// Marshal serializes an event as a JSON envelope.
func Marshal(e *Event) ([]byte, error) {
	env, err := ToEnvelope(e)
	if err != nil {
		return nil, err
	}
	return json.Marshal(env)
}

// Unmarshal parses a JSON envelope into an Event.
func Unmarshal(data []byte) (*Event, error) {
	var env Envelope
	if err := json.Unmarshal(data, &env); err != nil {
		return nil, fmt.Errorf("failed to unmarshal envelope: %w", err)
	}
	return env.Event()
}

// UnmarshalBatch parses either a single JSON envelope or a JSON array of
// envelopes. Envelopes that fail to decode are reported per index.
func UnmarshalBatch(data []byte) ([]*Event, map[int]error, error) {
	var raws []json.RawMessage
	if trimmed := firstNonSpace(data); trimmed == '[' {
		if err := json.Unmarshal(data, &raws); err != nil {
			return nil, nil, fmt.Errorf("failed to unmarshal envelope array: %w", err)
		}
	} else {
		raws = []json.RawMessage{data}
	}

	events := make([]*Event, len(raws))
	failures := make(map[int]error)
	for i, raw := range raws {
		e, err := Unmarshal(raw)
		if err != nil {
			failures[i] = err
			continue
		}
		events[i] = e
	}
	return events, failures, nil
}

func firstNonSpace(data []byte) byte {
	for _, b := range data {
		switch b {
		case ' ', '\t', '\r', '\n':
			continue
		default:
			return b
		}
	}
	return 0
}
