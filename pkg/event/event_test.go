package event

import (
	"errors"
	"strings"
	"testing"
	"time"
	"unsafe"
)

func TestEvent_Subject(t *testing.T) {
	tests := []struct {
		name    string
		payload Payload
		stream  string
		want    string
	}{
		{
			name:    "user signup",
			payload: UserSignup{UserID: "u-1"},
			stream:  "ingest",
			want:    "ingest.events.user.signup",
		},
		{
			name:    "user purchase",
			payload: UserPurchase{UserID: "u-1"},
			stream:  "prod",
			want:    "prod.events.user.purchase",
		},
		{
			name:    "system metric",
			payload: SystemMetric{Name: "cpu"},
			stream:  "ingest",
			want:    "ingest.events.system.metric",
		},
		{
			name:    "system alert",
			payload: SystemAlert{Service: "api"},
			stream:  "ingest",
			want:    "ingest.events.system.alert",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			e := &Event{ID: "evt", Payload: tt.payload}
			if got := e.Subject(tt.stream); got != tt.want {
				t.Errorf("Subject() = %q, want %q", got, tt.want)
			}
		})
	}
}

func TestEvent_NilPayload(t *testing.T) {
	e := &Event{ID: "evt"}
	if e.Category() != "" {
		t.Errorf("Category() = %q, want empty", e.Category())
	}
	if e.Variant() != "" {
		t.Errorf("Variant() = %q, want empty", e.Variant())
	}
}

func TestEstimateSize(t *testing.T) {
	base := int(unsafe.Sizeof(Event{}))

	t.Run("nil event", func(t *testing.T) {
		if got := EstimateSize(nil); got != 0 {
			t.Errorf("EstimateSize(nil) = %d, want 0", got)
		}
	})

	t.Run("header and strings", func(t *testing.T) {
		p := SystemLog{Service: "api", Level: "info", Message: "hello"}
		e := &Event{
			ID:         "abcd",
			Source:     "src",
			Attributes: map[string]string{"k": "vv"},
			Payload:    p,
		}
		want := base + 4 + 3 + 1 + 2 + int(unsafe.Sizeof(p)) + 3 + 4 + 5
		if got := EstimateSize(e); got != want {
			t.Errorf("EstimateSize() = %d, want %d", got, want)
		}
	})

	t.Run("nested records use fixed size", func(t *testing.T) {
		small := &Event{ID: "1", Payload: UserPurchase{Items: []LineItem{{SKU: "a"}}}}
		large := &Event{ID: "1", Payload: UserPurchase{Items: []LineItem{{SKU: strings.Repeat("a", 500)}}}}
		if EstimateSize(small) != EstimateSize(large) {
			t.Errorf("child records should be charged a fixed size: %d != %d",
				EstimateSize(small), EstimateSize(large))
		}

		three := &Event{ID: "1", Payload: UserPurchase{Items: make([]LineItem, 3)}}
		if diff := EstimateSize(three) - EstimateSize(small); diff != 2*lineItemSize {
			t.Errorf("size difference = %d, want %d", diff, 2*lineItemSize)
		}
	})

	t.Run("metric samples", func(t *testing.T) {
		e := &Event{ID: "m", Payload: SystemMetric{Samples: make([]Sample, 10)}}
		empty := &Event{ID: "m", Payload: SystemMetric{}}
		if diff := EstimateSize(e) - EstimateSize(empty); diff != 10*sampleSize {
			t.Errorf("size difference = %d, want %d", diff, 10*sampleSize)
		}
	})
}

func TestMarshalUnmarshal(t *testing.T) {
	now := time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC)
	original := &Event{
		ID:         "evt-1",
		Source:     "checkout",
		Time:       now,
		Attributes: map[string]string{"region": "eu"},
		Payload: UserPurchase{
			UserID:   "u-1",
			OrderID:  "o-9",
			Currency: "EUR",
			Items:    []LineItem{{SKU: "sku-1", Quantity: 2, PriceCents: 1999}},
		},
	}

	data, err := Marshal(original)
	if err != nil {
		t.Fatalf("Marshal() error = %v", err)
	}

	decoded, err := Unmarshal(data)
	if err != nil {
		t.Fatalf("Unmarshal() error = %v", err)
	}

	if decoded.ID != original.ID || decoded.Source != original.Source {
		t.Errorf("header mismatch: got %+v", decoded)
	}
	if !decoded.Time.Equal(now) {
		t.Errorf("Time = %v, want %v", decoded.Time, now)
	}
	purchase, ok := decoded.Payload.(UserPurchase)
	if !ok {
		t.Fatalf("Payload type = %T, want UserPurchase", decoded.Payload)
	}
	if len(purchase.Items) != 1 || purchase.Items[0].PriceCents != 1999 {
		t.Errorf("Items = %+v", purchase.Items)
	}
}

func TestUnmarshal_UnknownVariant(t *testing.T) {
	data := []byte(`{"id":"x","category":"user","variant":"teleport","data":{}}`)
	_, err := Unmarshal(data)
	if !errors.Is(err, ErrUnknownVariant) {
		t.Errorf("Unmarshal() error = %v, want ErrUnknownVariant", err)
	}
}

func TestMarshal_NoPayload(t *testing.T) {
	if _, err := Marshal(&Event{ID: "x"}); err == nil {
		t.Error("expected error for event without payload")
	}
}

func TestUnmarshalBatch(t *testing.T) {
	tests := []struct {
		name         string
		data         string
		wantEvents   int
		wantFailures int
		wantErr      bool
	}{
		{
			name:       "single envelope",
			data:       `{"id":"a","category":"system","variant":"log","data":{"service":"api","level":"info","message":"m"}}`,
			wantEvents: 1,
		},
		{
			name: "array with one bad entry",
			data: `  [
				{"id":"a","category":"system","variant":"alert","data":{"service":"api","severity":"high","summary":"down"}},
				{"id":"b","category":"nope","variant":"log","data":{}}
			]`,
			wantEvents:   2,
			wantFailures: 1,
		},
		{
			name:    "malformed array",
			data:    `[{"id":`,
			wantErr: true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			events, failures, err := UnmarshalBatch([]byte(tt.data))
			if (err != nil) != tt.wantErr {
				t.Fatalf("UnmarshalBatch() error = %v, wantErr %v", err, tt.wantErr)
			}
			if tt.wantErr {
				return
			}
			if len(events) != tt.wantEvents {
				t.Errorf("len(events) = %d, want %d", len(events), tt.wantEvents)
			}
			if len(failures) != tt.wantFailures {
				t.Errorf("len(failures) = %d, want %d", len(failures), tt.wantFailures)
			}
		})
	}
}

func TestKnown(t *testing.T) {
	if !Known(CategoryUser, VariantLogin) {
		t.Error("user.login should be known")
	}
	if Known(CategorySystem, VariantLogin) {
		t.Error("system.login should not be known")
	}
}

func TestNewRecord(t *testing.T) {
	ingested := time.Date(2025, 1, 2, 3, 4, 5, 0, time.UTC)
	e := &Event{
		ID:      "evt-1",
		Source:  "api",
		Payload: SystemAlert{Service: "api", Severity: "critical", Summary: "down"},
	}

	rec, err := NewRecord(e, ingested)
	if err != nil {
		t.Fatalf("NewRecord() error = %v", err)
	}
	if rec.Category != CategorySystem || rec.Variant != VariantAlert {
		t.Errorf("kind = %s.%s, want system.alert", rec.Category, rec.Variant)
	}
	if rec.SizeBytes != EstimateSize(e) {
		t.Errorf("SizeBytes = %d, want %d", rec.SizeBytes, EstimateSize(e))
	}
	if !strings.Contains(string(rec.Data), `"severity":"critical"`) {
		t.Errorf("Data = %s", rec.Data)
	}
	// No event time set: falls back to ingestion time.
	if got := rec.GetEventTime(); !got.Equal(ingested) {
		t.Errorf("GetEventTime() = %v, want %v", got, ingested)
	}
}

func TestNewRecord_NoPayload(t *testing.T) {
	if _, err := NewRecord(&Event{ID: "x"}, time.Now()); err == nil {
		t.Error("expected error for event without payload")
	}
}
