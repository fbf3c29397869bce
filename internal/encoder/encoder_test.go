package encoder

import (
	"time"

	"github.com/jittakal/eventbuffer/pkg/event"
)

func testRecords(n int) []event.Record {
	base := time.Date(2025, 3, 14, 9, 26, 53, 0, time.UTC)
	records := make([]event.Record, n)
	for i := range records {
		records[i] = event.Record{
			ID:         "evt-" + string(rune('a'+i)),
			Category:   event.CategorySystem,
			Variant:    event.VariantLog,
			Source:     "api",
			EventTime:  base.Add(time.Duration(i) * time.Second),
			Attributes: map[string]string{"region": "eu-west-1"},
			Data:       []byte(`{"service":"api","level":"info","message":"ok"}`),
			SizeBytes:  256,
			IngestedAt: base.Add(time.Duration(i) * time.Millisecond),
		}
	}
	return records
}
