// Package event defines the event types accepted by the ingestion buffer.
//
// # Core Types
//
// Event is a header plus a typed payload. Payloads belong to one of two
// categories, each with several variants:
//
//	user:   signup, login, purchase
//	system: log, metric, alert
//
//	e := &event.Event{
//	    ID:     "evt-1",
//	    Source: "checkout",
//	    Time:   time.Now(),
//	    Payload: event.UserPurchase{
//	        UserID:   "u-1",
//	        OrderID:  "o-1",
//	        Currency: "EUR",
//	        Items:    []event.LineItem{{SKU: "sku-1", Quantity: 2, PriceCents: 1999}},
//	    },
//	}
//
// # Size Estimation
//
// EstimateSize returns the approximate in-memory footprint of an event: the
// base struct size, the length of every variable-length field, and a fixed
// size per nested repeated record (line items, metric samples). The buffer
// uses it to enforce its memory ceiling.
//
// # Wire Format
//
// Marshal and Unmarshal convert events to and from a JSON envelope:
//
//	{"id":"evt-1","source":"checkout","time":"...","category":"user","variant":"purchase","data":{...}}
//
// # Subjects
//
// Subject derives the bus subject from category and variant:
//
//	e.Subject("ingest") // "ingest.events.user.purchase"
//
// # Records
//
// NewRecord flattens an event into the row shape written by the storage
// encoders.
package event
