// Package event defines the event envelope, its typed payloads and the
// storage record produced for archived batches.
package event

import (
	"fmt"
	"time"
)

// Category is the top-level classification of a payload.
type Category string

const (
	CategoryUser   Category = "user"
	CategorySystem Category = "system"
)

// Variant names. A variant is only meaningful together with its category.
const (
	VariantSignup   = "signup"
	VariantLogin    = "login"
	VariantPurchase = "purchase"
	VariantLog      = "log"
	VariantMetric   = "metric"
	VariantAlert    = "alert"
)

// Event is a single ingested event: a common header plus exactly one payload.
type Event struct {
	ID         string
	Source     string
	Time       time.Time
	Attributes map[string]string
	Payload    Payload
}

// Payload is implemented by every concrete event variant.
// The set of implementations is closed to this package.
type Payload interface {
	Category() Category
	Variant() string

	// variableSize returns the payload's contribution to the estimated
	// in-memory footprint: base struct size plus variable-length fields.
	variableSize() int
}

// Category returns the payload category, or an empty string if the event has no payload.
func (e *Event) Category() Category {
	if e.Payload == nil {
		return ""
	}
	return e.Payload.Category()
}

// Variant returns the payload variant, or an empty string if the event has no payload.
func (e *Event) Variant() string {
	if e.Payload == nil {
		return ""
	}
	return e.Payload.Variant()
}

// Kind returns "category.variant", used in logs and metric labels.
func (e *Event) Kind() string {
	return fmt.Sprintf("%s.%s", e.Category(), e.Variant())
}

// Subject returns the bus subject for the event under the given stream prefix.
// Format: <stream>.events.<category>.<variant>
func (e *Event) Subject(stream string) string {
	return fmt.Sprintf("%s.events.%s.%s", stream, e.Category(), e.Variant())
}

// LineItem is one line of a purchase.
type LineItem struct {
	SKU        string `json:"sku"`
	Quantity   int    `json:"quantity"`
	PriceCents int64  `json:"price_cents"`
}

// Sample is one observation of a metric.
type Sample struct {
	Value float64   `json:"value"`
	At    time.Time `json:"at"`
}

// UserSignup is emitted when a user account is created.
type UserSignup struct {
	UserID string `json:"user_id"`
	Email  string `json:"email"`
	Plan   string `json:"plan,omitempty"`
}

// UserLogin is emitted on every successful authentication.
type UserLogin struct {
	UserID    string `json:"user_id"`
	IP        string `json:"ip,omitempty"`
	UserAgent string `json:"user_agent,omitempty"`
}

// UserPurchase is emitted when an order is placed.
type UserPurchase struct {
	UserID   string     `json:"user_id"`
	OrderID  string     `json:"order_id"`
	Currency string     `json:"currency"`
	Items    []LineItem `json:"items"`
}

// SystemLog carries a single log line from a service.
type SystemLog struct {
	Service string `json:"service"`
	Level   string `json:"level"`
	Message string `json:"message"`
}

// SystemMetric carries a batch of samples for one metric series.
type SystemMetric struct {
	Service string   `json:"service"`
	Name    string   `json:"name"`
	Unit    string   `json:"unit,omitempty"`
	Samples []Sample `json:"samples"`
}

// SystemAlert is raised by a service health check.
type SystemAlert struct {
	Service  string `json:"service"`
	Severity string `json:"severity"`
	Summary  string `json:"summary"`
}

func (UserSignup) Category() Category   { return CategoryUser }
func (UserLogin) Category() Category    { return CategoryUser }
func (UserPurchase) Category() Category { return CategoryUser }
func (SystemLog) Category() Category    { return CategorySystem }
func (SystemMetric) Category() Category { return CategorySystem }
func (SystemAlert) Category() Category  { return CategorySystem }

func (UserSignup) Variant() string   { return VariantSignup }
func (UserLogin) Variant() string    { return VariantLogin }
func (UserPurchase) Variant() string { return VariantPurchase }
func (SystemLog) Variant() string    { return VariantLog }
func (SystemMetric) Variant() string { return VariantMetric }
func (SystemAlert) Variant() string  { return VariantAlert }

// FileStats contains statistics about an encoded batch file.
type FileStats struct {
	RecordCount    int
	SizeBytes      int64
	FirstWriteTime time.Time
	LastWriteTime  time.Time
}

// FileFormat represents the storage file format.
type FileFormat string

const (
	FormatParquet FileFormat = "parquet"
	FormatAvro    FileFormat = "avro"
)

// Validator validates events before they are admitted.
type Validator interface {
	Validate(e *Event) error
}
