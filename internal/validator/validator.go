// Package validator checks events before they are admitted to the buffer.
package validator

import (
	"fmt"
	"slices"
	"strings"

	"github.com/jittakal/eventbuffer/internal/errors"
	"github.com/jittakal/eventbuffer/pkg/event"
)

var _ event.Validator = (*EventValidator)(nil)

var (
	logLevels       = []string{"debug", "info", "warn", "error"}
	alertSeverities = []string{"low", "medium", "high", "critical"}
)

// EventValidator validates the event header and the payload of every variant.
type EventValidator struct{}

// NewEventValidator creates a new event validator.
func NewEventValidator() *EventValidator {
	return &EventValidator{}
}

// Validate returns a *errors.ValidationError naming the first invalid field.
func (v *EventValidator) Validate(e *event.Event) error {
	if e == nil {
		return &errors.ValidationError{Field: "event", Reason: "event is nil"}
	}
	if e.ID == "" {
		return invalid(e, "id", "required field is missing")
	}
	if e.Source == "" {
		return invalid(e, "source", "required field is missing")
	}
	if e.Payload == nil {
		return invalid(e, "data", "required field is missing")
	}
	if !event.Known(e.Category(), e.Variant()) {
		return invalid(e, "variant", fmt.Sprintf("unsupported kind: %s", e.Kind()))
	}

	switch p := e.Payload.(type) {
	case event.UserSignup:
		return v.validateSignup(e, p)
	case event.UserLogin:
		return required(e, "data.user_id", p.UserID)
	case event.UserPurchase:
		return v.validatePurchase(e, p)
	case event.SystemLog:
		return v.validateLog(e, p)
	case event.SystemMetric:
		return v.validateMetric(e, p)
	case event.SystemAlert:
		return v.validateAlert(e, p)
	}
	return nil
}

func (v *EventValidator) validateSignup(e *event.Event, p event.UserSignup) error {
	if err := required(e, "data.user_id", p.UserID); err != nil {
		return err
	}
	if !strings.Contains(p.Email, "@") {
		return invalid(e, "data.email", "must be an email address")
	}
	return nil
}

func (v *EventValidator) validatePurchase(e *event.Event, p event.UserPurchase) error {
	if err := required(e, "data.user_id", p.UserID); err != nil {
		return err
	}
	if err := required(e, "data.order_id", p.OrderID); err != nil {
		return err
	}
	if len(p.Currency) != 3 {
		return invalid(e, "data.currency", "must be a 3-letter ISO 4217 code")
	}
	if len(p.Items) == 0 {
		return invalid(e, "data.items", "at least one item is required")
	}
	for i, item := range p.Items {
		field := fmt.Sprintf("data.items[%d]", i)
		if item.SKU == "" {
			return invalid(e, field+".sku", "required field is missing")
		}
		if item.Quantity <= 0 {
			return invalid(e, field+".quantity", "must be positive")
		}
		if item.PriceCents < 0 {
			return invalid(e, field+".price_cents", "must not be negative")
		}
	}
	return nil
}

func (v *EventValidator) validateLog(e *event.Event, p event.SystemLog) error {
	if err := required(e, "data.service", p.Service); err != nil {
		return err
	}
	if !slices.Contains(logLevels, p.Level) {
		return invalid(e, "data.level", fmt.Sprintf("unsupported level: %q", p.Level))
	}
	return required(e, "data.message", p.Message)
}

func (v *EventValidator) validateMetric(e *event.Event, p event.SystemMetric) error {
	if err := required(e, "data.service", p.Service); err != nil {
		return err
	}
	if err := required(e, "data.name", p.Name); err != nil {
		return err
	}
	if len(p.Samples) == 0 {
		return invalid(e, "data.samples", "at least one sample is required")
	}
	return nil
}

func (v *EventValidator) validateAlert(e *event.Event, p event.SystemAlert) error {
	if err := required(e, "data.service", p.Service); err != nil {
		return err
	}
	if !slices.Contains(alertSeverities, p.Severity) {
		return invalid(e, "data.severity", fmt.Sprintf("unsupported severity: %q", p.Severity))
	}
	return required(e, "data.summary", p.Summary)
}

func required(e *event.Event, field, value string) error {
	if value == "" {
		return invalid(e, field, "required field is missing")
	}
	return nil
}

func invalid(e *event.Event, field, reason string) error {
	return &errors.ValidationError{EventID: e.ID, Field: field, Reason: reason}
}
