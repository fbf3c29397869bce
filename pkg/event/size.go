package event

import "unsafe"

// Fixed per-child sizes for nested repeated records. Children are charged a
// flat amount regardless of their own string fields.
const (
	lineItemSize = int(unsafe.Sizeof(LineItem{}))
	sampleSize   = int(unsafe.Sizeof(Sample{}))
)

var eventBaseSize = int(unsafe.Sizeof(Event{}))

// EstimateSize estimates the in-memory footprint of an event in bytes.
// It is the base struct size plus the length of every variable-length field,
// plus a fixed size for each nested repeated sub-record.
func EstimateSize(e *Event) int {
	if e == nil {
		return 0
	}

	size := eventBaseSize
	size += len(e.ID)
	size += len(e.Source)

	for k, v := range e.Attributes {
		size += len(k) + len(v)
	}

	if e.Payload != nil {
		size += e.Payload.variableSize()
	}

	return size
}

func (p UserSignup) variableSize() int {
	return int(unsafe.Sizeof(p)) + len(p.UserID) + len(p.Email) + len(p.Plan)
}

func (p UserLogin) variableSize() int {
	return int(unsafe.Sizeof(p)) + len(p.UserID) + len(p.IP) + len(p.UserAgent)
}

func (p UserPurchase) variableSize() int {
	return int(unsafe.Sizeof(p)) + len(p.UserID) + len(p.OrderID) + len(p.Currency) +
		len(p.Items)*lineItemSize
}

func (p SystemLog) variableSize() int {
	return int(unsafe.Sizeof(p)) + len(p.Service) + len(p.Level) + len(p.Message)
}

func (p SystemMetric) variableSize() int {
	return int(unsafe.Sizeof(p)) + len(p.Service) + len(p.Name) + len(p.Unit) +
		len(p.Samples)*sampleSize
}

func (p SystemAlert) variableSize() int {
	return int(unsafe.Sizeof(p)) + len(p.Service) + len(p.Severity) + len(p.Summary)
}
