// Package delivery forwards accepted events to their destinations and keeps
// an append-only ledger of every outbound attempt.
package delivery

import (
	"time"

	"github.com/xraph/hookgate/id"
)

// AttemptStatus is the outcome of one outbound HTTP call.
type AttemptStatus string

const (
	// AttemptSuccess means the destination answered 2xx.
	AttemptSuccess AttemptStatus = "success"

	// AttemptFailed covers non-2xx answers and transport errors.
	AttemptFailed AttemptStatus = "failed"

	// AttemptTimeout means no answer arrived within the request timeout.
	AttemptTimeout AttemptStatus = "timeout"
)

// EventDelivery is one immutable ledger row: a single HTTP attempt to one
// destination of one event.
type EventDelivery struct {
	// ID is the unique TypeID for this attempt.
	ID id.ID `json:"id"`

	// EventID references the event being delivered.
	EventID id.ID `json:"event_id"`

	// EndpointID references the inbound endpoint of the event.
	EndpointID id.ID `json:"endpoint_id"`

	// ProjectID references the owning project.
	ProjectID id.ID `json:"project_id"`

	// Destination is the URL called.
	Destination string `json:"destination"`

	// AttemptNumber is one more than the number of earlier rows for the same
	// event and destination.
	AttemptNumber int `json:"attempt_number"`

	Status AttemptStatus `json:"status"`

	// ResponseCode is zero when no response was received.
	ResponseCode int `json:"response_code,omitempty"`

	// ResponseBody is capped at 1KB.
	ResponseBody string `json:"response_body,omitempty"`

	ResponseHeaders map[string]string `json:"response_headers,omitempty"`

	ErrorMessage string `json:"error_message,omitempty"`

	LatencyMs int64 `json:"latency_ms"`

	AttemptedAt time.Time `json:"attempted_at"`
}

// Succeeded reports whether the attempt got a 2xx answer.
func (d *EventDelivery) Succeeded() bool { return d.Status == AttemptSuccess }
