// Package dlq is the dead-letter queue: the final resting place of events
// that exhausted their delivery budget, kept with their full attempt ledger
// for inspection and replay.
package dlq

import (
	"time"

	"github.com/xraph/hookgate/delivery"
	"github.com/xraph/hookgate/id"
	"github.com/xraph/hookgate/internal/entity"
)

// Entry represents a permanently failed event in the dead letter queue.
type Entry struct {
	entity.Entity

	// ID is the unique TypeID for this DLQ entry.
	ID id.ID `json:"id"`

	// EventID references the failed event.
	EventID id.ID `json:"event_id"`

	// ProjectID identifies the owning project.
	ProjectID id.ID `json:"project_id"`

	// EndpointID references the inbound endpoint.
	EndpointID id.ID `json:"endpoint_id"`

	// EventType is the event type name for filtering.
	EventType string `json:"event_type"`

	// Payload is the event payload in its stored form. Sealed and Encryption
	// carry document ciphertext when the project encrypts at rest.
	Payload    map[string]any `json:"payload,omitempty"`
	Sealed     string         `json:"sealed,omitempty"`
	Encryption string         `json:"encryption"`

	// Destinations is the routing result the event was delivered to.
	Destinations []string `json:"destinations"`

	// Reason explains why the event was given up on.
	Reason string `json:"reason"`

	// Attempts is the number of delivery rounds made.
	Attempts int `json:"attempts"`

	// Deliveries is the complete attempt ledger at the time of failure.
	Deliveries []*delivery.EventDelivery `json:"deliveries"`

	// FailedAt is when the event became permanently failed.
	FailedAt time.Time `json:"failed_at"`

	// ReplayedAt is set when the entry has been replayed.
	ReplayedAt *time.Time `json:"replayed_at,omitempty"`
}

// ListOpts configures filtering and pagination for DLQ listing.
type ListOpts struct {
	Offset     int
	Limit      int
	ProjectID  id.ID
	EndpointID id.ID
	From       *time.Time
	To         *time.Time

	// Pending restricts the listing to entries not yet replayed.
	Pending bool
}

// Matches reports whether e satisfies the filter part of opts.
func (o ListOpts) Matches(e *Entry) bool {
	if !o.ProjectID.IsNil() && e.ProjectID != o.ProjectID {
		return false
	}
	if !o.EndpointID.IsNil() && e.EndpointID != o.EndpointID {
		return false
	}
	if o.From != nil && e.FailedAt.Before(*o.From) {
		return false
	}
	if o.To != nil && e.FailedAt.After(*o.To) {
		return false
	}
	if o.Pending && e.ReplayedAt != nil {
		return false
	}
	return true
}
