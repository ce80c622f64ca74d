// Package event holds the persisted form of an inbound webhook call and its
// delivery status machine.
package event

import (
	"time"

	"github.com/xraph/hookgate/id"
	"github.com/xraph/hookgate/internal/entity"
)

// Event is an accepted inbound event queued for delivery.
type Event struct {
	entity.Entity

	// ID is the unique TypeID for this event.
	ID id.ID `json:"id"`

	// ProjectID identifies the owning project.
	ProjectID id.ID `json:"project_id"`

	// EndpointID identifies the inbound endpoint the event arrived on.
	EndpointID id.ID `json:"endpoint_id"`

	// Type is the event type name (e.g. "order.created").
	Type string `json:"type"`

	// Payload is the transformed payload delivered to every destination. With
	// field encryption sensitive values are sealed; with document encryption
	// it is nil and Sealed holds the ciphertext.
	Payload map[string]any `json:"payload,omitempty"`

	// Sealed is the document ciphertext when Encryption is "document".
	Sealed string `json:"sealed,omitempty"`

	// Encryption records the at-rest mode used: "none", "fields" or "document".
	Encryption string `json:"encryption"`

	// Headers are the inbound request headers.
	Headers map[string]string `json:"headers,omitempty"`

	// SourceIP is the client address of the inbound call.
	SourceIP string `json:"source_ip,omitempty"`

	// Destinations is the routing result, in delivery order.
	Destinations []string `json:"destinations"`

	Status Status `json:"status"`

	// DeliveryAttempts counts delivery rounds started.
	DeliveryAttempts int `json:"delivery_attempts"`

	// MaxTries is the retry budget fixed at ingestion.
	MaxTries int `json:"max_tries"`

	// Exceptions counts unexpected processing errors, independent of
	// delivery failures.
	Exceptions int `json:"exceptions"`

	NextAttemptAt time.Time  `json:"next_attempt_at"`
	LastAttemptAt *time.Time `json:"last_attempt_at,omitempty"`
	DeliveredAt   *time.Time `json:"delivered_at,omitempty"`
	FailedAt      *time.Time `json:"failed_at,omitempty"`

	// ReplayOf is the source event when this event is a replay.
	ReplayOf id.ID `json:"replay_of,omitempty"`
}

// ListOpts configures filtering and pagination for event listing.
type ListOpts struct {
	Offset     int
	Limit      int
	ProjectID  id.ID
	EndpointID id.ID
	Status     *Status
	Type       string
	From       *time.Time
	To         *time.Time
}

// Matches reports whether evt satisfies the filter part of opts. Stores
// without a query language use it.
func (o ListOpts) Matches(evt *Event) bool {
	if !o.ProjectID.IsNil() && evt.ProjectID != o.ProjectID {
		return false
	}
	if !o.EndpointID.IsNil() && evt.EndpointID != o.EndpointID {
		return false
	}
	if o.Status != nil && evt.Status != *o.Status {
		return false
	}
	if o.Type != "" && evt.Type != o.Type {
		return false
	}
	if o.From != nil && evt.CreatedAt.Before(*o.From) {
		return false
	}
	if o.To != nil && evt.CreatedAt.After(*o.To) {
		return false
	}
	return true
}
