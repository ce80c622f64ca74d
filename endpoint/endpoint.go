// Package endpoint models inbound webhook addresses. An endpoint belongs to a
// project and carries the static destination list, inbound authentication,
// retry budget and custom outbound headers. Routing rules and
// transformations hang off an endpoint.
package endpoint

import (
	"encoding/json"

	"github.com/xraph/hookgate/id"
	"github.com/xraph/hookgate/internal/entity"
)

// AuthMethod selects how inbound calls to an endpoint are authenticated and
// how outbound deliveries are signed.
type AuthMethod string

const (
	AuthNone         AuthMethod = "none"
	AuthSharedSecret AuthMethod = "shared_secret"
	AuthHMAC         AuthMethod = "hmac"
)

// Valid reports whether m is a known method.
func (m AuthMethod) Valid() bool {
	switch m {
	case AuthNone, AuthSharedSecret, AuthHMAC:
		return true
	}
	return false
}

// Retry configures the delivery retry budget.
type Retry struct {
	// MaxTries is the total number of delivery rounds; 0 uses the gateway default.
	MaxTries int `json:"max_tries"`
}

// Endpoint is an inbound webhook address.
type Endpoint struct {
	entity.Entity

	ID        id.ID  `json:"id"`
	ProjectID id.ID  `json:"project_id"`
	Name      string `json:"name"`

	// Destinations is the static fallback list used when no routing rule matches.
	Destinations []string `json:"destinations"`

	AuthMethod AuthMethod `json:"auth_method"`

	// AuthSecret is the shared secret or HMAC key. Never serialized.
	AuthSecret string `json:"-"`

	Active  bool              `json:"active"`
	Retry   Retry             `json:"retry"`
	Headers map[string]string `json:"headers,omitempty"`

	// PayloadSchema is an optional JSON Schema every inbound payload must satisfy.
	PayloadSchema json.RawMessage `json:"payload_schema,omitempty"`

	Metadata map[string]string `json:"metadata,omitempty"`
}

// MaxTries returns the endpoint's retry budget, or fallback when unset.
func (ep *Endpoint) MaxTries(fallback int) int {
	if ep.Retry.MaxTries > 0 {
		return ep.Retry.MaxTries
	}
	return fallback
}
