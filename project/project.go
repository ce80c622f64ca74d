// Package project models tenants. A project owns endpoints and events, holds
// the management API key, and carries the per-tenant rate limit and at-rest
// encryption settings applied during ingestion.
package project

import (
	"time"

	"github.com/xraph/hookgate/id"
	"github.com/xraph/hookgate/internal/entity"
)

// EncryptionMode selects how event payloads are stored at rest.
type EncryptionMode string

const (
	// EncryptionNone stores payloads as received.
	EncryptionNone EncryptionMode = "none"
	// EncryptionFields seals individual sensitive fields.
	EncryptionFields EncryptionMode = "fields"
	// EncryptionDocument seals the whole payload.
	EncryptionDocument EncryptionMode = "document"
)

// Encryption holds a project's payload-encryption settings.
type Encryption struct {
	Mode EncryptionMode `json:"mode"`
	// Fields overrides the default sensitive field set when non-empty.
	Fields []string `json:"fields,omitempty"`
}

// RateLimit caps inbound requests per (project, source IP) within Window.
// Requests == 0 disables limiting.
type RateLimit struct {
	Requests int           `json:"requests"`
	Window   time.Duration `json:"window"`
}

// Project is a tenant.
type Project struct {
	entity.Entity

	ID   id.ID  `json:"id"`
	Name string `json:"name"`

	// APIKey authenticates management calls. Never serialized.
	APIKey string `json:"-"`

	// SigningSecret is the project-wide webhook signing secret. Never serialized.
	SigningSecret string `json:"-"`

	Active      bool       `json:"active"`
	RateLimit   RateLimit  `json:"rate_limit"`
	Permissions []string   `json:"permissions,omitempty"`
	Encryption  Encryption `json:"encryption"`
}

// Can reports whether the project holds permission perm. A project with no
// explicit permissions may do everything.
func (p *Project) Can(perm string) bool {
	if len(p.Permissions) == 0 {
		return true
	}
	for _, have := range p.Permissions {
		if have == perm || have == "*" {
			return true
		}
	}
	return false
}

// ListOpts configures project listing.
type ListOpts struct {
	Offset int
	Limit  int
}
