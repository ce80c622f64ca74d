package endpoint

import (
	"encoding/json"

	"github.com/xraph/hookgate/id"
)

// Input is the creation and update payload for endpoints. On update, zero
// values leave the stored field untouched.
type Input struct {
	ProjectID     id.ID             `json:"project_id"`
	Name          string            `json:"name"`
	Destinations  []string          `json:"destinations"`
	AuthMethod    AuthMethod        `json:"auth_method"`
	AuthSecret    string            `json:"auth_secret,omitempty"`
	MaxTries      int               `json:"max_tries"`
	Headers       map[string]string `json:"headers,omitempty"`
	PayloadSchema json.RawMessage   `json:"payload_schema,omitempty"`
	Metadata      map[string]string `json:"metadata,omitempty"`
}

// ListOpts configures filtering and pagination for endpoint listing.
type ListOpts struct {
	Offset int
	Limit  int
	Active *bool
}
