// Package transform reshapes inbound payloads before delivery.
//
// A transformation is a kind-specific configuration attached to an endpoint.
// The Pipeline applies an endpoint's active transformations in ascending
// priority; each step sees the output of the previous one. A failing step is
// logged and skipped so a single bad transformation never blocks delivery.
package transform

import (
	"encoding/json"

	"github.com/xraph/hookgate/condition"
	"github.com/xraph/hookgate/id"
	"github.com/xraph/hookgate/internal/entity"
)

// Kind selects the transformation strategy.
type Kind string

const (
	KindFieldMapping Kind = "field_mapping"
	KindTemplate     Kind = "template"
	KindJavaScript   Kind = "javascript"
	KindJQ           Kind = "jq"
)

// Transformation is one pipeline step.
type Transformation struct {
	entity.Entity

	ID         id.ID                 `json:"id"`
	EndpointID id.ID                 `json:"endpoint_id"`
	Name       string                `json:"name"`
	Kind       Kind                  `json:"kind"`
	Priority   int                   `json:"priority"`
	Active     bool                  `json:"active"`
	Conditions []condition.Condition `json:"conditions,omitempty"`

	// Config is the kind-specific configuration, see FieldMappingConfig and
	// TemplateConfig.
	Config json.RawMessage `json:"config"`

	Fixtures []Fixture `json:"fixtures,omitempty"`
}

// Fixture is a stored example used to check a transformation before it is
// activated.
type Fixture struct {
	Name     string            `json:"name"`
	Input    map[string]any    `json:"input"`
	Headers  map[string]string `json:"headers,omitempty"`
	Expected map[string]any    `json:"expected"`
}
