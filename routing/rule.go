// Package routing decides, per inbound event, whether the event is dropped
// and otherwise which destinations receive it.
package routing

import (
	"time"

	"github.com/xraph/hookgate/condition"
	"github.com/xraph/hookgate/id"
	"github.com/xraph/hookgate/internal/entity"
)

// Action is what a matching rule does.
type Action string

const (
	ActionRoute Action = "route"
	ActionDrop  Action = "drop"
)

// Destination is a target contributed by a route rule. Priority overrides the
// rule's priority for ordering when set.
type Destination struct {
	URL      string `json:"url"`
	Priority *int   `json:"priority,omitempty"`
}

// Rule is a conditional routing rule attached to an endpoint. Lower Priority
// values are evaluated first.
type Rule struct {
	entity.Entity

	ID            id.ID                 `json:"id"`
	EndpointID    id.ID                 `json:"endpoint_id"`
	Name          string                `json:"name"`
	Action        Action                `json:"action"`
	Priority      int                   `json:"priority"`
	Active        bool                  `json:"active"`
	Conditions    []condition.Condition `json:"conditions"`
	Destinations  []Destination         `json:"destinations,omitempty"`
	MatchCount    int64                 `json:"match_count"`
	LastMatchedAt *time.Time            `json:"last_matched_at,omitempty"`
}

// Decision is the outcome of routing one event.
type Decision struct {
	Action       Action   `json:"action"`
	Destinations []string `json:"destinations,omitempty"`

	// MatchedRule is the drop rule that fired. Nil for route decisions.
	MatchedRule *Rule `json:"matched_rule,omitempty"`

	// Matched lists every rule whose conditions held, in evaluation order.
	Matched []*Rule `json:"-"`
}

// Dropped reports whether the event must be discarded.
func (d Decision) Dropped() bool { return d.Action == ActionDrop }
