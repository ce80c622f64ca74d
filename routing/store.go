package routing

import (
	"context"
	"time"

	"github.com/xraph/hookgate/id"
)

// Store defines the persistence contract for routing rules.
type Store interface {
	CreateRule(ctx context.Context, r *Rule) error
	GetRule(ctx context.Context, ruleID id.ID) (*Rule, error)
	UpdateRule(ctx context.Context, r *Rule) error
	DeleteRule(ctx context.Context, ruleID id.ID) error

	// ListRules returns every rule of an endpoint, active or not, ordered by
	// ascending priority.
	ListRules(ctx context.Context, endpointID id.ID) ([]*Rule, error)

	// RecordMatch atomically increments a rule's match count and stamps
	// LastMatchedAt.
	RecordMatch(ctx context.Context, ruleID id.ID, at time.Time) error
}
