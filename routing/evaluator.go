package routing

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/xraph/hookgate/condition"
	"github.com/xraph/hookgate/endpoint"
)

// Evaluator loads an endpoint's rules and applies Decide, recording match
// statistics for every rule that fired.
type Evaluator struct {
	store  Store
	logger *slog.Logger
}

// NewEvaluator creates an Evaluator.
func NewEvaluator(store Store, logger *slog.Logger) *Evaluator {
	if logger == nil {
		logger = slog.Default()
	}
	return &Evaluator{store: store, logger: logger}
}

// Evaluate routes one event. A failure to load rules is returned; a failure
// to record statistics is logged and does not change the decision.
func (e *Evaluator) Evaluate(ctx context.Context, ep *endpoint.Endpoint, payload map[string]any, headers map[string]string) (Decision, error) {
	rules, err := e.store.ListRules(ctx, ep.ID)
	if err != nil {
		return Decision{}, fmt.Errorf("routing: load rules for %s: %w", ep.ID, err)
	}

	cctx := condition.NewContext(payload, headers)
	d := Decide(rules, ep.Destinations, cctx)

	for _, r := range d.Matched {
		if err := e.store.RecordMatch(ctx, r.ID, cctx.Timestamp); err != nil {
			e.logger.WarnContext(ctx, "routing: failed to record rule match",
				"rule_id", r.ID, "endpoint_id", ep.ID, "error", err)
		}
	}

	if d.Dropped() {
		e.logger.DebugContext(ctx, "event dropped by rule",
			"endpoint_id", ep.ID, "rule_id", d.MatchedRule.ID, "rule", d.MatchedRule.Name)
	}
	return d, nil
}
