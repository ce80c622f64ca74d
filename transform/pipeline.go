package transform

import (
	"context"
	"fmt"
	"log/slog"
	"sort"
	"time"

	"github.com/xraph/hookgate/condition"
	"github.com/xraph/hookgate/endpoint"
)

// Pipeline applies an endpoint's transformations to inbound payloads.
type Pipeline struct {
	store  Store
	logger *slog.Logger
}

// NewPipeline creates a Pipeline.
func NewPipeline(store Store, logger *slog.Logger) *Pipeline {
	if logger == nil {
		logger = slog.Default()
	}
	return &Pipeline{store: store, logger: logger}
}

// Apply runs every active transformation of ep whose conditions hold. The
// returned payload is shared by all destinations of the event. Only a
// failure to load transformations is returned.
func (p *Pipeline) Apply(ctx context.Context, ep *endpoint.Endpoint, payload map[string]any, headers map[string]string) (map[string]any, error) {
	list, err := p.store.ListTransformations(ctx, ep.ID)
	if err != nil {
		return nil, fmt.Errorf("transform: load transformations for %s: %w", ep.ID, err)
	}
	return ApplyAll(list, payload, headers, time.Now().UTC(), func(t *Transformation, err error) {
		p.logger.WarnContext(ctx, "transformation skipped",
			"transformation_id", t.ID, "kind", t.Kind, "endpoint_id", ep.ID, "error", err)
	}), nil
}

// ApplyAll is the storage-free core of Apply. onError is called for every
// skipped step and may be nil.
func ApplyAll(list []*Transformation, payload map[string]any, headers map[string]string, now time.Time, onError func(*Transformation, error)) map[string]any {
	ordered := make([]*Transformation, len(list))
	copy(ordered, list)
	sort.SliceStable(ordered, func(i, j int) bool { return ordered[i].Priority < ordered[j].Priority })

	current := payload
	for _, t := range ordered {
		if !t.Active {
			continue
		}
		cctx := condition.Context{Payload: current, Headers: headers, Timestamp: now}
		if !condition.MatchAll(t.Conditions, cctx) {
			continue
		}
		next, err := Run(t, Input{Payload: current, Headers: headers, Timestamp: now})
		if err != nil {
			if onError != nil {
				onError(t, err)
			}
			continue
		}
		current = next
	}
	return current
}
