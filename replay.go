package hookgate

import (
	"context"
	"errors"
	"fmt"
	"maps"
	"slices"
	"time"

	"github.com/xraph/hookgate/event"
	"github.com/xraph/hookgate/id"
	"github.com/xraph/hookgate/internal/entity"
	"github.com/xraph/hookgate/project"
)

// DefaultReplayLimit caps a ReplayBulk call that sets no Limit.
const DefaultReplayLimit = 1000

// ReplayFilter selects the events of a bulk replay. EventIDs, when set, are
// further narrowed by the other fields. At least one criterion is required.
type ReplayFilter struct {
	EventIDs   []id.ID       `json:"event_ids,omitempty"`
	ProjectID  id.ID         `json:"project_id,omitempty"`
	EndpointID id.ID         `json:"endpoint_id,omitempty"`
	Status     *event.Status `json:"status,omitempty"`
	From       *time.Time    `json:"from,omitempty"`
	To         *time.Time    `json:"to,omitempty"`
	Limit      int           `json:"limit,omitempty"`
}

func (f ReplayFilter) empty() bool {
	return len(f.EventIDs) == 0 && f.ProjectID.IsNil() && f.EndpointID.IsNil() &&
		f.Status == nil && f.From == nil && f.To == nil
}

func (f ReplayFilter) listOpts() event.ListOpts {
	limit := f.Limit
	if limit <= 0 {
		limit = DefaultReplayLimit
	}
	return event.ListOpts{
		Limit:      limit,
		ProjectID:  f.ProjectID,
		EndpointID: f.EndpointID,
		Status:     f.Status,
		From:       f.From,
		To:         f.To,
	}
}

// Replay re-queues a copy of an event. The copy is a new pending event with
// a fresh ledger and ReplayOf pointing at the source, which is left
// untouched. Payloads are copied in their stored form, so encrypted events
// stay encrypted.
func (g *Gateway) Replay(ctx context.Context, evtID id.ID) (*event.Event, error) {
	src, err := g.store.GetEvent(ctx, evtID)
	if err != nil {
		return nil, err
	}
	if project.EncryptionMode(src.Encryption) == project.EncryptionDocument && src.Sealed == "" {
		return nil, fmt.Errorf("%w: %s has no sealed payload", ErrEventNotReplayable, src.ID)
	}

	evt := &event.Event{
		Entity:       entity.New(),
		ID:           id.NewEventID(),
		ProjectID:    src.ProjectID,
		EndpointID:   src.EndpointID,
		Type:         src.Type,
		Payload:      maps.Clone(src.Payload),
		Sealed:       src.Sealed,
		Encryption:   src.Encryption,
		Headers:      maps.Clone(src.Headers),
		SourceIP:     src.SourceIP,
		Destinations: slices.Clone(src.Destinations),
		Status:       event.StatusPending,
		MaxTries:     src.MaxTries,
		ReplayOf:     src.ID,
	}
	if evt.Payload == nil && evt.Sealed == "" {
		evt.Payload = map[string]any{}
	}
	evt.NextAttemptAt = evt.CreatedAt

	if err := g.store.CreateEvent(ctx, evt); err != nil {
		return nil, fmt.Errorf("hookgate: persist replay: %w", err)
	}

	g.logger.InfoContext(ctx, "event replayed", "event_id", evt.ID, "replay_of", src.ID, "endpoint_id", src.EndpointID)
	return evt, nil
}

// ReplayBulk replays every event matching f. Events that fail to replay do
// not stop the batch; their errors are joined into the returned error.
func (g *Gateway) ReplayBulk(ctx context.Context, f ReplayFilter) ([]*event.Event, error) {
	if f.empty() {
		return nil, &ValidationError{Field: "filter", Message: "at least one criterion is required"}
	}
	opts := f.listOpts()

	var sources []*event.Event
	if len(f.EventIDs) > 0 {
		for _, evtID := range f.EventIDs {
			src, err := g.store.GetEvent(ctx, evtID)
			if err != nil {
				return nil, err
			}
			if opts.Matches(src) {
				sources = append(sources, src)
			}
		}
	} else {
		list, err := g.store.ListEvents(ctx, opts)
		if err != nil {
			return nil, fmt.Errorf("hookgate: list events for replay: %w", err)
		}
		sources = list
	}
	if len(sources) > opts.Limit {
		sources = sources[:opts.Limit]
	}

	replayed := make([]*event.Event, 0, len(sources))
	var errs []error
	for _, src := range sources {
		evt, err := g.Replay(ctx, src.ID)
		if err != nil {
			errs = append(errs, fmt.Errorf("replay %s: %w", src.ID, err))
			continue
		}
		replayed = append(replayed, evt)
	}

	g.logger.InfoContext(ctx, "bulk replay finished", "matched", len(sources), "replayed", len(replayed))
	return replayed, errors.Join(errs...)
}

// ReplayDLQ replays the event of a dead-letter entry and marks the entry
// replayed. An entry may be replayed again; only the first replay is
// recorded on it.
func (g *Gateway) ReplayDLQ(ctx context.Context, dlqID id.ID) (*event.Event, error) {
	entry, err := g.dlqSvc.Get(ctx, dlqID)
	if err != nil {
		return nil, err
	}
	evt, err := g.Replay(ctx, entry.EventID)
	if err != nil {
		return nil, err
	}
	if entry.ReplayedAt == nil {
		if err := g.dlqSvc.MarkReplayed(ctx, dlqID); err != nil {
			return evt, fmt.Errorf("hookgate: mark dlq entry replayed: %w", err)
		}
	}
	return evt, nil
}
