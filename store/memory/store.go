// Package memory provides an in-memory Store implementation for unit testing
// and single-process deployments. Values are copied on the way in and out so
// callers never share state with the store.
package memory

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/xraph/hookgate"
	"github.com/xraph/hookgate/delivery"
	"github.com/xraph/hookgate/dlq"
	"github.com/xraph/hookgate/endpoint"
	"github.com/xraph/hookgate/event"
	"github.com/xraph/hookgate/id"
	"github.com/xraph/hookgate/project"
	"github.com/xraph/hookgate/routing"
	hgstore "github.com/xraph/hookgate/store"
	"github.com/xraph/hookgate/transform"
)

// compile-time interface check.
var _ hgstore.Store = (*Store)(nil)

// Store is an in-memory implementation of store.Store.
type Store struct {
	mu sync.RWMutex

	projects        map[id.ID]*project.Project
	endpoints       map[id.ID]*endpoint.Endpoint
	rules           map[id.ID]*routing.Rule
	transformations map[id.ID]*transform.Transformation
	events          map[id.ID]*event.Event
	deliveries      map[id.ID][]*delivery.EventDelivery // keyed by event ID, append-only
	dlqEntries      map[id.ID]*dlq.Entry

	closed bool
}

// New creates a new in-memory store.
func New() *Store {
	return &Store{
		projects:        make(map[id.ID]*project.Project),
		endpoints:       make(map[id.ID]*endpoint.Endpoint),
		rules:           make(map[id.ID]*routing.Rule),
		transformations: make(map[id.ID]*transform.Transformation),
		events:          make(map[id.ID]*event.Event),
		deliveries:      make(map[id.ID][]*delivery.EventDelivery),
		dlqEntries:      make(map[id.ID]*dlq.Entry),
	}
}

// ──────────────────────────────────────────────────
// Lifecycle
// ──────────────────────────────────────────────────

// Migrate is a no-op for the in-memory store.
func (s *Store) Migrate(_ context.Context) error { return nil }

// Ping reports whether the store is still open.
func (s *Store) Ping(_ context.Context) error {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if s.closed {
		return hookgate.ErrStoreClosed
	}
	return nil
}

// Close marks the store as closed.
func (s *Store) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.closed = true
	return nil
}

// ──────────────────────────────────────────────────
// project.Store
// ──────────────────────────────────────────────────

func (s *Store) CreateProject(_ context.Context, p *project.Project) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	cp := *p
	s.projects[p.ID] = &cp
	return nil
}

func (s *Store) GetProject(_ context.Context, projectID id.ID) (*project.Project, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	p, ok := s.projects[projectID]
	if !ok {
		return nil, hookgate.ErrProjectNotFound
	}
	cp := *p
	return &cp, nil
}

func (s *Store) GetProjectByAPIKey(_ context.Context, apiKey string) (*project.Project, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	for _, p := range s.projects {
		if p.APIKey == apiKey {
			cp := *p
			return &cp, nil
		}
	}
	return nil, hookgate.ErrProjectNotFound
}

func (s *Store) UpdateProject(_ context.Context, p *project.Project) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.projects[p.ID]; !ok {
		return hookgate.ErrProjectNotFound
	}
	cp := *p
	s.projects[p.ID] = &cp
	return nil
}

func (s *Store) ListProjects(_ context.Context, opts project.ListOpts) ([]*project.Project, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	result := make([]*project.Project, 0, len(s.projects))
	for _, p := range s.projects {
		cp := *p
		result = append(result, &cp)
	}
	sort.Slice(result, func(i, j int) bool { return result[i].CreatedAt.Before(result[j].CreatedAt) })
	return applyPagination(result, opts.Offset, opts.Limit), nil
}

// ──────────────────────────────────────────────────
// endpoint.Store
// ──────────────────────────────────────────────────

func (s *Store) CreateEndpoint(_ context.Context, ep *endpoint.Endpoint) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	cp := *ep
	s.endpoints[ep.ID] = &cp
	return nil
}

func (s *Store) GetEndpoint(_ context.Context, epID id.ID) (*endpoint.Endpoint, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	ep, ok := s.endpoints[epID]
	if !ok {
		return nil, hookgate.ErrEndpointNotFound
	}
	cp := *ep
	return &cp, nil
}

func (s *Store) UpdateEndpoint(_ context.Context, ep *endpoint.Endpoint) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.endpoints[ep.ID]; !ok {
		return hookgate.ErrEndpointNotFound
	}
	cp := *ep
	s.endpoints[ep.ID] = &cp
	return nil
}

func (s *Store) DeleteEndpoint(_ context.Context, epID id.ID) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.endpoints[epID]; !ok {
		return hookgate.ErrEndpointNotFound
	}
	delete(s.endpoints, epID)
	return nil
}

func (s *Store) ListEndpoints(_ context.Context, projectID id.ID, opts endpoint.ListOpts) ([]*endpoint.Endpoint, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var result []*endpoint.Endpoint
	for _, ep := range s.endpoints {
		if ep.ProjectID != projectID {
			continue
		}
		if opts.Active != nil && ep.Active != *opts.Active {
			continue
		}
		cp := *ep
		result = append(result, &cp)
	}
	sort.Slice(result, func(i, j int) bool { return result[i].CreatedAt.Before(result[j].CreatedAt) })
	return applyPagination(result, opts.Offset, opts.Limit), nil
}

// ──────────────────────────────────────────────────
// routing.Store
// ──────────────────────────────────────────────────

func (s *Store) CreateRule(_ context.Context, r *routing.Rule) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	cp := *r
	s.rules[r.ID] = &cp
	return nil
}

func (s *Store) GetRule(_ context.Context, ruleID id.ID) (*routing.Rule, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	r, ok := s.rules[ruleID]
	if !ok {
		return nil, hookgate.ErrRuleNotFound
	}
	cp := *r
	return &cp, nil
}

// UpdateRule replaces a rule's definition. Match statistics are owned by
// RecordMatch and are not overwritten.
func (s *Store) UpdateRule(_ context.Context, r *routing.Rule) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	existing, ok := s.rules[r.ID]
	if !ok {
		return hookgate.ErrRuleNotFound
	}
	cp := *r
	cp.MatchCount = existing.MatchCount
	cp.LastMatchedAt = existing.LastMatchedAt
	s.rules[r.ID] = &cp
	return nil
}

func (s *Store) DeleteRule(_ context.Context, ruleID id.ID) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.rules[ruleID]; !ok {
		return hookgate.ErrRuleNotFound
	}
	delete(s.rules, ruleID)
	return nil
}

func (s *Store) ListRules(_ context.Context, endpointID id.ID) ([]*routing.Rule, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var result []*routing.Rule
	for _, r := range s.rules {
		if r.EndpointID == endpointID {
			cp := *r
			result = append(result, &cp)
		}
	}
	sort.SliceStable(result, func(i, j int) bool {
		if result[i].Priority != result[j].Priority {
			return result[i].Priority < result[j].Priority
		}
		return result[i].CreatedAt.Before(result[j].CreatedAt)
	})
	return result, nil
}

func (s *Store) RecordMatch(_ context.Context, ruleID id.ID, at time.Time) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	r, ok := s.rules[ruleID]
	if !ok {
		return hookgate.ErrRuleNotFound
	}
	r.MatchCount++
	t := at
	r.LastMatchedAt = &t
	return nil
}

// ──────────────────────────────────────────────────
// transform.Store
// ──────────────────────────────────────────────────

func (s *Store) CreateTransformation(_ context.Context, t *transform.Transformation) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	cp := *t
	s.transformations[t.ID] = &cp
	return nil
}

func (s *Store) GetTransformation(_ context.Context, transformID id.ID) (*transform.Transformation, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	t, ok := s.transformations[transformID]
	if !ok {
		return nil, hookgate.ErrTransformationNotFound
	}
	cp := *t
	return &cp, nil
}

func (s *Store) UpdateTransformation(_ context.Context, t *transform.Transformation) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.transformations[t.ID]; !ok {
		return hookgate.ErrTransformationNotFound
	}
	cp := *t
	s.transformations[t.ID] = &cp
	return nil
}

func (s *Store) DeleteTransformation(_ context.Context, transformID id.ID) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.transformations[transformID]; !ok {
		return hookgate.ErrTransformationNotFound
	}
	delete(s.transformations, transformID)
	return nil
}

func (s *Store) ListTransformations(_ context.Context, endpointID id.ID) ([]*transform.Transformation, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var result []*transform.Transformation
	for _, t := range s.transformations {
		if t.EndpointID == endpointID {
			cp := *t
			result = append(result, &cp)
		}
	}
	sort.SliceStable(result, func(i, j int) bool {
		if result[i].Priority != result[j].Priority {
			return result[i].Priority < result[j].Priority
		}
		return result[i].CreatedAt.Before(result[j].CreatedAt)
	})
	return result, nil
}

// ──────────────────────────────────────────────────
// event.Store
// ──────────────────────────────────────────────────

func (s *Store) CreateEvent(_ context.Context, evt *event.Event) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	cp := *evt
	s.events[evt.ID] = &cp
	return nil
}

func (s *Store) GetEvent(_ context.Context, evtID id.ID) (*event.Event, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	evt, ok := s.events[evtID]
	if !ok {
		return nil, hookgate.ErrEventNotFound
	}
	cp := *evt
	return &cp, nil
}

func (s *Store) ListEvents(_ context.Context, opts event.ListOpts) ([]*event.Event, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var result []*event.Event
	for _, evt := range s.events {
		if opts.Matches(evt) {
			cp := *evt
			result = append(result, &cp)
		}
	}
	sort.Slice(result, func(i, j int) bool { return result[i].CreatedAt.After(result[j].CreatedAt) })
	return applyPagination(result, opts.Offset, opts.Limit), nil
}

func (s *Store) UpdateEvent(_ context.Context, evt *event.Event) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.events[evt.ID]; !ok {
		return hookgate.ErrEventNotFound
	}
	cp := *evt
	s.events[evt.ID] = &cp
	return nil
}

func (s *Store) DueEvents(_ context.Context, now, staleBefore time.Time, limit int) ([]*event.Event, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var result []*event.Event
	for _, evt := range s.events {
		if event.Due(evt, now, staleBefore) {
			cp := *evt
			result = append(result, &cp)
		}
	}
	sort.Slice(result, func(i, j int) bool { return result[i].NextAttemptAt.Before(result[j].NextAttemptAt) })
	if limit > 0 && limit < len(result) {
		result = result[:limit]
	}
	return result, nil
}

// BeginAttempt claims an event under the write lock, which makes the
// read-modify-write atomic with respect to every other caller.
func (s *Store) BeginAttempt(_ context.Context, evtID id.ID, now, staleBefore time.Time) (*event.Event, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	evt, ok := s.events[evtID]
	if !ok {
		return nil, hookgate.ErrEventNotFound
	}
	if !event.Claimable(evt, now, staleBefore) {
		return nil, event.ErrNotClaimable
	}

	evt.DeliveryAttempts++
	t := now
	evt.LastAttemptAt = &t
	evt.Status = event.StatusProcessing
	evt.UpdatedAt = now

	cp := *evt
	return &cp, nil
}

func (s *Store) CountEvents(_ context.Context, status event.Status) (int64, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	var n int64
	for _, evt := range s.events {
		if evt.Status == status {
			n++
		}
	}
	return n, nil
}

// ──────────────────────────────────────────────────
// delivery.Store
// ──────────────────────────────────────────────────

func (s *Store) RecordDelivery(_ context.Context, d *delivery.EventDelivery) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	cp := *d
	s.deliveries[d.EventID] = append(s.deliveries[d.EventID], &cp)
	return nil
}

func (s *Store) ListDeliveries(_ context.Context, evtID id.ID) ([]*delivery.EventDelivery, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	rows := s.deliveries[evtID]
	result := make([]*delivery.EventDelivery, 0, len(rows))
	for _, d := range rows {
		cp := *d
		result = append(result, &cp)
	}
	return result, nil
}

func (s *Store) CountDeliveries(_ context.Context, evtID id.ID, destination string) (int, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	n := 0
	for _, d := range s.deliveries[evtID] {
		if d.Destination == destination {
			n++
		}
	}
	return n, nil
}

// ──────────────────────────────────────────────────
// dlq.Store
// ──────────────────────────────────────────────────

func (s *Store) Push(_ context.Context, entry *dlq.Entry) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	cp := *entry
	s.dlqEntries[entry.ID] = &cp
	return nil
}

func (s *Store) ListDLQ(_ context.Context, opts dlq.ListOpts) ([]*dlq.Entry, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var result []*dlq.Entry
	for _, e := range s.dlqEntries {
		if opts.Matches(e) {
			cp := *e
			result = append(result, &cp)
		}
	}
	sort.Slice(result, func(i, j int) bool { return result[i].FailedAt.After(result[j].FailedAt) })
	return applyPagination(result, opts.Offset, opts.Limit), nil
}

func (s *Store) GetDLQ(_ context.Context, dlqID id.ID) (*dlq.Entry, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	e, ok := s.dlqEntries[dlqID]
	if !ok {
		return nil, hookgate.ErrDLQNotFound
	}
	cp := *e
	return &cp, nil
}

func (s *Store) MarkReplayed(_ context.Context, dlqID id.ID, at time.Time) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	e, ok := s.dlqEntries[dlqID]
	if !ok {
		return hookgate.ErrDLQNotFound
	}
	t := at
	e.ReplayedAt = &t
	e.UpdatedAt = at
	return nil
}

func (s *Store) Purge(_ context.Context, before time.Time) (int64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	var n int64
	for k, e := range s.dlqEntries {
		if e.FailedAt.Before(before) {
			delete(s.dlqEntries, k)
			n++
		}
	}
	return n, nil
}

func (s *Store) CountDLQ(_ context.Context) (int64, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return int64(len(s.dlqEntries)), nil
}

// ──────────────────────────────────────────────────
// Helpers
// ──────────────────────────────────────────────────

func applyPagination[T any](items []*T, offset, limit int) []*T {
	if offset > 0 && offset < len(items) {
		items = items[offset:]
	} else if offset >= len(items) && offset > 0 {
		return nil
	}

	if limit > 0 && limit < len(items) {
		items = items[:limit]
	}

	return items
}
