package memory

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/xraph/hookgate"
	"github.com/xraph/hookgate/delivery"
	"github.com/xraph/hookgate/event"
	"github.com/xraph/hookgate/id"
	"github.com/xraph/hookgate/internal/entity"
	"github.com/xraph/hookgate/project"
	"github.com/xraph/hookgate/routing"
)

func ctx() context.Context { return context.Background() }

// ──────────────────────────────────────────────────
// Lifecycle
// ──────────────────────────────────────────────────

func TestLifecycle(t *testing.T) {
	s := New()

	if err := s.Migrate(ctx()); err != nil {
		t.Fatal(err)
	}
	if err := s.Ping(ctx()); err != nil {
		t.Fatal(err)
	}
	if err := s.Close(); err != nil {
		t.Fatal(err)
	}
	if err := s.Ping(ctx()); !errors.Is(err, hookgate.ErrStoreClosed) {
		t.Fatalf("expected ErrStoreClosed, got %v", err)
	}
}

// ──────────────────────────────────────────────────
// project.Store
// ──────────────────────────────────────────────────

func TestProjectByAPIKey(t *testing.T) {
	s := New()
	p := &project.Project{Entity: entity.New(), ID: id.NewProjectID(), Name: "acme", APIKey: "hk_abc", Active: true}
	if err := s.CreateProject(ctx(), p); err != nil {
		t.Fatal(err)
	}

	got, err := s.GetProjectByAPIKey(ctx(), "hk_abc")
	if err != nil {
		t.Fatal(err)
	}
	if got.ID != p.ID {
		t.Fatal("wrong project")
	}
	if _, err := s.GetProjectByAPIKey(ctx(), "hk_nope"); !errors.Is(err, hookgate.ErrProjectNotFound) {
		t.Fatalf("expected ErrProjectNotFound, got %v", err)
	}
}

// ──────────────────────────────────────────────────
// routing.Store
// ──────────────────────────────────────────────────

func TestRulesOrderedAndStatsPreserved(t *testing.T) {
	s := New()
	epID := id.NewEndpointID()

	r1 := &routing.Rule{Entity: entity.New(), ID: id.NewRuleID(), EndpointID: epID, Priority: 10, Action: routing.ActionRoute}
	r2 := &routing.Rule{Entity: entity.New(), ID: id.NewRuleID(), EndpointID: epID, Priority: 1, Action: routing.ActionDrop}
	_ = s.CreateRule(ctx(), r1)
	_ = s.CreateRule(ctx(), r2)

	rules, err := s.ListRules(ctx(), epID)
	if err != nil {
		t.Fatal(err)
	}
	if len(rules) != 2 || rules[0].ID != r2.ID {
		t.Fatal("expected ascending priority")
	}

	var wg sync.WaitGroup
	for i := 0; i < 20; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_ = s.RecordMatch(ctx(), r1.ID, time.Now())
		}()
	}
	wg.Wait()

	r1.Name = "renamed"
	if err := s.UpdateRule(ctx(), r1); err != nil {
		t.Fatal(err)
	}
	got, _ := s.GetRule(ctx(), r1.ID)
	if got.MatchCount != 20 {
		t.Fatalf("expected 20 matches, got %d", got.MatchCount)
	}
	if got.Name != "renamed" || got.LastMatchedAt == nil {
		t.Fatalf("unexpected rule state: %+v", got)
	}
}

// ──────────────────────────────────────────────────
// event.Store
// ──────────────────────────────────────────────────

func newEvent(status event.Status, next time.Time) *event.Event {
	return &event.Event{
		Entity:        entity.New(),
		ID:            id.NewEventID(),
		Status:        status,
		NextAttemptAt: next,
	}
}

func TestBeginAttemptIsExclusive(t *testing.T) {
	s := New()
	evt := newEvent(event.StatusPending, time.Now())
	_ = s.CreateEvent(ctx(), evt)

	now := time.Now().UTC()
	var claimed, rejected atomic.Int32
	var wg sync.WaitGroup
	for i := 0; i < 10; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, err := s.BeginAttempt(ctx(), evt.ID, now, now.Add(-time.Minute))
			switch {
			case err == nil:
				claimed.Add(1)
			case errors.Is(err, event.ErrNotClaimable):
				rejected.Add(1)
			}
		}()
	}
	wg.Wait()

	if claimed.Load() != 1 || rejected.Load() != 9 {
		t.Fatalf("expected one claim, got %d claims and %d rejections", claimed.Load(), rejected.Load())
	}

	got, _ := s.GetEvent(ctx(), evt.ID)
	if got.DeliveryAttempts != 1 || got.Status != event.StatusProcessing || got.LastAttemptAt == nil {
		t.Fatalf("unexpected claimed state: %+v", got)
	}
}

func TestBeginAttemptReclaimsStaleLease(t *testing.T) {
	s := New()
	evt := newEvent(event.StatusPending, time.Now())
	_ = s.CreateEvent(ctx(), evt)

	t0 := time.Now().UTC()
	if _, err := s.BeginAttempt(ctx(), evt.ID, t0, t0.Add(-time.Minute)); err != nil {
		t.Fatal(err)
	}
	later := t0.Add(10 * time.Minute)
	got, err := s.BeginAttempt(ctx(), evt.ID, later, later.Add(-4*time.Minute))
	if err != nil {
		t.Fatalf("expected stale lease to be reclaimable, got %v", err)
	}
	if got.DeliveryAttempts != 2 {
		t.Fatalf("expected 2 attempts, got %d", got.DeliveryAttempts)
	}
}

func TestBeginAttemptHonoursBackoff(t *testing.T) {
	s := New()
	now := time.Now().UTC()
	evt := newEvent(event.StatusFailed, now.Add(30*time.Second))
	_ = s.CreateEvent(ctx(), evt)

	if _, err := s.BeginAttempt(ctx(), evt.ID, now, now.Add(-time.Minute)); !errors.Is(err, event.ErrNotClaimable) {
		t.Fatalf("expected ErrNotClaimable before next attempt, got %v", err)
	}
	later := now.Add(31 * time.Second)
	got, err := s.BeginAttempt(ctx(), evt.ID, later, later.Add(-time.Minute))
	if err != nil {
		t.Fatalf("expected claim after backoff, got %v", err)
	}
	if got.DeliveryAttempts != 1 {
		t.Fatalf("expected 1 attempt, got %d", got.DeliveryAttempts)
	}
}

func TestBeginAttemptTerminal(t *testing.T) {
	s := New()
	evt := newEvent(event.StatusDelivered, time.Now())
	_ = s.CreateEvent(ctx(), evt)

	now := time.Now()
	if _, err := s.BeginAttempt(ctx(), evt.ID, now, now); !errors.Is(err, event.ErrNotClaimable) {
		t.Fatalf("expected ErrNotClaimable, got %v", err)
	}
	if _, err := s.BeginAttempt(ctx(), id.NewEventID(), now, now); !errors.Is(err, hookgate.ErrEventNotFound) {
		t.Fatalf("expected ErrEventNotFound, got %v", err)
	}
}

func TestDueEvents(t *testing.T) {
	s := New()
	now := time.Now().UTC()

	due := newEvent(event.StatusPending, now.Add(-time.Second))
	retry := newEvent(event.StatusFailed, now.Add(-time.Minute))
	later := newEvent(event.StatusFailed, now.Add(time.Hour))
	done := newEvent(event.StatusDelivered, now.Add(-time.Hour))
	for _, e := range []*event.Event{due, retry, later, done} {
		_ = s.CreateEvent(ctx(), e)
	}

	got, err := s.DueEvents(ctx(), now, now.Add(-time.Minute), 10)
	if err != nil {
		t.Fatal(err)
	}
	if len(got) != 2 || got[0].ID != retry.ID || got[1].ID != due.ID {
		t.Fatalf("expected retry then due, got %d events", len(got))
	}

	limited, _ := s.DueEvents(ctx(), now, now.Add(-time.Minute), 1)
	if len(limited) != 1 {
		t.Fatalf("expected limit to apply, got %d", len(limited))
	}
}

func TestReturnedEventsAreCopies(t *testing.T) {
	s := New()
	evt := newEvent(event.StatusPending, time.Now())
	_ = s.CreateEvent(ctx(), evt)

	got, _ := s.GetEvent(ctx(), evt.ID)
	got.Status = event.StatusDelivered

	again, _ := s.GetEvent(ctx(), evt.ID)
	if again.Status != event.StatusPending {
		t.Fatal("mutating a returned event changed the store")
	}
}

// ──────────────────────────────────────────────────
// delivery.Store
// ──────────────────────────────────────────────────

func TestDeliveryLedger(t *testing.T) {
	s := New()
	evtID := id.NewEventID()

	for i, dest := range []string{"https://a", "https://b", "https://a"} {
		err := s.RecordDelivery(ctx(), &delivery.EventDelivery{
			ID: id.NewDeliveryID(), EventID: evtID, Destination: dest, AttemptNumber: i + 1,
		})
		if err != nil {
			t.Fatal(err)
		}
	}

	n, err := s.CountDeliveries(ctx(), evtID, "https://a")
	if err != nil {
		t.Fatal(err)
	}
	if n != 2 {
		t.Fatalf("expected 2 rows for a, got %d", n)
	}

	rows, _ := s.ListDeliveries(ctx(), evtID)
	if len(rows) != 3 || rows[1].Destination != "https://b" {
		t.Fatal("expected rows in append order")
	}
}
