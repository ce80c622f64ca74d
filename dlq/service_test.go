package dlq_test

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/xraph/hookgate"
	"github.com/xraph/hookgate/delivery"
	"github.com/xraph/hookgate/dlq"
	"github.com/xraph/hookgate/event"
	"github.com/xraph/hookgate/id"
	"github.com/xraph/hookgate/internal/entity"
	"github.com/xraph/hookgate/notify"
	"github.com/xraph/hookgate/store/memory"
)

func ctx() context.Context { return context.Background() }

type captureNotifier struct {
	msgs []notify.Message
	err  error
}

func (c *captureNotifier) Notify(_ context.Context, m notify.Message) error {
	c.msgs = append(c.msgs, m)
	return c.err
}

func failedEvent(t *testing.T, store *memory.Store) *event.Event {
	t.Helper()
	now := time.Now().UTC()
	evt := &event.Event{
		Entity:           entity.New(),
		ID:               id.NewEventID(),
		ProjectID:        id.NewProjectID(),
		EndpointID:       id.NewEndpointID(),
		Type:             "invoice.created",
		Payload:          map[string]any{"amount": 100.0},
		Destinations:     []string{"https://a.example.com"},
		Status:           event.StatusPermanentlyFailed,
		DeliveryAttempts: 5,
		FailedAt:         &now,
	}
	if err := store.CreateEvent(ctx(), evt); err != nil {
		t.Fatal(err)
	}
	for i := 1; i <= 2; i++ {
		err := store.RecordDelivery(ctx(), &delivery.EventDelivery{
			ID:            id.NewDeliveryID(),
			EventID:       evt.ID,
			Destination:   "https://a.example.com",
			AttemptNumber: i,
			Status:        delivery.AttemptFailed,
			ResponseCode:  500,
			AttemptedAt:   now,
		})
		if err != nil {
			t.Fatal(err)
		}
	}
	return evt
}

func TestEscalate(t *testing.T) {
	store := memory.New()
	n := &captureNotifier{}
	svc := dlq.NewService(store, store, n, nil)
	evt := failedEvent(t, store)

	svc.Escalate(ctx(), evt, errors.New("max retries exhausted"), 5)

	entries, err := svc.List(ctx(), dlq.ListOpts{Limit: 10})
	if err != nil {
		t.Fatal(err)
	}
	if len(entries) != 1 {
		t.Fatalf("expected 1 entry, got %d", len(entries))
	}
	e := entries[0]
	if e.EventID != evt.ID || e.Attempts != 5 || e.Reason != "max retries exhausted" {
		t.Fatalf("unexpected entry: %+v", e)
	}
	if len(e.Deliveries) != 2 {
		t.Fatalf("expected full ledger, got %d rows", len(e.Deliveries))
	}
	if e.Payload["amount"] != 100.0 {
		t.Fatalf("payload not kept: %v", e.Payload)
	}

	if len(n.msgs) != 1 || n.msgs[0].Kind != notify.KindEscalated || n.msgs[0].EventID != evt.ID {
		t.Fatalf("expected one escalation notification, got %+v", n.msgs)
	}
}

func TestEscalateSwallowsNotifierFailure(t *testing.T) {
	store := memory.New()
	svc := dlq.NewService(store, store, &captureNotifier{err: errors.New("smtp down")}, nil)
	evt := failedEvent(t, store)

	svc.Escalate(ctx(), evt, errors.New("boom"), 5)

	count, err := svc.Count(ctx())
	if err != nil {
		t.Fatal(err)
	}
	if count != 1 {
		t.Fatalf("entry must be stored even when notification fails, got %d", count)
	}

	got, err := store.GetEvent(ctx(), evt.ID)
	if err != nil {
		t.Fatal(err)
	}
	if got.Status != event.StatusPermanentlyFailed {
		t.Fatalf("escalation changed event status to %s", got.Status)
	}
}

type panicNotifier struct{}

func (panicNotifier) Notify(context.Context, notify.Message) error { panic("notifier bug") }

func TestEscalateRecoversNotifierPanic(t *testing.T) {
	store := memory.New()
	svc := dlq.NewService(store, store, panicNotifier{}, nil)
	evt := failedEvent(t, store)

	svc.Escalate(ctx(), evt, errors.New("boom"), 5)

	count, err := svc.Count(ctx())
	if err != nil {
		t.Fatal(err)
	}
	if count != 1 {
		t.Fatalf("entry must be stored before the notifier runs, got %d", count)
	}
}

func TestGetAndMarkReplayed(t *testing.T) {
	store := memory.New()
	svc := dlq.NewService(store, store, nil, nil)
	svc.Escalate(ctx(), failedEvent(t, store), errors.New("x"), 1)

	entries, _ := svc.List(ctx(), dlq.ListOpts{})
	entryID := entries[0].ID

	if err := svc.MarkReplayed(ctx(), entryID); err != nil {
		t.Fatal(err)
	}
	got, err := svc.Get(ctx(), entryID)
	if err != nil {
		t.Fatal(err)
	}
	if got.ReplayedAt == nil {
		t.Fatal("expected ReplayedAt to be set")
	}

	pending, _ := svc.List(ctx(), dlq.ListOpts{Pending: true})
	if len(pending) != 0 {
		t.Fatalf("replayed entry listed as pending")
	}

	_, err = svc.Get(ctx(), id.NewDLQID())
	if !errors.Is(err, hookgate.ErrDLQNotFound) {
		t.Fatalf("expected ErrDLQNotFound, got %v", err)
	}
}

func TestPurge(t *testing.T) {
	store := memory.New()
	svc := dlq.NewService(store, store, nil, nil)
	svc.Escalate(ctx(), failedEvent(t, store), errors.New("x"), 1)
	svc.Escalate(ctx(), failedEvent(t, store), errors.New("y"), 1)

	n, err := svc.Purge(ctx(), time.Now().UTC().Add(time.Minute))
	if err != nil {
		t.Fatal(err)
	}
	if n != 2 {
		t.Fatalf("expected 2 purged, got %d", n)
	}
	if c, _ := svc.Count(ctx()); c != 0 {
		t.Fatalf("expected empty dlq, got %d", c)
	}
}
