package delivery_test

import (
	"context"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"

	"github.com/xraph/hookgate/delivery"
	"github.com/xraph/hookgate/endpoint"
	"github.com/xraph/hookgate/event"
	"github.com/xraph/hookgate/store/memory"
)

func waitForStatus(t *testing.T, store *memory.Store, evt *event.Event, want event.Status) {
	t.Helper()
	deadline := time.After(3 * time.Second)
	for {
		got, err := store.GetEvent(ctx(), evt.ID)
		if err != nil {
			t.Fatal(err)
		}
		if got.Status == want {
			return
		}
		select {
		case <-deadline:
			t.Fatalf("timeout waiting for %s, last status %s", want, got.Status)
		case <-time.After(20 * time.Millisecond):
		}
	}
}

func startEngine(store *memory.Store, esc delivery.Escalator) *delivery.Engine {
	w := newWorker(store, esc, delivery.WorkerConfig{Backoff: delivery.Backoff{10 * time.Millisecond}})
	e := delivery.NewEngine(store, w, delivery.EngineConfig{
		Concurrency:  2,
		PollInterval: 20 * time.Millisecond,
		BatchSize:    10,
	}, nil)
	e.Start(context.Background())
	return e
}

func TestEngineDeliversSuccessfully(t *testing.T) {
	var hits atomic.Int32
	srv := httptest.NewServer(http.HandlerFunc(func(http.ResponseWriter, *http.Request) {
		hits.Add(1)
	}))
	defer srv.Close()

	store := memory.New()
	ep := createEndpoint(t, store, endpoint.AuthNone)
	evt := createEvent(t, store, ep, srv.URL)

	e := startEngine(store, &stubEscalator{})
	waitForStatus(t, store, evt, event.StatusDelivered)
	if err := e.Stop(context.Background()); err != nil {
		t.Fatal(err)
	}

	if hits.Load() != 1 {
		t.Fatalf("expected exactly 1 delivery, got %d", hits.Load())
	}
}

func TestEngineRetriesAndSucceeds(t *testing.T) {
	var attempts atomic.Int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		if attempts.Add(1) < 3 {
			w.WriteHeader(http.StatusInternalServerError)
		}
	}))
	defer srv.Close()

	store := memory.New()
	ep := createEndpoint(t, store, endpoint.AuthNone)
	evt := createEvent(t, store, ep, srv.URL)

	e := startEngine(store, &stubEscalator{})
	waitForStatus(t, store, evt, event.StatusDelivered)
	_ = e.Stop(context.Background())

	got, _ := store.GetEvent(ctx(), evt.ID)
	if got.DeliveryAttempts != 3 {
		t.Fatalf("expected 3 rounds, got %d", got.DeliveryAttempts)
	}
}

func TestEngineEscalatesAfterMaxTries(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusInternalServerError)
	}))
	defer srv.Close()

	store := memory.New()
	ep := createEndpoint(t, store, endpoint.AuthNone)
	evt := createEvent(t, store, ep, srv.URL)
	esc := &stubEscalator{}

	e := startEngine(store, esc)
	waitForStatus(t, store, evt, event.StatusPermanentlyFailed)
	_ = e.Stop(context.Background())

	if esc.count() != 1 {
		t.Fatalf("expected one escalation, got %d", esc.count())
	}
	rows, _ := store.ListDeliveries(ctx(), evt.ID)
	if len(rows) != 3 {
		t.Fatalf("expected 3 ledger rows, got %d", len(rows))
	}
}
