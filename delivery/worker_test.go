package delivery_test

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/xraph/hookgate/delivery"
	"github.com/xraph/hookgate/endpoint"
	"github.com/xraph/hookgate/event"
	"github.com/xraph/hookgate/id"
	"github.com/xraph/hookgate/internal/entity"
	"github.com/xraph/hookgate/notify"
	"github.com/xraph/hookgate/project"
	"github.com/xraph/hookgate/secure"
	"github.com/xraph/hookgate/signature"
	"github.com/xraph/hookgate/store/memory"
)

func ctx() context.Context { return context.Background() }

// stubEscalator records escalations.
type stubEscalator struct {
	mu      sync.Mutex
	reasons []error
}

func (s *stubEscalator) Escalate(_ context.Context, _ *event.Event, reason error, _ int) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.reasons = append(s.reasons, reason)
}

func (s *stubEscalator) count() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.reasons)
}

type countingNotifier struct{ n atomic.Int32 }

func (c *countingNotifier) Notify(context.Context, notify.Message) error {
	c.n.Add(1)
	return errors.New("notifier down")
}

func createEndpoint(t *testing.T, store *memory.Store, method endpoint.AuthMethod) *endpoint.Endpoint {
	t.Helper()
	ep := &endpoint.Endpoint{
		Entity:     entity.New(),
		ID:         id.NewEndpointID(),
		ProjectID:  id.NewProjectID(),
		Name:       "orders",
		AuthMethod: method,
		AuthSecret: "whsec_test_secret_1234567890abcdef",
		Active:     true,
		Headers:    map[string]string{"X-Team": "billing"},
	}
	if err := store.CreateEndpoint(ctx(), ep); err != nil {
		t.Fatal(err)
	}
	return ep
}

func createEvent(t *testing.T, store *memory.Store, ep *endpoint.Endpoint, dests ...string) *event.Event {
	t.Helper()
	evt := &event.Event{
		Entity:        entity.New(),
		ID:            id.NewEventID(),
		ProjectID:     ep.ProjectID,
		EndpointID:    ep.ID,
		Type:          "order.created",
		Payload:       map[string]any{"order_id": "o-1", "amount": 10.0},
		Encryption:    string(project.EncryptionNone),
		Destinations:  dests,
		Status:        event.StatusPending,
		MaxTries:      3,
		NextAttemptAt: time.Now().UTC(),
	}
	if err := store.CreateEvent(ctx(), evt); err != nil {
		t.Fatal(err)
	}
	return evt
}

// testClock is a manually advanced time source.
type testClock struct {
	mu  sync.Mutex
	now time.Time
}

func newTestClock() *testClock { return &testClock{now: time.Now().UTC()} }

func (c *testClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.now
}

func (c *testClock) Set(t time.Time) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.now = t
}

// runRounds processes evtID n times, moving clk to each scheduled retry.
func runRounds(t *testing.T, store *memory.Store, w *delivery.Worker, clk *testClock, evtID id.ID, n int) {
	t.Helper()
	for i := 0; i < n; i++ {
		if err := w.Process(ctx(), evtID); err != nil {
			t.Fatalf("round %d: %v", i+1, err)
		}
		got, err := store.GetEvent(ctx(), evtID)
		if err != nil {
			t.Fatal(err)
		}
		if got.NextAttemptAt.After(clk.Now()) {
			clk.Set(got.NextAttemptAt)
		}
	}
}

func newWorker(store *memory.Store, esc delivery.Escalator, cfg delivery.WorkerConfig) *delivery.Worker {
	if cfg.Backoff == nil {
		cfg.Backoff = delivery.Backoff{time.Millisecond}
	}
	if cfg.RequestTimeout == 0 {
		cfg.RequestTimeout = 2 * time.Second
	}
	return delivery.NewWorker(store, esc, cfg, nil)
}

func TestWorkerDelivers(t *testing.T) {
	var (
		gotHeaders http.Header
		gotBody    []byte
	)
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotHeaders = r.Header
		gotBody, _ = io.ReadAll(r.Body)
		w.Header().Set("X-Receiver", "ok")
		_, _ = w.Write([]byte(`{"received":true}`))
	}))
	defer srv.Close()

	store := memory.New()
	ep := createEndpoint(t, store, endpoint.AuthHMAC)
	evt := createEvent(t, store, ep, srv.URL)

	w := newWorker(store, &stubEscalator{}, delivery.WorkerConfig{})
	if err := w.Process(ctx(), evt.ID); err != nil {
		t.Fatal(err)
	}

	got, _ := store.GetEvent(ctx(), evt.ID)
	if got.Status != event.StatusDelivered || got.DeliveredAt == nil {
		t.Fatalf("expected delivered, got %s", got.Status)
	}

	if gotHeaders.Get("User-Agent") != delivery.UserAgent {
		t.Fatalf("user agent = %q", gotHeaders.Get("User-Agent"))
	}
	if gotHeaders.Get("X-Hookgate-Event-Id") != evt.ID.String() {
		t.Fatal("missing event id header")
	}
	if gotHeaders.Get("X-Hookgate-Event-Type") != "order.created" {
		t.Fatal("missing event type header")
	}
	if gotHeaders.Get("X-Hookgate-Delivery-Attempt") != "1" {
		t.Fatalf("attempt header = %q", gotHeaders.Get("X-Hookgate-Delivery-Attempt"))
	}
	if gotHeaders.Get("X-Hookgate-Created-At") == "" || gotHeaders.Get("X-Team") != "billing" {
		t.Fatal("missing created-at or custom header")
	}
	if !signature.Verify(gotBody, gotHeaders.Get(signature.Header), ep.AuthSecret) {
		t.Fatal("signature does not verify over the delivered body")
	}

	var body map[string]any
	if err := json.Unmarshal(gotBody, &body); err != nil || body["order_id"] != "o-1" {
		t.Fatalf("unexpected body %s", gotBody)
	}

	rows, _ := store.ListDeliveries(ctx(), evt.ID)
	if len(rows) != 1 {
		t.Fatalf("expected 1 ledger row, got %d", len(rows))
	}
	r := rows[0]
	if r.Status != delivery.AttemptSuccess || r.ResponseCode != 200 || r.AttemptNumber != 1 {
		t.Fatalf("unexpected row: %+v", r)
	}
	if r.ResponseBody != `{"received":true}` || r.ResponseHeaders["X-Receiver"] != "ok" {
		t.Fatalf("response not captured: %+v", r)
	}
}

func TestWorkerNoSignatureWithoutHMAC(t *testing.T) {
	var sig atomic.Value
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		sig.Store(r.Header.Get(signature.Header))
	}))
	defer srv.Close()

	store := memory.New()
	ep := createEndpoint(t, store, endpoint.AuthSharedSecret)
	evt := createEvent(t, store, ep, srv.URL)

	if err := newWorker(store, nil, delivery.WorkerConfig{}).Process(ctx(), evt.ID); err != nil {
		t.Fatal(err)
	}
	if sig.Load().(string) != "" {
		t.Fatal("signature sent for non-hmac endpoint")
	}
}

func TestWorkerPartialFailureRetries(t *testing.T) {
	ok := httptest.NewServer(http.HandlerFunc(func(http.ResponseWriter, *http.Request) {}))
	defer ok.Close()
	bad := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusBadGateway)
	}))
	defer bad.Close()

	store := memory.New()
	ep := createEndpoint(t, store, endpoint.AuthNone)
	evt := createEvent(t, store, ep, ok.URL, bad.URL)
	n := &countingNotifier{}

	w := newWorker(store, &stubEscalator{}, delivery.WorkerConfig{
		Backoff:  delivery.Backoff{time.Hour},
		Notifier: n,
	})
	before := time.Now().UTC()
	if err := w.Process(ctx(), evt.ID); err != nil {
		t.Fatal(err)
	}

	got, _ := store.GetEvent(ctx(), evt.ID)
	if got.Status != event.StatusFailed {
		t.Fatalf("expected failed, got %s", got.Status)
	}
	if got.NextAttemptAt.Before(before.Add(59 * time.Minute)) {
		t.Fatalf("backoff not applied: next at %v", got.NextAttemptAt)
	}
	if n.n.Load() != 1 {
		t.Fatal("expected one failure notification despite notifier error")
	}

	rows, _ := store.ListDeliveries(ctx(), evt.ID)
	if len(rows) != 2 || rows[0].Status != delivery.AttemptSuccess || rows[1].ResponseCode != 502 {
		t.Fatalf("unexpected ledger: %+v", rows)
	}
}

func TestWorkerAttemptNumbersPerDestination(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusInternalServerError)
	}))
	defer srv.Close()

	store := memory.New()
	ep := createEndpoint(t, store, endpoint.AuthNone)
	evt := createEvent(t, store, ep, srv.URL)

	w := newWorker(store, &stubEscalator{}, delivery.WorkerConfig{})
	clk := newTestClock()
	w.SetClock(clk.Now)
	runRounds(t, store, w, clk, evt.ID, 2)

	rows, _ := store.ListDeliveries(ctx(), evt.ID)
	if len(rows) != 2 || rows[0].AttemptNumber != 1 || rows[1].AttemptNumber != 2 {
		t.Fatalf("unexpected attempt numbers: %+v", rows)
	}
}

func TestWorkerExhaustsRetriesAndEscalates(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusServiceUnavailable)
	}))
	defer srv.Close()

	store := memory.New()
	ep := createEndpoint(t, store, endpoint.AuthNone)
	evt := createEvent(t, store, ep, srv.URL)
	esc := &stubEscalator{}

	w := newWorker(store, esc, delivery.WorkerConfig{})
	clk := newTestClock()
	w.SetClock(clk.Now)
	runRounds(t, store, w, clk, evt.ID, 3)

	got, _ := store.GetEvent(ctx(), evt.ID)
	if got.Status != event.StatusPermanentlyFailed || got.FailedAt == nil {
		t.Fatalf("expected permanently_failed, got %s", got.Status)
	}
	if esc.count() != 1 {
		t.Fatalf("expected exactly one escalation, got %d", esc.count())
	}
	var pf *delivery.PermanentFailure
	if !errors.As(esc.reasons[0], &pf) || !pf.Exhausted || pf.Attempts != 3 {
		t.Fatalf("unexpected reason: %v", esc.reasons[0])
	}
	var de *delivery.DestinationError
	if !errors.As(esc.reasons[0], &de) || de.StatusCode != 503 {
		t.Fatal("reason should wrap the last destination error")
	}

	if err := w.Process(ctx(), evt.ID); !errors.Is(err, event.ErrNotClaimable) {
		t.Fatalf("terminal event must not be claimable, got %v", err)
	}
}

func TestWorkerRetryWaitsForBackoff(t *testing.T) {
	var hits atomic.Int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		hits.Add(1)
		w.WriteHeader(http.StatusInternalServerError)
	}))
	defer srv.Close()

	store := memory.New()
	ep := createEndpoint(t, store, endpoint.AuthNone)
	evt := createEvent(t, store, ep, srv.URL)

	w := newWorker(store, nil, delivery.WorkerConfig{Backoff: delivery.DefaultBackoff})
	if err := w.Process(ctx(), evt.ID); err != nil {
		t.Fatal(err)
	}

	// A second worker polling the same event must not run the retry early.
	if err := w.Process(ctx(), evt.ID); !errors.Is(err, event.ErrNotClaimable) {
		t.Fatalf("expected ErrNotClaimable before the backoff deadline, got %v", err)
	}
	got, _ := store.GetEvent(ctx(), evt.ID)
	if got.DeliveryAttempts != 1 || got.Status != event.StatusFailed {
		t.Fatalf("unexpected state after rejected claim: attempts=%d status=%s", got.DeliveryAttempts, got.Status)
	}
	if hits.Load() != 1 {
		t.Fatalf("destination called %d times, want 1", hits.Load())
	}
}

func TestWorkerDefaultRetrySchedule(t *testing.T) {
	var hits atomic.Int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		hits.Add(1)
		w.WriteHeader(http.StatusInternalServerError)
	}))
	defer srv.Close()

	store := memory.New()
	ep := createEndpoint(t, store, endpoint.AuthNone)
	evt := createEvent(t, store, ep, srv.URL)
	evt.MaxTries = 0
	if err := store.UpdateEvent(ctx(), evt); err != nil {
		t.Fatal(err)
	}

	esc := &stubEscalator{}
	w := newWorker(store, esc, delivery.WorkerConfig{Backoff: delivery.DefaultBackoff})
	clk := newTestClock()
	w.SetClock(clk.Now)

	wantDelays := []time.Duration{30 * time.Second, 2 * time.Minute, 10 * time.Minute, 30 * time.Minute}
	for round := 1; round <= 5; round++ {
		if err := w.Process(ctx(), evt.ID); err != nil {
			t.Fatalf("round %d: %v", round, err)
		}
		got, _ := store.GetEvent(ctx(), evt.ID)
		if round == 5 {
			break
		}
		if got.Status != event.StatusFailed || got.LastAttemptAt == nil {
			t.Fatalf("round %d: expected failed, got %s", round, got.Status)
		}
		if d := got.NextAttemptAt.Sub(*got.LastAttemptAt); d != wantDelays[round-1] {
			t.Fatalf("round %d: delay = %v, want %v", round, d, wantDelays[round-1])
		}

		clk.Set(got.NextAttemptAt.Add(-time.Second))
		if err := w.Process(ctx(), evt.ID); !errors.Is(err, event.ErrNotClaimable) {
			t.Fatalf("round %d: claimed before deadline: %v", round, err)
		}
		clk.Set(got.NextAttemptAt)
	}

	got, _ := store.GetEvent(ctx(), evt.ID)
	if got.Status != event.StatusPermanentlyFailed || got.DeliveryAttempts != 5 {
		t.Fatalf("expected permanently_failed after 5 rounds, got %s after %d", got.Status, got.DeliveryAttempts)
	}
	rows, _ := store.ListDeliveries(ctx(), evt.ID)
	if len(rows) != 5 {
		t.Fatalf("expected 5 ledger rows, got %d", len(rows))
	}
	for i, r := range rows {
		if r.Destination != srv.URL || r.AttemptNumber != i+1 || r.ResponseCode != 500 {
			t.Fatalf("unexpected row %d: %+v", i, r)
		}
	}
	if hits.Load() != 5 {
		t.Fatalf("destination called %d times, want 5", hits.Load())
	}
	if esc.count() != 1 {
		t.Fatalf("expected exactly one escalation, got %d", esc.count())
	}
}

func TestWorkerTransportFailure(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(http.ResponseWriter, *http.Request) {}))
	url := srv.URL
	srv.Close()

	store := memory.New()
	ep := createEndpoint(t, store, endpoint.AuthNone)
	evt := createEvent(t, store, ep, url)

	if err := newWorker(store, nil, delivery.WorkerConfig{}).Process(ctx(), evt.ID); err != nil {
		t.Fatal(err)
	}

	rows, _ := store.ListDeliveries(ctx(), evt.ID)
	if len(rows) != 1 || rows[0].Status != delivery.AttemptFailed || rows[0].ResponseCode != 0 || rows[0].ErrorMessage == "" {
		t.Fatalf("unexpected transport failure row: %+v", rows)
	}
}

func TestWorkerTimeout(t *testing.T) {
	release := make(chan struct{})
	srv := httptest.NewServer(http.HandlerFunc(func(http.ResponseWriter, *http.Request) {
		<-release
	}))
	defer srv.Close()
	defer close(release)

	store := memory.New()
	ep := createEndpoint(t, store, endpoint.AuthNone)
	evt := createEvent(t, store, ep, srv.URL)

	w := newWorker(store, nil, delivery.WorkerConfig{RequestTimeout: 50 * time.Millisecond})
	if err := w.Process(ctx(), evt.ID); err != nil {
		t.Fatal(err)
	}

	rows, _ := store.ListDeliveries(ctx(), evt.ID)
	if len(rows) != 1 || rows[0].Status != delivery.AttemptTimeout {
		t.Fatalf("expected timeout row, got %+v", rows)
	}
	got, _ := store.GetEvent(ctx(), evt.ID)
	if got.Status != event.StatusFailed {
		t.Fatalf("a timed-out round is a failed round, got %s", got.Status)
	}
}

func TestWorkerExceptionBudget(t *testing.T) {
	store := memory.New()
	ep := createEndpoint(t, store, endpoint.AuthNone)
	evt := createEvent(t, store, ep, "https://unused.example.com")
	evt.MaxTries = 10
	evt.Encryption = string(project.EncryptionDocument)
	evt.Sealed = "garbage"
	_ = store.UpdateEvent(ctx(), evt)

	cipher, err := secure.New([]byte("0123456789abcdef0123456789abcdef"), nil)
	if err != nil {
		t.Fatal(err)
	}
	esc := &stubEscalator{}
	w := newWorker(store, esc, delivery.WorkerConfig{Opener: cipher, ExceptionBudget: 3})
	clk := newTestClock()
	w.SetClock(clk.Now)
	runRounds(t, store, w, clk, evt.ID, 3)

	got, _ := store.GetEvent(ctx(), evt.ID)
	if got.Exceptions != 3 {
		t.Fatalf("expected 3 exceptions, got %d", got.Exceptions)
	}
	if got.Status != event.StatusPermanentlyFailed {
		t.Fatalf("expected permanently_failed despite remaining retries, got %s", got.Status)
	}
	if esc.count() != 1 {
		t.Fatalf("expected one escalation, got %d", esc.count())
	}
	var pf *delivery.PermanentFailure
	if !errors.As(esc.reasons[0], &pf) || pf.Exhausted {
		t.Fatalf("expected exception-budget reason, got %v", esc.reasons[0])
	}
	if !errors.Is(esc.reasons[0], secure.ErrInvalidCiphertext) {
		t.Fatal("reason should wrap the ciphertext error")
	}
}

func TestWorkerOpensEncryptedPayload(t *testing.T) {
	var body atomic.Value
	srv := httptest.NewServer(http.HandlerFunc(func(_ http.ResponseWriter, r *http.Request) {
		b, _ := io.ReadAll(r.Body)
		body.Store(string(b))
	}))
	defer srv.Close()

	cipher, err := secure.New([]byte("0123456789abcdef0123456789abcdef"), nil)
	if err != nil {
		t.Fatal(err)
	}
	store := memory.New()
	ep := createEndpoint(t, store, endpoint.AuthNone)
	evt := createEvent(t, store, ep, srv.URL)
	sealed, err := cipher.EncryptFields(map[string]any{"email": "ada@example.com"})
	if err != nil {
		t.Fatal(err)
	}
	evt.Payload = sealed
	evt.Encryption = string(project.EncryptionFields)
	_ = store.UpdateEvent(ctx(), evt)

	if err := newWorker(store, nil, delivery.WorkerConfig{Opener: cipher}).Process(ctx(), evt.ID); err != nil {
		t.Fatal(err)
	}
	if body.Load().(string) != `{"email":"ada@example.com"}` {
		t.Fatalf("destination got %v", body.Load())
	}
}

func TestWorkerDeliversMarkerLookalikeField(t *testing.T) {
	var body atomic.Value
	srv := httptest.NewServer(http.HandlerFunc(func(_ http.ResponseWriter, r *http.Request) {
		b, _ := io.ReadAll(r.Body)
		body.Store(string(b))
	}))
	defer srv.Close()

	cipher, err := secure.New([]byte("0123456789abcdef0123456789abcdef"), nil)
	if err != nil {
		t.Fatal(err)
	}
	store := memory.New()
	ep := createEndpoint(t, store, endpoint.AuthNone)
	evt := createEvent(t, store, ep, srv.URL)
	sealed, err := cipher.EncryptFields(map[string]any{"email": secure.FieldMarker + "hello"})
	if err != nil {
		t.Fatal(err)
	}
	evt.Payload = sealed
	evt.Encryption = string(project.EncryptionFields)
	_ = store.UpdateEvent(ctx(), evt)

	if err := newWorker(store, nil, delivery.WorkerConfig{Opener: cipher}).Process(ctx(), evt.ID); err != nil {
		t.Fatal(err)
	}
	got, _ := store.GetEvent(ctx(), evt.ID)
	if got.Status != event.StatusDelivered || got.Exceptions != 0 {
		t.Fatalf("expected delivered without exceptions, got %s (%d exceptions)", got.Status, got.Exceptions)
	}
	if body.Load().(string) != `{"email":"enc:v1:hello"}` {
		t.Fatalf("destination got %v", body.Load())
	}
}
