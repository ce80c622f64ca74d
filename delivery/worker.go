package delivery

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"strconv"
	"time"

	"go.opentelemetry.io/otel/trace"

	"github.com/xraph/hookgate/endpoint"
	"github.com/xraph/hookgate/event"
	"github.com/xraph/hookgate/id"
	"github.com/xraph/hookgate/notify"
	"github.com/xraph/hookgate/observability"
	"github.com/xraph/hookgate/project"
	"github.com/xraph/hookgate/signature"
)

// WorkerStore is what a Worker reads and writes.
type WorkerStore interface {
	event.Store
	Store
	GetEndpoint(ctx context.Context, epID id.ID) (*endpoint.Endpoint, error)
}

// Escalator handles events that reached permanently_failed. It must not
// return errors or block delivery.
type Escalator interface {
	Escalate(ctx context.Context, evt *event.Event, reason error, attempts int)
}

// PayloadOpener reverses at-rest encryption before sending.
type PayloadOpener interface {
	DecryptDocument(s string, out any) error
	DecryptFields(doc map[string]any) (map[string]any, error)
}

// WorkerConfig holds worker configuration.
type WorkerConfig struct {
	RequestTimeout  time.Duration
	JobTimeout      time.Duration
	MaxTries        int
	Backoff         Backoff
	ExceptionBudget int

	Notifier notify.Notifier
	Opener   PayloadOpener
	Metrics  *observability.Metrics
	Tracer   *observability.Tracer
}

// Worker runs delivery rounds. A round claims an event, calls every
// destination once, appends ledger rows and moves the event on.
type Worker struct {
	store     WorkerStore
	sender    *Sender
	escalator Escalator
	config    WorkerConfig
	logger    *slog.Logger
	now       func() time.Time
}

// NewWorker creates a worker. esc may be nil.
func NewWorker(store WorkerStore, esc Escalator, cfg WorkerConfig, logger *slog.Logger) *Worker {
	if logger == nil {
		logger = slog.Default()
	}
	if cfg.RequestTimeout <= 0 {
		cfg.RequestTimeout = 30 * time.Second
	}
	if cfg.JobTimeout <= 0 {
		cfg.JobTimeout = 120 * time.Second
	}
	if cfg.MaxTries <= 0 {
		cfg.MaxTries = 5
	}
	if len(cfg.Backoff) == 0 {
		cfg.Backoff = DefaultBackoff
	}
	if cfg.ExceptionBudget <= 0 {
		cfg.ExceptionBudget = 3
	}
	if cfg.Notifier == nil {
		cfg.Notifier = notify.Nop{}
	}
	return &Worker{
		store:     store,
		sender:    NewSender(cfg.RequestTimeout),
		escalator: esc,
		config:    cfg,
		logger:    logger,
		now:       func() time.Time { return time.Now().UTC() },
	}
}

// SetSender replaces the HTTP sender.
func (w *Worker) SetSender(s *Sender) { w.sender = s }

// SetClock replaces the time source used for claims, ledger rows and retry
// scheduling.
func (w *Worker) SetClock(now func() time.Time) { w.now = now }

// LeaseTTL is how long a processing claim is honoured before another worker
// may take the event over.
func (w *Worker) LeaseTTL() time.Duration { return 2 * w.config.JobTimeout }

// Process runs one delivery round for evtID. It returns event.ErrNotClaimable
// when another worker holds the event or the event is terminal, and store
// errors hit while claiming. Everything after the claim is handled here.
func (w *Worker) Process(ctx context.Context, evtID id.ID) error {
	now := w.now()
	evt, err := w.store.BeginAttempt(ctx, evtID, now, now.Add(-w.LeaseTTL()))
	if err != nil {
		return err
	}

	// Bookkeeping after the round must survive the job deadline.
	persistCtx := context.WithoutCancel(ctx)

	jobCtx, cancel := context.WithTimeout(ctx, w.config.JobTimeout)
	defer cancel()

	var span trace.Span
	if w.config.Tracer != nil {
		jobCtx, span = w.config.Tracer.StartRoundSpan(jobCtx, evt.ID.String(), evt.EndpointID.String(), evt.DeliveryAttempts)
	}

	delivered, last, roundErr := w.safeRound(jobCtx, persistCtx, evt)
	switch {
	case roundErr != nil:
		w.exception(persistCtx, evt, roundErr)
	case delivered:
		w.succeed(persistCtx, evt)
	default:
		w.fail(persistCtx, evt, last)
	}

	if span != nil {
		w.config.Tracer.EndRoundSpan(span, string(evt.Status), roundErr)
	}
	return nil
}

func (w *Worker) safeRound(ctx, persistCtx context.Context, evt *event.Event) (delivered bool, last, err error) {
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("panic during delivery round: %v", r)
		}
	}()
	return w.round(ctx, persistCtx, evt)
}

// round calls every destination once. err is an unexpected failure; last is
// the most recent destination failure.
func (w *Worker) round(ctx, persistCtx context.Context, evt *event.Event) (delivered bool, last, err error) {
	ep, err := w.store.GetEndpoint(persistCtx, evt.EndpointID)
	if err != nil {
		return false, nil, fmt.Errorf("load endpoint %s: %w", evt.EndpointID, err)
	}
	payload, err := w.openPayload(evt)
	if err != nil {
		return false, nil, fmt.Errorf("open payload: %w", err)
	}
	body, err := json.Marshal(payload)
	if err != nil {
		return false, nil, fmt.Errorf("marshal payload: %w", err)
	}
	headers := w.headers(evt, ep, body)

	delivered = true
	for _, dest := range evt.Destinations {
		prior, err := w.store.CountDeliveries(persistCtx, evt.ID, dest)
		if err != nil {
			return false, nil, fmt.Errorf("count deliveries: %w", err)
		}

		attemptCtx := ctx
		var span trace.Span
		if w.config.Tracer != nil {
			attemptCtx, span = w.config.Tracer.StartAttemptSpan(ctx, dest)
		}

		at := w.now()
		res := w.sender.Send(attemptCtx, dest, body, headers)

		row := &EventDelivery{
			ID:              id.NewDeliveryID(),
			EventID:         evt.ID,
			EndpointID:      evt.EndpointID,
			ProjectID:       evt.ProjectID,
			Destination:     dest,
			AttemptNumber:   prior + 1,
			Status:          res.Status(),
			ResponseCode:    res.StatusCode,
			ResponseBody:    res.Body,
			ResponseHeaders: res.Headers,
			LatencyMs:       res.LatencyMs,
			AttemptedAt:     at,
		}
		if res.Err != nil {
			row.ErrorMessage = res.Err.Error()
			delivered = false
			last = res.Err
		}

		if span != nil {
			w.config.Tracer.EndAttemptSpan(span, res.StatusCode, res.LatencyMs, row.ErrorMessage)
		}
		if w.config.Metrics != nil {
			w.config.Metrics.RecordAttempt(string(row.Status), float64(res.LatencyMs)/1000.0)
		}

		if err := w.store.RecordDelivery(persistCtx, row); err != nil {
			return false, nil, fmt.Errorf("record delivery: %w", err)
		}

		w.logger.DebugContext(ctx, "delivery attempt",
			"event_id", evt.ID, "destination", dest, "attempt", row.AttemptNumber,
			"status", row.Status, "response_code", row.ResponseCode, "latency_ms", row.LatencyMs)
	}
	return delivered, last, nil
}

func (w *Worker) headers(evt *event.Event, ep *endpoint.Endpoint, body []byte) http.Header {
	h := http.Header{}
	h.Set("Content-Type", "application/json")
	h.Set("User-Agent", UserAgent)
	h.Set("X-Hookgate-Event-ID", evt.ID.String())
	h.Set("X-Hookgate-Event-Type", evt.Type)
	h.Set("X-Hookgate-Delivery-Attempt", strconv.Itoa(evt.DeliveryAttempts))
	h.Set("X-Hookgate-Created-At", evt.CreatedAt.UTC().Format(time.RFC3339))

	for k, v := range ep.Headers {
		h.Set(k, v)
	}
	if ep.AuthMethod == endpoint.AuthHMAC && ep.AuthSecret != "" {
		h.Set(signature.Header, signature.Sign(body, ep.AuthSecret))
	}
	return h
}

func (w *Worker) openPayload(evt *event.Event) (map[string]any, error) {
	switch project.EncryptionMode(evt.Encryption) {
	case project.EncryptionDocument:
		if w.config.Opener == nil {
			return nil, errors.New("event is encrypted but no cipher is configured")
		}
		var out map[string]any
		if err := w.config.Opener.DecryptDocument(evt.Sealed, &out); err != nil {
			return nil, err
		}
		return out, nil
	case project.EncryptionFields:
		if w.config.Opener == nil {
			return nil, errors.New("event is encrypted but no cipher is configured")
		}
		return w.config.Opener.DecryptFields(evt.Payload)
	default:
		return evt.Payload, nil
	}
}

func (w *Worker) maxTries(evt *event.Event) int {
	if evt.MaxTries > 0 {
		return evt.MaxTries
	}
	return w.config.MaxTries
}

func (w *Worker) succeed(ctx context.Context, evt *event.Event) {
	now := w.now()
	if !w.transition(ctx, evt, event.StatusDelivered) {
		return
	}
	evt.DeliveredAt = &now
	w.save(ctx, evt)

	w.logger.InfoContext(ctx, "event delivered",
		"event_id", evt.ID, "attempt", evt.DeliveryAttempts, "destinations", len(evt.Destinations))
}

func (w *Worker) fail(ctx context.Context, evt *event.Event, last error) {
	now := w.now()
	if !w.transition(ctx, evt, event.StatusFailed) {
		return
	}
	w.notify(ctx, evt, notify.KindDeliveryFailed, now, last)

	if evt.DeliveryAttempts < w.maxTries(evt) {
		evt.NextAttemptAt = w.config.Backoff.Next(now, evt.DeliveryAttempts)
		w.save(ctx, evt)
		w.logger.WarnContext(ctx, "delivery round failed, retry scheduled",
			"event_id", evt.ID, "attempt", evt.DeliveryAttempts, "next_at", evt.NextAttemptAt, "error", last)
		return
	}

	w.giveUp(ctx, evt, &PermanentFailure{EventID: evt.ID, Attempts: evt.DeliveryAttempts, Exhausted: true, Last: last})
}

// exception handles an unexpected error. Exceptions are budgeted
// separately from delivery failures; running out of either budget ends the
// event.
func (w *Worker) exception(ctx context.Context, evt *event.Event, err error) {
	evt.Exceptions++
	w.logger.ErrorContext(ctx, "delivery round aborted",
		"event_id", evt.ID, "attempt", evt.DeliveryAttempts, "exceptions", evt.Exceptions, "error", err)

	if evt.Exceptions >= w.config.ExceptionBudget {
		w.transition(ctx, evt, event.StatusFailed)
		w.giveUp(ctx, evt, &PermanentFailure{EventID: evt.ID, Attempts: evt.DeliveryAttempts, Last: err})
		return
	}
	if evt.DeliveryAttempts >= w.maxTries(evt) {
		w.transition(ctx, evt, event.StatusFailed)
		w.giveUp(ctx, evt, &PermanentFailure{EventID: evt.ID, Attempts: evt.DeliveryAttempts, Exhausted: true, Last: err})
		return
	}

	if !w.transition(ctx, evt, event.StatusFailed) {
		return
	}
	evt.NextAttemptAt = w.config.Backoff.Next(w.now(), evt.DeliveryAttempts)
	w.save(ctx, evt)
}

func (w *Worker) giveUp(ctx context.Context, evt *event.Event, reason *PermanentFailure) {
	now := w.now()
	if !w.transition(ctx, evt, event.StatusPermanentlyFailed) {
		return
	}
	evt.FailedAt = &now
	w.save(ctx, evt)

	w.logger.WarnContext(ctx, "event permanently failed",
		"event_id", evt.ID, "attempt", evt.DeliveryAttempts, "reason", reason.Error())

	if w.config.Metrics != nil {
		w.config.Metrics.EscalationsTotal.Inc()
	}
	if w.escalator != nil {
		w.escalator.Escalate(ctx, evt, reason, evt.DeliveryAttempts)
	}
}

func (w *Worker) transition(ctx context.Context, evt *event.Event, to event.Status) bool {
	if !event.CanTransition(evt.Status, to) {
		w.logger.ErrorContext(ctx, "illegal event transition",
			"event_id", evt.ID, "from", evt.Status, "to", to)
		return false
	}
	evt.Status = to
	return true
}

func (w *Worker) save(ctx context.Context, evt *event.Event) {
	evt.Touch()
	if err := w.store.UpdateEvent(ctx, evt); err != nil {
		w.logger.ErrorContext(ctx, "update event failed",
			"event_id", evt.ID, "status", evt.Status, "error", err)
	}
}

func (w *Worker) notify(ctx context.Context, evt *event.Event, kind notify.Kind, at time.Time, reason error) {
	msg := notify.Message{
		Kind:       kind,
		EventID:    evt.ID,
		EventType:  evt.Type,
		ProjectID:  evt.ProjectID,
		EndpointID: evt.EndpointID,
		Attempts:   evt.DeliveryAttempts,
		FailedAt:   at,
	}
	if reason != nil {
		msg.Reason = reason.Error()
	}
	if err := w.config.Notifier.Notify(ctx, msg); err != nil {
		w.logger.WarnContext(ctx, "failure notification not sent", "event_id", evt.ID, "error", err)
	}
}
