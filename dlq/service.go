package dlq

import (
	"context"
	"log/slog"
	"time"

	"github.com/xraph/hookgate/delivery"
	"github.com/xraph/hookgate/event"
	"github.com/xraph/hookgate/id"
	"github.com/xraph/hookgate/internal/entity"
	"github.com/xraph/hookgate/notify"
	"github.com/xraph/hookgate/observability"
)

// Ledger reads an event's delivery history.
type Ledger interface {
	ListDeliveries(ctx context.Context, evtID id.ID) ([]*delivery.EventDelivery, error)
}

// Service manages the dead letter queue and escalates permanently failed
// events.
type Service struct {
	store    Store
	ledger   Ledger
	notifier notify.Notifier
	metrics  *observability.Metrics
	logger   *slog.Logger
}

// NewService creates a new DLQ service. notifier may be nil.
func NewService(store Store, ledger Ledger, notifier notify.Notifier, logger *slog.Logger) *Service {
	if logger == nil {
		logger = slog.Default()
	}
	if notifier == nil {
		notifier = notify.Nop{}
	}
	return &Service{
		store:    store,
		ledger:   ledger,
		notifier: notifier,
		logger:   logger,
	}
}

// SetMetrics attaches instruments updated on escalation and replay.
func (svc *Service) SetMetrics(m *observability.Metrics) { svc.metrics = m }

// Escalate records evt in the DLQ with its full ledger and notifies
// administrators. It is fire-and-forget: failures are logged, never
// returned, and never touch the event. Implements delivery.Escalator.
func (svc *Service) Escalate(ctx context.Context, evt *event.Event, reason error, attempts int) {
	defer func() {
		if r := recover(); r != nil {
			svc.logger.ErrorContext(ctx, "dlq: escalation panicked", "event_id", evt.ID, "panic", r)
		}
	}()

	failedAt := time.Now().UTC()
	if evt.FailedAt != nil {
		failedAt = *evt.FailedAt
	}

	entry := &Entry{
		Entity:       entity.New(),
		ID:           id.NewDLQID(),
		EventID:      evt.ID,
		ProjectID:    evt.ProjectID,
		EndpointID:   evt.EndpointID,
		EventType:    evt.Type,
		Payload:      evt.Payload,
		Sealed:       evt.Sealed,
		Encryption:   evt.Encryption,
		Destinations: evt.Destinations,
		Attempts:     attempts,
		FailedAt:     failedAt,
	}
	if reason != nil {
		entry.Reason = reason.Error()
	}

	if svc.ledger != nil {
		rows, err := svc.ledger.ListDeliveries(ctx, evt.ID)
		if err != nil {
			svc.logger.ErrorContext(ctx, "dlq: load delivery ledger failed", "event_id", evt.ID, "error", err)
		}
		entry.Deliveries = rows
	}

	if err := svc.store.Push(ctx, entry); err != nil {
		svc.logger.ErrorContext(ctx, "dlq: push failed", "event_id", evt.ID, "error", err)
	} else if svc.metrics != nil {
		svc.metrics.DLQSize.Inc()
	}

	err := svc.notifier.Notify(ctx, notify.Message{
		Kind:       notify.KindEscalated,
		EventID:    evt.ID,
		EventType:  evt.Type,
		ProjectID:  evt.ProjectID,
		EndpointID: evt.EndpointID,
		Attempts:   attempts,
		FailedAt:   failedAt,
		Reason:     entry.Reason,
	})
	if err != nil {
		svc.logger.WarnContext(ctx, "dlq: escalation notification failed", "event_id", evt.ID, "error", err)
	}

	svc.logger.WarnContext(ctx, "event escalated to dlq",
		"event_id", evt.ID, "dlq_id", entry.ID, "attempts", attempts, "reason", entry.Reason)
}

// List returns DLQ entries matching the given options.
func (svc *Service) List(ctx context.Context, opts ListOpts) ([]*Entry, error) {
	return svc.store.ListDLQ(ctx, opts)
}

// Get returns a DLQ entry by ID.
func (svc *Service) Get(ctx context.Context, dlqID id.ID) (*Entry, error) {
	return svc.store.GetDLQ(ctx, dlqID)
}

// MarkReplayed records that an entry's event was replayed.
func (svc *Service) MarkReplayed(ctx context.Context, dlqID id.ID) error {
	if err := svc.store.MarkReplayed(ctx, dlqID, time.Now().UTC()); err != nil {
		return err
	}
	if svc.metrics != nil {
		svc.metrics.DLQSize.Dec()
	}
	return nil
}

// Purge removes DLQ entries that failed before the given time.
func (svc *Service) Purge(ctx context.Context, before time.Time) (int64, error) {
	n, err := svc.store.Purge(ctx, before)
	if err != nil {
		return 0, err
	}
	svc.logger.InfoContext(ctx, "dlq purged", "before", before, "removed", n)
	return n, nil
}

// Count returns the total number of DLQ entries.
func (svc *Service) Count(ctx context.Context) (int64, error) {
	return svc.store.CountDLQ(ctx)
}
