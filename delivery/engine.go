package delivery

import (
	"context"
	"errors"
	"log/slog"
	"sync"
	"time"

	"github.com/xraph/hookgate/event"
	"github.com/xraph/hookgate/id"
	"github.com/xraph/hookgate/observability"
)

// EngineStore is the interface the engine needs to find due events.
type EngineStore interface {
	DueEvents(ctx context.Context, now, staleBefore time.Time, limit int) ([]*event.Event, error)
}

// Processor runs one delivery round. *Worker implements it.
type Processor interface {
	Process(ctx context.Context, evtID id.ID) error
	LeaseTTL() time.Duration
}

// EngineConfig holds engine configuration.
type EngineConfig struct {
	Concurrency  int
	PollInterval time.Duration
	BatchSize    int
	Metrics      *observability.Metrics
}

// Engine is the delivery queue: it polls the store for due events and hands
// them to a bounded pool of worker goroutines. Retry delays live in the
// store's next_attempt_at; nothing sleeps.
type Engine struct {
	store  EngineStore
	worker Processor
	config EngineConfig
	logger *slog.Logger

	cancel context.CancelFunc
	wg     sync.WaitGroup
}

// NewEngine creates a delivery engine.
func NewEngine(store EngineStore, worker Processor, cfg EngineConfig, logger *slog.Logger) *Engine {
	if logger == nil {
		logger = slog.Default()
	}
	if cfg.Concurrency <= 0 {
		cfg.Concurrency = 10
	}
	if cfg.PollInterval <= 0 {
		cfg.PollInterval = time.Second
	}
	if cfg.BatchSize <= 0 {
		cfg.BatchSize = 50
	}
	return &Engine{store: store, worker: worker, config: cfg, logger: logger}
}

// Start begins the poll loop.
func (e *Engine) Start(ctx context.Context) {
	ctx, e.cancel = context.WithCancel(ctx)

	e.wg.Add(1)
	go func() {
		defer e.wg.Done()
		e.pollLoop(ctx)
	}()
}

// Stop cancels the poll loop and waits for in-flight rounds to complete, or
// for ctx to end. Rounds still running when ctx ends are finished in the
// background and their events are otherwise recovered by lease expiry.
func (e *Engine) Stop(ctx context.Context) error {
	if e.cancel != nil {
		e.cancel()
	}
	done := make(chan struct{})
	go func() {
		e.wg.Wait()
		close(done)
	}()
	select {
	case <-done:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

func (e *Engine) pollLoop(ctx context.Context) {
	ticker := time.NewTicker(e.config.PollInterval)
	defer ticker.Stop()

	sem := make(chan struct{}, e.config.Concurrency)

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			now := time.Now().UTC()
			batch, err := e.store.DueEvents(ctx, now, now.Add(-e.worker.LeaseTTL()), e.config.BatchSize)
			if err != nil {
				e.logger.ErrorContext(ctx, "poll due events failed", "error", err)
				continue
			}
			if e.config.Metrics != nil {
				e.config.Metrics.PendingEvents.Set(float64(len(batch)))
			}

			for _, evt := range batch {
				select {
				case <-ctx.Done():
					return
				case sem <- struct{}{}:
				}

				e.wg.Add(1)
				go func(evtID id.ID) {
					defer e.wg.Done()
					defer func() { <-sem }()
					// In-flight rounds outlive the poll loop on Stop.
					e.dispatch(context.WithoutCancel(ctx), evtID)
				}(evt.ID)
			}
		}
	}
}

func (e *Engine) dispatch(ctx context.Context, evtID id.ID) {
	err := e.worker.Process(ctx, evtID)
	switch {
	case err == nil:
	case errors.Is(err, event.ErrNotClaimable):
		e.logger.DebugContext(ctx, "event claimed elsewhere", "event_id", evtID)
	default:
		e.logger.ErrorContext(ctx, "claim event failed", "event_id", evtID, "error", err)
	}
}
