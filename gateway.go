package hookgate

import (
	"context"
	"log/slog"

	"github.com/xraph/hookgate/delivery"
	"github.com/xraph/hookgate/dlq"
	"github.com/xraph/hookgate/endpoint"
	"github.com/xraph/hookgate/event"
	"github.com/xraph/hookgate/id"
	"github.com/xraph/hookgate/notify"
	"github.com/xraph/hookgate/observability"
	"github.com/xraph/hookgate/project"
	"github.com/xraph/hookgate/ratelimit"
	"github.com/xraph/hookgate/routing"
	"github.com/xraph/hookgate/schema"
	"github.com/xraph/hookgate/secure"
	"github.com/xraph/hookgate/store"
	"github.com/xraph/hookgate/transform"
)

// Gateway is the root webhook gateway: it ingests events, routes and
// transforms them, and delivers them in the background.
type Gateway struct {
	config   Config
	store    store.Store
	logger   *slog.Logger
	notifier notify.Notifier
	limiter  ratelimit.Limiter
	cipher   *secure.Cipher
	metrics  *observability.Metrics
	tracer   *observability.Tracer
	schemas  *schema.Validator

	projectSvc   *project.Service
	endpointSvc  *endpoint.Service
	ruleSvc      *routing.Service
	transformSvc *transform.Service
	router       *routing.Evaluator
	pipeline     *transform.Pipeline
	dlqSvc       *dlq.Service
	worker       *delivery.Worker
	engine       *delivery.Engine
}

// New creates a new Gateway with the given options.
func New(opts ...Option) (*Gateway, error) {
	g := &Gateway{
		config: DefaultConfig(),
		logger: slog.Default(),
	}
	for _, opt := range opts {
		if err := opt(g); err != nil {
			return nil, err
		}
	}
	if g.store == nil {
		return nil, ErrNoStore
	}
	if g.logger == nil {
		g.logger = slog.Default()
	}
	if g.notifier == nil {
		g.notifier = notify.Nop{}
	}
	if g.limiter == nil {
		g.limiter = ratelimit.NewWindowCounter()
	}
	g.wireServices()
	return g, nil
}

// wireServices initializes the internal services after options have been applied.
func (g *Gateway) wireServices() {
	g.schemas = schema.NewValidator()

	g.projectSvc = project.NewService(g.store, g.logger)
	g.endpointSvc = endpoint.NewService(g.store, g.schemas, g.logger)
	g.ruleSvc = routing.NewService(g.store, g.logger)
	g.transformSvc = transform.NewService(g.store, g.logger)
	g.router = routing.NewEvaluator(g.store, g.logger)
	g.pipeline = transform.NewPipeline(g.store, g.logger)

	g.dlqSvc = dlq.NewService(g.store, g.store, g.notifier, g.logger)
	if g.metrics != nil {
		g.dlqSvc.SetMetrics(g.metrics)
	}

	wcfg := delivery.WorkerConfig{
		RequestTimeout:  g.config.RequestTimeout,
		JobTimeout:      g.config.JobTimeout,
		MaxTries:        g.config.MaxTries,
		Backoff:         g.config.Backoff,
		ExceptionBudget: g.config.ExceptionBudget,
		Notifier:        g.notifier,
		Metrics:         g.metrics,
		Tracer:          g.tracer,
	}
	if g.cipher != nil {
		wcfg.Opener = g.cipher
	}
	g.worker = delivery.NewWorker(g.store, g.dlqSvc, wcfg, g.logger)

	g.engine = delivery.NewEngine(g.store, g.worker, delivery.EngineConfig{
		Concurrency:  g.config.Concurrency,
		PollInterval: g.config.PollInterval,
		BatchSize:    g.config.BatchSize,
		Metrics:      g.metrics,
	}, g.logger)
}

// Start begins the delivery engine.
func (g *Gateway) Start(ctx context.Context) {
	g.engine.Start(ctx)
	g.logger.InfoContext(ctx, "hookgate delivery engine started",
		"concurrency", g.config.Concurrency, "poll_interval", g.config.PollInterval)
}

// Stop shuts down the delivery engine, waiting at most ShutdownTimeout for
// in-flight rounds.
func (g *Gateway) Stop(ctx context.Context) error {
	ctx, cancel := context.WithTimeout(ctx, g.config.ShutdownTimeout)
	defer cancel()
	if err := g.engine.Stop(ctx); err != nil {
		g.logger.WarnContext(ctx, "hookgate delivery engine stopped with rounds in flight", "error", err)
		return err
	}
	return nil
}

// Worker returns the delivery worker, e.g. to run a round synchronously.
func (g *Gateway) Worker() *delivery.Worker {
	return g.worker
}

// Projects returns the project management service.
func (g *Gateway) Projects() *project.Service {
	return g.projectSvc
}

// Endpoints returns the endpoint management service.
func (g *Gateway) Endpoints() *endpoint.Service {
	return g.endpointSvc
}

// Rules returns the routing rule management service.
func (g *Gateway) Rules() *routing.Service {
	return g.ruleSvc
}

// Transformations returns the transformation management service.
func (g *Gateway) Transformations() *transform.Service {
	return g.transformSvc
}

// DLQ returns the DLQ service.
func (g *Gateway) DLQ() *dlq.Service {
	return g.dlqSvc
}

// Store returns the underlying store.
func (g *Gateway) Store() store.Store {
	return g.store
}

// Config returns the effective configuration.
func (g *Gateway) Config() Config {
	return g.config
}

// GetEvent returns an event by ID.
func (g *Gateway) GetEvent(ctx context.Context, evtID id.ID) (*event.Event, error) {
	return g.store.GetEvent(ctx, evtID)
}

// ListEvents returns events newest first.
func (g *Gateway) ListEvents(ctx context.Context, opts event.ListOpts) ([]*event.Event, error) {
	return g.store.ListEvents(ctx, opts)
}

// ListDeliveries returns an event's delivery ledger in attempt order.
func (g *Gateway) ListDeliveries(ctx context.Context, evtID id.ID) ([]*delivery.EventDelivery, error) {
	return g.store.ListDeliveries(ctx, evtID)
}
