package extension

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"

	"github.com/xraph/forge"

	"github.com/xraph/hookgate"
	"github.com/xraph/hookgate/api"
	"github.com/xraph/hookgate/store"
)

// ErrNotInitialized is returned by methods that need the gateway before Init.
var ErrNotInitialized = errors.New("extension: not initialized")

// Extension mounts one hookgate Gateway in a host application.
type Extension struct {
	config Config
	store  store.Store
	opts   []hookgate.Option
	logger *slog.Logger

	gw *hookgate.Gateway
}

// New creates an extension. Call Init before using it.
func New(opts ...ExtOption) *Extension {
	e := &Extension{config: DefaultConfig(), logger: slog.Default()}
	for _, opt := range opts {
		opt(e)
	}
	if e.config.BasePath == "" {
		e.config.BasePath = "/webhooks"
	}
	return e
}

// Init migrates the store and builds the gateway.
func (e *Extension) Init(ctx context.Context) error {
	if e.store == nil {
		return hookgate.ErrNoStore
	}
	if !e.config.DisableMigrate {
		if err := e.store.Migrate(ctx); err != nil {
			return fmt.Errorf("%w: %w", hookgate.ErrMigrationFailed, err)
		}
	}

	opts := append([]hookgate.Option{
		hookgate.WithStore(e.store),
		hookgate.WithLogger(e.logger),
	}, e.config.gatewayOptions()...)
	opts = append(opts, e.opts...)

	gw, err := hookgate.New(opts...)
	if err != nil {
		return err
	}
	e.gw = gw
	return nil
}

// Gateway returns the gateway built by Init, or nil.
func (e *Extension) Gateway() *hookgate.Gateway { return e.gw }

// Handler returns the HTTP API with BasePath stripped from request paths.
func (e *Extension) Handler() http.Handler {
	if e.gw == nil {
		return http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
			http.Error(w, ErrNotInitialized.Error(), http.StatusServiceUnavailable)
		})
	}
	h := api.NewHandler(e.gw, api.HandlerConfig{AdminToken: e.config.AdminToken}, e.logger)
	return http.StripPrefix(e.config.BasePath, h)
}

// RegisterRoutes registers the management routes on a Forge router under
// BasePath. The host is responsible for authenticating callers into the
// request scope.
func (e *Extension) RegisterRoutes(router forge.Router, log forge.Logger) error {
	if e.gw == nil {
		return ErrNotInitialized
	}
	if e.config.DisableRoutes {
		return nil
	}
	api.NewForgeAPI(e.gw, log).RegisterRoutes(router.Group(e.config.BasePath))
	return nil
}

// Start starts the delivery engine.
func (e *Extension) Start(ctx context.Context) error {
	if e.gw == nil {
		return ErrNotInitialized
	}
	e.gw.Start(ctx)
	return nil
}

// Stop drains the delivery engine.
func (e *Extension) Stop(ctx context.Context) error {
	if e.gw == nil {
		return nil
	}
	return e.gw.Stop(ctx)
}

// Health reports store connectivity.
func (e *Extension) Health(ctx context.Context) error {
	if e.store == nil {
		return hookgate.ErrNoStore
	}
	return e.store.Ping(ctx)
}

// BasePath returns the configured URL prefix.
func (e *Extension) BasePath() string { return e.config.BasePath }
