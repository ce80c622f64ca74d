package extension

import (
	"log/slog"
	"strings"

	"github.com/xraph/hookgate"
	"github.com/xraph/hookgate/store"
)

// ExtOption configures the extension.
type ExtOption func(*Extension)

// WithStore sets the persistence backend.
func WithStore(s store.Store) ExtOption {
	return func(e *Extension) {
		e.store = s
	}
}

// WithPrefix sets the URL prefix for all hookgate routes.
func WithPrefix(prefix string) ExtOption {
	return func(e *Extension) {
		e.config.BasePath = "/" + strings.Trim(prefix, "/")
	}
}

// WithConfig sets the extension configuration directly.
func WithConfig(cfg Config) ExtOption {
	return func(e *Extension) {
		e.config = cfg
	}
}

// WithLogger sets the logger handed to the gateway and the HTTP handler.
func WithLogger(logger *slog.Logger) ExtOption {
	return func(e *Extension) {
		e.logger = logger
	}
}

// WithGatewayOption appends a raw hookgate.Option, e.g. WithNotifier or
// WithMasterKey.
func WithGatewayOption(opt hookgate.Option) ExtOption {
	return func(e *Extension) {
		e.opts = append(e.opts, opt)
	}
}

// WithDisableRoutes disables route registration.
func WithDisableRoutes() ExtOption {
	return func(e *Extension) {
		e.config.DisableRoutes = true
	}
}

// WithDisableMigrations disables store migrations on Init.
func WithDisableMigrations() ExtOption {
	return func(e *Extension) {
		e.config.DisableMigrate = true
	}
}
