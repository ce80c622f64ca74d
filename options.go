package hookgate

import (
	"log/slog"
	"time"

	"github.com/xraph/hookgate/notify"
	"github.com/xraph/hookgate/observability"
	"github.com/xraph/hookgate/ratelimit"
	"github.com/xraph/hookgate/secure"
	"github.com/xraph/hookgate/store"
)

// Option configures a Gateway instance.
type Option func(*Gateway) error

// WithStore sets the persistence backend for the Gateway.
func WithStore(s store.Store) Option {
	return func(g *Gateway) error {
		g.store = s
		return nil
	}
}

// WithLogger sets the structured logger for the Gateway.
func WithLogger(logger *slog.Logger) Option {
	return func(g *Gateway) error {
		g.logger = logger
		return nil
	}
}

// WithConfig replaces the whole configuration. Zero fields keep their
// defaults.
func WithConfig(cfg Config) Option {
	return func(g *Gateway) error {
		def := DefaultConfig()
		if cfg.Concurrency <= 0 {
			cfg.Concurrency = def.Concurrency
		}
		if cfg.PollInterval <= 0 {
			cfg.PollInterval = def.PollInterval
		}
		if cfg.BatchSize <= 0 {
			cfg.BatchSize = def.BatchSize
		}
		if cfg.RequestTimeout <= 0 {
			cfg.RequestTimeout = def.RequestTimeout
		}
		if cfg.JobTimeout <= 0 {
			cfg.JobTimeout = def.JobTimeout
		}
		if cfg.MaxTries <= 0 {
			cfg.MaxTries = def.MaxTries
		}
		if len(cfg.Backoff) == 0 {
			cfg.Backoff = def.Backoff
		}
		if cfg.ExceptionBudget <= 0 {
			cfg.ExceptionBudget = def.ExceptionBudget
		}
		if cfg.ShutdownTimeout <= 0 {
			cfg.ShutdownTimeout = def.ShutdownTimeout
		}
		g.config = cfg
		return nil
	}
}

// WithConcurrency sets the number of delivery worker goroutines.
func WithConcurrency(n int) Option {
	return func(g *Gateway) error {
		g.config.Concurrency = n
		return nil
	}
}

// WithPollInterval sets how often the delivery engine checks for due events.
func WithPollInterval(d time.Duration) Option {
	return func(g *Gateway) error {
		g.config.PollInterval = d
		return nil
	}
}

// WithMaxTries sets the default retry budget.
func WithMaxTries(n int) Option {
	return func(g *Gateway) error {
		g.config.MaxTries = n
		return nil
	}
}

// WithBackoff sets the delay table between delivery rounds.
func WithBackoff(schedule []time.Duration) Option {
	return func(g *Gateway) error {
		g.config.Backoff = schedule
		return nil
	}
}

// WithNotifier sets where failure and escalation notices are sent.
func WithNotifier(n notify.Notifier) Option {
	return func(g *Gateway) error {
		g.notifier = n
		return nil
	}
}

// WithRateLimiter replaces the in-process ingestion rate limiter, e.g. with
// a ratelimit.RedisCounter shared by several gateway instances.
func WithRateLimiter(l ratelimit.Limiter) Option {
	return func(g *Gateway) error {
		g.limiter = l
		return nil
	}
}

// WithCipher enables at-rest payload encryption for projects that ask for it.
func WithCipher(c *secure.Cipher) Option {
	return func(g *Gateway) error {
		g.cipher = c
		return nil
	}
}

// WithMasterKey derives the payload cipher from a master key.
func WithMasterKey(key []byte) Option {
	return func(g *Gateway) error {
		c, err := secure.New(key, g.config.SensitiveFields)
		if err != nil {
			return err
		}
		g.cipher = c
		return nil
	}
}

// WithMetrics sets the Prometheus instruments updated by ingestion and
// delivery.
func WithMetrics(m *observability.Metrics) Option {
	return func(g *Gateway) error {
		g.metrics = m
		return nil
	}
}

// WithTracer sets the OpenTelemetry tracer for delivery rounds.
func WithTracer(t *observability.Tracer) Option {
	return func(g *Gateway) error {
		g.tracer = t
		return nil
	}
}
