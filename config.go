package hookgate

import (
	"time"

	"github.com/xraph/hookgate/delivery"
)

// Config holds the configuration for a Gateway instance. The koanf tags
// let the config package load it from YAML and the environment.
type Config struct {
	// Concurrency is the number of delivery worker goroutines.
	Concurrency int `koanf:"concurrency"`

	// PollInterval is how often the delivery engine checks for due events.
	PollInterval time.Duration `koanf:"poll_interval"`

	// BatchSize is the maximum number of events claimed per poll cycle.
	BatchSize int `koanf:"batch_size"`

	// RequestTimeout bounds one HTTP call to one destination.
	RequestTimeout time.Duration `koanf:"request_timeout"`

	// JobTimeout bounds a whole delivery round. A processing claim older
	// than twice this value may be taken over by another worker.
	JobTimeout time.Duration `koanf:"job_timeout"`

	// MaxTries is the default retry budget for endpoints that set none.
	MaxTries int `koanf:"max_tries"`

	// Backoff is the delay table between rounds, indexed by failed rounds.
	Backoff []time.Duration `koanf:"backoff"`

	// ExceptionBudget is how many internal errors an event may hit before
	// it is failed permanently.
	ExceptionBudget int `koanf:"exception_budget"`

	// ShutdownTimeout is the maximum time Stop waits for in-flight rounds.
	ShutdownTimeout time.Duration `koanf:"shutdown_timeout"`

	// SensitiveFields overrides the key-name heuristic used for field
	// encryption and log masking. Empty keeps the built-in list.
	SensitiveFields []string `koanf:"sensitive_fields"`
}

// DefaultConfig returns a Config with sensible defaults.
func DefaultConfig() Config {
	return Config{
		Concurrency:     10,
		PollInterval:    1 * time.Second,
		BatchSize:       50,
		RequestTimeout:  30 * time.Second,
		JobTimeout:      120 * time.Second,
		MaxTries:        5,
		Backoff:         delivery.DefaultBackoff,
		ExceptionBudget: 3,
		ShutdownTimeout: 30 * time.Second,
	}
}
