// Package config loads the hookgate server configuration from a YAML file
// and HOOKGATE_ environment variables.
//
// Environment variables override the file. Nested keys are separated by a
// double underscore: HOOKGATE_STORE__DRIVER sets store.driver. String values
// of the form ${NAME} in secret fields are replaced by the environment
// variable NAME.
package config

import (
	"fmt"
	"slices"
	"time"

	"github.com/xraph/hookgate"
)

// Store drivers.
const (
	DriverMemory   = "memory"
	DriverPostgres = "postgres"
	DriverSQLite   = "sqlite"
	DriverMongo    = "mongo"
	DriverRedis    = "redis"
)

// Config is the full server configuration.
type Config struct {
	Gateway    hookgate.Config  `koanf:"gateway"`
	Store      StoreConfig      `koanf:"store"`
	HTTP       HTTPConfig       `koanf:"http"`
	Notify     NotifyConfig     `koanf:"notify"`
	Encryption EncryptionConfig `koanf:"encryption"`
	RateLimit  RateLimitConfig  `koanf:"ratelimit"`
	Log        LogConfig        `koanf:"log"`
}

// StoreConfig selects the persistence backend.
type StoreConfig struct {
	Driver string `koanf:"driver"` // memory, postgres, sqlite, mongo, redis
	DSN    string `koanf:"dsn"`

	// Migrate runs schema migrations at startup.
	Migrate bool `koanf:"migrate"`
}

// HTTPConfig configures the HTTP listener.
type HTTPConfig struct {
	Addr         string        `koanf:"addr"`
	AdminToken   string        `koanf:"admin_token"`
	MaxBodyBytes int64         `koanf:"max_body_bytes"`
	ReadTimeout  time.Duration `koanf:"read_timeout"`
	WriteTimeout time.Duration `koanf:"write_timeout"`
}

// NotifyConfig configures escalation notifications. Each channel is enabled
// by setting its address.
type NotifyConfig struct {
	ChatWebhookURL string     `koanf:"chat_webhook_url"`
	SMTP           SMTPConfig `koanf:"smtp"`
}

// SMTPConfig configures email notifications.
type SMTPConfig struct {
	Host     string   `koanf:"host"`
	Port     int      `koanf:"port"`
	Username string   `koanf:"username"`
	Password string   `koanf:"password"`
	From     string   `koanf:"from"`
	To       []string `koanf:"to"`
}

// EncryptionConfig holds the payload master key. Empty disables at-rest
// encryption; projects that request it are then rejected at ingestion.
type EncryptionConfig struct {
	MasterKey string `koanf:"master_key"`
}

// RateLimitConfig selects where inbound rate-limit counters live.
type RateLimitConfig struct {
	Backend  string `koanf:"backend"` // memory or redis
	RedisURL string `koanf:"redis_url"`
}

// LogConfig configures the process logger.
type LogConfig struct {
	Level  string `koanf:"level"`  // debug, info, warn, error
	Format string `koanf:"format"` // json or text
}

// Default returns the configuration used for keys absent from every source.
func Default() Config {
	gw := hookgate.DefaultConfig()
	gw.Backoff = slices.Clone(gw.Backoff)
	return Config{
		Gateway: gw,
		Store:   StoreConfig{Driver: DriverMemory},
		HTTP: HTTPConfig{
			Addr:         ":8080",
			MaxBodyBytes: 1 << 20,
			ReadTimeout:  15 * time.Second,
			WriteTimeout: 30 * time.Second,
		},
		Notify:    NotifyConfig{SMTP: SMTPConfig{Port: 587}},
		RateLimit: RateLimitConfig{Backend: "memory"},
		Log:       LogConfig{Level: "info", Format: "json"},
	}
}

// Validate checks cross-field constraints.
func (c Config) Validate() error {
	switch c.Store.Driver {
	case DriverMemory:
	case DriverPostgres, DriverSQLite, DriverMongo, DriverRedis:
		if c.Store.DSN == "" {
			return fmt.Errorf("config: store.dsn is required for driver %q", c.Store.Driver)
		}
	default:
		return fmt.Errorf("config: unknown store.driver %q", c.Store.Driver)
	}

	switch c.RateLimit.Backend {
	case "memory":
	case "redis":
		if c.RateLimit.RedisURL == "" {
			return fmt.Errorf("config: ratelimit.redis_url is required for the redis backend")
		}
	default:
		return fmt.Errorf("config: unknown ratelimit.backend %q", c.RateLimit.Backend)
	}

	if k := c.Encryption.MasterKey; k != "" && len(k) < 16 {
		return fmt.Errorf("config: encryption.master_key must be at least 16 bytes")
	}
	if c.Gateway.Concurrency <= 0 {
		return fmt.Errorf("config: gateway.concurrency must be positive")
	}
	return nil
}
