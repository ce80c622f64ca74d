package config

import (
	"errors"
	"io/fs"
	"os"
	"regexp"
	"slices"
	"strings"
	"sync"

	"github.com/knadh/koanf/parsers/yaml"
	"github.com/knadh/koanf/providers/env"
	"github.com/knadh/koanf/providers/file"
	"github.com/knadh/koanf/v2"

	"github.com/xraph/hookgate/delivery"
)

// EnvPrefix prefixes every environment override.
const EnvPrefix = "HOOKGATE_"

var envVarPattern = regexp.MustCompile(`\$\{([^}]+)\}`)

// Loader reads the configuration once at startup and again on Reload.
type Loader struct {
	path string

	mu      sync.RWMutex
	current Config
	loaded  bool
}

// NewLoader creates a loader for the YAML file at path. A missing file is
// not an error; defaults and the environment still apply.
func NewLoader(path string) *Loader {
	return &Loader{path: path}
}

// Load reads every source and makes the result current.
func (l *Loader) Load() (Config, error) {
	cfg, err := l.read()
	if err != nil {
		return Config{}, err
	}
	l.mu.Lock()
	l.current = cfg
	l.loaded = true
	l.mu.Unlock()
	return cfg, nil
}

// Reload re-reads every source. On error the current configuration is kept.
func (l *Loader) Reload() (Config, error) {
	return l.Load()
}

// Current returns a copy of the last loaded configuration, or Default if
// nothing has been loaded yet.
func (l *Loader) Current() Config {
	l.mu.RLock()
	defer l.mu.RUnlock()
	if !l.loaded {
		return Default()
	}
	cfg := l.current
	cfg.Gateway.Backoff = slices.Clone(cfg.Gateway.Backoff)
	cfg.Gateway.SensitiveFields = slices.Clone(cfg.Gateway.SensitiveFields)
	cfg.Notify.SMTP.To = slices.Clone(cfg.Notify.SMTP.To)
	return cfg
}

func (l *Loader) read() (Config, error) {
	k := koanf.New(".")

	if l.path != "" {
		if err := k.Load(file.Provider(l.path), yaml.Parser()); err != nil {
			if !errors.Is(err, fs.ErrNotExist) {
				return Config{}, err
			}
		}
	}

	if err := k.Load(env.Provider(EnvPrefix, ".", func(s string) string {
		return strings.ReplaceAll(strings.ToLower(strings.TrimPrefix(s, EnvPrefix)), "__", ".")
	}), nil); err != nil {
		return Config{}, err
	}

	cfg := Default()
	// Decoding into a non-nil slice reuses its backing array.
	cfg.Gateway.Backoff = nil
	if err := k.Unmarshal("", &cfg); err != nil {
		return Config{}, err
	}
	if len(cfg.Gateway.Backoff) == 0 {
		cfg.Gateway.Backoff = slices.Clone(delivery.DefaultBackoff)
	}

	cfg.Store.DSN = substituteEnvVars(cfg.Store.DSN)
	cfg.HTTP.AdminToken = substituteEnvVars(cfg.HTTP.AdminToken)
	cfg.Encryption.MasterKey = substituteEnvVars(cfg.Encryption.MasterKey)
	cfg.Notify.SMTP.Password = substituteEnvVars(cfg.Notify.SMTP.Password)
	cfg.Notify.ChatWebhookURL = substituteEnvVars(cfg.Notify.ChatWebhookURL)
	cfg.RateLimit.RedisURL = substituteEnvVars(cfg.RateLimit.RedisURL)

	if err := cfg.Validate(); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

func substituteEnvVars(s string) string {
	return envVarPattern.ReplaceAllStringFunc(s, func(match string) string {
		name := envVarPattern.FindStringSubmatch(match)[1]
		return os.Getenv(name)
	})
}
