package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/xraph/hookgate/delivery"
)

func writeFile(t *testing.T, body string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "hookgate.yaml")
	if err := os.WriteFile(path, []byte(body), 0o600); err != nil {
		t.Fatal(err)
	}
	return path
}

func TestLoadDefaultsWithoutFile(t *testing.T) {
	cfg, err := NewLoader(filepath.Join(t.TempDir(), "missing.yaml")).Load()
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if cfg.Store.Driver != DriverMemory {
		t.Fatalf("driver = %q, want memory", cfg.Store.Driver)
	}
	if cfg.HTTP.Addr != ":8080" {
		t.Fatalf("addr = %q", cfg.HTTP.Addr)
	}
	if cfg.Gateway.MaxTries != 5 || cfg.Gateway.RequestTimeout != 30*time.Second {
		t.Fatalf("gateway defaults not applied: %+v", cfg.Gateway)
	}
	if len(cfg.Gateway.Backoff) != len(delivery.DefaultBackoff) {
		t.Fatalf("backoff = %v", cfg.Gateway.Backoff)
	}
}

func TestLoadFileAndEnv(t *testing.T) {
	path := writeFile(t, `
gateway:
  concurrency: 4
  poll_interval: 250ms
  backoff: [1s, 5s]
store:
  driver: postgres
  dsn: ${HOOKGATE_TEST_DSN}
http:
  addr: ":9090"
notify:
  smtp:
    host: smtp.example.com
    to: [ops@example.com]
`)
	t.Setenv("HOOKGATE_TEST_DSN", "postgres://localhost/hookgate")
	t.Setenv("HOOKGATE_HTTP__ADMIN_TOKEN", "from-env")
	t.Setenv("HOOKGATE_GATEWAY__MAX_TRIES", "9")

	cfg, err := NewLoader(path).Load()
	if err != nil {
		t.Fatalf("Load: %v", err)
	}

	if cfg.Gateway.Concurrency != 4 || cfg.Gateway.PollInterval != 250*time.Millisecond {
		t.Fatalf("gateway = %+v", cfg.Gateway)
	}
	if cfg.Gateway.MaxTries != 9 {
		t.Fatalf("env override ignored: max_tries = %d", cfg.Gateway.MaxTries)
	}
	if got := cfg.Gateway.Backoff; len(got) != 2 || got[1] != 5*time.Second {
		t.Fatalf("backoff = %v", got)
	}
	if cfg.Store.DSN != "postgres://localhost/hookgate" {
		t.Fatalf("dsn = %q", cfg.Store.DSN)
	}
	if cfg.HTTP.Addr != ":9090" || cfg.HTTP.AdminToken != "from-env" {
		t.Fatalf("http = %+v", cfg.HTTP)
	}
	if cfg.Notify.SMTP.Port != 587 || len(cfg.Notify.SMTP.To) != 1 {
		t.Fatalf("smtp = %+v", cfg.Notify.SMTP)
	}
	if len(delivery.DefaultBackoff) == 2 {
		t.Fatal("loading mutated the package default backoff")
	}
}

func TestLoadRejectsInvalid(t *testing.T) {
	tests := map[string]string{
		"unknown driver":   "store:\n  driver: cassandra\n",
		"missing dsn":      "store:\n  driver: redis\n",
		"short master key": "encryption:\n  master_key: short\n",
		"unknown backend":  "ratelimit:\n  backend: memcached\n",
	}
	for name, body := range tests {
		t.Run(name, func(t *testing.T) {
			if _, err := NewLoader(writeFile(t, body)).Load(); err == nil {
				t.Fatal("expected validation error")
			}
		})
	}
}

func TestReloadKeepsCurrentOnError(t *testing.T) {
	path := writeFile(t, "http:\n  addr: \":7000\"\n")
	l := NewLoader(path)
	if _, err := l.Load(); err != nil {
		t.Fatal(err)
	}

	if err := os.WriteFile(path, []byte("store:\n  driver: nope\n"), 0o600); err != nil {
		t.Fatal(err)
	}
	if _, err := l.Reload(); err == nil {
		t.Fatal("expected reload error")
	}
	if got := l.Current().HTTP.Addr; got != ":7000" {
		t.Fatalf("current addr = %q, want :7000", got)
	}

	if err := os.WriteFile(path, []byte("http:\n  addr: \":7001\"\n"), 0o600); err != nil {
		t.Fatal(err)
	}
	if _, err := l.Reload(); err != nil {
		t.Fatal(err)
	}
	if got := l.Current().HTTP.Addr; got != ":7001" {
		t.Fatalf("current addr = %q, want :7001", got)
	}
}

func TestCurrentBeforeLoad(t *testing.T) {
	if got := NewLoader("").Current().Store.Driver; got != DriverMemory {
		t.Fatalf("driver = %q", got)
	}
}
