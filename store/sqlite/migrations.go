package sqlite

import (
	"context"

	"github.com/xraph/grove/migrate"
)

// Migrations is the grove migration group for the hookgate store (SQLite).
var Migrations = migrate.NewGroup("hookgate")

func init() {
	Migrations.MustRegister(
		&migrate.Migration{
			Name:    "create_hookgate_projects",
			Version: "20250101000001",
			Up: func(ctx context.Context, exec migrate.Executor) error {
				_, err := exec.Exec(ctx, `
CREATE TABLE IF NOT EXISTS hookgate_projects (
    id                   TEXT PRIMARY KEY,
    name                 TEXT NOT NULL,
    api_key              TEXT NOT NULL UNIQUE,
    signing_secret       TEXT NOT NULL DEFAULT '',
    active               INTEGER NOT NULL DEFAULT 1,
    rate_limit_requests  INTEGER NOT NULL DEFAULT 0,
    rate_limit_window_ms INTEGER NOT NULL DEFAULT 0,
    permissions          TEXT NOT NULL DEFAULT '[]',
    encryption_mode      TEXT NOT NULL DEFAULT 'none',
    encryption_fields    TEXT NOT NULL DEFAULT '[]',
    created_at           TEXT NOT NULL DEFAULT (datetime('now')),
    updated_at           TEXT NOT NULL DEFAULT (datetime('now'))
);
`)
				return err
			},
			Down: func(ctx context.Context, exec migrate.Executor) error {
				_, err := exec.Exec(ctx, `DROP TABLE IF EXISTS hookgate_projects`)
				return err
			},
		},
		&migrate.Migration{
			Name:    "create_hookgate_endpoints",
			Version: "20250101000002",
			Up: func(ctx context.Context, exec migrate.Executor) error {
				_, err := exec.Exec(ctx, `
CREATE TABLE IF NOT EXISTS hookgate_endpoints (
    id             TEXT PRIMARY KEY,
    project_id     TEXT NOT NULL REFERENCES hookgate_projects (id) ON DELETE CASCADE,
    name           TEXT NOT NULL,
    destinations   TEXT NOT NULL DEFAULT '[]',
    auth_method    TEXT NOT NULL DEFAULT 'none',
    auth_secret    TEXT NOT NULL DEFAULT '',
    active         INTEGER NOT NULL DEFAULT 1,
    max_tries      INTEGER NOT NULL DEFAULT 0,
    headers        TEXT NOT NULL DEFAULT '{}',
    payload_schema TEXT,
    metadata       TEXT NOT NULL DEFAULT '{}',
    created_at     TEXT NOT NULL DEFAULT (datetime('now')),
    updated_at     TEXT NOT NULL DEFAULT (datetime('now'))
);

CREATE INDEX IF NOT EXISTS idx_hookgate_endpoints_project ON hookgate_endpoints (project_id);
`)
				return err
			},
			Down: func(ctx context.Context, exec migrate.Executor) error {
				_, err := exec.Exec(ctx, `DROP TABLE IF EXISTS hookgate_endpoints`)
				return err
			},
		},
		&migrate.Migration{
			Name:    "create_hookgate_routing_rules",
			Version: "20250101000003",
			Up: func(ctx context.Context, exec migrate.Executor) error {
				_, err := exec.Exec(ctx, `
CREATE TABLE IF NOT EXISTS hookgate_routing_rules (
    id              TEXT PRIMARY KEY,
    endpoint_id     TEXT NOT NULL REFERENCES hookgate_endpoints (id) ON DELETE CASCADE,
    name            TEXT NOT NULL DEFAULT '',
    action          TEXT NOT NULL DEFAULT 'route',
    priority        INTEGER NOT NULL DEFAULT 0,
    active          INTEGER NOT NULL DEFAULT 1,
    conditions      TEXT NOT NULL DEFAULT '[]',
    destinations    TEXT NOT NULL DEFAULT '[]',
    match_count     INTEGER NOT NULL DEFAULT 0,
    last_matched_at TEXT,
    created_at      TEXT NOT NULL DEFAULT (datetime('now')),
    updated_at      TEXT NOT NULL DEFAULT (datetime('now'))
);

CREATE INDEX IF NOT EXISTS idx_hookgate_rules_endpoint ON hookgate_routing_rules (endpoint_id, priority);
`)
				return err
			},
			Down: func(ctx context.Context, exec migrate.Executor) error {
				_, err := exec.Exec(ctx, `DROP TABLE IF EXISTS hookgate_routing_rules`)
				return err
			},
		},
		&migrate.Migration{
			Name:    "create_hookgate_transformations",
			Version: "20250101000004",
			Up: func(ctx context.Context, exec migrate.Executor) error {
				_, err := exec.Exec(ctx, `
CREATE TABLE IF NOT EXISTS hookgate_transformations (
    id          TEXT PRIMARY KEY,
    endpoint_id TEXT NOT NULL REFERENCES hookgate_endpoints (id) ON DELETE CASCADE,
    name        TEXT NOT NULL DEFAULT '',
    kind        TEXT NOT NULL,
    priority    INTEGER NOT NULL DEFAULT 0,
    active      INTEGER NOT NULL DEFAULT 0,
    conditions  TEXT NOT NULL DEFAULT '[]',
    config      TEXT,
    fixtures    TEXT NOT NULL DEFAULT '[]',
    created_at  TEXT NOT NULL DEFAULT (datetime('now')),
    updated_at  TEXT NOT NULL DEFAULT (datetime('now'))
);

CREATE INDEX IF NOT EXISTS idx_hookgate_transformations_endpoint ON hookgate_transformations (endpoint_id, priority);
`)
				return err
			},
			Down: func(ctx context.Context, exec migrate.Executor) error {
				_, err := exec.Exec(ctx, `DROP TABLE IF EXISTS hookgate_transformations`)
				return err
			},
		},
		&migrate.Migration{
			Name:    "create_hookgate_events",
			Version: "20250101000005",
			Up: func(ctx context.Context, exec migrate.Executor) error {
				_, err := exec.Exec(ctx, `
CREATE TABLE IF NOT EXISTS hookgate_events (
    id                TEXT PRIMARY KEY,
    project_id        TEXT NOT NULL,
    endpoint_id       TEXT NOT NULL,
    type              TEXT NOT NULL DEFAULT '',
    payload           TEXT,
    sealed            TEXT NOT NULL DEFAULT '',
    encryption        TEXT NOT NULL DEFAULT 'none',
    headers           TEXT NOT NULL DEFAULT '{}',
    source_ip         TEXT NOT NULL DEFAULT '',
    destinations      TEXT NOT NULL DEFAULT '[]',
    status            TEXT NOT NULL DEFAULT 'pending',
    delivery_attempts INTEGER NOT NULL DEFAULT 0,
    max_tries         INTEGER NOT NULL DEFAULT 0,
    exceptions        INTEGER NOT NULL DEFAULT 0,
    next_attempt_at   TEXT NOT NULL DEFAULT (datetime('now')),
    last_attempt_at   TEXT,
    delivered_at      TEXT,
    failed_at         TEXT,
    replay_of         TEXT NOT NULL DEFAULT '',
    created_at        TEXT NOT NULL DEFAULT (datetime('now')),
    updated_at        TEXT NOT NULL DEFAULT (datetime('now'))
);

CREATE INDEX IF NOT EXISTS idx_hookgate_events_due ON hookgate_events (next_attempt_at) WHERE status IN ('pending', 'failed');
CREATE INDEX IF NOT EXISTS idx_hookgate_events_processing ON hookgate_events (last_attempt_at) WHERE status = 'processing';
CREATE INDEX IF NOT EXISTS idx_hookgate_events_project ON hookgate_events (project_id, created_at DESC);
CREATE INDEX IF NOT EXISTS idx_hookgate_events_endpoint ON hookgate_events (endpoint_id);
`)
				return err
			},
			Down: func(ctx context.Context, exec migrate.Executor) error {
				_, err := exec.Exec(ctx, `DROP TABLE IF EXISTS hookgate_events`)
				return err
			},
		},
		&migrate.Migration{
			Name:    "create_hookgate_event_deliveries",
			Version: "20250101000006",
			Up: func(ctx context.Context, exec migrate.Executor) error {
				_, err := exec.Exec(ctx, `
CREATE TABLE IF NOT EXISTS hookgate_event_deliveries (
    id               TEXT PRIMARY KEY,
    event_id         TEXT NOT NULL,
    endpoint_id      TEXT NOT NULL,
    project_id       TEXT NOT NULL,
    destination      TEXT NOT NULL,
    attempt_number   INTEGER NOT NULL,
    status           TEXT NOT NULL,
    response_code    INTEGER NOT NULL DEFAULT 0,
    response_body    TEXT NOT NULL DEFAULT '',
    response_headers TEXT NOT NULL DEFAULT '{}',
    error_message    TEXT NOT NULL DEFAULT '',
    latency_ms       INTEGER NOT NULL DEFAULT 0,
    attempted_at     TEXT NOT NULL DEFAULT (datetime('now'))
);

CREATE INDEX IF NOT EXISTS idx_hookgate_deliveries_event ON hookgate_event_deliveries (event_id, destination);
`)
				return err
			},
			Down: func(ctx context.Context, exec migrate.Executor) error {
				_, err := exec.Exec(ctx, `DROP TABLE IF EXISTS hookgate_event_deliveries`)
				return err
			},
		},
		&migrate.Migration{
			Name:    "create_hookgate_dlq",
			Version: "20250101000007",
			Up: func(ctx context.Context, exec migrate.Executor) error {
				_, err := exec.Exec(ctx, `
CREATE TABLE IF NOT EXISTS hookgate_dlq (
    id           TEXT PRIMARY KEY,
    event_id     TEXT NOT NULL,
    project_id   TEXT NOT NULL,
    endpoint_id  TEXT NOT NULL,
    event_type   TEXT NOT NULL DEFAULT '',
    payload      TEXT,
    sealed       TEXT NOT NULL DEFAULT '',
    encryption   TEXT NOT NULL DEFAULT 'none',
    destinations TEXT NOT NULL DEFAULT '[]',
    reason       TEXT NOT NULL DEFAULT '',
    attempts     INTEGER NOT NULL DEFAULT 0,
    deliveries   TEXT NOT NULL DEFAULT '[]',
    failed_at    TEXT NOT NULL DEFAULT (datetime('now')),
    replayed_at  TEXT,
    created_at   TEXT NOT NULL DEFAULT (datetime('now')),
    updated_at   TEXT NOT NULL DEFAULT (datetime('now'))
);

CREATE INDEX IF NOT EXISTS idx_hookgate_dlq_project ON hookgate_dlq (project_id, failed_at DESC);
CREATE INDEX IF NOT EXISTS idx_hookgate_dlq_pending ON hookgate_dlq (failed_at) WHERE replayed_at IS NULL;
`)
				return err
			},
			Down: func(ctx context.Context, exec migrate.Executor) error {
				_, err := exec.Exec(ctx, `DROP TABLE IF EXISTS hookgate_dlq`)
				return err
			},
		},
	)
}
