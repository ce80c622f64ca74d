// Package store defines the composite Store interface for all hookgate
// persistence.
//
// Each subsystem defines its own store interface and the aggregate Store
// composes them all, so a backend is one type that satisfies every
// subsystem at once.
package store

import (
	"context"

	"github.com/xraph/hookgate/delivery"
	"github.com/xraph/hookgate/dlq"
	"github.com/xraph/hookgate/endpoint"
	"github.com/xraph/hookgate/event"
	"github.com/xraph/hookgate/project"
	"github.com/xraph/hookgate/routing"
	"github.com/xraph/hookgate/transform"
)

// Store is the aggregate persistence interface.
type Store interface {
	project.Store
	endpoint.Store
	routing.Store
	transform.Store
	event.Store
	delivery.Store
	dlq.Store

	// Migrate runs all schema migrations.
	Migrate(ctx context.Context) error

	// Ping checks database connectivity.
	Ping(ctx context.Context) error

	// Close closes the store connection.
	Close() error
}
