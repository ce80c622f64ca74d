package mongo

import (
	"context"
	"errors"
	"fmt"
	"time"

	"go.mongodb.org/mongo-driver/v2/bson"
	"go.mongodb.org/mongo-driver/v2/mongo"
	"go.mongodb.org/mongo-driver/v2/mongo/options"

	"github.com/xraph/grove"
	"github.com/xraph/grove/drivers/mongodriver"

	"github.com/xraph/hookgate"
	"github.com/xraph/hookgate/store"
)

// Collection name constants.
const (
	colProjects        = "hookgate_projects"
	colEndpoints       = "hookgate_endpoints"
	colRules           = "hookgate_routing_rules"
	colTransformations = "hookgate_transformations"
	colEvents          = "hookgate_events"
	colDeliveries      = "hookgate_event_deliveries"
	colDLQ             = "hookgate_dlq"
)

// Compile-time interface check.
var _ store.Store = (*Store)(nil)

// Store implements store.Store using MongoDB via Grove ORM.
type Store struct {
	db  *grove.DB
	mdb *mongodriver.MongoDB
}

// New creates a new MongoDB store backed by Grove ORM.
func New(db *grove.DB) *Store {
	return &Store{
		db:  db,
		mdb: mongodriver.Unwrap(db),
	}
}

// DB returns the underlying grove database for direct access.
func (s *Store) DB() *grove.DB { return s.db }

// Migrate creates indexes for all hookgate collections.
func (s *Store) Migrate(ctx context.Context) error {
	for col, models := range migrationIndexes() {
		if len(models) == 0 {
			continue
		}

		if _, err := s.mdb.Collection(col).Indexes().CreateMany(ctx, models); err != nil {
			return fmt.Errorf("%w: mongo: %s indexes: %w", hookgate.ErrMigrationFailed, col, err)
		}
	}

	return nil
}

// Ping checks database connectivity.
func (s *Store) Ping(ctx context.Context) error {
	return s.db.Ping(ctx)
}

// Close closes the database connection.
func (s *Store) Close() error {
	return s.db.Close()
}

// isNoDocuments checks if an error wraps mongo.ErrNoDocuments.
func isNoDocuments(err error) bool {
	return errors.Is(err, mongo.ErrNoDocuments)
}

// timeRange builds a $gte/$lte filter, or nil when both bounds are open.
func timeRange(from, to *time.Time) bson.M {
	if from == nil && to == nil {
		return nil
	}

	r := bson.M{}
	if from != nil {
		r["$gte"] = *from
	}

	if to != nil {
		r["$lte"] = *to
	}

	return r
}

func convert[M, T any](models []M, from func(*M) (*T, error)) ([]*T, error) {
	result := make([]*T, 0, len(models))

	for i := range models {
		v, err := from(&models[i])
		if err != nil {
			return nil, err
		}

		result = append(result, v)
	}

	return result, nil
}

// migrationIndexes returns the index definitions for all hookgate collections.
func migrationIndexes() map[string][]mongo.IndexModel {
	return map[string][]mongo.IndexModel{
		colProjects: {
			{
				Keys:    bson.D{{Key: "api_key", Value: 1}},
				Options: options.Index().SetUnique(true),
			},
			{Keys: bson.D{{Key: "created_at", Value: 1}}},
		},
		colEndpoints: {
			{Keys: bson.D{{Key: "project_id", Value: 1}, {Key: "created_at", Value: 1}}},
		},
		colRules: {
			{Keys: bson.D{{Key: "endpoint_id", Value: 1}, {Key: "priority", Value: 1}, {Key: "created_at", Value: 1}}},
		},
		colTransformations: {
			{Keys: bson.D{{Key: "endpoint_id", Value: 1}, {Key: "priority", Value: 1}, {Key: "created_at", Value: 1}}},
		},
		colEvents: {
			{Keys: bson.D{{Key: "status", Value: 1}, {Key: "next_attempt_at", Value: 1}}},
			{Keys: bson.D{{Key: "status", Value: 1}, {Key: "last_attempt_at", Value: 1}}},
			{Keys: bson.D{{Key: "project_id", Value: 1}, {Key: "created_at", Value: -1}}},
			{Keys: bson.D{{Key: "endpoint_id", Value: 1}}},
		},
		colDeliveries: {
			{Keys: bson.D{{Key: "event_id", Value: 1}, {Key: "destination", Value: 1}}},
			{Keys: bson.D{{Key: "event_id", Value: 1}, {Key: "attempted_at", Value: 1}}},
		},
		colDLQ: {
			{Keys: bson.D{{Key: "project_id", Value: 1}, {Key: "failed_at", Value: -1}}},
			{Keys: bson.D{{Key: "endpoint_id", Value: 1}}},
			{Keys: bson.D{{Key: "failed_at", Value: 1}}},
		},
	}
}
