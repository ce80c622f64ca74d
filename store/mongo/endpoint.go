package mongo

import (
	"context"
	"fmt"

	"go.mongodb.org/mongo-driver/v2/bson"

	"github.com/xraph/hookgate"
	"github.com/xraph/hookgate/endpoint"
	"github.com/xraph/hookgate/id"
)

// CreateEndpoint persists a new endpoint.
func (s *Store) CreateEndpoint(ctx context.Context, ep *endpoint.Endpoint) error {
	if _, err := s.mdb.NewInsert(toEndpointModel(ep)).Exec(ctx); err != nil {
		return fmt.Errorf("hookgate/mongo: create endpoint: %w", err)
	}

	return nil
}

// GetEndpoint returns an endpoint by ID.
func (s *Store) GetEndpoint(ctx context.Context, epID id.ID) (*endpoint.Endpoint, error) {
	var m endpointModel

	err := s.mdb.NewFind(&m).
		Filter(bson.M{"_id": epID.String()}).
		Scan(ctx)
	if err != nil {
		if isNoDocuments(err) {
			return nil, hookgate.ErrEndpointNotFound
		}

		return nil, fmt.Errorf("hookgate/mongo: get endpoint: %w", err)
	}

	return fromEndpointModel(&m)
}

// UpdateEndpoint replaces an endpoint document.
func (s *Store) UpdateEndpoint(ctx context.Context, ep *endpoint.Endpoint) error {
	m := toEndpointModel(ep)

	res, err := s.mdb.NewUpdate(m).
		Filter(bson.M{"_id": m.ID}).
		Exec(ctx)
	if err != nil {
		return fmt.Errorf("hookgate/mongo: update endpoint: %w", err)
	}

	if res.MatchedCount() == 0 {
		return hookgate.ErrEndpointNotFound
	}

	return nil
}

// DeleteEndpoint removes an endpoint.
func (s *Store) DeleteEndpoint(ctx context.Context, epID id.ID) error {
	res, err := s.mdb.NewDelete((*endpointModel)(nil)).
		Filter(bson.M{"_id": epID.String()}).
		Exec(ctx)
	if err != nil {
		return fmt.Errorf("hookgate/mongo: delete endpoint: %w", err)
	}

	if res.DeletedCount() == 0 {
		return hookgate.ErrEndpointNotFound
	}

	return nil
}

// ListEndpoints returns a project's endpoints oldest first.
func (s *Store) ListEndpoints(ctx context.Context, projectID id.ID, opts endpoint.ListOpts) ([]*endpoint.Endpoint, error) {
	var models []endpointModel

	filter := bson.M{"project_id": projectID.String()}
	if opts.Active != nil {
		filter["active"] = *opts.Active
	}

	q := s.mdb.NewFind(&models).
		Filter(filter).
		Sort(bson.D{{Key: "created_at", Value: 1}})

	if opts.Limit > 0 {
		q = q.Limit(int64(opts.Limit))
	}

	if opts.Offset > 0 {
		q = q.Skip(int64(opts.Offset))
	}

	if err := q.Scan(ctx); err != nil {
		return nil, fmt.Errorf("hookgate/mongo: list endpoints: %w", err)
	}

	return convert(models, fromEndpointModel)
}
