package redis

import (
	"context"
	"fmt"

	goredis "github.com/redis/go-redis/v9"

	"github.com/xraph/hookgate"
	"github.com/xraph/hookgate/endpoint"
	"github.com/xraph/hookgate/id"
)

// endpointModel carries the auth secret the domain type keeps out of JSON.
type endpointModel struct {
	endpoint.Endpoint
	AuthSecret string `json:"auth_secret"`
}

func toEndpointModel(ep *endpoint.Endpoint) *endpointModel {
	return &endpointModel{Endpoint: *ep, AuthSecret: ep.AuthSecret}
}

func fromEndpointModel(m *endpointModel) *endpoint.Endpoint {
	ep := m.Endpoint
	ep.AuthSecret = m.AuthSecret
	return &ep
}

func (s *Store) CreateEndpoint(ctx context.Context, ep *endpoint.Endpoint) error {
	epID := ep.ID.String()
	if err := s.setEntity(ctx, entityKey(prefixEndpoint, epID), toEndpointModel(ep)); err != nil {
		return fmt.Errorf("hookgate/redis: create endpoint: %w", err)
	}
	err := s.rdb.ZAdd(ctx, zEndpointProject+ep.ProjectID.String(), goredis.Z{
		Score:  scoreFromTime(ep.CreatedAt),
		Member: epID,
	}).Err()
	if err != nil {
		return fmt.Errorf("hookgate/redis: create endpoint indexes: %w", err)
	}
	return nil
}

func (s *Store) GetEndpoint(ctx context.Context, epID id.ID) (*endpoint.Endpoint, error) {
	var m endpointModel
	if err := s.getEntity(ctx, entityKey(prefixEndpoint, epID.String()), &m); err != nil {
		if isNotFound(err) {
			return nil, hookgate.ErrEndpointNotFound
		}
		return nil, fmt.Errorf("hookgate/redis: get endpoint: %w", err)
	}
	return fromEndpointModel(&m), nil
}

func (s *Store) UpdateEndpoint(ctx context.Context, ep *endpoint.Endpoint) error {
	key := entityKey(prefixEndpoint, ep.ID.String())

	exists, err := s.rdb.Exists(ctx, key).Result()
	if err != nil {
		return fmt.Errorf("hookgate/redis: update endpoint get: %w", err)
	}
	if exists == 0 {
		return hookgate.ErrEndpointNotFound
	}

	if err := s.setEntity(ctx, key, toEndpointModel(ep)); err != nil {
		return fmt.Errorf("hookgate/redis: update endpoint: %w", err)
	}
	return nil
}

func (s *Store) DeleteEndpoint(ctx context.Context, epID id.ID) error {
	ep, err := s.GetEndpoint(ctx, epID)
	if err != nil {
		return err
	}

	if err := s.kv.Delete(ctx, entityKey(prefixEndpoint, epID.String())); err != nil {
		return fmt.Errorf("hookgate/redis: delete endpoint: %w", err)
	}
	if err := s.rdb.ZRem(ctx, zEndpointProject+ep.ProjectID.String(), epID.String()).Err(); err != nil {
		return fmt.Errorf("hookgate/redis: delete endpoint indexes: %w", err)
	}
	return nil
}

func (s *Store) ListEndpoints(ctx context.Context, projectID id.ID, opts endpoint.ListOpts) ([]*endpoint.Endpoint, error) {
	ids, err := s.rdb.ZRange(ctx, zEndpointProject+projectID.String(), 0, -1).Result()
	if err != nil {
		return nil, fmt.Errorf("hookgate/redis: list endpoints: %w", err)
	}
	models, err := loadAll[endpointModel](ctx, s, prefixEndpoint, ids)
	if err != nil {
		return nil, fmt.Errorf("hookgate/redis: list endpoints: %w", err)
	}

	result := make([]*endpoint.Endpoint, 0, len(models))
	for _, m := range models {
		if opts.Active != nil && m.Active != *opts.Active {
			continue
		}
		result = append(result, fromEndpointModel(m))
	}
	return applyPagination(result, opts.Offset, opts.Limit), nil
}
