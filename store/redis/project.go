package redis

import (
	"context"
	"fmt"

	goredis "github.com/redis/go-redis/v9"

	"github.com/xraph/hookgate"
	"github.com/xraph/hookgate/id"
	"github.com/xraph/hookgate/project"
)

// projectModel carries the credentials the domain type keeps out of JSON.
type projectModel struct {
	project.Project
	APIKey        string `json:"api_key"`
	SigningSecret string `json:"signing_secret"`
}

func toProjectModel(p *project.Project) *projectModel {
	return &projectModel{Project: *p, APIKey: p.APIKey, SigningSecret: p.SigningSecret}
}

func fromProjectModel(m *projectModel) *project.Project {
	p := m.Project
	p.APIKey = m.APIKey
	p.SigningSecret = m.SigningSecret
	return &p
}

func (s *Store) CreateProject(ctx context.Context, p *project.Project) error {
	m := toProjectModel(p)
	pid := p.ID.String()

	if err := s.setEntity(ctx, entityKey(prefixProject, pid), m); err != nil {
		return fmt.Errorf("hookgate/redis: create project: %w", err)
	}

	pipe := s.rdb.Pipeline()
	pipe.Set(ctx, uniqueProjectAPIKey+p.APIKey, pid, 0)
	pipe.ZAdd(ctx, zProjectAll, goredis.Z{Score: scoreFromTime(p.CreatedAt), Member: pid})
	if _, err := pipe.Exec(ctx); err != nil {
		return fmt.Errorf("hookgate/redis: create project indexes: %w", err)
	}
	return nil
}

func (s *Store) GetProject(ctx context.Context, projectID id.ID) (*project.Project, error) {
	var m projectModel
	if err := s.getEntity(ctx, entityKey(prefixProject, projectID.String()), &m); err != nil {
		if isNotFound(err) {
			return nil, hookgate.ErrProjectNotFound
		}
		return nil, fmt.Errorf("hookgate/redis: get project: %w", err)
	}
	return fromProjectModel(&m), nil
}

func (s *Store) GetProjectByAPIKey(ctx context.Context, apiKey string) (*project.Project, error) {
	pid, err := s.rdb.Get(ctx, uniqueProjectAPIKey+apiKey).Result()
	if err != nil {
		if isRedisNil(err) {
			return nil, hookgate.ErrProjectNotFound
		}
		return nil, fmt.Errorf("hookgate/redis: get project by api key: %w", err)
	}
	projectID, err := id.ParseProjectID(pid)
	if err != nil {
		return nil, fmt.Errorf("hookgate/redis: api key index: %w", err)
	}
	return s.GetProject(ctx, projectID)
}

// UpdateProject rewrites the project and moves the API key index when the
// key was rotated.
func (s *Store) UpdateProject(ctx context.Context, p *project.Project) error {
	key := entityKey(prefixProject, p.ID.String())

	var existing projectModel
	if err := s.getEntity(ctx, key, &existing); err != nil {
		if isNotFound(err) {
			return hookgate.ErrProjectNotFound
		}
		return fmt.Errorf("hookgate/redis: update project get: %w", err)
	}

	if err := s.setEntity(ctx, key, toProjectModel(p)); err != nil {
		return fmt.Errorf("hookgate/redis: update project: %w", err)
	}

	if existing.APIKey != p.APIKey {
		pipe := s.rdb.Pipeline()
		pipe.Del(ctx, uniqueProjectAPIKey+existing.APIKey)
		pipe.Set(ctx, uniqueProjectAPIKey+p.APIKey, p.ID.String(), 0)
		if _, err := pipe.Exec(ctx); err != nil {
			return fmt.Errorf("hookgate/redis: update project api key index: %w", err)
		}
	}
	return nil
}

func (s *Store) ListProjects(ctx context.Context, opts project.ListOpts) ([]*project.Project, error) {
	ids, err := s.rdb.ZRange(ctx, zProjectAll, 0, -1).Result()
	if err != nil {
		return nil, fmt.Errorf("hookgate/redis: list projects: %w", err)
	}
	models, err := loadAll[projectModel](ctx, s, prefixProject, ids)
	if err != nil {
		return nil, fmt.Errorf("hookgate/redis: list projects: %w", err)
	}
	result := make([]*project.Project, 0, len(models))
	for _, m := range models {
		result = append(result, fromProjectModel(m))
	}
	return applyPagination(result, opts.Offset, opts.Limit), nil
}
