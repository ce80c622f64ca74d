package mongo

import (
	"context"
	"fmt"

	"go.mongodb.org/mongo-driver/v2/bson"

	"github.com/xraph/hookgate"
	"github.com/xraph/hookgate/id"
	"github.com/xraph/hookgate/project"
)

// CreateProject persists a new project.
func (s *Store) CreateProject(ctx context.Context, p *project.Project) error {
	if _, err := s.mdb.NewInsert(toProjectModel(p)).Exec(ctx); err != nil {
		return fmt.Errorf("hookgate/mongo: create project: %w", err)
	}

	return nil
}

// GetProject returns a project by ID.
func (s *Store) GetProject(ctx context.Context, projectID id.ID) (*project.Project, error) {
	return s.findProject(ctx, bson.M{"_id": projectID.String()})
}

// GetProjectByAPIKey returns the project holding apiKey.
func (s *Store) GetProjectByAPIKey(ctx context.Context, apiKey string) (*project.Project, error) {
	return s.findProject(ctx, bson.M{"api_key": apiKey})
}

func (s *Store) findProject(ctx context.Context, filter bson.M) (*project.Project, error) {
	var m projectModel

	if err := s.mdb.NewFind(&m).Filter(filter).Scan(ctx); err != nil {
		if isNoDocuments(err) {
			return nil, hookgate.ErrProjectNotFound
		}

		return nil, fmt.Errorf("hookgate/mongo: get project: %w", err)
	}

	return fromProjectModel(&m)
}

// UpdateProject replaces a project document.
func (s *Store) UpdateProject(ctx context.Context, p *project.Project) error {
	m := toProjectModel(p)

	res, err := s.mdb.NewUpdate(m).
		Filter(bson.M{"_id": m.ID}).
		Exec(ctx)
	if err != nil {
		return fmt.Errorf("hookgate/mongo: update project: %w", err)
	}

	if res.MatchedCount() == 0 {
		return hookgate.ErrProjectNotFound
	}

	return nil
}

// ListProjects returns projects oldest first.
func (s *Store) ListProjects(ctx context.Context, opts project.ListOpts) ([]*project.Project, error) {
	var models []projectModel

	q := s.mdb.NewFind(&models).
		Filter(bson.M{}).
		Sort(bson.D{{Key: "created_at", Value: 1}})

	if opts.Limit > 0 {
		q = q.Limit(int64(opts.Limit))
	}

	if opts.Offset > 0 {
		q = q.Skip(int64(opts.Offset))
	}

	if err := q.Scan(ctx); err != nil {
		return nil, fmt.Errorf("hookgate/mongo: list projects: %w", err)
	}

	return convert(models, fromProjectModel)
}
