package project

import (
	"context"

	"github.com/xraph/hookgate/id"
)

// Store defines persistence for projects.
type Store interface {
	CreateProject(ctx context.Context, p *Project) error
	GetProject(ctx context.Context, projectID id.ID) (*Project, error)

	// GetProjectByAPIKey is the hot path of management authentication.
	GetProjectByAPIKey(ctx context.Context, apiKey string) (*Project, error)

	UpdateProject(ctx context.Context, p *Project) error
	ListProjects(ctx context.Context, opts ListOpts) ([]*Project, error)
}
