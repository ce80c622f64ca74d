package endpoint

import (
	"context"

	"github.com/xraph/hookgate/id"
)

// Store defines the persistence contract for endpoints.
type Store interface {
	CreateEndpoint(ctx context.Context, ep *Endpoint) error
	GetEndpoint(ctx context.Context, epID id.ID) (*Endpoint, error)
	UpdateEndpoint(ctx context.Context, ep *Endpoint) error
	DeleteEndpoint(ctx context.Context, epID id.ID) error

	// ListEndpoints returns a project's endpoints, oldest first.
	ListEndpoints(ctx context.Context, projectID id.ID, opts ListOpts) ([]*Endpoint, error)
}
