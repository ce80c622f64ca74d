package transform

import (
	"context"

	"github.com/xraph/hookgate/id"
)

// Store defines the persistence contract for transformations.
type Store interface {
	CreateTransformation(ctx context.Context, t *Transformation) error
	GetTransformation(ctx context.Context, transformID id.ID) (*Transformation, error)
	UpdateTransformation(ctx context.Context, t *Transformation) error
	DeleteTransformation(ctx context.Context, transformID id.ID) error

	// ListTransformations returns every transformation of an endpoint,
	// ordered by ascending priority.
	ListTransformations(ctx context.Context, endpointID id.ID) ([]*Transformation, error)
}
