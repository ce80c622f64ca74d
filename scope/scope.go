// Package scope carries the authenticated project through a request context.
// Management handlers read it to restrict every query to the caller's
// project.
package scope

import (
	"context"

	"github.com/xraph/hookgate/id"
	"github.com/xraph/hookgate/project"
)

type ctxKey struct{}

// WithProject returns a context carrying p.
func WithProject(ctx context.Context, p *project.Project) context.Context {
	return context.WithValue(ctx, ctxKey{}, p)
}

// Project returns the project stored in ctx, if any.
func Project(ctx context.Context) (*project.Project, bool) {
	p, ok := ctx.Value(ctxKey{}).(*project.Project)
	return p, ok && p != nil
}

// ProjectID returns the ID of the project in ctx, or id.Nil.
func ProjectID(ctx context.Context) id.ID {
	if p, ok := Project(ctx); ok {
		return p.ID
	}
	return id.Nil
}

// Owns reports whether the project in ctx owns a resource of projectID.
// A context without a project owns nothing.
func Owns(ctx context.Context, projectID id.ID) bool {
	pid := ProjectID(ctx)
	return !pid.IsNil() && pid == projectID
}
