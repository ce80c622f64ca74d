package scope

import (
	"context"
	"testing"

	"github.com/xraph/hookgate/id"
	"github.com/xraph/hookgate/project"
)

func TestProjectRoundTrip(t *testing.T) {
	p := &project.Project{ID: id.NewProjectID()}
	ctx := WithProject(context.Background(), p)

	got, ok := Project(ctx)
	if !ok || got != p {
		t.Fatal("expected project from context")
	}
	if !Owns(ctx, p.ID) {
		t.Fatal("expected ownership of own project")
	}
	if Owns(ctx, id.NewProjectID()) {
		t.Fatal("unexpected ownership of foreign project")
	}
}

func TestEmptyContext(t *testing.T) {
	ctx := context.Background()
	if _, ok := Project(ctx); ok {
		t.Fatal("expected no project")
	}
	if !ProjectID(ctx).IsNil() {
		t.Fatal("expected nil id")
	}
	if Owns(ctx, id.Nil) {
		t.Fatal("empty context must own nothing")
	}
}
