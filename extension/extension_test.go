package extension_test

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/xraph/hookgate"
	"github.com/xraph/hookgate/endpoint"
	"github.com/xraph/hookgate/extension"
	"github.com/xraph/hookgate/project"
	"github.com/xraph/hookgate/store/memory"
)

func TestInitRequiresStore(t *testing.T) {
	ext := extension.New()
	if err := ext.Init(context.Background()); !errors.Is(err, hookgate.ErrNoStore) {
		t.Fatalf("expected ErrNoStore, got %v", err)
	}
	if err := ext.Start(context.Background()); !errors.Is(err, extension.ErrNotInitialized) {
		t.Fatalf("expected ErrNotInitialized, got %v", err)
	}
}

func TestHandlerMountedUnderPrefix(t *testing.T) {
	ctx := context.Background()
	ext := extension.New(
		extension.WithStore(memory.New()),
		extension.WithPrefix("hooks/"),
	)
	if err := ext.Init(ctx); err != nil {
		t.Fatal(err)
	}
	if ext.BasePath() != "/hooks" {
		t.Fatalf("base path = %q", ext.BasePath())
	}
	if err := ext.Health(ctx); err != nil {
		t.Fatalf("health: %v", err)
	}

	gw := ext.Gateway()
	p, err := gw.Projects().Create(ctx, project.Input{Name: "billing"})
	if err != nil {
		t.Fatal(err)
	}
	ep, err := gw.Endpoints().Create(ctx, endpoint.Input{
		ProjectID:    p.ID,
		Name:         "orders",
		Destinations: []string{"https://static.example.com/hook"},
	})
	if err != nil {
		t.Fatal(err)
	}

	srv := httptest.NewServer(ext.Handler())
	defer srv.Close()

	resp, err := http.Post(srv.URL+"/hooks/ingest/"+ep.ID.String(), "application/json", strings.NewReader(`{"a":1}`))
	if err != nil {
		t.Fatal(err)
	}
	resp.Body.Close()
	if resp.StatusCode != http.StatusAccepted {
		t.Fatalf("expected 202, got %d", resp.StatusCode)
	}
}

func TestStartStop(t *testing.T) {
	ext := extension.New(extension.WithStore(memory.New()), extension.WithDisableMigrations())
	if err := ext.Init(context.Background()); err != nil {
		t.Fatal(err)
	}
	ctx, cancel := context.WithCancel(context.Background())
	if err := ext.Start(ctx); err != nil {
		t.Fatal(err)
	}
	cancel()
	if err := ext.Stop(context.Background()); err != nil {
		t.Fatalf("stop: %v", err)
	}
}
