package project_test

import (
	"context"
	"errors"
	"strings"
	"testing"
	"time"

	"github.com/xraph/hookgate/project"
	"github.com/xraph/hookgate/store/memory"
)

func TestCreateDefaults(t *testing.T) {
	svc := project.NewService(memory.New(), nil)
	p, err := svc.Create(context.Background(), project.Input{
		Name:      "shop",
		RateLimit: project.RateLimit{Requests: 100},
	})
	if err != nil {
		t.Fatal(err)
	}
	if !strings.HasPrefix(p.APIKey, "hk_") || len(p.APIKey) != 51 {
		t.Fatalf("unexpected api key %q", p.APIKey)
	}
	if !strings.HasPrefix(p.SigningSecret, "whsec_") {
		t.Fatalf("unexpected signing secret %q", p.SigningSecret)
	}
	if p.RateLimit.Window != time.Minute {
		t.Fatalf("window = %v, want 1m default", p.RateLimit.Window)
	}
	if p.Encryption.Mode != project.EncryptionNone || !p.Active {
		t.Fatalf("unexpected defaults: %+v", p)
	}
}

func TestCreateValidation(t *testing.T) {
	svc := project.NewService(memory.New(), nil)
	tests := []struct {
		name  string
		in    project.Input
		field string
	}{
		{"missing name", project.Input{}, "name"},
		{"negative limit", project.Input{Name: "x", RateLimit: project.RateLimit{Requests: -1}}, "rate_limit.requests"},
		{"bad mode", project.Input{Name: "x", Encryption: project.Encryption{Mode: "rot13"}}, "encryption.mode"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := svc.Create(context.Background(), tt.in)
			var ve *project.ValidationError
			if !errors.As(err, &ve) || ve.Field != tt.field {
				t.Fatalf("expected validation error on %s, got %v", tt.field, err)
			}
		})
	}
}

func TestAuthenticate(t *testing.T) {
	ctx := context.Background()
	svc := project.NewService(memory.New(), nil)
	p, err := svc.Create(ctx, project.Input{Name: "shop"})
	if err != nil {
		t.Fatal(err)
	}

	got, err := svc.Authenticate(ctx, p.APIKey)
	if err != nil || got.ID != p.ID {
		t.Fatalf("Authenticate: %v", err)
	}
	for _, key := range []string{"", "hk_nope"} {
		if _, err := svc.Authenticate(ctx, key); !errors.Is(err, project.ErrUnauthenticated) {
			t.Fatalf("key %q: expected ErrUnauthenticated, got %v", key, err)
		}
	}

	if err := svc.SetActive(ctx, p.ID, false); err != nil {
		t.Fatal(err)
	}
	if _, err := svc.Authenticate(ctx, p.APIKey); !errors.Is(err, project.ErrUnauthenticated) {
		t.Fatal("inactive project authenticated")
	}
}

func TestRotateAPIKey(t *testing.T) {
	ctx := context.Background()
	svc := project.NewService(memory.New(), nil)
	p, _ := svc.Create(ctx, project.Input{Name: "shop"})

	key, err := svc.RotateAPIKey(ctx, p.ID)
	if err != nil {
		t.Fatal(err)
	}
	if key == p.APIKey {
		t.Fatal("key not rotated")
	}
	if _, err := svc.Authenticate(ctx, p.APIKey); err == nil {
		t.Fatal("old key still accepted")
	}
	if _, err := svc.Authenticate(ctx, key); err != nil {
		t.Fatalf("new key rejected: %v", err)
	}
}
