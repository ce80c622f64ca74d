package project

import (
	"context"
	"crypto/rand"
	"crypto/subtle"
	"encoding/hex"
	"errors"
	"log/slog"
	"time"

	"github.com/xraph/hookgate/id"
	"github.com/xraph/hookgate/internal/entity"
	"github.com/xraph/hookgate/signature"
)

// ErrUnauthenticated is returned by Authenticate for unknown, mismatched or
// inactive keys.
var ErrUnauthenticated = errors.New("project: invalid or inactive api key")

// Input is the creation payload for a project.
type Input struct {
	Name        string     `json:"name"`
	RateLimit   RateLimit  `json:"rate_limit"`
	Permissions []string   `json:"permissions,omitempty"`
	Encryption  Encryption `json:"encryption"`
}

// Service manages projects.
type Service struct {
	store  Store
	logger *slog.Logger
}

// NewService creates a project service.
func NewService(store Store, logger *slog.Logger) *Service {
	if logger == nil {
		logger = slog.Default()
	}
	return &Service{store: store, logger: logger}
}

// Create registers a project with a fresh API key and signing secret.
func (svc *Service) Create(ctx context.Context, in Input) (*Project, error) {
	if in.Name == "" {
		return nil, &ValidationError{Field: "name", Message: "required"}
	}
	if in.RateLimit.Requests < 0 {
		return nil, &ValidationError{Field: "rate_limit.requests", Message: "must not be negative"}
	}
	if in.RateLimit.Requests > 0 && in.RateLimit.Window <= 0 {
		in.RateLimit.Window = time.Minute
	}

	switch in.Encryption.Mode {
	case "":
		in.Encryption.Mode = EncryptionNone
	case EncryptionNone, EncryptionFields, EncryptionDocument:
	default:
		return nil, &ValidationError{Field: "encryption.mode", Message: "must be none, fields or document"}
	}

	p := &Project{
		Entity:        entity.New(),
		ID:            id.NewProjectID(),
		Name:          in.Name,
		APIKey:        GenerateAPIKey(),
		SigningSecret: signature.GenerateSecret(),
		Active:        true,
		RateLimit:     in.RateLimit,
		Permissions:   in.Permissions,
		Encryption:    in.Encryption,
	}
	if err := svc.store.CreateProject(ctx, p); err != nil {
		return nil, err
	}

	svc.logger.InfoContext(ctx, "project created", "project_id", p.ID, "name", p.Name)
	return p, nil
}

// Get returns a project by ID.
func (svc *Service) Get(ctx context.Context, projectID id.ID) (*Project, error) {
	return svc.store.GetProject(ctx, projectID)
}

// List returns projects.
func (svc *Service) List(ctx context.Context, opts ListOpts) ([]*Project, error) {
	return svc.store.ListProjects(ctx, opts)
}

// Authenticate resolves an active project from its API key.
func (svc *Service) Authenticate(ctx context.Context, apiKey string) (*Project, error) {
	if apiKey == "" {
		return nil, ErrUnauthenticated
	}
	p, err := svc.store.GetProjectByAPIKey(ctx, apiKey)
	if err != nil {
		return nil, ErrUnauthenticated
	}
	if subtle.ConstantTimeCompare([]byte(p.APIKey), []byte(apiKey)) != 1 || !p.Active {
		return nil, ErrUnauthenticated
	}
	return p, nil
}

// SetActive toggles a project. Inactive projects reject ingestion and
// management calls.
func (svc *Service) SetActive(ctx context.Context, projectID id.ID, active bool) error {
	p, err := svc.store.GetProject(ctx, projectID)
	if err != nil {
		return err
	}
	p.Active = active
	p.Touch()
	return svc.store.UpdateProject(ctx, p)
}

// RotateAPIKey issues a new management key and returns it.
func (svc *Service) RotateAPIKey(ctx context.Context, projectID id.ID) (string, error) {
	p, err := svc.store.GetProject(ctx, projectID)
	if err != nil {
		return "", err
	}
	p.APIKey = GenerateAPIKey()
	p.Touch()
	if err := svc.store.UpdateProject(ctx, p); err != nil {
		return "", err
	}
	return p.APIKey, nil
}

// GenerateAPIKey returns "hk_" followed by 48 random hex characters.
func GenerateAPIKey() string {
	b := make([]byte, 24)
	if _, err := rand.Read(b); err != nil {
		panic("project: crypto/rand failed: " + err.Error())
	}
	return "hk_" + hex.EncodeToString(b)
}

// ValidationError indicates invalid input.
type ValidationError struct {
	Field   string
	Message string
}

func (e *ValidationError) Error() string {
	return "project validation: " + e.Field + ": " + e.Message
}
