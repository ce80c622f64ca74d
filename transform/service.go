package transform

import (
	"context"
	"encoding/json"
	"log/slog"
	"time"

	"github.com/xraph/hookgate/condition"
	"github.com/xraph/hookgate/id"
	"github.com/xraph/hookgate/internal/entity"
)

// CreateInput is the creation payload for a transformation. New
// transformations start inactive unless Active is set and every fixture
// passes.
type CreateInput struct {
	EndpointID id.ID                 `json:"endpoint_id"`
	Name       string                `json:"name"`
	Kind       Kind                  `json:"kind"`
	Priority   int                   `json:"priority"`
	Active     bool                  `json:"active"`
	Conditions []condition.Condition `json:"conditions,omitempty"`
	Config     json.RawMessage       `json:"config"`
	Fixtures   []Fixture             `json:"fixtures,omitempty"`
}

// Service manages transformations.
type Service struct {
	store  Store
	logger *slog.Logger
}

// NewService creates a transformation service.
func NewService(store Store, logger *slog.Logger) *Service {
	if logger == nil {
		logger = slog.Default()
	}
	return &Service{store: store, logger: logger}
}

// Create validates and stores a transformation.
func (svc *Service) Create(ctx context.Context, in CreateInput) (*Transformation, error) {
	if in.EndpointID.IsNil() {
		return nil, &ValidationError{Field: "endpoint_id", Message: "required"}
	}
	if in.Name == "" {
		return nil, &ValidationError{Field: "name", Message: "required"}
	}

	t := &Transformation{
		Entity:     entity.New(),
		ID:         id.NewTransformationID(),
		EndpointID: in.EndpointID,
		Name:       in.Name,
		Kind:       in.Kind,
		Priority:   in.Priority,
		Conditions: in.Conditions,
		Config:     in.Config,
		Fixtures:   in.Fixtures,
	}
	if err := Validate(t); err != nil {
		return nil, &ValidationError{Field: "config", Message: err.Error()}
	}
	if in.Active {
		if err := activatable(t); err != nil {
			return nil, err
		}
		t.Active = true
	}

	if err := svc.store.CreateTransformation(ctx, t); err != nil {
		return nil, err
	}
	svc.logger.InfoContext(ctx, "transformation created",
		"transformation_id", t.ID, "endpoint_id", t.EndpointID, "kind", t.Kind, "active", t.Active)
	return t, nil
}

// Get returns a transformation.
func (svc *Service) Get(ctx context.Context, transformID id.ID) (*Transformation, error) {
	return svc.store.GetTransformation(ctx, transformID)
}

// List returns an endpoint's transformations in pipeline order.
func (svc *Service) List(ctx context.Context, endpointID id.ID) ([]*Transformation, error) {
	return svc.store.ListTransformations(ctx, endpointID)
}

// Delete removes a transformation.
func (svc *Service) Delete(ctx context.Context, transformID id.ID) error {
	return svc.store.DeleteTransformation(ctx, transformID)
}

// Test runs a stored transformation's fixtures.
func (svc *Service) Test(ctx context.Context, transformID id.ID) ([]FixtureResult, error) {
	t, err := svc.store.GetTransformation(ctx, transformID)
	if err != nil {
		return nil, err
	}
	return RunFixtures(t, time.Now().UTC()), nil
}

// SetActive toggles a transformation. Activation is refused while any
// fixture fails.
func (svc *Service) SetActive(ctx context.Context, transformID id.ID, active bool) error {
	t, err := svc.store.GetTransformation(ctx, transformID)
	if err != nil {
		return err
	}
	if active {
		if err := activatable(t); err != nil {
			return err
		}
	}
	t.Active = active
	t.Touch()
	return svc.store.UpdateTransformation(ctx, t)
}

func activatable(t *Transformation) error {
	results := RunFixtures(t, time.Now().UTC())
	if !AllPassed(results) {
		return &ValidationError{Field: "fixtures", Message: "fixtures must pass before activation"}
	}
	return nil
}

// ValidationError indicates invalid input.
type ValidationError struct {
	Field   string
	Message string
}

func (e *ValidationError) Error() string {
	return "transform validation: " + e.Field + ": " + e.Message
}
