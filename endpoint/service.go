package endpoint

import (
	"context"
	"encoding/json"
	"log/slog"
	"net/url"

	"github.com/xraph/hookgate/id"
	"github.com/xraph/hookgate/internal/entity"
	"github.com/xraph/hookgate/signature"
)

// SchemaChecker compiles a JSON Schema without validating data.
type SchemaChecker interface {
	Check(schema json.RawMessage) error
}

// Service provides endpoint management operations.
type Service struct {
	store   Store
	schemas SchemaChecker
	logger  *slog.Logger
}

// NewService creates an endpoint service. schemas may be nil, in which case
// payload schemas are stored unchecked.
func NewService(store Store, schemas SchemaChecker, logger *slog.Logger) *Service {
	if logger == nil {
		logger = slog.Default()
	}
	return &Service{store: store, schemas: schemas, logger: logger}
}

// Create registers a new endpoint.
func (svc *Service) Create(ctx context.Context, in Input) (*Endpoint, error) {
	if in.ProjectID.IsNil() {
		return nil, &ValidationError{Field: "project_id", Message: "required"}
	}
	if in.Name == "" {
		return nil, &ValidationError{Field: "name", Message: "required"}
	}
	if err := validateDestinations(in.Destinations); err != nil {
		return nil, err
	}
	if in.AuthMethod == "" {
		in.AuthMethod = AuthNone
	}
	if !in.AuthMethod.Valid() {
		return nil, &ValidationError{Field: "auth_method", Message: "must be none, shared_secret or hmac"}
	}
	if in.MaxTries < 0 {
		return nil, &ValidationError{Field: "max_tries", Message: "must not be negative"}
	}
	if err := svc.checkSchema(in.PayloadSchema); err != nil {
		return nil, err
	}

	secret := in.AuthSecret
	if secret == "" && in.AuthMethod != AuthNone {
		secret = signature.GenerateSecret()
	}

	ep := &Endpoint{
		Entity:        entity.New(),
		ID:            id.NewEndpointID(),
		ProjectID:     in.ProjectID,
		Name:          in.Name,
		Destinations:  in.Destinations,
		AuthMethod:    in.AuthMethod,
		AuthSecret:    secret,
		Active:        true,
		Retry:         Retry{MaxTries: in.MaxTries},
		Headers:       in.Headers,
		PayloadSchema: in.PayloadSchema,
		Metadata:      in.Metadata,
	}

	if err := svc.store.CreateEndpoint(ctx, ep); err != nil {
		return nil, err
	}

	svc.logger.InfoContext(ctx, "endpoint created",
		"endpoint_id", ep.ID, "project_id", ep.ProjectID, "destinations", len(ep.Destinations))
	return ep, nil
}

// Get returns an endpoint by ID.
func (svc *Service) Get(ctx context.Context, epID id.ID) (*Endpoint, error) {
	return svc.store.GetEndpoint(ctx, epID)
}

// Update modifies an existing endpoint.
func (svc *Service) Update(ctx context.Context, epID id.ID, in Input) (*Endpoint, error) {
	ep, err := svc.store.GetEndpoint(ctx, epID)
	if err != nil {
		return nil, err
	}

	if in.Name != "" {
		ep.Name = in.Name
	}
	if in.Destinations != nil {
		if err := validateDestinations(in.Destinations); err != nil {
			return nil, err
		}
		ep.Destinations = in.Destinations
	}
	if in.AuthMethod != "" {
		if !in.AuthMethod.Valid() {
			return nil, &ValidationError{Field: "auth_method", Message: "must be none, shared_secret or hmac"}
		}
		ep.AuthMethod = in.AuthMethod
		if ep.AuthSecret == "" && ep.AuthMethod != AuthNone {
			ep.AuthSecret = signature.GenerateSecret()
		}
	}
	if in.AuthSecret != "" {
		ep.AuthSecret = in.AuthSecret
	}
	if in.MaxTries > 0 {
		ep.Retry.MaxTries = in.MaxTries
	}
	if in.Headers != nil {
		ep.Headers = in.Headers
	}
	if in.PayloadSchema != nil {
		if err := svc.checkSchema(in.PayloadSchema); err != nil {
			return nil, err
		}
		ep.PayloadSchema = in.PayloadSchema
	}
	if in.Metadata != nil {
		ep.Metadata = in.Metadata
	}

	ep.Touch()
	if err := svc.store.UpdateEndpoint(ctx, ep); err != nil {
		return nil, err
	}
	return ep, nil
}

// Delete removes an endpoint.
func (svc *Service) Delete(ctx context.Context, epID id.ID) error {
	return svc.store.DeleteEndpoint(ctx, epID)
}

// List returns a project's endpoints.
func (svc *Service) List(ctx context.Context, projectID id.ID, opts ListOpts) ([]*Endpoint, error) {
	return svc.store.ListEndpoints(ctx, projectID, opts)
}

// SetActive enables or disables an endpoint without deleting it.
func (svc *Service) SetActive(ctx context.Context, epID id.ID, active bool) error {
	ep, err := svc.store.GetEndpoint(ctx, epID)
	if err != nil {
		return err
	}
	ep.Active = active
	ep.Touch()
	return svc.store.UpdateEndpoint(ctx, ep)
}

// RotateSecret generates a new auth secret and returns it.
func (svc *Service) RotateSecret(ctx context.Context, epID id.ID) (string, error) {
	ep, err := svc.store.GetEndpoint(ctx, epID)
	if err != nil {
		return "", err
	}
	ep.AuthSecret = signature.GenerateSecret()
	ep.Touch()
	if err := svc.store.UpdateEndpoint(ctx, ep); err != nil {
		return "", err
	}
	return ep.AuthSecret, nil
}

func (svc *Service) checkSchema(schema json.RawMessage) error {
	if svc.schemas == nil || len(schema) == 0 {
		return nil
	}
	if err := svc.schemas.Check(schema); err != nil {
		return &ValidationError{Field: "payload_schema", Message: err.Error()}
	}
	return nil
}

func validateDestinations(dests []string) error {
	for _, d := range dests {
		u, err := url.ParseRequestURI(d)
		if err != nil || (u.Scheme != "http" && u.Scheme != "https") {
			return &ValidationError{Field: "destinations", Message: "invalid URL " + d}
		}
	}
	return nil
}

// ValidationError indicates invalid input.
type ValidationError struct {
	Field   string
	Message string
}

func (e *ValidationError) Error() string {
	return "endpoint validation: " + e.Field + ": " + e.Message
}
