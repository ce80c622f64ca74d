package routing

import (
	"context"
	"log/slog"
	"net/url"

	"github.com/xraph/hookgate/condition"
	"github.com/xraph/hookgate/id"
	"github.com/xraph/hookgate/internal/entity"
)

// Input is the creation and update payload for rules.
type Input struct {
	EndpointID   id.ID                 `json:"endpoint_id"`
	Name         string                `json:"name"`
	Action       Action                `json:"action"`
	Priority     int                   `json:"priority"`
	Active       *bool                 `json:"active,omitempty"`
	Conditions   []condition.Condition `json:"conditions"`
	Destinations []Destination         `json:"destinations,omitempty"`
}

// Service manages routing rules.
type Service struct {
	store  Store
	logger *slog.Logger
}

// NewService creates a rule service.
func NewService(store Store, logger *slog.Logger) *Service {
	if logger == nil {
		logger = slog.Default()
	}
	return &Service{store: store, logger: logger}
}

// Create validates and stores a rule. Rules are active unless Input.Active
// says otherwise.
func (svc *Service) Create(ctx context.Context, in Input) (*Rule, error) {
	if in.EndpointID.IsNil() {
		return nil, &ValidationError{Field: "endpoint_id", Message: "required"}
	}
	if err := validate(in); err != nil {
		return nil, err
	}

	r := &Rule{
		Entity:       entity.New(),
		ID:           id.NewRuleID(),
		EndpointID:   in.EndpointID,
		Name:         in.Name,
		Action:       in.Action,
		Priority:     in.Priority,
		Active:       in.Active == nil || *in.Active,
		Conditions:   in.Conditions,
		Destinations: in.Destinations,
	}
	if err := svc.store.CreateRule(ctx, r); err != nil {
		return nil, err
	}

	svc.logger.InfoContext(ctx, "routing rule created",
		"rule_id", r.ID, "endpoint_id", r.EndpointID, "action", r.Action, "priority", r.Priority)
	return r, nil
}

// Get returns a rule.
func (svc *Service) Get(ctx context.Context, ruleID id.ID) (*Rule, error) {
	return svc.store.GetRule(ctx, ruleID)
}

// Update replaces a rule's definition. Match statistics are preserved.
func (svc *Service) Update(ctx context.Context, ruleID id.ID, in Input) (*Rule, error) {
	r, err := svc.store.GetRule(ctx, ruleID)
	if err != nil {
		return nil, err
	}
	if err := validate(in); err != nil {
		return nil, err
	}

	r.Name = in.Name
	r.Action = in.Action
	r.Priority = in.Priority
	r.Conditions = in.Conditions
	r.Destinations = in.Destinations
	if in.Active != nil {
		r.Active = *in.Active
	}
	r.Touch()

	if err := svc.store.UpdateRule(ctx, r); err != nil {
		return nil, err
	}
	return r, nil
}

// Delete removes a rule.
func (svc *Service) Delete(ctx context.Context, ruleID id.ID) error {
	return svc.store.DeleteRule(ctx, ruleID)
}

// List returns an endpoint's rules in evaluation order.
func (svc *Service) List(ctx context.Context, endpointID id.ID) ([]*Rule, error) {
	return svc.store.ListRules(ctx, endpointID)
}

func validate(in Input) error {
	if in.Name == "" {
		return &ValidationError{Field: "name", Message: "required"}
	}
	switch in.Action {
	case ActionRoute:
		if len(in.Destinations) == 0 {
			return &ValidationError{Field: "destinations", Message: "route rules need at least one destination"}
		}
		for _, d := range in.Destinations {
			u, err := url.ParseRequestURI(d.URL)
			if err != nil || (u.Scheme != "http" && u.Scheme != "https") {
				return &ValidationError{Field: "destinations", Message: "invalid URL " + d.URL}
			}
		}
	case ActionDrop:
	default:
		return &ValidationError{Field: "action", Message: "must be route or drop"}
	}
	for _, c := range in.Conditions {
		if c.Field == "" {
			return &ValidationError{Field: "conditions", Message: "field is required"}
		}
		if c.Source != "" && c.Source != condition.SourcePayload && c.Source != condition.SourceHeaders {
			return &ValidationError{Field: "conditions", Message: "source must be payload or headers"}
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
	return "routing validation: " + e.Field + ": " + e.Message
}
