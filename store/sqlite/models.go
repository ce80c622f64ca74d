package sqlite

import (
	"encoding/json"
	"fmt"
	"time"

	"github.com/xraph/grove"

	"github.com/xraph/hookgate/condition"
	"github.com/xraph/hookgate/delivery"
	"github.com/xraph/hookgate/dlq"
	"github.com/xraph/hookgate/endpoint"
	"github.com/xraph/hookgate/event"
	"github.com/xraph/hookgate/id"
	"github.com/xraph/hookgate/internal/entity"
	"github.com/xraph/hookgate/project"
	"github.com/xraph/hookgate/routing"
	"github.com/xraph/hookgate/transform"
)

// --- Project models ---

type projectModel struct {
	grove.BaseModel `grove:"table:hookgate_projects"`

	ID               string    `grove:"id,pk"`
	Name             string    `grove:"name"`
	APIKey           string    `grove:"api_key,unique"`
	SigningSecret    string    `grove:"signing_secret"`
	Active           bool      `grove:"active"`
	RateLimitReqs    int       `grove:"rate_limit_requests"`
	RateLimitWindow  int64     `grove:"rate_limit_window_ms"`
	Permissions      string    `grove:"permissions"`
	EncryptionMode   string    `grove:"encryption_mode"`
	EncryptionFields string    `grove:"encryption_fields"`
	CreatedAt        time.Time `grove:"created_at"`
	UpdatedAt        time.Time `grove:"updated_at"`
}

func toProjectModel(p *project.Project) *projectModel {
	return &projectModel{
		ID:               p.ID.String(),
		Name:             p.Name,
		APIKey:           p.APIKey,
		SigningSecret:    p.SigningSecret,
		Active:           p.Active,
		RateLimitReqs:    p.RateLimit.Requests,
		RateLimitWindow:  p.RateLimit.Window.Milliseconds(),
		Permissions:      toJSON(p.Permissions),
		EncryptionMode:   string(p.Encryption.Mode),
		EncryptionFields: toJSON(p.Encryption.Fields),
		CreatedAt:        p.CreatedAt,
		UpdatedAt:        p.UpdatedAt,
	}
}

func fromProjectModel(m *projectModel) (*project.Project, error) {
	projID, err := id.ParseProjectID(m.ID)
	if err != nil {
		return nil, fmt.Errorf("parse project ID %q: %w", m.ID, err)
	}
	p := &project.Project{
		Entity:        entity.Entity{CreatedAt: m.CreatedAt, UpdatedAt: m.UpdatedAt},
		ID:            projID,
		Name:          m.Name,
		APIKey:        m.APIKey,
		SigningSecret: m.SigningSecret,
		Active:        m.Active,
		RateLimit: project.RateLimit{
			Requests: m.RateLimitReqs,
			Window:   time.Duration(m.RateLimitWindow) * time.Millisecond,
		},
		Encryption: project.Encryption{Mode: project.EncryptionMode(m.EncryptionMode)},
	}
	if err := fromJSON(m.Permissions, &p.Permissions); err != nil {
		return nil, fmt.Errorf("decode project permissions: %w", err)
	}
	if err := fromJSON(m.EncryptionFields, &p.Encryption.Fields); err != nil {
		return nil, fmt.Errorf("decode project encryption fields: %w", err)
	}
	return p, nil
}

// --- Endpoint models ---

type endpointModel struct {
	grove.BaseModel `grove:"table:hookgate_endpoints"`

	ID            string    `grove:"id,pk"`
	ProjectID     string    `grove:"project_id"`
	Name          string    `grove:"name"`
	Destinations  string    `grove:"destinations"`
	AuthMethod    string    `grove:"auth_method"`
	AuthSecret    string    `grove:"auth_secret"`
	Active        bool      `grove:"active"`
	MaxTries      int       `grove:"max_tries"`
	Headers       string    `grove:"headers"`
	PayloadSchema string    `grove:"payload_schema"`
	Metadata      string    `grove:"metadata"`
	CreatedAt     time.Time `grove:"created_at"`
	UpdatedAt     time.Time `grove:"updated_at"`
}

func toEndpointModel(ep *endpoint.Endpoint) *endpointModel {
	return &endpointModel{
		ID:            ep.ID.String(),
		ProjectID:     ep.ProjectID.String(),
		Name:          ep.Name,
		Destinations:  toJSON(ep.Destinations),
		AuthMethod:    string(ep.AuthMethod),
		AuthSecret:    ep.AuthSecret,
		Active:        ep.Active,
		MaxTries:      ep.Retry.MaxTries,
		Headers:       toJSON(ep.Headers),
		PayloadSchema: string(ep.PayloadSchema),
		Metadata:      toJSON(ep.Metadata),
		CreatedAt:     ep.CreatedAt,
		UpdatedAt:     ep.UpdatedAt,
	}
}

func fromEndpointModel(m *endpointModel) (*endpoint.Endpoint, error) {
	epID, err := id.ParseEndpointID(m.ID)
	if err != nil {
		return nil, fmt.Errorf("parse endpoint ID %q: %w", m.ID, err)
	}
	projID, err := id.ParseProjectID(m.ProjectID)
	if err != nil {
		return nil, fmt.Errorf("parse project ID %q: %w", m.ProjectID, err)
	}
	return &endpoint.Endpoint{
		Entity:        entity.Entity{CreatedAt: m.CreatedAt, UpdatedAt: m.UpdatedAt},
		ID:            epID,
		ProjectID:     projID,
		Name:          m.Name,
		Destinations:  stringList(m.Destinations),
		AuthMethod:    endpoint.AuthMethod(m.AuthMethod),
		AuthSecret:    m.AuthSecret,
		Active:        m.Active,
		Retry:         endpoint.Retry{MaxTries: m.MaxTries},
		Headers:       stringMap(m.Headers),
		PayloadSchema: rawJSON(m.PayloadSchema),
		Metadata:      stringMap(m.Metadata),
	}, nil
}

// --- Routing rule models ---

type ruleModel struct {
	grove.BaseModel `grove:"table:hookgate_routing_rules"`

	ID            string     `grove:"id,pk"`
	EndpointID    string     `grove:"endpoint_id"`
	Name          string     `grove:"name"`
	Action        string     `grove:"action"`
	Priority      int        `grove:"priority"`
	Active        bool       `grove:"active"`
	Conditions    string     `grove:"conditions"`
	Destinations  string     `grove:"destinations"`
	MatchCount    int64      `grove:"match_count"`
	LastMatchedAt *time.Time `grove:"last_matched_at"`
	CreatedAt     time.Time  `grove:"created_at"`
	UpdatedAt     time.Time  `grove:"updated_at"`
}

func toRuleModel(r *routing.Rule) *ruleModel {
	return &ruleModel{
		ID:            r.ID.String(),
		EndpointID:    r.EndpointID.String(),
		Name:          r.Name,
		Action:        string(r.Action),
		Priority:      r.Priority,
		Active:        r.Active,
		Conditions:    toJSON(r.Conditions),
		Destinations:  toJSON(r.Destinations),
		MatchCount:    r.MatchCount,
		LastMatchedAt: r.LastMatchedAt,
		CreatedAt:     r.CreatedAt,
		UpdatedAt:     r.UpdatedAt,
	}
}

func fromRuleModel(m *ruleModel) (*routing.Rule, error) {
	ruleID, err := id.ParseRuleID(m.ID)
	if err != nil {
		return nil, fmt.Errorf("parse rule ID %q: %w", m.ID, err)
	}
	epID, err := id.ParseEndpointID(m.EndpointID)
	if err != nil {
		return nil, fmt.Errorf("parse endpoint ID %q: %w", m.EndpointID, err)
	}
	r := &routing.Rule{
		Entity:        entity.Entity{CreatedAt: m.CreatedAt, UpdatedAt: m.UpdatedAt},
		ID:            ruleID,
		EndpointID:    epID,
		Name:          m.Name,
		Action:        routing.Action(m.Action),
		Priority:      m.Priority,
		Active:        m.Active,
		MatchCount:    m.MatchCount,
		LastMatchedAt: m.LastMatchedAt,
	}
	var conds []condition.Condition
	if err := fromJSON(m.Conditions, &conds); err != nil {
		return nil, fmt.Errorf("decode rule conditions: %w", err)
	}
	r.Conditions = conds
	if err := fromJSON(m.Destinations, &r.Destinations); err != nil {
		return nil, fmt.Errorf("decode rule destinations: %w", err)
	}
	return r, nil
}

// --- Transformation models ---

type transformationModel struct {
	grove.BaseModel `grove:"table:hookgate_transformations"`

	ID         string    `grove:"id,pk"`
	EndpointID string    `grove:"endpoint_id"`
	Name       string    `grove:"name"`
	Kind       string    `grove:"kind"`
	Priority   int       `grove:"priority"`
	Active     bool      `grove:"active"`
	Conditions string    `grove:"conditions"`
	Config     string    `grove:"config"`
	Fixtures   string    `grove:"fixtures"`
	CreatedAt  time.Time `grove:"created_at"`
	UpdatedAt  time.Time `grove:"updated_at"`
}

func toTransformationModel(t *transform.Transformation) *transformationModel {
	return &transformationModel{
		ID:         t.ID.String(),
		EndpointID: t.EndpointID.String(),
		Name:       t.Name,
		Kind:       string(t.Kind),
		Priority:   t.Priority,
		Active:     t.Active,
		Conditions: toJSON(t.Conditions),
		Config:     string(t.Config),
		Fixtures:   toJSON(t.Fixtures),
		CreatedAt:  t.CreatedAt,
		UpdatedAt:  t.UpdatedAt,
	}
}

func fromTransformationModel(m *transformationModel) (*transform.Transformation, error) {
	xfID, err := id.ParseTransformationID(m.ID)
	if err != nil {
		return nil, fmt.Errorf("parse transformation ID %q: %w", m.ID, err)
	}
	epID, err := id.ParseEndpointID(m.EndpointID)
	if err != nil {
		return nil, fmt.Errorf("parse endpoint ID %q: %w", m.EndpointID, err)
	}
	t := &transform.Transformation{
		Entity:     entity.Entity{CreatedAt: m.CreatedAt, UpdatedAt: m.UpdatedAt},
		ID:         xfID,
		EndpointID: epID,
		Name:       m.Name,
		Kind:       transform.Kind(m.Kind),
		Priority:   m.Priority,
		Active:     m.Active,
		Config:     rawJSON(m.Config),
	}
	if err := fromJSON(m.Conditions, &t.Conditions); err != nil {
		return nil, fmt.Errorf("decode transformation conditions: %w", err)
	}
	if err := fromJSON(m.Fixtures, &t.Fixtures); err != nil {
		return nil, fmt.Errorf("decode transformation fixtures: %w", err)
	}
	return t, nil
}

// --- Event models ---

type eventModel struct {
	grove.BaseModel `grove:"table:hookgate_events"`

	ID               string     `grove:"id,pk"`
	ProjectID        string     `grove:"project_id"`
	EndpointID       string     `grove:"endpoint_id"`
	Type             string     `grove:"type"`
	Payload          string     `grove:"payload"`
	Sealed           string     `grove:"sealed"`
	Encryption       string     `grove:"encryption"`
	Headers          string     `grove:"headers"`
	SourceIP         string     `grove:"source_ip"`
	Destinations     string     `grove:"destinations"`
	Status           string     `grove:"status"`
	DeliveryAttempts int        `grove:"delivery_attempts"`
	MaxTries         int        `grove:"max_tries"`
	Exceptions       int        `grove:"exceptions"`
	NextAttemptAt    time.Time  `grove:"next_attempt_at"`
	LastAttemptAt    *time.Time `grove:"last_attempt_at"`
	DeliveredAt      *time.Time `grove:"delivered_at"`
	FailedAt         *time.Time `grove:"failed_at"`
	ReplayOf         string     `grove:"replay_of"`
	CreatedAt        time.Time  `grove:"created_at"`
	UpdatedAt        time.Time  `grove:"updated_at"`
}

func toEventModel(evt *event.Event) *eventModel {
	m := &eventModel{
		ID:               evt.ID.String(),
		ProjectID:        evt.ProjectID.String(),
		EndpointID:       evt.EndpointID.String(),
		Type:             evt.Type,
		Sealed:           evt.Sealed,
		Encryption:       evt.Encryption,
		Headers:          toJSON(evt.Headers),
		SourceIP:         evt.SourceIP,
		Destinations:     toJSON(evt.Destinations),
		Status:           string(evt.Status),
		DeliveryAttempts: evt.DeliveryAttempts,
		MaxTries:         evt.MaxTries,
		Exceptions:       evt.Exceptions,
		NextAttemptAt:    evt.NextAttemptAt,
		LastAttemptAt:    evt.LastAttemptAt,
		DeliveredAt:      evt.DeliveredAt,
		FailedAt:         evt.FailedAt,
		CreatedAt:        evt.CreatedAt,
		UpdatedAt:        evt.UpdatedAt,
	}
	if evt.Payload != nil {
		m.Payload = toJSON(evt.Payload)
	}
	if !evt.ReplayOf.IsNil() {
		m.ReplayOf = evt.ReplayOf.String()
	}
	return m
}

func fromEventModel(m *eventModel) (*event.Event, error) {
	evtID, err := id.ParseEventID(m.ID)
	if err != nil {
		return nil, fmt.Errorf("parse event ID %q: %w", m.ID, err)
	}
	projID, err := id.ParseProjectID(m.ProjectID)
	if err != nil {
		return nil, fmt.Errorf("parse project ID %q: %w", m.ProjectID, err)
	}
	epID, err := id.ParseEndpointID(m.EndpointID)
	if err != nil {
		return nil, fmt.Errorf("parse endpoint ID %q: %w", m.EndpointID, err)
	}
	replayOf, err := id.ParseOptional(m.ReplayOf)
	if err != nil {
		return nil, fmt.Errorf("parse replay_of %q: %w", m.ReplayOf, err)
	}
	evt := &event.Event{
		Entity:           entity.Entity{CreatedAt: m.CreatedAt, UpdatedAt: m.UpdatedAt},
		ID:               evtID,
		ProjectID:        projID,
		EndpointID:       epID,
		Type:             m.Type,
		Sealed:           m.Sealed,
		Encryption:       m.Encryption,
		Headers:          stringMap(m.Headers),
		SourceIP:         m.SourceIP,
		Destinations:     stringList(m.Destinations),
		Status:           event.Status(m.Status),
		DeliveryAttempts: m.DeliveryAttempts,
		MaxTries:         m.MaxTries,
		Exceptions:       m.Exceptions,
		NextAttemptAt:    m.NextAttemptAt,
		LastAttemptAt:    m.LastAttemptAt,
		DeliveredAt:      m.DeliveredAt,
		FailedAt:         m.FailedAt,
		ReplayOf:         replayOf,
	}
	if err := fromJSON(m.Payload, &evt.Payload); err != nil {
		return nil, fmt.Errorf("decode event payload: %w", err)
	}
	return evt, nil
}

// --- Delivery ledger models ---

type deliveryModel struct {
	grove.BaseModel `grove:"table:hookgate_event_deliveries"`

	ID              string    `grove:"id,pk"`
	EventID         string    `grove:"event_id"`
	EndpointID      string    `grove:"endpoint_id"`
	ProjectID       string    `grove:"project_id"`
	Destination     string    `grove:"destination"`
	AttemptNumber   int       `grove:"attempt_number"`
	Status          string    `grove:"status"`
	ResponseCode    int       `grove:"response_code"`
	ResponseBody    string    `grove:"response_body"`
	ResponseHeaders string    `grove:"response_headers"`
	ErrorMessage    string    `grove:"error_message"`
	LatencyMs       int64     `grove:"latency_ms"`
	AttemptedAt     time.Time `grove:"attempted_at"`
}

func toDeliveryModel(d *delivery.EventDelivery) *deliveryModel {
	return &deliveryModel{
		ID:              d.ID.String(),
		EventID:         d.EventID.String(),
		EndpointID:      d.EndpointID.String(),
		ProjectID:       d.ProjectID.String(),
		Destination:     d.Destination,
		AttemptNumber:   d.AttemptNumber,
		Status:          string(d.Status),
		ResponseCode:    d.ResponseCode,
		ResponseBody:    d.ResponseBody,
		ResponseHeaders: toJSON(d.ResponseHeaders),
		ErrorMessage:    d.ErrorMessage,
		LatencyMs:       d.LatencyMs,
		AttemptedAt:     d.AttemptedAt,
	}
}

func fromDeliveryModel(m *deliveryModel) (*delivery.EventDelivery, error) {
	delID, err := id.ParseDeliveryID(m.ID)
	if err != nil {
		return nil, fmt.Errorf("parse delivery ID %q: %w", m.ID, err)
	}
	evtID, err := id.ParseEventID(m.EventID)
	if err != nil {
		return nil, fmt.Errorf("parse event ID %q: %w", m.EventID, err)
	}
	epID, err := id.ParseEndpointID(m.EndpointID)
	if err != nil {
		return nil, fmt.Errorf("parse endpoint ID %q: %w", m.EndpointID, err)
	}
	projID, err := id.ParseProjectID(m.ProjectID)
	if err != nil {
		return nil, fmt.Errorf("parse project ID %q: %w", m.ProjectID, err)
	}
	return &delivery.EventDelivery{
		ID:              delID,
		EventID:         evtID,
		EndpointID:      epID,
		ProjectID:       projID,
		Destination:     m.Destination,
		AttemptNumber:   m.AttemptNumber,
		Status:          delivery.AttemptStatus(m.Status),
		ResponseCode:    m.ResponseCode,
		ResponseBody:    m.ResponseBody,
		ResponseHeaders: stringMap(m.ResponseHeaders),
		ErrorMessage:    m.ErrorMessage,
		LatencyMs:       m.LatencyMs,
		AttemptedAt:     m.AttemptedAt,
	}, nil
}

// --- DLQ models ---

type dlqEntryModel struct {
	grove.BaseModel `grove:"table:hookgate_dlq"`

	ID           string     `grove:"id,pk"`
	EventID      string     `grove:"event_id"`
	ProjectID    string     `grove:"project_id"`
	EndpointID   string     `grove:"endpoint_id"`
	EventType    string     `grove:"event_type"`
	Payload      string     `grove:"payload"`
	Sealed       string     `grove:"sealed"`
	Encryption   string     `grove:"encryption"`
	Destinations string     `grove:"destinations"`
	Reason       string     `grove:"reason"`
	Attempts     int        `grove:"attempts"`
	Deliveries   string     `grove:"deliveries"`
	FailedAt     time.Time  `grove:"failed_at"`
	ReplayedAt   *time.Time `grove:"replayed_at"`
	CreatedAt    time.Time  `grove:"created_at"`
	UpdatedAt    time.Time  `grove:"updated_at"`
}

func toDLQEntryModel(e *dlq.Entry) *dlqEntryModel {
	m := &dlqEntryModel{
		ID:           e.ID.String(),
		EventID:      e.EventID.String(),
		ProjectID:    e.ProjectID.String(),
		EndpointID:   e.EndpointID.String(),
		EventType:    e.EventType,
		Sealed:       e.Sealed,
		Encryption:   e.Encryption,
		Destinations: toJSON(e.Destinations),
		Reason:       e.Reason,
		Attempts:     e.Attempts,
		Deliveries:   toJSON(e.Deliveries),
		FailedAt:     e.FailedAt,
		ReplayedAt:   e.ReplayedAt,
		CreatedAt:    e.CreatedAt,
		UpdatedAt:    e.UpdatedAt,
	}
	if e.Payload != nil {
		m.Payload = toJSON(e.Payload)
	}
	return m
}

func fromDLQEntryModel(m *dlqEntryModel) (*dlq.Entry, error) {
	dlqID, err := id.ParseDLQID(m.ID)
	if err != nil {
		return nil, fmt.Errorf("parse DLQ ID %q: %w", m.ID, err)
	}
	evtID, err := id.ParseEventID(m.EventID)
	if err != nil {
		return nil, fmt.Errorf("parse event ID %q: %w", m.EventID, err)
	}
	projID, err := id.ParseProjectID(m.ProjectID)
	if err != nil {
		return nil, fmt.Errorf("parse project ID %q: %w", m.ProjectID, err)
	}
	epID, err := id.ParseEndpointID(m.EndpointID)
	if err != nil {
		return nil, fmt.Errorf("parse endpoint ID %q: %w", m.EndpointID, err)
	}
	e := &dlq.Entry{
		Entity:       entity.Entity{CreatedAt: m.CreatedAt, UpdatedAt: m.UpdatedAt},
		ID:           dlqID,
		EventID:      evtID,
		ProjectID:    projID,
		EndpointID:   epID,
		EventType:    m.EventType,
		Sealed:       m.Sealed,
		Encryption:   m.Encryption,
		Destinations: stringList(m.Destinations),
		Reason:       m.Reason,
		Attempts:     m.Attempts,
		FailedAt:     m.FailedAt,
		ReplayedAt:   m.ReplayedAt,
	}
	if err := fromJSON(m.Payload, &e.Payload); err != nil {
		return nil, fmt.Errorf("decode dlq payload: %w", err)
	}
	if err := fromJSON(m.Deliveries, &e.Deliveries); err != nil {
		return nil, fmt.Errorf("decode dlq deliveries: %w", err)
	}
	return e, nil
}

// --- JSON helpers ---

// SQLite has no JSON column type; structured values are stored as TEXT.

func toJSON(v any) string {
	b, _ := json.Marshal(v) //nolint:errcheck // values are plain data
	return string(b)
}

func fromJSON(s string, out any) error {
	if s == "" || s == "null" {
		return nil
	}
	return json.Unmarshal([]byte(s), out)
}

func rawJSON(s string) json.RawMessage {
	if s == "" || s == "null" {
		return nil
	}
	return json.RawMessage(s)
}

func stringList(s string) []string {
	var out []string
	_ = fromJSON(s, &out) //nolint:errcheck // best-effort
	return out
}

func stringMap(s string) map[string]string {
	var out map[string]string
	_ = fromJSON(s, &out) //nolint:errcheck // best-effort
	return out
}
