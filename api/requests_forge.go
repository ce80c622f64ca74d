package api

import (
	"encoding/json"
	"time"

	"github.com/xraph/hookgate/condition"
	"github.com/xraph/hookgate/routing"
	"github.com/xraph/hookgate/transform"
)

// ---------------------------------------------------------------------------
// Endpoint requests
// ---------------------------------------------------------------------------

// CreateEndpointForgeRequest binds the body for POST /endpoints.
type CreateEndpointForgeRequest struct {
	Name          string            `description:"Endpoint name"                              json:"name"`
	Destinations  []string          `description:"Static destination URLs"                    json:"destinations"`
	AuthMethod    string            `description:"Inbound auth: none, shared_secret or hmac"  json:"auth_method,omitempty"`
	AuthSecret    string            `description:"Inbound secret (generated when empty)"      json:"auth_secret,omitempty"`
	MaxTries      int               `description:"Delivery attempts before the DLQ"           json:"max_tries,omitempty"`
	Headers       map[string]string `description:"Headers added to every delivery"            json:"headers,omitempty"`
	PayloadSchema json.RawMessage   `description:"JSON Schema inbound payloads must satisfy"  json:"payload_schema,omitempty"`
	Metadata      map[string]string `description:"Arbitrary key-value metadata"               json:"metadata,omitempty"`
}

// ListEndpointsForgeRequest binds query parameters for GET /endpoints.
type ListEndpointsForgeRequest struct {
	Offset int `description:"Pagination offset"      query:"offset"`
	Limit  int `description:"Page size (default 50)" query:"limit"`
}

// GetEndpointForgeRequest binds the path for GET /endpoints/:endpointId.
type GetEndpointForgeRequest struct {
	EndpointID string `description:"Endpoint ID" path:"endpointId"`
}

// UpdateEndpointForgeRequest binds PUT /endpoints/:endpointId.
type UpdateEndpointForgeRequest struct {
	EndpointID    string            `description:"Endpoint ID"                   path:"endpointId"`
	Name          string            `description:"Endpoint name"                 json:"name,omitempty"`
	Destinations  []string          `description:"Static destination URLs"       json:"destinations,omitempty"`
	AuthMethod    string            `description:"Inbound auth method"           json:"auth_method,omitempty"`
	MaxTries      int               `description:"Delivery attempts"             json:"max_tries,omitempty"`
	Headers       map[string]string `description:"Delivery headers"              json:"headers,omitempty"`
	PayloadSchema json.RawMessage   `description:"Inbound payload JSON Schema"   json:"payload_schema,omitempty"`
	Metadata      map[string]string `description:"Arbitrary key-value metadata"  json:"metadata,omitempty"`
}

// DeleteEndpointForgeRequest binds the path for DELETE /endpoints/:endpointId.
type DeleteEndpointForgeRequest struct {
	EndpointID string `description:"Endpoint ID" path:"endpointId"`
}

// ---------------------------------------------------------------------------
// Rule and transformation requests
// ---------------------------------------------------------------------------

// CreateRuleForgeRequest binds POST /endpoints/:endpointId/rules.
type CreateRuleForgeRequest struct {
	EndpointID   string                `description:"Endpoint ID"                            path:"endpointId"`
	Name         string                `description:"Rule name"                              json:"name"`
	Action       routing.Action        `description:"route, drop or transform"               json:"action"`
	Priority     int                   `description:"Higher priorities are evaluated first"  json:"priority"`
	Active       *bool                 `description:"Defaults to true"                       json:"active,omitempty"`
	Conditions   []condition.Condition `description:"All must match"                         json:"conditions"`
	Destinations []routing.Destination `description:"Route targets"                          json:"destinations,omitempty"`
}

// ListRulesForgeRequest binds GET /endpoints/:endpointId/rules.
type ListRulesForgeRequest struct {
	EndpointID string `description:"Endpoint ID" path:"endpointId"`
}

// CreateTransformationForgeRequest binds POST /endpoints/:endpointId/transformations.
type CreateTransformationForgeRequest struct {
	EndpointID string                `description:"Endpoint ID"                                  path:"endpointId"`
	Name       string                `description:"Transformation name"                          json:"name"`
	Kind       transform.Kind        `description:"field_mapping or template"                    json:"kind"`
	Priority   int                   `description:"Higher priorities run first"                  json:"priority"`
	Active     bool                  `description:"Requested state; requires passing fixtures"   json:"active"`
	Conditions []condition.Condition `description:"Optional gate on the payload"                 json:"conditions,omitempty"`
	Config     json.RawMessage       `description:"Kind-specific configuration"                  json:"config"`
	Fixtures   []transform.Fixture   `description:"Input and expected output pairs"              json:"fixtures,omitempty"`
}

// ListTransformationsForgeRequest binds GET /endpoints/:endpointId/transformations.
type ListTransformationsForgeRequest struct {
	EndpointID string `description:"Endpoint ID" path:"endpointId"`
}

// TestTransformationForgeRequest binds POST /transformations/:transformationId/test.
type TestTransformationForgeRequest struct {
	TransformationID string `description:"Transformation ID" path:"transformationId"`
}

// ---------------------------------------------------------------------------
// Event requests
// ---------------------------------------------------------------------------

// ListEventsForgeRequest binds query parameters for GET /events.
type ListEventsForgeRequest struct {
	EndpointID string `description:"Filter by endpoint"         query:"endpoint_id"`
	Status     string `description:"Filter by delivery status"  query:"status"`
	Type       string `description:"Filter by event type"       query:"type"`
	From       string `description:"RFC 3339 lower bound"       query:"from"`
	To         string `description:"RFC 3339 upper bound"       query:"to"`
	Offset     int    `description:"Pagination offset"          query:"offset"`
	Limit      int    `description:"Page size (default 50)"     query:"limit"`
}

// GetEventForgeRequest binds the path for event routes.
type GetEventForgeRequest struct {
	EventID string `description:"Event ID" path:"eventId"`
}

// ReplayBulkForgeRequest binds the body for POST /events/replay.
type ReplayBulkForgeRequest struct {
	EventIDs   []string   `description:"Explicit event IDs"          json:"event_ids,omitempty"`
	EndpointID string     `description:"Filter by endpoint"          json:"endpoint_id,omitempty"`
	Status     string     `description:"Filter by delivery status"   json:"status,omitempty"`
	From       *time.Time `description:"Lower bound on creation"     json:"from,omitempty"`
	To         *time.Time `description:"Upper bound on creation"     json:"to,omitempty"`
	Limit      int        `description:"Maximum events replayed"     json:"limit,omitempty"`
}

// ---------------------------------------------------------------------------
// DLQ requests
// ---------------------------------------------------------------------------

// ListDLQForgeRequest binds query parameters for GET /dlq.
type ListDLQForgeRequest struct {
	EndpointID string `description:"Filter by endpoint"            query:"endpoint_id"`
	Pending    bool   `description:"Only entries not yet replayed" query:"pending"`
	Offset     int    `description:"Pagination offset"             query:"offset"`
	Limit      int    `description:"Page size (default 50)"        query:"limit"`
}

// ReplayDLQForgeRequest binds the path for POST /dlq/:dlqId/replay.
type ReplayDLQForgeRequest struct {
	DLQID string `description:"DLQ entry ID" path:"dlqId"`
}

// SecretForgeResponse returns a rotated endpoint secret.
type SecretForgeResponse struct {
	Secret string `json:"secret"`
}
