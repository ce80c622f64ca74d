package hookgate

import (
	"bytes"
	"context"
	"crypto/subtle"
	"encoding/json"
	"fmt"
	"strings"

	"github.com/xraph/hookgate/endpoint"
	"github.com/xraph/hookgate/event"
	"github.com/xraph/hookgate/id"
	"github.com/xraph/hookgate/internal/entity"
	"github.com/xraph/hookgate/project"
	"github.com/xraph/hookgate/ratelimit"
	"github.com/xraph/hookgate/routing"
	"github.com/xraph/hookgate/secure"
	"github.com/xraph/hookgate/signature"
)

// Inbound header names.
const (
	// HeaderSecret carries the shared secret of shared_secret endpoints.
	HeaderSecret = "X-Hookgate-Secret"

	// HeaderEventType names the event type when the request does not.
	HeaderEventType = "X-Hookgate-Event-Type"

	// HeaderAPIKey authenticates management calls.
	HeaderAPIKey = "X-API-Key"
)

// credentialHeaders are never stored on an event.
var credentialHeaders = []string{HeaderSecret, HeaderAPIKey, signature.Header, "Authorization", "Cookie"}

// IngestRequest is one inbound webhook call.
type IngestRequest struct {
	EndpointID id.ID
	Body       []byte
	Headers    map[string]string
	SourceIP   string

	// EventType overrides the X-Hookgate-Event-Type header and the payload's
	// own "type" field.
	EventType string
}

// IngestResult is the outcome of an accepted call. Event is nil when a drop
// rule discarded the payload.
type IngestResult struct {
	Event    *event.Event     `json:"event,omitempty"`
	Dropped  bool             `json:"dropped"`
	Decision routing.Decision `json:"decision"`
}

// Ingest authenticates, validates, routes, transforms and persists one
// inbound call. It returns as soon as the event is durable; delivery happens
// in the engine. Rejected calls leave no trace in the store.
func (g *Gateway) Ingest(ctx context.Context, req IngestRequest) (*IngestResult, error) {
	ep, err := g.store.GetEndpoint(ctx, req.EndpointID)
	if err != nil {
		return nil, err
	}
	if !ep.Active {
		return nil, ErrEndpointInactive
	}
	p, err := g.store.GetProject(ctx, ep.ProjectID)
	if err != nil {
		return nil, err
	}
	if !p.Active {
		return nil, &AuthError{Reason: "project is inactive"}
	}

	if err := authenticate(ep, req); err != nil {
		return nil, err
	}

	if p.RateLimit.Requests > 0 {
		ok, err := g.limiter.Allow(ctx, ratelimit.Key(p.ID, req.SourceIP), p.RateLimit.Requests, p.RateLimit.Window)
		if err != nil {
			return nil, fmt.Errorf("hookgate: rate limit: %w", err)
		}
		if !ok {
			g.logger.WarnContext(ctx, "ingest rate limited",
				"project_id", p.ID, "endpoint_id", ep.ID, "source_ip", req.SourceIP)
			return nil, &AuthError{Reason: "rate limit exceeded", RateLimited: true}
		}
	}

	payload, err := decodeObject(req.Body)
	if err != nil {
		return nil, err
	}
	if err := g.schemas.Validate(ep.PayloadSchema, payload); err != nil {
		return nil, &ValidationError{Field: "payload", Message: err.Error(), Err: err}
	}

	headers := storedHeaders(req.Headers)

	decision, err := g.router.Evaluate(ctx, ep, payload, headers)
	if err != nil {
		return nil, err
	}
	if decision.Dropped() {
		if g.metrics != nil {
			g.metrics.EventsDroppedTotal.Inc()
		}
		return &IngestResult{Dropped: true, Decision: decision}, nil
	}

	payload, err = g.pipeline.Apply(ctx, ep, payload, headers)
	if err != nil {
		return nil, err
	}

	evt := &event.Event{
		Entity:       entity.New(),
		ID:           id.NewEventID(),
		ProjectID:    p.ID,
		EndpointID:   ep.ID,
		Type:         eventType(req, payload),
		Headers:      headers,
		SourceIP:     req.SourceIP,
		Destinations: decision.Destinations,
		Status:       event.StatusPending,
		MaxTries:     ep.MaxTries(g.config.MaxTries),
	}
	evt.NextAttemptAt = evt.CreatedAt

	if err := g.seal(p, evt, payload); err != nil {
		return nil, err
	}
	if err := g.store.CreateEvent(ctx, evt); err != nil {
		return nil, fmt.Errorf("hookgate: persist event: %w", err)
	}

	if g.metrics != nil {
		g.metrics.EventsIngestedTotal.Inc()
	}
	g.logger.DebugContext(ctx, "event ingested",
		"event_id", evt.ID,
		"endpoint_id", ep.ID,
		"type", evt.Type,
		"destinations", len(evt.Destinations),
		"payload", secure.Mask(payload, g.config.SensitiveFields),
	)

	return &IngestResult{Event: evt, Decision: decision}, nil
}

// authenticate checks the endpoint's inbound credential.
func authenticate(ep *endpoint.Endpoint, req IngestRequest) error {
	switch ep.AuthMethod {
	case endpoint.AuthSharedSecret:
		got := header(req.Headers, HeaderSecret)
		if got == "" || subtle.ConstantTimeCompare([]byte(got), []byte(ep.AuthSecret)) != 1 {
			return &AuthError{Reason: "invalid shared secret"}
		}
	case endpoint.AuthHMAC:
		sig := header(req.Headers, signature.Header)
		if sig == "" || !signature.Verify(req.Body, sig, ep.AuthSecret) {
			return &AuthError{Reason: "invalid signature"}
		}
	}
	return nil
}

// seal stores payload on evt in the project's at-rest form.
func (g *Gateway) seal(p *project.Project, evt *event.Event, payload map[string]any) error {
	mode := p.Encryption.Mode
	if mode == "" {
		mode = project.EncryptionNone
	}
	evt.Encryption = string(mode)

	if mode == project.EncryptionNone {
		evt.Payload = payload
		return nil
	}
	if g.cipher == nil {
		return fmt.Errorf("hookgate: project %s requires %s encryption but no cipher is configured", p.ID, mode)
	}

	switch mode {
	case project.EncryptionDocument:
		sealed, err := g.cipher.EncryptDocument(payload)
		if err != nil {
			return fmt.Errorf("hookgate: encrypt payload: %w", err)
		}
		evt.Sealed = sealed
	case project.EncryptionFields:
		sealed, err := g.cipher.WithFields(p.Encryption.Fields).EncryptFields(payload)
		if err != nil {
			return fmt.Errorf("hookgate: encrypt payload fields: %w", err)
		}
		evt.Payload = sealed
	default:
		return fmt.Errorf("hookgate: unknown encryption mode %q", mode)
	}
	return nil
}

func decodeObject(body []byte) (map[string]any, error) {
	if len(bytes.TrimSpace(body)) == 0 {
		return nil, &ValidationError{Field: "body", Message: "empty body"}
	}
	var v any
	if err := json.Unmarshal(body, &v); err != nil {
		return nil, &ValidationError{Field: "body", Message: "not valid JSON", Err: err}
	}
	obj, ok := v.(map[string]any)
	if !ok {
		return nil, &ValidationError{Field: "body", Message: "must be a JSON object"}
	}
	return obj, nil
}

func eventType(req IngestRequest, payload map[string]any) string {
	if req.EventType != "" {
		return req.EventType
	}
	if t := header(req.Headers, HeaderEventType); t != "" {
		return t
	}
	if t, ok := payload["type"].(string); ok {
		return t
	}
	return ""
}

// header looks name up case-insensitively.
func header(h map[string]string, name string) string {
	if v, ok := h[name]; ok {
		return v
	}
	for k, v := range h {
		if strings.EqualFold(k, name) {
			return v
		}
	}
	return ""
}

func storedHeaders(in map[string]string) map[string]string {
	out := make(map[string]string, len(in))
	for k, v := range in {
		if isCredential(k) {
			continue
		}
		out[k] = v
	}
	return out
}

func isCredential(name string) bool {
	for _, c := range credentialHeaders {
		if strings.EqualFold(c, name) {
			return true
		}
	}
	return false
}
