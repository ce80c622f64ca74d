package api

import (
	"net/http"
	"time"

	"github.com/xraph/forge"

	"github.com/xraph/hookgate"
	"github.com/xraph/hookgate/delivery"
	"github.com/xraph/hookgate/dlq"
	"github.com/xraph/hookgate/endpoint"
	"github.com/xraph/hookgate/event"
	"github.com/xraph/hookgate/id"
	"github.com/xraph/hookgate/project"
	"github.com/xraph/hookgate/routing"
	"github.com/xraph/hookgate/scope"
	"github.com/xraph/hookgate/transform"
)

// ForgeAPI registers the management operations on a Forge router.
//
// The host application authenticates callers: every request context must
// carry the caller's project (see scope.WithProject and RequireProject).
type ForgeAPI struct {
	gw  *hookgate.Gateway
	log forge.Logger
}

// NewForgeAPI creates a ForgeAPI serving gw.
func NewForgeAPI(gw *hookgate.Gateway, log forge.Logger) *ForgeAPI {
	return &ForgeAPI{gw: gw, log: log}
}

// RegisterRoutes registers all management routes into the given Forge
// router with full OpenAPI metadata.
func (a *ForgeAPI) RegisterRoutes(router forge.Router) {
	a.registerEndpointRoutes(router)
	a.registerRuleRoutes(router)
	a.registerEventRoutes(router)
	a.registerDLQRoutes(router)
}

// caller returns the project in the request context and checks perm.
func caller(ctx forge.Context, perm string) (*project.Project, error) {
	p, ok := scope.Project(ctx.Context())
	if !ok {
		return nil, forge.NewHTTPError(http.StatusUnauthorized, "project credentials required")
	}
	if perm != "" && !p.Can(perm) {
		return nil, forge.NewHTTPError(http.StatusForbidden, "missing permission "+perm)
	}
	return p, nil
}

// ownedEndpoint loads an endpoint of the caller's project. Foreign
// endpoints are reported as missing.
func (a *ForgeAPI) ownedEndpoint(ctx forge.Context, p *project.Project, raw string) (*endpoint.Endpoint, error) {
	epID, err := id.ParseEndpointID(raw)
	if err != nil {
		return nil, forge.BadRequest("invalid endpoint ID")
	}
	ep, err := a.gw.Endpoints().Get(ctx.Context(), epID)
	if err != nil {
		return nil, mapError(err)
	}
	if ep.ProjectID != p.ID {
		return nil, forge.NotFound(hookgate.ErrEndpointNotFound.Error())
	}
	return ep, nil
}

func (a *ForgeAPI) ownedEvent(ctx forge.Context, p *project.Project, raw string) (*event.Event, error) {
	evtID, err := id.ParseEventID(raw)
	if err != nil {
		return nil, forge.BadRequest("invalid event ID")
	}
	evt, err := a.gw.GetEvent(ctx.Context(), evtID)
	if err != nil {
		return nil, mapError(err)
	}
	if evt.ProjectID != p.ID {
		return nil, forge.NotFound(hookgate.ErrEventNotFound.Error())
	}
	return evt, nil
}

func pageLimit(limit int) int {
	if limit == 0 {
		return 50
	}
	return limit
}

// ---------------------------------------------------------------------------
// Endpoint routes
// ---------------------------------------------------------------------------

func (a *ForgeAPI) registerEndpointRoutes(router forge.Router) {
	g := router.Group("", forge.WithGroupTags("endpoints"))

	if err := g.POST("/endpoints", a.createEndpoint,
		forge.WithSummary("Create endpoint"),
		forge.WithDescription("Creates an inbound endpoint. The generated auth secret is returned once."),
		forge.WithOperationID("createEndpoint"),
		forge.WithRequestSchema(CreateEndpointForgeRequest{}),
		forge.WithCreatedResponse(endpoint.Endpoint{}),
		forge.WithErrorResponses(),
	); err != nil {
		a.log.Error("Failed to register createEndpoint route", forge.Error(err))
	}

	if err := g.GET("/endpoints", a.listEndpoints,
		forge.WithSummary("List endpoints"),
		forge.WithDescription("Returns the caller's endpoints."),
		forge.WithOperationID("listEndpoints"),
		forge.WithRequestSchema(ListEndpointsForgeRequest{}),
		forge.WithListResponse(endpoint.Endpoint{}, http.StatusOK),
		forge.WithErrorResponses(),
	); err != nil {
		a.log.Error("Failed to register listEndpoints route", forge.Error(err))
	}

	if err := g.GET("/endpoints/:endpointId", a.getEndpoint,
		forge.WithSummary("Get endpoint"),
		forge.WithDescription("Returns details of a specific endpoint."),
		forge.WithOperationID("getEndpoint"),
		forge.WithResponseSchema(http.StatusOK, "Endpoint details", endpoint.Endpoint{}),
		forge.WithErrorResponses(),
	); err != nil {
		a.log.Error("Failed to register getEndpoint route", forge.Error(err))
	}

	if err := g.PUT("/endpoints/:endpointId", a.updateEndpoint,
		forge.WithSummary("Update endpoint"),
		forge.WithDescription("Updates an endpoint. Omitted fields keep their value."),
		forge.WithOperationID("updateEndpoint"),
		forge.WithRequestSchema(UpdateEndpointForgeRequest{}),
		forge.WithResponseSchema(http.StatusOK, "Updated endpoint", endpoint.Endpoint{}),
		forge.WithErrorResponses(),
	); err != nil {
		a.log.Error("Failed to register updateEndpoint route", forge.Error(err))
	}

	if err := g.DELETE("/endpoints/:endpointId", a.deleteEndpoint,
		forge.WithSummary("Delete endpoint"),
		forge.WithDescription("Deletes an endpoint."),
		forge.WithOperationID("deleteEndpoint"),
		forge.WithNoContentResponse(),
		forge.WithErrorResponses(),
	); err != nil {
		a.log.Error("Failed to register deleteEndpoint route", forge.Error(err))
	}

	if err := g.POST("/endpoints/:endpointId/rotate-secret", a.rotateSecret,
		forge.WithSummary("Rotate endpoint secret"),
		forge.WithDescription("Generates a new inbound auth secret."),
		forge.WithOperationID("rotateEndpointSecret"),
		forge.WithResponseSchema(http.StatusOK, "New secret", SecretForgeResponse{}),
		forge.WithErrorResponses(),
	); err != nil {
		a.log.Error("Failed to register rotateEndpointSecret route", forge.Error(err))
	}
}

func (a *ForgeAPI) createEndpoint(ctx forge.Context, req *CreateEndpointForgeRequest) (*endpoint.Endpoint, error) {
	p, err := caller(ctx, PermEndpointsWrite)
	if err != nil {
		return nil, err
	}

	ep, err := a.gw.Endpoints().Create(ctx.Context(), endpoint.Input{
		ProjectID:     p.ID,
		Name:          req.Name,
		Destinations:  req.Destinations,
		AuthMethod:    endpoint.AuthMethod(req.AuthMethod),
		AuthSecret:    req.AuthSecret,
		MaxTries:      req.MaxTries,
		Headers:       req.Headers,
		PayloadSchema: req.PayloadSchema,
		Metadata:      req.Metadata,
	})
	if err != nil {
		return nil, mapError(err)
	}

	err = ctx.JSON(http.StatusCreated, endpointCreated{Endpoint: ep, AuthSecret: ep.AuthSecret})
	if err != nil {
		return nil, mapError(err)
	}

	//nolint:nilnil // response already written via ctx.JSON.
	return nil, nil
}

func (a *ForgeAPI) listEndpoints(ctx forge.Context, req *ListEndpointsForgeRequest) ([]*endpoint.Endpoint, error) {
	p, err := caller(ctx, "")
	if err != nil {
		return nil, err
	}

	eps, err := a.gw.Endpoints().List(ctx.Context(), p.ID, endpoint.ListOpts{
		Offset: req.Offset,
		Limit:  pageLimit(req.Limit),
	})
	if err != nil {
		return nil, mapError(err)
	}
	return eps, nil
}

func (a *ForgeAPI) getEndpoint(ctx forge.Context, req *GetEndpointForgeRequest) (*endpoint.Endpoint, error) {
	p, err := caller(ctx, "")
	if err != nil {
		return nil, err
	}
	return a.ownedEndpoint(ctx, p, req.EndpointID)
}

func (a *ForgeAPI) updateEndpoint(ctx forge.Context, req *UpdateEndpointForgeRequest) (*endpoint.Endpoint, error) {
	p, err := caller(ctx, PermEndpointsWrite)
	if err != nil {
		return nil, err
	}
	ep, err := a.ownedEndpoint(ctx, p, req.EndpointID)
	if err != nil {
		return nil, err
	}

	updated, err := a.gw.Endpoints().Update(ctx.Context(), ep.ID, endpoint.Input{
		Name:          req.Name,
		Destinations:  req.Destinations,
		AuthMethod:    endpoint.AuthMethod(req.AuthMethod),
		MaxTries:      req.MaxTries,
		Headers:       req.Headers,
		PayloadSchema: req.PayloadSchema,
		Metadata:      req.Metadata,
	})
	if err != nil {
		return nil, mapError(err)
	}
	return updated, nil
}

func (a *ForgeAPI) deleteEndpoint(ctx forge.Context, req *DeleteEndpointForgeRequest) (*endpoint.Endpoint, error) {
	p, err := caller(ctx, PermEndpointsWrite)
	if err != nil {
		return nil, err
	}
	ep, err := a.ownedEndpoint(ctx, p, req.EndpointID)
	if err != nil {
		return nil, err
	}

	if err := a.gw.Endpoints().Delete(ctx.Context(), ep.ID); err != nil {
		return nil, mapError(err)
	}

	err = ctx.NoContent(http.StatusNoContent)
	if err != nil {
		return nil, mapError(err)
	}

	//nolint:nilnil // response already written via ctx.NoContent.
	return nil, nil
}

func (a *ForgeAPI) rotateSecret(ctx forge.Context, req *GetEndpointForgeRequest) (*SecretForgeResponse, error) {
	p, err := caller(ctx, PermEndpointsWrite)
	if err != nil {
		return nil, err
	}
	ep, err := a.ownedEndpoint(ctx, p, req.EndpointID)
	if err != nil {
		return nil, err
	}

	secret, err := a.gw.Endpoints().RotateSecret(ctx.Context(), ep.ID)
	if err != nil {
		return nil, mapError(err)
	}
	return &SecretForgeResponse{Secret: secret}, nil
}

// ---------------------------------------------------------------------------
// Rule and transformation routes
// ---------------------------------------------------------------------------

func (a *ForgeAPI) registerRuleRoutes(router forge.Router) {
	g := router.Group("", forge.WithGroupTags("routing"))

	if err := g.POST("/endpoints/:endpointId/rules", a.createRule,
		forge.WithSummary("Create routing rule"),
		forge.WithDescription("Adds a route, drop or transform rule to an endpoint."),
		forge.WithOperationID("createRule"),
		forge.WithRequestSchema(CreateRuleForgeRequest{}),
		forge.WithCreatedResponse(routing.Rule{}),
		forge.WithErrorResponses(),
	); err != nil {
		a.log.Error("Failed to register createRule route", forge.Error(err))
	}

	if err := g.GET("/endpoints/:endpointId/rules", a.listRules,
		forge.WithSummary("List routing rules"),
		forge.WithDescription("Returns an endpoint's rules by descending priority, with match statistics."),
		forge.WithOperationID("listRules"),
		forge.WithListResponse(routing.Rule{}, http.StatusOK),
		forge.WithErrorResponses(),
	); err != nil {
		a.log.Error("Failed to register listRules route", forge.Error(err))
	}

	if err := g.POST("/endpoints/:endpointId/transformations", a.createTransformation,
		forge.WithSummary("Create transformation"),
		forge.WithDescription("Adds a transformation. It only becomes active when its fixtures pass."),
		forge.WithOperationID("createTransformation"),
		forge.WithRequestSchema(CreateTransformationForgeRequest{}),
		forge.WithCreatedResponse(transform.Transformation{}),
		forge.WithErrorResponses(),
	); err != nil {
		a.log.Error("Failed to register createTransformation route", forge.Error(err))
	}

	if err := g.GET("/endpoints/:endpointId/transformations", a.listTransformations,
		forge.WithSummary("List transformations"),
		forge.WithDescription("Returns an endpoint's transformations by descending priority."),
		forge.WithOperationID("listTransformations"),
		forge.WithListResponse(transform.Transformation{}, http.StatusOK),
		forge.WithErrorResponses(),
	); err != nil {
		a.log.Error("Failed to register listTransformations route", forge.Error(err))
	}

	if err := g.POST("/transformations/:transformationId/test", a.testTransformation,
		forge.WithSummary("Test transformation"),
		forge.WithDescription("Runs a transformation against its stored fixtures."),
		forge.WithOperationID("testTransformation"),
		forge.WithResponseSchema(http.StatusOK, "Fixture results", fixtureReport{}),
		forge.WithErrorResponses(),
	); err != nil {
		a.log.Error("Failed to register testTransformation route", forge.Error(err))
	}
}

func (a *ForgeAPI) createRule(ctx forge.Context, req *CreateRuleForgeRequest) (*routing.Rule, error) {
	p, err := caller(ctx, PermEndpointsWrite)
	if err != nil {
		return nil, err
	}
	ep, err := a.ownedEndpoint(ctx, p, req.EndpointID)
	if err != nil {
		return nil, err
	}

	rule, err := a.gw.Rules().Create(ctx.Context(), routing.Input{
		EndpointID:   ep.ID,
		Name:         req.Name,
		Action:       req.Action,
		Priority:     req.Priority,
		Active:       req.Active,
		Conditions:   req.Conditions,
		Destinations: req.Destinations,
	})
	if err != nil {
		return nil, mapError(err)
	}

	err = ctx.JSON(http.StatusCreated, rule)
	if err != nil {
		return nil, mapError(err)
	}

	//nolint:nilnil // response already written via ctx.JSON.
	return nil, nil
}

func (a *ForgeAPI) listRules(ctx forge.Context, req *ListRulesForgeRequest) ([]*routing.Rule, error) {
	p, err := caller(ctx, "")
	if err != nil {
		return nil, err
	}
	ep, err := a.ownedEndpoint(ctx, p, req.EndpointID)
	if err != nil {
		return nil, err
	}

	rules, err := a.gw.Rules().List(ctx.Context(), ep.ID)
	if err != nil {
		return nil, mapError(err)
	}
	return rules, nil
}

func (a *ForgeAPI) createTransformation(ctx forge.Context, req *CreateTransformationForgeRequest) (*transform.Transformation, error) {
	p, err := caller(ctx, PermEndpointsWrite)
	if err != nil {
		return nil, err
	}
	ep, err := a.ownedEndpoint(ctx, p, req.EndpointID)
	if err != nil {
		return nil, err
	}

	t, err := a.gw.Transformations().Create(ctx.Context(), transform.CreateInput{
		EndpointID: ep.ID,
		Name:       req.Name,
		Kind:       req.Kind,
		Priority:   req.Priority,
		Active:     req.Active,
		Conditions: req.Conditions,
		Config:     req.Config,
		Fixtures:   req.Fixtures,
	})
	if err != nil {
		return nil, mapError(err)
	}

	err = ctx.JSON(http.StatusCreated, t)
	if err != nil {
		return nil, mapError(err)
	}

	//nolint:nilnil // response already written via ctx.JSON.
	return nil, nil
}

func (a *ForgeAPI) listTransformations(ctx forge.Context, req *ListTransformationsForgeRequest) ([]*transform.Transformation, error) {
	p, err := caller(ctx, "")
	if err != nil {
		return nil, err
	}
	ep, err := a.ownedEndpoint(ctx, p, req.EndpointID)
	if err != nil {
		return nil, err
	}

	list, err := a.gw.Transformations().List(ctx.Context(), ep.ID)
	if err != nil {
		return nil, mapError(err)
	}
	return list, nil
}

func (a *ForgeAPI) testTransformation(ctx forge.Context, req *TestTransformationForgeRequest) (*fixtureReport, error) {
	p, err := caller(ctx, "")
	if err != nil {
		return nil, err
	}
	transformID, err := id.ParseTransformationID(req.TransformationID)
	if err != nil {
		return nil, forge.BadRequest("invalid transformation ID")
	}
	t, err := a.gw.Transformations().Get(ctx.Context(), transformID)
	if err != nil {
		return nil, mapError(err)
	}
	if _, err := a.ownedEndpoint(ctx, p, t.EndpointID.String()); err != nil {
		return nil, forge.NotFound(hookgate.ErrTransformationNotFound.Error())
	}

	results, err := a.gw.Transformations().Test(ctx.Context(), t.ID)
	if err != nil {
		return nil, mapError(err)
	}
	return &fixtureReport{Passed: transform.AllPassed(results), Results: results}, nil
}

// ---------------------------------------------------------------------------
// Event routes
// ---------------------------------------------------------------------------

func (a *ForgeAPI) registerEventRoutes(router forge.Router) {
	g := router.Group("", forge.WithGroupTags("events"))

	if err := g.GET("/events", a.listEvents,
		forge.WithSummary("List events"),
		forge.WithDescription("Returns the caller's events, newest first."),
		forge.WithOperationID("listEvents"),
		forge.WithRequestSchema(ListEventsForgeRequest{}),
		forge.WithListResponse(event.Event{}, http.StatusOK),
		forge.WithErrorResponses(),
	); err != nil {
		a.log.Error("Failed to register listEvents route", forge.Error(err))
	}

	if err := g.GET("/events/:eventId", a.getEvent,
		forge.WithSummary("Get event"),
		forge.WithDescription("Returns an event in its stored form."),
		forge.WithOperationID("getEvent"),
		forge.WithResponseSchema(http.StatusOK, "Event details", event.Event{}),
		forge.WithErrorResponses(),
	); err != nil {
		a.log.Error("Failed to register getEvent route", forge.Error(err))
	}

	if err := g.GET("/events/:eventId/deliveries", a.listDeliveries,
		forge.WithSummary("List delivery attempts"),
		forge.WithDescription("Returns the attempt ledger of an event in attempt order."),
		forge.WithOperationID("listDeliveries"),
		forge.WithListResponse(delivery.EventDelivery{}, http.StatusOK),
		forge.WithErrorResponses(),
	); err != nil {
		a.log.Error("Failed to register listDeliveries route", forge.Error(err))
	}

	if err := g.POST("/events/:eventId/replay", a.replayEvent,
		forge.WithSummary("Replay event"),
		forge.WithDescription("Creates a new pending event from a stored one."),
		forge.WithOperationID("replayEvent"),
		forge.WithResponseSchema(http.StatusAccepted, "Replayed event", event.Event{}),
		forge.WithErrorResponses(),
	); err != nil {
		a.log.Error("Failed to register replayEvent route", forge.Error(err))
	}

	if err := g.POST("/events/replay", a.replayBulk,
		forge.WithSummary("Bulk replay"),
		forge.WithDescription("Replays every event matching the filter."),
		forge.WithOperationID("replayBulk"),
		forge.WithRequestSchema(ReplayBulkForgeRequest{}),
		forge.WithResponseSchema(http.StatusAccepted, "Replay result", bulkReplayResponse{}),
		forge.WithErrorResponses(),
	); err != nil {
		a.log.Error("Failed to register replayBulk route", forge.Error(err))
	}
}

func (a *ForgeAPI) listEvents(ctx forge.Context, req *ListEventsForgeRequest) ([]*event.Event, error) {
	p, err := caller(ctx, PermEventsRead)
	if err != nil {
		return nil, err
	}

	opts := event.ListOpts{
		Offset:    req.Offset,
		Limit:     pageLimit(req.Limit),
		ProjectID: p.ID,
		Type:      req.Type,
	}
	if req.EndpointID != "" {
		if opts.EndpointID, err = id.ParseEndpointID(req.EndpointID); err != nil {
			return nil, forge.BadRequest("invalid endpoint_id")
		}
	}
	if req.Status != "" {
		st := event.Status(req.Status)
		opts.Status = &st
	}
	if opts.From, err = parseTime(req.From); err != nil {
		return nil, forge.BadRequest("invalid from")
	}
	if opts.To, err = parseTime(req.To); err != nil {
		return nil, forge.BadRequest("invalid to")
	}

	events, err := a.gw.ListEvents(ctx.Context(), opts)
	if err != nil {
		return nil, mapError(err)
	}
	return events, nil
}

func (a *ForgeAPI) getEvent(ctx forge.Context, req *GetEventForgeRequest) (*event.Event, error) {
	p, err := caller(ctx, PermEventsRead)
	if err != nil {
		return nil, err
	}
	return a.ownedEvent(ctx, p, req.EventID)
}

func (a *ForgeAPI) listDeliveries(ctx forge.Context, req *GetEventForgeRequest) ([]*delivery.EventDelivery, error) {
	p, err := caller(ctx, PermEventsRead)
	if err != nil {
		return nil, err
	}
	evt, err := a.ownedEvent(ctx, p, req.EventID)
	if err != nil {
		return nil, err
	}

	deliveries, err := a.gw.ListDeliveries(ctx.Context(), evt.ID)
	if err != nil {
		return nil, mapError(err)
	}
	return deliveries, nil
}

func (a *ForgeAPI) replayEvent(ctx forge.Context, req *GetEventForgeRequest) (*event.Event, error) {
	p, err := caller(ctx, PermEventsReplay)
	if err != nil {
		return nil, err
	}
	evt, err := a.ownedEvent(ctx, p, req.EventID)
	if err != nil {
		return nil, err
	}

	replayed, err := a.gw.Replay(ctx.Context(), evt.ID)
	if err != nil {
		return nil, mapError(err)
	}

	err = ctx.JSON(http.StatusAccepted, replayed)
	if err != nil {
		return nil, mapError(err)
	}

	//nolint:nilnil // response already written via ctx.JSON.
	return nil, nil
}

func (a *ForgeAPI) replayBulk(ctx forge.Context, req *ReplayBulkForgeRequest) (*bulkReplayResponse, error) {
	p, err := caller(ctx, PermEventsReplay)
	if err != nil {
		return nil, err
	}

	f := hookgate.ReplayFilter{
		ProjectID: p.ID,
		From:      req.From,
		To:        req.To,
		Limit:     req.Limit,
	}
	for _, raw := range req.EventIDs {
		evtID, parseErr := id.ParseEventID(raw)
		if parseErr != nil {
			return nil, forge.BadRequest("invalid event ID " + raw)
		}
		f.EventIDs = append(f.EventIDs, evtID)
	}
	if req.EndpointID != "" {
		if f.EndpointID, err = id.ParseEndpointID(req.EndpointID); err != nil {
			return nil, forge.BadRequest("invalid endpoint_id")
		}
	}
	if req.Status != "" {
		st := event.Status(req.Status)
		f.Status = &st
	}

	events, err := a.gw.ReplayBulk(ctx.Context(), f)
	if err != nil && len(events) == 0 {
		return nil, mapError(err)
	}
	resp := &bulkReplayResponse{Replayed: len(events), Events: events}
	if err != nil {
		resp.Error = err.Error()
	}

	err = ctx.JSON(http.StatusAccepted, resp)
	if err != nil {
		return nil, mapError(err)
	}

	//nolint:nilnil // response already written via ctx.JSON.
	return nil, nil
}

// ---------------------------------------------------------------------------
// DLQ routes
// ---------------------------------------------------------------------------

func (a *ForgeAPI) registerDLQRoutes(router forge.Router) {
	g := router.Group("", forge.WithGroupTags("dlq"))

	if err := g.GET("/dlq", a.listDLQ,
		forge.WithSummary("List DLQ entries"),
		forge.WithDescription("Returns the caller's dead letter queue entries, newest first."),
		forge.WithOperationID("listDLQ"),
		forge.WithRequestSchema(ListDLQForgeRequest{}),
		forge.WithListResponse(dlq.Entry{}, http.StatusOK),
		forge.WithErrorResponses(),
	); err != nil {
		a.log.Error("Failed to register listDLQ route", forge.Error(err))
	}

	if err := g.POST("/dlq/:dlqId/replay", a.replayDLQ,
		forge.WithSummary("Replay DLQ entry"),
		forge.WithDescription("Creates a new pending event from a dead-lettered one."),
		forge.WithOperationID("replayDLQ"),
		forge.WithResponseSchema(http.StatusAccepted, "Replayed event", event.Event{}),
		forge.WithErrorResponses(),
	); err != nil {
		a.log.Error("Failed to register replayDLQ route", forge.Error(err))
	}
}

func (a *ForgeAPI) listDLQ(ctx forge.Context, req *ListDLQForgeRequest) ([]*dlq.Entry, error) {
	p, err := caller(ctx, PermDLQRead)
	if err != nil {
		return nil, err
	}

	opts := dlq.ListOpts{
		Offset:    req.Offset,
		Limit:     pageLimit(req.Limit),
		ProjectID: p.ID,
		Pending:   req.Pending,
	}
	if req.EndpointID != "" {
		if opts.EndpointID, err = id.ParseEndpointID(req.EndpointID); err != nil {
			return nil, forge.BadRequest("invalid endpoint_id")
		}
	}

	entries, err := a.gw.DLQ().List(ctx.Context(), opts)
	if err != nil {
		return nil, mapError(err)
	}
	return entries, nil
}

func (a *ForgeAPI) replayDLQ(ctx forge.Context, req *ReplayDLQForgeRequest) (*event.Event, error) {
	p, err := caller(ctx, PermEventsReplay)
	if err != nil {
		return nil, err
	}
	dlqID, err := id.ParseDLQID(req.DLQID)
	if err != nil {
		return nil, forge.BadRequest("invalid DLQ ID")
	}
	entry, err := a.gw.DLQ().Get(ctx.Context(), dlqID)
	if err != nil {
		return nil, mapError(err)
	}
	if entry.ProjectID != p.ID {
		return nil, forge.NotFound(hookgate.ErrDLQNotFound.Error())
	}

	replayed, err := a.gw.ReplayDLQ(ctx.Context(), entry.ID)
	if err != nil {
		return nil, mapError(err)
	}

	err = ctx.JSON(http.StatusAccepted, replayed)
	if err != nil {
		return nil, mapError(err)
	}

	//nolint:nilnil // response already written via ctx.JSON.
	return nil, nil
}

// parseTime parses an optional RFC 3339 timestamp.
func parseTime(s string) (*time.Time, error) {
	if s == "" {
		return nil, nil
	}
	t, err := time.Parse(time.RFC3339, s)
	if err != nil {
		return nil, err
	}
	return &t, nil
}
