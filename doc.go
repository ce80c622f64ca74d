// Package hookgate is an event-delivery webhook gateway.
//
// A Gateway accepts inbound webhook calls on endpoints, authenticates them,
// routes each payload with conditional rules, reshapes it with an ordered
// transformation pipeline, optionally encrypts it at rest and persists it.
// A background engine then delivers every event to its destinations with
// signed HTTP requests, retries failed rounds on a backoff table and moves
// events that exhaust their budget to a dead-letter queue, notifying
// administrators on the way. Any event can be replayed.
//
// Persistence is pluggable through store.Store, with memory, PostgreSQL,
// SQLite, MongoDB and Redis backends.
//
// Quick start:
//
//	gw, err := hookgate.New(
//	    hookgate.WithStore(memory.New()),
//	)
//	if err != nil {
//	    log.Fatal(err)
//	}
//	gw.Start(ctx)
//	defer gw.Stop(ctx)
//
//	p, _ := gw.Projects().Create(ctx, project.Input{Name: "billing"})
//	ep, _ := gw.Endpoints().Create(ctx, endpoint.Input{
//	    ProjectID:    p.ID,
//	    Name:         "stripe",
//	    Destinations: []string{"https://billing.internal/hooks"},
//	})
//
//	gw.Ingest(ctx, hookgate.IngestRequest{
//	    EndpointID: ep.ID,
//	    Body:       []byte(`{"type":"invoice.paid","amount":100}`),
//	})
package hookgate
