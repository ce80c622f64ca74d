// Package extension embeds hookgate in a host application.
//
// An Extension owns one Gateway and takes care of:
//   - running store migrations on Init
//   - mounting the HTTP API under a configurable prefix
//   - registering the management routes on a Forge router with OpenAPI metadata
//   - starting the delivery engine and stopping it gracefully
//   - health checks via store.Ping
//
// Usage:
//
//	ext := extension.New(
//	    extension.WithStore(postgresStore),
//	    extension.WithPrefix("/webhooks"),
//	)
//	if err := ext.Init(ctx); err != nil {
//	    return err
//	}
//	mux.Handle("/webhooks/", ext.Handler())
//	ext.Start(ctx)
//	defer ext.Stop(context.Background())
package extension
