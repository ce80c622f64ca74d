// Package api exposes a Gateway over HTTP.
//
// The chi Handler serves the public ingestion route and the project-scoped
// management routes. ForgeAPI registers the same management operations on a
// Forge router with OpenAPI metadata.
package api

import (
	"encoding/json"
	"log/slog"
	"net/http"
	"runtime/debug"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"

	"github.com/xraph/hookgate"
)

// DefaultMaxBodyBytes caps inbound webhook bodies when HandlerConfig leaves
// MaxBodyBytes unset.
const DefaultMaxBodyBytes = 1 << 20

// HandlerConfig tunes the HTTP surface.
type HandlerConfig struct {
	// AdminToken guards project creation, project listing and stats. Empty
	// disables those routes.
	AdminToken string

	// MaxBodyBytes caps inbound webhook bodies.
	MaxBodyBytes int64

	// Metrics is served on GET /metrics when set.
	Metrics http.Handler
}

// Handler is the root HTTP handler of the gateway.
type Handler struct {
	gw     *hookgate.Gateway
	config HandlerConfig
	logger *slog.Logger
	router chi.Router
}

// NewHandler creates a handler serving gw.
func NewHandler(gw *hookgate.Gateway, cfg HandlerConfig, logger *slog.Logger) *Handler {
	if logger == nil {
		logger = slog.Default()
	}
	if cfg.MaxBodyBytes <= 0 {
		cfg.MaxBodyBytes = DefaultMaxBodyBytes
	}

	h := &Handler{
		gw:     gw,
		config: cfg,
		logger: logger,
		router: chi.NewRouter(),
	}

	h.registerRoutes()
	return h
}

func (h *Handler) registerRoutes() {
	r := h.router
	r.Use(middleware.RequestID, middleware.RealIP, h.panicRecovery, h.logging)

	r.Post("/ingest/{endpointId}", h.ingest)
	if h.config.Metrics != nil {
		r.Method(http.MethodGet, "/metrics", h.config.Metrics)
	}

	r.Group(func(r chi.Router) {
		r.Use(h.requireAdmin)
		r.Post("/projects", h.createProject)
		r.Get("/projects", h.listProjects)
		r.Patch("/projects/{id}/enable", h.enableProject)
		r.Patch("/projects/{id}/disable", h.disableProject)
		r.Post("/projects/{id}/rotate-key", h.rotateAPIKey)
		r.Get("/stats", h.getStats)
	})

	r.Group(func(r chi.Router) {
		r.Use(RequireProject(h.gw.Projects()))

		// Endpoints
		r.Post("/endpoints", h.createEndpoint)
		r.Get("/endpoints", h.listEndpoints)
		r.Get("/endpoints/{id}", h.getEndpoint)
		r.Put("/endpoints/{id}", h.updateEndpoint)
		r.Delete("/endpoints/{id}", h.deleteEndpoint)
		r.Patch("/endpoints/{id}/enable", h.enableEndpoint)
		r.Patch("/endpoints/{id}/disable", h.disableEndpoint)
		r.Post("/endpoints/{id}/rotate-secret", h.rotateSecret)

		// Rules and transformations
		r.Post("/endpoints/{id}/rules", h.createRule)
		r.Get("/endpoints/{id}/rules", h.listRules)
		r.Delete("/rules/{id}", h.deleteRule)
		r.Post("/endpoints/{id}/transformations", h.createTransformation)
		r.Get("/endpoints/{id}/transformations", h.listTransformations)
		r.Post("/transformations/{id}/test", h.testTransformation)

		// Events
		r.Get("/events", h.listEvents)
		r.Get("/events/{id}", h.getEvent)
		r.Get("/events/{id}/deliveries", h.listDeliveries)
		r.Post("/events/{id}/replay", h.replayEvent)
		r.Post("/events/replay", h.replayBulk)

		// DLQ
		r.Get("/dlq", h.listDLQ)
		r.Post("/dlq/{id}/replay", h.replayDLQ)
	})
}

// ServeHTTP implements http.Handler.
func (h *Handler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	h.router.ServeHTTP(w, r)
}

func (h *Handler) logging(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		rw := &responseWriter{ResponseWriter: w, status: http.StatusOK}
		next.ServeHTTP(rw, r)
		h.logger.Info("api request",
			"method", r.Method,
			"path", r.URL.Path,
			"status", rw.status,
			"request_id", middleware.GetReqID(r.Context()),
			"duration_ms", time.Since(start).Milliseconds(),
		)
	})
}

func (h *Handler) panicRecovery(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		defer func() {
			if rec := recover(); rec != nil {
				h.logger.Error("panic recovered",
					"error", rec,
					"stack", string(debug.Stack()),
				)
				writeError(w, http.StatusInternalServerError, "internal server error")
			}
		}()
		next.ServeHTTP(w, r)
	})
}

// responseWriter wraps http.ResponseWriter to capture the status code.
type responseWriter struct {
	http.ResponseWriter
	status int
}

func (rw *responseWriter) WriteHeader(code int) {
	rw.status = code
	rw.ResponseWriter.WriteHeader(code)
}

// JSON helpers.

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(v) //nolint:errcheck // best effort
}

func writeError(w http.ResponseWriter, status int, msg string) {
	writeJSON(w, status, map[string]string{"error": msg})
}

func decodeJSON(r *http.Request, v any) error {
	defer r.Body.Close()
	return json.NewDecoder(r.Body).Decode(v)
}

// queryInt returns a query parameter as int or a default value.
func queryInt(r *http.Request, key string, defaultVal int) int {
	n, err := strconv.Atoi(r.URL.Query().Get(key))
	if err != nil || n < 0 {
		return defaultVal
	}
	return n
}

// queryTime parses an RFC 3339 query parameter. A missing parameter yields nil.
func queryTime(r *http.Request, key string) (*time.Time, error) {
	return parseTime(r.URL.Query().Get(key))
}
