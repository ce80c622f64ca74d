package api

import (
	"crypto/subtle"
	"net/http"

	"github.com/xraph/hookgate"
	"github.com/xraph/hookgate/id"
	"github.com/xraph/hookgate/project"
	"github.com/xraph/hookgate/scope"
)

// HeaderAdminToken carries the operator token for project administration.
const HeaderAdminToken = "X-Admin-Token"

// Permissions checked by management routes. A project with no explicit
// permissions holds all of them.
const (
	PermEndpointsWrite = "endpoints:write"
	PermEventsRead     = "events:read"
	PermEventsReplay   = "events:replay"
	PermDLQRead        = "dlq:read"
)

// RequireProject authenticates the X-API-Key header against projects and
// stores the caller's project in the request context.
func RequireProject(projects *project.Service) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			key := r.Header.Get(hookgate.HeaderAPIKey)
			if key == "" {
				writeError(w, http.StatusUnauthorized, "missing "+hookgate.HeaderAPIKey+" header")
				return
			}
			p, err := projects.Authenticate(r.Context(), key)
			if err != nil {
				if statusOf(err) == http.StatusUnauthorized {
					writeError(w, http.StatusUnauthorized, "invalid api key")
					return
				}
				writeError(w, http.StatusInternalServerError, "internal server error")
				return
			}
			next.ServeHTTP(w, r.WithContext(scope.WithProject(r.Context(), p)))
		})
	}
}

func (h *Handler) requireAdmin(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		token := r.Header.Get(HeaderAdminToken)
		if h.config.AdminToken == "" ||
			subtle.ConstantTimeCompare([]byte(token), []byte(h.config.AdminToken)) != 1 {
			writeError(w, http.StatusUnauthorized, "admin token required")
			return
		}
		next.ServeHTTP(w, r)
	})
}

// allowed reports whether the caller holds perm, writing 403 otherwise.
func allowed(w http.ResponseWriter, r *http.Request, perm string) bool {
	p, ok := scope.Project(r.Context())
	if !ok || !p.Can(perm) {
		writeError(w, http.StatusForbidden, "missing permission "+perm)
		return false
	}
	return true
}

// owned reports whether the caller owns a resource of projectID. Foreign
// resources are reported as missing.
func owned(w http.ResponseWriter, r *http.Request, projectID id.ID) bool {
	if !scope.Owns(r.Context(), projectID) {
		writeError(w, http.StatusNotFound, "not found")
		return false
	}
	return true
}
