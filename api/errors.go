package api

import (
	"errors"
	"net/http"

	"github.com/xraph/hookgate"
	"github.com/xraph/hookgate/endpoint"
	"github.com/xraph/hookgate/project"
	"github.com/xraph/hookgate/routing"
	"github.com/xraph/hookgate/transform"
)

// statusOf maps an error returned by the gateway or its services to an HTTP
// status code.
func statusOf(err error) int {
	var (
		authErr      *hookgate.AuthError
		validation   *hookgate.ValidationError
		projectErr   *project.ValidationError
		endpointErr  *endpoint.ValidationError
		ruleErr      *routing.ValidationError
		transformErr *transform.ValidationError
	)
	switch {
	case errors.As(err, &authErr):
		if authErr.RateLimited {
			return http.StatusTooManyRequests
		}
		return http.StatusUnauthorized
	case errors.Is(err, project.ErrUnauthenticated):
		return http.StatusUnauthorized
	case errors.As(err, &validation),
		errors.As(err, &projectErr),
		errors.As(err, &endpointErr),
		errors.As(err, &ruleErr),
		errors.As(err, &transformErr),
		errors.Is(err, transform.ErrUnsupportedKind):
		return http.StatusBadRequest
	case errors.Is(err, hookgate.ErrEventNotReplayable):
		return http.StatusConflict
	case errors.Is(err, hookgate.ErrEndpointInactive), hookgate.IsNotFound(err):
		return http.StatusNotFound
	default:
		return http.StatusInternalServerError
	}
}

// fail writes err with its mapped status. Internal errors are logged and
// reported without detail.
func (h *Handler) fail(w http.ResponseWriter, r *http.Request, err error) {
	status := statusOf(err)
	if status == http.StatusInternalServerError {
		h.logger.Error("api request failed",
			"method", r.Method,
			"path", r.URL.Path,
			"error", err,
		)
		writeError(w, status, "internal server error")
		return
	}
	writeError(w, status, err.Error())
}
