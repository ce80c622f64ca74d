package api

import (
	"net/http"

	"github.com/xraph/forge"
)

// mapError converts gateway errors to Forge HTTP errors.
func mapError(err error) error {
	switch status := statusOf(err); status {
	case http.StatusNotFound:
		return forge.NotFound(err.Error())
	case http.StatusBadRequest:
		return forge.BadRequest(err.Error())
	case http.StatusInternalServerError:
		return forge.InternalError(err)
	default:
		return forge.NewHTTPError(status, err.Error())
	}
}
