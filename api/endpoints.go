package api

import (
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/xraph/hookgate/endpoint"
	"github.com/xraph/hookgate/id"
	"github.com/xraph/hookgate/scope"
)

// endpointCreated reveals the inbound auth secret of a new endpoint.
type endpointCreated struct {
	*endpoint.Endpoint
	AuthSecret string `json:"auth_secret,omitempty"`
}

// ownedEndpoint loads the endpoint named by the {id} path parameter and
// checks it belongs to the caller. It writes the error response itself.
func (h *Handler) ownedEndpoint(w http.ResponseWriter, r *http.Request) (*endpoint.Endpoint, bool) {
	epID, err := id.ParseEndpointID(chi.URLParam(r, "id"))
	if err != nil {
		writeError(w, http.StatusBadRequest, "invalid endpoint ID")
		return nil, false
	}
	ep, err := h.gw.Endpoints().Get(r.Context(), epID)
	if err != nil {
		h.fail(w, r, err)
		return nil, false
	}
	if !owned(w, r, ep.ProjectID) {
		return nil, false
	}
	return ep, true
}

func (h *Handler) createEndpoint(w http.ResponseWriter, r *http.Request) {
	if !allowed(w, r, PermEndpointsWrite) {
		return
	}
	var in endpoint.Input
	if err := decodeJSON(r, &in); err != nil {
		writeError(w, http.StatusBadRequest, "invalid JSON: "+err.Error())
		return
	}
	in.ProjectID = scope.ProjectID(r.Context())

	ep, err := h.gw.Endpoints().Create(r.Context(), in)
	if err != nil {
		h.fail(w, r, err)
		return
	}
	writeJSON(w, http.StatusCreated, endpointCreated{Endpoint: ep, AuthSecret: ep.AuthSecret})
}

func (h *Handler) listEndpoints(w http.ResponseWriter, r *http.Request) {
	opts := endpoint.ListOpts{
		Offset: queryInt(r, "offset", 0),
		Limit:  queryInt(r, "limit", 50),
	}
	switch r.URL.Query().Get("active") {
	case "true":
		active := true
		opts.Active = &active
	case "false":
		active := false
		opts.Active = &active
	}

	eps, err := h.gw.Endpoints().List(r.Context(), scope.ProjectID(r.Context()), opts)
	if err != nil {
		h.fail(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, eps)
}

func (h *Handler) getEndpoint(w http.ResponseWriter, r *http.Request) {
	ep, ok := h.ownedEndpoint(w, r)
	if !ok {
		return
	}
	writeJSON(w, http.StatusOK, ep)
}

func (h *Handler) updateEndpoint(w http.ResponseWriter, r *http.Request) {
	if !allowed(w, r, PermEndpointsWrite) {
		return
	}
	ep, ok := h.ownedEndpoint(w, r)
	if !ok {
		return
	}
	var in endpoint.Input
	if err := decodeJSON(r, &in); err != nil {
		writeError(w, http.StatusBadRequest, "invalid JSON: "+err.Error())
		return
	}

	updated, err := h.gw.Endpoints().Update(r.Context(), ep.ID, in)
	if err != nil {
		h.fail(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, updated)
}

func (h *Handler) deleteEndpoint(w http.ResponseWriter, r *http.Request) {
	if !allowed(w, r, PermEndpointsWrite) {
		return
	}
	ep, ok := h.ownedEndpoint(w, r)
	if !ok {
		return
	}
	if err := h.gw.Endpoints().Delete(r.Context(), ep.ID); err != nil {
		h.fail(w, r, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (h *Handler) enableEndpoint(w http.ResponseWriter, r *http.Request) {
	h.setEndpointActive(w, r, true)
}

func (h *Handler) disableEndpoint(w http.ResponseWriter, r *http.Request) {
	h.setEndpointActive(w, r, false)
}

func (h *Handler) setEndpointActive(w http.ResponseWriter, r *http.Request, active bool) {
	if !allowed(w, r, PermEndpointsWrite) {
		return
	}
	ep, ok := h.ownedEndpoint(w, r)
	if !ok {
		return
	}
	if err := h.gw.Endpoints().SetActive(r.Context(), ep.ID, active); err != nil {
		h.fail(w, r, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (h *Handler) rotateSecret(w http.ResponseWriter, r *http.Request) {
	if !allowed(w, r, PermEndpointsWrite) {
		return
	}
	ep, ok := h.ownedEndpoint(w, r)
	if !ok {
		return
	}
	secret, err := h.gw.Endpoints().RotateSecret(r.Context(), ep.ID)
	if err != nil {
		h.fail(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"auth_secret": secret})
}
