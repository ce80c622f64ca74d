package api

import (
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/xraph/hookgate/id"
	"github.com/xraph/hookgate/project"
)

// projectCreated reveals the credentials of a new project. They are not
// returned again.
type projectCreated struct {
	*project.Project
	APIKey        string `json:"api_key"`
	SigningSecret string `json:"signing_secret"`
}

func (h *Handler) createProject(w http.ResponseWriter, r *http.Request) {
	var in project.Input
	if err := decodeJSON(r, &in); err != nil {
		writeError(w, http.StatusBadRequest, "invalid JSON: "+err.Error())
		return
	}

	p, err := h.gw.Projects().Create(r.Context(), in)
	if err != nil {
		h.fail(w, r, err)
		return
	}

	writeJSON(w, http.StatusCreated, projectCreated{
		Project:       p,
		APIKey:        p.APIKey,
		SigningSecret: p.SigningSecret,
	})
}

func (h *Handler) listProjects(w http.ResponseWriter, r *http.Request) {
	projects, err := h.gw.Projects().List(r.Context(), project.ListOpts{
		Offset: queryInt(r, "offset", 0),
		Limit:  queryInt(r, "limit", 50),
	})
	if err != nil {
		h.fail(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, projects)
}

func (h *Handler) enableProject(w http.ResponseWriter, r *http.Request) {
	h.setProjectActive(w, r, true)
}

func (h *Handler) disableProject(w http.ResponseWriter, r *http.Request) {
	h.setProjectActive(w, r, false)
}

func (h *Handler) setProjectActive(w http.ResponseWriter, r *http.Request, active bool) {
	projectID, err := id.ParseProjectID(chi.URLParam(r, "id"))
	if err != nil {
		writeError(w, http.StatusBadRequest, "invalid project ID")
		return
	}
	if err := h.gw.Projects().SetActive(r.Context(), projectID, active); err != nil {
		h.fail(w, r, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (h *Handler) rotateAPIKey(w http.ResponseWriter, r *http.Request) {
	projectID, err := id.ParseProjectID(chi.URLParam(r, "id"))
	if err != nil {
		writeError(w, http.StatusBadRequest, "invalid project ID")
		return
	}
	key, err := h.gw.Projects().RotateAPIKey(r.Context(), projectID)
	if err != nil {
		h.fail(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"api_key": key})
}
