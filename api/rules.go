package api

import (
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/xraph/hookgate/id"
	"github.com/xraph/hookgate/routing"
	"github.com/xraph/hookgate/transform"
)

func (h *Handler) createRule(w http.ResponseWriter, r *http.Request) {
	if !allowed(w, r, PermEndpointsWrite) {
		return
	}
	ep, ok := h.ownedEndpoint(w, r)
	if !ok {
		return
	}
	var in routing.Input
	if err := decodeJSON(r, &in); err != nil {
		writeError(w, http.StatusBadRequest, "invalid JSON: "+err.Error())
		return
	}
	in.EndpointID = ep.ID

	rule, err := h.gw.Rules().Create(r.Context(), in)
	if err != nil {
		h.fail(w, r, err)
		return
	}
	writeJSON(w, http.StatusCreated, rule)
}

func (h *Handler) listRules(w http.ResponseWriter, r *http.Request) {
	ep, ok := h.ownedEndpoint(w, r)
	if !ok {
		return
	}
	rules, err := h.gw.Rules().List(r.Context(), ep.ID)
	if err != nil {
		h.fail(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, rules)
}

func (h *Handler) deleteRule(w http.ResponseWriter, r *http.Request) {
	if !allowed(w, r, PermEndpointsWrite) {
		return
	}
	ruleID, err := id.ParseRuleID(chi.URLParam(r, "id"))
	if err != nil {
		writeError(w, http.StatusBadRequest, "invalid rule ID")
		return
	}
	rule, err := h.gw.Rules().Get(r.Context(), ruleID)
	if err != nil {
		h.fail(w, r, err)
		return
	}
	ep, err := h.gw.Endpoints().Get(r.Context(), rule.EndpointID)
	if err != nil {
		h.fail(w, r, err)
		return
	}
	if !owned(w, r, ep.ProjectID) {
		return
	}
	if err := h.gw.Rules().Delete(r.Context(), rule.ID); err != nil {
		h.fail(w, r, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (h *Handler) createTransformation(w http.ResponseWriter, r *http.Request) {
	if !allowed(w, r, PermEndpointsWrite) {
		return
	}
	ep, ok := h.ownedEndpoint(w, r)
	if !ok {
		return
	}
	var in transform.CreateInput
	if err := decodeJSON(r, &in); err != nil {
		writeError(w, http.StatusBadRequest, "invalid JSON: "+err.Error())
		return
	}
	in.EndpointID = ep.ID

	t, err := h.gw.Transformations().Create(r.Context(), in)
	if err != nil {
		h.fail(w, r, err)
		return
	}
	writeJSON(w, http.StatusCreated, t)
}

func (h *Handler) listTransformations(w http.ResponseWriter, r *http.Request) {
	ep, ok := h.ownedEndpoint(w, r)
	if !ok {
		return
	}
	list, err := h.gw.Transformations().List(r.Context(), ep.ID)
	if err != nil {
		h.fail(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, list)
}

type fixtureReport struct {
	Passed  bool                      `json:"passed"`
	Results []transform.FixtureResult `json:"results"`
}

func (h *Handler) testTransformation(w http.ResponseWriter, r *http.Request) {
	transformID, err := id.ParseTransformationID(chi.URLParam(r, "id"))
	if err != nil {
		writeError(w, http.StatusBadRequest, "invalid transformation ID")
		return
	}
	t, err := h.gw.Transformations().Get(r.Context(), transformID)
	if err != nil {
		h.fail(w, r, err)
		return
	}
	ep, err := h.gw.Endpoints().Get(r.Context(), t.EndpointID)
	if err != nil {
		h.fail(w, r, err)
		return
	}
	if !owned(w, r, ep.ProjectID) {
		return
	}

	results, err := h.gw.Transformations().Test(r.Context(), t.ID)
	if err != nil {
		h.fail(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, fixtureReport{
		Passed:  transform.AllPassed(results),
		Results: results,
	})
}
