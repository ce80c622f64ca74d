package api

import (
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/xraph/hookgate/event"
	"github.com/xraph/hookgate/id"
	"github.com/xraph/hookgate/scope"
)

// ownedEvent loads the event named by the {id} path parameter and checks it
// belongs to the caller.
func (h *Handler) ownedEvent(w http.ResponseWriter, r *http.Request) (*event.Event, bool) {
	evtID, err := id.ParseEventID(chi.URLParam(r, "id"))
	if err != nil {
		writeError(w, http.StatusBadRequest, "invalid event ID")
		return nil, false
	}
	evt, err := h.gw.GetEvent(r.Context(), evtID)
	if err != nil {
		h.fail(w, r, err)
		return nil, false
	}
	if !owned(w, r, evt.ProjectID) {
		return nil, false
	}
	return evt, true
}

func (h *Handler) listEvents(w http.ResponseWriter, r *http.Request) {
	if !allowed(w, r, PermEventsRead) {
		return
	}
	q := r.URL.Query()
	opts := event.ListOpts{
		Offset:    queryInt(r, "offset", 0),
		Limit:     queryInt(r, "limit", 50),
		ProjectID: scope.ProjectID(r.Context()),
		Type:      q.Get("type"),
	}
	if v := q.Get("endpoint_id"); v != "" {
		epID, err := id.ParseEndpointID(v)
		if err != nil {
			writeError(w, http.StatusBadRequest, "invalid endpoint_id")
			return
		}
		opts.EndpointID = epID
	}
	if v := q.Get("status"); v != "" {
		st := event.Status(v)
		opts.Status = &st
	}
	var err error
	if opts.From, err = queryTime(r, "from"); err != nil {
		writeError(w, http.StatusBadRequest, "invalid from: "+err.Error())
		return
	}
	if opts.To, err = queryTime(r, "to"); err != nil {
		writeError(w, http.StatusBadRequest, "invalid to: "+err.Error())
		return
	}

	events, err := h.gw.ListEvents(r.Context(), opts)
	if err != nil {
		h.fail(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, events)
}

func (h *Handler) getEvent(w http.ResponseWriter, r *http.Request) {
	if !allowed(w, r, PermEventsRead) {
		return
	}
	evt, ok := h.ownedEvent(w, r)
	if !ok {
		return
	}
	writeJSON(w, http.StatusOK, evt)
}

func (h *Handler) listDeliveries(w http.ResponseWriter, r *http.Request) {
	if !allowed(w, r, PermEventsRead) {
		return
	}
	evt, ok := h.ownedEvent(w, r)
	if !ok {
		return
	}
	deliveries, err := h.gw.ListDeliveries(r.Context(), evt.ID)
	if err != nil {
		h.fail(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, deliveries)
}
