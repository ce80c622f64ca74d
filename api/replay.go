package api

import (
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/xraph/hookgate"
	"github.com/xraph/hookgate/dlq"
	"github.com/xraph/hookgate/event"
	"github.com/xraph/hookgate/id"
	"github.com/xraph/hookgate/scope"
)

type bulkReplayResponse struct {
	Replayed int            `json:"replayed"`
	Events   []*event.Event `json:"events"`
	Error    string         `json:"error,omitempty"`
}

func (h *Handler) replayEvent(w http.ResponseWriter, r *http.Request) {
	if !allowed(w, r, PermEventsReplay) {
		return
	}
	evt, ok := h.ownedEvent(w, r)
	if !ok {
		return
	}
	replayed, err := h.gw.Replay(r.Context(), evt.ID)
	if err != nil {
		h.fail(w, r, err)
		return
	}
	writeJSON(w, http.StatusAccepted, replayed)
}

func (h *Handler) replayBulk(w http.ResponseWriter, r *http.Request) {
	if !allowed(w, r, PermEventsReplay) {
		return
	}
	var f hookgate.ReplayFilter
	if err := decodeJSON(r, &f); err != nil {
		writeError(w, http.StatusBadRequest, "invalid JSON: "+err.Error())
		return
	}
	f.ProjectID = scope.ProjectID(r.Context())

	events, err := h.gw.ReplayBulk(r.Context(), f)
	if err != nil && len(events) == 0 {
		h.fail(w, r, err)
		return
	}
	resp := bulkReplayResponse{Replayed: len(events), Events: events}
	if err != nil {
		// Partial success: some matched events could not be replayed.
		resp.Error = err.Error()
	}
	writeJSON(w, http.StatusAccepted, resp)
}

func (h *Handler) listDLQ(w http.ResponseWriter, r *http.Request) {
	if !allowed(w, r, PermDLQRead) {
		return
	}
	q := r.URL.Query()
	opts := dlq.ListOpts{
		Offset:    queryInt(r, "offset", 0),
		Limit:     queryInt(r, "limit", 50),
		ProjectID: scope.ProjectID(r.Context()),
		Pending:   q.Get("pending") == "true",
	}
	if v := q.Get("endpoint_id"); v != "" {
		epID, err := id.ParseEndpointID(v)
		if err != nil {
			writeError(w, http.StatusBadRequest, "invalid endpoint_id")
			return
		}
		opts.EndpointID = epID
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

	entries, err := h.gw.DLQ().List(r.Context(), opts)
	if err != nil {
		h.fail(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, entries)
}

func (h *Handler) replayDLQ(w http.ResponseWriter, r *http.Request) {
	if !allowed(w, r, PermEventsReplay) {
		return
	}
	dlqID, err := id.ParseDLQID(chi.URLParam(r, "id"))
	if err != nil {
		writeError(w, http.StatusBadRequest, "invalid DLQ ID")
		return
	}
	entry, err := h.gw.DLQ().Get(r.Context(), dlqID)
	if err != nil {
		h.fail(w, r, err)
		return
	}
	if !owned(w, r, entry.ProjectID) {
		return
	}

	replayed, err := h.gw.ReplayDLQ(r.Context(), entry.ID)
	if err != nil {
		h.fail(w, r, err)
		return
	}
	writeJSON(w, http.StatusAccepted, replayed)
}
