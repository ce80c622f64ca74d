package api

import (
	"errors"
	"io"
	"net"
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/xraph/hookgate"
	"github.com/xraph/hookgate/id"
)

type ingestResponse struct {
	EventID string `json:"event_id,omitempty"`
	Status  string `json:"status"`
	Dropped bool   `json:"dropped"`
}

func (h *Handler) ingest(w http.ResponseWriter, r *http.Request) {
	epID, err := id.ParseEndpointID(chi.URLParam(r, "endpointId"))
	if err != nil {
		writeError(w, http.StatusNotFound, "unknown endpoint")
		return
	}

	body, err := io.ReadAll(http.MaxBytesReader(w, r.Body, h.config.MaxBodyBytes))
	if err != nil {
		var tooLarge *http.MaxBytesError
		if errors.As(err, &tooLarge) {
			writeError(w, http.StatusRequestEntityTooLarge, "request body too large")
			return
		}
		writeError(w, http.StatusBadRequest, "unreadable request body")
		return
	}

	res, err := h.gw.Ingest(r.Context(), hookgate.IngestRequest{
		EndpointID: epID,
		Body:       body,
		Headers:    flattenHeaders(r.Header),
		SourceIP:   sourceIP(r),
		EventType:  r.URL.Query().Get("event_type"),
	})
	if err != nil {
		h.fail(w, r, err)
		return
	}

	if res.Dropped {
		writeJSON(w, http.StatusOK, ingestResponse{Status: "dropped", Dropped: true})
		return
	}
	writeJSON(w, http.StatusAccepted, ingestResponse{
		EventID: res.Event.ID.String(),
		Status:  string(res.Event.Status),
	})
}

// flattenHeaders keeps the first value of each header.
func flattenHeaders(h http.Header) map[string]string {
	out := make(map[string]string, len(h))
	for k, v := range h {
		if len(v) > 0 {
			out[k] = v[0]
		}
	}
	return out
}

// sourceIP strips the port from RemoteAddr. RealIP middleware has already
// replaced it with the forwarded address when present.
func sourceIP(r *http.Request) string {
	host, _, err := net.SplitHostPort(r.RemoteAddr)
	if err != nil {
		return r.RemoteAddr
	}
	return host
}
