package api

import (
	"net/http"

	"github.com/xraph/hookgate/event"
)

type statsResponse struct {
	Events  map[event.Status]int64 `json:"events"`
	DLQSize int64                  `json:"dlq_size"`
}

var statsStatuses = []event.Status{
	event.StatusPending,
	event.StatusProcessing,
	event.StatusDelivered,
	event.StatusFailed,
	event.StatusPermanentlyFailed,
}

func (h *Handler) getStats(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	counts := make(map[event.Status]int64, len(statsStatuses))
	for _, st := range statsStatuses {
		n, err := h.gw.Store().CountEvents(ctx, st)
		if err != nil {
			h.fail(w, r, err)
			return
		}
		counts[st] = n
	}

	dlqCount, err := h.gw.DLQ().Count(ctx)
	if err != nil {
		h.fail(w, r, err)
		return
	}

	writeJSON(w, http.StatusOK, statsResponse{
		Events:  counts,
		DLQSize: dlqCount,
	})
}
