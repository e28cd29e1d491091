package web

import (
	"encoding/json"
	"fmt"
	"net/http"

	"github.com/serwidlick/backstage/logs"
)

// streamLogs handles GET /api/v1/logs/stream (SSE). Each delivered
// entry becomes one `data:` event. Optional min_level and tag params
// filter the live feed; pagination params are ignored here.
func (h *handlers) streamLogs(w http.ResponseWriter, r *http.Request) {
	flusher, ok := w.(http.Flusher)
	if !ok {
		writeJSON(w, http.StatusInternalServerError, ErrorResponse{
			Error: "streaming not supported",
			Code:  CodeStreamingNotSupported,
		})
		return
	}

	criteria, err := parseCriteria(r)
	if err != nil {
		h.writeError(w, err)
		return
	}
	criteria.Limit = 0
	criteria.Offset = 0
	matcher := logs.NewMatcher(criteria)

	sub := h.console.Store().Subscribe()
	defer sub.Cancel()

	w.Header().Set("Content-Type", "text/event-stream")
	w.Header().Set("Cache-Control", "no-cache")
	w.Header().Set("Connection", "keep-alive")
	w.Header().Set("X-Accel-Buffering", "no")
	w.WriteHeader(http.StatusOK)

	fmt.Fprintf(w, ": connected\n\n")
	flusher.Flush()

	// A slow client only drops its own events (buffered subscription);
	// a write error means it left and the subscription is cancelled.
	ctx := r.Context()
	for {
		select {
		case <-ctx.Done():
			return
		case entry, ok := <-sub.C():
			if !ok {
				return
			}
			if !matcher.Matches(entry) {
				continue
			}

			data, err := json.Marshal(toEntryResponse(entry))
			if err != nil {
				continue
			}
			if _, err := fmt.Fprintf(w, "data: %s\n\n", data); err != nil {
				return
			}
			flusher.Flush()
		}
	}
}
