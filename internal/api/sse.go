package api

import (
	"encoding/json"
	"fmt"
	"net/http"

	"github.com/pageglot/pageglot/internal/session"
)

// handleEvents streams session notifications (started, active,
// restarting, error) as server-sent events.
func (s *Server) handleEvents(w http.ResponseWriter, r *http.Request, controller *session.Controller) {
	if r.Method != http.MethodGet {
		writeError(w, http.StatusMethodNotAllowed, "method not allowed")
		return
	}

	flusher, ok := w.(http.Flusher)
	if !ok {
		writeError(w, http.StatusInternalServerError, "streaming not supported")
		return
	}

	w.Header().Set("Content-Type", "text/event-stream")
	w.Header().Set("Cache-Control", "no-cache")
	w.Header().Set("Connection", "keep-alive")

	events, cancel := controller.SubscribeEvents()
	defer cancel()

	send := func(event session.Event) bool {
		payload, err := json.Marshal(event)
		if err != nil {
			return false
		}
		if _, err := fmt.Fprintf(w, "data: %s\n\n", payload); err != nil {
			return false
		}
		flusher.Flush()
		return true
	}

	for {
		select {
		case <-r.Context().Done():
			return
		case event, ok := <-events:
			if !ok {
				return
			}
			if !send(event) {
				return
			}
		}
	}
}
