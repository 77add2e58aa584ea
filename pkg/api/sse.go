package api

import (
	"encoding/json"
	"fmt"
	"net/http"
)

// EventStream handles GET /events as a server-sent-events stream. Every
// marketplace event the coordinator publishes is forwarded as one SSE frame;
// a slow client loses its oldest buffered events rather than stalling the
// marketplace.
func (s *Server) EventStream(w http.ResponseWriter, r *http.Request) {
	flusher, ok := w.(http.Flusher)
	if !ok {
		writeError(w, http.StatusInternalServerError, "streaming not supported")
		return
	}

	w.Header().Set("Content-Type", "text/event-stream")
	w.Header().Set("Cache-Control", "no-cache")
	w.Header().Set("Connection", "keep-alive")
	w.WriteHeader(http.StatusOK)
	flusher.Flush()

	sub := s.coord.Subscribe()
	defer sub.Unsubscribe()

	s.log.Debug("Event stream client connected")

	for {
		select {
		case <-r.Context().Done():
			s.log.Debug("Event stream client disconnected")
			return

		case event, ok := <-sub.Channel():
			if !ok {
				return
			}

			data, err := json.Marshal(event)
			if err != nil {
				s.log.WithError(err).Warn("Failed to marshal event")
				continue
			}

			if _, err := fmt.Fprintf(w, "data: %s\n\n", data); err != nil {
				return
			}

			flusher.Flush()
		}
	}
}
