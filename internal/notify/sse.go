package notify

import (
	"encoding/json"
	"fmt"
	"net/http"
)

// ServeHTTP streams messages as Server-Sent Events until the client goes
// away. Each message is one "data:" line holding its JSON encoding, with the
// message type as the event name.
func (h *Hub) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	flusher, ok := w.(http.Flusher)
	if !ok {
		http.Error(w, "streaming unsupported", http.StatusInternalServerError)
		return
	}

	msgs, cancel := h.Subscribe()
	defer cancel()

	w.Header().Set("Content-Type", "text/event-stream")
	w.Header().Set("Cache-Control", "no-cache")
	w.Header().Set("Connection", "keep-alive")
	w.WriteHeader(http.StatusOK)
	flusher.Flush()

	for {
		select {
		case <-r.Context().Done():
			return
		case m, ok := <-msgs:
			if !ok {
				return
			}
			payload, err := json.Marshal(m)
			if err != nil {
				h.logger.Error("failed to encode notification", "type", m.Type, "error", err)
				continue
			}
			if _, err := fmt.Fprintf(w, "event: %s\ndata: %s\n\n", m.Type, payload); err != nil {
				return
			}
			flusher.Flush()
		}
	}
}
