package server

import (
	"encoding/json"
	"fmt"
	"net/http"
	"time"

	"go.uber.org/zap"

	"github.com/sinhabinayak2207/extrawork/internal/events"
)

const sseBuffer = 64

// events streams catalog changes as server-sent events. The bus publishes
// while a cache holds its mutation lock, so delivery never blocks: a
// client that falls behind by sseBuffer events loses the overflow.
func (s *Server) events(w http.ResponseWriter, r *http.Request) {
	flusher, ok := w.(http.Flusher)
	if !ok {
		respond(w, http.StatusInternalServerError, errorBody{Error: "streaming unsupported"})
		return
	}

	ch := make(chan events.Event, sseBuffer)
	unsubscribe := s.svc.Bus().Subscribe(func(e events.Event) {
		select {
		case ch <- e:
		default:
		}
	}, events.ItemUpdated, events.ItemAdded, events.ItemRemoved, events.Refreshed)
	defer unsubscribe()

	w.Header().Set("Content-Type", "text/event-stream")
	w.Header().Set("Cache-Control", "no-cache")
	w.Header().Set("Connection", "keep-alive")
	w.WriteHeader(http.StatusOK)
	_, _ = fmt.Fprint(w, ": connected\n\n")
	flusher.Flush()

	beat := time.NewTicker(s.heartbeat)
	defer beat.Stop()

	for {
		select {
		case <-r.Context().Done():
			return
		case <-beat.C:
			_, _ = fmt.Fprint(w, ": ping\n\n")
			flusher.Flush()
		case e := <-ch:
			data, err := json.Marshal(e)
			if err != nil {
				s.log.Warn("encoding event", zap.Error(err))
				continue
			}
			_, _ = fmt.Fprintf(w, "event: %s\ndata: %s\n\n", e.Kind, data)
			flusher.Flush()
		}
	}
}
