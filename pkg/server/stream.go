package server

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/gorilla/websocket"
)

// handleWebSocket streams debate events as JSON text frames. Incoming
// frames are read only to notice the client going away.
func (s *Server) handleWebSocket(w http.ResponseWriter, r *http.Request) {
	conn, err := s.upgrader.Upgrade(w, r, nil)
	if err != nil {
		// Upgrade has already written the HTTP error.
		slog.Debug("WebSocket upgrade failed", "error", err)
		return
	}
	defer conn.Close()

	id := chi.URLParam(r, "id")
	o, ok := s.debates.Get(id)
	if !ok {
		_ = conn.WriteJSON(map[string]string{"error": msgDebateNotFound})
		return
	}

	// The request context is not canceled for hijacked connections, so a
	// reader detects the disconnect.
	ctx, cancel := context.WithCancel(context.WithoutCancel(r.Context()))
	defer cancel()
	go func() {
		defer cancel()
		for {
			if _, _, err := conn.ReadMessage(); err != nil {
				return
			}
		}
	}()

	log := slog.With("debate_id", id)
	log.Debug("WebSocket client connected")

	for event := range o.Run(ctx) {
		_ = conn.SetWriteDeadline(time.Now().Add(s.writeTimeout))
		if err := conn.WriteJSON(event); err != nil {
			log.Info("WebSocket client went away", "error", err)
			return
		}
	}

	_ = conn.SetWriteDeadline(time.Now().Add(s.writeTimeout))
	_ = conn.WriteMessage(websocket.CloseMessage, websocket.FormatCloseMessage(websocket.CloseNormalClosure, ""))
}

// handleEvents streams debate events as Server-Sent Events, one event per
// message with the event type as the SSE event name.
func (s *Server) handleEvents(w http.ResponseWriter, r *http.Request) {
	o, ok := s.lookup(w, r)
	if !ok {
		return
	}

	flusher, ok := w.(http.Flusher)
	if !ok {
		writeError(w, http.StatusInternalServerError, "Streaming not supported")
		return
	}

	w.Header().Set("Content-Type", "text/event-stream")
	w.Header().Set("Cache-Control", "no-cache")
	w.Header().Set("Connection", "keep-alive")
	w.Header().Set("X-Accel-Buffering", "no")
	w.WriteHeader(http.StatusOK)
	flusher.Flush()

	rc := http.NewResponseController(w)
	for event := range o.Run(r.Context()) {
		data, err := json.Marshal(event)
		if err != nil {
			slog.Error("Failed to encode event", "type", event.Type, "error", err)
			continue
		}
		_ = rc.SetWriteDeadline(time.Now().Add(s.writeTimeout))
		if _, err := fmt.Fprintf(w, "event: %s\ndata: %s\n\n", event.Type, data); err != nil {
			return
		}
		flusher.Flush()
	}
}
