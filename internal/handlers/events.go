package handlers

import (
	"encoding/json"
	"fmt"
	"log/slog"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/jwebster45206/hushpath/internal/engine"
	"github.com/jwebster45206/hushpath/internal/events"
)

// keepaliveInterval spaces the SSE comments that keep idle proxies from
// closing the stream.
const keepaliveInterval = 30 * time.Second

// EventsHandler handles Server-Sent Events (SSE) for real-time game updates
// GET /v1/game/{id}/events
type EventsHandler struct {
	manager *engine.Manager
	bus     events.Bus
	logger  *slog.Logger
}

func NewEventsHandler(manager *engine.Manager, bus events.Bus, logger *slog.Logger) *EventsHandler {
	return &EventsHandler{
		manager: manager,
		bus:     bus,
		logger:  logger,
	}
}

func (h *EventsHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	s, err := h.manager.Get(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		respondError(w, h.logger, http.StatusNotFound, "game not found")
		return
	}
	flusher, ok := w.(http.Flusher)
	if !ok {
		respondError(w, h.logger, http.StatusInternalServerError, "streaming unsupported")
		return
	}

	ch, cancel, err := h.bus.Subscribe(r.Context(), s.ID())
	if err != nil {
		h.logger.Error("Failed to subscribe to game events", "session_id", s.ID(), "error", err)
		respondError(w, h.logger, http.StatusServiceUnavailable, "event stream unavailable")
		return
	}
	defer cancel()

	h.logger.Info("SSE connection established", "session_id", s.ID(), "remote_addr", r.RemoteAddr)

	w.Header().Set("Content-Type", "text/event-stream")
	w.Header().Set("Cache-Control", "no-cache")
	w.Header().Set("Connection", "keep-alive")
	w.WriteHeader(http.StatusOK)

	h.sendSSE(w, flusher, "connected", map[string]any{"game_id": s.ID()})

	keepalive := time.NewTicker(keepaliveInterval)
	defer keepalive.Stop()

	for {
		select {
		case <-r.Context().Done():
			h.logger.Info("SSE client disconnected", "session_id", s.ID())
			return
		case event, ok := <-ch:
			if !ok {
				return
			}
			h.sendSSE(w, flusher, string(event.Type), event.Data)
		case <-keepalive.C:
			if _, err := fmt.Fprint(w, ": keepalive\n\n"); err != nil {
				h.logger.Error("Failed to write keepalive", "error", err)
				return
			}
			flusher.Flush()
		}
	}
}

// sendSSE writes one event and flushes it
func (h *EventsHandler) sendSSE(w http.ResponseWriter, flusher http.Flusher, eventType string, data any) {
	dataJSON, err := json.Marshal(data)
	if err != nil {
		h.logger.Error("Failed to marshal SSE data", "error", err)
		return
	}
	if _, err := fmt.Fprintf(w, "event: %s\ndata: %s\n\n", eventType, dataJSON); err != nil {
		h.logger.Error("Failed to write event", "error", err)
		return
	}
	flusher.Flush()
}
