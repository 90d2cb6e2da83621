package handlers

import (
	"context"
	"encoding/json"
	"log/slog"
	"net/http"
	"time"
)

// Pinger is anything the health check can probe.
type Pinger interface {
	Ping(ctx context.Context) error
}

type HealthResponse struct {
	Status     string            `json:"status"`
	Timestamp  time.Time         `json:"timestamp"`
	Service    string            `json:"service"`
	Components map[string]string `json:"components"`
}

// HealthHandler reports the state of the story store and the text and
// image backends. The image backend is optional: when it is down images
// come from the procedural generator, so it never degrades the service.
type HealthHandler struct {
	store  Pinger
	text   Pinger
	images Pinger
	logger *slog.Logger
}

func NewHealthHandler(store, text, images Pinger, logger *slog.Logger) *HealthHandler {
	return &HealthHandler{
		store:  store,
		text:   text,
		images: images,
		logger: logger,
	}
}

func (h *HealthHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "application/json")

	h.logger.Debug("Health check requested",
		"method", r.Method,
		"path", r.URL.Path,
		"remote_addr", r.RemoteAddr)

	ctx, cancel := context.WithTimeout(r.Context(), 2*time.Second)
	defer cancel()

	components := make(map[string]string)
	overallStatus := "healthy"

	if err := h.store.Ping(ctx); err != nil {
		h.logger.Warn("Story store health check failed", "error", err)
		components["store"] = "unhealthy"
		overallStatus = "degraded"
	} else {
		components["store"] = "healthy"
	}

	if err := h.text.Ping(ctx); err != nil {
		h.logger.Warn("Text backend health check failed", "error", err)
		components["text"] = "unhealthy"
		overallStatus = "degraded"
	} else {
		components["text"] = "healthy"
	}

	switch {
	case h.images == nil:
		components["image"] = "procedural"
	case h.images.Ping(ctx) != nil:
		components["image"] = "procedural fallback"
	default:
		components["image"] = "healthy"
	}

	response := HealthResponse{
		Status:     overallStatus,
		Timestamp:  time.Now(),
		Service:    "hushpath",
		Components: components,
	}

	statusCode := http.StatusOK
	if overallStatus != "healthy" {
		statusCode = http.StatusServiceUnavailable
	}

	w.WriteHeader(statusCode)
	if err := json.NewEncoder(w).Encode(response); err != nil {
		h.logger.Error("Error encoding health response",
			"error", err,
			"method", r.Method,
			"path", r.URL.Path)
	}
}
