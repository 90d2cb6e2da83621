package handlers

import (
	"log/slog"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	chimw "github.com/go-chi/chi/v5/middleware"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/jwebster45206/hushpath/internal/middleware"
)

// RouterConfig holds the handlers mounted by NewRouter.
type RouterConfig struct {
	Health *HealthHandler
	Game   *GameHandler
	Art    *ArtHandler
	Events *EventsHandler // optional
	Logger *slog.Logger
	// TurnTimeout bounds one game request, art resolution included.
	TurnTimeout time.Duration
}

// NewRouter builds the API routes.
func NewRouter(cfg RouterConfig) http.Handler {
	r := chi.NewRouter()
	r.Use(chimw.RequestID)
	r.Use(chimw.RealIP)
	r.Use(middleware.Logger(cfg.Logger))
	r.Use(chimw.Recoverer)

	r.Method(http.MethodGet, "/health", cfg.Health)
	r.Method(http.MethodGet, "/metrics", promhttp.Handler())

	r.Route("/v1", func(r chi.Router) {
		r.Route("/game", func(r chi.Router) {
			if cfg.Events != nil {
				r.Method(http.MethodGet, "/{id}/events", cfg.Events)
			}
			r.Group(func(r chi.Router) {
				if cfg.TurnTimeout > 0 {
					r.Use(chimw.Timeout(cfg.TurnTimeout))
				}
				cfg.Game.Routes(r)
			})
		})
		r.Get("/ascii", cfg.Art.Resolve)
		r.Post("/ascii", cfg.Art.Convert)
		r.Get("/silhouette.png", cfg.Art.Silhouette)
	})
	return r
}
