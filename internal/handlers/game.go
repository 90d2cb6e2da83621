package handlers

import (
	"encoding/json"
	"errors"
	"io"
	"log/slog"
	"net/http"
	"strings"

	"github.com/go-chi/chi/v5"

	"github.com/jwebster45206/hushpath/internal/engine"
	"github.com/jwebster45206/hushpath/internal/export"
)

// maxBodyBytes caps JSON request bodies.
const maxBodyBytes = 64 << 10

type StartRequest struct {
	Genre      string `json:"genre"`
	Appearance string `json:"appearance"`
}

type ActionRequest struct {
	Action string `json:"action"`
}

// GameHandler serves the session routes:
// POST   /v1/game                 - create a session and start a game
// GET    /v1/game/{id}            - current snapshot
// POST   /v1/game/{id}/start      - start over in the same session
// POST   /v1/game/{id}/action     - play one turn
// DELETE /v1/game/{id}            - end and forget the session
// GET    /v1/game/{id}/story      - story panels as JSON
// GET    /v1/game/{id}/story.pdf  - story panels as PDF
type GameHandler struct {
	manager      *engine.Manager
	defaultGenre string
	logger       *slog.Logger
}

func NewGameHandler(manager *engine.Manager, defaultGenre string, logger *slog.Logger) *GameHandler {
	return &GameHandler{
		manager:      manager,
		defaultGenre: defaultGenre,
		logger:       logger,
	}
}

func (h *GameHandler) Routes(r chi.Router) {
	r.Post("/", h.Create)
	r.Get("/{id}", h.Get)
	r.Delete("/{id}", h.Delete)
	r.Post("/{id}/start", h.Start)
	r.Post("/{id}/action", h.Action)
	r.Get("/{id}/story", h.Story)
	r.Get("/{id}/story.pdf", h.StoryPDF)
}

func (h *GameHandler) Create(w http.ResponseWriter, r *http.Request) {
	var req StartRequest
	if !h.decode(w, r, &req, true) {
		return
	}

	s, err := h.manager.Create(r.Context())
	if err != nil {
		h.writeError(w, err, engine.StartFailureMessage)
		return
	}
	snap, err := s.Start(r.Context(), h.startOptions(req))
	if err != nil {
		if derr := h.manager.Delete(r.Context(), s.ID()); derr != nil {
			h.logger.Warn("Failed to drop unstarted session", "session_id", s.ID(), "error", derr)
		}
		h.writeError(w, err, engine.StartFailureMessage)
		return
	}
	h.logger.Info("Game created", "session_id", s.ID(), "genre", snap.Genre)
	respondJSON(w, h.logger, http.StatusCreated, snap)
}

func (h *GameHandler) Start(w http.ResponseWriter, r *http.Request) {
	s, ok := h.session(w, r)
	if !ok {
		return
	}
	var req StartRequest
	if !h.decode(w, r, &req, true) {
		return
	}
	snap, err := s.Start(r.Context(), h.startOptions(req))
	if err != nil {
		h.writeError(w, err, engine.StartFailureMessage)
		return
	}
	respondJSON(w, h.logger, http.StatusOK, snap)
}

func (h *GameHandler) Get(w http.ResponseWriter, r *http.Request) {
	s, ok := h.session(w, r)
	if !ok {
		return
	}
	respondJSON(w, h.logger, http.StatusOK, s.Snapshot())
}

func (h *GameHandler) Action(w http.ResponseWriter, r *http.Request) {
	s, ok := h.session(w, r)
	if !ok {
		return
	}
	var req ActionRequest
	if !h.decode(w, r, &req, false) {
		return
	}
	snap, err := s.PerformAction(r.Context(), req.Action)
	if err != nil {
		h.writeError(w, err, engine.TurnFailureMessage)
		return
	}
	respondJSON(w, h.logger, http.StatusOK, snap)
}

func (h *GameHandler) Delete(w http.ResponseWriter, r *http.Request) {
	if err := h.manager.Delete(r.Context(), chi.URLParam(r, "id")); err != nil {
		h.writeError(w, err, engine.TurnFailureMessage)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (h *GameHandler) Story(w http.ResponseWriter, r *http.Request) {
	s, ok := h.session(w, r)
	if !ok {
		return
	}
	respondJSON(w, h.logger, http.StatusOK, s.Story())
}

func (h *GameHandler) StoryPDF(w http.ResponseWriter, r *http.Request) {
	s, ok := h.session(w, r)
	if !ok {
		return
	}
	title := "Hushpath"
	if genre := s.Snapshot().Genre; genre != "" {
		title += ": " + genre
	}
	data, err := export.StoryPDF(title, s.Story())
	if err != nil {
		h.logger.Error("Failed to export story", "session_id", s.ID(), "error", err)
		respondError(w, h.logger, http.StatusInternalServerError, "failed to export story")
		return
	}
	w.Header().Set("Content-Type", "application/pdf")
	w.Header().Set("Content-Disposition", `attachment; filename="hushpath-story.pdf"`)
	_, _ = w.Write(data)
}

func (h *GameHandler) startOptions(req StartRequest) engine.StartOptions {
	genre := strings.TrimSpace(req.Genre)
	if genre == "" {
		genre = h.defaultGenre
	}
	return engine.StartOptions{Genre: genre, Appearance: req.Appearance}
}

func (h *GameHandler) session(w http.ResponseWriter, r *http.Request) (*engine.Session, bool) {
	s, err := h.manager.Get(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		h.writeError(w, err, engine.TurnFailureMessage)
		return nil, false
	}
	return s, true
}

// decode reads a JSON body into v. An empty body is accepted when optional.
func (h *GameHandler) decode(w http.ResponseWriter, r *http.Request, v any, optional bool) bool {
	r.Body = http.MaxBytesReader(w, r.Body, maxBodyBytes)
	err := json.NewDecoder(r.Body).Decode(v)
	if err == nil || (optional && errors.Is(err, io.EOF)) {
		return true
	}
	h.logger.Warn("Invalid request body", "path", r.URL.Path, "error", err)
	respondError(w, h.logger, http.StatusBadRequest, "invalid request body")
	return false
}

// writeError maps engine errors onto HTTP statuses. failure is the message
// shown to the player when the model exchange failed.
func (h *GameHandler) writeError(w http.ResponseWriter, err error, failure string) {
	switch {
	case errors.Is(err, engine.ErrSessionNotFound):
		respondError(w, h.logger, http.StatusNotFound, "game not found")
	case errors.Is(err, engine.ErrEmptyAction):
		respondError(w, h.logger, http.StatusBadRequest, err.Error())
	case errors.Is(err, engine.ErrNotStarted),
		errors.Is(err, engine.ErrGameOver),
		errors.Is(err, engine.ErrTurnInFlight):
		respondError(w, h.logger, http.StatusConflict, err.Error())
	case errors.Is(err, engine.ErrTooManySessions):
		respondError(w, h.logger, http.StatusServiceUnavailable, err.Error())
	case errors.Is(err, engine.ErrTurnFailed):
		respondJSON(w, h.logger, http.StatusBadGateway, ErrorResponse{
			Error:   err.Error(),
			Message: failure,
		})
	default:
		h.logger.Error("Unhandled game error", "error", err)
		respondError(w, h.logger, http.StatusInternalServerError, "internal error")
	}
}
