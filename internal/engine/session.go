// Package engine runs playthroughs. A Session owns one conversation with
// the text model, the art currently on screen, the discovered map sectors
// and the persisted story log.
package engine

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
	"golang.org/x/sync/errgroup"

	"github.com/jwebster45206/hushpath/internal/art"
	"github.com/jwebster45206/hushpath/internal/events"
	"github.com/jwebster45206/hushpath/internal/metrics"
	"github.com/jwebster45206/hushpath/internal/storage"
	"github.com/jwebster45206/hushpath/pkg/chat"
	"github.com/jwebster45206/hushpath/pkg/game"
	"github.com/jwebster45206/hushpath/pkg/prompts"
)

// In-world texts shown by the clients when a call fails.
const (
	TurnFailureMessage  = "The connection to reality fades... Try again."
	StartFailureMessage = "Initialization failed. The world refused to load."
)

var (
	ErrNotStarted   = errors.New("game has not started")
	ErrGameOver     = errors.New("game is over")
	ErrEmptyAction  = errors.New("action is empty")
	ErrTurnInFlight = errors.New("a turn is already in progress")
	// ErrTurnFailed wraps backend and normalization failures of a turn.
	// History is left unchanged so the same action can be retried.
	ErrTurnFailed = errors.New("turn failed")
)

// TextModel is the part of services.LLMService a session needs.
type TextModel interface {
	Chat(ctx context.Context, messages []chat.ChatMessage) (string, error)
	Generate(ctx context.Context, prompt string) (string, error)
}

// Deps are the collaborators shared by sessions.
type Deps struct {
	Text   TextModel
	Images art.ImageRequester // optional; nil skips the image tier
	Store  storage.StoryStore
	Logger *slog.Logger
	Now    func() time.Time // optional; defaults to time.Now
	Events *events.Broadcaster // optional; nil publishes nothing
}

// StartOptions configure a new playthrough.
type StartOptions struct {
	Genre      string
	Appearance string
}

// Session is a single playthrough. Turns are serialized: a call made while
// another turn is running fails with ErrTurnInFlight instead of waiting.
type Session struct {
	id     string
	deps   Deps
	logger *slog.Logger

	turn sync.Mutex // held for the duration of Start, PerformAction and Reset

	mu             sync.RWMutex // guards the fields below
	state          State
	genre          string
	history        *chat.History
	player         game.PlayerState
	narrative      string
	actions        []string
	requiresChoice bool
	scene          string
	sceneCaption   string
	sceneSource    string
	portrait       string
	portraitSource string
	mapArt         string
	coords         game.MapCoordinates
	sectors        map[game.MapCoordinates]string
	story          []game.StoryPanel
}

// NewSession creates an uninitialized session and loads any story already
// stored under id.
func NewSession(ctx context.Context, id string, deps Deps) (*Session, error) {
	if deps.Text == nil {
		return nil, errors.New("engine: text model is required")
	}
	if deps.Store == nil {
		return nil, errors.New("engine: story store is required")
	}
	if deps.Logger == nil {
		deps.Logger = slog.Default()
	}
	if deps.Now == nil {
		deps.Now = time.Now
	}

	story, err := deps.Store.Load(ctx, id)
	if err != nil {
		deps.Logger.Warn("Starting without stored story", "session_id", id, "error", err)
		story = []game.StoryPanel{}
	}

	s := &Session{
		id:     id,
		deps:   deps,
		logger: deps.Logger.With("session_id", id),
		story:  story,
	}
	s.clearLocked(prompts.DefaultGenre)
	return s, nil
}

func (s *Session) ID() string { return s.id }

// clearLocked returns the session to its pre-game state. The caller holds
// mu or owns the session exclusively.
func (s *Session) clearLocked(genre string) {
	s.state = StateUninitialized
	s.genre = genre
	s.history = chat.NewHistory(prompts.SystemInstruction(genre))
	s.player = InitialPlayer()
	s.narrative = ""
	s.actions = []string{}
	s.requiresChoice = false
	s.scene, s.sceneCaption, s.sceneSource = "", "", ""
	s.portrait, s.portraitSource = "", ""
	s.mapArt = ""
	s.coords = game.MapCoordinates{}
	s.sectors = make(map[game.MapCoordinates]string)
}

// InitialPlayer is the placeholder shown before the first reply.
func InitialPlayer() game.PlayerState {
	return game.PlayerState{
		Name:                 "Traveler",
		Class:                "Unknown",
		Appearance:           "Hooded",
		CharacterDescription: "A mystery",
		HP:                   20,
		MaxHP:                20,
		Mana:                 10,
		MaxMana:              10,
		Level:                1,
		Location:             "The Void",
		Inventory:            []string{},
		StatusEffects:        []string{},
		Journal:              []game.JournalEntry{},
	}
}

// Start begins a new playthrough, discarding any previous one and its
// stored story. On failure the session stays uninitialized.
func (s *Session) Start(ctx context.Context, opts StartOptions) (*Snapshot, error) {
	if !s.turn.TryLock() {
		return nil, ErrTurnInFlight
	}
	defer s.turn.Unlock()
	start := time.Now()

	genre := strings.TrimSpace(opts.Genre)
	if genre == "" {
		genre = prompts.DefaultGenre
	}
	appearance := strings.TrimSpace(opts.Appearance)
	if appearance == "" {
		appearance = InitialPlayer().Appearance
	}

	s.mu.Lock()
	s.clearLocked(genre)
	s.story = []game.StoryPanel{}
	history := s.history
	s.mu.Unlock()

	if err := s.deps.Store.Clear(ctx, s.id); err != nil {
		s.logger.Warn("Failed to clear stored story", "error", err)
	}

	s.logger.Info("Starting game", "genre", genre)
	s.deps.Events.TurnStarted(ctx, s.id, prompts.StartAction)
	userMsg := chat.UserMessage(prompts.StartPrompt(appearance))
	resp, raw, err := s.exchange(ctx, history.With(userMsg))
	if err != nil {
		s.observe("start", start, err)
		s.deps.Events.TurnFailed(ctx, s.id, err.Error())
		return nil, err
	}

	s.mu.Lock()
	s.history.Append(userMsg, chat.AgentMessage(raw))
	s.mu.Unlock()

	s.apply(context.WithoutCancel(ctx), resp, prompts.StartAction)
	s.observe("start", start, nil)
	return s.Snapshot(), nil
}

// PerformAction plays one turn.
func (s *Session) PerformAction(ctx context.Context, action string) (*Snapshot, error) {
	action = strings.TrimSpace(action)
	if action == "" {
		return nil, ErrEmptyAction
	}
	if !s.turn.TryLock() {
		return nil, ErrTurnInFlight
	}
	defer s.turn.Unlock()
	start := time.Now()

	s.mu.RLock()
	state := s.state
	history := s.history
	s.mu.RUnlock()

	switch state {
	case StateUninitialized:
		return nil, ErrNotStarted
	case StateEnded:
		return nil, ErrGameOver
	}

	s.deps.Events.TurnStarted(ctx, s.id, action)
	userMsg := chat.UserMessage(action)
	resp, raw, err := s.exchange(ctx, history.With(userMsg))
	if err != nil {
		s.observe("action", start, err)
		s.deps.Events.TurnFailed(ctx, s.id, err.Error())
		return nil, err
	}

	s.mu.Lock()
	s.history.Append(userMsg, chat.AgentMessage(raw))
	s.mu.Unlock()

	s.apply(context.WithoutCancel(ctx), resp, action)
	s.observe("action", start, nil)
	return s.Snapshot(), nil
}

// Reset discards the playthrough and its stored story.
func (s *Session) Reset(ctx context.Context) error {
	if !s.turn.TryLock() {
		return ErrTurnInFlight
	}
	defer s.turn.Unlock()

	s.mu.Lock()
	s.clearLocked(s.genre)
	s.story = []game.StoryPanel{}
	s.mu.Unlock()

	if err := s.deps.Store.Clear(ctx, s.id); err != nil {
		return fmt.Errorf("failed to clear story: %w", err)
	}
	s.logger.Info("Session reset")
	return nil
}

// exchange sends one pending turn and normalizes the reply. Nothing is
// committed here.
func (s *Session) exchange(ctx context.Context, messages []chat.ChatMessage) (*game.GameResponse, string, error) {
	raw, err := s.deps.Text.Chat(ctx, messages)
	if err != nil {
		s.logger.Error("Text backend failed", "error", err)
		return nil, "", fmt.Errorf("%w: %w", ErrTurnFailed, err)
	}
	resp, err := game.Normalize(raw)
	if err != nil {
		reason := "parse"
		if errors.Is(err, game.ErrMissingPlayerState) {
			reason = "missing_player_state"
		}
		metrics.NormalizeFailures.WithLabelValues(reason).Inc()
		s.logger.Warn("Rejected model reply", "reason", reason, "error", err)
		return nil, "", fmt.Errorf("%w: %w", ErrTurnFailed, err)
	}
	return resp, raw, nil
}

// apply renders art for a committed reply and folds it into the session.
// Scene and portrait are resolved concurrently; an exhausted pipeline
// keeps the art already shown.
func (s *Session) apply(ctx context.Context, resp *game.GameResponse, action string) {
	s.mu.RLock()
	hasPortrait := s.portrait != ""
	prevDesc := s.player.CharacterDescription
	s.mu.RUnlock()

	desc := resp.PlayerState.CharacterDescription
	refreshPortrait := !hasPortrait || (desc != "" && desc != prevDesc)

	var scene, portrait art.Result
	var g errgroup.Group
	if resp.SceneChanged() {
		g.Go(func() error {
			scene = art.ScenePipeline(s.deps.Images, s.deps.Text, resp.VisualArt).
				Resolve(ctx, s.logger, resp.VisualDescription)
			if scene.Status == art.Success {
				s.deps.Events.ArtResolved(ctx, s.id, art.SlotScene, scene.Source)
			}
			return nil
		})
	}
	if refreshPortrait {
		g.Go(func() error {
			portrait = art.PortraitPipeline(s.deps.Images, s.deps.Text).
				Resolve(ctx, s.logger, desc)
			if portrait.Status == art.Success {
				s.deps.Events.ArtResolved(ctx, s.id, art.SlotPortrait, portrait.Source)
			}
			return nil
		})
	}
	_ = g.Wait()

	s.mu.Lock()
	s.player = resp.PlayerState
	s.narrative = resp.Narrative
	s.actions = resp.SuggestedActions
	s.requiresChoice = resp.RequiresChoice
	if scene.Status == art.Success {
		s.scene = scene.Art
		s.sceneCaption = resp.VisualDescription
		s.sceneSource = scene.Source
	}
	if portrait.Status == art.Success {
		s.portrait = portrait.Art
		s.portraitSource = portrait.Source
	}
	s.applyMapLocked(resp)
	if resp.GameOver {
		s.state = StateEnded
	} else {
		s.state = StateActive
	}

	panel := game.StoryPanel{
		ID:        uuid.NewString(),
		Turn:      resp.PlayerState.Turn,
		Location:  resp.PlayerState.Location,
		Action:    action,
		Narrative: resp.Narrative,
		Art:       s.scene,
		Timestamp: s.deps.Now().UnixMilli(),
	}
	s.story = append(s.story, panel)
	story := append([]game.StoryPanel(nil), s.story...)
	s.mu.Unlock()

	if err := s.deps.Store.Save(ctx, s.id, story); err != nil {
		s.logger.Warn("Failed to persist story", "panels", len(story), "error", err)
	}
	s.deps.Events.TurnCompleted(ctx, s.id, resp.PlayerState.Turn, resp.PlayerState.Location, resp.GameOver)
	s.logger.Info("Turn applied",
		"turn", resp.PlayerState.Turn,
		"scene", scene.Status.String(),
		"portrait_refreshed", refreshPortrait,
		"game_over", resp.GameOver)
}

// applyMapLocked shows the newest map block. The first block seen for a
// coordinate is cached and reused when a reply carries coordinates only.
func (s *Session) applyMapLocked(resp *game.GameResponse) {
	c := resp.MapCoordinates
	switch {
	case resp.MapArt != "" && c != nil:
		s.mapArt = resp.MapArt
		s.coords = *c
		if _, seen := s.sectors[*c]; !seen {
			s.sectors[*c] = resp.MapArt
		}
	case resp.MapArt != "":
		s.mapArt = resp.MapArt
	case c != nil:
		s.coords = *c
		if cached, ok := s.sectors[*c]; ok {
			s.mapArt = cached
		}
	}
}

func (s *Session) observe(kind string, start time.Time, err error) {
	status := metrics.StatusSuccess
	if err != nil {
		status = metrics.StatusError
	}
	metrics.TurnDuration.WithLabelValues(kind, status).Observe(time.Since(start).Seconds())
}

// Story returns a copy of the story log.
func (s *Session) Story() []game.StoryPanel {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return append([]game.StoryPanel{}, s.story...)
}

// Sector returns the cached map block for c.
func (s *Session) Sector(c game.MapCoordinates) (string, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	block, ok := s.sectors[c]
	return block, ok
}

// History returns a copy of the conversation.
func (s *Session) History() []chat.ChatMessage {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.history.Messages()
}
