package engine

import (
	"fmt"

	"github.com/jwebster45206/hushpath/pkg/game"
)

// State is the lifecycle position of a session.
type State int

const (
	StateUninitialized State = iota
	StateActive
	StateEnded
)

var stateNames = map[State]string{
	StateUninitialized: "uninitialized",
	StateActive:        "active",
	StateEnded:         "ended",
}

func (s State) String() string {
	if name, ok := stateNames[s]; ok {
		return name
	}
	return fmt.Sprintf("State(%d)", int(s))
}

func (s State) MarshalText() ([]byte, error) {
	return []byte(s.String()), nil
}

func (s *State) UnmarshalText(b []byte) error {
	for k, v := range stateNames {
		if v == string(b) {
			*s = k
			return nil
		}
	}
	return fmt.Errorf("unknown session state %q", string(b))
}

// Snapshot is a consistent copy of what a client displays.
type Snapshot struct {
	ID               string              `json:"id"`
	State            State               `json:"state"`
	Genre            string              `json:"genre"`
	Narrative        string              `json:"narrative"`
	PlayerState      game.PlayerState    `json:"playerState"`
	SuggestedActions []string            `json:"suggestedActions"`
	RequiresChoice   bool                `json:"requiresChoice"`
	GameOver         bool                `json:"gameOver"`
	SceneArt         string              `json:"sceneArt"`
	SceneCaption     string              `json:"sceneCaption"`
	SceneSource      string              `json:"sceneSource,omitempty"`
	PortraitArt      string              `json:"portraitArt"`
	PortraitSource   string              `json:"portraitSource,omitempty"`
	MapArt           string              `json:"mapArt"`
	MapCoordinates   game.MapCoordinates `json:"mapCoordinates"`
	StoryLength      int                 `json:"storyLength"`
}

// Snapshot copies the displayable state.
func (s *Session) Snapshot() *Snapshot {
	s.mu.RLock()
	defer s.mu.RUnlock()

	p := s.player
	p.Inventory = append([]string{}, p.Inventory...)
	p.StatusEffects = append([]string{}, p.StatusEffects...)
	p.Journal = append([]game.JournalEntry{}, p.Journal...)

	return &Snapshot{
		ID:               s.id,
		State:            s.state,
		Genre:            s.genre,
		Narrative:        s.narrative,
		PlayerState:      p,
		SuggestedActions: append([]string{}, s.actions...),
		RequiresChoice:   s.requiresChoice,
		GameOver:         s.state == StateEnded,
		SceneArt:         s.scene,
		SceneCaption:     s.sceneCaption,
		SceneSource:      s.sceneSource,
		PortraitArt:      s.portrait,
		PortraitSource:   s.portraitSource,
		MapArt:           s.mapArt,
		MapCoordinates:   s.coords,
		StoryLength:      len(s.story),
	}
}
