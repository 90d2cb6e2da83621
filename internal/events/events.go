// Package events carries per-game progress events from the session engine
// to Server-Sent Events subscribers.
package events

import (
	"context"
	"log/slog"
)

// EventType represents the type of event being broadcast
type EventType string

const (
	EventTypeTurnStarted   EventType = "turn.started"
	EventTypeArtResolved   EventType = "art.resolved"
	EventTypeTurnCompleted EventType = "turn.completed"
	EventTypeTurnFailed    EventType = "turn.failed"
)

// Event represents a generic event structure
type Event struct {
	Type   EventType      `json:"type"`
	GameID string         `json:"game_id"`
	Data   map[string]any `json:"data,omitempty"`
}

// Bus delivers events to the subscribers of a game.
type Bus interface {
	Publish(ctx context.Context, event Event) error
	// Subscribe returns a channel of events for gameID. The channel is
	// closed after cancel is called or ctx ends.
	Subscribe(ctx context.Context, gameID string) (events <-chan Event, cancel func(), err error)
}

// Broadcaster publishes typed events. Publishing is best effort: failures
// are logged and never reach the caller. A nil Broadcaster discards events.
type Broadcaster struct {
	bus    Bus
	logger *slog.Logger
}

func NewBroadcaster(bus Bus, logger *slog.Logger) *Broadcaster {
	return &Broadcaster{bus: bus, logger: logger}
}

// Bus returns the underlying bus, for subscribers.
func (b *Broadcaster) Bus() Bus {
	return b.bus
}

func (b *Broadcaster) TurnStarted(ctx context.Context, gameID, action string) {
	b.publish(ctx, Event{
		Type:   EventTypeTurnStarted,
		GameID: gameID,
		Data:   map[string]any{"action": action},
	})
}

func (b *Broadcaster) ArtResolved(ctx context.Context, gameID, slot, source string) {
	b.publish(ctx, Event{
		Type:   EventTypeArtResolved,
		GameID: gameID,
		Data:   map[string]any{"slot": slot, "source": source},
	})
}

func (b *Broadcaster) TurnCompleted(ctx context.Context, gameID string, turn int, location string, gameOver bool) {
	b.publish(ctx, Event{
		Type:   EventTypeTurnCompleted,
		GameID: gameID,
		Data: map[string]any{
			"turn":     turn,
			"location": location,
			"gameOver": gameOver,
		},
	})
}

func (b *Broadcaster) TurnFailed(ctx context.Context, gameID, errorMsg string) {
	b.publish(ctx, Event{
		Type:   EventTypeTurnFailed,
		GameID: gameID,
		Data:   map[string]any{"error": errorMsg},
	})
}

func (b *Broadcaster) publish(ctx context.Context, event Event) {
	if b == nil || b.bus == nil {
		return
	}
	if err := b.bus.Publish(ctx, event); err != nil {
		b.logger.Warn("Failed to publish event", "event_type", event.Type, "game_id", event.GameID, "error", err)
		return
	}
	b.logger.Debug("Event published", "event_type", event.Type, "game_id", event.GameID)
}
