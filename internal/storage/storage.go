// Package storage persists the story log of each session. The whole log is
// stored as one JSON blob per session and overwritten on every append.
package storage

import (
	"context"
	"encoding/json"
	"log/slog"

	"github.com/jwebster45206/hushpath/pkg/game"
)

// KeyPrefix namespaces story blobs.
const KeyPrefix = "hushpath_story"

// StoryKey returns the storage key for a session's story.
func StoryKey(sessionID string) string {
	return KeyPrefix + ":" + sessionID
}

// StoryStore persists story panels per session. Load never fails because
// of missing or unreadable data; it returns an empty story instead.
type StoryStore interface {
	Load(ctx context.Context, sessionID string) ([]game.StoryPanel, error)
	Save(ctx context.Context, sessionID string, panels []game.StoryPanel) error
	Clear(ctx context.Context, sessionID string) error
	Ping(ctx context.Context) error
	Close() error
}

// decodeStory parses a stored blob, treating corrupt data as empty.
func decodeStory(data []byte, sessionID string, logger *slog.Logger) []game.StoryPanel {
	var panels []game.StoryPanel
	if err := json.Unmarshal(data, &panels); err != nil {
		logger.Warn("Discarding unreadable story", "session_id", sessionID, "error", err)
		return []game.StoryPanel{}
	}
	if panels == nil {
		return []game.StoryPanel{}
	}
	return panels
}
