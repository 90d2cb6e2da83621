package storage

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"sync"

	"github.com/jwebster45206/hushpath/pkg/game"
)

// MemoryStore is an in-process StoryStore. Stories are kept as encoded
// blobs so callers never share slices with the store.
type MemoryStore struct {
	mu        sync.RWMutex
	blobs     map[string][]byte
	pingError error
	logger    *slog.Logger
}

var _ StoryStore = (*MemoryStore)(nil)

func NewMemoryStore(logger *slog.Logger) *MemoryStore {
	return &MemoryStore{
		blobs:  make(map[string][]byte),
		logger: logger,
	}
}

// SetPingError makes Ping fail with err; nil restores success.
func (m *MemoryStore) SetPingError(err error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.pingError = err
}

// SetRaw stores data verbatim under the session, for tests.
func (m *MemoryStore) SetRaw(sessionID string, data []byte) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.blobs[StoryKey(sessionID)] = data
}

func (m *MemoryStore) Ping(ctx context.Context) error {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.pingError
}

func (m *MemoryStore) Close() error { return nil }

func (m *MemoryStore) Load(ctx context.Context, sessionID string) ([]game.StoryPanel, error) {
	m.mu.RLock()
	data, ok := m.blobs[StoryKey(sessionID)]
	m.mu.RUnlock()
	if !ok {
		return []game.StoryPanel{}, nil
	}
	return decodeStory(data, sessionID, m.logger), nil
}

func (m *MemoryStore) Save(ctx context.Context, sessionID string, panels []game.StoryPanel) error {
	if panels == nil {
		panels = []game.StoryPanel{}
	}
	data, err := json.Marshal(panels)
	if err != nil {
		return fmt.Errorf("failed to marshal story: %w", err)
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	m.blobs[StoryKey(sessionID)] = data
	return nil
}

func (m *MemoryStore) Clear(ctx context.Context, sessionID string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.blobs, StoryKey(sessionID))
	return nil
}
