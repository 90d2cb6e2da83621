package engine

import (
	"context"
	"errors"
	"fmt"
	"sync"

	"github.com/google/uuid"

	"github.com/jwebster45206/hushpath/internal/metrics"
)

var (
	ErrSessionNotFound = errors.New("session not found")
	ErrTooManySessions = errors.New("session limit reached")
)

// Manager owns the sessions served by the API, keyed by UUID.
type Manager struct {
	deps  Deps
	limit int

	mu       sync.RWMutex
	sessions map[string]*Session
}

// NewManager creates a manager. A limit of zero means unlimited.
func NewManager(deps Deps, limit int) *Manager {
	return &Manager{
		deps:     deps,
		limit:    limit,
		sessions: make(map[string]*Session),
	}
}

// Create registers a new uninitialized session.
func (m *Manager) Create(ctx context.Context) (*Session, error) {
	m.mu.RLock()
	full := m.limit > 0 && len(m.sessions) >= m.limit
	m.mu.RUnlock()
	if full {
		return nil, ErrTooManySessions
	}

	s, err := NewSession(ctx, uuid.NewString(), m.deps)
	if err != nil {
		return nil, err
	}

	m.mu.Lock()
	defer m.mu.Unlock()
	if m.limit > 0 && len(m.sessions) >= m.limit {
		return nil, ErrTooManySessions
	}
	m.sessions[s.ID()] = s
	metrics.ActiveSessions.Set(float64(len(m.sessions)))
	return s, nil
}

// Get returns the session for id. An id the manager has not seen, but
// whose story is in the store (for example after a restart), comes back as
// an uninitialized session holding that story.
func (m *Manager) Get(ctx context.Context, id string) (*Session, error) {
	if _, err := uuid.Parse(id); err != nil {
		return nil, fmt.Errorf("%w: %s", ErrSessionNotFound, id)
	}
	m.mu.RLock()
	s, ok := m.sessions[id]
	m.mu.RUnlock()
	if ok {
		return s, nil
	}
	return m.restore(ctx, id)
}

func (m *Manager) restore(ctx context.Context, id string) (*Session, error) {
	s, err := NewSession(ctx, id, m.deps)
	if err != nil {
		return nil, err
	}
	if len(s.Story()) == 0 {
		return nil, fmt.Errorf("%w: %s", ErrSessionNotFound, id)
	}

	m.mu.Lock()
	defer m.mu.Unlock()
	if existing, ok := m.sessions[id]; ok {
		return existing, nil
	}
	if m.limit > 0 && len(m.sessions) >= m.limit {
		return nil, ErrTooManySessions
	}
	m.sessions[id] = s
	metrics.ActiveSessions.Set(float64(len(m.sessions)))
	m.deps.Logger.Info("Restored session from stored story", "session_id", id, "panels", len(s.Story()))
	return s, nil
}

// Delete resets the session, clearing its stored story, and forgets it.
func (m *Manager) Delete(ctx context.Context, id string) error {
	s, err := m.Get(ctx, id)
	if err != nil {
		return err
	}
	if err := s.Reset(ctx); err != nil {
		return err
	}

	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.sessions, id)
	metrics.ActiveSessions.Set(float64(len(m.sessions)))
	return nil
}

func (m *Manager) Len() int {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return len(m.sessions)
}
