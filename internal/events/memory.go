package events

import (
	"context"
	"sync"
)

// subscriberBuffer is how many events a slow subscriber may fall behind
// before further events are dropped for it.
const subscriberBuffer = 16

// MemoryBus fans events out to in-process subscribers.
type MemoryBus struct {
	mu   sync.Mutex
	subs map[string]map[*memorySub]struct{}
}

type memorySub struct {
	ch   chan Event
	once sync.Once
}

func NewMemoryBus() *MemoryBus {
	return &MemoryBus{subs: make(map[string]map[*memorySub]struct{})}
}

func (b *MemoryBus) Publish(ctx context.Context, event Event) error {
	b.mu.Lock()
	defer b.mu.Unlock()
	for s := range b.subs[event.GameID] {
		select {
		case s.ch <- event:
		default:
		}
	}
	return nil
}

func (b *MemoryBus) Subscribe(ctx context.Context, gameID string) (<-chan Event, func(), error) {
	s := &memorySub{ch: make(chan Event, subscriberBuffer)}

	b.mu.Lock()
	if b.subs[gameID] == nil {
		b.subs[gameID] = make(map[*memorySub]struct{})
	}
	b.subs[gameID][s] = struct{}{}
	b.mu.Unlock()

	release := func() {
		s.once.Do(func() {
			b.mu.Lock()
			delete(b.subs[gameID], s)
			if len(b.subs[gameID]) == 0 {
				delete(b.subs, gameID)
			}
			close(s.ch)
			b.mu.Unlock()
		})
	}
	// Ending ctx releases the subscription; an explicit cancel also
	// deregisters the callback so nothing outlives the subscription.
	stop := context.AfterFunc(ctx, release)
	cancel := func() {
		stop()
		release()
	}
	return s.ch, cancel, nil
}

// Subscribers returns the number of live subscriptions for gameID.
func (b *MemoryBus) Subscribers(gameID string) int {
	b.mu.Lock()
	defer b.mu.Unlock()
	return len(b.subs[gameID])
}
