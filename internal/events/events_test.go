package events

import (
	"context"
	"io"
	"log/slog"
	"runtime"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func testLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, &slog.HandlerOptions{Level: slog.LevelError}))
}

func receive(t *testing.T, ch <-chan Event) Event {
	t.Helper()
	select {
	case e, ok := <-ch:
		require.True(t, ok, "channel closed")
		return e
	case <-time.After(2 * time.Second):
		t.Fatal("timed out waiting for event")
		return Event{}
	}
}

func busContract(t *testing.T, bus Bus) {
	ctx := context.Background()
	b := NewBroadcaster(bus, testLogger())

	ch, cancel, err := bus.Subscribe(ctx, "game-1")
	require.NoError(t, err)

	b.TurnStarted(ctx, "game-2", "ignored")
	b.TurnStarted(ctx, "game-1", "look")
	b.ArtResolved(ctx, "game-1", "scene", "image")
	b.TurnCompleted(ctx, "game-1", 3, "Harbor", false)
	b.TurnFailed(ctx, "game-1", "model offline")

	e := receive(t, ch)
	assert.Equal(t, EventTypeTurnStarted, e.Type)
	assert.Equal(t, "game-1", e.GameID)
	assert.Equal(t, "look", e.Data["action"])

	e = receive(t, ch)
	assert.Equal(t, EventTypeArtResolved, e.Type)
	assert.Equal(t, "scene", e.Data["slot"])

	e = receive(t, ch)
	assert.Equal(t, EventTypeTurnCompleted, e.Type)
	assert.EqualValues(t, 3, e.Data["turn"])
	assert.Equal(t, "Harbor", e.Data["location"])

	e = receive(t, ch)
	assert.Equal(t, EventTypeTurnFailed, e.Type)

	cancel()
	cancel()
	select {
	case _, ok := <-ch:
		assert.False(t, ok, "no events after cancel")
	case <-time.After(2 * time.Second):
		t.Fatal("channel not closed after cancel")
	}
}

func TestMemoryBus(t *testing.T) {
	bus := NewMemoryBus()
	busContract(t, bus)
	assert.Equal(t, 0, bus.Subscribers("game-1"))
}

func TestMemoryBus_ContextCancel(t *testing.T) {
	bus := NewMemoryBus()
	ctx, cancel := context.WithCancel(context.Background())
	ch, _, err := bus.Subscribe(ctx, "g")
	require.NoError(t, err)
	assert.Equal(t, 1, bus.Subscribers("g"))

	cancel()
	_, ok := <-ch
	assert.False(t, ok)
	assert.Equal(t, 0, bus.Subscribers("g"))
}

func TestMemoryBus_CancelWithLiveContext(t *testing.T) {
	bus := NewMemoryBus()
	ctx, stop := context.WithCancel(context.Background())
	t.Cleanup(stop)

	before := runtime.NumGoroutine()
	for range 100 {
		ch, cancel, err := bus.Subscribe(ctx, "g")
		require.NoError(t, err)
		cancel()
		cancel()
		_, ok := <-ch
		require.False(t, ok)
	}
	assert.Equal(t, 0, bus.Subscribers("g"))
	assert.LessOrEqual(t, runtime.NumGoroutine(), before+2)

	// Ending the context afterwards must not touch released subscriptions.
	stop()
	assert.Equal(t, 0, bus.Subscribers("g"))
}

func TestMemoryBus_SlowSubscriberDrops(t *testing.T) {
	bus := NewMemoryBus()
	ch, cancel, err := bus.Subscribe(context.Background(), "g")
	require.NoError(t, err)
	defer cancel()

	for i := 0; i < subscriberBuffer+5; i++ {
		require.NoError(t, bus.Publish(context.Background(), Event{Type: EventTypeTurnStarted, GameID: "g"}))
	}
	assert.Len(t, ch, subscriberBuffer)
}

func TestRedisBus(t *testing.T) {
	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = client.Close() })

	busContract(t, NewRedisBus(client, testLogger()))
}

func TestRedisBus_Unavailable(t *testing.T) {
	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = client.Close() })
	mr.Close()

	bus := NewRedisBus(client, testLogger())
	err := bus.Publish(context.Background(), Event{Type: EventTypeTurnStarted, GameID: "g"})
	assert.Error(t, err)

	// Publishing through a broadcaster swallows the failure.
	NewBroadcaster(bus, testLogger()).TurnStarted(context.Background(), "g", "look")
}

func TestNilBroadcaster(t *testing.T) {
	var b *Broadcaster
	assert.NotPanics(t, func() {
		b.TurnStarted(context.Background(), "g", "look")
	})
}

func TestChannel(t *testing.T) {
	assert.Equal(t, "hushpath_events:abc", Channel("abc"))
}
