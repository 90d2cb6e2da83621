package storage

import (
	"context"
	"io"
	"log/slog"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jwebster45206/hushpath/pkg/game"
)

func testLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, &slog.HandlerOptions{Level: slog.LevelError}))
}

func setupTestRedis(t *testing.T, ttl time.Duration) (*RedisStore, *miniredis.Miniredis) {
	t.Helper()

	mr, err := miniredis.Run()
	require.NoError(t, err)
	t.Cleanup(mr.Close)

	store, err := NewRedisStore("redis://"+mr.Addr(), ttl, testLogger())
	require.NoError(t, err)
	t.Cleanup(func() { _ = store.Close() })
	return store, mr
}

func samplePanels() []game.StoryPanel {
	return []game.StoryPanel{
		{ID: "p1", Turn: 0, Location: "The Void", Action: "Entered the World", Narrative: "You wake.", Art: " /\\ ", Timestamp: 1700000000000},
		{ID: "p2", Turn: 1, Location: "Fog-Marsh", Action: "Move north", Narrative: "Mist.", Timestamp: 1700000005000},
	}
}

func TestStoryKey(t *testing.T) {
	assert.Equal(t, "hushpath_story:abc", StoryKey("abc"))
}

// storeContract exercises behavior shared by every StoryStore.
func storeContract(t *testing.T, store StoryStore, corrupt func(sessionID string)) {
	ctx := context.Background()

	t.Run("missing loads empty", func(t *testing.T) {
		panels, err := store.Load(ctx, "nobody")
		require.NoError(t, err)
		assert.NotNil(t, panels)
		assert.Empty(t, panels)
	})

	t.Run("save and load", func(t *testing.T) {
		require.NoError(t, store.Save(ctx, "s1", samplePanels()))
		panels, err := store.Load(ctx, "s1")
		require.NoError(t, err)
		assert.Equal(t, samplePanels(), panels)
	})

	t.Run("save overwrites", func(t *testing.T) {
		require.NoError(t, store.Save(ctx, "s2", samplePanels()))
		require.NoError(t, store.Save(ctx, "s2", samplePanels()[:1]))
		panels, err := store.Load(ctx, "s2")
		require.NoError(t, err)
		assert.Len(t, panels, 1)
	})

	t.Run("sessions are isolated", func(t *testing.T) {
		require.NoError(t, store.Save(ctx, "s3", samplePanels()))
		panels, err := store.Load(ctx, "s4")
		require.NoError(t, err)
		assert.Empty(t, panels)
	})

	t.Run("clear", func(t *testing.T) {
		require.NoError(t, store.Save(ctx, "s5", samplePanels()))
		require.NoError(t, store.Clear(ctx, "s5"))
		require.NoError(t, store.Clear(ctx, "s5"))
		panels, err := store.Load(ctx, "s5")
		require.NoError(t, err)
		assert.Empty(t, panels)
	})

	t.Run("corrupt loads empty", func(t *testing.T) {
		corrupt("s6")
		panels, err := store.Load(ctx, "s6")
		require.NoError(t, err)
		assert.Empty(t, panels)
	})

	t.Run("nil saves as empty list", func(t *testing.T) {
		require.NoError(t, store.Save(ctx, "s7", nil))
		panels, err := store.Load(ctx, "s7")
		require.NoError(t, err)
		assert.NotNil(t, panels)
		assert.Empty(t, panels)
	})

	assert.NoError(t, store.Ping(ctx))
}

func TestRedisStore(t *testing.T) {
	store, mr := setupTestRedis(t, 0)
	storeContract(t, store, func(id string) {
		require.NoError(t, mr.Set(StoryKey(id), "{not json"))
	})
}

func TestRedisStore_BlobShape(t *testing.T) {
	store, mr := setupTestRedis(t, 0)
	require.NoError(t, store.Save(context.Background(), "s", samplePanels()[1:]))

	raw, err := mr.Get(StoryKey("s"))
	require.NoError(t, err)
	assert.JSONEq(t, `[{"id":"p2","turn":1,"location":"Fog-Marsh","action":"Move north","narrative":"Mist.","timestamp":1700000005000}]`, raw)
	assert.Zero(t, mr.TTL(StoryKey("s")))
}

func TestRedisStore_TTL(t *testing.T) {
	store, mr := setupTestRedis(t, time.Hour)
	require.NoError(t, store.Save(context.Background(), "s", samplePanels()))
	assert.Equal(t, time.Hour, mr.TTL(StoryKey("s")))

	mr.FastForward(2 * time.Hour)
	panels, err := store.Load(context.Background(), "s")
	require.NoError(t, err)
	assert.Empty(t, panels)
}

func TestRedisStore_Unavailable(t *testing.T) {
	store, mr := setupTestRedis(t, 0)
	mr.Close()

	ctx := context.Background()
	assert.Error(t, store.Ping(ctx))
	_, err := store.Load(ctx, "s")
	assert.Error(t, err)
	assert.Error(t, store.Save(ctx, "s", samplePanels()))
}

func TestRedisStore_WaitForConnection(t *testing.T) {
	store, mr := setupTestRedis(t, 0)
	assert.NoError(t, store.WaitForConnection(context.Background(), 3, time.Millisecond))

	mr.Close()
	err := store.WaitForConnection(context.Background(), 2, time.Millisecond)
	assert.ErrorContains(t, err, "after 2 attempts")
}

func TestNewRedisStore_Addresses(t *testing.T) {
	_, err := NewRedisStore("localhost:6379", 0, testLogger())
	assert.NoError(t, err)

	_, err = NewRedisStore("http://bad", 0, testLogger())
	assert.Error(t, err)
}

func TestMemoryStore(t *testing.T) {
	store := NewMemoryStore(testLogger())
	storeContract(t, store, func(id string) {
		store.SetRaw(id, []byte("[{"))
	})
}

func TestMemoryStore_PingError(t *testing.T) {
	store := NewMemoryStore(testLogger())
	store.SetPingError(assert.AnError)
	assert.ErrorIs(t, store.Ping(context.Background()), assert.AnError)
	store.SetPingError(nil)
	assert.NoError(t, store.Ping(context.Background()))
}
