package storage

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/jwebster45206/hushpath/pkg/game"
)

// RedisStore implements StoryStore on Redis.
type RedisStore struct {
	client *redis.Client
	ttl    time.Duration
	logger *slog.Logger
}

var _ StoryStore = (*RedisStore)(nil)

// NewRedisStore connects to redisURL ("redis://host:port/db"). A bare
// "host:port" address is accepted too. A zero ttl keeps stories forever.
func NewRedisStore(redisURL string, ttl time.Duration, logger *slog.Logger) (*RedisStore, error) {
	opt := &redis.Options{Addr: redisURL}
	if strings.Contains(redisURL, "://") {
		var err error
		if opt, err = redis.ParseURL(redisURL); err != nil {
			return nil, fmt.Errorf("failed to parse redis URL: %w", err)
		}
	}
	return &RedisStore{
		client: redis.NewClient(opt),
		ttl:    ttl,
		logger: logger,
	}, nil
}

// Client exposes the connection for other Redis users, such as the
// event bus.
func (r *RedisStore) Client() *redis.Client {
	return r.client
}

// Health and lifecycle methods

func (r *RedisStore) Ping(ctx context.Context) error {
	if err := r.client.Ping(ctx).Err(); err != nil {
		return fmt.Errorf("redis ping failed: %w", err)
	}
	return nil
}

func (r *RedisStore) Close() error {
	if err := r.client.Close(); err != nil {
		r.logger.Error("Failed to close Redis connection", "error", err)
		return err
	}
	r.logger.Info("Redis connection closed")
	return nil
}

// WaitForConnection waits for Redis to become available (used during startup)
func (r *RedisStore) WaitForConnection(ctx context.Context, attempts int, delay time.Duration) error {
	for i := range attempts {
		err := r.Ping(ctx)
		if err == nil {
			r.logger.Info("Redis connection established")
			return nil
		}
		r.logger.Debug("Redis not ready yet", "error", err, "attempt", i+1)

		select {
		case <-ctx.Done():
			return fmt.Errorf("context cancelled while waiting for redis: %w", ctx.Err())
		case <-time.After(delay):
		}
	}
	return fmt.Errorf("redis did not become available after %d attempts", attempts)
}

// Story operations

func (r *RedisStore) Load(ctx context.Context, sessionID string) ([]game.StoryPanel, error) {
	data, err := r.client.Get(ctx, StoryKey(sessionID)).Bytes()
	if errors.Is(err, redis.Nil) {
		return []game.StoryPanel{}, nil
	}
	if err != nil {
		r.logger.Error("Failed to load story", "session_id", sessionID, "error", err)
		return nil, fmt.Errorf("failed to load story: %w", err)
	}
	return decodeStory(data, sessionID, r.logger), nil
}

func (r *RedisStore) Save(ctx context.Context, sessionID string, panels []game.StoryPanel) error {
	if panels == nil {
		panels = []game.StoryPanel{}
	}
	data, err := json.Marshal(panels)
	if err != nil {
		return fmt.Errorf("failed to marshal story: %w", err)
	}
	if err := r.client.Set(ctx, StoryKey(sessionID), data, r.ttl).Err(); err != nil {
		r.logger.Error("Failed to save story", "session_id", sessionID, "error", err)
		return fmt.Errorf("failed to save story: %w", err)
	}
	return nil
}

func (r *RedisStore) Clear(ctx context.Context, sessionID string) error {
	if err := r.client.Del(ctx, StoryKey(sessionID)).Err(); err != nil {
		r.logger.Error("Failed to clear story", "session_id", sessionID, "error", err)
		return fmt.Errorf("failed to clear story: %w", err)
	}
	return nil
}
