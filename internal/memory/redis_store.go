package memory

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
)

// RedisSnapshotter implements Snapshotter using Redis. Snapshots are JSON
// copies of sessions under "session:<id>" keys with a TTL matching the
// session timeout, so Redis expiry shadows the in-process sweep.
type RedisSnapshotter struct {
	client *redis.Client
	ttl    time.Duration
}

// NewRedisSnapshotter connects to Redis and verifies the connection.
func NewRedisSnapshotter(redisURL string, ttl time.Duration) (*RedisSnapshotter, error) {
	opt, err := redis.ParseURL(redisURL)
	if err != nil {
		return nil, fmt.Errorf("failed to parse Redis URL: %w", err)
	}

	client := redis.NewClient(opt)

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	if err := client.Ping(ctx).Err(); err != nil {
		return nil, fmt.Errorf("failed to connect to Redis: %w", err)
	}

	return &RedisSnapshotter{client: client, ttl: ttl}, nil
}

func (r *RedisSnapshotter) sessionKey(sessionID string) string {
	return fmt.Sprintf("session:%s", sessionID)
}

// Save persists a session snapshot with the configured TTL.
func (r *RedisSnapshotter) Save(ctx context.Context, session *Session) error {
	data, err := json.Marshal(session)
	if err != nil {
		return fmt.Errorf("failed to marshal session: %w", err)
	}

	if err := r.client.Set(ctx, r.sessionKey(session.ID), data, r.ttl).Err(); err != nil {
		return fmt.Errorf("failed to save session to Redis: %w", err)
	}
	return nil
}

// Delete removes a persisted snapshot.
func (r *RedisSnapshotter) Delete(ctx context.Context, sessionID string) error {
	if err := r.client.Del(ctx, r.sessionKey(sessionID)).Err(); err != nil {
		return fmt.Errorf("failed to delete session from Redis: %w", err)
	}
	return nil
}

// Load reads a persisted snapshot back, for operational inspection.
// Returns nil when no snapshot exists.
func (r *RedisSnapshotter) Load(ctx context.Context, sessionID string) (*Session, error) {
	data, err := r.client.Get(ctx, r.sessionKey(sessionID)).Result()
	if err == redis.Nil {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to load session from Redis: %w", err)
	}

	var session Session
	if err := json.Unmarshal([]byte(data), &session); err != nil {
		return nil, fmt.Errorf("failed to parse session data: %w", err)
	}
	return &session, nil
}

// Ping verifies the Redis connection is alive.
func (r *RedisSnapshotter) Ping(ctx context.Context) error {
	return r.client.Ping(ctx).Err()
}

// Close closes the Redis connection.
func (r *RedisSnapshotter) Close() error {
	return r.client.Close()
}
