// Package cache holds the Redis-backed cache for the live-session transport guard.
package cache

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/go-redis/redis/v8"

	"virtualexpo/internal/domain"
)

// RedisConfig holds connection settings for Redis.
type RedisConfig struct {
	Addr     string
	Password string
	DB       int
}

// NewRedisClient connects to Redis and verifies the connection.
func NewRedisClient(ctx context.Context, cfg RedisConfig) (*redis.Client, error) {
	client := redis.NewClient(&redis.Options{
		Addr:     cfg.Addr,
		Password: cfg.Password,
		DB:       cfg.DB,
		PoolSize: 10,
	})

	pingCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()
	if _, err := client.Ping(pingCtx).Result(); err != nil {
		_ = client.Close()
		return nil, fmt.Errorf("failed to connect to Redis at %s: %w", cfg.Addr, err)
	}
	return client, nil
}

// keyValueStore is the subset of the Redis client used by the cache.
type keyValueStore interface {
	Get(ctx context.Context, key string) *redis.StringCmd
	Set(ctx context.Context, key string, value interface{}, expiration time.Duration) *redis.StatusCmd
	Del(ctx context.Context, keys ...string) *redis.IntCmd
}

const liveSessionKeyPrefix = "virtualexpo:session-status:"

type liveSessionCache struct {
	client keyValueStore
	ttl    time.Duration
}

// NewLiveSessionCache caches session statuses in Redis for ttl.
func NewLiveSessionCache(client keyValueStore, ttl time.Duration) domain.LiveSessionCache {
	return &liveSessionCache{client: client, ttl: ttl}
}

func liveSessionKey(sessionID string) string {
	return liveSessionKeyPrefix + sessionID
}

func (c *liveSessionCache) Get(ctx context.Context, sessionID string) (domain.SessionStatus, bool, error) {
	val, err := c.client.Get(ctx, liveSessionKey(sessionID)).Result()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return "", false, nil
		}
		return "", false, fmt.Errorf("failed to get session status from Redis: %w", err)
	}
	status := domain.SessionStatus(val)
	if !status.Valid() {
		// Treat unknown values as a miss so the caller re-reads the store.
		return "", false, nil
	}
	return status, true, nil
}

func (c *liveSessionCache) Set(ctx context.Context, sessionID string, status domain.SessionStatus) error {
	if err := c.client.Set(ctx, liveSessionKey(sessionID), string(status), c.ttl).Err(); err != nil {
		return fmt.Errorf("failed to cache session status: %w", err)
	}
	return nil
}

func (c *liveSessionCache) Invalidate(ctx context.Context, sessionID string) error {
	if err := c.client.Del(ctx, liveSessionKey(sessionID)).Err(); err != nil {
		return fmt.Errorf("failed to invalidate session status: %w", err)
	}
	return nil
}
