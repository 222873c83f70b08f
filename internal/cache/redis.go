package cache

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	redis "github.com/go-redis/redis/v8"

	"github.com/mmynk/tripsettle/internal/models"
)

// Config is the redis configuration
type Config struct {
	Addr     string
	Password string
	DB       int
}

// RedisCache implements SummaryCache on top of redis. Entries are JSON
// encoded and expire after the configured TTL.
type RedisCache struct {
	client *redis.Client
	ttl    time.Duration
}

// NewRedisCache connects to redis and verifies the connection.
func NewRedisCache(ctx context.Context, config Config, ttl time.Duration) (*RedisCache, error) {
	client := redis.NewClient(&redis.Options{
		Addr:     config.Addr,
		Password: config.Password,
		DB:       config.DB,
	})
	if err := client.Ping(ctx).Err(); err != nil {
		client.Close()
		return nil, fmt.Errorf("failed to connect to redis: %w", err)
	}
	return &RedisCache{client: client, ttl: ttl}, nil
}

// Get returns the cached summary for travelID or ErrMiss.
func (r *RedisCache) Get(ctx context.Context, travelID string) (*models.Summary, error) {
	val, err := r.client.Get(ctx, makeKey(travelID)).Bytes()
	if errors.Is(err, redis.Nil) {
		return nil, ErrMiss
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get summary: %w", err)
	}

	var summary models.Summary
	if err := json.Unmarshal(val, &summary); err != nil {
		return nil, fmt.Errorf("failed to decode summary: %w", err)
	}
	return &summary, nil
}

// Set writes summary for travelID with the cache TTL.
func (r *RedisCache) Set(ctx context.Context, travelID string, summary *models.Summary) error {
	value, err := json.Marshal(summary)
	if err != nil {
		return fmt.Errorf("failed to encode summary: %w", err)
	}
	if err := r.client.Set(ctx, makeKey(travelID), value, r.ttl).Err(); err != nil {
		return fmt.Errorf("failed to set summary: %w", err)
	}
	return nil
}

// Invalidate deletes the entry for travelID.
func (r *RedisCache) Invalidate(ctx context.Context, travelID string) error {
	if err := r.client.Del(ctx, makeKey(travelID)).Err(); err != nil {
		return fmt.Errorf("failed to invalidate summary: %w", err)
	}
	return nil
}

// Close closes the redis client.
func (r *RedisCache) Close() error {
	return r.client.Close()
}
