package storage

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/go-redis/redis/v8"

	"github.com/lumehealth/intake/internal/profile"
)

// RedisConfig holds connection parameters for the Redis cache tier.
type RedisConfig struct {
	Addr     string
	Password string
	DB       int
	TTL      time.Duration
}

// RedisCache caches profiles in Redis under "profile:<user_id>" keys with a
// TTL. A miss is reported as ErrNotFound.
type RedisCache struct {
	client *redis.Client
	ttl    time.Duration
}

// NewRedisCache connects to Redis and verifies the connection with a ping.
func NewRedisCache(cfg RedisConfig) (*RedisCache, error) {
	client := redis.NewClient(&redis.Options{
		Addr:         cfg.Addr,
		Password:     cfg.Password,
		DB:           cfg.DB,
		DialTimeout:  5 * time.Second,
		ReadTimeout:  3 * time.Second,
		WriteTimeout: 3 * time.Second,
	})

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if _, err := client.Ping(ctx).Result(); err != nil {
		client.Close()
		return nil, fmt.Errorf("pinging redis: %w", err)
	}

	ttl := cfg.TTL
	if ttl <= 0 {
		ttl = time.Hour
	}
	return &RedisCache{client: client, ttl: ttl}, nil
}

func cacheKey(userID string) string {
	return "profile:" + userID
}

// Get implements Cache.
func (c *RedisCache) Get(ctx context.Context, userID string) (profile.Profile, error) {
	raw, err := c.client.Get(ctx, cacheKey(userID)).Result()
	if err == redis.Nil {
		return profile.Profile{}, ErrNotFound
	}
	if err != nil {
		return profile.Profile{}, fmt.Errorf("redis get: %w", err)
	}

	var p profile.Profile
	if err := json.Unmarshal([]byte(raw), &p); err != nil {
		return profile.Profile{}, fmt.Errorf("decoding cached profile: %w", err)
	}
	return p, nil
}

// Set implements Cache.
func (c *RedisCache) Set(ctx context.Context, p profile.Profile) error {
	raw, err := json.Marshal(p)
	if err != nil {
		return fmt.Errorf("encoding profile: %w", err)
	}
	if err := c.client.Set(ctx, cacheKey(p.UserID), raw, c.ttl).Err(); err != nil {
		return fmt.Errorf("redis set: %w", err)
	}
	return nil
}

// Delete implements Cache.
func (c *RedisCache) Delete(ctx context.Context, userID string) error {
	if err := c.client.Del(ctx, cacheKey(userID)).Err(); err != nil {
		return fmt.Errorf("redis del: %w", err)
	}
	return nil
}

// Close closes the underlying Redis client.
func (c *RedisCache) Close() error {
	return c.client.Close()
}
