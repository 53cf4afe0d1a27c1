// Package cache holds the optional Redis cache in front of API key lookups.
package cache

import (
	"context"
	"errors"
	"fmt"
	"log"
	"time"

	"github.com/redis/go-redis/v9"
)

const keyPrefix = "apikey:"

type RedisCache struct {
	Client *redis.Client
}

func NewRedisCache(redisURL string) (*RedisCache, error) {
	opt, err := redis.ParseURL(redisURL)
	if err != nil {
		return nil, fmt.Errorf("failed to parse Redis URL: %w", err)
	}

	client := redis.NewClient(opt)

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	if err := client.Ping(ctx).Err(); err != nil {
		client.Close()
		return nil, fmt.Errorf("failed to connect to Redis: %w", err)
	}

	log.Println("[Redis] connected")
	return &RedisCache{Client: client}, nil
}

func (c *RedisCache) Close() {
	if c.Client != nil {
		c.Client.Close()
		log.Println("[Redis] connection closed")
	}
}

// ProjectForKey returns the cached project id for an API key. ok is false on
// a cache miss.
func (c *RedisCache) ProjectForKey(ctx context.Context, key string) (projectID string, ok bool, err error) {
	projectID, err = c.Client.Get(ctx, keyPrefix+key).Result()
	if errors.Is(err, redis.Nil) {
		return "", false, nil
	}
	if err != nil {
		return "", false, err
	}
	return projectID, true, nil
}

func (c *RedisCache) StoreKey(ctx context.Context, key, projectID string, ttl time.Duration) error {
	return c.Client.Set(ctx, keyPrefix+key, projectID, ttl).Err()
}
