package tokenstore

import (
	"context"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
)

// DefaultRedisNamespace is the hash that holds the client's keys.
const DefaultRedisNamespace = "marketclient:session"

// RedisKeyValueStore keeps values as fields of one Redis hash.
type RedisKeyValueStore struct {
	client    *redis.Client
	namespace string
}

// NewRedisKeyValueStore wraps an existing client. An empty namespace selects DefaultRedisNamespace.
func NewRedisKeyValueStore(client *redis.Client, namespace string) *RedisKeyValueStore {
	if namespace == "" {
		namespace = DefaultRedisNamespace
	}
	return &RedisKeyValueStore{client: client, namespace: namespace}
}

// ConnectRedis parses a redis:// URL and verifies the server answers PING.
func ConnectRedis(ctx context.Context, redisURL string) (*redis.Client, error) {
	options, err := redis.ParseURL(redisURL)
	if err != nil {
		return nil, fmt.Errorf("tokenstore.redis.parse_url: %w", err)
	}
	client := redis.NewClient(options)

	pingCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()
	if err = client.Ping(pingCtx).Err(); err != nil {
		_ = client.Close()
		return nil, fmt.Errorf("tokenstore.redis.ping: %w", err)
	}
	return client, nil
}

// Get reads the hash field for key.
func (store *RedisKeyValueStore) Get(ctx context.Context, key string) (string, bool, error) {
	value, err := store.client.HGet(ctx, store.namespace, key).Result()
	if err == redis.Nil {
		return "", false, nil
	}
	if err != nil {
		return "", false, fmt.Errorf("tokenstore.redis.get: %w", err)
	}
	return value, true, nil
}

// Set writes the hash field for key.
func (store *RedisKeyValueStore) Set(ctx context.Context, key string, value string) error {
	if err := store.client.HSet(ctx, store.namespace, key, value).Err(); err != nil {
		return fmt.Errorf("tokenstore.redis.set: %w", err)
	}
	return nil
}

// Remove deletes the hash field for key.
func (store *RedisKeyValueStore) Remove(ctx context.Context, key string) error {
	if err := store.client.HDel(ctx, store.namespace, key).Err(); err != nil {
		return fmt.Errorf("tokenstore.redis.remove: %w", err)
	}
	return nil
}

// Close closes the Redis client.
func (store *RedisKeyValueStore) Close() error {
	return store.client.Close()
}
