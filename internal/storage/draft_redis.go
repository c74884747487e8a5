package storage

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
)

const redisDraftKeyPrefix = "campaign-studio:draft:"

// RedisSlotStore keeps draft slots in Redis with a sliding TTL.
type RedisSlotStore struct {
	client *redis.Client
	ttl    time.Duration
}

// NewRedisSlotStore creates a Redis-backed slot store. A zero ttl keeps
// drafts until they are cleared.
func NewRedisSlotStore(client *redis.Client, ttl time.Duration) *RedisSlotStore {
	return &RedisSlotStore{client: client, ttl: ttl}
}

func (s *RedisSlotStore) key(k string) string {
	return redisDraftKeyPrefix + k
}

func (s *RedisSlotStore) Get(ctx context.Context, key string) (string, error) {
	v, err := s.client.Get(ctx, s.key(key)).Result()
	if errors.Is(err, redis.Nil) {
		return "", ErrSlotEmpty
	}
	if err != nil {
		return "", fmt.Errorf("failed to get draft: %w", err)
	}
	return v, nil
}

func (s *RedisSlotStore) Set(ctx context.Context, key, value string) error {
	if err := s.client.Set(ctx, s.key(key), value, s.ttl).Err(); err != nil {
		return fmt.Errorf("failed to set draft: %w", err)
	}
	return nil
}

func (s *RedisSlotStore) Delete(ctx context.Context, key string) error {
	if err := s.client.Del(ctx, s.key(key)).Err(); err != nil {
		return fmt.Errorf("failed to delete draft: %w", err)
	}
	return nil
}

func (s *RedisSlotStore) Backend() string { return "redis" }
