package storage

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/redis/go-redis/v9"

	"github.com/amirhf/imageSearch/services/search-web/models"
)

// RedisStore keeps outcomes in a capped list, newest at the head.
type RedisStore struct {
	client   *redis.Client
	key      string
	capacity int
}

func NewRedisStore(ctx context.Context, addr, prefix string, capacity int) (*RedisStore, error) {
	if addr == "" {
		return nil, fmt.Errorf("redis address required")
	}
	client := redis.NewClient(&redis.Options{Addr: addr})
	if err := client.Ping(ctx).Err(); err != nil {
		client.Close()
		return nil, fmt.Errorf("redis ping failed: %w", err)
	}
	if prefix == "" {
		prefix = "search-web:history"
	}
	if capacity <= 0 {
		capacity = defaultCapacity
	}
	return &RedisStore{client: client, key: prefix + ":outcomes", capacity: capacity}, nil
}

func (s *RedisStore) Record(ctx context.Context, outcome models.SearchOutcome) error {
	data, err := json.Marshal(outcome)
	if err != nil {
		return err
	}
	_, err = s.client.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
		pipe.LPush(ctx, s.key, data)
		pipe.LTrim(ctx, s.key, 0, int64(s.capacity-1))
		return nil
	})
	return err
}

func (s *RedisStore) Recent(ctx context.Context, limit int) ([]models.SearchOutcome, error) {
	limit = clampLimit(limit, s.capacity)
	raw, err := s.client.LRange(ctx, s.key, 0, int64(limit-1)).Result()
	if err != nil {
		return nil, err
	}
	out := make([]models.SearchOutcome, 0, len(raw))
	for _, item := range raw {
		var o models.SearchOutcome
		if err := json.Unmarshal([]byte(item), &o); err != nil {
			continue
		}
		out = append(out, o)
	}
	return out, nil
}

func (s *RedisStore) Close() error {
	return s.client.Close()
}
