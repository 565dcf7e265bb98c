package store

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
)

const (
	resultsKey = "pairs:results"
	resultsTTL = 7 * 24 * time.Hour
)

// RedisStore implements Store as a capped Redis list of JSON results
type RedisStore struct {
	client *redis.Client
}

// NewRedisStore creates a new Redis store
func NewRedisStore(addr, password string, db int) (*RedisStore, error) {
	client := redis.NewClient(&redis.Options{
		Addr:     addr,
		Password: password,
		DB:       db,
	})

	// Test connection
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	if err := client.Ping(ctx).Err(); err != nil {
		client.Close()
		return nil, fmt.Errorf("failed to connect to Redis: %w", err)
	}

	return &RedisStore{client: client}, nil
}

// Close closes the Redis connection
func (s *RedisStore) Close() error {
	return s.client.Close()
}

// SaveResult pushes a result onto the list and trims it
func (s *RedisStore) SaveResult(ctx context.Context, result Result) error {
	data, err := json.Marshal(result)
	if err != nil {
		return fmt.Errorf("failed to marshal result: %w", err)
	}

	_, err = s.client.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
		pipe.LPush(ctx, resultsKey, data)
		pipe.LTrim(ctx, resultsKey, 0, MaxRecentLimit-1)
		pipe.Expire(ctx, resultsKey, resultsTTL)
		return nil
	})
	if err != nil {
		return fmt.Errorf("failed to save result: %w", err)
	}
	return nil
}

// RecentResults reads the newest results from the list
func (s *RedisStore) RecentResults(ctx context.Context, limit int) ([]Result, error) {
	limit = ClampLimit(limit)

	items, err := s.client.LRange(ctx, resultsKey, 0, int64(limit-1)).Result()
	if err != nil {
		if err == redis.Nil {
			return []Result{}, nil
		}
		return nil, fmt.Errorf("failed to get results: %w", err)
	}

	results := make([]Result, 0, len(items))
	for _, item := range items {
		var r Result
		if err := json.Unmarshal([]byte(item), &r); err != nil {
			return nil, fmt.Errorf("failed to unmarshal result: %w", err)
		}
		results = append(results, r)
	}
	return results, nil
}
