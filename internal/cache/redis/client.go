package redis

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"

	"github.com/rouge-eval/backend/internal/rouge/table"
	"github.com/rouge-eval/backend/pkg/logger"
)

const resultPrefix = "rouge:result:"

// Client caches evaluation result sets keyed by the hash of the scoring
// arguments and the evaluated texts.
type Client struct {
	client *redis.Client
}

func NewClient(host string, port int, password string, db int) (*Client, error) {
	client := redis.NewClient(&redis.Options{
		Addr:     fmt.Sprintf("%s:%d", host, port),
		Password: password,
		DB:       db,
	})

	ctx := context.Background()
	_, err := client.Ping(ctx).Result()
	if err != nil {
		client.Close()
		return nil, fmt.Errorf("failed to connect to redis: %w", err)
	}

	logger.Info("Redis client initialized", zap.String("addr", fmt.Sprintf("%s:%d", host, port)))

	return &Client{client: client}, nil
}

func (c *Client) Close() error {
	return c.client.Close()
}

func (c *Client) Ping(ctx context.Context) error {
	return c.client.Ping(ctx).Err()
}

func (c *Client) SetResult(ctx context.Context, key string, rs *table.ResultSet, ttl time.Duration) error {
	data, err := json.Marshal(rs)
	if err != nil {
		return fmt.Errorf("failed to marshal result set: %w", err)
	}

	err = c.client.Set(ctx, resultPrefix+key, data, ttl).Err()
	if err != nil {
		return fmt.Errorf("failed to set result cache: %w", err)
	}

	logger.Debug("Result cached", zap.String("key", key), zap.Duration("ttl", ttl))
	return nil
}

// GetResult reports false without error on a cache miss.
func (c *Client) GetResult(ctx context.Context, key string) (*table.ResultSet, bool, error) {
	data, err := c.client.Get(ctx, resultPrefix+key).Bytes()
	if err == redis.Nil {
		return nil, false, nil
	}
	if err != nil {
		return nil, false, fmt.Errorf("failed to get result cache: %w", err)
	}

	var rs table.ResultSet
	if err := json.Unmarshal(data, &rs); err != nil {
		return nil, false, fmt.Errorf("failed to unmarshal result set: %w", err)
	}

	logger.Debug("Result cache hit", zap.String("key", key))
	return &rs, true, nil
}

// Invalidate drops every cached result, e.g. after the ROUGE data
// directory changed.
func (c *Client) Invalidate(ctx context.Context) error {
	iter := c.client.Scan(ctx, 0, resultPrefix+"*", 0).Iterator()
	for iter.Next(ctx) {
		err := c.client.Del(ctx, iter.Val()).Err()
		if err != nil {
			logger.Warn("Failed to delete cache key", zap.Error(err))
		}
	}

	if err := iter.Err(); err != nil {
		return fmt.Errorf("failed to iterate cache keys: %w", err)
	}

	logger.Info("Result cache invalidated")
	return nil
}
