package cache

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"assettrack/pkg/types"

	"github.com/redis/go-redis/v9"
	"github.com/sirupsen/logrus"
)

// Categories caches the category registry in redis. A nil client disables
// it. Redis failures are logged and treated as misses, so the database stays
// the only source of truth.
type Categories struct {
	client *redis.Client
	key    string
	ttl    time.Duration
	logger logrus.FieldLogger
}

func NewCategories(client *redis.Client, namespace string, ttl time.Duration, logger logrus.FieldLogger) *Categories {
	return &Categories{
		client: client,
		key:    fmt.Sprintf("assettrack:%s:categories", namespace),
		ttl:    ttl,
		logger: logger.WithField("cache", "categories"),
	}
}

// NewClient builds a redis client from config, or returns nil when no
// address is configured.
func NewClient(ctx context.Context, config *types.Config) (*redis.Client, error) {
	if config.RedisAddr == "" {
		return nil, nil
	}

	client := redis.NewClient(&redis.Options{
		Addr:         config.RedisAddr,
		Password:     config.RedisPassword,
		DialTimeout:  2 * time.Second,
		ReadTimeout:  time.Second,
		WriteTimeout: time.Second,
	})

	if err := client.Ping(ctx).Err(); err != nil {
		_ = client.Close()
		return nil, fmt.Errorf("ping redis at %s: %w", config.RedisAddr, err)
	}

	return client, nil
}

func (c *Categories) Categories(ctx context.Context) ([]*types.Category, bool) {
	if c.client == nil {
		return nil, false
	}

	data, err := c.client.Get(ctx, c.key).Bytes()
	if err != nil {
		if !errors.Is(err, redis.Nil) {
			c.logger.WithError(err).Warn("failed to read cached categories")
		}
		return nil, false
	}

	var categories []*types.Category
	if err := json.Unmarshal(data, &categories); err != nil {
		c.logger.WithError(err).Warn("discarding unreadable cached categories")
		return nil, false
	}

	return categories, true
}

func (c *Categories) SetCategories(ctx context.Context, categories []*types.Category) {
	if c.client == nil {
		return
	}

	data, err := json.Marshal(categories)
	if err != nil {
		c.logger.WithError(err).Warn("failed to encode categories for cache")
		return
	}

	if err := c.client.Set(ctx, c.key, data, c.ttl).Err(); err != nil {
		c.logger.WithError(err).Warn("failed to cache categories")
	}
}

func (c *Categories) Invalidate(ctx context.Context) {
	if c.client == nil {
		return
	}

	if err := c.client.Del(ctx, c.key).Err(); err != nil {
		c.logger.WithError(err).Warn("failed to invalidate cached categories")
	}
}
