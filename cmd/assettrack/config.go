package main

import (
	"context"
	"fmt"
	"strings"
	"time"

	"assettrack/internal/cache"
	"assettrack/internal/db"
	"assettrack/internal/store"
	"assettrack/pkg/types"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/kelseyhightower/envconfig"
	"github.com/sirupsen/logrus"
	"github.com/urfave/cli/v2"
)

func loadConfig(prefix string) (*types.Config, error) {
	c := new(types.Config)
	if err := envconfig.Process(prefix, c); err != nil {
		return nil, fmt.Errorf("process environment config: %w", err)
	}

	if c.DatabaseURL == "" {
		return nil, fmt.Errorf("set DATABASE_URL")
	}

	if c.ServerPort == 0 {
		c.ServerPort = 8080
	}

	if c.ReadTimeoutSec == 0 {
		c.ReadTimeoutSec = 10
	}

	if c.WriteTimeoutSec == 0 {
		c.WriteTimeoutSec = 15
	}

	if c.AuthCookieName == "" {
		c.AuthCookieName = "access_token"
	}

	if c.DatabaseSchema == "" {
		c.DatabaseSchema = "assettrack"
	}

	return c, nil
}

func newLogger(config *types.Config) *logrus.Logger {
	logger := logrus.New()
	logger.SetFormatter(&logrus.JSONFormatter{})

	level, err := logrus.ParseLevel(strings.TrimSpace(config.LogLevel))
	if err != nil {
		level = logrus.InfoLevel
	}
	logger.SetLevel(level)

	return logger
}

// connect loads the configuration, opens the pool and brings the schema up
// to date. Every command that touches the database goes through it.
func connect(ctx context.Context, c *cli.Context) (*types.Config, *logrus.Logger, *pgxpool.Pool, error) {
	config, err := loadConfig(c.String("env-prefix"))
	if err != nil {
		return nil, nil, nil, err
	}

	logger := newLogger(config)

	pool, err := db.Connect(ctx, config)
	if err != nil {
		return nil, nil, nil, fmt.Errorf("failed to connect to database: %w", err)
	}

	if err := store.EvolveSchema(ctx, pool, config.DatabaseSchema, logger); err != nil {
		pool.Close()
		return nil, nil, nil, err
	}

	return config, logger, pool, nil
}

// categoryRepository returns the category registry, backed by the redis
// cache when REDIS_ADDR is set. Writes through it invalidate the cache a
// running server reads. The returned func releases the redis client.
func categoryRepository(ctx context.Context, config *types.Config, pool *pgxpool.Pool, logger logrus.FieldLogger) (*store.CategoryRepository, func(), error) {
	repo := store.NewCategoryRepository(pool)

	client, err := cache.NewClient(ctx, config)
	if err != nil {
		return nil, nil, err
	}
	if client == nil {
		return repo, func() {}, nil
	}

	ttl := time.Duration(config.RedisCategoryTTLSec) * time.Second
	repo = repo.WithCache(cache.NewCategories(client, config.DatabaseSchema, ttl, logger))
	logger.WithField("addr", config.RedisAddr).Info("category cache enabled")

	return repo, func() {
		if err := client.Close(); err != nil {
			logger.WithError(err).Warn("failed to close redis client")
		}
	}, nil
}
