package kv

import (
	"context"
	"fmt"

	"github.com/redis/go-redis/v9"
	"github.com/safar/safar/backend/go-services/internal/config"
	"github.com/safar/safar/backend/go-services/internal/database"
	"github.com/safar/safar/backend/go-services/pkg/logger"
)

// Open builds the Backend selected by cfg.Store.Backend.
// The returned close func releases the underlying connection and is never nil.
func Open(ctx context.Context, cfg *config.Config) (Backend, func(), error) {
	switch cfg.Store.Backend {
	case "memory":
		logger.Warnf("using in-memory store; data will not survive restarts")
		return NewMemoryBackend(), func() {}, nil

	case "sqlite":
		b, err := OpenSQLite(ctx, cfg.SQLite.Path)
		if err != nil {
			return nil, nil, err
		}
		logger.Infof("using SQLite store at %s", cfg.SQLite.Path)
		return b, func() { _ = b.Close() }, nil

	case "redis":
		client := redis.NewClient(&redis.Options{Addr: cfg.Redis.Addr(), Password: cfg.Redis.Password, DB: cfg.Redis.DB})
		if err := client.Ping(ctx).Err(); err != nil {
			_ = client.Close()
			return nil, nil, fmt.Errorf("redis ping (%s): %w", cfg.Redis.Addr(), err)
		}
		logger.Infof("using Redis store at %s (prefix %q)", cfg.Redis.Addr(), cfg.Store.Prefix)
		return NewRedisBackend(client, cfg.Store.Prefix), func() { _ = client.Close() }, nil

	case "mongo":
		client, err := database.ConnectMongoWithRetry(ctx, cfg.MongoDB.URI, cfg.MongoDB.Timeout, 5)
		if err != nil {
			return nil, nil, err
		}
		col := client.Database(cfg.MongoDB.Database).Collection(cfg.MongoDB.Collection)
		logger.Infof("using MongoDB store %s.%s", cfg.MongoDB.Database, cfg.MongoDB.Collection)
		return NewMongoBackend(col), func() { _ = client.Disconnect(context.Background()) }, nil
	}
	return nil, nil, fmt.Errorf("%w: %q", ErrUnknownBackend, cfg.Store.Backend)
}
