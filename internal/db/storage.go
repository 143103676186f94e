package db

import (
	"context"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"

	"neuratalk/internal/config"
	"neuratalk/internal/repository"
)

// NewSnapshotRepository construye la frontera de persistencia segun STORAGE_DRIVER.
// La funcion devuelta libera las conexiones abiertas.
func NewSnapshotRepository(ctx context.Context, cfg *config.Config, logger *zap.Logger) (repository.SnapshotRepository, func(), error) {
	noop := func() {}
	switch cfg.StorageDriver {
	case config.StorageMemory:
		return repository.NewMemorySnapshotRepository(), noop, nil

	case config.StoragePostgres:
		pool, err := NewPool(ctx, cfg)
		if err != nil {
			return nil, noop, fmt.Errorf("db connect: %w", err)
		}
		repo := repository.NewPgSnapshotRepository(pool, cfg.StorageKey)
		if err := repo.EnsureSchema(ctx); err != nil {
			pool.Close()
			return nil, noop, fmt.Errorf("ensure schema: %w", err)
		}
		return repo, pool.Close, nil

	case config.StorageRedis:
		client := redis.NewClient(&redis.Options{
			Addr:     cfg.RedisAddr,
			Password: cfg.RedisPassword,
			DB:       cfg.RedisDB,
		})
		ctxPing, cancel := context.WithTimeout(ctx, 2*time.Second)
		defer cancel()
		if err := client.Ping(ctxPing).Err(); err != nil {
			logger.Warn("redis ping failed", zap.Error(err))
		}
		return repository.NewRedisSnapshotRepository(client, cfg.StorageKey), func() { _ = client.Close() }, nil

	default:
		sqlDB, err := OpenSQLite(ctx, cfg.SQLitePath)
		if err != nil {
			return nil, noop, err
		}
		repo := repository.NewSQLiteSnapshotRepository(sqlDB, cfg.StorageKey)
		if err := repo.EnsureSchema(ctx); err != nil {
			sqlDB.Close()
			return nil, noop, fmt.Errorf("ensure schema: %w", err)
		}
		return repo, func() { _ = sqlDB.Close() }, nil
	}
}
