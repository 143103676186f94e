package repository

import (
	"context"
	"errors"
	"time"

	"github.com/redis/go-redis/v9"

	"neuratalk/internal/domain"
)

type redisKV interface {
	Get(ctx context.Context, key string) *redis.StringCmd
	Set(ctx context.Context, key string, value interface{}, expiration time.Duration) *redis.StatusCmd
}

type RedisSnapshotRepository struct {
	client  redisKV
	key     string
	timeout time.Duration
}

func NewRedisSnapshotRepository(client *redis.Client, key string) *RedisSnapshotRepository {
	if client == nil {
		return nil
	}
	if key == "" {
		key = DefaultStorageKey
	}
	return &RedisSnapshotRepository{
		client:  client,
		key:     "neuratalk:" + key,
		timeout: 500 * time.Millisecond,
	}
}

func (r *RedisSnapshotRepository) Load(ctx context.Context) (domain.Snapshot, bool, error) {
	ctx, cancel := context.WithTimeout(ctx, r.timeout)
	defer cancel()
	payload, err := r.client.Get(ctx, r.key).Bytes()
	if errors.Is(err, redis.Nil) {
		return domain.Snapshot{}, false, nil
	}
	if err != nil {
		return domain.Snapshot{}, false, err
	}
	snap, err := decodeSnapshot(payload)
	if err != nil {
		return domain.Snapshot{}, false, err
	}
	return snap, true, nil
}

// Save escribe sin TTL: el estado vive hasta que el usuario lo borra.
func (r *RedisSnapshotRepository) Save(ctx context.Context, snap domain.Snapshot) error {
	payload, err := encodeSnapshot(snap)
	if err != nil {
		return err
	}
	ctx, cancel := context.WithTimeout(ctx, r.timeout)
	defer cancel()
	return r.client.Set(ctx, r.key, payload, 0).Err()
}
