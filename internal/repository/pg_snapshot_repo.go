package repository

import (
	"context"
	"errors"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"neuratalk/internal/domain"
)

type PgSnapshotRepository struct {
	pool *pgxpool.Pool
	key  string
}

func NewPgSnapshotRepository(pool *pgxpool.Pool, key string) *PgSnapshotRepository {
	if key == "" {
		key = DefaultStorageKey
	}
	return &PgSnapshotRepository{pool: pool, key: key}
}

// EnsureSchema crea la tabla de estado si no existe.
func (r *PgSnapshotRepository) EnsureSchema(ctx context.Context) error {
	const query = `
		CREATE TABLE IF NOT EXISTS app_state (
			key        TEXT PRIMARY KEY,
			payload    JSONB NOT NULL,
			updated_at TIMESTAMPTZ NOT NULL
		)
	`
	_, err := r.pool.Exec(ctx, query)
	return err
}

func (r *PgSnapshotRepository) Load(ctx context.Context) (domain.Snapshot, bool, error) {
	const query = `
		SELECT payload
		FROM app_state
		WHERE key = $1
	`
	var payload []byte
	err := r.pool.QueryRow(ctx, query, r.key).Scan(&payload)
	if errors.Is(err, pgx.ErrNoRows) {
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

func (r *PgSnapshotRepository) Save(ctx context.Context, snap domain.Snapshot) error {
	const query = `
		INSERT INTO app_state (key, payload, updated_at)
		VALUES ($1, $2, $3)
		ON CONFLICT (key) DO UPDATE
		SET payload = EXCLUDED.payload, updated_at = EXCLUDED.updated_at
	`
	payload, err := encodeSnapshot(snap)
	if err != nil {
		return err
	}
	_, err = r.pool.Exec(ctx, query, r.key, payload, time.Now().UTC())
	return err
}
