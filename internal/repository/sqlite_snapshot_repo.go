package repository

import (
	"context"
	"database/sql"
	"errors"
	"time"

	"neuratalk/internal/domain"
)

// SQLiteSnapshotRepository persiste el snapshot en un archivo local.
type SQLiteSnapshotRepository struct {
	db  *sql.DB
	key string
}

func NewSQLiteSnapshotRepository(db *sql.DB, key string) *SQLiteSnapshotRepository {
	if key == "" {
		key = DefaultStorageKey
	}
	return &SQLiteSnapshotRepository{db: db, key: key}
}

func (r *SQLiteSnapshotRepository) EnsureSchema(ctx context.Context) error {
	const query = `
		CREATE TABLE IF NOT EXISTS app_state (
			key        TEXT PRIMARY KEY,
			payload    TEXT NOT NULL,
			updated_at TIMESTAMP NOT NULL
		)
	`
	_, err := r.db.ExecContext(ctx, query)
	return err
}

func (r *SQLiteSnapshotRepository) Load(ctx context.Context) (domain.Snapshot, bool, error) {
	const query = `SELECT payload FROM app_state WHERE key = ?`
	var payload string
	err := r.db.QueryRowContext(ctx, query, r.key).Scan(&payload)
	if errors.Is(err, sql.ErrNoRows) {
		return domain.Snapshot{}, false, nil
	}
	if err != nil {
		return domain.Snapshot{}, false, err
	}
	snap, err := decodeSnapshot([]byte(payload))
	if err != nil {
		return domain.Snapshot{}, false, err
	}
	return snap, true, nil
}

func (r *SQLiteSnapshotRepository) Save(ctx context.Context, snap domain.Snapshot) error {
	const query = `
		INSERT INTO app_state (key, payload, updated_at)
		VALUES (?, ?, ?)
		ON CONFLICT (key) DO UPDATE
		SET payload = excluded.payload, updated_at = excluded.updated_at
	`
	payload, err := encodeSnapshot(snap)
	if err != nil {
		return err
	}
	_, err = r.db.ExecContext(ctx, query, r.key, string(payload), time.Now().UTC())
	return err
}
