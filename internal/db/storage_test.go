package db

import (
	"context"
	"path/filepath"
	"testing"

	"go.uber.org/zap"

	"neuratalk/internal/config"
	"neuratalk/internal/domain"
	"neuratalk/internal/repository"
)

func TestNewSnapshotRepository_Memory(t *testing.T) {
	repo, closeFn, err := NewSnapshotRepository(context.Background(), &config.Config{StorageDriver: config.StorageMemory}, zap.NewNop())
	if err != nil {
		t.Fatalf("expected no error, got %v", err)
	}
	defer closeFn()
	if _, ok := repo.(*repository.MemorySnapshotRepository); !ok {
		t.Fatalf("expected memory repository, got %T", repo)
	}
}

func TestNewSnapshotRepository_SQLite(t *testing.T) {
	ctx := context.Background()
	cfg := &config.Config{
		StorageDriver: config.StorageSQLite,
		StorageKey:    "chat-storage",
		SQLitePath:    filepath.Join(t.TempDir(), "neuratalk.db"),
	}

	repo, closeFn, err := NewSnapshotRepository(ctx, cfg, zap.NewNop())
	if err != nil {
		t.Fatalf("expected no error, got %v", err)
	}
	if err := repo.Save(ctx, domain.Snapshot{IncludeHistory: true}); err != nil {
		t.Fatalf("save failed: %v", err)
	}
	closeFn()

	// Reabrir el archivo simula un reinicio del proceso.
	repo, closeFn, err = NewSnapshotRepository(ctx, cfg, zap.NewNop())
	if err != nil {
		t.Fatalf("reopen failed: %v", err)
	}
	defer closeFn()
	snap, ok, err := repo.Load(ctx)
	if err != nil || !ok || !snap.IncludeHistory {
		t.Fatalf("expected persisted snapshot, got %+v ok=%v err=%v", snap, ok, err)
	}
}
