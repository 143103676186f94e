package repository

import (
	"context"
	"encoding/json"
	"fmt"
	"sync"

	"neuratalk/internal/domain"
)

// DefaultStorageKey identifica el estado persistido del cliente.
const DefaultStorageKey = "chat-storage"

// SnapshotRepository es la frontera de persistencia del estado de chats.
// Load devuelve ok=false cuando todavia no hay nada guardado.
type SnapshotRepository interface {
	Load(ctx context.Context) (domain.Snapshot, bool, error)
	Save(ctx context.Context, snap domain.Snapshot) error
}

func encodeSnapshot(snap domain.Snapshot) ([]byte, error) {
	payload, err := json.Marshal(snap)
	if err != nil {
		return nil, fmt.Errorf("marshal snapshot: %w", err)
	}
	return payload, nil
}

func decodeSnapshot(payload []byte) (domain.Snapshot, error) {
	var snap domain.Snapshot
	if err := json.Unmarshal(payload, &snap); err != nil {
		return domain.Snapshot{}, fmt.Errorf("unmarshal snapshot: %w", err)
	}
	return snap, nil
}

// MemorySnapshotRepository guarda el snapshot serializado en memoria.
type MemorySnapshotRepository struct {
	mu      sync.Mutex
	payload []byte
	saves   int
}

func NewMemorySnapshotRepository() *MemorySnapshotRepository {
	return &MemorySnapshotRepository{}
}

func (r *MemorySnapshotRepository) Load(_ context.Context) (domain.Snapshot, bool, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.payload == nil {
		return domain.Snapshot{}, false, nil
	}
	snap, err := decodeSnapshot(r.payload)
	if err != nil {
		return domain.Snapshot{}, false, err
	}
	return snap, true, nil
}

func (r *MemorySnapshotRepository) Save(_ context.Context, snap domain.Snapshot) error {
	payload, err := encodeSnapshot(snap)
	if err != nil {
		return err
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	r.payload = payload
	r.saves++
	return nil
}

// Saves devuelve cuantas veces se guardo.
func (r *MemorySnapshotRepository) Saves() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.saves
}
