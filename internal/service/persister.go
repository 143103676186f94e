package service

import (
	"context"
	"sync"
	"time"

	"go.uber.org/zap"

	"neuratalk/internal/domain"
	"neuratalk/internal/repository"
)

// Persister guarda snapshots en segundo plano. Notificaciones seguidas se
// coalescen: solo se escribe el ultimo estado pendiente.
type Persister struct {
	repo    repository.SnapshotRepository
	logger  *zap.Logger
	timeout time.Duration

	mu      sync.Mutex
	pending *domain.Snapshot
	wake    chan struct{}
	saveMu  sync.Mutex
}

func NewPersister(repo repository.SnapshotRepository, logger *zap.Logger) *Persister {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Persister{
		repo:    repo,
		logger:  logger,
		timeout: 2 * time.Second,
		wake:    make(chan struct{}, 1),
	}
}

// Restore carga el estado persistido en el store. Un fallo de lectura se
// registra y deja el estado vacio.
func (p *Persister) Restore(ctx context.Context, store *SessionStore) bool {
	ctx, cancel := context.WithTimeout(ctx, p.timeout)
	defer cancel()
	snap, ok, err := p.repo.Load(ctx)
	if err != nil {
		p.logger.Warn("load snapshot failed, starting empty", zap.Error(err))
		return false
	}
	if !ok {
		return false
	}
	store.Restore(snap)
	p.logger.Info("snapshot restored", zap.Int("chats", len(snap.Chats)))
	return true
}

// Notify encola el snapshot sin bloquear. Se usa como suscriptor del store.
func (p *Persister) Notify(snap domain.Snapshot) {
	p.mu.Lock()
	p.pending = &snap
	p.mu.Unlock()
	select {
	case p.wake <- struct{}{}:
	default:
	}
}

// Run procesa snapshots pendientes hasta que ctx se cancela; al salir hace Flush.
func (p *Persister) Run(ctx context.Context) {
	for {
		select {
		case <-ctx.Done():
			p.Flush(context.Background())
			return
		case <-p.wake:
			p.Flush(ctx)
		}
	}
}

// Flush escribe el snapshot pendiente, si existe.
func (p *Persister) Flush(ctx context.Context) {
	p.saveMu.Lock()
	defer p.saveMu.Unlock()

	p.mu.Lock()
	snap := p.pending
	p.pending = nil
	p.mu.Unlock()
	if snap == nil {
		return
	}

	ctx, cancel := context.WithTimeout(ctx, p.timeout)
	defer cancel()
	if err := p.repo.Save(ctx, *snap); err != nil {
		p.logger.Warn("save snapshot failed", zap.Error(err))
	}
}
