package usecase

import (
	"context"
	"sync"
	"time"

	"github.com/NouvelleRive/nouvelle-rive-sub001/internal/domain"
	"github.com/NouvelleRive/nouvelle-rive-sub001/pkg/e"
	"github.com/NouvelleRive/nouvelle-rive-sub001/pkg/logger"
)

type snapshotKey struct{}

// ContextWithSnapshot кладёт снимок реестра депонентов в контекст запроса.
func ContextWithSnapshot(ctx context.Context, snap *domain.DepositorSnapshot) context.Context {
	if snap == nil {
		return ctx
	}
	return context.WithValue(ctx, snapshotKey{}, snap)
}

// SnapshotFromContext достаёт снимок, положенный middleware.
func SnapshotFromContext(ctx context.Context) (*domain.DepositorSnapshot, bool) {
	snap, ok := ctx.Value(snapshotKey{}).(*domain.DepositorSnapshot)
	return snap, ok && snap != nil
}

// SnapshotProvider отдаёт актуальный снимок реестра депонентов.
type SnapshotProvider interface {
	Snapshot(ctx context.Context) (*domain.DepositorSnapshot, error)
}

// DepositorRegistry держит в памяти снимок реестра и обновляет его по TTL:
// сначала из Redis, затем из PostgreSQL.
type DepositorRegistry struct {
	repo   DepositorRepository
	cache  DepositorCacheRepository
	ttl    time.Duration
	logger logger.Logger
	now    func() time.Time

	mu      sync.RWMutex
	snap    *domain.DepositorSnapshot
	expires time.Time
}

func NewDepositorRegistry(repo DepositorRepository, cache DepositorCacheRepository, ttl time.Duration, logger logger.Logger) *DepositorRegistry {
	return &DepositorRegistry{
		repo:   repo,
		cache:  cache,
		ttl:    ttl,
		logger: logger,
		now:    time.Now,
	}
}

// Snapshot возвращает снимок. При ошибке обновления отдаёт устаревший снимок, если он есть.
func (r *DepositorRegistry) Snapshot(ctx context.Context) (*domain.DepositorSnapshot, error) {
	const op = "DepositorRegistry.Snapshot"

	r.mu.RLock()
	snap, expires := r.snap, r.expires
	r.mu.RUnlock()

	if snap != nil && r.now().Before(expires) {
		return snap, nil
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	// другой запрос мог уже обновить снимок
	if r.snap != nil && r.now().Before(r.expires) {
		return r.snap, nil
	}

	deps, err := r.load(ctx)
	if err != nil {
		if r.snap != nil {
			r.logger.Warnf("depositor registry refresh failed, serving stale snapshot: %v", e.Wrap(op, err))
			r.expires = r.now().Add(r.ttl / 4)
			return r.snap, nil
		}
		return nil, e.Wrap(op, err)
	}

	r.snap = domain.NewDepositorSnapshot(deps, r.now())
	r.expires = r.now().Add(r.ttl)
	return r.snap, nil
}

// Invalidate сбрасывает снимок в памяти, следующий вызов перечитает реестр.
func (r *DepositorRegistry) Invalidate() {
	r.mu.Lock()
	r.expires = time.Time{}
	r.mu.Unlock()
}

func (r *DepositorRegistry) load(ctx context.Context) ([]domain.Depositor, error) {
	const op = "DepositorRegistry.load"

	if r.cache != nil {
		deps, ok, err := r.cache.GetDepositors(ctx)
		if err != nil {
			r.logger.Warnf("depositor cache read failed: %v", e.Wrap(op, err))
		} else if ok {
			return deps, nil
		}
	}

	deps, err := r.repo.List(ctx)
	if err != nil {
		return nil, e.Wrap(op, err)
	}

	if r.cache != nil {
		if err := r.cache.SetDepositors(ctx, deps); err != nil {
			r.logger.Warnf("depositor cache write failed: %v", e.Wrap(op, err))
		}
	}

	return deps, nil
}

// snapshotFor берёт снимок из контекста запроса, иначе из провайдера.
func snapshotFor(ctx context.Context, provider SnapshotProvider) (*domain.DepositorSnapshot, error) {
	if snap, ok := SnapshotFromContext(ctx); ok {
		return snap, nil
	}
	if provider == nil {
		return domain.NewDepositorSnapshot(nil, time.Time{}), nil
	}
	return provider.Snapshot(ctx)
}
