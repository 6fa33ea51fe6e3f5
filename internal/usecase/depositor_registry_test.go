package usecase

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/NouvelleRive/nouvelle-rive-sub001/internal/domain"
	"github.com/NouvelleRive/nouvelle-rive-sub001/pkg/logger"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeDepositorRepo struct {
	deps  []domain.Depositor
	err   error
	calls int
}

func (f *fakeDepositorRepo) List(context.Context) ([]domain.Depositor, error) {
	f.calls++
	return f.deps, f.err
}

type fakeDepositorCache struct {
	deps []domain.Depositor
	ok   bool
}

func (f *fakeDepositorCache) GetDepositors(context.Context) ([]domain.Depositor, bool, error) {
	return f.deps, f.ok, nil
}

func (f *fakeDepositorCache) SetDepositors(_ context.Context, deps []domain.Depositor) error {
	f.deps, f.ok = deps, true
	return nil
}

func TestDepositorRegistry_CachesAndRefreshes(t *testing.T) {
	repo := &fakeDepositorRepo{deps: []domain.Depositor{{Trigramme: "SMB", Policy: domain.PolicySmallBatch}}}
	cache := &fakeDepositorCache{}
	reg := NewDepositorRegistry(repo, cache, time.Minute, logger.NewNop())

	clock := testNow
	reg.now = func() time.Time { return clock }

	snap, err := reg.Snapshot(context.Background())
	require.NoError(t, err)
	assert.Equal(t, domain.PolicySmallBatch, snap.PolicyFor("SMB1"))
	assert.Equal(t, 1, repo.calls)
	assert.True(t, cache.ok)

	_, err = reg.Snapshot(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 1, repo.calls)

	// после TTL снимок берётся из redis, а не из базы
	clock = clock.Add(2 * time.Minute)
	_, err = reg.Snapshot(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 1, repo.calls)
}

func TestDepositorRegistry_ServesStaleOnFailure(t *testing.T) {
	repo := &fakeDepositorRepo{deps: []domain.Depositor{{Trigramme: "ABC"}}}
	reg := NewDepositorRegistry(repo, nil, time.Minute, logger.NewNop())
	clock := testNow
	reg.now = func() time.Time { return clock }

	first, err := reg.Snapshot(context.Background())
	require.NoError(t, err)

	repo.err = errors.New("pg down")
	clock = clock.Add(2 * time.Minute)
	stale, err := reg.Snapshot(context.Background())
	require.NoError(t, err)
	assert.Same(t, first, stale)

	reg2 := NewDepositorRegistry(repo, nil, time.Minute, logger.NewNop())
	_, err = reg2.Snapshot(context.Background())
	assert.Error(t, err)
}

func TestSnapshotFromContextWins(t *testing.T) {
	snap := domain.NewDepositorSnapshot([]domain.Depositor{{Trigramme: "CTX", Policy: domain.PolicySmallBatch}}, testNow)
	ctx := ContextWithSnapshot(context.Background(), snap)

	got, err := snapshotFor(ctx, testSnapshots())
	require.NoError(t, err)
	assert.Same(t, snap, got)
}
