package pool

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/cuemby/mercury/internal/atom"
	"github.com/cuemby/mercury/internal/store"
	"github.com/cuemby/mercury/pkg/quad"
)

func testStoreOptions() store.Options {
	return store.Options{Atom: atom.Options{BucketCount: 1024, OffsetCapacity: 64}, StatsTopN: 10}
}

func TestRentBlocksUntilSlotAvailable(t *testing.T) {
	p, err := Open(Options{Root: t.TempDir(), MaxSize: 1, Store: testStoreOptions()})
	require.NoError(t, err)
	defer p.Dispose()

	ctx := context.Background()
	r1, err := p.Rent(ctx)
	require.NoError(t, err)

	done := make(chan struct{})
	go func() {
		r2, err := p.Rent(ctx)
		require.NoError(t, err)
		p.Return(r2)
		close(done)
	}()

	select {
	case <-done:
		t.Fatal("second Rent returned before first Return")
	case <-time.After(50 * time.Millisecond):
	}

	p.Return(r1)
	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("second Rent never completed after Return")
	}
}

func TestRentReturnsAClearedStore(t *testing.T) {
	p, err := Open(Options{Root: t.TempDir(), MaxSize: 1, Store: testStoreOptions()})
	require.NoError(t, err)
	defer p.Dispose()

	ctx := context.Background()
	r, err := p.Rent(ctx)
	require.NoError(t, err)
	require.NoError(t, r.Store().AddCurrent(quad.Quad{Subject: 1, Predicate: 2, Object: 3}))
	p.Return(r)

	r2, err := p.Rent(ctx)
	require.NoError(t, err)
	got, err := r2.Store().QueryCurrent(quad.Bound{Subject: 1})
	require.NoError(t, err)
	assert.Empty(t, got)
	p.Return(r2)
}

func TestScopedRentAlwaysReturnsTheSlot(t *testing.T) {
	p, err := Open(Options{Root: t.TempDir(), MaxSize: 1, Store: testStoreOptions()})
	require.NoError(t, err)
	defer p.Dispose()

	err = p.ScopedRent(context.Background(), func(s *store.Store) error {
		return s.AddCurrent(quad.Quad{Subject: 9, Predicate: 9, Object: 9})
	})
	require.NoError(t, err)

	select {
	case <-p.avail:
	default:
		t.Fatal("slot was not returned to the available channel")
	}
}

func TestRentContextCancelledReturnsCancelled(t *testing.T) {
	p, err := Open(Options{Root: t.TempDir(), MaxSize: 1, Store: testStoreOptions()})
	require.NoError(t, err)
	defer p.Dispose()

	ctx := context.Background()
	_, err = p.Rent(ctx) // take the only slot
	require.NoError(t, err)

	cancelCtx, cancel := context.WithTimeout(context.Background(), 20*time.Millisecond)
	defer cancel()
	_, err = p.Rent(cancelCtx)
	assert.Error(t, err)
}

func TestDisposeClosesEveryStore(t *testing.T) {
	p, err := Open(Options{Root: t.TempDir(), MaxSize: 2, Store: testStoreOptions()})
	require.NoError(t, err)

	require.NoError(t, p.Dispose())
	require.NoError(t, p.Dispose()) // idempotent

	_, err = p.Rent(context.Background())
	assert.Error(t, err)
}

func TestGatedPoolSerializesAcrossProcessesViaLockFiles(t *testing.T) {
	root := t.TempDir()
	p, err := Open(Options{Root: root, MaxSize: 2, Store: testStoreOptions(), Gate: true, GateTimeout: 200 * time.Millisecond})
	require.NoError(t, err)
	defer p.Dispose()

	ctx := context.Background()
	r1, err := p.Rent(ctx)
	require.NoError(t, err)
	r2, err := p.Rent(ctx)
	require.NoError(t, err)

	shortCtx, cancel := context.WithTimeout(ctx, 250*time.Millisecond)
	defer cancel()
	_, err = p.Rent(shortCtx)
	assert.Error(t, err, "third rent should fail: only two gate lock files, both held")

	p.Return(r1)
	p.Return(r2)
}

func TestCapacityForRespectsMaxSizeOverride(t *testing.T) {
	p, err := Open(Options{Root: t.TempDir(), MaxSize: 3, Store: testStoreOptions()})
	require.NoError(t, err)
	defer p.Dispose()
	assert.Equal(t, 3, p.Len())
}
