package mercury

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/cuemby/mercury/internal/atom"
	"github.com/cuemby/mercury/pkg/quad"
)

func testOptions() Options {
	return Options{Atom: atom.Options{BucketCount: 1024, OffsetCapacity: 64}, StatsTopN: 10}
}

func TestOpenAndQueryCurrentThroughFacade(t *testing.T) {
	s, err := Open(t.TempDir(), testOptions())
	require.NoError(t, err)
	defer s.Close()

	alice, err := s.Intern([]byte("alice"))
	require.NoError(t, err)
	require.NoError(t, s.AddCurrent(quad.Quad{Subject: alice, Predicate: 1, Object: 2}))

	got, err := s.QueryCurrent(quad.Bound{Subject: alice})
	require.NoError(t, err)
	require.Len(t, got, 1)
}

func TestOpenPoolRentAndReturnThroughFacade(t *testing.T) {
	p, err := OpenPool(PoolOptions{Root: t.TempDir(), MaxSize: 2, Store: testOptions()})
	require.NoError(t, err)
	defer p.Dispose()

	r, err := p.Rent(context.Background())
	require.NoError(t, err)
	assert.NotNil(t, r.Store())
	p.Return(r)
}
