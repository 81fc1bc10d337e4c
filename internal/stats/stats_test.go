package stats

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/cuemby/mercury/internal/btree"
	"github.com/cuemby/mercury/pkg/quad"
)

func TestRefreshAggregatesByPredicate(t *testing.T) {
	tr, err := btree.Open(t.TempDir(), "gpos.db", btree.GPOS)
	require.NoError(t, err)
	defer tr.Close()

	require.NoError(t, tr.Insert(btree.Entry{Subject: 1, Predicate: 10, Object: 100, ValidFrom: 0, ValidTo: quad.Forever, TxTime: 1}))
	require.NoError(t, tr.Insert(btree.Entry{Subject: 2, Predicate: 10, Object: 101, ValidFrom: 0, ValidTo: quad.Forever, TxTime: 2}))
	require.NoError(t, tr.Insert(btree.Entry{Subject: 1, Predicate: 20, Object: 100, ValidFrom: 0, ValidTo: quad.Forever, TxTime: 3}))

	s := New(10)
	require.NoError(t, s.Refresh(tr, 100))

	ps, ok := s.Get(10)
	require.True(t, ok)
	assert.EqualValues(t, 2, ps.TripleCount)
	assert.EqualValues(t, 2, ps.DistinctSubjects)
	assert.EqualValues(t, 2, ps.DistinctObjects)

	ps20, ok := s.Get(20)
	require.True(t, ok)
	assert.EqualValues(t, 1, ps20.TripleCount)
}

func TestRefreshExcludesDeletedAndFutureTx(t *testing.T) {
	tr, err := btree.Open(t.TempDir(), "gpos.db", btree.GPOS)
	require.NoError(t, err)
	defer tr.Close()

	require.NoError(t, tr.Insert(btree.Entry{Subject: 1, Predicate: 10, Object: 100, ValidFrom: 0, ValidTo: quad.Forever, TxTime: 1}))
	require.NoError(t, tr.Insert(btree.Entry{Subject: 1, Predicate: 10, Object: 100, ValidFrom: 0, ValidTo: quad.Forever, TxTime: 50, IsDeleted: true}))
	require.NoError(t, tr.Insert(btree.Entry{Subject: 1, Predicate: 10, Object: 100, ValidFrom: 0, ValidTo: quad.Forever, TxTime: 999}))

	s := New(10)
	require.NoError(t, s.Refresh(tr, 100))

	ps, ok := s.Get(10)
	require.True(t, ok)
	assert.EqualValues(t, 1, ps.TripleCount, "only the tx=1 entry is live and within the as-of tx horizon")
}

func TestSnapshotIsImmutableAcrossRefresh(t *testing.T) {
	tr, err := btree.Open(t.TempDir(), "gpos.db", btree.GPOS)
	require.NoError(t, err)
	defer tr.Close()
	require.NoError(t, tr.Insert(btree.Entry{Subject: 1, Predicate: 10, Object: 100, ValidFrom: 0, ValidTo: quad.Forever, TxTime: 1}))

	s := New(10)
	require.NoError(t, s.Refresh(tr, 100))
	first := s.Snapshot()

	require.NoError(t, tr.Insert(btree.Entry{Subject: 2, Predicate: 10, Object: 101, ValidFrom: 0, ValidTo: quad.Forever, TxTime: 2}))
	require.NoError(t, s.Refresh(tr, 100))

	assert.Len(t, first.ByPredicate, 1)
	first10 := first.ByPredicate[10]
	assert.EqualValues(t, 1, first10.TripleCount, "the pinned snapshot must not observe the later insert")
}
