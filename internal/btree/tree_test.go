package btree

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/cuemby/mercury/pkg/quad"
)

func must(t *testing.T, order ColumnOrder) *Tree {
	t.Helper()
	tree, err := Open(t.TempDir(), "index.db", order)
	require.NoError(t, err)
	t.Cleanup(func() { _ = tree.Close() })
	return tree
}

func TestInsertAndQueryAsOf(t *testing.T) {
	tr := must(t, GSPO)
	require.NoError(t, tr.Insert(Entry{Subject: 1, Predicate: 2, Object: 3, ValidFrom: 100, ValidTo: quad.Forever, TxTime: 1, CreatedAt: 100}))

	got, err := tr.QueryAsOf(quad.Bound{Subject: 1}, 150)
	require.NoError(t, err)
	require.Len(t, got, 1)
	assert.EqualValues(t, 2, got[0].Predicate)
	assert.EqualValues(t, 3, got[0].Object)

	_, err = tr.QueryAsOf(quad.Bound{Subject: 1}, 50)
	require.NoError(t, err)
}

func TestQueryAsOfBeforeValidFromFindsNothing(t *testing.T) {
	tr := must(t, GSPO)
	require.NoError(t, tr.Insert(Entry{Subject: 1, Predicate: 2, Object: 3, ValidFrom: 100, ValidTo: quad.Forever, TxTime: 1}))

	got, err := tr.QueryAsOf(quad.Bound{Subject: 1}, 50)
	require.NoError(t, err)
	assert.Empty(t, got)
}

func TestTemporalOverwriteTruncatesPreviousInterval(t *testing.T) {
	tr := must(t, GSPO)
	require.NoError(t, tr.Insert(Entry{Subject: 1, Predicate: 2, Object: 3, ValidFrom: 100, ValidTo: quad.Forever, TxTime: 1}))
	require.NoError(t, tr.Insert(Entry{Subject: 1, Predicate: 2, Object: 3, ValidFrom: 200, ValidTo: quad.Forever, TxTime: 2}))

	hist, err := tr.QueryHistory(quad.Bound{Subject: 1})
	require.NoError(t, err)
	require.Len(t, hist, 2)
	assert.EqualValues(t, 200, hist[0].ValidTo, "first version truncated at the second's valid_from")
	assert.EqualValues(t, quad.Forever, hist[1].ValidTo)

	// as-of before the overwrite still sees the first version.
	got, err := tr.QueryAsOf(quad.Bound{Subject: 1}, 150)
	require.NoError(t, err)
	require.Len(t, got, 1)
	assert.EqualValues(t, 1, got[0].TxTime)

	// as-of after sees only the second.
	got, err = tr.QueryAsOf(quad.Bound{Subject: 1}, 250)
	require.NoError(t, err)
	require.Len(t, got, 1)
	assert.EqualValues(t, 2, got[0].TxTime)
}

func TestDeleteIsTombstoneNotRemoval(t *testing.T) {
	tr := must(t, GSPO)
	q := quad.Quad{Subject: 1, Predicate: 2, Object: 3}
	require.NoError(t, tr.Insert(Entry{Subject: 1, Predicate: 2, Object: 3, ValidFrom: 100, ValidTo: quad.Forever, TxTime: 1}))

	n, err := tr.Delete(q, 200, 200, 2)
	require.NoError(t, err)
	assert.Equal(t, 1, n)

	cur, err := tr.QueryAsOf(quad.Bound{Subject: 1}, 250)
	require.NoError(t, err)
	assert.Empty(t, cur, "deleted entry must not be live as-of after the delete")

	hist, err := tr.QueryHistory(quad.Bound{Subject: 1})
	require.NoError(t, err)
	require.Len(t, hist, 1, "tombstoned entry stays in history")
	assert.True(t, hist[0].IsDeleted)
}

func TestQueryRangeOverlap(t *testing.T) {
	tr := must(t, GSPO)
	require.NoError(t, tr.Insert(Entry{Subject: 1, Predicate: 2, Object: 3, ValidFrom: 100, ValidTo: 200, TxTime: 1}))
	require.NoError(t, tr.Insert(Entry{Subject: 1, Predicate: 2, Object: 4, ValidFrom: 300, ValidTo: 400, TxTime: 2}))

	got, err := tr.QueryRange(quad.Bound{Subject: 1}, 150, 350)
	require.NoError(t, err)
	assert.Len(t, got, 2)

	got, err = tr.QueryRange(quad.Bound{Subject: 1}, 500, 600)
	require.NoError(t, err)
	assert.Empty(t, got)
}

func TestInsertForcesSplitAcrossManyEntries(t *testing.T) {
	tr := must(t, GSPO)
	const n = 500
	for i := 0; i < n; i++ {
		require.NoError(t, tr.Insert(Entry{Subject: uint64(i), Predicate: 2, Object: 3, ValidFrom: 0, ValidTo: quad.Forever, TxTime: int64(i)}))
	}

	for i := 0; i < n; i++ {
		got, err := tr.QueryAsOf(quad.Bound{Subject: quad.Atom(i)}, 0)
		require.NoError(t, err)
		require.Lenf(t, got, 1, "subject %d", i)
	}
}

func TestScanRespectsColumnOrderPrefix(t *testing.T) {
	tr := must(t, GPOS)
	require.NoError(t, tr.Insert(Entry{Predicate: 1, Object: 1, Subject: 10, ValidFrom: 0, ValidTo: quad.Forever}))
	require.NoError(t, tr.Insert(Entry{Predicate: 1, Object: 1, Subject: 11, ValidFrom: 0, ValidTo: quad.Forever}))
	require.NoError(t, tr.Insert(Entry{Predicate: 2, Object: 1, Subject: 12, ValidFrom: 0, ValidTo: quad.Forever}))

	got, err := tr.QueryHistory(quad.Bound{Predicate: 1, Object: 1})
	require.NoError(t, err)
	assert.Len(t, got, 2)
}

func TestClearResetsTree(t *testing.T) {
	tr := must(t, GSPO)
	require.NoError(t, tr.Insert(Entry{Subject: 1, Predicate: 2, Object: 3, ValidFrom: 0, ValidTo: quad.Forever}))
	require.NoError(t, tr.Clear())

	got, err := tr.QueryHistory(quad.Bound{Subject: 1})
	require.NoError(t, err)
	assert.Empty(t, got)
	assert.Equal(t, uint64(0), tr.TripleCount())
}

func TestCursorPinsSnapshot(t *testing.T) {
	tr := must(t, GSPO)
	require.NoError(t, tr.Insert(Entry{Subject: 1, Predicate: 2, Object: 3, ValidFrom: 0, ValidTo: quad.Forever}))
	require.NoError(t, tr.Insert(Entry{Subject: 1, Predicate: 2, Object: 4, ValidFrom: 0, ValidTo: quad.Forever}))

	cur, err := tr.HistoryCursor(quad.Bound{Subject: 1})
	require.NoError(t, err)
	assert.Equal(t, 2, cur.Len())

	n := 0
	for cur.Next() {
		_ = cur.Entry()
		n++
	}
	assert.Equal(t, 2, n)
	assert.False(t, cur.Next())
}
