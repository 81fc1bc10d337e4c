package store

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/cuemby/mercury/internal/atom"
	"github.com/cuemby/mercury/pkg/quad"
)

func testOptions() Options {
	return Options{Atom: atom.Options{BucketCount: 1024, OffsetCapacity: 64}, StatsTopN: 10}
}

func TestAddAndQueryCurrent(t *testing.T) {
	s, err := Open(t.TempDir(), testOptions())
	require.NoError(t, err)
	defer s.Close()

	alice, err := s.Intern([]byte("alice"))
	require.NoError(t, err)
	knows, err := s.Intern([]byte("knows"))
	require.NoError(t, err)
	bob, err := s.Intern([]byte("bob"))
	require.NoError(t, err)

	q := quad.Quad{Subject: alice, Predicate: knows, Object: bob}
	require.NoError(t, s.AddCurrent(q))

	got, err := s.QueryCurrent(quad.Bound{Subject: alice})
	require.NoError(t, err)
	require.Len(t, got, 1)
	assert.Equal(t, q, got[0])
}

func TestDeleteThenQueryCurrentFindsNothing(t *testing.T) {
	s, err := Open(t.TempDir(), testOptions())
	require.NoError(t, err)
	defer s.Close()

	q := quad.Quad{Subject: 1, Predicate: 2, Object: 3}
	require.NoError(t, s.AddCurrent(q))

	n, err := s.DeleteCurrent(q)
	require.NoError(t, err)
	assert.Equal(t, 1, n)

	got, err := s.QueryCurrent(quad.Bound{Subject: 1})
	require.NoError(t, err)
	assert.Empty(t, got)

	hist, err := s.QueryHistory(quad.Bound{Subject: 1})
	require.NoError(t, err)
	require.Len(t, hist, 1)
	assert.True(t, hist[0].IsDeleted)
}

func TestBatchRollbackAppliesNothing(t *testing.T) {
	s, err := Open(t.TempDir(), testOptions())
	require.NoError(t, err)
	defer s.Close()

	b := s.BeginBatch()
	require.NoError(t, s.AddBatch(b, quad.Quad{Subject: 1, Predicate: 2, Object: 3}, 0, quad.Forever))
	s.RollbackBatch(b)

	got, err := s.QueryCurrent(quad.Bound{Subject: 1})
	require.NoError(t, err)
	assert.Empty(t, got)
}

func TestBatchCommitAppliesAllStagedOps(t *testing.T) {
	s, err := Open(t.TempDir(), testOptions())
	require.NoError(t, err)
	defer s.Close()

	b := s.BeginBatch()
	for i := uint64(0); i < 5; i++ {
		require.NoError(t, s.AddBatch(b, quad.Quad{Subject: quad.Atom(i), Predicate: 1, Object: 2}, 0, quad.Forever))
	}
	require.NoError(t, s.CommitBatch(b))

	got, err := s.QueryCurrent(quad.Bound{Predicate: 1})
	require.NoError(t, err)
	assert.Len(t, got, 5)
}

func TestRecoveryReplaysUncheckpointedWritesAfterReopen(t *testing.T) {
	dir := t.TempDir()
	s1, err := Open(dir, testOptions())
	require.NoError(t, err)
	require.NoError(t, s1.AddCurrent(quad.Quad{Subject: 1, Predicate: 2, Object: 3}))
	require.NoError(t, s1.Close())

	s2, err := Open(dir, testOptions())
	require.NoError(t, err)
	defer s2.Close()

	got, err := s2.QueryCurrent(quad.Bound{Subject: 1})
	require.NoError(t, err)
	require.Len(t, got, 1)
}

func TestCheckpointThenClearResetsEverything(t *testing.T) {
	s, err := Open(t.TempDir(), testOptions())
	require.NoError(t, err)
	defer s.Close()

	require.NoError(t, s.AddCurrent(quad.Quad{Subject: 1, Predicate: 2, Object: 3}))
	require.NoError(t, s.Checkpoint())
	require.NoError(t, s.Clear())

	got, err := s.QueryCurrent(quad.Bound{Subject: 1})
	require.NoError(t, err)
	assert.Empty(t, got)
}

func TestNamedGraphsExcludesDefaultGraph(t *testing.T) {
	s, err := Open(t.TempDir(), testOptions())
	require.NoError(t, err)
	defer s.Close()

	require.NoError(t, s.AddCurrent(quad.Quad{Subject: 1, Predicate: 2, Object: 3}))
	require.NoError(t, s.AddCurrent(quad.Quad{Graph: 99, Subject: 1, Predicate: 2, Object: 3}))

	graphs, err := s.NamedGraphs()
	require.NoError(t, err)
	require.Len(t, graphs, 1)
	assert.EqualValues(t, 99, graphs[0])
}

func TestSearchTextFindsInternedSubstringMatches(t *testing.T) {
	s, err := Open(t.TempDir(), testOptions())
	require.NoError(t, err)
	defer s.Close()

	alice, err := s.Intern([]byte("Alice Anderson"))
	require.NoError(t, err)
	_, err = s.Intern([]byte("Bob Baker"))
	require.NoError(t, err)

	got, err := s.SearchText("alice")
	require.NoError(t, err)
	require.Len(t, got, 1)
	assert.Equal(t, alice, got[0])
}

func TestAddTermsInternsAndQueryAsOfFindsIt(t *testing.T) {
	s, err := Open(t.TempDir(), testOptions())
	require.NoError(t, err)
	defer s.Close()

	// spec.md §8 scenario 2: add("", "<a>", "<p>", "1", t=1000, ∞);
	// query_as_of("", "<a>", "<p>", "?", at=1500) yields exactly that quad.
	q, err := s.AddTerms(nil, []byte("<a>"), []byte("<p>"), []byte("1"), 1000, quad.Forever)
	require.NoError(t, err)
	assert.True(t, q.Graph.DefaultGraph())

	got, err := s.QueryAsOf(quad.Bound{Subject: q.Subject}, 1500)
	require.NoError(t, err)
	require.Len(t, got, 1)
	assert.Equal(t, q, got[0])

	// The terms were interned, so a later identical AddTerms resolves to
	// the same atoms rather than minting new ones.
	again, err := s.AddTerms(nil, []byte("<a>"), []byte("<p>"), []byte("1"), 2000, quad.Forever)
	require.NoError(t, err)
	assert.Equal(t, q.Subject, again.Subject)
}

func TestDeleteTermsLooksUpWithoutInterning(t *testing.T) {
	s, err := Open(t.TempDir(), testOptions())
	require.NoError(t, err)
	defer s.Close()

	// spec.md §8 scenario 3: delete_current("", "<a>", "<p>", "1") at
	// t=2000 removes the quad from query_current but leaves it, tombstoned,
	// in query_evolution (QueryHistory).
	q, err := s.AddTerms(nil, []byte("<a>"), []byte("<p>"), []byte("1"), 0, quad.Forever)
	require.NoError(t, err)

	found, n, err := s.DeleteTerms([]byte{}, []byte("<a>"), []byte("<p>"), []byte("1"), 2000)
	require.NoError(t, err)
	assert.True(t, found)
	assert.Equal(t, 1, n)

	current, err := s.QueryCurrent(quad.Bound{Subject: q.Subject})
	require.NoError(t, err)
	assert.Empty(t, current)

	hist, err := s.QueryHistory(quad.Bound{Subject: q.Subject})
	require.NoError(t, err)
	require.Len(t, hist, 1)
	assert.True(t, hist[0].IsDeleted)
}

func TestDeleteTermsOfNeverInternedGraphReturnsNotFound(t *testing.T) {
	s, err := Open(t.TempDir(), testOptions())
	require.NoError(t, err)
	defer s.Close()

	// Resolved open question (see DESIGN.md): deleting a term that was
	// never interned returns found=false, no error, no WAL record.
	found, n, err := s.DeleteTerms([]byte("never-seen-graph"), []byte("<a>"), []byte("<p>"), []byte("1"), 0)
	require.NoError(t, err)
	assert.False(t, found)
	assert.Equal(t, 0, n)
}

func TestDisposedStoreRejectsFurtherOps(t *testing.T) {
	s, err := Open(t.TempDir(), testOptions())
	require.NoError(t, err)
	require.NoError(t, s.Dispose())

	_, err = s.Intern([]byte("x"))
	assert.Error(t, err)
}
