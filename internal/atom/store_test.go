package atom

import (
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func testOptions() Options {
	return Options{
		MaxAtomSize:    1 << 10,
		BucketCount:    1024,
		OffsetCapacity: 64,
	}
}

func openTestStore(t *testing.T) *Store {
	t.Helper()
	dir := t.TempDir()
	s, err := Open(dir, testOptions())
	require.NoError(t, err)
	t.Cleanup(func() { _ = s.Close() })
	return s
}

func TestInternIdempotence(t *testing.T) {
	s := openTestStore(t)

	id1, err := s.Intern([]byte("<http://ex/s>"))
	require.NoError(t, err)
	assert.NotZero(t, id1)

	id2, err := s.Intern([]byte("<http://ex/s>"))
	require.NoError(t, err)
	assert.Equal(t, id1, id2)

	got, err := s.Get(id1)
	require.NoError(t, err)
	assert.Equal(t, "<http://ex/s>", string(got))
}

func TestInternRoundTrip(t *testing.T) {
	s := openTestStore(t)

	values := []string{"", "a", "<http://example.org/predicate>", "a longer literal value with spaces"}
	ids := make([]uint64, len(values))
	for i, v := range values {
		id, err := s.Intern([]byte(v))
		require.NoError(t, err)
		ids[i] = id
	}
	for i, v := range values {
		got, err := s.Get(ids[i])
		require.NoError(t, err)
		assert.Equal(t, v, string(got))
	}
}

func TestAtomZeroReserved(t *testing.T) {
	s := openTestStore(t)

	id, err := s.Intern([]byte("x"))
	require.NoError(t, err)
	assert.NotZero(t, id)

	absent, err := s.GetID([]byte("definitely-absent"))
	require.NoError(t, err)
	assert.Zero(t, absent)
}

func TestGetIDProbeOnlyNeverInserts(t *testing.T) {
	s := openTestStore(t)

	id, err := s.GetID([]byte("never interned"))
	require.NoError(t, err)
	assert.Zero(t, id)

	stats := s.Stats()
	assert.Zero(t, stats.AtomCount)
}

func TestAtomTooLarge(t *testing.T) {
	s := openTestStore(t)

	big := make([]byte, 2048)
	_, err := s.Intern(big)
	require.Error(t, err)
}

func TestStatsTrackCountAndBytes(t *testing.T) {
	s := openTestStore(t)

	_, err := s.Intern([]byte("abc"))
	require.NoError(t, err)
	_, err = s.Intern([]byte("de"))
	require.NoError(t, err)

	st := s.Stats()
	assert.Equal(t, uint64(2), st.AtomCount)
	assert.Equal(t, uint64(5), st.TotalBytes)
	assert.InDelta(t, 2.5, st.AvgLength, 0.001)
}

func TestClearResetsButKeepsFileLengths(t *testing.T) {
	s := openTestStore(t)

	for i := 0; i < 50; i++ {
		_, err := s.Intern([]byte(fmt.Sprintf("term-%d", i)))
		require.NoError(t, err)
	}

	dataSizeBefore := s.data.Size()
	idxSizeBefore := s.idx.Size()
	offSizeBefore := s.off.Size()

	require.NoError(t, s.Clear())

	assert.Equal(t, dataSizeBefore, s.data.Size())
	assert.Equal(t, idxSizeBefore, s.idx.Size())
	assert.Equal(t, offSizeBefore, s.off.Size())

	st := s.Stats()
	assert.Zero(t, st.AtomCount)

	id, err := s.Intern([]byte("term-0"))
	require.NoError(t, err)
	assert.Equal(t, uint64(1), id)
}

func TestGrowthAcrossManyAtoms(t *testing.T) {
	s := openTestStore(t)

	const n = 500
	ids := make(map[string]uint64, n)
	for i := 0; i < n; i++ {
		v := fmt.Sprintf("<http://example.org/term/%d>", i)
		id, err := s.Intern([]byte(v))
		require.NoError(t, err)
		ids[v] = id
	}
	for v, id := range ids {
		got, err := s.Get(id)
		require.NoError(t, err)
		assert.Equal(t, v, string(got))
	}
}

func TestReopenPersistsAtoms(t *testing.T) {
	dir := t.TempDir()
	opts := testOptions()

	s1, err := Open(dir, opts)
	require.NoError(t, err)
	id, err := s1.Intern([]byte("persisted"))
	require.NoError(t, err)
	require.NoError(t, s1.Close())

	s2, err := Open(dir, opts)
	require.NoError(t, err)
	t.Cleanup(func() { _ = s2.Close() })

	got, err := s2.Get(id)
	require.NoError(t, err)
	assert.Equal(t, "persisted", string(got))

	// Interning the same value again after reopen must return the same id.
	id2, err := s2.Intern([]byte("persisted"))
	require.NoError(t, err)
	assert.Equal(t, id, id2)
}
