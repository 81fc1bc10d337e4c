package store

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/cuemby/mercury/pkg/quad"
)

func TestExportThenImportBatchCopiesLiveQuadsToFreshStore(t *testing.T) {
	src, err := Open(t.TempDir(), testOptions())
	require.NoError(t, err)
	defer src.Close()

	_, err = src.AddCurrentTerms(nil, []byte("<a>"), []byte("<p>"), []byte("1"))
	require.NoError(t, err)
	_, err = src.AddCurrentTerms([]byte("<g>"), []byte("<b>"), []byte("<p>"), []byte("2"))
	require.NoError(t, err)

	// A tombstoned quad must not be present in the export.
	found, _, err := src.DeleteCurrentTerms(nil, []byte("<a>"), []byte("<p>"), []byte("1"))
	require.NoError(t, err)
	require.True(t, found)
	_, err = src.AddCurrentTerms(nil, []byte("<a>"), []byte("<p>"), []byte("1"))
	require.NoError(t, err)

	enum, err := src.Export(time.Now())
	require.NoError(t, err)

	dst, err := Open(t.TempDir(), testOptions())
	require.NoError(t, err)
	defer dst.Close()

	n, err := dst.ImportBatch(enum, 0)
	require.NoError(t, err)
	assert.Equal(t, 2, n)

	a, err := dst.Intern([]byte("<a>"))
	require.NoError(t, err)
	got, err := dst.QueryCurrent(quad.Bound{Subject: a})
	require.NoError(t, err)
	require.Len(t, got, 1)

	g, err := dst.Intern([]byte("<g>"))
	require.NoError(t, err)
	graphs, err := dst.NamedGraphs()
	require.NoError(t, err)
	require.Len(t, graphs, 1)
	assert.EqualValues(t, g, graphs[0])
}

func TestExportExcludesQuadsOutsideValidInterval(t *testing.T) {
	s, err := Open(t.TempDir(), testOptions())
	require.NoError(t, err)
	defer s.Close()

	_, err = s.AddTerms(nil, []byte("<a>"), []byte("<p>"), []byte("1"), 0, 100)
	require.NoError(t, err)

	enum, err := s.Export(time.UnixMilli(200))
	require.NoError(t, err)

	_, ok := enum.Next()
	assert.False(t, ok)
	assert.NoError(t, enum.Err())
}
