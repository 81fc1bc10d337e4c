package wal

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestAppendAssignsIncreasingTxIDs(t *testing.T) {
	l, err := Open(t.TempDir())
	require.NoError(t, err)
	defer l.Close()

	id1, err := l.Append(OpAdd, 0, 1, 2, 3, 1000, 2000)
	require.NoError(t, err)
	id2, err := l.Append(OpAdd, 0, 1, 2, 4, 1000, 2000)
	require.NoError(t, err)

	assert.Equal(t, uint64(1), id1)
	assert.Equal(t, uint64(2), id2)
}

func TestReplayUncommittedAfterReopenWithoutCheckpoint(t *testing.T) {
	dir := t.TempDir()

	l1, err := Open(dir)
	require.NoError(t, err)
	for i := 0; i < 5; i++ {
		_, err := l1.Append(OpAdd, 0, uint64(i), 2, 3, 1000, foreverTS())
		require.NoError(t, err)
	}
	require.NoError(t, l1.Close())

	l2, err := Open(dir)
	require.NoError(t, err)
	defer l2.Close()

	records := l2.ReplayUncommitted()
	assert.Len(t, records, 5)
	for i, r := range records {
		assert.Equal(t, uint64(i), r.Subject)
	}
}

func TestCheckpointTruncatesLog(t *testing.T) {
	dir := t.TempDir()

	l, err := Open(dir)
	require.NoError(t, err)
	for i := 0; i < 10; i++ {
		_, err := l.Append(OpAdd, 0, uint64(i), 2, 3, 1000, foreverTS())
		require.NoError(t, err)
	}
	require.NoError(t, l.Checkpoint())
	assert.Empty(t, l.ReplayUncommitted())
	require.NoError(t, l.Close())

	l2, err := Open(dir)
	require.NoError(t, err)
	defer l2.Close()
	assert.Empty(t, l2.ReplayUncommitted())
	assert.Equal(t, l.LastCheckpointTxID(), l2.LastCheckpointTxID())
}

func TestBatchOnlyDurableAfterCommit(t *testing.T) {
	dir := t.TempDir()

	l, err := Open(dir)
	require.NoError(t, err)

	batchID := l.BeginBatch()
	for i := 0; i < 3; i++ {
		require.NoError(t, l.AppendBatch(OpAdd, 0, uint64(i), 2, 3, 1000, foreverTS(), batchID))
	}
	require.NoError(t, l.CommitBatch(batchID))
	require.NoError(t, l.Close())

	reopened, err := Open(dir)
	require.NoError(t, err)
	defer reopened.Close()
	assert.Len(t, reopened.ReplayUncommitted(), 3)
}

func TestRollbackBatchDropsRecordsFromReplay(t *testing.T) {
	l, err := Open(t.TempDir())
	require.NoError(t, err)
	defer l.Close()

	batchID := l.BeginBatch()
	require.NoError(t, l.AppendBatch(OpAdd, 0, 1, 2, 3, 1000, foreverTS(), batchID))
	l.RollbackBatch(batchID)

	assert.Empty(t, l.ReplayUncommitted())
}

func TestShouldCheckpointOnSizeThreshold(t *testing.T) {
	l, err := Open(t.TempDir())
	require.NoError(t, err)
	defer l.Close()

	assert.False(t, l.ShouldCheckpoint())

	// Force position far past the size threshold without 16MiB of real
	// writes, to keep the test fast.
	l.position = l.lastCheckpointPos + CheckpointSizeThreshold + 1
	assert.True(t, l.ShouldCheckpoint())
}

func foreverTS() int64 { return 1<<63 - 1 }
