package store

import (
	"time"

	"github.com/cuemby/mercury/internal/btree"
	"github.com/cuemby/mercury/internal/stats"
	"github.com/cuemby/mercury/internal/telemetry"
	"github.com/cuemby/mercury/pkg/quad"
)

// Checkpoint flushes every index file, then writes a WAL checkpoint that
// truncates the log, then refreshes the Statistics snapshot. Each Insert
// writes directly into its index's mapped file; the flush makes those
// pages durable before the WAL records that could replay them are
// dropped.
func (s *Store) Checkpoint() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.checkDisposed(); err != nil {
		return err
	}
	start := time.Now()
	defer func() { telemetry.CheckpointDuration.Observe(time.Since(start).Seconds()) }()

	for _, t := range s.idx {
		if err := t.Sync(); err != nil {
			return err
		}
	}
	if err := s.log.Checkpoint(); err != nil {
		return err
	}
	return s.stats.Refresh(s.idx[btree.GPOS], int64(s.log.CurrentTxID()))
}

// ShouldCheckpoint reports whether the WAL has grown enough (or enough
// time has passed) to warrant a Checkpoint call.
func (s *Store) ShouldCheckpoint() bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.log.ShouldCheckpoint()
}

// Stats returns the current Statistics snapshot.
func (s *Store) Stats() *StatsView {
	s.mu.RLock()
	defer s.mu.RUnlock()
	snap := s.stats.Snapshot()
	atoms := s.atoms.Stats()
	return &StatsView{
		AtomCount:    atoms.AtomCount,
		AtomBytes:    atoms.TotalBytes,
		TripleCounts: snap.ByPredicate,
		TakenAtTx:    snap.TakenAtTx,
	}
}

// StatsView is a read-only combination of AtomStore and Statistics
// counters, returned by Store.Stats.
type StatsView struct {
	AtomCount    uint64
	AtomBytes    uint64
	TripleCounts map[quad.Atom]stats.PredicateStats
	TakenAtTx    int64
}

// Clear wipes every component back to empty, under the write lock.
func (s *Store) Clear() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.checkDisposed(); err != nil {
		return err
	}
	if err := s.atoms.Clear(); err != nil {
		return err
	}
	for _, t := range s.idx {
		if err := t.Clear(); err != nil {
			return err
		}
	}
	if err := s.log.Clear(); err != nil {
		return err
	}
	if err := s.text.Clear(); err != nil {
		return err
	}
	return s.stats.Refresh(s.idx[btree.GPOS], 0)
}
