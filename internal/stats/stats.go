package stats

import (
	"sort"
	"sync/atomic"

	"github.com/cuemby/mercury/internal/btree"
	"github.com/cuemby/mercury/internal/telemetry"
	"github.com/cuemby/mercury/pkg/quad"
)

// DefaultTopN bounds how many predicates get an individual Prometheus
// gauge series (spec.md's EXPANSION note on unbounded predicate
// cardinality).
const DefaultTopN = 100

// PredicateStats is one predicate's aggregate counters as of the last
// Refresh.
type PredicateStats struct {
	TripleCount      int64
	DistinctSubjects int64
	DistinctObjects  int64
	LastTxTime       int64
}

// Snapshot is an immutable view of every predicate's statistics,
// produced by one Refresh call.
type Snapshot struct {
	ByPredicate map[quad.Atom]PredicateStats
	TakenAtTx   int64
}

// Statistics holds the current Snapshot, swapped atomically by Refresh.
type Statistics struct {
	current atomic.Pointer[Snapshot]
	topN    int
}

// New creates a Statistics with an empty initial Snapshot.
func New(topN int) *Statistics {
	if topN <= 0 {
		topN = DefaultTopN
	}
	s := &Statistics{topN: topN}
	s.current.Store(&Snapshot{ByPredicate: map[quad.Atom]PredicateStats{}})
	return s
}

// Snapshot returns the current, immutable statistics view.
func (s *Statistics) Snapshot() *Snapshot { return s.current.Load() }

// Get returns one predicate's statistics from the current Snapshot.
func (s *Statistics) Get(predicate quad.Atom) (PredicateStats, bool) {
	ps, ok := s.current.Load().ByPredicate[predicate]
	return ps, ok
}

// Refresh scans gpos (the GPOS-ordered index, whose leading column is
// predicate) and rebuilds the Snapshot from scratch, publishing the top
// topN predicates by triple count to Prometheus.
func (s *Statistics) Refresh(gpos *btree.Tree, asOfTxTime int64) error {
	type accum struct {
		count     int64
		subjects  map[uint64]struct{}
		objects   map[uint64]struct{}
		lastTx    int64
	}
	byPred := map[uint64]*accum{}

	err := gpos.ScanAll(func(e btree.Entry) bool {
		if e.IsDeleted || e.TxTime > asOfTxTime {
			return true
		}
		a, ok := byPred[e.Predicate]
		if !ok {
			a = &accum{subjects: map[uint64]struct{}{}, objects: map[uint64]struct{}{}}
			byPred[e.Predicate] = a
		}
		a.count++
		a.subjects[e.Subject] = struct{}{}
		a.objects[e.Object] = struct{}{}
		if e.TxTime > a.lastTx {
			a.lastTx = e.TxTime
		}
		return true
	})
	if err != nil {
		return err
	}

	snap := &Snapshot{ByPredicate: make(map[quad.Atom]PredicateStats, len(byPred)), TakenAtTx: asOfTxTime}
	type ranked struct {
		pred  quad.Atom
		count int64
	}
	var rank []ranked
	for pred, a := range byPred {
		ps := PredicateStats{
			TripleCount:      a.count,
			DistinctSubjects: int64(len(a.subjects)),
			DistinctObjects:  int64(len(a.objects)),
			LastTxTime:       a.lastTx,
		}
		snap.ByPredicate[quad.Atom(pred)] = ps
		rank = append(rank, ranked{pred: quad.Atom(pred), count: a.count})
	}
	s.current.Store(snap)

	sort.Slice(rank, func(i, j int) bool { return rank[i].count > rank[j].count })
	telemetry.PredicateTripleCount.Reset()
	top := s.topN
	if top > len(rank) {
		top = len(rank)
	}
	for _, r := range rank[:top] {
		telemetry.PredicateTripleCount.WithLabelValues(r.pred.String()).Set(float64(r.count))
	}
	return nil
}
