package store

import (
	"time"

	"github.com/cuemby/mercury/internal/btree"
	"github.com/cuemby/mercury/pkg/quad"
)

// CompactionPolicy names one of the three write-availability strategies
// spec.md §4.6 records for the brief unavailability a compaction's copy
// induces. Mercury implements only the create-target/copy-live/switch/
// dispose primitives (Export/ImportBatch below); selecting and driving a
// policy is external orchestration, out of scope here.
type CompactionPolicy int

const (
	// CompactionPauseWrites holds writes on the source for the duration
	// of the copy.
	CompactionPauseWrites CompactionPolicy = iota
	// CompactionReplayLog lets writes continue against the source during
	// the copy and replays them into the target before the switch.
	CompactionReplayLog
	// CompactionAcceptLostWindow switches to the target without
	// reconciling writes made during the copy, accepting a small
	// lost-write window.
	CompactionAcceptLostWindow
)

// termEnumerator adapts an in-memory slice of decoded quads to
// quad.Enumerator, the shape Export returns.
type termEnumerator struct {
	quads []quad.TermQuad
	pos   int
}

func (e *termEnumerator) Next() (quad.TermQuad, bool) {
	if e.pos >= len(e.quads) {
		return quad.TermQuad{}, false
	}
	q := e.quads[e.pos]
	e.pos++
	return q, true
}

func (e *termEnumerator) Err() error { return nil }

func (s *Store) decodeTerm(a quad.Atom) ([]byte, error) {
	if a == quad.NoAtom {
		return nil, nil
	}
	return s.atoms.Get(uint64(a))
}

func (s *Store) decodeQuad(q quad.Quad) (quad.TermQuad, error) {
	graph, err := s.decodeTerm(q.Graph)
	if err != nil {
		return quad.TermQuad{}, err
	}
	subject, err := s.decodeTerm(q.Subject)
	if err != nil {
		return quad.TermQuad{}, err
	}
	predicate, err := s.decodeTerm(q.Predicate)
	if err != nil {
		return quad.TermQuad{}, err
	}
	object, err := s.decodeTerm(q.Object)
	if err != nil {
		return quad.TermQuad{}, err
	}
	return quad.TermQuad{Graph: graph, Subject: subject, Predicate: predicate, Object: object}, nil
}

// Export enumerates every live, non-tombstoned quad as of liveAsOf,
// decoded to raw term bytes so the result is portable to another store.
// This is the copy-live step of spec.md §4.6's compaction protocol; it
// scans GSPO once, the same index a fully unbound query_as_of would use.
func (s *Store) Export(liveAsOf time.Time) (quad.Enumerator, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if err := s.checkDisposed(); err != nil {
		return nil, err
	}
	at := liveAsOf.UnixMilli()
	var quads []quad.TermQuad
	var scanErr error
	err := s.idx[btree.GSPO].ScanAll(func(e btree.Entry) bool {
		if e.IsDeleted {
			return true
		}
		iv := quad.Interval{From: e.ValidFrom, To: e.ValidTo}
		if !iv.Contains(at) {
			return true
		}
		tq, decErr := s.decodeQuad(e.Quad())
		if decErr != nil {
			scanErr = decErr
			return false
		}
		quads = append(quads, tq)
		return true
	})
	if err != nil {
		return nil, err
	}
	if scanErr != nil {
		return nil, scanErr
	}
	return &termEnumerator{quads: quads}, nil
}

// ImportBatch interns every term src yields into s and stages it as a
// single batch, live from validFrom until Forever, the add-to-target
// step of spec.md §4.6's compaction protocol. The whole batch is
// committed atomically; any error rolls it back and none of src's quads
// are applied.
func (s *Store) ImportBatch(src quad.Enumerator, validFrom int64) (int, error) {
	b := s.BeginBatch()
	n := 0
	for {
		tq, ok := src.Next()
		if !ok {
			break
		}
		if _, err := s.AddBatchTerms(b, tq.Graph, tq.Subject, tq.Predicate, tq.Object, validFrom, quad.Forever); err != nil {
			s.RollbackBatch(b)
			return n, err
		}
		n++
	}
	if err := src.Err(); err != nil {
		s.RollbackBatch(b)
		return n, err
	}
	if err := s.CommitBatch(b); err != nil {
		return n, err
	}
	return n, nil
}
