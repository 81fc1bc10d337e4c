package store

import (
	"strings"

	"github.com/cuemby/mercury/internal/btree"
	"github.com/cuemby/mercury/internal/wal"
	"github.com/cuemby/mercury/pkg/quad"
)

// Intern interns value (delegating to AtomStore.Intern) under the
// store's write lock, since interning may grow mapped files. A newly
// interned value is also indexed into the trigram full-text index; an
// already-interned value is not re-indexed.
func (s *Store) Intern(value []byte) (quad.Atom, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.checkDisposed(); err != nil {
		return 0, err
	}
	return s.internLocked(value)
}

func (s *Store) internLocked(value []byte) (quad.Atom, error) {
	existing, err := s.atoms.GetID(value)
	if err != nil {
		return 0, err
	}
	id, err := s.atoms.Intern(value)
	if err != nil {
		return 0, err
	}
	if existing == 0 {
		if err := s.text.Add(id, string(value)); err != nil {
			return 0, err
		}
	}
	return quad.Atom(id), nil
}

// InternBatch interns every value in values, returning atoms in the
// same order. An EXPANSION convenience over repeated Intern calls,
// amortizing the write-lock acquisition for bulk loads.
func (s *Store) InternBatch(values [][]byte) ([]quad.Atom, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.checkDisposed(); err != nil {
		return nil, err
	}
	out := make([]quad.Atom, len(values))
	for i, v := range values {
		id, err := s.internLocked(v)
		if err != nil {
			return nil, err
		}
		out[i] = id
	}
	return out, nil
}

// Lookup returns the interned bytes behind atomID.
func (s *Store) Lookup(a quad.Atom) ([]byte, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if err := s.checkDisposed(); err != nil {
		return nil, err
	}
	return s.atoms.Get(uint64(a))
}

// SearchText is an EXPANSION operation (not in the distilled spec):
// it returns every interned atom whose value contains query as a
// case-insensitive substring, using the trigram index to narrow
// candidates before verifying each one against its real interned bytes
// (the trigram index overmatches by design; see internal/trigram).
func (s *Store) SearchText(query string) ([]quad.Atom, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if err := s.checkDisposed(); err != nil {
		return nil, err
	}
	candidates, err := s.text.Search(query)
	if err != nil {
		return nil, err
	}
	lowerQuery := strings.ToLower(query)
	var out []quad.Atom
	for _, id := range candidates {
		value, err := s.atoms.Get(id)
		if err != nil {
			continue
		}
		if strings.Contains(strings.ToLower(string(value)), lowerQuery) {
			out = append(out, quad.Atom(id))
		}
	}
	return out, nil
}

func (s *Store) entryFromAdd(q quad.Quad, validFrom, validTo int64, txID uint64) btree.Entry {
	now := nowMillis()
	return btree.Entry{
		Graph: uint64(q.Graph), Subject: uint64(q.Subject), Predicate: uint64(q.Predicate), Object: uint64(q.Object),
		ValidFrom: validFrom, ValidTo: validTo, TxTime: int64(txID),
		CreatedAt: now, ModifiedAt: now, Version: 1,
	}
}

// Add records q as live over [validFrom, validTo). q's fields are
// already-resolved atoms; callers holding raw term bytes want AddTerms
// instead, which interns them first as spec.md §4.5 requires of add().
func (s *Store) Add(q quad.Quad, validFrom, validTo int64) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.checkDisposed(); err != nil {
		return err
	}
	return s.addLocked(q, validFrom, validTo)
}

func (s *Store) addLocked(q quad.Quad, validFrom, validTo int64) error {
	txID, err := s.log.Append(wal.OpAdd, uint64(q.Graph), uint64(q.Subject), uint64(q.Predicate), uint64(q.Object), validFrom, validTo)
	if err != nil {
		return err
	}
	e := s.entryFromAdd(q, validFrom, validTo, txID)
	for _, t := range s.idx {
		if err := t.Insert(e); err != nil {
			return err
		}
	}
	return nil
}

// AddCurrent records q as live from now until Forever.
func (s *Store) AddCurrent(q quad.Quad) error {
	return s.Add(q, nowMillis(), quad.Forever)
}

// AddTerms is the literal spec.md §4.5 add(g, s, p, o, valid_from,
// valid_to): it interns graph/subject/predicate/object (an empty graph
// means the default graph, per the data model) and records the
// resulting quad live over [validFrom, validTo). Callers that already
// hold resolved atoms should use Add instead and skip the interning.
func (s *Store) AddTerms(graph, subject, predicate, object []byte, validFrom, validTo int64) (quad.Quad, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.checkDisposed(); err != nil {
		return quad.Quad{}, err
	}
	q, err := s.internTerms(graph, subject, predicate, object)
	if err != nil {
		return quad.Quad{}, err
	}
	if err := s.addLocked(q, validFrom, validTo); err != nil {
		return quad.Quad{}, err
	}
	return q, nil
}

// AddCurrentTerms records (graph, subject, predicate, object) as live
// from now until Forever, interning every term.
func (s *Store) AddCurrentTerms(graph, subject, predicate, object []byte) (quad.Quad, error) {
	return s.AddTerms(graph, subject, predicate, object, nowMillis(), quad.Forever)
}

func (s *Store) internTerms(graph, subject, predicate, object []byte) (quad.Quad, error) {
	var g quad.Atom
	if len(graph) > 0 {
		id, err := s.internLocked(graph)
		if err != nil {
			return quad.Quad{}, err
		}
		g = id
	}
	subj, err := s.internLocked(subject)
	if err != nil {
		return quad.Quad{}, err
	}
	pred, err := s.internLocked(predicate)
	if err != nil {
		return quad.Quad{}, err
	}
	obj, err := s.internLocked(object)
	if err != nil {
		return quad.Quad{}, err
	}
	return quad.Quad{Graph: g, Subject: subj, Predicate: pred, Object: obj}, nil
}

// lookupTerms resolves (graph, subject, predicate, object) to atoms
// without interning, for Delete's "does not intern" contract. found is
// false (with a zero Quad and no WAL record, per the resolved open
// question in DESIGN.md) if any non-default term is absent.
func (s *Store) lookupTerms(graph, subject, predicate, object []byte) (q quad.Quad, found bool, err error) {
	if len(graph) > 0 {
		id, err := s.atoms.GetID(graph)
		if err != nil {
			return quad.Quad{}, false, err
		}
		if id == 0 {
			return quad.Quad{}, false, nil
		}
		q.Graph = quad.Atom(id)
	}
	subj, err := s.atoms.GetID(subject)
	if err != nil {
		return quad.Quad{}, false, err
	}
	pred, err := s.atoms.GetID(predicate)
	if err != nil {
		return quad.Quad{}, false, err
	}
	obj, err := s.atoms.GetID(object)
	if err != nil {
		return quad.Quad{}, false, err
	}
	if subj == 0 || pred == 0 || obj == 0 {
		return quad.Quad{}, false, nil
	}
	q.Subject, q.Predicate, q.Object = quad.Atom(subj), quad.Atom(pred), quad.Atom(obj)
	return q, true, nil
}

// Delete tombstones every live version of q whose interval contains at.
// q's fields are already-resolved atoms; callers holding raw term bytes
// want DeleteTerms instead, which looks them up (without interning) as
// spec.md §4.5 requires of delete().
func (s *Store) Delete(q quad.Quad, at int64) (int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.checkDisposed(); err != nil {
		return 0, err
	}
	return s.deleteLocked(q, at)
}

func (s *Store) deleteLocked(q quad.Quad, at int64) (int, error) {
	txID, err := s.log.Append(wal.OpDelete, uint64(q.Graph), uint64(q.Subject), uint64(q.Predicate), uint64(q.Object), at, 0)
	if err != nil {
		return 0, err
	}
	now := nowMillis()
	// Every index holds the same versions; the count reported is GSPO's.
	total := 0
	for i, t := range s.idx {
		n, err := t.Delete(q, at, now, txID)
		if err != nil {
			return total, err
		}
		if indexOrders[i] == btree.GSPO {
			total = n
		}
	}
	return total, nil
}

// DeleteCurrent tombstones q's live version as of now.
func (s *Store) DeleteCurrent(q quad.Quad) (int, error) {
	return s.Delete(q, nowMillis())
}

// DeleteTerms is the literal spec.md §4.5 delete(): it looks up
// graph/subject/predicate/object without interning them and, if any
// non-default term has never been interned, returns found=false with
// no WAL record and no index change (the resolved open question in
// DESIGN.md). Otherwise it tombstones every live version whose
// interval contains at, as Delete does.
func (s *Store) DeleteTerms(graph, subject, predicate, object []byte, at int64) (found bool, count int, err error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.checkDisposed(); err != nil {
		return false, 0, err
	}
	q, found, err := s.lookupTerms(graph, subject, predicate, object)
	if err != nil || !found {
		return found, 0, err
	}
	n, err := s.deleteLocked(q, at)
	return true, n, err
}

// DeleteCurrentTerms is DeleteTerms evaluated as of now.
func (s *Store) DeleteCurrentTerms(graph, subject, predicate, object []byte) (bool, int, error) {
	return s.DeleteTerms(graph, subject, predicate, object, nowMillis())
}

// Batch stages a sequence of Add/Delete calls under a single WAL tx id,
// applied to the indexes only once CommitBatch succeeds (see doc.go).
type Batch struct {
	txID    uint64
	pending []pendingOp
}

type pendingOp struct {
	isDelete bool
	entry    btree.Entry
	quad     quad.Quad
	at       int64
}

// BeginBatch opens a new Batch. The caller must eventually call
// CommitBatch or RollbackBatch.
func (s *Store) BeginBatch() *Batch {
	s.mu.Lock()
	defer s.mu.Unlock()
	return &Batch{txID: s.log.BeginBatch()}
}

// AddBatch stages q for insertion as part of b.
func (s *Store) AddBatch(b *Batch, q quad.Quad, validFrom, validTo int64) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.checkDisposed(); err != nil {
		return err
	}
	if err := s.log.AppendBatch(wal.OpAdd, uint64(q.Graph), uint64(q.Subject), uint64(q.Predicate), uint64(q.Object), validFrom, validTo, b.txID); err != nil {
		return err
	}
	b.pending = append(b.pending, pendingOp{entry: s.entryFromAdd(q, validFrom, validTo, b.txID)})
	return nil
}

// DeleteBatch stages q's tombstone as part of b.
func (s *Store) DeleteBatch(b *Batch, q quad.Quad, at int64) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.checkDisposed(); err != nil {
		return err
	}
	if err := s.log.AppendBatch(wal.OpDelete, uint64(q.Graph), uint64(q.Subject), uint64(q.Predicate), uint64(q.Object), at, 0, b.txID); err != nil {
		return err
	}
	b.pending = append(b.pending, pendingOp{isDelete: true, quad: q, at: at})
	return nil
}

// AddBatchTerms interns graph/subject/predicate/object and stages the
// resulting quad for insertion as part of b, the batched counterpart of
// AddTerms ("same discipline" per spec.md §4.5).
func (s *Store) AddBatchTerms(b *Batch, graph, subject, predicate, object []byte, validFrom, validTo int64) (quad.Quad, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.checkDisposed(); err != nil {
		return quad.Quad{}, err
	}
	q, err := s.internTerms(graph, subject, predicate, object)
	if err != nil {
		return quad.Quad{}, err
	}
	if err := s.log.AppendBatch(wal.OpAdd, uint64(q.Graph), uint64(q.Subject), uint64(q.Predicate), uint64(q.Object), validFrom, validTo, b.txID); err != nil {
		return quad.Quad{}, err
	}
	b.pending = append(b.pending, pendingOp{entry: s.entryFromAdd(q, validFrom, validTo, b.txID)})
	return q, nil
}

// DeleteBatchTerms looks up (without interning) graph/subject/predicate/
// object and, if every term is already interned, stages a tombstone as
// part of b; otherwise it returns found=false and stages nothing, the
// batched counterpart of DeleteTerms.
func (s *Store) DeleteBatchTerms(b *Batch, graph, subject, predicate, object []byte, at int64) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.checkDisposed(); err != nil {
		return false, err
	}
	q, found, err := s.lookupTerms(graph, subject, predicate, object)
	if err != nil || !found {
		return found, err
	}
	if err := s.log.AppendBatch(wal.OpDelete, uint64(q.Graph), uint64(q.Subject), uint64(q.Predicate), uint64(q.Object), at, 0, b.txID); err != nil {
		return false, err
	}
	b.pending = append(b.pending, pendingOp{isDelete: true, quad: q, at: at})
	return true, nil
}

// CommitBatch fsyncs b's WAL records, then applies every staged
// operation to the indexes.
func (s *Store) CommitBatch(b *Batch) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.log.CommitBatch(b.txID); err != nil {
		return err
	}
	now := nowMillis()
	for _, op := range b.pending {
		if op.isDelete {
			for _, t := range s.idx {
				if _, err := t.Delete(op.quad, op.at, now, b.txID); err != nil {
					return err
				}
			}
			continue
		}
		for _, t := range s.idx {
			if err := t.Insert(op.entry); err != nil {
				return err
			}
		}
	}
	return nil
}

// RollbackBatch discards b without applying any staged operation.
func (s *Store) RollbackBatch(b *Batch) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.log.RollbackBatch(b.txID)
	b.pending = nil
}

func selectIndex(p quad.Bound) btree.ColumnOrder {
	switch {
	case p.Subject != quad.NoAtom:
		return btree.GSPO
	case p.Predicate != quad.NoAtom:
		return btree.GPOS
	case p.Object != quad.NoAtom:
		return btree.GOSP
	default:
		return btree.GSPO
	}
}

// QueryCurrent returns every quad matching pattern live right now.
func (s *Store) QueryCurrent(pattern quad.Bound) ([]quad.Quad, error) {
	return s.QueryAsOf(pattern, nowMillis())
}

// QueryAsOf returns every quad matching pattern live at instant at.
func (s *Store) QueryAsOf(pattern quad.Bound, at int64) ([]quad.Quad, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if err := s.checkDisposed(); err != nil {
		return nil, err
	}
	t := s.idx[selectIndex(pattern)]
	es, err := t.QueryAsOf(pattern, at)
	if err != nil {
		return nil, err
	}
	return toQuads(es), nil
}

// QueryRange returns every quad matching pattern whose valid interval
// overlaps [from, to).
func (s *Store) QueryRange(pattern quad.Bound, from, to int64) ([]quad.Quad, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if err := s.checkDisposed(); err != nil {
		return nil, err
	}
	t := s.idx[selectIndex(pattern)]
	es, err := t.QueryRange(pattern, from, to)
	if err != nil {
		return nil, err
	}
	return toQuads(es), nil
}

// Version is one temporal version of a quad, as returned by
// QueryHistory/QueryChanges/Describe.
type Version struct {
	Quad               quad.Quad
	ValidFrom, ValidTo int64
	TxTime             int64
	IsDeleted          bool
}

// QueryHistory returns every version of every quad matching pattern,
// tombstones included, oldest first.
func (s *Store) QueryHistory(pattern quad.Bound) ([]Version, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if err := s.checkDisposed(); err != nil {
		return nil, err
	}
	t := s.idx[selectIndex(pattern)]
	es, err := t.QueryHistory(pattern)
	if err != nil {
		return nil, err
	}
	return toVersions(es), nil
}

// QueryChanges is an EXPANSION operation (not in the distilled spec):
// it returns every version written with sinceTxTime <= tx_time <
// untilTxTime, via the TGSP index, for changefeed-style consumers.
func (s *Store) QueryChanges(sinceTxTime, untilTxTime int64) ([]Version, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if err := s.checkDisposed(); err != nil {
		return nil, err
	}
	es, err := s.idx[btree.TGSP].QueryChanges(sinceTxTime, untilTxTime)
	if err != nil {
		return nil, err
	}
	return toVersions(es), nil
}

// Describe is an EXPANSION operation returning every current triple
// naming subj as its subject, for an RDF-style "describe resource" view.
func (s *Store) Describe(subj quad.Atom) ([]quad.Quad, error) {
	return s.QueryCurrent(quad.Bound{Subject: subj})
}

// NamedGraphs returns every distinct non-default graph atom with at
// least one non-deleted version (current, past or future), by scanning the GSPO index (graph is its leading
// column, so distinct graphs can be found without visiting every leaf
// twice).
func (s *Store) NamedGraphs() ([]quad.Atom, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if err := s.checkDisposed(); err != nil {
		return nil, err
	}
	seen := map[uint64]struct{}{}
	var out []quad.Atom
	err := s.idx[btree.GSPO].ScanAll(func(e btree.Entry) bool {
		if e.Graph == 0 || e.IsDeleted {
			return true
		}
		if _, ok := seen[e.Graph]; !ok {
			seen[e.Graph] = struct{}{}
			out = append(out, quad.Atom(e.Graph))
		}
		return true
	})
	return out, err
}

func toQuads(es []btree.Entry) []quad.Quad {
	out := make([]quad.Quad, len(es))
	for i, e := range es {
		out[i] = e.Quad()
	}
	return out
}

func toVersions(es []btree.Entry) []Version {
	out := make([]Version, len(es))
	for i, e := range es {
		out[i] = Version{Quad: e.Quad(), ValidFrom: e.ValidFrom, ValidTo: e.ValidTo, TxTime: e.TxTime, IsDeleted: e.IsDeleted}
	}
	return out
}
