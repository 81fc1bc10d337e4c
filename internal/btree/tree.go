package btree

import (
	"encoding/binary"
	"fmt"
	"path/filepath"
	"sort"

	"github.com/rs/zerolog"

	"github.com/cuemby/mercury/internal/merr"
	"github.com/cuemby/mercury/internal/mmapfile"
	"github.com/cuemby/mercury/internal/pagecache"
	"github.com/cuemby/mercury/internal/telemetry"
	"github.com/cuemby/mercury/pkg/quad"
)

const treeMagic uint64 = 0x51554144545245 // "QUADTRE" truncated to 7 bytes, as a u64

const (
	mOffMagic         = 0
	mOffRootPageID    = 8
	mOffNextPageID    = 16
	mOffTripleCount   = 24
	mOffLastAppliedTx = 32
)

// Tree is one QuadIndex instance: a disk-backed B+Tree over a single
// ColumnOrder. Not safe for concurrent use without the containing
// QuadStore's lock (spec.md §5) — identical contract to wal.Log.
type Tree struct {
	file  *mmapfile.File
	cache *pagecache.Cache
	order ColumnOrder
	log   zerolog.Logger
}

// Open opens or creates the index file fileName under dir for the given
// ColumnOrder, initializing a fresh root leaf on first use.
func Open(dir, fileName string, order ColumnOrder) (*Tree, error) {
	f, err := mmapfile.Open(filepath.Join(dir, fileName), metaSize+pageSize)
	if err != nil {
		return nil, merr.Wrap(merr.KindStorageIO, "btree.Open", err)
	}
	t := &Tree{file: f, cache: pagecache.New(256), order: order, log: telemetry.WithComponent("btree").With().Str("order", order.String()).Logger()}

	buf := f.Bytes()
	if binary.LittleEndian.Uint64(buf[mOffMagic:]) != treeMagic {
		binary.LittleEndian.PutUint64(buf[mOffMagic:], treeMagic)
		binary.LittleEndian.PutUint64(buf[mOffRootPageID:], 1)
		binary.LittleEndian.PutUint64(buf[mOffNextPageID:], 2)
		binary.LittleEndian.PutUint64(buf[mOffTripleCount:], 0)
		writePageHeader(buf, pageHeader{PageID: 1, IsLeaf: true})
	}
	return t, nil
}

func (t *Tree) rootPageID() uint64 { return binary.LittleEndian.Uint64(t.file.Bytes()[mOffRootPageID:]) }
func (t *Tree) setRootPageID(id uint64) {
	binary.LittleEndian.PutUint64(t.file.Bytes()[mOffRootPageID:], id)
}
func (t *Tree) nextPageID() uint64 { return binary.LittleEndian.Uint64(t.file.Bytes()[mOffNextPageID:]) }
func (t *Tree) bumpTripleCount(delta int64) {
	buf := t.file.Bytes()
	cur := int64(binary.LittleEndian.Uint64(buf[mOffTripleCount:]))
	binary.LittleEndian.PutUint64(buf[mOffTripleCount:], uint64(cur+delta))
}

// LastAppliedTx returns the highest WAL tx id (stored in Entry.TxTime)
// this tree has applied, used by recovery to skip already-durable
// records instead of reinserting them.
func (t *Tree) LastAppliedTx() uint64 {
	return binary.LittleEndian.Uint64(t.file.Bytes()[mOffLastAppliedTx:])
}

func (t *Tree) bumpLastAppliedTx(txID uint64) {
	buf := t.file.Bytes()
	if txID > binary.LittleEndian.Uint64(buf[mOffLastAppliedTx:]) {
		binary.LittleEndian.PutUint64(buf[mOffLastAppliedTx:], txID)
	}
}

// TripleCount returns the total number of live (insert-side) entries
// ever recorded, used by Statistics for a cheap upper-bound estimate.
func (t *Tree) TripleCount() uint64 {
	return binary.LittleEndian.Uint64(t.file.Bytes()[mOffTripleCount:])
}

// allocatePage grows the file if needed and returns a fresh page id.
func (t *Tree) allocatePage() (uint64, error) {
	buf := t.file.Bytes()
	id := binary.LittleEndian.Uint64(buf[mOffNextPageID:])
	binary.LittleEndian.PutUint64(buf[mOffNextPageID:], id+1)

	needed := pageOffset(id) + pageSize
	if needed > t.file.Size() {
		newSize := t.file.Size()
		for needed > newSize {
			newSize *= 2
		}
		if err := t.file.Grow(newSize); err != nil {
			return 0, merr.Wrap(merr.KindStorageIO, "btree.allocatePage", err)
		}
	}
	t.cache.Add(id, pageOffset(id))
	return id, nil
}

func (t *Tree) header(id uint64) pageHeader { return readPageHeader(t.file.Bytes(), id) }

// entries reads every entry currently stored on page id, in on-disk
// (already-sorted) order.
func (t *Tree) entries(id uint64) []Entry {
	h := t.header(id)
	buf := t.file.Bytes()
	out := make([]Entry, h.EntryCount)
	for i := range out {
		out[i] = readEntry(buf, id, i)
	}
	return out
}

func (t *Tree) writeLeaf(id uint64, parent, nextLeaf uint64, es []Entry) {
	buf := t.file.Bytes()
	for i, e := range es {
		writeEntry(buf, id, i, e)
	}
	writePageHeader(buf, pageHeader{PageID: id, IsLeaf: true, EntryCount: len(es), ParentPageID: parent, LeftmostChild: nextLeaf})
}

// internalEntry is one separator key plus its right-child pointer.
type internalEntry struct {
	key   Entry
	child uint64
}

func (t *Tree) internalEntries(id uint64) []internalEntry {
	h := t.header(id)
	buf := t.file.Bytes()
	out := make([]internalEntry, h.EntryCount)
	for i := range out {
		out[i] = internalEntry{key: readEntry(buf, id, i), child: readChild(buf, id, i)}
	}
	return out
}

func (t *Tree) writeInternal(id uint64, parent uint64, leftmostChild uint64, es []internalEntry) {
	buf := t.file.Bytes()
	for i, e := range es {
		writeEntry(buf, id, i, e.key)
		writeChild(buf, id, i, e.child)
	}
	writePageHeader(buf, pageHeader{PageID: id, IsLeaf: false, EntryCount: len(es), ParentPageID: parent, LeftmostChild: leftmostChild})
}

// Insert adds e to the tree, applying the temporal-overwrite rule for
// non-TGSP orders (see doc.go) before descending.
func (t *Tree) Insert(e Entry) error {
	t.bumpLastAppliedTx(uint64(e.TxTime))
	root := t.rootPageID()
	promoted, newRight, split, err := t.insertRec(root, e)
	if err != nil {
		return err
	}
	if !split {
		return nil
	}
	newRootID, err := t.allocatePage()
	if err != nil {
		return err
	}
	t.writeInternal(newRootID, 0, root, []internalEntry{{key: promoted, child: newRight}})
	t.setRootPageID(newRootID)
	return nil
}

func (t *Tree) insertRec(pageID uint64, e Entry) (promoted Entry, newRight uint64, split bool, err error) {
	h := t.header(pageID)
	if h.IsLeaf {
		return t.insertLeaf(pageID, e)
	}
	entries := t.internalEntries(pageID)
	child := h.LeftmostChild
	for _, ie := range entries {
		if t.order.compare(e, ie.key) < 0 {
			break
		}
		child = ie.child
	}
	p, nr, sp, err := t.insertRec(child, e)
	if err != nil || !sp {
		return Entry{}, 0, false, err
	}
	return t.insertInternal(pageID, p, nr)
}

func (t *Tree) insertLeaf(pageID uint64, e Entry) (promoted Entry, newRight uint64, split bool, err error) {
	h := t.header(pageID)
	es := t.entries(pageID)

	idx := sort.Search(len(es), func(i int) bool { return t.order.compare(es[i], e) >= 0 })

	if t.order != TGSP && idx > 0 && sameIdentity(es[idx-1], e) && es[idx-1].ValidTo > e.ValidFrom && !es[idx-1].IsDeleted {
		es[idx-1].ValidTo = e.ValidFrom
		es[idx-1].ModifiedAt = e.CreatedAt
	}

	es = append(es, Entry{})
	copy(es[idx+1:], es[idx:])
	es[idx] = e
	t.bumpTripleCount(1)

	if len(es) <= maxEntriesPerPage {
		t.writeLeaf(pageID, h.ParentPageID, h.LeftmostChild, es)
		return Entry{}, 0, false, nil
	}

	mid := len(es) / 2
	left, right := es[:mid], es[mid:]
	rightID, err := t.allocatePage()
	if err != nil {
		return Entry{}, 0, false, err
	}
	t.writeLeaf(pageID, h.ParentPageID, rightID, left)
	t.writeLeaf(rightID, h.ParentPageID, h.LeftmostChild, right)
	return right[0], rightID, true, nil
}

func (t *Tree) insertInternal(pageID uint64, sep Entry, rightChild uint64) (promoted Entry, newRight uint64, split bool, err error) {
	h := t.header(pageID)
	es := t.internalEntries(pageID)

	idx := sort.Search(len(es), func(i int) bool { return t.order.compare(es[i].key, sep) >= 0 })
	es = append(es, internalEntry{})
	copy(es[idx+1:], es[idx:])
	es[idx] = internalEntry{key: sep, child: rightChild}

	if len(es) <= maxEntriesPerPage {
		t.writeInternal(pageID, h.ParentPageID, h.LeftmostChild, es)
		return Entry{}, 0, false, nil
	}

	mid := len(es) / 2
	up := es[mid]
	left, right := es[:mid], es[mid+1:]
	rightID, err := t.allocatePage()
	if err != nil {
		return Entry{}, 0, false, err
	}
	t.writeInternal(pageID, h.ParentPageID, h.LeftmostChild, left)
	t.writeInternal(rightID, h.ParentPageID, up.child, right)
	return up.key, rightID, true, nil
}

// Delete flips is_deleted on every live (graph, subject, predicate,
// object) entry whose valid interval contains at, stamping modifiedAt.
// txID advances LastAppliedTx so recovery can skip an already-applied
// delete. Delete never removes or reorders entries: history stays
// queryable.
func (t *Tree) Delete(q quad.Quad, at, modifiedAt int64, txID uint64) (int, error) {
	t.bumpLastAppliedTx(txID)
	n := 0
	err := t.scanPrefix(quad.Bound{Graph: q.Graph, Subject: q.Subject, Predicate: q.Predicate, Object: q.Object}, func(pageID uint64, i int, e Entry) bool {
		if e.Graph == uint64(q.Graph) && e.Subject == uint64(q.Subject) && e.Predicate == uint64(q.Predicate) && e.Object == uint64(q.Object) &&
			!e.IsDeleted && e.ValidFrom <= at && at < e.ValidTo {
			e.IsDeleted = true
			e.ModifiedAt = modifiedAt
			writeEntry(t.file.Bytes(), pageID, i, e)
			n++
		}
		return true
	})
	return n, err
}

// leafFor descends from pageID following the leftmost path whose
// prefix columns could contain lo.
func (t *Tree) leafFor(pageID uint64, lo Entry) uint64 {
	h := t.header(pageID)
	if h.IsLeaf {
		return pageID
	}
	entries := t.internalEntries(pageID)
	child := h.LeftmostChild
	for _, ie := range entries {
		if compareColumnsOnly(t.order, lo, ie.key) < 0 {
			break
		}
		child = ie.child
	}
	return t.leafFor(child, lo)
}

// matchesBound reports whether e's identity columns satisfy every
// explicitly-bound field of pattern. Needed in addition to the
// [Low,High] box test: when an earlier column (most commonly Graph) is
// wildcarded while a later one is bound, the box alone isn't a true
// lexicographic range (see RangeFor's doc comment) and would otherwise
// admit false matches.
func matchesBound(e Entry, pattern quad.Bound) bool {
	if pattern.Graph != quad.AnyGraph && e.Graph != uint64(pattern.Graph) {
		return false
	}
	if pattern.Subject != quad.NoAtom && e.Subject != uint64(pattern.Subject) {
		return false
	}
	if pattern.Predicate != quad.NoAtom && e.Predicate != uint64(pattern.Predicate) {
		return false
	}
	if pattern.Object != quad.NoAtom && e.Object != uint64(pattern.Object) {
		return false
	}
	return true
}

// scanPrefix walks every entry whose leading columns fall within
// pattern's range, calling visit(pageID, index, entry) for each; visit
// returns false to stop early. Entries within the range but failing an
// explicitly-bound column (see matchesBound) are skipped without
// stopping the scan, since the range alone may not be a true prefix.
func (t *Tree) scanPrefix(pattern quad.Bound, visit func(pageID uint64, i int, e Entry) bool) error {
	rng := RangeFor(t.order, pattern)
	leaf := t.leafFor(t.rootPageID(), rng.Low)
	for leaf != 0 {
		h := t.header(leaf)
		buf := t.file.Bytes()
		for i := 0; i < h.EntryCount; i++ {
			e := readEntry(buf, leaf, i)
			if compareColumnsOnly(t.order, e, rng.Low) < 0 {
				continue
			}
			if compareColumnsOnly(t.order, e, rng.High) > 0 {
				return nil
			}
			if !matchesBound(e, pattern) {
				continue
			}
			if !visit(leaf, i, e) {
				return nil
			}
		}
		leaf = h.LeftmostChild // next_leaf, on a leaf page
	}
	return nil
}

// ScanAll walks every entry in the tree in on-disk order, ignoring
// column bounds entirely. Used by Statistics, which needs a true
// full-table scan regardless of RangeFor's single-graph limitation.
func (t *Tree) ScanAll(visit func(Entry) bool) error {
	leaf := t.leafFor(t.rootPageID(), Entry{})
	for leaf != 0 {
		h := t.header(leaf)
		buf := t.file.Bytes()
		for i := 0; i < h.EntryCount; i++ {
			if !visit(readEntry(buf, leaf, i)) {
				return nil
			}
		}
		leaf = h.LeftmostChild
	}
	return nil
}

// QueryAsOf returns every live, non-deleted entry matching pattern whose
// interval contains at.
func (t *Tree) QueryAsOf(pattern quad.Bound, at int64) ([]Entry, error) {
	var out []Entry
	err := t.scanPrefix(pattern, func(_ uint64, _ int, e Entry) bool {
		if !e.IsDeleted && e.ValidFrom <= at && at < e.ValidTo {
			out = append(out, e)
		}
		return true
	})
	return out, err
}

// QueryRange returns every non-deleted entry matching pattern whose
// interval overlaps [from, to).
func (t *Tree) QueryRange(pattern quad.Bound, from, to int64) ([]Entry, error) {
	var out []Entry
	err := t.scanPrefix(pattern, func(_ uint64, _ int, e Entry) bool {
		if !e.IsDeleted && e.ValidFrom < to && from < e.ValidTo {
			out = append(out, e)
		}
		return true
	})
	return out, err
}

// QueryHistory returns every version matching pattern, tombstones
// included, in on-disk order.
func (t *Tree) QueryHistory(pattern quad.Bound) ([]Entry, error) {
	var out []Entry
	err := t.scanPrefix(pattern, func(_ uint64, _ int, e Entry) bool {
		out = append(out, e)
		return true
	})
	return out, err
}

// QueryChanges is only meaningful on the TGSP tree: it returns every
// entry whose TxTime falls in [sinceTxID, untilTxID).
func (t *Tree) QueryChanges(sinceTxTime, untilTxTime int64) ([]Entry, error) {
	if t.order != TGSP {
		return nil, merr.New(merr.KindInvalidArgument, "btree.QueryChanges: not a TGSP tree")
	}
	var out []Entry
	lo := Entry{TxTime: sinceTxTime}
	leaf := t.leafFor(t.rootPageID(), lo)
	for leaf != 0 {
		h := t.header(leaf)
		buf := t.file.Bytes()
		for i := 0; i < h.EntryCount; i++ {
			e := readEntry(buf, leaf, i)
			if e.TxTime < sinceTxTime {
				continue
			}
			if e.TxTime >= untilTxTime {
				return out, nil
			}
			out = append(out, e)
		}
		leaf = h.LeftmostChild
	}
	return out, nil
}

// Clear truncates the tree back to a single empty root leaf.
func (t *Tree) Clear() error {
	if err := t.file.Truncate(metaSize + pageSize); err != nil {
		return merr.Wrap(merr.KindStorageIO, "btree.Clear", err)
	}
	buf := t.file.Bytes()
	for i := range buf {
		buf[i] = 0
	}
	binary.LittleEndian.PutUint64(buf[mOffMagic:], treeMagic)
	binary.LittleEndian.PutUint64(buf[mOffRootPageID:], 1)
	binary.LittleEndian.PutUint64(buf[mOffNextPageID:], 2)
	writePageHeader(buf, pageHeader{PageID: 1, IsLeaf: true})
	t.cache.Clear()
	return nil
}

// Sync flushes the tree's mapped pages to stable storage.
func (t *Tree) Sync() error { return t.file.Sync() }

// Close closes the underlying mapped file.
func (t *Tree) Close() error { return t.file.Close() }

func (t *Tree) String() string { return fmt.Sprintf("btree(%s)", t.order) }
