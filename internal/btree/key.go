package btree

import (
	"math"

	"github.com/cuemby/mercury/pkg/quad"
)

// ColumnOrder selects which permutation of (graph, subject, predicate,
// object) leads the composite key, matching spec.md §3's four index
// instances.
type ColumnOrder int

const (
	// GSPO leads with graph, then subject, predicate, object. The
	// default order for subject-bound and unbound queries.
	GSPO ColumnOrder = iota
	// GPOS leads with graph, predicate, object, subject. Selected for
	// predicate-bound queries.
	GPOS
	// GOSP leads with graph, object, subject, predicate. Selected for
	// object-bound queries.
	GOSP
	// TGSP leads with transaction_time, then graph, subject, predicate,
	// object. Selected for transaction-time range queries (changefeeds).
	TGSP
)

func (o ColumnOrder) String() string {
	switch o {
	case GSPO:
		return "GSPO"
	case GPOS:
		return "GPOS"
	case GOSP:
		return "GOSP"
	case TGSP:
		return "TGSP"
	default:
		return "unknown"
	}
}

// Entry is one stored version of a quad: the identity columns, the
// valid-time interval, the transaction that wrote it, and bookkeeping.
// The same Entry shape is stored in all four ColumnOrder trees; only the
// sort key derived from it (via ColumnOrder.columns) differs.
type Entry struct {
	Graph, Subject, Predicate, Object uint64
	ValidFrom, ValidTo                int64
	TxTime                            int64
	IsDeleted                         bool
	CreatedAt, ModifiedAt             int64
	Version                           uint32
}

// Quad extracts the identity tuple, ignoring all temporal fields.
func (e Entry) Quad() quad.Quad {
	return quad.Quad{Graph: quad.Atom(e.Graph), Subject: quad.Atom(e.Subject), Predicate: quad.Atom(e.Predicate), Object: quad.Atom(e.Object)}
}

// sameIdentity reports whether a and b name the same (graph, subject,
// predicate, object), ignoring all temporal fields.
func sameIdentity(a, b Entry) bool {
	return a.Graph == b.Graph && a.Subject == b.Subject && a.Predicate == b.Predicate && a.Object == b.Object
}

// columns returns the five leading sort-key columns for e under order o.
func (o ColumnOrder) columns(e Entry) [5]uint64 {
	switch o {
	case GPOS:
		return [5]uint64{e.Graph, e.Predicate, e.Object, e.Subject, 0}
	case GOSP:
		return [5]uint64{e.Graph, e.Object, e.Subject, e.Predicate, 0}
	case TGSP:
		return [5]uint64{uint64(e.TxTime), e.Graph, e.Subject, e.Predicate, e.Object}
	default: // GSPO
		return [5]uint64{e.Graph, e.Subject, e.Predicate, e.Object, 0}
	}
}

// compare orders a before b (-1), equal (0), or after (1) under o's
// composite key: five leading columns, then valid_from, valid_to,
// transaction_time as tie-breakers.
func (o ColumnOrder) compare(a, b Entry) int {
	ca, cb := o.columns(a), o.columns(b)
	for i := 0; i < 5; i++ {
		if ca[i] != cb[i] {
			if ca[i] < cb[i] {
				return -1
			}
			return 1
		}
	}
	if a.ValidFrom != b.ValidFrom {
		if a.ValidFrom < b.ValidFrom {
			return -1
		}
		return 1
	}
	if a.ValidTo != b.ValidTo {
		if a.ValidTo < b.ValidTo {
			return -1
		}
		return 1
	}
	if a.TxTime != b.TxTime {
		if a.TxTime < b.TxTime {
			return -1
		}
		return 1
	}
	return 0
}

// Range is a half-open scan bound built from a quad.Bound: unbound
// columns are filled with 0 (Low) or math.MaxUint64 (High) per spec.md's
// sentinel convention, so a single comparator-driven forward scan from
// Low serves every query shape.
type Range struct {
	Low, High Entry
}

// RangeFor builds the [Low, High] column bound matching pattern. For
// GSPO/GPOS/GOSP the leading columns are exactly
// graph/subject/predicate/object. TGSP's leading column is
// transaction_time, which a pattern never binds, so for TGSP High's
// transaction_time is set to its maximum and the range spans the whole
// tree. Valid-time columns in Low/High are left at their zero values;
// callers filter by valid-time separately once positioned by columns.
//
// The box is a true lexicographic range only when every bound column
// follows bound columns. Passing quad.AnyGraph alongside a bound
// Subject/Predicate/Object (or any TGSP pattern) produces a [Low, High]
// box that also admits non-matching entries; scanPrefix therefore checks
// every entry in the box against the pattern with matchesBound.
func RangeFor(o ColumnOrder, pattern quad.Bound) Range {
	r := Range{Low: boundEntry(pattern, 0), High: boundEntry(pattern, ^uint64(0))}
	if o == TGSP {
		r.High.TxTime = math.MaxInt64
	}
	return r
}

func boundEntry(pattern quad.Bound, wildcard uint64) Entry {
	e := Entry{Graph: wildcard, Subject: wildcard, Predicate: wildcard, Object: wildcard}
	switch {
	case pattern.Graph == quad.AnyGraph:
		// leave wildcard
	default:
		e.Graph = uint64(pattern.Graph)
	}
	if pattern.Subject != quad.NoAtom {
		e.Subject = uint64(pattern.Subject)
	}
	if pattern.Predicate != quad.NoAtom {
		e.Predicate = uint64(pattern.Predicate)
	}
	if pattern.Object != quad.NoAtom {
		e.Object = uint64(pattern.Object)
	}
	return e
}

// compareColumnsOnly compares only the five leading columns (no
// tie-breakers), used to test whether a scanned entry has left the
// requested prefix range.
func compareColumnsOnly(o ColumnOrder, a, b Entry) int {
	ca, cb := o.columns(a), o.columns(b)
	for i := 0; i < 5; i++ {
		if ca[i] != cb[i] {
			if ca[i] < cb[i] {
				return -1
			}
			return 1
		}
	}
	return 0
}
