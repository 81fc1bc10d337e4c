package btree

import "github.com/cuemby/mercury/pkg/quad"

// Cursor iterates over one QueryHistory/QueryRange/QueryAsOf result set.
// It pins a snapshot of the matching entries at construction time, so a
// concurrent Insert on the same Tree (which spec.md §5 forbids without
// the containing store's write lock anyway) can never be observed
// mid-iteration — modelled on Cayley's graph/iterator one-shot iterators
// rather than a live cursor into the mapped pages.
type Cursor struct {
	entries []Entry
	pos     int
}

// newCursor wraps a pinned entry slice. Callers own es; Cursor does not
// copy it again.
func newCursor(es []Entry) *Cursor { return &Cursor{entries: es} }

// Next advances the cursor and reports whether another entry is
// available.
func (c *Cursor) Next() bool {
	if c.pos >= len(c.entries) {
		return false
	}
	c.pos++
	return true
}

// Entry returns the entry at the cursor's current position. Valid only
// after a Next call that returned true.
func (c *Cursor) Entry() Entry { return c.entries[c.pos-1] }

// Len reports the total number of entries the cursor was opened with.
func (c *Cursor) Len() int { return len(c.entries) }

// Reset rewinds the cursor to before the first entry.
func (c *Cursor) Reset() { c.pos = 0 }

// AsOfCursor returns a Cursor over QueryAsOf(pattern, at).
func (t *Tree) AsOfCursor(pattern quad.Bound, at int64) (*Cursor, error) {
	es, err := t.QueryAsOf(pattern, at)
	if err != nil {
		return nil, err
	}
	return newCursor(es), nil
}

// RangeCursor returns a Cursor over QueryRange(pattern, from, to).
func (t *Tree) RangeCursor(pattern quad.Bound, from, to int64) (*Cursor, error) {
	es, err := t.QueryRange(pattern, from, to)
	if err != nil {
		return nil, err
	}
	return newCursor(es), nil
}

// HistoryCursor returns a Cursor over QueryHistory(pattern).
func (t *Tree) HistoryCursor(pattern quad.Bound) (*Cursor, error) {
	es, err := t.QueryHistory(pattern)
	if err != nil {
		return nil, err
	}
	return newCursor(es), nil
}
