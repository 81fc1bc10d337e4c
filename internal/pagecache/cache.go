package pagecache

import (
	"github.com/cespare/xxhash/v2"
)

// entry is one clock-algorithm slot. offset is a byte offset into the
// owning QuadIndex's mapped region, not a pointer — see doc.go.
type entry struct {
	valid       bool
	pageID      uint64
	offset      int64
	referenced  bool
	accessCount uint64
}

// Cache is a fixed-capacity, clock-eviction page cache.
type Cache struct {
	capacity int
	entries  []entry
	hand     int

	// slots maps page_id -> index into entries, open-addressed with
	// linear probing over a table roughly twice entries' capacity.
	slots    []int32 // -1 means empty; index into entries, or -1
	hashSize int
}

const emptySlot int32 = -1

// New creates a Cache holding up to capacity pages.
func New(capacity int) *Cache {
	if capacity <= 0 {
		capacity = 1
	}
	hashSize := nextPow2(capacity * 2)
	slots := make([]int32, hashSize)
	for i := range slots {
		slots[i] = emptySlot
	}
	return &Cache{
		capacity: capacity,
		entries:  make([]entry, capacity),
		slots:    slots,
		hashSize: hashSize,
	}
}

func nextPow2(n int) int {
	p := 1
	for p < n {
		p <<= 1
	}
	return p
}

func (c *Cache) mix(pageID uint64) uint64 {
	var b [8]byte
	for i := 0; i < 8; i++ {
		b[i] = byte(pageID >> (8 * i))
	}
	return xxhash.Sum64(b[:])
}

func (c *Cache) slotFor(pageID uint64) int {
	start := int(c.mix(pageID) % uint64(c.hashSize))
	mask := c.hashSize - 1
	for i := 0; i < c.hashSize; i++ {
		probe := (start + i) & mask
		idx := c.slots[probe]
		if idx == emptySlot {
			return -1
		}
		if c.entries[idx].valid && c.entries[idx].pageID == pageID {
			return int(idx)
		}
	}
	return -1
}

// TryGet returns the cached offset for pageID, marking it referenced on
// hit (clock's "second chance" bit).
func (c *Cache) TryGet(pageID uint64) (offset int64, ok bool) {
	slot := c.slotFor(pageID)
	if slot < 0 {
		return 0, false
	}
	e := &c.entries[slot]
	e.referenced = true
	e.accessCount++
	return e.offset, true
}

// Add inserts or updates the mapping pageID -> offset, evicting via the
// clock algorithm when the cache is full.
func (c *Cache) Add(pageID uint64, offset int64) {
	if slot := c.slotFor(pageID); slot >= 0 {
		c.entries[slot].offset = offset
		c.entries[slot].referenced = true
		return
	}

	slot := c.findFreeSlot()
	if slot < 0 {
		slot = c.evict()
	}
	c.entries[slot] = entry{valid: true, pageID: pageID, offset: offset, accessCount: 1}
	c.insertHash(pageID, slot)
}

func (c *Cache) findFreeSlot() int {
	for i := range c.entries {
		if !c.entries[i].valid {
			return i
		}
	}
	return -1
}

// evict advances the clock hand, clearing referenced bits until it finds
// an unreferenced slot to reclaim.
func (c *Cache) evict() int {
	for {
		e := &c.entries[c.hand]
		if !e.referenced {
			victim := c.hand
			c.removeHash(e.pageID)
			c.hand = (c.hand + 1) % c.capacity
			return victim
		}
		e.referenced = false
		c.hand = (c.hand + 1) % c.capacity
	}
}

func (c *Cache) insertHash(pageID uint64, slot int) {
	start := int(c.mix(pageID) % uint64(c.hashSize))
	mask := c.hashSize - 1
	for i := 0; i < c.hashSize; i++ {
		probe := (start + i) & mask
		if c.slots[probe] == emptySlot {
			c.slots[probe] = int32(slot)
			return
		}
	}
}

// removeHash deletes pageID's hash entry and rehashes the remainder of
// its probe chain so later lookups along that chain stay correct (a
// simple open-addressing delete without a tombstone would otherwise
// break probing for entries inserted after it).
func (c *Cache) removeHash(pageID uint64) {
	start := int(c.mix(pageID) % uint64(c.hashSize))
	mask := c.hashSize - 1
	pos := -1
	for i := 0; i < c.hashSize; i++ {
		probe := (start + i) & mask
		idx := c.slots[probe]
		if idx == emptySlot {
			return
		}
		if c.entries[idx].valid && c.entries[idx].pageID == pageID {
			pos = probe
			break
		}
	}
	if pos < 0 {
		return
	}
	c.entries[c.slots[pos]].valid = false
	c.slots[pos] = emptySlot

	// Rehash the contiguous probe chain following pos.
	i := (pos + 1) & mask
	for c.slots[i] != emptySlot {
		idx := c.slots[i]
		c.slots[i] = emptySlot
		c.insertHash(c.entries[idx].pageID, int(idx))
		i = (i + 1) & mask
	}
}

// Clear empties the cache.
func (c *Cache) Clear() {
	for i := range c.entries {
		c.entries[i] = entry{}
	}
	for i := range c.slots {
		c.slots[i] = emptySlot
	}
	c.hand = 0
}

// Len reports the number of valid entries currently cached.
func (c *Cache) Len() int {
	n := 0
	for i := range c.entries {
		if c.entries[i].valid {
			n++
		}
	}
	return n
}
