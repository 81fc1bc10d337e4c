package pagecache

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestAddAndTryGet(t *testing.T) {
	c := New(4)
	c.Add(1, 100)
	c.Add(2, 200)

	off, ok := c.TryGet(1)
	assert.True(t, ok)
	assert.EqualValues(t, 100, off)

	off, ok = c.TryGet(2)
	assert.True(t, ok)
	assert.EqualValues(t, 200, off)

	_, ok = c.TryGet(3)
	assert.False(t, ok)
}

func TestEvictionRespectsCapacity(t *testing.T) {
	c := New(2)
	c.Add(1, 10)
	c.Add(2, 20)
	c.Add(3, 30) // forces an eviction

	assert.LessOrEqual(t, c.Len(), 2)

	// At least the most recently added page must still be present.
	_, ok := c.TryGet(3)
	assert.True(t, ok)
}

func TestReferencedBitGivesSecondChance(t *testing.T) {
	c := New(2)
	c.Add(1, 10)
	c.Add(2, 20)

	// Touch page 1 so its referenced bit is set before page 3 arrives.
	c.TryGet(1)
	c.Add(3, 30)

	// Page 1 should have survived the clock sweep via its second chance;
	// page 2 (never touched) is the more likely eviction candidate.
	_, onePresent := c.TryGet(1)
	_, threePresent := c.TryGet(3)
	assert.True(t, onePresent)
	assert.True(t, threePresent)
}

func TestClear(t *testing.T) {
	c := New(4)
	c.Add(1, 10)
	c.Add(2, 20)
	c.Clear()

	assert.Equal(t, 0, c.Len())
	_, ok := c.TryGet(1)
	assert.False(t, ok)
}

func TestUpdateExistingKeyDoesNotGrowCache(t *testing.T) {
	c := New(4)
	c.Add(1, 10)
	c.Add(1, 11)

	assert.Equal(t, 1, c.Len())
	off, ok := c.TryGet(1)
	assert.True(t, ok)
	assert.EqualValues(t, 11, off)
}
