//go:build mercury_debug

package atom

import (
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestInternPanicsWithoutWriteLockHeld(t *testing.T) {
	s, err := Open(t.TempDir(), Options{BucketCount: 1024, OffsetCapacity: 64})
	if err != nil {
		t.Fatal(err)
	}
	defer s.Close()

	var mu sync.RWMutex
	s.SetDebugLock(&mu)

	assert.Panics(t, func() {
		_, _ = s.Intern([]byte("unlocked"))
	})
}

func TestInternDoesNotPanicWithWriteLockHeld(t *testing.T) {
	s, err := Open(t.TempDir(), Options{BucketCount: 1024, OffsetCapacity: 64})
	if err != nil {
		t.Fatal(err)
	}
	defer s.Close()

	var mu sync.RWMutex
	s.SetDebugLock(&mu)

	mu.Lock()
	defer mu.Unlock()

	assert.NotPanics(t, func() {
		_, _ = s.Intern([]byte("locked"))
	})
}
