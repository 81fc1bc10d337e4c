//go:build mercury_debug

package atom

import "sync"

// assertWriteLocked panics if mu is non-nil and not currently held for
// write, catching a caller that mutated an AtomStore without the
// containing QuadStore's write lock (spec.md §5). TryLock succeeding
// means nobody held the lock, so it must be released again immediately
// before panicking, to leave mu as this goroutine found it.
//
// Grounded on the teacher-pack's calvinalkan-agent-task/pkg/slotcache
// convention of gating extra invariant checks behind a build tag
// (slotcache_impl) rather than running them unconditionally in
// production.
func assertWriteLocked(mu *sync.RWMutex) {
	if mu == nil {
		return
	}
	if mu.TryLock() {
		mu.Unlock()
		panic("atom: mutation called without the containing store's write lock held")
	}
}
