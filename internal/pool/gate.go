package pool

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"time"

	"golang.org/x/sys/unix"

	"github.com/cuemby/mercury/internal/merr"
)

// pollInterval is how often acquire retries the lock-file sweep while
// waiting for a slot to free up.
const pollInterval = 25 * time.Millisecond

// gate is the optional cross-process slot limit (spec.md §4.7): one
// advisory lock file per pool slot, flock'd non-blocking, modelled on
// calvinalkan-agent-task's pkg/slotcache/lock.go (one lock file per
// cache, held for the process's lifetime, never deleted on release).
type gate struct {
	files []*os.File
	// flock on a descriptor this process already locked succeeds again,
	// so slots held by this process are tracked here and skipped.
	mu   sync.Mutex
	held []bool
}

func newGate(dir string, n int) (*gate, error) {
	if err := os.MkdirAll(dir, 0o700); err != nil {
		return nil, merr.Wrap(merr.KindStorageIO, "pool.newGate", err)
	}
	files := make([]*os.File, n)
	for i := 0; i < n; i++ {
		path := filepath.Join(dir, fmt.Sprintf("slot-%03d.lock", i))
		f, err := os.OpenFile(path, os.O_CREATE|os.O_RDWR, 0o600)
		if err != nil {
			for _, opened := range files[:i] {
				_ = opened.Close()
			}
			return nil, merr.Wrap(merr.KindStorageIO, "pool.newGate", err)
		}
		files[i] = f
	}
	return &gate{files: files, held: make([]bool, n)}, nil
}

// heldLock identifies the gate slot a Rental holds.
type heldLock struct {
	idx int
}

// acquire sweeps the lock files for one this process can flock
// exclusively and non-blocking, retrying every pollInterval until
// timeout elapses or ctx is cancelled.
func (g *gate) acquire(ctx context.Context, timeout time.Duration) (*heldLock, error) {
	deadline := time.Now().Add(timeout)
	for {
		g.mu.Lock()
		for i, f := range g.files {
			if g.held[i] {
				continue
			}
			if err := unix.Flock(int(f.Fd()), unix.LOCK_EX|unix.LOCK_NB); err == nil {
				g.held[i] = true
				g.mu.Unlock()
				return &heldLock{idx: i}, nil
			}
		}
		g.mu.Unlock()
		if time.Now().After(deadline) {
			return nil, merr.New(merr.KindPoolTimeout, "pool.gate.acquire")
		}
		select {
		case <-ctx.Done():
			return nil, merr.Wrap(merr.KindCancelled, "pool.gate.acquire", ctx.Err())
		case <-time.After(pollInterval):
		}
	}
}

// release unlocks h's file. Does not delete it (matching the teacher's
// lock file, which persists so a later process can still stat it).
func (g *gate) release(h *heldLock) {
	if h == nil {
		return
	}
	g.mu.Lock()
	g.held[h.idx] = false
	_ = unix.Flock(int(g.files[h.idx].Fd()), unix.LOCK_UN)
	g.mu.Unlock()
}

func (g *gate) closeAll() {
	for _, f := range g.files {
		_ = unix.Flock(int(f.Fd()), unix.LOCK_UN)
		_ = f.Close()
	}
}
