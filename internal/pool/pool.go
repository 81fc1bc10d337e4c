package pool

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"runtime"
	"sync"
	"time"

	"github.com/rs/zerolog"
	"golang.org/x/sys/unix"

	"github.com/cuemby/mercury/internal/merr"
	"github.com/cuemby/mercury/internal/store"
	"github.com/cuemby/mercury/internal/telemetry"
)

const (
	// DefaultDiskBudgetFraction is the fraction of free space on the
	// pool's volume available for store directories (spec.md §4.7).
	DefaultDiskBudgetFraction = 0.33
	// DefaultEstimatedStoreSize sizes the disk-budget side of the
	// min(cpu_count, disk_budget/estimated_store_size) capacity formula
	// when the caller doesn't know better.
	DefaultEstimatedStoreSize = 64 << 20 // 64 MiB
	// DefaultGateTimeout is how long Rent waits on the cross-process
	// gate before failing with merr.KindPoolTimeout.
	DefaultGateTimeout = 60 * time.Second
)

// Options configures a Pool at construction time.
type Options struct {
	// Root is the directory under which slot subdirectories are
	// created. Open creates it if it does not exist.
	Root string
	// MaxSize overrides the computed capacity when non-zero.
	MaxSize int
	// DiskBudgetFraction overrides DefaultDiskBudgetFraction.
	DiskBudgetFraction float64
	// EstimatedStoreSize overrides DefaultEstimatedStoreSize.
	EstimatedStoreSize int64
	// Store is forwarded to store.Open for every pooled slot.
	Store store.Options
	// Gate enables the cross-process machine-wide slot limit.
	Gate bool
	// GateTimeout overrides DefaultGateTimeout.
	GateTimeout time.Duration
}

func (o Options) withDefaults() Options {
	if o.DiskBudgetFraction == 0 {
		o.DiskBudgetFraction = DefaultDiskBudgetFraction
	}
	if o.EstimatedStoreSize == 0 {
		o.EstimatedStoreSize = DefaultEstimatedStoreSize
	}
	if o.GateTimeout == 0 {
		o.GateTimeout = DefaultGateTimeout
	}
	return o
}

// slot is one pooled store directory, generalising worker.Worker's
// per-unit bookkeeping (pkg/worker/worker.go's containers map entry)
// from a running container to a reusable store.Store.
type slot struct {
	index int
	dir   string
	store *store.Store
	dirty bool // needs Clear before the next Rent hands it out
}

// Pool is a bounded, recyclable set of store.Store directories
// (spec.md §4.7). Safe for concurrent use.
type Pool struct {
	opts  Options
	log   zerolog.Logger
	slots []*slot
	avail chan int // indices of slots ready to be rented

	mu       sync.Mutex
	disposed bool

	gate *gate
}

// Open creates (or reuses) Options.Root and provisions a Pool whose
// capacity is min(cpu_count, disk_budget/estimated_store_size), or
// Options.MaxSize when set.
func Open(opts Options) (*Pool, error) {
	opts = opts.withDefaults()
	if opts.Root == "" {
		return nil, merr.New(merr.KindInvalidArgument, "pool.Open")
	}
	if err := os.MkdirAll(opts.Root, 0o700); err != nil {
		return nil, merr.Wrap(merr.KindStorageIO, "pool.Open", err)
	}

	n := opts.MaxSize
	if n == 0 {
		n = capacityFor(opts)
	}
	if n < 1 {
		n = 1
	}

	p := &Pool{
		opts:  opts,
		log:   telemetry.WithComponent("pool"),
		slots: make([]*slot, n),
		avail: make(chan int, n),
	}

	if opts.Gate {
		g, err := newGate(filepath.Join(opts.Root, ".gate"), n)
		if err != nil {
			return nil, err
		}
		p.gate = g
	}

	for i := 0; i < n; i++ {
		dir := filepath.Join(opts.Root, fmt.Sprintf("slot-%03d", i))
		if err := os.MkdirAll(dir, 0o700); err != nil {
			_ = p.Dispose()
			return nil, merr.Wrap(merr.KindStorageIO, "pool.Open", err)
		}
		s, err := store.Open(dir, opts.Store)
		if err != nil {
			_ = p.Dispose()
			return nil, err
		}
		p.slots[i] = &slot{index: i, dir: dir, store: s}
		p.avail <- i
	}

	p.log.Info().Int("capacity", n).Bool("gate", opts.Gate).Str("root", opts.Root).Msg("pool opened")
	return p, nil
}

// capacityFor implements spec.md §4.7's
// min(cpu_count, disk_budget/estimated_store_size).
func capacityFor(opts Options) int {
	cpu := runtime.NumCPU()
	free, err := freeBytes(opts.Root)
	if err != nil {
		return cpu
	}
	budget := uint64(float64(free) * opts.DiskBudgetFraction)
	byDisk := int(budget / uint64(opts.EstimatedStoreSize))
	if byDisk < 1 {
		byDisk = 1
	}
	if byDisk < cpu {
		return byDisk
	}
	return cpu
}

func freeBytes(path string) (uint64, error) {
	var st unix.Statfs_t
	if err := unix.Statfs(path, &st); err != nil {
		return 0, err
	}
	return st.Bavail * uint64(st.Bsize), nil
}

// Rental is a rented slot's store plus the bookkeeping Return needs; the
// zero value is not usable.
type Rental struct {
	pool  *Pool
	slot  *slot
	gateH *heldLock
}

// Store returns the rented store.Store.
func (r *Rental) Store() *store.Store { return r.slot.store }

// Rent blocks until a slot is available (and, if the gate is enabled,
// until the cross-process counter yields one), clears the slot's store,
// and returns it. ctx governs both waits: its cancellation or deadline
// surfaces merr.KindCancelled. merr.KindPoolTimeout is surfaced only when
// the gate is enabled and no gate slot frees up within GateTimeout.
func (p *Pool) Rent(ctx context.Context) (*Rental, error) {
	p.mu.Lock()
	if p.disposed {
		p.mu.Unlock()
		return nil, merr.New(merr.KindObjectDisposed, "pool.Rent")
	}
	p.mu.Unlock()

	var gateH *heldLock
	if p.gate != nil {
		h, err := p.gate.acquire(ctx, p.opts.GateTimeout)
		if err != nil {
			return nil, err
		}
		gateH = h
	}

	var idx int
	select {
	case idx = <-p.avail:
	case <-ctx.Done():
		if gateH != nil {
			p.gate.release(gateH)
		}
		return nil, merr.Wrap(merr.KindCancelled, "pool.Rent", ctx.Err())
	}

	s := p.slots[idx]
	if s.dirty {
		if err := s.store.Clear(); err != nil {
			p.avail <- idx
			if gateH != nil {
				p.gate.release(gateH)
			}
			return nil, err
		}
		s.dirty = false
	}

	telemetry.PoolOccupancy.Inc()
	p.log.Debug().Int("slot", idx).Msg("rented")
	return &Rental{pool: p, slot: s, gateH: gateH}, nil
}

// Return releases r back to the pool without clearing its store,
// deferring the clear to the next Rent so the caller can inspect the
// returned store's final state (spec.md §4.7).
func (p *Pool) Return(r *Rental) {
	r.slot.dirty = true
	telemetry.PoolOccupancy.Dec()
	p.log.Debug().Int("slot", r.slot.index).Msg("returned")
	p.avail <- r.slot.index
	if r.gateH != nil {
		p.gate.release(r.gateH)
	}
}

// ScopedRent rents a slot, invokes fn, and always returns the slot
// afterward — Mercury's RAII-shaped rent/use/return wrapper (spec.md
// §4.7's scoped_rent).
func (p *Pool) ScopedRent(ctx context.Context, fn func(*store.Store) error) error {
	r, err := p.Rent(ctx)
	if err != nil {
		return err
	}
	defer p.Return(r)
	return fn(r.Store())
}

// Dispose closes every pooled store and, if a gate is active, releases
// it. Does not remove the slot directories themselves (callers that
// want a clean temp volume remove Options.Root after Dispose returns).
func (p *Pool) Dispose() error {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.disposed {
		return nil
	}
	p.disposed = true

	var firstErr error
	for _, s := range p.slots {
		if s == nil || s.store == nil {
			continue
		}
		if err := s.store.Dispose(); err != nil && firstErr == nil {
			firstErr = err
		}
	}
	if p.gate != nil {
		p.gate.closeAll()
	}
	p.log.Info().Msg("pool disposed")
	return firstErr
}

// Len returns the pool's total capacity.
func (p *Pool) Len() int { return len(p.slots) }
