package mercury

import (
	"github.com/cuemby/mercury/internal/pool"
	"github.com/cuemby/mercury/internal/store"
)

// Store is Mercury's bitemporal quad store facade.
type Store = store.Store

// Options configures a Store at open time.
type Options = store.Options

// Batch stages a sequence of Add/Delete calls under a single WAL tx id.
type Batch = store.Batch

// Version is one temporal version of a quad.
type Version = store.Version

// StatsView is a read-only snapshot of AtomStore and Statistics counters.
type StatsView = store.StatsView

// Pool is a bounded, recyclable set of Store directories.
type Pool = pool.Pool

// PoolOptions configures a Pool at construction time.
type PoolOptions = pool.Options

// Rental is a Pool-rented Store plus the bookkeeping Return needs.
type Rental = pool.Rental

// Open opens or creates a store rooted at dir.
func Open(dir string, opts Options) (*Store, error) {
	return store.Open(dir, opts)
}

// OpenPool opens (or reuses) a Pool of stores.
func OpenPool(opts PoolOptions) (*Pool, error) {
	return pool.Open(opts)
}
