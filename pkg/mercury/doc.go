// Package mercury is Mercury's public, library-style entry point: it
// re-exports internal/store.Store and internal/pool.Pool so external
// callers get the bitemporal quad store and its recycling pool without
// reaching into internal/, matching spec.md §6's external-interfaces
// boundary (`Open(path, Options) (*Store, error)`).
package mercury
