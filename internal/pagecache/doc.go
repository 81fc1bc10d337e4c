/*
Package pagecache implements PageCache: a fixed-capacity, approximately
LRU cache mapping page_id to a page offset within a QuadIndex's mapped
region, bounded in entry count with second-chance ("clock") eviction.

Per spec.md §9's re-architecture note, entries store an offset into the
mapped region rather than a raw pointer; internal/btree re-derives the
page pointer from its tree's current mmapfile base on every access, which
removes the class of remap-invalidation bugs a pointer-valued cache would
have.

PageCache is, like AtomStore, single-thread-safe: the owning QuadIndex
provides all required synchronisation (spec.md §4.3).
*/
package pagecache
