/*
Package mmapfile implements the single growable memory-mapped file
primitive shared by internal/atom, internal/btree, and internal/wal.

It is the systems-language re-architecture spec.md §9 calls for in place
of "raw pointers into memory-mapped regions": File is an owning handle
with an internal growth mutex and a published base-pointer token; callers
obtain a Bytes() slice that is valid until the next Grow, mirroring the
spec's requirement that the mapped region never transiently exceed the
file length and that growth publish its new base with a full memory
barrier (here, an atomic.Pointer swap).

File itself is not safe for concurrent Grow calls racing reads from
another goroutine without the containing component's lock — per spec.md
§5, all such synchronisation is the containing QuadStore's single
reader-writer lock; File only guarantees that a Bytes() call made under
that lock observes a fully-formed mapping.
*/
package mmapfile
