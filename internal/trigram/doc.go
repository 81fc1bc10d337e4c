/*
Package trigram implements TrigramIndex: Mercury's optional full-text
posting-list index over normalised literal text (spec.md §1 lists it as
optional; §6 names its two files, trigram.hash and trigram.posts).

# Layout

trigram.hash is a fixed table of 1,048,576 16-byte buckets
(trigram:u32, count:i32, posting_offset:i64), probed quadratic-then-
linear exactly like internal/atom's hash table (atom.Store.probe) —
the same open-addressing discipline generalised from "atom_id keyed by
value hash" to "posting list keyed by trigram", mixed with xxhash
(internal/pagecache's choice for the same "splitmix-style" requirement
in spec.md §4.1) rather than atom's FNV-1a, since the key here is a
4-byte trigram rather than an arbitrary-length byte string. trigram == 0
marks an empty bucket.

trigram.posts is an append-only blob of posting-list records
([i32 count][i32 capacity][i64 atom_id]*capacity), addressed by the
owning bucket's posting_offset, with a 64-byte header at offset 0 whose
first 8 bytes hold the append position, generalising atom.Store's DataPosition field from "next
blob write position" (atoms.atoms) to the same concept over postings.
A posting list that outgrows its capacity is reallocated at the blob's
tail and its old space abandoned, matching the atom blob's append-only,
no-reclaim philosophy (spec.md never reclaims atom space either).

# Indexing

Index normalises text to lowercase UTF-8 bytes and slides a 3-byte
window across it (byte-level, not rune-level: a trigram spanning a
multi-byte rune boundary is a deliberate simplification). Search intersects the posting lists of every trigram in the
query, returning candidate atom ids a caller must still verify against
the real value (this index overmatches by design, the standard
trigram-search tradeoff).
*/
package trigram
