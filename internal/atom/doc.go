/*
Package atom implements AtomStore: Mercury's string interner. It assigns
a stable, non-zero 64-bit atom id to every distinct UTF-8 byte sequence
presented to it (IRIs, literals, blank-node labels) and returns the exact
bytes back given the id.

# Architecture

	┌─────────────────────── ATOMSTORE ────────────────────────┐
	│                                                            │
	│  ┌────────────────────────────────────────────┐          │
	│  │   atoms.atoms  (append-only data blob)       │          │
	│  │   [1 KiB header][length][bytes][length]...   │          │
	│  └──────────────────┬─────────────────────────┘          │
	│                     │ offset_index[atom_id]                │
	│  ┌──────────────────▼─────────────────────────┐          │
	│  │   atoms.offsets  (dense u64[] by atom id)     │          │
	│  └────────────────────────────────────────────┘           │
	│                                                            │
	│  ┌────────────────────────────────────────────┐          │
	│  │   atoms.atomidx  (open-address hash table)    │          │
	│  │   bucket = (atom_id, hash, offset, length)    │          │
	│  │   atom_id == 0 means empty                    │          │
	│  └────────────────────────────────────────────┘           │
	└────────────────────────────────────────────────────────┘

Hashing is 64-bit FNV-1a. Probing is quadratic for the first 64 probes,
linear thereafter, capped at 4096 total probes. A new atom's bytes are
appended to the data blob, its offset-index slot is set, and only then
is its hash bucket published — in field order hash → length → offset →
atom_id, with atom_id written last so a concurrent reader that observes
a non-zero atom_id always sees a fully-initialised slot (spec.md §4.1,
§5, §9). This store itself performs no locking: every mutation must run
under the containing QuadStore's exclusive write lock, and every read
under at least its read lock.
*/
package atom
