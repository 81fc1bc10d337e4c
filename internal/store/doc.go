/*
Package store implements QuadStore: the facade that owns one AtomStore,
four btree.Tree indexes (GSPO, GPOS, GOSP, TGSP), one WriteAheadLog, a
Statistics snapshot, and a trigram.Index behind a single sync.RWMutex,
mirroring how the teacher's pkg/manager wires its storage/scheduler/
network components behind one coordinating type and lock.

# Full-text search

Every newly interned atom (Intern/InternBatch) is indexed into the
trigram.Index once, by value; re-interning an already-present value is
a no-op for the index, matching AtomStore's own dedup-on-intern
semantics. SearchText is an EXPANSION convenience over the raw
trigram.Index.Search, adding the substring-verification pass the index
itself does not do.

# Write path

Add/Delete (and their Batch counterparts) append to the WAL first, then
apply the resulting Entry to every index. Recovery on Open replays any
WAL record with a tx id past each index's own LastAppliedTx, so a crash
between the WAL fsync and an index's own durability catches up exactly
once rather than double-applying already-durable entries.

# Read path

Query pattern selection follows spec.md §3's rule: a bound Subject
selects GSPO, a bound Predicate (subject unbound) selects GPOS, a bound
Object (subject and predicate unbound) selects GOSP, and the fully
unbound case defaults to GSPO. Changefeed-style queries bypass selection
entirely and go straight to the TGSP index.

# Locking discipline

Every exported method takes the RWMutex: reads take RLock, writes take
Lock. None of AtomStore, btree.Tree, or wal.Log lock internally — the
facade is the only place Mercury's single-writer/multi-reader contract
(spec.md §5) is enforced.
*/
package store
