/*
Package stats implements Statistics: a per-checkpoint snapshot of
triple counts keyed by predicate atom, scanned from the GPOS index
(predicate is its leading bound column, so a single ScanAll pass yields
entries already grouped by predicate).

Readers never block a writer: Refresh builds an entirely new Snapshot
and swaps it into an atomic.Pointer, so any reader holding an old
Snapshot keeps seeing a consistent (if slightly stale) view — the same
copy-on-write discipline spec.md §6 describes for the on-disk header
publication order, applied here to an in-memory structure instead.

Only the top N predicates by triple count are published to Prometheus
(mercury_predicate_triple_count), to bound cardinality on stores with
many distinct predicates; the full Snapshot itself is unbounded and
queryable in-process via Get/Snapshot.
*/
package stats
