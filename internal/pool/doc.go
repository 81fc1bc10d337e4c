/*
Package pool implements QuadStorePool: a bounded set of recycled
store.Store directories, generalising the teacher's worker.Worker
registry (a sync.RWMutex-guarded map keyed by id, with rent/return
rather than start/stop lifecycle verbs) from pooled containers to
pooled store directories (spec.md §4.7).

# Sizing

A Pool's capacity is min(cpu_count, disk_budget/estimated_store_size),
computed once at construction from the free space on the volume
containing the pool's root directory (defaulting to 33% of free space,
per Options.DiskBudgetFraction).

# Rent/return

Rent blocks on a buffered channel of available slots until one is free,
then clears the slot's store (via store.Store.Clear) before handing it
back, so a renter always sees an empty store. Return pushes the slot
back onto the channel without clearing — clearing is deferred to the
next Rent so a caller can inspect a returned store's final state for
debugging (spec.md §4.7).

# Cross-process gate

gate.go optionally layers a machine-wide limit on top of the in-process
channel, using one advisory lock file per slot under the pool's root,
grounded on calvinalkan-agent-task's pkg/slotcache/lock.go (one lock
file per cache, flock-based, non-deleted on release). Acquisition is
bounded by a 60s timeout; a timeout surfaces merr.KindPoolTimeout.
*/
package pool
