package telemetry

import "github.com/prometheus/client_golang/prometheus"

// Collectors published by the storage core. Registered lazily by
// Register so importing this package has no side effect on the default
// Prometheus registry (tests construct their own registries).
var (
	AtomsInterned = prometheus.NewCounter(prometheus.CounterOpts{
		Name: "mercury_atoms_interned_total",
		Help: "Total number of atoms newly interned (excludes cache hits).",
	})

	AtomInternDuration = prometheus.NewHistogram(prometheus.HistogramOpts{
		Name:    "mercury_atom_intern_duration_seconds",
		Help:    "Latency of AtomStore.Intern calls.",
		Buckets: prometheus.DefBuckets,
	})

	WALAppendDuration = prometheus.NewHistogram(prometheus.HistogramOpts{
		Name:    "mercury_wal_append_duration_seconds",
		Help:    "Latency of WriteAheadLog.Append, including fsync.",
		Buckets: prometheus.DefBuckets,
	})

	WALBytesSinceCheckpoint = prometheus.NewGauge(prometheus.GaugeOpts{
		Name: "mercury_wal_bytes_since_checkpoint",
		Help: "Bytes written to the WAL since the last checkpoint.",
	})

	CheckpointDuration = prometheus.NewHistogram(prometheus.HistogramOpts{
		Name:    "mercury_checkpoint_duration_seconds",
		Help:    "Latency of QuadStore.Checkpoint.",
		Buckets: prometheus.DefBuckets,
	})

	PageCacheHits = prometheus.NewCounter(prometheus.CounterOpts{
		Name: "mercury_pagecache_hits_total",
		Help: "Total PageCache.TryGet hits.",
	})

	PageCacheMisses = prometheus.NewCounter(prometheus.CounterOpts{
		Name: "mercury_pagecache_misses_total",
		Help: "Total PageCache.TryGet misses.",
	})

	PoolOccupancy = prometheus.NewGauge(prometheus.GaugeOpts{
		Name: "mercury_pool_rented_total",
		Help: "Number of stores currently rented out of the pool.",
	})

	PredicateTripleCount = prometheus.NewGaugeVec(prometheus.GaugeOpts{
		Name: "mercury_predicate_triple_count",
		Help: "Triple count per predicate, capped to the top-N predicates by cardinality.",
	}, []string{"predicate"})
)

// Register adds every Mercury collector to reg. Call once per process
// (or per test registry); repeated calls against the same registry
// return the AlreadyRegisteredError from the underlying client, which
// callers may safely ignore.
func Register(reg prometheus.Registerer) error {
	collectors := []prometheus.Collector{
		AtomsInterned,
		AtomInternDuration,
		WALAppendDuration,
		WALBytesSinceCheckpoint,
		CheckpointDuration,
		PageCacheHits,
		PageCacheMisses,
		PoolOccupancy,
		PredicateTripleCount,
	}
	for _, c := range collectors {
		if err := reg.Register(c); err != nil {
			if _, ok := err.(prometheus.AlreadyRegisteredError); ok {
				continue
			}
			return err
		}
	}
	return nil
}
