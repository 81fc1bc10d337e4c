/*
Package wal implements WriteAheadLog: Mercury's append-only, fixed-size,
checksummed durability log, and the recovery protocol that replays any
committed-but-unchecked records after a crash.

# Record layout (72 bytes, little-endian)

	tx_id(8) | op(1) | _reserved(7) | graph(8) | s(8) | p(8) | o(8) |
	valid_from(8) | valid_to(8) | checksum(8)

Checksum is a prime-mixed XOR over the non-checksum fields (spec.md
§3, §4.4), intended to catch torn writes and bit flips, not adversarial
tampering.

# Commit discipline

Append fsyncs every record. BeginBatch/AppendBatch/CommitBatch assign a
single tx id up front and fsync once on commit, trading per-record
durability for throughput — a crash mid-batch can lose the whole batch,
which is why spec.md's scenario 4 expects zero of 1,000 batched adds to
survive a kill before CommitBatch.

# Recovery

On Open, the log is scanned from offset 0. Each record's checksum is
validated; on the first invalid record the log is truncated at that
record's start (tail-torn-write protection) and replay stops — an
invalid record before the end of a well-formed log is instead fatal
(CorruptInterior), because the WAL is the durability source of truth and
such a gap cannot be safely skipped.
*/
package wal
