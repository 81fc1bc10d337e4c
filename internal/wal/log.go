package wal

import (
	"path/filepath"
	"time"

	"github.com/rs/zerolog"

	"github.com/cuemby/mercury/internal/merr"
	"github.com/cuemby/mercury/internal/mmapfile"
	"github.com/cuemby/mercury/internal/telemetry"
)

const (
	// CheckpointSizeThreshold is the log growth, in bytes, since the
	// last checkpoint that triggers ShouldCheckpoint (spec.md §4.4).
	CheckpointSizeThreshold = 16 << 20 // 16 MiB
	// CheckpointTimeThreshold is the elapsed time since the last
	// checkpoint that triggers ShouldCheckpoint.
	CheckpointTimeThreshold = 60 * time.Second

	initialFileSize = recordSize * 1024
)

// Log is Mercury's write-ahead log. Not safe for concurrent use without
// the containing QuadStore's write lock (spec.md §5).
type Log struct {
	file *mmapfile.File
	log  zerolog.Logger

	position             int64 // next write offset
	lastCheckpointPos    int64
	lastCheckpointTxID   uint64
	lastCheckpointAt     time.Time
	currentTxID          uint64
	nextBatchTxID        uint64 // 0 when no batch is active
	batchStartPos        int64
}

// Open opens or creates wal.log at dir and replays recovery (spec.md
// §4.4's "Recovery algorithm on open").
func Open(dir string) (*Log, error) {
	f, err := mmapfile.Open(filepath.Join(dir, "wal.log"), initialFileSize)
	if err != nil {
		return nil, merr.Wrap(merr.KindStorageIO, "wal.Open", err)
	}
	l := &Log{file: f, log: telemetry.WithComponent("wal"), lastCheckpointAt: time.Now()}
	if err := l.recover(); err != nil {
		_ = f.Close()
		return nil, err
	}
	return l, nil
}

// recover scans from offset 0, validating checksums, and establishes
// position/lastCheckpoint* per spec.md §4.4.
func (l *Log) recover() error {
	buf := l.file.Bytes()
	pos := int64(0)
	for pos+recordSize <= int64(len(buf)) {
		raw := buf[pos : pos+recordSize]
		if isZero(raw) {
			break // unwritten tail of a pre-grown file
		}
		rec, ok := decode(raw)
		if !ok {
			if pos == 0 {
				// Nothing valid at all; treat as an empty, freshly
				// initialised log rather than fatal corruption.
				break
			}
			// Torn tail vs. interior corruption: if every following
			// record (to the extent the file has been grown) is zero,
			// this is a tail-torn write; truncate and stop. Otherwise a
			// valid record exists after an invalid one, which is fatal.
			if restIsZero(buf[pos+recordSize:]) {
				l.log.Warn().Int64("offset", pos).Msg("truncating torn WAL tail")
				break
			}
			return merr.New(merr.KindCorruptInterior, "wal.recover")
		}
		if rec.TxID > l.currentTxID {
			l.currentTxID = rec.TxID
		}
		if rec.Op == OpCheckpoint {
			l.lastCheckpointPos = pos + recordSize
			l.lastCheckpointTxID = rec.TxID
		}
		pos += recordSize
	}
	l.position = pos
	return nil
}

func isZero(b []byte) bool {
	for _, c := range b {
		if c != 0 {
			return false
		}
	}
	return true
}

func restIsZero(b []byte) bool {
	// Only whole records matter; a dangling partial record at EOF is
	// also tail corruption and is covered by isZero's short-circuit in
	// recover's loop condition.
	for pos := 0; pos+recordSize <= len(b); pos += recordSize {
		if !isZero(b[pos : pos+recordSize]) {
			return false
		}
	}
	return true
}

func (l *Log) ensureCapacity(upto int64) error {
	if upto <= l.file.Size() {
		return nil
	}
	newSize := l.file.Size()
	if newSize == 0 {
		newSize = initialFileSize
	}
	for upto > newSize {
		newSize *= 2
	}
	return l.file.Grow(newSize)
}

func (l *Log) writeRecord(pos int64, rec Record) error {
	if err := l.ensureCapacity(pos + recordSize); err != nil {
		return merr.Wrap(merr.KindStorageIO, "wal.writeRecord", err)
	}
	encode(l.file.Bytes()[pos:pos+recordSize], rec)
	return nil
}

// Append assigns the next tx id, writes a single record, and fsyncs.
func (l *Log) Append(op Op, graph, subject, predicate, object uint64, validFrom, validTo int64) (uint64, error) {
	txID := l.currentTxID + 1
	rec := Record{TxID: txID, Op: op, Graph: graph, Subject: subject, Predicate: predicate, Object: object, ValidFrom: validFrom, ValidTo: validTo}
	if err := l.writeRecord(l.position, rec); err != nil {
		return 0, err
	}
	l.position += recordSize
	l.currentTxID = txID
	if err := l.file.Sync(); err != nil {
		return 0, merr.Wrap(merr.KindStorageIO, "wal.Append", err)
	}
	telemetry.WALBytesSinceCheckpoint.Set(float64(l.position - l.lastCheckpointPos))
	return txID, nil
}

// BeginBatch assigns a single tx id for an entire batch and returns it.
func (l *Log) BeginBatch() uint64 {
	l.nextBatchTxID = l.currentTxID + 1
	l.batchStartPos = l.position
	l.currentTxID = l.nextBatchTxID
	return l.nextBatchTxID
}

// AppendBatch writes one record under batchTxID without fsyncing.
// Durability is deferred to CommitBatch (spec.md §4.4's durability
// window note: a crash before commit may lose any subset of these).
func (l *Log) AppendBatch(op Op, graph, subject, predicate, object uint64, validFrom, validTo int64, batchTxID uint64) error {
	rec := Record{TxID: batchTxID, Op: op, Graph: graph, Subject: subject, Predicate: predicate, Object: object, ValidFrom: validFrom, ValidTo: validTo}
	if err := l.writeRecord(l.position, rec); err != nil {
		return err
	}
	l.position += recordSize
	return nil
}

// CommitBatch fsyncs the batch written since BeginBatch.
func (l *Log) CommitBatch(batchTxID uint64) error {
	if err := l.file.Sync(); err != nil {
		return merr.Wrap(merr.KindStorageIO, "wal.CommitBatch", err)
	}
	l.nextBatchTxID = 0
	telemetry.WALBytesSinceCheckpoint.Set(float64(l.position - l.lastCheckpointPos))
	return nil
}

// RollbackBatch releases the batch without committing. The records
// written since BeginBatch are zeroed in the mapped file and position is
// rewound to batchStartPos, so neither ReplayUncommitted nor a later
// Open's recovery scan (which stops at the first all-zero record) sees
// them. If the OS had already written those records back and the process
// crashes before the zeroed pages reach disk, they can still be found.
func (l *Log) RollbackBatch(batchTxID uint64) {
	buf := l.file.Bytes()
	for i := l.batchStartPos; i < l.position; i++ {
		buf[i] = 0
	}
	l.position = l.batchStartPos
	l.nextBatchTxID = 0
}

// Checkpoint writes a Checkpoint record, fsyncs, then truncates the log
// so only that record remains at offset 0.
func (l *Log) Checkpoint() error {
	txID := l.currentTxID + 1
	rec := Record{TxID: txID, Op: OpCheckpoint}

	// Write the checkpoint record at the current tail first so a crash
	// between this write and the truncate still leaves a replayable log.
	if err := l.writeRecord(l.position, rec); err != nil {
		return err
	}
	l.position += recordSize
	l.currentTxID = txID
	if err := l.file.Sync(); err != nil {
		return merr.Wrap(merr.KindStorageIO, "wal.Checkpoint", err)
	}

	// Compact: move the checkpoint record to offset 0 and truncate.
	buf := l.file.Bytes()
	var tmp [recordSize]byte
	copy(tmp[:], buf[l.position-recordSize:l.position])
	if err := l.file.Truncate(initialFileSize); err != nil {
		return merr.Wrap(merr.KindStorageIO, "wal.Checkpoint", err)
	}
	// Truncate keeps existing bytes when the size is unchanged; zero them
	// so no record from before the checkpoint survives past offset 0.
	buf = l.file.Bytes()
	for i := range buf {
		buf[i] = 0
	}
	copy(buf[:recordSize], tmp[:])
	if err := l.file.Sync(); err != nil {
		return merr.Wrap(merr.KindStorageIO, "wal.Checkpoint", err)
	}

	l.position = recordSize
	l.lastCheckpointPos = recordSize
	l.lastCheckpointTxID = txID
	l.lastCheckpointAt = time.Now()
	telemetry.WALBytesSinceCheckpoint.Set(0)
	return nil
}

// ShouldCheckpoint reports whether the log has grown more than
// CheckpointSizeThreshold since the last checkpoint or more than
// CheckpointTimeThreshold has elapsed.
func (l *Log) ShouldCheckpoint() bool {
	grown := l.position - l.lastCheckpointPos
	return grown > CheckpointSizeThreshold || time.Since(l.lastCheckpointAt) > CheckpointTimeThreshold
}

// ReplayUncommitted yields every Add/Delete record whose tx id exceeds
// the last checkpoint's, for use only during Open-time recovery.
func (l *Log) ReplayUncommitted() []Record {
	var out []Record
	buf := l.file.Bytes()
	for pos := l.lastCheckpointPos; pos+recordSize <= l.position; pos += recordSize {
		rec, ok := decode(buf[pos : pos+recordSize])
		if !ok {
			break
		}
		if rec.Op == OpAdd || rec.Op == OpDelete {
			out = append(out, rec)
		}
	}
	return out
}

// LastCheckpointTxID returns the tx id of the most recent checkpoint
// record observed (0 if none yet).
func (l *Log) LastCheckpointTxID() uint64 { return l.lastCheckpointTxID }

// CurrentTxID returns the highest tx id assigned so far.
func (l *Log) CurrentTxID() uint64 { return l.currentTxID }

// Close closes the underlying mapped file.
func (l *Log) Close() error { return l.file.Close() }

// Clear truncates the log back to empty (no checkpoint record even),
// resetting all counters. Used by QuadStore.Clear.
func (l *Log) Clear() error {
	if err := l.file.Truncate(initialFileSize); err != nil {
		return merr.Wrap(merr.KindStorageIO, "wal.Clear", err)
	}
	buf := l.file.Bytes()
	for i := range buf {
		buf[i] = 0
	}
	l.position = 0
	l.lastCheckpointPos = 0
	l.lastCheckpointTxID = 0
	l.currentTxID = 0
	l.lastCheckpointAt = time.Now()
	return nil
}
