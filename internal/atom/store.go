package atom

import (
	"encoding/binary"
	"fmt"
	"path/filepath"
	"sync"

	"github.com/rs/zerolog"

	"github.com/cuemby/mercury/internal/merr"
	"github.com/cuemby/mercury/internal/mmapfile"
	"github.com/cuemby/mercury/internal/telemetry"
)

const (
	// quadraticProbes is Q from spec.md §4.1: the number of quadratic
	// probes attempted before falling back to linear probing.
	quadraticProbes = 64
	// maxProbes is the hard cap across both probing phases.
	maxProbes = 4096

	// DefaultMaxAtomSize is the default ceiling on interned value size.
	DefaultMaxAtomSize = 1 << 20 // 1 MiB

	// DefaultBucketCount is the production-scale bucket provisioning
	// spec.md names ("~16 M buckets"). Tests and small embeddings should
	// override Options.BucketCount to something proportionate — 16M
	// buckets at 32 bytes each is 512 MiB of hash table alone.
	DefaultBucketCount = 1 << 24

	// DefaultOffsetCapacity is the initial number of atom-id slots
	// reserved in atoms.offsets before the first doubling.
	DefaultOffsetCapacity = 1 << 16
)

// Options configures a Store at open time.
type Options struct {
	MaxAtomSize     int64
	BucketCount     uint64
	OffsetCapacity  uint64
}

func (o Options) withDefaults() Options {
	if o.MaxAtomSize == 0 {
		o.MaxAtomSize = DefaultMaxAtomSize
	}
	if o.BucketCount == 0 {
		o.BucketCount = DefaultBucketCount
	}
	if o.OffsetCapacity == 0 {
		o.OffsetCapacity = DefaultOffsetCapacity
	}
	return o
}

// Store is Mercury's string interner. It is not safe for concurrent use
// without the containing QuadStore's lock; see the package doc comment.
type Store struct {
	opts Options
	log  zerolog.Logger

	data *mmapfile.File // atoms.atoms
	idx  *mmapfile.File // atoms.atomidx
	off  *mmapfile.File // atoms.offsets

	// debugLock is asserted held-for-write by Intern/Clear when built
	// with -tags mercury_debug (see assert_debug.go); nil and ignored in
	// production builds.
	debugLock *sync.RWMutex
}

// SetDebugLock installs mu as the lock Intern/Clear assert is held for
// write, under -tags mercury_debug. A no-op call in production builds;
// safe to call unconditionally from internal/store.Open.
func (s *Store) SetDebugLock(mu *sync.RWMutex) {
	s.debugLock = mu
}

// Open opens or creates the three AtomStore files rooted at dir (named
// atoms.atoms, atoms.atomidx, atoms.offsets per spec.md §6).
func Open(dir string, opts Options) (*Store, error) {
	opts = opts.withDefaults()

	dataFile, err := mmapfile.Open(filepath.Join(dir, "atoms.atoms"), headerSize+4096)
	if err != nil {
		return nil, merr.Wrap(merr.KindStorageIO, "atom.Open", err)
	}
	idxFile, err := mmapfile.Open(filepath.Join(dir, "atoms.atomidx"), int64(opts.BucketCount)*bucketSize)
	if err != nil {
		_ = dataFile.Close()
		return nil, merr.Wrap(merr.KindStorageIO, "atom.Open", err)
	}
	offFile, err := mmapfile.Open(filepath.Join(dir, "atoms.offsets"), int64(opts.OffsetCapacity)*8)
	if err != nil {
		_ = dataFile.Close()
		_ = idxFile.Close()
		return nil, merr.Wrap(merr.KindStorageIO, "atom.Open", err)
	}

	s := &Store{
		opts: opts,
		log:  telemetry.WithComponent("atom"),
		data: dataFile,
		idx:  idxFile,
		off:  offFile,
	}

	h := readHeader(dataFile.Bytes())
	if h.Magic != dataMagic {
		// Freshly created file: initialise the header in place.
		h = header{DataPosition: headerSize, NextAtomID: 1, Magic: dataMagic}
		writeHeader(dataFile.Bytes(), h)
	}

	return s, nil
}

// Close unmaps and closes all three backing files.
func (s *Store) Close() error {
	var firstErr error
	for _, f := range []*mmapfile.File{s.data, s.idx, s.off} {
		if err := f.Close(); err != nil && firstErr == nil {
			firstErr = err
		}
	}
	return firstErr
}

func (s *Store) header() header { return readHeader(s.data.Bytes()) }

func (s *Store) setHeader(h header) { writeHeader(s.data.Bytes(), h) }

// bucketCount returns the number of buckets the idx file is provisioned
// for (fixed at open time; spec.md does not grow the hash table).
func (s *Store) bucketCount() uint64 { return uint64(s.idx.Size()) / bucketSize }

// probe walks the quadratic-then-linear probe sequence for hash, calling
// visit for each candidate bucket index. visit returns stop=true to end
// the walk early (match found or empty slot found). probe returns
// merr.KindIndexExhausted if the cap is reached without a stop.
func (s *Store) probe(hash uint64, visit func(idx uint64, b bucket) (stop bool)) error {
	n := s.bucketCount()
	start := hash % n
	for i := uint64(0); i < maxProbes; i++ {
		var delta uint64
		if i < quadraticProbes {
			delta = i * i
		} else {
			delta = quadraticProbes*quadraticProbes + (i - quadraticProbes)
		}
		idx := (start + delta) % n
		b := readBucket(s.idx.Bytes(), idx)
		if visit(idx, b) {
			return nil
		}
	}
	return merr.New(merr.KindIndexExhausted, "atom.probe")
}

// GetID probes for bytes without inserting. Returns 0 if absent.
func (s *Store) GetID(value []byte) (uint64, error) {
	hash := fnv1a64(value)
	length := uint64(len(value))
	var found uint64
	err := s.probe(hash, func(_ uint64, b bucket) bool {
		if b.AtomID == 0 {
			return true // empty slot: definitively absent
		}
		if b.Hash != hash || b.Length != length {
			return false
		}
		if s.bytesEqual(b.Offset, b.Length, value) {
			found = b.AtomID
			return true
		}
		return false
	})
	if err != nil {
		return 0, err
	}
	return found, nil
}

func (s *Store) bytesEqual(recordOffset, length uint64, value []byte) bool {
	data := s.data.Bytes()
	start := recordOffset + 8 // past the length prefix
	if start+length > uint64(len(data)) {
		return false
	}
	candidate := data[start : start+length]
	if len(candidate) != len(value) {
		return false
	}
	for i := range value {
		if candidate[i] != value[i] {
			return false
		}
	}
	return true
}

// Intern returns the atom id for value, interning it if not already
// present. Fails with merr.KindAtomTooLarge if value exceeds MaxAtomSize.
func (s *Store) Intern(value []byte) (uint64, error) {
	assertWriteLocked(s.debugLock)
	if int64(len(value)) > s.opts.MaxAtomSize {
		return 0, merr.New(merr.KindAtomTooLarge, "atom.Intern")
	}

	hash := fnv1a64(value)
	length := uint64(len(value))

	var existing uint64
	var emptyIdx uint64
	foundEmpty := false
	err := s.probe(hash, func(idx uint64, b bucket) bool {
		if b.AtomID == 0 {
			emptyIdx = idx
			foundEmpty = true
			return true
		}
		if b.Hash == hash && b.Length == length && s.bytesEqual(b.Offset, b.Length, value) {
			existing = b.AtomID
			return true
		}
		return false
	})
	if err != nil {
		return 0, err
	}
	if existing != 0 {
		return existing, nil
	}
	if !foundEmpty {
		return 0, merr.New(merr.KindIndexExhausted, "atom.Intern")
	}

	recordOffset, err := s.appendRecord(value)
	if err != nil {
		return 0, err
	}

	h := s.header()
	atomID := h.NextAtomID
	if err := s.ensureOffsetCapacity(atomID + 1); err != nil {
		return 0, err
	}
	binary.LittleEndian.PutUint64(s.off.Bytes()[atomID*8:], recordOffset)

	publishBucket(s.idx.Bytes(), emptyIdx, hash, recordOffset, length, atomID)

	h.NextAtomID++
	h.AtomCount++
	h.TotalBytes += length
	s.setHeader(h)

	telemetry.AtomsInterned.Inc()
	return atomID, nil
}

// appendRecord writes [u64 length][bytes] at the current data position,
// growing the data file first if needed, and returns the record's offset.
func (s *Store) appendRecord(value []byte) (uint64, error) {
	h := s.header()
	recordSize := uint64(8 + len(value))
	needed := h.DataPosition + recordSize
	if needed > uint64(s.data.Size()) {
		newSize := uint64(s.data.Size())
		if newSize == 0 {
			newSize = headerSize
		}
		for needed > newSize {
			newSize *= 2
		}
		if err := s.data.Grow(int64(newSize)); err != nil {
			return 0, merr.Wrap(merr.KindStorageIO, "atom.appendRecord", err)
		}
	}

	buf := s.data.Bytes()
	binary.LittleEndian.PutUint64(buf[h.DataPosition:], uint64(len(value)))
	copy(buf[h.DataPosition+8:], value)

	offset := h.DataPosition
	h.DataPosition += recordSize
	s.setHeader(h)
	return offset, nil
}

func (s *Store) ensureOffsetCapacity(atomCount uint64) error {
	capacity := uint64(s.off.Size()) / 8
	if atomCount <= capacity {
		return nil
	}
	newCap := capacity
	if newCap == 0 {
		newCap = DefaultOffsetCapacity
	}
	for atomCount > newCap {
		newCap *= 2
	}
	if err := s.off.Grow(int64(newCap) * 8); err != nil {
		return merr.Wrap(merr.KindStorageIO, "atom.ensureOffsetCapacity", err)
	}
	return nil
}

// Get returns the interned bytes for atomID. The returned slice is a
// zero-copy view into the mapped blob, valid only while the caller
// continues to hold the containing store's read lock (growth remaps).
func (s *Store) Get(atomID uint64) ([]byte, error) {
	h := s.header()
	if atomID == 0 || atomID >= h.NextAtomID {
		return nil, fmt.Errorf("atom: id %d out of range", atomID)
	}
	offBuf := s.off.Bytes()
	if (atomID+1)*8 > uint64(len(offBuf)) {
		return nil, fmt.Errorf("atom: id %d out of range", atomID)
	}
	recordOffset := binary.LittleEndian.Uint64(offBuf[atomID*8:])
	data := s.data.Bytes()
	length := binary.LittleEndian.Uint64(data[recordOffset:])
	start := recordOffset + 8
	return data[start : start+length], nil
}

// Stats reports interning counters.
type Stats struct {
	AtomCount  uint64
	TotalBytes uint64
	AvgLength  float64
}

func (s *Store) Stats() Stats {
	h := s.header()
	st := Stats{AtomCount: h.AtomCount, TotalBytes: h.TotalBytes}
	if h.AtomCount > 0 {
		st.AvgLength = float64(h.TotalBytes) / float64(h.AtomCount)
	}
	return st
}

// Clear resets the store to empty: data position back to the header
// boundary, the hash table zeroed, counters reset. File lengths are left
// unchanged, per spec.md §4.1 and the "clear semantics" testable
// property in spec.md §8.
func (s *Store) Clear() error {
	assertWriteLocked(s.debugLock)
	idxBuf := s.idx.Bytes()
	for i := range idxBuf {
		idxBuf[i] = 0
	}
	s.setHeader(header{DataPosition: headerSize, NextAtomID: 1, Magic: dataMagic})
	return nil
}
