package atom

import "encoding/binary"

// bucketSize is the on-disk size of one hash bucket: atom_id, hash,
// offset, length, each a u64. atom_id == 0 means the slot is empty.
const bucketSize = 32

const (
	bucketOffAtomID = 0
	bucketOffHash   = 8
	bucketOffOffset = 16
	bucketOffLength = 24
)

type bucket struct {
	AtomID uint64
	Hash   uint64
	Offset uint64
	Length uint64
}

func readBucket(buf []byte, idx uint64) bucket {
	b := buf[idx*bucketSize:]
	return bucket{
		AtomID: binary.LittleEndian.Uint64(b[bucketOffAtomID:]),
		Hash:   binary.LittleEndian.Uint64(b[bucketOffHash:]),
		Offset: binary.LittleEndian.Uint64(b[bucketOffOffset:]),
		Length: binary.LittleEndian.Uint64(b[bucketOffLength:]),
	}
}

// publishBucket writes a fully-populated bucket slot in the publication
// order spec.md §4.1 and §9 require: hash, then length, then offset, then
// atom_id last. A probing reader that observes a non-zero atom_id is
// therefore guaranteed to see the other three fields already set.
//
// This is the single call site allowed to populate a bucket — callers
// must never write the four fields individually, so the ordering cannot
// be disturbed by an edit at a call site.
func publishBucket(buf []byte, idx uint64, hash, offset, length, atomID uint64) {
	b := buf[idx*bucketSize:]
	binary.LittleEndian.PutUint64(b[bucketOffHash:], hash)
	binary.LittleEndian.PutUint64(b[bucketOffLength:], length)
	binary.LittleEndian.PutUint64(b[bucketOffOffset:], offset)
	binary.LittleEndian.PutUint64(b[bucketOffAtomID:], atomID)
}

// fnv1a64 is the 64-bit FNV-1a hash spec.md §4.1 prescribes for bucket
// selection.
func fnv1a64(data []byte) uint64 {
	const (
		offsetBasis uint64 = 14695981039346656037
		prime       uint64 = 1099511628211
	)
	h := offsetBasis
	for _, b := range data {
		h ^= uint64(b)
		h *= prime
	}
	return h
}
