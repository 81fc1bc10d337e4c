package trigram

import (
	"encoding/binary"

	"github.com/cespare/xxhash/v2"
)

const (
	// BucketCount is the fixed hash-table size spec.md §6 names for
	// trigram.hash.
	BucketCount = 1 << 20 // 1,048,576
	bucketSize  = 16

	quadraticProbes = 64
	maxProbes       = 4096
)

const (
	bucketOffTrigram = 0
	bucketOffCount   = 4
	bucketOffOffset  = 8
)

type bucket struct {
	Trigram uint32
	Count   int32
	Offset  int64
}

func readBucket(buf []byte, idx uint64) bucket {
	b := buf[idx*bucketSize:]
	return bucket{
		Trigram: binary.LittleEndian.Uint32(b[bucketOffTrigram:]),
		Count:   int32(binary.LittleEndian.Uint32(b[bucketOffCount:])),
		Offset:  int64(binary.LittleEndian.Uint64(b[bucketOffOffset:])),
	}
}

// writeBucket publishes trigram last, mirroring internal/atom's
// publishBucket publication order (a probing reader that sees a
// non-zero trigram is guaranteed to see a consistent offset/count).
func writeBucket(buf []byte, idx uint64, trigram uint32, count int32, offset int64) {
	b := buf[idx*bucketSize:]
	binary.LittleEndian.PutUint32(b[bucketOffCount:], uint32(count))
	binary.LittleEndian.PutUint64(b[bucketOffOffset:], uint64(offset))
	binary.LittleEndian.PutUint32(b[bucketOffTrigram:], trigram)
}

func writeBucketCount(buf []byte, idx uint64, count int32) {
	binary.LittleEndian.PutUint32(buf[idx*bucketSize+bucketOffCount:], uint32(count))
}

// mix64 is the 64-bit mixing hash spec.md §4.1 calls for ("a 64-bit
// splitmix-style mixing hash"); xxhash is the same ecosystem stand-in
// internal/pagecache already uses for page-id mixing.
func mix64(trigram uint32) uint64 {
	var b [4]byte
	binary.LittleEndian.PutUint32(b[:], trigram)
	return xxhash.Sum64(b[:])
}
