package trigram

import "encoding/binary"

// postsHeaderSize is the append-position header reserved at the start
// of trigram.posts, generalising atom.Store's DataPosition field.
const postsHeaderSize = 64

const initialPostingCapacity = 4

// postingHeaderSize is [i32 count][i32 capacity].
const postingHeaderSize = 8

func readPostsPosition(buf []byte) int64 {
	return int64(binary.LittleEndian.Uint64(buf[0:]))
}

func writePostsPosition(buf []byte, pos int64) {
	binary.LittleEndian.PutUint64(buf[0:], uint64(pos))
}

// readPosting decodes the posting list stored at offset.
func readPosting(buf []byte, offset int64) (count, capacity int32, atoms []uint64) {
	count = int32(binary.LittleEndian.Uint32(buf[offset:]))
	capacity = int32(binary.LittleEndian.Uint32(buf[offset+4:]))
	atoms = make([]uint64, count)
	base := offset + postingHeaderSize
	for i := int32(0); i < count; i++ {
		atoms[i] = binary.LittleEndian.Uint64(buf[base+int64(i)*8:])
	}
	return
}

// writePostingHeader updates only [count][capacity] in place, used when
// appending within existing capacity.
func writePostingHeader(buf []byte, offset int64, count, capacity int32) {
	binary.LittleEndian.PutUint32(buf[offset:], uint32(count))
	binary.LittleEndian.PutUint32(buf[offset+4:], uint32(capacity))
}

func writePostingAtom(buf []byte, offset int64, slot int32, atomID uint64) {
	base := offset + postingHeaderSize + int64(slot)*8
	binary.LittleEndian.PutUint64(buf[base:], atomID)
}

// recordSize returns the total byte footprint of a posting record with
// the given capacity.
func recordSize(capacity int32) int64 {
	return postingHeaderSize + int64(capacity)*8
}
