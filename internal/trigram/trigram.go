package trigram

import (
	"path/filepath"
	"strings"

	"github.com/rs/zerolog"

	"github.com/cuemby/mercury/internal/merr"
	"github.com/cuemby/mercury/internal/mmapfile"
	"github.com/cuemby/mercury/internal/telemetry"
)

// Index is Mercury's optional full-text posting-list index (see doc.go).
// Not safe for concurrent use without the containing QuadStore's write
// lock, matching every other on-disk structure in the core.
type Index struct {
	hash  *mmapfile.File
	posts *mmapfile.File
	log   zerolog.Logger
}

// Open opens or creates trigram.hash and trigram.posts rooted at dir.
func Open(dir string) (*Index, error) {
	hash, err := mmapfile.Open(filepath.Join(dir, "trigram.hash"), BucketCount*bucketSize)
	if err != nil {
		return nil, merr.Wrap(merr.KindStorageIO, "trigram.Open", err)
	}
	posts, err := mmapfile.Open(filepath.Join(dir, "trigram.posts"), postsHeaderSize+4096)
	if err != nil {
		_ = hash.Close()
		return nil, merr.Wrap(merr.KindStorageIO, "trigram.Open", err)
	}

	idx := &Index{hash: hash, posts: posts, log: telemetry.WithComponent("trigram")}
	if readPostsPosition(posts.Bytes()) == 0 {
		writePostsPosition(posts.Bytes(), postsHeaderSize)
	}
	return idx, nil
}

// Close unmaps and closes both backing files.
func (idx *Index) Close() error {
	var firstErr error
	if err := idx.hash.Close(); err != nil {
		firstErr = err
	}
	if err := idx.posts.Close(); err != nil && firstErr == nil {
		firstErr = err
	}
	return firstErr
}

// Clear resets both backing files to empty, mirroring
// internal/atom.Store.Clear (hash table zeroed, posts position reset to
// the header boundary; file lengths are left unchanged).
func (idx *Index) Clear() error {
	buf := idx.hash.Bytes()
	for i := range buf {
		buf[i] = 0
	}
	postsBuf := idx.posts.Bytes()
	for i := range postsBuf {
		postsBuf[i] = 0
	}
	writePostsPosition(idx.posts.Bytes(), postsHeaderSize)
	return nil
}

// normalize lowercases text for case-insensitive trigram matching.
func normalize(text string) []byte {
	return []byte(strings.ToLower(text))
}

// trigramsOf returns the distinct trigrams in normalized, byte-windowed
// (not rune-windowed, see doc.go).
func trigramsOf(normalized []byte) []uint32 {
	if len(normalized) < 3 {
		return nil
	}
	seen := make(map[uint32]struct{}, len(normalized))
	var out []uint32
	for i := 0; i+3 <= len(normalized); i++ {
		t := uint32(normalized[i])<<16 | uint32(normalized[i+1])<<8 | uint32(normalized[i+2])
		if _, ok := seen[t]; !ok {
			seen[t] = struct{}{}
			out = append(out, t)
		}
	}
	return out
}

// probe walks trigram's quadratic-then-linear probe sequence, mirroring
// internal/atom.Store.probe.
func (idx *Index) probe(trigram uint32, visit func(slot uint64, b bucket) (stop bool)) error {
	buf := idx.hash.Bytes()
	start := mix64(trigram) % BucketCount
	for i := uint64(0); i < maxProbes; i++ {
		var delta uint64
		if i < quadraticProbes {
			delta = i * i
		} else {
			delta = quadraticProbes*quadraticProbes + (i - quadraticProbes)
		}
		slot := (start + delta) % BucketCount
		b := readBucket(buf, slot)
		if visit(slot, b) {
			return nil
		}
	}
	return merr.New(merr.KindIndexExhausted, "trigram.probe")
}

func (idx *Index) ensurePostsCapacity(upto int64) error {
	if upto <= idx.posts.Size() {
		return nil
	}
	newSize := idx.posts.Size()
	for upto > newSize {
		newSize *= 2
	}
	return idx.posts.Grow(newSize)
}

// appendPosting allocates a fresh capacity-4 posting record at the tail
// of trigram.posts containing a single atom id, returning its offset.
func (idx *Index) appendPosting(atomID uint64) (int64, error) {
	pos := readPostsPosition(idx.posts.Bytes())
	size := recordSize(initialPostingCapacity)
	if err := idx.ensurePostsCapacity(pos + size); err != nil {
		return 0, merr.Wrap(merr.KindStorageIO, "trigram.appendPosting", err)
	}
	buf := idx.posts.Bytes()
	writePostingHeader(buf, pos, 1, initialPostingCapacity)
	writePostingAtom(buf, pos, 0, atomID)
	writePostsPosition(buf, pos+size)
	return pos, nil
}

// growPosting reallocates the posting at offset (with count==capacity)
// to double its capacity at the blob's tail, abandoning the old space —
// the posts file is append-only like atoms.atoms, never reclaiming
// space (see doc.go).
func (idx *Index) growPosting(offset int64, count, capacity int32, atomID uint64) (newOffset int64, newCount int32, err error) {
	newCapacity := capacity * 2
	pos := readPostsPosition(idx.posts.Bytes())
	size := recordSize(newCapacity)
	if err := idx.ensurePostsCapacity(pos + size); err != nil {
		return 0, 0, merr.Wrap(merr.KindStorageIO, "trigram.growPosting", err)
	}
	buf := idx.posts.Bytes()
	_, _, atoms := readPosting(buf, offset)
	writePostingHeader(buf, pos, count, newCapacity)
	for i, a := range atoms {
		writePostingAtom(buf, pos, int32(i), a)
	}
	writePostingAtom(buf, pos, count, atomID)
	writePostsPosition(buf, pos+size)
	return pos, count + 1, nil
}

// Add records atomID against every distinct trigram in text. Callers
// should invoke this once per (atom, text) pair — Add does not
// deduplicate repeat calls, matching the append-only posting-list
// design (see doc.go).
func (idx *Index) Add(atomID uint64, text string) error {
	for _, t := range trigramsOf(normalize(text)) {
		if err := idx.addOne(atomID, t); err != nil {
			return err
		}
	}
	return nil
}

func (idx *Index) addOne(atomID uint64, trigram uint32) error {
	var (
		targetSlot              uint64
		existing                bucket
		foundExisting, foundGap bool
		gapSlot                 uint64
	)
	err := idx.probe(trigram, func(slot uint64, b bucket) bool {
		if b.Trigram == 0 {
			gapSlot = slot
			foundGap = true
			return true
		}
		if b.Trigram == trigram {
			targetSlot = slot
			existing = b
			foundExisting = true
			return true
		}
		return false
	})
	if err != nil {
		return err
	}

	buf := idx.hash.Bytes()
	if foundExisting {
		_, capacity, _ := readPosting(idx.posts.Bytes(), existing.Offset)
		if existing.Count < capacity {
			writePostingAtom(idx.posts.Bytes(), existing.Offset, existing.Count, atomID)
			writePostingHeader(idx.posts.Bytes(), existing.Offset, existing.Count+1, capacity)
			writeBucketCount(buf, targetSlot, existing.Count+1)
			return nil
		}
		newOffset, newCount, err := idx.growPosting(existing.Offset, existing.Count, capacity, atomID)
		if err != nil {
			return err
		}
		writeBucket(buf, targetSlot, trigram, newCount, newOffset)
		return nil
	}

	if !foundGap {
		return merr.New(merr.KindIndexExhausted, "trigram.addOne")
	}
	offset, err := idx.appendPosting(atomID)
	if err != nil {
		return err
	}
	writeBucket(buf, gapSlot, trigram, 1, offset)
	return nil
}

// Search returns every atom id whose indexed text contains all of
// query's trigrams — candidates only; callers must still verify against
// the real interned value (see doc.go).
func (idx *Index) Search(query string) ([]uint64, error) {
	trigrams := trigramsOf(normalize(query))
	if len(trigrams) == 0 {
		return nil, nil
	}

	var lists [][]uint64
	for _, t := range trigrams {
		list, err := idx.postingFor(t)
		if err != nil {
			return nil, err
		}
		if len(list) == 0 {
			return nil, nil
		}
		lists = append(lists, list)
	}
	return intersectAll(lists), nil
}

func (idx *Index) postingFor(trigram uint32) ([]uint64, error) {
	var result []uint64
	err := idx.probe(trigram, func(_ uint64, b bucket) bool {
		if b.Trigram == 0 {
			return true // absent
		}
		if b.Trigram == trigram {
			_, _, atoms := readPosting(idx.posts.Bytes(), b.Offset)
			result = atoms
			return true
		}
		return false
	})
	return result, err
}

func intersectAll(lists [][]uint64) []uint64 {
	sortAsc := func(s []uint64) {
		for i := 1; i < len(s); i++ {
			for j := i; j > 0 && s[j-1] > s[j]; j-- {
				s[j-1], s[j] = s[j], s[j-1]
			}
		}
	}
	shortestIdx := 0
	for i, l := range lists {
		if len(l) < len(lists[shortestIdx]) {
			shortestIdx = i
		}
	}
	shortest := lists[shortestIdx]

	others := make([][]uint64, 0, len(lists)-1)
	for i, l := range lists {
		if i == shortestIdx {
			continue
		}
		cp := append([]uint64(nil), l...)
		sortAsc(cp)
		others = append(others, cp)
	}

	var out []uint64
	for _, candidate := range shortest {
		inAll := true
		for _, l := range others {
			if !containsSorted(l, candidate) {
				inAll = false
				break
			}
		}
		if inAll {
			out = append(out, candidate)
		}
	}
	return out
}

func containsSorted(sorted []uint64, v uint64) bool {
	lo, hi := 0, len(sorted)
	for lo < hi {
		mid := (lo + hi) / 2
		switch {
		case sorted[mid] == v:
			return true
		case sorted[mid] < v:
			lo = mid + 1
		default:
			hi = mid
		}
	}
	return false
}
