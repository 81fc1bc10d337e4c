package btree

import "encoding/binary"

// pageSize is the fixed on-disk page size (spec.md §3's "16 KiB pages").
const pageSize = 16 << 10

// metaSize reserves page 0 (a whole page) for the tree's header, so
// real page ids start at 1 and offset(id) = id*pageSize stays a clean
// multiple of pageSize.
const metaSize = pageSize

const pageHeaderSize = 40

const (
	offPageID        = 0
	offIsLeaf        = 8
	offEntryCount    = 16
	offParentPageID  = 24
	offLeftmostChild = 32 // next_leaf on a leaf page, leftmost child on an internal page
)

const entrySize = 96

const (
	eOffGraph      = 0
	eOffSubject    = 8
	eOffPredicate  = 16
	eOffObject     = 24
	eOffValidFrom  = 32
	eOffValidTo    = 40
	eOffTxTime     = 48
	eOffIsDeleted  = 56
	eOffCreatedAt  = 64
	eOffModifiedAt = 72
	eOffVersion    = 80
	eOffChild      = 88 // right child of this separator, on internal pages only
)

const maxEntriesPerPage = (pageSize - pageHeaderSize) / entrySize

type pageHeader struct {
	PageID        uint64
	IsLeaf        bool
	EntryCount    int
	ParentPageID  uint64
	LeftmostChild uint64 // == NextLeaf when IsLeaf
}

// pageOffset returns the byte offset of page id. Page 0 is reserved for
// the tree's metadata header (see metaSize); real pages start at id 1.
func pageOffset(id uint64) int64 { return int64(id) * pageSize }

func readPageHeader(buf []byte, id uint64) pageHeader {
	off := pageOffset(id)
	p := buf[off : off+pageHeaderSize]
	return pageHeader{
		PageID:        binary.LittleEndian.Uint64(p[offPageID:]),
		IsLeaf:        p[offIsLeaf] != 0,
		EntryCount:    int(binary.LittleEndian.Uint64(p[offEntryCount:])),
		ParentPageID:  binary.LittleEndian.Uint64(p[offParentPageID:]),
		LeftmostChild: binary.LittleEndian.Uint64(p[offLeftmostChild:]),
	}
}

func writePageHeader(buf []byte, h pageHeader) {
	off := pageOffset(h.PageID)
	p := buf[off : off+pageHeaderSize]
	binary.LittleEndian.PutUint64(p[offPageID:], h.PageID)
	if h.IsLeaf {
		p[offIsLeaf] = 1
	} else {
		p[offIsLeaf] = 0
	}
	binary.LittleEndian.PutUint64(p[offEntryCount:], uint64(h.EntryCount))
	binary.LittleEndian.PutUint64(p[offParentPageID:], h.ParentPageID)
	binary.LittleEndian.PutUint64(p[offLeftmostChild:], h.LeftmostChild)
}

func entryOffset(pageID uint64, i int) int64 {
	return pageOffset(pageID) + pageHeaderSize + int64(i)*entrySize
}

func readEntry(buf []byte, pageID uint64, i int) Entry {
	off := entryOffset(pageID, i)
	b := buf[off : off+entrySize]
	return Entry{
		Graph:      binary.LittleEndian.Uint64(b[eOffGraph:]),
		Subject:    binary.LittleEndian.Uint64(b[eOffSubject:]),
		Predicate:  binary.LittleEndian.Uint64(b[eOffPredicate:]),
		Object:     binary.LittleEndian.Uint64(b[eOffObject:]),
		ValidFrom:  int64(binary.LittleEndian.Uint64(b[eOffValidFrom:])),
		ValidTo:    int64(binary.LittleEndian.Uint64(b[eOffValidTo:])),
		TxTime:     int64(binary.LittleEndian.Uint64(b[eOffTxTime:])),
		IsDeleted:  b[eOffIsDeleted] != 0,
		CreatedAt:  int64(binary.LittleEndian.Uint64(b[eOffCreatedAt:])),
		ModifiedAt: int64(binary.LittleEndian.Uint64(b[eOffModifiedAt:])),
		Version:    binary.LittleEndian.Uint32(b[eOffVersion:]),
	}
}

func writeEntry(buf []byte, pageID uint64, i int, e Entry) {
	off := entryOffset(pageID, i)
	b := buf[off : off+entrySize]
	binary.LittleEndian.PutUint64(b[eOffGraph:], e.Graph)
	binary.LittleEndian.PutUint64(b[eOffSubject:], e.Subject)
	binary.LittleEndian.PutUint64(b[eOffPredicate:], e.Predicate)
	binary.LittleEndian.PutUint64(b[eOffObject:], e.Object)
	binary.LittleEndian.PutUint64(b[eOffValidFrom:], uint64(e.ValidFrom))
	binary.LittleEndian.PutUint64(b[eOffValidTo:], uint64(e.ValidTo))
	binary.LittleEndian.PutUint64(b[eOffTxTime:], uint64(e.TxTime))
	if e.IsDeleted {
		b[eOffIsDeleted] = 1
	} else {
		b[eOffIsDeleted] = 0
	}
	binary.LittleEndian.PutUint64(b[eOffCreatedAt:], uint64(e.CreatedAt))
	binary.LittleEndian.PutUint64(b[eOffModifiedAt:], uint64(e.ModifiedAt))
	binary.LittleEndian.PutUint32(b[eOffVersion:], e.Version)
}

// readChild reads the right-child pointer of internal entry i.
func readChild(buf []byte, pageID uint64, i int) uint64 {
	off := entryOffset(pageID, i) + eOffChild
	return binary.LittleEndian.Uint64(buf[off : off+8])
}

func writeChild(buf []byte, pageID uint64, i int, child uint64) {
	off := entryOffset(pageID, i) + eOffChild
	binary.LittleEndian.PutUint64(buf[off:off+8], child)
}
