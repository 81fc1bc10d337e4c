package atom

import "encoding/binary"

// headerSize is the reserved metadata region at the start of atoms.atoms.
const headerSize = 1024

// dataMagic is "UTF8ATOM" per spec.md §6, stored as the literal u64 value.
const dataMagic uint64 = 0x5554463841544F4D

const (
	offDataPosition = 0
	offNextAtomID   = 8
	offAtomCount    = 16
	offTotalBytes   = 24
	offMagic        = 32
)

// header is the decoded form of the first headerSize bytes of atoms.atoms.
type header struct {
	DataPosition uint64
	NextAtomID   uint64
	AtomCount    uint64
	TotalBytes   uint64
	Magic        uint64
}

func readHeader(buf []byte) header {
	return header{
		DataPosition: binary.LittleEndian.Uint64(buf[offDataPosition:]),
		NextAtomID:   binary.LittleEndian.Uint64(buf[offNextAtomID:]),
		AtomCount:    binary.LittleEndian.Uint64(buf[offAtomCount:]),
		TotalBytes:   binary.LittleEndian.Uint64(buf[offTotalBytes:]),
		Magic:        binary.LittleEndian.Uint64(buf[offMagic:]),
	}
}

func writeHeader(buf []byte, h header) {
	binary.LittleEndian.PutUint64(buf[offDataPosition:], h.DataPosition)
	binary.LittleEndian.PutUint64(buf[offNextAtomID:], h.NextAtomID)
	binary.LittleEndian.PutUint64(buf[offAtomCount:], h.AtomCount)
	binary.LittleEndian.PutUint64(buf[offTotalBytes:], h.TotalBytes)
	binary.LittleEndian.PutUint64(buf[offMagic:], h.Magic)
}
