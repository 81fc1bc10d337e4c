package mmapfile

import (
	"fmt"
	"os"
	"sync"
	"sync/atomic"

	"golang.org/x/sys/unix"
)

// File is a growable memory-mapped file. Growth extends the underlying
// file first, maps the new length, publishes the new base pointer, then
// disposes of the old mapping — the ordering spec.md §4.1 prescribes so
// the mapped region never transiently exceeds the file length.
type File struct {
	path string
	fd   *os.File

	growMu sync.Mutex // serializes Grow calls; see doc.go

	base atomic.Pointer[[]byte] // current mapping; swapped by Grow
	size atomic.Int64
}

// Open opens (creating if absent) the file at path and ensures it is at
// least minSize bytes, mapping the result PROT_READ|PROT_WRITE/MAP_SHARED.
func Open(path string, minSize int64) (*File, error) {
	fd, err := os.OpenFile(path, os.O_RDWR|os.O_CREATE, 0o600)
	if err != nil {
		return nil, fmt.Errorf("mmapfile: open %s: %w", path, err)
	}

	info, err := fd.Stat()
	if err != nil {
		_ = fd.Close()
		return nil, fmt.Errorf("mmapfile: stat %s: %w", path, err)
	}

	size := info.Size()
	if size < minSize {
		if err := fd.Truncate(minSize); err != nil {
			_ = fd.Close()
			return nil, fmt.Errorf("mmapfile: truncate %s to %d: %w", path, minSize, err)
		}
		size = minSize
	}

	f := &File{path: path, fd: fd}
	if err := f.mapAndPublish(size); err != nil {
		_ = fd.Close()
		return nil, err
	}
	return f, nil
}

func (f *File) mapAndPublish(size int64) error {
	data, err := unix.Mmap(int(f.fd.Fd()), 0, int(size), unix.PROT_READ|unix.PROT_WRITE, unix.MAP_SHARED)
	if err != nil {
		return fmt.Errorf("mmapfile: mmap %s (size %d): %w", f.path, size, err)
	}
	old := f.base.Swap(&data)
	f.size.Store(size)
	if old != nil {
		// Dispose of the previous mapping right after the new one is
		// published. A slice loaded from Bytes before the swap points at
		// the unmapped region and must not be used afterwards.
		if err := unix.Munmap(*old); err != nil {
			return fmt.Errorf("mmapfile: munmap stale mapping of %s: %w", f.path, err)
		}
	}
	return nil
}

// Bytes returns the current mapped region. Valid until the next Grow;
// per spec.md §5 callers must hold the containing store's lock (at least
// a read lock) for the duration of use.
func (f *File) Bytes() []byte {
	p := f.base.Load()
	if p == nil {
		return nil
	}
	return *p
}

// Size returns the current file/mapping length.
func (f *File) Size() int64 { return f.size.Load() }

// Grow extends the file to newSize (must be > current size) and remaps
// it, publishing the new base pointer. Acquires the internal growth
// mutex; the caller must additionally hold the containing store's write
// lock per spec.md §5's suspension-point list.
func (f *File) Grow(newSize int64) error {
	f.growMu.Lock()
	defer f.growMu.Unlock()

	if newSize <= f.size.Load() {
		return nil
	}
	if err := f.fd.Truncate(newSize); err != nil {
		return fmt.Errorf("mmapfile: grow %s to %d: %w", f.path, newSize, err)
	}
	return f.mapAndPublish(newSize)
}

// Sync flushes the mapped pages and the file's metadata to stable
// storage (msync + fsync).
func (f *File) Sync() error {
	data := f.Bytes()
	if len(data) > 0 {
		if err := unix.Msync(data, unix.MS_SYNC); err != nil {
			return fmt.Errorf("mmapfile: msync %s: %w", f.path, err)
		}
	}
	if err := f.fd.Sync(); err != nil {
		return fmt.Errorf("mmapfile: fsync %s: %w", f.path, err)
	}
	return nil
}

// Truncate shrinks the backing file and remaps it to exactly size bytes.
// Used by Clear() implementations that reset a structure without
// otherwise touching file length semantics (callers typically immediately
// Grow back to the reserved minimum).
func (f *File) Truncate(size int64) error {
	f.growMu.Lock()
	defer f.growMu.Unlock()

	if err := f.fd.Truncate(size); err != nil {
		return fmt.Errorf("mmapfile: truncate %s to %d: %w", f.path, size, err)
	}
	return f.mapAndPublish(size)
}

// Close unmaps and closes the underlying file.
func (f *File) Close() error {
	if p := f.base.Load(); p != nil {
		_ = unix.Munmap(*p)
	}
	return f.fd.Close()
}

// Path returns the path this File was opened from.
func (f *File) Path() string { return f.path }
