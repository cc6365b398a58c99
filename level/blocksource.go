// Package level implements the on-disk block store (append-only level
// frames, segment sharding by key hash, mmap/RAM block residency), the
// compressor that turns one level-0 term into a committed block, and the
// commit engine that promotes level-0 into a new level.
package level

import (
	"os"

	"github.com/edsrzf/mmap-go"

	"github.com/SeekStorm/SeekStorm-sub001/errs"
)

// BlockSource is the single "give me the bytes for this byte range"
// accessor every downstream decoder consumes. A committed block is either
// a view into a memory-mapped index file or an owned byte slice copied
// into RAM; callers never need to know which.
type BlockSource interface {
	// Bytes returns the byte range [offset, offset+length) of the index
	// file. The returned slice must not be retained past the next Remap
	// (mmap mode) or Replace (RAM mode) call.
	Bytes(offset, length int64) ([]byte, error)
	// Len returns the total addressable length.
	Len() int64
	// Close releases any OS resources (the mmap view and file handle).
	Close() error
}

// MmapSource serves block bytes from a memory-mapped read-only view of the
// shard's index file. It is rebuilt after every commit since the file
// grows; concurrent readers holding a prior MmapSource see a consistent,
// possibly stale-by-one-level snapshot until they re-resolve it.
type MmapSource struct {
	file *os.File
	data mmap.MMap
}

// OpenMmapSource memory-maps path for reading.
func OpenMmapSource(path string) (*MmapSource, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}

	info, err := f.Stat()
	if err != nil {
		f.Close()
		return nil, err
	}
	if info.Size() == 0 {
		return &MmapSource{file: f}, nil
	}

	m, err := mmap.Map(f, mmap.RDONLY, 0)
	if err != nil {
		f.Close()
		return nil, err
	}

	return &MmapSource{file: f, data: m}, nil
}

// Bytes returns a view into the mapped file.
func (s *MmapSource) Bytes(offset, length int64) ([]byte, error) {
	if offset < 0 || length < 0 || offset+length > int64(len(s.data)) {
		return nil, errs.ErrCorruptIndex
	}

	return s.data[offset : offset+length], nil
}

// Len returns the mapped file's size.
func (s *MmapSource) Len() int64 {
	return int64(len(s.data))
}

// Remap re-maps the file after it has grown (e.g. following a commit).
func (s *MmapSource) Remap() error {
	if s.data != nil {
		if err := s.data.Unmap(); err != nil {
			return err
		}
	}

	info, err := s.file.Stat()
	if err != nil {
		return err
	}
	if info.Size() == 0 {
		s.data = nil
		return nil
	}

	m, err := mmap.Map(s.file, mmap.RDONLY, 0)
	if err != nil {
		return err
	}
	s.data = m

	return nil
}

// Close unmaps the view and closes the file handle.
func (s *MmapSource) Close() error {
	if s.data != nil {
		if err := s.data.Unmap(); err != nil {
			s.file.Close()
			return err
		}
	}

	return s.file.Close()
}

// RAMSource serves block bytes from an owned in-memory byte slice, copied
// from the index file at open/commit time instead of mapped.
type RAMSource struct {
	buf []byte
}

// NewRAMSource wraps an owned byte slice as a BlockSource.
func NewRAMSource(buf []byte) *RAMSource {
	return &RAMSource{buf: buf}
}

// Bytes returns a view into the owned buffer.
func (s *RAMSource) Bytes(offset, length int64) ([]byte, error) {
	if offset < 0 || length < 0 || offset+length > int64(len(s.buf)) {
		return nil, errs.ErrCorruptIndex
	}

	return s.buf[offset : offset+length], nil
}

// Len returns the buffer's size.
func (s *RAMSource) Len() int64 {
	return int64(len(s.buf))
}

// Replace swaps in a new backing buffer, e.g. after a commit appends to it.
func (s *RAMSource) Replace(buf []byte) {
	s.buf = buf
}

// Close is a no-op for an in-memory source.
func (s *RAMSource) Close() error {
	return nil
}
