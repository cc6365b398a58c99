// Package docstore implements the length-prefixed, offset-indexed document
// body store external to the core index: every committed level gets a
// 4-byte frame length, a fixed 65536-entry u32 offset array (one
// cumulative end-offset per block-local document id), and the concatenated
// compressed document bodies that follow it.
//
// This mirrors level.Store's "one commit is one block" simplification: a
// docstore level is always written in full by one CommitLevel call, so
// there is no incomplete-block offset patching to perform on reabsorption.
package docstore

import (
	"encoding/json"
	"os"
	"sync"

	"github.com/SeekStorm/SeekStorm-sub001/compress"
	"github.com/SeekStorm/SeekStorm-sub001/endian"
	"github.com/SeekStorm/SeekStorm-sub001/errs"
	"github.com/SeekStorm/SeekStorm-sub001/section"
)

// offsetTableEntries is the fixed per-level offset-array length: one slot
// per possible block-local document id.
const offsetTableEntries = section.RoaringBlockSize

// levelLocation locates one committed level's offset table and blob region
// within the doc store file.
type levelLocation struct {
	start     int64
	blobStart int64
}

// Store is one shard's append-only document body file.
type Store struct {
	mu     sync.Mutex
	path   string
	file   *os.File
	codec  compress.Codec
	engine endian.EndianEngine

	offsets []uint32
	blob    []byte

	levels []levelLocation
}

// Path returns the file path this store was opened from.
func (s *Store) Path() string { return s.path }

// Open opens (creating if necessary) a shard's doc store file, compressing
// document bodies with the given algorithm, and recovers the location of
// every level frame already written to it.
func Open(path string, algo compress.Algorithm, engine endian.EndianEngine) (*Store, error) {
	f, err := os.OpenFile(path, os.O_RDWR|os.O_CREATE, 0o644)
	if err != nil {
		return nil, err
	}

	codec, err := compress.GetCodec(algo)
	if err != nil {
		f.Close()
		return nil, err
	}

	s := &Store{
		path:    path,
		file:    f,
		codec:   codec,
		engine:  engine,
		offsets: make([]uint32, offsetTableEntries),
	}

	if err := s.recoverLevels(); err != nil {
		f.Close()
		return nil, err
	}

	return s, nil
}

// recoverLevels scans an existing doc store file frame by frame, rebuilding
// s.levels so a reopened store can still Get from levels committed in a
// prior process.
func (s *Store) recoverLevels() error {
	end, err := s.file.Seek(0, os.SEEK_END)
	if err != nil {
		return err
	}

	var pos int64
	header := make([]byte, 4)
	for pos < end {
		if _, err := s.file.ReadAt(header, pos); err != nil {
			return err
		}
		frameLen := s.engine.Uint32(header)

		s.levels = append(s.levels, levelLocation{
			start:     pos,
			blobStart: pos + 4 + int64(offsetTableEntries*4),
		})

		pos += 4 + int64(frameLen)
	}

	return nil
}

// Put JSON-encodes and compresses doc, storing it as blockLocal's body
// within the pending (uncommitted) level.
func (s *Store) Put(blockLocal uint16, doc any) error {
	raw, err := json.Marshal(doc)
	if err != nil {
		return err
	}

	compressed, err := s.codec.Compress(raw)
	if err != nil {
		return err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	s.blob = append(s.blob, compressed...)
	s.offsets[blockLocal] = uint32(len(s.blob))

	return nil
}

// CommitLevel flushes the pending block's offset table and blob region as
// one level frame, then resets pending state for the next block.
func (s *Store) CommitLevel() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	start, err := s.file.Seek(0, os.SEEK_END)
	if err != nil {
		return err
	}

	frameLen := uint32(offsetTableEntries*4 + len(s.blob))
	header := make([]byte, 4)
	s.engine.PutUint32(header, frameLen)
	if _, err := s.file.Write(header); err != nil {
		return err
	}

	offsetBuf := make([]byte, offsetTableEntries*4)
	for i, off := range s.offsets {
		s.engine.PutUint32(offsetBuf[i*4:i*4+4], off)
	}
	if _, err := s.file.Write(offsetBuf); err != nil {
		return err
	}
	if _, err := s.file.Write(s.blob); err != nil {
		return err
	}
	if err := s.file.Sync(); err != nil {
		return err
	}

	s.levels = append(s.levels, levelLocation{
		start:     start,
		blobStart: start + 4 + int64(offsetTableEntries*4),
	})

	s.offsets = make([]uint32, offsetTableEntries)
	s.blob = nil

	return nil
}

// Get retrieves and decompresses blockLocal's document body from committed
// level levelIdx. It returns errs.ErrNotFound if the slot was never
// written (its end offset equals the previous entry's).
func (s *Store) Get(levelIdx int, blockLocal uint16) ([]byte, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if levelIdx < 0 || levelIdx >= len(s.levels) {
		return nil, errs.ErrNotFound
	}
	loc := s.levels[levelIdx]

	var startOff uint32
	if blockLocal > 0 {
		buf := make([]byte, 4)
		if _, err := s.file.ReadAt(buf, loc.start+4+int64(blockLocal-1)*4); err != nil {
			return nil, err
		}
		startOff = s.engine.Uint32(buf)
	}

	endBuf := make([]byte, 4)
	if _, err := s.file.ReadAt(endBuf, loc.start+4+int64(blockLocal)*4); err != nil {
		return nil, err
	}
	endOff := s.engine.Uint32(endBuf)

	if endOff <= startOff {
		return nil, errs.ErrNotFound
	}

	compressed := make([]byte, endOff-startOff)
	if _, err := s.file.ReadAt(compressed, loc.blobStart+int64(startOff)); err != nil {
		return nil, err
	}

	return s.codec.Decompress(compressed)
}

// LevelCount returns the number of committed levels.
func (s *Store) LevelCount() int {
	s.mu.Lock()
	defer s.mu.Unlock()

	return len(s.levels)
}

// Close releases the doc store's file handle.
func (s *Store) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	return s.file.Close()
}
