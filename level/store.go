package level

import (
	"os"
	"sort"

	"github.com/SeekStorm/SeekStorm-sub001/endian"
	"github.com/SeekStorm/SeekStorm-sub001/errs"
	"github.com/SeekStorm/SeekStorm-sub001/format"
	"github.com/SeekStorm/SeekStorm-sub001/postings"
	"github.com/SeekStorm/SeekStorm-sub001/section"
)

// fileHeaderSize is the byte length of section.FileHeader, written once
// before a shard's very first level frame.
const fileHeaderSize = 2

// LevelMeta locates one committed level frame within a shard's index file.
//
// This implementation models one commit as exactly one block: a level
// frame holds at most RoaringBlockSize freshly-indexed documents, so
// Incomplete is equivalent to "this level has fewer documents than a full
// block and must be reabsorbed before the next commit writes a new one."
type LevelMeta struct {
	StartOffset            int64
	FrameSize              int64
	SegmentHeads           []section.SegmentHead
	SegmentStartOffsets    []int64
	FieldCount             int
	IndexedDocCount        uint64
	PositionsSumNormalized uint64
	Incomplete             bool
}

// BlockObjectIndex is the RAM-resident per-block summary for one term,
// appended to a shard's in-memory index on every commit that touches the
// term. Mmap-resident shards do not maintain this; key heads are re-read
// from the mapped file on demand instead.
type BlockObjectIndex struct {
	BlockID                uint32
	PostingCountMinus1     uint16
	MaxBlockScore          float32
	MaxDocID               uint16
	MaxPDocID              uint16
	PointerPivotPDocID     uint16
	CompressionTypePointer uint32
}

// Store owns one shard's append-only index file, its mmap-or-RAM block
// residency, and the sequence of committed levels written to it so far.
type Store struct {
	Path        string
	SegmentBits uint
	AccessType  format.AccessType
	Engine      endian.EndianEngine

	file *os.File
	size int64

	mmapSource *MmapSource
	ramSource  *RAMSource
	source     BlockSource

	Levels []LevelMeta

	// RAMIndex accumulates one BlockObjectIndex per term per level it
	// appears in; populated only when AccessType == format.AccessRam.
	RAMIndex map[uint64][]BlockObjectIndex
}

// OpenStore opens (creating if necessary) the index file at path and
// establishes its block residency mode.
func OpenStore(path string, segmentBits uint, accessType format.AccessType, engine endian.EndianEngine) (*Store, error) {
	f, err := os.OpenFile(path, os.O_RDWR|os.O_CREATE, 0o644)
	if err != nil {
		return nil, err
	}

	info, err := f.Stat()
	if err != nil {
		f.Close()
		return nil, err
	}

	s := &Store{
		Path:        path,
		SegmentBits: segmentBits,
		AccessType:  accessType,
		Engine:      engine,
		file:        f,
		size:        info.Size(),
	}

	if accessType == format.AccessRam {
		buf := make([]byte, info.Size())
		if _, err := f.ReadAt(buf, 0); err != nil && info.Size() > 0 {
			f.Close()
			return nil, err
		}
		s.ramSource = NewRAMSource(buf)
		s.source = s.ramSource
	} else {
		m, err := OpenMmapSource(path)
		if err != nil {
			f.Close()
			return nil, err
		}
		s.mmapSource = m
		s.source = m
	}

	return s, nil
}

// Source returns the block-bytes accessor every decoder (committed-block
// decompression, query execution) reads through.
func (s *Store) Source() BlockSource {
	return s.source
}

// SegmentCount returns S = 2^SegmentBits.
func (s *Store) SegmentCount() int {
	return 1 << s.SegmentBits
}

// Close releases the store's file handle and mapped/owned bytes.
func (s *Store) Close() error {
	if s.source != nil {
		if err := s.source.Close(); err != nil {
			s.file.Close()
			return err
		}
	}

	return s.file.Close()
}

func (s *Store) remapSource() error {
	if s.AccessType == format.AccessRam {
		buf := make([]byte, s.size)
		if _, err := s.file.ReadAt(buf, 0); err != nil && s.size > 0 {
			return err
		}
		s.ramSource.Replace(buf)
		return nil
	}

	return s.mmapSource.Remap()
}

// CommitLevel reabsorbs a stale incomplete level (if one exists), then
// encodes every term currently held in acc into a new level frame,
// appends it to the index file, remaps the store's block source, and
// resets acc for the next write cycle.
//
// longestFieldID and docLengthCodes are supplied by the caller (the shard)
// since the store itself is schema-agnostic.
func (s *Store) CommitLevel(
	acc *postings.Accumulator,
	longestFieldID uint16,
	docLengthCodes [][]byte,
	indexedDocCount, positionsSumNormalized uint64,
	scoringFor func(key uint64, term *postings.Level0Term) ScoreParams,
) (LevelMeta, error) {
	if err := s.reabsorbIncompleteLevel(acc); err != nil {
		return LevelMeta{}, err
	}

	startOffset := s.size

	var frame []byte
	if len(s.Levels) == 0 {
		frame = append(frame, section.FileHeader{LongestFieldID: longestFieldID}.Bytes(s.Engine)...)
	}

	header := &section.LevelHeader{
		DocumentLengthCodes:    docLengthCodes,
		IndexedDocCount:        indexedDocCount,
		PositionsSumNormalized: positionsSumNormalized,
	}
	frame = append(frame, header.Bytes(s.Engine)...)

	segCount := s.SegmentCount()
	segmentKeys := make([][]uint64, segCount)
	for key := range acc.Terms() {
		seg := int(key) & (segCount - 1)
		segmentKeys[seg] = append(segmentKeys[seg], key)
	}
	for _, keys := range segmentKeys {
		sort.Slice(keys, func(i, j int) bool { return keys[i] < keys[j] })
	}

	segmentHeads := make([]section.SegmentHead, segCount)
	segmentBodies := make([][]byte, segCount)
	newEntries := make(map[uint64]BlockObjectIndex)

	for seg, keys := range segmentKeys {
		var keyHeadsBuf, bodiesBuf []byte
		for _, key := range keys {
			term := acc.Terms()[key]
			compressed := CompressTerm(acc.Arena().Bytes(), key, term, s.Engine, scoringFor(key, term))
			keyHeadsBuf = append(keyHeadsBuf, compressed.KeyHead.Bytes(s.Engine)...)
			bodiesBuf = append(bodiesBuf, compressed.Body...)

			if s.AccessType == format.AccessRam {
				newEntries[key] = BlockObjectIndex{
					BlockID:                uint32(len(s.Levels)),
					PostingCountMinus1:     compressed.KeyHead.PostingCountMinus1,
					MaxBlockScore:          compressed.MaxBlockScore,
					MaxDocID:               compressed.KeyHead.MaxDocID,
					MaxPDocID:              compressed.KeyHead.MaxPDocID,
					PointerPivotPDocID:     compressed.KeyHead.PointerPivotPDocID,
					CompressionTypePointer: compressed.KeyHead.CompressionTypePointer,
				}
			}
		}

		segmentHeads[seg] = section.SegmentHead{
			SegmentBlockLength: uint32(len(bodiesBuf)),
			SegmentKeyCount:    uint32(len(keys)),
		}
		segmentBodies[seg] = append(keyHeadsBuf, bodiesBuf...)
	}

	for _, h := range segmentHeads {
		frame = append(frame, h.Bytes(s.Engine)...)
	}

	segmentStartOffsets := make([]int64, segCount)
	cursor := startOffset + int64(len(frame))
	for seg, body := range segmentBodies {
		segmentStartOffsets[seg] = cursor
		frame = append(frame, body...)
		cursor += int64(len(body))
	}

	if _, err := s.file.WriteAt(frame, startOffset); err != nil {
		return LevelMeta{}, err
	}
	if err := s.file.Sync(); err != nil {
		return LevelMeta{}, err
	}
	s.size = startOffset + int64(len(frame))

	if err := s.remapSource(); err != nil {
		return LevelMeta{}, err
	}

	meta := LevelMeta{
		StartOffset:            startOffset,
		FrameSize:              int64(len(frame)),
		SegmentHeads:           segmentHeads,
		SegmentStartOffsets:    segmentStartOffsets,
		FieldCount:             len(docLengthCodes),
		IndexedDocCount:        indexedDocCount,
		PositionsSumNormalized: positionsSumNormalized,
		Incomplete:             indexedDocCount%section.RoaringBlockSize != 0,
	}
	s.Levels = append(s.Levels, meta)

	if s.AccessType == format.AccessRam {
		if s.RAMIndex == nil {
			s.RAMIndex = make(map[uint64][]BlockObjectIndex)
		}
		for key, entry := range newEntries {
			s.RAMIndex[key] = append(s.RAMIndex[key], entry)
		}
	}

	acc.Reset()

	return meta, nil
}

// segmentKeyRow is one decoded key-head row plus the key hash it was read
// from (the row itself does not repeat the hash's n-gram tag separately;
// it is recovered from the hash's low bits).
type segmentKeyRow struct {
	key  uint64
	head section.KeyHead
}

// readSegmentKeyRows decodes every key-head row of one segment, in order,
// and returns the file offset immediately following the last row (where
// the segment's body bytes begin).
func (s *Store) readSegmentKeyRows(segStart int64, keyCount uint32) ([]segmentKeyRow, int64, error) {
	rows := make([]segmentKeyRow, 0, keyCount)

	off := segStart
	for i := uint32(0); i < keyCount; i++ {
		peek, err := s.source.Bytes(off, 8)
		if err != nil {
			return nil, 0, err
		}
		hash := s.Engine.Uint64(peek)
		ngramType := format.NgramType(hash & format.NgramMask)
		rowSize := int64(section.KeyHead{NgramType: ngramType}.Size())

		rowBytes, err := s.source.Bytes(off, rowSize)
		if err != nil {
			return nil, 0, err
		}
		kh, err := section.ParseKeyHead(rowBytes, ngramType, s.Engine)
		if err != nil {
			return nil, 0, err
		}

		rows = append(rows, segmentKeyRow{key: hash, head: kh})
		off += rowSize
	}

	return rows, off, nil
}

// termBodyLength returns the byte length of one term's body (positions
// area + rank-position pointers + compressed docid set), computed from
// its key head and the segment body bytes it lives within, starting at
// cursor.
func termBodyLength(engine endian.EndianEngine, bodyBytes []byte, cursor int, head section.KeyHead) (int, error) {
	compressionType, bodyOffset := section.UnpackCompressionTypePointer(head.CompressionTypePointer)
	postingCount := head.PostingCount()
	docidStart := cursor + int(bodyOffset)

	var docidLen int
	switch compressionType {
	case format.CompressionArray:
		docidLen = postingCount * 2
	case format.CompressionRle:
		if docidStart+2 > len(bodyBytes) {
			return 0, errs.ErrCorruptIndex
		}
		runsCount := int(engine.Uint16(bodyBytes[docidStart : docidStart+2]))
		docidLen = 2 + runsCount*4
	case format.CompressionBitmap:
		docidLen = section.BitmapBodySize
	default:
		return 0, errs.ErrCorruptIndex
	}

	termBodyLen := int(bodyOffset) + docidLen
	if cursor+termBodyLen > len(bodyBytes) {
		return 0, errs.ErrCorruptIndex
	}

	return termBodyLen, nil
}

// LevelHeader re-reads and parses levelIdx's level header from the store's
// block source, for callers (the query executor) that need a level's
// document-length codes or average document length after it has already
// been committed and is no longer held in memory.
func (s *Store) LevelHeader(levelIdx int) (*section.LevelHeader, error) {
	if levelIdx < 0 || levelIdx >= len(s.Levels) {
		return nil, errs.ErrNotFound
	}

	lvl := s.Levels[levelIdx]
	headerStart := lvl.StartOffset
	if levelIdx == 0 {
		headerStart += fileHeaderSize
	}

	h := &section.LevelHeader{}
	headerSize := h.Size(lvl.FieldCount)

	data, err := s.source.Bytes(headerStart, int64(headerSize))
	if err != nil {
		return nil, err
	}

	if err := h.Parse(data, lvl.FieldCount, s.Engine); err != nil {
		return nil, err
	}

	return h, nil
}

// TermDocFrequency returns the number of postings key has across every
// committed level plus the given level-0 accumulator, for IDF calculation.
// It does not deduplicate by document: a term occurring in the same
// document across multiple levels (impossible for a live document, since
// a document belongs to exactly one block) is never double-counted in
// practice.
func (s *Store) TermDocFrequency(acc *postings.Accumulator, key uint64) (int, error) {
	total := 0

	if term, ok := acc.Term(key); ok {
		total += term.PostingCount
	}

	for levelIdx := range s.Levels {
		head, _, found, err := s.LookupTerm(levelIdx, key)
		if err != nil {
			return 0, err
		}
		if !found {
			continue
		}

		total += head.PostingCount()
	}

	return total, nil
}

// LookupTerm scans levelIdx's segment for key and returns its key head and
// body bytes. found is false if the term has no postings in that level.
func (s *Store) LookupTerm(levelIdx int, key uint64) (section.KeyHead, []byte, bool, error) {
	if levelIdx < 0 || levelIdx >= len(s.Levels) {
		return section.KeyHead{}, nil, false, errs.ErrNotFound
	}

	lvl := s.Levels[levelIdx]
	seg := int(key) & (s.SegmentCount() - 1)
	head := lvl.SegmentHeads[seg]
	segStart := lvl.SegmentStartOffsets[seg]

	rows, bodyStart, err := s.readSegmentKeyRows(segStart, head.SegmentKeyCount)
	if err != nil {
		return section.KeyHead{}, nil, false, err
	}

	bodyBytes, err := s.source.Bytes(bodyStart, int64(head.SegmentBlockLength))
	if err != nil {
		return section.KeyHead{}, nil, false, err
	}

	cursor := 0
	for _, r := range rows {
		termBodyLen, err := termBodyLength(s.Engine, bodyBytes, cursor, r.head)
		if err != nil {
			return section.KeyHead{}, nil, false, err
		}

		if r.key == key {
			return r.head, bodyBytes[cursor : cursor+termBodyLen], true, nil
		}

		cursor += termBodyLen
	}

	return section.KeyHead{}, nil, false, nil
}

// reabsorbIncompleteLevel decodes every posting in the last committed
// level back into acc and truncates the file to drop that level, if the
// last level is marked incomplete. It is a no-op otherwise.
func (s *Store) reabsorbIncompleteLevel(acc *postings.Accumulator) error {
	if len(s.Levels) == 0 {
		return nil
	}

	last := s.Levels[len(s.Levels)-1]
	if !last.Incomplete {
		return nil
	}

	for seg, head := range last.SegmentHeads {
		segStart := last.SegmentStartOffsets[seg]

		rows, bodyStart, err := s.readSegmentKeyRows(segStart, head.SegmentKeyCount)
		if err != nil {
			return err
		}

		bodyBytes, err := s.source.Bytes(bodyStart, int64(head.SegmentBlockLength))
		if err != nil {
			return err
		}

		cursor := 0
		for _, r := range rows {
			termBodyLen, err := termBodyLength(s.Engine, bodyBytes, cursor, r.head)
			if err != nil {
				return err
			}
			termBody := bodyBytes[cursor : cursor+termBodyLen]

			decoded, err := DecompressTerm(r.head, termBody, s.Engine, acc.LongestFieldID)
			if err != nil {
				return err
			}

			for _, dp := range decoded {
				fields := make([]postings.FieldPositions, len(dp.Fields))
				for i, f := range dp.Fields {
					fields[i] = postings.FieldPositions{FieldID: f.FieldID, Positions: f.Positions}
				}
				if err := acc.IndexPosting(r.key, r.head.NgramType, dp.DocID, fields, true); err != nil {
					return err
				}
			}

			cursor += termBodyLen
		}
	}

	if err := s.file.Truncate(last.StartOffset); err != nil {
		return err
	}
	s.size = last.StartOffset
	s.Levels = s.Levels[:len(s.Levels)-1]

	return s.remapSource()
}
