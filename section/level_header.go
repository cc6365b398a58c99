package section

import (
	"github.com/SeekStorm/SeekStorm-sub001/endian"
	"github.com/SeekStorm/SeekStorm-sub001/errs"
)

// LevelHeader is the fixed-shape prefix of one level frame, excluding the
// one-time longest_field_id word that only appears in the shard's first
// frame (see FileHeader).
type LevelHeader struct {
	// DocumentLengthCodes holds one 65536-byte per-document length-code
	// array per indexed field, in field order.
	DocumentLengthCodes [][]byte
	// IndexedDocCount is the total document count covered by this level
	// and all prior levels of the shard.
	IndexedDocCount uint64
	// PositionsSumNormalized is the running sum of normalized per-document
	// position counts, used to derive the average document length for
	// BM25 length normalization.
	PositionsSumNormalized uint64
}

// Size returns the byte length of the header for a given field count.
func (LevelHeader) Size(fieldCount int) int {
	return fieldCount*DocLengthCodesSize + 16
}

// Bytes serializes the header using the given byte-order engine.
func (h *LevelHeader) Bytes(engine endian.EndianEngine) []byte {
	buf := make([]byte, 0, h.Size(len(h.DocumentLengthCodes)))
	for _, codes := range h.DocumentLengthCodes {
		buf = append(buf, codes...)
	}
	buf = engine.AppendUint64(buf, h.IndexedDocCount)
	buf = engine.AppendUint64(buf, h.PositionsSumNormalized)

	return buf
}

// Parse reads a LevelHeader out of data, given the number of indexed
// fields. It returns errs.ErrInvalidHeaderSize if data is shorter than the
// computed header size.
func (h *LevelHeader) Parse(data []byte, fieldCount int, engine endian.EndianEngine) error {
	want := h.Size(fieldCount)
	if len(data) < want {
		return errs.ErrInvalidHeaderSize
	}

	h.DocumentLengthCodes = make([][]byte, fieldCount)
	off := 0
	for i := 0; i < fieldCount; i++ {
		h.DocumentLengthCodes[i] = data[off : off+DocLengthCodesSize]
		off += DocLengthCodesSize
	}
	h.IndexedDocCount = engine.Uint64(data[off : off+8])
	h.PositionsSumNormalized = engine.Uint64(data[off+8 : off+16])

	return nil
}

// AverageDocumentLength returns positions_sum_normalized / indexed_doc_count,
// the quantity the scorer's length-quotient cache is built from. It returns
// zero when no documents have been indexed.
func (h *LevelHeader) AverageDocumentLength() float64 {
	if h.IndexedDocCount == 0 {
		return 0
	}

	return float64(h.PositionsSumNormalized) / float64(h.IndexedDocCount)
}

// FileHeader is the one-time prefix written before the shard's very first
// level frame.
type FileHeader struct {
	LongestFieldID uint16
}

// Bytes serializes the file header.
func (h FileHeader) Bytes(engine endian.EndianEngine) []byte {
	buf := make([]byte, 2)
	engine.PutUint16(buf, h.LongestFieldID)

	return buf
}

// ParseFileHeader reads the file header from data.
func ParseFileHeader(data []byte, engine endian.EndianEngine) (FileHeader, error) {
	if len(data) < 2 {
		return FileHeader{}, errs.ErrInvalidHeaderSize
	}

	return FileHeader{LongestFieldID: engine.Uint16(data[:2])}, nil
}
