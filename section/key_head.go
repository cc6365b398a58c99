package section

import (
	"math"

	"github.com/SeekStorm/SeekStorm-sub001/endian"
	"github.com/SeekStorm/SeekStorm-sub001/errs"
	"github.com/SeekStorm/SeekStorm-sub001/format"
)

// KeyHead is the fixed-size row summarizing one term's block within a
// segment body. Its on-disk size is 24, 25, or 26 bytes depending on the
// term's n-gram arity: a single term carries no component document-
// frequency bytes, a bigram carries one, a trigram carries two.
type KeyHead struct {
	KeyHash                uint64
	PostingCountMinus1     uint16
	MaxDocID                uint16
	MaxPDocID               uint16
	PointerPivotPDocID      uint16
	CompressionTypePointer uint32
	// MaxBlockScore is the highest BM25-like score any posting in this
	// term's block achieved at commit time, the WAND pruning bound the
	// query executor compares against its current top-k cutoff before
	// deciding whether to decode this block at all.
	MaxBlockScore float32

	// NgramType selects the row's on-disk size; NgramSingle (arity 1)
	// carries none of the PcNgramNLog fields, arity 2 carries PcNgram1Log
	// only, arity 3 carries both.
	NgramType format.NgramType
	// PcNgram1Log / PcNgram2Log are the compressed (log-code) document
	// frequency estimates of the n-gram's component terms. Unused for
	// NgramSingle.
	PcNgram1Log uint8
	PcNgram2Log uint8
}

// Size returns the on-disk row size for the head's n-gram arity.
func (k KeyHead) Size() int {
	switch k.NgramType.Arity() {
	case 1:
		return KeyHeadSizeSingle
	case 2:
		return KeyHeadSizeBigram
	default:
		return KeyHeadSizeTrigram
	}
}

// PackCompressionTypePointer packs a 2-bit compression type and a 30-bit
// body offset into one u32, as stored in CompressionTypePointer.
func PackCompressionTypePointer(compressionType format.CompressionType, offset uint32) uint32 {
	return uint32(compressionType)<<compressionTypeShift | (offset & compressionTypeOffsetMask)
}

// UnpackCompressionTypePointer splits a packed compression_type_pointer
// back into its compression type tag and body offset.
func UnpackCompressionTypePointer(packed uint32) (format.CompressionType, uint32) {
	return format.CompressionType(packed >> compressionTypeShift), packed & compressionTypeOffsetMask
}

// CompressionType returns the codec tag packed into CompressionTypePointer.
func (k KeyHead) CompressionType() format.CompressionType {
	t, _ := UnpackCompressionTypePointer(k.CompressionTypePointer)
	return t
}

// BodyOffset returns the body offset packed into CompressionTypePointer.
func (k KeyHead) BodyOffset() uint32 {
	_, off := UnpackCompressionTypePointer(k.CompressionTypePointer)
	return off
}

// Bytes serializes the key head row.
func (k KeyHead) Bytes(engine endian.EndianEngine) []byte {
	buf := make([]byte, 0, k.Size())
	buf = engine.AppendUint64(buf, k.KeyHash)
	buf = engine.AppendUint16(buf, k.PostingCountMinus1)
	buf = engine.AppendUint16(buf, k.MaxDocID)
	buf = engine.AppendUint16(buf, k.MaxPDocID)
	buf = engine.AppendUint16(buf, k.PointerPivotPDocID)
	buf = engine.AppendUint32(buf, k.CompressionTypePointer)
	buf = engine.AppendUint32(buf, math.Float32bits(k.MaxBlockScore))

	switch k.NgramType.Arity() {
	case 2:
		buf = append(buf, k.PcNgram1Log)
	case 3:
		buf = append(buf, k.PcNgram1Log, k.PcNgram2Log)
	}

	return buf
}

// maxBlockScoreOffset is the byte offset of the MaxBlockScore field within
// a serialized KeyHead row.
const maxBlockScoreOffset = 20

// ParseKeyHead reads a KeyHead from data for the given n-gram arity.
func ParseKeyHead(data []byte, ngramType format.NgramType, engine endian.EndianEngine) (KeyHead, error) {
	k := KeyHead{NgramType: ngramType}
	if len(data) < k.Size() {
		return KeyHead{}, errs.ErrInvalidHeaderSize
	}

	k.KeyHash = engine.Uint64(data[0:8])
	k.PostingCountMinus1 = engine.Uint16(data[8:10])
	k.MaxDocID = engine.Uint16(data[10:12])
	k.MaxPDocID = engine.Uint16(data[12:14])
	k.PointerPivotPDocID = engine.Uint16(data[14:16])
	k.CompressionTypePointer = engine.Uint32(data[16:20])
	k.MaxBlockScore = math.Float32frombits(engine.Uint32(data[maxBlockScoreOffset : maxBlockScoreOffset+4]))

	pcOff := maxBlockScoreOffset + 4
	switch ngramType.Arity() {
	case 2:
		k.PcNgram1Log = data[pcOff]
	case 3:
		k.PcNgram1Log = data[pcOff]
		k.PcNgram2Log = data[pcOff+1]
	}

	return k, nil
}

// PostingCount returns the term's posting count for this block.
func (k KeyHead) PostingCount() int {
	return int(k.PostingCountMinus1) + 1
}
