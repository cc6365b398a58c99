package section

// ROARING_BLOCK_SIZE is the number of documents covered by one committed
// block. A document's block id is doc_id >> 16; it is a wire-level
// invariant and must never change without an index format version bump.
const RoaringBlockSize = 1 << 16

// Fixed-size section lengths, in bytes.
const (
	// SegmentHeadSize is the size of one segment-head slot:
	// (segment_block_length u32, segment_key_count u32).
	SegmentHeadSize = 8

	// KeyHeadSizeSingle is the key-head row size for a single (non n-gram) term.
	KeyHeadSizeSingle = 24
	// KeyHeadSizeBigram is the key-head row size for a bigram n-gram term
	// (adds one component document-frequency log byte).
	KeyHeadSizeBigram = 25
	// KeyHeadSizeTrigram is the key-head row size for a trigram n-gram term
	// (adds two component document-frequency log bytes).
	KeyHeadSizeTrigram = 26

	// DocLengthCodesSize is the size in bytes of one field's per-document
	// length-code array: one byte per possible document in a block.
	DocLengthCodesSize = RoaringBlockSize

	// BitmapBodySize is the size in bytes of a Bitmap-codec docid set: one
	// bit per possible docid in a block.
	BitmapBodySize = RoaringBlockSize / 8
)

// compressionTypeShift is the bit position of the 2-bit compression-type tag
// within a packed compression_type_pointer word.
const compressionTypeShift = 30

// compressionTypeOffsetMask isolates the 30-bit body offset from a packed
// compression_type_pointer word.
const compressionTypeOffsetMask = (1 << compressionTypeShift) - 1
