package postings

import "github.com/SeekStorm/SeekStorm-sub001/format"

// NgramComponent is one component term folded into an n-gram key, along
// with its committed-plus-uncommitted document frequency estimate used for
// the n-gram's combined IDF.
type NgramComponent struct {
	Hash          uint64
	DocFreqEstimate int
}

// Level0Term is the mutable, uncommitted accumulator for one term within
// one shard. It is created on the term's first occurrence since the last
// commit and cleared after a successful commit.
type Level0Term struct {
	PostingCount  int
	PositionCount int

	// DocidOld is the block-local docid of the most recently appended
	// posting, used to compute DocidDeltaMax as new postings arrive.
	DocidOld       uint16
	DocidDeltaMax  uint16

	// PointerFirst / PointerLast are arena offsets bounding the term's
	// singly-linked posting list.
	PointerFirst uint32
	PointerLast  uint32

	// PointerPivotPDocid is the posting index at which this term's
	// posting-pointer width switches from 2 to 3 bytes.
	PointerPivotPDocid uint16

	// SizeCompressedPositionsKey is the running byte total of non-
	// embedded position payloads written for this term.
	SizeCompressedPositionsKey int

	MaxBlockScore float32
	MaxDocid      uint16
	MaxPDocid     uint16

	NgramType  format.NgramType
	Components []NgramComponent
}

// NewLevel0Term creates an empty accumulator entry for a freshly seen term.
func NewLevel0Term(ngramType format.NgramType) *Level0Term {
	return &Level0Term{
		PointerFirst: NilPointer,
		PointerLast:  NilPointer,
		NgramType:    ngramType,
	}
}

// PointerWidth returns the current posting-pointer width in bytes (2 or 3)
// that the next posting for this term should be written with.
func (t *Level0Term) PointerWidth() int {
	if t.PostingCount < int(t.PointerPivotPDocid) || t.PointerPivotPDocid == 0 {
		return 2
	}

	return 3
}

// pivotPositionBytesThreshold is the cumulative non-embedded position byte
// total past which new postings for a term switch to 3-byte pointers.
const pivotPositionBytesThreshold = 32 * 1024

// pivotPostingCountThreshold is the posting count past which new postings
// for a term switch to 3-byte pointers, independent of position bytes.
const pivotPostingCountThreshold = 65535

// MaybeFlipPivot flips PointerPivotPDocid to the term's current posting
// count the first time either threshold is crossed; afterward all new
// postings use 3-byte pointers.
func (t *Level0Term) MaybeFlipPivot() {
	if t.PointerPivotPDocid != 0 {
		return
	}

	if t.SizeCompressedPositionsKey > pivotPositionBytesThreshold || t.PostingCount > pivotPostingCountThreshold {
		t.PointerPivotPDocid = uint16(t.PostingCount)
	}
}
