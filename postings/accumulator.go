package postings

import (
	"github.com/SeekStorm/SeekStorm-sub001/codec"
	"github.com/SeekStorm/SeekStorm-sub001/endian"
	"github.com/SeekStorm/SeekStorm-sub001/errs"
	"github.com/SeekStorm/SeekStorm-sub001/format"
)

// FieldPositions holds one indexed field's ascending in-document term
// positions for a single posting.
type FieldPositions struct {
	FieldID   uint16
	Positions []uint32
}

// Accumulator is the level-0 write path for one shard: it owns the shared
// postings arena and routes IndexPosting calls into per-term linked lists.
type Accumulator struct {
	arena  *Arena
	engine endian.EndianEngine
	terms  map[uint64]*Level0Term

	// SingleField / LongestFieldID describe the schema, used to choose
	// between the field-vector layouts in the codec package.
	SingleField    bool
	LongestFieldID uint16
}

// NewAccumulator creates an accumulator backed by a fresh arena of the
// given initial size and growth increment.
func NewAccumulator(arenaSize, arenaGrowth int, engine endian.EndianEngine, singleField bool, longestFieldID uint16) *Accumulator {
	return &Accumulator{
		arena:          NewArena(arenaSize, arenaGrowth),
		engine:         engine,
		terms:          make(map[uint64]*Level0Term),
		SingleField:    singleField,
		LongestFieldID: longestFieldID,
	}
}

// Term returns the level-0 entry for key, or nil if the term has no
// uncommitted postings.
func (a *Accumulator) Term(key uint64) (*Level0Term, bool) {
	t, ok := a.terms[key]
	return t, ok
}

// Terms returns every term key with an uncommitted posting, for iteration
// by the commit engine.
func (a *Accumulator) Terms() map[uint64]*Level0Term {
	return a.terms
}

// Reset clears every term entry and the underlying arena, for reuse after
// a successful commit.
func (a *Accumulator) Reset() {
	a.terms = make(map[uint64]*Level0Term)
	a.arena.Reset()
}

// Arena exposes the accumulator's backing arena, e.g. for the compressor
// to walk a term's linked list.
func (a *Accumulator) Arena() *Arena {
	return a.arena
}

// IndexPosting accepts one term occurrence in one document and either
// creates or extends its level-0 entry. docID is the block-local (u16)
// document id. restore=true re-inserts a posting recovered from a
// previously committed incomplete block. It goes through the same write
// path as a new posting, so every restored payload is added to
// SizeCompressedPositionsKey and the term's running total again covers the
// bytes the committed block held.
func (a *Accumulator) IndexPosting(key uint64, ngramType format.NgramType, docID uint16, fields []FieldPositions, restore bool) error {
	onlyLongestField := len(fields) == 1 && fields[0].FieldID == a.LongestFieldID

	totalPositions := 0
	for _, f := range fields {
		totalPositions += len(f.Positions)
	}
	if totalPositions == 0 {
		return errs.ErrEmptyPosting
	}

	term, exists := a.terms[key]
	if !exists {
		term = NewLevel0Term(ngramType)
		a.terms[key] = term
	}

	fieldPostings := make([]codec.FieldPosting, len(fields))
	for i, f := range fields {
		fieldPostings[i] = codec.FieldPosting{FieldID: f.FieldID, TermFreq: uint32(len(f.Positions))}
	}

	var positionsBuf []byte
	for _, f := range fields {
		positionsBuf = codec.EncodePositions(positionsBuf, f.Positions)
	}
	fieldVecBuf := codec.EncodeFieldVector(nil, fieldPostings, a.SingleField, onlyLongestField)
	fieldVecTag := codec.FieldVectorTag(a.SingleField, onlyLongestField)

	pointerWidth := term.PointerWidth()

	var deltas []uint32
	if len(fields) == 1 && fields[0].FieldID == a.LongestFieldID {
		deltas = deltaEncode(fields[0].Positions)
	}

	// The record header's length word is 16 bits wide, so only a 2-byte
	// pointer's embedded word fits it; 3-byte-pointer postings keep a payload.
	embed := len(fields) == 1 && pointerWidth == 2 && codec.CanEmbed(pointerWidth, deltas)

	var record []byte
	var lengthWord uint16
	if embed {
		word := codec.EncodeEmbedded(pointerWidth, deltas)
		lengthWord = uint16(word)
		record = make([]byte, codec.PostingRecordHeaderSize)
		codec.WritePostingRecordHeader(record, 0, NilPointer, docID, lengthWord, a.engine)
	} else {
		payload := append(append([]byte{fieldVecTag}, fieldVecBuf...), positionsBuf...)
		lengthWord = codec.PackLengthWord(len(payload))
		record = make([]byte, codec.PostingRecordHeaderSize+len(payload))
		codec.WritePostingRecordHeader(record, 0, NilPointer, docID, lengthWord, a.engine)
		copy(record[codec.PostingRecordHeaderSize:], payload)

		term.SizeCompressedPositionsKey += len(payload)
	}

	offset := a.arena.Append(record)

	if term.PointerFirst == NilPointer {
		term.PointerFirst = offset
	} else {
		a.arena.PatchNextPointer(term.PointerLast, offset, a.engine)
	}
	term.PointerLast = offset

	if docID > term.DocidOld || term.PostingCount == 0 {
		delta := docID - term.DocidOld
		if term.PostingCount == 0 {
			delta = docID
		}
		if delta > term.DocidDeltaMax {
			term.DocidDeltaMax = delta
		}
	}
	term.DocidOld = docID

	term.PostingCount++
	term.PositionCount += totalPositions
	term.MaybeFlipPivot()

	if docID > term.MaxDocid {
		term.MaxDocid = docID
	}

	return nil
}

// deltaEncode converts ascending absolute positions into the delta
// sequence used by both VByte payload encoding and embedded packing: the
// first entry is absolute, the rest are position[i]-position[i-1]-1.
func deltaEncode(positions []uint32) []uint32 {
	out := make([]uint32, len(positions))
	var prev uint32
	for i, p := range positions {
		if i == 0 {
			out[i] = p
		} else {
			out[i] = p - prev - 1
		}
		prev = p
	}

	return out
}
