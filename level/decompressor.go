package level

import (
	"github.com/SeekStorm/SeekStorm-sub001/codec"
	"github.com/SeekStorm/SeekStorm-sub001/docid"
	"github.com/SeekStorm/SeekStorm-sub001/endian"
	"github.com/SeekStorm/SeekStorm-sub001/errs"
	"github.com/SeekStorm/SeekStorm-sub001/section"
)

// DecodedPosting is one committed posting reconstructed from a block, in
// the shape the level-0 accumulator's IndexPosting accepts.
type DecodedPosting struct {
	DocID  uint16
	Fields []FieldPositions
}

// FieldPositions mirrors postings.FieldPositions. DecompressTerm is used
// by both the commit engine (reabsorbing an incomplete block) and the
// query executor (decoding a surviving posting's positions for phrase
// scoring), so it returns its own shape rather than depending on the
// level-0 accumulator's.
type FieldPositions struct {
	FieldID   uint16
	Positions []uint32
}

// DecompressTerm reverses CompressTerm: given a term's key head and body
// bytes, it reconstructs every posting's docid and per-field positions in
// ascending docid order, for reabsorption into level 0 or for the query
// executor's decode step.
func DecompressTerm(keyHead section.KeyHead, body []byte, engine endian.EndianEngine, longestFieldID uint16) ([]DecodedPosting, error) {
	compressionType, bodyOffset := section.UnpackCompressionTypePointer(keyHead.CompressionTypePointer)
	if int(bodyOffset) > len(body) {
		return nil, errs.ErrCorruptIndex
	}

	positionsAndPointers := body[:bodyOffset]
	docidBody := body[bodyOffset:]

	docids, err := docid.Decode(compressionType, docidBody, engine)
	if err != nil {
		return nil, err
	}

	postingCount := keyHead.PostingCount()
	if len(docids) != postingCount {
		return nil, errs.ErrCorruptIndex
	}

	pivot := int(keyHead.PointerPivotPDocID)
	pointerBytes := 0
	for i := 0; i < postingCount; i++ {
		if pivot != 0 && i >= pivot {
			pointerBytes += 3
		} else {
			pointerBytes += 2
		}
	}
	if pointerBytes > len(positionsAndPointers) {
		return nil, errs.ErrCorruptIndex
	}

	positionsArea := positionsAndPointers[:len(positionsAndPointers)-pointerBytes]
	pointerArea := positionsAndPointers[len(positionsAndPointers)-pointerBytes:]

	out := make([]DecodedPosting, postingCount)
	pointerOff := 0
	for i := 0; i < postingCount; i++ {
		width := 2
		if pivot != 0 && i >= pivot {
			width = 3
		}

		var pointerValue uint32
		if width == 2 {
			pointerValue = uint32(engine.Uint16(pointerArea[pointerOff : pointerOff+2]))
		} else {
			b := pointerArea[pointerOff : pointerOff+3]
			pointerValue = uint32(b[0]) | uint32(b[1])<<8 | uint32(b[2])<<16
		}
		pointerOff += width

		var fields []FieldPositions
		if codec.IsEmbedded(width, pointerValue) {
			deltas := codec.DecodeEmbedded(width, pointerValue)
			positions := deltasToPositions(deltas)
			fields = []FieldPositions{{FieldID: longestFieldID, Positions: positions}}
		} else {
			if int(pointerValue) > len(positionsArea) {
				return nil, errs.ErrCorruptIndex
			}

			payload := positionsArea[pointerValue:]
			tag := payload[0]
			decoded, n := codec.DecodeFieldVector(payload[1:], tag == codec.BareFieldVectorTag, false, longestFieldID)
			off := n + 1
			fields = make([]FieldPositions, len(decoded))
			for fi, fp := range decoded {
				count := int(fp.TermFreq)
				var deltas []uint32
				for c := 0; c < count; c++ {
					delta, consumed := codec.ReadPositionDelta(payload[off:])
					deltas = append(deltas, delta)
					off += consumed
				}
				fields[fi] = FieldPositions{FieldID: fp.FieldID, Positions: deltasToPositions(deltas)}
			}
		}

		out[i] = DecodedPosting{DocID: docids[i], Fields: fields}
	}

	return out, nil
}

// deltasToPositions reconstructs ascending absolute positions from the
// delta sequence (first entry absolute, rest position[i]-position[i-1]-1).
func deltasToPositions(deltas []uint32) []uint32 {
	positions := make([]uint32, len(deltas))
	var prev uint32
	for i, d := range deltas {
		var p uint32
		if i == 0 {
			p = d
		} else {
			p = prev + d + 1
		}
		positions[i] = p
		prev = p
	}

	return positions
}
