package level

import (
	"math/bits"

	"github.com/SeekStorm/SeekStorm-sub001/codec"
	"github.com/SeekStorm/SeekStorm-sub001/docid"
	"github.com/SeekStorm/SeekStorm-sub001/endian"
	"github.com/SeekStorm/SeekStorm-sub001/postings"
	"github.com/SeekStorm/SeekStorm-sub001/section"
)

// ScoreParams carries the per-term BM25 constants and a document-length
// lookup needed to score every surviving posting while a term is
// compressed, so the committed key head can carry a ready-to-use
// max_block_score for WAND pruning.
type ScoreParams struct {
	K, B, Sigma float64
	// IDF is this term's precomputed inverse document frequency, derived
	// by the caller from the shard's indexed_doc_count and this term's
	// final posting count.
	IDF float64
	// AvgDocLength is positions_sum_normalized / indexed_doc_count for the
	// level being written.
	AvgDocLength float64
	// DocLengthCode returns field fieldID's length code for block-local
	// docid d, read from the level header's document_length_codes array.
	DocLengthCode func(fieldID uint16, d uint16) byte
	// BoostField returns the schema's per-field weight.
	BoostField func(fieldID uint16) float64
	// SingleField / LongestFieldID mirror the schema flags the
	// accumulator was built with. LongestFieldID is the field id given to
	// embedded postings and passed to the field-vector decoder; SingleField
	// is not read while compressing, since each payload's tag byte records
	// its field-vector layout.
	SingleField    bool
	LongestFieldID uint16
}

// CompressedTerm is one term's fully encoded committed-block contribution:
// the fixed-size key-head row plus its variable-length body.
type CompressedTerm struct {
	KeyHead       section.KeyHead
	Body          []byte
	MaxBlockScore float32
}

// logCode compresses a document-frequency estimate into the single-byte
// code a key head stores for an n-gram component: the position of the
// highest set bit, saturated to fit a byte.
func logCode(n int) uint8 {
	if n <= 0 {
		return 0
	}

	v := bits.Len(uint(n))
	if v > 255 {
		return 255
	}

	return uint8(v)
}

// DocumentLengthCode compresses a document's per-field length (its total
// indexed term-position count) into the single byte a level header's
// document_length_codes array stores per document. It reuses the same
// log2-bucket idiom as logCode rather than a literal lookup table. The
// encoding is lossy: DecodeDocumentLength maps a code back to 2^(code-1),
// the smallest length in its bucket, not to the original length.
func DocumentLengthCode(n int) byte {
	return logCode(n)
}

// DecodeDocumentLength expands a document_length_codes byte back into the
// representative field length its bucket stands for, the value the scorer
// divides by the level's average document length to get dl_quot.
func DecodeDocumentLength(code byte) float64 {
	if code == 0 {
		return 0
	}

	return float64(uint64(1) << (code - 1))
}

// CompressTerm encodes one term's level-0 postings into a committed block:
// it resolves n-gram component frequencies into the key head, chooses a
// docid codec, walks the posting list building the position area and
// rank-position pointers, and tracks the block's best-so-far score.
func CompressTerm(arena []byte, key uint64, term *postings.Level0Term, engine endian.EndianEngine, scoring ScoreParams) CompressedTerm {
	type postingEntry struct {
		docid        uint16
		embedded     bool
		embedWord    uint32
		pointerWidth int
		payload      []byte
		fields       []codec.FieldPosting
	}

	entries := make([]postingEntry, 0, term.PostingCount)
	docids := make([]uint16, 0, term.PostingCount)

	pivot := int(term.PointerPivotPDocID)
	off := term.PointerFirst
	idx := 0
	for off != postings.NilPointer {
		next, docidLow, lengthWord, payloadOff := codec.ReadPostingRecordHeader(arena, int(off), engine)

		width := 2
		if pivot != 0 && idx >= pivot {
			width = 3
		}

		e := postingEntry{docid: docidLow, pointerWidth: width}
		e.embedded = codec.IsEmbedded(width, uint32(lengthWord))
		if e.embedded {
			e.embedWord = uint32(lengthWord)
			deltas := codec.DecodeEmbedded(width, e.embedWord)
			e.fields = []codec.FieldPosting{{FieldID: scoring.LongestFieldID, TermFreq: uint32(len(deltas))}}
		} else {
			_, length := codec.UnpackLengthWord(lengthWord)
			e.payload = arena[payloadOff : payloadOff+length]
			tag := e.payload[0]
			e.fields, _ = codec.DecodeFieldVector(e.payload[1:], tag == codec.BareFieldVectorTag, false, scoring.LongestFieldID)
		}

		entries = append(entries, e)
		docids = append(docids, docidLow)

		off = next
		idx++
	}

	compressionType, docidBody := docid.Choose(docids, engine)

	positionsArea := make([]byte, 0, term.SizeCompressedPositionsKey)
	pointers := make([]byte, 0, len(entries)*3)

	var maxScore float32
	for _, e := range entries {
		var pointerValue uint32
		if e.embedded {
			pointerValue = e.embedWord
		} else {
			pointerValue = uint32(len(positionsArea))
			positionsArea = append(positionsArea, e.payload...)
		}

		switch e.pointerWidth {
		case 2:
			pointers = engine.AppendUint16(pointers, uint16(pointerValue))
		default:
			pointers = append(pointers, byte(pointerValue), byte(pointerValue>>8), byte(pointerValue>>16))
		}

		s := scorePosting(scoring, e.docid, e.fields)
		if s > maxScore {
			maxScore = s
		}
	}

	keyHead := section.KeyHead{
		KeyHash:            key,
		PostingCountMinus1: uint16(term.PostingCount - 1),
		MaxDocID:           term.MaxDocid,
		MaxPDocID:          term.MaxPDocid,
		PointerPivotPDocID: term.PointerPivotPDocID,
		NgramType:          term.NgramType,
	}
	for i, c := range term.Components {
		switch i {
		case 0:
			keyHead.PcNgram1Log = logCode(c.DocFreqEstimate)
		case 1:
			keyHead.PcNgram2Log = logCode(c.DocFreqEstimate)
		}
	}

	bodyOffset := uint32(len(positionsArea) + len(pointers))
	keyHead.CompressionTypePointer = section.PackCompressionTypePointer(compressionType, bodyOffset)
	keyHead.MaxBlockScore = maxScore

	body := make([]byte, 0, len(positionsArea)+len(pointers)+len(docidBody))
	body = append(body, positionsArea...)
	body = append(body, pointers...)
	body = append(body, docidBody...)

	return CompressedTerm{KeyHead: keyHead, Body: body, MaxBlockScore: maxScore}
}

// ScorePosting computes the BM25-like contribution of one posting's
// fields. Exported so the query executor can score postings decoded from
// committed or level-0 blocks with the same formula used while
// compressing them.
func ScorePosting(scoring ScoreParams, d uint16, fields []codec.FieldPosting) float32 {
	return scorePosting(scoring, d, fields)
}

// DecodeLevel0Postings walks one term's uncommitted arena linked list and
// returns its postings in insertion (ascending docid) order, in the same
// shape DecompressTerm produces for committed postings. It lets the query
// executor score realtime, not-yet-committed documents through the same
// code path used for committed ones.
func DecodeLevel0Postings(arena []byte, term *postings.Level0Term, engine endian.EndianEngine, longestFieldID uint16) []DecodedPosting {
	out := make([]DecodedPosting, 0, term.PostingCount)

	pivot := int(term.PointerPivotPDocID)
	off := term.PointerFirst
	idx := 0
	for off != postings.NilPointer {
		next, docidLow, lengthWord, payloadOff := codec.ReadPostingRecordHeader(arena, int(off), engine)

		width := 2
		if pivot != 0 && idx >= pivot {
			width = 3
		}

		var fields []FieldPositions
		if codec.IsEmbedded(width, uint32(lengthWord)) {
			deltas := codec.DecodeEmbedded(width, uint32(lengthWord))
			fields = []FieldPositions{{FieldID: longestFieldID, Positions: deltasToPositions(deltas)}}
		} else {
			_, length := codec.UnpackLengthWord(lengthWord)
			payload := arena[payloadOff : payloadOff+length]
			tag := payload[0]
			decoded, n := codec.DecodeFieldVector(payload[1:], tag == codec.BareFieldVectorTag, false, longestFieldID)
			fieldOff := n + 1
			fields = make([]FieldPositions, len(decoded))
			for fi, fp := range decoded {
				count := int(fp.TermFreq)
				var deltas []uint32
				for c := 0; c < count; c++ {
					delta, consumed := codec.ReadPositionDelta(payload[fieldOff:])
					deltas = append(deltas, delta)
					fieldOff += consumed
				}
				fields[fi] = FieldPositions{FieldID: fp.FieldID, Positions: deltasToPositions(deltas)}
			}
		}

		out = append(out, DecodedPosting{DocID: docidLow, Fields: fields})

		off = next
		idx++
	}

	return out
}

// scorePosting sums the BM25-like contribution of one posting's fields,
// using the document-length quotient and per-field boost from scoring.
func scorePosting(scoring ScoreParams, d uint16, fields []codec.FieldPosting) float32 {
	var total float64
	for _, f := range fields {
		code := scoring.DocLengthCode(f.FieldID, d)
		dlQuot := 0.0
		if scoring.AvgDocLength > 0 {
			dlQuot = DecodeDocumentLength(code) / scoring.AvgDocLength
		}

		tf := float64(f.TermFreq)
		denom := tf + scoring.K*(1-scoring.B+scoring.B*dlQuot)
		contribution := (tf * (scoring.K + 1)) / denom

		boost := 1.0
		if scoring.BoostField != nil {
			boost = scoring.BoostField(f.FieldID)
		}

		total += boost * scoring.IDF * (contribution + scoring.Sigma)
	}

	return float32(total)
}
