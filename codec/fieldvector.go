package codec

// FieldPosting is one (field, term-frequency) pair within a single
// document's occurrence of a term.
type FieldPosting struct {
	FieldID   uint16
	TermFreq  uint32
}

// fieldEntryStopBit marks the final byte of one field-vector entry's
// variable-length encoding (mirrors StopBit's role in VByte position
// deltas: continuation bytes carry no marker, only the last byte does).
const fieldEntryStopBit = StopBit

// BareFieldVectorTag / GeneralFieldVectorTag mark which of the two byte
// layouts EncodeFieldVector chose for one posting. The bare layout
// (singleField or onlyLongestField, both written as a single VByte term
// frequency) and the general multi-field layout are not distinguishable
// from their bytes alone, since both use a variable-length stop-bit
// scheme. Callers that persist an encoded vector must carry this tag
// alongside it and pass it back into DecodeFieldVector rather than
// re-deriving the layout from schema-wide state.
const (
	BareFieldVectorTag    byte = 0
	GeneralFieldVectorTag byte = 1
)

// FieldVectorTag reports which tag EncodeFieldVector's layout choice
// corresponds to, for callers that persist a tag byte alongside the vector.
func FieldVectorTag(singleField, onlyLongestField bool) byte {
	if singleField || onlyLongestField {
		return BareFieldVectorTag
	}

	return GeneralFieldVectorTag
}

// lastFieldMarker is ORed into the first byte of the last entry in a
// multi-field vector, so a decoder walking entries one at a time knows
// when to stop without a separate count prefix.
const lastFieldMarker = 0b0100_0000

// EncodeFieldVector packs fields into buf using one of three layouts:
//
//   - singleField: the schema has exactly one indexed field, so the field
//     id is elided entirely and only the term frequency is written.
//   - onlyLongestField: the term occurs only in the schema's designated
//     longest field, so the field id is elided and the frequency is
//     written with a narrower bit budget (the common case for body-text
//     fields) than the general multi-field layout below.
//   - general multi-field: each entry packs (field_id, term_freq)
//     together, with the last entry's first byte tagged so a decoder
//     knows where the vector ends.
//
// fields must be non-empty; EncodeFieldVector does not write a length
// prefix — the two elided layouts hold exactly one entry, and in the
// general layout the last entry's marker bit tells the decoder where the
// vector ends.
func EncodeFieldVector(buf []byte, fields []FieldPosting, singleField, onlyLongestField bool) []byte {
	switch {
	case singleField:
		return AppendPositionDelta(buf, fields[0].TermFreq)
	case onlyLongestField:
		return AppendPositionDelta(buf, fields[0].TermFreq)
	default:
		for i, f := range fields {
			packed := uint32(f.TermFreq)<<16 | uint32(f.FieldID)
			marker := byte(0)
			if i == len(fields)-1 {
				marker = lastFieldMarker
			}
			buf = appendPackedFieldEntry(buf, packed, marker)
		}

		return buf
	}
}

// appendPackedFieldEntry writes one (field_id | term_freq<<16) value as a
// variable-length 1-4 byte group, ORing marker into the first byte.
func appendPackedFieldEntry(buf []byte, packed uint32, marker byte) []byte {
	switch {
	case packed < 64:
		return append(buf, marker|byte(packed)|fieldEntryStopBit)
	case packed < 64<<7:
		return append(buf,
			marker|byte(packed>>7)&0x3F,
			byte(packed&0x7F)|fieldEntryStopBit,
		)
	case packed < 64<<14:
		return append(buf,
			marker|byte(packed>>14)&0x3F,
			byte((packed>>7)&0x7F),
			byte(packed&0x7F)|fieldEntryStopBit,
		)
	default:
		return append(buf,
			marker|byte(packed>>21)&0x3F,
			byte((packed>>14)&0x7F),
			byte((packed>>7)&0x7F),
			byte(packed&0x7F)|fieldEntryStopBit,
		)
	}
}

// SizeFieldVector returns the byte length EncodeFieldVector would produce.
func SizeFieldVector(fields []FieldPosting, singleField, onlyLongestField bool) int {
	switch {
	case singleField, onlyLongestField:
		return SizePositionDelta(fields[0].TermFreq)
	default:
		size := 0
		for _, f := range fields {
			packed := uint32(f.TermFreq)<<16 | uint32(f.FieldID)
			size += sizePackedFieldEntry(packed)
		}

		return size
	}
}

func sizePackedFieldEntry(packed uint32) int {
	switch {
	case packed < 64:
		return 1
	case packed < 64<<7:
		return 2
	case packed < 64<<14:
		return 3
	default:
		return 4
	}
}

// DecodeFieldVector decodes a field vector written by EncodeFieldVector.
// For singleField or onlyLongestField layouts, knownFieldID is the caller-
// supplied field the posting is known to belong to, and exactly one entry
// is returned.
func DecodeFieldVector(buf []byte, singleField, onlyLongestField bool, knownFieldID uint16) ([]FieldPosting, int) {
	switch {
	case singleField, onlyLongestField:
		tf, n := ReadPositionDelta(buf)
		return []FieldPosting{{FieldID: knownFieldID, TermFreq: tf}}, n
	default:
		var out []FieldPosting
		off := 0
		for {
			packed, n, last := readPackedFieldEntry(buf[off:])
			off += n
			out = append(out, FieldPosting{FieldID: uint16(packed & 0xFFFF), TermFreq: packed >> 16})
			if last {
				break
			}
		}

		return out, off
	}
}

func readPackedFieldEntry(buf []byte) (packed uint32, n int, last bool) {
	last = buf[0]&lastFieldMarker != 0
	first := buf[0] &^ lastFieldMarker
	for i, b := range buf {
		var cur byte
		if i == 0 {
			cur = first
		} else {
			cur = b
		}
		packed = packed<<7 | uint32(cur&0x7F)
		n++
		if b&fieldEntryStopBit != 0 {
			break
		}
	}

	return packed, n, last
}
