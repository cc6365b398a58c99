// Package docid implements the three docid-set codecs a committed block can
// use for one term (Array, RLE, Bitmap) and the set-algebra operations the
// query executor runs over them (intersection, union, count).
package docid

import (
	"math/bits"
	"sort"

	"github.com/SeekStorm/SeekStorm-sub001/endian"
	"github.com/SeekStorm/SeekStorm-sub001/errs"
	"github.com/SeekStorm/SeekStorm-sub001/format"
	"github.com/SeekStorm/SeekStorm-sub001/section"
)

// EncodeArray serializes an ascending, deduplicated list of block-local
// docids (0..65535) as a sorted array of u16.
func EncodeArray(docids []uint16, engine endian.EndianEngine) []byte {
	buf := make([]byte, 0, len(docids)*2)
	for _, d := range docids {
		buf = engine.AppendUint16(buf, d)
	}

	return buf
}

// DecodeArray decodes an Array-codec docid set.
func DecodeArray(data []byte, engine endian.EndianEngine) []uint16 {
	count := len(data) / 2
	out := make([]uint16, count)
	for i := 0; i < count; i++ {
		out[i] = engine.Uint16(data[i*2 : i*2+2])
	}

	return out
}

// run is one (start, length) pair in an RLE-encoded docid set: the run
// covers docids [start, start+length).
type run struct {
	Start  uint16
	Length uint16
}

// EncodeRuns converts an ascending, deduplicated docid list into its
// maximal run-length representation.
func EncodeRuns(docids []uint16) []run {
	if len(docids) == 0 {
		return nil
	}

	var runs []run
	start := docids[0]
	length := uint16(1)
	for i := 1; i < len(docids); i++ {
		if docids[i] == docids[i-1]+1 {
			length++
			continue
		}
		runs = append(runs, run{Start: start, Length: length})
		start = docids[i]
		length = 1
	}
	runs = append(runs, run{Start: start, Length: length})

	return runs
}

// EncodeRLE serializes docids as runs_count (u16) followed by that many
// (start:u16, length:u16) pairs.
func EncodeRLE(docids []uint16, engine endian.EndianEngine) []byte {
	runs := EncodeRuns(docids)
	buf := make([]byte, 0, 2+len(runs)*4)
	buf = engine.AppendUint16(buf, uint16(len(runs)))
	for _, r := range runs {
		buf = engine.AppendUint16(buf, r.Start)
		buf = engine.AppendUint16(buf, r.Length)
	}

	return buf
}

// DecodeRLE expands an RLE-codec docid set back into an ascending list.
func DecodeRLE(data []byte, engine endian.EndianEngine) ([]uint16, error) {
	if len(data) < 2 {
		return nil, errs.ErrCorruptIndex
	}
	runsCount := int(engine.Uint16(data[:2]))
	if len(data) < 2+runsCount*4 {
		return nil, errs.ErrCorruptIndex
	}

	var out []uint16
	off := 2
	for i := 0; i < runsCount; i++ {
		start := engine.Uint16(data[off : off+2])
		length := engine.Uint16(data[off+2 : off+4])
		off += 4
		for d := 0; d < int(length); d++ {
			out = append(out, start+uint16(d))
		}
	}

	return out, nil
}

// EncodeBitmap serializes docids as a dense BitmapBodySize-byte bitmap:
// little-endian bit 0 of byte 0 is docid 0.
func EncodeBitmap(docids []uint16) []byte {
	buf := make([]byte, section.BitmapBodySize)
	for _, d := range docids {
		buf[d/8] |= 1 << (d % 8)
	}

	return buf
}

// DecodeBitmap expands a Bitmap-codec docid set into an ascending list.
func DecodeBitmap(data []byte) ([]uint16, error) {
	if len(data) < section.BitmapBodySize {
		return nil, errs.ErrCorruptIndex
	}

	var out []uint16
	for byteIdx, b := range data[:section.BitmapBodySize] {
		for b != 0 {
			bit := bits.TrailingZeros8(b)
			out = append(out, uint16(byteIdx*8+bit))
			b &= b - 1
		}
	}

	return out, nil
}

// Decode decodes a docid set given its compression type. CompressionDelta
// is reserved wire-tag space and is never produced by Choose; decoding it
// is a corrupt-index condition.
func Decode(typ format.CompressionType, data []byte, engine endian.EndianEngine) ([]uint16, error) {
	switch typ {
	case format.CompressionArray:
		return DecodeArray(data, engine), nil
	case format.CompressionRle:
		return DecodeRLE(data, engine)
	case format.CompressionBitmap:
		return DecodeBitmap(data)
	default:
		return nil, errs.ErrCorruptIndex
	}
}

// Choose selects the codec for one term's block per the same thresholds
// the compressor uses to decide between Array, RLE, and Bitmap, and
// returns the encoded body.
//
// docids must be ascending and deduplicated.
func Choose(docids []uint16, engine endian.EndianEngine) (format.CompressionType, []byte) {
	postingCount := len(docids)

	var rleThreshold int
	if postingCount < 4096 {
		rleThreshold = postingCount / 2
	} else {
		rleThreshold = 2048
	}

	runs := EncodeRuns(docids)
	if len(runs) <= rleThreshold {
		return format.CompressionRle, encodeRunsBytes(runs, engine)
	}

	if postingCount < 4096 {
		return format.CompressionArray, EncodeArray(docids, engine)
	}

	return format.CompressionBitmap, EncodeBitmap(docids)
}

func encodeRunsBytes(runs []run, engine endian.EndianEngine) []byte {
	buf := make([]byte, 0, 2+len(runs)*4)
	buf = engine.AppendUint16(buf, uint16(len(runs)))
	for _, r := range runs {
		buf = engine.AppendUint16(buf, r.Start)
		buf = engine.AppendUint16(buf, r.Length)
	}

	return buf
}

// SortUnique sorts and deduplicates a docid list in place, returning the
// deduplicated slice.
func SortUnique(docids []uint16) []uint16 {
	sort.Slice(docids, func(i, j int) bool { return docids[i] < docids[j] })

	out := docids[:0]
	var prev uint16
	for i, d := range docids {
		if i == 0 || d != prev {
			out = append(out, d)
		}
		prev = d
	}

	return out
}
