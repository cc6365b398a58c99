package docid

import (
	"encoding/binary"
	"math/bits"
)

// IntersectArrayArray intersects two ascending Array-codec docid lists via
// galloping merge, which is faster than a linear merge when one list is
// much shorter than the other.
func IntersectArrayArray(a, b []uint16) []uint16 {
	var out []uint16
	i, j := 0, 0
	for i < len(a) && j < len(b) {
		switch {
		case a[i] == b[j]:
			out = append(out, a[i])
			i++
			j++
		case a[i] < b[j]:
			i += gallop(a[i:], b[j])
		default:
			j += gallop(b[j:], a[i])
		}
	}

	return out
}

// gallop returns the number of leading elements of xs strictly less than
// target, found by exponential search then binary search (the galloping
// search used to skip runs during merge intersection).
func gallop(xs []uint16, target uint16) int {
	if len(xs) == 0 || xs[0] >= target {
		return 1
	}

	step := 1
	for step < len(xs) && xs[step] < target {
		step *= 2
	}

	lo := step / 2
	hi := step
	if hi > len(xs) {
		hi = len(xs)
	}
	for lo < hi {
		mid := (lo + hi) / 2
		if xs[mid] < target {
			lo = mid + 1
		} else {
			hi = mid
		}
	}

	return lo
}

// IntersectArrayBitmap intersects an Array-codec docid list against a
// Bitmap-codec docid set by probing each array entry's bit.
func IntersectArrayBitmap(array []uint16, bitmap []byte) []uint16 {
	var out []uint16
	for _, d := range array {
		if bitmap[d/8]&(1<<(d%8)) != 0 {
			out = append(out, d)
		}
	}

	return out
}

// IntersectBitmapBitmap intersects two Bitmap-codec docid sets word-wise
// (8 bytes at a time) and returns the resulting docids.
func IntersectBitmapBitmap(a, b []byte) []uint16 {
	var out []uint16
	n := len(a)
	if len(b) < n {
		n = len(b)
	}

	wordEnd := n - n%8
	for w := 0; w < wordEnd; w += 8 {
		merged := binary.LittleEndian.Uint64(a[w:]) & binary.LittleEndian.Uint64(b[w:])
		for merged != 0 {
			bit := bits.TrailingZeros64(merged)
			out = append(out, uint16(w*8+bit))
			merged &= merged - 1
		}
	}

	for byteIdx := wordEnd; byteIdx < n; byteIdx++ {
		merged := a[byteIdx] & b[byteIdx]
		for merged != 0 {
			bit := bits.TrailingZeros8(merged)
			out = append(out, uint16(byteIdx*8+bit))
			merged &= merged - 1
		}
	}

	return out
}

// CountBitmapBitmapAnd returns the population count of the AND of two
// Bitmap-codec docid sets, used by the ResultType=Count fast path.
func CountBitmapBitmapAnd(a, b []byte) int {
	n := len(a)
	if len(b) < n {
		n = len(b)
	}

	count := 0
	for i := 0; i < n; i++ {
		count += bits.OnesCount8(a[i] & b[i])
	}

	return count
}

// UnionBitmaps ORs any number of Bitmap-codec docid sets together in
// place into dst, which must already be zeroed or hold a prior union.
func UnionBitmaps(dst []byte, sets ...[]byte) {
	for _, s := range sets {
		for i := range dst {
			if i < len(s) {
				dst[i] |= s[i]
			}
		}
	}
}

// SubtractBitmap clears every bit set in remove from dst, used to apply
// NOT-term filters and tombstoned deletes to a union's result bitmap.
func SubtractBitmap(dst []byte, remove []byte) {
	for i := range dst {
		if i < len(remove) {
			dst[i] &^= remove[i]
		}
	}
}

// CountBitmap returns the population count of a Bitmap-codec docid set.
func CountBitmap(data []byte) int {
	count := 0
	for _, b := range data {
		count += bits.OnesCount8(b)
	}

	return count
}

// Intersect dispatches to the codec-specialized intersection routine for
// two already-decoded docid lists (callers that hold compressed bodies
// directly should prefer the Bitmap-specific helpers above to avoid a
// full decode).
func Intersect(a, b []uint16) []uint16 {
	return IntersectArrayArray(a, b)
}

// Union merges any number of ascending, deduplicated docid lists into one
// ascending, deduplicated list.
func Union(lists ...[]uint16) []uint16 {
	seen := make(map[uint16]struct{})
	var out []uint16
	for _, list := range lists {
		for _, d := range list {
			if _, ok := seen[d]; !ok {
				seen[d] = struct{}{}
				out = append(out, d)
			}
		}
	}

	return SortUnique(out)
}
