// Package hash computes the 64-bit term key: a hash derived from the term's
// UTF-8 bytes used to locate a term's postings without storing the term
// text itself. The low 3 bits of the returned value are overwritten by the
// caller with the term's format.NgramType tag; callers must mask those bits
// out before using the result as a map/segment key component where the
// n-gram tag would collide with two different terms' hash bits.
package hash

import (
	"github.com/cespare/xxhash/v2"

	"github.com/SeekStorm/SeekStorm-sub001/format"
)

// Key computes the xxHash64 of a term's UTF-8 bytes.
func Key(term string) uint64 {
	return xxhash.Sum64String(term)
}

// TermKey computes a term's key with ngramType folded into its low 3 bits,
// the form every on-disk key head and every accumulator lookup expects.
func TermKey(term string, ngramType format.NgramType) uint64 {
	return (Key(term) &^ format.NgramMask) | uint64(ngramType)
}
