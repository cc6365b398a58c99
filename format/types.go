// Package format defines the wire-level enumerations shared by every layer
// of the index: the docid-set compression tag stored in a key head, the
// n-gram variant encoded in a term key's low bits, the similarity mode used
// by the scorer, the block residency mode of a shard, and the query result
// shape requested by a caller.
package format

import "fmt"

// CompressionType is the docid-set codec selected for one term within one
// committed block. The two top bits of a block's compression_type_pointer
// hold this value.
type CompressionType uint8

const (
	// CompressionError marks an invalid or unset codec; never written.
	CompressionError CompressionType = 0
	// CompressionArray stores docids as a sorted array of u16.
	CompressionArray CompressionType = 1
	// CompressionRle stores docids as (start, length) run pairs.
	CompressionRle CompressionType = 2
	// CompressionBitmap stores docids as a dense 8KiB bitmap.
	CompressionBitmap CompressionType = 3

	// CompressionDelta names a bit-packed delta codec. It is never emitted
	// by this implementation, and its value 4 lies outside the two-bit
	// field of a compression_type_pointer, so it cannot be packed into a
	// key head.
	CompressionDelta CompressionType = 4
)

func (c CompressionType) String() string {
	switch c {
	case CompressionArray:
		return "Array"
	case CompressionRle:
		return "Rle"
	case CompressionBitmap:
		return "Bitmap"
	case CompressionDelta:
		return "Delta"
	default:
		return "Error"
	}
}

// NgramType is encoded in the low 3 bits of a term key. A term key is
// either a single term or one of several ordered bigram/trigram flavors.
type NgramType uint8

const (
	NgramSingle NgramType = 0
	NgramFF     NgramType = 1 // bigram, forward-forward
	NgramFR     NgramType = 2 // bigram, forward-reverse
	NgramRF     NgramType = 3 // bigram, reverse-forward
	NgramRR     NgramType = 4 // bigram, reverse-reverse
	NgramFFF    NgramType = 5 // trigram, forward-forward-forward
	NgramFFR    NgramType = 6 // trigram, forward-forward-reverse
	NgramFRF    NgramType = 7 // trigram, forward-reverse-forward
)

// NgramMask isolates the n-gram tag from a 64-bit term key.
const NgramMask uint64 = 0x7

// Arity returns the number of component terms folded into this n-gram
// variant: 1 for a single term, 2 for a bigram, 3 for a trigram.
func (n NgramType) Arity() int {
	switch n {
	case NgramSingle:
		return 1
	case NgramFF, NgramFR, NgramRF, NgramRR:
		return 2
	default:
		return 3
	}
}

func (n NgramType) String() string {
	switch n {
	case NgramSingle:
		return "Single"
	case NgramFF:
		return "FF"
	case NgramFR:
		return "FR"
	case NgramRF:
		return "RF"
	case NgramRR:
		return "RR"
	case NgramFFF:
		return "FFF"
	case NgramFFR:
		return "FFR"
	case NgramFRF:
		return "FRF"
	default:
		return fmt.Sprintf("NgramType(%d)", uint8(n))
	}
}

// SimilarityType selects the scorer's blend of BM25 and phrase proximity.
type SimilarityType uint8

const (
	Bm25f          SimilarityType = 0
	Bm25fProximity SimilarityType = 1
)

func (s SimilarityType) String() string {
	if s == Bm25fProximity {
		return "Bm25fProximity"
	}

	return "Bm25f"
}

// AccessType selects whether a shard's committed blocks are served from a
// memory-mapped file view or copied into RAM.
type AccessType uint8

const (
	AccessMmap AccessType = 0
	AccessRam  AccessType = 1
)

func (a AccessType) String() string {
	if a == AccessRam {
		return "Ram"
	}

	return "Mmap"
}

// ResultType selects what shape of answer a query wants, letting the
// executor take cheaper Count-only fast paths when a full top-k ranking
// isn't needed.
type ResultType uint8

const (
	// ResultTopk requests the top-k scored documents.
	ResultTopk ResultType = 0
	// ResultCount requests only a matching-document count.
	ResultCount ResultType = 1
)

func (r ResultType) String() string {
	if r == ResultCount {
		return "Count"
	}

	return "Topk"
}
