package codec

import "github.com/SeekStorm/SeekStorm-sub001/endian"

// PostingRecordHeaderSize is the fixed prefix of every posting record in
// the arena: a 4-byte next-pointer, a 2-byte docid low bits, and a 2-byte
// length-plus-embed-flag word.
const PostingRecordHeaderSize = 4 + 2 + 2

// WritePostingRecordHeader writes the fixed prefix of one posting record
// into buf[off:] and returns the offset of the first payload byte.
func WritePostingRecordHeader(buf []byte, off int, next uint32, docidLow uint16, lengthWord uint16, engine endian.EndianEngine) int {
	engine.PutUint32(buf[off:off+4], next)
	engine.PutUint16(buf[off+4:off+6], docidLow)
	engine.PutUint16(buf[off+6:off+8], lengthWord)

	return off + PostingRecordHeaderSize
}

// ReadPostingRecordHeader reads the fixed prefix of one posting record
// starting at buf[off:].
func ReadPostingRecordHeader(buf []byte, off int, engine endian.EndianEngine) (next uint32, docidLow uint16, lengthWord uint16, payloadOff int) {
	next = engine.Uint32(buf[off : off+4])
	docidLow = engine.Uint16(buf[off+4 : off+6])
	lengthWord = engine.Uint16(buf[off+6 : off+8])
	payloadOff = off + PostingRecordHeaderSize

	return next, docidLow, lengthWord, payloadOff
}

// PackLengthWord combines a non-embedded payload's byte length with the
// embed-mode flag into the 16-bit length word stored in a posting record.
// The high bit marks embed mode; it is never set by this helper since an
// embedded posting's payload lives inline in the rank-position pointer,
// not after the posting record header.
func PackLengthWord(payloadLen int) uint16 {
	return uint16(payloadLen) & 0x7FFF
}

// UnpackLengthWord splits a posting record's length word into its embed
// flag and payload length.
func UnpackLengthWord(word uint16) (embedded bool, length int) {
	return word&0x8000 != 0, int(word & 0x7FFF)
}
