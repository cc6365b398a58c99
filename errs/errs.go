// Package errs collects the sentinel errors returned across the module.
// Callers compare against these with errors.Is; call sites
// that need to attach detail wrap them with fmt.Errorf("...: %w", ...)
// rather than defining new error types.
package errs

import "errors"

// Structural / wire-format errors, returned while parsing on-disk sections
// (level headers, segment heads, key heads, docid-set blocks, posting
// records) or while decoding a malformed or truncated buffer.
var (
	ErrInvalidHeaderSize    = errors.New("errs: invalid header size")
	ErrInvalidHeaderFlags   = errors.New("errs: invalid header flags")
	ErrInvalidMagicNumber   = errors.New("errs: invalid magic number")
	ErrInvalidIndexEntrySize = errors.New("errs: invalid index entry size")
	ErrInvalidIndexOffsets  = errors.New("errs: invalid index offsets")
	ErrCorruptIndex         = errors.New("errs: corrupt index")
	ErrBufferOverflow       = errors.New("errs: buffer overflow")
	ErrInvalidCompressionType = errors.New("errs: invalid compression type")
	ErrCodecFallback        = errors.New("errs: codec fallback")
	ErrUnsupportedNgramType = errors.New("errs: unsupported ngram type")
)

// I/O and storage errors.
var (
	ErrIOError      = errors.New("errs: io error")
	ErrNotFound     = errors.New("errs: not found")
	ErrAlreadyOpen  = errors.New("errs: already open")
	ErrClosed       = errors.New("errs: closed")
)

// Indexing errors, returned while adding a posting or document to a shard.
var (
	ErrEmptyPosting       = errors.New("errs: empty posting")
	ErrInvalidTerm        = errors.New("errs: invalid term")
	ErrTermAlreadyTracked = errors.New("errs: term already tracked")
	ErrTermNotFound       = errors.New("errs: term not found")
	ErrHashCollision      = errors.New("errs: hash collision")
	ErrInvalidDocID       = errors.New("errs: invalid document id")
	ErrDocumentDeleted    = errors.New("errs: document deleted")
	ErrTooManyFields      = errors.New("errs: too many fields")
)

// Query errors.
var (
	ErrEmptyQuery      = errors.New("errs: empty query")
	ErrInvalidQuery    = errors.New("errs: invalid query")
	ErrShardOutOfRange = errors.New("errs: shard out of range")
)
