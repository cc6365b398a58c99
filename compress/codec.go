package compress

import "fmt"

// Algorithm identifies a document-store blob compression algorithm. This is
// a separate enumeration from format.CompressionType (the docid-set codec
// tag used inside committed blocks) — the two compression concepts live at
// different layers of the index and must not share a discriminant space.
type Algorithm uint8

const (
	AlgoNone Algorithm = 1
	AlgoZstd Algorithm = 2
	AlgoS2   Algorithm = 3
	AlgoLZ4  Algorithm = 4
)

func (a Algorithm) String() string {
	switch a {
	case AlgoNone:
		return "None"
	case AlgoZstd:
		return "Zstd"
	case AlgoS2:
		return "S2"
	case AlgoLZ4:
		return "LZ4"
	default:
		return "Unknown"
	}
}

// Compressor compresses one document-store payload: a JSON-encoded document
// body, prior to being appended to a level's concatenated-docs section.
type Compressor interface {
	// Compress compresses data and returns the compressed result.
	//
	// Memory management:
	//   - Returned slice is newly allocated and owned by the caller, except
	//     for NoOpCompressor, which returns the input slice itself
	//   - Input slice is not modified
	//   - Internal buffers may be reused for efficiency
	Compress(data []byte) ([]byte, error)
}

// Decompressor decompresses data previously produced by the matching
// Compressor.
//
// Thread Safety: implementations must be safe for concurrent use.
type Decompressor interface {
	Decompress(data []byte) ([]byte, error)
}

// Codec combines both compression and decompression capabilities.
type Codec interface {
	Compressor
	Decompressor
}

// Stats reports the outcome of one compression operation, used by the
// docstore writer to decide whether a codec switch is paying for itself.
type Stats struct {
	Algorithm      Algorithm
	OriginalSize   int64
	CompressedSize int64
}

// Ratio returns compressed size / original size. Values below 1.0 indicate
// the blob shrank.
func (s Stats) Ratio() float64 {
	if s.OriginalSize == 0 {
		return 0.0
	}

	return float64(s.CompressedSize) / float64(s.OriginalSize)
}

// CreateCodec is a factory function that creates a Codec for the given
// algorithm.
func CreateCodec(algo Algorithm, target string) (Codec, error) {
	switch algo {
	case AlgoNone:
		return NewNoOpCompressor(), nil
	case AlgoZstd:
		return NewZstdCompressor(), nil
	case AlgoS2:
		return NewS2Compressor(), nil
	case AlgoLZ4:
		return NewLZ4Compressor(), nil
	default:
		return nil, fmt.Errorf("invalid %s compression algorithm: %s", target, algo)
	}
}

var builtinCodecs = map[Algorithm]Codec{
	AlgoNone: NewNoOpCompressor(),
	AlgoZstd: NewZstdCompressor(),
	AlgoS2:   NewS2Compressor(),
	AlgoLZ4:  NewLZ4Compressor(),
}

// GetCodec retrieves a built-in Codec for the given algorithm.
func GetCodec(algo Algorithm) (Codec, error) {
	if codec, ok := builtinCodecs[algo]; ok {
		return codec, nil
	}

	return nil, fmt.Errorf("unsupported compression algorithm: %s", algo)
}
