// Package compress provides compression codecs for document-store blobs.
//
// The inverted-index core (see the top-level package and the level, postings,
// and query packages) treats the document store as an external collaborator:
// the core only writes a length prefix and an offset array followed by
// concatenated compressed document bodies. This package supplies the Codec
// each docstore writer selects to produce those compressed bodies.
//
// Four algorithms are available, matching the compression types a level
// frame's document-store section can be built with:
//
//   - None: no compression, useful for benchmarking or already-compressed payloads.
//   - Zstd: best compression ratio, moderate speed. Good for cold shards.
//   - S2: balanced speed and ratio. Good default for actively-written shards.
//   - LZ4: fastest decompression, moderate ratio. Good for read-heavy shards.
//
// All four implement the Codec interface (Compressor + Decompressor) and are
// safe for concurrent use.
package compress
