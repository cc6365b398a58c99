// Package shard implements document routing across N independently locked
// index shards, the realtime soft-commit / hard-commit boundary, tombstone
// deletes, and the global-id export iterator.
package shard

import (
	"github.com/SeekStorm/SeekStorm-sub001/format"
	"github.com/SeekStorm/SeekStorm-sub001/internal/options"
)

// Schema describes the fixed, build-time configuration of every shard in a
// Coordinator: field count and longest-field hint (needed to decode the same
// field-vector layout the accumulator wrote), the BM25 constants, and the
// similarity mode.
type Schema struct {
	FieldCount     int
	LongestFieldID uint16
	SingleField    bool

	Similarity  format.SimilarityType
	K, B, Sigma float64
	BoostField  func(fieldID uint16) float64
}

// DefaultSchema returns the BM25 constants this module uses elsewhere in
// its tests: K=1.2, B=0.75, SIGMA=0, Bm25f similarity.
func DefaultSchema(fieldCount int, singleField bool, longestFieldID uint16) Schema {
	return Schema{
		FieldCount:     fieldCount,
		LongestFieldID: longestFieldID,
		SingleField:    singleField,
		Similarity:     format.Bm25f,
		K:              1.2,
		B:              0.75,
		Sigma:          0,
	}
}

// Option configures a Schema before a Coordinator or Shard is built from it.
type Option = options.Option[*Schema]

// WithBM25 overrides the K, B, SIGMA constants.
func WithBM25(k, b, sigma float64) Option {
	return options.NoError(func(s *Schema) {
		s.K, s.B, s.Sigma = k, b, sigma
	})
}

// WithSimilarity selects Bm25f or Bm25fProximity.
func WithSimilarity(sim format.SimilarityType) Option {
	return options.NoError(func(s *Schema) {
		s.Similarity = sim
	})
}

// WithBoostField installs a per-field weight function.
func WithBoostField(fn func(fieldID uint16) float64) Option {
	return options.NoError(func(s *Schema) {
		s.BoostField = fn
	})
}
