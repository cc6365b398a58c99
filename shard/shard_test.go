package shard

import (
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/SeekStorm/SeekStorm-sub001/endian"
	"github.com/SeekStorm/SeekStorm-sub001/format"
	"github.com/SeekStorm/SeekStorm-sub001/postings"
	"github.com/SeekStorm/SeekStorm-sub001/query"
	"github.com/SeekStorm/SeekStorm-sub001/section"
)

var le = endian.GetLittleEndianEngine()

func newTestShard(t *testing.T) *Shard {
	t.Helper()

	path := filepath.Join(t.TempDir(), "shard0.idx")
	s, err := OpenShard(path, DefaultSchema(1, true, 0), format.AccessRam, 2, le, 1)
	require.NoError(t, err)
	t.Cleanup(func() { s.Close() })

	return s
}

func oneTermDoc(term string) []TermOccurrence {
	return []TermOccurrence{
		{
			Term:      term,
			NgramType: format.NgramSingle,
			Fields:    []postings.FieldPositions{{FieldID: 0, Positions: []uint32{0}}},
		},
	}
}

func TestShard_IndexAndSearchRealtime(t *testing.T) {
	s := newTestShard(t)

	id, err := s.IndexDocument(oneTermDoc("apple"))
	require.NoError(t, err)
	require.Equal(t, uint64(0), id)

	topK := query.NewTopK(10)
	require.NoError(t, s.PlanAndSearch([]string{"apple"}, nil, nil, nil, topK))
	require.Len(t, topK.Results(), 1)
}

func TestShard_IndexedDocCountTracksAcrossCommit(t *testing.T) {
	s := newTestShard(t)

	_, err := s.IndexDocument(oneTermDoc("apple"))
	require.NoError(t, err)
	require.Equal(t, uint64(1), s.IndexedDocCount())

	require.NoError(t, s.Commit())
	require.Equal(t, uint64(1), s.IndexedDocCount())

	topK := query.NewTopK(10)
	require.NoError(t, s.PlanAndSearch([]string{"apple"}, nil, nil, nil, topK))
	require.Len(t, topK.Results(), 1)
}

func TestShard_DeleteExcludesFromSearch(t *testing.T) {
	s := newTestShard(t)

	id, err := s.IndexDocument(oneTermDoc("apple"))
	require.NoError(t, err)

	s.Delete(id)
	require.True(t, s.Deleted(id))

	topK := query.NewTopK(10)
	require.NoError(t, s.PlanAndSearch([]string{"apple"}, nil, nil, nil, topK))
	require.Empty(t, topK.Results())
}

func TestShard_AutomaticHardCommitAtBlockBoundary(t *testing.T) {
	s := newTestShard(t)

	for i := 0; i < section.RoaringBlockSize; i++ {
		_, err := s.IndexDocument(oneTermDoc("apple"))
		require.NoError(t, err)
	}

	require.Equal(t, uint64(section.RoaringBlockSize), s.IndexedDocCount())
	require.Len(t, s.store.Levels, 1)
	require.False(t, s.store.Levels[0].Incomplete)

	// Nothing left pending in level 0 after the automatic commit: one more
	// document starts a fresh block at local id 0.
	id, err := s.IndexDocument(oneTermDoc("apple"))
	require.NoError(t, err)
	require.Equal(t, uint64(section.RoaringBlockSize), id)
}

func TestShard_ClearResetsState(t *testing.T) {
	s := newTestShard(t)

	_, err := s.IndexDocument(oneTermDoc("apple"))
	require.NoError(t, err)
	require.NoError(t, s.Commit())
	require.NoError(t, s.Clear())

	require.Equal(t, uint64(0), s.IndexedDocCount())

	topK := query.NewTopK(10)
	require.NoError(t, s.PlanAndSearch([]string{"apple"}, nil, nil, nil, topK))
	require.Empty(t, topK.Results())

	id, err := s.IndexDocument(oneTermDoc("banana"))
	require.NoError(t, err)
	require.Equal(t, uint64(0), id)
}

func TestShard_PlanAndCountMatchesSearchResultLen(t *testing.T) {
	s := newTestShard(t)

	for i := 0; i < 5; i++ {
		_, err := s.IndexDocument(oneTermDoc("apple"))
		require.NoError(t, err)
	}
	_, err := s.IndexDocument(oneTermDoc("banana"))
	require.NoError(t, err)

	n, err := s.PlanAndCount([]string{"apple"}, nil, nil, nil)
	require.NoError(t, err)
	require.Equal(t, 5, n)
}

func TestShard_PlanAndCountExcludesTombstones(t *testing.T) {
	s := newTestShard(t)

	var ids []uint64
	for i := 0; i < 5; i++ {
		id, err := s.IndexDocument(oneTermDoc("apple"))
		require.NoError(t, err)
		ids = append(ids, id)
	}

	s.Delete(ids[0])
	s.Delete(ids[1])

	n, err := s.PlanAndCount([]string{"apple"}, nil, nil, nil)
	require.NoError(t, err)
	require.Equal(t, 3, n)
}

func TestShard_PlanAndCountAfterAutomaticCommit(t *testing.T) {
	s := newTestShard(t)

	for i := 0; i < section.RoaringBlockSize; i++ {
		_, err := s.IndexDocument(oneTermDoc("apple"))
		require.NoError(t, err)
	}
	require.Len(t, s.store.Levels, 1)

	n, err := s.PlanAndCount([]string{"apple"}, nil, nil, nil)
	require.NoError(t, err)
	require.Equal(t, section.RoaringBlockSize, n)

	s.Delete(0)
	n, err = s.PlanAndCount([]string{"apple"}, nil, nil, nil)
	require.NoError(t, err)
	require.Equal(t, section.RoaringBlockSize-1, n)
}

func TestShard_PlanAndSearchPhraseRequiresAdjacentOrder(t *testing.T) {
	s := newTestShard(t)

	_, err := s.IndexDocument([]TermOccurrence{
		{Term: "alpha", NgramType: format.NgramSingle, Fields: []postings.FieldPositions{{FieldID: 0, Positions: []uint32{0}}}},
		{Term: "beta", NgramType: format.NgramSingle, Fields: []postings.FieldPositions{{FieldID: 0, Positions: []uint32{1}}}},
	})
	require.NoError(t, err)

	_, err = s.IndexDocument([]TermOccurrence{
		{Term: "beta", NgramType: format.NgramSingle, Fields: []postings.FieldPositions{{FieldID: 0, Positions: []uint32{0}}}},
		{Term: "alpha", NgramType: format.NgramSingle, Fields: []postings.FieldPositions{{FieldID: 0, Positions: []uint32{1}}}},
	})
	require.NoError(t, err)

	topK := query.NewTopK(10)
	require.NoError(t, s.PlanAndSearch(nil, nil, nil, [][]string{{"alpha", "beta"}}, topK))
	require.Len(t, topK.Results(), 1)
}

func TestShard_TooManyFieldsRejected(t *testing.T) {
	s := newTestShard(t)

	terms := []TermOccurrence{
		{
			Term:      "apple",
			NgramType: format.NgramSingle,
			Fields:    []postings.FieldPositions{{FieldID: 5, Positions: []uint32{0}}},
		},
	}
	_, err := s.IndexDocument(terms)
	require.Error(t, err)
}
