package level

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/SeekStorm/SeekStorm-sub001/endian"
	"github.com/SeekStorm/SeekStorm-sub001/format"
	"github.com/SeekStorm/SeekStorm-sub001/postings"
	"github.com/SeekStorm/SeekStorm-sub001/section"
)

var le = endian.GetLittleEndianEngine()

func testScoring() ScoreParams {
	return ScoreParams{
		K: 1.2, B: 0.75, Sigma: 0,
		IDF:            1.0,
		AvgDocLength:   10,
		DocLengthCode:  func(fieldID uint16, d uint16) byte { return 10 },
		LongestFieldID: 0,
		SingleField:    true,
	}
}

func TestCompressDecompressTerm_RoundTrip(t *testing.T) {
	acc := postings.NewAccumulator(4096, 1024, le, true, 0)
	require.NoError(t, acc.IndexPosting(7, format.NgramSingle, 1, []postings.FieldPositions{{FieldID: 0, Positions: []uint32{1, 9}}}, false))
	require.NoError(t, acc.IndexPosting(7, format.NgramSingle, 5, []postings.FieldPositions{{FieldID: 0, Positions: []uint32{2}}}, false))
	require.NoError(t, acc.IndexPosting(7, format.NgramSingle, 9, []postings.FieldPositions{{FieldID: 0, Positions: []uint32{1, 2, 3}}}, false))

	term, ok := acc.Term(7)
	require.True(t, ok)

	compressed := CompressTerm(acc.Arena().Bytes(), 7, term, le, testScoring())
	require.Equal(t, uint16(2), compressed.KeyHead.PostingCountMinus1)
	require.Equal(t, uint16(9), compressed.KeyHead.MaxDocID)

	decoded, err := DecompressTerm(compressed.KeyHead, compressed.Body, le, 0)
	require.NoError(t, err)
	require.Len(t, decoded, 3)

	require.Equal(t, uint16(1), decoded[0].DocID)
	require.Equal(t, []uint32{1, 9}, decoded[0].Fields[0].Positions)
	require.Equal(t, uint16(5), decoded[1].DocID)
	require.Equal(t, []uint32{2}, decoded[1].Fields[0].Positions)
	require.Equal(t, uint16(9), decoded[2].DocID)
	require.Equal(t, []uint32{1, 2, 3}, decoded[2].Fields[0].Positions)
}

func TestCompressTerm_DenseBitmapCodec(t *testing.T) {
	acc := postings.NewAccumulator(1<<20, 1<<16, le, true, 0)
	for d := uint16(0); d < 5000; d++ {
		require.NoError(t, acc.IndexPosting(3, format.NgramSingle, d*2, []postings.FieldPositions{{FieldID: 0, Positions: []uint32{0}}}, false))
	}

	term, _ := acc.Term(3)
	compressed := CompressTerm(acc.Arena().Bytes(), 3, term, le, testScoring())

	typ, _ := section.UnpackCompressionTypePointer(compressed.KeyHead.CompressionTypePointer)
	require.Equal(t, format.CompressionBitmap, typ)
}

func newTempStore(t *testing.T, accessType format.AccessType) *Store {
	t.Helper()
	dir := t.TempDir()
	store, err := OpenStore(filepath.Join(dir, "shard0.idx"), 2, accessType, le)
	require.NoError(t, err)
	t.Cleanup(func() { store.Close() })

	return store
}

func newFullDocLengthCodes() [][]byte {
	codes := make([]byte, section.DocLengthCodesSize)
	return [][]byte{codes}
}

func TestStore_CommitLevel_WritesFrameMatchingFileSize(t *testing.T) {
	store := newTempStore(t, format.AccessRam)

	acc := postings.NewAccumulator(4096, 1024, le, true, 0)
	require.NoError(t, acc.IndexPosting(1, format.NgramSingle, 0, []postings.FieldPositions{{FieldID: 0, Positions: []uint32{0}}}, false))
	require.NoError(t, acc.IndexPosting(2, format.NgramSingle, 1, []postings.FieldPositions{{FieldID: 0, Positions: []uint32{0}}}, false))

	meta, err := store.CommitLevel(acc, 0, newFullDocLengthCodes(), section.RoaringBlockSize, 2, func(key uint64, term *postings.Level0Term) ScoreParams {
		return testScoring()
	})
	require.NoError(t, err)
	require.False(t, meta.Incomplete)
	require.Empty(t, acc.Terms())
	require.Len(t, store.Levels, 1)

	info, err := os.Stat(store.Path)
	require.NoError(t, err)
	require.EqualValues(t, store.size, info.Size())
}

func TestStore_CommitLevel_ReabsorbsIncompleteLevel(t *testing.T) {
	store := newTempStore(t, format.AccessRam)

	acc := postings.NewAccumulator(4096, 1024, le, true, 0)
	require.NoError(t, acc.IndexPosting(40, format.NgramSingle, 0, []postings.FieldPositions{{FieldID: 0, Positions: []uint32{3, 4}}}, false))

	scoring := func(key uint64, term *postings.Level0Term) ScoreParams { return testScoring() }

	meta, err := store.CommitLevel(acc, 0, newFullDocLengthCodes(), 1, 2, scoring)
	require.NoError(t, err)
	require.True(t, meta.Incomplete)
	require.Len(t, store.Levels, 1)

	require.NoError(t, acc.IndexPosting(40, format.NgramSingle, 1, []postings.FieldPositions{{FieldID: 0, Positions: []uint32{5}}}, false))

	meta2, err := store.CommitLevel(acc, 0, newFullDocLengthCodes(), 2, 3, scoring)
	require.NoError(t, err)
	require.Len(t, store.Levels, 1)
	require.Equal(t, uint64(2), meta2.IndexedDocCount)

	term, ok := acc.Term(40)
	require.False(t, ok)
	_ = term
}
