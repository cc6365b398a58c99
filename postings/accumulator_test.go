package postings

import (
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/SeekStorm/SeekStorm-sub001/endian"
	"github.com/SeekStorm/SeekStorm-sub001/errs"
	"github.com/SeekStorm/SeekStorm-sub001/format"
)

func newTestAccumulator() *Accumulator {
	return NewAccumulator(4096, 1024, endian.GetLittleEndianEngine(), true, 0)
}

func TestIndexPosting_CreatesTerm(t *testing.T) {
	acc := newTestAccumulator()
	err := acc.IndexPosting(1, format.NgramSingle, 5, []FieldPositions{{FieldID: 0, Positions: []uint32{1, 3}}}, false)
	require.NoError(t, err)

	term, ok := acc.Term(1)
	require.True(t, ok)
	require.Equal(t, 1, term.PostingCount)
	require.Equal(t, 2, term.PositionCount)
	require.Equal(t, uint16(5), term.MaxDocid)
	require.NotEqual(t, NilPointer, term.PointerFirst)
	require.Equal(t, term.PointerFirst, term.PointerLast)
}

func TestIndexPosting_ExtendsLinkedList(t *testing.T) {
	acc := newTestAccumulator()
	require.NoError(t, acc.IndexPosting(1, format.NgramSingle, 1, []FieldPositions{{FieldID: 0, Positions: []uint32{1}}}, false))
	require.NoError(t, acc.IndexPosting(1, format.NgramSingle, 2, []FieldPositions{{FieldID: 0, Positions: []uint32{2}}}, false))

	term, _ := acc.Term(1)
	require.Equal(t, 2, term.PostingCount)
	require.NotEqual(t, term.PointerFirst, term.PointerLast)

	engine := endian.GetLittleEndianEngine()
	next, docidLow, _, _ := readHeader(acc.arena.Bytes(), int(term.PointerFirst), engine)
	require.Equal(t, term.PointerLast, next)
	require.Equal(t, uint16(1), docidLow)
}

func readHeader(buf []byte, off int, engine endian.EndianEngine) (uint32, uint16, uint16, int) {
	next := engine.Uint32(buf[off : off+4])
	docidLow := engine.Uint16(buf[off+4 : off+6])
	lengthWord := engine.Uint16(buf[off+6 : off+8])
	return next, docidLow, lengthWord, off + 8
}

func TestIndexPosting_RejectsEmptyPosting(t *testing.T) {
	acc := newTestAccumulator()
	err := acc.IndexPosting(1, format.NgramSingle, 1, []FieldPositions{{FieldID: 0, Positions: nil}}, false)
	require.ErrorIs(t, err, errs.ErrEmptyPosting)

	_, ok := acc.Term(1)
	require.False(t, ok)
}

func TestIndexPosting_MultipleTerms(t *testing.T) {
	acc := newTestAccumulator()
	require.NoError(t, acc.IndexPosting(1, format.NgramSingle, 1, []FieldPositions{{FieldID: 0, Positions: []uint32{1}}}, false))
	require.NoError(t, acc.IndexPosting(2, format.NgramSingle, 1, []FieldPositions{{FieldID: 0, Positions: []uint32{5}}}, false))

	require.Len(t, acc.Terms(), 2)
}

func TestAccumulator_Reset(t *testing.T) {
	acc := newTestAccumulator()
	require.NoError(t, acc.IndexPosting(1, format.NgramSingle, 1, []FieldPositions{{FieldID: 0, Positions: []uint32{1}}}, false))
	acc.Reset()

	require.Empty(t, acc.Terms())
	require.Equal(t, 4, acc.arena.Len())
}

func TestLevel0Term_PivotFlipsAfterPostingCountThreshold(t *testing.T) {
	term := NewLevel0Term(format.NgramSingle)
	term.PostingCount = pivotPostingCountThreshold + 1
	term.MaybeFlipPivot()
	require.NotZero(t, term.PointerPivotPDocid)
}

func TestDeltaEncode(t *testing.T) {
	got := deltaEncode([]uint32{3, 10, 11})
	require.Equal(t, []uint32{3, 6, 0}, got)
}
