package postings

import (
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/SeekStorm/SeekStorm-sub001/endian"
)

func TestArena_AppendReturnsIncreasingOffsets(t *testing.T) {
	a := NewArena(64, 32)
	off1 := a.Append([]byte{1, 2, 3, 4})
	off2 := a.Append([]byte{5, 6, 7, 8})

	require.Equal(t, uint32(4), off1)
	require.Greater(t, off2, off1)
}

func TestArena_PatchNextPointer(t *testing.T) {
	engine := endian.GetLittleEndianEngine()
	a := NewArena(64, 32)
	off1 := a.Append(make([]byte, 8))
	off2 := a.Append(make([]byte, 8))

	a.PatchNextPointer(off1, off2, engine)
	require.Equal(t, off2, engine.Uint32(a.Bytes()[off1:off1+4]))
}

func TestArena_GrowsWhenNearlyFull(t *testing.T) {
	a := NewArena(8, 64)
	initialCap := a.buf.Cap()
	for i := 0; i < 20; i++ {
		a.Append(make([]byte, 4))
	}
	require.Greater(t, a.buf.Cap(), initialCap)
}

func TestArena_Reset(t *testing.T) {
	a := NewArena(64, 32)
	a.Append([]byte{1, 2, 3, 4})
	a.Reset()
	require.Equal(t, 4, a.Len())
}
