package pool

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestByteBuffer_WriteAndGrow(t *testing.T) {
	bb := NewByteBuffer(4)
	bb.MustWrite([]byte("hello"))
	require.Equal(t, "hello", string(bb.Bytes()))
	require.Equal(t, 5, bb.Len())

	bb.MustWrite([]byte(" world"))
	require.Equal(t, "hello world", string(bb.Bytes()))
}

func TestByteBuffer_Reset(t *testing.T) {
	bb := NewByteBuffer(16)
	bb.MustWrite([]byte("postings"))
	capBefore := bb.Cap()

	bb.Reset()
	require.Equal(t, 0, bb.Len())
	require.Equal(t, capBefore, bb.Cap())
}

func TestByteBuffer_ExtendOrGrow(t *testing.T) {
	bb := NewByteBuffer(0)
	bb.ExtendOrGrow(10)
	require.Equal(t, 10, bb.Len())
	require.GreaterOrEqual(t, bb.Cap(), 10)
}

func TestByteBuffer_GrowBy(t *testing.T) {
	bb := NewByteBuffer(8)
	bb.MustWrite([]byte("arena"))
	capBefore := bb.Cap()

	bb.GrowBy(1024)
	require.Equal(t, "arena", string(bb.Bytes()))
	require.Equal(t, capBefore+1024, bb.Cap())
}

func TestByteBuffer_Slice(t *testing.T) {
	bb := NewByteBuffer(16)
	bb.ExtendOrGrow(8)
	copy(bb.Bytes(), []byte("12345678"))

	s := bb.Slice(2, 6)
	require.Equal(t, "3456", string(s))
}

func TestByteBufferPool_GetPut(t *testing.T) {
	p := NewByteBufferPool(64, 256)

	bb := p.Get()
	require.NotNil(t, bb)
	bb.MustWrite([]byte("data"))

	p.Put(bb)

	bb2 := p.Get()
	require.Equal(t, 0, bb2.Len())
}

func TestByteBufferPool_DiscardsOversizedBuffers(t *testing.T) {
	p := NewByteBufferPool(16, 32)

	bb := p.Get()
	bb.GrowBy(1024)
	p.Put(bb) // should be discarded, not pooled, since it exceeds maxThreshold

	bb2 := p.Get()
	require.Less(t, bb2.Cap(), 1024)
}

func TestScratchBufferPool(t *testing.T) {
	bb := GetScratchBuffer()
	require.NotNil(t, bb)
	bb.MustWrite([]byte{1, 2, 3})
	PutScratchBuffer(bb)
}
