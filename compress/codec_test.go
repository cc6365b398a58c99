package compress

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestNoOpCompressor_RoundTrip(t *testing.T) {
	c := NewNoOpCompressor()
	data := []byte("the quick brown fox jumps over the lazy dog")

	compressed, err := c.Compress(data)
	require.NoError(t, err)
	require.Equal(t, data, compressed)

	original, err := c.Decompress(compressed)
	require.NoError(t, err)
	require.Equal(t, data, original)
}

func TestZstdCompressor_RoundTrip(t *testing.T) {
	c := NewZstdCompressor()
	data := []byte(`{"title":"seekstorm core","body":"body2 test body3 test"}`)

	compressed, err := c.Compress(data)
	require.NoError(t, err)

	original, err := c.Decompress(compressed)
	require.NoError(t, err)
	require.Equal(t, data, original)
}

func TestS2Compressor_RoundTrip(t *testing.T) {
	c := NewS2Compressor()
	data := []byte(`{"title":"seekstorm core","body":"body2 test body3 test"}`)

	compressed, err := c.Compress(data)
	require.NoError(t, err)

	original, err := c.Decompress(compressed)
	require.NoError(t, err)
	require.Equal(t, data, original)
}

func TestLZ4Compressor_RoundTrip(t *testing.T) {
	c := NewLZ4Compressor()
	data := []byte(`{"title":"seekstorm core","body":"body2 test body3 test"}`)

	compressed, err := c.Compress(data)
	require.NoError(t, err)

	original, err := c.Decompress(compressed)
	require.NoError(t, err)
	require.Equal(t, data, original)
}

func TestCreateCodec(t *testing.T) {
	for _, algo := range []Algorithm{AlgoNone, AlgoZstd, AlgoS2, AlgoLZ4} {
		codec, err := CreateCodec(algo, "docstore")
		require.NoError(t, err)
		require.NotNil(t, codec)
	}

	_, err := CreateCodec(Algorithm(0xFF), "docstore")
	require.Error(t, err)
}

func TestGetCodec(t *testing.T) {
	codec, err := GetCodec(AlgoZstd)
	require.NoError(t, err)
	require.NotNil(t, codec)

	_, err = GetCodec(Algorithm(0xFF))
	require.Error(t, err)
}

func TestStats_Ratio(t *testing.T) {
	s := Stats{Algorithm: AlgoZstd, OriginalSize: 1000, CompressedSize: 250}
	require.InDelta(t, 0.25, s.Ratio(), 1e-9)

	s = Stats{Algorithm: AlgoNone, OriginalSize: 0, CompressedSize: 0}
	require.Equal(t, 0.0, s.Ratio())
}

func TestAlgorithm_String(t *testing.T) {
	require.Equal(t, "None", AlgoNone.String())
	require.Equal(t, "Zstd", AlgoZstd.String())
	require.Equal(t, "S2", AlgoS2.String())
	require.Equal(t, "LZ4", AlgoLZ4.String())
	require.Equal(t, "Unknown", Algorithm(0xFF).String())
}
