package pool

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestGetUint32Slice(t *testing.T) {
	s, cleanup := GetUint32Slice(10)
	defer cleanup()

	require.Len(t, s, 10)
	for i := range s {
		s[i] = uint32(i)
	}
	require.Equal(t, uint32(9), s[9])
}

func TestGetUint32Slice_GrowsWhenCapacityInsufficient(t *testing.T) {
	s1, cleanup1 := GetUint32Slice(4)
	require.Len(t, s1, 4)
	cleanup1()

	// A larger request than any pooled capacity must still yield the exact
	// requested length, whether or not the pool happened to reuse a slice.
	s2, cleanup2 := GetUint32Slice(1000)
	defer cleanup2()
	require.Len(t, s2, 1000)
}

func TestGetFloat64Slice(t *testing.T) {
	s, cleanup := GetFloat64Slice(5)
	defer cleanup()
	require.Len(t, s, 5)
}

func TestGetStringSlice(t *testing.T) {
	s, cleanup := GetStringSlice(3)
	defer cleanup()
	require.Len(t, s, 3)
	s[0] = "body2"
	s[1] = "+test"
	require.Equal(t, "body2", s[0])
}
