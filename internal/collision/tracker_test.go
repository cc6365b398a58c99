package collision

import (
	"testing"

	"github.com/SeekStorm/SeekStorm-sub001/errs"
	"github.com/stretchr/testify/require"
)

func TestNewTracker(t *testing.T) {
	tr := NewTracker()
	require.NotNil(t, tr)
	require.Equal(t, 0, tr.Count())
	require.False(t, tr.HasCollision())
	require.Empty(t, tr.Terms())
}

func TestTracker_TrackTerm_Success(t *testing.T) {
	tr := NewTracker()

	require.NoError(t, tr.TrackTerm("body", 0x1234567890abcdef))
	require.Equal(t, 1, tr.Count())
	require.False(t, tr.HasCollision())

	require.NoError(t, tr.TrackTerm("test", 0xfedcba0987654321))
	require.Equal(t, []string{"body", "test"}, tr.Terms())
}

func TestTracker_TrackTerm_Empty(t *testing.T) {
	tr := NewTracker()

	err := tr.TrackTerm("", 0x1)
	require.ErrorIs(t, err, errs.ErrInvalidTerm)
	require.Equal(t, 0, tr.Count())
}

func TestTracker_TrackTerm_Collision(t *testing.T) {
	tr := NewTracker()

	require.NoError(t, tr.TrackTerm("body", 0xABCD))
	require.False(t, tr.HasCollision())

	// different text, same key -> collision flagged, no error
	require.NoError(t, tr.TrackTerm("test", 0xABCD))
	require.True(t, tr.HasCollision())
	require.Equal(t, 2, tr.Count())
}

func TestTracker_TrackTerm_Duplicate(t *testing.T) {
	tr := NewTracker()

	require.NoError(t, tr.TrackTerm("body", 0xABCD))
	err := tr.TrackTerm("body", 0xABCD)
	require.ErrorIs(t, err, errs.ErrTermAlreadyTracked)
	require.False(t, tr.HasCollision())
	require.Equal(t, 1, tr.Count())
}

func TestTracker_TrackKey(t *testing.T) {
	tr := NewTracker()

	require.NoError(t, tr.TrackKey(0x1111))
	err := tr.TrackKey(0x1111)
	require.ErrorIs(t, err, errs.ErrHashCollision)
}

func TestTracker_Reset(t *testing.T) {
	tr := NewTracker()
	_ = tr.TrackTerm("body", 0x1)
	_ = tr.TrackTerm("test", 0x2)
	require.Equal(t, 2, tr.Count())

	tr.Reset()
	require.Equal(t, 0, tr.Count())
	require.False(t, tr.HasCollision())

	require.NoError(t, tr.TrackTerm("alpha", 0x3))
	require.Equal(t, []string{"alpha"}, tr.Terms())
}

func TestTracker_Reset_PreservesCapacity(t *testing.T) {
	tr := NewTracker()
	for i := 0; i < 50; i++ {
		_ = tr.TrackTerm("term", uint64(i))
	}
	initialCap := cap(tr.termList)

	tr.Reset()
	require.GreaterOrEqual(t, cap(tr.termList), initialCap)
}
