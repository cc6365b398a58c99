package docstore

import (
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/SeekStorm/SeekStorm-sub001/compress"
	"github.com/SeekStorm/SeekStorm-sub001/endian"
)

var le = endian.GetLittleEndianEngine()

type sampleDoc struct {
	Title string `json:"title"`
	Body  string `json:"body"`
}

func openTestStore(t *testing.T, algo compress.Algorithm) *Store {
	t.Helper()

	path := filepath.Join(t.TempDir(), "docs.store")
	s, err := Open(path, algo, le)
	require.NoError(t, err)
	t.Cleanup(func() { s.Close() })

	return s
}

func TestStore_PutCommitGet(t *testing.T) {
	s := openTestStore(t, compress.AlgoZstd)

	require.NoError(t, s.Put(0, sampleDoc{Title: "hello", Body: "world"}))
	require.NoError(t, s.Put(1, sampleDoc{Title: "second", Body: "doc"}))
	require.NoError(t, s.CommitLevel())

	raw, err := s.Get(0, 0)
	require.NoError(t, err)
	require.JSONEq(t, `{"title":"hello","body":"world"}`, string(raw))

	raw, err = s.Get(0, 1)
	require.NoError(t, err)
	require.JSONEq(t, `{"title":"second","body":"doc"}`, string(raw))
}

func TestStore_UnwrittenSlotNotFound(t *testing.T) {
	s := openTestStore(t, compress.AlgoNone)

	require.NoError(t, s.Put(5, sampleDoc{Title: "only five"}))
	require.NoError(t, s.CommitLevel())

	_, err := s.Get(0, 0)
	require.Error(t, err)

	_, err = s.Get(0, 6)
	require.Error(t, err)

	raw, err := s.Get(0, 5)
	require.NoError(t, err)
	require.JSONEq(t, `{"title":"only five","body":""}`, string(raw))
}

func TestStore_LevelOutOfRange(t *testing.T) {
	s := openTestStore(t, compress.AlgoS2)

	_, err := s.Get(0, 0)
	require.Error(t, err)
	require.Equal(t, 0, s.LevelCount())
}

func TestStore_MultipleLevels(t *testing.T) {
	s := openTestStore(t, compress.AlgoLZ4)

	require.NoError(t, s.Put(0, sampleDoc{Title: "level0"}))
	require.NoError(t, s.CommitLevel())

	require.NoError(t, s.Put(0, sampleDoc{Title: "level1"}))
	require.NoError(t, s.CommitLevel())

	require.Equal(t, 2, s.LevelCount())

	raw0, err := s.Get(0, 0)
	require.NoError(t, err)
	require.JSONEq(t, `{"title":"level0","body":""}`, string(raw0))

	raw1, err := s.Get(1, 0)
	require.NoError(t, err)
	require.JSONEq(t, `{"title":"level1","body":""}`, string(raw1))
}

func TestStore_ReopenPersists(t *testing.T) {
	path := filepath.Join(t.TempDir(), "docs.store")

	s, err := Open(path, compress.AlgoZstd, le)
	require.NoError(t, err)
	require.NoError(t, s.Put(42, sampleDoc{Title: "persisted"}))
	require.NoError(t, s.CommitLevel())
	require.NoError(t, s.Close())

	reopened, err := Open(path, compress.AlgoZstd, le)
	require.NoError(t, err)
	defer reopened.Close()

	raw, err := reopened.Get(0, 42)
	require.NoError(t, err)
	require.JSONEq(t, `{"title":"persisted","body":""}`, string(raw))
}
