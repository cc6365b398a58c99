package seekstorm

import (
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"
)

func testConfig() Config {
	return Config{
		Fields: []FieldDef{
			{Name: "title", Indexed: true, Stored: true},
			{Name: "body", Indexed: true, Stored: true},
			{Name: "url", Indexed: false, Stored: true},
		},
		ShardCount: 2,
	}
}

func TestIndex_IndexAndSearch(t *testing.T) {
	idx, err := Open(t.TempDir(), testConfig())
	require.NoError(t, err)
	defer idx.Close()

	_, err = idx.IndexDocument(map[string]any{
		"title": "introducing seekstorm",
		"body":  "a block-at-a-time full-text search engine core",
		"url":   "https://example.com/intro",
	})
	require.NoError(t, err)

	_, err = idx.IndexDocument(map[string]any{
		"title": "unrelated article",
		"body":  "nothing to do with information retrieval",
		"url":   "https://example.com/other",
	})
	require.NoError(t, err)

	results, err := idx.Search(Query{Must: []string{"search", "engine"}}, 10)
	require.NoError(t, err)
	require.Len(t, results, 1)
}

func TestIndex_TermInMultipleFieldsSurvivesCommit(t *testing.T) {
	idx, err := Open(t.TempDir(), testConfig())
	require.NoError(t, err)
	defer idx.Close()

	_, err = idx.IndexDocument(map[string]any{
		"title": "storm storm",
		"body":  "the storm arrives at dawn storm season",
	})
	require.NoError(t, err)

	require.NoError(t, idx.Commit())

	results, err := idx.Search(Query{Must: []string{"storm"}}, 10)
	require.NoError(t, err)
	require.Len(t, results, 1)
}

func TestIndex_CountMatchesSearchResultLen(t *testing.T) {
	idx, err := Open(t.TempDir(), testConfig())
	require.NoError(t, err)
	defer idx.Close()

	_, err = idx.IndexDocument(map[string]any{"title": "alpha", "body": "matches"})
	require.NoError(t, err)
	_, err = idx.IndexDocument(map[string]any{"title": "alpha", "body": "also matches"})
	require.NoError(t, err)
	_, err = idx.IndexDocument(map[string]any{"title": "beta", "body": "unrelated"})
	require.NoError(t, err)

	n, err := idx.Count(Query{Must: []string{"alpha"}})
	require.NoError(t, err)
	require.Equal(t, 2, n)
}

func TestIndex_CountExcludesDeleted(t *testing.T) {
	idx, err := Open(t.TempDir(), testConfig())
	require.NoError(t, err)
	defer idx.Close()

	docID, err := idx.IndexDocument(map[string]any{"title": "removable", "body": "temporary content"})
	require.NoError(t, err)
	require.NoError(t, idx.Delete(docID))

	n, err := idx.Count(Query{Must: []string{"removable"}})
	require.NoError(t, err)
	require.Equal(t, 0, n)
}

func TestIndex_PhraseRequiresAdjacentOrder(t *testing.T) {
	idx, err := Open(t.TempDir(), testConfig())
	require.NoError(t, err)
	defer idx.Close()

	_, err = idx.IndexDocument(map[string]any{"title": "alpha beta", "body": "content"})
	require.NoError(t, err)
	_, err = idx.IndexDocument(map[string]any{"title": "beta alpha", "body": "content"})
	require.NoError(t, err)

	results, err := idx.Search(Query{Phrases: [][]string{{"alpha", "beta"}}}, 10)
	require.NoError(t, err)
	require.Len(t, results, 1)
}

func TestIndex_GetDocumentAfterCommit(t *testing.T) {
	idx, err := Open(t.TempDir(), testConfig())
	require.NoError(t, err)
	defer idx.Close()

	docID, err := idx.IndexDocument(map[string]any{
		"title": "hello",
		"body":  "world",
		"url":   "https://example.com/hello",
	})
	require.NoError(t, err)

	require.NoError(t, idx.Commit())

	doc, err := idx.GetDocument(docID)
	require.NoError(t, err)
	require.Equal(t, "hello", doc["title"])
	require.Equal(t, "https://example.com/hello", doc["url"])
}

func TestIndex_DeleteExcludesFromSearch(t *testing.T) {
	idx, err := Open(t.TempDir(), testConfig())
	require.NoError(t, err)
	defer idx.Close()

	docID, err := idx.IndexDocument(map[string]any{
		"title": "removable",
		"body":  "temporary content",
	})
	require.NoError(t, err)

	require.NoError(t, idx.Delete(docID))

	results, err := idx.Search(Query{Must: []string{"removable"}}, 10)
	require.NoError(t, err)
	require.Empty(t, results)
}

func TestIndex_ClearAndReindex(t *testing.T) {
	idx, err := Open(t.TempDir(), testConfig())
	require.NoError(t, err)
	defer idx.Close()

	_, err = idx.IndexDocument(map[string]any{"title": "first", "body": "content one"})
	require.NoError(t, err)
	require.NoError(t, idx.Commit())

	require.NoError(t, idx.Clear())

	results, err := idx.Search(Query{Must: []string{"first"}}, 10)
	require.NoError(t, err)
	require.Empty(t, results)

	docID, err := idx.IndexDocument(map[string]any{"title": "second", "body": "content two"})
	require.NoError(t, err)
	require.Equal(t, uint64(0), docID)
}

func TestIndex_RequiresAtLeastOneField(t *testing.T) {
	_, err := Open(t.TempDir(), Config{})
	require.Error(t, err)
}

func TestIndex_ReopenPersistsDocumentFiles(t *testing.T) {
	dir := t.TempDir()

	idx, err := Open(dir, testConfig())
	require.NoError(t, err)

	docID, err := idx.IndexDocument(map[string]any{"title": "persisted", "body": "content"})
	require.NoError(t, err)
	require.NoError(t, idx.Close())

	reopened, err := Open(dir, testConfig())
	require.NoError(t, err)
	defer reopened.Close()

	doc, err := reopened.GetDocument(docID)
	require.NoError(t, err)
	require.Equal(t, "persisted", doc["title"])
}

func TestTokenize(t *testing.T) {
	require.Equal(t, []string{"hello", "world"}, tokenize("Hello, World!"))
	require.Empty(t, tokenize("   "))
}

func TestVersion(t *testing.T) {
	require.NotEmpty(t, Version())
}

func TestIndex_DocStorePathsAreDistinct(t *testing.T) {
	idx, err := Open(t.TempDir(), testConfig())
	require.NoError(t, err)
	defer idx.Close()

	require.Len(t, idx.docs, 2)
	require.NotEqual(t, filepath.Base(idx.docs[0].Path()), filepath.Base(idx.docs[1].Path()))
}
