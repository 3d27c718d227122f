package search

import (
	"context"
	"log/slog"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestIndex(t *testing.T) *Index {
	t.Helper()
	idx, err := NewIndex(Options{
		DataPath: t.TempDir(),
		Logger:   slog.New(slog.DiscardHandler),
	})
	require.NoError(t, err)
	t.Cleanup(func() { _ = idx.Close() })
	return idx
}

func testDocs() []*BookDocument {
	return []*BookDocument{
		{
			ID:        "book-1",
			Title:     "Moby Dick",
			Author:    "Herman Melville",
			Text:      "Call me Ishmael. Some years ago I went to sea, chasing the white whale.",
			CreatedAt: time.Now(),
		},
		{
			ID:        "book-2",
			Title:     "Treasure Island",
			Author:    "Robert Louis Stevenson",
			Text:      "Squire Trelawney, Dr. Livesey, and the rest of these gentlemen.",
			CreatedAt: time.Now(),
		},
	}
}

func TestIndexAndSearch_Title(t *testing.T) {
	idx := newTestIndex(t)
	require.NoError(t, idx.IndexBooks(testDocs()))

	result, err := idx.Search(context.Background(), Params{Query: "moby", Limit: 10})
	require.NoError(t, err)
	require.NotEmpty(t, result.Hits)
	assert.Equal(t, "book-1", result.Hits[0].ID)
	assert.Equal(t, "Moby Dick", result.Hits[0].Title)
	assert.Equal(t, "Herman Melville", result.Hits[0].Author)
}

func TestSearch_ChapterText(t *testing.T) {
	idx := newTestIndex(t)
	require.NoError(t, idx.IndexBooks(testDocs()))

	result, err := idx.Search(context.Background(), Params{Query: "ishmael", Limit: 10})
	require.NoError(t, err)
	require.NotEmpty(t, result.Hits)
	assert.Equal(t, "book-1", result.Hits[0].ID)
}

func TestSearch_Highlighting(t *testing.T) {
	idx := newTestIndex(t)
	require.NoError(t, idx.IndexBooks(testDocs()))

	result, err := idx.Search(context.Background(), Params{Query: "whale", Limit: 10})
	require.NoError(t, err)
	require.NotEmpty(t, result.Hits)
	assert.Contains(t, result.Hits[0].Highlights["text"], "<mark>")
}

func TestSearch_Author(t *testing.T) {
	idx := newTestIndex(t)
	require.NoError(t, idx.IndexBooks(testDocs()))

	result, err := idx.Search(context.Background(), Params{Query: "stevenson", Limit: 10})
	require.NoError(t, err)
	require.NotEmpty(t, result.Hits)
	assert.Equal(t, "book-2", result.Hits[0].ID)
}

func TestDeleteBook(t *testing.T) {
	idx := newTestIndex(t)
	require.NoError(t, idx.IndexBooks(testDocs()))

	require.NoError(t, idx.DeleteBook("book-1"))

	count, err := idx.DocumentCount()
	require.NoError(t, err)
	assert.Equal(t, uint64(1), count)

	result, err := idx.Search(context.Background(), Params{Query: "moby", Limit: 10})
	require.NoError(t, err)
	for _, hit := range result.Hits {
		assert.NotEqual(t, "book-1", hit.ID)
	}
}

func TestMappingVersionMismatchRebuilds(t *testing.T) {
	dir := t.TempDir()

	idx, err := NewIndex(Options{DataPath: dir, Logger: slog.New(slog.DiscardHandler)})
	require.NoError(t, err)
	require.NoError(t, idx.IndexBooks(testDocs()))
	require.NoError(t, idx.Close())

	// Simulate an old mapping on disk.
	require.NoError(t, os.WriteFile(filepath.Join(dir, "search.version"), []byte("0"), 0644))

	idx, err = NewIndex(Options{DataPath: dir, Logger: slog.New(slog.DiscardHandler)})
	require.NoError(t, err)
	defer func() { _ = idx.Close() }()

	count, err := idx.DocumentCount()
	require.NoError(t, err)
	assert.Equal(t, uint64(0), count, "rebuild must start from an empty index")

	// Version file updated to current.
	version, err := os.ReadFile(filepath.Join(dir, "search.version"))
	require.NoError(t, err)
	assert.Equal(t, mappingVersion, string(version))
}

func TestReopenKeepsDocuments(t *testing.T) {
	dir := t.TempDir()

	idx, err := NewIndex(Options{DataPath: dir, Logger: slog.New(slog.DiscardHandler)})
	require.NoError(t, err)
	require.NoError(t, idx.IndexBooks(testDocs()))
	require.NoError(t, idx.Close())

	idx, err = NewIndex(Options{DataPath: dir, Logger: slog.New(slog.DiscardHandler)})
	require.NoError(t, err)
	defer func() { _ = idx.Close() }()

	count, err := idx.DocumentCount()
	require.NoError(t, err)
	assert.Equal(t, uint64(2), count)
}
