package storage

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestFiles(t *testing.T) *Files {
	t.Helper()
	f, err := NewFiles(t.TempDir())
	require.NoError(t, err)
	return f
}

func TestNewFiles_CreatesDirectories(t *testing.T) {
	dir := t.TempDir()
	_, err := NewFiles(dir)
	require.NoError(t, err)

	for _, sub := range []string{"books", "metadata"} {
		info, err := os.Stat(filepath.Join(dir, sub))
		require.NoError(t, err)
		assert.True(t, info.IsDir())
	}
}

func TestNewFiles_EmptyPath(t *testing.T) {
	_, err := NewFiles("")
	assert.Error(t, err)
}

func TestCopyAsset(t *testing.T) {
	f := newTestFiles(t)

	src := filepath.Join(t.TempDir(), "source.epub")
	require.NoError(t, os.WriteFile(src, []byte("epub-bytes"), 0644))

	require.NoError(t, f.CopyAsset("book-1", src))

	data, err := os.ReadFile(f.AssetPath("book-1"))
	require.NoError(t, err)
	assert.Equal(t, []byte("epub-bytes"), data)
	assert.True(t, f.AssetExists("book-1"))
}

func TestCopyAsset_MissingSource(t *testing.T) {
	f := newTestFiles(t)
	assert.Error(t, f.CopyAsset("book-1", "/nonexistent/file.epub"))
	assert.False(t, f.AssetExists("book-1"))
}

func TestCoverRoundTrip(t *testing.T) {
	f := newTestFiles(t)

	require.NoError(t, f.WriteCover("book-1", []byte{0xFF, 0xD8}))
	data, err := f.ReadCover("book-1")
	require.NoError(t, err)
	assert.Equal(t, []byte{0xFF, 0xD8}, data)

	_, err = f.ReadCover("book-2")
	assert.Error(t, err)
}

func TestWriteMetadata_Atomic(t *testing.T) {
	f := newTestFiles(t)

	require.NoError(t, f.WriteMetadata("book-1", []byte(`{"id":"book-1"}`)))
	require.NoError(t, f.WriteMetadata("book-1", []byte(`{"id":"book-1","title":"x"}`)))

	data, err := f.ReadMetadata("book-1")
	require.NoError(t, err)
	assert.JSONEq(t, `{"id":"book-1","title":"x"}`, string(data))

	// No temp file left behind.
	_, err = os.Stat(f.MetadataPath("book-1") + ".tmp")
	assert.True(t, os.IsNotExist(err))
}

func TestListMetadataIDs(t *testing.T) {
	f := newTestFiles(t)

	require.NoError(t, f.WriteMetadata("b1", []byte("{}")))
	require.NoError(t, f.WriteMetadata("b2", []byte("{}")))

	ids, err := f.ListMetadataIDs()
	require.NoError(t, err)
	assert.ElementsMatch(t, []string{"b1", "b2"}, ids)
}

func TestDelete_MissingFilesAreFine(t *testing.T) {
	f := newTestFiles(t)

	assert.NoError(t, f.DeleteAsset("ghost"))
	assert.NoError(t, f.DeleteCover("ghost"))
	assert.NoError(t, f.DeleteMetadata("ghost"))
}

func TestDelete_RemovesArtifacts(t *testing.T) {
	f := newTestFiles(t)

	src := filepath.Join(t.TempDir(), "src.epub")
	require.NoError(t, os.WriteFile(src, []byte("x"), 0644))
	require.NoError(t, f.CopyAsset("b1", src))
	require.NoError(t, f.WriteCover("b1", []byte("img")))
	require.NoError(t, f.WriteMetadata("b1", []byte("{}")))

	require.NoError(t, f.DeleteAsset("b1"))
	require.NoError(t, f.DeleteCover("b1"))
	require.NoError(t, f.DeleteMetadata("b1"))

	assert.False(t, f.AssetExists("b1"))
	ids, err := f.ListMetadataIDs()
	require.NoError(t, err)
	assert.Empty(t, ids)
}
