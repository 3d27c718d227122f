package epub

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/folioapp/folio-server/internal/epub/epubtest"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeFixture(t *testing.T, fx epubtest.Fixture) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "book.epub")
	require.NoError(t, epubtest.Write(path, fx))
	return path
}

func TestOpen_Metadata(t *testing.T) {
	path := writeFixture(t, epubtest.Fixture{
		Title:    "Moby Dick",
		Author:   "Herman Melville",
		Chapters: []string{"<p>Call me Ishmael.</p>"},
	})

	d, err := Open(path)
	require.NoError(t, err)
	defer d.Close()

	assert.Equal(t, "Moby Dick", d.Title())
	assert.Equal(t, "Herman Melville", d.Author())
	assert.Equal(t, 1, d.ChapterCount())
}

func TestOpen_MissingMetadataFallsBack(t *testing.T) {
	path := writeFixture(t, epubtest.Fixture{
		Chapters: []string{"<p>text</p>"},
	})

	d, err := Open(path)
	require.NoError(t, err)
	defer d.Close()

	assert.Equal(t, UnknownTitle, d.Title())
	assert.Equal(t, UnknownAuthor, d.Author())
}

func TestCover_EPUB2Meta(t *testing.T) {
	cover := []byte{0xFF, 0xD8, 0xFF, 0xE0, 0x01, 0x02}
	path := writeFixture(t, epubtest.Fixture{
		Title:    "With Cover",
		Chapters: []string{"<p>x</p>"},
		Cover:    cover,
	})

	d, err := Open(path)
	require.NoError(t, err)
	defer d.Close()

	data, mediaType, err := d.Cover()
	require.NoError(t, err)
	assert.Equal(t, cover, data)
	assert.Equal(t, "image/jpeg", mediaType)
}

func TestCover_None(t *testing.T) {
	path := writeFixture(t, epubtest.Fixture{Title: "Bare", Chapters: []string{"<p>x</p>"}})

	d, err := Open(path)
	require.NoError(t, err)
	defer d.Close()

	data, _, err := d.Cover()
	require.NoError(t, err)
	assert.Nil(t, data)
}

func TestChapterText(t *testing.T) {
	path := writeFixture(t, epubtest.Fixture{
		Title: "Text",
		Chapters: []string{
			"<p>Call me <b>Ishmael</b>.</p><script>evil()</script>",
			"<h1>Chapter 2</h1><p>It was the best of&nbsp;times.</p>",
		},
	})

	d, err := Open(path)
	require.NoError(t, err)
	defer d.Close()

	ch0, err := d.ChapterText(0)
	require.NoError(t, err)
	assert.Contains(t, ch0, "Call me Ishmael")
	assert.NotContains(t, ch0, "evil")
	assert.NotContains(t, ch0, "<b>")

	ch1, err := d.ChapterText(1)
	require.NoError(t, err)
	assert.Contains(t, ch1, "best of times")

	_, err = d.ChapterText(5)
	assert.Error(t, err)
}

func TestExtractMetadata(t *testing.T) {
	cover := []byte{0xFF, 0xD8, 0xFF}
	path := writeFixture(t, epubtest.Fixture{
		Title:    "Dracula",
		Author:   "Bram Stoker",
		Chapters: []string{"<p>x</p>"},
		Cover:    cover,
	})

	meta, err := ExtractMetadata(path)
	require.NoError(t, err)
	assert.Equal(t, "Dracula", meta.Title)
	assert.Equal(t, "Bram Stoker", meta.Author)
	assert.Equal(t, cover, meta.CoverData)
	assert.Equal(t, "image/jpeg", meta.CoverMediaType)
}

func TestOpen_NotAnEPUB(t *testing.T) {
	path := filepath.Join(t.TempDir(), "not.epub")
	require.NoError(t, os.WriteFile(path, []byte("definitely not a zip"), 0644))

	_, err := Open(path)
	assert.Error(t, err)
}

func TestStripTags(t *testing.T) {
	got := StripTags(`<div class="x">a &amp; b   <br/>c</div>`)
	assert.Equal(t, "a & b c", got)
}
