package domain

import (
	"testing"
	"time"

	"encoding/json/v2"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestBook_Clone_IsDeep(t *testing.T) {
	b := &Book{
		ID:         "book-1",
		Title:      "Moby Dick",
		Bookmarks:  []Bookmark{{ID: "bm-1", Locator: "loc-1"}},
		Highlights: []Highlight{{ID: "hl-1", Color: ColorYellow}},
	}

	c := b.Clone()
	c.Highlights[0].Color = ColorBlue
	c.Bookmarks[0].Locator = "loc-other"
	c.Title = "changed"

	assert.Equal(t, ColorYellow, b.Highlights[0].Color)
	assert.Equal(t, "loc-1", b.Bookmarks[0].Locator)
	assert.Equal(t, "Moby Dick", b.Title)
}

func TestBook_MatchesImport(t *testing.T) {
	b := &Book{Title: "Moby Dick", SourcePath: "/tmp/a.epub"}

	assert.True(t, b.MatchesImport("/tmp/a.epub", "whatever"))
	assert.True(t, b.MatchesImport("/tmp/other.epub", "moby dick"))
	assert.True(t, b.MatchesImport("/tmp/other.epub", "MOBY DICK"))
	assert.False(t, b.MatchesImport("/tmp/other.epub", "Dracula"))
}

func TestBook_HasInlineCover(t *testing.T) {
	assert.True(t, (&Book{CoverImage: "data:image/jpeg;base64,abcd"}).HasInlineCover())
	assert.False(t, (&Book{CoverImage: "/data/books/x.cover.jpg"}).HasInlineCover())
	assert.False(t, (&Book{}).HasInlineCover())
}

func TestBook_JSONRoundTrip(t *testing.T) {
	now := time.Now().UTC().Truncate(time.Second)
	b := &Book{
		ID:              "book-1",
		SchemaVersion:   BookSchemaVersion,
		Title:           "Moby Dick",
		Author:          "Herman Melville",
		Path:            "/data/books/book-1.epub",
		SourcePath:      "/tmp/a.epub",
		ReadingProgress: 0.42,
		Bookmarks:       []Bookmark{{ID: "bm-1", Locator: "cfi(/6/4)", Text: "Call me Ishmael", CreatedAt: now}},
		Highlights:      []Highlight{{ID: "hl-1", Locator: "cfi(/6/8)", Text: "the whale", Color: ColorYellow, Note: "!", CreatedAt: now}},
		LastReadAt:      now,
		CreatedAt:       now,
	}

	data, err := json.Marshal(b)
	require.NoError(t, err)

	var got Book
	require.NoError(t, json.Unmarshal(data, &got))
	assert.Equal(t, *b, got)
}

func TestHighlightColor_Valid(t *testing.T) {
	for _, c := range []HighlightColor{ColorYellow, ColorGreen, ColorBlue, ColorPink, ColorPurple} {
		assert.True(t, c.Valid(), string(c))
	}
	assert.False(t, HighlightColor("chartreuse").Valid())
	assert.False(t, HighlightColor("").Valid())
}
