// Package domain contains the core business entities for the Folio e-book library.
package domain

import (
	"strings"
	"time"
)

// BookSchemaVersion is written into every persisted metadata record so future
// releases can migrate old files. Bump when the on-disk Book shape changes.
const BookSchemaVersion = 1

// Book represents an imported e-book and everything the reader knows about it.
// The collection is owned by the library store; everything handed to consumers
// is a copy.
type Book struct {
	ID              string      `json:"id"`
	SchemaVersion   int         `json:"schema_version"`
	Title           string      `json:"title"`
	Author          string      `json:"author"`
	CoverImage      string      `json:"cover_image,omitempty"` // data: URI once inlined
	CoverBlurhash   string      `json:"cover_blurhash,omitempty"`
	Path            string      `json:"path"`        // managed asset path ({books}/{id}.epub)
	SourcePath      string      `json:"source_path"` // where the user imported from
	ReadingProgress float64     `json:"reading_progress"`
	Bookmarks       []Bookmark  `json:"bookmarks"`
	Highlights      []Highlight `json:"highlights"`
	LastReadAt      time.Time   `json:"last_read_at"`
	CreatedAt       time.Time   `json:"created_at"`
}

// Bookmark marks a position in a book.
type Bookmark struct {
	ID        string    `json:"id"`
	Locator   string    `json:"locator"` // content-position reference (CFI)
	Text      string    `json:"text"`
	CreatedAt time.Time `json:"created_at"`
}

// HighlightColor is the palette available for highlights.
type HighlightColor string

// Allowed highlight colors.
const (
	ColorYellow HighlightColor = "yellow"
	ColorGreen  HighlightColor = "green"
	ColorBlue   HighlightColor = "blue"
	ColorPink   HighlightColor = "pink"
	ColorPurple HighlightColor = "purple"
)

// Valid reports whether the color is part of the palette.
func (c HighlightColor) Valid() bool {
	switch c {
	case ColorYellow, ColorGreen, ColorBlue, ColorPink, ColorPurple:
		return true
	}
	return false
}

// Highlight is a colored annotation over a text range. Highlights are
// append-only within their book and persist with it.
type Highlight struct {
	ID        string         `json:"id"`
	Locator   string         `json:"locator"`
	Text      string         `json:"text"`
	Color     HighlightColor `json:"color"`
	Note      string         `json:"note,omitempty"`
	CreatedAt time.Time      `json:"created_at"`
}

// Clone returns a deep copy of the book. The library store hands out clones
// so consumers can't mutate shared state.
func (b *Book) Clone() *Book {
	c := *b
	c.Bookmarks = make([]Bookmark, len(b.Bookmarks))
	copy(c.Bookmarks, b.Bookmarks)
	c.Highlights = make([]Highlight, len(b.Highlights))
	copy(c.Highlights, b.Highlights)
	return &c
}

// MatchesImport reports whether an import with the given source path and
// filename collides with this book. Title comparison is case-insensitive,
// first match wins.
func (b *Book) MatchesImport(sourcePath, fileName string) bool {
	if b.SourcePath == sourcePath {
		return true
	}
	return strings.EqualFold(b.Title, fileName)
}

// HasInlineCover reports whether the cover is already inlined as an encoded
// data URI, meaning no disk read is needed to display it.
func (b *Book) HasInlineCover() bool {
	return strings.HasPrefix(b.CoverImage, "data:")
}
