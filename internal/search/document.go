// Package search provides the Bleve-backed full-text index over the whole
// library: titles, authors, and chapter text.
package search

import "time"

// BookDocument is the indexable representation of a book.
type BookDocument struct {
	ID        string
	Title     string
	Author    string
	Text      string // concatenated chapter plain text
	CreatedAt time.Time
}

// ToMap converts the document to a map with the lowercase field names the
// index mapping expects.
func (d *BookDocument) ToMap() map[string]any {
	return map[string]any{
		"id":         d.ID,
		"title":      d.Title,
		"author":     d.Author,
		"text":       d.Text,
		"created_at": float64(d.CreatedAt.UnixMilli()),
	}
}
