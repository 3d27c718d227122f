package domain

import "time"

// Excerpt is a user-saved passage of text. It holds a weak reference to the
// book it came from: deleting the book leaves its excerpts in place, so a
// reader keeps their clippings even after pruning the library.
type Excerpt struct {
	ID        string    `json:"id"`
	BookID    string    `json:"book_id"`
	Text      string    `json:"text"`
	Locator   string    `json:"locator"`
	Note      string    `json:"note,omitempty"`
	CreatedAt time.Time `json:"created_at"`
}
