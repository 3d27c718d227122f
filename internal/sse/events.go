// Package sse implements Server-Sent Events for pushing library, settings,
// excerpt, and lookup changes to the desktop shell.
package sse

import (
	"time"

	"github.com/folioapp/folio-server/internal/domain"
)

// EventType represents the type of SSE Event.
type EventType string

const (
	// EventBookImported represents a new book entering the library.
	EventBookImported EventType = "book.imported"
	// EventBookUpdated represents a change to an existing book (progress,
	// highlight, bookmark, cover).
	EventBookUpdated EventType = "book.updated"
	// EventBookDeleted represents a book removal.
	EventBookDeleted EventType = "book.deleted"

	// EventSettingsUpdated represents a reader-settings change.
	EventSettingsUpdated EventType = "settings.updated"

	// EventExcerptAdded represents a new saved excerpt.
	EventExcerptAdded EventType = "excerpt.added"
	// EventExcerptUpdated represents an excerpt note change.
	EventExcerptUpdated EventType = "excerpt.updated"
	// EventExcerptDeleted represents an excerpt removal.
	EventExcerptDeleted EventType = "excerpt.deleted"

	// EventLookupUpdated represents a change to the current lookup result.
	EventLookupUpdated EventType = "lookup.updated"

	// EventHeartbeat represents a connection keepalive event.
	EventHeartbeat EventType = "heartbeat"
)

// Event represents an SSE event to be sent to clients. The Data field
// contains the event payload as a JSON object for direct deserialization.
type Event struct {
	Timestamp time.Time `json:"timestamp"`
	Data      any       `json:"data"`
	Type      EventType `json:"type"`
}

// BookEventData is the data payload for book events. The full record is
// included so the shell can render without a follow-up request.
type BookEventData struct {
	Book *domain.Book `json:"book"`
}

// BookDeletedEventData is the data payload for book delete events.
type BookDeletedEventData struct {
	DeletedAt time.Time `json:"deleted_at"`
	BookID    string    `json:"book_id"`
}

// ExcerptEventData is the data payload for excerpt add/update events.
type ExcerptEventData struct {
	Excerpt domain.Excerpt `json:"excerpt"`
}

// ExcerptDeletedEventData is the data payload for excerpt delete events.
type ExcerptDeletedEventData struct {
	DeletedAt time.Time `json:"deleted_at"`
	ExcerptID string    `json:"excerpt_id"`
}

// HeartbeatEventData is the data payload for heartbeat events.
type HeartbeatEventData struct {
	ServerTime time.Time `json:"server_time"`
}

// NewBookImportedEvent creates a book import event.
func NewBookImportedEvent(book *domain.Book) Event {
	return Event{
		Type:      EventBookImported,
		Timestamp: time.Now(),
		Data:      BookEventData{Book: book},
	}
}

// NewBookUpdatedEvent creates a book update event.
func NewBookUpdatedEvent(book *domain.Book) Event {
	return Event{
		Type:      EventBookUpdated,
		Timestamp: time.Now(),
		Data:      BookEventData{Book: book},
	}
}

// NewBookDeletedEvent creates a book delete event.
func NewBookDeletedEvent(bookID string) Event {
	now := time.Now()
	return Event{
		Type:      EventBookDeleted,
		Timestamp: now,
		Data:      BookDeletedEventData{DeletedAt: now, BookID: bookID},
	}
}

// NewSettingsUpdatedEvent creates a settings change event.
func NewSettingsUpdatedEvent(settings domain.ReaderSettings) Event {
	return Event{
		Type:      EventSettingsUpdated,
		Timestamp: time.Now(),
		Data:      settings,
	}
}

// NewExcerptAddedEvent creates an excerpt add event.
func NewExcerptAddedEvent(excerpt domain.Excerpt) Event {
	return Event{
		Type:      EventExcerptAdded,
		Timestamp: time.Now(),
		Data:      ExcerptEventData{Excerpt: excerpt},
	}
}

// NewExcerptUpdatedEvent creates an excerpt note-change event.
func NewExcerptUpdatedEvent(excerpt domain.Excerpt) Event {
	return Event{
		Type:      EventExcerptUpdated,
		Timestamp: time.Now(),
		Data:      ExcerptEventData{Excerpt: excerpt},
	}
}

// NewExcerptDeletedEvent creates an excerpt delete event.
func NewExcerptDeletedEvent(excerptID string) Event {
	now := time.Now()
	return Event{
		Type:      EventExcerptDeleted,
		Timestamp: now,
		Data:      ExcerptDeletedEventData{DeletedAt: now, ExcerptID: excerptID},
	}
}

// NewLookupUpdatedEvent creates a lookup result event.
func NewLookupUpdatedEvent(result domain.LookupResult) Event {
	return Event{
		Type:      EventLookupUpdated,
		Timestamp: time.Now(),
		Data:      result,
	}
}

// NewHeartbeatEvent creates a keepalive event.
func NewHeartbeatEvent() Event {
	now := time.Now()
	return Event{
		Type:      EventHeartbeat,
		Timestamp: now,
		Data:      HeartbeatEventData{ServerTime: now},
	}
}
