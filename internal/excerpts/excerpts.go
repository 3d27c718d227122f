// Package excerpts manages the user's saved passages. Excerpts are stored as
// a single JSON collection in the key-value store and hold only a weak
// reference to their source book, so they survive the book's deletion.
package excerpts

import (
	"fmt"
	"log/slog"
	"slices"
	"strings"
	"sync"
	"time"

	"github.com/folioapp/folio-server/internal/domain"
	"github.com/folioapp/folio-server/internal/errors"
	"github.com/folioapp/folio-server/internal/id"
	"github.com/folioapp/folio-server/internal/kv"
	"github.com/folioapp/folio-server/internal/observe"
)

const excerptsKey = "excerpts"

// Store persists the excerpt collection and publishes snapshots on change.
type Store struct {
	kv     *kv.Store
	logger *slog.Logger

	mu    sync.Mutex // serializes read-modify-write cycles
	value *observe.Value[[]domain.Excerpt]
}

// NewStore loads the persisted excerpt collection. A missing record means an
// empty collection, not an error.
func NewStore(store *kv.Store, logger *slog.Logger) (*Store, error) {
	var all []domain.Excerpt
	if err := store.GetJSON(excerptsKey, &all); err != nil && !errors.Is(err, errors.ErrNotFound) {
		return nil, fmt.Errorf("load excerpts: %w", err)
	}

	return &Store{
		kv:     store,
		logger: logger,
		value:  observe.NewValue(all),
	}, nil
}

// All returns a copy of every excerpt, newest first.
func (s *Store) All() []domain.Excerpt {
	return slices.Clone(s.value.Get())
}

// ForBook returns the excerpts saved from one book, newest first.
func (s *Store) ForBook(bookID string) []domain.Excerpt {
	var out []domain.Excerpt
	for _, e := range s.value.Get() {
		if e.BookID == bookID {
			out = append(out, e)
		}
	}
	return out
}

// Subscribe returns a channel that receives the current collection
// immediately and every change afterwards.
func (s *Store) Subscribe() (<-chan []domain.Excerpt, func()) {
	return s.value.Subscribe()
}

// Add saves a new excerpt at the head of the collection and returns it. The
// note is optional at creation and can be edited later with UpdateNote.
func (s *Store) Add(bookID, text, locator, note string) (domain.Excerpt, error) {
	if strings.TrimSpace(text) == "" {
		return domain.Excerpt{}, errors.Validation("excerpt text must not be empty")
	}
	if bookID == "" {
		return domain.Excerpt{}, errors.Validation("excerpt requires a book id")
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	excerpt := domain.Excerpt{
		ID:        id.NewUUID(),
		BookID:    bookID,
		Text:      text,
		Locator:   locator,
		Note:      note,
		CreatedAt: time.Now().UTC(),
	}

	next := append([]domain.Excerpt{excerpt}, s.value.Get()...)
	if err := s.persist(next); err != nil {
		return domain.Excerpt{}, err
	}

	s.logger.Debug("excerpt added", "excerpt_id", excerpt.ID, "book_id", bookID)
	return excerpt, nil
}

// UpdateNote replaces the note attached to an excerpt.
func (s *Store) UpdateNote(excerptID, note string) (domain.Excerpt, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	next := slices.Clone(s.value.Get())
	idx := slices.IndexFunc(next, func(e domain.Excerpt) bool { return e.ID == excerptID })
	if idx < 0 {
		return domain.Excerpt{}, errors.NotFound(fmt.Sprintf("excerpt %s not found", excerptID))
	}

	next[idx].Note = note
	if err := s.persist(next); err != nil {
		return domain.Excerpt{}, err
	}
	return next[idx], nil
}

// Delete removes an excerpt from the collection.
func (s *Store) Delete(excerptID string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	current := s.value.Get()
	next := slices.DeleteFunc(slices.Clone(current), func(e domain.Excerpt) bool {
		return e.ID == excerptID
	})
	if len(next) == len(current) {
		return errors.NotFound(fmt.Sprintf("excerpt %s not found", excerptID))
	}

	if err := s.persist(next); err != nil {
		return err
	}
	s.logger.Debug("excerpt deleted", "excerpt_id", excerptID)
	return nil
}

// persist writes the collection to disk, then publishes it. Callers must hold
// the mutex.
func (s *Store) persist(next []domain.Excerpt) error {
	if err := s.kv.SetJSON(excerptsKey, next); err != nil {
		return fmt.Errorf("persist excerpts: %w", err)
	}
	s.value.Set(next)
	return nil
}
