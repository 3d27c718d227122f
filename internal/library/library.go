// Package library implements the book library store: the authoritative,
// observable collection of imported books and their on-disk artifacts.
//
// Every mutation follows the same discipline: take the store mutex, persist
// the change, apply it to the in-memory collection, then publish a snapshot.
// Consumers only ever see clones; persistence failures leave both disk and
// memory in their previous state.
package library

import (
	"context"
	"encoding/json/v2"
	"fmt"
	"log/slog"
	"path/filepath"
	"slices"
	"strings"
	"sync"
	"time"

	"github.com/folioapp/folio-server/internal/domain"
	"github.com/folioapp/folio-server/internal/epub"
	"github.com/folioapp/folio-server/internal/errors"
	"github.com/folioapp/folio-server/internal/id"
	"github.com/folioapp/folio-server/internal/media/covers"
	"github.com/folioapp/folio-server/internal/observe"
	"github.com/folioapp/folio-server/internal/search"
	"github.com/folioapp/folio-server/internal/storage"
)

// defaultCoverConcurrency bounds the cover fan-out when no explicit value is
// configured.
const defaultCoverConcurrency = 4

// Store owns the book collection.
type Store struct {
	files  *storage.Files
	covers *covers.Processor
	index  *search.Index // optional, nil disables library search indexing
	logger *slog.Logger

	coverConcurrency int

	mu    sync.Mutex // serializes every read-modify-write-publish sequence
	books []*domain.Book
	value *observe.Value[[]*domain.Book]
}

// Options configures the library store.
type Options struct {
	Files            *storage.Files
	Covers           *covers.Processor
	Index            *search.Index // may be nil
	Logger           *slog.Logger
	CoverConcurrency int
}

// NewStore creates a library store. Call Initialize to load the collection.
func NewStore(opts Options) *Store {
	concurrency := opts.CoverConcurrency
	if concurrency <= 0 {
		concurrency = defaultCoverConcurrency
	}
	logger := opts.Logger
	if logger == nil {
		logger = slog.New(slog.DiscardHandler)
	}

	return &Store{
		files:            opts.Files,
		covers:           opts.Covers,
		index:            opts.Index,
		logger:           logger,
		coverConcurrency: concurrency,
		value:            observe.NewValue([]*domain.Book{}),
	}
}

// Initialize loads every metadata record from disk into memory, most recently
// read first. It fails soft: an unreadable directory leaves the collection
// empty, an unparseable record is skipped with a warning. The server must
// come up even when individual files are damaged.
func (s *Store) Initialize(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	ids, err := s.files.ListMetadataIDs()
	if err != nil {
		s.logger.Error("failed to list metadata records, starting with empty library", "error", err)
		s.books = []*domain.Book{}
		s.publishLocked()
		return nil
	}

	books := make([]*domain.Book, 0, len(ids))
	for _, bookID := range ids {
		data, err := s.files.ReadMetadata(bookID)
		if err != nil {
			s.logger.Warn("skipping unreadable metadata record", "book_id", bookID, "error", err)
			continue
		}

		var book domain.Book
		if err := json.Unmarshal(data, &book); err != nil {
			s.logger.Warn("skipping unparseable metadata record", "book_id", bookID, "error", err)
			continue
		}
		books = append(books, &book)
	}

	slices.SortFunc(books, func(a, b *domain.Book) int {
		return b.LastReadAt.Compare(a.LastReadAt)
	})

	s.books = books
	s.publishLocked()
	s.logger.Info("library initialized", "books", len(books))

	s.reindexIfEmpty(ctx)
	return nil
}

// Books returns a cloned snapshot of the collection.
func (s *Store) Books() []*domain.Book {
	return s.value.Get()
}

// Book returns a clone of one book.
func (s *Store) Book(bookID string) (*domain.Book, error) {
	for _, b := range s.value.Get() {
		if b.ID == bookID {
			return b, nil
		}
	}
	return nil, errors.NotFound(fmt.Sprintf("book %s not found", bookID))
}

// Subscribe returns a channel that receives the current collection snapshot
// immediately and every change afterwards.
func (s *Store) Subscribe() (<-chan []*domain.Book, func()) {
	return s.value.Subscribe()
}

// AssetPath returns the managed EPUB path for a book in the collection.
func (s *Store) AssetPath(bookID string) (string, error) {
	if _, err := s.Book(bookID); err != nil {
		return "", err
	}
	return s.files.AssetPath(bookID), nil
}

// Import copies an EPUB into managed storage, extracts its metadata, persists
// a new record, and publishes the grown collection. Duplicates (same source
// path, or existing title matching the file name case-insensitively) are
// rejected before anything touches disk.
//
// The metadata record is the unit of durability: if its write fails, the
// copied asset and cover are removed again and the collection is untouched.
func (s *Store) Import(ctx context.Context, sourcePath string) (*domain.Book, error) {
	if strings.TrimSpace(sourcePath) == "" {
		return nil, errors.Validation("import requires a source path")
	}

	fileName := strings.TrimSuffix(filepath.Base(sourcePath), filepath.Ext(sourcePath))

	s.mu.Lock()
	defer s.mu.Unlock()

	for _, b := range s.books {
		if b.MatchesImport(sourcePath, fileName) {
			return nil, errors.AlreadyExists(fmt.Sprintf("book already imported from %s", sourcePath))
		}
	}

	bookID := id.NewUUID()

	if err := s.files.CopyAsset(bookID, sourcePath); err != nil {
		return nil, errors.Wrap(errors.CodeInternal, "copy book into library", err)
	}

	meta, err := epub.ExtractMetadata(s.files.AssetPath(bookID))
	if err != nil {
		s.rollbackImport(bookID)
		return nil, errors.Wrap(errors.CodeValidation, "not a readable EPUB", err)
	}

	now := time.Now().UTC()
	book := &domain.Book{
		ID:            bookID,
		SchemaVersion: domain.BookSchemaVersion,
		Title:         meta.Title,
		Author:        meta.Author,
		Path:          s.files.AssetPath(bookID),
		SourcePath:    sourcePath,
		Bookmarks:     []domain.Bookmark{},
		Highlights:    []domain.Highlight{},
		LastReadAt:    now,
		CreatedAt:     now,
	}

	if len(meta.CoverData) > 0 {
		hash, err := s.covers.Process(bookID, meta.CoverData)
		if err != nil {
			// A broken cover never blocks an import.
			s.logger.Warn("cover processing failed", "book_id", bookID, "error", err)
		} else {
			book.CoverImage = covers.DataURI(meta.CoverData, meta.CoverMediaType)
			book.CoverBlurhash = hash
		}
	}

	if err := s.persist(book); err != nil {
		s.rollbackImport(bookID)
		return nil, err
	}

	s.books = append([]*domain.Book{book}, s.books...)
	s.publishLocked()
	s.logger.Info("book imported", "book_id", bookID, "title", book.Title, "author", book.Author)

	s.indexBook(ctx, book)
	return book.Clone(), nil
}

// rollbackImport removes the artifacts a failed import may have left behind.
func (s *Store) rollbackImport(bookID string) {
	if err := s.files.DeleteAsset(bookID); err != nil {
		s.logger.Warn("import rollback: asset removal failed", "book_id", bookID, "error", err)
	}
	if err := s.files.DeleteCover(bookID); err != nil {
		s.logger.Warn("import rollback: cover removal failed", "book_id", bookID, "error", err)
	}
}

// LoadCover inlines a book's cover from its managed cover file. Books whose
// cover is already inlined are left alone. On read failure the previous
// value is kept and the error returned.
func (s *Store) LoadCover(ctx context.Context, bookID string) (*domain.Book, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	idx := s.indexOfLocked(bookID)
	if idx < 0 {
		return nil, errors.NotFound(fmt.Sprintf("book %s not found", bookID))
	}
	book := s.books[idx]
	if book.HasInlineCover() {
		return book.Clone(), nil
	}

	data, err := s.files.ReadCover(bookID)
	if err != nil {
		return nil, errors.Wrap(errors.CodeInternal, "read cover", err)
	}

	book.CoverImage = covers.DataURI(data, "image/jpeg")
	s.publishLocked()
	return book.Clone(), nil
}

// CoverBytes returns the managed cover file for a book in the collection.
func (s *Store) CoverBytes(bookID string) ([]byte, error) {
	if _, err := s.Book(bookID); err != nil {
		return nil, err
	}
	data, err := s.files.ReadCover(bookID)
	if err != nil {
		return nil, errors.NotFound(fmt.Sprintf("book %s has no cover", bookID))
	}
	return data, nil
}

// LoadAllCovers inlines every missing cover with a bounded-concurrency
// fan-out over the cover files, then merges the results into the collection
// in a single serialized write. Individual failures are logged and skipped.
func (s *Store) LoadAllCovers(ctx context.Context) error {
	// Snapshot the ids that need work without holding the lock across I/O.
	s.mu.Lock()
	var pending []string
	for _, b := range s.books {
		if !b.HasInlineCover() {
			pending = append(pending, b.ID)
		}
	}
	s.mu.Unlock()

	if len(pending) == 0 {
		return nil
	}

	type loaded struct {
		bookID string
		uri    string
	}

	sem := make(chan struct{}, s.coverConcurrency)
	results := make(chan loaded, len(pending))
	var wg sync.WaitGroup

	for _, bookID := range pending {
		if err := ctx.Err(); err != nil {
			break
		}

		wg.Add(1)
		sem <- struct{}{}
		go func(bookID string) {
			defer wg.Done()
			defer func() { <-sem }()

			data, err := s.files.ReadCover(bookID)
			if err != nil {
				s.logger.Debug("no cover to inline", "book_id", bookID, "error", err)
				return
			}
			results <- loaded{bookID: bookID, uri: covers.DataURI(data, "image/jpeg")}
		}(bookID)
	}

	wg.Wait()
	close(results)

	// Single serialized merge.
	s.mu.Lock()
	defer s.mu.Unlock()

	merged := 0
	for r := range results {
		if idx := s.indexOfLocked(r.bookID); idx >= 0 && !s.books[idx].HasInlineCover() {
			s.books[idx].CoverImage = r.uri
			merged++
		}
	}
	if merged > 0 {
		s.publishLocked()
	}
	s.logger.Debug("covers inlined", "requested", len(pending), "merged", merged)
	return ctx.Err()
}

// UpdateProgress records a new reading position and bumps lastReadAt.
func (s *Store) UpdateProgress(ctx context.Context, bookID string, progress float64) (*domain.Book, error) {
	if progress < 0 || progress > 1 {
		return nil, errors.Validation(fmt.Sprintf("progress %v outside [0,1]", progress))
	}

	return s.mutate(bookID, func(b *domain.Book) error {
		b.ReadingProgress = progress
		b.LastReadAt = time.Now().UTC()
		return nil
	})
}

// AddHighlight appends a highlight to a book and returns the stored copy.
func (s *Store) AddHighlight(ctx context.Context, bookID, locator, text string, color domain.HighlightColor, note string) (domain.Highlight, error) {
	if !color.Valid() {
		return domain.Highlight{}, errors.Validation(fmt.Sprintf("unknown highlight color %q", color))
	}

	highlight := domain.Highlight{
		ID:        id.NewUUID(),
		Locator:   locator,
		Text:      text,
		Color:     color,
		Note:      note,
		CreatedAt: time.Now().UTC(),
	}

	_, err := s.mutate(bookID, func(b *domain.Book) error {
		b.Highlights = append(b.Highlights, highlight)
		return nil
	})
	if err != nil {
		return domain.Highlight{}, err
	}
	return highlight, nil
}

// AddBookmark appends a bookmark to a book and returns the stored copy.
func (s *Store) AddBookmark(ctx context.Context, bookID, locator, text string) (domain.Bookmark, error) {
	bookmark := domain.Bookmark{
		ID:        id.NewUUID(),
		Locator:   locator,
		Text:      text,
		CreatedAt: time.Now().UTC(),
	}

	_, err := s.mutate(bookID, func(b *domain.Book) error {
		b.Bookmarks = append(b.Bookmarks, bookmark)
		return nil
	})
	if err != nil {
		return domain.Bookmark{}, err
	}
	return bookmark, nil
}

// Delete removes a book. Each on-disk artifact is removed best-effort; the
// book always leaves the collection, even when the disk disagrees.
func (s *Store) Delete(ctx context.Context, bookID string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	idx := s.indexOfLocked(bookID)
	if idx < 0 {
		return errors.NotFound(fmt.Sprintf("book %s not found", bookID))
	}

	if err := s.files.DeleteAsset(bookID); err != nil {
		s.logger.Warn("asset removal failed", "book_id", bookID, "error", err)
	}
	if err := s.files.DeleteCover(bookID); err != nil {
		s.logger.Warn("cover removal failed", "book_id", bookID, "error", err)
	}
	if err := s.files.DeleteMetadata(bookID); err != nil {
		s.logger.Warn("metadata removal failed", "book_id", bookID, "error", err)
	}

	s.books = slices.Delete(s.books, idx, idx+1)
	s.publishLocked()
	s.logger.Info("book deleted", "book_id", bookID)

	if s.index != nil {
		if err := s.index.DeleteBook(bookID); err != nil {
			s.logger.Warn("search index removal failed", "book_id", bookID, "error", err)
		}
	}
	return nil
}

// mutate runs a read-modify-write-publish cycle on one book. The change is
// applied to a clone first; only after the clone persists does it replace the
// collection entry.
func (s *Store) mutate(bookID string, change func(*domain.Book) error) (*domain.Book, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	idx := s.indexOfLocked(bookID)
	if idx < 0 {
		return nil, errors.NotFound(fmt.Sprintf("book %s not found", bookID))
	}

	next := s.books[idx].Clone()
	if err := change(next); err != nil {
		return nil, err
	}

	if err := s.persist(next); err != nil {
		return nil, err
	}

	s.books[idx] = next
	s.publishLocked()
	return next.Clone(), nil
}

// persist writes a book's metadata record. Durability failures propagate:
// silent metadata loss is unacceptable.
func (s *Store) persist(book *domain.Book) error {
	book.SchemaVersion = domain.BookSchemaVersion

	data, err := json.Marshal(book)
	if err != nil {
		return errors.Wrap(errors.CodeInternal, "marshal book metadata", err)
	}
	if err := s.files.WriteMetadata(book.ID, data); err != nil {
		return errors.Wrap(errors.CodeInternal, "write book metadata", err)
	}
	return nil
}

// publishLocked snapshots the collection as clones and broadcasts it.
// Callers must hold the mutex.
func (s *Store) publishLocked() {
	snapshot := make([]*domain.Book, len(s.books))
	for i, b := range s.books {
		snapshot[i] = b.Clone()
	}
	s.value.Set(snapshot)
}

func (s *Store) indexOfLocked(bookID string) int {
	return slices.IndexFunc(s.books, func(b *domain.Book) bool { return b.ID == bookID })
}

// indexBook adds one book to the search index, best-effort.
func (s *Store) indexBook(ctx context.Context, book *domain.Book) {
	if s.index == nil {
		return
	}
	doc, err := s.buildDocument(book)
	if err != nil {
		s.logger.Warn("search indexing skipped", "book_id", book.ID, "error", err)
		return
	}
	if err := s.index.IndexBook(doc); err != nil {
		s.logger.Warn("search indexing failed", "book_id", book.ID, "error", err)
	}
}

// reindexIfEmpty rebuilds the search index from the loaded collection when
// the index has no documents, which happens on first run and after a
// mapping-version rebuild. Callers must hold the mutex.
func (s *Store) reindexIfEmpty(ctx context.Context) {
	if s.index == nil || len(s.books) == 0 {
		return
	}
	count, err := s.index.DocumentCount()
	if err != nil || count > 0 {
		return
	}

	docs := make([]*search.BookDocument, 0, len(s.books))
	for _, book := range s.books {
		if err := ctx.Err(); err != nil {
			return
		}
		doc, err := s.buildDocument(book)
		if err != nil {
			s.logger.Warn("reindex skipped a book", "book_id", book.ID, "error", err)
			continue
		}
		docs = append(docs, doc)
	}

	if err := s.index.IndexBooks(docs); err != nil {
		s.logger.Warn("search reindex failed", "error", err)
		return
	}
	s.logger.Info("search index rebuilt", "books", len(docs))
}

// buildDocument extracts the indexable text of a book from its EPUB.
func (s *Store) buildDocument(book *domain.Book) (*search.BookDocument, error) {
	doc, err := epub.Open(s.files.AssetPath(book.ID))
	if err != nil {
		return nil, fmt.Errorf("open epub: %w", err)
	}
	defer doc.Close()

	var text strings.Builder
	for i := range doc.ChapterCount() {
		chapter, err := doc.ChapterText(i)
		if err != nil {
			s.logger.Debug("unreadable chapter skipped during indexing",
				"book_id", book.ID,
				"chapter", i,
				"error", err,
			)
			continue
		}
		text.WriteString(chapter)
		text.WriteString("\n")
	}

	return &search.BookDocument{
		ID:        book.ID,
		Title:     book.Title,
		Author:    book.Author,
		Text:      text.String(),
		CreatedAt: book.CreatedAt,
	}, nil
}
