package api

import (
	"context"
	"encoding/json/v2"
	"log/slog"
	"net/http/httptest"
	"os"
	"path/filepath"
	"testing"

	"github.com/danielgtaylor/huma/v2/humatest"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/folioapp/folio-server/internal/domain"
	"github.com/folioapp/folio-server/internal/epub/epubtest"
	"github.com/folioapp/folio-server/internal/errors"
	"github.com/folioapp/folio-server/internal/excerpts"
	"github.com/folioapp/folio-server/internal/kv"
	"github.com/folioapp/folio-server/internal/library"
	"github.com/folioapp/folio-server/internal/lookup"
	"github.com/folioapp/folio-server/internal/media/covers"
	"github.com/folioapp/folio-server/internal/reader"
	"github.com/folioapp/folio-server/internal/settings"
	"github.com/folioapp/folio-server/internal/storage"
)

type stubDefiner struct{}

func (stubDefiner) Define(_ context.Context, word string) (string, error) {
	if word == "whale" {
		return "## whale\n\n**noun**\n1. A very large marine mammal.", nil
	}
	return "", errors.NotFound("no definition")
}

type stubSummarizer struct{}

func (stubSummarizer) Summarize(_ context.Context, _ string) (lookup.Summary, error) {
	return lookup.Summary{}, errors.NotFound("no article")
}

type testServer struct {
	*Server
	tapi humatest.TestAPI
	dir  string
}

func setupTestServer(t *testing.T) *testServer {
	t.Helper()

	dir := t.TempDir()
	logger := slog.New(slog.DiscardHandler)

	files, err := storage.NewFiles(filepath.Join(dir, "data"))
	require.NoError(t, err)

	kvStore, err := kv.Open(dir, logger)
	require.NoError(t, err)
	t.Cleanup(func() { _ = kvStore.Close() })

	lib := library.NewStore(library.Options{
		Files:  files,
		Covers: covers.NewProcessor(files, logger),
		Logger: logger,
	})
	require.NoError(t, lib.Initialize(context.Background()))

	settingsStore, err := settings.NewStore(kvStore, logger)
	require.NoError(t, err)

	excerptStore, err := excerpts.NewStore(kvStore, logger)
	require.NoError(t, err)

	s := NewServer(Options{
		Library:  lib,
		Settings: settingsStore,
		Excerpts: excerptStore,
		Lookup:   lookup.NewStore(stubDefiner{}, stubSummarizer{}, logger),
		Searcher: reader.NewSearcher(logger),
		Logger:   logger,
	})

	return &testServer{
		Server: s,
		tapi:   humatest.Wrap(t, s.api),
		dir:    dir,
	}
}

// writeEPUB drops a small fixture EPUB into the test dir and returns its path.
func writeEPUB(t *testing.T, dir, name string, fx epubtest.Fixture) string {
	t.Helper()
	path := filepath.Join(dir, name)
	require.NoError(t, epubtest.Write(path, fx))
	return path
}

func decodeBody(t *testing.T, data []byte, v any) {
	t.Helper()
	require.NoError(t, json.Unmarshal(data, v))
}

func TestHealth(t *testing.T) {
	ts := setupTestServer(t)

	resp := ts.tapi.Get("/health")
	require.Equal(t, 200, resp.Code)

	var body HealthResponse
	decodeBody(t, resp.Body.Bytes(), &body)
	assert.Equal(t, "ok", body.Status)
	assert.Equal(t, 0, body.Books)
}

func TestImportAndListBooks(t *testing.T) {
	ts := setupTestServer(t)
	path := writeEPUB(t, ts.dir, "moby.epub", epubtest.Fixture{
		Title:    "Moby Dick",
		Author:   "Herman Melville",
		Chapters: []string{"<p>Call me Ishmael.</p>"},
	})

	resp := ts.tapi.Post("/api/v1/books/import", map[string]any{"path": path})
	require.Equal(t, 201, resp.Code, resp.Body.String())

	var book domain.Book
	decodeBody(t, resp.Body.Bytes(), &book)
	assert.Equal(t, "Moby Dick", book.Title)
	assert.Equal(t, "Herman Melville", book.Author)
	assert.NotEmpty(t, book.ID)

	list := ts.tapi.Get("/api/v1/books")
	require.Equal(t, 200, list.Code)
	var listBody struct {
		Books []domain.Book `json:"books"`
	}
	decodeBody(t, list.Body.Bytes(), &listBody)
	require.Len(t, listBody.Books, 1)
	assert.Equal(t, book.ID, listBody.Books[0].ID)
}

func TestImportDuplicateConflicts(t *testing.T) {
	ts := setupTestServer(t)
	path := writeEPUB(t, ts.dir, "moby.epub", epubtest.Fixture{
		Title:    "Moby Dick",
		Chapters: []string{"<p>x</p>"},
	})

	first := ts.tapi.Post("/api/v1/books/import", map[string]any{"path": path})
	require.Equal(t, 201, first.Code)

	second := ts.tapi.Post("/api/v1/books/import", map[string]any{"path": path})
	assert.Equal(t, 409, second.Code)
	assert.Contains(t, second.Body.String(), "ALREADY_EXISTS")
}

func TestImportUnreadableFileRejected(t *testing.T) {
	ts := setupTestServer(t)

	garbage := filepath.Join(ts.dir, "garbage.epub")
	require.NoError(t, os.WriteFile(garbage, []byte("not a zip"), 0644))

	resp := ts.tapi.Post("/api/v1/books/import", map[string]any{"path": garbage})
	assert.Equal(t, 400, resp.Code)
	assert.Contains(t, resp.Body.String(), "not a readable EPUB")
}

func TestGetBook_NotFound(t *testing.T) {
	ts := setupTestServer(t)

	resp := ts.tapi.Get("/api/v1/books/missing")
	assert.Equal(t, 404, resp.Code)
	assert.Contains(t, resp.Body.String(), "NOT_FOUND")
}

func TestDeleteBook(t *testing.T) {
	ts := setupTestServer(t)
	path := writeEPUB(t, ts.dir, "book.epub", epubtest.Fixture{
		Title:    "Some Book",
		Chapters: []string{"<p>x</p>"},
	})

	resp := ts.tapi.Post("/api/v1/books/import", map[string]any{"path": path})
	require.Equal(t, 201, resp.Code)
	var book domain.Book
	decodeBody(t, resp.Body.Bytes(), &book)

	del := ts.tapi.Delete("/api/v1/books/" + book.ID)
	assert.Equal(t, 204, del.Code)

	get := ts.tapi.Get("/api/v1/books/" + book.ID)
	assert.Equal(t, 404, get.Code)
}

func TestUpdateProgress(t *testing.T) {
	ts := setupTestServer(t)
	path := writeEPUB(t, ts.dir, "book.epub", epubtest.Fixture{
		Title:    "Some Book",
		Chapters: []string{"<p>x</p>"},
	})

	resp := ts.tapi.Post("/api/v1/books/import", map[string]any{"path": path})
	require.Equal(t, 201, resp.Code)
	var book domain.Book
	decodeBody(t, resp.Body.Bytes(), &book)

	upd := ts.tapi.Put("/api/v1/books/"+book.ID+"/progress", map[string]any{"progress": 0.42})
	require.Equal(t, 200, upd.Code)

	var updated domain.Book
	decodeBody(t, upd.Body.Bytes(), &updated)
	assert.InDelta(t, 0.42, updated.ReadingProgress, 1e-9)

	outOfRange := ts.tapi.Put("/api/v1/books/"+book.ID+"/progress", map[string]any{"progress": 1.5})
	assert.NotEqual(t, 200, outOfRange.Code)
}

func TestAddHighlight(t *testing.T) {
	ts := setupTestServer(t)
	path := writeEPUB(t, ts.dir, "book.epub", epubtest.Fixture{
		Title:    "Some Book",
		Chapters: []string{"<p>x</p>"},
	})

	resp := ts.tapi.Post("/api/v1/books/import", map[string]any{"path": path})
	require.Equal(t, 201, resp.Code)
	var book domain.Book
	decodeBody(t, resp.Body.Bytes(), &book)

	add := ts.tapi.Post("/api/v1/books/"+book.ID+"/highlights", map[string]any{
		"locator": "loc(0:5)",
		"text":    "Call me Ishmael",
		"color":   "yellow",
		"note":    "opening line",
	})
	require.Equal(t, 201, add.Code, add.Body.String())

	var highlight domain.Highlight
	decodeBody(t, add.Body.Bytes(), &highlight)
	assert.Equal(t, domain.ColorYellow, highlight.Color)
	assert.NotEmpty(t, highlight.ID)

	bad := ts.tapi.Post("/api/v1/books/"+book.ID+"/highlights", map[string]any{
		"locator": "loc(0:5)",
		"text":    "x",
		"color":   "chartreuse",
	})
	assert.Equal(t, 400, bad.Code)
}

func TestAddBookmark(t *testing.T) {
	ts := setupTestServer(t)
	path := writeEPUB(t, ts.dir, "book.epub", epubtest.Fixture{
		Title:    "Some Book",
		Chapters: []string{"<p>x</p>"},
	})

	resp := ts.tapi.Post("/api/v1/books/import", map[string]any{"path": path})
	require.Equal(t, 201, resp.Code)
	var book domain.Book
	decodeBody(t, resp.Body.Bytes(), &book)

	add := ts.tapi.Post("/api/v1/books/"+book.ID+"/bookmarks", map[string]any{
		"locator": "loc(0:0)",
		"text":    "start",
	})
	require.Equal(t, 201, add.Code)

	var bookmark domain.Bookmark
	decodeBody(t, add.Body.Bytes(), &bookmark)
	assert.Equal(t, "loc(0:0)", bookmark.Locator)
}

func TestSettingsRoundTrip(t *testing.T) {
	ts := setupTestServer(t)

	get := ts.tapi.Get("/api/v1/settings")
	require.Equal(t, 200, get.Code)
	var current domain.ReaderSettings
	decodeBody(t, get.Body.Bytes(), &current)
	assert.Equal(t, domain.DefaultReaderSettings(), current)

	patch := ts.tapi.Patch("/api/v1/settings", map[string]any{"font_size_px": 20, "theme": "dark"})
	require.Equal(t, 200, patch.Code, patch.Body.String())
	var updated domain.ReaderSettings
	decodeBody(t, patch.Body.Bytes(), &updated)
	assert.Equal(t, 20, updated.FontSizePx)
	assert.Equal(t, domain.ThemeDark, updated.Theme)

	bad := ts.tapi.Patch("/api/v1/settings", map[string]any{"theme": "neon"})
	assert.Equal(t, 400, bad.Code)

	reset := ts.tapi.Delete("/api/v1/settings")
	require.Equal(t, 200, reset.Code)
	var afterReset domain.ReaderSettings
	decodeBody(t, reset.Body.Bytes(), &afterReset)
	assert.Equal(t, domain.DefaultReaderSettings(), afterReset)
}

func TestExcerptLifecycle(t *testing.T) {
	ts := setupTestServer(t)

	add := ts.tapi.Post("/api/v1/excerpts", map[string]any{
		"book_id": "book-1",
		"text":    "Call me Ishmael.",
		"locator": "loc(0:0)",
		"note":    "first line",
	})
	require.Equal(t, 201, add.Code, add.Body.String())
	var excerpt domain.Excerpt
	decodeBody(t, add.Body.Bytes(), &excerpt)
	require.NotEmpty(t, excerpt.ID)
	assert.Equal(t, "first line", excerpt.Note)

	list := ts.tapi.Get("/api/v1/excerpts")
	require.Equal(t, 200, list.Code)
	var listBody struct {
		Excerpts []domain.Excerpt `json:"excerpts"`
	}
	decodeBody(t, list.Body.Bytes(), &listBody)
	require.Len(t, listBody.Excerpts, 1)

	filtered := ts.tapi.Get("/api/v1/excerpts?book_id=other-book")
	require.Equal(t, 200, filtered.Code)
	decodeBody(t, filtered.Body.Bytes(), &listBody)
	assert.Empty(t, listBody.Excerpts)

	note := ts.tapi.Patch("/api/v1/excerpts/"+excerpt.ID+"/note", map[string]any{"note": "famous opening"})
	require.Equal(t, 200, note.Code)
	var noted domain.Excerpt
	decodeBody(t, note.Body.Bytes(), &noted)
	assert.Equal(t, "famous opening", noted.Note)

	del := ts.tapi.Delete("/api/v1/excerpts/" + excerpt.ID)
	assert.Equal(t, 204, del.Code)

	delAgain := ts.tapi.Delete("/api/v1/excerpts/" + excerpt.ID)
	assert.Equal(t, 404, delAgain.Code)
}

func TestLookupRoundTrip(t *testing.T) {
	ts := setupTestServer(t)

	resp := ts.tapi.Post("/api/v1/lookup", map[string]any{"word": "whale"})
	require.Equal(t, 200, resp.Code)
	var result domain.LookupResult
	decodeBody(t, resp.Body.Bytes(), &result)
	assert.Equal(t, "whale", result.Word)
	assert.Contains(t, result.Content, "marine mammal")

	current := ts.tapi.Get("/api/v1/lookup")
	require.Equal(t, 200, current.Code)
	decodeBody(t, current.Body.Bytes(), &result)
	assert.Equal(t, "whale", result.Word)

	cleared := ts.tapi.Delete("/api/v1/lookup")
	assert.Equal(t, 204, cleared.Code)

	current = ts.tapi.Get("/api/v1/lookup")
	require.Equal(t, 200, current.Code)
	decodeBody(t, current.Body.Bytes(), &result)
	assert.Empty(t, result.Word)
}

func TestSearchLibrary_DisabledWithoutIndex(t *testing.T) {
	ts := setupTestServer(t)

	resp := ts.tapi.Get("/api/v1/search?q=whale")
	assert.Equal(t, 503, resp.Code)
}

func TestSearchBook(t *testing.T) {
	ts := setupTestServer(t)
	path := writeEPUB(t, ts.dir, "moby.epub", epubtest.Fixture{
		Title:    "Moby Dick",
		Chapters: []string{"<p>Call me Ishmael. The white whale waits.</p>"},
	})

	resp := ts.tapi.Post("/api/v1/books/import", map[string]any{"path": path})
	require.Equal(t, 201, resp.Code)
	var book domain.Book
	decodeBody(t, resp.Body.Bytes(), &book)

	found := ts.tapi.Get("/api/v1/books/" + book.ID + "/search?q=whale")
	require.Equal(t, 200, found.Code, found.Body.String())

	var body struct {
		Query   string         `json:"query"`
		Matches []reader.Match `json:"matches"`
	}
	decodeBody(t, found.Body.Bytes(), &body)
	require.Len(t, body.Matches, 1)
	assert.Contains(t, body.Matches[0].Excerpt, "<mark>whale</mark>")

	missing := ts.tapi.Get("/api/v1/books/missing/search?q=whale")
	assert.Equal(t, 404, missing.Code)
}

func TestBookCover_NotFound(t *testing.T) {
	ts := setupTestServer(t)

	req := httptest.NewRequest("GET", "/api/v1/books/missing/cover", nil)
	rec := httptest.NewRecorder()
	ts.ServeHTTP(rec, req)
	assert.Equal(t, 404, rec.Code)
}

func TestBookFile_ServesEPUB(t *testing.T) {
	ts := setupTestServer(t)
	path := writeEPUB(t, ts.dir, "book.epub", epubtest.Fixture{
		Title:    "Some Book",
		Chapters: []string{"<p>x</p>"},
	})

	resp := ts.tapi.Post("/api/v1/books/import", map[string]any{"path": path})
	require.Equal(t, 201, resp.Code)
	var book domain.Book
	decodeBody(t, resp.Body.Bytes(), &book)

	req := httptest.NewRequest("GET", "/api/v1/books/"+book.ID+"/file", nil)
	rec := httptest.NewRecorder()
	ts.ServeHTTP(rec, req)
	require.Equal(t, 200, rec.Code)
	assert.Equal(t, "application/epub+zip", rec.Header().Get("Content-Type"))
	assert.NotZero(t, rec.Body.Len())
}
