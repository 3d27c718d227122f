package api

import (
	"context"
	"net/http"

	"github.com/danielgtaylor/huma/v2"

	"github.com/folioapp/folio-server/internal/domain"
	"github.com/folioapp/folio-server/internal/sse"
)

func (s *Server) registerBookRoutes() {
	huma.Register(s.api, huma.Operation{
		OperationID: "list-books",
		Method:      http.MethodGet,
		Path:        "/api/v1/books",
		Summary:     "List books",
		Description: "All books in the library, most recently read first",
		Tags:        []string{"Books"},
	}, s.handleListBooks)

	huma.Register(s.api, huma.Operation{
		OperationID:   "import-book",
		Method:        http.MethodPost,
		Path:          "/api/v1/books/import",
		Summary:       "Import a book",
		Description:   "Copies an EPUB into managed storage and adds it to the library",
		Tags:          []string{"Books"},
		DefaultStatus: http.StatusCreated,
	}, s.handleImportBook)

	huma.Register(s.api, huma.Operation{
		OperationID: "get-book",
		Method:      http.MethodGet,
		Path:        "/api/v1/books/{id}",
		Summary:     "Get a book",
		Tags:        []string{"Books"},
	}, s.handleGetBook)

	huma.Register(s.api, huma.Operation{
		OperationID:   "delete-book",
		Method:        http.MethodDelete,
		Path:          "/api/v1/books/{id}",
		Summary:       "Delete a book",
		Description:   "Removes the book and its on-disk artifacts",
		Tags:          []string{"Books"},
		DefaultStatus: http.StatusNoContent,
	}, s.handleDeleteBook)

	huma.Register(s.api, huma.Operation{
		OperationID: "update-progress",
		Method:      http.MethodPut,
		Path:        "/api/v1/books/{id}/progress",
		Summary:     "Update reading progress",
		Tags:        []string{"Books"},
	}, s.handleUpdateProgress)

	huma.Register(s.api, huma.Operation{
		OperationID:   "add-highlight",
		Method:        http.MethodPost,
		Path:          "/api/v1/books/{id}/highlights",
		Summary:       "Add a highlight",
		Tags:          []string{"Books"},
		DefaultStatus: http.StatusCreated,
	}, s.handleAddHighlight)

	huma.Register(s.api, huma.Operation{
		OperationID:   "add-bookmark",
		Method:        http.MethodPost,
		Path:          "/api/v1/books/{id}/bookmarks",
		Summary:       "Add a bookmark",
		Tags:          []string{"Books"},
		DefaultStatus: http.StatusCreated,
	}, s.handleAddBookmark)
}

// === DTOs ===

// ListBooksOutput wraps the book list for Huma.
type ListBooksOutput struct {
	Body struct {
		Books []*domain.Book `json:"books" doc:"Books, most recently read first"`
	}
}

// ImportBookInput contains the import request.
type ImportBookInput struct {
	Body struct {
		Path string `json:"path" validate:"required" doc:"Absolute path of the EPUB to import"`
	}
}

// BookOutput wraps a single book for Huma.
type BookOutput struct {
	Body *domain.Book
}

// BookPathInput identifies a book by path parameter.
type BookPathInput struct {
	ID string `path:"id" doc:"Book ID"`
}

// UpdateProgressInput contains a new reading position.
type UpdateProgressInput struct {
	ID   string `path:"id" doc:"Book ID"`
	Body struct {
		Progress float64 `json:"progress" validate:"gte=0,lte=1" doc:"Completion fraction in [0,1]"`
	}
}

// AddHighlightInput contains a new highlight.
type AddHighlightInput struct {
	ID   string `path:"id" doc:"Book ID"`
	Body struct {
		Locator string `json:"locator" validate:"required" doc:"Content position of the highlighted range"`
		Text    string `json:"text" validate:"required" doc:"Highlighted text"`
		Color   string `json:"color" validate:"required" doc:"Highlight color (yellow, green, blue, pink, purple)"`
		Note    string `json:"note,omitempty" doc:"Optional note"`
	}
}

// HighlightOutput wraps the stored highlight for Huma.
type HighlightOutput struct {
	Body domain.Highlight
}

// AddBookmarkInput contains a new bookmark.
type AddBookmarkInput struct {
	ID   string `path:"id" doc:"Book ID"`
	Body struct {
		Locator string `json:"locator" validate:"required" doc:"Content position of the bookmark"`
		Text    string `json:"text,omitempty" doc:"Snippet shown in the bookmark list"`
	}
}

// BookmarkOutput wraps the stored bookmark for Huma.
type BookmarkOutput struct {
	Body domain.Bookmark
}

// === Handlers ===

func (s *Server) handleListBooks(ctx context.Context, _ *struct{}) (*ListBooksOutput, error) {
	out := &ListBooksOutput{}
	out.Body.Books = s.library.Books()
	return out, nil
}

func (s *Server) handleImportBook(ctx context.Context, input *ImportBookInput) (*BookOutput, error) {
	book, err := s.library.Import(ctx, input.Body.Path)
	if err != nil {
		return nil, err
	}

	s.emit(sse.NewBookImportedEvent(book))
	return &BookOutput{Body: book}, nil
}

func (s *Server) handleGetBook(ctx context.Context, input *BookPathInput) (*BookOutput, error) {
	book, err := s.library.Book(input.ID)
	if err != nil {
		return nil, err
	}
	return &BookOutput{Body: book}, nil
}

func (s *Server) handleDeleteBook(ctx context.Context, input *BookPathInput) (*struct{}, error) {
	if err := s.library.Delete(ctx, input.ID); err != nil {
		return nil, err
	}

	s.emit(sse.NewBookDeletedEvent(input.ID))
	return &struct{}{}, nil
}

func (s *Server) handleUpdateProgress(ctx context.Context, input *UpdateProgressInput) (*BookOutput, error) {
	book, err := s.library.UpdateProgress(ctx, input.ID, input.Body.Progress)
	if err != nil {
		return nil, err
	}

	s.emit(sse.NewBookUpdatedEvent(book))
	return &BookOutput{Body: book}, nil
}

func (s *Server) handleAddHighlight(ctx context.Context, input *AddHighlightInput) (*HighlightOutput, error) {
	highlight, err := s.library.AddHighlight(ctx, input.ID,
		input.Body.Locator,
		input.Body.Text,
		domain.HighlightColor(input.Body.Color),
		input.Body.Note,
	)
	if err != nil {
		return nil, err
	}

	if book, err := s.library.Book(input.ID); err == nil {
		s.emit(sse.NewBookUpdatedEvent(book))
	}
	return &HighlightOutput{Body: highlight}, nil
}

func (s *Server) handleAddBookmark(ctx context.Context, input *AddBookmarkInput) (*BookmarkOutput, error) {
	bookmark, err := s.library.AddBookmark(ctx, input.ID, input.Body.Locator, input.Body.Text)
	if err != nil {
		return nil, err
	}

	if book, err := s.library.Book(input.ID); err == nil {
		s.emit(sse.NewBookUpdatedEvent(book))
	}
	return &BookmarkOutput{Body: bookmark}, nil
}
