package api

import (
	"context"
	"net/http"

	"github.com/danielgtaylor/huma/v2"

	"github.com/folioapp/folio-server/internal/epub"
	"github.com/folioapp/folio-server/internal/errors"
	"github.com/folioapp/folio-server/internal/reader"
	"github.com/folioapp/folio-server/internal/search"
)

func (s *Server) registerSearchRoutes() {
	huma.Register(s.api, huma.Operation{
		OperationID: "search-library",
		Method:      http.MethodGet,
		Path:        "/api/v1/search",
		Summary:     "Search the library",
		Description: "Full-text search across titles, authors, and chapter text",
		Tags:        []string{"Search"},
	}, s.handleSearchLibrary)

	huma.Register(s.api, huma.Operation{
		OperationID: "search-book",
		Method:      http.MethodGet,
		Path:        "/api/v1/books/{id}/search",
		Summary:     "Search within a book",
		Description: "Case-insensitive substring search over one book's chapters",
		Tags:        []string{"Search"},
	}, s.handleSearchBook)
}

// === DTOs ===

// SearchLibraryInput contains parameters for a library search.
type SearchLibraryInput struct {
	Query  string `query:"q" validate:"required,min=1,max=200" doc:"Search query"`
	Limit  int    `query:"limit" validate:"omitempty,gte=1,lte=100" doc:"Max results (default 20)"`
	Offset int    `query:"offset" validate:"omitempty,gte=0" doc:"Pagination offset (default 0)"`
}

// SearchLibraryOutput wraps a library search result for Huma.
type SearchLibraryOutput struct {
	Body search.Result
}

// SearchBookInput contains parameters for an in-book search.
type SearchBookInput struct {
	ID    string `path:"id" doc:"Book ID"`
	Query string `query:"q" validate:"required,min=1,max=200" doc:"Search query"`
}

// SearchBookOutput wraps the in-book matches for Huma.
type SearchBookOutput struct {
	Body struct {
		Query   string         `json:"query" doc:"Original search query"`
		Matches []reader.Match `json:"matches" doc:"Matches in reading order"`
	}
}

// === Handlers ===

func (s *Server) handleSearchLibrary(ctx context.Context, input *SearchLibraryInput) (*SearchLibraryOutput, error) {
	if s.index == nil {
		return nil, errors.Unavailable("library search is disabled")
	}

	params := search.DefaultParams()
	params.Query = input.Query
	if input.Limit > 0 {
		params.Limit = input.Limit
	}
	params.Offset = input.Offset

	result, err := s.index.Search(ctx, params)
	if err != nil {
		s.logger.Error("library search failed", "query", input.Query, "error", err)
		return nil, errors.Internal("search failed", err)
	}

	return &SearchLibraryOutput{Body: *result}, nil
}

func (s *Server) handleSearchBook(ctx context.Context, input *SearchBookInput) (*SearchBookOutput, error) {
	path, err := s.library.AssetPath(input.ID)
	if err != nil {
		return nil, err
	}

	doc, err := epub.Open(path)
	if err != nil {
		return nil, errors.Wrap(errors.CodeInternal, "open book for search", err)
	}
	defer doc.Close()

	matches, err := s.searcher.Search(ctx, doc, input.Query)
	if err != nil {
		return nil, err
	}

	out := &SearchBookOutput{}
	out.Body.Query = input.Query
	out.Body.Matches = matches
	if out.Body.Matches == nil {
		out.Body.Matches = []reader.Match{}
	}
	return out, nil
}
