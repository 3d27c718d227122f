package api

import (
	"context"
	"net/http"

	"github.com/danielgtaylor/huma/v2"

	"github.com/folioapp/folio-server/internal/domain"
	"github.com/folioapp/folio-server/internal/sse"
)

func (s *Server) registerLookupRoutes() {
	huma.Register(s.api, huma.Operation{
		OperationID: "lookup-word",
		Method:      http.MethodPost,
		Path:        "/api/v1/lookup",
		Summary:     "Look up a word",
		Description: "Resolves a word through the dictionary, falling back to the encyclopedia",
		Tags:        []string{"Lookup"},
	}, s.handleLookupWord)

	huma.Register(s.api, huma.Operation{
		OperationID: "get-lookup",
		Method:      http.MethodGet,
		Path:        "/api/v1/lookup",
		Summary:     "Get the current lookup result",
		Tags:        []string{"Lookup"},
	}, s.handleGetLookup)

	huma.Register(s.api, huma.Operation{
		OperationID:   "clear-lookup",
		Method:        http.MethodDelete,
		Path:          "/api/v1/lookup",
		Summary:       "Clear the lookup result",
		Description:   "Empties the result slot and invalidates any in-flight lookup",
		Tags:          []string{"Lookup"},
		DefaultStatus: http.StatusNoContent,
	}, s.handleClearLookup)
}

// === DTOs ===

// LookupInput contains the word to resolve.
type LookupInput struct {
	Body struct {
		Word string `json:"word" validate:"required,max=200" doc:"Word or term to look up"`
	}
}

// LookupOutput wraps a lookup result for Huma.
type LookupOutput struct {
	Body domain.LookupResult
}

// === Handlers ===

func (s *Server) handleLookupWord(ctx context.Context, input *LookupInput) (*LookupOutput, error) {
	result, err := s.lookup.Lookup(ctx, input.Body.Word)
	if err != nil {
		return nil, err
	}

	s.emit(sse.NewLookupUpdatedEvent(result))
	return &LookupOutput{Body: result}, nil
}

func (s *Server) handleGetLookup(ctx context.Context, _ *struct{}) (*LookupOutput, error) {
	return &LookupOutput{Body: s.lookup.Current()}, nil
}

func (s *Server) handleClearLookup(ctx context.Context, _ *struct{}) (*struct{}, error) {
	s.lookup.Clear()
	s.emit(sse.NewLookupUpdatedEvent(domain.LookupResult{}))
	return &struct{}{}, nil
}
