package api

import (
	"context"
	"net/http"

	"github.com/danielgtaylor/huma/v2"

	"github.com/folioapp/folio-server/internal/domain"
	"github.com/folioapp/folio-server/internal/sse"
)

func (s *Server) registerExcerptRoutes() {
	huma.Register(s.api, huma.Operation{
		OperationID: "list-excerpts",
		Method:      http.MethodGet,
		Path:        "/api/v1/excerpts",
		Summary:     "List excerpts",
		Description: "All saved excerpts, newest first, optionally filtered by book",
		Tags:        []string{"Excerpts"},
	}, s.handleListExcerpts)

	huma.Register(s.api, huma.Operation{
		OperationID:   "add-excerpt",
		Method:        http.MethodPost,
		Path:          "/api/v1/excerpts",
		Summary:       "Save an excerpt",
		Tags:          []string{"Excerpts"},
		DefaultStatus: http.StatusCreated,
	}, s.handleAddExcerpt)

	huma.Register(s.api, huma.Operation{
		OperationID:   "delete-excerpt",
		Method:        http.MethodDelete,
		Path:          "/api/v1/excerpts/{id}",
		Summary:       "Delete an excerpt",
		Tags:          []string{"Excerpts"},
		DefaultStatus: http.StatusNoContent,
	}, s.handleDeleteExcerpt)

	huma.Register(s.api, huma.Operation{
		OperationID: "update-excerpt-note",
		Method:      http.MethodPatch,
		Path:        "/api/v1/excerpts/{id}/note",
		Summary:     "Update an excerpt's note",
		Tags:        []string{"Excerpts"},
	}, s.handleUpdateExcerptNote)
}

// === DTOs ===

// ListExcerptsInput optionally narrows the list to one book.
type ListExcerptsInput struct {
	BookID string `query:"book_id" doc:"Only excerpts saved from this book"`
}

// ListExcerptsOutput wraps the excerpt list for Huma.
type ListExcerptsOutput struct {
	Body struct {
		Excerpts []domain.Excerpt `json:"excerpts" doc:"Excerpts, newest first"`
	}
}

// AddExcerptInput contains a new excerpt.
type AddExcerptInput struct {
	Body struct {
		BookID  string `json:"book_id" validate:"required" doc:"Source book ID"`
		Text    string `json:"text" validate:"required" doc:"Excerpted passage"`
		Locator string `json:"locator,omitempty" doc:"Content position of the passage"`
		Note    string `json:"note,omitempty" doc:"Optional note saved with the excerpt"`
	}
}

// ExcerptOutput wraps a single excerpt for Huma.
type ExcerptOutput struct {
	Body domain.Excerpt
}

// ExcerptPathInput identifies an excerpt by path parameter.
type ExcerptPathInput struct {
	ID string `path:"id" doc:"Excerpt ID"`
}

// UpdateExcerptNoteInput contains the replacement note.
type UpdateExcerptNoteInput struct {
	ID   string `path:"id" doc:"Excerpt ID"`
	Body struct {
		Note string `json:"note" doc:"Replacement note, empty clears it"`
	}
}

// === Handlers ===

func (s *Server) handleListExcerpts(ctx context.Context, input *ListExcerptsInput) (*ListExcerptsOutput, error) {
	out := &ListExcerptsOutput{}
	if input.BookID != "" {
		out.Body.Excerpts = s.excerpts.ForBook(input.BookID)
	} else {
		out.Body.Excerpts = s.excerpts.All()
	}
	if out.Body.Excerpts == nil {
		out.Body.Excerpts = []domain.Excerpt{}
	}
	return out, nil
}

func (s *Server) handleAddExcerpt(ctx context.Context, input *AddExcerptInput) (*ExcerptOutput, error) {
	excerpt, err := s.excerpts.Add(input.Body.BookID, input.Body.Text, input.Body.Locator, input.Body.Note)
	if err != nil {
		return nil, err
	}

	s.emit(sse.NewExcerptAddedEvent(excerpt))
	return &ExcerptOutput{Body: excerpt}, nil
}

func (s *Server) handleDeleteExcerpt(ctx context.Context, input *ExcerptPathInput) (*struct{}, error) {
	if err := s.excerpts.Delete(input.ID); err != nil {
		return nil, err
	}

	s.emit(sse.NewExcerptDeletedEvent(input.ID))
	return &struct{}{}, nil
}

func (s *Server) handleUpdateExcerptNote(ctx context.Context, input *UpdateExcerptNoteInput) (*ExcerptOutput, error) {
	excerpt, err := s.excerpts.UpdateNote(input.ID, input.Body.Note)
	if err != nil {
		return nil, err
	}

	s.emit(sse.NewExcerptUpdatedEvent(excerpt))
	return &ExcerptOutput{Body: excerpt}, nil
}
