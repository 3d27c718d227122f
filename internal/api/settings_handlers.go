package api

import (
	"context"
	"net/http"

	"github.com/danielgtaylor/huma/v2"

	"github.com/folioapp/folio-server/internal/domain"
	"github.com/folioapp/folio-server/internal/settings"
	"github.com/folioapp/folio-server/internal/sse"
)

func (s *Server) registerSettingsRoutes() {
	huma.Register(s.api, huma.Operation{
		OperationID: "get-settings",
		Method:      http.MethodGet,
		Path:        "/api/v1/settings",
		Summary:     "Get reader settings",
		Tags:        []string{"Settings"},
	}, s.handleGetSettings)

	huma.Register(s.api, huma.Operation{
		OperationID: "update-settings",
		Method:      http.MethodPatch,
		Path:        "/api/v1/settings",
		Summary:     "Update reader settings",
		Description: "Merges a partial update; an update producing invalid settings is rejected whole",
		Tags:        []string{"Settings"},
	}, s.handleUpdateSettings)

	huma.Register(s.api, huma.Operation{
		OperationID: "reset-settings",
		Method:      http.MethodDelete,
		Path:        "/api/v1/settings",
		Summary:     "Reset reader settings to defaults",
		Tags:        []string{"Settings"},
	}, s.handleResetSettings)
}

// === DTOs ===

// SettingsOutput wraps reader settings for Huma.
type SettingsOutput struct {
	Body domain.ReaderSettings
}

// UpdateSettingsInput contains a partial settings update. Omitted fields are
// left unchanged.
type UpdateSettingsInput struct {
	Body settings.Patch
}

// === Handlers ===

func (s *Server) handleGetSettings(ctx context.Context, _ *struct{}) (*SettingsOutput, error) {
	return &SettingsOutput{Body: s.settings.Get()}, nil
}

func (s *Server) handleUpdateSettings(ctx context.Context, input *UpdateSettingsInput) (*SettingsOutput, error) {
	updated, err := s.settings.Update(input.Body)
	if err != nil {
		return nil, err
	}

	s.emit(sse.NewSettingsUpdatedEvent(updated))
	return &SettingsOutput{Body: updated}, nil
}

func (s *Server) handleResetSettings(ctx context.Context, _ *struct{}) (*SettingsOutput, error) {
	reset, err := s.settings.Reset()
	if err != nil {
		return nil, err
	}

	s.emit(sse.NewSettingsUpdatedEvent(reset))
	return &SettingsOutput{Body: reset}, nil
}
