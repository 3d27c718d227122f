package api

import (
	"context"
	"net/http"

	"github.com/danielgtaylor/huma/v2"
)

func (s *Server) registerHealthRoutes() {
	huma.Register(s.api, huma.Operation{
		OperationID: "health",
		Method:      http.MethodGet,
		Path:        "/health",
		Summary:     "Health check",
		Tags:        []string{"System"},
	}, s.handleHealth)
}

// HealthResponse reports server liveness.
type HealthResponse struct {
	Status  string `json:"status" doc:"Always ok when the server responds"`
	Version string `json:"version" doc:"API version"`
	Books   int    `json:"books" doc:"Number of books in the library"`
}

// HealthOutput wraps the health response for Huma.
type HealthOutput struct {
	Body HealthResponse
}

func (s *Server) handleHealth(ctx context.Context, _ *struct{}) (*HealthOutput, error) {
	return &HealthOutput{Body: HealthResponse{
		Status:  "ok",
		Version: apiVersion,
		Books:   len(s.library.Books()),
	}}, nil
}
