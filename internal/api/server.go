// Package api provides the HTTP API server consumed by the Folio desktop
// shell. Store operations are exposed as a versioned JSON API plus an SSE
// stream for change notifications.
package api

import (
	"log/slog"
	"net/http"

	"github.com/danielgtaylor/huma/v2"
	"github.com/danielgtaylor/huma/v2/adapters/humachi"
	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"

	"github.com/folioapp/folio-server/internal/excerpts"
	"github.com/folioapp/folio-server/internal/library"
	"github.com/folioapp/folio-server/internal/lookup"
	"github.com/folioapp/folio-server/internal/reader"
	"github.com/folioapp/folio-server/internal/search"
	"github.com/folioapp/folio-server/internal/settings"
	"github.com/folioapp/folio-server/internal/sse"
)

const apiVersion = "1.0.0"

// Server holds dependencies for HTTP handlers.
type Server struct {
	library  *library.Store
	settings *settings.Store
	excerpts *excerpts.Store
	lookup   *lookup.Store
	searcher *reader.Searcher
	index    *search.Index // may be nil
	events   *sse.Manager  // may be nil in tests
	router   *chi.Mux
	api      huma.API
	logger   *slog.Logger
}

// Options carries the dependencies for NewServer.
type Options struct {
	Library     *library.Store
	Settings    *settings.Store
	Excerpts    *excerpts.Store
	Lookup      *lookup.Store
	Searcher    *reader.Searcher
	Index       *search.Index
	Events      *sse.Manager
	SSEHandler  *sse.Handler
	ShellOrigin string
	Logger      *slog.Logger
}

// NewServer creates a new HTTP server with all routes configured.
func NewServer(opts Options) *Server {
	s := &Server{
		library:  opts.Library,
		settings: opts.Settings,
		excerpts: opts.Excerpts,
		lookup:   opts.Lookup,
		searcher: opts.Searcher,
		index:    opts.Index,
		events:   opts.Events,
		router:   chi.NewRouter(),
		logger:   opts.Logger,
	}

	s.setupMiddleware(opts.ShellOrigin)

	RegisterErrorHandler()
	s.api = humachi.New(s.router, huma.DefaultConfig("Folio API", apiVersion))

	s.registerHealthRoutes()
	s.registerBookRoutes()
	s.registerSettingsRoutes()
	s.registerExcerptRoutes()
	s.registerLookupRoutes()
	s.registerSearchRoutes()

	// SSE streams outside huma: the content type is text/event-stream and the
	// connection is long-lived.
	if opts.SSEHandler != nil {
		s.router.Get("/api/v1/events", opts.SSEHandler.ServeHTTP)
	}

	// Binary responses stay outside huma: raw EPUB bytes for the rendering
	// view and the managed cover image.
	s.router.Get("/api/v1/books/{id}/file", s.handleBookFile)
	s.router.Get("/api/v1/books/{id}/cover", s.handleBookCover)

	return s
}

// ServeHTTP implements http.Handler.
func (s *Server) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	s.router.ServeHTTP(w, r)
}

// setupMiddleware configures the middleware stack. The server binds to
// loopback; CORS admits only the desktop shell's webview origin.
func (s *Server) setupMiddleware(shellOrigin string) {
	s.router.Use(middleware.RequestID)
	s.router.Use(middleware.RealIP)
	s.router.Use(middleware.Recoverer)
	s.router.Use(middleware.Compress(5))

	allowed := []string{"http://localhost", "http://127.0.0.1"}
	if shellOrigin != "" {
		allowed = append(allowed, shellOrigin)
	}
	s.router.Use(cors.Handler(cors.Options{
		AllowedOrigins: allowed,
		AllowedMethods: []string{"GET", "POST", "PUT", "PATCH", "DELETE", "OPTIONS"},
		AllowedHeaders: []string{"Accept", "Content-Type"},
		MaxAge:         300,
	}))
}

// emit broadcasts an SSE event when a manager is wired.
func (s *Server) emit(event sse.Event) {
	if s.events != nil {
		s.events.Emit(event)
	}
}

// handleBookFile streams the managed EPUB asset to the rendering view.
func (s *Server) handleBookFile(w http.ResponseWriter, r *http.Request) {
	bookID := chi.URLParam(r, "id")

	path, err := s.library.AssetPath(bookID)
	if err != nil {
		http.Error(w, "book not found", http.StatusNotFound)
		return
	}

	w.Header().Set("Content-Type", "application/epub+zip")
	http.ServeFile(w, r, path)
}

// handleBookCover serves the managed cover image.
func (s *Server) handleBookCover(w http.ResponseWriter, r *http.Request) {
	bookID := chi.URLParam(r, "id")

	data, err := s.library.CoverBytes(bookID)
	if err != nil {
		http.Error(w, "cover not found", http.StatusNotFound)
		return
	}

	w.Header().Set("Content-Type", "image/jpeg")
	w.Header().Set("Cache-Control", "private, max-age=3600")
	if _, err := w.Write(data); err != nil {
		s.logger.Debug("cover write failed", "book_id", bookID, "error", err)
	}
}
