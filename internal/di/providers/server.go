package providers

import (
	"context"
	"net/http"

	"github.com/samber/do/v2"

	"github.com/folioapp/folio-server/internal/api"
	"github.com/folioapp/folio-server/internal/config"
	"github.com/folioapp/folio-server/internal/excerpts"
	"github.com/folioapp/folio-server/internal/library"
	"github.com/folioapp/folio-server/internal/logger"
	"github.com/folioapp/folio-server/internal/lookup"
	"github.com/folioapp/folio-server/internal/reader"
	"github.com/folioapp/folio-server/internal/settings"
	"github.com/folioapp/folio-server/internal/sse"
)

// HTTPServerHandle wraps http.Server with Shutdownable.
type HTTPServerHandle struct {
	*http.Server
}

// Shutdown implements do.Shutdownable.
func (h *HTTPServerHandle) Shutdown() error {
	ctx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()
	return h.Server.Shutdown(ctx)
}

// ProvideHTTPServer provides the HTTP server, already listening.
func ProvideHTTPServer(i do.Injector) (*HTTPServerHandle, error) {
	cfg := do.MustInvoke[*config.Config](i)
	log := do.MustInvoke[*logger.Logger](i)

	lib := do.MustInvoke[*library.Store](i)
	settingsStore := do.MustInvoke[*settings.Store](i)
	excerptStore := do.MustInvoke[*excerpts.Store](i)
	lookupStore := do.MustInvoke[*lookup.Store](i)
	indexHandle := do.MustInvoke[*SearchIndexHandle](i)
	sseHandle := do.MustInvoke[*SSEManagerHandle](i)

	handler := api.NewServer(api.Options{
		Library:     lib,
		Settings:    settingsStore,
		Excerpts:    excerptStore,
		Lookup:      lookupStore,
		Searcher:    reader.NewSearcher(log.Logger),
		Index:       indexHandle.Index,
		Events:      sseHandle.Manager,
		SSEHandler:  sse.NewHandler(sseHandle.Manager, log.Logger),
		ShellOrigin: cfg.Server.ShellOrigin,
		Logger:      log.Logger,
	})

	srv := &http.Server{
		Addr:         "127.0.0.1:" + cfg.Server.Port,
		Handler:      handler,
		ReadTimeout:  cfg.Server.ReadTimeout,
		WriteTimeout: cfg.Server.WriteTimeout,
		IdleTimeout:  cfg.Server.IdleTimeout,
	}

	go func() {
		log.Info("HTTP server starting", "addr", srv.Addr)
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Error("HTTP server error", "error", err)
		}
	}()

	return &HTTPServerHandle{Server: srv}, nil
}
