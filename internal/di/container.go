// Package di provides dependency injection configuration for the Folio server.
package di

import (
	"github.com/samber/do/v2"

	"github.com/folioapp/folio-server/internal/config"
	"github.com/folioapp/folio-server/internal/di/providers"
	"github.com/folioapp/folio-server/internal/excerpts"
	"github.com/folioapp/folio-server/internal/library"
	"github.com/folioapp/folio-server/internal/logger"
	"github.com/folioapp/folio-server/internal/lookup"
	"github.com/folioapp/folio-server/internal/media/covers"
	"github.com/folioapp/folio-server/internal/settings"
	"github.com/folioapp/folio-server/internal/storage"
)

// NewContainer creates and configures the DI container with all providers.
func NewContainer() *do.RootScope {
	injector := do.New()

	// Core infrastructure
	do.Provide(injector, providers.ProvideConfig)
	do.Provide(injector, providers.ProvideLogger)

	// Storage layer
	do.Provide(injector, providers.ProvideFiles)
	do.Provide(injector, providers.ProvideKV)
	do.Provide(injector, providers.ProvideCoverProcessor)

	// Search layer
	do.Provide(injector, providers.ProvideSearchIndex)

	// Stores
	do.Provide(injector, providers.ProvideLibraryStore)
	do.Provide(injector, providers.ProvideSettingsStore)
	do.Provide(injector, providers.ProvideExcerptStore)
	do.Provide(injector, providers.ProvideLookupStore)

	// Eventing and workers
	do.Provide(injector, providers.ProvideSSEManager)
	do.Provide(injector, providers.ProvideInbox)

	// Server
	do.Provide(injector, providers.ProvideHTTPServer)

	return injector
}

// Bootstrap triggers lazy initialization of every provider so the server is
// fully wired before main blocks on signals.
func Bootstrap(injector *do.RootScope) error {
	_ = do.MustInvoke[*config.Config](injector)
	_ = do.MustInvoke[*logger.Logger](injector)

	_ = do.MustInvoke[*storage.Files](injector)
	_ = do.MustInvoke[*providers.KVHandle](injector)
	_ = do.MustInvoke[*covers.Processor](injector)

	_ = do.MustInvoke[*providers.SearchIndexHandle](injector)

	_ = do.MustInvoke[*library.Store](injector)
	_ = do.MustInvoke[*settings.Store](injector)
	_ = do.MustInvoke[*excerpts.Store](injector)
	_ = do.MustInvoke[*lookup.Store](injector)

	_ = do.MustInvoke[*providers.SSEManagerHandle](injector)
	_ = do.MustInvoke[*providers.InboxHandle](injector)

	_ = do.MustInvoke[*providers.HTTPServerHandle](injector)

	return nil
}
