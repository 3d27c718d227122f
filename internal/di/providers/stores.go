package providers

import (
	"context"

	"github.com/samber/do/v2"

	"github.com/folioapp/folio-server/internal/config"
	"github.com/folioapp/folio-server/internal/excerpts"
	"github.com/folioapp/folio-server/internal/library"
	"github.com/folioapp/folio-server/internal/logger"
	"github.com/folioapp/folio-server/internal/lookup"
	"github.com/folioapp/folio-server/internal/media/covers"
	"github.com/folioapp/folio-server/internal/settings"
	"github.com/folioapp/folio-server/internal/storage"
)

// ProvideLibraryStore provides the initialized book library store.
func ProvideLibraryStore(i do.Injector) (*library.Store, error) {
	cfg := do.MustInvoke[*config.Config](i)
	files := do.MustInvoke[*storage.Files](i)
	coverProcessor := do.MustInvoke[*covers.Processor](i)
	indexHandle := do.MustInvoke[*SearchIndexHandle](i)
	log := do.MustInvoke[*logger.Logger](i)

	store := library.NewStore(library.Options{
		Files:            files,
		Covers:           coverProcessor,
		Index:            indexHandle.Index,
		Logger:           log.Logger,
		CoverConcurrency: cfg.Library.CoverConcurrency,
	})

	if err := store.Initialize(context.Background()); err != nil {
		return nil, err
	}

	// Covers inline lazily so startup never blocks on image decoding.
	go func() {
		if err := store.LoadAllCovers(context.Background()); err != nil {
			log.Warn("Background cover loading stopped early", "error", err)
		}
	}()

	return store, nil
}

// ProvideSettingsStore provides the reader settings store.
func ProvideSettingsStore(i do.Injector) (*settings.Store, error) {
	kvHandle := do.MustInvoke[*KVHandle](i)
	log := do.MustInvoke[*logger.Logger](i)
	return settings.NewStore(kvHandle.Store, log.Logger)
}

// ProvideExcerptStore provides the saved-excerpt store.
func ProvideExcerptStore(i do.Injector) (*excerpts.Store, error) {
	kvHandle := do.MustInvoke[*KVHandle](i)
	log := do.MustInvoke[*logger.Logger](i)
	return excerpts.NewStore(kvHandle.Store, log.Logger)
}

// ProvideLookupStore provides the dictionary/encyclopedia lookup store.
func ProvideLookupStore(i do.Injector) (*lookup.Store, error) {
	cfg := do.MustInvoke[*config.Config](i)
	log := do.MustInvoke[*logger.Logger](i)

	dictionary := lookup.NewDictionaryClient(cfg.Lookup.DictionaryURL, cfg.Lookup.Timeout, log.Logger)
	encyclopedia := lookup.NewEncyclopediaClient(cfg.Lookup.EncyclopediaURL, cfg.Lookup.Timeout, log.Logger)

	return lookup.NewStore(dictionary, encyclopedia, log.Logger), nil
}
