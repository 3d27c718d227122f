package providers

import (
	"github.com/samber/do/v2"

	"github.com/folioapp/folio-server/internal/config"
	"github.com/folioapp/folio-server/internal/kv"
	"github.com/folioapp/folio-server/internal/logger"
	"github.com/folioapp/folio-server/internal/media/covers"
	"github.com/folioapp/folio-server/internal/storage"
)

// ProvideFiles provides the managed asset and metadata file storage.
func ProvideFiles(i do.Injector) (*storage.Files, error) {
	cfg := do.MustInvoke[*config.Config](i)
	return storage.NewFiles(cfg.Storage.DataPath)
}

// KVHandle wraps the key-value store with Shutdownable.
type KVHandle struct {
	*kv.Store
}

// Shutdown implements do.Shutdownable.
func (h *KVHandle) Shutdown() error {
	return h.Close()
}

// ProvideKV provides the Badger-backed key-value store.
func ProvideKV(i do.Injector) (*KVHandle, error) {
	cfg := do.MustInvoke[*config.Config](i)
	log := do.MustInvoke[*logger.Logger](i)

	store, err := kv.Open(cfg.Storage.DataPath, log.Logger)
	if err != nil {
		return nil, err
	}
	return &KVHandle{Store: store}, nil
}

// ProvideCoverProcessor provides the cover thumbnail and blurhash processor.
func ProvideCoverProcessor(i do.Injector) (*covers.Processor, error) {
	files := do.MustInvoke[*storage.Files](i)
	log := do.MustInvoke[*logger.Logger](i)
	return covers.NewProcessor(files, log.Logger), nil
}
