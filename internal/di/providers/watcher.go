package providers

import (
	"context"
	"path/filepath"

	"github.com/samber/do/v2"

	"github.com/folioapp/folio-server/internal/config"
	"github.com/folioapp/folio-server/internal/domain"
	"github.com/folioapp/folio-server/internal/library"
	"github.com/folioapp/folio-server/internal/logger"
	"github.com/folioapp/folio-server/internal/sse"
	"github.com/folioapp/folio-server/internal/watcher"
)

// InboxHandle wraps the drop-folder watcher with Shutdownable. A nil Inbox
// means watching is disabled.
type InboxHandle struct {
	*watcher.Inbox
	started bool
}

// Shutdown implements do.Shutdownable.
func (h *InboxHandle) Shutdown() error {
	if h.started {
		return h.Stop()
	}
	return nil
}

// ProvideInbox provides the inbox drop-folder watcher.
func ProvideInbox(i do.Injector) (*InboxHandle, error) {
	cfg := do.MustInvoke[*config.Config](i)
	log := do.MustInvoke[*logger.Logger](i)

	if !cfg.Library.WatchInbox {
		log.Info("Inbox watcher disabled by configuration")
		return &InboxHandle{started: false}, nil
	}

	lib := do.MustInvoke[*library.Store](i)
	sseHandle := do.MustInvoke[*SSEManagerHandle](i)

	inbox := watcher.NewInbox(filepath.Join(cfg.Storage.DataPath, "inbox"), lib, log.Logger)
	inbox.OnImported = func(book *domain.Book) {
		sseHandle.Emit(sse.NewBookImportedEvent(book))
	}

	if err := inbox.Start(context.Background()); err != nil {
		return nil, err
	}
	return &InboxHandle{Inbox: inbox, started: true}, nil
}
