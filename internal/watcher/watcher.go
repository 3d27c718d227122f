// Package watcher imports EPUB files dropped into the inbox directory. Files
// are debounced until their size and mtime stop changing, so a file still
// being copied is never imported half-written.
package watcher

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"github.com/fsnotify/fsnotify"

	"github.com/folioapp/folio-server/internal/domain"
	"github.com/folioapp/folio-server/internal/errors"
)

// defaultSettleDelay is how long a file must stay unchanged before it is
// considered fully written.
const defaultSettleDelay = 2 * time.Second

// Importer is the slice of the library store the watcher needs.
type Importer interface {
	Import(ctx context.Context, sourcePath string) (*domain.Book, error)
}

// pendingFile tracks a file that may still be changing.
type pendingFile struct {
	size    int64
	modTime time.Time
	timer   *time.Timer
}

// Inbox watches a drop folder and imports every EPUB that settles in it.
// Successfully imported files are removed from the inbox; failed ones stay
// for the user to inspect.
type Inbox struct {
	path        string
	importer    Importer
	logger      *slog.Logger
	settleDelay time.Duration

	// OnImported, when set, is called after each successful import.
	OnImported func(*domain.Book)

	watcher *fsnotify.Watcher
	pending map[string]*pendingFile
	mu      sync.Mutex

	done chan struct{}
	wg   sync.WaitGroup
}

// NewInbox creates an inbox watcher over path.
func NewInbox(path string, importer Importer, logger *slog.Logger) *Inbox {
	return &Inbox{
		path:        filepath.Clean(path),
		importer:    importer,
		logger:      logger,
		settleDelay: defaultSettleDelay,
		pending:     make(map[string]*pendingFile),
		done:        make(chan struct{}),
	}
}

// Start creates the inbox directory if needed, imports anything already
// sitting in it, and then watches for new arrivals until ctx is canceled.
func (in *Inbox) Start(ctx context.Context) error {
	if err := os.MkdirAll(in.path, 0755); err != nil {
		return fmt.Errorf("create inbox directory: %w", err)
	}

	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		return fmt.Errorf("create fsnotify watcher: %w", err)
	}
	in.watcher = watcher

	if err := in.watcher.Add(in.path); err != nil {
		_ = in.watcher.Close()
		return fmt.Errorf("watch inbox: %w", err)
	}

	in.sweep(ctx)

	in.wg.Add(1)
	go in.processEvents(ctx)

	in.logger.Info("inbox watcher started", "path", in.path)
	return nil
}

// Stop stops the watcher and cancels all pending settle timers.
func (in *Inbox) Stop() error {
	close(in.done)

	in.mu.Lock()
	for _, p := range in.pending {
		p.timer.Stop()
	}
	clear(in.pending)
	in.mu.Unlock()

	if in.watcher != nil {
		_ = in.watcher.Close()
	}
	in.wg.Wait()
	return nil
}

// sweep imports files already present when the watcher starts.
func (in *Inbox) sweep(ctx context.Context) {
	entries, err := os.ReadDir(in.path)
	if err != nil {
		in.logger.Warn("inbox sweep failed", "error", err)
		return
	}
	for _, entry := range entries {
		if entry.IsDir() || !isEPUB(entry.Name()) {
			continue
		}
		in.importFile(ctx, filepath.Join(in.path, entry.Name()))
	}
}

func (in *Inbox) processEvents(ctx context.Context) {
	defer in.wg.Done()

	for {
		select {
		case <-ctx.Done():
			return
		case <-in.done:
			return
		case event, ok := <-in.watcher.Events:
			if !ok {
				return
			}
			in.handleEvent(ctx, event)
		case err, ok := <-in.watcher.Errors:
			if !ok {
				return
			}
			in.logger.Warn("inbox watch error", "error", err)
		}
	}
}

func (in *Inbox) handleEvent(ctx context.Context, event fsnotify.Event) {
	if !isEPUB(event.Name) {
		return
	}

	if event.Op&fsnotify.Remove != 0 {
		in.cancelPending(event.Name)
		return
	}

	if event.Op&(fsnotify.Write|fsnotify.Create) != 0 {
		in.startSettling(ctx, event.Name)
	}
}

// startSettling (re)arms the settle timer for a file.
func (in *Inbox) startSettling(ctx context.Context, path string) {
	in.mu.Lock()
	defer in.mu.Unlock()

	if p, exists := in.pending[path]; exists {
		p.timer.Stop()
	}

	info, err := os.Stat(path)
	if err != nil {
		delete(in.pending, path)
		return
	}
	if info.IsDir() {
		return
	}

	p := &pendingFile{
		size:    info.Size(),
		modTime: info.ModTime(),
	}
	p.timer = time.AfterFunc(in.settleDelay, func() {
		in.checkSettled(ctx, path)
	})
	in.pending[path] = p
}

// checkSettled imports the file once its size and mtime stop moving.
func (in *Inbox) checkSettled(ctx context.Context, path string) {
	in.mu.Lock()

	p, exists := in.pending[path]
	if !exists {
		in.mu.Unlock()
		return
	}

	info, err := os.Stat(path)
	if err != nil {
		// File vanished while settling.
		delete(in.pending, path)
		in.mu.Unlock()
		return
	}

	if info.Size() != p.size || info.ModTime() != p.modTime {
		// Still being written, restart the timer.
		p.size = info.Size()
		p.modTime = info.ModTime()
		p.timer = time.AfterFunc(in.settleDelay, func() {
			in.checkSettled(ctx, path)
		})
		in.mu.Unlock()
		return
	}

	delete(in.pending, path)
	in.mu.Unlock()

	in.importFile(ctx, path)
}

// importFile runs one import and cleans up the inbox on success.
func (in *Inbox) importFile(ctx context.Context, path string) {
	select {
	case <-in.done:
		return
	default:
	}

	book, err := in.importer.Import(ctx, path)
	if err != nil {
		if errors.Is(err, errors.ErrAlreadyExists) {
			in.logger.Debug("inbox file already in library", "path", path)
		} else {
			in.logger.Warn("inbox import failed, leaving file in place", "path", path, "error", err)
			return
		}
	} else {
		in.logger.Info("imported from inbox", "path", path, "book_id", book.ID)
		if in.OnImported != nil {
			in.OnImported(book)
		}
	}

	// The inbox is a staging area; the library holds its own copy now.
	if err := os.Remove(path); err != nil && !os.IsNotExist(err) {
		in.logger.Warn("failed to remove imported inbox file", "path", path, "error", err)
	}
}

func (in *Inbox) cancelPending(path string) {
	in.mu.Lock()
	defer in.mu.Unlock()

	if p, exists := in.pending[path]; exists {
		p.timer.Stop()
		delete(in.pending, path)
	}
}

func isEPUB(path string) bool {
	return strings.EqualFold(filepath.Ext(path), ".epub")
}
