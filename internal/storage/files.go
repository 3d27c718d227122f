// Package storage manages the sandboxed application-data directory: binary
// EPUB assets and cover images under books/, one JSON metadata record per
// book under metadata/.
package storage

import (
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"
	"sync"
)

// Files manages filesystem operations for book assets and metadata records.
// Thread-safe for concurrent operations.
type Files struct {
	booksPath    string
	metadataPath string
	mu           sync.RWMutex // Protects file operations
}

// NewFiles creates the two storage areas under dataPath if needed.
func NewFiles(dataPath string) (*Files, error) {
	if dataPath == "" {
		return nil, fmt.Errorf("data path cannot be empty")
	}

	booksPath := filepath.Join(dataPath, "books")
	metadataPath := filepath.Join(dataPath, "metadata")

	for _, dir := range []string{booksPath, metadataPath} {
		if err := os.MkdirAll(dir, 0755); err != nil {
			return nil, fmt.Errorf("failed to create %s: %w", dir, err)
		}
	}

	return &Files{
		booksPath:    booksPath,
		metadataPath: metadataPath,
	}, nil
}

// AssetPath returns the managed location of a book's EPUB file.
func (f *Files) AssetPath(id string) string {
	return filepath.Join(f.booksPath, id+".epub")
}

// CoverPath returns the managed location of a book's cover image.
func (f *Files) CoverPath(id string) string {
	return filepath.Join(f.booksPath, id+".cover.jpg")
}

// MetadataPath returns the location of a book's metadata record.
func (f *Files) MetadataPath(id string) string {
	return filepath.Join(f.metadataPath, id+".json")
}

// CopyAsset copies the source file's bytes into managed asset storage.
func (f *Files) CopyAsset(id, sourcePath string) error {
	if id == "" {
		return fmt.Errorf("ID cannot be empty")
	}

	f.mu.Lock()
	defer f.mu.Unlock()

	src, err := os.Open(sourcePath) //#nosec G304 -- the user picked this file
	if err != nil {
		return fmt.Errorf("failed to open source file: %w", err)
	}
	defer src.Close()

	dst, err := os.Create(f.AssetPath(id))
	if err != nil {
		return fmt.Errorf("failed to create asset file: %w", err)
	}

	if _, err := io.Copy(dst, src); err != nil {
		dst.Close()
		os.Remove(f.AssetPath(id))
		return fmt.Errorf("failed to copy asset bytes: %w", err)
	}

	return dst.Close()
}

// WriteCover stores cover image bytes for a book.
func (f *Files) WriteCover(id string, data []byte) error {
	if id == "" {
		return fmt.Errorf("ID cannot be empty")
	}
	if len(data) == 0 {
		return fmt.Errorf("cover data cannot be empty")
	}

	f.mu.Lock()
	defer f.mu.Unlock()

	if err := os.WriteFile(f.CoverPath(id), data, 0644); err != nil {
		return fmt.Errorf("failed to write cover file: %w", err)
	}
	return nil
}

// ReadCover retrieves cover image bytes for a book.
func (f *Files) ReadCover(id string) ([]byte, error) {
	if id == "" {
		return nil, fmt.Errorf("ID cannot be empty")
	}

	f.mu.RLock()
	defer f.mu.RUnlock()

	data, err := os.ReadFile(f.CoverPath(id))
	if err != nil {
		if os.IsNotExist(err) {
			return nil, fmt.Errorf("cover not found for %s: %w", id, err)
		}
		return nil, fmt.Errorf("failed to read cover file: %w", err)
	}
	return data, nil
}

// WriteMetadata persists a book's metadata record. The write goes through a
// temp file and rename so a crash mid-write can't truncate the record.
func (f *Files) WriteMetadata(id string, data []byte) error {
	if id == "" {
		return fmt.Errorf("ID cannot be empty")
	}

	f.mu.Lock()
	defer f.mu.Unlock()

	final := f.MetadataPath(id)
	tmp := final + ".tmp"

	if err := os.WriteFile(tmp, data, 0644); err != nil {
		return fmt.Errorf("failed to write metadata temp file: %w", err)
	}
	if err := os.Rename(tmp, final); err != nil {
		os.Remove(tmp)
		return fmt.Errorf("failed to commit metadata file: %w", err)
	}
	return nil
}

// ReadMetadata reads a book's metadata record.
func (f *Files) ReadMetadata(id string) ([]byte, error) {
	if id == "" {
		return nil, fmt.Errorf("ID cannot be empty")
	}

	f.mu.RLock()
	defer f.mu.RUnlock()

	data, err := os.ReadFile(f.MetadataPath(id))
	if err != nil {
		return nil, fmt.Errorf("failed to read metadata for %s: %w", id, err)
	}
	return data, nil
}

// ListMetadataIDs returns the IDs of all persisted metadata records,
// in directory order.
func (f *Files) ListMetadataIDs() ([]string, error) {
	f.mu.RLock()
	defer f.mu.RUnlock()

	entries, err := os.ReadDir(f.metadataPath)
	if err != nil {
		return nil, fmt.Errorf("failed to list metadata directory: %w", err)
	}

	ids := make([]string, 0, len(entries))
	for _, entry := range entries {
		name := entry.Name()
		if entry.IsDir() || !strings.HasSuffix(name, ".json") {
			continue
		}
		ids = append(ids, strings.TrimSuffix(name, ".json"))
	}
	return ids, nil
}

// DeleteAsset removes a book's EPUB file. Missing files are not an error.
func (f *Files) DeleteAsset(id string) error {
	return f.remove(f.AssetPath(id))
}

// DeleteCover removes a book's cover image. Missing files are not an error.
func (f *Files) DeleteCover(id string) error {
	return f.remove(f.CoverPath(id))
}

// DeleteMetadata removes a book's metadata record. Missing files are not an error.
func (f *Files) DeleteMetadata(id string) error {
	return f.remove(f.MetadataPath(id))
}

// AssetExists checks if a book's EPUB file exists.
func (f *Files) AssetExists(id string) bool {
	f.mu.RLock()
	defer f.mu.RUnlock()

	_, err := os.Stat(f.AssetPath(id))
	return err == nil
}

func (f *Files) remove(path string) error {
	f.mu.Lock()
	defer f.mu.Unlock()

	if err := os.Remove(path); err != nil {
		if os.IsNotExist(err) {
			// Already deleted, not an error.
			return nil
		}
		return fmt.Errorf("failed to delete %s: %w", path, err)
	}
	return nil
}
