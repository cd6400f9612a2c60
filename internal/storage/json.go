package storage

import (
	"context"
	"fmt"
	"os"
	"path/filepath"

	"rufas/internal/rufas"
)

// JSONStore keeps each collection as a JSON file in one directory:
//
//	<dir>/
//	  files.json
//	  tags.json
//	  bundles.json
//
// Writes go to a temp file that is renamed over the old one, so readers never
// see a partially written collection.
type JSONStore struct {
	dir string
}

// NewJSONStore creates a store rooted at dir. Nothing is created on disk
// until EnsureInitialized or the first Write.
func NewJSONStore(dir string) *JSONStore {
	return &JSONStore{dir: dir}
}

// Dir returns the directory holding the collection files.
func (s *JSONStore) Dir() string {
	return s.dir
}

func (s *JSONStore) path(c rufas.Collection) string {
	return filepath.Join(s.dir, string(c)+".json")
}

// EnsureInitialized creates the directory and an empty array for every
// missing collection file.
func (s *JSONStore) EnsureInitialized(ctx context.Context) (bool, error) {
	if err := os.MkdirAll(s.dir, 0755); err != nil {
		return false, fmt.Errorf("creating database directory: %w", err)
	}

	created := false
	for _, c := range rufas.Collections {
		if _, err := os.Stat(s.path(c)); err == nil {
			continue
		} else if !os.IsNotExist(err) {
			return false, fmt.Errorf("stat %s: %w", c, err)
		}
		if err := s.writeFile(s.path(c), emptyCollection); err != nil {
			return false, err
		}
		created = true
	}
	return created, nil
}

// Read returns the stored JSON. A missing file reads as an empty array.
func (s *JSONStore) Read(ctx context.Context, c rufas.Collection) ([]byte, error) {
	data, err := os.ReadFile(s.path(c))
	if err != nil {
		if os.IsNotExist(err) {
			return emptyCollection, nil
		}
		return nil, fmt.Errorf("reading %s: %w", c, err)
	}
	return data, nil
}

// Write atomically replaces the collection file.
func (s *JSONStore) Write(ctx context.Context, c rufas.Collection, data []byte) error {
	if err := os.MkdirAll(s.dir, 0755); err != nil {
		return fmt.Errorf("creating database directory: %w", err)
	}
	return s.writeFile(s.path(c), data)
}

// Close is a no-op; every operation opens and closes its own file.
func (s *JSONStore) Close() error {
	return nil
}

// writeFile writes data to destPath using a temp file that is synced and
// renamed into place.
func (s *JSONStore) writeFile(destPath string, data []byte) error {
	tmpFile, err := os.CreateTemp(filepath.Dir(destPath), ".tmp-*")
	if err != nil {
		return fmt.Errorf("failed to create temp file: %w", err)
	}
	tmpPath := tmpFile.Name()

	success := false
	defer func() {
		if !success {
			os.Remove(tmpPath)
		}
	}()

	if _, err := tmpFile.Write(data); err != nil {
		tmpFile.Close()
		return fmt.Errorf("failed to write data: %w", err)
	}
	if err := tmpFile.Sync(); err != nil {
		tmpFile.Close()
		return fmt.Errorf("failed to sync temp file: %w", err)
	}
	if err := tmpFile.Close(); err != nil {
		return fmt.Errorf("failed to close temp file: %w", err)
	}
	if err := os.Rename(tmpPath, destPath); err != nil {
		return fmt.Errorf("failed to rename temp file: %w", err)
	}

	success = true
	return nil
}

var _ rufas.Store = (*JSONStore)(nil)
