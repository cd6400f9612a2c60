package sink

import (
	"context"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"rufas/internal/rufas"
)

// FileSystemSink writes export documents as files in one directory.
// Existing documents are never overwritten.
type FileSystemSink struct {
	dir string
}

// NewFileSystemSink creates the export directory if needed.
func NewFileSystemSink(dir string) (*FileSystemSink, error) {
	if err := os.MkdirAll(dir, 0755); err != nil {
		return nil, fmt.Errorf("failed to create export directory: %w", err)
	}
	return &FileSystemSink{dir: dir}, nil
}

// Dir returns the export directory.
func (s *FileSystemSink) Dir() string {
	return s.dir
}

// Put writes the document to <dir>/<name> and returns its path.
func (s *FileSystemSink) Put(ctx context.Context, name string, r io.Reader, size int64) (string, error) {
	if err := validName(name); err != nil {
		return "", err
	}
	destPath := filepath.Join(s.dir, name)
	if _, err := os.Stat(destPath); err == nil {
		return "", fmt.Errorf("export already exists: %s", name)
	}
	if err := s.writeFile(destPath, r, size); err != nil {
		return "", err
	}
	return destPath, nil
}

// Get copies a stored document to w.
func (s *FileSystemSink) Get(ctx context.Context, name string, w io.Writer) error {
	if err := validName(name); err != nil {
		return err
	}
	f, err := os.Open(filepath.Join(s.dir, name))
	if err != nil {
		if os.IsNotExist(err) {
			return fmt.Errorf("export not found: %s", name)
		}
		return fmt.Errorf("failed to open export: %w", err)
	}
	defer f.Close()

	if _, err := io.Copy(w, f); err != nil {
		return fmt.Errorf("failed to read export: %w", err)
	}
	return nil
}

// ValidateSetup verifies that the export directory exists.
func (s *FileSystemSink) ValidateSetup(ctx context.Context) error {
	info, err := os.Stat(s.dir)
	if err != nil {
		return fmt.Errorf("export directory not accessible: %w", err)
	}
	if !info.IsDir() {
		return fmt.Errorf("export path is not a directory: %s", s.dir)
	}
	return nil
}

// writeFile writes data from r to destPath using a temp file + rename.
func (s *FileSystemSink) writeFile(destPath string, r io.Reader, expectedSize int64) error {
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

	written, err := io.Copy(tmpFile, r)
	if err != nil {
		tmpFile.Close()
		return fmt.Errorf("failed to write data: %w", err)
	}
	if err := tmpFile.Close(); err != nil {
		return fmt.Errorf("failed to close temp file: %w", err)
	}
	if written != expectedSize {
		return fmt.Errorf("size mismatch: expected %d bytes, got %d", expectedSize, written)
	}
	if err := os.Rename(tmpPath, destPath); err != nil {
		return fmt.Errorf("failed to rename temp file: %w", err)
	}

	success = true
	return nil
}

// validName rejects names that would escape the sink's namespace.
func validName(name string) error {
	if name == "" || strings.ContainsAny(name, `/\`) || name == "." || name == ".." {
		return fmt.Errorf("invalid export name: %q", name)
	}
	return nil
}

var _ rufas.Sink = (*FileSystemSink)(nil)
