package rufas

import (
	"context"
	"time"
)

// Scanner provides an interface for reading the opened folder.
// It abstracts file access to enable testing without touching the real filesystem.
// All paths passed to ReadFile and Stat are slash-separated and relative to root.
type Scanner interface {
	// ListTree returns the entries under root, skipping ignored names.
	// Directories sort before files; names sort case-insensitively within each type.
	ListTree(ctx context.Context, root string) ([]Entry, error)

	// ReadFile returns the content of a file.
	ReadFile(ctx context.Context, root, path string) ([]byte, error)

	// Stat returns fresh metadata for a file.
	Stat(ctx context.Context, root, path string) (FileStat, error)
}

// FileStat is the subset of file metadata the registry tracks.
type FileStat struct {
	Size    int64
	ModTime time.Time
}
