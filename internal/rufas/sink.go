package rufas

import (
	"context"
	"io"
)

// Sink provides an interface for export destinations.
// Exported documents are immutable once written; names are unique per export.
type Sink interface {
	// Put stores an export document under name.
	// size is the number of bytes that will be read from r.
	// It returns a human-readable location (file path, s3:// URL, ...).
	Put(ctx context.Context, name string, r io.Reader, size int64) (string, error)

	// Get retrieves an export document by name and writes it to w.
	Get(ctx context.Context, name string, w io.Writer) error

	// ValidateSetup verifies that the sink is accessible and properly configured.
	ValidateSetup(ctx context.Context) error
}
