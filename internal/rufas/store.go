package rufas

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
)

// Store persists the three collections. Each collection is read and written
// whole as a JSON array; a write replaces the prior content atomically.
// There is no transaction spanning collections.
type Store interface {
	// EnsureInitialized creates the storage namespace and the three empty
	// collections on first use. It leaves existing content untouched and
	// reports whether anything was created.
	EnsureInitialized(ctx context.Context) (bool, error)

	// Read returns the raw JSON array for a collection.
	// An empty or missing collection reads as "[]".
	Read(ctx context.Context, c Collection) ([]byte, error)

	// Write replaces the collection with data, creating it if needed.
	Write(ctx context.Context, c Collection, data []byte) error

	// Close releases any resources held by the store.
	Close() error
}

// readCollection decodes a collection into a slice of T.
func readCollection[T any](ctx context.Context, s Store, c Collection) ([]T, error) {
	data, err := s.Read(ctx, c)
	if err != nil {
		return nil, &StorageError{Collection: c, Op: "read", Err: err}
	}
	data = bytes.TrimSpace(data)
	if len(data) == 0 {
		return []T{}, nil
	}
	var out []T
	if err := json.Unmarshal(data, &out); err != nil {
		return nil, &StorageError{Collection: c, Op: "read", Err: fmt.Errorf("decoding: %w", err)}
	}
	if out == nil {
		out = []T{}
	}
	return out, nil
}

// encodeCollection renders records the way every backend stores them.
func encodeCollection[T any](records []T) ([]byte, error) {
	if records == nil {
		records = []T{}
	}
	return json.MarshalIndent(records, "", "  ")
}

// writeCollection encodes and writes a whole collection.
func writeCollection[T any](ctx context.Context, s Store, c Collection, records []T) error {
	data, err := encodeCollection(records)
	if err != nil {
		return &StorageError{Collection: c, Op: "write", Err: fmt.Errorf("encoding: %w", err)}
	}
	if err := s.Write(ctx, c, data); err != nil {
		return &StorageError{Collection: c, Op: "write", Err: err}
	}
	return nil
}
