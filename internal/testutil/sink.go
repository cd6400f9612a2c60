package testutil

import (
	"context"
	"io"

	"rufas/internal/rufas"
	"rufas/internal/sink"
)

// NewTestSink creates an empty in-memory sink.
func NewTestSink() *sink.MemorySink {
	return sink.NewMemorySink()
}

// FailingSink rejects every Put.
type FailingSink struct {
	*sink.MemorySink
}

// NewFailingSink creates a sink whose Put always returns ErrInjected.
func NewFailingSink() *FailingSink {
	return &FailingSink{MemorySink: sink.NewMemorySink()}
}

func (s *FailingSink) Put(ctx context.Context, name string, r io.Reader, size int64) (string, error) {
	return "", ErrInjected
}

var _ rufas.Sink = (*FailingSink)(nil)
