package sink

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"sort"
	"sync"

	"rufas/internal/rufas"
)

// MemorySink keeps export documents in memory, making it useful for testing.
// It is safe for concurrent use.
type MemorySink struct {
	mu   sync.RWMutex
	docs map[string][]byte
}

// NewMemorySink creates an empty sink.
func NewMemorySink() *MemorySink {
	return &MemorySink{docs: make(map[string][]byte)}
}

// Put stores a document and returns a memory:// location.
func (m *MemorySink) Put(ctx context.Context, name string, r io.Reader, size int64) (string, error) {
	if err := validName(name); err != nil {
		return "", err
	}
	data, err := io.ReadAll(r)
	if err != nil {
		return "", fmt.Errorf("failed to read export: %w", err)
	}
	if int64(len(data)) != size {
		return "", fmt.Errorf("size mismatch: expected %d bytes, got %d", size, len(data))
	}

	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.docs[name]; ok {
		return "", fmt.Errorf("export already exists: %s", name)
	}
	m.docs[name] = data
	return "memory://" + name, nil
}

// Get copies a stored document to w.
func (m *MemorySink) Get(ctx context.Context, name string, w io.Writer) error {
	m.mu.RLock()
	defer m.mu.RUnlock()

	data, ok := m.docs[name]
	if !ok {
		return fmt.Errorf("export not found: %s", name)
	}
	if _, err := io.Copy(w, bytes.NewReader(data)); err != nil {
		return fmt.Errorf("failed to write export: %w", err)
	}
	return nil
}

// Names returns the stored document names in sorted order.
func (m *MemorySink) Names() []string {
	m.mu.RLock()
	defer m.mu.RUnlock()

	names := make([]string, 0, len(m.docs))
	for n := range m.docs {
		names = append(names, n)
	}
	sort.Strings(names)
	return names
}

// ValidateSetup always succeeds for the in-memory sink.
func (m *MemorySink) ValidateSetup(ctx context.Context) error {
	return nil
}

var _ rufas.Sink = (*MemorySink)(nil)
