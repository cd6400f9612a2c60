package storage

import (
	"context"
	"sync"

	"rufas/internal/rufas"
)

var emptyCollection = []byte("[]")

// MemoryStore is an in-memory implementation of rufas.Store, useful for
// testing. It is safe for concurrent use.
type MemoryStore struct {
	mu          sync.RWMutex
	collections map[rufas.Collection][]byte
	writes      map[rufas.Collection]int
}

// NewMemoryStore creates an empty store.
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{
		collections: make(map[rufas.Collection][]byte),
		writes:      make(map[rufas.Collection]int),
	}
}

// EnsureInitialized creates empty collections that do not exist yet.
func (m *MemoryStore) EnsureInitialized(ctx context.Context) (bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	created := false
	for _, c := range rufas.Collections {
		if _, ok := m.collections[c]; !ok {
			m.collections[c] = emptyCollection
			created = true
		}
	}
	return created, nil
}

// Read returns a copy of the stored collection.
func (m *MemoryStore) Read(ctx context.Context, c rufas.Collection) ([]byte, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	data, ok := m.collections[c]
	if !ok {
		return emptyCollection, nil
	}
	return append([]byte(nil), data...), nil
}

// Write replaces the collection with a copy of data.
func (m *MemoryStore) Write(ctx context.Context, c rufas.Collection, data []byte) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.collections[c] = append([]byte(nil), data...)
	m.writes[c]++
	return nil
}

// Writes returns how many times c has been written.
func (m *MemoryStore) Writes(c rufas.Collection) int {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.writes[c]
}

// Close is a no-op.
func (m *MemoryStore) Close() error {
	return nil
}

var _ rufas.Store = (*MemoryStore)(nil)
