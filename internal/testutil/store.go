package testutil

import (
	"context"
	"errors"
	"sync"

	"rufas/internal/rufas"
	"rufas/internal/storage"
)

// ErrInjected is returned by failures configured on test doubles.
var ErrInjected = errors.New("injected failure")

// NewTestStore creates an empty in-memory store.
func NewTestStore() *storage.MemoryStore {
	return storage.NewMemoryStore()
}

// FailingStore wraps a MemoryStore and fails reads or writes of chosen
// collections.
type FailingStore struct {
	*storage.MemoryStore

	mu         sync.Mutex
	failWrites map[rufas.Collection]bool
	failReads  map[rufas.Collection]bool
}

// NewFailingStore creates a FailingStore with no failures configured.
func NewFailingStore() *FailingStore {
	return &FailingStore{
		MemoryStore: storage.NewMemoryStore(),
		failWrites:  make(map[rufas.Collection]bool),
		failReads:   make(map[rufas.Collection]bool),
	}
}

// FailWrites makes every Write of c return ErrInjected.
func (s *FailingStore) FailWrites(c rufas.Collection, fail bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.failWrites[c] = fail
}

// FailReads makes every Read of c return ErrInjected.
func (s *FailingStore) FailReads(c rufas.Collection, fail bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.failReads[c] = fail
}

func (s *FailingStore) Read(ctx context.Context, c rufas.Collection) ([]byte, error) {
	s.mu.Lock()
	fail := s.failReads[c]
	s.mu.Unlock()
	if fail {
		return nil, ErrInjected
	}
	return s.MemoryStore.Read(ctx, c)
}

func (s *FailingStore) Write(ctx context.Context, c rufas.Collection, data []byte) error {
	s.mu.Lock()
	fail := s.failWrites[c]
	s.mu.Unlock()
	if fail {
		return ErrInjected
	}
	return s.MemoryStore.Write(ctx, c, data)
}

var _ rufas.Store = (*FailingStore)(nil)
