package store

import (
	"context"
	"sync"

	"github.com/sequencetheory/vaultclub/internal/model"
)

// MemoryStore is an in-memory WalletStore for tests and local development.
type MemoryStore struct {
	mu      sync.Mutex
	records map[string]model.WalletRecord
}

// NewMemoryStore creates an empty in-memory store.
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{records: make(map[string]model.WalletRecord)}
}

func (s *MemoryStore) Get(_ context.Context, userID string) (*model.WalletRecord, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	rec, ok := s.records[userID]
	if !ok {
		return nil, ErrNotFound
	}
	out := rec
	return &out, nil
}

func (s *MemoryStore) Put(_ context.Context, rec *model.WalletRecord) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.records[rec.UserID] = *rec
	return nil
}

func (s *MemoryStore) Delete(_ context.Context, userID string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.records, userID)
	return nil
}
