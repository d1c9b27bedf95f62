package repo

import (
	"context"
	"sync"

	"numium/internal/model"
)

// MemoryStore keeps accounts in process memory. It backs tests and the "memory" store backend.
type MemoryStore struct {
	mu       sync.RWMutex
	accounts map[string]model.Account
}

func NewMemoryStore(accounts ...model.Account) *MemoryStore {
	s := &MemoryStore{accounts: make(map[string]model.Account, len(accounts))}
	for _, a := range accounts {
		s.accounts[a.ID] = a
	}
	return s
}

func (s *MemoryStore) Exists(_ context.Context, id string) (bool, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	_, ok := s.accounts[id]
	return ok, nil
}

func (s *MemoryStore) Get(_ context.Context, id string) (model.Account, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	a, ok := s.accounts[id]
	if !ok {
		return model.Account{}, ErrNotFound
	}
	return a, nil
}

func (s *MemoryStore) Put(_ context.Context, account model.Account) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.accounts[account.ID] = account
	return nil
}

// Snapshot returns a copy of every stored account.
func (s *MemoryStore) Snapshot() map[string]model.Account {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make(map[string]model.Account, len(s.accounts))
	for id, a := range s.accounts {
		out[id] = a
	}
	return out
}
