package store

import (
	"context"
	"sync"

	"github.com/oznkts/E-menum-V8-sub001/internal/domain"
)

// MemoryStore is a mutex-guarded map store for tests and single-node dev
// runs. Snapshots are cloned on both sides so callers never share memory
// with the store.
type MemoryStore struct {
	mu    sync.RWMutex
	carts map[string]domain.Cart
}

func NewMemoryStore() *MemoryStore {
	return &MemoryStore{carts: make(map[string]domain.Cart)}
}

func (s *MemoryStore) Save(_ context.Context, key string, cart *domain.Cart) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.carts[key] = cart.Clone()
	return nil
}

func (s *MemoryStore) Load(_ context.Context, key string) (*domain.Cart, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	cart, ok := s.carts[key]
	if !ok {
		return nil, ErrCartNotFound
	}
	out := cart.Clone()
	return &out, nil
}

func (s *MemoryStore) Delete(_ context.Context, key string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.carts, key)
	return nil
}
