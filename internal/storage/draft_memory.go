package storage

import (
	"context"
	"sync"
)

// InMemorySlotStore keeps draft slots in a map. It is intended for
// single-node development and tests; drafts do not survive a restart.
type InMemorySlotStore struct {
	mu    sync.RWMutex
	slots map[string]string
}

// NewInMemorySlotStore creates an empty in-memory slot store.
func NewInMemorySlotStore() *InMemorySlotStore {
	return &InMemorySlotStore{slots: make(map[string]string)}
}

func (s *InMemorySlotStore) Get(ctx context.Context, key string) (string, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	v, ok := s.slots[key]
	if !ok {
		return "", ErrSlotEmpty
	}
	return v, nil
}

func (s *InMemorySlotStore) Set(ctx context.Context, key, value string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.slots[key] = value
	return nil
}

func (s *InMemorySlotStore) Delete(ctx context.Context, key string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.slots, key)
	return nil
}

func (s *InMemorySlotStore) Backend() string { return "memory" }
