package blob

import (
	"context"
	"sync"
)

// MemoryStore is an in-memory Store for tests and local development.
type MemoryStore struct {
	mu      sync.RWMutex
	objects map[string][]byte
	puts    int64
}

// NewMemoryStore creates an empty in-memory blob store.
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{objects: make(map[string][]byte)}
}

// Put stores a copy of data under key.
func (s *MemoryStore) Put(ctx context.Context, key string, data []byte) (int64, error) {
	if err := ctx.Err(); err != nil {
		return 0, err
	}
	cp := make([]byte, len(data))
	copy(cp, data)

	s.mu.Lock()
	s.objects[key] = cp
	s.puts++
	s.mu.Unlock()

	return int64(len(cp)), nil
}

// Get returns a copy of the object stored under key.
func (s *MemoryStore) Get(ctx context.Context, key string) ([]byte, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	s.mu.RLock()
	data, ok := s.objects[key]
	s.mu.RUnlock()
	if !ok {
		return nil, ErrNotFound
	}
	cp := make([]byte, len(data))
	copy(cp, data)
	return cp, nil
}

// Delete removes the object stored under key.
func (s *MemoryStore) Delete(ctx context.Context, key string) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	s.mu.Lock()
	delete(s.objects, key)
	s.mu.Unlock()
	return nil
}

// Exists reports whether an object is stored under key.
func (s *MemoryStore) Exists(ctx context.Context, key string) (bool, error) {
	if err := ctx.Err(); err != nil {
		return false, err
	}
	s.mu.RLock()
	_, ok := s.objects[key]
	s.mu.RUnlock()
	return ok, nil
}

// PutCount returns the number of Put calls served. Used by tests to
// assert idempotent saves never write twice.
func (s *MemoryStore) PutCount() int64 {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.puts
}

// Corrupt overwrites the object under key without touching any index,
// simulating out-of-band corruption.
func (s *MemoryStore) Corrupt(key string, data []byte) {
	s.mu.Lock()
	s.objects[key] = data
	s.mu.Unlock()
}
