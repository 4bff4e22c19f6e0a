package modelstore

import (
	"context"
	"sync"
)

// memoryStore keeps artifacts in a map. Used by tests and embedded callers.
type memoryStore struct {
	mu        sync.RWMutex
	artifacts map[string][]byte
}

// NewMemoryStore creates an empty in-memory model store.
func NewMemoryStore() Store {
	return &memoryStore{artifacts: make(map[string][]byte)}
}

func (m *memoryStore) Save(ctx context.Context, name string, artifact []byte) error {
	cp := make([]byte, len(artifact))
	copy(cp, artifact)
	m.mu.Lock()
	m.artifacts[name] = cp
	m.mu.Unlock()
	return nil
}

func (m *memoryStore) Load(ctx context.Context, name string) ([]byte, bool, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	artifact, ok := m.artifacts[name]
	if !ok {
		return nil, false, nil
	}
	cp := make([]byte, len(artifact))
	copy(cp, artifact)
	return cp, true, nil
}
