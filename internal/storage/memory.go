package storage

import (
	"context"
	"sync"

	"github.com/daniel-lxs/bettersubs/internal/apperrors"
)

// memoryStore is an in-process BlobStore used in tests and local
// development, where no object store is reachable.
type memoryStore struct {
	mu    sync.RWMutex
	blobs map[string]string
}

// NewMemoryStore creates an empty in-process blob store.
func NewMemoryStore() BlobStore {
	return &memoryStore{blobs: make(map[string]string)}
}

func (m *memoryStore) Put(_ context.Context, key, content string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.blobs[key] = content
	return nil
}

func (m *memoryStore) Get(_ context.Context, key string) (string, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	content, ok := m.blobs[key]
	if !ok {
		return "", apperrors.NewNotFoundError("subtitle blob", key)
	}
	return content, nil
}
