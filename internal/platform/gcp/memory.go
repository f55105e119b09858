package gcp

import (
	"context"
	"fmt"
	"sync"
)

// MemBlobStore is an in-memory BlobStore for tests and local development.
type MemBlobStore struct {
	mu      sync.Mutex
	objects map[string][]byte
}

func NewMemBlobStore() *MemBlobStore {
	return &MemBlobStore{objects: map[string][]byte{}}
}

func (m *MemBlobStore) PutHTML(_ context.Context, namespace, url string, html []byte) (string, error) {
	path := HTMLPath(namespace, url)
	m.mu.Lock()
	defer m.mu.Unlock()
	m.objects[path] = append([]byte(nil), html...)
	return path, nil
}

func (m *MemBlobStore) Get(_ context.Context, path string) ([]byte, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	data, ok := m.objects[path]
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrNotFound, path)
	}
	return append([]byte(nil), data...), nil
}

func (m *MemBlobStore) Update(_ context.Context, path string, data []byte) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.objects[path] = append([]byte(nil), data...)
	return nil
}

// Len reports the number of stored objects.
func (m *MemBlobStore) Len() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.objects)
}
