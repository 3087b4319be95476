package storage

import (
	"context"
	"fmt"
	"io"
	"sync"
)

// Memory is an in-memory Storage implementation for tests and local
// development without an object store. It records every delete so tests can
// assert on cleanup behavior.
type Memory struct {
	mu      sync.RWMutex
	objects map[string][]byte
	deleted []string

	// UploadErr and DeleteErr, when set, are returned by the corresponding
	// operation to simulate a failing store.
	UploadErr error
	DeleteErr error
}

// NewMemory creates an empty in-memory store.
func NewMemory() *Memory {
	return &Memory{objects: make(map[string][]byte)}
}

// Upload reads the full payload and keeps it in memory under key.
func (m *Memory) Upload(ctx context.Context, key string, reader io.Reader, size int64, contentType string) error {
	if m.UploadErr != nil {
		return m.UploadErr
	}
	data, err := io.ReadAll(reader)
	if err != nil {
		return fmt.Errorf("read payload for %q: %w", key, err)
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	m.objects[key] = data
	return nil
}

// Delete removes the object at key and records the deletion. Like the MinIO
// backend, deleting a missing key is not an error.
func (m *Memory) Delete(ctx context.Context, key string) error {
	if m.DeleteErr != nil {
		return m.DeleteErr
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.objects, key)
	m.deleted = append(m.deleted, key)
	return nil
}

// PublicURL returns a synthetic URL for the given key.
func (m *Memory) PublicURL(key string) string {
	return "memory://" + key
}

// Object returns the stored bytes for key, if present.
func (m *Memory) Object(key string) ([]byte, bool) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	data, ok := m.objects[key]
	return data, ok
}

// Deleted returns the keys deleted so far, in order.
func (m *Memory) Deleted() []string {
	m.mu.RLock()
	defer m.mu.RUnlock()
	out := make([]string, len(m.deleted))
	copy(out, m.deleted)
	return out
}

// Len returns the number of stored objects.
func (m *Memory) Len() int {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return len(m.objects)
}
