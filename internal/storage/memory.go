package storage

import (
	"bytes"
	"fmt"
	"io"
	"sync"
)

// MemoryStorage keeps objects in memory. Used by tests and local tooling.
type MemoryStorage struct {
	mu      sync.Mutex
	objects map[string][]byte
	types   map[string]string
	// FailDelete makes Delete return an error for these paths.
	FailDelete map[string]bool
}

func NewMemoryStorage() *MemoryStorage {
	return &MemoryStorage{
		objects:    map[string][]byte{},
		types:      map[string]string{},
		FailDelete: map[string]bool{},
	}
}

func (m *MemoryStorage) Save(path string, file io.Reader, contentType string) error {
	var buf bytes.Buffer
	if _, err := io.Copy(&buf, file); err != nil {
		return err
	}

	m.mu.Lock()
	defer m.mu.Unlock()
	m.objects[path] = buf.Bytes()
	m.types[path] = contentType
	return nil
}

func (m *MemoryStorage) Delete(path string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.FailDelete[path] {
		return fmt.Errorf("delete %s: simulated failure", path)
	}
	delete(m.objects, path)
	delete(m.types, path)
	return nil
}

func (m *MemoryStorage) URL(path string) string {
	return "https://cdn.test/" + path
}

func (m *MemoryStorage) Has(path string) bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	_, ok := m.objects[path]
	return ok
}

func (m *MemoryStorage) ContentType(path string) string {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.types[path]
}

func (m *MemoryStorage) Len() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.objects)
}
