package storage

import (
	"sync"

	"github.com/nexusplan/core/internal/ports"
)

// MemoryMedium is an in-memory ports.Medium. It backs tests and the
// ephemeral mode where nothing should touch disk.
type MemoryMedium struct {
	mu       sync.RWMutex
	values   map[string]string
	writerID string
	lastKey  string
}

// NewMemoryMedium creates an empty in-memory medium.
func NewMemoryMedium(writerID string) *MemoryMedium {
	return &MemoryMedium{
		values:   make(map[string]string),
		writerID: writerID,
	}
}

func (m *MemoryMedium) Get(key string) (string, bool, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	value, ok := m.values[key]
	return value, ok, nil
}

func (m *MemoryMedium) Set(key, value string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.values[key] = value
	m.lastKey = key
	return nil
}

func (m *MemoryMedium) Delete(key string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.values, key)
	return nil
}

func (m *MemoryMedium) LastWrite() (string, string, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	if m.lastKey == "" {
		return "", "", nil
	}
	return m.writerID, m.lastKey, nil
}

func (m *MemoryMedium) Close() error {
	return nil
}

var _ ports.Medium = (*MemoryMedium)(nil)
