package cart

import (
	"context"
	"sync"
)

// MemoryStorage keeps values in process. A positive quota bounds the total
// stored bytes and makes Set fail with ErrQuotaExceeded once crossed.
type MemoryStorage struct {
	mu    sync.RWMutex
	data  map[string][]byte
	quota int
}

func NewMemoryStorage(quota int) *MemoryStorage {
	return &MemoryStorage{
		data:  make(map[string][]byte),
		quota: quota,
	}
}

func (m *MemoryStorage) Get(_ context.Context, key string) ([]byte, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	v, ok := m.data[key]
	if !ok {
		return nil, ErrNotFound
	}
	out := make([]byte, len(v))
	copy(out, v)
	return out, nil
}

func (m *MemoryStorage) Set(_ context.Context, key string, value []byte) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.quota > 0 {
		used := len(value)
		for k, v := range m.data {
			if k != key {
				used += len(v)
			}
		}
		if used > m.quota {
			return ErrQuotaExceeded
		}
	}

	v := make([]byte, len(value))
	copy(v, value)
	m.data[key] = v
	return nil
}

func (m *MemoryStorage) Remove(_ context.Context, key string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.data, key)
	return nil
}
