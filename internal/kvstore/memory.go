package kvstore

import (
	"context"
	"sync"
)

// Memory is an in-process Backend with the same quota rules as SQLite.
type Memory struct {
	mu     sync.RWMutex
	quota  int64
	values map[string]string
}

// NewMemory returns an empty Memory backend.
func NewMemory(quota int64) *Memory {
	return &Memory{quota: quota, values: make(map[string]string)}
}

func (m *Memory) Get(_ context.Context, key string) (string, bool, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	v, ok := m.values[key]
	return v, ok, nil
}

func (m *Memory) Set(_ context.Context, key, value string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.quota > 0 {
		need := entrySize(key, value)
		for k, v := range m.values {
			if k != key {
				need += entrySize(k, v)
			}
		}
		if need > m.quota {
			return &QuotaError{Key: key, Need: need, Quota: m.quota}
		}
	}
	m.values[key] = value
	return nil
}

func (m *Memory) Delete(_ context.Context, key string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.values, key)
	return nil
}

func (m *Memory) Usage(_ context.Context) (int64, int64, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	var used int64
	for k, v := range m.values {
		used += entrySize(k, v)
	}
	return used, m.quota, nil
}

func (m *Memory) Close() error { return nil }
