package storage

import (
	"context"
	"sync"
	"time"
)

// MemoryKV is a process-local KeyValue. Its Stats mirror the SQLite store
// so callers can treat both the same way.
type MemoryKV struct {
	mu          sync.Mutex
	slots       map[string]string
	generation  uint64
	initialized *time.Time
}

var _ KeyValue = (*MemoryKV)(nil)

func NewMemoryKV() *MemoryKV {
	return &MemoryKV{slots: map[string]string{}}
}

func (m *MemoryKV) Get(_ context.Context, key string) (string, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	value, ok := m.slots[key]
	if !ok {
		return "", ErrNotFound
	}
	return value, nil
}

func (m *MemoryKV) Set(_ context.Context, key, value string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.slots[key] = value
	m.generation++
	if m.initialized == nil {
		now := nowUTC()
		m.initialized = &now
	}
	return nil
}

func (m *MemoryKV) Stats(_ context.Context) (Stats, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	stats := Stats{Path: ":memory:", SchemaVersion: CurrentSchemaVersion(), WriteGeneration: m.generation}
	if m.initialized != nil {
		t := *m.initialized
		stats.InitializedAt = &t
	}
	return stats, nil
}
