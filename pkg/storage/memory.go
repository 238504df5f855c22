package storage

import (
	"context"
	"sync"
)

// MemoryStore keeps the latest snapshot in process memory.
// Snapshots are stored encoded so callers never share state with the store.
type MemoryStore struct {
	mu    sync.RWMutex
	name  string
	data  []byte
	saves int
}

// NewMemoryStore returns an empty in-memory store.
func NewMemoryStore(name string) *MemoryStore {
	if name == "" {
		name = "memory"
	}
	return &MemoryStore{name: name}
}

// Save encodes and keeps snap.
func (m *MemoryStore) Save(ctx context.Context, snap Snapshot) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	snap.Meta.Storage = m.name
	data, err := Encode(snap)
	if err != nil {
		return err
	}

	m.mu.Lock()
	m.data = data
	m.saves++
	m.mu.Unlock()
	return nil
}

// Load decodes the kept snapshot.
func (m *MemoryStore) Load(ctx context.Context) (Snapshot, error) {
	if err := ctx.Err(); err != nil {
		return Snapshot{}, err
	}

	m.mu.RLock()
	data := m.data
	m.mu.RUnlock()

	if data == nil {
		return Snapshot{}, ErrNotFound
	}
	return Decode(data)
}

// Saves returns how many snapshots have been written.
func (m *MemoryStore) Saves() int {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.saves
}

func (m *MemoryStore) Name() string {
	return m.name
}

// Close discards the kept snapshot.
func (m *MemoryStore) Close() error {
	m.mu.Lock()
	m.data = nil
	m.mu.Unlock()
	return nil
}
