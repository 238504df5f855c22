package mock

import (
	"context"
	"sync/atomic"

	"bank-ledger/pkg/storage"
)

// Store is a storage.Store for tests.
// Behavior is injected through the function hooks; calls are counted.
type Store struct {
	// Function hooks - set these to customize behavior
	SaveFunc  func(ctx context.Context, snap storage.Snapshot) error
	LoadFunc  func(ctx context.Context) (storage.Snapshot, error)
	NameFunc  func() string
	CloseFunc func() error

	// Call tracking (must use atomic operations for race-free access)
	saveCalls  int64
	loadCalls  int64
	closeCalls int64
}

// NewStore returns a mock store reporting name.
func NewStore(name string) *Store {
	return &Store{NameFunc: func() string { return name }}
}

// Save calls SaveFunc, or succeeds.
func (m *Store) Save(ctx context.Context, snap storage.Snapshot) error {
	atomic.AddInt64(&m.saveCalls, 1)
	if m.SaveFunc != nil {
		return m.SaveFunc(ctx, snap)
	}
	return nil
}

// Load calls LoadFunc, or reports ErrNotFound.
func (m *Store) Load(ctx context.Context) (storage.Snapshot, error) {
	atomic.AddInt64(&m.loadCalls, 1)
	if m.LoadFunc != nil {
		return m.LoadFunc(ctx)
	}
	return storage.Snapshot{}, storage.ErrNotFound
}

func (m *Store) Name() string {
	if m.NameFunc != nil {
		return m.NameFunc()
	}
	return "mock"
}

func (m *Store) Close() error {
	atomic.AddInt64(&m.closeCalls, 1)
	if m.CloseFunc != nil {
		return m.CloseFunc()
	}
	return nil
}

// SaveCalls returns the number of times Save was called.
func (m *Store) SaveCalls() int64 {
	return atomic.LoadInt64(&m.saveCalls)
}

// LoadCalls returns the number of times Load was called.
func (m *Store) LoadCalls() int64 {
	return atomic.LoadInt64(&m.loadCalls)
}

// CloseCalls returns the number of times Close was called.
func (m *Store) CloseCalls() int64 {
	return atomic.LoadInt64(&m.closeCalls)
}

// Reset zeroes the call counters.
func (m *Store) Reset() {
	atomic.StoreInt64(&m.saveCalls, 0)
	atomic.StoreInt64(&m.loadCalls, 0)
	atomic.StoreInt64(&m.closeCalls, 0)
}
