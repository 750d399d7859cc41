package persist

import (
	"context"
	"sync"

	"github.com/jonathan/procurement-watch/internal/store"
)

// MemoryStore keeps the encoded snapshot in memory
type MemoryStore struct {
	mu    sync.Mutex
	data  []byte
	saves int
}

// NewMemoryStore creates an empty in-memory persister
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{}
}

// Load decodes the last saved snapshot
func (m *MemoryStore) Load(ctx context.Context) (*store.Store, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.data == nil {
		return nil, ErrNotFound
	}
	return decode(m.Location(), m.data)
}

// Save encodes the snapshot so later mutations of s are not visible
func (m *MemoryStore) Save(ctx context.Context, s *store.Store) error {
	data, err := encode(s)
	if err != nil {
		return err
	}

	m.mu.Lock()
	defer m.mu.Unlock()
	m.data = data
	m.saves++
	return nil
}

// Clear forgets the saved snapshot
func (m *MemoryStore) Clear(ctx context.Context) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.data = nil
	return nil
}

// Saves returns how many times Save succeeded
func (m *MemoryStore) Saves() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.saves
}

// Location returns "memory:"
func (m *MemoryStore) Location() string {
	return "memory:"
}

// Close is a no-op
func (m *MemoryStore) Close() error {
	return nil
}
