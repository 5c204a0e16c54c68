package cache

import (
	"context"

	"github.com/viant/phifit/service/dao/store"
)

// Entry is the cached theta output of one processed batch: per-document
// topic distributions keyed by document id.
type Entry struct {
	BatchID string
	Theta   map[string][]float64
}

// Manager is the theta side channel populated by workers while a round is in
// flight and consumed by the caller after the round closes. It is safe for
// concurrent use.
type Manager struct {
	store *store.MemoryStore[string, Entry]
}

// New creates an empty cache manager.
func New() *Manager {
	return &Manager{
		store: store.NewMemoryStore[string, Entry](func(e *Entry) string { return e.BatchID }),
	}
}

// Put stores the theta rows of one batch, overwriting any previous entry.
func (m *Manager) Put(ctx context.Context, entry *Entry) error {
	return m.store.Save(ctx, entry)
}

// Get returns the cached entry for a batch, or nil.
func (m *Manager) Get(ctx context.Context, batchID string) (*Entry, error) {
	return m.store.Load(ctx, batchID)
}

// List returns all cached entries.
func (m *Manager) List(ctx context.Context) ([]*Entry, error) {
	return m.store.List(ctx)
}

// Clear drops every cached entry.
func (m *Manager) Clear() {
	m.store.Clear()
}

// Size returns the number of cached batches.
func (m *Manager) Size() int {
	return m.store.Size()
}
