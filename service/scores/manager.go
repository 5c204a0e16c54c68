package scores

import "sync"

// Manager accumulates raw score contributions for one round. Workers add
// values concurrently as they finish tasks; contributions are additive, so
// the totals do not depend on completion order. A manager is round-scoped:
// the orchestrator creates one per round and flushes it into the Tracker
// once the round closes.
type Manager struct {
	mu     sync.Mutex
	totals map[string]float64
	counts map[string]int
}

// NewManager creates an empty score manager.
func NewManager() *Manager {
	return &Manager{
		totals: make(map[string]float64),
		counts: make(map[string]int),
	}
}

// Add accumulates one contribution for the named score.
func (m *Manager) Add(name string, value float64) {
	m.mu.Lock()
	m.totals[name] += value
	m.counts[name]++
	m.mu.Unlock()
}

// Value returns the accumulated total for the named score.
func (m *Manager) Value(name string) float64 {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.totals[name]
}

// Snapshot returns a copy of all accumulated totals.
func (m *Manager) Snapshot() map[string]float64 {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := make(map[string]float64, len(m.totals))
	for k, v := range m.totals {
		out[k] = v
	}
	return out
}

// Clear drops all accumulated values.
func (m *Manager) Clear() {
	m.mu.Lock()
	m.totals = make(map[string]float64)
	m.counts = make(map[string]int)
	m.mu.Unlock()
}
