package scores

import (
	"sync"
	"time"

	"github.com/viant/phifit/internal/clock"
)

// Record is one score value observed at the end of a round.
type Record struct {
	Name  string
	Value float64
	Group int
	At    time.Time
}

// Tracker keeps the append-only history of score records across a fit run.
// Unlike the round-scoped Manager it survives rounds, so callers can inspect
// score trajectories after the call returns.
type Tracker struct {
	mu      sync.RWMutex
	records []Record
}

// NewTracker creates an empty tracker.
func NewTracker() *Tracker {
	return &Tracker{}
}

// Append stores one record, stamping it with the current time.
func (t *Tracker) Append(name string, value float64, group int) {
	t.mu.Lock()
	t.records = append(t.records, Record{Name: name, Value: value, Group: group, At: clock.Now()})
	t.mu.Unlock()
}

// List returns the recorded history in append order.
func (t *Tracker) List() []Record {
	t.mu.RLock()
	defer t.mu.RUnlock()
	return append([]Record(nil), t.records...)
}

// ListByName returns the history of a single score in append order.
func (t *Tracker) ListByName(name string) []Record {
	t.mu.RLock()
	defer t.mu.RUnlock()
	var out []Record
	for _, r := range t.records {
		if r.Name == name {
			out = append(out, r)
		}
	}
	return out
}

// Clear drops the recorded history.
func (t *Tracker) Clear() {
	t.mu.Lock()
	t.records = nil
	t.mu.Unlock()
}

// Size returns the number of recorded scores.
func (t *Tracker) Size() int {
	t.mu.RLock()
	defer t.mu.RUnlock()
	return len(t.records)
}
