package round

import "sync"

// Store is an in-memory index of in-flight rounds. The pipelined algorithm
// keeps more than one round alive at a time; the store lets it look waiting
// rounds up by id and drop them once consumed.
type Store struct {
	mu     sync.RWMutex
	rounds map[string]*Round
}

// NewStore creates an empty store.
func NewStore() *Store {
	return &Store{rounds: make(map[string]*Round)}
}

// Add registers a round. If the id already exists the existing round is
// returned unchanged.
func (s *Store) Add(r *Round) *Round {
	s.mu.Lock()
	defer s.mu.Unlock()
	if existing, ok := s.rounds[r.ID]; ok {
		return existing
	}
	s.rounds[r.ID] = r
	return r
}

// Get returns the round registered under id or nil.
func (s *Store) Get(id string) *Round {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.rounds[id]
}

// Delete removes a round.
func (s *Store) Delete(id string) {
	s.mu.Lock()
	delete(s.rounds, id)
	s.mu.Unlock()
}

// Size returns the number of tracked rounds.
func (s *Store) Size() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.rounds)
}
