package round

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"
)

// Round states, in lifecycle order. Closed is the only state from which the
// orchestrator may read round outputs.
const (
	StateSubmitted         = "submitted"
	StateInFlight          = "inFlight"
	StatePartiallyComplete = "partiallyComplete"
	StateClosed            = "closed"
)

// DefaultPollInterval bounds how long Wait sleeps between completion checks.
// Round durations dwarf it, so polling costs nothing observable.
const DefaultPollInterval = 20 * time.Millisecond

// Round is a rendez-vous for one set of processing tasks submitted together.
// The orchestrator registers every task id strictly before the task becomes
// visible to workers; whichever worker executes a task reports it done
// exactly once, after all of its side effects are visible.
type Round struct {
	ID         string
	Generation int

	poll time.Duration

	mu       sync.Mutex
	pending  map[string]bool
	expected int
	failures []error
}

// New creates an empty round.
func New(id string, generation int) *Round {
	return &Round{
		ID:         id,
		Generation: generation,
		poll:       DefaultPollInterval,
		pending:    make(map[string]bool),
	}
}

// WithPollInterval overrides the completion poll interval.
func (r *Round) WithPollInterval(interval time.Duration) *Round {
	if interval > 0 {
		r.poll = interval
	}
	return r
}

// Add registers one expected completion. Must happen before the task is
// enqueued, otherwise a fast worker could report a task the round has never
// heard of.
func (r *Round) Add(taskID string) {
	r.mu.Lock()
	r.pending[taskID] = true
	r.expected++
	r.mu.Unlock()
}

// MarkDone registers the completion of a task, recording err when the task
// failed. Unknown or already-completed ids are ignored.
func (r *Round) MarkDone(taskID string, err error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if !r.pending[taskID] {
		return
	}
	delete(r.pending, taskID)
	if err != nil {
		r.failures = append(r.failures, fmt.Errorf("task %v: %w", taskID, err))
	}
}

// Done reports whether every registered task has completed.
func (r *Round) Done() bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.pending) == 0
}

// Expected returns how many tasks were registered on this round.
func (r *Round) Expected() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.expected
}

// State derives the lifecycle state from the completion counters.
func (r *Round) State() string {
	r.mu.Lock()
	defer r.mu.Unlock()
	switch {
	case r.expected == 0:
		return StateSubmitted
	case len(r.pending) == 0:
		return StateClosed
	case len(r.pending) == r.expected:
		return StateInFlight
	default:
		return StatePartiallyComplete
	}
}

// Err aggregates task failures recorded on this round, or nil when every
// task succeeded.
func (r *Round) Err() error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if len(r.failures) == 0 {
		return nil
	}
	return fmt.Errorf("round %v degraded (%d of %d tasks failed): %w",
		r.ID, len(r.failures), r.expected, errors.Join(r.failures...))
}

// Wait blocks until every registered task has reported completion. It is
// idempotent: waiting on an already closed round returns immediately. The
// round itself always runs to completion once submitted; cancelling the
// context abandons the wait, not the work.
func (r *Round) Wait(ctx context.Context) error {
	if r.Done() {
		return nil
	}
	ticker := time.NewTicker(r.poll)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-ticker.C:
			if r.Done() {
				return nil
			}
		}
	}
}
