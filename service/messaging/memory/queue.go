package memory

import (
	"context"
	"sync"
	"time"

	"github.com/viant/phifit/service/messaging"
)

// Config for memory queue implementation.
type Config struct {
	// PollInterval bounds how long an idle consumer sleeps before rechecking
	// the queue when it missed a wake-up signal.
	PollInterval time.Duration
}

// DefaultConfig returns a standard configuration for the memory queue.
func DefaultConfig() Config {
	return Config{
		PollInterval: 20 * time.Millisecond,
	}
}

// Queue implements an unbounded in-memory messaging.Queue. Items are kept in
// a mutex-guarded slice so Publish is bounded only by memory, and consumers
// are woken through a non-blocking signal channel with a short poll as the
// fallback.
type Queue[T any] struct {
	config Config
	mu     sync.Mutex
	items  []*T
	signal chan struct{}
}

// NewQueue creates a new in-memory queue.
func NewQueue[T any](config Config) *Queue[T] {
	if config.PollInterval <= 0 {
		config.PollInterval = DefaultConfig().PollInterval
	}
	return &Queue[T]{
		config: config,
		signal: make(chan struct{}, 1),
	}
}

// Publish adds a new item to the queue without blocking the producer.
func (q *Queue[T]) Publish(ctx context.Context, t *T) error {
	select {
	case <-ctx.Done():
		return ctx.Err()
	default:
	}
	q.mu.Lock()
	q.items = append(q.items, t)
	q.mu.Unlock()

	select {
	case q.signal <- struct{}{}:
	default:
	}
	return nil
}

// Consume retrieves the oldest item, blocking until one is available or the
// context ends. Concurrent consumers each receive a distinct item in FIFO
// submission order.
func (q *Queue[T]) Consume(ctx context.Context) (*T, error) {
	ticker := time.NewTicker(q.config.PollInterval)
	defer ticker.Stop()
	for {
		if item := q.pop(); item != nil {
			return item, nil
		}
		select {
		case <-ctx.Done():
			return nil, ctx.Err()
		case <-q.signal:
		case <-ticker.C:
		}
	}
}

// Size returns the current number of queued items.
func (q *Queue[T]) Size() int {
	q.mu.Lock()
	defer q.mu.Unlock()
	return len(q.items)
}

func (q *Queue[T]) pop() *T {
	q.mu.Lock()
	defer q.mu.Unlock()
	if len(q.items) == 0 {
		return nil
	}
	item := q.items[0]
	q.items = q.items[1:]
	return item
}

// ensure Queue implements messaging.Queue interface
var _ messaging.Queue[any] = (*Queue[any])(nil)
