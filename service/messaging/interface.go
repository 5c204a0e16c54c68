package messaging

import (
	"context"
)

// Queue represents an abstract FIFO queue for any payload type. Submissions
// never block the producer; consumption blocks until an item is available or
// the context ends. Every published item is delivered to exactly one
// consumer and no item is ever dropped.
type Queue[T any] interface {
	// Publish enqueues a new item.
	Publish(ctx context.Context, t *T) error

	// Consume dequeues a single item, blocking until one is available.
	Consume(ctx context.Context) (*T, error)
}
