package messaging

import (
	"context"
)

// Broker is the task transport. Enqueued payloads are delivered
// at-least-once to exactly one consumer of the queue.
type Broker interface {
	Enqueue(ctx context.Context, queue string, payload interface{}) error
	Consume(ctx context.Context, queue string) (<-chan []byte, error)
	Close() error
}
