// Package queue abstracts the transport that carries host notifications.
package queue

import "context"

type Enqueuer interface {
	// Enqueue publishes data under key. Messages sharing a key keep their
	// relative order.
	Enqueue(ctx context.Context, topic string, key, data []byte) error
	Close() error
}

// MessageHandler processes one message. A returned error is logged by the
// transport; the message is still acknowledged.
type MessageHandler func(ctx context.Context, data []byte) error

type Dequeuer interface {
	// Dequeue blocks, delivering messages to handler until ctx is done.
	Dequeue(ctx context.Context, topic string, handler MessageHandler) error
	Close() error
}
