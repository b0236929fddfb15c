package transport

import (
	"context"
	"fmt"

	"github.com/vietddude/dispatch/internal/core/domain"
)

// Queue is a named, bounded, in-memory message queue. It is the in-process
// stand-in for the bus transport; the dispatcher only sees Send/Receive.
type Queue struct {
	name string
	ch   chan *domain.Message
}

// NewQueue creates a queue with the given address and capacity.
func NewQueue(name string, capacity int) (*Queue, error) {
	if name == "" {
		return nil, fmt.Errorf("queue name must not be empty")
	}
	if capacity <= 0 {
		return nil, fmt.Errorf("queue capacity must be positive, got %d", capacity)
	}
	return &Queue{name: name, ch: make(chan *domain.Message, capacity)}, nil
}

// Name returns the queue address.
func (q *Queue) Name() string {
	return q.name
}

// Send enqueues the message, blocking while the queue is full.
func (q *Queue) Send(ctx context.Context, msg *domain.Message) error {
	select {
	case q.ch <- msg:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

// Receive dequeues the next message, blocking while the queue is empty.
func (q *Queue) Receive(ctx context.Context) (*domain.Message, error) {
	select {
	case msg := <-q.ch:
		return msg, nil
	case <-ctx.Done():
		return nil, ctx.Err()
	}
}

// Len returns the current queue depth.
func (q *Queue) Len() int {
	return len(q.ch)
}
