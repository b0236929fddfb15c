package domain

import "github.com/google/uuid"

// Headers attached by the dispatch layer when a message is moved to the
// error queue.
const (
	HeaderErrorDetails = "dispatch-error-details"
	HeaderSourceQueue  = "dispatch-source-queue"
)

// Message is one in-flight message instance. The ID names the delivery for
// error tracking; a redelivered message keeps its ID so its failure history
// accumulates on one record.
type Message struct {
	ID      string
	Headers map[string]string
	Body    []byte
}

// NewMessage creates a message with a fresh unique identifier.
func NewMessage(body []byte) *Message {
	return &Message{
		ID:      uuid.NewString(),
		Headers: make(map[string]string),
		Body:    body,
	}
}
