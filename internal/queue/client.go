package queue

import (
	"context"
	"errors"
)

// Client sends messages to a queue backend.
type Client interface {
	Send(ctx context.Context, msg Message) error
}

// Handler processes one delivered message body. A nil error acknowledges the
// message. Errors matching ErrDrop also acknowledge it because redelivery cannot
// help; any other error leaves the message for redelivery.
type Handler func(ctx context.Context, body []byte) error

// ErrDrop marks a message that should be removed from the queue without processing.
var ErrDrop = errors.New("drop message")

// ErrClosed is returned by Send after the backend has been shut down.
var ErrClosed = errors.New("queue closed")
