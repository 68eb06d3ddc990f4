package queue

import (
	"context"
	"errors"
	"fmt"
	"sync"

	"internship-portal/internal/shared/telemetry"
)

const defaultMemoryBuffer = 256

// MemoryQueue hands messages to a consumer running in the same process.
// Messages are lost when the process exits; the stale-pending sweeper covers that.
// The channel is never closed, so a Send racing Close cannot panic.
type MemoryQueue struct {
	ch        chan []byte
	done      chan struct{}
	closeOnce sync.Once
}

// NewMemoryQueue returns a queue holding up to buffer undelivered messages.
func NewMemoryQueue(buffer int) *MemoryQueue {
	if buffer <= 0 {
		buffer = defaultMemoryBuffer
	}
	return &MemoryQueue{ch: make(chan []byte, buffer), done: make(chan struct{})}
}

// Send enqueues msg, blocking while the buffer is full. A blocked Send returns
// ErrClosed as soon as the queue is closed.
func (q *MemoryQueue) Send(ctx context.Context, msg Message) error {
	payload, err := EncodeMessage(msg)
	if err != nil {
		return fmt.Errorf("encode memory message: %w", err)
	}
	select {
	case <-q.done:
		return ErrClosed
	default:
	}
	select {
	case q.ch <- payload:
		return nil
	case <-q.done:
		return ErrClosed
	case <-ctx.Done():
		return ctx.Err()
	}
}

// Close stops accepting messages. Run drains what is already buffered.
func (q *MemoryQueue) Close() {
	q.closeOnce.Do(func() { close(q.done) })
}

// Run delivers messages to handler using up to concurrency goroutines until ctx
// is done or the queue is closed and drained. It waits for in-flight handlers.
func (q *MemoryQueue) Run(ctx context.Context, concurrency int, handler Handler) {
	if concurrency < 1 {
		concurrency = 1
	}
	// in-flight jobs outlive ctx; the caller bounds how long it waits for them
	jobCtx := context.WithoutCancel(ctx)
	sem := make(chan struct{}, concurrency)
	var wg sync.WaitGroup
	defer wg.Wait()

	dispatch := func(body []byte) bool {
		select {
		case sem <- struct{}{}:
		case <-ctx.Done():
			return false
		}
		wg.Add(1)
		go func() {
			defer wg.Done()
			defer func() { <-sem }()
			if err := handler(jobCtx, body); err != nil && !errors.Is(err, ErrDrop) {
				telemetry.Warn("queue.memory.handler_failed", map[string]any{"error": err.Error()})
			}
		}()
		return true
	}

	for {
		select {
		case <-ctx.Done():
			return
		case body := <-q.ch:
			if !dispatch(body) {
				return
			}
		case <-q.done:
			for {
				select {
				case body := <-q.ch:
					if !dispatch(body) {
						return
					}
				default:
					return
				}
			}
		}
	}
}

var _ Client = (*MemoryQueue)(nil)
