package queue

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"
)

func TestMemoryQueueDeliversAll(t *testing.T) {
	q := NewMemoryQueue(8)
	ctx := context.Background()
	for _, id := range []string{"a1", "a2", "a3"} {
		if err := q.Send(ctx, Message{AnalysisID: id}); err != nil {
			t.Fatalf("send %s: %v", id, err)
		}
	}
	q.Close()

	var mu sync.Mutex
	seen := map[string]bool{}
	q.Run(ctx, 2, func(ctx context.Context, body []byte) error {
		msg, err := DecodeMessage(body)
		if err != nil {
			return err
		}
		mu.Lock()
		seen[msg.AnalysisID] = true
		mu.Unlock()
		return nil
	})

	if len(seen) != 3 || !seen["a1"] || !seen["a2"] || !seen["a3"] {
		t.Fatalf("unexpected deliveries %v", seen)
	}
}

func TestMemoryQueueSendAfterClose(t *testing.T) {
	q := NewMemoryQueue(1)
	q.Close()
	q.Close()
	if err := q.Send(context.Background(), Message{AnalysisID: "a1"}); !errors.Is(err, ErrClosed) {
		t.Fatalf("expected ErrClosed, got %v", err)
	}
}

func TestMemoryQueueSendHonoursContextWhenFull(t *testing.T) {
	q := NewMemoryQueue(1)
	if err := q.Send(context.Background(), Message{AnalysisID: "a1"}); err != nil {
		t.Fatalf("first send: %v", err)
	}
	ctx, cancel := context.WithTimeout(context.Background(), 20*time.Millisecond)
	defer cancel()
	if err := q.Send(ctx, Message{AnalysisID: "a2"}); !errors.Is(err, context.DeadlineExceeded) {
		t.Fatalf("expected deadline exceeded, got %v", err)
	}
}

func TestMemoryQueueRunStopsOnCancel(t *testing.T) {
	q := NewMemoryQueue(1)
	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan struct{})
	go func() {
		q.Run(ctx, 1, func(context.Context, []byte) error { return nil })
		close(done)
	}()
	cancel()
	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatalf("run did not stop after cancel")
	}
}

func TestMemoryQueueCloseReleasesBlockedSend(t *testing.T) {
	q := NewMemoryQueue(1)
	if err := q.Send(context.Background(), Message{AnalysisID: "a1"}); err != nil {
		t.Fatalf("first send: %v", err)
	}

	sendErr := make(chan error, 1)
	go func() { sendErr <- q.Send(context.Background(), Message{AnalysisID: "a2"}) }()
	time.Sleep(10 * time.Millisecond)

	closed := make(chan struct{})
	go func() {
		q.Close()
		close(closed)
	}()
	select {
	case <-closed:
	case <-time.After(time.Second):
		t.Fatalf("close blocked behind a pending send")
	}
	select {
	case err := <-sendErr:
		if !errors.Is(err, ErrClosed) {
			t.Fatalf("blocked send err = %v, want ErrClosed", err)
		}
	case <-time.After(time.Second):
		t.Fatalf("blocked send never returned")
	}

	var got []string
	q.Run(context.Background(), 1, func(_ context.Context, body []byte) error {
		msg, err := DecodeMessage(body)
		if err != nil {
			return err
		}
		got = append(got, msg.AnalysisID)
		return nil
	})
	if len(got) != 1 || got[0] != "a1" {
		t.Fatalf("drained %v, want [a1]", got)
	}
}
