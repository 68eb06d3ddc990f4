package queue

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/streadway/amqp"
)

type fakeChannel struct {
	mu         sync.Mutex
	declared   []string
	published  []amqp.Publishing
	keys       []string
	deliveries chan amqp.Delivery
	canceled   bool
	closed     bool
}

func (f *fakeChannel) QueueDeclare(name string, durable, autoDelete, exclusive, noWait bool, args amqp.Table) (amqp.Queue, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.declared = append(f.declared, name)
	return amqp.Queue{Name: name}, nil
}

func (f *fakeChannel) Publish(exchange, key string, mandatory, immediate bool, msg amqp.Publishing) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.keys = append(f.keys, key)
	f.published = append(f.published, msg)
	return nil
}

func (f *fakeChannel) Qos(prefetchCount, prefetchSize int, global bool) error { return nil }

func (f *fakeChannel) Consume(queue, consumer string, autoAck, exclusive, noLocal, noWait bool, args amqp.Table) (<-chan amqp.Delivery, error) {
	return f.deliveries, nil
}

func (f *fakeChannel) Cancel(consumer string, noWait bool) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.canceled = true
	return nil
}

func (f *fakeChannel) Close() error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.closed = true
	return nil
}

type fakeAcker struct {
	mu     sync.Mutex
	acked  []uint64
	nacked []uint64
}

func (a *fakeAcker) Ack(tag uint64, multiple bool) error {
	a.mu.Lock()
	defer a.mu.Unlock()
	a.acked = append(a.acked, tag)
	return nil
}

func (a *fakeAcker) Nack(tag uint64, multiple, requeue bool) error {
	a.mu.Lock()
	defer a.mu.Unlock()
	a.nacked = append(a.nacked, tag)
	return nil
}

func (a *fakeAcker) Reject(tag uint64, requeue bool) error { return nil }

func newFakeAMQP(t *testing.T, ch *fakeChannel) *AMQPClient {
	t.Helper()
	client, err := newAMQPClient("", func() (amqpChannel, error) { return ch, nil }, nil)
	if err != nil {
		t.Fatalf("new client: %v", err)
	}
	return client
}

func TestAMQPSendPublishesPersistentJSON(t *testing.T) {
	ch := &fakeChannel{}
	client := newFakeAMQP(t, ch)

	if err := client.Send(context.Background(), Message{AnalysisID: "a1", Version: 1}); err != nil {
		t.Fatalf("send: %v", err)
	}
	if len(ch.declared) != 1 || ch.declared[0] != DefaultAMQPQueue {
		t.Fatalf("expected default queue declared, got %v", ch.declared)
	}
	if len(ch.published) != 1 {
		t.Fatalf("expected one publish, got %d", len(ch.published))
	}
	pub := ch.published[0]
	if ch.keys[0] != DefaultAMQPQueue || pub.DeliveryMode != amqp.Persistent || pub.ContentType != "application/json" {
		t.Fatalf("unexpected publishing %+v key=%s", pub, ch.keys[0])
	}
	if got, err := DecodeMessage(pub.Body); err != nil || got.AnalysisID != "a1" {
		t.Fatalf("unexpected body %s", pub.Body)
	}
}

func TestAMQPSendAfterClose(t *testing.T) {
	ch := &fakeChannel{}
	client := newFakeAMQP(t, ch)
	if err := client.Close(); err != nil {
		t.Fatalf("close: %v", err)
	}
	if !ch.closed {
		t.Fatalf("expected publishing channel closed")
	}
	if err := client.Send(context.Background(), Message{AnalysisID: "a1"}); !errors.Is(err, ErrClosed) {
		t.Fatalf("expected ErrClosed, got %v", err)
	}
}

func TestAMQPConsumeSettlesByOutcome(t *testing.T) {
	ch := &fakeChannel{deliveries: make(chan amqp.Delivery, 3)}
	client := newFakeAMQP(t, ch)
	acker := &fakeAcker{}
	ch.deliveries <- amqp.Delivery{Acknowledger: acker, DeliveryTag: 1, Body: []byte("ok")}
	ch.deliveries <- amqp.Delivery{Acknowledger: acker, DeliveryTag: 2, Body: []byte("drop")}
	ch.deliveries <- amqp.Delivery{Acknowledger: acker, DeliveryTag: 3, Body: []byte("retry")}
	close(ch.deliveries)

	err := client.Consume(context.Background(), 1, func(ctx context.Context, body []byte) error {
		switch string(body) {
		case "drop":
			return ErrDrop
		case "retry":
			return errors.New("db down")
		}
		return nil
	})
	if err == nil {
		t.Fatalf("expected error when the broker closes deliveries")
	}
	if len(acker.acked) != 2 || len(acker.nacked) != 1 || acker.nacked[0] != 3 {
		t.Fatalf("unexpected settle acked=%v nacked=%v", acker.acked, acker.nacked)
	}
}

func TestAMQPConsumeStopsOnCancel(t *testing.T) {
	ch := &fakeChannel{deliveries: make(chan amqp.Delivery)}
	client := newFakeAMQP(t, ch)
	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() {
		done <- client.Consume(ctx, 2, func(context.Context, []byte) error { return nil })
	}()
	cancel()
	select {
	case err := <-done:
		if err != nil {
			t.Fatalf("expected nil on cancel, got %v", err)
		}
	case <-time.After(time.Second):
		t.Fatalf("consume did not stop")
	}
	ch.mu.Lock()
	defer ch.mu.Unlock()
	if !ch.canceled {
		t.Fatalf("expected consumer cancel")
	}
}
