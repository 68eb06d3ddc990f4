package queue

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/streadway/amqp"

	"internship-portal/internal/shared/telemetry"
)

const (
	DefaultAMQPQueue = "resume_analysis"
	amqpConsumerTag  = "resume-analysis-worker"
)

// amqpChannel is the part of *amqp.Channel the client relies on.
type amqpChannel interface {
	QueueDeclare(name string, durable, autoDelete, exclusive, noWait bool, args amqp.Table) (amqp.Queue, error)
	Publish(exchange, key string, mandatory, immediate bool, msg amqp.Publishing) error
	Qos(prefetchCount, prefetchSize int, global bool) error
	Consume(queue, consumer string, autoAck, exclusive, noLocal, noWait bool, args amqp.Table) (<-chan amqp.Delivery, error)
	Cancel(consumer string, noWait bool) error
	Close() error
}

// AMQPClient publishes to and consumes from a durable RabbitMQ queue.
type AMQPClient struct {
	queue   string
	open    func() (amqpChannel, error)
	closeFn func() error

	mu  sync.Mutex
	pub amqpChannel
}

// NewAMQPClient dials url and declares queueName as a durable queue.
func NewAMQPClient(url, queueName string) (*AMQPClient, error) {
	if strings.TrimSpace(url) == "" {
		return nil, fmt.Errorf("AMQP_URL is required")
	}
	conn, err := amqp.Dial(url)
	if err != nil {
		return nil, fmt.Errorf("dial amqp: %w", err)
	}
	open := func() (amqpChannel, error) {
		ch, err := conn.Channel()
		if err != nil {
			return nil, err
		}
		return ch, nil
	}
	client, err := newAMQPClient(queueName, open, conn.Close)
	if err != nil {
		conn.Close()
		return nil, err
	}
	return client, nil
}

func newAMQPClient(queueName string, open func() (amqpChannel, error), closeFn func() error) (*AMQPClient, error) {
	if strings.TrimSpace(queueName) == "" {
		queueName = DefaultAMQPQueue
	}
	c := &AMQPClient{queue: queueName, open: open, closeFn: closeFn}
	pub, err := c.channel()
	if err != nil {
		return nil, err
	}
	c.pub = pub
	return c, nil
}

func (c *AMQPClient) channel() (amqpChannel, error) {
	ch, err := c.open()
	if err != nil {
		return nil, fmt.Errorf("open amqp channel: %w", err)
	}
	if _, err := ch.QueueDeclare(c.queue, true, false, false, false, nil); err != nil {
		ch.Close()
		return nil, fmt.Errorf("declare queue %s: %w", c.queue, err)
	}
	return ch, nil
}

// Send publishes msg as a persistent JSON message on the default exchange.
func (c *AMQPClient) Send(ctx context.Context, msg Message) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	payload, err := EncodeMessage(msg)
	if err != nil {
		return fmt.Errorf("encode amqp message: %w", err)
	}

	// channels are not safe for concurrent publishes
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.pub == nil {
		return ErrClosed
	}
	err = c.pub.Publish("", c.queue, false, false, amqp.Publishing{
		ContentType:  "application/json",
		DeliveryMode: amqp.Persistent,
		MessageId:    msg.AnalysisID,
		Timestamp:    time.Now().UTC(),
		Body:         payload,
	})
	if err != nil {
		return fmt.Errorf("amqp publish: %w", err)
	}
	return nil
}

// Consume delivers messages to handler with up to concurrency in flight, acking on
// success or ErrDrop and requeueing otherwise. It returns nil once ctx is done and
// in-flight handlers have finished, or an error if the broker closes the channel.
func (c *AMQPClient) Consume(ctx context.Context, concurrency int, handler Handler) error {
	if concurrency < 1 {
		concurrency = 1
	}
	ch, err := c.channel()
	if err != nil {
		return err
	}
	defer ch.Close()

	if err := ch.Qos(concurrency, 0, false); err != nil {
		return fmt.Errorf("amqp qos: %w", err)
	}
	deliveries, err := ch.Consume(c.queue, amqpConsumerTag, false, false, false, false, nil)
	if err != nil {
		return fmt.Errorf("amqp consume: %w", err)
	}

	jobCtx := context.WithoutCancel(ctx)
	sem := make(chan struct{}, concurrency)
	var wg sync.WaitGroup
	defer wg.Wait()

	for {
		select {
		case <-ctx.Done():
			_ = ch.Cancel(amqpConsumerTag, false)
			return nil
		case d, ok := <-deliveries:
			if !ok {
				if ctx.Err() != nil {
					return nil
				}
				return errors.New("amqp delivery channel closed")
			}
			select {
			case sem <- struct{}{}:
			case <-ctx.Done():
				_ = d.Nack(false, true)
				_ = ch.Cancel(amqpConsumerTag, false)
				return nil
			}
			wg.Add(1)
			go func(d amqp.Delivery) {
				defer wg.Done()
				defer func() { <-sem }()
				settle(d, handler(jobCtx, d.Body))
			}(d)
		}
	}
}

func settle(d amqp.Delivery, err error) {
	var ackErr error
	if err == nil || errors.Is(err, ErrDrop) {
		ackErr = d.Ack(false)
	} else {
		ackErr = d.Nack(false, true)
	}
	if ackErr != nil {
		telemetry.Error("queue.amqp.settle_failed", map[string]any{
			"message_id":   d.MessageId,
			"delivery_tag": d.DeliveryTag,
			"error":        ackErr.Error(),
		})
	}
}

// Close releases the publishing channel and the connection.
func (c *AMQPClient) Close() error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.pub != nil {
		_ = c.pub.Close()
		c.pub = nil
	}
	if c.closeFn != nil {
		return c.closeFn()
	}
	return nil
}

var _ Client = (*AMQPClient)(nil)
