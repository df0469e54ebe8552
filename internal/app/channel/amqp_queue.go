package channel

import (
	"context"
	"fmt"
	"time"

	amqp "github.com/rabbitmq/amqp091-go"
	"go.uber.org/zap"
)

const (
	dialAttempts = 3
	dialBackoff  = 2 * time.Second
)

// deliveryGetter is the part of *amqp.Channel the queue needs.
type deliveryGetter interface {
	Get(queue string, autoAck bool) (amqp.Delivery, bool, error)
}

// AMQPQueue polls status messages from a durable RabbitMQ queue.
type AMQPQueue struct {
	ch     deliveryGetter
	closer func() error
	queue  string
	logger *zap.Logger
}

var _ Queue = (*AMQPQueue)(nil)

// DialAMQP connects, opens a channel and declares the queue.
func DialAMQP(url, queue string, logger *zap.Logger) (*AMQPQueue, error) {
	var (
		conn *amqp.Connection
		err  error
	)
	for i := 0; i < dialAttempts; i++ {
		conn, err = amqp.Dial(url)
		if err == nil {
			break
		}
		logger.Warn("amqp dial failed, retrying", zap.Int("attempt", i+1), zap.Error(err))
		time.Sleep(dialBackoff)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to connect to queue broker: %w", err)
	}

	ch, err := conn.Channel()
	if err != nil {
		conn.Close()
		return nil, fmt.Errorf("failed to open a channel: %w", err)
	}
	if _, err := ch.QueueDeclare(queue, true, false, false, false, nil); err != nil {
		conn.Close()
		return nil, fmt.Errorf("failed to declare queue %s: %w", queue, err)
	}

	q := newAMQPQueue(ch, queue, logger)
	q.closer = func() error {
		ch.Close()
		return conn.Close()
	}
	return q, nil
}

func newAMQPQueue(ch deliveryGetter, queue string, logger *zap.Logger) *AMQPQueue {
	return &AMQPQueue{ch: ch, queue: queue, logger: logger}
}

// Receive pulls up to max messages without acking them. Malformed deliveries are
// rejected without requeue.
func (q *AMQPQueue) Receive(ctx context.Context, max int) ([]Delivery, error) {
	out := make([]Delivery, 0, max)
	for len(out) < max {
		if err := ctx.Err(); err != nil {
			return out, err
		}
		d, ok, err := q.ch.Get(q.queue, false)
		if err != nil {
			return out, fmt.Errorf("get from %s: %w", q.queue, err)
		}
		if !ok {
			break
		}

		msg, err := decodeMessage(d.Body, d.MessageId)
		if err != nil {
			q.logger.Warn("dropping malformed status message",
				zap.String("message_id", d.MessageId), zap.Error(err))
			if nerr := d.Nack(false, false); nerr != nil {
				q.logger.Warn("nack failed", zap.Error(nerr))
			}
			continue
		}
		out = append(out, NewDelivery(msg,
			func() error { return d.Ack(false) },
			func() error { return d.Nack(false, true) },
		))
	}
	return out, nil
}

func (q *AMQPQueue) Close() error {
	if q.closer == nil {
		return nil
	}
	return q.closer()
}
