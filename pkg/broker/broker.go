// Package broker wraps a RabbitMQ connection for publishing JSON messages to
// durable queues and consuming them with manual acknowledgement.
package broker

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	amqp "github.com/rabbitmq/amqp091-go"
)

// ErrMalformed marks a message that can never be handled. Such deliveries are
// acknowledged and dropped instead of being dead-lettered.
var ErrMalformed = errors.New("broker: malformed message")

// Publisher sends a message body to a queue.
type Publisher interface {
	Publish(ctx context.Context, queue string, body []byte) error
}

// Handler processes one message body.
type Handler func(ctx context.Context, body []byte) error

// Config holds connection settings.
type Config struct {
	URL          string
	Prefetch     int
	DialAttempts int
}

// Broker is a RabbitMQ connection with a shared publishing channel.
type Broker struct {
	conn     *amqp.Connection
	mu       sync.Mutex
	pubCh    *amqp.Channel
	declared map[string]bool
	prefetch int
	logger   *slog.Logger
}

// Dial connects to RabbitMQ, retrying with a linear backoff while the broker
// is still starting.
func Dial(ctx context.Context, cfg Config, logger *slog.Logger) (*Broker, error) {
	attempts := max(cfg.DialAttempts, 1)

	var conn *amqp.Connection
	var err error
	for i := 0; i < attempts; i++ {
		conn, err = amqp.Dial(cfg.URL)
		if err == nil {
			break
		}
		logger.Warn("rabbitmq dial failed",
			slog.Int("attempt", i+1),
			slog.Any("error", err),
		)
		select {
		case <-ctx.Done():
			return nil, ctx.Err()
		case <-time.After(time.Second * time.Duration(1+i)):
		}
	}
	if err != nil {
		return nil, fmt.Errorf("rabbitmq dial: %w", err)
	}

	ch, err := conn.Channel()
	if err != nil {
		conn.Close()
		return nil, fmt.Errorf("rabbitmq channel: %w", err)
	}

	return &Broker{
		conn:     conn,
		pubCh:    ch,
		declared: make(map[string]bool),
		prefetch: max(cfg.Prefetch, 1),
		logger:   logger,
	}, nil
}

// Publish sends a persistent JSON message to a durable queue.
func (b *Broker) Publish(ctx context.Context, queue string, body []byte) error {
	b.mu.Lock()
	defer b.mu.Unlock()

	if !b.declared[queue] {
		if _, err := b.pubCh.QueueDeclare(queue, true, false, false, false, nil); err != nil {
			return fmt.Errorf("rabbitmq queue declare %s: %w", queue, err)
		}
		b.declared[queue] = true
	}

	err := b.pubCh.PublishWithContext(ctx, "", queue, false, false, amqp.Publishing{
		ContentType:  "application/json",
		DeliveryMode: amqp.Persistent,
		Timestamp:    time.Now().UTC(),
		Body:         body,
	})
	if err != nil {
		return fmt.Errorf("rabbitmq publish %s: %w", queue, err)
	}
	return nil
}

// Consume delivers messages from queue to h until ctx is cancelled. Each
// consumer gets its own channel.
func (b *Broker) Consume(ctx context.Context, queue, tag string, h Handler) error {
	ch, err := b.conn.Channel()
	if err != nil {
		return fmt.Errorf("rabbitmq channel: %w", err)
	}
	defer ch.Close()

	if err := ch.Qos(b.prefetch, 0, false); err != nil {
		return fmt.Errorf("rabbitmq qos setup failed: %w", err)
	}
	if _, err := ch.QueueDeclare(queue, true, false, false, false, nil); err != nil {
		return fmt.Errorf("rabbitmq queue declare %s: %w", queue, err)
	}

	deliveries, err := ch.Consume(queue, tag, false, false, false, false, nil)
	if err != nil {
		return fmt.Errorf("rabbitmq consume setup failed: %w", err)
	}

	b.logger.Info("consuming queue", slog.String("queue", queue), slog.String("tag", tag))
	for {
		select {
		case <-ctx.Done():
			if err := ch.Cancel(tag, false); err != nil {
				b.logger.Warn("consumer cancel failed", slog.String("queue", queue), slog.Any("error", err))
			}
			return nil
		case d, ok := <-deliveries:
			if !ok {
				if ctx.Err() != nil {
					return nil
				}
				return errors.New("rabbitmq deliveries channel closed unexpectedly")
			}
			b.settle(queue, d, h(ctx, d.Body))
		}
	}
}

func (b *Broker) settle(queue string, d amqp.Delivery, err error) {
	if Acknowledge(err) {
		if err != nil {
			b.logger.Warn("dropping malformed message",
				slog.String("queue", queue),
				slog.Any("error", err),
			)
		}
		if ackErr := d.Ack(false); ackErr != nil {
			b.logger.Error("ack failed", slog.Uint64("delivery_tag", d.DeliveryTag), slog.Any("error", ackErr))
		}
		return
	}

	b.logger.Error("message handling failed",
		slog.String("queue", queue),
		slog.Any("error", err),
	)
	if nackErr := d.Nack(false, false); nackErr != nil {
		b.logger.Error("nack failed", slog.Uint64("delivery_tag", d.DeliveryTag), slog.Any("error", nackErr))
	}
}

// Acknowledge reports whether a delivery whose handler returned err should be
// acked. Successes and malformed messages are acked; anything else is nacked
// without requeue.
func Acknowledge(err error) bool {
	return err == nil || errors.Is(err, ErrMalformed)
}

// Close closes the publishing channel and the connection.
func (b *Broker) Close() error {
	b.mu.Lock()
	defer b.mu.Unlock()

	if err := b.pubCh.Close(); err != nil && !errors.Is(err, amqp.ErrClosed) {
		b.logger.Warn("rabbitmq channel close failed", slog.Any("error", err))
	}
	return b.conn.Close()
}
