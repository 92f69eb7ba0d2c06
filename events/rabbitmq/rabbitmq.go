// Package rabbitmq consumes write events from a RabbitMQ queue bound to a
// topic exchange.
package rabbitmq

import (
	"context"
	"fmt"
	"time"

	amqp "github.com/rabbitmq/amqp091-go"

	"github.com/ncobase/ohsmetrics/config"
	"github.com/ncobase/ohsmetrics/events"
	"github.com/ncobase/ohsmetrics/logging/logger"
)

const name = "rabbitmq"

func init() {
	events.Register(name, func(_ context.Context, cfg *config.Events) (events.Source, error) {
		if cfg.RabbitMQ == nil {
			return nil, fmt.Errorf("events: rabbitmq source is not configured")
		}
		conn, err := amqp.Dial(cfg.RabbitMQ.URL)
		if err != nil {
			return nil, fmt.Errorf("events: rabbitmq dial: %w", err)
		}
		return New(conn, cfg.RabbitMQ), nil
	})
}

// Source consumes one durable queue with manual acknowledgements.
type Source struct {
	conn *amqp.Connection
	cfg  config.RabbitMQ
}

// New creates a source over conn.
func New(conn *amqp.Connection, cfg *config.RabbitMQ) *Source {
	return &Source{conn: conn, cfg: *cfg}
}

func (s *Source) Name() string { return name }

func (s *Source) declare(ch *amqp.Channel) error {
	if err := ch.ExchangeDeclare(s.cfg.Exchange, "topic", true, false, false, false, nil); err != nil {
		return fmt.Errorf("failed to declare exchange: %w", err)
	}
	q, err := ch.QueueDeclare(s.cfg.Queue, true, false, false, false, nil)
	if err != nil {
		return fmt.Errorf("failed to declare queue: %w", err)
	}
	if err := ch.QueueBind(q.Name, s.cfg.RoutingKey, s.cfg.Exchange, false, nil); err != nil {
		return fmt.Errorf("failed to bind queue: %w", err)
	}
	return ch.Qos(16, 0, false)
}

// Consume implements events.Source.
func (s *Source) Consume(ctx context.Context, h events.Handler) error {
	ch, err := s.conn.Channel()
	if err != nil {
		return fmt.Errorf("failed to open channel: %w", err)
	}
	defer ch.Close()
	if err := s.declare(ch); err != nil {
		return err
	}

	deliveries, err := ch.ConsumeWithContext(ctx, s.cfg.Queue, "", false, false, false, false, nil)
	if err != nil {
		return fmt.Errorf("failed to register consumer: %w", err)
	}
	for {
		select {
		case <-ctx.Done():
			return nil
		case d, ok := <-deliveries:
			if !ok {
				return fmt.Errorf("events: rabbitmq deliveries closed")
			}
			handle(ctx, h, d)
		}
	}
}

// handle acks delivered events, rejects undecodable messages and requeues
// events the pool could not take.
func handle(ctx context.Context, h events.Handler, d amqp.Delivery) {
	ev, err := events.Decode(name, d.Body)
	if err != nil {
		logger.Warnf(ctx, "events: rejecting rabbitmq message %d: %v", d.DeliveryTag, err)
		if err := d.Reject(false); err != nil {
			logger.Errorf(ctx, "events: reject: %v", err)
		}
		return
	}
	if err := events.Deliver(ctx, h, ev); err != nil {
		logger.Warnf(ctx, "events: requeueing %s event: %v", ev.Type, err)
		if err := d.Nack(false, true); err != nil {
			logger.Errorf(ctx, "events: nack: %v", err)
		}
		return
	}
	if err := d.Ack(false); err != nil {
		logger.Errorf(ctx, "events: ack: %v", err)
	}
}

// RoutingKey is the key an event is published with. It is matched by the
// default "survey.#" binding.
func RoutingKey(ev events.Event) string {
	return "survey." + ev.Type
}

// Publish implements events.Source.
func (s *Source) Publish(ctx context.Context, ev events.Event) error {
	body, err := events.Encode(ev)
	if err != nil {
		return err
	}
	ch, err := s.conn.Channel()
	if err != nil {
		return fmt.Errorf("failed to open channel: %w", err)
	}
	defer ch.Close()
	if err := s.declare(ch); err != nil {
		return err
	}
	return ch.PublishWithContext(ctx, s.cfg.Exchange, RoutingKey(ev), false, false, amqp.Publishing{
		ContentType:  "application/json",
		DeliveryMode: amqp.Persistent,
		Timestamp:    time.Now(),
		Body:         body,
	})
}

// Close closes the connection.
func (s *Source) Close() error {
	if s.conn.IsClosed() {
		return nil
	}
	return s.conn.Close()
}
