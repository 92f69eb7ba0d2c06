// Package kafka consumes write events from a Kafka topic with a consumer
// group.
package kafka

import (
	"context"
	"errors"
	"fmt"
	"io"
	"time"

	"github.com/segmentio/kafka-go"

	"github.com/ncobase/ohsmetrics/config"
	"github.com/ncobase/ohsmetrics/events"
	"github.com/ncobase/ohsmetrics/logging/logger"
)

const name = "kafka"

func init() {
	events.Register(name, func(_ context.Context, cfg *config.Events) (events.Source, error) {
		c := cfg.Kafka
		if c == nil || len(c.Brokers) == 0 || c.Topic == "" {
			return nil, fmt.Errorf("events: kafka source is not configured")
		}
		reader := kafka.NewReader(kafka.ReaderConfig{
			Brokers:        c.Brokers,
			GroupID:        c.GroupID,
			Topic:          c.Topic,
			MinBytes:       1,
			MaxBytes:       10e6,
			MaxWait:        500 * time.Millisecond,
			StartOffset:    kafka.LastOffset,
			ReadBackoffMin: 100 * time.Millisecond,
			ReadBackoffMax: 5 * time.Second,
			ErrorLogger: kafka.LoggerFunc(func(msg string, args ...any) {
				logger.Errorf(context.Background(), "kafka: "+msg, args...)
			}),
		})
		writer := &kafka.Writer{
			Addr:         kafka.TCP(c.Brokers...),
			Topic:        c.Topic,
			Balancer:     &kafka.Hash{},
			RequiredAcks: kafka.RequireAll,
			BatchTimeout: 10 * time.Millisecond,
		}
		return New(reader, writer), nil
	})
}

// Reader is the part of *kafka.Reader the source uses.
type Reader interface {
	FetchMessage(ctx context.Context) (kafka.Message, error)
	CommitMessages(ctx context.Context, msgs ...kafka.Message) error
	Close() error
}

// Writer is the part of *kafka.Writer the source uses.
type Writer interface {
	WriteMessages(ctx context.Context, msgs ...kafka.Message) error
	Close() error
}

// Source reads a topic and commits each message once handled.
type Source struct {
	reader Reader
	writer Writer
}

// New creates a source over reader and writer.
func New(reader Reader, writer Writer) *Source {
	return &Source{reader: reader, writer: writer}
}

func (s *Source) Name() string { return name }

// Consume implements events.Source. A message the pool cannot take is
// left uncommitted.
func (s *Source) Consume(ctx context.Context, h events.Handler) error {
	for {
		m, err := s.reader.FetchMessage(ctx)
		if err != nil {
			if ctx.Err() != nil || errors.Is(err, io.EOF) {
				return nil
			}
			return fmt.Errorf("events: kafka fetch: %w", err)
		}

		ev, err := events.Decode(name, m.Value)
		if err != nil {
			logger.Warnf(ctx, "events: skipping kafka message %s/%d@%d: %v", m.Topic, m.Partition, m.Offset, err)
		} else if err := events.Deliver(ctx, h, ev); err != nil {
			logger.Errorf(ctx, "events: %s event at offset %d not handled: %v", ev.Type, m.Offset, err)
			continue
		}

		if err := s.reader.CommitMessages(ctx, m); err != nil && ctx.Err() == nil {
			logger.Warnf(ctx, "events: kafka commit: %v", err)
		}
	}
}

// Publish implements events.Source. Events are keyed by type so events of
// one type keep their order.
func (s *Source) Publish(ctx context.Context, ev events.Event) error {
	body, err := events.Encode(ev)
	if err != nil {
		return err
	}
	return s.writer.WriteMessages(ctx, kafka.Message{Key: []byte(ev.Type), Value: body})
}

// Close closes the reader and the writer.
func (s *Source) Close() error {
	return errors.Join(s.reader.Close(), s.writer.Close())
}
