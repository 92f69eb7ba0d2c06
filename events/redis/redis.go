// Package redis consumes write events from a Redis pub/sub channel.
package redis

import (
	"context"
	"fmt"

	"github.com/redis/go-redis/v9"

	"github.com/ncobase/ohsmetrics/config"
	"github.com/ncobase/ohsmetrics/events"
	"github.com/ncobase/ohsmetrics/logging/logger"
)

const name = "redis"

func init() {
	events.Register(name, func(ctx context.Context, cfg *config.Events) (events.Source, error) {
		c := cfg.Redis
		if c == nil {
			return nil, fmt.Errorf("events: redis source is not configured")
		}
		client := redis.NewClient(&redis.Options{Addr: c.Addr, Password: c.Password, DB: c.DB})
		if err := client.Ping(ctx).Err(); err != nil {
			_ = client.Close()
			return nil, fmt.Errorf("events: redis ping %s: %w", c.Addr, err)
		}
		return New(client, c.Channel), nil
	})
}

// Source subscribes to one channel. Pub/sub does not redeliver, so events
// published while the source is down are lost.
type Source struct {
	client  *redis.Client
	channel string
}

// New creates a source reading channel through client.
func New(client *redis.Client, channel string) *Source {
	return &Source{client: client, channel: channel}
}

func (s *Source) Name() string { return name }

// Consume implements events.Source.
func (s *Source) Consume(ctx context.Context, h events.Handler) error {
	ps := s.client.Subscribe(ctx, s.channel)
	defer ps.Close()
	if _, err := ps.Receive(ctx); err != nil {
		return fmt.Errorf("events: subscribe to %s: %w", s.channel, err)
	}

	ch := ps.Channel()
	for {
		select {
		case <-ctx.Done():
			return nil
		case msg, ok := <-ch:
			if !ok {
				return fmt.Errorf("events: redis channel %s closed", s.channel)
			}
			ev, err := events.Decode(name, []byte(msg.Payload))
			if err != nil {
				logger.Warnf(ctx, "events: dropping redis message: %v", err)
				continue
			}
			if err := events.Deliver(ctx, h, ev); err != nil {
				logger.Errorf(ctx, "events: lost %s event: %v", ev.Type, err)
			}
		}
	}
}

// Publish implements events.Source.
func (s *Source) Publish(ctx context.Context, ev events.Event) error {
	body, err := events.Encode(ev)
	if err != nil {
		return err
	}
	return s.client.Publish(ctx, s.channel, body).Err()
}

// Close closes the client.
func (s *Source) Close() error { return s.client.Close() }
