// Package events consumes write events from a message broker and turns
// them into cache invalidations.
//
// A source delivers decoded events to a handler; the dispatcher queues them
// on a worker pool whose processor invalidates the related metrics.
package events

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"time"

	"github.com/cenkalti/backoff/v5"

	"github.com/ncobase/ohsmetrics/concurrency/worker"
	"github.com/ncobase/ohsmetrics/ecode"
	"github.com/ncobase/ohsmetrics/validator"
)

// Event is a write that happened elsewhere in the system.
type Event struct {
	Type   string    `json:"type" validate:"required"`
	Table  string    `json:"table,omitempty"`
	ID     any       `json:"id,omitempty"`
	At     time.Time `json:"at,omitempty"`
	Source string    `json:"-"`
}

// Decode parses a message body, either a JSON object or a bare event type
// such as "response_created".
func Decode(source string, body []byte) (Event, error) {
	const op = "events.decode"
	body = bytes.TrimSpace(body)
	if len(body) == 0 {
		return Event{}, ecode.NewValidationError(op, ecode.FieldIsEmpty("body"))
	}
	var ev Event
	if body[0] == '{' {
		if err := json.Unmarshal(body, &ev); err != nil {
			return Event{}, ecode.NewValidationError(op, ecode.FieldIsInvalid("body")).With("error", err.Error())
		}
		if err := validator.Struct(op, &ev); err != nil {
			return Event{}, err
		}
	} else {
		ev.Type = string(body)
	}
	ev.Source = source
	return ev, nil
}

// Encode is the inverse of Decode.
func Encode(ev Event) ([]byte, error) {
	if ev.Type == "" {
		return nil, ecode.NewValidationError("events.encode", ecode.FieldIsRequired("type"))
	}
	return json.Marshal(ev)
}

// Handler receives decoded events.
type Handler func(ctx context.Context, ev Event) error

const (
	deliverTries   = 5
	deliverBackoff = 50 * time.Millisecond
)

// Deliver hands ev to h, backing off while the worker queue is full.
func Deliver(ctx context.Context, h Handler, ev Event) error {
	b := backoff.NewExponentialBackOff()
	b.InitialInterval = deliverBackoff
	_, err := backoff.Retry(ctx, func() (struct{}, error) {
		err := h(ctx, ev)
		if err != nil && !errors.Is(err, worker.ErrQueueFull) {
			return struct{}{}, backoff.Permanent(err)
		}
		return struct{}{}, err
	},
		backoff.WithBackOff(b),
		backoff.WithMaxTries(deliverTries),
	)
	return err
}
