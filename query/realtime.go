package query

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"

	gonanoid "github.com/matoous/go-nanoid/v2"

	"github.com/ncobase/ohsmetrics/data"
	"github.com/ncobase/ohsmetrics/ecode"
	"github.com/ncobase/ohsmetrics/logging/logger"
	"github.com/ncobase/ohsmetrics/validator"
)

// SubscribeParams open a change subscription. Callback receives every
// matching change and every subscription failure.
type SubscribeParams struct {
	Channel  string                 `json:"channel,omitempty"`
	Table    string                 `json:"table" validate:"required"`
	Event    data.ChangeType        `json:"event,omitempty" validate:"omitempty,oneof=* insert update delete"`
	Filters  []data.Filter          `json:"filters,omitempty"`
	Callback func(data.ChangeEvent) `json:"-" validate:"required"`
}

// Subscription is the handle returned by the realtime strategy.
type Subscription struct {
	Channel string `json:"channel"`
	Table   string `json:"table"`

	sub    data.Subscription
	once   sync.Once
	err    error
	closed atomic.Bool
}

// Unsubscribe stops delivery. Safe to call more than once.
func (s *Subscription) Unsubscribe() error {
	s.once.Do(func() {
		s.closed.Store(true)
		s.err = s.sub.Close()
	})
	return s.err
}

// Active reports whether the subscription is still open.
func (s *Subscription) Active() bool { return !s.closed.Load() }

// Realtime subscribes to table changes. Its results are never cached.
type Realtime struct {
	base
	deps Deps
}

// NewRealtime is the Constructor of the realtime strategy.
func NewRealtime(deps Deps) Strategy {
	return &Realtime{base: base{name: TypeRealtime}, deps: deps}
}

func (s *Realtime) params(params any) (*SubscribeParams, error) {
	p, err := paramsAs[SubscribeParams]("realtime.validate", params)
	if err != nil {
		return nil, err
	}
	if err := validator.Struct("realtime.validate", p); err != nil {
		return nil, err
	}
	return p, nil
}

// ValidateParams implements Strategy.
func (s *Realtime) ValidateParams(params any) error {
	_, err := s.params(params)
	return err
}

// CacheKey implements Strategy; subscriptions are not cacheable.
func (s *Realtime) CacheKey(any) string { return "" }

// Execute implements Strategy. The Data of a successful result is a *Subscription.
func (s *Realtime) Execute(ctx context.Context, params any) *Result {
	p, err := s.params(params)
	if err != nil {
		return s.HandleError(ctx, err)
	}
	if s.deps.Provider == nil {
		return s.HandleError(ctx, ecode.NewProviderError("realtime.execute", errors.New("no data provider")))
	}

	channel := p.Channel
	if channel == "" {
		id, err := gonanoid.New()
		if err != nil {
			return s.HandleError(ctx, err)
		}
		channel = p.Table + "-" + id
	}

	handle := &Subscription{Channel: channel, Table: p.Table}
	deliver := func(ev data.ChangeEvent) {
		if handle.closed.Load() {
			return
		}
		defer func() {
			if r := recover(); r != nil {
				logger.Errorf(ctx, "query: subscription %s callback panicked: %v", channel, r)
			}
		}()
		p.Callback(ev)
	}

	sub, err := s.deps.Provider.Subscribe(ctx, data.SubscribeRequest{
		Channel: channel,
		Table:   p.Table,
		Event:   p.Event,
		Filters: p.Filters,
	}, deliver)
	if err != nil {
		return s.HandleError(ctx, err)
	}
	handle.sub = sub
	return Ok(handle, map[string]any{"strategy": s.name, "channel": channel})
}
