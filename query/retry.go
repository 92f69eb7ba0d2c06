package query

import (
	"context"
	"errors"
	"sync"
	"time"

	"github.com/cenkalti/backoff/v5"
	"github.com/sony/gobreaker"

	"github.com/ncobase/ohsmetrics/config"
	"github.com/ncobase/ohsmetrics/ecode"
	"github.com/ncobase/ohsmetrics/logging/logger"
	"github.com/ncobase/ohsmetrics/validator"
)

// RetryParams wrap a query to be retried. Zero MaxAttempts uses the
// configured default.
type RetryParams struct {
	Query       Request `json:"query" validate:"required"`
	MaxAttempts int     `json:"max_attempts,omitempty" validate:"gte=0"`
}

// Breakers hands out one circuit breaker per inner strategy tag, shared by
// every retry strategy created from the same factory.
type Breakers struct {
	mu       sync.Mutex
	settings config.Breaker
	breakers map[string]*gobreaker.CircuitBreaker
}

// NewBreakers creates an empty breaker set.
func NewBreakers(cfg *config.Breaker) *Breakers {
	b := &Breakers{breakers: make(map[string]*gobreaker.CircuitBreaker)}
	if cfg != nil {
		b.settings = *cfg
	}
	return b
}

// Get returns the breaker of tag, creating it on first use.
func (b *Breakers) Get(tag string) *gobreaker.CircuitBreaker {
	b.mu.Lock()
	defer b.mu.Unlock()
	if cb, ok := b.breakers[tag]; ok {
		return cb
	}
	cfg := b.settings
	cb := gobreaker.NewCircuitBreaker(gobreaker.Settings{
		Name:        tag,
		MaxRequests: cfg.MaxRequests,
		Interval:    cfg.Interval,
		Timeout:     cfg.Timeout,
		ReadyToTrip: func(counts gobreaker.Counts) bool {
			if counts.Requests < cfg.MinRequests || counts.Requests == 0 {
				return false
			}
			failureRatio := float64(counts.TotalFailures) / float64(counts.Requests)
			return failureRatio >= cfg.FailureRatio
		},
		// only failures worth retrying count against the provider
		IsSuccessful: func(err error) bool {
			return err == nil || !ecode.Retryable(err)
		},
		OnStateChange: func(name string, from, to gobreaker.State) {
			logger.Warnf(context.Background(), "query: breaker %s %s -> %s", name, from, to)
		},
	})
	b.breakers[tag] = cb
	return cb
}

// State returns the state of the breaker of tag.
func (b *Breakers) State(tag string) gobreaker.State {
	return b.Get(tag).State()
}

// Retry re-runs a query with exponential backoff while it fails with a
// provider or timeout error.
type Retry struct {
	base
	deps Deps
}

// NewRetry is the Constructor of the retry strategy.
func NewRetry(deps Deps) Strategy {
	return &Retry{base: base{name: TypeRetry}, deps: deps}
}

func (s *Retry) params(params any) (*RetryParams, error) {
	p, err := paramsAs[RetryParams]("retry.validate", params)
	if err != nil {
		return nil, err
	}
	if err := validator.Struct("retry.validate", p); err != nil {
		return nil, err
	}
	return p, nil
}

// ValidateParams implements Strategy.
func (s *Retry) ValidateParams(params any) error {
	_, err := s.params(params)
	return err
}

// CacheKey implements Strategy.
func (s *Retry) CacheKey(params any) string {
	p, err := s.params(params)
	if err != nil {
		return ""
	}
	return CanonicalKey(s.name, p)
}

func (s *Retry) backOff() backoff.BackOff {
	b := backoff.NewExponentialBackOff()
	if r := s.deps.Query.Retry; r != nil {
		if r.InitialInterval > 0 {
			b.InitialInterval = r.InitialInterval
		}
		if r.MaxInterval > 0 {
			b.MaxInterval = r.MaxInterval
		}
	}
	return b
}

// Execute implements Strategy.
func (s *Retry) Execute(ctx context.Context, params any) *Result {
	p, err := s.params(params)
	if err != nil {
		return s.HandleError(ctx, err)
	}
	if s.deps.Runner == nil || s.deps.Breakers == nil {
		return s.HandleError(ctx, ecode.NewProviderError("retry.execute", errors.New("no runner configured")))
	}

	attempts := p.MaxAttempts
	if attempts == 0 && s.deps.Query.Retry != nil {
		attempts = s.deps.Query.Retry.MaxAttempts
	}
	if attempts < 1 {
		attempts = 1
	}

	cb := s.deps.Breakers.Get(p.Query.Type)
	tries := 0
	operation := func() (*Result, error) {
		tries++
		out, err := cb.Execute(func() (any, error) {
			res := s.deps.Runner.Run(ctx, p.Query)
			if res == nil {
				return nil, ecode.NewProviderError("retry.attempt", errors.New("no result"))
			}
			if err := res.Error(); err != nil {
				return res, err
			}
			if !res.Success {
				return res, ecode.NewProviderError("retry.attempt", errors.New("query failed"))
			}
			return res, nil
		})
		res, _ := out.(*Result)
		switch {
		case err == nil:
			return res, nil
		case errors.Is(err, gobreaker.ErrOpenState), errors.Is(err, gobreaker.ErrTooManyRequests):
			return nil, backoff.Permanent(ecode.NewProviderError("retry.breaker", err).With("breaker", p.Query.Type))
		case !ecode.Retryable(err):
			return res, backoff.Permanent(err)
		}
		return res, err
	}

	res, err := backoff.Retry(ctx, operation,
		backoff.WithBackOff(s.backOff()),
		backoff.WithMaxTries(uint(attempts)),
		backoff.WithNotify(func(err error, next time.Duration) {
			logger.Debugf(ctx, "query: retrying %s in %s after %v", p.Query.Type, next, err)
		}),
	)
	if err != nil {
		failed := s.HandleError(ctx, err)
		failed.Metadata["attempts"] = tries
		failed.Metadata["inner"] = p.Query.Type
		return failed
	}
	if res.Metadata == nil {
		res.Metadata = make(map[string]any)
	}
	res.Metadata["attempts"] = tries
	res.Metadata["inner"] = p.Query.Type
	return res
}
