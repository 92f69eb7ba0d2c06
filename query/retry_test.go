package query

import (
	"context"
	"errors"
	"sync/atomic"
	"testing"
	"time"

	"github.com/sony/gobreaker"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ncobase/ohsmetrics/config"
	"github.com/ncobase/ohsmetrics/data/memory"
	"github.com/ncobase/ohsmetrics/ecode"
)

// flaky fails with a provider error until the given attempt.
func flaky(succeedOn int32, calls *atomic.Int32) func(context.Context, any) *Result {
	return func(context.Context, any) *Result {
		if calls.Add(1) < succeedOn {
			return &Result{Err: ecode.NewProviderError("flaky", errors.New("connection reset"))}
		}
		return Ok("done", nil)
	}
}

func TestRetrySucceedsAfterTransientFailures(t *testing.T) {
	e := newExecutor(t, memory.New())
	var calls atomic.Int32
	register(e.Factory(), "flaky", flaky(3, &calls))

	res := e.Run(context.Background(), Request{Type: TypeRetry, Params: RetryParams{
		Query:       Request{Type: "flaky"},
		MaxAttempts: 5,
	}})
	require.True(t, res.Success, "unexpected failure: %v", res.Error())
	assert.Equal(t, "done", res.Data)
	assert.Equal(t, 3, res.Metadata["attempts"])
	assert.Equal(t, "flaky", res.Metadata["inner"])
	assert.EqualValues(t, 3, calls.Load())
}

func TestRetryGivesUpAfterMaxAttempts(t *testing.T) {
	e := newExecutor(t, memory.New())
	var calls atomic.Int32
	register(e.Factory(), "flaky", flaky(100, &calls))

	res := e.Run(context.Background(), Request{Type: TypeRetry, Params: RetryParams{
		Query:       Request{Type: "flaky"},
		MaxAttempts: 2,
	}})
	assert.False(t, res.Success)
	assert.ErrorIs(t, res.Error(), ecode.ErrProvider)
	assert.Equal(t, 2, res.Metadata["attempts"])
	assert.EqualValues(t, 2, calls.Load())
}

func TestRetryDoesNotRetryValidationErrors(t *testing.T) {
	e := newExecutor(t, memory.New())

	res := e.Run(context.Background(), Request{Type: TypeRetry, Params: RetryParams{
		Query:       Request{Type: TypePaginated, Params: PageParams{Table: "persons", Page: 0, PageSize: 10}},
		MaxAttempts: 4,
	}})
	assert.False(t, res.Success)
	assert.ErrorIs(t, res.Error(), ecode.ErrValidation)
	assert.Equal(t, 1, res.Metadata["attempts"])
	assert.Equal(t, gobreaker.StateClosed, e.Factory().deps.Breakers.State(TypePaginated))
}

func TestRetryOpensBreaker(t *testing.T) {
	q := testConfig()
	q.Breaker = &config.Breaker{MaxRequests: 1, Timeout: time.Minute, MinRequests: 2, FailureRatio: 0.5}
	e := NewExecutor(NewFactory(Deps{Provider: memory.New(), Query: q}), nil)
	var calls atomic.Int32
	register(e.Factory(), "down", flaky(100, &calls))

	req := Request{Type: TypeRetry, Params: RetryParams{Query: Request{Type: "down"}, MaxAttempts: 5}}
	res := e.Run(context.Background(), req)
	assert.False(t, res.Success)
	assert.Contains(t, res.Err.Error(), "retry.breaker")
	assert.EqualValues(t, 2, calls.Load(), "breaker trips after two failures")
	assert.Equal(t, gobreaker.StateOpen, e.Factory().deps.Breakers.State("down"))

	res = e.Run(context.Background(), req)
	assert.False(t, res.Success)
	assert.Equal(t, 1, res.Metadata["attempts"])
	assert.EqualValues(t, 2, calls.Load())
}

func TestRetryValidation(t *testing.T) {
	e := newExecutor(t, memory.New())
	for name, params := range map[string]any{
		"nil":          nil,
		"no query":     RetryParams{},
		"negative max": RetryParams{Query: Request{Type: "x"}, MaxAttempts: -1},
	} {
		t.Run(name, func(t *testing.T) {
			res := e.Run(context.Background(), Request{Type: TypeRetry, Params: params})
			assert.ErrorIs(t, res.Error(), ecode.ErrValidation)
		})
	}
}
