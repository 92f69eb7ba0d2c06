package ecode

import (
	"context"
	"errors"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestClassify(t *testing.T) {
	tests := []struct {
		name string
		err  error
		want Kind
	}{
		{"deadline", context.DeadlineExceeded, KindTimeout},
		{"wrapped deadline", fmt.Errorf("read: %w", context.DeadlineExceeded), KindTimeout},
		{"plain", errors.New("connection refused"), KindProvider},
		{"already classified", NewValidationError("op", "bad"), KindValidation},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, Classify("test", tt.err).Kind)
		})
	}
	assert.Nil(t, Classify("test", nil))
}

func TestSentinels(t *testing.T) {
	err := fmt.Errorf("outer: %w", NewTimeoutError("aggregation.execute", context.DeadlineExceeded))

	assert.True(t, errors.Is(err, ErrTimeout))
	assert.False(t, errors.Is(err, ErrProvider))
	assert.True(t, errors.Is(err, context.DeadlineExceeded))
	assert.Equal(t, KindTimeout, KindOf(err))
	assert.Equal(t, KindUnknown, KindOf(errors.New("x")))
}

func TestErrorString(t *testing.T) {
	err := NewProviderError("paginated.execute", errors.New("boom")).With("table", "responses").With("trace_id", "t1")
	assert.Equal(t, "paginated.execute: provider: boom [table=responses trace_id=t1]", err.Error())

	assert.Equal(t, `factory.create: strategy_not_found: strategy "nope" does not exist`, NewStrategyNotFoundError("nope").Error())
}

func TestRetryable(t *testing.T) {
	assert.True(t, Retryable(NewProviderError("op", errors.New("x"))))
	assert.True(t, Retryable(NewTimeoutError("op", nil)))
	assert.False(t, Retryable(NewValidationError("op", "bad")))
	assert.False(t, Retryable(NewStrategyNotFoundError("x")))
	assert.False(t, Retryable(context.Canceled))
	assert.False(t, Retryable(nil))
}
