package ctxutil

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestEnsureTraceID(t *testing.T) {
	ctx, id := EnsureTraceID(context.Background())
	assert.NotEmpty(t, id)

	ctx2, id2 := EnsureTraceID(ctx)
	assert.Equal(t, id, id2)
	assert.Equal(t, id, GetTraceID(ctx2))
}

func TestCallContext(t *testing.T) {
	assert.Nil(t, CallContext(context.Background()))

	ctx := SetTraceID(context.Background(), "abc")
	ctx = SetSource(ctx, "cli")
	ctx = WithLabels(ctx, map[string]string{"metric": "dashboard"})
	ctx = WithLabels(ctx, map[string]string{"metric": "home", "dept": "ops"})

	assert.Equal(t, map[string]any{
		"trace_id": "abc",
		"source":   "cli",
		"metric":   "home",
		"dept":     "ops",
	}, CallContext(ctx))
}

func TestWithAsyncContext(t *testing.T) {
	parent, cancel := context.WithCancel(SetTraceID(context.Background(), "t"))
	ctx, release := WithAsyncContext(parent, time.Minute)
	defer release()
	cancel()

	assert.NoError(t, ctx.Err())
	assert.Equal(t, "t", GetTraceID(ctx))
}
