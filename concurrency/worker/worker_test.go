package worker

import (
	"context"
	"errors"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ncobase/ohsmetrics/config"
)

func TestConfigValidate(t *testing.T) {
	assert.NoError(t, DefaultConfig().Validate())
	assert.Error(t, (&Config{MaxWorkers: 0, QueueSize: 1}).Validate())
	assert.Error(t, (&Config{MaxWorkers: 1, QueueSize: 0}).Validate())
	assert.Error(t, (&Config{MaxWorkers: 1, QueueSize: 1, TaskTimeout: -1}).Validate())

	c := FromConfig(&config.Worker{MaxWorkers: 2, QueueSize: 8, TaskTimeout: time.Second})
	assert.Equal(t, &Config{MaxWorkers: 2, QueueSize: 8, TaskTimeout: time.Second}, c)
}

func TestPoolRunsTasks(t *testing.T) {
	var sum atomic.Int64
	p := NewPool(&Config{MaxWorkers: 3, QueueSize: 16}, ProcessorFunc(func(_ context.Context, task any) error {
		n := task.(int)
		if n < 0 {
			return errors.New("negative")
		}
		sum.Add(int64(n))
		return nil
	}))
	p.Start()

	for _, n := range []int{1, 2, 3, -1, 4} {
		require.NoError(t, p.Submit(n))
	}
	p.Stop(context.Background())

	assert.EqualValues(t, 10, sum.Load())
	m := p.GetMetrics()
	assert.EqualValues(t, 4, m["completed_tasks"])
	assert.EqualValues(t, 1, m["failed_tasks"])
	assert.EqualValues(t, 0, m["pending_tasks"])
	assert.True(t, p.IsIdle())

	assert.ErrorIs(t, p.Submit(5), ErrPoolStopped)
	p.Stop(context.Background())
}

func TestPoolFunctionTasks(t *testing.T) {
	p := NewPool(&Config{MaxWorkers: 1, QueueSize: 4})
	p.Start()

	var ran atomic.Int32
	require.NoError(t, p.Submit(func() { ran.Add(1) }))
	require.NoError(t, p.Submit(func() error {
		ran.Add(1)
		return nil
	}))
	require.NoError(t, p.Submit(func(context.Context) error { panic("boom") }))
	require.NoError(t, p.Submit("not a function"))
	p.Stop(context.Background())

	assert.EqualValues(t, 2, ran.Load())
	assert.EqualValues(t, 2, p.GetMetrics()["failed_tasks"])
}

func TestPoolQueueFull(t *testing.T) {
	release := make(chan struct{})
	p := NewPool(&Config{MaxWorkers: 1, QueueSize: 1}, ProcessorFunc(func(context.Context, any) error {
		<-release
		return nil
	}))
	// not started: the queue fills up
	require.NoError(t, p.Submit(1))
	assert.ErrorIs(t, p.Submit(2), ErrQueueFull)
	assert.True(t, p.IsBusy())

	p.Start()
	close(release)
	p.Stop(context.Background())
	assert.EqualValues(t, 1, p.GetMetrics()["completed_tasks"])
}

func TestPoolTaskTimeout(t *testing.T) {
	p := NewPool(&Config{MaxWorkers: 1, QueueSize: 1, TaskTimeout: 10 * time.Millisecond}, ProcessorFunc(func(ctx context.Context, _ any) error {
		<-ctx.Done()
		time.Sleep(50 * time.Millisecond)
		return nil
	}))
	p.Start()
	require.NoError(t, p.Submit(1))
	p.Stop(context.Background())
	assert.EqualValues(t, 1, p.GetMetrics()["failed_tasks"])
}
