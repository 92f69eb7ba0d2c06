package events

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ncobase/ohsmetrics/concurrency/worker"
	"github.com/ncobase/ohsmetrics/config"
	"github.com/ncobase/ohsmetrics/ecode"
)

func TestDecode(t *testing.T) {
	ev, err := Decode("redis", []byte(` {"type":"response_created","table":"responses","id":42} `))
	require.NoError(t, err)
	assert.Equal(t, "response_created", ev.Type)
	assert.Equal(t, "responses", ev.Table)
	assert.Equal(t, 42.0, ev.ID)
	assert.Equal(t, "redis", ev.Source)

	ev, err = Decode("kafka", []byte("user_created\n"))
	require.NoError(t, err)
	assert.Equal(t, Event{Type: "user_created", Source: "kafka"}, ev)

	for name, body := range map[string]string{
		"empty":        "  ",
		"broken json":  `{"type":`,
		"missing type": `{"table":"responses"}`,
	} {
		t.Run(name, func(t *testing.T) {
			_, err := Decode("redis", []byte(body))
			assert.ErrorIs(t, err, ecode.ErrValidation)
		})
	}
}

func TestEncode(t *testing.T) {
	body, err := Encode(Event{Type: "response_created", Table: "responses", Source: "cli"})
	require.NoError(t, err)
	ev, err := Decode("redis", body)
	require.NoError(t, err)
	assert.Equal(t, "response_created", ev.Type)
	assert.Equal(t, "responses", ev.Table)
	assert.NotContains(t, string(body), "cli")

	_, err = Encode(Event{})
	assert.ErrorIs(t, err, ecode.ErrValidation)
}

func TestDeliverBacksOffWhileQueueIsFull(t *testing.T) {
	calls := 0
	err := Deliver(context.Background(), func(context.Context, Event) error {
		calls++
		if calls < 3 {
			return worker.ErrQueueFull
		}
		return nil
	}, Event{Type: "x"})
	require.NoError(t, err)
	assert.Equal(t, 3, calls)

	calls = 0
	err = Deliver(context.Background(), func(context.Context, Event) error {
		calls++
		return errors.New("closed")
	}, Event{Type: "x"})
	assert.EqualError(t, err, "closed")
	assert.Equal(t, 1, calls)
}

// sliceSource delivers its events then waits for cancellation.
type sliceSource struct {
	events []Event
}

func (s *sliceSource) Name() string { return "slice" }
func (s *sliceSource) Close() error  { return nil }

func (s *sliceSource) Publish(_ context.Context, ev Event) error {
	s.events = append(s.events, ev)
	return nil
}

func (s *sliceSource) Consume(ctx context.Context, h Handler) error {
	for _, ev := range s.events {
		if err := Deliver(ctx, h, ev); err != nil {
			return err
		}
	}
	<-ctx.Done()
	return ctx.Err()
}

type recorder struct {
	mu     sync.Mutex
	events []string
}

func (r *recorder) InvalidateRelatedCache(_ context.Context, event string) int {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.events = append(r.events, event)
	return 1
}

func (r *recorder) seen() []string {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]string(nil), r.events...)
}

func TestDispatcher(t *testing.T) {
	inv := &recorder{}
	pool := worker.NewPool(&worker.Config{MaxWorkers: 2, QueueSize: 8, TaskTimeout: time.Second}, NewProcessor(inv, nil))
	pool.Start()

	src := &sliceSource{events: []Event{
		{Type: "response_created", Source: "slice"},
		{Type: "user_created", Source: "slice"},
		{Type: "questionnaire_updated", Source: "slice"},
	}}
	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- NewDispatcher(src, pool, nil).Run(ctx) }()

	require.Eventually(t, func() bool { return len(inv.seen()) == 3 }, time.Second, 5*time.Millisecond)
	cancel()
	require.NoError(t, <-done)
	pool.Stop(context.Background())

	assert.ElementsMatch(t, []string{"response_created", "user_created", "questionnaire_updated"}, inv.seen())
	assert.EqualValues(t, 3, pool.GetMetrics()["completed_tasks"])
}

func TestProcessorRejectsForeignTasks(t *testing.T) {
	err := NewProcessor(&recorder{}, nil).Process(context.Background(), "response_created")
	assert.Error(t, err)
}

func TestOpen(t *testing.T) {
	src, err := Open(context.Background(), &config.Events{})
	require.NoError(t, err)
	assert.Nil(t, src)

	_, err = Open(context.Background(), &config.Events{Driver: "carrier-pigeon"})
	assert.ErrorContains(t, err, "forgotten import")

	assert.Panics(t, func() { Register("", nil) })
}
