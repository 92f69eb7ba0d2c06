package kafka

import (
	"context"
	"testing"

	"github.com/segmentio/kafka-go"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ncobase/ohsmetrics/concurrency/worker"
	"github.com/ncobase/ohsmetrics/events"
)

// fakeReader serves queued messages, then blocks until ctx is done.
type fakeReader struct {
	msgs      []kafka.Message
	committed []int64
}

func (r *fakeReader) FetchMessage(ctx context.Context) (kafka.Message, error) {
	if len(r.msgs) == 0 {
		<-ctx.Done()
		return kafka.Message{}, ctx.Err()
	}
	m := r.msgs[0]
	r.msgs = r.msgs[1:]
	return m, nil
}

func (r *fakeReader) CommitMessages(_ context.Context, msgs ...kafka.Message) error {
	for _, m := range msgs {
		r.committed = append(r.committed, m.Offset)
	}
	return nil
}

func (r *fakeReader) Close() error { return nil }

type fakeWriter struct {
	written []kafka.Message
}

func (w *fakeWriter) WriteMessages(_ context.Context, msgs ...kafka.Message) error {
	w.written = append(w.written, msgs...)
	return nil
}

func (w *fakeWriter) Close() error { return nil }

func TestConsume(t *testing.T) {
	r := &fakeReader{msgs: []kafka.Message{
		{Offset: 1, Value: []byte(`{"type":"response_created"}`)},
		{Offset: 2, Value: []byte(`{}`)},
		{Offset: 3, Value: []byte("stuck")},
		{Offset: 4, Value: []byte("user_deleted")},
	}}
	src := New(r, &fakeWriter{})

	ctx, cancel := context.WithCancel(context.Background())
	var seen []string
	err := src.Consume(ctx, func(_ context.Context, ev events.Event) error {
		if ev.Type == "stuck" {
			return worker.ErrPoolStopped
		}
		seen = append(seen, ev.Type)
		if ev.Type == "user_deleted" {
			cancel()
		}
		return nil
	})
	require.NoError(t, err)

	assert.Equal(t, []string{"response_created", "user_deleted"}, seen)
	assert.Equal(t, []int64{1, 2, 4}, r.committed, "undecodable messages are skipped, unhandled ones left uncommitted")
}

func TestPublish(t *testing.T) {
	w := &fakeWriter{}
	src := New(&fakeReader{}, w)
	require.NoError(t, src.Publish(context.Background(), events.Event{Type: "user_created"}))
	require.Len(t, w.written, 1)
	assert.Equal(t, "user_created", string(w.written[0].Key))

	ev, err := events.Decode("kafka", w.written[0].Value)
	require.NoError(t, err)
	assert.Equal(t, "user_created", ev.Type)

	assert.Error(t, src.Publish(context.Background(), events.Event{}))
	assert.NoError(t, src.Close())
}
