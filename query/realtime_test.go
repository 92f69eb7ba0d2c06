package query

import (
	"context"
	"strings"
	"sync"
	"testing"

	"github.com/ncobase/ohsmetrics/data"
	"github.com/ncobase/ohsmetrics/ecode"
	"github.com/ncobase/ohsmetrics/types"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRealtimeSubscription(t *testing.T) {
	p := survey()
	e := newExecutor(t, p)

	var (
		mu     sync.Mutex
		events []data.ChangeEvent
	)
	res := e.Run(context.Background(), Request{Type: TypeRealtime, Params: SubscribeParams{
		Table:   "responses",
		Event:   data.ChangeInsert,
		Filters: []data.Filter{{Column: "person_id", Op: data.OpEq, Value: "p1"}},
		Callback: func(ev data.ChangeEvent) {
			mu.Lock()
			events = append(events, ev)
			mu.Unlock()
		},
	}})
	require.True(t, res.Success, "unexpected failure: %v", res.Error())
	sub, ok := res.Data.(*Subscription)
	require.True(t, ok)
	assert.True(t, strings.HasPrefix(sub.Channel, "responses-"))
	assert.True(t, sub.Active())

	p.Insert("responses", types.Row{"person_id": "p1", "question_id": "q1", "value": 3})
	p.Insert("responses", types.Row{"person_id": "p2", "question_id": "q1", "value": 3})

	mu.Lock()
	require.Len(t, events, 1)
	assert.Equal(t, sub.Channel, events[0].Channel)
	assert.Equal(t, "p1", events[0].New["person_id"])
	mu.Unlock()

	require.NoError(t, sub.Unsubscribe())
	require.NoError(t, sub.Unsubscribe())
	assert.False(t, sub.Active())
	assert.Zero(t, p.Subscribers())

	p.Insert("responses", types.Row{"person_id": "p1"})
	mu.Lock()
	assert.Len(t, events, 1)
	mu.Unlock()
}

func TestRealtimeNamedChannelAndPanickingCallback(t *testing.T) {
	p := survey()
	e := newExecutor(t, p)

	res := e.Run(context.Background(), Request{Type: TypeRealtime, Params: &SubscribeParams{
		Channel:  "dashboard",
		Table:    "responses",
		Callback: func(data.ChangeEvent) { panic("bad callback") },
	}})
	require.True(t, res.Success)
	sub := res.Data.(*Subscription)
	assert.Equal(t, "dashboard", sub.Channel)

	assert.NotPanics(t, func() { p.Insert("responses", types.Row{"person_id": "p1"}) })
	require.NoError(t, sub.Unsubscribe())
}

func TestRealtimeValidation(t *testing.T) {
	e := newExecutor(t, survey())
	for name, params := range map[string]SubscribeParams{
		"no table":    {Callback: func(data.ChangeEvent) {}},
		"no callback": {Table: "responses"},
		"bad event":   {Table: "responses", Event: "truncate", Callback: func(data.ChangeEvent) {}},
	} {
		t.Run(name, func(t *testing.T) {
			res := e.Run(context.Background(), Request{Type: TypeRealtime, Params: params})
			assert.ErrorIs(t, res.Error(), ecode.ErrValidation)
		})
	}
}
