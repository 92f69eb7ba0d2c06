package query

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/ncobase/ohsmetrics/data/memory"
	"github.com/ncobase/ohsmetrics/ecode"
	"github.com/ncobase/ohsmetrics/types"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const latency = 100 * time.Millisecond

// sleeper waits latency then fails when params is "fail".
func sleeper(ctx context.Context, params any) *Result {
	select {
	case <-time.After(latency):
	case <-ctx.Done():
		return &Result{Err: ecode.Classify("sleep", ctx.Err())}
	}
	if params == "fail" {
		return &Result{Err: ecode.NewProviderError("sleep", errors.New("forced failure"))}
	}
	return Ok(params, nil)
}

func itemsOf(t *testing.T, res *Result) []ItemResult {
	t.Helper()
	require.True(t, res.Success, "unexpected failure: %v", res.Error())
	items, ok := res.Data.([]ItemResult)
	require.True(t, ok)
	return items
}

func TestBatchConcurrentIsolatesFailures(t *testing.T) {
	e := newExecutor(t, memory.New())
	register(e.Factory(), "sleep", sleeper)

	start := time.Now()
	res := e.Run(context.Background(), Request{Type: TypeBatch, Params: BatchParams{
		Mode: Concurrent,
		Queries: []Request{
			{Type: "sleep", Params: "a"},
			{Type: "sleep", Params: "fail"},
			{Type: "sleep", Params: "c"},
		},
	}})
	elapsed := time.Since(start)
	items := itemsOf(t, res)

	require.Len(t, items, 3)
	failures := 0
	for i, it := range items {
		assert.Equal(t, i, it.Index)
		if !it.Success {
			failures++
		}
	}
	assert.Equal(t, 1, failures)
	assert.False(t, items[1].Success)
	assert.ErrorIs(t, items[1].Err, ecode.ErrProvider)
	assert.Equal(t, "a", items[0].Data)
	assert.Equal(t, "c", items[2].Data)
	assert.Equal(t, 1, res.Metadata["failed"])

	assert.GreaterOrEqual(t, elapsed, latency)
	assert.Less(t, elapsed, 2*latency, "latency follows the slowest query, not the sum")
}

func TestBatchSequentialKeepsOrder(t *testing.T) {
	e := newExecutor(t, memory.New())
	var (
		mu    sync.Mutex
		order []any
	)
	register(e.Factory(), "record", func(_ context.Context, params any) *Result {
		// earlier items sleep longer
		time.Sleep(time.Duration(4-params.(int)) * time.Millisecond)
		mu.Lock()
		order = append(order, params)
		mu.Unlock()
		return Ok(params, nil)
	})

	items := itemsOf(t, e.Run(context.Background(), Request{Type: TypeBatch, Params: BatchParams{
		Mode:    Sequential,
		Queries: []Request{{Type: "record", Params: 1}, {Type: "record", Params: 2}, {Type: "record", Params: 3}},
	}}))
	assert.Len(t, items, 3)
	assert.Equal(t, []any{1, 2, 3}, order)
}

func TestBatchMixedStrategiesAndPanics(t *testing.T) {
	e := newExecutor(t, memory.New(memory.WithTables(map[string][]types.Row{"persons": numbered(25)})))
	register(e.Factory(), "boom", func(context.Context, any) *Result { panic("boom") })

	items := itemsOf(t, e.Run(context.Background(), Request{Type: TypeBatch, Params: BatchParams{
		Queries: []Request{
			{Type: TypePaginated, Params: PageParams{Table: "persons", Page: 1, PageSize: 5}},
			{Type: "boom"},
			{Type: "missing"},
			{Type: TypePaginated, Params: PageParams{Table: "persons", Page: 0, PageSize: 5}},
		},
	}}))

	require.Len(t, items, 4)
	assert.True(t, items[0].Success)
	assert.Len(t, items[0].Data.(*Page).Items, 5)
	assert.ErrorIs(t, items[1].Err, ecode.ErrProvider)
	assert.ErrorIs(t, items[2].Err, ecode.ErrStrategyNotFound)
	assert.ErrorIs(t, items[3].Err, ecode.ErrValidation)
}

func TestBatchValidation(t *testing.T) {
	e := newExecutor(t, memory.New())
	register(e.Factory(), "sleep", sleeper)

	tooMany := make([]Request, 11)
	for i := range tooMany {
		tooMany[i] = Request{Type: "sleep"}
	}
	for name, params := range map[string]BatchParams{
		"empty":    {},
		"too many": {Queries: tooMany},
		"no type":  {Queries: []Request{{}}},
		"bad mode": {Queries: []Request{{Type: "sleep"}}, Mode: "parallel"},
	} {
		t.Run(name, func(t *testing.T) {
			res := e.Run(context.Background(), Request{Type: TypeBatch, Params: params})
			assert.False(t, res.Success)
			assert.ErrorIs(t, res.Error(), ecode.ErrValidation)
		})
	}
}

func TestBatchConcurrencyLimit(t *testing.T) {
	q := testConfig()
	q.BatchConcurrency = 1
	e := NewExecutor(NewFactory(Deps{Provider: memory.New(), Query: q}), nil)
	register(e.Factory(), "sleep", sleeper)

	start := time.Now()
	items := itemsOf(t, e.Run(context.Background(), Request{Type: TypeBatch, Params: BatchParams{
		Queries: []Request{{Type: "sleep", Params: 1}, {Type: "sleep", Params: 2}},
	}}))
	assert.Len(t, items, 2)
	assert.GreaterOrEqual(t, time.Since(start), 2*latency)
}
