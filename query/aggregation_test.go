package query

import (
	"context"
	"testing"
	"time"

	"github.com/ncobase/ohsmetrics/analytics"
	"github.com/ncobase/ohsmetrics/data/memory"
	"github.com/ncobase/ohsmetrics/ecode"
	"github.com/ncobase/ohsmetrics/types"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func at(day, hour int) time.Time {
	return time.Date(2024, 3, day, hour, 0, 0, 0, time.UTC)
}

func survey(opts ...memory.Option) *memory.Provider {
	opts = append([]memory.Option{memory.WithTables(map[string][]types.Row{
		"persons": {
			{"id": "p1", "department": "ops", "gender": "female", "age_band": "18-29"},
			{"id": "p2", "department": "hr", "gender": "male", "age_band": "30-39"},
		},
		"questions": {
			{"id": "q1", "category": "wellbeing", "subcategory": "stress"},
			{"id": "q2", "category": "ppe"},
		},
		"responses": {
			{"person_id": "p1", "question_id": "q1", "value": 4, "submitted_at": at(4, 9)},
			{"person_id": "p1", "question_id": "q2", "value": 2, "submitted_at": at(4, 10)},
			{"person_id": "p2", "question_id": "q1", "value": 2.0, "submitted_at": at(5, 8)},
			{"person_id": "p2", "question_id": "q2", "value": "1", "submitted_at": at(12, 8)},
			{"person_id": "p2", "question_id": "q1", "value": "n/a", "submitted_at": at(12, 9)},
		},
	})}, opts...)
	return memory.New(opts...)
}

func aggregationOf(t *testing.T, res *Result) *AggregationResult {
	t.Helper()
	require.True(t, res.Success, "unexpected failure: %v", res.Error())
	out, ok := res.Data.(*AggregationResult)
	require.True(t, ok)
	return out
}

func TestAggregation(t *testing.T) {
	e := newExecutor(t, survey())
	out := aggregationOf(t, e.Run(context.Background(), Request{Type: TypeAggregation, Params: AggregationParams{}}))

	assert.Equal(t, 4, out.Total)
	assert.Equal(t, 1, out.Skipped)

	require.Len(t, out.Categories, 2)
	assert.Equal(t, "ppe", out.Categories[0].Category)
	assert.Equal(t, 2, out.Categories[0].Count)
	assert.InDelta(t, 1.5, out.Categories[0].Mean, 1e-9)
	assert.Equal(t, "wellbeing", out.Categories[1].Category)
	assert.Equal(t, 4.0, out.Categories[1].Max)
	assert.Equal(t, 2.0, out.Categories[1].Min)
	require.Len(t, out.Categories[1].Subcategories, 1)
	assert.Equal(t, "stress", out.Categories[1].Subcategories[0].Subcategory)
	assert.Nil(t, out.Categories[1].Values, "raw values dropped without details")
	assert.Nil(t, out.Records)

	require.Len(t, out.Trend, 3)
	assert.Equal(t, "2024-03-04", out.Trend[0].Date)
	assert.Equal(t, 2, out.Trend[0].Count)
	assert.Equal(t, "2024-03-12", out.Trend[2].Date)

	require.Len(t, out.Segmentation, 4)
	assert.Equal(t, "age_band", out.Segmentation[0].Attribute)
	assert.Equal(t, []analytics.Segment{
		{Value: "18-29", Count: 2, Mean: 3},
		{Value: "30-39", Count: 2, Mean: 1.5},
	}, out.Segmentation[0].Segments)
}

func TestAggregationDetailsAndFilters(t *testing.T) {
	e := newExecutor(t, survey())
	out := aggregationOf(t, e.Run(context.Background(), Request{Type: TypeAggregation, Params: AggregationParams{
		Filters:        Filters{Equals: map[string]any{"department": "ops"}, Patterns: map[string]string{"category": "well%"}},
		Demographics:   []string{"gender"},
		IncludeDetails: true,
	}}))

	assert.Equal(t, 1, out.Total)
	require.Len(t, out.Records, 1)
	assert.Equal(t, "p1", out.Records[0].PersonID)
	assert.Equal(t, "ops", out.Records[0].Attributes["department"])
	assert.Equal(t, []float64{4}, out.Categories[0].Values)
	require.Len(t, out.Segmentation, 1)
	assert.Equal(t, "gender", out.Segmentation[0].Attribute)
}

func TestAggregationDateRange(t *testing.T) {
	e := newExecutor(t, survey())
	out := aggregationOf(t, e.Run(context.Background(), Request{Type: TypeAggregation, Params: AggregationParams{
		DateRange: &DateRange{Start: at(4, 0), End: at(5, 23)},
	}}))
	assert.Equal(t, 3, out.Total)
	assert.Zero(t, out.Skipped)
}

func TestAggregationRejectsBadDateRange(t *testing.T) {
	p := &countingProvider{Provider: survey()}
	e := newExecutor(t, p)

	for name, dr := range map[string]*DateRange{
		"inverted":      {Start: at(5, 0), End: at(4, 0)},
		"missing start": {End: at(4, 0)},
		"missing end":   {Start: at(4, 0)},
	} {
		t.Run(name, func(t *testing.T) {
			res := e.Run(context.Background(), Request{Type: TypeAggregation, Params: AggregationParams{DateRange: dr}})
			assert.False(t, res.Success)
			assert.ErrorIs(t, res.Error(), ecode.ErrValidation)
		})
	}
	assert.Zero(t, p.reads)
}

func TestAggregationTimeout(t *testing.T) {
	q := testConfig()
	q.Timeout = 20 * time.Millisecond
	e := NewExecutor(NewFactory(Deps{Provider: survey(memory.WithLatency(time.Second)), Query: q}), nil)

	start := time.Now()
	res := e.Run(context.Background(), Request{Type: TypeAggregation, Params: AggregationParams{}})
	assert.Less(t, time.Since(start), 500*time.Millisecond, "reads are cancelled at the deadline")
	assert.False(t, res.Success)
	assert.ErrorIs(t, res.Error(), ecode.ErrTimeout)
	assert.Equal(t, TypeAggregation, res.Err.Context["strategy"])
}

func TestAggregationSnapshot(t *testing.T) {
	e := newExecutor(t, survey())
	out := aggregationOf(t, e.Run(context.Background(), Request{Type: TypeAggregation, Params: AggregationParams{Snapshot: true}}))

	require.NotNil(t, out.Snapshot)
	assert.Equal(t, 4, out.Snapshot.Responses)
	assert.Equal(t, 2, out.Snapshot.Persons)
	assert.False(t, out.Snapshot.GeneratedAt.IsZero())
}
