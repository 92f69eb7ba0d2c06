package service

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ncobase/ohsmetrics/cache"
	"github.com/ncobase/ohsmetrics/ecode"
	"github.com/ncobase/ohsmetrics/query"
)

func TestHomeMetrics(t *testing.T) {
	s := newService(t, fixture())
	v, err := s.GetMetricsWithCache(context.Background(), TypeHome, nil, false)
	require.NoError(t, err)

	h := v.(*Home)
	assert.Equal(t, now.Add(-homeWindow), h.Since)
	assert.Equal(t, 5, h.Responses)
	assert.Equal(t, 2, h.Persons)
	assert.Equal(t, 1, h.Questionnaires)
	assert.Len(t, h.Categories, 2)
}

func TestHomeToleratesFailedCounts(t *testing.T) {
	p := fixture()
	s := newService(t, p)
	s.tables.Questionnaires = "missing"

	v, err := s.GetMetricsWithCache(context.Background(), TypeHome, nil, false)
	require.NoError(t, err)
	assert.Equal(t, 2, v.(*Home).Persons)
	assert.Zero(t, v.(*Home).Questionnaires)
}

func TestRealtimeMetrics(t *testing.T) {
	s := newService(t, fixture())
	v, err := s.GetMetricsWithCache(context.Background(), TypeRealtime, nil, false)
	require.NoError(t, err)

	r := v.(*Realtime)
	assert.Equal(t, now, r.Window.End)
	assert.Equal(t, 2, r.Responses, "only the last day")
}

func TestAnalyticsMetrics(t *testing.T) {
	s := newService(t, fixture())
	v, err := s.GetMetricsWithCache(context.Background(), TypeAnalytics, cache.Filters{
		FilterStart:   "2024-03-04",
		FilterEnd:     "2024-03-09",
		FilterDetails: true,
	}, false)
	require.NoError(t, err)

	out := v.(*query.AggregationResult)
	assert.Equal(t, 2, out.Total, "date-only end covers the whole day")
	assert.Len(t, out.Records, 2)
	require.NotNil(t, out.Snapshot)
	assert.Equal(t, 2, out.Snapshot.Persons)
}

func TestResponsesListing(t *testing.T) {
	s := newService(t, fixture())
	v, err := s.GetMetricsWithCache(context.Background(), TypeResponses, nil, false)
	require.NoError(t, err)

	page := v.(*query.Page)
	require.Len(t, page.Items, 2)
	assert.Equal(t, 5, page.Items[0]["id"], "newest first")
	assert.Equal(t, 5, page.Info.Total)
	assert.True(t, page.Info.HasNextPage)

	v, err = s.GetMetricsWithCache(context.Background(), TypeUsers, cache.Filters{FilterPage: "2", FilterPageSize: 1}, false)
	require.NoError(t, err)
	users := v.(*query.Page)
	require.Len(t, users.Items, 1)
	assert.Equal(t, "p2", users.Items[0]["id"])
}

func TestListingDateRangeUsesTimestampColumn(t *testing.T) {
	s := newService(t, fixture())
	ctx := context.Background()

	v, err := s.GetMetricsWithCache(ctx, TypeUsers, cache.Filters{FilterStart: "2030-01-01", FilterEnd: "2030-01-02"}, false)
	require.NoError(t, err)
	assert.Empty(t, v.(*query.Page).Items)
	assert.Zero(t, v.(*query.Page).Info.Total)

	v, err = s.GetMetricsWithCache(ctx, TypeUsers, cache.Filters{FilterStart: "2024-03-04", FilterEnd: "2024-03-06"}, false)
	require.NoError(t, err)
	users := v.(*query.Page)
	require.Len(t, users.Items, 1)
	assert.Equal(t, "p2", users.Items[0]["id"])

	v, err = s.GetMetricsWithCache(ctx, TypeResponses, cache.Filters{FilterStart: "2024-03-09"}, false)
	require.NoError(t, err)
	assert.Equal(t, 3, v.(*query.Page).Info.Total)
}

func TestListingWithoutTimestampRejectsDateRange(t *testing.T) {
	s := newService(t, fixture())
	s.tables.QuestionnairesCreatedAt = ""

	_, err := s.GetMetricsWithCache(context.Background(), TypeQuestionnaires, cache.Filters{FilterStart: "2024-03-01"}, false)
	assert.ErrorIs(t, err, ecode.ErrValidation)

	v, err := s.GetMetricsWithCache(context.Background(), TypeQuestionnaires, nil, false)
	require.NoError(t, err)
	assert.Equal(t, 1, v.(*query.Page).Info.Total)
}

// stub replaces a registered strategy with one returning fixed data.
type stub struct {
	name string
	data any
}

func (s stub) Name() string             { return s.name }
func (s stub) ValidateParams(any) error { return nil }
func (s stub) CacheKey(any) string      { return "" }

func (s stub) Execute(context.Context, any) *query.Result {
	return query.Ok(s.data, nil)
}
func (s stub) HandleError(_ context.Context, err error) *query.Result {
	return &query.Result{Err: ecode.Classify(s.name, err)}
}

func TestHomeRejectsForeignStrategyData(t *testing.T) {
	s := newService(t, fixture())
	s.executor.Factory().Register(query.TypePaginated, func(query.Deps) query.Strategy {
		return stub{name: query.TypePaginated, data: "rows"}
	})

	v, err := s.GetMetricsWithCache(context.Background(), TypeHome, nil, false)
	require.NoError(t, err)
	assert.Equal(t, 5, v.(*Home).Responses)
	assert.Zero(t, v.(*Home).Persons)

	s.executor.Factory().Register(query.TypeAggregation, func(query.Deps) query.Strategy {
		return stub{name: query.TypeAggregation, data: 42}
	})
	_, err = s.GetMetricsWithCache(context.Background(), TypeHome, nil, true)
	assert.ErrorIs(t, err, ecode.ErrProvider)
}

func TestParseFilters(t *testing.T) {
	r, err := parseFilters(cache.Filters{
		FilterStart:  "2024-03-01T00:00:00Z",
		FilterPage:   3.0,
		FilterOrder:  "DESC",
		"department": "ops",
	}, now)
	require.NoError(t, err)
	assert.Equal(t, now, r.dateRange.End, "open range ends now")
	assert.Equal(t, 3, r.page)
	assert.Equal(t, "desc", string(r.order))
	assert.Equal(t, map[string]any{"department": "ops"}, r.equals)

	r, err = parseFilters(cache.Filters{FilterStart: "2024-03-01", FilterEnd: "2024-03-01"}, now)
	require.NoError(t, err)
	assert.Equal(t, 24*time.Hour-time.Nanosecond, r.dateRange.End.Sub(r.dateRange.Start))

	for name, f := range map[string]cache.Filters{
		"bad start":        {FilterStart: "yesterday"},
		"end only":         {FilterEnd: "2024-03-01"},
		"fractional page":  {FilterPage: 1.5},
		"non-bool details": {FilterDetails: "maybe"},
	} {
		t.Run(name, func(t *testing.T) {
			_, err := parseFilters(f, now)
			assert.ErrorIs(t, err, ecode.ErrValidation)
		})
	}
}
