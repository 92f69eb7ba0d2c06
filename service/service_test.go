package service

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/jonboulle/clockwork"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ncobase/ohsmetrics/cache"
	"github.com/ncobase/ohsmetrics/config"
	"github.com/ncobase/ohsmetrics/data"
	"github.com/ncobase/ohsmetrics/data/memory"
	"github.com/ncobase/ohsmetrics/ecode"
	"github.com/ncobase/ohsmetrics/query"
	"github.com/ncobase/ohsmetrics/types"
)

var now = time.Date(2024, 3, 10, 12, 0, 0, 0, time.UTC)

func day(d, h int) time.Time { return time.Date(2024, 3, d, h, 0, 0, 0, time.UTC) }

// counting records how many reads reached the provider.
type counting struct {
	data.Provider
	reads atomic.Int32
}

func (c *counting) Read(ctx context.Context, req data.ReadRequest) (*data.ReadResult, error) {
	c.reads.Add(1)
	return c.Provider.Read(ctx, req)
}

func fixture() *counting {
	return &counting{Provider: memory.New(memory.WithTables(map[string][]types.Row{
		"persons": {
			{"id": "p1", "department": "ops", "created_at": day(1, 8)},
			{"id": "p2", "department": "hr", "created_at": day(5, 8)},
		},
		"questions": {
			{"id": "q1", "category": "wellbeing"},
			{"id": "q2", "category": "ppe"},
		},
		"questionnaires": {
			{"id": "standard", "title": "Standard", "created_at": day(1, 8)},
		},
		"responses": {
			{"id": 1, "person_id": "p1", "question_id": "q1", "value": 4, "submitted_at": day(1, 9)},
			{"id": 2, "person_id": "p1", "question_id": "q2", "value": 2, "submitted_at": day(4, 9)},
			{"id": 3, "person_id": "p2", "question_id": "q1", "value": 7, "submitted_at": day(9, 9)},
			{"id": 4, "person_id": "p2", "question_id": "q2", "value": 1, "submitted_at": day(10, 8)},
			{"id": 5, "person_id": "p2", "question_id": "q1", "value": 3, "submitted_at": day(10, 11)},
		},
	}))}
}

func newService(t *testing.T, p data.Provider) *Service {
	t.Helper()
	cfg := config.Default()
	cfg.Query.Retry.InitialInterval = time.Millisecond
	cfg.Query.Retry.MaxInterval = time.Millisecond
	exec := query.NewExecutor(query.NewFactory(query.Deps{Provider: p, Query: cfg.Query}), nil)
	c := cache.New(cache.WithClock(clockwork.NewFakeClockAt(now)), cache.WithPolicy(cache.PolicyFromConfig(cfg.Cache)))
	return New(c, exec, WithClock(clockwork.NewFakeClockAt(now)), WithPageSize(2))
}

func TestTypes(t *testing.T) {
	s := newService(t, fixture())
	assert.Equal(t, []string{"analytics", "dashboard", "home", "questionnaires", "realtime", "responses", "users"}, s.Types())
}

func TestGetMetricsWithCache(t *testing.T) {
	p := fixture()
	s := newService(t, p)
	ctx := context.Background()
	filters := cache.Filters{"department": "ops"}

	v, err := s.GetMetricsWithCache(ctx, TypeDashboard, filters, false)
	require.NoError(t, err)
	d := v.(*Dashboard)
	assert.Equal(t, 2, d.Responses)
	assert.Equal(t, 1, d.Persons)
	reads := p.reads.Load()
	assert.EqualValues(t, 3, reads)

	v2, err := s.GetMetricsWithCache(ctx, TypeDashboard, cache.Filters{"department": "ops"}, false)
	require.NoError(t, err)
	assert.Same(t, d, v2.(*Dashboard))
	assert.Equal(t, reads, p.reads.Load(), "hit does not read")

	v3, err := s.GetMetricsWithCache(ctx, TypeDashboard, filters, true)
	require.NoError(t, err)
	assert.NotSame(t, d, v3.(*Dashboard))
	assert.Equal(t, 2*reads, p.reads.Load(), "forced refresh reads again")

	v4, _ := s.GetMetricsWithCache(ctx, TypeDashboard, filters, false)
	assert.Same(t, v3, v4, "refresh replaced the cached value")
}

func TestGetMetricsUnknownType(t *testing.T) {
	s := newService(t, fixture())
	_, err := s.GetMetricsWithCache(context.Background(), "weather", nil, false)
	assert.ErrorIs(t, err, ecode.ErrValidation)
}

func TestFailuresAreNotCached(t *testing.T) {
	s := newService(t, fixture())
	s.RegisterProvider("broken", func(context.Context, cache.Filters) (any, error) {
		return nil, errors.New("backend down")
	})
	_, err := s.GetMetricsWithCache(context.Background(), "broken", nil, false)
	assert.ErrorIs(t, err, ecode.ErrProvider)
	assert.Zero(t, s.Cache().Len())
}

func TestConcurrentMissesShareComputation(t *testing.T) {
	s := newService(t, fixture())
	var calls atomic.Int32
	release := make(chan struct{})
	s.RegisterProvider("slow", func(context.Context, cache.Filters) (any, error) {
		calls.Add(1)
		<-release
		return "value", nil
	})

	var wg sync.WaitGroup
	results := make([]any, 5)
	for i := range results {
		wg.Add(1)
		go func() {
			defer wg.Done()
			results[i], _ = s.GetMetricsWithCache(context.Background(), "slow", cache.Filters{"k": 1}, false)
		}()
	}
	time.Sleep(20 * time.Millisecond)
	close(release)
	wg.Wait()

	assert.EqualValues(t, 1, calls.Load())
	for _, r := range results {
		assert.Equal(t, "value", r)
	}
}

func TestInvalidateRelatedCache(t *testing.T) {
	s := newService(t, fixture())
	ctx := context.Background()
	for _, typ := range s.Types() {
		s.Cache().Set(typ, typ, cache.Filters{"department": "ops"})
	}

	n := s.InvalidateRelatedCache(ctx, EventResponseCreated)
	assert.Equal(t, 5, n)
	for _, typ := range []string{TypeResponses, TypeDashboard, TypeAnalytics, TypeHome, TypeQuestionnaires} {
		_, ok := s.Cache().Get(typ, cache.Filters{"department": "ops"})
		assert.False(t, ok, typ)
	}
	v, ok := s.Cache().Get(TypeUsers, cache.Filters{"department": "ops"})
	assert.True(t, ok)
	assert.Equal(t, TypeUsers, v)

	assert.Equal(t, 1, s.InvalidateRelatedCache(ctx, EventUserCreated))
	assert.Zero(t, s.InvalidateRelatedCache(ctx, "invoice_paid"))
}

func TestRelatedTypes(t *testing.T) {
	assert.NotContains(t, RelatedTypes(EventResponseCreated), TypeUsers)
	assert.ElementsMatch(t, []string{TypeQuestionnaires, TypeAnalytics, TypeDashboard}, RelatedTypes(EventQuestionnaireUpdated))
	assert.Empty(t, RelatedTypes("unknown"))
	assert.Contains(t, Events(), EventUserDeleted)
}
