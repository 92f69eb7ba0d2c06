package service

import (
	"context"
	"errors"
	"time"

	"github.com/ncobase/ohsmetrics/analytics"
	"github.com/ncobase/ohsmetrics/cache"
	"github.com/ncobase/ohsmetrics/data"
	"github.com/ncobase/ohsmetrics/ecode"
	"github.com/ncobase/ohsmetrics/logging/logger"
	"github.com/ncobase/ohsmetrics/paging"
	"github.com/ncobase/ohsmetrics/query"
	"github.com/ncobase/ohsmetrics/types"
)

// Metric types served by default.
const (
	TypeDashboard      = "dashboard"
	TypeAnalytics      = "analytics"
	TypeResponses      = "responses"
	TypeHome           = "home"
	TypeQuestionnaires = "questionnaires"
	TypeUsers          = "users"
	TypeRealtime       = "realtime"
)

const (
	homeWindow     = 30 * 24 * time.Hour
	realtimeWindow = 24 * time.Hour
)

// Dashboard is the overview of the filtered survey population.
type Dashboard struct {
	GeneratedAt      time.Time                   `json:"generated_at"`
	Responses        int                         `json:"responses"`
	Persons          int                         `json:"persons"`
	Overall          analytics.Summary           `json:"overall"`
	RiskDistribution []analytics.BandShare       `json:"risk_distribution"`
	Categories       []analytics.CategoryStats   `json:"categories"`
	WeeklyTrend      []analytics.WeeklyPoint     `json:"weekly_trend"`
	Departments      []analytics.DepartmentIndex `json:"departments"`
}

// Home is the landing page summary over the last thirty days.
type Home struct {
	Since          time.Time                 `json:"since"`
	Responses      int                       `json:"responses"`
	Persons        int                       `json:"persons"`
	Questionnaires int                       `json:"questionnaires"`
	Categories     []analytics.CategoryStats `json:"categories"`
	Trend          []analytics.TrendPoint    `json:"trend"`
}

// Realtime is the activity of the last day.
type Realtime struct {
	Window     query.DateRange           `json:"window"`
	Responses  int                       `json:"responses"`
	Categories []analytics.CategoryStats `json:"categories"`
	Trend      []analytics.TrendPoint    `json:"trend"`
}

func (s *Service) registerDefaults() {
	s.providers[TypeDashboard] = s.dashboard
	s.providers[TypeAnalytics] = s.analyticsMetrics
	s.providers[TypeHome] = s.home
	s.providers[TypeRealtime] = s.realtime
	s.providers[TypeResponses] = s.listing(func() (string, string) {
		return s.tables.Responses, query.ColumnSubmittedAt
	}, query.ColumnSubmittedAt, types.Descending)
	s.providers[TypeUsers] = s.listing(func() (string, string) {
		return s.tables.Persons, s.tables.PersonsCreatedAt
	}, query.ColumnID, types.Ascending)
	s.providers[TypeQuestionnaires] = s.listing(func() (string, string) {
		return s.tables.Questionnaires, s.tables.QuestionnairesCreatedAt
	}, query.ColumnID, types.Ascending)
}

// run executes req through the retry strategy and returns its data.
func (s *Service) run(ctx context.Context, req query.Request) (any, error) {
	if s.executor == nil {
		return nil, ecode.NewProviderError("service.run", errors.New("no query executor"))
	}
	res := s.executor.Run(ctx, query.Request{
		Type:   query.TypeRetry,
		Params: query.RetryParams{Query: req},
		Labels: req.Labels,
	})
	if err := res.Error(); err != nil {
		return nil, err
	}
	return res.Data, nil
}

func (s *Service) aggregate(ctx context.Context, p query.AggregationParams) (*query.AggregationResult, error) {
	v, err := s.run(ctx, query.Request{Type: query.TypeAggregation, Params: p})
	if err != nil {
		return nil, err
	}
	out, ok := v.(*query.AggregationResult)
	if !ok {
		return nil, ecode.NewProviderError("service.aggregate", errors.New("unexpected aggregation result"))
	}
	return out, nil
}

func (s *Service) dashboard(ctx context.Context, filters cache.Filters) (any, error) {
	r, err := parseFilters(filters, s.clock.Now())
	if err != nil {
		return nil, err
	}
	out, err := s.aggregate(ctx, query.AggregationParams{
		DateRange: r.dateRange,
		Filters:   r.filters(),
		Snapshot:  true,
	})
	if err != nil {
		return nil, err
	}
	snap := out.Snapshot
	return &Dashboard{
		GeneratedAt:      snap.GeneratedAt,
		Responses:        snap.Responses,
		Persons:          snap.Persons,
		Overall:          snap.Overall,
		RiskDistribution: snap.RiskDistribution,
		Categories:       snap.Categories,
		WeeklyTrend:      snap.WeeklyTrend,
		Departments:      snap.Departments,
	}, nil
}

func (s *Service) analyticsMetrics(ctx context.Context, filters cache.Filters) (any, error) {
	r, err := parseFilters(filters, s.clock.Now())
	if err != nil {
		return nil, err
	}
	return s.aggregate(ctx, query.AggregationParams{
		DateRange:      r.dateRange,
		Filters:        r.filters(),
		IncludeDetails: r.details,
		Snapshot:       true,
	})
}

// home batches the aggregation with two row counts. Only a failed
// aggregation fails the metric; a failed count is logged and left zero.
func (s *Service) home(ctx context.Context, filters cache.Filters) (any, error) {
	now := s.clock.Now()
	r, err := parseFilters(filters, now)
	if err != nil {
		return nil, err
	}
	if r.dateRange == nil {
		r.dateRange = &query.DateRange{Start: now.Add(-homeWindow), End: now}
	}
	count := func(table string) query.Request {
		return query.Request{Type: query.TypePaginated, Params: query.PageParams{Table: table, Page: 1, PageSize: 1}}
	}
	v, err := s.run(ctx, query.Request{Type: query.TypeBatch, Params: query.BatchParams{
		Queries: []query.Request{
			{Type: query.TypeAggregation, Params: query.AggregationParams{DateRange: r.dateRange, Filters: r.filters()}},
			count(s.tables.Persons),
			count(s.tables.Questionnaires),
		},
	}})
	if err != nil {
		return nil, err
	}
	items, _ := v.([]query.ItemResult)
	if len(items) != 3 {
		return nil, ecode.NewProviderError("service.home", errors.New("unexpected batch result"))
	}
	if !items[0].Success {
		return nil, items[0].Err
	}
	agg, ok := items[0].Data.(*query.AggregationResult)
	if !ok {
		return nil, ecode.NewProviderError("service.home", errors.New("unexpected aggregation result"))
	}
	out := &Home{
		Since:      r.dateRange.Start,
		Responses:  agg.Total,
		Categories: agg.Categories,
		Trend:      agg.Trend,
	}
	for i, dst := range []*int{&out.Persons, &out.Questionnaires} {
		it := items[i+1]
		if !it.Success {
			logger.Warnf(ctx, "service: home count %d failed: %v", i, it.Err)
			continue
		}
		page, ok := it.Data.(*query.Page)
		if !ok {
			logger.Warnf(ctx, "service: home count %d returned %T", i, it.Data)
			continue
		}
		*dst = page.Info.Total
	}
	return out, nil
}

func (s *Service) realtime(ctx context.Context, filters cache.Filters) (any, error) {
	now := s.clock.Now()
	r, err := parseFilters(filters, now)
	if err != nil {
		return nil, err
	}
	window := query.DateRange{Start: now.Add(-realtimeWindow), End: now}
	if r.dateRange != nil {
		window = *r.dateRange
	}
	out, err := s.aggregate(ctx, query.AggregationParams{DateRange: &window, Filters: r.filters()})
	if err != nil {
		return nil, err
	}
	return &Realtime{Window: window, Responses: out.Total, Categories: out.Categories, Trend: out.Trend}, nil
}

// listing pages through a table. table returns the table name and the
// timestamp column a date range applies to; tables without one reject
// date ranges.
func (s *Service) listing(table func() (name, stamp string), sortBy string, order types.Order) MetricFunc {
	return func(ctx context.Context, filters cache.Filters) (any, error) {
		r, err := parseFilters(filters, s.clock.Now())
		if err != nil {
			return nil, err
		}
		name, stamp := table()
		if r.dateRange != nil && stamp == "" {
			return nil, ecode.NewValidationError("service.listing",
				ecode.NotSupported("date range on "+name)).With("table", name)
		}
		p := query.PageParams{
			Table:    name,
			Filters:  r.filters().List(),
			SortBy:   sortBy,
			Order:    order,
			Page:     r.page,
			PageSize: r.pageSize,
			Cursor:   r.cursor,
		}
		if r.sortBy != "" {
			p.SortBy, p.Order = r.sortBy, r.order
		}
		if p.PageSize == 0 {
			p.PageSize = s.pageSize
		}
		if r.cursor != "" {
			p.Mode = paging.ModeCursor
		}
		if r.dateRange != nil {
			p.Filters = append(p.Filters,
				data.Filter{Column: stamp, Op: data.OpGte, Value: r.dateRange.Start},
				data.Filter{Column: stamp, Op: data.OpLte, Value: r.dateRange.End},
			)
		}
		return s.run(ctx, query.Request{Type: query.TypePaginated, Params: p})
	}
}
