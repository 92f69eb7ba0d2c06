package query

import (
	"context"
	"errors"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/ncobase/ohsmetrics/analytics"
	"github.com/ncobase/ohsmetrics/config"
	"github.com/ncobase/ohsmetrics/data"
	"github.com/ncobase/ohsmetrics/ecode"
	"github.com/ncobase/ohsmetrics/types"
	"github.com/ncobase/ohsmetrics/validator"
)

// DateRange restricts responses to [Start, End] on Column.
type DateRange struct {
	Start  time.Time `json:"start" validate:"required"`
	End    time.Time `json:"end" validate:"required,gtefield=Start"`
	Column string    `json:"column,omitempty"`
}

// AggregationParams select and shape an aggregation. Empty table names
// fall back to the configured survey tables.
type AggregationParams struct {
	Table             string     `json:"table,omitempty"`
	PersonTable       string     `json:"person_table,omitempty"`
	QuestionTable     string     `json:"question_table,omitempty"`
	DateRange         *DateRange `json:"date_range,omitempty"`
	Filters           Filters    `json:"filters"`
	Demographics      []string   `json:"demographics,omitempty"`
	IncludeDetails    bool       `json:"include_details,omitempty"`
	HighRiskThreshold float64    `json:"high_risk_threshold,omitempty" validate:"gte=0"`
	// Snapshot additionally builds the full analytics snapshot.
	Snapshot bool `json:"snapshot,omitempty"`
}

// AggregationResult is the data of a successful aggregation.
type AggregationResult struct {
	Total        int                       `json:"total"`
	Skipped      int                       `json:"skipped,omitempty"`
	Categories   []analytics.CategoryStats `json:"categories"`
	Trend        []analytics.TrendPoint    `json:"trend"`
	Segmentation []analytics.Segmentation  `json:"segmentation"`
	Records      []analytics.Record        `json:"records,omitempty"`
	Snapshot     *analytics.Snapshot       `json:"snapshot,omitempty"`
}

// Aggregation joins responses with persons and questions and aggregates them.
type Aggregation struct {
	base
	deps Deps
}

// NewAggregation is the Constructor of the aggregation strategy.
func NewAggregation(deps Deps) Strategy {
	return &Aggregation{base: base{name: TypeAggregation}, deps: deps}
}

func (s *Aggregation) params(params any) (*AggregationParams, error) {
	p, err := paramsAs[AggregationParams]("aggregation.validate", params)
	if err != nil {
		return nil, err
	}
	if err := validator.Struct("aggregation.validate", p); err != nil {
		return nil, err
	}
	return p, nil
}

// ValidateParams implements Strategy.
func (s *Aggregation) ValidateParams(params any) error {
	_, err := s.params(params)
	return err
}

// CacheKey implements Strategy.
func (s *Aggregation) CacheKey(params any) string {
	p, err := s.params(params)
	if err != nil {
		return ""
	}
	return CanonicalKey(s.name, p)
}

func (s *Aggregation) tables(p *AggregationParams) (responses, persons, questions string) {
	responses, persons, questions = p.Table, p.PersonTable, p.QuestionTable
	if responses == "" {
		responses = s.deps.Tables.Responses
	}
	if persons == "" {
		persons = s.deps.Tables.Persons
	}
	if questions == "" {
		questions = s.deps.Tables.Questions
	}
	return
}

// Execute implements Strategy. The reads are cancelled when the configured
// timeout elapses and the call fails with a timeout error.
func (s *Aggregation) Execute(ctx context.Context, params any) *Result {
	p, err := s.params(params)
	if err != nil {
		return s.HandleError(ctx, err)
	}
	if s.deps.Provider == nil {
		return s.HandleError(ctx, ecode.NewProviderError("aggregation.execute", errors.New("no data provider")))
	}

	readCtx := ctx
	timeout := s.deps.Query.Timeout
	if timeout > 0 {
		var cancel context.CancelFunc
		readCtx, cancel = context.WithTimeout(ctx, timeout)
		defer cancel()
	}

	tsColumn := ColumnSubmittedAt
	if p.DateRange != nil && p.DateRange.Column != "" {
		tsColumn = p.DateRange.Column
	}

	responses, persons, questions, err := s.read(readCtx, p, tsColumn)
	if err != nil {
		if errors.Is(readCtx.Err(), context.DeadlineExceeded) {
			err = ecode.NewTimeoutError("aggregation.execute", readCtx.Err()).With("timeout", timeout.String())
		}
		return s.HandleError(ctx, err)
	}

	records, skipped, err := joinRecords(responses, persons, questions, tsColumn, p.Filters.List())
	if err != nil {
		return s.HandleError(ctx, err)
	}

	demographics := p.Demographics
	if len(demographics) == 0 {
		demographics = s.deps.Analytics.Demographics
	}
	out := &AggregationResult{
		Total:        len(records),
		Skipped:      skipped,
		Categories:   analytics.AggregateCategories(records, p.IncludeDetails),
		Trend:        analytics.DailyTrend(records),
		Segmentation: analytics.SegmentBy(records, demographics),
	}
	if p.IncludeDetails {
		out.Records = records
	}
	if p.Snapshot {
		opts := SnapshotOptions(s.deps.Analytics)
		opts.IncludeDetails = p.IncludeDetails
		opts.Demographics = demographics
		if p.HighRiskThreshold > 0 {
			opts.HighRiskThreshold = p.HighRiskThreshold
		}
		opts.GeneratedAt = time.Now().UTC()
		out.Snapshot = analytics.BuildSnapshot(records, opts)
	}
	return Ok(out, map[string]any{"strategy": s.name, "total": len(records)})
}

func (s *Aggregation) read(ctx context.Context, p *AggregationParams, tsColumn string) (responses, persons, questions []types.Row, err error) {
	respTable, personTable, questionTable := s.tables(p)

	var respFilters []data.Filter
	if p.DateRange != nil {
		respFilters = []data.Filter{
			{Column: tsColumn, Op: data.OpGte, Value: p.DateRange.Start},
			{Column: tsColumn, Op: data.OpLte, Value: p.DateRange.End},
		}
	}

	g, gctx := errgroup.WithContext(ctx)
	read := func(req data.ReadRequest, dst *[]types.Row) {
		g.Go(func() error {
			res, err := s.deps.Provider.Read(gctx, req)
			if err != nil {
				return err
			}
			*dst = res.Rows
			return nil
		})
	}
	read(data.ReadRequest{Table: respTable, Filters: respFilters}, &responses)
	read(data.ReadRequest{Table: personTable}, &persons)
	read(data.ReadRequest{Table: questionTable}, &questions)
	err = g.Wait()
	return
}

// SnapshotOptions derives snapshot options from the analytics settings.
func SnapshotOptions(c *config.Analytics) analytics.SnapshotOptions {
	if c == nil {
		return analytics.SnapshotOptions{}
	}
	opts := analytics.SnapshotOptions{
		Demographics:      c.Demographics,
		HighRiskThreshold: c.HighRiskThreshold,
	}
	if c.ScoreThresholds != nil {
		opts.ScoreThresholds = analytics.Thresholds{Low: c.ScoreThresholds.Low, Moderate: c.ScoreThresholds.Moderate, High: c.ScoreThresholds.High}
	}
	if c.PercentageThresholds != nil {
		opts.PercentageThresholds = analytics.Thresholds{Low: c.PercentageThresholds.Low, Moderate: c.PercentageThresholds.Moderate, High: c.PercentageThresholds.High}
	}
	return opts
}
