package query

import (
	"context"
	"errors"
	"fmt"

	"golang.org/x/sync/errgroup"

	"github.com/ncobase/ohsmetrics/ecode"
	"github.com/ncobase/ohsmetrics/logging/logger"
	"github.com/ncobase/ohsmetrics/validator"
)

// BatchMode selects how sub-queries are scheduled.
type BatchMode string

const (
	// Concurrent issues every sub-query at once.
	Concurrent BatchMode = "concurrent"
	// Sequential runs sub-queries one after another, in order.
	Sequential BatchMode = "sequential"
)

// BatchParams hold the sub-queries of a batch. The default mode is concurrent.
type BatchParams struct {
	Queries []Request `json:"queries" validate:"required,min=1,dive"`
	Mode    BatchMode `json:"mode,omitempty" validate:"omitempty,oneof=concurrent sequential"`
}

// ItemResult is the outcome of one sub-query, at the index it was submitted.
type ItemResult struct {
	Index    int            `json:"index"`
	Type     string         `json:"type"`
	Success  bool           `json:"success"`
	Data     any            `json:"data,omitempty"`
	Err      *ecode.Error   `json:"error,omitempty"`
	Metadata map[string]any `json:"metadata,omitempty"`
}

// Batch runs several queries and isolates their failures.
type Batch struct {
	base
	deps Deps
}

// NewBatch is the Constructor of the batch strategy.
func NewBatch(deps Deps) Strategy {
	return &Batch{base: base{name: TypeBatch}, deps: deps}
}

func (s *Batch) params(params any) (*BatchParams, error) {
	const op = "batch.validate"
	p, err := paramsAs[BatchParams](op, params)
	if err != nil {
		return nil, err
	}
	if err := validator.Struct(op, p); err != nil {
		return nil, err
	}
	if limit := s.deps.Query.MaxBatchSize; limit > 0 && len(p.Queries) > limit {
		return nil, ecode.NewValidationError(op, ecode.OutOfRange("queries")).
			With("size", len(p.Queries)).With("max", limit)
	}
	return p, nil
}

// ValidateParams implements Strategy.
func (s *Batch) ValidateParams(params any) error {
	_, err := s.params(params)
	return err
}

// CacheKey implements Strategy.
func (s *Batch) CacheKey(params any) string {
	p, err := s.params(params)
	if err != nil {
		return ""
	}
	return CanonicalKey(s.name, p)
}

// Execute implements Strategy. The Data of the result is a []ItemResult
// with one entry per sub-query; the batch itself only fails on invalid
// params.
func (s *Batch) Execute(ctx context.Context, params any) *Result {
	p, err := s.params(params)
	if err != nil {
		return s.HandleError(ctx, err)
	}
	if s.deps.Runner == nil {
		return s.HandleError(ctx, ecode.NewProviderError("batch.execute", errors.New("no runner configured")))
	}

	items := make([]ItemResult, len(p.Queries))
	mode := p.Mode
	if mode == "" {
		mode = Concurrent
	}

	if mode == Sequential {
		for i, q := range p.Queries {
			items[i] = s.run(ctx, i, q)
		}
	} else {
		var g errgroup.Group
		limit := s.deps.Query.BatchConcurrency
		if limit <= 0 || limit > len(p.Queries) {
			limit = len(p.Queries)
		}
		g.SetLimit(limit)
		for i, q := range p.Queries {
			g.Go(func() error {
				items[i] = s.run(ctx, i, q)
				return nil
			})
		}
		_ = g.Wait()
	}

	failed := 0
	for _, it := range items {
		if !it.Success {
			failed++
		}
	}
	return Ok(items, map[string]any{
		"strategy":  s.name,
		"mode":      mode,
		"total":     len(items),
		"succeeded": len(items) - failed,
		"failed":    failed,
	})
}

func (s *Batch) run(ctx context.Context, i int, q Request) (item ItemResult) {
	item = ItemResult{Index: i, Type: q.Type}
	defer func() {
		if r := recover(); r != nil {
			logger.Errorf(ctx, "query: batch item %d panicked: %v", i, r)
			item.Success = false
			item.Data = nil
			item.Err = ecode.NewProviderError("batch.item", fmt.Errorf("panic: %v", r)).With("index", i)
		}
	}()
	res := s.deps.Runner.Run(ctx, q)
	if res == nil {
		item.Err = ecode.NewProviderError("batch.item", errors.New("no result")).With("index", i)
		return item
	}
	item.Success = res.Success
	item.Data = res.Data
	item.Err = res.Err
	item.Metadata = res.Metadata
	if !item.Success && item.Err == nil {
		item.Err = ecode.NewProviderError("batch.item", errors.New("query failed")).With("index", i)
	}
	return item
}
