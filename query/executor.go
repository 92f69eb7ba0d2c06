package query

import (
	"context"
	"fmt"
	"time"

	"go.opentelemetry.io/otel/attribute"

	"github.com/ncobase/ohsmetrics/ctxutil"
	"github.com/ncobase/ohsmetrics/ecode"
	"github.com/ncobase/ohsmetrics/logging/logger"
	"github.com/ncobase/ohsmetrics/logging/observes"
	"github.com/ncobase/ohsmetrics/metrics"
)

// Executor resolves requests through a Factory and runs them traced and timed.
type Executor struct {
	factory   *Factory
	collector metrics.Collector
}

// NewExecutor creates an executor and installs it as the factory's runner
// for sub-queries.
func NewExecutor(factory *Factory, collector metrics.Collector) *Executor {
	e := &Executor{factory: factory, collector: metrics.OrNoOp(collector)}
	factory.SetRunner(e)
	return e
}

// Factory returns the factory requests are resolved through.
func (e *Executor) Factory() *Factory { return e.factory }

// Strategy resolves the strategy for req.
func (e *Executor) Strategy(req Request) (Strategy, error) {
	return e.factory.Create(req.Type)
}

// Run implements Runner. Panics inside a strategy become provider errors.
func (e *Executor) Run(ctx context.Context, req Request) (res *Result) {
	if len(req.Labels) > 0 {
		ctx = ctxutil.WithLabels(ctx, req.Labels)
	}
	s, err := e.factory.Create(req.Type)
	if err != nil {
		return &Result{Err: ecode.Classify("executor.run", err), Metadata: map[string]any{"strategy": req.Type}}
	}

	ctx, span := observes.StartSpan(ctx, observes.LayerStrategy, s.Name(), attribute.String("strategy", s.Name()))
	start := time.Now()
	defer func() {
		if r := recover(); r != nil {
			logger.Errorf(ctx, "query: strategy %s panicked: %v", s.Name(), r)
			res = s.HandleError(ctx, fmt.Errorf("panic: %v", r))
		}
		if res == nil {
			res = s.HandleError(ctx, fmt.Errorf("strategy %s returned no result", s.Name()))
		}
		if res.Metadata == nil {
			res.Metadata = make(map[string]any)
		}
		elapsed := time.Since(start)
		res.Metadata["duration_ms"] = elapsed.Milliseconds()
		e.collector.StrategyExecuted(s.Name(), elapsed, res.Error())
		observes.EndSpan(span, res.Error())
		if res.Err != nil && res.Err.Kind != ecode.KindValidation {
			logger.Warnf(ctx, "query: %s failed: %v", s.Name(), res.Err)
		}
	}()
	return s.Execute(ctx, req.Params)
}
