package events

import (
	"context"
	"fmt"

	"go.opentelemetry.io/otel/attribute"

	"github.com/ncobase/ohsmetrics/concurrency/worker"
	"github.com/ncobase/ohsmetrics/ctxutil"
	"github.com/ncobase/ohsmetrics/logging/logger"
	"github.com/ncobase/ohsmetrics/logging/observes"
	"github.com/ncobase/ohsmetrics/metrics"
)

// Invalidator drops the cached metrics made stale by a write event.
type Invalidator interface {
	InvalidateRelatedCache(ctx context.Context, event string) int
}

// NewProcessor returns the worker processor applying events to inv.
func NewProcessor(inv Invalidator, collector metrics.Collector) worker.Processor {
	collector = metrics.OrNoOp(collector)
	return worker.ProcessorFunc(func(ctx context.Context, task any) (err error) {
		ev, ok := task.(Event)
		if !ok {
			return fmt.Errorf("events: unexpected task %T", task)
		}
		ctx, _ = ctxutil.EnsureTraceID(ctxutil.SetSource(ctx, ev.Source))
		ctx, span := observes.StartSpan(ctx, observes.LayerEvent, "events.process",
			attribute.String("event.type", ev.Type),
			attribute.String("event.source", ev.Source),
		)
		defer func() {
			collector.EventConsumed(ev.Source, err)
			observes.EndSpan(span, err)
		}()
		n := inv.InvalidateRelatedCache(ctx, ev.Type)
		span.SetAttributes(attribute.Int("removed", n))
		return nil
	})
}

// Dispatcher feeds a source into a worker pool.
type Dispatcher struct {
	source    Source
	pool      *worker.Pool
	collector metrics.Collector
}

// NewDispatcher creates a dispatcher. pool must run a processor from
// NewProcessor.
func NewDispatcher(source Source, pool *worker.Pool, collector metrics.Collector) *Dispatcher {
	return &Dispatcher{source: source, pool: pool, collector: metrics.OrNoOp(collector)}
}

// Run consumes the source until ctx is done.
func (d *Dispatcher) Run(ctx context.Context) error {
	logger.Infof(ctx, "events: consuming from %s", d.source.Name())
	err := d.source.Consume(ctx, d.submit)
	if ctx.Err() != nil {
		return nil
	}
	return err
}

func (d *Dispatcher) submit(_ context.Context, ev Event) error {
	if err := d.pool.Submit(ev); err != nil {
		d.collector.EventConsumed(ev.Source, err)
		return err
	}
	return nil
}
