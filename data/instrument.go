package data

import (
	"context"
	"time"

	"github.com/ncobase/ohsmetrics/ecode"
	"github.com/ncobase/ohsmetrics/logging/observes"
	"github.com/ncobase/ohsmetrics/metrics"
	"go.opentelemetry.io/otel/attribute"
)

type instrumented struct {
	Provider
	collector metrics.Collector
}

// Instrument wraps p so every read is traced and timed.
// Errors leave the wrapper classified.
func Instrument(p Provider, collector metrics.Collector) Provider {
	if p == nil {
		return nil
	}
	if _, ok := p.(*instrumented); ok {
		return p
	}
	return &instrumented{Provider: p, collector: metrics.OrNoOp(collector)}
}

func (i *instrumented) Read(ctx context.Context, req ReadRequest) (*ReadResult, error) {
	ctx, span := observes.StartSpan(ctx, observes.LayerProvider, i.Name()+".read",
		attribute.String("table", req.Table),
		attribute.Int("limit", req.Limit),
	)
	start := time.Now()
	res, err := i.Provider.Read(ctx, req)
	if err != nil {
		err = ecode.Classify(i.Name()+".read", err).With("table", req.Table)
	}
	i.collector.ProviderRead(i.Name(), req.Table, time.Since(start), err)
	observes.EndSpan(span, err)
	return res, err
}

func (i *instrumented) Subscribe(ctx context.Context, req SubscribeRequest, fn func(ChangeEvent)) (Subscription, error) {
	sub, err := i.Provider.Subscribe(ctx, req, fn)
	if err != nil {
		return nil, ecode.Classify(i.Name()+".subscribe", err).With("table", req.Table)
	}
	return sub, nil
}
