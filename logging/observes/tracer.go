// Package observes sets up tracing and error reporting.
package observes

import (
	"context"
	"fmt"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/exporters/otlp/otlptrace/otlptracegrpc"
	"go.opentelemetry.io/otel/propagation"
	"go.opentelemetry.io/otel/sdk/resource"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"
	semconv "go.opentelemetry.io/otel/semconv/v1.4.0"
	"go.opentelemetry.io/otel/trace"
)

// InstrumentationName names the tracer used by this module.
const InstrumentationName = "github.com/ncobase/ohsmetrics"

// TracerOption configures the OTLP exporter.
type TracerOption struct {
	URL                string
	Name               string
	Version            string
	Environment        string
	SamplingRate       float64
	BatchTimeout       time.Duration
	ExportTimeout      time.Duration
	MaxExportBatchSize int
	Headers            map[string]string
}

// NewTracer installs a global tracer provider exporting over OTLP gRPC.
// The returned function flushes and shuts the provider down.
func NewTracer(ctx context.Context, opt *TracerOption) (func(context.Context) error, error) {
	if opt == nil {
		return nil, fmt.Errorf("tracer config is nil")
	}

	exp, err := otlptracegrpc.New(ctx,
		otlptracegrpc.WithEndpoint(opt.URL),
		otlptracegrpc.WithInsecure(),
		otlptracegrpc.WithHeaders(opt.Headers),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to create exporter: %w", err)
	}

	res, err := resource.New(ctx,
		resource.WithAttributes(
			semconv.ServiceNameKey.String(opt.Name),
			attribute.String("version", opt.Version),
			attribute.String("environment", opt.Environment),
		),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to create resource: %w", err)
	}

	batch := []sdktrace.BatchSpanProcessorOption{}
	if opt.MaxExportBatchSize > 0 {
		batch = append(batch, sdktrace.WithMaxExportBatchSize(opt.MaxExportBatchSize))
	}
	if opt.BatchTimeout > 0 {
		batch = append(batch, sdktrace.WithBatchTimeout(opt.BatchTimeout))
	}
	if opt.ExportTimeout > 0 {
		batch = append(batch, sdktrace.WithExportTimeout(opt.ExportTimeout))
	}

	tp := sdktrace.NewTracerProvider(
		sdktrace.WithSampler(sdktrace.ParentBased(sdktrace.TraceIDRatioBased(opt.SamplingRate))),
		sdktrace.WithBatcher(exp, batch...),
		sdktrace.WithResource(res),
	)

	otel.SetTracerProvider(tp)
	otel.SetTextMapPropagator(propagation.NewCompositeTextMapPropagator(propagation.TraceContext{}, propagation.Baggage{}))
	return tp.Shutdown, nil
}

// Layer tags the part of the pipeline a span belongs to.
type Layer int

const (
	LayerUnknown Layer = iota
	LayerFacade
	LayerStrategy
	LayerProvider
	LayerEvent
)

func (l Layer) String() string {
	switch l {
	case LayerFacade:
		return "facade"
	case LayerStrategy:
		return "strategy"
	case LayerProvider:
		return "provider"
	case LayerEvent:
		return "event"
	}
	return "unknown"
}

// StartSpan starts a span on the global tracer tagged with its layer.
func StartSpan(ctx context.Context, layer Layer, name string, attrs ...attribute.KeyValue) (context.Context, trace.Span) {
	attrs = append(attrs, attribute.String("layer", layer.String()))
	return otel.Tracer(InstrumentationName).Start(ctx, name, trace.WithAttributes(attrs...))
}

// EndSpan records err on span, if any, and ends it.
func EndSpan(span trace.Span, err error) {
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
	} else {
		span.SetStatus(codes.Ok, "")
	}
	span.End()
}
