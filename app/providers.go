package app

import (
	"context"
	"time"

	"github.com/google/wire"

	"github.com/ncobase/ohsmetrics/cache"
	"github.com/ncobase/ohsmetrics/concurrency/worker"
	"github.com/ncobase/ohsmetrics/config"
	"github.com/ncobase/ohsmetrics/data"
	"github.com/ncobase/ohsmetrics/events"
	"github.com/ncobase/ohsmetrics/logging/logger"
	"github.com/ncobase/ohsmetrics/logging/observes"
	"github.com/ncobase/ohsmetrics/metrics"
	"github.com/ncobase/ohsmetrics/query"
	"github.com/ncobase/ohsmetrics/service"
	"github.com/ncobase/ohsmetrics/version"
)

// ProviderSet builds every component of the application from *config.Config.
var ProviderSet = wire.NewSet(
	ProvideTelemetry,
	ProvideCollector,
	ProvideProvider,
	ProvideCache,
	ProvideExecutor,
	ProvideService,
	ProvideProcessor,
	wire.Bind(new(events.Invalidator), new(*service.Service)),
)

// Telemetry marks the tracer and error reporter as initialized.
type Telemetry struct {
	Tracing bool
	Sentry  bool
}

// ProvideTelemetry installs the OTLP tracer and Sentry when configured.
// Tracing stays a no-op without an endpoint.
func ProvideTelemetry(cfg *config.Config, _ *logger.Logger) (*Telemetry, func(), error) {
	t := &Telemetry{}
	cleanup := func() {}
	if cfg.Observes == nil {
		return t, cleanup, nil
	}
	ver := version.GetVersionInfo().Version
	logger.SetVersion(ver)

	if s := cfg.Observes.Sentry; s != nil && s.Endpoint != "" {
		if err := observes.NewSentry(&observes.SentryOptions{
			Dsn:         s.Endpoint,
			Name:        cfg.AppName,
			Release:     ver,
			Environment: s.Environment,
			SampleRate:  s.SampleRate,
		}); err != nil {
			return nil, nil, err
		}
		t.Sentry = true
	}

	if tr := cfg.Observes.Tracer; tr != nil && tr.Endpoint != "" {
		shutdown, err := observes.NewTracer(context.Background(), &observes.TracerOption{
			URL:                tr.Endpoint,
			Name:               tr.ServiceName,
			Version:            ver,
			Environment:        tr.Environment,
			SamplingRate:       tr.SamplingRate,
			BatchTimeout:       tr.BatchTimeout,
			ExportTimeout:      tr.ExportTimeout,
			MaxExportBatchSize: tr.MaxExportBatchSize,
			Headers:            tr.Headers,
		})
		if err != nil {
			return nil, nil, err
		}
		t.Tracing = true
		cleanup = func() {
			ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
			defer cancel()
			if err := shutdown(ctx); err != nil {
				logger.Warnf(ctx, "app: tracer shutdown: %v", err)
			}
		}
	}
	return t, cleanup, nil
}

// ProvideCollector returns a Prometheus collector unless metrics are off.
func ProvideCollector(cfg *config.Config) metrics.Collector {
	if cfg.Observes != nil && !cfg.Observes.Metrics {
		return metrics.NoOpCollector{}
	}
	return metrics.NewPrometheusCollector(cfg.AppName)
}

// ProvideProvider opens the configured survey data provider.
func ProvideProvider(cfg *config.Data, collector metrics.Collector) (data.Provider, func(), error) {
	p, err := data.Open(context.Background(), cfg)
	if err != nil {
		return nil, nil, err
	}
	cleanup := func() {
		if err := p.Close(); err != nil {
			logger.Warnf(context.Background(), "app: closing %s provider: %v", p.Name(), err)
		}
	}
	return data.Instrument(p, collector), cleanup, nil
}

// ProvideCache creates the metrics cache. Its sweep loop starts with Serve.
func ProvideCache(cfg *config.Cache, collector metrics.Collector) *cache.Cache {
	return cache.New(
		cache.WithPolicy(cache.PolicyFromConfig(cfg)),
		cache.WithSweepInterval(cfg.SweepInterval),
		cache.WithCollector(collector),
	)
}

// ProvideExecutor creates the strategy executor over p.
func ProvideExecutor(cfg *config.Config, p data.Provider, collector metrics.Collector) *query.Executor {
	f := query.NewFactory(query.Deps{
		Provider:  p,
		Query:     cfg.Query,
		Tables:    cfg.Data.Tables,
		Analytics: cfg.Analytics,
	})
	return query.NewExecutor(f, collector)
}

// ProvideService creates the cached metrics facade.
func ProvideService(cfg *config.Config, c *cache.Cache, e *query.Executor, collector metrics.Collector) *service.Service {
	return service.New(c, e,
		service.WithTables(cfg.Data.Tables),
		service.WithAnalytics(cfg.Analytics),
		service.WithPageSize(cfg.Query.DefaultPageSize),
		service.WithCollector(collector),
	)
}

// ProvideProcessor returns the worker processor applying write events.
func ProvideProcessor(inv events.Invalidator, collector metrics.Collector) worker.Processor {
	return events.NewProcessor(inv, collector)
}
