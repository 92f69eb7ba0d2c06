// Package service is the cached metrics facade.
//
// A metric type names a function computing a metric from filters. Reads go
// through the cache unless a refresh is forced; concurrent misses on the same
// key share one computation.
package service

import (
	"context"
	"fmt"
	"sort"
	"sync"

	"github.com/jonboulle/clockwork"
	"go.opentelemetry.io/otel/attribute"
	"golang.org/x/sync/singleflight"

	"github.com/ncobase/ohsmetrics/cache"
	"github.com/ncobase/ohsmetrics/config"
	"github.com/ncobase/ohsmetrics/ctxutil"
	"github.com/ncobase/ohsmetrics/ecode"
	"github.com/ncobase/ohsmetrics/logging/logger"
	"github.com/ncobase/ohsmetrics/logging/observes"
	"github.com/ncobase/ohsmetrics/metrics"
	"github.com/ncobase/ohsmetrics/query"
)

// MetricFunc computes the metric of a type for filters.
type MetricFunc func(ctx context.Context, filters cache.Filters) (any, error)

// Service serves metrics from the cache, computing them on a miss.
type Service struct {
	cache     *cache.Cache
	executor  *query.Executor
	tables    *config.Tables
	analytics *config.Analytics
	pageSize  int
	collector metrics.Collector
	clock     clockwork.Clock

	mu        sync.RWMutex
	providers map[string]MetricFunc
	group     singleflight.Group
}

// Option configures a Service.
type Option func(*Service)

// WithCollector reports invalidations to collector.
func WithCollector(collector metrics.Collector) Option {
	return func(s *Service) { s.collector = metrics.OrNoOp(collector) }
}

// WithClock sets the clock relative date windows are computed from.
func WithClock(clock clockwork.Clock) Option {
	return func(s *Service) { s.clock = clock }
}

// WithTables sets the survey table names.
func WithTables(tables *config.Tables) Option {
	return func(s *Service) {
		if tables != nil {
			s.tables = tables
		}
	}
}

// WithAnalytics sets the analytics settings.
func WithAnalytics(a *config.Analytics) Option {
	return func(s *Service) {
		if a != nil {
			s.analytics = a
		}
	}
}

// WithPageSize sets the page size of listings when filters name none.
func WithPageSize(n int) Option {
	return func(s *Service) {
		if n > 0 {
			s.pageSize = n
		}
	}
}

// New creates a facade over c and executor with the default metric types
// registered.
func New(c *cache.Cache, executor *query.Executor, opts ...Option) *Service {
	def := config.Default()
	s := &Service{
		cache:     c,
		executor:  executor,
		tables:    def.Data.Tables,
		analytics: def.Analytics,
		pageSize:  def.Query.DefaultPageSize,
		collector: metrics.NoOpCollector{},
		clock:     clockwork.NewRealClock(),
		providers: make(map[string]MetricFunc),
	}
	for _, opt := range opts {
		opt(s)
	}
	s.registerDefaults()
	return s
}

// Cache returns the underlying cache.
func (s *Service) Cache() *cache.Cache { return s.cache }

// RegisterProvider adds or replaces the function computing metricType.
func (s *Service) RegisterProvider(metricType string, fn MetricFunc) {
	if metricType == "" || fn == nil {
		panic("service: RegisterProvider with empty type or nil func")
	}
	s.mu.Lock()
	s.providers[metricType] = fn
	s.mu.Unlock()
}

// Types returns the registered metric types, sorted.
func (s *Service) Types() []string {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]string, 0, len(s.providers))
	for t := range s.providers {
		out = append(out, t)
	}
	sort.Strings(out)
	return out
}

func (s *Service) provider(metricType string) (MetricFunc, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	fn, ok := s.providers[metricType]
	return fn, ok
}

// GetMetricsWithCache returns the metric of metricType for filters. A live
// cache entry is returned unless forceRefresh is set; otherwise the metric
// is computed and stored with the type's TTL. Failed computations are not
// cached.
func (s *Service) GetMetricsWithCache(ctx context.Context, metricType string, filters cache.Filters, forceRefresh bool) (v any, err error) {
	ctx, _ = ctxutil.EnsureTraceID(ctx)
	ctx, span := observes.StartSpan(ctx, observes.LayerFacade, "service.metrics",
		attribute.String("metric.type", metricType),
		attribute.Bool("metric.force_refresh", forceRefresh),
	)
	defer func() { observes.EndSpan(span, err) }()

	fn, ok := s.provider(metricType)
	if !ok {
		return nil, ecode.NewValidationError("service.metrics", ecode.NotSupported(fmt.Sprintf("metric type %q", metricType)))
	}

	if !forceRefresh {
		if v, ok := s.cache.Get(metricType, filters); ok {
			span.SetAttributes(attribute.Bool("cache.hit", true))
			return v, nil
		}
	}

	key := cache.Key(metricType, filters)
	if forceRefresh {
		key = "refresh|" + key
	}
	v, err, shared := s.group.Do(key, func() (any, error) {
		v, err := fn(ctx, filters)
		if err != nil {
			return nil, err
		}
		s.cache.Set(metricType, v, filters)
		return v, nil
	})
	if shared {
		logger.Debugf(ctx, "service: shared computation of %s", key)
	}
	if err != nil {
		return nil, ecode.Classify("service.metrics", err)
	}
	return v, nil
}

// Refresh recomputes metricType for filters and replaces the cached value.
func (s *Service) Refresh(ctx context.Context, metricType string, filters cache.Filters) (any, error) {
	return s.GetMetricsWithCache(ctx, metricType, filters, true)
}
