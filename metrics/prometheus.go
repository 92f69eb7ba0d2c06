package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

// PrometheusCollector exports measurements through its own registry.
type PrometheusCollector struct {
	registry *prometheus.Registry

	cacheRequests *prometheus.CounterVec
	cacheEvicted  *prometheus.CounterVec
	cacheSize     prometheus.Gauge
	strategyRuns  *prometheus.CounterVec
	strategyTime  *prometheus.HistogramVec
	providerReads *prometheus.CounterVec
	providerTime  *prometheus.HistogramVec
	invalidated   *prometheus.CounterVec
	events        *prometheus.CounterVec
}

// NewPrometheusCollector creates a collector with metrics under namespace.
func NewPrometheusCollector(namespace string) *PrometheusCollector {
	c := &PrometheusCollector{
		registry: prometheus.NewRegistry(),
		cacheRequests: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "cache",
			Name:      "requests_total",
			Help:      "Cache lookups by metric type and result.",
		}, []string{"type", "result"}),
		cacheEvicted: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "cache",
			Name:      "evictions_total",
			Help:      "Entries removed from the cache by reason.",
		}, []string{"reason"}),
		cacheSize: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Subsystem: "cache",
			Name:      "entries",
			Help:      "Entries currently held, expired ones included until swept.",
		}),
		strategyRuns: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "query",
			Name:      "executions_total",
			Help:      "Strategy executions by strategy and outcome.",
		}, []string{"strategy", "status"}),
		strategyTime: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Subsystem: "query",
			Name:      "duration_seconds",
			Help:      "Strategy execution latency.",
			Buckets:   prometheus.DefBuckets,
		}, []string{"strategy"}),
		providerReads: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "provider",
			Name:      "reads_total",
			Help:      "Data provider reads by driver, table and outcome.",
		}, []string{"driver", "table", "status"}),
		providerTime: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Subsystem: "provider",
			Name:      "read_duration_seconds",
			Help:      "Data provider read latency.",
			Buckets:   prometheus.DefBuckets,
		}, []string{"driver", "table"}),
		invalidated: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "cache",
			Name:      "invalidated_total",
			Help:      "Entries purged by write events.",
		}, []string{"event"}),
		events: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "events",
			Name:      "consumed_total",
			Help:      "Write events consumed by source and outcome.",
		}, []string{"source", "status"}),
	}

	c.registry.MustRegister(
		c.cacheRequests,
		c.cacheEvicted,
		c.cacheSize,
		c.strategyRuns,
		c.strategyTime,
		c.providerReads,
		c.providerTime,
		c.invalidated,
		c.events,
	)
	return c
}

// Registry returns the registry holding every metric of c.
func (c *PrometheusCollector) Registry() *prometheus.Registry {
	return c.registry
}

func (c *PrometheusCollector) CacheHit(metricType string) {
	c.cacheRequests.WithLabelValues(metricType, "hit").Inc()
}

func (c *PrometheusCollector) CacheMiss(metricType string) {
	c.cacheRequests.WithLabelValues(metricType, "miss").Inc()
}

func (c *PrometheusCollector) CacheEvicted(reason string, n int) {
	if n > 0 {
		c.cacheEvicted.WithLabelValues(reason).Add(float64(n))
	}
}

func (c *PrometheusCollector) CacheSize(n int) {
	c.cacheSize.Set(float64(n))
}

func (c *PrometheusCollector) StrategyExecuted(strategy string, d time.Duration, err error) {
	c.strategyRuns.WithLabelValues(strategy, status(err)).Inc()
	c.strategyTime.WithLabelValues(strategy).Observe(d.Seconds())
}

func (c *PrometheusCollector) ProviderRead(driver, table string, d time.Duration, err error) {
	c.providerReads.WithLabelValues(driver, table, status(err)).Inc()
	c.providerTime.WithLabelValues(driver, table).Observe(d.Seconds())
}

func (c *PrometheusCollector) Invalidated(event string, removed int) {
	c.invalidated.WithLabelValues(event).Add(float64(removed))
}

func (c *PrometheusCollector) EventConsumed(source string, err error) {
	c.events.WithLabelValues(source, status(err)).Inc()
}
