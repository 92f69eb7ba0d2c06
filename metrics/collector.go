// Package metrics records cache, strategy, provider and event counters.
package metrics

import (
	"time"

	"github.com/ncobase/ohsmetrics/ecode"
)

// Collector receives operational measurements.
type Collector interface {
	CacheHit(metricType string)
	CacheMiss(metricType string)
	CacheEvicted(reason string, n int)
	CacheSize(n int)
	StrategyExecuted(strategy string, d time.Duration, err error)
	ProviderRead(driver, table string, d time.Duration, err error)
	Invalidated(event string, removed int)
	EventConsumed(source string, err error)
}

// NoOpCollector implements Collector with no-op methods
type NoOpCollector struct{}

func (NoOpCollector) CacheHit(string)                                   {}
func (NoOpCollector) CacheMiss(string)                                  {}
func (NoOpCollector) CacheEvicted(string, int)                          {}
func (NoOpCollector) CacheSize(int)                                     {}
func (NoOpCollector) StrategyExecuted(string, time.Duration, error)     {}
func (NoOpCollector) ProviderRead(string, string, time.Duration, error) {}
func (NoOpCollector) Invalidated(string, int)                           {}
func (NoOpCollector) EventConsumed(string, error)                       {}

// OrNoOp returns c, or a NoOpCollector when c is nil.
func OrNoOp(c Collector) Collector {
	if c == nil {
		return NoOpCollector{}
	}
	return c
}

// status labels an outcome by error kind.
func status(err error) string {
	if err == nil {
		return "ok"
	}
	return string(ecode.KindOf(err))
}
