// Package cache is the time-boxed metrics cache.
//
// Entries are keyed by metric type plus a canonical encoding of the request
// filters. Expired entries are never returned: a read that finds one deletes
// it, and a background sweep removes the rest on a fixed interval.
package cache

import (
	"context"
	"maps"
	"regexp"
	"strings"
	"sync"
	"time"

	"github.com/jonboulle/clockwork"
	"github.com/ncobase/ohsmetrics/logging/logger"
	"github.com/ncobase/ohsmetrics/metrics"
)

// Entry is a cached metric value.
type Entry struct {
	Key       string
	Type      string
	Filters   Filters
	Data      any
	CreatedAt time.Time
	Expiry    time.Time
}

func (e *Entry) expired(now time.Time) bool {
	return now.After(e.Expiry)
}

// Stats summarizes cache activity.
type Stats struct {
	Hits      int64 `json:"hits"`
	Misses    int64 `json:"misses"`
	Evictions int64 `json:"evictions"`
	Size      int   `json:"size"`
}

// Cache is safe for concurrent use.
type Cache struct {
	mu      sync.Mutex
	entries map[string]*Entry
	policy  TTLPolicy
	stats   Stats

	clock     clockwork.Clock
	collector metrics.Collector
	interval  time.Duration

	runMu  sync.Mutex
	cancel context.CancelFunc
	done   chan struct{}
}

// Option configures a Cache.
type Option func(*Cache)

// WithClock sets the time source.
func WithClock(clock clockwork.Clock) Option {
	return func(c *Cache) { c.clock = clock }
}

// WithPolicy sets the TTL policy.
func WithPolicy(p TTLPolicy) Option {
	return func(c *Cache) { c.policy = p }
}

// WithSweepInterval sets how often expired entries are swept.
func WithSweepInterval(d time.Duration) Option {
	return func(c *Cache) {
		if d > 0 {
			c.interval = d
		}
	}
}

// WithCollector reports hits, misses and evictions to collector.
func WithCollector(collector metrics.Collector) Option {
	return func(c *Cache) { c.collector = metrics.OrNoOp(collector) }
}

// New creates an empty cache. The sweep loop is not running until Start.
func New(opts ...Option) *Cache {
	c := &Cache{
		entries:   make(map[string]*Entry),
		policy:    DefaultPolicy(),
		clock:     clockwork.NewRealClock(),
		collector: metrics.NoOpCollector{},
		interval:  DefaultSweep,
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// SetPolicy replaces the TTL policy. Existing entries keep their expiry.
func (c *Cache) SetPolicy(p TTLPolicy) {
	c.mu.Lock()
	c.policy = p
	c.mu.Unlock()
}

// TTL returns the lifetime new entries of metricType get.
func (c *Cache) TTL(metricType string) time.Duration {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.policy.TTL(metricType)
}

// Get returns the live value stored for (metricType, filters).
func (c *Cache) Get(metricType string, filters Filters) (any, bool) {
	e, ok := c.lookup(metricType, Key(metricType, filters))
	if !ok {
		return nil, false
	}
	return e.Data, true
}

func (c *Cache) lookup(metricType, key string) (*Entry, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()

	e, ok := c.entries[key]
	if ok && e.expired(c.clock.Now()) {
		delete(c.entries, key)
		c.stats.Evictions++
		c.collector.CacheEvicted("expired", 1)
		c.collector.CacheSize(len(c.entries))
		ok = false
	}
	if !ok {
		c.stats.Misses++
		c.collector.CacheMiss(metricType)
		return nil, false
	}
	c.stats.Hits++
	c.collector.CacheHit(metricType)
	return e, true
}

// GetAs returns the live value for (metricType, filters) as a T.
// A value of another type is a corrupt entry: it is dropped and reported as a miss.
func GetAs[T any](c *Cache, metricType string, filters Filters) (T, bool) {
	var zero T
	key := Key(metricType, filters)
	e, ok := c.lookup(metricType, key)
	if !ok {
		return zero, false
	}
	v, ok := e.Data.(T)
	if !ok {
		c.mu.Lock()
		if cur, still := c.entries[key]; still && cur == e {
			delete(c.entries, key)
			c.stats.Evictions++
			c.collector.CacheEvicted("corrupt", 1)
		}
		c.mu.Unlock()
		logger.Warnf(context.Background(), "cache: dropped %s entry holding %T", metricType, e.Data)
		return zero, false
	}
	return v, true
}

// Set stores data under (metricType, filters), replacing any previous entry.
// Without ttl the policy decides the lifetime.
func (c *Cache) Set(metricType string, data any, filters Filters, ttl ...time.Duration) {
	c.mu.Lock()
	defer c.mu.Unlock()

	d := c.policy.TTL(metricType)
	if len(ttl) > 0 && ttl[0] > 0 {
		d = ttl[0]
	}
	now := c.clock.Now()
	key := Key(metricType, filters)
	c.entries[key] = &Entry{
		Key:       key,
		Type:      metricType,
		Filters:   maps.Clone(filters),
		Data:      data,
		CreatedAt: now,
		Expiry:    now.Add(d),
	}
	c.collector.CacheSize(len(c.entries))
}

// Invalidate removes entries and returns how many were removed.
//
// A pattern without regular expression metacharacters first removes every
// entry of exactly that type; when there is none it is matched as a
// substring of keys. Anything else is compiled as a regular expression and
// matched against keys; if it does not compile it is matched as a literal
// substring.
func (c *Cache) Invalidate(pattern string) int {
	if pattern == "" {
		return 0
	}
	if regexp.QuoteMeta(pattern) == pattern {
		if n := c.InvalidateTypes(pattern); n > 0 {
			return n
		}
		return c.removeWhere(func(e *Entry) bool { return strings.Contains(e.Key, pattern) })
	}

	match := func(key string) bool { return strings.Contains(key, pattern) }
	if re, err := regexp.Compile(pattern); err == nil {
		match = re.MatchString
	}
	return c.removeWhere(func(e *Entry) bool { return match(e.Key) })
}

// InvalidateTypes removes every entry whose type is one of types.
func (c *Cache) InvalidateTypes(types ...string) int {
	set := make(map[string]struct{}, len(types))
	for _, t := range types {
		set[t] = struct{}{}
	}
	return c.removeWhere(func(e *Entry) bool {
		_, ok := set[e.Type]
		return ok
	})
}

// Clear removes every entry.
func (c *Cache) Clear() int {
	return c.removeWhere(func(*Entry) bool { return true })
}

func (c *Cache) removeWhere(pred func(*Entry) bool) int {
	c.mu.Lock()
	defer c.mu.Unlock()

	n := 0
	for key, e := range c.entries {
		if pred(e) {
			delete(c.entries, key)
			n++
		}
	}
	if n > 0 {
		c.stats.Evictions += int64(n)
		c.collector.CacheEvicted("invalidated", n)
		c.collector.CacheSize(len(c.entries))
	}
	return n
}

// Sweep removes every expired entry and returns how many were removed.
func (c *Cache) Sweep() int {
	c.mu.Lock()
	defer c.mu.Unlock()

	now := c.clock.Now()
	n := 0
	for key, e := range c.entries {
		if e.expired(now) {
			delete(c.entries, key)
			n++
		}
	}
	if n > 0 {
		c.stats.Evictions += int64(n)
		c.collector.CacheEvicted("expired", n)
		c.collector.CacheSize(len(c.entries))
	}
	return n
}

// Len returns the number of stored entries, expired ones included.
func (c *Cache) Len() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return len(c.entries)
}

// Stats returns a snapshot of the counters.
func (c *Cache) Stats() Stats {
	c.mu.Lock()
	defer c.mu.Unlock()
	s := c.stats
	s.Size = len(c.entries)
	return s
}

// Start runs the sweep loop until ctx is done or Stop is called.
// Calling Start on a running cache is a no-op.
func (c *Cache) Start(ctx context.Context) {
	c.runMu.Lock()
	defer c.runMu.Unlock()
	if c.cancel != nil {
		return
	}

	ctx, cancel := context.WithCancel(ctx)
	c.cancel = cancel
	c.done = make(chan struct{})
	ticker := c.clock.NewTicker(c.interval)

	go func(done chan struct{}) {
		defer close(done)
		defer ticker.Stop()
		for {
			select {
			case <-ctx.Done():
				return
			case <-ticker.Chan():
				if n := c.Sweep(); n > 0 {
					logger.Debugf(ctx, "cache: swept %d expired entries", n)
				}
			}
		}
	}(c.done)
}

// Stop ends the sweep loop and waits for it to exit.
func (c *Cache) Stop() {
	c.runMu.Lock()
	cancel, done := c.cancel, c.done
	c.cancel, c.done = nil, nil
	c.runMu.Unlock()

	if cancel == nil {
		return
	}
	cancel()
	<-done
}
