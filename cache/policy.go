package cache

import (
	"time"

	"github.com/ncobase/ohsmetrics/config"
)

// Default TTLs.
const (
	DefaultTTL         = 5 * time.Minute
	DefaultRealtimeTTL = 30 * time.Second
	DefaultSweep       = time.Minute
)

// TTLPolicy decides how long an entry of a metric type lives.
type TTLPolicy struct {
	Default       time.Duration
	Realtime      time.Duration
	RealtimeTypes map[string]struct{}
	Overrides     map[string]time.Duration
}

// DefaultPolicy treats "realtime", "dashboard" and "home" as near-real-time.
func DefaultPolicy() TTLPolicy {
	return NewPolicy(DefaultTTL, DefaultRealtimeTTL, []string{"realtime", "dashboard", "home"}, nil)
}

// NewPolicy builds a policy from plain values.
func NewPolicy(def, realtime time.Duration, realtimeTypes []string, overrides map[string]time.Duration) TTLPolicy {
	p := TTLPolicy{
		Default:       def,
		Realtime:      realtime,
		RealtimeTypes: make(map[string]struct{}, len(realtimeTypes)),
		Overrides:     overrides,
	}
	for _, t := range realtimeTypes {
		p.RealtimeTypes[t] = struct{}{}
	}
	return p
}

// PolicyFromConfig builds a policy from the cache section.
func PolicyFromConfig(c *config.Cache) TTLPolicy {
	if c == nil {
		return DefaultPolicy()
	}
	return NewPolicy(c.DefaultTTL, c.RealtimeTTL, c.RealtimeTypes, c.TTLOverrides)
}

// TTL returns the lifetime of metricType entries.
func (p TTLPolicy) TTL(metricType string) time.Duration {
	if d, ok := p.Overrides[metricType]; ok && d > 0 {
		return d
	}
	if _, ok := p.RealtimeTypes[metricType]; ok && p.Realtime > 0 {
		return p.Realtime
	}
	if p.Default > 0 {
		return p.Default
	}
	return DefaultTTL
}
