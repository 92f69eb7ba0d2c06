package query

import (
	"sort"
	"sync"

	"github.com/ncobase/ohsmetrics/config"
	"github.com/ncobase/ohsmetrics/data"
	"github.com/ncobase/ohsmetrics/ecode"
)

// Strategy tags registered by default.
const (
	TypeAggregation = "aggregation"
	TypePaginated   = "paginated"
	TypeRealtime    = "realtime"
	TypeBatch       = "batch"
	TypeRetry       = "retry"
)

// Deps are handed to strategy constructors.
type Deps struct {
	Provider  data.Provider
	Query     *config.Query
	Tables    *config.Tables
	Analytics *config.Analytics
	// Runner executes sub-queries for batch and retry.
	Runner Runner
	// Breakers guard the queries run by the retry strategy.
	Breakers *Breakers
}

func (d Deps) withDefaults() Deps {
	if d.Query == nil || d.Tables == nil || d.Analytics == nil {
		def := config.Default()
		if d.Query == nil {
			d.Query = def.Query
		}
		if d.Tables == nil {
			d.Tables = def.Data.Tables
		}
		if d.Analytics == nil {
			d.Analytics = def.Analytics
		}
	}
	if d.Breakers == nil {
		d.Breakers = NewBreakers(d.Query.Breaker)
	}
	return d
}

// Constructor builds a strategy from its dependencies.
type Constructor func(Deps) Strategy

// Factory maps strategy tags to constructors.
type Factory struct {
	mu    sync.RWMutex
	ctors map[string]Constructor
	deps  Deps
}

// NewFactory creates a factory with the built-in strategies registered.
func NewFactory(deps Deps) *Factory {
	f := &Factory{
		ctors: make(map[string]Constructor),
		deps:  deps.withDefaults(),
	}
	f.Register(TypeAggregation, NewAggregation)
	f.Register(TypePaginated, NewPaginated)
	f.Register(TypeRealtime, NewRealtime)
	f.Register(TypeBatch, NewBatch)
	f.Register(TypeRetry, NewRetry)
	return f
}

// Register adds or replaces the constructor for tag.
func (f *Factory) Register(tag string, ctor Constructor) {
	if tag == "" || ctor == nil {
		panic("query: Register with empty tag or nil constructor")
	}
	f.mu.Lock()
	f.ctors[tag] = ctor
	f.mu.Unlock()
}

// Create builds the strategy registered under tag.
func (f *Factory) Create(tag string) (Strategy, error) {
	f.mu.RLock()
	ctor, ok := f.ctors[tag]
	deps := f.deps
	f.mu.RUnlock()
	if !ok {
		return nil, ecode.NewStrategyNotFoundError(tag)
	}
	return ctor(deps), nil
}

// Types returns the sorted registered tags.
func (f *Factory) Types() []string {
	f.mu.RLock()
	defer f.mu.RUnlock()
	tags := make([]string, 0, len(f.ctors))
	for tag := range f.ctors {
		tags = append(tags, tag)
	}
	sort.Strings(tags)
	return tags
}

// SetRunner sets the runner handed to strategies created from now on.
func (f *Factory) SetRunner(r Runner) {
	f.mu.Lock()
	f.deps.Runner = r
	f.mu.Unlock()
}

// SetConfig swaps the query and analytics settings, e.g. after a reload.
func (f *Factory) SetConfig(q *config.Query, a *config.Analytics) {
	f.mu.Lock()
	if q != nil {
		f.deps.Query = q
	}
	if a != nil {
		f.deps.Analytics = a
	}
	f.mu.Unlock()
}
