// Package memory provides an in-process survey data provider.
//
// It backs the default configuration and the tests of every package that
// reads survey data. Rows written with Insert, Update and Delete are
// published to subscribers synchronously.
package memory

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/ncobase/ohsmetrics/config"
	"github.com/ncobase/ohsmetrics/data"
	"github.com/ncobase/ohsmetrics/ecode"
	"github.com/ncobase/ohsmetrics/types"
)

// Name is the driver name of this provider.
const Name = "memory"

func init() {
	data.RegisterDriver(&driver{})
}

type driver struct{}

func (d *driver) Name() string { return Name }

func (d *driver) Open(_ context.Context, _ *config.Data) (data.Provider, error) {
	return New(), nil
}

type subscriber struct {
	req data.SubscribeRequest
	fn  func(data.ChangeEvent)
}

// Provider keeps tables as slices of rows.
type Provider struct {
	mu      sync.RWMutex
	tables  map[string][]types.Row
	subs    map[int]*subscriber
	nextSub int
	latency time.Duration
	now     func() time.Time
}

// Option configures a Provider.
type Option func(*Provider)

// WithLatency delays every read by d, or until the context is done.
func WithLatency(d time.Duration) Option {
	return func(p *Provider) { p.latency = d }
}

// WithTables seeds the provider.
func WithTables(tables map[string][]types.Row) Option {
	return func(p *Provider) {
		for name, rows := range tables {
			p.tables[name] = append(p.tables[name], rows...)
		}
	}
}

// New creates an empty provider.
func New(opts ...Option) *Provider {
	p := &Provider{
		tables: make(map[string][]types.Row),
		subs:   make(map[int]*subscriber),
		now:    time.Now,
	}
	for _, opt := range opts {
		opt(p)
	}
	return p
}

func (p *Provider) Name() string { return Name }

func (p *Provider) Close() error { return nil }

// Read implements data.Provider.
func (p *Provider) Read(ctx context.Context, req data.ReadRequest) (*data.ReadResult, error) {
	if p.latency > 0 {
		t := time.NewTimer(p.latency)
		select {
		case <-ctx.Done():
			t.Stop()
			return nil, ctx.Err()
		case <-t.C:
		}
	}
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	p.mu.RLock()
	rows, ok := p.tables[req.Table]
	if !ok {
		p.mu.RUnlock()
		return nil, ecode.NewProviderError("memory.read", errors.New(ecode.NotExist(fmt.Sprintf("table %q", req.Table))))
	}
	matched := make([]types.Row, 0, len(rows))
	for _, row := range rows {
		ok, err := data.Match(row, req.Filters)
		if err != nil {
			p.mu.RUnlock()
			return nil, err
		}
		if ok {
			matched = append(matched, row)
		}
	}
	p.mu.RUnlock()

	sorter := &types.RowSorter{Rows: matched}
	if err := sorter.Sort(req.Sort); err != nil {
		return nil, err
	}

	total := len(matched)
	if req.Offset > 0 {
		if req.Offset >= len(matched) {
			matched = matched[:0]
		} else {
			matched = matched[req.Offset:]
		}
	}
	if req.Limit > 0 && len(matched) > req.Limit {
		matched = matched[:req.Limit]
	}

	out := make([]types.Row, len(matched))
	for i, row := range matched {
		out[i] = project(row, req.Columns)
	}
	return &data.ReadResult{Rows: out, Count: total}, nil
}

func project(row types.Row, columns []string) types.Row {
	out := make(types.Row, len(row))
	if len(columns) == 0 {
		for k, v := range row {
			out[k] = v
		}
		return out
	}
	for _, c := range columns {
		if v, ok := row[c]; ok {
			out[c] = v
		}
	}
	return out
}

// Subscribe implements data.Provider. Events are delivered on the writer's goroutine.
func (p *Provider) Subscribe(_ context.Context, req data.SubscribeRequest, fn func(data.ChangeEvent)) (data.Subscription, error) {
	if fn == nil {
		return nil, ecode.NewValidationError("memory.subscribe", ecode.FieldIsRequired("callback"))
	}
	p.mu.Lock()
	id := p.nextSub
	p.nextSub++
	p.subs[id] = &subscriber{req: req, fn: fn}
	p.mu.Unlock()

	return data.SubscriptionFunc(func() error {
		p.mu.Lock()
		delete(p.subs, id)
		p.mu.Unlock()
		return nil
	}), nil
}

// Subscribers returns the number of open subscriptions.
func (p *Provider) Subscribers() int {
	p.mu.RLock()
	defer p.mu.RUnlock()
	return len(p.subs)
}

// Insert appends rows to table, creating it if needed.
func (p *Provider) Insert(table string, rows ...types.Row) {
	p.mu.Lock()
	p.tables[table] = append(p.tables[table], rows...)
	p.mu.Unlock()
	for _, row := range rows {
		p.Publish(data.ChangeEvent{Table: table, Type: data.ChangeInsert, New: row})
	}
}

// Update applies set to every row of table matching filters and returns the count.
func (p *Provider) Update(table string, filters []data.Filter, set types.Row) (int, error) {
	var events []data.ChangeEvent
	p.mu.Lock()
	for i, row := range p.tables[table] {
		ok, err := data.Match(row, filters)
		if err != nil {
			p.mu.Unlock()
			return 0, err
		}
		if !ok {
			continue
		}
		updated := project(row, nil)
		for k, v := range set {
			updated[k] = v
		}
		p.tables[table][i] = updated
		events = append(events, data.ChangeEvent{Table: table, Type: data.ChangeUpdate, New: updated, Old: row})
	}
	p.mu.Unlock()
	for _, ev := range events {
		p.Publish(ev)
	}
	return len(events), nil
}

// Delete removes the rows of table matching filters and returns the count.
func (p *Provider) Delete(table string, filters []data.Filter) (int, error) {
	var events []data.ChangeEvent
	p.mu.Lock()
	kept := p.tables[table][:0:0]
	for _, row := range p.tables[table] {
		ok, err := data.Match(row, filters)
		if err != nil {
			p.mu.Unlock()
			return 0, err
		}
		if ok {
			events = append(events, data.ChangeEvent{Table: table, Type: data.ChangeDelete, Old: row})
			continue
		}
		kept = append(kept, row)
	}
	p.tables[table] = kept
	p.mu.Unlock()
	for _, ev := range events {
		p.Publish(ev)
	}
	return len(events), nil
}

// Publish delivers ev to every matching subscriber.
func (p *Provider) Publish(ev data.ChangeEvent) {
	if ev.At.IsZero() {
		ev.At = p.now()
	}
	p.mu.RLock()
	targets := make([]*subscriber, 0, len(p.subs))
	for _, s := range p.subs {
		if s.req.Accepts(ev) {
			targets = append(targets, s)
		}
	}
	p.mu.RUnlock()
	for _, s := range targets {
		e := ev
		e.Channel = s.req.Channel
		s.fn(e)
	}
}
