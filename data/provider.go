package data

import (
	"context"
	"time"

	"github.com/ncobase/ohsmetrics/types"
)

// Op is a filter comparison operator.
type Op string

const (
	OpEq    Op = "eq"
	OpNeq   Op = "neq"
	OpGt    Op = "gt"
	OpGte   Op = "gte"
	OpLt    Op = "lt"
	OpLte   Op = "lte"
	OpLike  Op = "like"
	OpILike Op = "ilike"
	OpIn    Op = "in"
)

// Valid reports whether op is a known operator.
func (op Op) Valid() bool {
	switch op {
	case OpEq, OpNeq, OpGt, OpGte, OpLt, OpLte, OpLike, OpILike, OpIn:
		return true
	}
	return false
}

// Filter restricts a read to rows whose column satisfies Op against Value.
type Filter struct {
	Column string `json:"column"`
	Op     Op     `json:"op"`
	Value  any    `json:"value"`
}

// ReadRequest describes a read against one table.
// A zero Limit means no limit.
type ReadRequest struct {
	Table   string            `json:"table"`
	Columns []string          `json:"columns,omitempty"`
	Filters []Filter          `json:"filters,omitempty"`
	Sort    []types.Criterion `json:"sort,omitempty"`
	Offset  int               `json:"offset,omitempty"`
	Limit   int               `json:"limit,omitempty"`
}

// ReadResult holds the page of rows read and the exact number of rows
// matching the filters, ignoring offset and limit.
type ReadResult struct {
	Rows  []types.Row `json:"rows"`
	Count int         `json:"count"`
}

// ChangeType is the kind of write a change event reports.
type ChangeType string

const (
	ChangeAny    ChangeType = "*"
	ChangeInsert ChangeType = "insert"
	ChangeUpdate ChangeType = "update"
	ChangeDelete ChangeType = "delete"
)

// Matches reports whether a subscription for t accepts an event of type other.
func (t ChangeType) Matches(other ChangeType) bool {
	return t == "" || t == ChangeAny || t == other
}

// SubscribeRequest opens a change subscription on a table.
type SubscribeRequest struct {
	Channel string     `json:"channel"`
	Table   string     `json:"table"`
	Event   ChangeType `json:"event"`
	Filters []Filter   `json:"filters,omitempty"`
}

// ChangeEvent is delivered to subscription callbacks.
// Subscription failures arrive as events with Err set.
type ChangeEvent struct {
	Channel string     `json:"channel"`
	Table   string     `json:"table"`
	Type    ChangeType `json:"type"`
	New     types.Row  `json:"new,omitempty"`
	Old     types.Row  `json:"old,omitempty"`
	At      time.Time  `json:"at"`
	Err     error      `json:"-"`
}

// Accepts reports whether the event matches the subscription request.
func (r SubscribeRequest) Accepts(ev ChangeEvent) bool {
	if ev.Err != nil {
		return true
	}
	if r.Table != "" && ev.Table != r.Table {
		return false
	}
	if !r.Event.Matches(ev.Type) {
		return false
	}
	if len(r.Filters) == 0 {
		return true
	}
	row := ev.New
	if row == nil {
		row = ev.Old
	}
	ok, err := Match(row, r.Filters)
	return err == nil && ok
}

// Subscription is an open change subscription.
type Subscription interface {
	Close() error
}

// Provider is the data source the query strategies read from.
type Provider interface {
	Name() string
	Read(ctx context.Context, req ReadRequest) (*ReadResult, error)
	Subscribe(ctx context.Context, req SubscribeRequest, fn func(ChangeEvent)) (Subscription, error)
	Close() error
}

// SubscriptionFunc adapts a function to Subscription.
type SubscriptionFunc func() error

// Close calls f.
func (f SubscriptionFunc) Close() error { return f() }
