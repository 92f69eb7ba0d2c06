// Package query implements the pluggable query strategies: aggregation,
// paginated, realtime, batch and retry, selected by tag through a Factory
// and run by an Executor.
//
// Every strategy reports through the same Result envelope. Invalid
// parameters are detected before any I/O and come back as a failed Result
// carrying a validation error; ValidateParams gives callers the same check
// up front.
package query

import (
	"bytes"
	"context"
	"encoding/json"

	"github.com/ncobase/ohsmetrics/ctxutil"
	"github.com/ncobase/ohsmetrics/ecode"
)

// Strategy is the contract shared by all query strategies.
type Strategy interface {
	// Name returns the tag the strategy is registered under.
	Name() string
	// Execute runs the query. It never returns nil.
	Execute(ctx context.Context, params any) *Result
	// ValidateParams returns a validation error for malformed params.
	ValidateParams(params any) error
	// CacheKey returns a canonical key for params, empty when results
	// must not be cached.
	CacheKey(params any) string
	// HandleError wraps err into a failed Result.
	HandleError(ctx context.Context, err error) *Result
}

// Request selects a strategy by Type and carries its params.
type Request struct {
	Type   string            `json:"type" validate:"required"`
	Params any               `json:"params"`
	Labels map[string]string `json:"labels,omitempty"`
}

// Result is the envelope every strategy returns.
type Result struct {
	Success  bool           `json:"success"`
	Data     any            `json:"data,omitempty"`
	Err      *ecode.Error   `json:"error,omitempty"`
	Metadata map[string]any `json:"metadata,omitempty"`
}

// Error returns the failure of r as an error, nil on success.
func (r *Result) Error() error {
	if r == nil || r.Err == nil {
		return nil
	}
	return r.Err
}

// Ok builds a successful Result.
func Ok(data any, metadata map[string]any) *Result {
	return &Result{Success: true, Data: data, Metadata: metadata}
}

// Runner executes requests. The Executor is the Runner strategies use for
// sub-queries.
type Runner interface {
	Run(ctx context.Context, req Request) *Result
}

// RunnerFunc adapts a function to Runner.
type RunnerFunc func(ctx context.Context, req Request) *Result

// Run calls f.
func (f RunnerFunc) Run(ctx context.Context, req Request) *Result { return f(ctx, req) }

// base carries the behaviour shared by the built-in strategies.
type base struct {
	name string
}

func (b base) Name() string { return b.name }

// HandleError classifies err and tags it with the strategy name and the
// call context found in ctx.
func (b base) HandleError(ctx context.Context, err error) *Result {
	e := ecode.Classify(b.name+".execute", err).With("strategy", b.name)
	for k, v := range ctxutil.CallContext(ctx) {
		e = e.With(k, v)
	}
	return &Result{Err: e, Metadata: map[string]any{"strategy": b.name}}
}

// CanonicalKey serializes params with every map key sorted, prefixed by
// the strategy name, so the order filters were built in never changes
// the key.
func CanonicalKey(name string, params any) string {
	raw, err := json.Marshal(params)
	if err != nil {
		return ""
	}
	// round trip through a generic value so struct and map params
	// with the same content share a key
	dec := json.NewDecoder(bytes.NewReader(raw))
	dec.UseNumber()
	var generic any
	if err := dec.Decode(&generic); err != nil {
		return ""
	}
	raw, err = json.Marshal(generic)
	if err != nil {
		return ""
	}
	return name + ":" + string(raw)
}

// paramsAs converts params into T. Pointers and values of T pass through;
// maps and other shapes go through JSON.
func paramsAs[T any](op string, params any) (*T, error) {
	switch p := params.(type) {
	case *T:
		if p == nil {
			return nil, ecode.NewValidationError(op, ecode.FieldIsRequired("params"))
		}
		return p, nil
	case T:
		return &p, nil
	case nil:
		return nil, ecode.NewValidationError(op, ecode.FieldIsRequired("params"))
	}
	raw, err := json.Marshal(params)
	if err != nil {
		return nil, ecode.NewValidationError(op, ecode.FieldIsInvalid("params"))
	}
	var out T
	if err := json.Unmarshal(raw, &out); err != nil {
		return nil, ecode.NewValidationError(op, ecode.FieldIsInvalid("params")+": "+err.Error())
	}
	return &out, nil
}
