package ecode

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"strings"
)

// Kind is the failure class of an Error.
type Kind string

const (
	KindUnknown          Kind = "unknown"
	KindValidation       Kind = "validation"
	KindProvider         Kind = "provider"
	KindTimeout          Kind = "timeout"
	KindStrategyNotFound Kind = "strategy_not_found"
)

// Sentinels, one per kind, for errors.Is.
var (
	ErrValidation       = &Error{Kind: KindValidation}
	ErrProvider         = &Error{Kind: KindProvider}
	ErrTimeout          = &Error{Kind: KindTimeout}
	ErrStrategyNotFound = &Error{Kind: KindStrategyNotFound}
)

// Error is a classified failure.
type Error struct {
	Kind    Kind           `json:"kind"`
	Op      string         `json:"op,omitempty"`
	Message string         `json:"message,omitempty"`
	Context map[string]any `json:"context,omitempty"`
	Err     error          `json:"-"`
}

func (e *Error) Error() string {
	var b strings.Builder
	if e.Op != "" {
		b.WriteString(e.Op)
		b.WriteString(": ")
	}
	b.WriteString(string(e.Kind))
	if e.Message != "" {
		b.WriteString(": ")
		b.WriteString(e.Message)
	}
	if e.Err != nil {
		b.WriteString(": ")
		b.WriteString(e.Err.Error())
	}
	if len(e.Context) > 0 {
		keys := make([]string, 0, len(e.Context))
		for k := range e.Context {
			keys = append(keys, k)
		}
		sort.Strings(keys)
		b.WriteString(" [")
		for i, k := range keys {
			if i > 0 {
				b.WriteString(" ")
			}
			fmt.Fprintf(&b, "%s=%v", k, e.Context[k])
		}
		b.WriteString("]")
	}
	return b.String()
}

func (e *Error) Unwrap() error {
	return e.Err
}

// Is matches any *Error of the same kind, so the sentinels work with errors.Is.
func (e *Error) Is(target error) bool {
	t, ok := target.(*Error)
	if !ok {
		return false
	}
	return t.Kind == e.Kind && t.Op == "" && t.Message == ""
}

// With returns a copy of e carrying an extra context value.
func (e *Error) With(key string, value any) *Error {
	c := *e
	c.Context = make(map[string]any, len(e.Context)+1)
	for k, v := range e.Context {
		c.Context[k] = v
	}
	c.Context[key] = value
	return &c
}

// NewValidationError creates a validation failure.
func NewValidationError(op, message string) *Error {
	return &Error{Kind: KindValidation, Op: op, Message: message}
}

// NewProviderError wraps an error returned by a data provider.
func NewProviderError(op string, err error) *Error {
	return &Error{Kind: KindProvider, Op: op, Err: err}
}

// NewTimeoutError creates a timeout failure.
func NewTimeoutError(op string, err error) *Error {
	return &Error{Kind: KindTimeout, Op: op, Message: "deadline exceeded", Err: err}
}

// NewStrategyNotFoundError reports an unknown strategy tag.
func NewStrategyNotFoundError(tag string) *Error {
	return &Error{Kind: KindStrategyNotFound, Op: "factory.create", Message: NotExist(fmt.Sprintf("strategy %q", tag))}
}

// KindOf returns the kind of err, KindUnknown when err is not classified.
func KindOf(err error) Kind {
	var e *Error
	if errors.As(err, &e) {
		return e.Kind
	}
	return KindUnknown
}

// Classify turns any error into an *Error.
// Already classified errors pass through, deadline errors become timeouts and
// everything else is treated as a provider failure.
func Classify(op string, err error) *Error {
	if err == nil {
		return nil
	}
	var e *Error
	if errors.As(err, &e) {
		return e
	}
	if errors.Is(err, context.DeadlineExceeded) {
		return NewTimeoutError(op, err)
	}
	return NewProviderError(op, err)
}

// Retryable reports whether err is worth retrying.
func Retryable(err error) bool {
	switch KindOf(err) {
	case KindProvider, KindTimeout:
		return true
	case KindUnknown:
		return err != nil && !errors.Is(err, context.Canceled)
	}
	return false
}
