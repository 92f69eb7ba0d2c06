// Package ctxutil carries call scoped values (trace id, labels) through context.Context.
package ctxutil

import (
	"context"
	"maps"

	"github.com/google/uuid"
)

type ctxKey string

const (
	traceIDKey ctxKey = "trace_id"
	labelsKey  ctxKey = "labels"
	sourceKey  ctxKey = "source"

	// TraceIDKey is the log field name of the trace id.
	TraceIDKey = string(traceIDKey)
)

// GetValue retrieves a value from the context.
func GetValue(ctx context.Context, key string) any {
	return ctx.Value(ctxKey(key))
}

// SetValue sets a value to the context.
func SetValue(ctx context.Context, key string, val any) context.Context {
	return context.WithValue(ctx, ctxKey(key), val)
}

// GetTraceID gets trace id from context.Context.
func GetTraceID(ctx context.Context) string {
	if ctx == nil {
		return ""
	}
	if traceID, ok := ctx.Value(traceIDKey).(string); ok {
		return traceID
	}
	return ""
}

// SetTraceID sets trace id to context.Context.
func SetTraceID(ctx context.Context, traceID string) context.Context {
	return context.WithValue(ctx, traceIDKey, traceID)
}

// EnsureTraceID ensures that a trace ID exists in the context.
func EnsureTraceID(ctx context.Context) (context.Context, string) {
	if traceID := GetTraceID(ctx); traceID != "" {
		return ctx, traceID
	}
	traceID := uuid.NewString()
	return SetTraceID(ctx, traceID), traceID
}

// SetSource records what triggered the call (cli, event, scheduler, ...).
func SetSource(ctx context.Context, source string) context.Context {
	return context.WithValue(ctx, sourceKey, source)
}

// GetSource returns the call source.
func GetSource(ctx context.Context) string {
	if s, ok := ctx.Value(sourceKey).(string); ok {
		return s
	}
	return ""
}

// WithLabels merges labels into the context, later values win.
func WithLabels(ctx context.Context, labels map[string]string) context.Context {
	if len(labels) == 0 {
		return ctx
	}
	merged := maps.Clone(GetLabels(ctx))
	if merged == nil {
		merged = make(map[string]string, len(labels))
	}
	maps.Copy(merged, labels)
	return context.WithValue(ctx, labelsKey, merged)
}

// GetLabels returns the labels of the context. The map must not be modified.
func GetLabels(ctx context.Context) map[string]string {
	if l, ok := ctx.Value(labelsKey).(map[string]string); ok {
		return l
	}
	return nil
}

// CallContext flattens trace id, source and labels for error reports.
func CallContext(ctx context.Context) map[string]any {
	if ctx == nil {
		return nil
	}
	out := make(map[string]any)
	if id := GetTraceID(ctx); id != "" {
		out[TraceIDKey] = id
	}
	if s := GetSource(ctx); s != "" {
		out[string(sourceKey)] = s
	}
	for k, v := range GetLabels(ctx) {
		out[k] = v
	}
	if len(out) == 0 {
		return nil
	}
	return out
}
