package ctxutil

import (
	"context"
	"time"
)

// DefaultAsyncTimeout is the default timeout for async operations
const DefaultAsyncTimeout = 5 * time.Second

// WithAsyncContext derives a context for background work.
// It keeps the parent's values (trace id, labels) but not its cancellation.
func WithAsyncContext(parent context.Context, timeout time.Duration) (context.Context, context.CancelFunc) {
	if timeout <= 0 {
		timeout = DefaultAsyncTimeout
	}
	return context.WithTimeout(context.WithoutCancel(parent), timeout)
}
