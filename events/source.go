package events

import (
	"context"
	"fmt"
	"sort"
	"sync"

	"github.com/ncobase/ohsmetrics/config"
)

// Source consumes events from a broker and publishes to the same stream.
type Source interface {
	Name() string
	// Consume delivers events to h until ctx is done or the broker
	// connection fails.
	Consume(ctx context.Context, h Handler) error
	Publish(ctx context.Context, ev Event) error
	Close() error
}

// Opener connects a source.
type Opener func(ctx context.Context, cfg *config.Events) (Source, error)

var (
	openersMu sync.RWMutex
	openers   = make(map[string]Opener)
)

// Register makes a source available by name. It panics when called twice
// with the same name or with a nil opener.
func Register(name string, open Opener) {
	openersMu.Lock()
	defer openersMu.Unlock()
	if name == "" || open == nil {
		panic("events: Register with empty name or nil opener")
	}
	if _, dup := openers[name]; dup {
		panic("events: Register called twice for source " + name)
	}
	openers[name] = open
}

// Sources returns the registered source names, sorted.
func Sources() []string {
	openersMu.RLock()
	defer openersMu.RUnlock()
	out := make([]string, 0, len(openers))
	for name := range openers {
		out = append(out, name)
	}
	sort.Strings(out)
	return out
}

// Open connects the source named by cfg.Driver. It returns nil when no
// driver is configured.
func Open(ctx context.Context, cfg *config.Events) (Source, error) {
	if cfg == nil || cfg.Driver == "" {
		return nil, nil
	}
	openersMu.RLock()
	open, ok := openers[cfg.Driver]
	openersMu.RUnlock()
	if !ok {
		return nil, fmt.Errorf("events: unknown source %q (forgotten import?)", cfg.Driver)
	}
	return open(ctx, cfg)
}
