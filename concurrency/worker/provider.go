package worker

import (
	"context"
	"time"

	"github.com/google/wire"

	"github.com/ncobase/ohsmetrics/config"
)

// ProviderSet is the wire provider set for the worker package.
var ProviderSet = wire.NewSet(ProvidePool)

// ProvidePool creates and starts a pool running tasks with processor.
// The cleanup function drains the pool for up to 30 seconds.
func ProvidePool(cfg *config.Worker, processor Processor) (*Pool, func(), error) {
	c := FromConfig(cfg)
	if err := c.Validate(); err != nil {
		return nil, nil, err
	}

	pool := NewPool(c, processor)
	pool.Start()

	cleanup := func() {
		ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
		defer cancel()
		pool.Stop(ctx)
	}
	return pool, cleanup, nil
}
