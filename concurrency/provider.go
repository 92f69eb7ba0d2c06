// Package concurrency groups the concurrency primitives shared by the
// service.
package concurrency

import (
	"github.com/google/wire"

	"github.com/ncobase/ohsmetrics/concurrency/worker"
)

// ProviderSet is the wire provider set for the concurrency package.
var ProviderSet = wire.NewSet(
	worker.ProviderSet,
)
