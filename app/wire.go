//go:build wireinject

package app

import (
	"github.com/google/wire"

	"github.com/ncobase/ohsmetrics/concurrency"
	"github.com/ncobase/ohsmetrics/config"
	"github.com/ncobase/ohsmetrics/logging/logger"
)

// New wires the application from cfg. The cleanup function releases the
// data provider, the worker pool and telemetry.
func New(cfg *config.Config) (*App, func(), error) {
	panic(wire.Build(
		config.ProviderSet,
		logger.ProviderSet,
		concurrency.ProviderSet,
		ProviderSet,
		wire.Struct(new(App), "*"),
	))
}
