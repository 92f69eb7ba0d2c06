package config

import (
	"github.com/google/wire"
	logcfg "github.com/ncobase/ohsmetrics/logging/logger/config"
)

// ProviderSet is the wire provider set for the config package.
// It extracts the sub-configurations other packages depend on from *Config.
var ProviderSet = wire.NewSet(
	wire.FieldsOf(new(*Config), "Cache", "Query", "Analytics", "Data", "Events", "Worker", "Server", "Observes"),
	ProvideLoggerConfig,
)

// ProvideLoggerConfig provides the logger configuration.
func ProvideLoggerConfig(cfg *Config) *logcfg.Config {
	if cfg == nil || cfg.Logger == nil {
		return logcfg.Default()
	}
	return cfg.Logger
}
