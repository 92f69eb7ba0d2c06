package config

import (
	"bytes"
	"errors"
	"fmt"
	"os"
	"path/filepath"

	"github.com/fsnotify/fsnotify"
	logcfg "github.com/ncobase/ohsmetrics/logging/logger/config"
	"github.com/spf13/viper"
)

// Config represents the configuration implementation.
type Config struct {
	AppName   string
	RunMode   string
	Logger    *logcfg.Config
	Observes  *Observes
	Cache     *Cache
	Query     *Query
	Analytics *Analytics
	Data      *Data
	Events    *Events
	Worker    *Worker
	Server    *Server
	Viper     *viper.Viper
}

// LoadConfig loads the configuration from the file.
// An empty path searches the default locations.
func LoadConfig(configPath string) (*Config, error) {
	v := viper.New()
	if configPath != "" {
		v.SetConfigFile(configPath)
	} else {
		v.SetConfigName("config")
		v.AddConfigPath("/etc/ohsmetrics")
		v.AddConfigPath("$HOME/.ohsmetrics")
		v.AddConfigPath(".")
		if ex, err := os.Executable(); err == nil {
			v.AddConfigPath(filepath.Dir(ex))
		}
	}
	v.SetEnvPrefix("OHSMETRICS")
	v.AutomaticEnv()

	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if configPath != "" || !errors.As(err, &notFound) {
			return nil, fmt.Errorf("failed to read config file: %w", err)
		}
	}
	return FromViper(v), nil
}

// Parse reads configuration from raw bytes of the given type (yaml, json, toml).
func Parse(data []byte, configType string) (*Config, error) {
	v := viper.New()
	v.SetConfigType(configType)
	if err := v.ReadConfig(bytes.NewReader(data)); err != nil {
		return nil, fmt.Errorf("failed to parse config: %w", err)
	}
	return FromViper(v), nil
}

// Default returns the configuration used when no file or environment
// overrides are present.
func Default() *Config {
	return FromViper(viper.New())
}

// FromViper builds a Config from an already loaded viper instance.
func FromViper(v *viper.Viper) *Config {
	return &Config{
		AppName:   getStringOrDefault(v, "app_name", "ohsmetrics"),
		RunMode:   getStringOrDefault(v, "run_mode", "release"),
		Logger:    logcfg.GetConfig(v),
		Observes:  getObservesConfig(v),
		Cache:     getCacheConfig(v),
		Query:     getQueryConfig(v),
		Analytics: getAnalyticsConfig(v),
		Data:      getDataConfig(v),
		Events:    getEventsConfig(v),
		Worker:    getWorkerConfig(v),
		Server:    getServerConfig(v),
		Viper:     v,
	}
}

// Watch watches the configuration file and calls callback with the
// reloaded configuration whenever it changes.
func Watch(cfg *Config, callback func(*Config)) {
	if cfg == nil || cfg.Viper == nil || cfg.Viper.ConfigFileUsed() == "" {
		return
	}
	v := cfg.Viper
	v.OnConfigChange(func(e fsnotify.Event) {
		if !e.Has(fsnotify.Write) && !e.Has(fsnotify.Create) {
			return
		}
		callback(FromViper(v))
	})
	v.WatchConfig()
}
