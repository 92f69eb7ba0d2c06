// Package config holds the logger configuration.
package config

import (
	"strings"

	"github.com/spf13/viper"
)

// Config configuration struct
type Config struct {
	Level         int            `json:"level" yaml:"level"`
	Format        string         `json:"format" yaml:"format"`
	Output        string         `json:"output" yaml:"output"`
	OutputFile    string         `json:"output_file" yaml:"output_file"`
	IndexName     string         `json:"index_name" yaml:"index_name"`
	HookLevel     string         `json:"hook_level" yaml:"hook_level"`
	DateSuffix    string         `json:"date_suffix" yaml:"date_suffix"`
	RotateDaily   bool           `json:"rotate_daily" yaml:"rotate_daily"`
	Meilisearch   *Meilisearch   `json:"meilisearch" yaml:"meilisearch"`
	Elasticsearch *Elasticsearch `json:"elasticsearch" yaml:"elasticsearch"`
	OpenSearch    *OpenSearch    `json:"opensearch" yaml:"opensearch"`
	SentryDSN     string         `json:"sentry_dsn" yaml:"sentry_dsn"`
}

// Default returns a stdout text logger at info level.
func Default() *Config {
	return &Config{
		Level:      4,
		Format:     "text",
		Output:     "stdout",
		HookLevel:  "warning",
		DateSuffix: "2006.01.02",
	}
}

// GetConfig returns the logger configuration
func GetConfig(v *viper.Viper) *Config {
	if !v.IsSet("logger") {
		return Default()
	}

	indexName := strings.ToLower(v.GetString("app_name") + "-" + v.GetString("run_mode") + "-log")
	if name := v.GetString("logger.index_name"); name != "" {
		indexName = name
	}

	c := Default()
	if v.IsSet("logger.level") {
		c.Level = v.GetInt("logger.level")
	}
	if f := v.GetString("logger.format"); f != "" {
		c.Format = f
	}
	if o := v.GetString("logger.output"); o != "" {
		c.Output = o
	}
	if l := v.GetString("logger.hook_level"); l != "" {
		c.HookLevel = l
	}
	if s := v.GetString("logger.date_suffix"); s != "" {
		c.DateSuffix = s
	}
	c.OutputFile = v.GetString("logger.output_file")
	c.RotateDaily = v.GetBool("logger.rotate_daily")
	c.IndexName = indexName
	c.SentryDSN = v.GetString("observes.sentry.endpoint")
	c.Meilisearch = getMeilisearchConfigs(v)
	c.Elasticsearch = getElasticsearchConfigs(v)
	c.OpenSearch = getOpenSearchConfigs(v)
	return c
}
