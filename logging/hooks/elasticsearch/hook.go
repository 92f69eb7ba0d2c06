// Package elasticsearch ships log entries to Elasticsearch.
// Import it for side effects to make the sink available to the logger.
package elasticsearch

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/elastic/go-elasticsearch/v8"
	"github.com/ncobase/ohsmetrics/logging/logger"
	"github.com/ncobase/ohsmetrics/logging/logger/config"
	"github.com/sirupsen/logrus"
)

const writeTimeout = 5 * time.Second

func init() {
	logger.RegisterHookFactory(logger.HookElasticsearch, NewHook)
}

// Hook is a logrus hook for Elasticsearch
type Hook struct {
	client *elasticsearch.Client
	cfg    *config.Config
	levels []logrus.Level
}

// NewHook creates a new Elasticsearch hook from config
func NewHook(cfg *config.Config) (logrus.Hook, error) {
	if cfg.Elasticsearch == nil {
		return nil, fmt.Errorf("elasticsearch config is nil")
	}

	client, err := elasticsearch.NewClient(elasticsearch.Config{
		Addresses: cfg.Elasticsearch.Addresses,
		Username:  cfg.Elasticsearch.Username,
		Password:  cfg.Elasticsearch.Password,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to create elasticsearch client: %w", err)
	}

	res, err := client.Info()
	if err != nil {
		return nil, fmt.Errorf("failed to connect to elasticsearch: %w", err)
	}
	defer res.Body.Close()
	if res.IsError() {
		return nil, fmt.Errorf("elasticsearch connection error: %s", res.Status())
	}

	return &Hook{client: client, cfg: cfg, levels: logger.HookLevels(cfg.HookLevel)}, nil
}

// Fire indexes the entry.
func (h *Hook) Fire(entry *logrus.Entry) error {
	body, err := json.Marshal(logger.Document(entry))
	if err != nil {
		return fmt.Errorf("failed to marshal log entry: %w", err)
	}

	ctx, cancel := context.WithTimeout(context.Background(), writeTimeout)
	defer cancel()

	res, err := h.client.Index(
		logger.IndexName(h.cfg, entry.Time),
		bytes.NewReader(body),
		h.client.Index.WithContext(ctx),
		h.client.Index.WithRefresh("false"),
	)
	if err != nil {
		return fmt.Errorf("failed to index log entry: %w", err)
	}
	defer res.Body.Close()

	if res.IsError() {
		return fmt.Errorf("elasticsearch index error: %s", res.Status())
	}
	return nil
}

// Levels returns the log levels this hook fires for
func (h *Hook) Levels() []logrus.Level {
	return h.levels
}
