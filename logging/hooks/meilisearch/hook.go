// Package meilisearch ships log entries to Meilisearch.
package meilisearch

import (
	"fmt"

	"github.com/google/uuid"
	"github.com/meilisearch/meilisearch-go"
	"github.com/ncobase/ohsmetrics/logging/logger"
	"github.com/ncobase/ohsmetrics/logging/logger/config"
	"github.com/sirupsen/logrus"
)

const primaryKey = "id"

func init() {
	logger.RegisterHookFactory(logger.HookMeilisearch, NewHook)
}

// Hook is a logrus hook for Meilisearch
type Hook struct {
	client meilisearch.ServiceManager
	cfg    *config.Config
	levels []logrus.Level
}

// NewHook creates a new Meilisearch hook from config
func NewHook(cfg *config.Config) (logrus.Hook, error) {
	if cfg.Meilisearch == nil {
		return nil, fmt.Errorf("meilisearch config is nil")
	}

	client := meilisearch.New(cfg.Meilisearch.Host, meilisearch.WithAPIKey(cfg.Meilisearch.APIKey))
	if _, err := client.Health(); err != nil {
		return nil, fmt.Errorf("failed to connect to meilisearch: %w", err)
	}

	return &Hook{client: client, cfg: cfg, levels: logger.HookLevels(cfg.HookLevel)}, nil
}

// Fire adds the entry as a document. Meilisearch indexes asynchronously,
// the returned task is not awaited.
func (h *Hook) Fire(entry *logrus.Entry) error {
	doc := logger.Document(entry)
	doc[primaryKey] = uuid.NewString()

	pk := primaryKey
	_, err := h.client.Index(logger.IndexName(h.cfg, entry.Time)).
		AddDocuments([]map[string]any{doc}, &meilisearch.DocumentOptions{PrimaryKey: &pk})
	if err != nil {
		return fmt.Errorf("failed to index log entry: %w", err)
	}
	return nil
}

// Levels returns the log levels this hook fires for
func (h *Hook) Levels() []logrus.Level {
	return h.levels
}
