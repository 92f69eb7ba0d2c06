// Package opensearch ships log entries to OpenSearch.
package opensearch

import (
	"bytes"
	"context"
	"crypto/tls"
	"encoding/json"
	"fmt"
	"net/http"
	"time"

	"github.com/ncobase/ohsmetrics/logging/logger"
	"github.com/ncobase/ohsmetrics/logging/logger/config"
	"github.com/opensearch-project/opensearch-go/v4"
	"github.com/opensearch-project/opensearch-go/v4/opensearchapi"
	"github.com/sirupsen/logrus"
)

func init() {
	logger.RegisterHookFactory(logger.HookOpenSearch, NewHook)
}

// Hook is a logrus hook for OpenSearch
type Hook struct {
	client *opensearchapi.Client
	cfg    *config.Config
	levels []logrus.Level
}

// NewHook creates a new OpenSearch hook from config
func NewHook(cfg *config.Config) (logrus.Hook, error) {
	if cfg.OpenSearch == nil {
		return nil, fmt.Errorf("opensearch config is nil")
	}

	osCfg := opensearch.Config{
		Addresses: cfg.OpenSearch.Addresses,
		Username:  cfg.OpenSearch.Username,
		Password:  cfg.OpenSearch.Password,
	}
	if cfg.OpenSearch.InsecureSkipTLS {
		osCfg.Transport = &http.Transport{TLSClientConfig: &tls.Config{InsecureSkipVerify: true}}
	}

	client, err := opensearchapi.NewClient(opensearchapi.Config{Client: osCfg})
	if err != nil {
		return nil, fmt.Errorf("failed to create opensearch client: %w", err)
	}

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if _, err := client.Info(ctx, nil); err != nil {
		return nil, fmt.Errorf("failed to connect to opensearch: %w", err)
	}

	return &Hook{client: client, cfg: cfg, levels: logger.HookLevels(cfg.HookLevel)}, nil
}

// Fire indexes the entry.
func (h *Hook) Fire(entry *logrus.Entry) error {
	body, err := json.Marshal(logger.Document(entry))
	if err != nil {
		return fmt.Errorf("failed to marshal log entry: %w", err)
	}

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	_, err = h.client.Index(ctx, opensearchapi.IndexReq{
		Index: logger.IndexName(h.cfg, entry.Time),
		Body:  bytes.NewReader(body),
	})
	if err != nil {
		return fmt.Errorf("failed to index log entry: %w", err)
	}
	return nil
}

// Levels returns the log levels this hook fires for
func (h *Hook) Levels() []logrus.Level {
	return h.levels
}
