package logger

import (
	"fmt"
	"sort"
	"sync"
	"time"

	"github.com/ncobase/ohsmetrics/logging/logger/config"
	"github.com/sirupsen/logrus"
)

// HookType represents the type of logging hook
type HookType string

const (
	HookElasticsearch HookType = "elasticsearch"
	HookOpenSearch    HookType = "opensearch"
	HookMeilisearch   HookType = "meilisearch"
	HookSentry        HookType = "sentry"
)

// HookFactory creates a logrus hook from configuration
type HookFactory func(cfg *config.Config) (logrus.Hook, error)

var (
	hookFactories = make(map[HookType]HookFactory)
	hookMu        sync.RWMutex
)

// RegisterHookFactory registers a hook factory for a given type.
// Sink packages call it from init, so importing a sink enables it.
func RegisterHookFactory(hookType HookType, factory HookFactory) {
	hookMu.Lock()
	defer hookMu.Unlock()
	hookFactories[hookType] = factory
}

// GetRegisteredHooks returns the registered hook types, sorted.
func GetRegisteredHooks() []HookType {
	hookMu.RLock()
	defer hookMu.RUnlock()
	hooks := make([]HookType, 0, len(hookFactories))
	for hookType := range hookFactories {
		hooks = append(hooks, hookType)
	}
	sort.Slice(hooks, func(i, j int) bool { return hooks[i] < hooks[j] })
	return hooks
}

// enabled reports whether cfg configures the sink of hookType.
func enabled(hookType HookType, cfg *config.Config) bool {
	switch hookType {
	case HookElasticsearch:
		return cfg.Elasticsearch != nil && len(cfg.Elasticsearch.Addresses) > 0
	case HookOpenSearch:
		return cfg.OpenSearch != nil && len(cfg.OpenSearch.Addresses) > 0
	case HookMeilisearch:
		return cfg.Meilisearch != nil && cfg.Meilisearch.Host != ""
	case HookSentry:
		return cfg.SentryDSN != ""
	}
	return false
}

// initHooks attaches every registered hook whose sink is configured.
func (l *Logger) initHooks(cfg *config.Config) error {
	hookMu.RLock()
	defer hookMu.RUnlock()

	for hookType, factory := range hookFactories {
		if !enabled(hookType, cfg) {
			continue
		}
		hook, err := factory(cfg)
		if err != nil {
			return fmt.Errorf("failed to create %s hook: %w", hookType, err)
		}
		l.AddHook(hook)
	}
	return nil
}

// HookLevels returns the levels at or above the named threshold.
// An unparsable name yields warning and above.
func HookLevels(threshold string) []logrus.Level {
	min, err := logrus.ParseLevel(threshold)
	if err != nil {
		min = logrus.WarnLevel
	}
	levels := make([]logrus.Level, 0, len(logrus.AllLevels))
	for _, lvl := range logrus.AllLevels {
		if lvl <= min {
			levels = append(levels, lvl)
		}
	}
	return levels
}

// Document flattens an entry into the document shape every search sink indexes.
// Error values are stringified so they survive JSON encoding.
func Document(entry *logrus.Entry) map[string]any {
	doc := make(map[string]any, len(entry.Data)+3)
	for k, v := range entry.Data {
		if err, ok := v.(error); ok {
			doc[k] = err.Error()
			continue
		}
		doc[k] = v
	}
	doc["@timestamp"] = entry.Time.UTC().Format(time.RFC3339Nano)
	doc["level"] = entry.Level.String()
	doc["message"] = entry.Message
	return doc
}

// IndexName returns base, suffixed with the entry day when rotating daily.
func IndexName(cfg *config.Config, t time.Time) string {
	if !cfg.RotateDaily || cfg.DateSuffix == "" {
		return cfg.IndexName
	}
	return fmt.Sprintf("%s-%s", cfg.IndexName, t.UTC().Format(cfg.DateSuffix))
}
