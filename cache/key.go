package cache

import (
	"encoding/json"
	"fmt"
)

// Filters narrow a metric request. Key order never affects identity.
type Filters map[string]any

// Key builds the cache key of a metric type and filter set.
// Map keys are marshaled in sorted order at every depth, so two filter maps
// with the same content produce the same key.
func Key(metricType string, filters Filters) string {
	if len(filters) == 0 {
		return metricType + ":{}"
	}
	b, err := json.Marshal(filters)
	if err != nil {
		// Unmarshalable values (funcs, channels) still get a stable, if lossy, key.
		return fmt.Sprintf("%s:%v", metricType, map[string]any(filters))
	}
	return metricType + ":" + string(b)
}
