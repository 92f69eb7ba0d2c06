package analytics

import "time"

// Record is one answer of one person to one question.
type Record struct {
	PersonID    string            `json:"person_id"`
	QuestionID  string            `json:"question_id"`
	Value       float64           `json:"value"`
	Timestamp   time.Time         `json:"timestamp"`
	Category    string            `json:"category"`
	Subcategory string            `json:"subcategory,omitempty"`
	Attributes  map[string]string `json:"attributes,omitempty"`
}

// Attr returns the named attribute, "unknown" when absent or empty.
func (r Record) Attr(name string) string {
	if v := r.Attributes[name]; v != "" {
		return v
	}
	return Unknown
}

// Unknown labels records that lack a grouping attribute.
const Unknown = "unknown"

// Values extracts the record values.
func Values(records []Record) []float64 {
	out := make([]float64, len(records))
	for i, r := range records {
		out[i] = r.Value
	}
	return out
}

// groupBy partitions records by key, preserving first-seen order of keys.
func groupBy(records []Record, key func(Record) string) ([]string, map[string][]Record) {
	groups := make(map[string][]Record)
	order := make([]string, 0)
	for _, r := range records {
		k := key(r)
		if _, ok := groups[k]; !ok {
			order = append(order, k)
		}
		groups[k] = append(groups[k], r)
	}
	return order, groups
}
