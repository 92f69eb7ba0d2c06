package query

import (
	"sort"

	"github.com/ncobase/ohsmetrics/data"
)

// Range bounds a column, inclusively. A nil bound is open.
type Range struct {
	Min any `json:"min,omitempty"`
	Max any `json:"max,omitempty"`
}

// Filters narrow joined rows by equality, range and SQL LIKE style
// patterns (% any run, _ one character).
type Filters struct {
	Equals   map[string]any    `json:"equals,omitempty"`
	Ranges   map[string]Range  `json:"ranges,omitempty"`
	Patterns map[string]string `json:"patterns,omitempty"`
}

// Empty reports whether no filter is set.
func (f Filters) Empty() bool {
	return len(f.Equals) == 0 && len(f.Ranges) == 0 && len(f.Patterns) == 0
}

func sortedKeys[V any](m map[string]V) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}

// List flattens f into provider filters in a stable order.
func (f Filters) List() []data.Filter {
	out := make([]data.Filter, 0, len(f.Equals)+2*len(f.Ranges)+len(f.Patterns))
	for _, col := range sortedKeys(f.Equals) {
		v := f.Equals[col]
		if _, err := data.InValues(v); err == nil {
			out = append(out, data.Filter{Column: col, Op: data.OpIn, Value: v})
			continue
		}
		out = append(out, data.Filter{Column: col, Op: data.OpEq, Value: v})
	}
	for _, col := range sortedKeys(f.Ranges) {
		r := f.Ranges[col]
		if r.Min != nil {
			out = append(out, data.Filter{Column: col, Op: data.OpGte, Value: r.Min})
		}
		if r.Max != nil {
			out = append(out, data.Filter{Column: col, Op: data.OpLte, Value: r.Max})
		}
	}
	for _, col := range sortedKeys(f.Patterns) {
		out = append(out, data.Filter{Column: col, Op: data.OpLike, Value: f.Patterns[col]})
	}
	return out
}
