package types

import (
	"errors"
	"sort"
	"strings"
	"time"
)

// Order represents sorting direction.
type Order string

const (
	Ascending  Order = "asc"  // Ascending order
	Descending Order = "desc" // Descending order
)

// ParseOrder parses a direction, defaulting to Ascending.
func ParseOrder(s string) Order {
	if strings.EqualFold(strings.TrimSpace(s), string(Descending)) {
		return Descending
	}
	return Ascending
}

// Criterion represents a single sorting criterion.
type Criterion struct {
	Field string `json:"field"`
	Order Order  `json:"order"`
}

// Row is a loosely typed record keyed by column name.
type Row = map[string]any

// RowSorter sorts rows by a list of criteria.
type RowSorter struct {
	Rows   []Row
	Getter func(row Row, field string) (any, error)
}

// Sort sorts rows in place, stable.
func (s *RowSorter) Sort(criteria []Criterion) error {
	getter := s.Getter
	if getter == nil {
		getter = FieldGetter
	}
	if len(criteria) == 0 {
		return nil
	}

	sort.SliceStable(s.Rows, func(i, j int) bool {
		for _, c := range criteria {
			a, err1 := getter(s.Rows[i], c.Field)
			b, err2 := getter(s.Rows[j], c.Field)
			if err1 != nil || err2 != nil {
				continue
			}
			cmp := CompareValues(a, b)
			if c.Order == Descending {
				cmp = -cmp
			}
			if cmp != 0 {
				return cmp < 0
			}
		}
		return false
	})
	return nil
}

// ErrFieldMissing is returned by FieldGetter for absent columns.
var ErrFieldMissing = errors.New("field missing")

// FieldGetter reads a column from a row.
func FieldGetter(row Row, field string) (any, error) {
	v, ok := row[field]
	if !ok {
		return nil, ErrFieldMissing
	}
	return v, nil
}

// CompareValues compares two values and returns -1, 0, or 1.
// Numbers of any width compare numerically, times chronologically and
// strings lexicographically. Incomparable values are equal.
func CompareValues(a, b any) int {
	if af, ok := ToFloat(a); ok {
		if bf, ok := ToFloat(b); ok {
			return compare(af, bf)
		}
	}
	switch av := a.(type) {
	case string:
		if bv, ok := b.(string); ok {
			return compare(av, bv)
		}
	case time.Time:
		if bv, ok := b.(time.Time); ok {
			return av.Compare(bv)
		}
	case bool:
		if bv, ok := b.(bool); ok && av != bv {
			if av {
				return 1
			}
			return -1
		}
	}
	return 0
}

func compare[T int | float64 | string](a, b T) int {
	if a < b {
		return -1
	} else if a > b {
		return 1
	}
	return 0
}

// ToFloat converts a numeric value to float64.
func ToFloat(v any) (float64, bool) {
	switch n := v.(type) {
	case int:
		return float64(n), true
	case int8:
		return float64(n), true
	case int16:
		return float64(n), true
	case int32:
		return float64(n), true
	case int64:
		return float64(n), true
	case uint:
		return float64(n), true
	case uint8:
		return float64(n), true
	case uint16:
		return float64(n), true
	case uint32:
		return float64(n), true
	case uint64:
		return float64(n), true
	case float32:
		return float64(n), true
	case float64:
		return n, true
	}
	return 0, false
}
