package data

import (
	"fmt"
	"reflect"
	"regexp"
	"strings"
	"sync"
	"time"

	"github.com/ncobase/ohsmetrics/ecode"
	"github.com/ncobase/ohsmetrics/types"
)

// Match reports whether row satisfies every filter.
// A missing column never matches except for neq.
func Match(row types.Row, filters []Filter) (bool, error) {
	for _, f := range filters {
		ok, err := matchOne(row, f)
		if err != nil || !ok {
			return false, err
		}
	}
	return true, nil
}

func matchOne(row types.Row, f Filter) (bool, error) {
	v, present := row[f.Column]
	switch f.Op {
	case OpEq:
		return present && equal(v, f.Value), nil
	case OpNeq:
		return !present || !equal(v, f.Value), nil
	case OpGt, OpGte, OpLt, OpLte:
		if !present || v == nil {
			return false, nil
		}
		c := types.CompareValues(v, f.Value)
		switch f.Op {
		case OpGt:
			return c > 0, nil
		case OpGte:
			return c >= 0, nil
		case OpLt:
			return c < 0, nil
		default:
			return c <= 0, nil
		}
	case OpLike, OpILike:
		pattern, ok := f.Value.(string)
		if !ok {
			return false, ecode.NewValidationError("filter", ecode.FieldIsInvalid(f.Column))
		}
		s, ok := v.(string)
		if !present || !ok {
			return false, nil
		}
		return Like(s, pattern, f.Op == OpILike), nil
	case OpIn:
		if !present {
			return false, nil
		}
		values, err := InValues(f.Value)
		if err != nil {
			return false, ecode.NewValidationError("filter", ecode.FieldIsInvalid(f.Column))
		}
		for _, candidate := range values {
			if equal(v, candidate) {
				return true, nil
			}
		}
		return false, nil
	}
	return false, ecode.NewValidationError("filter", ecode.NotSupported(fmt.Sprintf("operator %q", f.Op)))
}

func equal(a, b any) bool {
	if af, ok := types.ToFloat(a); ok {
		if bf, ok := types.ToFloat(b); ok {
			return af == bf
		}
	}
	if at, ok := a.(time.Time); ok {
		if bt, ok := b.(time.Time); ok {
			return at.Equal(bt)
		}
	}
	return reflect.DeepEqual(a, b)
}

// InValues flattens the value of an in filter into a slice.
func InValues(v any) ([]any, error) {
	rv := reflect.ValueOf(v)
	if rv.Kind() != reflect.Slice && rv.Kind() != reflect.Array {
		return nil, fmt.Errorf("in filter expects a list, got %T", v)
	}
	out := make([]any, rv.Len())
	for i := range out {
		out[i] = rv.Index(i).Interface()
	}
	return out, nil
}

var (
	likeMu    sync.Mutex
	likeCache = map[string]*regexp.Regexp{}
)

// LikeRegexp translates a SQL LIKE pattern into an anchored regular
// expression. % matches any run of characters, _ exactly one.
func LikeRegexp(pattern string, insensitive bool) string {
	var b strings.Builder
	if insensitive {
		b.WriteString("(?i)")
	}
	b.WriteString("^")
	for _, r := range pattern {
		switch r {
		case '%':
			b.WriteString(".*")
		case '_':
			b.WriteString(".")
		default:
			b.WriteString(regexp.QuoteMeta(string(r)))
		}
	}
	b.WriteString("$")
	return b.String()
}

// Like matches s against a SQL LIKE pattern.
func Like(s, pattern string, insensitive bool) bool {
	expr := LikeRegexp(pattern, insensitive)
	likeMu.Lock()
	re, ok := likeCache[expr]
	if !ok {
		re = regexp.MustCompile(expr)
		likeCache[expr] = re
	}
	likeMu.Unlock()
	return re.MatchString(s)
}
