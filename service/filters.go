package service

import (
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/ncobase/ohsmetrics/cache"
	"github.com/ncobase/ohsmetrics/ecode"
	"github.com/ncobase/ohsmetrics/query"
	"github.com/ncobase/ohsmetrics/types"
)

// Reserved filter keys. Every other key filters rows by equality.
const (
	FilterStart    = "start"
	FilterEnd      = "end"
	FilterPage     = "page"
	FilterPageSize = "page_size"
	FilterSortBy   = "sort_by"
	FilterOrder    = "order"
	FilterCursor   = "cursor"
	FilterDetails  = "include_details"
)

const dateLayout = "2006-01-02"

// request is the parsed form of metric filters.
type request struct {
	dateRange *query.DateRange
	page      int
	pageSize  int
	sortBy    string
	order     types.Order
	cursor    string
	details   bool
	equals    map[string]any
}

func (r *request) filters() query.Filters {
	return query.Filters{Equals: r.equals}
}

// parseFilters splits filters into reserved options and equality filters.
// A start without an end runs up to now.
func parseFilters(f cache.Filters, now time.Time) (*request, error) {
	const op = "service.filters"
	r := &request{page: 1}
	var start, end *time.Time
	for k, v := range f {
		var err error
		switch k {
		case FilterStart:
			var t time.Time
			if t, err = parseTime(v, false); err == nil {
				start = &t
			}
		case FilterEnd:
			var t time.Time
			if t, err = parseTime(v, true); err == nil {
				end = &t
			}
		case FilterPage:
			r.page, err = parseInt(v)
		case FilterPageSize:
			r.pageSize, err = parseInt(v)
		case FilterSortBy:
			r.sortBy = fmt.Sprint(v)
		case FilterOrder:
			r.order = types.ParseOrder(fmt.Sprint(v))
		case FilterCursor:
			r.cursor = fmt.Sprint(v)
		case FilterDetails:
			r.details, err = parseBool(v)
		default:
			if r.equals == nil {
				r.equals = make(map[string]any)
			}
			r.equals[k] = v
		}
		if err != nil {
			return nil, ecode.NewValidationError(op, ecode.FieldIsInvalid(k)).With("value", v)
		}
	}
	switch {
	case start != nil && end == nil:
		end = &now
	case start == nil && end != nil:
		return nil, ecode.NewValidationError(op, ecode.FieldIsRequired(FilterStart)+" when end is set")
	}
	if start != nil {
		r.dateRange = &query.DateRange{Start: *start, End: *end}
	}
	return r, nil
}

// parseTime accepts times, RFC 3339 strings and dates. A date used as an
// end bound covers the whole day.
func parseTime(v any, endOfDay bool) (time.Time, error) {
	switch t := v.(type) {
	case time.Time:
		return t, nil
	case string:
		if ts, err := time.Parse(time.RFC3339Nano, t); err == nil {
			return ts, nil
		}
		d, err := time.Parse(dateLayout, t)
		if err != nil {
			return time.Time{}, err
		}
		if endOfDay {
			d = d.Add(24*time.Hour - time.Nanosecond)
		}
		return d, nil
	}
	return time.Time{}, fmt.Errorf("unsupported time %T", v)
}

func parseInt(v any) (int, error) {
	if s, ok := v.(string); ok {
		return strconv.Atoi(strings.TrimSpace(s))
	}
	f, ok := types.ToFloat(v)
	if !ok || f != float64(int(f)) {
		return 0, fmt.Errorf("not an integer: %v", v)
	}
	return int(f), nil
}

func parseBool(v any) (bool, error) {
	switch b := v.(type) {
	case bool:
		return b, nil
	case string:
		return strconv.ParseBool(b)
	}
	return false, fmt.Errorf("not a boolean: %v", v)
}
