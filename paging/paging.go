package paging

import (
	"encoding/base64"
	"encoding/json"
	"errors"
	"fmt"
	"time"
)

// Mode selects how pages are addressed.
type Mode string

const (
	ModeOffset Mode = "offset"
	ModeCursor Mode = "cursor"
)

// Info describes the page a query returned.
type Info struct {
	Mode            Mode   `json:"mode"`
	Page            int    `json:"page,omitempty"`
	PageSize        int    `json:"page_size"`
	Total           int    `json:"total,omitempty"`
	TotalPages      int    `json:"total_pages,omitempty"`
	HasNextPage     bool   `json:"has_next_page"`
	HasPreviousPage bool   `json:"has_previous_page"`
	NextCursor      string `json:"next_cursor,omitempty"`
}

// Offset returns the row offset of a 1-based page.
func Offset(page, pageSize int) int {
	if page < 1 || pageSize < 1 {
		return 0
	}
	return (page - 1) * pageSize
}

// TotalPages returns ceil(total / pageSize).
func TotalPages(total, pageSize int) int {
	if total <= 0 || pageSize <= 0 {
		return 0
	}
	return (total + pageSize - 1) / pageSize
}

// OffsetInfo builds offset mode page info for count rows returned out of total.
func OffsetInfo(page, pageSize, count, total int) Info {
	offset := Offset(page, pageSize)
	return Info{
		Mode:            ModeOffset,
		Page:            page,
		PageSize:        pageSize,
		Total:           total,
		TotalPages:      TotalPages(total, pageSize),
		HasNextPage:     offset+count < total,
		HasPreviousPage: page > 1,
	}
}

// Trim cuts a limit+1 probe back to limit and reports whether more items exist.
func Trim[T any](items []T, limit int) ([]T, bool) {
	if limit >= 0 && len(items) > limit {
		return items[:limit], true
	}
	if items == nil {
		items = make([]T, 0)
	}
	return items, false
}

// ErrInvalidCursor is returned for cursors this package did not produce.
var ErrInvalidCursor = errors.New("invalid cursor")

type cursorValue struct {
	Type  string          `json:"t"`
	Value json.RawMessage `json:"v"`
}

// EncodeCursor encodes a sort key value into an opaque cursor.
func EncodeCursor(v any) (string, error) {
	c := cursorValue{Type: "json"}
	if t, ok := v.(time.Time); ok {
		c.Type = "time"
		v = t.Format(time.RFC3339Nano)
	}
	raw, err := json.Marshal(v)
	if err != nil {
		return "", fmt.Errorf("encode cursor: %w", err)
	}
	c.Value = raw
	b, err := json.Marshal(c)
	if err != nil {
		return "", fmt.Errorf("encode cursor: %w", err)
	}
	return base64.RawURLEncoding.EncodeToString(b), nil
}

// DecodeCursor restores the sort key value of a cursor.
// Numbers come back as float64, times as time.Time.
func DecodeCursor(cursor string) (any, error) {
	b, err := base64.RawURLEncoding.DecodeString(cursor)
	if err != nil {
		return nil, ErrInvalidCursor
	}
	var c cursorValue
	if err := json.Unmarshal(b, &c); err != nil || len(c.Value) == 0 {
		return nil, ErrInvalidCursor
	}
	switch c.Type {
	case "time":
		var s string
		if err := json.Unmarshal(c.Value, &s); err != nil {
			return nil, ErrInvalidCursor
		}
		t, err := time.Parse(time.RFC3339Nano, s)
		if err != nil {
			return nil, ErrInvalidCursor
		}
		return t, nil
	case "json":
		var v any
		if err := json.Unmarshal(c.Value, &v); err != nil {
			return nil, ErrInvalidCursor
		}
		return v, nil
	}
	return nil, ErrInvalidCursor
}
