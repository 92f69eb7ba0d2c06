package query

import (
	"fmt"
	"strconv"
	"time"

	"github.com/ncobase/ohsmetrics/analytics"
	"github.com/ncobase/ohsmetrics/data"
	"github.com/ncobase/ohsmetrics/types"
)

// Column names of the survey tables.
const (
	ColumnID          = "id"
	ColumnPersonID    = "person_id"
	ColumnQuestionID  = "question_id"
	ColumnValue       = "value"
	ColumnSubmittedAt = "submitted_at"
	ColumnCategory    = "category"
	ColumnSubcategory = "subcategory"
)

func str(v any) string {
	switch s := v.(type) {
	case nil:
		return ""
	case string:
		return s
	case []byte:
		return string(s)
	case float64:
		return strconv.FormatFloat(s, 'f', -1, 64)
	}
	return fmt.Sprint(v)
}

func rowKey(row types.Row, keys ...string) string {
	for _, k := range keys {
		if v, ok := row[k]; ok && v != nil {
			return str(v)
		}
	}
	return ""
}

func index(rows []types.Row, keys ...string) map[string]types.Row {
	out := make(map[string]types.Row, len(rows))
	for _, row := range rows {
		if k := rowKey(row, keys...); k != "" {
			out[k] = row
		}
	}
	return out
}

func number(v any) (float64, bool) {
	if f, ok := types.ToFloat(v); ok {
		return f, true
	}
	if s, ok := v.(string); ok {
		f, err := strconv.ParseFloat(s, 64)
		return f, err == nil
	}
	return 0, false
}

var timeLayouts = []string{time.RFC3339Nano, "2006-01-02 15:04:05", "2006-01-02"}

func timestamp(v any) time.Time {
	switch t := v.(type) {
	case time.Time:
		return t
	case string:
		for _, layout := range timeLayouts {
			if ts, err := time.Parse(layout, t); err == nil {
				return ts
			}
		}
	}
	return time.Time{}
}

// joinRecords joins response rows with their person and question rows,
// keeps the joined rows matching filters and converts them to records.
// Rows without a numeric value are skipped and counted.
func joinRecords(responses, persons, questions []types.Row, tsColumn string, filters []data.Filter) ([]analytics.Record, int, error) {
	byPerson := index(persons, ColumnID, ColumnPersonID)
	byQuestion := index(questions, ColumnID, ColumnQuestionID)

	records := make([]analytics.Record, 0, len(responses))
	skipped := 0
	for _, resp := range responses {
		pid := str(resp[ColumnPersonID])
		qid := str(resp[ColumnQuestionID])
		person := byPerson[pid]
		question := byQuestion[qid]

		joined := make(types.Row, len(person)+len(resp)+2)
		attrs := make(map[string]string, len(person))
		for k, v := range person {
			joined[k] = v
			if k != ColumnID && k != ColumnPersonID && v != nil {
				attrs[k] = str(v)
			}
		}
		joined[ColumnCategory] = question[ColumnCategory]
		joined[ColumnSubcategory] = question[ColumnSubcategory]
		for k, v := range resp {
			joined[k] = v
		}

		ok, err := data.Match(joined, filters)
		if err != nil {
			return nil, 0, err
		}
		if !ok {
			continue
		}

		value, ok := number(resp[ColumnValue])
		if !ok {
			skipped++
			continue
		}
		category := str(question[ColumnCategory])
		if category == "" {
			category = analytics.Unknown
		}
		records = append(records, analytics.Record{
			PersonID:    pid,
			QuestionID:  qid,
			Value:       value,
			Timestamp:   timestamp(resp[tsColumn]),
			Category:    category,
			Subcategory: str(question[ColumnSubcategory]),
			Attributes:  attrs,
		})
	}
	return records, skipped, nil
}
