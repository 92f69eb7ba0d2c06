package analytics

import (
	"fmt"
	"sort"
	"time"
)

// TrendPoint is the activity of one calendar day.
type TrendPoint struct {
	Date      string  `json:"date"`
	Count     int     `json:"count"`
	MeanScore float64 `json:"mean_score"`
}

// DailyTrend buckets records by UTC calendar date, ascending.
func DailyTrend(records []Record) []TrendPoint {
	order, groups := groupBy(records, func(r Record) string {
		return r.Timestamp.UTC().Format(time.DateOnly)
	})
	sort.Strings(order)

	out := make([]TrendPoint, 0, len(order))
	for _, day := range order {
		rs := groups[day]
		out = append(out, TrendPoint{Date: day, Count: len(rs), MeanScore: Mean(Values(rs))})
	}
	return out
}

// WeeklyPoint is the activity of one ISO-8601 week.
type WeeklyPoint struct {
	Week            string    `json:"week"`
	WeekStart       time.Time `json:"week_start"`
	WeekEnd         time.Time `json:"week_end"`
	Count           int       `json:"count"`
	MeanScore       float64   `json:"mean_score"`
	HighRiskPercent float64   `json:"high_risk_percent"`
}

// ISOWeek returns the ISO-8601 label ("2024-W01") and the Monday of the week
// containing t, both in UTC.
func ISOWeek(t time.Time) (string, time.Time) {
	t = t.UTC()
	year, week := t.ISOWeek()
	offset := (int(t.Weekday()) + 6) % 7
	start := time.Date(t.Year(), t.Month(), t.Day()-offset, 0, 0, 0, 0, time.UTC)
	return fmt.Sprintf("%04d-W%02d", year, week), start
}

// WeeklyTrend buckets records by ISO week. HighRiskPercent is the share of
// records with a value at or above highRiskThreshold. Sorted by week start.
func WeeklyTrend(records []Record, highRiskThreshold float64) []WeeklyPoint {
	starts := make(map[string]time.Time)
	order, groups := groupBy(records, func(r Record) string {
		label, start := ISOWeek(r.Timestamp)
		starts[label] = start
		return label
	})

	out := make([]WeeklyPoint, 0, len(order))
	for _, label := range order {
		rs := groups[label]
		high := 0
		for _, r := range rs {
			if r.Value >= highRiskThreshold {
				high++
			}
		}
		start := starts[label]
		out = append(out, WeeklyPoint{
			Week:            label,
			WeekStart:       start,
			WeekEnd:         start.AddDate(0, 0, 6),
			Count:           len(rs),
			MeanScore:       Mean(Values(rs)),
			HighRiskPercent: round2(float64(high) * 100 / float64(len(rs))),
		})
	}
	sort.Slice(out, func(i, j int) bool { return out[i].WeekStart.Before(out[j].WeekStart) })
	return out
}
