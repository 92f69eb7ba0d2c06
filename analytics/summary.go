package analytics

import (
	"github.com/montanaflynn/stats"
)

// Summary holds descriptive statistics of a value set.
type Summary struct {
	Count  int       `json:"count"`
	Mean   float64   `json:"mean"`
	Min    float64   `json:"min"`
	Max    float64   `json:"max"`
	Values []float64 `json:"values,omitempty"`
}

// Summarize computes count, mean, min and max. Raw values are kept only when
// keepValues is set. An empty input yields a zero Summary.
func Summarize(values []float64, keepValues bool) Summary {
	if len(values) == 0 {
		return Summary{}
	}
	data := stats.Float64Data(values)
	mean, _ := stats.Mean(data)
	lo, _ := stats.Min(data)
	hi, _ := stats.Max(data)

	s := Summary{Count: len(values), Mean: mean, Min: lo, Max: hi}
	if keepValues {
		s.Values = append([]float64(nil), values...)
	}
	return s
}

// Mean returns the arithmetic mean, 0 for no values.
func Mean(values []float64) float64 {
	m, err := stats.Mean(values)
	if err != nil {
		return 0
	}
	return m
}

func round2(v float64) float64 {
	r, err := stats.Round(v, 2)
	if err != nil {
		return v
	}
	return r
}
