package analytics

import (
	"sort"
)

// RiskBand is an ordered risk category.
type RiskBand string

const (
	RiskLow      RiskBand = "low"
	RiskModerate RiskBand = "moderate"
	RiskHigh     RiskBand = "high"
	RiskVeryHigh RiskBand = "very_high"
)

// Bands lists every band in ascending order.
var Bands = []RiskBand{RiskLow, RiskModerate, RiskHigh, RiskVeryHigh}

// Thresholds are inclusive upper bounds of the low, moderate and high bands.
// Anything above High is very high.
type Thresholds struct {
	Low      float64 `json:"low"`
	Moderate float64 `json:"moderate"`
	High     float64 `json:"high"`
}

// DefaultScoreThresholds classify individual scores.
var DefaultScoreThresholds = Thresholds{Low: 1, Moderate: 3, High: 6}

// DefaultPercentageThresholds classify department level rates in percent.
// They are provisional; override them with analytics.percentage_thresholds.
var DefaultPercentageThresholds = Thresholds{Low: 10, Moderate: 25, High: 50}

// Classify maps v to its band.
func (t Thresholds) Classify(v float64) RiskBand {
	switch {
	case v <= t.Low:
		return RiskLow
	case v <= t.Moderate:
		return RiskModerate
	case v <= t.High:
		return RiskHigh
	}
	return RiskVeryHigh
}

// BandShare is the population of one band.
type BandShare struct {
	Band    RiskBand `json:"band"`
	Count   int      `json:"count"`
	Percent float64  `json:"percent"`
	// Hundredths is Percent in hundredths of a percent; the shares of a
	// distribution always add up to 10000.
	Hundredths int `json:"-"`
}

// Distribution classifies values and returns one share per band, in band order.
// Percentages are rounded to two decimals with the largest remainder method
// so that they add up to exactly 100 whenever values is not empty.
func Distribution(values []float64, t Thresholds) []BandShare {
	out := make([]BandShare, len(Bands))
	index := make(map[RiskBand]int, len(Bands))
	for i, b := range Bands {
		out[i].Band = b
		index[b] = i
	}
	for _, v := range values {
		out[index[t.Classify(v)]].Count++
	}

	n := len(values)
	if n == 0 {
		return out
	}

	const total = 10000
	type rem struct{ i, r int }
	rems := make([]rem, len(out))
	assigned := 0
	for i := range out {
		exact := out[i].Count * total
		out[i].Hundredths = exact / n
		assigned += out[i].Hundredths
		rems[i] = rem{i: i, r: exact % n}
	}
	sort.SliceStable(rems, func(a, b int) bool { return rems[a].r > rems[b].r })
	for k := 0; assigned < total; k++ {
		out[rems[k].i].Hundredths++
		assigned++
	}
	for i := range out {
		out[i].Percent = float64(out[i].Hundredths) / 100
	}
	return out
}
