package analytics

import (
	"math"
	"sort"
)

// Pearson returns the Pearson correlation coefficient of x and y using
//
//	r = (nΣxy - ΣxΣy) / sqrt((nΣx² - (Σx)²)(nΣy² - (Σy)²))
//
// It returns 0 when the lengths differ, the input is empty, or either series
// is constant.
func Pearson(x, y []float64) float64 {
	n := len(x)
	if n == 0 || n != len(y) {
		return 0
	}

	var sx, sy, sxy, sx2, sy2 float64
	for i := 0; i < n; i++ {
		sx += x[i]
		sy += y[i]
		sxy += x[i] * y[i]
		sx2 += x[i] * x[i]
		sy2 += y[i] * y[i]
	}
	fn := float64(n)
	den := math.Sqrt((fn*sx2 - sx*sx) * (fn*sy2 - sy*sy))
	if den == 0 || math.IsNaN(den) {
		return 0
	}
	return (fn*sxy - sx*sy) / den
}

// Correlation is the coefficient between two categories over the persons
// that answered both.
type Correlation struct {
	A       string  `json:"a"`
	B       string  `json:"b"`
	R       float64 `json:"r"`
	Persons int     `json:"persons"`
}

// PersonMeans returns, per category, each person's mean value.
func PersonMeans(records []Record) map[string]map[string]float64 {
	sums := make(map[string]map[string][2]float64)
	for _, r := range records {
		byPerson, ok := sums[r.Category]
		if !ok {
			byPerson = make(map[string][2]float64)
			sums[r.Category] = byPerson
		}
		acc := byPerson[r.PersonID]
		byPerson[r.PersonID] = [2]float64{acc[0] + r.Value, acc[1] + 1}
	}

	out := make(map[string]map[string]float64, len(sums))
	for cat, byPerson := range sums {
		means := make(map[string]float64, len(byPerson))
		for p, acc := range byPerson {
			means[p] = acc[0] / acc[1]
		}
		out[cat] = means
	}
	return out
}

// CorrelationMatrix correlates every pair of categories over person means.
// Pairs are ordered by category name; pairs sharing fewer than two persons
// are skipped.
func CorrelationMatrix(means map[string]map[string]float64) []Correlation {
	cats := make([]string, 0, len(means))
	for c := range means {
		cats = append(cats, c)
	}
	sort.Strings(cats)

	var out []Correlation
	for i := 0; i < len(cats); i++ {
		for j := i + 1; j < len(cats); j++ {
			a, b := means[cats[i]], means[cats[j]]
			persons := make([]string, 0, len(a))
			for p := range a {
				if _, ok := b[p]; ok {
					persons = append(persons, p)
				}
			}
			if len(persons) < 2 {
				continue
			}
			sort.Strings(persons)
			x := make([]float64, len(persons))
			y := make([]float64, len(persons))
			for k, p := range persons {
				x[k], y[k] = a[p], b[p]
			}
			out = append(out, Correlation{A: cats[i], B: cats[j], R: Pearson(x, y), Persons: len(persons)})
		}
	}
	return out
}
