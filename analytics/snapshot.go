package analytics

import (
	"sort"
	"time"
)

// IndexCategories names the categories composite indices are built from.
// Wellbeing is a distress scale: higher answers mean worse wellbeing.
type IndexCategories struct {
	Wellbeing  string `json:"wellbeing"`
	PPE        string `json:"ppe"`
	Training   string `json:"training"`
	Incidents  string `json:"incidents"`
	NearMiss   string `json:"near_miss"`
	Motivation string `json:"motivation"`
}

// DefaultIndexCategories matches the standard questionnaire.
var DefaultIndexCategories = IndexCategories{
	Wellbeing:  "wellbeing",
	PPE:        "ppe",
	Training:   "training",
	Incidents:  "incidents",
	NearMiss:   "near_miss",
	Motivation: "safety_motivation",
}

// SnapshotOptions tune BuildSnapshot. Zero values fall back to defaults.
type SnapshotOptions struct {
	IncludeDetails       bool
	Demographics         []string
	HighRiskThreshold    float64
	ScoreThresholds      Thresholds
	PercentageThresholds Thresholds
	DepartmentAttribute  string
	Categories           IndexCategories
	// Scales holds the maximum answer value per category, used to
	// normalize person means into 0..1. Missing categories use 1.
	Scales      map[string]float64
	GeneratedAt time.Time
}

func (o SnapshotOptions) withDefaults() SnapshotOptions {
	if o.HighRiskThreshold == 0 {
		o.HighRiskThreshold = DefaultScoreThresholds.High
	}
	if o.ScoreThresholds == (Thresholds{}) {
		o.ScoreThresholds = DefaultScoreThresholds
	}
	if o.PercentageThresholds == (Thresholds{}) {
		o.PercentageThresholds = DefaultPercentageThresholds
	}
	if o.DepartmentAttribute == "" {
		o.DepartmentAttribute = "department"
	}
	if o.Categories == (IndexCategories{}) {
		o.Categories = DefaultIndexCategories
	}
	return o
}

// DepartmentIndex is the composite picture of one department.
type DepartmentIndex struct {
	Department      string           `json:"department"`
	Persons         int              `json:"persons"`
	Responses       int              `json:"responses"`
	Components      SafetyComponents `json:"components"`
	SafetyIndex     float64          `json:"safety_index"`
	SafetyCulture   float64          `json:"safety_culture"`
	Vulnerability   float64          `json:"vulnerability"`
	HighRiskPercent float64          `json:"high_risk_percent"`
	Band            RiskBand         `json:"band"`
}

// Snapshot is an immutable aggregate of a record set.
type Snapshot struct {
	GeneratedAt      time.Time         `json:"generated_at"`
	Responses        int               `json:"responses"`
	Persons          int               `json:"persons"`
	Overall          Summary           `json:"overall"`
	Categories       []CategoryStats   `json:"categories"`
	Trend            []TrendPoint      `json:"trend"`
	WeeklyTrend      []WeeklyPoint     `json:"weekly_trend"`
	Segmentation     []Segmentation    `json:"segmentation"`
	Correlations     []Correlation     `json:"correlations"`
	RiskDistribution []BandShare       `json:"risk_distribution"`
	Departments      []DepartmentIndex `json:"departments"`
}

// BuildSnapshot computes every metric of records.
func BuildSnapshot(records []Record, opts SnapshotOptions) *Snapshot {
	opts = opts.withDefaults()
	means := PersonMeans(records)
	values := Values(records)

	return &Snapshot{
		GeneratedAt:      opts.GeneratedAt,
		Responses:        len(records),
		Persons:          countPersons(records),
		Overall:          Summarize(values, false),
		Categories:       AggregateCategories(records, opts.IncludeDetails),
		Trend:            DailyTrend(records),
		WeeklyTrend:      WeeklyTrend(records, opts.HighRiskThreshold),
		Segmentation:     SegmentBy(records, opts.Demographics),
		Correlations:     CorrelationMatrix(means),
		RiskDistribution: Distribution(values, opts.ScoreThresholds),
		Departments:      Departments(records, opts),
	}
}

func countPersons(records []Record) int {
	seen := make(map[string]struct{})
	for _, r := range records {
		seen[r.PersonID] = struct{}{}
	}
	return len(seen)
}

// personScores are a person's category means normalized to 0..1.
type personScores map[string]float64

func normalize(v, scale float64) float64 {
	if scale <= 0 {
		scale = 1
	}
	n := v / scale
	switch {
	case n < 0:
		return 0
	case n > 1:
		return 1
	}
	return n
}

// Departments computes department indices, sorted by department name.
func Departments(records []Record, opts SnapshotOptions) []DepartmentIndex {
	opts = opts.withDefaults()
	cats := opts.Categories

	order, groups := groupBy(records, func(r Record) string { return r.Attr(opts.DepartmentAttribute) })
	sort.Strings(order)

	out := make([]DepartmentIndex, 0, len(order))
	for _, dept := range order {
		rs := groups[dept]
		persons := make(map[string]personScores)
		for cat, byPerson := range PersonMeans(rs) {
			for p, m := range byPerson {
				if persons[p] == nil {
					persons[p] = make(personScores)
				}
				persons[p][cat] = normalize(m, opts.Scales[cat])
			}
		}

		var distress, ppe, training, culture, vulnerability []float64
		incidents := 0
		for _, s := range persons {
			if v, ok := s[cats.Wellbeing]; ok {
				distress = append(distress, v)
			}
			if v, ok := s[cats.PPE]; ok {
				ppe = append(ppe, v)
			}
			if v, ok := s[cats.Training]; ok {
				training = append(training, v)
			}
			prior := s[cats.Incidents] > 0
			if prior {
				incidents++
			}
			p, okP := s[cats.PPE]
			t, okT := s[cats.Training]
			n, okN := s[cats.NearMiss]
			if okP && okT && okN {
				culture = append(culture, SafetyCultureIndex(p, t, n))
			}
			w, okW := s[cats.Wellbeing]
			m, okM := s[cats.Motivation]
			if okW && okM {
				vulnerability = append(vulnerability, VulnerabilityIndex(w, m, prior))
			}
		}

		comp := SafetyComponents{
			Wellbeing:    round2((1 - Mean(distress)) * 100),
			PPE:          round2(Mean(ppe) * 100),
			Training:     round2(Mean(training) * 100),
			IncidentRate: round2(float64(incidents) * 100 / float64(len(persons))),
		}
		if len(distress) == 0 {
			comp.Wellbeing = 0
		}

		high := 0
		for _, r := range rs {
			if r.Value >= opts.HighRiskThreshold {
				high++
			}
		}
		highPct := round2(float64(high) * 100 / float64(len(rs)))

		out = append(out, DepartmentIndex{
			Department:      dept,
			Persons:         len(persons),
			Responses:       len(rs),
			Components:      comp,
			SafetyIndex:     round2(SafetyIndex(comp)),
			SafetyCulture:   round2(Mean(culture)),
			Vulnerability:   round2(Mean(vulnerability)),
			HighRiskPercent: highPct,
			Band:            opts.PercentageThresholds.Classify(highPct),
		})
	}
	return out
}
