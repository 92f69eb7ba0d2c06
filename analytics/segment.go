package analytics

import "sort"

// DefaultDemographics are the attributes segmented when none are requested.
var DefaultDemographics = []string{"age_band", "gender", "education", "experience"}

// Segment is one attribute value group.
type Segment struct {
	Value string  `json:"value"`
	Count int     `json:"count"`
	Mean  float64 `json:"mean"`
}

// Segmentation groups records by a single attribute.
type Segmentation struct {
	Attribute string    `json:"attribute"`
	Segments  []Segment `json:"segments"`
}

// SegmentBy groups records independently by each attribute. Segments are
// sorted by value; raw values are not retained.
func SegmentBy(records []Record, attributes []string) []Segmentation {
	if len(attributes) == 0 {
		attributes = DefaultDemographics
	}
	out := make([]Segmentation, 0, len(attributes))
	for _, attr := range attributes {
		order, groups := groupBy(records, func(r Record) string { return r.Attr(attr) })
		sort.Strings(order)

		seg := Segmentation{Attribute: attr, Segments: make([]Segment, 0, len(order))}
		for _, v := range order {
			rs := groups[v]
			seg.Segments = append(seg.Segments, Segment{Value: v, Count: len(rs), Mean: Mean(Values(rs))})
		}
		out = append(out, seg)
	}
	return out
}
