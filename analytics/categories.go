package analytics

import "sort"

// SubcategoryStats summarizes one subcategory.
type SubcategoryStats struct {
	Subcategory string `json:"subcategory"`
	Summary
}

// CategoryStats summarizes one category and its subcategories.
type CategoryStats struct {
	Category string `json:"category"`
	Summary
	Subcategories []SubcategoryStats `json:"subcategories,omitempty"`
}

// AggregateCategories groups records by category and subcategory.
// Raw values are included only with includeDetails. Results are sorted by
// category name, subcategories likewise.
func AggregateCategories(records []Record, includeDetails bool) []CategoryStats {
	order, groups := groupBy(records, func(r Record) string { return r.Category })
	sort.Strings(order)

	out := make([]CategoryStats, 0, len(order))
	for _, cat := range order {
		rs := groups[cat]
		cs := CategoryStats{Category: cat, Summary: Summarize(Values(rs), includeDetails)}

		subOrder, subs := groupBy(rs, func(r Record) string { return r.Subcategory })
		sort.Strings(subOrder)
		for _, sub := range subOrder {
			if sub == "" {
				continue
			}
			cs.Subcategories = append(cs.Subcategories, SubcategoryStats{
				Subcategory: sub,
				Summary:     Summarize(Values(subs[sub]), includeDetails),
			})
		}
		out = append(out, cs)
	}
	return out
}
