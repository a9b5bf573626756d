package engine

import (
	"sort"
	"strings"
)

// ============================================================================
// FILTERS — Filtered View Builder
// ============================================================================
// Single-pass filter: checks ALL active field predicates per record in one
// loop. Returns a SubView (index list into parent) — zero data copy.
// ============================================================================

// Filter is a predicate over one field's value.
type Filter interface {
	// Test reports whether a row whose field holds value passes.
	Test(value string) bool
	// AlwaysTrue reports that the filter restricts nothing.
	AlwaysTrue() bool
	String() string
}

// ApplyFilters returns a view of records passing every active filter.
// Fields are AND-combined. With no active filter the original view is
// returned as is.
func ApplyFilters(view RecordView, filters map[string]Filter) RecordView {
	active := activeFilters(filters)
	if len(active) == 0 {
		return view
	}

	n := view.Len()
	indices := make([]int, 0, n)
	for i := 0; i < n; i++ {
		pass := true
		for _, f := range active {
			if !f.filter.Test(view.Dimension(i, f.field)) {
				pass = false
				break
			}
		}
		if pass {
			indices = append(indices, i)
		}
	}

	return newSubView(view, indices)
}

type fieldFilter struct {
	field  string
	filter Filter
}

// activeFilters drops absent and always-true filters and fixes the test
// order so filtering is deterministic.
func activeFilters(filters map[string]Filter) []fieldFilter {
	var active []fieldFilter
	for field, f := range filters {
		if f == nil || f.AlwaysTrue() {
			continue
		}
		active = append(active, fieldFilter{field: field, filter: f})
	}
	sort.Slice(active, func(i, j int) bool { return active[i].field < active[j].field })
	return active
}

// ============================================================================
// VALUES FILTER — OR-within-field value list
// ============================================================================

// ValuesFilter passes rows whose value is one of Values (case-insensitive).
// An empty list restricts nothing.
type ValuesFilter struct {
	Values []string
	set    map[string]bool
}

// NewValuesFilter builds a ValuesFilter over values.
func NewValuesFilter(values ...string) *ValuesFilter {
	return &ValuesFilter{Values: values, set: toLowerSet(values)}
}

func (f *ValuesFilter) Test(value string) bool {
	if len(f.Values) == 0 {
		return true
	}
	if f.set == nil {
		f.set = toLowerSet(f.Values)
	}
	return f.set[strings.ToLower(value)]
}

func (f *ValuesFilter) AlwaysTrue() bool { return len(f.Values) == 0 }

func (f *ValuesFilter) String() string { return "in [" + strings.Join(f.Values, ", ") + "]" }

// toLowerSet converts a string slice to a lowercase lookup set.
func toLowerSet(items []string) map[string]bool {
	set := make(map[string]bool, len(items))
	for _, item := range items {
		set[strings.ToLower(item)] = true
	}
	return set
}

// ============================================================================
// FILTER FUNC
// ============================================================================

// FilterFunc adapts a plain predicate to the Filter interface.
type FilterFunc func(value string) bool

func (f FilterFunc) Test(value string) bool { return f(value) }
func (f FilterFunc) AlwaysTrue() bool       { return f == nil }
func (f FilterFunc) String() string         { return "func" }
