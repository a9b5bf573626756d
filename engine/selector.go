package engine

import (
	"fmt"

	"golang.org/x/tools/container/intsets"
)

// ============================================================================
// SELECTOR — which rows of the filtered view an aggregate reads
// ============================================================================
// "All rows" and "no rows" are different answers: the zero Selector is
// unrestricted, while RowsOf(nil) is an explicit empty list. Intersection
// treats the former as identity and the latter as absorbing.
// ============================================================================

// Selector picks rows of the filtered view by ordinal.
type Selector struct {
	rows       []int
	restricted bool
}

// AllRows selects every row of the filtered view.
func AllRows() Selector { return Selector{} }

// RowsOf selects exactly rows. The slice is not copied; the engine only
// reads it.
func RowsOf(rows []int) Selector {
	if rows == nil {
		rows = []int{}
	}
	return Selector{rows: rows, restricted: true}
}

// All reports whether the selector is unrestricted.
func (s Selector) All() bool { return !s.restricted }

// Empty reports whether the selector is an explicit empty list.
func (s Selector) Empty() bool { return s.restricted && len(s.rows) == 0 }

// Rows returns the selected ordinals, or nil when unrestricted.
func (s Selector) Rows() []int { return s.rows }

// Count returns how many rows of a view of length n are selected.
func (s Selector) Count(n int) int {
	if !s.restricted {
		return n
	}
	return len(s.rows)
}

// Each calls fn for every selected ordinal of a view of length n, in order.
func (s Selector) Each(n int, fn func(i int)) {
	if !s.restricted {
		for i := 0; i < n; i++ {
			fn(i)
		}
		return
	}
	for _, i := range s.rows {
		fn(i)
	}
}

func (s Selector) String() string {
	if !s.restricted {
		return "all"
	}
	return fmt.Sprint(s.rows)
}

// ============================================================================
// ROW SET — membership index for one hierarchy node
// ============================================================================

// rowSet holds a node's owned rows both as the ordered list and as a sparse
// bitset for O(1) membership. Built once per node per refresh.
type rowSet struct {
	sel  Selector
	bits intsets.Sparse
}

func newRowSet(sel Selector) *rowSet {
	s := &rowSet{sel: sel}
	for _, i := range sel.rows {
		s.bits.Insert(i)
	}
	return s
}

func (s *rowSet) has(i int) bool {
	return s.sel.All() || s.bits.Has(i)
}

// intersect returns the rows of candidates that also belong to set, in
// candidate order. Neither input is modified.
func intersect(candidates Selector, set *rowSet) Selector {
	if set.sel.All() {
		return candidates
	}
	if candidates.All() {
		return set.sel
	}
	if candidates.Empty() || set.sel.Empty() {
		return RowsOf(nil)
	}
	out := make([]int, 0, min(len(candidates.rows), len(set.sel.rows)))
	for _, i := range candidates.rows {
		if set.bits.Has(i) {
			out = append(out, i)
		}
	}
	return RowsOf(out)
}
