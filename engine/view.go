package engine

import (
	"slices"
	"strconv"
)

// ============================================================================
// RECORD VIEW — Zero-Copy Data Access Interface
// ============================================================================
// The grid never owns consumer data. It reads through this interface and
// refers to rows only by ordinal.
//
// Implementations:
//   SliceView      — wraps []Record (CSV, ad-hoc)
//   DomainView[T]  — reads typed structs via accessor functions (zero-copy)
//   SubView        — filtered subset (indices into parent, zero-copy)
//   ArrowView      — Arrow table columns (helpers package)
// ============================================================================

// RecordView provides indexed access to a dataset.
// The engine calls Dimension/Measure in tight loops — keep implementations fast.
type RecordView interface {
	Len() int
	Dimension(index int, key string) string
	Measure(index int, key string) float64
	DimensionKeys() []string // available dimension keys
	MeasureKeys() []string   // available measure keys
}

// formatMeasure renders a measure so numeric fields can group rows.
func formatMeasure(v float64) string {
	return strconv.FormatFloat(v, 'f', -1, 64)
}

// ============================================================================
// SLICE VIEW — wraps []Record
// ============================================================================

// SliceView wraps a []Record slice as a RecordView.
// Used by helpers.ParseCSV and ad-hoc consumers.
type SliceView struct {
	records []Record
	dimKeys []string
	mesKeys []string
}

// NewSliceView creates a RecordView from a []Record slice.
func NewSliceView(records []Record) RecordView {
	v := &SliceView{records: records}
	v.cacheKeys()
	return v
}

func (v *SliceView) cacheKeys() {
	dims, meas := keySet{}, keySet{}
	for _, r := range v.records {
		for k := range r.Dimensions {
			v.dimKeys = dims.add(v.dimKeys, k)
		}
		for k := range r.Measures {
			v.mesKeys = meas.add(v.mesKeys, k)
		}
	}
}

// keySet appends keys in first-seen order.
type keySet map[string]struct{}

func (s keySet) add(keys []string, k string) []string {
	if _, ok := s[k]; ok {
		return keys
	}
	s[k] = struct{}{}
	return append(keys, k)
}

func (v *SliceView) Len() int { return len(v.records) }

// Dimension returns the dimension value, or the formatted measure when key
// names a measure of the record.
func (v *SliceView) Dimension(i int, key string) string {
	if i < 0 || i >= len(v.records) {
		return ""
	}
	r := v.records[i]
	if s, ok := r.Dimensions[key]; ok {
		return s
	}
	if m, ok := r.Measures[key]; ok {
		return formatMeasure(m)
	}
	return ""
}

func (v *SliceView) Measure(i int, key string) float64 {
	if i < 0 || i >= len(v.records) {
		return 0
	}
	return v.records[i].Measures[key]
}

func (v *SliceView) DimensionKeys() []string { return v.dimKeys }
func (v *SliceView) MeasureKeys() []string   { return v.mesKeys }

// ============================================================================
// SUB VIEW — filtered subset (zero-copy)
// ============================================================================

// SubView is a filtered subset of a parent RecordView.
// Holds indices into the parent — no data copy.
type SubView struct {
	parent  RecordView
	indices []int
}

func newSubView(parent RecordView, indices []int) *SubView {
	return &SubView{parent: parent, indices: indices}
}

func (v *SubView) Len() int { return len(v.indices) }

// SourceIndex maps a row of the subset to its ordinal in the parent view.
func (v *SubView) SourceIndex(i int) int { return v.indices[i] }

func (v *SubView) Dimension(i int, key string) string {
	if i < 0 || i >= len(v.indices) {
		return ""
	}
	return v.parent.Dimension(v.indices[i], key)
}

func (v *SubView) Measure(i int, key string) float64 {
	if i < 0 || i >= len(v.indices) {
		return 0
	}
	return v.parent.Measure(v.indices[i], key)
}

func (v *SubView) DimensionKeys() []string { return v.parent.DimensionKeys() }
func (v *SubView) MeasureKeys() []string   { return v.parent.MeasureKeys() }

// ============================================================================
// DOMAIN ADAPTER — Zero-copy typed struct access
// ============================================================================
//
// Usage:
//
//	adapter := engine.NewDomainAdapter[Sale]().
//	    Dimension("region", func(s Sale) string { return s.Region }).
//	    Measure("sales", func(s Sale) float64 { return s.Amount })
//
//	grid, err := engine.New(cfg, adapter.Bind(sales))
//
// ============================================================================

// DomainAdapter builds a RecordView from typed structs. Accessors are
// declared once; Bind wraps any number of slices.
type DomainAdapter[T any] struct {
	dims  []string
	meas  []string
	index map[string]accessor[T]
}

// accessor reads one field of T; exactly one of text and num is set.
type accessor[T any] struct {
	text func(T) string
	num  func(T) float64
}

func NewDomainAdapter[T any]() *DomainAdapter[T] {
	return &DomainAdapter[T]{index: make(map[string]accessor[T])}
}

// Dimension registers a grouping accessor. Registering a key again replaces it.
func (a *DomainAdapter[T]) Dimension(key string, fn func(T) string) *DomainAdapter[T] {
	a.register(key, accessor[T]{text: fn})
	return a
}

// Measure registers a numeric accessor. A measure also groups by its
// formatted value.
func (a *DomainAdapter[T]) Measure(key string, fn func(T) float64) *DomainAdapter[T] {
	a.register(key, accessor[T]{num: fn})
	return a
}

// register keeps key listed under exactly one kind, in registration order.
func (a *DomainAdapter[T]) register(key string, acc accessor[T]) {
	if prev, ok := a.index[key]; ok {
		if (prev.text != nil) == (acc.text != nil) {
			a.index[key] = acc
			return
		}
		a.dims = slices.DeleteFunc(a.dims, func(k string) bool { return k == key })
		a.meas = slices.DeleteFunc(a.meas, func(k string) bool { return k == key })
	}
	if acc.text != nil {
		a.dims = append(a.dims, key)
	} else {
		a.meas = append(a.meas, key)
	}
	a.index[key] = acc
}

// Bind wraps data without copying it.
func (a *DomainAdapter[T]) Bind(data []T) RecordView {
	return &DomainView[T]{data: data, adapter: a}
}

// DomainView reads typed struct fields via registered accessor functions.
type DomainView[T any] struct {
	data    []T
	adapter *DomainAdapter[T]
}

func (v *DomainView[T]) Len() int { return len(v.data) }

func (v *DomainView[T]) lookup(i int, key string) (accessor[T], bool) {
	if i < 0 || i >= len(v.data) {
		return accessor[T]{}, false
	}
	acc, ok := v.adapter.index[key]
	return acc, ok
}

func (v *DomainView[T]) Dimension(i int, key string) string {
	acc, ok := v.lookup(i, key)
	switch {
	case !ok:
		return ""
	case acc.text != nil:
		return acc.text(v.data[i])
	default:
		return formatMeasure(acc.num(v.data[i]))
	}
}

func (v *DomainView[T]) Measure(i int, key string) float64 {
	if acc, ok := v.lookup(i, key); ok && acc.num != nil {
		return acc.num(v.data[i])
	}
	return 0
}

func (v *DomainView[T]) DimensionKeys() []string { return v.adapter.dims }
func (v *DomainView[T]) MeasureKeys() []string   { return v.adapter.meas }
