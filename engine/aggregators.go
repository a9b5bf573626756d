package engine

import (
	"math"
	"sort"

	"github.com/aclements/go-moremath/stats"
	"github.com/cockroachdb/errors"
	"github.com/spektr-org/pivotgrid/schema"
)

// ============================================================================
// AGGREGATORS — measure functions over selected rows of a RecordView
// ============================================================================
// An aggregate reads the measure at every selected row of the filtered view.
// It is a pure read: it never mutates the view or the selectors. orig and
// cols carry the row node's and column node's own selections for functions
// that need them (ratios of a cell to its row or column).
// ============================================================================

// AggregateFunc computes one measure over rows of view. The selectors may
// share storage with the hierarchy and must not be modified.
type AggregateFunc func(field string, rows Selector, view RecordView, orig, cols Selector) Value

var builtinAggregates = map[string]AggregateFunc{
	"sum":    aggSum,
	"count":  aggCount,
	"min":    aggMin,
	"max":    aggMax,
	"avg":    aggAvg,
	"prod":   aggProd,
	"var":    aggVar,
	"varp":   aggVarP,
	"stdev":  aggStdDev,
	"stdevp": aggStdDevP,
}

// measureValues collects field's measure at every selected row.
func measureValues(field string, rows Selector, view RecordView) []float64 {
	xs := make([]float64, 0, rows.Count(view.Len()))
	rows.Each(view.Len(), func(i int) {
		xs = append(xs, view.Measure(i, field))
	})
	return xs
}

func aggSum(field string, rows Selector, view RecordView, _, _ Selector) Value {
	total := 0.0
	rows.Each(view.Len(), func(i int) { total += view.Measure(i, field) })
	return Float(total)
}

func aggCount(_ string, rows Selector, view RecordView, _, _ Selector) Value {
	return Float(float64(rows.Count(view.Len())))
}

func aggMin(field string, rows Selector, view RecordView, _, _ Selector) Value {
	xs := measureValues(field, rows, view)
	if len(xs) == 0 {
		return Null
	}
	m := math.Inf(1)
	for _, x := range xs {
		m = math.Min(m, x)
	}
	return Float(m)
}

func aggMax(field string, rows Selector, view RecordView, _, _ Selector) Value {
	xs := measureValues(field, rows, view)
	if len(xs) == 0 {
		return Null
	}
	m := math.Inf(-1)
	for _, x := range xs {
		m = math.Max(m, x)
	}
	return Float(m)
}

func aggAvg(field string, rows Selector, view RecordView, _, _ Selector) Value {
	xs := measureValues(field, rows, view)
	if len(xs) == 0 {
		return Null
	}
	return Float(stats.Mean(xs))
}

func aggProd(field string, rows Selector, view RecordView, _, _ Selector) Value {
	xs := measureValues(field, rows, view)
	if len(xs) == 0 {
		return Null
	}
	p := 1.0
	for _, x := range xs {
		p *= x
	}
	return Float(p)
}

// Sample variance and deviation need two samples.
func aggVar(field string, rows Selector, view RecordView, _, _ Selector) Value {
	xs := measureValues(field, rows, view)
	if len(xs) < 2 {
		return Null
	}
	return Float(stats.Variance(xs))
}

func aggStdDev(field string, rows Selector, view RecordView, _, _ Selector) Value {
	xs := measureValues(field, rows, view)
	if len(xs) < 2 {
		return Null
	}
	return Float(stats.StdDev(xs))
}

func aggVarP(field string, rows Selector, view RecordView, _, _ Selector) Value {
	xs := measureValues(field, rows, view)
	if len(xs) == 0 {
		return Null
	}
	return Float(populationVariance(xs))
}

func aggStdDevP(field string, rows Selector, view RecordView, _, _ Selector) Value {
	xs := measureValues(field, rows, view)
	if len(xs) == 0 {
		return Null
	}
	return Float(math.Sqrt(populationVariance(xs)))
}

func populationVariance(xs []float64) float64 {
	n := float64(len(xs))
	if n < 2 {
		return 0
	}
	return stats.Variance(xs) * (n - 1) / n
}

// ============================================================================
// REGISTRY
// ============================================================================

type aggregateRegistry map[string]AggregateFunc

func newAggregateRegistry(custom map[string]AggregateFunc) aggregateRegistry {
	r := make(aggregateRegistry, len(builtinAggregates)+len(custom))
	for name, fn := range builtinAggregates {
		r[name] = fn
	}
	for name, fn := range custom {
		r[name] = fn
	}
	return r
}

func (r aggregateRegistry) lookup(name string) (AggregateFunc, error) {
	fn, ok := r[name]
	if !ok {
		return nil, errors.Mark(errors.Newf("unknown aggregate %q", name), schema.ErrConfiguration)
	}
	return fn, nil
}

// AggregateNames lists the built-in aggregate names, sorted.
func AggregateNames() []string {
	names := make([]string, 0, len(builtinAggregates))
	for name := range builtinAggregates {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}
