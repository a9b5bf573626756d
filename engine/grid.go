package engine

import (
	"log/slog"
	"slices"

	"github.com/cockroachdb/errors"
	"github.com/spektr-org/pivotgrid/schema"
)

// ============================================================================
// GRID — refresh pipeline and read facade
// ============================================================================
// Pipeline: source → filters → filtered view → row/column hierarchies →
// data matrix → EventUpdated.
//
// Every mutating operation recomputes synchronously before it returns. A
// refresh builds all new state aside and commits it only when the matrix is
// complete; if it fails the previously published view, hierarchies and
// matrix stay in place and the mutation is rolled back.
//
// A Grid is not safe for concurrent use.
// ============================================================================

// Grid is a pivot over one data source.
type Grid struct {
	cfg    *schema.Config
	log    *slog.Logger
	aggs   aggregateRegistry
	source RecordView

	filters   map[string]Filter
	listeners []Listener

	// Published state, replaced wholesale by refresh.
	filtered RecordView
	rows     *Hierarchy
	cols     *Hierarchy
	matrix   DataMatrix
}

// New validates cfg, compiles its pre-filters and computes the first matrix.
// The grid works on its own copy of cfg.
func New(cfg *schema.Config, source RecordView, opts ...Option) (*Grid, error) {
	if cfg == nil {
		return nil, errors.Mark(errors.New("nil config"), schema.ErrConfiguration)
	}
	if source == nil {
		source = NewSliceView(nil)
	}
	o := applyOptions(opts)
	g := &Grid{
		cfg:       cfg.Clone(),
		log:       o.Logger,
		aggs:      newAggregateRegistry(o.Aggregates),
		source:    source,
		filters:   make(map[string]Filter),
		listeners: o.Listeners,
	}
	if err := g.cfg.Validate(); err != nil {
		return nil, err
	}
	for field, spec := range g.cfg.PreFilters {
		f, err := FilterFromSpec(spec)
		if err != nil {
			return nil, errors.Wrapf(err, "pre-filter on %q", field)
		}
		if !f.AlwaysTrue() {
			g.filters[field] = f
		}
	}
	if g.cfg.ChartMode.Enabled {
		g.clearRows()
	}
	if err := g.refresh(true); err != nil {
		return nil, err
	}
	return g, nil
}

// ============================================================================
// REFRESH
// ============================================================================

// Refresh re-filters the source and recomputes the matrix.
func (g *Grid) Refresh() error { return g.refresh(true) }

// RefreshData replaces the data source and recomputes everything.
func (g *Grid) RefreshData(source RecordView) error {
	if source == nil {
		source = NewSliceView(nil)
	}
	prev := g.source
	g.source = source
	return g.commitOrUndo(true, func() { g.source = prev })
}

func (g *Grid) refresh(refilter bool) error {
	filtered := g.filtered
	if refilter || filtered == nil {
		filtered = ApplyFilters(g.source, g.filters)
	}
	rows := BuildHierarchy(schema.AxisRows, g.cfg.RowFields(), filtered)
	cols := BuildHierarchy(schema.AxisColumns, g.cfg.ColumnFields(), filtered)

	matrix, err := g.computeMatrix(rows, cols, filtered)
	if err != nil {
		g.log.Warn("⚠️ pivot refresh aborted, keeping previous matrix", "error", err)
		return err
	}

	g.filtered, g.rows, g.cols, g.matrix = filtered, rows, cols, matrix
	g.log.Debug("🔄 pivot refreshed",
		"source", g.source.Len(),
		"filtered", filtered.Len(),
		"rowNodes", rows.Len(),
		"colNodes", cols.Len(),
		"cells", matrix.Size())
	g.emit(EventUpdated)
	return nil
}

func (g *Grid) computeMatrix(rows, cols *Hierarchy, filtered RecordView) (DataMatrix, error) {
	if err := rows.validate(); err != nil {
		return nil, err
	}
	if err := cols.validate(); err != nil {
		return nil, err
	}
	measures, err := resolveMeasures(g.cfg, g.aggs)
	if err != nil {
		return nil, err
	}
	return newMatrixBuilder(filtered, rows, cols, measures).compute()
}

// commitOrUndo refreshes; when that fails it runs undo so the grid's inputs
// match the still-published state again.
func (g *Grid) commitOrUndo(refilter bool, undo func()) error {
	if err := g.refresh(refilter); err != nil {
		undo()
		return err
	}
	return nil
}

// ============================================================================
// FILTERS
// ============================================================================

// ApplyFilter sets the filter of field and recomputes. A nil or always-true
// filter clears it.
func (g *Grid) ApplyFilter(field string, f Filter) error {
	if _, ok := g.cfg.Field(field); !ok {
		return schema.UnknownFieldError(field)
	}
	prev, had := g.filters[field]
	if f == nil || f.AlwaysTrue() {
		delete(g.filters, field)
	} else {
		g.filters[field] = f
	}
	return g.commitOrUndo(true, func() {
		if had {
			g.filters[field] = prev
		} else {
			delete(g.filters, field)
		}
	})
}

// ClearFilter removes the filter of field and recomputes.
func (g *Grid) ClearFilter(field string) error { return g.ApplyFilter(field, nil) }

// Filter returns the active filter of field.
func (g *Grid) Filter(field string) (Filter, bool) {
	f, ok := g.filters[field]
	return f, ok
}

// IsFieldFiltered reports whether field has a restricting filter.
func (g *Grid) IsFieldFiltered(field string) bool {
	f, ok := g.filters[field]
	return ok && !f.AlwaysTrue()
}

// ============================================================================
// LAYOUT
// ============================================================================

// MoveField moves field between axes and recomputes when the layout
// changed. It reports whether it did.
func (g *Grid) MoveField(field string, from, to schema.Axis, position int) (bool, error) {
	prev := g.cfg.Clone()
	changed, err := g.cfg.MoveField(field, from, to, position)
	if err != nil || !changed {
		return false, err
	}
	if err := g.commitOrUndo(false, func() { g.cfg = prev }); err != nil {
		return false, err
	}
	return true, nil
}

// Sort flips the sort order of a grouping field of axis and reorders that
// hierarchy. Node identities are unchanged, so the matrix is not recomputed.
func (g *Grid) Sort(axis schema.Axis, field string) error {
	if _, ok := g.cfg.Field(field); !ok {
		return schema.UnknownFieldError(field)
	}
	h := g.hierarchy(axis)
	if h == nil || g.cfg.AxisOf(field) != axis {
		return errors.Mark(errors.Newf("field %q is not on the %s axis", field, axis), schema.ErrConfiguration)
	}
	order, err := g.cfg.ToggleSort(field)
	if err != nil {
		return err
	}
	h.Sort(field, order)
	g.emit(EventSortChanged)
	return nil
}

func (g *Grid) hierarchy(axis schema.Axis) *Hierarchy {
	switch axis {
	case schema.AxisRows:
		return g.rows
	case schema.AxisColumns:
		return g.cols
	}
	return nil
}

// ============================================================================
// DISPLAY TOGGLES
// ============================================================================
// Totals are always computed; toggles only change what renderers show.

// ToggleSubtotals flips subtotal visibility on axis.
func (g *Grid) ToggleSubtotals(axis schema.Axis) {
	if g.cfg.ToggleSubtotals(axis) {
		g.emit(EventConfigChanged)
	}
}

// ToggleGrandTotal flips grand-total visibility on axis.
func (g *Grid) ToggleGrandTotal(axis schema.Axis) {
	if g.cfg.ToggleGrandTotal(axis) {
		g.emit(EventConfigChanged)
	}
}

// SubtotalsVisible reports whether subtotals of axis are shown.
func (g *Grid) SubtotalsVisible(axis schema.Axis) bool { return g.cfg.SubtotalsVisible(axis) }

// GrandTotalVisible reports whether the grand total of axis is shown.
func (g *Grid) GrandTotalVisible(axis schema.Axis) bool { return g.cfg.GrandTotalVisible(axis) }

// ToggleStackedBars flips stacked rendering of a bar chart view.
func (g *Grid) ToggleStackedBars() {
	if g.cfg.ToggleStackedBars() {
		g.emit(EventConfigChanged)
	}
}

// StackedBars reports whether bars are stacked.
func (g *Grid) StackedBars() bool { return g.cfg.ChartMode.StackedBars }

// ViewType returns the configured presentation.
func (g *Grid) ViewType() ViewType {
	cm := g.cfg.ChartMode
	switch {
	case !cm.Enabled:
		return ViewTabular
	case cm.Type == "pie":
		return ViewPieChart
	case cm.StackedBars:
		return ViewStackedBarChart
	}
	return ViewBarChart
}

// SetViewType switches the presentation. Chart views aggregate every column
// leaf against the row grand total, so switching to one moves all row
// fields out of the layout and recomputes when that changed anything.
func (g *Grid) SetViewType(vt ViewType) error {
	switch vt {
	case ViewTabular:
		g.cfg.ChartMode.Enabled = false
	case ViewBarChart, ViewStackedBarChart, ViewPieChart:
		prev := g.cfg.Clone()
		g.cfg.ChartMode.Enabled = true
		g.cfg.ChartMode.Type = "bar"
		if vt == ViewPieChart {
			g.cfg.ChartMode.Type = "pie"
		}
		g.cfg.ChartMode.StackedBars = vt == ViewStackedBarChart
		if g.clearRows() {
			if err := g.commitOrUndo(false, func() { g.cfg = prev }); err != nil {
				return err
			}
		}
	default:
		return nil
	}
	g.emit(EventConfigChanged)
	return nil
}

// clearRows moves every row field out of the layout.
func (g *Grid) clearRows() bool {
	changed := false
	for len(g.cfg.Rows) > 0 {
		moved, err := g.cfg.MoveField(g.cfg.Rows[0], schema.AxisRows, schema.AxisNone, -1)
		if err != nil || !moved {
			break
		}
		changed = true
	}
	return changed
}

// ============================================================================
// EVENTS
// ============================================================================

// Subscribe registers l for every later event.
func (g *Grid) Subscribe(l Listener) {
	if l != nil {
		g.listeners = append(g.listeners, l)
	}
}

func (g *Grid) emit(e Event) {
	for _, l := range g.listeners {
		if l != nil {
			l(e)
		}
	}
}

// ============================================================================
// READ FACADE
// ============================================================================

// Config returns a copy of the current layout.
func (g *Grid) Config() *schema.Config { return g.cfg.Clone() }

// Source returns the raw data source.
func (g *Grid) Source() RecordView { return g.source }

// FilteredView returns the rows passing every active filter.
func (g *Grid) FilteredView() RecordView { return g.filtered }

// Rows returns the row hierarchy.
func (g *Grid) Rows() *Hierarchy { return g.rows }

// Columns returns the column hierarchy.
func (g *Grid) Columns() *Hierarchy { return g.cols }

// Matrix returns the published matrix. Callers must not modify it.
func (g *Grid) Matrix() DataMatrix { return g.matrix }

// Cell returns the value of field at row × col. With an empty field the
// first data field is used. When field is a configured measure and override
// is empty or matches its aggregate, the cached matrix is read; otherwise
// the value is recomputed from the nodes' rows. Unknown nodes read as null.
func (g *Grid) Cell(field string, row, col NodeID, override string) (Value, error) {
	if field == "" {
		if len(g.cfg.Data) == 0 {
			return Null, errors.Mark(errors.New("no data field configured"), schema.ErrConfiguration)
		}
		field = g.cfg.Data[0].Name
	}
	if _, ok := g.cfg.Field(field); !ok {
		return Null, schema.UnknownFieldError(field)
	}
	rn, okRow := g.rows.Node(row)
	cn, okCol := g.cols.Node(col)
	if !okRow || !okCol {
		return Null, nil
	}

	if d, ok := g.cfg.DataField(field); ok && (override == "" || override == d.Aggregate) {
		if c, ok := g.matrix.Cell(row, col); ok {
			if v, ok := c[field]; ok {
				return v, nil
			}
		}
		return Null, nil
	}

	cell, err := g.ComputeCell(rn.Rows(), cn.Rows(), []string{field}, override)
	if err != nil {
		return Null, err
	}
	if v, ok := cell[field]; ok {
		return v, nil
	}
	return Null, nil
}

// ComputeCell aggregates fields over the intersection of rows and cols,
// bypassing the matrix. Fields with no resolvable aggregate are omitted.
func (g *Grid) ComputeCell(rows, cols Selector, fields []string, override string) (Cell, error) {
	measures := make([]measure, 0, len(fields))
	for _, f := range fields {
		fn, ok, err := resolveAggregate(g.cfg, g.aggs, f, override)
		if err != nil {
			return nil, err
		}
		if ok {
			measures = append(measures, measure{name: f, fn: fn})
		}
	}
	b := &matrixBuilder{view: g.filtered, measures: measures}
	return b.cell(intersect(rows, newRowSet(cols)), rows, cols), nil
}

// FieldValues returns the distinct values of field in the raw source,
// sorted, blank first when present. keep, when set, selects which rows
// contribute.
func (g *Grid) FieldValues(field string, keep func(string) bool) ([]string, error) {
	if _, ok := g.cfg.Field(field); !ok {
		return nil, schema.UnknownFieldError(field)
	}
	seen := make(map[string]bool)
	var values []string
	for i := 0; i < g.source.Len(); i++ {
		v := g.source.Dimension(i, field)
		if keep != nil && !keep(v) {
			continue
		}
		if !seen[v] {
			seen[v] = true
			values = append(values, v)
		}
	}
	slices.SortFunc(values, compareValues)
	return values, nil
}
