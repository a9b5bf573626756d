package engine

import (
	"github.com/cockroachdb/errors"
	"github.com/spektr-org/pivotgrid/schema"
)

// ============================================================================
// MATRIX — breadth-first double traversal with cached row sets
// ============================================================================
// For every row node (breadth-first) the builder computes the grand-total
// cell against the column root, then walks the column hierarchy
// breadth-first with a worklist of (column node, candidate rows). The
// candidates of a column node are the rows its parent's intersection left
// over, so each level only scans what survived the level above. Column row
// sets are turned into bitsets once per refresh and shared by every row node.
// ============================================================================

// measure is a data field bound to its resolved aggregate.
type measure struct {
	name string
	fn   AggregateFunc
}

type matrixBuilder struct {
	view     RecordView // filtered view
	rows     *Hierarchy
	cols     *Hierarchy
	measures []measure

	colSets []*rowSet // by column NodeID, built lazily
}

func newMatrixBuilder(view RecordView, rows, cols *Hierarchy, measures []measure) *matrixBuilder {
	return &matrixBuilder{
		view:     view,
		rows:     rows,
		cols:     cols,
		measures: measures,
		colSets:  make([]*rowSet, cols.Len()),
	}
}

// compute builds the full matrix: one cell per (row node, column node).
func (b *matrixBuilder) compute() (DataMatrix, error) {
	m := make(DataMatrix, b.rows.Len())
	b.rows.Walk(func(n *Node) {
		m[n.ID] = b.rowValues(n)
	})

	if len(m) != b.rows.Len() {
		return nil, errors.AssertionFailedf("matrix has %d rows, hierarchy has %d nodes", len(m), b.rows.Len())
	}
	for id, cells := range m {
		if len(cells) != b.cols.Len() {
			return nil, errors.AssertionFailedf("matrix row %d has %d cells, column hierarchy has %d nodes",
				id, len(cells), b.cols.Len())
		}
	}
	return m, nil
}

type colItem struct {
	id         NodeID
	candidates Selector
}

// rowValues computes every cell of one row node.
func (b *matrixBuilder) rowValues(row *Node) map[NodeID]Cell {
	rowSel := row.ownRows()
	cells := make(map[NodeID]Cell, b.cols.Len())
	cells[RootID] = b.cell(rowSel, rowSel, AllRows())

	if b.cols.DimensionsCount() == 0 {
		return cells
	}

	var queue []colItem
	for _, id := range b.cols.Root().Children() {
		queue = append(queue, colItem{id: id, candidates: rowSel})
	}
	for head := 0; head < len(queue); head++ {
		it := queue[head]
		col := b.cols.nodes[it.id]
		set := b.colSet(col)
		inter := intersect(it.candidates, set)
		cells[col.ID] = b.cell(inter, rowSel, set.sel)
		if col.IsLeaf() {
			continue
		}
		for _, id := range col.Children() {
			queue = append(queue, colItem{id: id, candidates: inter})
		}
	}
	return cells
}

func (b *matrixBuilder) colSet(col *Node) *rowSet {
	if s := b.colSets[col.ID]; s != nil {
		return s
	}
	s := newRowSet(col.ownRows())
	b.colSets[col.ID] = s
	return s
}

// cell aggregates every measure over rows. An explicit empty selection is
// null for every measure.
func (b *matrixBuilder) cell(rows, orig, cols Selector) Cell {
	c := make(Cell, len(b.measures))
	for _, ms := range b.measures {
		if rows.Empty() {
			c[ms.name] = Null
			continue
		}
		c[ms.name] = ms.fn(ms.name, rows, b.view, orig, cols)
	}
	return c
}

// ============================================================================
// AGGREGATE RESOLUTION
// ============================================================================

// resolveAggregate picks the aggregate for field:
//  1. the explicit override, when given;
//  2. the field's data-field binding, when it is a configured measure;
//  3. the field's own default aggregate, when it declares one.
//
// ok is false when none applies; the field is then skipped. A field absent
// from cfg, or an aggregate name nobody registered, is a configuration error.
func resolveAggregate(cfg *schema.Config, aggs aggregateRegistry, field, override string) (fn AggregateFunc, ok bool, err error) {
	f, exists := cfg.Field(field)
	if !exists {
		return nil, false, schema.UnknownFieldError(field)
	}
	name := override
	if name == "" {
		if d, isData := cfg.DataField(field); isData {
			name = d.Aggregate
		}
	}
	if name == "" {
		name = f.Aggregate
	}
	if name == "" {
		return nil, false, nil
	}
	fn, err = aggs.lookup(name)
	if err != nil {
		return nil, false, errors.Wrapf(err, "field %q", field)
	}
	return fn, true, nil
}

// resolveMeasures binds every configured data field to its aggregate.
func resolveMeasures(cfg *schema.Config, aggs aggregateRegistry) ([]measure, error) {
	out := make([]measure, 0, cfg.DataFieldsCount())
	for _, d := range cfg.Data {
		fn, ok, err := resolveAggregate(cfg, aggs, d.Name, "")
		if err != nil {
			return nil, err
		}
		if ok {
			out = append(out, measure{name: d.Name, fn: fn})
		}
	}
	return out, nil
}
