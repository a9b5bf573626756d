package engine

import (
	"strings"

	"github.com/dustin/go-humanize"
	"github.com/spektr-org/pivotgrid/schema"
)

// ============================================================================
// TABLE BUILDER — Produces TableData from the grid's matrix
// ============================================================================
// Rows and columns are laid out depth-first: a group's children, then its
// subtotal, and the grand total last. Subtotal and grand-total visibility
// follow the grid's display toggles; the matrix itself always holds them.
// ============================================================================

type headerKind int

const (
	headerLeaf headerKind = iota
	headerSubtotal
	headerGrandTotal
)

type header struct {
	id   NodeID
	kind headerKind
	path []string
}

func (h header) label() string {
	switch h.kind {
	case headerGrandTotal:
		return "Grand Total"
	case headerSubtotal:
		return strings.Join(h.path, " - ") + " Total"
	}
	if len(h.path) == 0 {
		return totalLabel
	}
	return strings.Join(h.path, " - ")
}

// displayHeaders lists the nodes of h that a table shows, in display order.
func displayHeaders(h *Hierarchy, subtotals, grandTotal bool) []header {
	var out []header
	var visit func(n *Node)
	visit = func(n *Node) {
		if n.IsLeaf() {
			out = append(out, header{id: n.ID, kind: headerLeaf, path: h.Path(n.ID)})
			return
		}
		for _, id := range n.Children() {
			visit(h.nodes[id])
		}
		if !n.IsRoot() && subtotals {
			out = append(out, header{id: n.ID, kind: headerSubtotal, path: h.Path(n.ID)})
		}
	}
	root := h.Root()
	visit(root)
	if !root.IsLeaf() && grandTotal {
		out = append(out, header{id: root.ID, kind: headerGrandTotal})
	}
	return out
}

// BuildTable renders the grid's matrix as a table: one label column per row
// field, then one value column per displayed column node and data field.
func BuildTable(g *Grid) *TableData {
	cfg := g.cfg
	rowFields := cfg.RowFields()
	rowHeaders := displayHeaders(g.rows, cfg.SubtotalsVisible(schema.AxisRows), cfg.GrandTotalVisible(schema.AxisRows))
	colHeaders := displayHeaders(g.cols, cfg.SubtotalsVisible(schema.AxisColumns), cfg.GrandTotalVisible(schema.AxisColumns))

	labelCols := max(len(rowFields), 1)
	columns := make([]Column, 0, labelCols+len(colHeaders)*len(cfg.Data))
	for i := 0; i < labelCols; i++ {
		c := Column{Key: "row", Label: "", Type: "text", Align: "left"}
		if i < len(rowFields) {
			c.Key, c.Label = rowFields[i].Name, rowFields[i].Caption
		}
		columns = append(columns, c)
	}
	for _, ch := range colHeaders {
		for _, d := range cfg.Data {
			label := ch.label()
			switch {
			case len(cfg.Columns) == 0:
				label = d.Label()
			case len(cfg.Data) > 1:
				label += " | " + d.Label()
			}
			columns = append(columns, Column{
				Key:   ch.label() + "/" + d.Name,
				Label: label,
				Type:  "number",
				Align: "right",
			})
		}
	}

	rows := make([][]string, 0, len(rowHeaders))
	for _, rh := range rowHeaders {
		row := make([]string, 0, len(columns))
		row = append(row, rowLabels(rh, labelCols)...)
		for _, ch := range colHeaders {
			cell, _ := g.matrix.Cell(rh.id, ch.id)
			for _, d := range cfg.Data {
				row = append(row, FormatValue(cell[d.Name]))
			}
		}
		rows = append(rows, row)
	}

	return &TableData{
		Title:   cfg.Name,
		Columns: columns,
		Rows:    rows,
	}
}

func rowLabels(h header, n int) []string {
	labels := make([]string, n)
	switch h.kind {
	case headerGrandTotal:
		labels[0] = "Grand Total"
	case headerSubtotal:
		copy(labels, h.path)
		labels[len(h.path)-1] += " Total"
	default:
		if len(h.path) == 0 {
			labels[0] = totalLabel
		}
		copy(labels, h.path)
	}
	return labels
}

// FormatValue renders a cell value with thousands separators and at most two
// decimals. Null renders empty.
func FormatValue(v Value) string {
	if !v.Valid {
		return ""
	}
	return humanize.CommafWithDigits(v.Float, 2)
}
