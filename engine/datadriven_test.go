package engine

import (
	"encoding/csv"
	"fmt"
	"strconv"
	"strings"
	"testing"

	"github.com/cockroachdb/datadriven"
	"github.com/spektr-org/pivotgrid/schema"
	"github.com/stretchr/testify/require"
)

// pivotTest holds the state of one datadriven file.
type pivotTest struct {
	t       *testing.T
	header  []string
	numeric map[string]bool
	view    RecordView
	grid    *Grid
	events  []Event
}

// TestPivotDataDriven runs the scenarios under testdata/. Commands:
//
//	load numeric=(f,...)            CSV input, numeric columns are measures
//	layout rows=(..) cols=(..) data=(field:agg,..)
//	filter                          input: "field op term"
//	clear-filter field=f
//	matrix                          every (row, column) cell, breadth-first
//	cell [field=f] row=a/b col=x/y [agg=name]
//	chart | table | rows | cols
//	move field=f from=axis to=axis [pos=n]
//	sort axis=rows field=f
//	toggle subtotals|grandtotal axis=rows
//	view type=bar
//	values field=f
//	events
func TestPivotDataDriven(t *testing.T) {
	datadriven.Walk(t, "testdata", func(t *testing.T, path string) {
		pt := &pivotTest{t: t}
		datadriven.RunTest(t, path, func(t *testing.T, d *datadriven.TestData) string {
			return pt.run(t, d)
		})
	})
}

func (pt *pivotTest) run(t *testing.T, d *datadriven.TestData) string {
	switch d.Cmd {
	case "load":
		return pt.load(t, d)

	case "layout":
		cfg := pt.layout(d)
		g, err := New(cfg, pt.view, WithListener(func(e Event) { pt.events = append(pt.events, e) }))
		if err != nil {
			return fmt.Sprintf("error: %v", err)
		}
		pt.grid = g
		pt.events = nil
		return "ok"

	case "filter":
		field, f, err := ParseFilter(d.Input)
		if err == nil {
			err = pt.grid.ApplyFilter(field, f)
		}
		if err != nil {
			return fmt.Sprintf("error: %v", err)
		}
		return fmt.Sprintf("filtered: %d", pt.grid.FilteredView().Len())

	case "clear-filter":
		var field string
		d.ScanArgs(t, "field", &field)
		if err := pt.grid.ClearFilter(field); err != nil {
			return fmt.Sprintf("error: %v", err)
		}
		return fmt.Sprintf("filtered: %d", pt.grid.FilteredView().Len())

	case "matrix":
		return pt.printMatrix()

	case "cell":
		var field, agg string
		if d.HasArg("field") {
			d.ScanArgs(t, "field", &field)
		}
		if d.HasArg("agg") {
			d.ScanArgs(t, "agg", &agg)
		}
		row := findNode(pt.grid.Rows(), argPath(d, "row"))
		col := findNode(pt.grid.Columns(), argPath(d, "col"))
		v, err := pt.grid.Cell(field, row, col, agg)
		if err != nil {
			return fmt.Sprintf("error: %v", err)
		}
		return v.String()

	case "chart":
		data, err := pt.grid.ChartData()
		require.NoError(t, err)
		return printChart(data)

	case "table":
		return printTable(BuildTable(pt.grid))

	case "rows":
		return printLeaves(pt.grid.Rows())

	case "cols":
		return printLeaves(pt.grid.Columns())

	case "move":
		var field, from, to string
		pos := -1
		d.ScanArgs(t, "field", &field)
		d.ScanArgs(t, "from", &from)
		d.ScanArgs(t, "to", &to)
		if d.HasArg("pos") {
			d.ScanArgs(t, "pos", &pos)
		}
		fromAxis, err := schema.ParseAxis(from)
		require.NoError(t, err)
		toAxis, err := schema.ParseAxis(to)
		require.NoError(t, err)
		moved, err := pt.grid.MoveField(field, fromAxis, toAxis, pos)
		if err != nil {
			return fmt.Sprintf("error: %v", err)
		}
		return fmt.Sprintf("moved: %t", moved)

	case "sort":
		var axis, field string
		d.ScanArgs(t, "axis", &axis)
		d.ScanArgs(t, "field", &field)
		a, err := schema.ParseAxis(axis)
		require.NoError(t, err)
		if err := pt.grid.Sort(a, field); err != nil {
			return fmt.Sprintf("error: %v", err)
		}
		return "ok"

	case "toggle":
		var axis string
		d.ScanArgs(t, "axis", &axis)
		a, err := schema.ParseAxis(axis)
		require.NoError(t, err)
		switch {
		case d.HasArg("subtotals"):
			pt.grid.ToggleSubtotals(a)
		case d.HasArg("grandtotal"):
			pt.grid.ToggleGrandTotal(a)
		default:
			d.Fatalf(t, "toggle what?")
		}
		return "ok"

	case "view":
		var typ string
		d.ScanArgs(t, "type", &typ)
		vt := map[string]ViewType{
			"table": ViewTabular, "bar": ViewBarChart,
			"stacked_bar": ViewStackedBarChart, "pie": ViewPieChart,
		}[typ]
		if err := pt.grid.SetViewType(vt); err != nil {
			return fmt.Sprintf("error: %v", err)
		}
		return fmt.Sprintf("view: %s, rows: %v", pt.grid.ViewType(), pt.grid.Config().Rows)

	case "values":
		var field string
		d.ScanArgs(t, "field", &field)
		values, err := pt.grid.FieldValues(field, nil)
		if err != nil {
			return fmt.Sprintf("error: %v", err)
		}
		return fmt.Sprintf("%q", values)

	case "events":
		out := make([]string, len(pt.events))
		for i, e := range pt.events {
			out[i] = e.String()
		}
		pt.events = nil
		return strings.Join(out, "\n")
	}
	d.Fatalf(t, "unknown command %q", d.Cmd)
	return ""
}

func (pt *pivotTest) load(t *testing.T, d *datadriven.TestData) string {
	pt.numeric = make(map[string]bool)
	for _, arg := range d.CmdArgs {
		if arg.Key == "numeric" {
			for _, v := range arg.Vals {
				pt.numeric[v] = true
			}
		}
	}
	rows, err := csv.NewReader(strings.NewReader(d.Input)).ReadAll()
	require.NoError(t, err)
	pt.header = rows[0]
	records := make([]Record, 0, len(rows)-1)
	for _, row := range rows[1:] {
		r := Record{Dimensions: map[string]string{}, Measures: map[string]float64{}}
		for i, v := range row {
			key := pt.header[i]
			if pt.numeric[key] {
				f, err := strconv.ParseFloat(v, 64)
				require.NoError(t, err)
				r.Measures[key] = f
			} else {
				r.Dimensions[key] = v
			}
		}
		records = append(records, r)
	}
	pt.view = NewSliceView(records)
	return fmt.Sprintf("%d rows", len(records))
}

func (pt *pivotTest) layout(d *datadriven.TestData) *schema.Config {
	cfg := &schema.Config{Name: "test"}
	for _, h := range pt.header {
		cfg.Fields = append(cfg.Fields, schema.FieldMeta{Name: h, Numeric: pt.numeric[h]})
	}
	for _, arg := range d.CmdArgs {
		switch arg.Key {
		case "rows":
			cfg.Rows = arg.Vals
		case "cols":
			cfg.Columns = arg.Vals
		case "data":
			for _, v := range arg.Vals {
				name, agg, _ := strings.Cut(v, ":")
				cfg.Data = append(cfg.Data, schema.DataFieldMeta{Name: name, Aggregate: agg})
			}
		}
	}
	return cfg
}

// argPath reads a "/"-separated node path; missing or empty means the root.
func argPath(d *datadriven.TestData, key string) []string {
	for _, arg := range d.CmdArgs {
		if arg.Key == key && len(arg.Vals) > 0 && arg.Vals[0] != "" {
			return strings.Split(arg.Vals[0], "/")
		}
	}
	return nil
}

func findNode(h *Hierarchy, path []string) NodeID {
	n := h.Root()
	for _, v := range path {
		id, ok := n.Child(v)
		if !ok {
			return NoNode
		}
		n, _ = h.Node(id)
	}
	return n.ID
}

func nodeLabel(h *Hierarchy, id NodeID) string {
	path := h.Path(id)
	if len(path) == 0 {
		return "(total)"
	}
	return strings.Join(path, "/")
}

func (pt *pivotTest) printMatrix() string {
	g := pt.grid
	cfg := g.Config()
	var b strings.Builder
	fmt.Fprintf(&b, "filtered: %d\n", g.FilteredView().Len())
	g.Rows().Walk(func(rn *Node) {
		b.WriteString(nodeLabel(g.Rows(), rn.ID) + ":")
		g.Columns().Walk(func(cn *Node) {
			cell, ok := g.Matrix().Cell(rn.ID, cn.ID)
			if !ok {
				fmt.Fprintf(&b, " %s=missing", nodeLabel(g.Columns(), cn.ID))
				return
			}
			vals := make([]string, 0, len(cfg.Data))
			for _, d := range cfg.Data {
				if len(cfg.Data) == 1 {
					vals = append(vals, cell[d.Name].String())
				} else {
					vals = append(vals, d.Name+":"+cell[d.Name].String())
				}
			}
			fmt.Fprintf(&b, " %s=%s", nodeLabel(g.Columns(), cn.ID), strings.Join(vals, ","))
		})
		b.WriteString("\n")
	})
	return b.String()
}

func printChart(data *ChartData) string {
	var b strings.Builder
	fmt.Fprintf(&b, "hAxis: %q\n", data.HAxisLabel)
	fmt.Fprintf(&b, "categories: %s\n", strings.Join(data.ColNames, ", "))
	for _, s := range data.Series {
		vals := make([]string, len(s.Values))
		for i, v := range s.Values {
			vals[i] = v.String()
		}
		name := s.Name
		if s.Secondary {
			name += " (secondary)"
		}
		fmt.Fprintf(&b, "%s: %s\n", name, strings.Join(vals, ", "))
	}
	fmt.Fprintf(&b, "stacked: %t\n", data.StackedBars)
	return b.String()
}

func printTable(td *TableData) string {
	var b strings.Builder
	labels := make([]string, len(td.Columns))
	for i, c := range td.Columns {
		labels[i] = c.Label
	}
	b.WriteString(strings.Join(labels, " | ") + "\n")
	for _, row := range td.Rows {
		b.WriteString(strings.Join(row, " | ") + "\n")
	}
	return b.String()
}

func printLeaves(h *Hierarchy) string {
	leaves := h.Leaves()
	names := make([]string, len(leaves))
	for i, l := range leaves {
		names[i] = l.Name
	}
	return strings.Join(names, ", ")
}
