package engine

import (
	"strconv"
)

// ============================================================================
// PIVOTGRID ENGINE TYPES
// ============================================================================

// Record is a single data row with string dimensions and numeric measures.
type Record struct {
	Dimensions map[string]string  `json:"dimensions"`
	Measures   map[string]float64 `json:"measures"`
}

// ============================================================================
// VALUE — nullable scalar
// ============================================================================

// Value is an aggregate result. An invalid Value is null: the cell's
// row/column intersection holds no rows. Null is distinct from zero.
type Value struct {
	Float float64
	Valid bool
}

// Null is the value of an empty intersection.
var Null = Value{}

// Float wraps v as a valid Value.
func Float(v float64) Value { return Value{Float: v, Valid: true} }

// IsNull reports whether v is null.
func (v Value) IsNull() bool { return !v.Valid }

func (v Value) String() string {
	if !v.Valid {
		return "null"
	}
	return strconv.FormatFloat(v.Float, 'f', -1, 64)
}

// MarshalJSON renders null for invalid values.
func (v Value) MarshalJSON() ([]byte, error) {
	if !v.Valid {
		return []byte("null"), nil
	}
	return strconv.AppendFloat(nil, v.Float, 'g', -1, 64), nil
}

// ============================================================================
// DATA MATRIX
// ============================================================================

// Cell maps measure name to its aggregate at one row × column intersection.
type Cell map[string]Value

// DataMatrix maps row node → column node → Cell. It holds an entry for every
// (row node, column node) pair of the two hierarchies it was computed from.
// A matrix is never patched; each refresh publishes a new one.
type DataMatrix map[NodeID]map[NodeID]Cell

// Cell returns the cell at row × col.
func (m DataMatrix) Cell(row, col NodeID) (Cell, bool) {
	cols, ok := m[row]
	if !ok {
		return nil, false
	}
	c, ok := cols[col]
	return c, ok
}

// Size returns the number of cells in the matrix.
func (m DataMatrix) Size() int {
	n := 0
	for _, cols := range m {
		n += len(cols)
	}
	return n
}

// ============================================================================
// EVENTS
// ============================================================================

// Event is a grid change notification. It carries no payload.
type Event int

const (
	// EventUpdated fires once after every completed matrix recomputation.
	EventUpdated Event = iota
	// EventSortChanged fires when a hierarchy was reordered.
	EventSortChanged
	// EventConfigChanged fires when display toggles changed.
	EventConfigChanged
)

func (e Event) String() string {
	switch e {
	case EventUpdated:
		return "updated"
	case EventSortChanged:
		return "sort-changed"
	case EventConfigChanged:
		return "config-changed"
	}
	return "event(" + strconv.Itoa(int(e)) + ")"
}

// Listener receives grid events synchronously.
type Listener func(Event)

// ============================================================================
// VIEW TYPES
// ============================================================================

// ViewType is the presentation the grid is configured for.
type ViewType int

const (
	ViewTabular ViewType = iota + 1
	ViewBarChart
	ViewStackedBarChart
	ViewPieChart
)

func (v ViewType) String() string {
	switch v {
	case ViewTabular:
		return "table"
	case ViewBarChart:
		return "bar"
	case ViewStackedBarChart:
		return "stacked_bar"
	case ViewPieChart:
		return "pie"
	}
	return "view(" + strconv.Itoa(int(v)) + ")"
}

// ============================================================================
// CHART TYPES
// ============================================================================

// ChartData is the chart-shaped projection of the matrix: one category per
// column leaf and one series per measure, evaluated against the row grand
// total.
type ChartData struct {
	HAxisLabel      string        `json:"hAxisLabel"`
	ColNames        []string      `json:"colNames"`
	Series          []ChartValues `json:"series"`
	PrimaryValues   []string      `json:"primaryValues"`
	SecondaryValues []string      `json:"secondaryValues"`
	StackedBars     bool          `json:"stackedBars"`
}

// ChartValues is one series of ChartData, aligned with ColNames.
type ChartValues struct {
	Name      string  `json:"name"`
	Values    []Value `json:"values"`
	Secondary bool    `json:"secondary,omitempty"`
}

// ChartConfig defines how to render a chart.
type ChartConfig struct {
	ChartType     string        `json:"chartType"`
	Title         string        `json:"title"`
	XAxis         string        `json:"xAxis,omitempty"`
	YAxis         string        `json:"yAxis,omitempty"`
	Series        []ChartSeries `json:"series"`
	Groups        [][]string    `json:"groups,omitempty"`
	Colors        []string      `json:"colors,omitempty"`
	ShowLegend    bool          `json:"showLegend"`
	ShowGrid      bool          `json:"showGrid"`
	SecondaryType string        `json:"secondaryType,omitempty"`
}

// ChartSeries represents a data series in a chart.
type ChartSeries struct {
	Name      string       `json:"name"`
	Data      []ChartPoint `json:"data"`
	Color     string       `json:"color,omitempty"`
	Secondary bool         `json:"secondary,omitempty"`
}

// ChartPoint represents a single data point. Null marks an empty category.
type ChartPoint struct {
	Label string  `json:"label"`
	Value float64 `json:"value"`
	Null  bool    `json:"null,omitempty"`
}

// ============================================================================
// TABLE TYPES
// ============================================================================

// TableData is the tabular rendering of the matrix.
type TableData struct {
	Title   string     `json:"title"`
	Columns []Column   `json:"columns"`
	Rows    [][]string `json:"rows"`
}

// Column defines a table column.
type Column struct {
	Key   string `json:"key"`
	Label string `json:"label"`
	Type  string `json:"type"`  // "text", "number"
	Align string `json:"align"` // "left", "right"
}
