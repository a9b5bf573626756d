package schema

import "fmt"

// ============================================================================
// SCHEMA — Pivot layout: fields, axes, measures, display toggles
// ============================================================================
// A Config names every field of the data source, says which fields group
// rows, which group columns, and which are aggregated into the data matrix.
// The engine reads it; layout mutations (MoveField, toggles) go through the
// methods in layout.go so validation stays in one place.
// ============================================================================

// Axis identifies where a field sits in the pivot layout.
type Axis int

const (
	AxisNone Axis = iota
	AxisRows
	AxisColumns
	AxisData
)

func (a Axis) String() string {
	switch a {
	case AxisNone:
		return "none"
	case AxisRows:
		return "rows"
	case AxisColumns:
		return "columns"
	case AxisData:
		return "data"
	default:
		return fmt.Sprintf("axis(%d)", int(a))
	}
}

// ParseAxis converts "rows", "columns", "data" or "none" into an Axis.
func ParseAxis(s string) (Axis, error) {
	switch s {
	case "rows", "row", "r":
		return AxisRows, nil
	case "columns", "column", "cols", "c":
		return AxisColumns, nil
	case "data", "d":
		return AxisData, nil
	case "none", "":
		return AxisNone, nil
	}
	return AxisNone, newConfigurationErrorf("unknown axis %q", s)
}

// SortOrder is the display order of a grouping field's values.
type SortOrder string

const (
	SortAsc  SortOrder = "asc"
	SortDesc SortOrder = "desc"
)

// Config describes the complete pivot layout of a dataset.
type Config struct {
	Name        string `json:"name" yaml:"name"`
	Description string `json:"description,omitempty" yaml:"description,omitempty"`

	Fields  []FieldMeta     `json:"fields" yaml:"fields"`
	Rows    []string        `json:"rows,omitempty" yaml:"rows,omitempty"`
	Columns []string        `json:"columns,omitempty" yaml:"columns,omitempty"`
	Data    []DataFieldMeta `json:"data,omitempty" yaml:"data,omitempty"`

	RowSettings    AxisSettings `json:"rowSettings" yaml:"rowSettings"`
	ColumnSettings AxisSettings `json:"columnSettings" yaml:"columnSettings"`
	ChartMode      ChartMode    `json:"chartMode" yaml:"chartMode"`

	// Filters applied before the first refresh, keyed by field name.
	PreFilters map[string]FilterSpec `json:"preFilters,omitempty" yaml:"preFilters,omitempty"`

	// Auto-discovery metadata
	DiscoveredFrom string          `json:"discoveredFrom,omitempty" yaml:"discoveredFrom,omitempty"`
	SkippedColumns []SkippedColumn `json:"skippedColumns,omitempty" yaml:"skippedColumns,omitempty"`
}

// FieldMeta describes one field of the data source.
type FieldMeta struct {
	Name    string `json:"name" yaml:"name"`
	Caption string `json:"caption,omitempty" yaml:"caption,omitempty"`
	// Aggregate is the field's own default aggregate, used when the field is
	// asked for as a measure without being a configured data field.
	Aggregate string    `json:"aggregate,omitempty" yaml:"aggregate,omitempty"`
	Sort      SortOrder `json:"sort,omitempty" yaml:"sort,omitempty"`
	Numeric   bool      `json:"numeric,omitempty" yaml:"numeric,omitempty"`
}

// DataFieldMeta binds a field to an aggregate function as a measure.
type DataFieldMeta struct {
	Name      string `json:"name" yaml:"name"`
	Caption   string `json:"caption,omitempty" yaml:"caption,omitempty"`
	Aggregate string `json:"aggregate,omitempty" yaml:"aggregate,omitempty"`
}

// Label returns the chart/legend label of a measure, e.g. "sum(Sales)".
func (d DataFieldMeta) Label() string {
	return d.Aggregate + "(" + d.Caption + ")"
}

// AxisSettings holds the display toggles of the row or column axis.
// The zero value shows both subtotals and the grand total.
type AxisSettings struct {
	HideSubtotals  bool `json:"hideSubtotals,omitempty" yaml:"hideSubtotals,omitempty"`
	HideGrandTotal bool `json:"hideGrandTotal,omitempty" yaml:"hideGrandTotal,omitempty"`
}

// ChartMode selects chart rendering instead of the tabular grid.
type ChartMode struct {
	Enabled       bool   `json:"enabled" yaml:"enabled"`
	Type          string `json:"type,omitempty" yaml:"type,omitempty"` // "bar", "pie"
	StackedBars   bool   `json:"stackedBars,omitempty" yaml:"stackedBars,omitempty"`
	SecondaryType string `json:"secondaryType,omitempty" yaml:"secondaryType,omitempty"`
}

// FilterSpec is the declarative form of a field filter.
type FilterSpec struct {
	Operator string   `json:"operator,omitempty" yaml:"operator,omitempty"`
	Term     string   `json:"term,omitempty" yaml:"term,omitempty"`
	Values   []string `json:"values,omitempty" yaml:"values,omitempty"`
	Exclude  bool     `json:"exclude,omitempty" yaml:"exclude,omitempty"`
}

// SkippedColumn records why a column was excluded during auto-discovery.
type SkippedColumn struct {
	Column string `json:"column" yaml:"column"`
	Reason string `json:"reason" yaml:"reason"`
}

// DefaultAggregate is bound to data fields that name no aggregate.
const DefaultAggregate = "sum"

// ============================================================================
// LOOKUPS
// ============================================================================

// Field returns the field named name.
func (c *Config) Field(name string) (FieldMeta, bool) {
	for _, f := range c.Fields {
		if f.Name == name {
			return f, true
		}
	}
	return FieldMeta{}, false
}

// DataField returns the configured measure named name.
func (c *Config) DataField(name string) (DataFieldMeta, bool) {
	for _, d := range c.Data {
		if d.Name == name {
			return d, true
		}
	}
	return DataFieldMeta{}, false
}

// DataFieldsCount returns the number of configured measures.
func (c *Config) DataFieldsCount() int { return len(c.Data) }

// RowFields returns the row grouping fields in layout order.
func (c *Config) RowFields() []FieldMeta { return c.resolve(c.Rows) }

// ColumnFields returns the column grouping fields in layout order.
func (c *Config) ColumnFields() []FieldMeta { return c.resolve(c.Columns) }

// AxisFields returns the grouping fields of a row or column axis.
func (c *Config) AxisFields(axis Axis) []FieldMeta {
	switch axis {
	case AxisRows:
		return c.RowFields()
	case AxisColumns:
		return c.ColumnFields()
	}
	return nil
}

// FieldNames returns every field name in declaration order.
func (c *Config) FieldNames() []string {
	names := make([]string, len(c.Fields))
	for i, f := range c.Fields {
		names[i] = f.Name
	}
	return names
}

// AxisOf reports the grouping axis holding name, or AxisNone.
func (c *Config) AxisOf(name string) Axis {
	if indexOf(c.Rows, name) >= 0 {
		return AxisRows
	}
	if indexOf(c.Columns, name) >= 0 {
		return AxisColumns
	}
	return AxisNone
}

func (c *Config) resolve(names []string) []FieldMeta {
	out := make([]FieldMeta, 0, len(names))
	for _, n := range names {
		if f, ok := c.Field(n); ok {
			out = append(out, f)
		}
	}
	return out
}

func (c *Config) fieldIndex(name string) int {
	for i, f := range c.Fields {
		if f.Name == name {
			return i
		}
	}
	return -1
}

func indexOf(list []string, name string) int {
	for i, n := range list {
		if n == name {
			return i
		}
	}
	return -1
}

// Clone returns a deep copy of the config.
func (c *Config) Clone() *Config {
	if c == nil {
		return nil
	}
	dst := *c
	dst.Fields = append([]FieldMeta(nil), c.Fields...)
	dst.Rows = append([]string(nil), c.Rows...)
	dst.Columns = append([]string(nil), c.Columns...)
	dst.Data = append([]DataFieldMeta(nil), c.Data...)
	dst.SkippedColumns = append([]SkippedColumn(nil), c.SkippedColumns...)
	if c.PreFilters != nil {
		dst.PreFilters = make(map[string]FilterSpec, len(c.PreFilters))
		for k, v := range c.PreFilters {
			v.Values = append([]string(nil), v.Values...)
			dst.PreFilters[k] = v
		}
	}
	return &dst
}
