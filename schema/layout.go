package schema

import (
	"slices"

	"github.com/cockroachdb/errors"
)

// ============================================================================
// LAYOUT — validation and mutation of the pivot layout
// ============================================================================

// Validate checks that every field referenced by the layout exists and that
// no field groups both rows and columns. It also fills defaults: captions,
// data field aggregates, sort orders.
func (c *Config) Validate() error {
	seen := make(map[string]bool, len(c.Fields))
	for i := range c.Fields {
		f := &c.Fields[i]
		if f.Name == "" {
			return newConfigurationErrorf("field #%d has no name", i)
		}
		if seen[f.Name] {
			return newConfigurationErrorf("duplicate field %q", f.Name)
		}
		seen[f.Name] = true
		if f.Caption == "" {
			f.Caption = toDisplayName(f.Name)
		}
		if f.Sort == "" {
			f.Sort = SortAsc
		}
		if f.Sort != SortAsc && f.Sort != SortDesc {
			return newConfigurationErrorf("field %q: unknown sort order %q", f.Name, f.Sort)
		}
	}

	if err := c.checkAxis(AxisRows, c.Rows); err != nil {
		return err
	}
	if err := c.checkAxis(AxisColumns, c.Columns); err != nil {
		return err
	}
	for _, name := range c.Rows {
		if indexOf(c.Columns, name) >= 0 {
			return newConfigurationErrorf("field %q is on both the rows and columns axis", name)
		}
	}

	dataSeen := make(map[string]bool, len(c.Data))
	for i := range c.Data {
		d := &c.Data[i]
		f, ok := c.Field(d.Name)
		if !ok {
			return errors.Wrap(UnknownFieldError(d.Name), "data")
		}
		if dataSeen[d.Name] {
			return newConfigurationErrorf("field %q is on the data axis twice", d.Name)
		}
		dataSeen[d.Name] = true
		c.fillDataField(d, f)
	}

	for name := range c.PreFilters {
		if _, ok := c.Field(name); !ok {
			return errors.Wrap(UnknownFieldError(name), "preFilters")
		}
	}

	if c.ChartMode.Type == "" {
		c.ChartMode.Type = "bar"
	}
	return nil
}

func (c *Config) checkAxis(axis Axis, names []string) error {
	for i, name := range names {
		if _, ok := c.Field(name); !ok {
			return errors.Wrapf(UnknownFieldError(name), "%s", axis)
		}
		if indexOf(names[:i], name) >= 0 {
			return newConfigurationErrorf("field %q is on the %s axis twice", name, axis)
		}
	}
	return nil
}

func (c *Config) fillDataField(d *DataFieldMeta, f FieldMeta) {
	if d.Caption == "" {
		d.Caption = f.Caption
	}
	if d.Aggregate == "" {
		d.Aggregate = f.Aggregate
	}
	if d.Aggregate == "" {
		d.Aggregate = DefaultAggregate
	}
}

// MoveField moves a field from one axis to another and inserts it at
// position (a negative or out-of-range position appends). It reports whether
// the layout changed. Moving to AxisNone removes the field from the layout.
func (c *Config) MoveField(name string, from, to Axis, position int) (bool, error) {
	f, ok := c.Field(name)
	if !ok {
		return false, UnknownFieldError(name)
	}

	oldPos := -1
	switch from {
	case AxisRows:
		oldPos = indexOf(c.Rows, name)
	case AxisColumns:
		oldPos = indexOf(c.Columns, name)
	case AxisData:
		oldPos = c.dataIndex(name)
	}
	if from != AxisNone && oldPos < 0 {
		return false, nil
	}
	if from == to && (from == AxisNone || position < 0 || position == oldPos) {
		return false, nil
	}

	// A grouping field lives on one grouping axis at a time.
	if (to == AxisRows || to == AxisColumns) && from != to {
		if cur := c.AxisOf(name); cur != AxisNone && cur != from {
			return false, newConfigurationErrorf("field %q is already on the %s axis", name, cur)
		}
	}
	if to == AxisData && from != AxisData && c.dataIndex(name) >= 0 {
		return false, nil
	}

	var moved DataFieldMeta
	switch from {
	case AxisRows:
		c.Rows = slices.Delete(c.Rows, oldPos, oldPos+1)
	case AxisColumns:
		c.Columns = slices.Delete(c.Columns, oldPos, oldPos+1)
	case AxisData:
		moved = c.Data[oldPos]
		c.Data = slices.Delete(c.Data, oldPos, oldPos+1)
	}

	switch to {
	case AxisRows:
		c.Rows = slices.Insert(c.Rows, clampPos(position, len(c.Rows)), name)
	case AxisColumns:
		c.Columns = slices.Insert(c.Columns, clampPos(position, len(c.Columns)), name)
	case AxisData:
		if moved.Name == "" {
			moved = DataFieldMeta{Name: name}
			c.fillDataField(&moved, f)
		}
		c.Data = slices.Insert(c.Data, clampPos(position, len(c.Data)), moved)
	}
	return true, nil
}

func clampPos(position, n int) int {
	if position < 0 || position > n {
		return n
	}
	return position
}

func (c *Config) dataIndex(name string) int {
	for i, d := range c.Data {
		if d.Name == name {
			return i
		}
	}
	return -1
}

// ToggleSort flips the sort order of a field and returns the new order.
func (c *Config) ToggleSort(name string) (SortOrder, error) {
	i := c.fieldIndex(name)
	if i < 0 {
		return "", UnknownFieldError(name)
	}
	if c.Fields[i].Sort == SortDesc {
		c.Fields[i].Sort = SortAsc
	} else {
		c.Fields[i].Sort = SortDesc
	}
	return c.Fields[i].Sort, nil
}

// ============================================================================
// DISPLAY TOGGLES
// ============================================================================

func (c *Config) settings(axis Axis) *AxisSettings {
	switch axis {
	case AxisRows:
		return &c.RowSettings
	case AxisColumns:
		return &c.ColumnSettings
	}
	return nil
}

// ToggleSubtotals flips subtotal visibility on the rows or columns axis and
// reports whether anything changed.
func (c *Config) ToggleSubtotals(axis Axis) bool {
	s := c.settings(axis)
	if s == nil {
		return false
	}
	s.HideSubtotals = !s.HideSubtotals
	return true
}

// ToggleGrandTotal flips grand-total visibility on the rows or columns axis.
func (c *Config) ToggleGrandTotal(axis Axis) bool {
	s := c.settings(axis)
	if s == nil {
		return false
	}
	s.HideGrandTotal = !s.HideGrandTotal
	return true
}

// SubtotalsVisible reports whether subtotals are shown on axis.
func (c *Config) SubtotalsVisible(axis Axis) bool {
	s := c.settings(axis)
	return s != nil && !s.HideSubtotals
}

// GrandTotalVisible reports whether the grand total is shown on axis.
func (c *Config) GrandTotalVisible(axis Axis) bool {
	s := c.settings(axis)
	return s != nil && !s.HideGrandTotal
}

// ToggleStackedBars flips stacked bar rendering. Only meaningful in bar
// chart mode; reports whether anything changed.
func (c *Config) ToggleStackedBars() bool {
	if !c.ChartMode.Enabled || c.ChartMode.Type != "bar" {
		return false
	}
	c.ChartMode.StackedBars = !c.ChartMode.StackedBars
	return true
}
