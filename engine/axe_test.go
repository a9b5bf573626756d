package engine

import (
	"testing"

	"github.com/cockroachdb/errors"
	"github.com/spektr-org/pivotgrid/schema"
	"github.com/stretchr/testify/require"
)

func fields(names ...string) []schema.FieldMeta {
	out := make([]schema.FieldMeta, len(names))
	for i, n := range names {
		out[i] = schema.FieldMeta{Name: n, Sort: schema.SortAsc}
	}
	return out
}

func TestBuildHierarchy(t *testing.T) {
	h := BuildHierarchy(schema.AxisColumns, fields("year", "region"), salesView())
	require.NoError(t, h.validate())
	require.Equal(t, schema.AxisColumns, h.Axis())
	require.Equal(t, 2, h.DimensionsCount())

	root := h.Root()
	require.True(t, root.IsRoot())
	require.False(t, root.IsLeaf())
	require.True(t, root.Rows().All())
	require.Equal(t, []string{"2024", "2025"}, root.Values())

	id, ok := root.Child("2024")
	require.True(t, ok)
	y2024, _ := h.Node(id)
	require.Equal(t, []int{0, 2}, y2024.Rows().Rows())
	require.Equal(t, []string{"east", "west"}, y2024.Values())
	require.Equal(t, 1, y2024.Depth)
	require.Equal(t, "year", y2024.Field)

	id, _ = y2024.Child("west")
	leaf, _ := h.Node(id)
	require.True(t, leaf.IsLeaf())
	require.Equal(t, []string{"2024", "west"}, h.Path(leaf.ID))
	require.Equal(t, []int{2}, leaf.Rows().Rows())

	names := make([]string, 0)
	for _, l := range h.Leaves() {
		names = append(names, l.Name)
	}
	require.Equal(t, []string{"2024 - east", "2024 - west", "2025 - east"}, names)

	// Breadth-first: root, both years, then the three leaves.
	var depths []int
	h.Walk(func(n *Node) { depths = append(depths, n.Depth) })
	require.Equal(t, []int{0, 1, 1, 2, 2, 2}, depths)
}

func TestHierarchyZeroFields(t *testing.T) {
	h := BuildHierarchy(schema.AxisRows, nil, salesView())
	require.NoError(t, h.validate())
	require.Equal(t, 1, h.Len())
	require.True(t, h.Root().IsLeaf())
	require.Empty(t, h.Root().Children())

	leaves := h.Leaves()
	require.Len(t, leaves, 1)
	require.Equal(t, RootID, leaves[0].ID)
	require.Empty(t, leaves[0].Name)
}

func TestHierarchyEmptyView(t *testing.T) {
	h := BuildHierarchy(schema.AxisRows, fields("region"), NewSliceView(nil))
	require.NoError(t, h.validate())
	require.Equal(t, 1, h.Len())
	require.False(t, h.Root().IsLeaf())
	require.Empty(t, h.Leaves())
}

func TestHierarchySort(t *testing.T) {
	h := BuildHierarchy(schema.AxisRows, fields("region", "year"), salesView())
	before := h.Len()
	east, _ := h.Root().Child("east")

	require.True(t, h.Sort("year", schema.SortDesc))
	n, _ := h.Node(east)
	require.Equal(t, []string{"2025", "2024"}, n.Values())
	require.Equal(t, []string{"east", "west"}, h.Root().Values())
	require.Equal(t, schema.SortDesc, h.Fields()[1].Sort)

	require.True(t, h.Sort("region", schema.SortDesc))
	require.Equal(t, []string{"west", "east"}, h.Root().Values())
	require.Equal(t, before, h.Len())
	require.NoError(t, h.validate())

	require.False(t, h.Sort("product", schema.SortAsc))
}

func TestNodeRowsAreCopies(t *testing.T) {
	h := BuildHierarchy(schema.AxisRows, fields("region"), salesView())
	id, _ := h.Root().Child("east")
	n, _ := h.Node(id)
	rows := n.Rows().Rows()
	rows[0] = 99
	require.Equal(t, []int{0, 1}, n.Rows().Rows())
}

func TestHierarchyValidateDetectsCorruption(t *testing.T) {
	// root(0) -> east(1), west(2)
	tests := []struct {
		name    string
		corrupt func(h *Hierarchy)
		want    string
	}{
		{"identity", func(h *Hierarchy) { h.nodes[2].ID = 1 },
			"rows hierarchy: node at 2 has identity 1"},
		{"child link", func(h *Hierarchy) { h.nodes[RootID].children["east"] = 2 },
			`rows hierarchy: node 0 has a broken child "east"`},
		{"dangling child", func(h *Hierarchy) { h.nodes[RootID].children["west"] = 7 },
			`rows hierarchy: node 0 has a broken child "west"`},
		{"value count", func(h *Hierarchy) { h.nodes[RootID].values = h.nodes[RootID].values[:1] },
			"rows hierarchy: node 0 has 1 values but 2 children"},
		{"root", func(h *Hierarchy) { h.nodes[RootID].Parent = 1 },
			"rows hierarchy has no root"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			h := BuildHierarchy(schema.AxisRows, fields("region"), salesView())
			require.NoError(t, h.validate())
			tt.corrupt(h)
			err := h.validate()
			require.True(t, errors.HasAssertionFailure(err), "%v", err)
			require.ErrorContains(t, err, tt.want)
		})
	}
}
