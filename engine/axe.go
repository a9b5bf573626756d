package engine

import (
	"slices"
	"strings"

	"github.com/cockroachdb/errors"
	"github.com/spektr-org/pivotgrid/schema"
)

// ============================================================================
// AXE — dimension hierarchy of one axis
// ============================================================================
// Nodes live in an arena indexed by NodeID; the root is node 0 and stands
// for the grand total. Every other node owns the ordinals of the filtered
// rows matching its path of group values. The root owns all rows implicitly.
//
// A hierarchy over zero grouping fields is exactly one node: the root, which
// is then also a leaf.
// ============================================================================

// NodeID identifies a node within one hierarchy.
type NodeID int

// NoNode is the parent of the root.
const NoNode NodeID = -1

// RootID is the identity of every hierarchy's root.
const RootID NodeID = 0

// Node is one group of a dimension hierarchy.
type Node struct {
	ID     NodeID
	Parent NodeID
	Depth  int    // 0 for the root
	Field  string // grouping field of this level; empty for the root
	Value  string // group value; empty for the root

	leaf     bool
	values   []string // ordered distinct values of the next level
	children map[string]NodeID
	rows     []int
}

// IsRoot reports whether n is the grand-total node.
func (n *Node) IsRoot() bool { return n.Parent == NoNode }

// IsLeaf reports whether no grouping field remains below n.
func (n *Node) IsLeaf() bool { return n.leaf }

// Values returns the child group values in display order.
func (n *Node) Values() []string { return slices.Clone(n.values) }

// Child returns the child for group value v.
func (n *Node) Child(v string) (NodeID, bool) {
	id, ok := n.children[v]
	return id, ok
}

// Children returns the child IDs in display order.
func (n *Node) Children() []NodeID {
	ids := make([]NodeID, len(n.values))
	for i, v := range n.values {
		ids[i] = n.children[v]
	}
	return ids
}

// Rows returns the node's own rows: unrestricted for the root, otherwise a
// copy of the owned ordinals that the caller may keep.
func (n *Node) Rows() Selector {
	if n.IsRoot() {
		return AllRows()
	}
	return RowsOf(slices.Clone(n.rows))
}

// ownRows exposes the owned ordinals without copying. Read only.
func (n *Node) ownRows() Selector {
	if n.IsRoot() {
		return AllRows()
	}
	return RowsOf(n.rows)
}

// Hierarchy is the tree of groups of one axis.
type Hierarchy struct {
	axis   schema.Axis
	fields []schema.FieldMeta
	nodes  []*Node
}

// BuildHierarchy groups the rows of view by fields, in order.
func BuildHierarchy(axis schema.Axis, fields []schema.FieldMeta, view RecordView) *Hierarchy {
	h := &Hierarchy{axis: axis, fields: fields}
	h.nodes = []*Node{{
		ID:       RootID,
		Parent:   NoNode,
		leaf:     len(fields) == 0,
		children: make(map[string]NodeID),
	}}
	if len(fields) == 0 {
		return h
	}

	for i := 0; i < view.Len(); i++ {
		parent := h.nodes[RootID]
		for depth, f := range fields {
			v := view.Dimension(i, f.Name)
			id, ok := parent.children[v]
			if !ok {
				id = NodeID(len(h.nodes))
				h.nodes = append(h.nodes, &Node{
					ID:       id,
					Parent:   parent.ID,
					Depth:    depth + 1,
					Field:    f.Name,
					Value:    v,
					leaf:     depth+1 == len(fields),
					children: make(map[string]NodeID),
				})
				parent.children[v] = id
				parent.values = append(parent.values, v)
			}
			child := h.nodes[id]
			child.rows = append(child.rows, i)
			parent = child
		}
	}

	for depth, f := range fields {
		h.sortLevel(depth, f.Sort)
	}
	return h
}

// Axis returns the axis the hierarchy groups.
func (h *Hierarchy) Axis() schema.Axis { return h.axis }

// Root returns the grand-total node.
func (h *Hierarchy) Root() *Node { return h.nodes[RootID] }

// Node returns the node with identity id.
func (h *Hierarchy) Node(id NodeID) (*Node, bool) {
	if id < 0 || int(id) >= len(h.nodes) {
		return nil, false
	}
	return h.nodes[id], true
}

// Len returns the number of nodes, root included.
func (h *Hierarchy) Len() int { return len(h.nodes) }

// DimensionsCount returns the number of grouping fields.
func (h *Hierarchy) DimensionsCount() int { return len(h.fields) }

// Fields returns the grouping fields in level order.
func (h *Hierarchy) Fields() []schema.FieldMeta { return slices.Clone(h.fields) }

// Path returns the group values from the root down to id.
func (h *Hierarchy) Path(id NodeID) []string {
	n, ok := h.Node(id)
	if !ok {
		return nil
	}
	path := make([]string, n.Depth)
	for ; !n.IsRoot(); n = h.nodes[n.Parent] {
		path[n.Depth-1] = n.Value
	}
	return path
}

// Walk visits nodes breadth-first, children in display order.
func (h *Hierarchy) Walk(fn func(n *Node)) {
	queue := []NodeID{RootID}
	for len(queue) > 0 {
		n := h.nodes[queue[0]]
		queue = queue[1:]
		fn(n)
		queue = append(queue, n.Children()...)
	}
}

// Leaf is a leaf node flattened for display.
type Leaf struct {
	ID   NodeID
	Name string // path values joined with " - "
	Path []string
}

// Leaves flattens the leaf nodes in display order (depth-first).
func (h *Hierarchy) Leaves() []Leaf {
	var out []Leaf
	var visit func(n *Node)
	visit = func(n *Node) {
		if n.leaf {
			path := h.Path(n.ID)
			out = append(out, Leaf{ID: n.ID, Name: strings.Join(path, " - "), Path: path})
			return
		}
		for _, id := range n.Children() {
			visit(h.nodes[id])
		}
	}
	visit(h.Root())
	return out
}

// Sort reorders the values of field's level. The node identities do not
// change, so a matrix computed over h stays valid.
func (h *Hierarchy) Sort(field string, order schema.SortOrder) bool {
	for depth, f := range h.fields {
		if f.Name == field {
			h.fields[depth].Sort = order
			h.sortLevel(depth, order)
			return true
		}
	}
	return false
}

// sortLevel sorts the children of every node at depth.
func (h *Hierarchy) sortLevel(depth int, order schema.SortOrder) {
	for _, n := range h.nodes {
		if n.Depth != depth {
			continue
		}
		slices.SortStableFunc(n.values, func(a, b string) int {
			if order == schema.SortDesc {
				return compareValues(b, a)
			}
			return compareValues(a, b)
		})
	}
}

// validate checks the arena: identities match positions and every
// parent/child link is mutual.
func (h *Hierarchy) validate() error {
	if len(h.nodes) == 0 || !h.nodes[RootID].IsRoot() {
		return errors.AssertionFailedf("%s hierarchy has no root", h.axis)
	}
	for i, n := range h.nodes {
		if n.ID != NodeID(i) {
			return errors.AssertionFailedf("%s hierarchy: node at %d has identity %d", h.axis, i, n.ID)
		}
		if len(n.values) != len(n.children) {
			return errors.AssertionFailedf("%s hierarchy: node %d has %d values but %d children",
				h.axis, n.ID, len(n.values), len(n.children))
		}
		for _, v := range n.values {
			c, ok := h.Node(n.children[v])
			if !ok || c.Parent != n.ID || c.Value != v {
				return errors.AssertionFailedf("%s hierarchy: node %d has a broken child %q", h.axis, n.ID, v)
			}
		}
	}
	return nil
}
