package bvh

import (
	"bytes"
	"fmt"

	"github.com/achilleasa/polaris-bvh/types"
	"github.com/olekukonko/tablewriter"
)

// A Tree is the output of the builder. Leaf nodes index the three parallel
// primitive arrays.
type Tree struct {
	Nodes []Node
	Root  NodeID

	PrimType   []PrimType
	PrimIndex  []int32
	PrimObject []int32

	// Number of references before spatial split duplication.
	NumReferences int

	// True if the tree was built with spatial splits.
	SpatialSplit bool

	// Params used to build the tree.
	Params Params
}

// Get a node by its id.
func (t *Tree) Node(id NodeID) *Node {
	return &t.Nodes[id]
}

// Get the root bounds.
func (t *Tree) Bounds() types.BoundBox {
	if t.Root == NoNode {
		return types.EmptyBoundBox()
	}
	return t.Nodes[t.Root].Bounds
}

// Number of primitive slots in the output arrays.
func (t *Tree) NumPrims() int {
	return len(t.PrimType)
}

// Fraction of output primitives that are spatial split duplicates.
func (t *Tree) DuplicateFraction() float32 {
	return duplicateFraction(t.NumPrims(), t.NumReferences)
}

func duplicateFraction(total, original int) float32 {
	if total == 0 {
		return 0
	}
	return float32(total-original) / float32(total)
}

// Visit all nodes in pre-order, left child first. Returning false from the
// callback skips the subtree below the visited node.
func (t *Tree) Walk(fn func(id NodeID, node *Node, depth int) bool) {
	if t.Root == NoNode {
		return
	}
	t.walk(t.Root, 0, fn)
}

func (t *Tree) walk(id NodeID, depth int, fn func(NodeID, *Node, int) bool) {
	node := &t.Nodes[id]
	if !fn(id, node, depth) || node.IsLeaf() {
		return
	}
	for _, child := range node.Children {
		if child != NoNode {
			t.walk(child, depth+1, fn)
		}
	}
}

// Recompute inner node visibility masks from the leaves.
func (t *Tree) UpdateVisibility() {
	if t.Root != NoNode {
		t.updateVisibility(t.Root)
	}
}

func (t *Tree) updateVisibility(id NodeID) uint32 {
	node := &t.Nodes[id]
	if node.IsLeaf() {
		return node.Visibility
	}
	var visibility uint32
	for _, child := range node.Children {
		if child != NoNode {
			visibility |= t.updateVisibility(child)
		}
	}
	t.Nodes[id].Visibility = visibility
	return visibility
}

// TreeStats summarizes the structure of a tree.
type TreeStats struct {
	InnerNodes int
	LeafNodes  int
	MaxDepth   int
	Prims      int
	References int
	SAHCost    float32
}

// Collect tree statistics using the params the tree was built with.
func (t *Tree) Stats() TreeStats {
	stats := TreeStats{
		Prims:      t.NumPrims(),
		References: t.NumReferences,
		SAHCost:    t.SAHCost(t.Params),
	}
	t.Walk(func(_ NodeID, node *Node, depth int) bool {
		if depth > stats.MaxDepth {
			stats.MaxDepth = depth
		}
		if node.IsLeaf() {
			stats.LeafNodes++
		} else {
			stats.InnerNodes++
		}
		return true
	})
	return stats
}

// Calculate the SAH cost of the full tree, normalized by the root area.
func (t *Tree) SAHCost(params Params) float32 {
	rootArea := t.Bounds().SafeArea()
	if rootArea <= 0 {
		return 0
	}
	return t.subtreeSAH(t.Root, &params) / rootArea
}

func (t *Tree) subtreeSAH(id NodeID, params *Params) float32 {
	if id == NoNode {
		return 0
	}
	node := &t.Nodes[id]
	area := node.Bounds.SafeArea()
	if node.IsLeaf() {
		return area * params.PrimitiveCost(node.NumPrims())
	}
	return area*params.NodeCost(1) + t.subtreeSAH(node.Children[0], params) + t.subtreeSAH(node.Children[1], params)
}

// Build a tabular representation of the tree statistics.
func (s TreeStats) String() string {
	var buf bytes.Buffer
	table := tablewriter.NewWriter(&buf)
	table.SetAlignment(tablewriter.ALIGN_LEFT)
	table.SetAutoFormatHeaders(false)
	table.SetHeader([]string{"Stat", "Value"})
	table.Append([]string{"Inner nodes", fmt.Sprint(s.InnerNodes)})
	table.Append([]string{"Leaf nodes", fmt.Sprint(s.LeafNodes)})
	table.Append([]string{"Max depth", fmt.Sprint(s.MaxDepth)})
	table.Append([]string{"References", fmt.Sprint(s.References)})
	table.Append([]string{"Primitives", fmt.Sprint(s.Prims)})
	table.Append([]string{"Duplicates", fmt.Sprintf("%.1f%%", duplicateFraction(s.Prims, s.References)*100)})
	table.SetFooter([]string{"SAH cost", fmt.Sprintf("%.2f", s.SAHCost)})
	table.Render()
	return buf.String()
}
