package bvh

import (
	"sync/atomic"

	"github.com/achilleasa/polaris-bvh/types"
)

// Index of a node inside a node arena.
type NodeID int32

// Marks a missing child.
const NoNode NodeID = -1

type NodeKind uint8

const (
	InnerNode NodeKind = iota
	LeafNode
)

// A BVH node. Inner nodes use Children; leaf nodes use [Lo, Hi) to index
// the tree primitive arrays.
type Node struct {
	Kind   NodeKind
	Bounds types.BoundBox

	// OR of the visibility flags of all primitives below this node.
	Visibility uint32

	Children [2]NodeID

	Lo int32
	Hi int32
}

// Returns true if this is a leaf node.
func (n *Node) IsLeaf() bool {
	return n.Kind == LeafNode
}

// Number of primitives packed in a leaf.
func (n *Node) NumPrims() int {
	if n.Kind != LeafNode {
		return 0
	}
	return int(n.Hi - n.Lo)
}

// A fragment is a node arena owned by a single build task. Children built by
// other tasks are recorded as pending and spliced in once all tasks finish.
type fragment struct {
	nodes   []Node
	pending []pendingChild
	root    NodeID

	// Shared counter of allocated nodes.
	allocated *atomic.Int64
}

type pendingChild struct {
	node NodeID
	slot int
	task int32
}

func newFragment(allocated *atomic.Int64) *fragment {
	return &fragment{root: NoNode, allocated: allocated}
}

func (f *fragment) add(node Node) NodeID {
	f.nodes = append(f.nodes, node)
	if f.allocated != nil {
		f.allocated.Add(1)
	}
	return NodeID(len(f.nodes) - 1)
}

// Get the bounds of a node; missing nodes have empty bounds.
func (f *fragment) bounds(id NodeID) types.BoundBox {
	if id == NoNode {
		return types.EmptyBoundBox()
	}
	return f.nodes[id].Bounds
}

func (f *fragment) visibility(id NodeID) uint32 {
	if id == NoNode {
		return 0
	}
	return f.nodes[id].Visibility
}

// Add a leaf node.
func (f *fragment) leaf(bounds types.BoundBox, visibility uint32, lo, hi int) NodeID {
	return f.add(Node{
		Kind:       LeafNode,
		Bounds:     bounds,
		Visibility: visibility,
		Children:   [2]NodeID{NoNode, NoNode},
		Lo:         int32(lo),
		Hi:         int32(hi),
	})
}

// Add an inner node whose bounds and visibility are derived from its children.
func (f *fragment) inner(child0, child1 NodeID) NodeID {
	return f.add(Node{
		Kind:       InnerNode,
		Bounds:     types.Merge(f.bounds(child0), f.bounds(child1)),
		Visibility: f.visibility(child0) | f.visibility(child1),
		Children:   [2]NodeID{child0, child1},
	})
}

// Add an inner node whose children will be filled in by other tasks.
func (f *fragment) asyncInner(bounds types.BoundBox) NodeID {
	return f.add(Node{
		Kind:     InnerNode,
		Bounds:   bounds,
		Children: [2]NodeID{NoNode, NoNode},
	})
}

// Combine a small set of subtrees into a balanced binary tree. For three
// subtrees the first one is paired with an inner node over the other two.
func (f *fragment) combine(subtrees []NodeID) NodeID {
	switch len(subtrees) {
	case 0:
		panic("bvh: combine called without subtrees")
	case 1:
		return subtrees[0]
	}
	mid := len(subtrees) / 2
	return f.inner(f.combine(subtrees[:mid]), f.combine(subtrees[mid:]))
}
