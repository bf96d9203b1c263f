package bvh

import (
	"math"

	"github.com/achilleasa/polaris-bvh/types"
)

// Get a visitor that applies SAH rotations to a finished tree.
func RotateVisitor(params Params) Visitor {
	return func(tree *Tree) {
		Rotate(tree, params.RotationDepth, params.RotationIterations)
	}
}

// Rotate performs local tree rotations that reduce the SAH cost. Each
// iteration visits the tree bottom-up up to maxDepth levels deep and, for
// every inner node, swaps a grandchild with its uncle if that shrinks the
// child bounds.
func Rotate(tree *Tree, maxDepth, iterations int) {
	if tree.Root == NoNode {
		return
	}
	for i := 0; i < iterations; i++ {
		tree.rotate(tree.Root, maxDepth)
	}
}

func (t *Tree) rotate(id NodeID, maxDepth int) {
	node := &t.Nodes[id]
	if node.IsLeaf() || maxDepth < 0 {
		return
	}
	if node.Children[0] == NoNode || node.Children[1] == NoNode {
		return
	}

	for _, child := range node.Children {
		t.rotate(child, maxDepth-1)
	}

	bounds := [2]types.BoundBox{t.Nodes[node.Children[0]].Bounds, t.Nodes[node.Children[1]].Bounds}
	childArea := [2]float32{bounds[0].HalfArea(), bounds[1].HalfArea()}

	bestCost := float32(math.Inf(1))
	bestChild, bestTarget := -1, -1
	for c := 0; c < 2; c++ {
		child := &t.Nodes[node.Children[c]]
		if child.IsLeaf() || child.Children[0] == NoNode || child.Children[1] == NoNode {
			continue
		}

		other := bounds[1-c]
		target0 := t.Nodes[child.Children[0]].Bounds
		target1 := t.Nodes[child.Children[1]].Bounds

		cost0, cost1 := swapCosts(other, target0, target1, childArea[c])
		if min(cost0, cost1) < bestCost {
			bestChild = c
			if cost0 < cost1 {
				bestCost = cost0
				bestTarget = 0
			} else {
				bestCost = cost1
				bestTarget = 1
			}
		}
	}

	if bestChild == -1 || bestCost >= 0 {
		return
	}

	childID := node.Children[bestChild]
	child := &t.Nodes[childID]
	node.Children[1-bestChild], child.Children[bestTarget] = child.Children[bestTarget], node.Children[1-bestChild]

	left, right := &t.Nodes[child.Children[0]], &t.Nodes[child.Children[1]]
	child.Bounds = types.Merge(left.Bounds, right.Bounds)
	child.Visibility = left.Visibility | right.Visibility
}

// Get the change in child area when swapping other with either target of
// the child. A negative cost improves the tree.
func swapCosts(other, target0, target1 types.BoundBox, childArea float32) (float32, float32) {
	cost0 := types.Merge(other, target1).HalfArea() - childArea
	cost1 := types.Merge(target0, other).HalfArea() - childArea
	return cost0, cost1
}
