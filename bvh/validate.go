package bvh

import (
	"fmt"
	"slices"

	"github.com/achilleasa/polaris-bvh/scene"
	"github.com/achilleasa/polaris-bvh/types"
)

// Validate checks the structural invariants of a tree built over objects:
//   - leaf primitive ranges are disjoint and cover all output slots
//   - inner node bounds equal the merge of their children bounds
//   - leaf bounds contain the bounds of their primitives (skipped for trees
//     built with spatial splits as their leaves hold clipped references)
//   - node visibility equals the OR of the visibility of the objects below
//   - each leaf holds a single primitive kind
func Validate(tree *Tree, objects []*scene.Object) error {
	n := tree.NumPrims()
	if len(tree.PrimIndex) != n || len(tree.PrimObject) != n {
		return fmt.Errorf("bvh: primitive array sizes differ (%d, %d, %d)", n, len(tree.PrimIndex), len(tree.PrimObject))
	}
	if tree.Root == NoNode {
		if n != 0 {
			return fmt.Errorf("bvh: tree has no root but %d primitives", n)
		}
		return nil
	}

	type span struct{ lo, hi int32 }
	spans := make([]span, 0)
	var err error

	var visit func(id NodeID) uint32
	visit = func(id NodeID) uint32 {
		if err != nil {
			return 0
		}
		node := &tree.Nodes[id]

		if node.IsLeaf() {
			spans = append(spans, span{node.Lo, node.Hi})
			var visibility uint32
			for slot := node.Lo; slot < node.Hi; slot++ {
				if tree.PrimType[slot].Kind() != tree.PrimType[node.Lo].Kind() {
					err = fmt.Errorf("bvh: leaf %d mixes %s and %s primitives", id, tree.PrimType[node.Lo], tree.PrimType[slot])
					return 0
				}
				ob := objects[tree.PrimObject[slot]]
				visibility |= ob.Visibility
				if tree.SpatialSplit {
					continue
				}
				if primBounds := primitiveBounds(ob, tree.PrimIndex[slot], tree.PrimType[slot]); !node.Bounds.Contains(primBounds) {
					err = fmt.Errorf("bvh: leaf %d bounds do not contain primitive at slot %d", id, slot)
					return 0
				}
			}
			if visibility != node.Visibility {
				err = fmt.Errorf("bvh: leaf %d visibility %#x; expected %#x", id, node.Visibility, visibility)
			}
			return visibility
		}

		bounds := types.EmptyBoundBox()
		var visibility uint32
		for _, child := range node.Children {
			if child == NoNode {
				continue
			}
			visibility |= visit(child)
			bounds.GrowBox(tree.Nodes[child].Bounds)
		}
		if err != nil {
			return 0
		}
		if bounds != node.Bounds {
			err = fmt.Errorf("bvh: inner node %d bounds %v; expected merged child bounds %v", id, node.Bounds, bounds)
		} else if visibility != node.Visibility {
			err = fmt.Errorf("bvh: inner node %d visibility %#x; expected %#x", id, node.Visibility, visibility)
		}
		return visibility
	}
	visit(tree.Root)
	if err != nil {
		return err
	}

	slices.SortFunc(spans, func(a, b span) int {
		if a.lo != b.lo {
			return int(a.lo - b.lo)
		}
		return int(a.hi - b.hi)
	})
	next := int32(0)
	for _, s := range spans {
		if s.lo != next {
			return fmt.Errorf("bvh: leaf range [%d, %d) does not start at %d", s.lo, s.hi, next)
		}
		next = s.hi
	}
	if int(next) != n {
		return fmt.Errorf("bvh: leaf ranges cover [0, %d); expected [0, %d)", next, n)
	}
	return nil
}

func primitiveBounds(ob *scene.Object, primIndex int32, primType PrimType) types.BoundBox {
	switch {
	case primIndex == -1:
		return ob.Bounds()
	case primType.IsTriangle():
		return ob.TriangleBounds(int(primIndex))
	case primType.IsCurve():
		return ob.CurveSegmentBounds(int(primIndex), primType.Segment())
	}
	return types.EmptyBoundBox()
}
