package bvh

import (
	"math"

	"github.com/achilleasa/polaris-bvh/scene"
	"github.com/achilleasa/polaris-bvh/types"
)

// CollectReferences creates the build references for a set of objects and
// returns them together with the root range.
//
// Top-level builds emit one reference per instanced object and flatten the
// primitives of objects whose mesh is not shared. Other builds always
// flatten. Primitives with invalid bounds are skipped.
func CollectReferences(objects []*scene.Object, params Params, progress Progress) ([]Reference, Range, error) {
	if progress == nil {
		progress = nopProgress{}
	}

	numRefs := 0
	for _, ob := range objects {
		if ob.Mesh != nil {
			numRefs += ob.Mesh.NumPrimitives()
		}
	}
	refs := make([]Reference, 0, numRefs)

	for index, ob := range objects {
		if progress.Cancelled() {
			return nil, Range{}, ErrCancelled
		}
		if ob.Mesh == nil {
			continue
		}

		if params.TopLevel {
			bounds, traceable := ob.TraceableBounds()
			if !traceable {
				continue
			}
			if ob.Mesh.Instanced() {
				refs = appendRef(refs, bounds, -1, index, PrimNone)
				continue
			}
		}
		refs = appendMeshRefs(refs, ob, index)
	}

	root := NewRange(refs, 0, len(refs))
	if !root.Bounds.Valid() {
		origin := types.Vec3{}
		root.Bounds.Grow(origin)
		root.CenterBounds.Grow(origin)
	}
	return refs, root, nil
}

func appendMeshRefs(refs []Reference, ob *scene.Object, index int) []Reference {
	mesh := ob.Mesh

	triType := PrimTriangle
	if mesh.HasTriangleMotion() {
		triType = PrimMotionTriangle
	}
	for tri := range mesh.Triangles {
		refs = appendRef(refs, ob.TriangleBounds(tri), tri, index, triType)
	}

	curveType := PrimCurve
	if mesh.HasCurveMotion() {
		curveType = PrimMotionCurve
	}
	for curve, c := range mesh.Curves {
		for segment := 0; segment < c.NumSegments(); segment++ {
			refs = appendRef(refs, ob.CurveSegmentBounds(curve, segment), curve, index, PackSegment(curveType, segment))
		}
	}
	return refs
}

func appendRef(refs []Reference, bounds types.BoundBox, primIndex, primObject int, primType PrimType) []Reference {
	if !bounds.Valid() || !finite(bounds) {
		return refs
	}
	return append(refs, Reference{
		Bounds:     bounds,
		PrimIndex:  int32(primIndex),
		PrimObject: int32(primObject),
		PrimType:   primType,
	})
}

func finite(b types.BoundBox) bool {
	for axis := 0; axis < 3; axis++ {
		for _, v := range [2]float32{b.Min[axis], b.Max[axis]} {
			if math.IsInf(float64(v), 0) || math.IsNaN(float64(v)) {
				return false
			}
		}
	}
	return true
}
