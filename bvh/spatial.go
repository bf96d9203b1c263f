package bvh

import (
	"math"
	"slices"

	"github.com/achilleasa/polaris-bvh/scene"
	"github.com/achilleasa/polaris-bvh/types"
)

type spatialBin struct {
	bounds types.BoundBox
	enter  int
	exit   int
}

// Scratch space shared by all spatial split evaluations of a build. It is
// only ever accessed by the single-threaded spatial builder.
type spatialStorage struct {
	bins        [3][NumSpatialBins]spatialBin
	rightBounds []types.BoundBox
	newRefs     []Reference
}

func newSpatialStorage(rootSize int) *spatialStorage {
	return &spatialStorage{
		rightBounds: make([]types.BoundBox, max(rootSize, NumSpatialBins)-1),
	}
}

// A spatial split candidate.
type spatialSplit struct {
	sah float32
	dim int
	pos float32

	// Upper bound for the number of references that straddle the plane.
	straddling int
}

func findSpatialSplit(storage *spatialStorage, refs []Reference, r Range, objects []*scene.Object, params *Params) spatialSplit {
	split := spatialSplit{sah: float32(math.Inf(1)), dim: -1}

	origin := r.Bounds.Min
	binSize := r.Bounds.Size().Mul(1.0 / NumSpatialBins)
	var invBinSize types.Vec3
	for axis := 0; axis < 3; axis++ {
		if binSize[axis] > 0 {
			invBinSize[axis] = 1.0 / binSize[axis]
		}
	}

	for axis := 0; axis < 3; axis++ {
		for i := range storage.bins[axis] {
			storage.bins[axis][i] = spatialBin{bounds: types.EmptyBoundBox()}
		}
	}

	for i := r.Start; i < r.End(); i++ {
		ref := refs[i]
		for axis := 0; axis < 3; axis++ {
			if invBinSize[axis] == 0 {
				continue
			}
			firstBin := clampBin((ref.Bounds.Min[axis]-origin[axis])*invBinSize[axis], 0)
			lastBin := clampBin((ref.Bounds.Max[axis]-origin[axis])*invBinSize[axis], firstBin)

			curr := ref
			for bin := firstBin; bin < lastBin; bin++ {
				left, right := splitReference(curr, objects, axis, origin[axis]+binSize[axis]*float32(bin+1))
				storage.bins[axis][bin].bounds.GrowBox(left.Bounds)
				curr = right
			}
			storage.bins[axis][lastBin].bounds.GrowBox(curr.Bounds)
			storage.bins[axis][firstBin].enter++
			storage.bins[axis][lastBin].exit++
		}
	}

	nodeSAH := params.NodeCost(1) * r.Bounds.SafeArea()
	for axis := 0; axis < 3; axis++ {
		if invBinSize[axis] == 0 {
			continue
		}
		bins := &storage.bins[axis]

		rightBounds := types.EmptyBoundBox()
		for i := NumSpatialBins - 1; i > 0; i-- {
			rightBounds.GrowBox(bins[i].bounds)
			storage.rightBounds[i-1] = rightBounds
		}

		leftBounds := types.EmptyBoundBox()
		leftNum, rightNum := 0, r.Size
		for i := 1; i < NumSpatialBins; i++ {
			leftBounds.GrowBox(bins[i-1].bounds)
			leftNum += bins[i-1].enter
			rightNum -= bins[i-1].exit
			if leftNum == 0 || rightNum == 0 {
				continue
			}

			sah := nodeSAH +
				leftBounds.SafeArea()*params.PrimitiveCost(leftNum) +
				storage.rightBounds[i-1].SafeArea()*params.PrimitiveCost(rightNum)
			if sah < split.sah {
				split.sah = sah
				split.dim = axis
				split.pos = origin[axis] + binSize[axis]*float32(i)
				split.straddling = leftNum + rightNum - r.Size
			}
		}
	}

	return split
}

func clampBin(f float32, lo int) int {
	if !(f > float32(lo)) {
		return lo
	}
	if f >= NumSpatialBins-1 {
		return NumSpatialBins - 1
	}
	return int(f)
}

// Apply the spatial split to r. References that straddle the split plane are
// either moved to one side or duplicated, whichever is cheaper. Duplicates
// are inserted at the end of the range so the returned slice may be longer
// than refs.
func (s spatialSplit) apply(storage *spatialStorage, refs []Reference, r Range, objects []*scene.Object, params *Params) ([]Reference, Range, Range) {
	leftStart, leftEnd := r.Start, r.Start
	rightStart, rightEnd := r.End(), r.End()
	leftBounds, rightBounds := types.EmptyBoundBox(), types.EmptyBoundBox()

	for i := leftEnd; i < rightStart; i++ {
		switch {
		case refs[i].Bounds.Max[s.dim] <= s.pos:
			leftBounds.GrowBox(refs[i].Bounds)
			refs[i], refs[leftEnd] = refs[leftEnd], refs[i]
			leftEnd++
		case refs[i].Bounds.Min[s.dim] >= s.pos:
			rightBounds.GrowBox(refs[i].Bounds)
			rightStart--
			refs[i], refs[rightStart] = refs[rightStart], refs[i]
			i--
		}
	}

	storage.newRefs = storage.newRefs[:0]
	for leftEnd < rightStart {
		lref, rref := splitReference(refs[leftEnd], objects, s.dim, s.pos)

		lub := types.Merge(leftBounds, refs[leftEnd].Bounds)
		rub := types.Merge(rightBounds, refs[leftEnd].Bounds)
		ldb := types.Merge(leftBounds, lref.Bounds)
		rdb := types.Merge(rightBounds, rref.Bounds)

		lnum := leftEnd - leftStart
		rnum := rightEnd - rightStart
		lac, rac := params.PrimitiveCost(lnum), params.PrimitiveCost(rnum)
		lbc, rbc := params.PrimitiveCost(lnum+1), params.PrimitiveCost(rnum+1)

		unsplitLeftSAH := lub.SafeArea()*lbc + rightBounds.SafeArea()*rac
		unsplitRightSAH := leftBounds.SafeArea()*lac + rub.SafeArea()*rbc
		duplicateSAH := ldb.SafeArea()*lbc + rdb.SafeArea()*rbc

		// The primitive may not reach one side of the plane within the
		// current clipped bounds.
		inf := float32(math.Inf(1))
		if !lref.Bounds.Valid() {
			unsplitLeftSAH, duplicateSAH = inf, inf
		} else if !rref.Bounds.Valid() {
			unsplitRightSAH, duplicateSAH = inf, inf
		}
		minSAH := min(unsplitLeftSAH, unsplitRightSAH, duplicateSAH)

		switch minSAH {
		case unsplitLeftSAH:
			leftBounds = lub
			leftEnd++
		case unsplitRightSAH:
			rightBounds = rub
			rightStart--
			refs[leftEnd], refs[rightStart] = refs[rightStart], refs[leftEnd]
		default:
			leftBounds = ldb
			rightBounds = rdb
			refs[leftEnd] = lref
			leftEnd++
			storage.newRefs = append(storage.newRefs, rref)
			rightEnd++
		}
	}

	if len(storage.newRefs) != 0 {
		refs = slices.Insert(refs, r.End(), storage.newRefs...)
	}

	return refs, NewRange(refs, leftStart, leftEnd-leftStart), NewRange(refs, rightStart, rightEnd-rightStart)
}

// Split a reference by an axis aligned plane. The returned references carry
// the clipped bounds on each side of the plane.
func splitReference(ref Reference, objects []*scene.Object, dim int, pos float32) (Reference, Reference) {
	left, right := types.EmptyBoundBox(), types.EmptyBoundBox()

	switch {
	case ref.IsObject():
		// Object references only shrink, so their bounds never exceed the
		// object bounds.
		left, right = splitBox(ref.Bounds, dim, pos)
	case ref.PrimType.IsTriangle():
		ob := objects[ref.PrimObject]
		for step := 0; step <= len(ob.Mesh.MotionVertices); step++ {
			verts := ob.WorldTriangle(step, int(ref.PrimIndex))
			splitTriangle(verts, dim, pos, &left, &right)
		}
	case ref.PrimType.IsCurve():
		ob := objects[ref.PrimObject]
		for step := 0; step <= len(ob.Mesh.MotionCurveKeys); step++ {
			keys := ob.WorldCurveSegment(step, int(ref.PrimIndex), ref.PrimType.Segment())
			splitCurveSegment(keys, dim, pos, &left, &right)
		}
	}

	// Clip against the plane and the current reference bounds.
	left.Max[dim] = pos
	right.Min[dim] = pos
	left.Intersect(ref.Bounds)
	right.Intersect(ref.Bounds)

	lref, rref := ref, ref
	lref.Bounds = left
	rref.Bounds = right
	return lref, rref
}

func splitTriangle(verts [3]types.Vec3, dim int, pos float32, left, right *types.BoundBox) {
	v1 := verts[2]
	for i := 0; i < 3; i++ {
		v0 := v1
		v1 = verts[i]
		v0p, v1p := v0[dim], v1[dim]

		if v0p <= pos {
			left.Grow(v0)
		}
		if v0p >= pos {
			right.Grow(v0)
		}

		// Edge crosses the plane.
		if (v0p < pos && pos < v1p) || (v1p < pos && pos < v0p) {
			t := clamp01((pos - v0p) / (v1p - v0p))
			p := v0.Add(v1.Sub(v0).Mul(t))
			left.Grow(p)
			right.Grow(p)
		}
	}
}

func splitCurveSegment(keys [2]types.Vec4, dim int, pos float32, left, right *types.BoundBox) {
	v0, v1 := keys[0].Vec3(), keys[1].Vec3()
	radius := max(keys[0][3], keys[1][3])
	v0p, v1p := v0[dim], v1[dim]

	if v0p <= pos {
		left.GrowRadius(v0, radius)
	}
	if v0p >= pos {
		right.GrowRadius(v0, radius)
	}
	if v1p <= pos {
		left.GrowRadius(v1, radius)
	}
	if v1p >= pos {
		right.GrowRadius(v1, radius)
	}

	if (v0p < pos && pos < v1p) || (v1p < pos && pos < v0p) {
		t := clamp01((pos - v0p) / (v1p - v0p))
		p := v0.Add(v1.Sub(v0).Mul(t))
		left.GrowRadius(p, radius)
		right.GrowRadius(p, radius)
	}
}

func splitBox(bounds types.BoundBox, dim int, pos float32) (types.BoundBox, types.BoundBox) {
	left, right := bounds, bounds
	left.Max[dim] = min(left.Max[dim], pos)
	right.Min[dim] = max(right.Min[dim], pos)
	return left, right
}

func clamp01(t float32) float32 {
	return min(max(t, 0), 1)
}
