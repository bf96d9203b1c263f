package bvh

import (
	"math"

	"github.com/achilleasa/polaris-bvh/types"
)

type objectBin struct {
	bounds types.BoundBox
	count  int
}

// ObjectBinning evaluates binned SAH object splits for a range. References
// are assigned to bins based on their centroid; the best (axis, bin) pair is
// selected by sweeping the bins from both sides.
type ObjectBinning struct {
	Range

	// Cost of turning the range into a leaf and cost of the best split.
	LeafSAH  float32
	SplitSAH float32

	// Bounds and counts of the best split children. Left and right bounds
	// are empty when no split candidate exists.
	LeftBounds  types.BoundBox
	RightBounds types.BoundBox
	LeftCount   int
	RightCount  int

	dim      int
	splitBin int

	origin types.Vec3
	scale  types.Vec3
}

// Bin the references covered by r and evaluate all split candidates.
func NewObjectBinning(refs []Reference, r Range, params *Params) *ObjectBinning {
	b := &ObjectBinning{
		Range:       r,
		LeafSAH:     params.SAHPrimitiveCost * r.LeafSAH(),
		SplitSAH:    float32(math.Inf(1)),
		LeftBounds:  types.EmptyBoundBox(),
		RightBounds: types.EmptyBoundBox(),
		dim:         -1,
		origin:      r.CenterBounds.Min,
	}
	if r.Size < 2 {
		return b
	}

	extent := r.CenterBounds.Size()
	for axis := 0; axis < 3; axis++ {
		if extent[axis] > 0 {
			b.scale[axis] = float32(NumSpatialBins) / extent[axis]
		}
	}

	var bins [3][NumSpatialBins]objectBin
	for axis := 0; axis < 3; axis++ {
		for i := range bins[axis] {
			bins[axis][i].bounds = types.EmptyBoundBox()
		}
	}
	for i := r.Start; i < r.End(); i++ {
		center := refs[i].Bounds.Center2()
		for axis := 0; axis < 3; axis++ {
			if b.scale[axis] == 0 {
				continue
			}
			bin := &bins[axis][b.binIndex(center, axis)]
			bin.bounds.GrowBox(refs[i].Bounds)
			bin.count++
		}
	}

	bestCost := float32(math.Inf(1))
	var rightBounds [NumSpatialBins]types.BoundBox
	var rightCount [NumSpatialBins]int
	for axis := 0; axis < 3; axis++ {
		if b.scale[axis] == 0 {
			continue
		}

		// Right to left sweep; entry i covers bins [i, N).
		bounds := types.EmptyBoundBox()
		count := 0
		for i := NumSpatialBins - 1; i > 0; i-- {
			bounds.GrowBox(bins[axis][i].bounds)
			count += bins[axis][i].count
			rightBounds[i] = bounds
			rightCount[i] = count
		}

		// Left to right sweep; a split at i places bins [0, i) on the left.
		bounds = types.EmptyBoundBox()
		count = 0
		for i := 1; i < NumSpatialBins; i++ {
			bounds.GrowBox(bins[axis][i-1].bounds)
			count += bins[axis][i-1].count
			if count == 0 || rightCount[i] == 0 {
				continue
			}
			cost := float32(count)*bounds.HalfArea() + float32(rightCount[i])*rightBounds[i].HalfArea()
			if cost < bestCost {
				bestCost = cost
				b.dim = axis
				b.splitBin = i
				b.LeftBounds = bounds
				b.RightBounds = rightBounds[i]
				b.LeftCount = count
				b.RightCount = rightCount[i]
			}
		}
	}

	if b.dim != -1 {
		b.SplitSAH = params.NodeCost(1)*r.Bounds.HalfArea() + params.SAHPrimitiveCost*bestCost
	}
	return b
}

// Returns true if a split candidate with non-empty children was found.
func (b *ObjectBinning) HasSplit() bool {
	return b.dim != -1
}

// Split axis; -1 if no candidate exists.
func (b *ObjectBinning) Dim() int {
	return b.dim
}

func (b *ObjectBinning) binIndex(center types.Vec3, axis int) int {
	f := (center[axis] - b.origin[axis]) * b.scale[axis]
	if !(f > 0) {
		return 0
	}
	if f >= NumSpatialBins-1 {
		return NumSpatialBins - 1
	}
	return int(f)
}

// Partition the references in place and return the two child ranges with
// exact bounds. Without a split candidate the range is split at its midpoint.
func (b *ObjectBinning) Split(refs []Reference) (Range, Range) {
	mid := b.Start + (b.Size+1)/2
	if b.dim != -1 {
		i, j := b.Start, b.End()-1
		for i <= j {
			if b.binIndex(refs[i].Bounds.Center2(), b.dim) < b.splitBin {
				i++
				continue
			}
			refs[i], refs[j] = refs[j], refs[i]
			j--
		}
		mid = i
	}

	return NewRange(refs, b.Start, mid-b.Start), NewRange(refs, mid, b.End()-mid)
}
