package bvh

import (
	"math"

	"github.com/achilleasa/polaris-bvh/types"
)

// mixedSplit compares the best object split of a range with the best spatial
// split and the cost of turning the range into a leaf.
type mixedSplit struct {
	object  *ObjectBinning
	spatial spatialSplit

	leafSAH    float32
	objectSAH  float32
	spatialSAH float32
	minSAH     float32

	useSpatial bool
	noSplit    bool

	// Set when a cheaper spatial split was rejected because it would
	// exceed the reference headroom.
	degraded bool
}

func (b *Builder) newMixedSplit(r Range, level int) *mixedSplit {
	inf := float32(math.Inf(1))
	s := &mixedSplit{
		object:     NewObjectBinning(b.refs, r, &b.params),
		spatial:    spatialSplit{sah: inf, dim: -1},
		leafSAH:    b.params.SAHPrimitiveCost * r.Bounds.SafeArea() * float32(r.Size),
		objectSAH:  inf,
		spatialSAH: inf,
	}

	if s.object.HasSplit() {
		s.objectSAH = b.params.NodeCost(1)*r.Bounds.SafeArea() +
			s.object.LeftBounds.SafeArea()*b.params.PrimitiveCost(s.object.LeftCount) +
			s.object.RightBounds.SafeArea()*b.params.PrimitiveCost(s.object.RightCount)
	}

	if b.params.UseSpatialSplit && level < MaxSpatialDepth {
		overlap := types.Intersection(s.object.LeftBounds, s.object.RightBounds)
		if overlap.SafeArea() >= b.spatialMinOverlap {
			s.spatial = findSpatialSplit(b.spatialStorage, b.refs, r, b.objects, &b.params)
			s.spatialSAH = s.spatial.sah
		}
	}

	s.minSAH = min(s.leafSAH, s.objectSAH, s.spatialSAH)
	s.noSplit = (s.minSAH == s.leafSAH && b.withinMaxLeafSize(r)) ||
		(s.objectSAH == inf && s.spatialSAH == inf)

	if s.spatial.dim != -1 && s.spatialSAH < s.objectSAH {
		if len(b.refs)+s.spatial.straddling > b.maxReferences {
			s.degraded = true
		} else {
			s.useSpatial = true
		}
	}
	return s
}

// Split the range. Spatial splits may grow the builder reference array.
func (s *mixedSplit) split(b *Builder, r Range) (Range, Range) {
	if s.useSpatial {
		var left, right Range
		b.refs, left, right = s.spatial.apply(b.spatialStorage, b.refs, r, b.objects, &b.params)
		if left.Size != 0 && right.Size != 0 {
			return left, right
		}
		// All straddling references were moved to one side without
		// duplication so the range still covers the same references.
	}
	return s.object.Split(b.refs)
}
