package bvh

import "github.com/achilleasa/polaris-bvh/types"

// A Range is a view into a contiguous slice of the reference array together
// with the bounds of its primitives and of their (doubled) centroids.
type Range struct {
	Start int
	Size  int

	Bounds       types.BoundBox
	CenterBounds types.BoundBox
}

// Create a range and compute its exact bounds from the references it covers.
func NewRange(refs []Reference, start, size int) Range {
	r := Range{
		Start:        start,
		Size:         size,
		Bounds:       types.EmptyBoundBox(),
		CenterBounds: types.EmptyBoundBox(),
	}
	for i := start; i < start+size; i++ {
		r.Bounds.GrowBox(refs[i].Bounds)
		r.CenterBounds.Grow(refs[i].Bounds.Center2())
	}
	return r
}

// One past the last reference index.
func (r Range) End() int {
	return r.Start + r.Size
}

// Cost of turning the range into a single leaf, before the primitive cost
// factor is applied.
func (r Range) LeafSAH() float32 {
	if r.Size == 0 {
		return 0
	}
	return r.Bounds.HalfArea() * float32(r.Size)
}
