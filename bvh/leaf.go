package bvh

import (
	"fmt"

	"github.com/achilleasa/polaris-bvh/types"
)

// Pack the references of r into one or more leaves writing their primitives
// to the output arrays starting at base. A leaf only holds primitives of a
// single kind; object instances get one leaf each arranged in a balanced
// tree.
func (b *Builder) createLeaf(frag *fragment, r Range, base int) NodeID {
	if b.progress.Cancelled() {
		return NoNode
	}

	// Move object references to the front of the range.
	cursor := r.Start
	for i := r.Start; i < r.End(); i++ {
		if b.refs[i].IsObject() {
			b.refs[i], b.refs[cursor] = b.refs[cursor], b.refs[i]
			cursor++
		}
	}
	numObjects := cursor - r.Start

	var (
		counts     [PrimitiveNumTotal]int
		bounds     [PrimitiveNumTotal]types.BoundBox
		visibility [PrimitiveNumTotal]uint32
	)
	for k := range bounds {
		bounds[k] = types.EmptyBoundBox()
	}
	for i := cursor; i < r.End(); i++ {
		ref := &b.refs[i]
		k := ref.PrimType.KindIndex()
		counts[k]++
		bounds[k].GrowBox(ref.Bounds)
		visibility[k] |= b.objects[ref.PrimObject].Visibility
	}

	var offsets [PrimitiveNumTotal]int
	next := base
	for k := range offsets {
		offsets[k] = next
		next += counts[k]
	}
	for i := cursor; i < r.End(); i++ {
		ref := &b.refs[i]
		k := ref.PrimType.KindIndex()
		b.writePrim(offsets[k], ref)
		offsets[k]++
	}

	leaves := make([]NodeID, 0, PrimitiveNumTotal+1)
	lo := base
	for k := range counts {
		if counts[k] == 0 {
			continue
		}
		leaves = append(leaves, frag.leaf(bounds[k], visibility[k], lo, lo+counts[k]))
		lo += counts[k]
	}

	if numObjects > 0 {
		for i := 0; i < numObjects; i++ {
			b.writePrim(lo+i, &b.refs[r.Start+i])
		}
		leaves = append(leaves, b.createObjectLeafNodes(frag, b.refs[r.Start:cursor], lo))
	}

	switch {
	case len(leaves) == 0:
		return frag.leaf(types.EmptyBoundBox(), 0, base, base)
	case len(leaves) > PrimitiveNumTotal+1:
		panic(fmt.Sprintf("bvh: range produced %d leaves; expected at most %d", len(leaves), PrimitiveNumTotal+1))
	}
	return frag.combine(leaves)
}

// Build a balanced tree of single object leaves. Object references are
// already written to the output arrays starting at base.
func (b *Builder) createObjectLeafNodes(frag *fragment, refs []Reference, base int) NodeID {
	if len(refs) == 1 {
		ref := &refs[0]
		return frag.leaf(ref.Bounds, b.objects[ref.PrimObject].Visibility, base, base+1)
	}
	mid := len(refs) / 2
	left := b.createObjectLeafNodes(frag, refs[:mid], base)
	right := b.createObjectLeafNodes(frag, refs[mid:], base+mid)
	return frag.inner(left, right)
}

func (b *Builder) writePrim(slot int, ref *Reference) {
	b.primType[slot] = ref.PrimType
	b.primIndex[slot] = ref.PrimIndex
	b.primObject[slot] = ref.PrimObject
}

// Reserve output slots for a spatial split leaf. Leaves are created in
// depth-first order so slots are handed out sequentially.
func (b *Builder) reserveSlots(count int) int {
	base := len(b.primType)
	if base+count > cap(b.primType) {
		reserve := max(count, base/2)
		b.primType = append(make([]PrimType, 0, base+reserve), b.primType...)
		b.primIndex = append(make([]int32, 0, base+reserve), b.primIndex...)
		b.primObject = append(make([]int32, 0, base+reserve), b.primObject...)
	}
	b.primType = b.primType[:base+count]
	b.primIndex = b.primIndex[:base+count]
	b.primObject = b.primObject[:base+count]
	return base
}

// Returns true if the number of primitives of each kind in the range fits in
// a single leaf.
func (b *Builder) withinMaxLeafSize(r Range) bool {
	var counts [PrimitiveNumTotal]int
	for i := r.Start; i < r.End(); i++ {
		if b.refs[i].IsObject() {
			continue
		}
		counts[b.refs[i].PrimType.KindIndex()]++
	}
	return counts[PrimTriangle.KindIndex()] <= b.params.MaxTriangleLeafSize &&
		counts[PrimMotionTriangle.KindIndex()] <= b.params.MaxMotionTriangleLeafSize &&
		counts[PrimCurve.KindIndex()] <= b.params.MaxCurveLeafSize &&
		counts[PrimMotionCurve.KindIndex()] <= b.params.MaxMotionCurveLeafSize
}
