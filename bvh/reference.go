package bvh

import (
	"math/bits"

	"github.com/achilleasa/polaris-bvh/types"
)

// PrimType encodes the primitive kind in its low bits and, for curve
// primitives, the curve segment index in the remaining bits.
type PrimType uint32

const (
	PrimNone           PrimType = 0
	PrimTriangle       PrimType = 1 << 0
	PrimMotionTriangle PrimType = 1 << 1
	PrimCurve          PrimType = 1 << 2
	PrimMotionCurve    PrimType = 1 << 3

	// Number of distinct primitive kinds that can be packed into leaves.
	PrimitiveNumTotal = 4

	primitiveNumBits          = 4
	primAll          PrimType = PrimTriangle | PrimMotionTriangle | PrimCurve | PrimMotionCurve
)

// Pack a curve segment index into a primitive type.
func PackSegment(kind PrimType, segment int) PrimType {
	return PrimType(segment)<<primitiveNumBits | (kind & primAll)
}

// Get the primitive kind without the segment index.
func (t PrimType) Kind() PrimType {
	return t & primAll
}

// Get the curve segment index.
func (t PrimType) Segment() int {
	return int(t >> primitiveNumBits)
}

// Get the bucket index [0, PrimitiveNumTotal) for this primitive kind.
func (t PrimType) KindIndex() int {
	return bits.TrailingZeros32(uint32(t.Kind()))
}

func (t PrimType) IsTriangle() bool {
	return t&(PrimTriangle|PrimMotionTriangle) != 0
}

func (t PrimType) IsCurve() bool {
	return t&(PrimCurve|PrimMotionCurve) != 0
}

func (t PrimType) IsMotion() bool {
	return t&(PrimMotionTriangle|PrimMotionCurve) != 0
}

func (t PrimType) String() string {
	switch t.Kind() {
	case PrimTriangle:
		return "triangle"
	case PrimMotionTriangle:
		return "motion triangle"
	case PrimCurve:
		return "curve"
	case PrimMotionCurve:
		return "motion curve"
	}
	return "object"
}

// A Reference is one occurrence of a primitive in the build working set. A
// primitive may be referenced more than once after spatial splits; each
// duplicate carries clipped bounds.
type Reference struct {
	Bounds     types.BoundBox
	PrimIndex  int32
	PrimObject int32
	PrimType   PrimType
}

// Returns true if the reference points to an object instance.
func (r *Reference) IsObject() bool {
	return r.PrimIndex == -1
}
