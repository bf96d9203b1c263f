package types

import "math"

// Extent substituted for degenerate box axes when computing SafeArea.
const minSafeExtent float32 = 1e-5

var (
	posInf = float32(math.Inf(1))
	negInf = float32(math.Inf(-1))
)

// BoundBox is an axis-aligned bounding box. The zero value is NOT empty; use
// EmptyBoundBox to obtain a box that can be grown.
type BoundBox struct {
	Min Vec3
	Max Vec3
}

// Create an empty bounding box (min = +inf, max = -inf).
func EmptyBoundBox() BoundBox {
	return BoundBox{
		Min: Vec3{posInf, posInf, posInf},
		Max: Vec3{negInf, negInf, negInf},
	}
}

// Create a bounding box from two corners.
func NewBoundBox(min, max Vec3) BoundBox {
	return BoundBox{Min: min, Max: max}
}

// Grow the box so it contains the point.
func (b *BoundBox) Grow(p Vec3) {
	b.Min = MinVec3(b.Min, p)
	b.Max = MaxVec3(b.Max, p)
}

// Grow the box by a radius around a point.
func (b *BoundBox) GrowRadius(p Vec3, r float32) {
	b.Min = MinVec3(b.Min, p.Sub(Splat3(r)))
	b.Max = MaxVec3(b.Max, p.Add(Splat3(r)))
}

// Grow the box so it contains another box.
func (b *BoundBox) GrowBox(other BoundBox) {
	b.Min = MinVec3(b.Min, other.Min)
	b.Max = MaxVec3(b.Max, other.Max)
}

// Merge two boxes.
func Merge(a, b BoundBox) BoundBox {
	return BoundBox{
		Min: MinVec3(a.Min, b.Min),
		Max: MaxVec3(a.Max, b.Max),
	}
}

// Clip the box against another box. The result may be invalid if the
// boxes do not overlap.
func (b *BoundBox) Intersect(other BoundBox) {
	b.Min = MaxVec3(b.Min, other.Min)
	b.Max = MinVec3(b.Max, other.Max)
}

// Return the intersection of two boxes.
func Intersection(a, b BoundBox) BoundBox {
	a.Intersect(b)
	return a
}

// Returns min+max. The unnormalized centroid is used for binning so that all
// primitives share the same (doubled) centroid space.
func (b BoundBox) Center2() Vec3 {
	return b.Min.Add(b.Max)
}

// Returns the box centroid.
func (b BoundBox) Center() Vec3 {
	return b.Center2().Mul(0.5)
}

// Returns the box extent along each axis.
func (b BoundBox) Size() Vec3 {
	return b.Max.Sub(b.Min)
}

// Returns the sum of the three face areas; this is half of the surface area
// and is used as the SAH cost proxy.
func (b BoundBox) HalfArea() float32 {
	d := b.Size()
	return d[0]*d[1] + d[1]*d[2] + d[0]*d[2]
}

// Returns the half area guarding against degenerate axes. Invalid boxes
// have a zero area.
func (b BoundBox) SafeArea() float32 {
	if !b.Valid() {
		return 0
	}
	d := b.Size()
	for axis := 0; axis < 3; axis++ {
		if d[axis] < minSafeExtent {
			d[axis] = minSafeExtent
		}
	}
	return d[0]*d[1] + d[1]*d[2] + d[0]*d[2]
}

// Returns true if min <= max along every axis.
func (b BoundBox) Valid() bool {
	return b.Min[0] <= b.Max[0] && b.Min[1] <= b.Max[1] && b.Min[2] <= b.Max[2]
}

// Returns true if other is fully contained inside this box.
func (b BoundBox) Contains(other BoundBox) bool {
	return b.Min[0] <= other.Min[0] && b.Min[1] <= other.Min[1] && b.Min[2] <= other.Min[2] &&
		b.Max[0] >= other.Max[0] && b.Max[1] >= other.Max[1] && b.Max[2] >= other.Max[2]
}

// Transform all eight corners of the box and return their bounds.
func (b BoundBox) Transform(m Mat4) BoundBox {
	out := EmptyBoundBox()
	for corner := 0; corner < 8; corner++ {
		p := b.Min
		if corner&1 != 0 {
			p[0] = b.Max[0]
		}
		if corner&2 != 0 {
			p[1] = b.Max[1]
		}
		if corner&4 != 0 {
			p[2] = b.Max[2]
		}
		out.Grow(m.MulPoint(p))
	}
	return out
}
