package scene

import "github.com/achilleasa/polaris-bvh/types"

// Ray visibility flags.
const (
	VisibleCamera uint32 = 1 << iota
	VisibleDiffuse
	VisibleGlossy
	VisibleTransmit
	VisibleShadow

	VisibleAll = VisibleCamera | VisibleDiffuse | VisibleGlossy | VisibleTransmit | VisibleShadow
)

// An object positions a mesh inside the scene.
type Object struct {
	Name      string
	Mesh      *Mesh
	Transform types.Mat4

	// A mask of Visible* flags.
	Visibility uint32
}

// Create a new object with an identity transform that is visible to all rays.
func NewObject(name string, mesh *Mesh) *Object {
	return &Object{
		Name:       name,
		Mesh:       mesh,
		Transform:  types.Ident4(),
		Visibility: VisibleAll,
	}
}

// Returns true if the object can be hit by at least one ray type.
func (o *Object) Traceable() bool {
	_, traceable := o.TraceableBounds()
	return traceable
}

// Get the object bounds along with its traceability. Callers that need both
// avoid walking the mesh twice.
func (o *Object) TraceableBounds() (types.BoundBox, bool) {
	if o.Visibility == 0 || o.Mesh == nil {
		return types.EmptyBoundBox(), false
	}
	bounds := o.Bounds()
	return bounds, bounds.Valid()
}

// Number of motion steps for the object geometry.
func (o *Object) MotionSteps() int {
	steps := 1 + len(o.Mesh.MotionVertices)
	if curveSteps := 1 + len(o.Mesh.MotionCurveKeys); curveSteps > steps {
		steps = curveSteps
	}
	return steps
}

// Get world-space triangle vertices for a motion step.
func (o *Object) WorldTriangle(step, tri int) [3]types.Vec3 {
	verts := o.Mesh.TriangleVertices(step, tri)
	for i := range verts {
		verts[i] = o.Transform.MulPoint(verts[i])
	}
	return verts
}

// Get world-space triangle bounds over all motion steps.
func (o *Object) TriangleBounds(tri int) types.BoundBox {
	bounds := types.EmptyBoundBox()
	for step := 0; step <= len(o.Mesh.MotionVertices); step++ {
		for _, v := range o.WorldTriangle(step, tri) {
			bounds.Grow(v)
		}
	}
	return bounds
}

// Get world-space curve segment keys for a motion step. Radii are scaled by
// the length of the transformed X basis vector.
func (o *Object) WorldCurveSegment(step, curve, segment int) [2]types.Vec4 {
	keys := o.Mesh.CurveSegmentKeys(step, curve, segment)
	scale := o.radiusScale()
	for i := range keys {
		keys[i] = o.Transform.MulPoint(keys[i].Vec3()).Vec4(keys[i][3] * scale)
	}
	return keys
}

// Get world-space curve segment bounds over all motion steps.
func (o *Object) CurveSegmentBounds(curve, segment int) types.BoundBox {
	bounds := types.EmptyBoundBox()
	for step := 0; step <= len(o.Mesh.MotionCurveKeys); step++ {
		for _, k := range o.WorldCurveSegment(step, curve, segment) {
			bounds.GrowRadius(k.Vec3(), k[3])
		}
	}
	return bounds
}

// Get world-space object bounds over all primitives and motion steps.
func (o *Object) Bounds() types.BoundBox {
	bounds := types.EmptyBoundBox()
	if o.Mesh == nil {
		return bounds
	}
	for tri := range o.Mesh.Triangles {
		bounds.GrowBox(o.TriangleBounds(tri))
	}
	for curve, c := range o.Mesh.Curves {
		for segment := 0; segment < c.NumSegments(); segment++ {
			bounds.GrowBox(o.CurveSegmentBounds(curve, segment))
		}
	}
	return bounds
}

func (o *Object) radiusScale() float32 {
	return types.Vec3{o.Transform[0], o.Transform[1], o.Transform[2]}.Len()
}
