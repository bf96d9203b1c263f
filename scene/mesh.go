package scene

import (
	"fmt"

	"github.com/achilleasa/polaris-bvh/types"
)

// A curve is a poly-line over a contiguous run of mesh curve keys. Each pair of
// consecutive keys forms a curve segment.
type Curve struct {
	FirstKey int32
	NumKeys  int32
}

// Number of segments in the curve.
func (c Curve) NumSegments() int {
	if c.NumKeys < 2 {
		return 0
	}
	return int(c.NumKeys) - 1
}

// A mesh stores triangle and curve geometry in object space.
type Mesh struct {
	Name string

	Vertices  []types.Vec3
	Triangles [][3]int32

	// Additional vertex positions for each motion step. When present, every
	// step must contain the same number of entries as Vertices.
	MotionVertices [][]types.Vec3

	// Curve keys; the W component holds the key radius.
	CurveKeys       []types.Vec4
	MotionCurveKeys [][]types.Vec4
	Curves          []Curve

	// Number of objects referencing this mesh.
	instances int
}

// Create a new mesh.
func NewMesh(name string) *Mesh {
	return &Mesh{
		Name:      name,
		Vertices:  make([]types.Vec3, 0),
		Triangles: make([][3]int32, 0),
	}
}

// Returns true if the mesh is referenced by more than one object.
func (m *Mesh) Instanced() bool {
	return m.instances > 1
}

// Returns true if the mesh triangles are motion blurred.
func (m *Mesh) HasTriangleMotion() bool {
	return len(m.MotionVertices) > 0
}

// Returns true if the mesh curves are motion blurred.
func (m *Mesh) HasCurveMotion() bool {
	return len(m.MotionCurveKeys) > 0
}

// Number of triangles.
func (m *Mesh) NumTriangles() int {
	return len(m.Triangles)
}

// Number of curve segments over all curves.
func (m *Mesh) NumCurveSegments() int {
	total := 0
	for _, c := range m.Curves {
		total += c.NumSegments()
	}
	return total
}

// Number of primitives (triangles and curve segments).
func (m *Mesh) NumPrimitives() int {
	return m.NumTriangles() + m.NumCurveSegments()
}

// Get the triangle vertices for a motion step. Step 0 refers to Vertices.
func (m *Mesh) TriangleVertices(step, tri int) [3]types.Vec3 {
	verts := m.Vertices
	if step > 0 {
		verts = m.MotionVertices[step-1]
	}
	t := m.Triangles[tri]
	return [3]types.Vec3{verts[t[0]], verts[t[1]], verts[t[2]]}
}

// Get the two keys of a curve segment for a motion step.
func (m *Mesh) CurveSegmentKeys(step, curve, segment int) [2]types.Vec4 {
	keys := m.CurveKeys
	if step > 0 {
		keys = m.MotionCurveKeys[step-1]
	}
	first := int(m.Curves[curve].FirstKey) + segment
	return [2]types.Vec4{keys[first], keys[first+1]}
}

// Check that all indices are in range and that motion steps are consistent.
func (m *Mesh) Validate() error {
	for index, tri := range m.Triangles {
		for _, v := range tri {
			if v < 0 || int(v) >= len(m.Vertices) {
				return fmt.Errorf("scene: mesh %q triangle %d references out of range vertex %d", m.Name, index, v)
			}
		}
	}
	for step, verts := range m.MotionVertices {
		if len(verts) != len(m.Vertices) {
			return fmt.Errorf("scene: mesh %q motion step %d has %d vertices; expected %d", m.Name, step+1, len(verts), len(m.Vertices))
		}
	}
	for index, c := range m.Curves {
		if c.FirstKey < 0 || int(c.FirstKey+c.NumKeys) > len(m.CurveKeys) {
			return fmt.Errorf("scene: mesh %q curve %d references out of range keys", m.Name, index)
		}
	}
	for step, keys := range m.MotionCurveKeys {
		if len(keys) != len(m.CurveKeys) {
			return fmt.Errorf("scene: mesh %q curve motion step %d has %d keys; expected %d", m.Name, step+1, len(keys), len(m.CurveKeys))
		}
	}
	return nil
}
