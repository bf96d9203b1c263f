package scene

import (
	"strings"
	"testing"

	"github.com/achilleasa/polaris-bvh/types"
)

func triangleMesh(name string) *Mesh {
	mesh := NewMesh(name)
	mesh.Vertices = append(mesh.Vertices, types.XYZ(0, 0, 0), types.XYZ(1, 0, 0), types.XYZ(0, 1, 0))
	mesh.Triangles = append(mesh.Triangles, [3]int32{0, 1, 2})
	return mesh
}

func TestAddMeshAndObject(t *testing.T) {
	sc := NewScene()
	mesh := triangleMesh("tri")

	ob := NewObject("ob", mesh)
	expError := "references unknown mesh"
	if err := sc.AddObject(ob); err == nil || !strings.Contains(err.Error(), expError) {
		t.Fatalf("expected error containing %q; got %v", expError, err)
	}

	if err := sc.AddMesh(mesh); err != nil {
		t.Fatal(err)
	}
	if err := sc.AddMesh(mesh); err == nil {
		t.Fatal("expected an error when adding the same mesh twice")
	}

	if err := sc.AddObject(ob); err != nil {
		t.Fatal(err)
	}
	if mesh.Instanced() {
		t.Fatal("expected mesh with a single object not to be instanced")
	}
	if err := sc.AddObject(NewObject("ob2", mesh)); err != nil {
		t.Fatal(err)
	}
	if !mesh.Instanced() {
		t.Fatal("expected mesh with two objects to be instanced")
	}

	if sc.MeshByName("tri") != mesh || sc.MeshIndex(mesh) != 0 {
		t.Fatal("expected mesh lookups to find the added mesh")
	}
	if sc.NumPrimitives() != 2 {
		t.Fatalf("expected scene to contain 2 primitives; got %d", sc.NumPrimitives())
	}
}

func TestMeshValidation(t *testing.T) {
	type spec struct {
		mutate   func(*Mesh)
		expError string
	}
	specs := []spec{
		{func(m *Mesh) {}, ""},
		{func(m *Mesh) { m.Triangles[0][2] = 3 }, "references out of range vertex 3"},
		{func(m *Mesh) { m.MotionVertices = [][]types.Vec3{{types.XYZ(0, 0, 0)}} }, "motion step 1 has 1 vertices; expected 3"},
		{func(m *Mesh) { m.Curves = []Curve{{FirstKey: 0, NumKeys: 2}} }, "curve 0 references out of range keys"},
	}

	for idx, s := range specs {
		mesh := triangleMesh("tri")
		s.mutate(mesh)
		err := mesh.Validate()
		if s.expError == "" && err != nil {
			t.Fatalf("[spec %d] unexpected error %v", idx, err)
		} else if s.expError != "" && (err == nil || !strings.Contains(err.Error(), s.expError)) {
			t.Fatalf("[spec %d] expected error containing %q; got %v", idx, s.expError, err)
		}
	}
}

func TestObjectBounds(t *testing.T) {
	mesh := triangleMesh("tri")
	mesh.MotionVertices = [][]types.Vec3{{types.XYZ(0, 0, 1), types.XYZ(1, 0, 1), types.XYZ(0, 1, 1)}}
	mesh.CurveKeys = []types.Vec4{types.XYZW(0, 0, 0, 0.5), types.XYZW(0, 0, 2, 0.5), types.XYZW(0, 0, 4, 0.5)}
	mesh.Curves = []Curve{{FirstKey: 0, NumKeys: 3}}

	ob := NewObject("ob", mesh)
	ob.Transform = types.Translate4(types.XYZ(10, 0, 0)).Mul4(types.Scale4(types.Splat3(2)))

	if ob.MotionSteps() != 2 {
		t.Fatalf("expected 2 motion steps; got %d", ob.MotionSteps())
	}
	if mesh.NumPrimitives() != 3 {
		t.Fatalf("expected 3 primitives; got %d", mesh.NumPrimitives())
	}

	triBounds := ob.TriangleBounds(0)
	expTri := types.NewBoundBox(types.XYZ(10, 0, 0), types.XYZ(12, 2, 2))
	if triBounds != expTri {
		t.Fatalf("expected triangle bounds %v; got %v", expTri, triBounds)
	}

	// Radii scale with the transform
	segBounds := ob.CurveSegmentBounds(0, 1)
	expSeg := types.NewBoundBox(types.XYZ(9, -1, 3), types.XYZ(11, 1, 9))
	if segBounds != expSeg {
		t.Fatalf("expected curve segment bounds %v; got %v", expSeg, segBounds)
	}

	if !ob.Traceable() {
		t.Fatal("expected object to be traceable")
	}
	bounds, traceable := ob.TraceableBounds()
	if !traceable || bounds != ob.Bounds() {
		t.Fatalf("expected traceable bounds to match object bounds %v; got %v", ob.Bounds(), bounds)
	}

	ob.Visibility = 0
	if ob.Traceable() {
		t.Fatal("expected invisible object not to be traceable")
	}
	if _, traceable = ob.TraceableBounds(); traceable {
		t.Fatal("expected invisible object bounds not to be traceable")
	}

	empty := NewObject("empty", NewMesh("empty"))
	if _, traceable = empty.TraceableBounds(); traceable {
		t.Fatal("expected object with an empty mesh not to be traceable")
	}
}
