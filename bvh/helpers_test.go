package bvh

import (
	"fmt"
	"math/rand"
	"strings"
	"sync/atomic"
	"testing"

	"github.com/achilleasa/polaris-bvh/scene"
	"github.com/achilleasa/polaris-bvh/types"
)

func makeMesh(name string, tris [][3]types.Vec3) *scene.Mesh {
	mesh := scene.NewMesh(name)
	for _, tri := range tris {
		base := int32(len(mesh.Vertices))
		mesh.Vertices = append(mesh.Vertices, tri[0], tri[1], tri[2])
		mesh.Triangles = append(mesh.Triangles, [3]int32{base, base + 1, base + 2})
	}
	return mesh
}

// Small triangles stacked along the Y axis starting at origin.
func clusterTriangles(origin types.Vec3, count int) [][3]types.Vec3 {
	tris := make([][3]types.Vec3, count)
	for i := range tris {
		p := origin.Add(types.XYZ(0, float32(i)*0.25, 0))
		tris[i] = [3]types.Vec3{p, p.Add(types.XYZ(0.5, 0, 0)), p.Add(types.XYZ(0, 0.2, 0.5))}
	}
	return tris
}

func randomTriangles(seed int64, count int) [][3]types.Vec3 {
	rng := rand.New(rand.NewSource(seed))
	tris := make([][3]types.Vec3, count)
	for i := range tris {
		p := types.XYZ(rng.Float32()*100, rng.Float32()*100, rng.Float32()*100)
		tris[i] = [3]types.Vec3{
			p,
			p.Add(types.XYZ(rng.Float32(), rng.Float32(), 0)),
			p.Add(types.XYZ(0, rng.Float32(), rng.Float32())),
		}
	}
	return tris
}

// Long slivers spanning the XY square in both directions.
func sliverTriangles(perAxis int) [][3]types.Vec3 {
	tris := make([][3]types.Vec3, 0, 2*perAxis)
	for i := 0; i < perAxis; i++ {
		y := float32(i) * 6
		tris = append(tris, [3]types.Vec3{
			types.XYZ(0, y, 0), types.XYZ(100, y, 0), types.XYZ(100, y+0.1, 0.1),
		})
	}
	for i := 0; i < perAxis; i++ {
		x := float32(i) * 6
		tris = append(tris, [3]types.Vec3{
			types.XYZ(x, 0, 0), types.XYZ(x, 100, 0), types.XYZ(x+0.1, 100, 0.1),
		})
	}
	return tris
}

func singleObject(tris [][3]types.Vec3) []*scene.Object {
	return []*scene.Object{scene.NewObject("ob", makeMesh("mesh", tris))}
}

func testParams() Params {
	params := DefaultParams()
	params.NumThreads = 4
	return params
}

func buildAndValidate(t *testing.T, objects []*scene.Object, params Params) *Tree {
	t.Helper()
	tree, err := Build(objects, params, nil)
	if err != nil {
		t.Fatalf("expected build to succeed; got %v", err)
	}
	if err = Validate(tree, objects); err != nil {
		t.Fatal(err)
	}
	return tree
}

// Serialize the tree in canonical pre-order.
func canonical(tree *Tree) string {
	var sb strings.Builder
	tree.Walk(func(_ NodeID, node *Node, depth int) bool {
		if node.IsLeaf() {
			fmt.Fprintf(&sb, "%d L %v [%d,%d) %v\n", depth, node.Bounds, node.Lo, node.Hi, tree.PrimIndex[node.Lo:node.Hi])
		} else {
			fmt.Fprintf(&sb, "%d I %v\n", depth, node.Bounds)
		}
		return true
	})
	return sb.String()
}

func leaves(tree *Tree) []*Node {
	out := make([]*Node, 0)
	tree.Walk(func(_ NodeID, node *Node, _ int) bool {
		if node.IsLeaf() {
			out = append(out, node)
		}
		return true
	})
	return out
}

// Cancels the build after a number of polls.
type cancelAfter struct {
	polls atomic.Int32
	limit int32
}

func (p *cancelAfter) Cancelled() bool {
	return p.polls.Add(1) > p.limit
}

func (p *cancelAfter) SetSubstatus(string) {}
