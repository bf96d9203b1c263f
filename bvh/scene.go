package bvh

import (
	"fmt"

	"github.com/achilleasa/polaris-bvh/scene"
)

// A MeshTree is the object-space BVH of an instanced mesh. Its primitives
// reference object 0, a proxy object with an identity transform.
type MeshTree struct {
	Mesh string
	Tree *Tree
}

// SceneBVH is a two-level BVH. The top-level tree references instanced meshes
// through object leaves; the primitives of meshes used by a single object are
// stored directly in the top-level tree.
type SceneBVH struct {
	Top    *Tree
	Meshes []MeshTree
}

// Lookup the tree of an instanced mesh.
func (s *SceneBVH) MeshTree(name string) *Tree {
	for _, m := range s.Meshes {
		if m.Mesh == name {
			return m.Tree
		}
	}
	return nil
}

// Build a two-level BVH for a scene.
func BuildScene(sc *scene.Scene, params Params, progress Progress) (*SceneBVH, error) {
	out := &SceneBVH{
		Meshes: make([]MeshTree, 0),
	}

	meshParams := params
	meshParams.TopLevel = false
	for _, mesh := range sc.Meshes {
		if !mesh.Instanced() {
			continue
		}
		proxy := meshProxy(sc, mesh)
		if proxy.Visibility == 0 {
			continue
		}

		tree, err := Build([]*scene.Object{proxy}, meshParams, progress)
		if err != nil {
			return nil, fmt.Errorf("mesh %q: %w", mesh.Name, err)
		}
		out.Meshes = append(out.Meshes, MeshTree{Mesh: mesh.Name, Tree: tree})
	}

	topParams := params
	topParams.TopLevel = true
	top, err := Build(sc.Objects, topParams, progress)
	if err != nil {
		return nil, fmt.Errorf("top-level: %w", err)
	}
	out.Top = top
	return out, nil
}

// Create an object-space proxy for a mesh whose visibility is the union of
// the visibility of all objects instancing it.
func meshProxy(sc *scene.Scene, mesh *scene.Mesh) *scene.Object {
	proxy := scene.NewObject(mesh.Name, mesh)
	proxy.Visibility = 0
	for _, ob := range sc.Objects {
		if ob.Mesh == mesh {
			proxy.Visibility |= ob.Visibility
		}
	}
	return proxy
}
