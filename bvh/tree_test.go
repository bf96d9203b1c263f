package bvh

import (
	"strings"
	"testing"

	"github.com/achilleasa/polaris-bvh/types"
)

func TestTreeStats(t *testing.T) {
	tris := append(clusterTriangles(types.XYZ(0, 0, 0), 4), clusterTriangles(types.XYZ(20, 0, 0), 4)...)
	params := testParams()
	params.MinLeafSize = 4
	tree := buildAndValidate(t, singleObject(tris), params)

	stats := tree.Stats()
	if stats.InnerNodes != 1 || stats.LeafNodes != 2 || stats.MaxDepth != 1 {
		t.Fatalf("expected 1 inner node, 2 leaves and depth 1; got %+v", stats)
	}
	if stats.Prims != 8 || stats.References != 8 {
		t.Fatalf("expected 8 primitives and references; got %d and %d", stats.Prims, stats.References)
	}

	// Root contributes its own node cost; leaves are weighted by their
	// relative area.
	root := tree.Node(tree.Root)
	expCost := float32(1)
	for _, child := range root.Children {
		expCost += tree.Node(child).Bounds.SafeArea() * 4 / root.Bounds.SafeArea()
	}
	if diff := stats.SAHCost - expCost; diff > 1e-4 || diff < -1e-4 {
		t.Fatalf("expected SAH cost %f; got %f", expCost, stats.SAHCost)
	}

	table := stats.String()
	for _, exp := range []string{"Inner nodes", "Leaf nodes", "SAH COST"} {
		if !strings.Contains(strings.ToUpper(table), strings.ToUpper(exp)) {
			t.Fatalf("expected stats table to contain %q; got\n%s", exp, table)
		}
	}
}

func TestTreeWalkSkipsSubtrees(t *testing.T) {
	tree := rotationTree()

	visited := make([]NodeID, 0)
	tree.Walk(func(id NodeID, node *Node, depth int) bool {
		visited = append(visited, id)
		return id != 1
	})

	exp := []NodeID{0, 1, 4}
	if len(visited) != len(exp) {
		t.Fatalf("expected to visit %v; got %v", exp, visited)
	}
	for i := range exp {
		if visited[i] != exp[i] {
			t.Fatalf("expected to visit %v; got %v", exp, visited)
		}
	}
}

func TestValidateDetectsErrors(t *testing.T) {
	tris := append(clusterTriangles(types.XYZ(0, 0, 0), 4), clusterTriangles(types.XYZ(20, 0, 0), 4)...)
	objects := singleObject(tris)
	params := testParams()
	params.MinLeafSize = 4

	tree := buildAndValidate(t, objects, params)
	root := tree.Node(tree.Root)
	root.Bounds.Max[0] += 1
	if Validate(tree, objects) == nil {
		t.Fatal("expected modified inner bounds to be detected")
	}

	tree = buildAndValidate(t, objects, params)
	tree.Node(tree.Node(tree.Root).Children[0]).Hi--
	if Validate(tree, objects) == nil {
		t.Fatal("expected a coverage gap to be detected")
	}

	tree = buildAndValidate(t, objects, params)
	tree.Node(tree.Node(tree.Root).Children[1]).Visibility = 0
	if Validate(tree, objects) == nil {
		t.Fatal("expected a visibility mismatch to be detected")
	}
}
