package scene

import "fmt"

// A scene groups the meshes and the object instances that position them.
type Scene struct {
	Meshes  []*Mesh
	Objects []*Object
}

func NewScene() *Scene {
	return &Scene{
		Meshes:  make([]*Mesh, 0),
		Objects: make([]*Object, 0),
	}
}

// Add a mesh to the scene.
func (s *Scene) AddMesh(mesh *Mesh) error {
	for _, m := range s.Meshes {
		if m == mesh {
			return fmt.Errorf("scene: mesh %q already added", mesh.Name)
		}
	}
	if err := mesh.Validate(); err != nil {
		return err
	}
	s.Meshes = append(s.Meshes, mesh)
	return nil
}

// Add an object to the scene. The object mesh must be added to the scene
// before the object.
func (s *Scene) AddObject(object *Object) error {
	for _, ob := range s.Objects {
		if ob == object {
			return fmt.Errorf("scene: object %q already added", object.Name)
		}
	}
	if object.Mesh == nil {
		return fmt.Errorf("scene: no mesh assigned to object %q", object.Name)
	}
	if s.MeshIndex(object.Mesh) == -1 {
		return fmt.Errorf("scene: object %q references unknown mesh; ensure that the mesh is added to the scene before adding the object", object.Name)
	}

	object.Mesh.instances++
	s.Objects = append(s.Objects, object)
	return nil
}

// Lookup a mesh index. Returns -1 if the mesh is not part of the scene.
func (s *Scene) MeshIndex(mesh *Mesh) int {
	for index, m := range s.Meshes {
		if m == mesh {
			return index
		}
	}
	return -1
}

// Lookup a mesh by name.
func (s *Scene) MeshByName(name string) *Mesh {
	for _, m := range s.Meshes {
		if m.Name == name {
			return m
		}
	}
	return nil
}

// Count all primitives (triangles and curve segments) referenced by the
// scene objects.
func (s *Scene) NumPrimitives() int {
	total := 0
	for _, ob := range s.Objects {
		total += ob.Mesh.NumPrimitives()
	}
	return total
}
