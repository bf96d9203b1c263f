package reader

import (
	"bufio"
	"fmt"
	"math"
	"strconv"
	"strings"
	"time"

	"github.com/achilleasa/polaris-bvh/log"
	"github.com/achilleasa/polaris-bvh/scene"
	"github.com/achilleasa/polaris-bvh/types"
)

type wavefrontSceneReader struct {
	logger log.Logger

	// Meshes in definition order and the objects created by instance
	// statements.
	meshes  []*scene.Mesh
	objects []*scene.Object

	// The mesh receiving new faces and curves along with a map of global
	// vertex indices to its local vertex indices.
	curMesh     *scene.Mesh
	curVertices map[int]int32
	groupName   string

	// Global vertex list.
	vertexList []types.Vec3

	// An error stack that provides additional error information when
	// scene files include other files.
	errStack []string
}

// Create a new wavefront scene reader.
func newWavefrontReader() *wavefrontSceneReader {
	return &wavefrontSceneReader{
		logger:     log.New("wavefront reader"),
		meshes:     make([]*scene.Mesh, 0),
		objects:    make([]*scene.Object, 0),
		vertexList: make([]types.Vec3, 0),
		errStack:   make([]string, 0),
	}
}

// Read scene definition.
func (r *wavefrontSceneReader) Read(sceneRes *resource) (*scene.Scene, error) {
	r.logger.Infof("parsing scene from %s", sceneRes.Path())
	start := time.Now()

	err := r.parse(sceneRes)
	if err != nil {
		return nil, err
	}

	// If no instances are defined, create an instance for each mesh
	if len(r.objects) == 0 {
		for _, mesh := range r.meshes {
			r.objects = append(r.objects, scene.NewObject(mesh.Name, mesh))
		}
	}

	sc := scene.NewScene()
	for _, mesh := range r.meshes {
		if err = sc.AddMesh(mesh); err != nil {
			return nil, r.emitError(sceneRes.Path(), 0, "%s", err.Error())
		}
	}
	for _, ob := range r.objects {
		if err = sc.AddObject(ob); err != nil {
			return nil, r.emitError(sceneRes.Path(), 0, "%s", err.Error())
		}
	}

	r.logger.Noticef(
		"parsed scene from %s in %d ms; meshes: %d, objects: %d, primitives: %d",
		sceneRes.Path(), time.Since(start).Nanoseconds()/1e6, len(sc.Meshes), len(sc.Objects), sc.NumPrimitives(),
	)
	return sc, nil
}

// Generate an error message that also includes any data in the error stack.
func (r *wavefrontSceneReader) emitError(file string, line int, msgFormat string, args ...interface{}) error {
	msg := fmt.Sprintf(msgFormat, args...)

	var errMsg string
	if file != "" && line > 0 {
		errMsg = fmt.Sprintf("[%s: %d] error: %s\n%s", file, line, msg, strings.Join(r.errStack, "\n"))
	} else if file != "" {
		errMsg = fmt.Sprintf("[%s] error: %s\n%s", file, msg, strings.Join(r.errStack, "\n"))
	} else {
		errMsg = fmt.Sprintf("error: %s\n%s", msg, strings.Join(r.errStack, "\n"))
	}

	return fmt.Errorf("%s", strings.Trim(errMsg, "\n"))
}

// Push a frame to the error stack.
func (r *wavefrontSceneReader) pushFrame(msg string) {
	r.errStack = append([]string{msg}, r.errStack...)
}

// Pop a frame from the error stack.
func (r *wavefrontSceneReader) popFrame() {
	r.errStack = r.errStack[1:]
}

// Parse wavefront object scene format.
func (r *wavefrontSceneReader) parse(res *resource) error {
	var lineNum int = 0

	scanner := bufio.NewScanner(res)
	for scanner.Scan() {
		lineNum++
		lineTokens := strings.Fields(scanner.Text())
		if len(lineTokens) == 0 || strings.HasPrefix(lineTokens[0], "#") {
			continue
		}

		var err error
		switch lineTokens[0] {
		case "call":
			if len(lineTokens) != 2 {
				return r.emitError(res.Path(), lineNum, "unsupported syntax for 'call'; expected 1 argument; got %d", len(lineTokens)-1)
			}

			r.pushFrame(fmt.Sprintf("referenced from %s:%d [%s]", res.Path(), lineNum, lineTokens[0]))
			incRes, err := newResource(lineTokens[1], res)
			if err != nil {
				return r.emitError(res.Path(), lineNum, "%s", err.Error())
			}
			err = r.parse(incRes)
			incRes.Close()
			if err != nil {
				return err
			}
			r.popFrame()
		case "v":
			var v types.Vec3
			v, err = parseVec3(lineTokens)
			if err == nil {
				r.vertexList = append(r.vertexList, v)
			}
		case "g", "o":
			if len(lineTokens) < 2 {
				return r.emitError(res.Path(), lineNum, "unsupported syntax for '%s'; expected 1 argument for object name; got %d", lineTokens[0], len(lineTokens)-1)
			}
			r.groupName = lineTokens[1]
			r.curMesh = nil
		case "f":
			err = r.parseFace(lineTokens)
		case "curv":
			err = r.parseCurve(lineTokens)
		case "instance":
			err = r.parseMeshInstance(lineTokens)
		case "inst":
			err = r.parseTranslatedInstance(lineTokens)
		case "vn", "vt", "vp", "s", "l", "mtllib", "usemtl":
			// Shading data is not needed for building acceleration structures
		default:
			r.logger.Debugf("[%s: %d] ignoring unsupported statement '%s'", res.Path(), lineNum, lineTokens[0])
		}

		if err != nil {
			return r.emitError(res.Path(), lineNum, "%s", err.Error())
		}
	}

	if err := scanner.Err(); err != nil {
		return r.emitError(res.Path(), lineNum, "%s", err.Error())
	}
	return nil
}

// Get the mesh for the current group, creating it if required.
func (r *wavefrontSceneReader) mesh() *scene.Mesh {
	if r.curMesh != nil {
		return r.curMesh
	}

	name := r.groupName
	if name == "" {
		name = "default"
	}
	// Groups with the same name append to the same mesh
	r.curVertices = make(map[int]int32)
	if r.curMesh = r.findMesh(name); r.curMesh == nil {
		r.curMesh = scene.NewMesh(name)
		r.meshes = append(r.meshes, r.curMesh)
	}
	return r.curMesh
}

func (r *wavefrontSceneReader) findMesh(name string) *scene.Mesh {
	for _, mesh := range r.meshes {
		if mesh.Name == name {
			return mesh
		}
	}
	return nil
}

// Map a global vertex index to a vertex of the current mesh.
func (r *wavefrontSceneReader) localVertex(mesh *scene.Mesh, global int) int32 {
	if local, exists := r.curVertices[global]; exists {
		return local
	}
	local := int32(len(mesh.Vertices))
	mesh.Vertices = append(mesh.Vertices, r.vertexList[global])
	r.curVertices[global] = local
	return local
}

// Parse face definition. Each face definition consists of at least 3
// arguments, one for each vertex. Each one of the vertex arguments is comprised
// of 1, 2 or 3 indices separated by a slash character. The following formats
// are supported:
// - vertexIndex
// - vertexIndex/uvIndex
// - vertexIndex//normalIndex
// - vertexIndex/uvIndex/normalIndex
//
// Only the vertex index is used. Indices start from 1 and may be negative to
// indicate an offset off the end of the vertex list. Faces with more than 3
// vertices are triangulated as a fan around the first vertex.
func (r *wavefrontSceneReader) parseFace(lineTokens []string) error {
	if len(lineTokens) < 4 {
		return fmt.Errorf("unsupported syntax for 'f'; expected at least 3 arguments; got %d", len(lineTokens)-1)
	}

	indices := make([]int, len(lineTokens)-1)
	expIndices := 0
	for arg := range indices {
		vTokens := strings.Split(lineTokens[arg+1], "/")

		// The first arg defines the format for the following args
		if arg == 0 {
			expIndices = len(vTokens)
		} else if len(vTokens) != expIndices {
			return fmt.Errorf("expected each face argument to contain %d indices; arg %d contains %d indices", expIndices, arg, len(vTokens))
		}

		// Faces must at least define a vertex coord
		if vTokens[0] == "" {
			return fmt.Errorf("face argument %d does not include a vertex index", arg)
		}

		vOffset, err := selectFaceCoordIndex(vTokens[0], len(r.vertexList))
		if err != nil {
			return fmt.Errorf("could not parse vertex coord for face argument %d: %s", arg, err.Error())
		}
		indices[arg] = vOffset
	}

	mesh := r.mesh()
	first := r.localVertex(mesh, indices[0])
	for i := 1; i+1 < len(indices); i++ {
		mesh.Triangles = append(mesh.Triangles, [3]int32{
			first,
			r.localVertex(mesh, indices[i]),
			r.localVertex(mesh, indices[i+1]),
		})
	}
	return nil
}

// Parse a curve definition using the following format:
// curv radius k0 k1 ... kN
// where k0 to kN are vertex indices used as curve keys.
func (r *wavefrontSceneReader) parseCurve(lineTokens []string) error {
	if len(lineTokens) < 4 {
		return fmt.Errorf("unsupported syntax for 'curv'; expected a radius and at least 2 keys; got %d arguments", len(lineTokens)-1)
	}

	radius, err := parseFloat32(lineTokens)
	if err != nil {
		return err
	}
	if radius < 0 {
		return fmt.Errorf("curve radius must be positive; got %f", radius)
	}

	mesh := r.mesh()
	curve := scene.Curve{
		FirstKey: int32(len(mesh.CurveKeys)),
		NumKeys:  int32(len(lineTokens) - 2),
	}
	for arg, token := range lineTokens[2:] {
		vOffset, err := selectFaceCoordIndex(token, len(r.vertexList))
		if err != nil {
			return fmt.Errorf("could not parse curve key %d: %s", arg, err.Error())
		}
		mesh.CurveKeys = append(mesh.CurveKeys, r.vertexList[vOffset].Vec4(radius))
	}
	mesh.Curves = append(mesh.Curves, curve)
	return nil
}

// Parse mesh instance definition. Definitions use the following format:
// instance mesh_name tX tY tZ yaw pitch roll sX sY sZ
// where:
// - tX, tY, tZ       : translation vector
// - yaw, pitch, roll : rotation angles in degrees
// - sX, sY, sZ	      : scale
func (r *wavefrontSceneReader) parseMeshInstance(lineTokens []string) error {
	if len(lineTokens) != 11 {
		return fmt.Errorf("unsupported syntax for 'instance'; expected 10 arguments: mesh_name tX tY tZ yaw pitch roll sX sY sZ; got %d", len(lineTokens)-1)
	}

	mesh := r.findMesh(lineTokens[1])
	if mesh == nil {
		return fmt.Errorf("unknown mesh with name '%s'", lineTokens[1])
	}

	var translation, rotation, scale types.Vec3
	for index := 2; index < 11; index++ {
		v, err := strconv.ParseFloat(lineTokens[index], 32)
		if err != nil {
			return err
		}
		switch {
		case index < 5:
			translation[index-2] = float32(v)
		case index < 8:
			rotation[index-5] = float32(v * math.Pi / 180.0)
		default:
			scale[index-8] = float32(v)
		}
	}

	// Generate final matrix: M = T * R * S
	yawMat := types.QuatFromAxisAngle(types.XYZ(1, 0, 0), rotation[0]).Mat4()
	pitchMat := types.QuatFromAxisAngle(types.XYZ(0, 1, 0), rotation[1]).Mat4()
	rollMat := types.QuatFromAxisAngle(types.XYZ(0, 0, 1), rotation[2]).Mat4()
	rotMat := rollMat.Mul4(pitchMat.Mul4(yawMat))

	ob := scene.NewObject(mesh.Name, mesh)
	ob.Transform = types.Translate4(translation).Mul4(rotMat.Mul4(types.Scale4(scale)))
	r.objects = append(r.objects, ob)
	return nil
}

// Parse a translated instance using the following format:
// inst mesh_name tX tY tZ [scale]
func (r *wavefrontSceneReader) parseTranslatedInstance(lineTokens []string) error {
	if len(lineTokens) != 5 && len(lineTokens) != 6 {
		return fmt.Errorf("unsupported syntax for 'inst'; expected 4 or 5 arguments: mesh_name tX tY tZ [scale]; got %d", len(lineTokens)-1)
	}

	mesh := r.findMesh(lineTokens[1])
	if mesh == nil {
		return fmt.Errorf("unknown mesh with name '%s'", lineTokens[1])
	}

	translation, err := parseVec3(lineTokens[1:])
	if err != nil {
		return err
	}
	scale := float32(1)
	if len(lineTokens) == 6 {
		if scale, err = parseFloat32(lineTokens[4:]); err != nil {
			return err
		}
	}

	ob := scene.NewObject(mesh.Name, mesh)
	ob.Transform = types.Translate4(translation).Mul4(types.Scale4(types.Splat3(scale)))
	r.objects = append(r.objects, ob)
	return nil
}

// Given an index for a face coord type calculate the proper offset into the
// coord list. Wavefront format can also use negative indices to reference
// elements from the end of the coord list.
func selectFaceCoordIndex(indexToken string, coordListLen int) (int, error) {
	index, err := strconv.ParseInt(indexToken, 10, 32)
	if err != nil {
		return -1, err
	}

	var vOffset int = 0
	if index < 0 {
		vOffset = coordListLen + int(index)
	} else {
		vOffset = int(index - 1)
	}
	if vOffset < 0 || vOffset >= coordListLen {
		return -1, fmt.Errorf("index out of bounds")
	}
	return vOffset, nil
}

// Parse a float scalar value.
func parseFloat32(lineTokens []string) (float32, error) {
	if len(lineTokens) < 2 {
		return 0, fmt.Errorf("unsupported syntax for '%s'; expected 1 argument; got %d", lineTokens[0], len(lineTokens)-1)
	}

	val, err := strconv.ParseFloat(lineTokens[1], 32)
	if err != nil {
		return 0, err
	}

	return float32(val), nil
}

// Parse a Vec3 row.
func parseVec3(lineTokens []string) (types.Vec3, error) {
	if len(lineTokens) < 4 {
		return types.Vec3{}, fmt.Errorf("unsupported syntax for '%s'; expected 3 arguments; got %d", lineTokens[0], len(lineTokens)-1)
	}

	v := types.Vec3{}
	for tokIdx := 1; tokIdx <= 3; tokIdx++ {
		coord, err := strconv.ParseFloat(lineTokens[tokIdx], 32)
		if err != nil {
			return v, err
		}
		v[tokIdx-1] = float32(coord)
	}
	return v, nil
}
