package reader

import (
	"fmt"
	"path/filepath"
	"strings"

	"github.com/achilleasa/polaris-bvh/scene"
)

// Read a scene from a local file or http(s) URL. Only wavefront object files
// are supported.
func ReadScene(pathToScene string) (*scene.Scene, error) {
	ext := strings.ToLower(filepath.Ext(pathToScene))
	if ext != ".obj" {
		return nil, fmt.Errorf("reader: unsupported scene format %q", ext)
	}

	res, err := newResource(pathToScene, nil)
	if err != nil {
		return nil, err
	}
	defer res.Close()

	return newWavefrontReader().Read(res)
}
