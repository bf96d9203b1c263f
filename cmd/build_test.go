package cmd

import (
	"errors"
	"io"
	"os"
	"path/filepath"
	"testing"

	"github.com/achilleasa/polaris-bvh/archive"
	"github.com/achilleasa/polaris-bvh/bvh"
	"github.com/achilleasa/polaris-bvh/scene/reader"
	"github.com/urfave/cli"
)

const testScene = `
g tri
v 0 0 0
v 1 0 0
v 0 1 0
f 1 2 3

g quad
v 0 0 0
v 1 0 0
v 1 1 0
v 0 1 0
f -4 -3 -2 -1

inst tri 0 0 0
inst tri 5 0 0
inst tri 10 0 0 2
inst quad 0 5 0
`

// Run a command action through a cli app so flag aliases are resolved the
// same way as in the polaris-bvh binary.
func runCommand(flags []cli.Flag, action func(*cli.Context) error, args ...string) error {
	app := cli.NewApp()
	app.Name = "polaris-bvh"
	app.HideVersion = true
	app.Writer = io.Discard
	app.ErrWriter = io.Discard
	app.Flags = []cli.Flag{
		cli.BoolFlag{Name: "v"},
		cli.BoolFlag{Name: "vv"},
	}
	app.Commands = []cli.Command{
		{
			Name:   "test",
			Flags:  flags,
			Action: action,
		},
	}
	return app.Run(append([]string{"polaris-bvh", "test"}, args...))
}

func paramsFor(t *testing.T, args ...string) bvh.Params {
	t.Helper()
	var params bvh.Params
	err := runCommand(BuildFlags, func(ctx *cli.Context) error {
		params = paramsFromFlags(ctx)
		return nil
	}, args...)
	if err != nil {
		t.Fatal(err)
	}
	return params
}

func TestParamsFromFlags(t *testing.T) {
	params := paramsFor(t, "--spatial", "--rotate", "--dynamic", "-t", "3", "--max-tri-leaf", "4", "--headroom", "1.5")

	if !params.UseSpatialSplit || !params.UseRotation || params.Type != bvh.Dynamic {
		t.Fatalf("expected spatial splits, rotation and dynamic type to be enabled; got %+v", params)
	}
	if params.NumThreads != 3 {
		t.Fatalf("expected 3 threads; got %d", params.NumThreads)
	}
	if params.MaxTriangleLeafSize != 4 || params.MaxMotionTriangleLeafSize != 4 {
		t.Fatalf("expected triangle leaf sizes to be 4; got %d and %d", params.MaxTriangleLeafSize, params.MaxMotionTriangleLeafSize)
	}
	if params.SpatialHeadroom != 1.5 {
		t.Fatalf("expected headroom 1.5; got %f", params.SpatialHeadroom)
	}

	if params = paramsFor(t, "--threads", "5"); params.NumThreads != 5 {
		t.Fatalf("expected long thread flag to select 5 threads; got %d", params.NumThreads)
	}

	def := bvh.DefaultParams()
	params = paramsFor(t)
	if params.UseSpatialSplit || params.MaxDepth != def.MaxDepth || params.ThreadTaskSize != def.ThreadTaskSize || params.SAHNodeCost != def.SAHNodeCost {
		t.Fatalf("expected flag defaults to match the default params; got %+v", params)
	}
}

func TestBvhFile(t *testing.T) {
	if out := bvhFile("/tmp/scenes/room.obj"); out != "/tmp/scenes/room.bvh.zip" {
		t.Fatalf("expected /tmp/scenes/room.bvh.zip; got %s", out)
	}
}

func TestBuildAndShowInfo(t *testing.T) {
	dir := t.TempDir()
	sceneFile := filepath.Join(dir, "scene.obj")
	if err := os.WriteFile(sceneFile, []byte(testScene), 0644); err != nil {
		t.Fatal(err)
	}

	if err := runCommand(BuildFlags, BuildBVH, "--spatial", "-o", "-c", "snappy", sceneFile); err != nil {
		t.Fatal(err)
	}

	a, err := archive.ReadFile(bvhFile(sceneFile))
	if err != nil {
		t.Fatal(err)
	}
	if a.Codec != archive.Snappy {
		t.Fatalf("expected archive codec to be snappy; got %s", a.Codec)
	}
	if len(a.Scene.Meshes) != 1 || a.Scene.Meshes[0].Mesh != "tri" {
		t.Fatalf("expected a single mesh tree for the instanced tri mesh; got %d", len(a.Scene.Meshes))
	}
	sc, err := reader.ReadScene(sceneFile)
	if err != nil {
		t.Fatal(err)
	}
	if err = bvh.Validate(a.Scene.Top, sc.Objects); err != nil {
		t.Fatal(err)
	}

	if err = runCommand(nil, ShowBVHInfo, bvhFile(sceneFile)); err != nil {
		t.Fatal(err)
	}
}

func TestCommandErrors(t *testing.T) {
	if err := runCommand(BuildFlags, BuildBVH); err == nil {
		t.Fatal("expected an error when no scene files are given")
	}
	if err := runCommand(nil, ShowBVHInfo); err == nil {
		t.Fatal("expected an error when no archive is given")
	}
}

func TestUnsupportedCodecRejectedBeforeBuild(t *testing.T) {
	dir := t.TempDir()
	sceneFile := filepath.Join(dir, "scene.obj")
	if err := os.WriteFile(sceneFile, []byte(testScene), 0644); err != nil {
		t.Fatal(err)
	}

	for _, args := range [][]string{
		{"-o", "-c", "lz4", sceneFile},
		{"--output", "--codec", "lz4", sceneFile},
	} {
		err := runCommand(BuildFlags, BuildBVH, args...)
		if !errors.Is(err, archive.ErrUnsupportedCodec) {
			t.Fatalf("expected ErrUnsupportedCodec for args %v; got %v", args, err)
		}
		if _, statErr := os.Stat(bvhFile(sceneFile)); !os.IsNotExist(statErr) {
			t.Fatalf("expected no archive to be written for args %v", args)
		}
	}
}
