package main

import (
	"fmt"
	"os"

	"github.com/achilleasa/polaris-bvh/cmd"
	"github.com/urfave/cli"
)

func main() {
	cli.VersionFlag = cli.BoolFlag{
		Name:  "version",
		Usage: "print only the version",
	}

	app := cli.NewApp()
	app.Name = "polaris-bvh"
	app.Usage = "build bounding volume hierarchies for ray tracing"
	app.Version = "0.0.1"
	app.Flags = []cli.Flag{
		cli.BoolFlag{
			Name:  "v",
			Usage: "enable verbose logging",
		},
		cli.BoolFlag{
			Name:  "vv",
			Usage: "enable even more verbose logging",
		},
	}
	app.Commands = []cli.Command{
		{
			Name:  "build",
			Usage: "build the BVH for a wavefront obj scene",
			Description: `
Parse a scene definition from a wavefront obj file and build a two-level BVH:
one tree for each instanced mesh and a top-level tree over the scene objects.

Tree statistics are printed once the build completes. When --output is set the
trees are written to a zip archive next to the scene file. Press ctrl+c to
cancel a running build.`,
			ArgsUsage: "scene_file1.obj scene_file2.obj ...",
			Flags:     cmd.BuildFlags,
			Action:    cmd.BuildBVH,
		},
		{
			Name:      "info",
			Usage:     "print information about a BVH archive",
			ArgsUsage: "scene.bvh.zip",
			Action:    cmd.ShowBVHInfo,
		},
	}

	if err := app.Run(os.Args); err != nil {
		fmt.Fprintf(os.Stderr, "error: %s\n", err.Error())
		os.Exit(1)
	}
}
