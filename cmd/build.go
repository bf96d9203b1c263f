package cmd

import (
	"errors"
	"fmt"
	"os"
	"os/signal"
	"strings"

	"github.com/achilleasa/polaris-bvh/archive"
	"github.com/achilleasa/polaris-bvh/bvh"
	"github.com/achilleasa/polaris-bvh/log"
	"github.com/achilleasa/polaris-bvh/scene/reader"
	"github.com/urfave/cli"
)

// Flags accepted by the build command.
var BuildFlags = []cli.Flag{
	cli.BoolFlag{
		Name:  "spatial",
		Usage: "use spatial splits for mesh trees",
	},
	cli.Float64Flag{
		Name:  "alpha",
		Value: float64(bvh.DefaultParams().SpatialSplitAlpha),
		Usage: "minimum child overlap, relative to the root area, for evaluating spatial splits",
	},
	cli.Float64Flag{
		Name:  "headroom",
		Value: float64(bvh.DefaultParams().SpatialHeadroom),
		Usage: "maximum reference growth factor for spatial splits",
	},
	cli.IntFlag{
		Name:  "min-leaf",
		Value: bvh.DefaultParams().MinLeafSize,
		Usage: "ranges with at most this many primitives always become leaves",
	},
	cli.IntFlag{
		Name:  "max-depth",
		Value: bvh.DefaultParams().MaxDepth,
		Usage: "maximum tree depth",
	},
	cli.IntFlag{
		Name:  "max-tri-leaf",
		Value: bvh.DefaultParams().MaxTriangleLeafSize,
		Usage: "maximum number of triangles in a leaf",
	},
	cli.IntFlag{
		Name:  "max-curve-leaf",
		Value: bvh.DefaultParams().MaxCurveLeafSize,
		Usage: "maximum number of curve segments in a leaf",
	},
	cli.Float64Flag{
		Name:  "node-cost",
		Value: float64(bvh.DefaultParams().SAHNodeCost),
		Usage: "SAH cost of traversing an inner node",
	},
	cli.Float64Flag{
		Name:  "prim-cost",
		Value: float64(bvh.DefaultParams().SAHPrimitiveCost),
		Usage: "SAH cost of intersecting a primitive",
	},
	cli.IntFlag{
		Name:  "threads, t",
		Usage: "number of builder threads (0 uses all cpus)",
	},
	cli.IntFlag{
		Name:  "task-size",
		Value: bvh.DefaultParams().ThreadTaskSize,
		Usage: "ranges with at least this many primitives are built by separate tasks",
	},
	cli.BoolFlag{
		Name:  "rotate",
		Usage: "run the SAH tree rotation pass after building",
	},
	cli.BoolFlag{
		Name:  "dynamic",
		Usage: "tag the BVH as dynamic",
	},
	cli.BoolFlag{
		Name:  "output, o",
		Usage: "write the BVH to <scene>.bvh.zip",
	},
	cli.StringFlag{
		Name:  "codec, c",
		Value: string(archive.Deflate),
		Usage: "archive compression codec (deflate, zstd, snappy or store)",
	},
}

// Map command flags to builder params.
func paramsFromFlags(ctx *cli.Context) bvh.Params {
	params := bvh.DefaultParams()
	params.UseSpatialSplit = ctx.Bool("spatial")
	params.SpatialSplitAlpha = float32(ctx.Float64("alpha"))
	params.SpatialHeadroom = float32(ctx.Float64("headroom"))
	params.MinLeafSize = ctx.Int("min-leaf")
	params.MaxDepth = ctx.Int("max-depth")
	params.MaxTriangleLeafSize = ctx.Int("max-tri-leaf")
	params.MaxMotionTriangleLeafSize = ctx.Int("max-tri-leaf")
	params.MaxCurveLeafSize = ctx.Int("max-curve-leaf")
	params.SAHNodeCost = float32(ctx.Float64("node-cost"))
	params.SAHPrimitiveCost = float32(ctx.Float64("prim-cost"))
	params.NumThreads = ctx.Int("threads")
	params.ThreadTaskSize = ctx.Int("task-size")
	params.UseRotation = ctx.Bool("rotate")
	if ctx.Bool("dynamic") {
		params.Type = bvh.Dynamic
	}
	return params
}

// Get the archive path for a scene file.
func bvhFile(sceneFile string) string {
	return strings.TrimSuffix(sceneFile, ".obj") + ".bvh.zip"
}

// Build the BVH for one or more scenes.
func BuildBVH(ctx *cli.Context) error {
	setupLogging(ctx)

	if ctx.NArg() == 0 {
		return errors.New("missing scene file argument")
	}

	codec, err := archive.ParseCodec(ctx.String("codec"))
	if err != nil {
		return err
	}
	params := paramsFromFlags(ctx)

	for _, sceneFile := range ctx.Args() {
		if !strings.HasSuffix(sceneFile, ".obj") {
			logger.Warningf("skipping unsupported file %s", sceneFile)
			continue
		}

		sb, err := buildScene(sceneFile, params)
		if err != nil {
			return err
		}

		logger.Noticef("top-level BVH for %s:\n%s", sceneFile, sb.Top.Stats())
		for _, mt := range sb.Meshes {
			logger.Infof("BVH for mesh %q:\n%s", mt.Mesh, mt.Tree.Stats())
		}

		if ctx.Bool("output") {
			if err = archive.WriteFile(bvhFile(sceneFile), sb, codec); err != nil {
				return err
			}
		}
	}

	return nil
}

// Read a scene and build its BVH. An interrupt signal cancels the build.
func buildScene(sceneFile string, params bvh.Params) (*bvh.SceneBVH, error) {
	sc, err := reader.ReadScene(sceneFile)
	if err != nil {
		return nil, err
	}

	progress := bvh.NewStatusProgress(log.New("build progress"))
	sigCh := make(chan os.Signal, 1)
	doneCh := make(chan struct{})
	signal.Notify(sigCh, os.Interrupt)
	defer func() {
		signal.Stop(sigCh)
		close(doneCh)
	}()
	go func() {
		select {
		case <-sigCh:
			logger.Warning("interrupted; cancelling build")
			progress.Cancel()
		case <-doneCh:
		}
	}()

	sb, err := bvh.BuildScene(sc, params, progress)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", sceneFile, err)
	}
	return sb, nil
}
