package cmd

import (
	"errors"

	"github.com/achilleasa/polaris-bvh/archive"
	"github.com/urfave/cli"
)

// Display the contents of a BVH archive.
func ShowBVHInfo(ctx *cli.Context) error {
	setupLogging(ctx)

	if ctx.NArg() != 1 {
		return errors.New("missing BVH archive argument")
	}

	a, err := archive.ReadFile(ctx.Args().First())
	if err != nil {
		return err
	}

	logger.Noticef("BVH information:\n%s", a.Info())
	return nil
}
