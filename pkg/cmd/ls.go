package cmd

import (
	"context"

	"github.com/pseudomuto/schemalens/pkg/render"
	"github.com/urfave/cli/v3"
)

// lsCmd lists every object of the composed overlay, one row per object. Objects defined in
// more than one layer are listed once, as the highest-priority layer defines them.
//
// Examples:
//
//	# Everything, grouped by kind
//	schemalens ls
//
//	# Only views
//	schemalens ls --kind view
func lsCmd(s *session) *cli.Command {
	return &cli.Command{
		Name:   "ls",
		Usage:  "List objects",
		Before: requireConfig(s),
		Flags:  []cli.Flag{kindFlag()},
		Action: func(ctx context.Context, cmd *cli.Command) error {
			kinds, err := kindsOf(cmd)
			if err != nil {
				return err
			}

			db, err := s.database(ctx)
			if err != nil {
				return err
			}

			objs, err := listObjects(ctx, db, kinds)
			if err != nil {
				return err
			}

			return render.List(cmd.Root().Writer, s.renderOptions(), objs...)
		},
	}
}
