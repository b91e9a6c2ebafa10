package cmd

import (
	"context"
	"fmt"

	"github.com/pkg/errors"
	"github.com/urfave/cli/v3"
)

// existsCmd prints true when any layer defines an object with the given name, and false
// otherwise.
func existsCmd(s *session) *cli.Command {
	return &cli.Command{
		Name:      "exists",
		Usage:     "Report whether an object exists",
		ArgsUsage: "<name>",
		Before:    requireConfig(s),
		Flags:     []cli.Flag{kindFlag()},
		Action: func(ctx context.Context, cmd *cli.Command) error {
			name, err := nameArg(cmd)
			if err != nil {
				return err
			}

			kinds, err := kindsOf(cmd)
			if err != nil {
				return err
			}

			db, err := s.database(ctx)
			if err != nil {
				return err
			}

			ok, err := objectExists(ctx, db, kinds, name)
			if err != nil {
				return err
			}

			if _, err := fmt.Fprintln(cmd.Root().Writer, ok); err != nil {
				return errors.Wrap(err, "failed to write result")
			}

			return nil
		},
	}
}
