package cmd

import (
	"context"

	"github.com/pseudomuto/schemalens/pkg/relational"
	"github.com/pseudomuto/schemalens/pkg/render"
	"github.com/urfave/cli/v3"
)

// showCmd prints one object in detail. Names without a schema are qualified with the
// overlay's default schema. With --resolve, a synonym is followed to the object it names
// before the lookup.
//
// Examples:
//
//	schemalens show users
//	schemalens show billing.invoices --kind table
//	schemalens show --resolve people
func showCmd(s *session) *cli.Command {
	return &cli.Command{
		Name:      "show",
		Usage:     "Show an object",
		ArgsUsage: "<name>",
		Before:    requireConfig(s),
		Flags: []cli.Flag{
			kindFlag(),
			&cli.BoolFlag{
				Name:    "resolve",
				Aliases: []string{"r"},
				Usage:   "follow synonyms to the object they name",
			},
		},
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

			if cmd.Bool("resolve") {
				if name, err = relational.ResolveSynonym(ctx, db, name); err != nil {
					return err
				}
			}

			obj, err := findObject(ctx, db, kinds, name)
			if err != nil {
				return err
			}

			return render.Object(cmd.Root().Writer, s.renderOptions(), obj)
		},
	}
}
