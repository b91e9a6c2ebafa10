package cmd

import (
	"context"
	"fmt"

	"github.com/pkg/errors"
	"github.com/pseudomuto/schemalens/pkg/config"
	"github.com/pseudomuto/schemalens/pkg/consts"
	"github.com/urfave/cli/v3"
	"go.uber.org/fx"
	"go.uber.org/zap"
)

type (
	Params struct {
		fx.In

		Args       []string
		Commands   []*cli.Command `group:"commands"`
		Ctx        context.Context
		Lifecycle  fx.Lifecycle
		Session    *session
		Shutdowner fx.Shutdowner
		Version    *Version
	}

	Version struct {
		Version   string
		Commit    string
		Timestamp string
	}
)

// Run registers the schemalens CLI to run once the fx application starts, and shuts the
// application down with the command's exit status when it finishes.
//
// Global Flags:
//   - --config, -c: the configuration file (env SCHEMALENS_CONFIG, default schemalens.yaml)
//   - --verbose, -v: log debug output, including every fetch made by the cache
//   - --no-color: disable styled output
//
// A configuration file found at startup is injected by config.Module. Passing --config
// explicitly loads that file instead.
func Run(p Params) {
	cli.VersionPrinter = func(cmd *cli.Command) {
		fmt.Fprintln(cmd.Writer, "Version:", p.Version.Version)
		fmt.Fprintln(cmd.Writer, "Commit:", p.Version.Commit)
		fmt.Fprintln(cmd.Writer, "Date:", p.Version.Timestamp)
	}

	app := newApp(p.Session, p.Version.Version, p.Commands)

	p.Lifecycle.Append(fx.StartHook(func() {
		if err := app.Run(p.Ctx, p.Args); err != nil {
			p.Session.log.Error("Error running command", zap.Error(err))
			_ = p.Shutdowner.Shutdown(fx.ExitCode(1))
			return
		}

		_ = p.Shutdowner.Shutdown(fx.ExitCode(0))
	}))
}

func newApp(s *session, version string, commands []*cli.Command) *cli.Command {
	return &cli.Command{
		Name:  "schemalens",
		Usage: "Inspect relational database metadata across layered sources",
		Description: `schemalens answers questions about tables, views, sequences, synonyms and
triggers by consulting an ordered stack of sources: DDL files describing planned
changes, and live ClickHouse, PostgreSQL or SQLite databases. Higher layers win.`,
		Version: version,
		Flags: []cli.Flag{
			&cli.StringFlag{
				Name:    "config",
				Aliases: []string{"c"},
				Usage:   "the schemalens config file",
				Sources: cli.EnvVars(consts.ConfigEnvVar),
				Value:   consts.DefaultConfigFile,
				Config: cli.StringConfig{
					TrimSpace: true,
				},
			},
			&cli.BoolFlag{
				Name:    "verbose",
				Aliases: []string{"v"},
				Usage:   "log debug output",
			},
			&cli.BoolFlag{
				Name:  "no-color",
				Usage: "disable styled output",
			},
		},
		Before: func(ctx context.Context, cmd *cli.Command) (context.Context, error) {
			if cmd.Bool("verbose") {
				log, err := newLogger(true)
				if err != nil {
					return ctx, errors.Wrap(err, "failed to create logger")
				}
				s.log = log
			}

			if cmd.IsSet("config") {
				cfg, err := config.LoadConfigFile(cmd.String("config"))
				if err != nil {
					return ctx, err
				}
				s.cfg = cfg
			}

			s.noColor = s.noColor || cmd.Bool("no-color")
			return ctx, nil
		},
		After: func(ctx context.Context, cmd *cli.Command) error {
			return s.Close()
		},
		Commands: commands,
	}
}

func requireConfig(s *session) func(context.Context, *cli.Command) (context.Context, error) {
	return func(ctx context.Context, cmd *cli.Command) (context.Context, error) {
		if s.cfg == nil {
			return ctx, errors.Errorf("%s not found", consts.DefaultConfigFile)
		}

		return ctx, nil
	}
}
