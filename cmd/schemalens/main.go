package main

import (
	"context"
	"log"
	"os"

	"github.com/pseudomuto/schemalens/pkg/cmd"
	"github.com/pseudomuto/schemalens/pkg/config"
	"go.uber.org/fx"
)

// NB: These are set by GoReleaser during a build.
var (
	version string
	commit  string
	date    string
)

func main() {
	app := fx.New(
		fx.NopLogger,
		fx.Supply(
			os.Args,
			&cmd.Version{Version: version, Commit: commit, Timestamp: date},
		),
		fx.Provide(context.Background),
		config.Module,
		cmd.Module,
	)

	if err := app.Err(); err != nil {
		log.Fatal(err)
	}

	app.Run()
}
