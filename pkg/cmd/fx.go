package cmd

import "go.uber.org/fx"

var Module = fx.Module("cli",
	fx.Provide(
		newSession,
		fx.Annotate(existsCmd, fx.ResultTags(`group:"commands"`)),
		fx.Annotate(lsCmd, fx.ResultTags(`group:"commands"`)),
		fx.Annotate(showCmd, fx.ResultTags(`group:"commands"`)),
	),
	fx.Invoke(Run),
)
