package config

import (
	"os"

	"github.com/pseudomuto/schemalens/pkg/consts"
	"go.uber.org/fx"
)

var Module = fx.Module("config", fx.Provide(
	// Loads the file named by SCHEMALENS_CONFIG, or schemalens.yaml when it exists. A nil
	// config lets commands such as help and version run outside a project; commands that
	// need one report the missing file themselves.
	func() (*Config, error) {
		path := os.Getenv(consts.ConfigEnvVar)
		if path == "" {
			path = consts.DefaultConfigFile
		}

		if _, err := os.Stat(path); os.IsNotExist(err) {
			return nil, nil
		}

		return LoadConfigFile(path)
	},
))
