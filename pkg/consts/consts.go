package consts

const (
	// DefaultConfigFile is the configuration file looked up in the working directory.
	DefaultConfigFile = "schemalens.yaml"

	// ConfigEnvVar overrides the configuration file path.
	ConfigEnvVar = "SCHEMALENS_CONFIG"

	// DefaultConcurrency bounds how many layers an overlay queries at once.
	DefaultConcurrency = 4

	// DefaultComparer is used when neither the config nor a layer names one.
	DefaultComparer = "ordinal"
)
