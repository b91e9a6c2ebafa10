package config

import (
	"io"
	"os"
	"path/filepath"
	"strconv"

	"github.com/pkg/errors"
	"github.com/pseudomuto/schemalens/pkg/consts"
	"github.com/pseudomuto/schemalens/pkg/identifier"
	"gopkg.in/yaml.v3"
)

// Layer kinds accepted in configuration files.
const (
	KindDDL        = "ddl"
	KindClickHouse = "clickhouse"
	KindPostgres   = "postgres"
	KindSQLite     = "sqlite"
)

var (
	// ErrNoLayers is returned by Validate when no layers are configured.
	ErrNoLayers = errors.New("at least one layer must be configured")

	// ErrInvalidLayer is returned by Validate for incomplete or unknown layers.
	ErrInvalidLayer = errors.New("invalid layer")
)

type (
	// Layer describes one metadata source in the overlay.
	Layer struct {
		// Name identifies the layer in output and logs. Defaults to the kind and position,
		// e.g. "postgres-1".
		Name string `yaml:"name,omitempty"`

		// Kind is one of ddl, clickhouse, postgres or sqlite.
		Kind string `yaml:"kind"`

		// Path is the DDL file or directory of a ddl layer. Relative paths are resolved
		// against the configuration file.
		Path string `yaml:"path,omitempty"`

		// DSN is the connection string of a database layer.
		DSN string `yaml:"dsn,omitempty"`

		// DefaultSchema qualifies names without a schema. Database layers default to their
		// dialect's schema.
		DefaultSchema string `yaml:"default_schema,omitempty"`

		// Comparer overrides the comparer of this layer's source.
		Comparer string `yaml:"comparer,omitempty"`

		// TLS configures encrypted connections of a clickhouse layer.
		TLS *TLS `yaml:"tls,omitempty"`
	}

	// TLS names PEM files. Relative paths are resolved against the configuration file.
	TLS struct {
		CertFile string `yaml:"cert_file,omitempty"`
		KeyFile  string `yaml:"key_file,omitempty"`
		CAFile   string `yaml:"ca_file,omitempty"`
	}

	// Config is the schemalens.yaml file.
	Config struct {
		// Comparer overrides the comparer of the composed overlay.
		Comparer string `yaml:"comparer,omitempty"`

		// Concurrency bounds how many layers are queried at once.
		Concurrency int `yaml:"concurrency,omitempty"`

		// Layers are ordered from highest to lowest priority. The last layer is the base.
		Layers []Layer `yaml:"layers"`
	}
)

// LoadConfig parses and validates a configuration.
//
// Example:
//
//	cfg, err := config.LoadConfig(strings.NewReader(`
//	layers:
//	  - kind: ddl
//	    path: db/planned.sql
//	  - kind: postgres
//	    dsn: postgres://localhost/app?sslmode=disable
//	`))
//	if err != nil {
//		return err
//	}
func LoadConfig(r io.Reader) (*Config, error) {
	var cfg Config
	if err := yaml.NewDecoder(r).Decode(&cfg); err != nil {
		return nil, errors.Wrap(err, "failed to unmarshal config")
	}

	if cfg.Comparer == "" {
		cfg.Comparer = consts.DefaultComparer
	}
	if cfg.Concurrency == 0 {
		cfg.Concurrency = consts.DefaultConcurrency
	}

	for i := range cfg.Layers {
		if cfg.Layers[i].Name == "" {
			cfg.Layers[i].Name = cfg.Layers[i].Kind + "-" + strconv.Itoa(i+1)
		}
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	return &cfg, nil
}

// LoadConfigFile loads a configuration file. Relative ddl and TLS paths are made relative
// to the directory containing the file.
func LoadConfigFile(path string) (*Config, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, errors.Wrapf(err, "failed to open file: %s", path)
	}
	defer func() { _ = f.Close() }()

	cfg, err := LoadConfig(f)
	if err != nil {
		return nil, errors.Wrapf(err, "failed to load %s", path)
	}

	dir := filepath.Dir(path)
	for i := range cfg.Layers {
		l := &cfg.Layers[i]
		l.Path = resolve(dir, l.Path)
		if l.TLS != nil {
			l.TLS.CertFile = resolve(dir, l.TLS.CertFile)
			l.TLS.KeyFile = resolve(dir, l.TLS.KeyFile)
			l.TLS.CAFile = resolve(dir, l.TLS.CAFile)
		}
	}

	return cfg, nil
}

// Validate reports the first problem with the configuration.
func (c *Config) Validate() error {
	if len(c.Layers) == 0 {
		return ErrNoLayers
	}

	if c.Concurrency < 0 {
		return errors.Errorf("concurrency must not be negative, got %d", c.Concurrency)
	}

	if _, err := identifier.ComparerByName(c.Comparer); err != nil {
		return err
	}

	names := make(map[string]struct{}, len(c.Layers))
	for i, l := range c.Layers {
		if err := l.validate(); err != nil {
			return errors.Wrapf(err, "layer %d", i+1)
		}

		if _, dup := names[l.Name]; dup {
			return errors.Wrapf(ErrInvalidLayer, "duplicate layer name %q", l.Name)
		}
		names[l.Name] = struct{}{}
	}

	return nil
}

func (l Layer) validate() error {
	switch l.Kind {
	case KindDDL:
		if l.Path == "" {
			return errors.Wrapf(ErrInvalidLayer, "%s layer %q requires a path", l.Kind, l.Name)
		}
	case KindClickHouse, KindPostgres, KindSQLite:
		if l.DSN == "" {
			return errors.Wrapf(ErrInvalidLayer, "%s layer %q requires a dsn", l.Kind, l.Name)
		}
	default:
		return errors.Wrapf(ErrInvalidLayer, "unknown kind %q", l.Kind)
	}

	if l.Comparer != "" {
		if _, err := identifier.ComparerByName(l.Comparer); err != nil {
			return err
		}
	}

	if l.TLS != nil {
		if l.Kind != KindClickHouse {
			return errors.Wrapf(ErrInvalidLayer, "tls is not supported by %s layer %q", l.Kind, l.Name)
		}

		if (l.TLS.CertFile == "") != (l.TLS.KeyFile == "") {
			return errors.Wrapf(ErrInvalidLayer, "layer %q requires both cert_file and key_file", l.Name)
		}
	}

	return nil
}

func resolve(dir, path string) string {
	if path == "" || filepath.IsAbs(path) {
		return path
	}

	return filepath.Join(dir, path)
}
