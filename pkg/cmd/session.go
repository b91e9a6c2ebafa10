package cmd

import (
	"context"
	"io"

	"github.com/pkg/errors"
	"github.com/pseudomuto/schemalens/pkg/clickhouse"
	"github.com/pseudomuto/schemalens/pkg/config"
	"github.com/pseudomuto/schemalens/pkg/ddl"
	"github.com/pseudomuto/schemalens/pkg/identifier"
	"github.com/pseudomuto/schemalens/pkg/relational"
	"github.com/pseudomuto/schemalens/pkg/render"
	"github.com/pseudomuto/schemalens/pkg/sqlsource"
	"go.uber.org/multierr"
	"go.uber.org/zap"
)

// session holds the configuration and the overlay shared by commands during one
// invocation.
type session struct {
	cfg     *config.Config
	log     *zap.Logger
	noColor bool

	db      relational.Database
	closers []io.Closer
}

func newSession(cfg *config.Config) *session {
	log, err := newLogger(false)
	if err != nil {
		log = zap.NewNop()
	}

	return &session{cfg: cfg, log: log}
}

// newLogger logs warnings and errors to stderr, or everything when verbose is set.
func newLogger(verbose bool) (*zap.Logger, error) {
	cfg := zap.NewDevelopmentConfig()
	if !verbose {
		cfg.Level = zap.NewAtomicLevelAt(zap.WarnLevel)
		cfg.DisableStacktrace = true
	}

	return cfg.Build()
}

func (s *session) renderOptions() render.Options {
	return render.Options{NoColor: s.noColor}
}

// database opens every configured layer on first use and composes them into an overlay.
func (s *session) database(ctx context.Context) (relational.Database, error) {
	if s.db != nil {
		return s.db, nil
	}

	layers := make([]relational.Database, 0, len(s.cfg.Layers))
	for _, l := range s.cfg.Layers {
		db, err := s.openLayer(ctx, l)
		if err != nil {
			return nil, errors.Wrapf(err, "failed to open layer %s", l.Name)
		}

		layers = append(layers, db)
	}

	cmp, err := identifier.ComparerByName(s.cfg.Comparer)
	if err != nil {
		return nil, err
	}

	db, err := relational.NewOverlay(layers,
		relational.WithComparer(cmp),
		relational.WithConcurrency(s.cfg.Concurrency),
		relational.WithLogger(s.log),
	)
	if err != nil {
		return nil, err
	}

	s.log.Debug("opened overlay", zap.Int("layers", len(layers)), zap.String("comparer", cmp.Name()))
	s.db = db
	return db, nil
}

func (s *session) openLayer(ctx context.Context, l config.Layer) (relational.Database, error) {
	log := s.log.With(zap.String("layer", l.Name))
	opts := []relational.Option{relational.WithLogger(log)}

	var cmp identifier.Comparer
	if l.Comparer != "" {
		c, err := identifier.ComparerByName(l.Comparer)
		if err != nil {
			return nil, err
		}

		cmp = c
		opts = append(opts, relational.WithComparer(c))
	}

	var src relational.Source
	switch l.Kind {
	case config.KindDDL:
		dopts := []ddl.Option{ddl.WithName(l.Name), ddl.WithLogger(log)}
		if l.DefaultSchema != "" {
			dopts = append(dopts, ddl.WithDefaultSchema(l.DefaultSchema))
		}
		if cmp != nil {
			dopts = append(dopts, ddl.WithComparer(cmp))
		}

		static, err := ddl.LoadFile(l.Path, dopts...)
		if err != nil {
			return nil, err
		}
		src = static

	case config.KindClickHouse:
		opts := clickhouse.ClientOptions{
			Name:     l.Name,
			Database: l.DefaultSchema,
			Logger:   log,
		}
		if l.TLS != nil {
			opts.TLSSettings = clickhouse.TLSSettings{
				CertFile: l.TLS.CertFile,
				KeyFile:  l.TLS.KeyFile,
				CAFile:   l.TLS.CAFile,
			}
		}

		client, err := clickhouse.NewClientWithOptions(ctx, l.DSN, opts)
		if err != nil {
			return nil, err
		}
		s.closers = append(s.closers, client)
		src = client

	case config.KindPostgres, config.KindSQLite:
		driver := "postgres"
		if l.Kind == config.KindSQLite {
			driver = "sqlite3"
		}

		sql, err := sqlsource.Open(ctx, driver, l.DSN,
			sqlsource.WithName(l.Name),
			sqlsource.WithDefaultSchema(l.DefaultSchema),
			sqlsource.WithLogger(log),
		)
		if err != nil {
			return nil, err
		}
		s.closers = append(s.closers, sql)
		src = sql

	default:
		return nil, errors.Wrapf(config.ErrInvalidLayer, "unknown kind %q", l.Kind)
	}

	log.Debug("opened layer", zap.String("kind", l.Kind))
	return relational.NewCached(src, opts...)
}

// Close releases every connection opened by database. The session can be reused
// afterwards and will reconnect.
func (s *session) Close() error {
	var err error
	for _, c := range s.closers {
		err = multierr.Append(err, c.Close())
	}

	s.closers = nil
	s.db = nil
	_ = s.log.Sync()
	return err
}
