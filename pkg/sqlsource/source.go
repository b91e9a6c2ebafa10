package sqlsource

import (
	"context"
	"database/sql"

	"github.com/pkg/errors"
	"github.com/pseudomuto/schemalens/pkg/relational"
	"go.uber.org/zap"

	_ "github.com/jackc/pgx/v5/stdlib" // pgx driver
	_ "github.com/lib/pq"              // postgres driver
	_ "github.com/mattn/go-sqlite3"    // sqlite3 driver
)

type (
	// Source is a relational.Source over a database/sql connection.
	Source struct {
		db      *sql.DB
		dialect Dialect
		name    string
		schema  string
		log     *zap.Logger
	}

	// Option configures a Source.
	Option func(*Source)
)

// WithName sets the display name of the source. Defaults to the dialect name.
func WithName(name string) Option {
	return func(s *Source) { s.name = name }
}

// WithDefaultSchema overrides the dialect's default schema.
func WithDefaultSchema(schema string) Option {
	return func(s *Source) {
		if schema != "" {
			s.schema = schema
		}
	}
}

// WithLogger sets the logger. Defaults to a no-op logger.
func WithLogger(log *zap.Logger) Option {
	return func(s *Source) { s.log = log }
}

// Open connects with database/sql and verifies the connection. The dialect is chosen from
// driverName.
func Open(ctx context.Context, driverName, dsn string, opts ...Option) (*Source, error) {
	dialect, err := DialectForDriver(driverName)
	if err != nil {
		return nil, err
	}

	db, err := sql.Open(driverName, dsn)
	if err != nil {
		return nil, errors.Wrapf(err, "failed to open %s database", driverName)
	}

	if err := db.PingContext(ctx); err != nil {
		_ = db.Close()
		return nil, errors.Wrapf(err, "failed to connect to %s database", driverName)
	}

	return New(db, dialect, opts...), nil
}

// New wraps an open database. The Source takes ownership of db; Close closes it.
func New(db *sql.DB, dialect Dialect, opts ...Option) *Source {
	s := &Source{
		db:      db,
		dialect: dialect,
		name:    dialect.Name,
		schema:  dialect.DefaultSchema,
		log:     zap.NewNop(),
	}
	for _, opt := range opts {
		opt(s)
	}

	s.log = s.log.With(zap.String("source", s.name), zap.String("dialect", dialect.Name))
	return s
}

// Close closes the underlying database.
func (s *Source) Close() error {
	return s.db.Close()
}

// Identity reports the dialect and default schema of the source.
func (s *Source) Identity() relational.Identity {
	return relational.Identity{
		Dialect:       s.dialect.Name,
		DefaultSchema: s.schema,
		Name:          s.name,
		Comparer:      s.dialect.Comparer,
	}
}

func (s *Source) Tables() relational.Objects[*relational.Table] {
	return kindOf(s, s.dialect.Tables, scanTable, decorateTable)
}

func (s *Source) Views() relational.Objects[*relational.View] {
	return kindOf(s, s.dialect.Views, scanView, decorateView)
}

func (s *Source) Sequences() relational.Objects[*relational.Sequence] {
	return kindOf(s, s.dialect.Sequences, scanSequence, nil)
}

func (s *Source) Synonyms() relational.Objects[*relational.Synonym] {
	return relational.Unsupported[*relational.Synonym]()
}

func (s *Source) Triggers() relational.Objects[*relational.Trigger] {
	return kindOf(s, s.dialect.Triggers, s.scanTrigger, nil)
}

func kindOf[T relational.Object](s *Source, query string, scan scanFunc[T], decorate decorateFunc[T]) relational.Objects[T] {
	if query == "" {
		return relational.Unsupported[T]()
	}

	return &objects[T]{src: s, query: query, scan: scan, decorate: decorate}
}
